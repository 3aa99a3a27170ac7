package idgen

import (
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	node     *snowflake.Node
	nodeErr  error
	nodeOnce sync.Once
)

// Init sets the node id used by the default generator. It must be called
// before the first id is generated to have any effect.
func Init(nodeID int64) error {
	nodeOnce.Do(func() {
		node, nodeErr = snowflake.NewNode(nodeID)
	})
	return nodeErr
}

// NextID returns the next snowflake id, initialising node 1 on first use.
func NextID() int64 {
	if err := Init(1); err != nil {
		panic(fmt.Sprintf("idgen: %v", err))
	}
	return node.Generate().Int64()
}

func generate(prefix string) string {
	id := NextID()
	return fmt.Sprintf("%s%s%08d", prefix, time.Now().Format("20060102150405"), id%100000000)
}

// GenerateEventKey returns a key for an outbox event, e.g. EVT2024011514305212345678.
func GenerateEventKey() string {
	return generate("EVT")
}

// GenerateRefundNo returns a refund reference.
func GenerateRefundNo() string {
	return generate("REF")
}
