package mq

import (
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducerPublish(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		assert.Equal(t, `{"event":"purchase.completed"}`, string(val))
		return nil
	})
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewProducer(sp, nil)
	require.NoError(t, p.Publish("payment_events", "EVT1", `{"event":"purchase.completed"}`))

	err := p.Publish("payment_events", "EVT2", "{}")
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)

	require.NoError(t, p.Close())
}
