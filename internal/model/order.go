package model

import (
	"encoding/json"
	"fmt"
)

// OrderStatus is the lifecycle state of one invoice attempt.
// created -> success or created -> error; both are terminal.
type OrderStatus string

const (
	OrderStatusCreated OrderStatus = "created"
	OrderStatusSuccess OrderStatus = "success"
	OrderStatusError   OrderStatus = "error"
)

// legacyOrderStatuses maps status strings written by the previous bot.
var legacyOrderStatuses = map[string]OrderStatus{
	"створено": OrderStatusCreated,
	"успіх":    OrderStatusSuccess,
	"помилка":  OrderStatusError,
}

// ValidStatusTransitions lists the allowed moves out of each state.
var ValidStatusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusCreated: {OrderStatusSuccess, OrderStatusError},
}

func CanTransitionTo(current, target OrderStatus) bool {
	allowed, exists := ValidStatusTransitions[current]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if legacy, ok := legacyOrderStatuses[raw]; ok {
		*s = legacy
		return nil
	}
	switch OrderStatus(raw) {
	case OrderStatusCreated, OrderStatusSuccess, OrderStatusError:
		*s = OrderStatus(raw)
		return nil
	}
	return fmt.Errorf("unknown order status %q", raw)
}

// OrderRecord is an audit event for an invoice. Orders are never read back
// for balance computation.
type OrderRecord struct {
	UserID  int64       `json:"user_id"`
	Payload string      `json:"payload"`
	Amount  int64       `json:"amount"`
	Status  OrderStatus `json:"status"`
	Ts      int64       `json:"ts"`
	Reason  *string     `json:"reason"`
}
