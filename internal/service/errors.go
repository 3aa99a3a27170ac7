package service

import (
	"errors"

	"starshop/internal/repository"
)

var (
	// ErrDuplicateCharge signals a replayed payment notification; nothing was written.
	ErrDuplicateCharge = repository.ErrDuplicateCharge

	ErrChargeNotFound    = errors.New("charge not found")
	ErrAlreadyRefunded   = errors.New("charge already refunded")
	ErrRefundRejected    = errors.New("refund rejected by payment provider")
	ErrTransport         = errors.New("messenger transport failed")
	ErrInvalidLedgerKind = errors.New("invalid ledger kind")
	ErrInvalidPayment    = errors.New("payment has no charge id")
	ErrSalesDisabled     = errors.New("sales are disabled")
	ErrInvalidPrice      = errors.New("price must be a positive integer")
	ErrInvalidUserID     = errors.New("user id must be positive")
	ErrEmptyContent      = errors.New("text must not be empty")
)
