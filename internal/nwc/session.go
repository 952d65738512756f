package nwc

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrConnection indicates the initial connect validation against the
	// remote wallet failed.
	ErrConnection = errors.New("wallet connection failed")

	// ErrNetwork indicates a remote call failed after a session was
	// established.
	ErrNetwork = errors.New("wallet network error")

	// ErrProtocol indicates the remote call succeeded in transport but the
	// wallet returned an error payload.
	ErrProtocol = errors.New("wallet protocol error")
)

// Direction classifies a transaction relative to the wallet.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// Info describes the remote wallet, as reported by get_info.
type Info struct {
	Alias   string
	Network string
	Methods []string
}

// Balance is the raw remote account balance.
type Balance struct {
	BalanceMsat int64
}

// Invoice is the result of make_invoice.
type Invoice struct {
	PaymentRequest string
	// RemoteID is the wallet's identifier for the eventual settlement
	// transaction (typically the payment hash). May be empty.
	RemoteID string
}

// PaymentReceipt is the result of a successful pay_invoice.
type PaymentReceipt struct {
	// RemoteID identifies the resulting transaction. May be empty when the
	// wallet omits it.
	RemoteID string
	Preimage string
}

// Transaction mirrors one entry of the remote transaction history. Entries
// are read-only: they are never created, mutated or deleted locally.
type Transaction struct {
	// ID is the wallet's stable identifier. Empty when the remote record
	// lacked one; callers must handle that variant explicitly.
	ID          string
	Direction   Direction
	AmountMsat  int64
	Description string
	CreatedAt   time.Time
}

// HasID reports whether the remote provided a stable identifier.
func (t Transaction) HasID() bool {
	return t.ID != ""
}

// Session is an established connection to the remote wallet. It is the single
// source of truth for actual funds; everything local is accounting on top.
type Session interface {
	GetInfo(ctx context.Context) (Info, error)
	GetBalance(ctx context.Context) (Balance, error)
	MakeInvoice(ctx context.Context, amountMsat int64, description string) (Invoice, error)
	PayInvoice(ctx context.Context, paymentRequest string) (PaymentReceipt, error)
	// ListTransactions returns up to limit entries, most recent first.
	ListTransactions(ctx context.Context, limit int) ([]Transaction, error)
}

// Dialer constructs sessions from connection descriptors.
type Dialer interface {
	Dial(ctx context.Context, descriptor Descriptor) (Session, error)
}
