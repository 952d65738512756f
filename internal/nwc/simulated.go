package nwc

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type pendingInvoice struct {
	amountMsat  int64
	remoteID    string
	description string
}

// SimulatedDialer hands out sessions against a single in-memory wallet. It
// stands in for the real NWC transport in dev mode and tests, the same way a
// static connector stands in for a card acquirer.
type SimulatedDialer struct {
	mu          sync.Mutex
	balanceMsat int64
	txs         []Transaction
	invoices    map[string]pendingInvoice
}

// NewSimulatedDialer creates a simulated wallet seeded with the given balance.
func NewSimulatedDialer(initialBalanceMsat int64) *SimulatedDialer {
	return &SimulatedDialer{
		balanceMsat: initialBalanceMsat,
		invoices:    make(map[string]pendingInvoice),
	}
}

// Dial returns a session onto the shared simulated wallet. Every descriptor
// reaches the same wallet; the simulation has no notion of separate accounts.
func (d *SimulatedDialer) Dial(_ context.Context, _ Descriptor) (Session, error) {
	return &simulatedSession{wallet: d}, nil
}

// SettleInvoice simulates an external payer settling an invoice previously
// issued through MakeInvoice: the balance is credited and an incoming
// transaction appears in the history.
func (d *SimulatedDialer) SettleInvoice(paymentRequest string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	inv, ok := d.invoices[paymentRequest]
	if !ok {
		return fmt.Errorf("unknown invoice %q", paymentRequest)
	}
	delete(d.invoices, paymentRequest)

	d.balanceMsat += inv.amountMsat
	d.txs = append(d.txs, Transaction{
		ID:          inv.remoteID,
		Direction:   DirectionIncoming,
		AmountMsat:  inv.amountMsat,
		Description: inv.description,
		CreatedAt:   time.Now().UTC(),
	})
	return nil
}

type simulatedSession struct {
	wallet *SimulatedDialer
}

func (s *simulatedSession) GetInfo(_ context.Context) (Info, error) {
	return Info{
		Alias:   "simulated-wallet",
		Network: "regtest",
		Methods: []string{"get_info", "get_balance", "make_invoice", "pay_invoice", "list_transactions"},
	}, nil
}

func (s *simulatedSession) GetBalance(_ context.Context) (Balance, error) {
	s.wallet.mu.Lock()
	defer s.wallet.mu.Unlock()
	return Balance{BalanceMsat: s.wallet.balanceMsat}, nil
}

func (s *simulatedSession) MakeInvoice(_ context.Context, amountMsat int64, description string) (Invoice, error) {
	if amountMsat <= 0 {
		return Invoice{}, fmt.Errorf("%w: amount must be positive", ErrProtocol)
	}

	s.wallet.mu.Lock()
	defer s.wallet.mu.Unlock()

	remoteID := uuid.NewString()
	paymentRequest := fmt.Sprintf("lnsim1%s", strings.ReplaceAll(remoteID, "-", ""))
	s.wallet.invoices[paymentRequest] = pendingInvoice{
		amountMsat:  amountMsat,
		remoteID:    remoteID,
		description: description,
	}
	return Invoice{PaymentRequest: paymentRequest, RemoteID: remoteID}, nil
}

// PayInvoice only understands invoices issued by this simulation; paying one
// debits the shared balance and records an outgoing transaction.
func (s *simulatedSession) PayInvoice(_ context.Context, paymentRequest string) (PaymentReceipt, error) {
	s.wallet.mu.Lock()
	defer s.wallet.mu.Unlock()

	inv, ok := s.wallet.invoices[paymentRequest]
	if !ok {
		return PaymentReceipt{}, fmt.Errorf("%w: unknown invoice", ErrProtocol)
	}
	if s.wallet.balanceMsat < inv.amountMsat {
		return PaymentReceipt{}, fmt.Errorf("%w: insufficient balance", ErrProtocol)
	}
	delete(s.wallet.invoices, paymentRequest)

	s.wallet.balanceMsat -= inv.amountMsat
	s.wallet.txs = append(s.wallet.txs, Transaction{
		ID:          inv.remoteID,
		Direction:   DirectionOutgoing,
		AmountMsat:  inv.amountMsat,
		Description: inv.description,
		CreatedAt:   time.Now().UTC(),
	})
	return PaymentReceipt{RemoteID: inv.remoteID, Preimage: uuid.NewString()}, nil
}

func (s *simulatedSession) ListTransactions(_ context.Context, limit int) ([]Transaction, error) {
	s.wallet.mu.Lock()
	defer s.wallet.mu.Unlock()

	if limit <= 0 || limit > len(s.wallet.txs) {
		limit = len(s.wallet.txs)
	}

	// most recent first
	out := make([]Transaction, 0, limit)
	for i := len(s.wallet.txs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.wallet.txs[i])
	}
	return out, nil
}
