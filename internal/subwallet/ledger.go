package subwallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/satsplit/satsplit/internal/secstore"
)

var (
	// ErrNotConnected occurs when a ledger operation requires an active
	// account identity and none exists.
	ErrNotConnected = errors.New("no wallet account is active")

	// ErrNotFound indicates the sub-wallet ID is unknown.
	ErrNotFound = errors.New("sub-wallet not found")
)

// DeltaKind distinguishes provisional spend and receive updates.
type DeltaKind string

const (
	DeltaSpent    DeltaKind = "spent"
	DeltaReceived DeltaKind = "received"
)

const storageKeyPrefix = "sub_wallets_"

// Ledger is the in-memory authoritative map of sub-wallet entities for the
// current account. Every mutation is persisted write-through to the secure
// store before returning; on persistence failure the in-memory state stays
// authoritative until the next successful write.
type Ledger struct {
	mu     sync.Mutex
	store  secstore.Store
	logger *slog.Logger

	identity         string
	masterDescriptor string
	wallets          map[string]*SubWallet
	order            []string
}

// NewLedger builds an empty ledger over the provided secure store.
func NewLedger(store secstore.Store, logger *slog.Logger) *Ledger {
	return &Ledger{
		store:   store,
		logger:  logger,
		wallets: make(map[string]*SubWallet),
	}
}

// LoadAccount switches the ledger to the given account identity, replacing
// any in-memory state with that identity's persisted sub-wallets.
func (l *Ledger) LoadAccount(ctx context.Context, identity, masterDescriptor string) error {
	if identity == "" {
		return fmt.Errorf("account identity is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.identity = identity
	l.masterDescriptor = masterDescriptor
	l.wallets = make(map[string]*SubWallet)
	l.order = nil

	raw, err := l.store.Load(ctx, storageKeyPrefix+identity)
	if err != nil {
		if errors.Is(err, secstore.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load sub-wallets for %s: %w", identity, err)
	}

	var stored []SubWallet
	if err := json.Unmarshal(raw, &stored); err != nil {
		return fmt.Errorf("decode sub-wallets for %s: %w", identity, err)
	}

	for i := range stored {
		w := stored[i]
		if w.TxIDs == nil {
			w.TxIDs = []string{}
		}
		l.wallets[w.ID] = &w
		l.order = append(l.order, w.ID)
	}
	return nil
}

// Reset discards the in-memory account state. Persisted sub-wallets are
// intentionally retained so reconnecting the same account restores them.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.identity = ""
	l.masterDescriptor = ""
	l.wallets = make(map[string]*SubWallet)
	l.order = nil
}

// Identity returns the active account identity, empty when disconnected.
func (l *Ledger) Identity() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.identity
}

// Create provisions a sub-wallet with zeroed totals and persists it.
func (l *Ledger) Create(ctx context.Context, cfg Config) (SubWallet, error) {
	if cfg.Name == "" {
		return SubWallet{}, fmt.Errorf("sub-wallet name is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.identity == "" {
		return SubWallet{}, ErrNotConnected
	}

	w := &SubWallet{
		ID:          uuid.NewString(),
		Name:        cfg.Name,
		Descriptor:  l.masterDescriptor,
		Permissions: append([]string(nil), cfg.Permissions...),
		BudgetMsat:  cfg.BudgetMsat,
		TxIDs:       []string{},
		CreatedAt:   time.Now().UTC(),
		Status:      statusActive,
	}

	l.wallets[w.ID] = w
	l.order = append(l.order, w.ID)

	if err := l.persist(ctx); err != nil {
		delete(l.wallets, w.ID)
		l.order = l.order[:len(l.order)-1]
		return SubWallet{}, err
	}
	return w.clone(), nil
}

// Fund allocates amountMsat from the shared balance to the sub-wallet.
// Affordability against the real remote balance is the caller's concern.
func (l *Ledger) Fund(ctx context.Context, id string, amountMsat int64) (SubWallet, error) {
	if amountMsat <= 0 {
		return SubWallet{}, fmt.Errorf("amount must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.wallets[id]
	if !ok {
		return SubWallet{}, ErrNotFound
	}

	w.FundingMsat += amountMsat
	if err := l.persist(ctx); err != nil {
		w.FundingMsat -= amountMsat
		return SubWallet{}, err
	}
	return w.clone(), nil
}

// Delete removes the sub-wallet entirely. No tombstone is kept.
func (l *Ledger) Delete(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.wallets[id]
	if !ok {
		return ErrNotFound
	}

	delete(l.wallets, id)
	for i, oid := range l.order {
		if oid == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}

	if err := l.persist(ctx); err != nil {
		l.wallets[id] = w
		l.order = append(l.order, id)
		return err
	}
	return nil
}

// Get returns a copy of the sub-wallet.
func (l *Ledger) Get(id string) (SubWallet, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.wallets[id]
	if !ok {
		return SubWallet{}, false
	}
	return w.clone(), true
}

// List returns all sub-wallets in insertion order.
func (l *Ledger) List() []SubWallet {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]SubWallet, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.wallets[id].clone())
	}
	return out
}

// RecordDelta applies a provisional update right after a payment or invoice
// settlement, ahead of the next reconciliation pass. A txID that is already
// tracked by any sub-wallet makes the whole call a no-op, so repeated
// recordings of the same transaction never double-count. Best-effort:
// persistence failures are logged, never surfaced.
func (l *Ledger) RecordDelta(ctx context.Context, id string, amountMsat int64, kind DeltaKind, txID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.wallets[id]
	if !ok {
		return
	}

	if txID != "" && l.tracked(txID) {
		return
	}

	switch kind {
	case DeltaSpent:
		w.SpentMsat += amountMsat
	case DeltaReceived:
		w.ReceivedMsat += amountMsat
	default:
		return
	}

	if txID != "" {
		w.TxIDs = append(w.TxIDs, txID)
	}

	if err := l.persist(ctx); err != nil {
		l.logger.Warn("persist provisional delta", "sub_wallet", id, "error", err)
	}
}

// TrackInvoice attributes a not-yet-settled invoice's transaction ID to the
// sub-wallet without touching totals; the settlement amount is credited by
// reconciliation once the transaction appears in the remote history.
func (l *Ledger) TrackInvoice(ctx context.Context, id, txID string) error {
	if txID == "" {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.wallets[id]
	if !ok {
		return ErrNotFound
	}
	if l.tracked(txID) {
		return nil
	}

	w.TxIDs = append(w.TxIDs, txID)
	if err := l.persist(ctx); err != nil {
		l.logger.Warn("persist invoice tracking", "sub_wallet", id, "error", err)
	}
	return nil
}

// OverwriteTotals replaces provisional totals with authoritative ones derived
// from the remote history. A missing sub-wallet (deleted concurrently) is a
// silent no-op.
func (l *Ledger) OverwriteTotals(ctx context.Context, id string, spentMsat, receivedMsat int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.wallets[id]
	if !ok {
		return
	}

	w.SpentMsat = spentMsat
	w.ReceivedMsat = receivedMsat

	if err := l.persist(ctx); err != nil {
		l.logger.Warn("persist authoritative totals", "sub_wallet", id, "error", err)
	}
}

func (l *Ledger) tracked(txID string) bool {
	for _, w := range l.wallets {
		if w.Tracks(txID) {
			return true
		}
	}
	return false
}

// persist writes the full sub-wallet list for the active identity. Callers
// must hold l.mu.
func (l *Ledger) persist(ctx context.Context) error {
	if l.identity == "" {
		return ErrNotConnected
	}

	out := make([]SubWallet, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, *l.wallets[id])
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode sub-wallets: %w", err)
	}
	if err := l.store.Save(ctx, storageKeyPrefix+l.identity, raw); err != nil {
		return fmt.Errorf("save sub-wallets: %w", err)
	}
	return nil
}
