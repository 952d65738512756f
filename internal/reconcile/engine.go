package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/satsplit/satsplit/internal/nwc"
	"github.com/satsplit/satsplit/internal/session"
	"github.com/satsplit/satsplit/internal/subwallet"
)

const statusCompleted = "completed"

// Transaction is the canonical, display-ready shape of a remote history
// entry after normalization.
type Transaction struct {
	ID string `json:"id"`
	// Synthetic marks IDs manufactured from timestamp and list position for
	// entries the remote returned without a stable identifier. Synthetic IDs
	// are not stable across passes and are never written into a sub-wallet's
	// tracked set.
	Synthetic   bool          `json:"synthetic,omitempty"`
	Direction   nwc.Direction `json:"direction"`
	AmountMsat  int64         `json:"amount_msat"`
	Description string        `json:"description,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
	Status      string        `json:"status"`
}

// Report summarizes one reconciliation pass. The history and balance fetches
// are independent; either side can fail without invalidating the other.
type Report struct {
	Wallets     int   `json:"wallets"`
	Adjusted    int   `json:"adjusted"`
	FetchedTxs  int   `json:"fetched_txs"`
	HistoryOK   bool  `json:"history_ok"`
	BalanceOK   bool  `json:"balance_ok"`
	BalanceMsat int64 `json:"balance_msat"`
}

// Engine keeps every sub-wallet's totals and tracked transaction set
// consistent with the authoritative remote history, and resolves displayable
// balances. Remote failures degrade the affected value to unknown instead of
// aborting the pass.
type Engine struct {
	manager    *session.Manager
	ledger     *subwallet.Ledger
	dialer     nwc.Dialer
	logger     *slog.Logger
	fetchLimit int

	mu            sync.Mutex
	cachedBalance int64
	balanceKnown  bool
}

// NewEngine wires a reconciliation engine. fetchLimit bounds how much remote
// history one pass sees; transactions beyond the window are invisible, a
// documented approximation for small accounts.
func NewEngine(manager *session.Manager, ledger *subwallet.Ledger, dialer nwc.Dialer, logger *slog.Logger, fetchLimit int) *Engine {
	if fetchLimit <= 0 {
		fetchLimit = 50
	}
	return &Engine{
		manager:    manager,
		ledger:     ledger,
		dialer:     dialer,
		logger:     logger,
		fetchLimit: fetchLimit,
	}
}

// Sync runs one reconciliation pass over the active account: fetch history,
// attribute entries by tracked ID, recompute totals and overwrite drift, then
// independently refresh the raw account balance.
func (e *Engine) Sync(ctx context.Context) (Report, error) {
	sess, err := e.manager.Session()
	if err != nil {
		return Report{}, err
	}

	report := Report{}

	remote, err := sess.ListTransactions(ctx, e.fetchLimit)
	if err != nil {
		e.logger.Warn("reconcile: history fetch failed", "error", err)
	} else {
		report.HistoryOK = true
		report.FetchedTxs = len(remote)
		e.reconcileTotals(ctx, Normalize(remote), &report)
	}

	// Balance is fetched regardless of the history outcome; each call fails
	// independently.
	balance, err := sess.GetBalance(ctx)
	if err != nil {
		e.logger.Warn("reconcile: balance fetch failed", "error", err)
		e.mu.Lock()
		report.BalanceMsat = e.cachedBalance
		e.mu.Unlock()
	} else {
		e.mu.Lock()
		e.cachedBalance = balance.BalanceMsat
		e.balanceKnown = true
		e.mu.Unlock()
		report.BalanceOK = true
		report.BalanceMsat = balance.BalanceMsat
	}

	return report, nil
}

func (e *Engine) reconcileTotals(ctx context.Context, txs []Transaction, report *Report) {
	wallets := e.ledger.List()
	report.Wallets = len(wallets)

	for _, w := range wallets {
		var newSpent, newReceived int64
		for _, tx := range txs {
			// Synthetic IDs can never match a tracked set; the explicit
			// check keeps the unstable-key case visible.
			if tx.Synthetic || !w.Tracks(tx.ID) {
				continue
			}
			switch tx.Direction {
			case nwc.DirectionOutgoing:
				newSpent += tx.AmountMsat
			case nwc.DirectionIncoming:
				newReceived += tx.AmountMsat
			}
		}

		if newSpent != w.SpentMsat || newReceived != w.ReceivedMsat {
			e.ledger.OverwriteTotals(ctx, w.ID, newSpent, newReceived)
			report.Adjusted++
			e.logger.Info("reconcile: totals corrected",
				"sub_wallet", w.ID,
				"spent_msat", newSpent,
				"received_msat", newReceived)
		}
	}
}

// Normalize converts remote history entries into the canonical transaction
// shape, assigning a synthetic identifier to entries without a stable one.
func Normalize(remote []nwc.Transaction) []Transaction {
	out := make([]Transaction, 0, len(remote))
	for i, tx := range remote {
		norm := Transaction{
			ID:          tx.ID,
			Direction:   tx.Direction,
			AmountMsat:  tx.AmountMsat,
			Description: tx.Description,
			Timestamp:   tx.CreatedAt,
			Status:      statusCompleted,
		}
		if !tx.HasID() {
			norm.ID = fmt.Sprintf("synthetic:%d:%d", tx.CreatedAt.Unix(), i)
			norm.Synthetic = true
		}
		out = append(out, norm)
	}
	return out
}

// WalletBalance resolves the displayable balance for one sub-wallet. A
// sub-wallet carrying a foreign descriptor is resolved against its own
// session; any remote failure on that path degrades to unknown
// (known=false) rather than an error. Logical sub-wallets use the derived
// funding+received-spent formula, clamped at zero.
func (e *Engine) WalletBalance(ctx context.Context, id string) (int64, bool, error) {
	w, ok := e.ledger.Get(id)
	if !ok {
		return 0, false, subwallet.ErrNotFound
	}

	master := e.manager.MasterDescriptor()
	if w.Descriptor != "" && w.Descriptor != master.Raw {
		d, err := nwc.ParseDescriptor(w.Descriptor)
		if err != nil {
			e.logger.Warn("wallet balance: bad descriptor", "sub_wallet", id, "error", err)
			return 0, false, nil
		}
		sess, err := e.dialer.Dial(ctx, d)
		if err != nil {
			e.logger.Warn("wallet balance: dial failed", "sub_wallet", id, "error", err)
			return 0, false, nil
		}
		balance, err := sess.GetBalance(ctx)
		if err != nil {
			e.logger.Warn("wallet balance: fetch failed", "sub_wallet", id, "error", err)
			return 0, false, nil
		}
		return balance.BalanceMsat, true, nil
	}

	return w.BalanceMsat(), true, nil
}

// WalletTransactions returns the normalized remote transactions attributed to
// the sub-wallet, most recent first. A history fetch failure degrades to an
// empty view so already-known data elsewhere keeps rendering.
func (e *Engine) WalletTransactions(ctx context.Context, id string) ([]Transaction, error) {
	w, ok := e.ledger.Get(id)
	if !ok {
		return nil, subwallet.ErrNotFound
	}

	sess, err := e.manager.Session()
	if err != nil {
		return nil, err
	}

	remote, err := sess.ListTransactions(ctx, e.fetchLimit)
	if err != nil {
		e.logger.Warn("wallet transactions: history fetch failed", "sub_wallet", id, "error", err)
		return []Transaction{}, nil
	}

	attributed := make([]Transaction, 0)
	for _, tx := range Normalize(remote) {
		if !tx.Synthetic && w.Tracks(tx.ID) {
			attributed = append(attributed, tx)
		}
	}
	return attributed, nil
}

// AccountBalance returns the raw remote balance. On fetch failure the last
// successfully fetched value is served with cached=true; with no prior value
// the failure surfaces as ErrNetwork.
func (e *Engine) AccountBalance(ctx context.Context) (int64, bool, error) {
	sess, err := e.manager.Session()
	if err != nil {
		return 0, false, err
	}

	balance, err := sess.GetBalance(ctx)
	if err != nil {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.balanceKnown {
			e.logger.Warn("account balance: serving cached value", "error", err)
			return e.cachedBalance, true, nil
		}
		return 0, false, fmt.Errorf("%w: get_balance: %v", nwc.ErrNetwork, err)
	}

	e.mu.Lock()
	e.cachedBalance = balance.BalanceMsat
	e.balanceKnown = true
	e.mu.Unlock()
	return balance.BalanceMsat, false, nil
}
