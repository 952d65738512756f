package subwallet

import "time"

const statusActive = "active"

// SubWallet is a local accounting entity representing a budget-scoped slice
// of the shared remote balance. Funds are not segregated at the protocol
// level; the entity only attributes activity on the one real account.
type SubWallet struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Descriptor is the connection descriptor used to reach the remote
	// session for this sub-wallet. Currently always the master descriptor;
	// sub-wallets are logical, not protocol-level, entities.
	Descriptor  string   `json:"descriptor"`
	Permissions []string `json:"permissions,omitempty"`
	// BudgetMsat is an informational soft cap, not enforced remotely.
	BudgetMsat int64 `json:"budget_msat,omitempty"`
	// FundingMsat is the cumulative amount allocated from the shared
	// balance. It only ever grows, via Fund.
	FundingMsat  int64 `json:"funding_msat"`
	SpentMsat    int64 `json:"spent_msat"`
	ReceivedMsat int64 `json:"received_msat"`
	// TxIDs is the append-only set of remote transaction identifiers
	// attributed to this sub-wallet. A transaction ID belongs to at most
	// one sub-wallet.
	TxIDs     []string  `json:"tx_ids"`
	CreatedAt time.Time `json:"created_at"`
	Status    string    `json:"status"`
}

// Config captures data required to create a sub-wallet.
type Config struct {
	Name        string
	Permissions []string
	BudgetMsat  int64
}

// SignedBalanceMsat is funding + received - spent without clamping. The
// signed value can go negative on over-spend and must stay available for
// reconciliation.
func (w SubWallet) SignedBalanceMsat() int64 {
	return w.FundingMsat + w.ReceivedMsat - w.SpentMsat
}

// BalanceMsat is the displayable balance, clamped at zero.
func (w SubWallet) BalanceMsat() int64 {
	if b := w.SignedBalanceMsat(); b > 0 {
		return b
	}
	return 0
}

// Tracks reports whether the transaction ID is attributed to this sub-wallet.
func (w SubWallet) Tracks(txID string) bool {
	for _, id := range w.TxIDs {
		if id == txID {
			return true
		}
	}
	return false
}

func (w SubWallet) clone() SubWallet {
	cp := w
	cp.Permissions = append([]string(nil), w.Permissions...)
	cp.TxIDs = append([]string(nil), w.TxIDs...)
	return cp
}
