package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/satsplit/satsplit/internal/logging"
	"github.com/satsplit/satsplit/internal/nwc"
	"github.com/satsplit/satsplit/internal/secstore"
	"github.com/satsplit/satsplit/internal/session"
	"github.com/satsplit/satsplit/internal/subwallet"
)

const (
	testPubkey     = "b889ff5b1513b641e2a139f661a661364979c5beee91842f8f0ef42ab558e9d4"
	testDescriptor = "nostr+walletconnect://" + testPubkey
)

type fixture struct {
	sess    *nwc.FakeSession
	dialer  *nwc.FakeDialer
	store   secstore.Store
	ledger  *subwallet.Ledger
	manager *session.Manager
	engine  *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	sess := &nwc.FakeSession{Info: nwc.Info{Alias: "test", Methods: []string{"get_info"}}}
	dialer := &nwc.FakeDialer{Session: sess}
	store := secstore.NewMemory()
	logger := logging.Discard()
	ledger := subwallet.NewLedger(store, logger)
	manager := session.NewManager(store, dialer, ledger, logger)

	if _, err := manager.Connect(context.Background(), testDescriptor); err != nil {
		t.Fatalf("connect: %v", err)
	}

	return &fixture{
		sess:    sess,
		dialer:  dialer,
		store:   store,
		ledger:  ledger,
		manager: manager,
		engine:  NewEngine(manager, ledger, dialer, logger, 50),
	}
}

func tx(id string, direction nwc.Direction, amountMsat int64) nwc.Transaction {
	return nwc.Transaction{
		ID:         id,
		Direction:  direction,
		AmountMsat: amountMsat,
		CreatedAt:  time.Unix(1700000000, 0).UTC(),
	}
}

func TestSyncRequiresConnection(t *testing.T) {
	f := newFixture(t)
	if err := f.manager.Disconnect(context.Background()); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if _, err := f.engine.Sync(context.Background()); !errors.Is(err, subwallet.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestSyncDerivesTotalsFromAttributedHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w, err := f.ledger.Create(ctx, subwallet.Config{Name: "groceries"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// provisional record under-counted: amount was not known at record time
	f.ledger.RecordDelta(ctx, w.ID, 20_000, subwallet.DeltaSpent, "tx1")
	if err := f.ledger.TrackInvoice(ctx, w.ID, "tx2"); err != nil {
		t.Fatalf("track invoice: %v", err)
	}

	f.sess.Txs = []nwc.Transaction{
		tx("tx1", nwc.DirectionOutgoing, 30_000),
		tx("tx2", nwc.DirectionIncoming, 10_000),
		tx("tx3", nwc.DirectionIncoming, 99_000), // unattributed
	}
	f.sess.BalanceMsat = 1_000_000

	report, err := f.engine.Sync(ctx)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !report.HistoryOK || !report.BalanceOK {
		t.Fatalf("expected both fetches ok, got %+v", report)
	}
	if report.Adjusted != 1 {
		t.Fatalf("expected one adjusted wallet, got %d", report.Adjusted)
	}

	got, _ := f.ledger.Get(w.ID)
	if got.SpentMsat != 30_000 {
		t.Fatalf("expected authoritative spent 30000, got %d", got.SpentMsat)
	}
	if got.ReceivedMsat != 10_000 {
		t.Fatalf("expected received 10000 from settled invoice, got %d", got.ReceivedMsat)
	}
}

func TestSyncNoDriftLeavesTotalsUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w, _ := f.ledger.Create(ctx, subwallet.Config{Name: "steady-state", BudgetMsat: 0})
	if _, err := f.ledger.Fund(ctx, w.ID, 100_000); err != nil {
		t.Fatalf("fund: %v", err)
	}
	f.ledger.RecordDelta(ctx, w.ID, 30_000, subwallet.DeltaSpent, "tx1")

	got, _ := f.ledger.Get(w.ID)
	if got.BalanceMsat() != 70_000 {
		t.Fatalf("expected balance 70000 before sync, got %d", got.BalanceMsat())
	}

	f.sess.Txs = []nwc.Transaction{tx("tx1", nwc.DirectionOutgoing, 30_000)}

	report, err := f.engine.Sync(ctx)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if report.Adjusted != 0 {
		t.Fatalf("matching totals must not be overwritten, adjusted=%d", report.Adjusted)
	}

	got, _ = f.ledger.Get(w.ID)
	if got.SpentMsat != 30_000 || got.BalanceMsat() != 70_000 {
		t.Fatalf("totals drifted: %+v", got)
	}
}

func TestSyncPartitionExclusivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w1, _ := f.ledger.Create(ctx, subwallet.Config{Name: "one"})
	w2, _ := f.ledger.Create(ctx, subwallet.Config{Name: "two"})

	f.ledger.RecordDelta(ctx, w1.ID, 5_000, subwallet.DeltaSpent, "tx1")
	// same txID against another wallet must not be accepted
	f.ledger.RecordDelta(ctx, w2.ID, 5_000, subwallet.DeltaSpent, "tx1")
	f.ledger.RecordDelta(ctx, w2.ID, 7_000, subwallet.DeltaSpent, "tx2")

	f.sess.Txs = []nwc.Transaction{
		tx("tx1", nwc.DirectionOutgoing, 5_000),
		tx("tx2", nwc.DirectionOutgoing, 7_000),
	}

	if _, err := f.engine.Sync(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}

	g1, _ := f.ledger.Get(w1.ID)
	g2, _ := f.ledger.Get(w2.ID)
	if !g1.Tracks("tx1") || g2.Tracks("tx1") {
		t.Fatalf("tx1 must belong to exactly one wallet: w1=%v w2=%v", g1.TxIDs, g2.TxIDs)
	}
	if g1.SpentMsat != 5_000 {
		t.Fatalf("w1 spent: expected 5000, got %d", g1.SpentMsat)
	}
	if g2.SpentMsat != 7_000 {
		t.Fatalf("w2 spent: expected 7000, got %d", g2.SpentMsat)
	}
}

func TestSyncHistoryFailureDoesNotBlockBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w, _ := f.ledger.Create(ctx, subwallet.Config{Name: "stable"})
	f.ledger.RecordDelta(ctx, w.ID, 1_000, subwallet.DeltaSpent, "tx1")

	f.sess.ListErr = errors.New("relay timeout")
	f.sess.BalanceMsat = 5_000

	report, err := f.engine.Sync(ctx)
	if err != nil {
		t.Fatalf("sync must degrade, not fail: %v", err)
	}
	if report.HistoryOK {
		t.Fatal("history fetch should be reported failed")
	}
	if !report.BalanceOK || report.BalanceMsat != 5_000 {
		t.Fatalf("balance must still resolve: %+v", report)
	}

	got, _ := f.ledger.Get(w.ID)
	if got.SpentMsat != 1_000 {
		t.Fatalf("provisional totals must survive a failed history fetch, got %d", got.SpentMsat)
	}
}

func TestSyncBalanceFailureDoesNotBlockHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// first pass primes the balance cache
	f.sess.BalanceMsat = 9_000
	if _, err := f.engine.Sync(ctx); err != nil {
		t.Fatalf("priming sync: %v", err)
	}

	w, _ := f.ledger.Create(ctx, subwallet.Config{Name: "history"})
	f.ledger.RecordDelta(ctx, w.ID, 100, subwallet.DeltaSpent, "tx1")
	f.sess.Txs = []nwc.Transaction{tx("tx1", nwc.DirectionOutgoing, 2_500)}
	f.sess.BalanceErr = errors.New("balance unavailable")

	report, err := f.engine.Sync(ctx)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !report.HistoryOK || report.Adjusted != 1 {
		t.Fatalf("history reconciliation must proceed: %+v", report)
	}
	if report.BalanceOK {
		t.Fatal("balance fetch should be reported failed")
	}
	if report.BalanceMsat != 9_000 {
		t.Fatalf("expected prior cached balance 9000, got %d", report.BalanceMsat)
	}
}

func TestNormalizeAssignsSyntheticIDs(t *testing.T) {
	remote := []nwc.Transaction{
		{Direction: nwc.DirectionIncoming, AmountMsat: 100, CreatedAt: time.Unix(1700000000, 0)},
		tx("real", nwc.DirectionOutgoing, 200),
	}

	normalized := Normalize(remote)
	if !normalized[0].Synthetic || normalized[0].ID == "" {
		t.Fatalf("entry without remote ID must get a synthetic one: %+v", normalized[0])
	}
	if normalized[1].Synthetic {
		t.Fatalf("entry with remote ID must keep it: %+v", normalized[1])
	}

	// Known limitation: synthetic IDs are position-derived, so a reordered
	// snapshot yields different IDs. They must therefore never take part in
	// attribution.
	reordered := Normalize([]nwc.Transaction{remote[1], remote[0]})
	if reordered[1].ID == normalized[0].ID {
		t.Fatal("expected synthetic IDs to differ across reordered snapshots")
	}
}

func TestWalletBalanceDerivedAndClamped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w, _ := f.ledger.Create(ctx, subwallet.Config{Name: "derived"})
	if _, err := f.ledger.Fund(ctx, w.ID, 50_000); err != nil {
		t.Fatalf("fund: %v", err)
	}
	f.ledger.RecordDelta(ctx, w.ID, 80_000, subwallet.DeltaSpent, "tx-over")

	balance, known, err := f.engine.WalletBalance(ctx, w.ID)
	if err != nil {
		t.Fatalf("wallet balance: %v", err)
	}
	if !known {
		t.Fatal("derived balance is always known")
	}
	if balance != 0 {
		t.Fatalf("expected clamped zero, got %d", balance)
	}

	if _, _, err := f.engine.WalletBalance(ctx, "missing"); !errors.Is(err, subwallet.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestWalletBalanceForeignDescriptor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	foreignPubkey := "d000000000000000000000000000000000000000000000000000000000000002"
	foreign := subwallet.SubWallet{
		ID:         "sub-foreign",
		Name:       "scoped",
		Descriptor: "nostr+walletconnect://" + foreignPubkey,
		TxIDs:      []string{},
		CreatedAt:  time.Now().UTC(),
		Status:     "active",
	}
	raw, _ := json.Marshal([]subwallet.SubWallet{foreign})
	if err := f.store.Save(ctx, "sub_wallets_"+testPubkey, raw); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	if err := f.ledger.LoadAccount(ctx, testPubkey, testDescriptor); err != nil {
		t.Fatalf("reload: %v", err)
	}

	f.sess.BalanceMsat = 123_000

	balance, known, err := f.engine.WalletBalance(ctx, "sub-foreign")
	if err != nil {
		t.Fatalf("wallet balance: %v", err)
	}
	if !known || balance != 123_000 {
		t.Fatalf("expected remote balance 123000, got %d known=%v", balance, known)
	}

	// remote failure degrades to unknown, not error
	f.sess.BalanceErr = errors.New("unreachable")
	_, known, err = f.engine.WalletBalance(ctx, "sub-foreign")
	if err != nil {
		t.Fatalf("degraded balance must not error: %v", err)
	}
	if known {
		t.Fatal("expected unknown balance after remote failure")
	}
}

func TestWalletTransactionsAttributedOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w, _ := f.ledger.Create(ctx, subwallet.Config{Name: "view"})
	f.ledger.RecordDelta(ctx, w.ID, 400, subwallet.DeltaSpent, "mine")

	f.sess.Txs = []nwc.Transaction{
		tx("mine", nwc.DirectionOutgoing, 400),
		tx("other", nwc.DirectionIncoming, 900),
		{Direction: nwc.DirectionIncoming, AmountMsat: 10, CreatedAt: time.Now()},
	}

	txs, err := f.engine.WalletTransactions(ctx, w.ID)
	if err != nil {
		t.Fatalf("wallet transactions: %v", err)
	}
	if len(txs) != 1 || txs[0].ID != "mine" {
		t.Fatalf("expected only the attributed transaction, got %+v", txs)
	}

	// history failure degrades to an empty view
	f.sess.ListErr = errors.New("timeout")
	txs, err = f.engine.WalletTransactions(ctx, w.ID)
	if err != nil {
		t.Fatalf("degraded view must not error: %v", err)
	}
	if len(txs) != 0 {
		t.Fatalf("expected empty view, got %+v", txs)
	}
}

func TestAccountBalanceCachedFallback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.sess.BalanceErr = errors.New("no cache yet")
	if _, _, err := f.engine.AccountBalance(ctx); !errors.Is(err, nwc.ErrNetwork) {
		t.Fatalf("expected ErrNetwork without cache, got %v", err)
	}

	f.sess.BalanceErr = nil
	f.sess.BalanceMsat = 77_000
	balance, cached, err := f.engine.AccountBalance(ctx)
	if err != nil || cached || balance != 77_000 {
		t.Fatalf("expected fresh 77000, got %d cached=%v err=%v", balance, cached, err)
	}

	f.sess.BalanceErr = errors.New("flaky relay")
	balance, cached, err = f.engine.AccountBalance(ctx)
	if err != nil {
		t.Fatalf("cached fallback must not error: %v", err)
	}
	if !cached || balance != 77_000 {
		t.Fatalf("expected cached 77000, got %d cached=%v", balance, cached)
	}
}
