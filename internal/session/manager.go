package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/satsplit/satsplit/internal/nwc"
	"github.com/satsplit/satsplit/internal/secstore"
	"github.com/satsplit/satsplit/internal/subwallet"
)

// DescriptorStorageKey is where the last-connected descriptor persists.
// Absent while disconnected.
const DescriptorStorageKey = "master_connection_descriptor"

// Manager owns the single active remote wallet session and the account
// identity derived from its connection descriptor. Switching accounts is an
// explicit disconnect/connect sequence; there are no concurrent sessions.
type Manager struct {
	mu     sync.Mutex
	store  secstore.Store
	dialer nwc.Dialer
	ledger *subwallet.Ledger
	logger *slog.Logger

	descriptor nwc.Descriptor
	sess       nwc.Session
	connected  bool
}

// NewManager wires the session manager to its collaborators.
func NewManager(store secstore.Store, dialer nwc.Dialer, ledger *subwallet.Ledger, logger *slog.Logger) *Manager {
	return &Manager{store: store, dialer: dialer, ledger: ledger, logger: logger}
}

// Connect establishes a session from the descriptor, validates reachability
// with a get_info probe, persists the descriptor and loads the derived
// account's sub-wallets. A malformed descriptor fails here rather than
// producing an inconsistent identity. On failure the previous session state
// is left untouched.
func (m *Manager) Connect(ctx context.Context, rawDescriptor string) (string, error) {
	d, err := nwc.ParseDescriptor(rawDescriptor)
	if err != nil {
		return "", fmt.Errorf("%w: %v", nwc.ErrConnection, err)
	}

	sess, err := m.dialer.Dial(ctx, d)
	if err != nil {
		return "", fmt.Errorf("%w: dial: %v", nwc.ErrConnection, err)
	}

	info, err := sess.GetInfo(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: get_info: %v", nwc.ErrConnection, err)
	}
	if info.Alias == "" && info.Network == "" && len(info.Methods) == 0 {
		return "", fmt.Errorf("%w: wallet returned empty info", nwc.ErrConnection)
	}

	if err := m.store.Save(ctx, DescriptorStorageKey, []byte(rawDescriptor)); err != nil {
		return "", fmt.Errorf("persist descriptor: %w", err)
	}

	identity := d.Identity()
	if err := m.ledger.LoadAccount(ctx, identity, rawDescriptor); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.descriptor = d
	m.sess = sess
	m.connected = true
	m.mu.Unlock()

	m.logger.Info("wallet connected", "account", identity, "alias", info.Alias)
	return identity, nil
}

// Disconnect discards the in-memory session and identity and clears only the
// persisted descriptor; sub-wallet data is retained under its account key so
// reconnecting restores the ledger.
func (m *Manager) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	m.descriptor = nwc.Descriptor{}
	m.sess = nil
	m.connected = false
	m.mu.Unlock()

	m.ledger.Reset()

	if err := m.store.Delete(ctx, DescriptorStorageKey); err != nil {
		return fmt.Errorf("clear descriptor: %w", err)
	}
	m.logger.Info("wallet disconnected")
	return nil
}

// Restore reconnects from the persisted descriptor, if any. Returns false
// when no descriptor is stored.
func (m *Manager) Restore(ctx context.Context) (bool, error) {
	raw, err := m.store.Load(ctx, DescriptorStorageKey)
	if err != nil {
		if errors.Is(err, secstore.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load descriptor: %w", err)
	}
	if _, err := m.Connect(ctx, string(raw)); err != nil {
		return false, err
	}
	return true, nil
}

// IsConnected reports whether both the descriptor and a live session handle
// are present.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected && m.sess != nil
}

// Identity returns the active account identity, empty when disconnected.
func (m *Manager) Identity() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ""
	}
	return m.descriptor.Identity()
}

// MasterDescriptor returns the active connection descriptor.
func (m *Manager) MasterDescriptor() nwc.Descriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.descriptor
}

// Session returns the live remote session or ErrNotConnected.
func (m *Manager) Session() (nwc.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected || m.sess == nil {
		return nil, subwallet.ErrNotConnected
	}
	return m.sess, nil
}
