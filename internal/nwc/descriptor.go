package nwc

import (
	"fmt"
	"net/url"
	"strings"
)

// Scheme is the URI scheme of a Nostr Wallet Connect descriptor.
const Scheme = "nostr+walletconnect"

// Descriptor is the parsed form of an NWC connection URI:
// nostr+walletconnect://<wallet-pubkey>?relay=<url>&secret=<hex>.
type Descriptor struct {
	Raw          string
	WalletPubkey string
	Relay        string
	Secret       string
}

// ParseDescriptor validates and normalizes a connection URI. The wallet
// pubkey is lowercased so that descriptors differing only in case resolve to
// the same account identity.
func ParseDescriptor(raw string) (Descriptor, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Descriptor{}, fmt.Errorf("parse descriptor: %w", err)
	}
	if u.Scheme != Scheme {
		return Descriptor{}, fmt.Errorf("descriptor scheme must be %s", Scheme)
	}

	pubkey := strings.ToLower(u.Host)
	if err := validatePubkey(pubkey); err != nil {
		return Descriptor{}, err
	}

	q := u.Query()
	return Descriptor{
		Raw:          raw,
		WalletPubkey: pubkey,
		Relay:        q.Get("relay"),
		Secret:       q.Get("secret"),
	}, nil
}

// Identity derives the account identity scoping all sub-wallet persistence.
// It is a pure function of the descriptor, independent of network state.
func (d Descriptor) Identity() string {
	return d.WalletPubkey
}

func validatePubkey(pubkey string) error {
	if len(pubkey) != 64 {
		return fmt.Errorf("wallet pubkey must be 64 hex characters, got %d", len(pubkey))
	}
	for _, r := range pubkey {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return fmt.Errorf("wallet pubkey must be hex")
		}
	}
	return nil
}
