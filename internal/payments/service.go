package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/satsplit/satsplit/internal/lnurl"
	"github.com/satsplit/satsplit/internal/notification"
	"github.com/satsplit/satsplit/internal/session"
	"github.com/satsplit/satsplit/internal/subwallet"
)

// ErrInsufficientFunds occurs when a sub-wallet's displayable balance cannot
// cover the requested payment amount.
var ErrInsufficientFunds = errors.New("insufficient sub-wallet funds")

// Service orchestrates payments and invoices on behalf of sub-wallets: the
// remote session moves the real funds, the ledger records provisional deltas
// only after the remote call confirms.
type Service struct {
	manager  *session.Manager
	ledger   *subwallet.Ledger
	resolver lnurl.Resolver
	notifier notification.Notifier
}

// NewService constructs a payment service.
func NewService(manager *session.Manager, ledger *subwallet.Ledger, resolver lnurl.Resolver, notifier notification.Notifier) *Service {
	return &Service{manager: manager, ledger: ledger, resolver: resolver, notifier: notifier}
}

// SendInput captures an outgoing payment request. Exactly one of Invoice or
// Address must be set. AmountMsat is required for addresses; for raw invoices
// it may be zero when the amount is unknown to the caller, in which case the
// provisional spend records zero and the next reconciliation pass corrects it
// from the remote history.
type SendInput struct {
	WalletID   string
	Invoice    string
	Address    string
	AmountMsat int64
}

// SendResult describes a completed outgoing payment.
type SendResult struct {
	RemoteID       string
	PaymentRequest string
	AmountMsat     int64
	CompletedAt    time.Time
}

// Send pays an invoice or Lightning Address from the given sub-wallet. A
// remote failure leaves the ledger's totals untouched.
func (s *Service) Send(ctx context.Context, input SendInput) (SendResult, error) {
	if (input.Invoice == "") == (input.Address == "") {
		return SendResult{}, fmt.Errorf("exactly one of invoice or address is required")
	}
	if input.Address != "" && input.AmountMsat <= 0 {
		return SendResult{}, fmt.Errorf("amount is required when paying an address")
	}

	w, ok := s.ledger.Get(input.WalletID)
	if !ok {
		return SendResult{}, subwallet.ErrNotFound
	}

	sess, err := s.manager.Session()
	if err != nil {
		return SendResult{}, err
	}

	if input.AmountMsat > 0 && w.BalanceMsat() < input.AmountMsat {
		return SendResult{}, ErrInsufficientFunds
	}

	paymentRequest := input.Invoice
	if input.Address != "" {
		meta, err := s.resolver.Resolve(ctx, input.Address)
		if err != nil {
			return SendResult{}, err
		}
		if meta.MinSendable > 0 && input.AmountMsat < meta.MinSendable {
			return SendResult{}, fmt.Errorf("%w: amount below minimum %d msat", lnurl.ErrResolution, meta.MinSendable)
		}
		if meta.MaxSendable > 0 && input.AmountMsat > meta.MaxSendable {
			return SendResult{}, fmt.Errorf("%w: amount above maximum %d msat", lnurl.ErrResolution, meta.MaxSendable)
		}
		paymentRequest, err = s.resolver.FetchPaymentRequest(ctx, meta.Callback, input.AmountMsat)
		if err != nil {
			return SendResult{}, err
		}
	}

	receipt, err := sess.PayInvoice(ctx, paymentRequest)
	if err != nil {
		return SendResult{}, err
	}

	// Confirmed success: apply the provisional spend. Reconciliation owns
	// the authoritative totals.
	s.ledger.RecordDelta(ctx, input.WalletID, input.AmountMsat, subwallet.DeltaSpent, receipt.RemoteID)

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:     notification.KindPaymentSent,
			WalletID: input.WalletID,
			Body:     fmt.Sprintf("Sent %d msat from %s", input.AmountMsat, w.Name),
		})
	}

	return SendResult{
		RemoteID:       receipt.RemoteID,
		PaymentRequest: paymentRequest,
		AmountMsat:     input.AmountMsat,
		CompletedAt:    time.Now().UTC(),
	}, nil
}

// ReceiveInput captures an invoice request for a sub-wallet.
type ReceiveInput struct {
	WalletID    string
	AmountMsat  int64
	Description string
}

// ReceiveResult carries the issued invoice.
type ReceiveResult struct {
	PaymentRequest string
	RemoteID       string
}

// Receive issues an invoice via the remote session and tracks its remote ID
// against the sub-wallet. No amount is credited here: the settlement is
// attributed by reconciliation once the transaction appears in the history.
func (s *Service) Receive(ctx context.Context, input ReceiveInput) (ReceiveResult, error) {
	if input.AmountMsat <= 0 {
		return ReceiveResult{}, fmt.Errorf("amount must be positive")
	}

	if _, ok := s.ledger.Get(input.WalletID); !ok {
		return ReceiveResult{}, subwallet.ErrNotFound
	}

	sess, err := s.manager.Session()
	if err != nil {
		return ReceiveResult{}, err
	}

	invoice, err := sess.MakeInvoice(ctx, input.AmountMsat, input.Description)
	if err != nil {
		return ReceiveResult{}, err
	}

	if invoice.RemoteID != "" {
		if err := s.ledger.TrackInvoice(ctx, input.WalletID, invoice.RemoteID); err != nil && !errors.Is(err, subwallet.ErrNotFound) {
			return ReceiveResult{}, err
		}
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:     notification.KindInvoiceIssued,
			WalletID: input.WalletID,
			Body:     fmt.Sprintf("Invoice for %d msat", input.AmountMsat),
		})
	}

	return ReceiveResult{PaymentRequest: invoice.PaymentRequest, RemoteID: invoice.RemoteID}, nil
}
