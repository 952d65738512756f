package notification

import (
	"context"
	"log/slog"
)

const (
	// KindPaymentSent indicates an outgoing payment completed.
	KindPaymentSent = "payment_sent"
	// KindInvoiceIssued indicates an invoice was created for a sub-wallet.
	KindInvoiceIssued = "invoice_issued"
)

// Message describes a wallet event payload.
type Message struct {
	Kind     string
	WalletID string
	Body     string
}

// Notifier delivers wallet events to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes events to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "sub_wallet", message.WalletID, "body", message.Body)
	return nil
}
