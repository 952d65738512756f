package nwc

import "context"

// FakeSession is a scriptable Session for tests in other packages.
type FakeSession struct {
	Info        Info
	InfoErr     error
	BalanceMsat int64
	BalanceErr  error
	Txs         []Transaction
	ListErr     error

	NextInvoice Invoice
	InvoiceErr  error
	NextReceipt PaymentReceipt
	PayErr      error

	// PaidRequests records every payment request handed to PayInvoice.
	PaidRequests []string
	// InvoicedAmounts records every amount handed to MakeInvoice.
	InvoicedAmounts []int64
}

func (f *FakeSession) GetInfo(_ context.Context) (Info, error) {
	return f.Info, f.InfoErr
}

func (f *FakeSession) GetBalance(_ context.Context) (Balance, error) {
	return Balance{BalanceMsat: f.BalanceMsat}, f.BalanceErr
}

func (f *FakeSession) MakeInvoice(_ context.Context, amountMsat int64, _ string) (Invoice, error) {
	if f.InvoiceErr != nil {
		return Invoice{}, f.InvoiceErr
	}
	f.InvoicedAmounts = append(f.InvoicedAmounts, amountMsat)
	return f.NextInvoice, nil
}

func (f *FakeSession) PayInvoice(_ context.Context, paymentRequest string) (PaymentReceipt, error) {
	if f.PayErr != nil {
		return PaymentReceipt{}, f.PayErr
	}
	f.PaidRequests = append(f.PaidRequests, paymentRequest)
	return f.NextReceipt, nil
}

func (f *FakeSession) ListTransactions(_ context.Context, limit int) ([]Transaction, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	if limit > 0 && limit < len(f.Txs) {
		return f.Txs[:limit], nil
	}
	return f.Txs, nil
}

// FakeDialer returns a fixed session (or error) and records every descriptor
// it was asked to dial.
type FakeDialer struct {
	Session Session
	Err     error
	Dialed  []Descriptor
}

func (f *FakeDialer) Dial(_ context.Context, descriptor Descriptor) (Session, error) {
	f.Dialed = append(f.Dialed, descriptor)
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Session, nil
}
