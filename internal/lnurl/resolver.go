package lnurl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ErrResolution indicates a Lightning Address could not be resolved into a
// payment request.
var ErrResolution = errors.New("lightning address resolution failed")

// CallbackMetadata describes the LNURL-pay endpoint behind an address.
type CallbackMetadata struct {
	Callback    string `json:"callback"`
	MinSendable int64  `json:"minSendable"`
	MaxSendable int64  `json:"maxSendable"`
	Metadata    string `json:"metadata"`
}

// Resolver turns human-readable payment addresses into BOLT11 payment
// requests.
type Resolver interface {
	Resolve(ctx context.Context, address string) (CallbackMetadata, error)
	FetchPaymentRequest(ctx context.Context, callback string, amountMsat int64) (string, error)
}

// HTTPResolver implements the LNURL-pay flow over HTTPS:
// user@domain -> GET https://domain/.well-known/lnurlp/user -> callback ->
// GET callback?amount=<msat> -> pr.
type HTTPResolver struct {
	client *http.Client
	scheme string
}

// NewHTTPResolver builds a resolver over the provided client. A nil client
// falls back to http.DefaultClient; timeouts are the caller's concern.
func NewHTTPResolver(client *http.Client) *HTTPResolver {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPResolver{client: client, scheme: "https"}
}

type lnurlPayload struct {
	Status      string `json:"status"`
	Reason      string `json:"reason"`
	Callback    string `json:"callback"`
	MinSendable int64  `json:"minSendable"`
	MaxSendable int64  `json:"maxSendable"`
	Metadata    string `json:"metadata"`
	PR          string `json:"pr"`
}

// Resolve fetches the LNURL-pay metadata for a user@domain address.
func (r *HTTPResolver) Resolve(ctx context.Context, address string) (CallbackMetadata, error) {
	user, domain, ok := strings.Cut(address, "@")
	if !ok || user == "" || domain == "" {
		return CallbackMetadata{}, fmt.Errorf("%w: invalid address %q", ErrResolution, address)
	}

	endpoint := fmt.Sprintf("%s://%s/.well-known/lnurlp/%s", r.scheme, domain, url.PathEscape(user))
	payload, err := r.fetch(ctx, endpoint)
	if err != nil {
		return CallbackMetadata{}, err
	}
	if payload.Callback == "" {
		return CallbackMetadata{}, fmt.Errorf("%w: response without callback", ErrResolution)
	}

	return CallbackMetadata{
		Callback:    payload.Callback,
		MinSendable: payload.MinSendable,
		MaxSendable: payload.MaxSendable,
		Metadata:    payload.Metadata,
	}, nil
}

// FetchPaymentRequest asks the LNURL-pay callback for a BOLT11 invoice over
// the given amount.
func (r *HTTPResolver) FetchPaymentRequest(ctx context.Context, callback string, amountMsat int64) (string, error) {
	u, err := url.Parse(callback)
	if err != nil {
		return "", fmt.Errorf("%w: invalid callback: %v", ErrResolution, err)
	}
	q := u.Query()
	q.Set("amount", strconv.FormatInt(amountMsat, 10))
	u.RawQuery = q.Encode()

	payload, err := r.fetch(ctx, u.String())
	if err != nil {
		return "", err
	}
	if payload.PR == "" {
		return "", fmt.Errorf("%w: response without payment request", ErrResolution)
	}
	return payload.PR, nil
}

func (r *HTTPResolver) fetch(ctx context.Context, endpoint string) (lnurlPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return lnurlPayload{}, fmt.Errorf("%w: %v", ErrResolution, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return lnurlPayload{}, fmt.Errorf("%w: %v", ErrResolution, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return lnurlPayload{}, fmt.Errorf("%w: unexpected status %d", ErrResolution, resp.StatusCode)
	}

	var payload lnurlPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return lnurlPayload{}, fmt.Errorf("%w: decode response: %v", ErrResolution, err)
	}
	if strings.EqualFold(payload.Status, "ERROR") {
		reason := payload.Reason
		if reason == "" {
			reason = "unspecified"
		}
		return lnurlPayload{}, fmt.Errorf("%w: %s", ErrResolution, reason)
	}
	return payload, nil
}
