package social

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HandoffSecretHeader carries the optional shared secret on hand-off calls
const HandoffSecretHeader = "X-Handoff-Secret"

// DefaultOutboundTimeout bounds every provider and hand-off call
const DefaultOutboundTimeout = 10 * time.Second

// Handoff asks the account service to finish a provider login with the
// provider access token and the original authorization code.
type Handoff interface {
	Finish(ctx context.Context, provider, accessToken, code string) error
}

// HTTPHandoff posts to {BaseURL}/users/{provider}/login/finish/
type HTTPHandoff struct {
	BaseURL string
	Secret  string
	Timeout time.Duration
	Client  *http.Client
}

func NewHTTPHandoff(baseURL, secret string, timeout time.Duration) *HTTPHandoff {
	if timeout <= 0 {
		timeout = DefaultOutboundTimeout
	}
	return &HTTPHandoff{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Secret:  secret,
		Timeout: timeout,
		Client:  &http.Client{Timeout: timeout},
	}
}

// FinishURL returns the hand-off endpoint for provider
func (h *HTTPHandoff) FinishURL(provider string) string {
	return strings.TrimRight(h.BaseURL, "/") + "/users/" + url.PathEscape(provider) + "/login/finish/"
}

func (h *HTTPHandoff) Finish(ctx context.Context, provider, accessToken, code string) error {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = DefaultOutboundTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	form := url.Values{
		"access_token": {accessToken},
		"code":         {code},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.FinishURL(provider), strings.NewReader(form.Encode()))
	if err != nil {
		return NewProviderError(provider, OperationHandoff, 0, "invalid_request", "", err, nil)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if h.Secret != "" {
		req.Header.Set(HandoffSecretHeader, h.Secret)
	}

	client := h.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return NewProviderError(provider, OperationHandoff, 0, "", "", err, nil)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode != http.StatusOK {
		return NewProviderError(provider, OperationHandoff, resp.StatusCode, "", "", nil, nil)
	}
	return nil
}
