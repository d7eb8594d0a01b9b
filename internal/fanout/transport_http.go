package fanout

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer = "teamspace"
	tokenTTL    = time.Minute
)

// HTTPTransport POSTs the envelope to Endpoint. A "{org}" placeholder in the
// endpoint is replaced by the organization slug. When a signing secret is
// set each request carries a short-lived HS256 bearer whose subject is the
// organization.
type HTTPTransport struct {
	endpoint string
	secret   []byte
	client   *resty.Client
	now      func() time.Time
}

func NewHTTPTransport(endpoint, signingSecret string, timeout time.Duration) *HTTPTransport {
	client := resty.New()
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &HTTPTransport{
		endpoint: endpoint,
		secret:   []byte(signingSecret),
		client:   client,
		now:      time.Now,
	}
}

func (t *HTTPTransport) url(orgSlug string) string {
	return strings.ReplaceAll(t.endpoint, "{org}", url.PathEscape(orgSlug))
}

func (t *HTTPTransport) token(orgSlug string) (string, error) {
	now := t.now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   orgSlug,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t *HTTPTransport) Deliver(ctx context.Context, orgSlug string, payload []byte) error {
	req := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload)

	if len(t.secret) > 0 {
		token, err := t.token(orgSlug)
		if err != nil {
			return fmt.Errorf("sign fanout token: %w", err)
		}
		req.SetAuthToken(token)
	}

	resp, err := req.Post(t.url(orgSlug))
	if err != nil {
		return fmt.Errorf("post fanout event: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("fanout endpoint returned %d", resp.StatusCode())
	}
	return nil
}

func (t *HTTPTransport) Close() error {
	return nil
}
