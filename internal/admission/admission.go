// Package admission screens inbound requests against a reputation service
// before they reach the public API: blocked sending countries and known Tor
// exit nodes are turned away at the edge.
package admission

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"
)

type Checker interface {
	IsBlockedCountry(ctx context.Context, ip string) (bool, error)
	IsTorExit(ctx context.Context, ip string) (bool, error)
}

type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

type lookupResponse struct {
	CountryBlocked bool `json:"country_blocked"`
	TorExit        bool `json:"tor_exit"`
}

func (c *Client) lookup(ctx context.Context, ip string) (*lookupResponse, error) {
	u := fmt.Sprintf("%s/v1/lookup?ip=%s", c.baseURL, url.QueryEscape(ip))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building lookup request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", ip, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reputation service returned %d", resp.StatusCode)
	}

	var lr lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, fmt.Errorf("decoding lookup response: %w", err)
	}

	return &lr, nil
}

func (c *Client) IsBlockedCountry(ctx context.Context, ip string) (bool, error) {
	lr, err := c.lookup(ctx, ip)
	if err != nil {
		return false, err
	}

	return lr.CountryBlocked, nil
}

func (c *Client) IsTorExit(ctx context.Context, ip string) (bool, error) {
	lr, err := c.lookup(ctx, ip)
	if err != nil {
		return false, err
	}

	return lr.TorExit, nil
}

// Middleware rejects requests from blocked countries and Tor exits. Lookup
// failures fail open: availability of the reputation service must not take
// the platform down.
func Middleware(checker Checker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)

			blocked, err := checker.IsBlockedCountry(r.Context(), ip)
			if err != nil {
				slog.Warn("country check failed, admitting", "ip", ip, "error", err)
			} else if blocked {
				http.Error(w, "service not available in your region", http.StatusForbidden)
				return
			}

			tor, err := checker.IsTorExit(r.Context(), ip)
			if err != nil {
				slog.Warn("tor exit check failed, admitting", "ip", ip, "error", err)
			} else if tor {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// First hop is the original client.
		for i := 0; i < len(fwd); i++ {
			if fwd[i] == ',' {
				return fwd[:i]
			}
		}

		return fwd
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}

// AllowAll admits every request; the dev-mode stand-in for the real service.
type AllowAll struct{}

func (AllowAll) IsBlockedCountry(context.Context, string) (bool, error) { return false, nil }

func (AllowAll) IsTorExit(context.Context, string) (bool, error) { return false, nil }
