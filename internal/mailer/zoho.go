// internal/mailer/zoho.go
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/lostandunfounds/newsletter-backend/internal/config"
)

// ZohoClient sends mail through the Zoho Mail API using the OAuth
// refresh-token flow. The access token and account ID are cached and
// refreshed lazily; the client is safe for concurrent use.
type ZohoClient struct {
	cfg  config.ZohoConfig
	http *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
	accountID   string
	fromEmail   string
}

func NewZohoClient(cfg config.ZohoConfig) *ZohoClient {
	return &ZohoClient{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

var _ Transport = (*ZohoClient)(nil)

type zohoTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type zohoAccountsResponse struct {
	Data []struct {
		AccountID    string `json:"accountId"`
		EmailAddress string `json:"emailAddress"`
		Email        string `json:"email"`
	} `json:"data"`
}

type zohoErrorResponse struct {
	Data struct {
		MoreInfo string `json:"moreInfo"`
	} `json:"data"`
	Status struct {
		Description string `json:"description"`
	} `json:"status"`
}

// Send makes a single delivery attempt for one recipient.
func (c *ZohoClient) Send(ctx context.Context, msg OutgoingEmail) SendResult {
	token, accountID, fromEmail, err := c.session(ctx)
	if err != nil {
		return SendResult{ErrorKind: ErrorKindAuth, ErrorDetail: err.Error()}
	}

	payload, _ := json.Marshal(map[string]string{
		"fromAddress": fromEmail,
		"toAddress":   msg.To,
		"subject":     msg.Subject,
		"content":     msg.HTMLBody,
		"mailFormat":  "html",
	})

	endpoint := fmt.Sprintf("%s/api/accounts/%s/messages", c.cfg.MailBaseURL, accountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return SendResult{ErrorKind: ErrorKindNetwork, ErrorDetail: err.Error()}
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return SendResult{ErrorKind: ErrorKindNetwork, ErrorDetail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return SendResult{OK: true, MessageID: resp.Header.Get("X-Zm-Message-Id")}
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	kind := ErrorKindProvider
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		kind = ErrorKindRateLimited
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		kind = ErrorKindAuth
	}
	return SendResult{ErrorKind: kind, ErrorDetail: parseZohoError(resp.StatusCode, body)}
}

// parseZohoError extracts the useful part of a Zoho error body.
func parseZohoError(status int, body []byte) string {
	var e zohoErrorResponse
	if err := json.Unmarshal(body, &e); err == nil {
		if e.Data.MoreInfo != "" {
			return e.Data.MoreInfo
		}
		if e.Status.Description != "" {
			return e.Status.Description
		}
	}
	return fmt.Sprintf("send failed with status %d: %s", status, strings.TrimSpace(string(body)))
}

// session returns a valid access token plus the resolved account ID and
// from address, refreshing them if needed.
func (c *ZohoClient) session(ctx context.Context) (token, accountID, fromEmail string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken == "" || time.Now().After(c.tokenExpiry) {
		if err := c.refreshToken(ctx); err != nil {
			return "", "", "", err
		}
	}
	if c.accountID == "" {
		if err := c.resolveAccount(ctx); err != nil {
			return "", "", "", err
		}
	}
	return c.accessToken, c.accountID, c.fromEmail, nil
}

func (c *ZohoClient) refreshToken(ctx context.Context) error {
	if !c.cfg.Configured() {
		return fmt.Errorf("zoho credentials not configured")
	}

	form := url.Values{
		"refresh_token": {c.cfg.RefreshToken},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"grant_type":    {"refresh_token"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AccountsURL+"/oauth/v2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("refresh zoho token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("refresh zoho token: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tok zohoTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return fmt.Errorf("decode token response: %w", err)
	}
	c.accessToken = tok.AccessToken
	// Refresh a minute early so an in-flight pass never trips over expiry.
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return nil
}

// resolveAccount looks up the Zoho account ID and canonical from address.
// Falls back to the local part of the configured address when the lookup
// yields nothing usable.
func (c *ZohoClient) resolveAccount(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.MailBaseURL+"/api/accounts", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+c.accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch zoho accounts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var accounts zohoAccountsResponse
		if err := json.NewDecoder(resp.Body).Decode(&accounts); err == nil && len(accounts.Data) > 0 {
			acct := accounts.Data[0]
			email := acct.EmailAddress
			if email == "" {
				email = acct.Email
			}
			if email == "" || !strings.Contains(email, "@") {
				email = c.cfg.FromEmail
			}
			if acct.AccountID != "" {
				c.accountID = acct.AccountID
				c.fromEmail = email
				return nil
			}
		}
	}

	c.accountID = strings.SplitN(c.cfg.FromEmail, "@", 2)[0]
	c.fromEmail = c.cfg.FromEmail
	return nil
}
