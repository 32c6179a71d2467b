package orcid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrAuthorizationFailed is returned for any provider-side failure during the
// code exchange. Callers surface it as "could not authorize" and send the
// applicant back to the registration form; the flow never retries.
var ErrAuthorizationFailed = errors.New("orcid authorization failed")

// Config captures the provider endpoints and the registered client identity.
type Config struct {
	BaseURL      string        `env:"ORCID_URL" envDefault:"https://orcid.org"`
	PublicAPIURL string        `env:"ORCID_PUBLIC_API_URL" envDefault:"https://pub.orcid.org"`
	ClientID     string        `env:"ORCID_CLIENT_ID"`
	ClientSecret string        `env:"ORCID_CLIENT_SECRET"`
	RedirectURI  string        `env:"ORCID_REDIRECT_URI"`
	Timeout      time.Duration `env:"ORCID_TIMEOUT" envDefault:"10s"`
}

// Client is a thin adapter over the ORCID public API. Its data reaches the
// registration flow only as pre-fill suggestions; the applicant's own
// submission stays authoritative.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// New builds a Client with a single-shot request timeout and no retries.
func New(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// AuthorizeURL returns the provider URL the browser is redirected to for consent.
func (c *Client) AuthorizeURL() string {
	q := url.Values{}
	q.Set("client_id", c.cfg.ClientID)
	q.Set("response_type", "code")
	q.Set("scope", "/authenticate")
	q.Set("redirect_uri", c.cfg.RedirectURI)
	return fmt.Sprintf("%s/oauth/authorize?%s", strings.TrimRight(c.cfg.BaseURL, "/"), q.Encode())
}

// Token is the result of a successful one-time-code exchange.
type Token struct {
	ORCID       string
	AccessToken string
}

type tokenResponse struct {
	ORCID            string `json:"orcid"`
	AccessToken      string `json:"access_token"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ExchangeCode trades the one-time code the provider issued for a token.
// Any error response is logged and collapsed into ErrAuthorizationFailed.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.cfg.RedirectURI)

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/oauth/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("orcid token exchange request failed", zap.Error(err))
		return nil, ErrAuthorizationFailed
	}
	defer resp.Body.Close()

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.logger.Error("orcid token exchange decode failed", zap.Error(err))
		return nil, ErrAuthorizationFailed
	}

	if body.Error != "" {
		c.logger.Error("orcid token exchange rejected",
			zap.String("error", body.Error),
			zap.String("error_description", body.ErrorDescription),
		)
		return nil, ErrAuthorizationFailed
	}

	if body.ORCID == "" || body.AccessToken == "" {
		c.logger.Error("orcid token exchange returned incomplete response")
		return nil, ErrAuthorizationFailed
	}

	return &Token{ORCID: body.ORCID, AccessToken: body.AccessToken}, nil
}

// Profile is the public subset of an ORCID record used to pre-fill the
// registration form. Email may be empty when the record publishes none.
type Profile struct {
	ORCID string
	Name  string
	Email string
}

type personResponse struct {
	Name struct {
		GivenNames struct {
			Value string `json:"value"`
		} `json:"given-names"`
		FamilyName struct {
			Value string `json:"value"`
		} `json:"family-name"`
	} `json:"name"`
	Emails struct {
		Email []emailEntry `json:"email"`
	} `json:"emails"`
}

type emailEntry struct {
	Email   string `json:"email"`
	Primary bool   `json:"primary"`
}

// FetchPerson calls the public person endpoint and returns the record's
// display name and primary-or-first published email.
func (c *Client) FetchPerson(ctx context.Context, orcidID string) (Profile, error) {
	endpoint := fmt.Sprintf("%s/v3.0/%s/person", strings.TrimRight(c.cfg.PublicAPIURL, "/"), url.PathEscape(orcidID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("build person request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("fetch person: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("fetch person: unexpected status %d", resp.StatusCode)
	}

	var body personResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Profile{}, fmt.Errorf("decode person response: %w", err)
	}

	name := strings.TrimSpace(body.Name.GivenNames.Value + " " + body.Name.FamilyName.Value)

	return Profile{
		ORCID: orcidID,
		Name:  name,
		Email: primaryOrFirstEmail(body.Emails.Email),
	}, nil
}

// primaryOrFirstEmail picks the entry flagged primary, else the first entry,
// else the empty string.
func primaryOrFirstEmail(entries []emailEntry) string {
	for _, entry := range entries {
		if entry.Primary {
			return entry.Email
		}
	}
	if len(entries) > 0 {
		return entries[0].Email
	}
	return ""
}
