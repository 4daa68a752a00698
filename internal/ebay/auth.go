package ebay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// TokenSource supplies a bearer token for API calls. The session layer
// that originally minted the refresh token lives outside this engine.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// OAuthConfig holds eBay OAuth application credentials plus the user's
// long-lived refresh token.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	Scopes       []string
	Sandbox      bool
}

// OAuthToken is eBay's token response.
type OAuthToken struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int       `json:"expires_in"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"-"`
}

// OAuthManager exchanges the refresh token for short-lived access
// tokens and caches them until shortly before expiry.
type OAuthManager struct {
	config     OAuthConfig
	httpClient *http.Client
	tokenURL   string

	mu    sync.Mutex
	token *OAuthToken
}

// NewOAuthManager creates an OAuth manager for the configured app.
func NewOAuthManager(config OAuthConfig) *OAuthManager {
	tokenURL := "https://api.ebay.com/identity/v1/oauth2/token"
	if config.Sandbox {
		tokenURL = "https://api.sandbox.ebay.com/identity/v1/oauth2/token"
	}
	return &OAuthManager{
		config:     config,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokenURL:   tokenURL,
	}
}

// Configured reports whether the manager has enough to mint tokens.
func (m *OAuthManager) Configured() bool {
	return m.config.ClientID != "" && m.config.ClientSecret != "" && m.config.RefreshToken != ""
}

// Token returns a valid access token, refreshing when the cached one
// is within five minutes of expiry.
func (m *OAuthManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != nil && time.Now().Add(5*time.Minute).Before(m.token.ExpiresAt) {
		return m.token.AccessToken, nil
	}

	token, err := m.refresh(ctx)
	if err != nil {
		return "", err
	}
	m.token = token
	return token.AccessToken, nil
}

func (m *OAuthManager) refresh(ctx context.Context) (*OAuthToken, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", m.config.RefreshToken)
	if len(m.config.Scopes) > 0 {
		data.Set("scope", strings.Join(m.config.Scopes, " "))
	}

	req, err := http.NewRequestWithContext(ctx, "POST", m.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	auth := base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%s:%s", m.config.ClientID, m.config.ClientSecret)))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("token refresh failed: %s", string(body))
	}

	var token OAuthToken
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("parsing token response: %w", err)
	}
	token.ExpiresAt = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)

	return &token, nil
}
