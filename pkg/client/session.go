package client

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

	"go.uber.org/zap"
)

// Profile is the caller's identity as reported by the auth endpoints.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Session holds the bearer token and issues authenticated requests. It is
// the single owner of auth state: login stores the token, logout and any
// 401 response clear it.
type Session struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
	profile   *Profile
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) SessionOption {
	return func(s *Session) { s.httpClient = hc }
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// WithToken resumes a previously persisted token.
func WithToken(token string) SessionOption {
	return func(s *Session) { s.token = token }
}

// NewSession builds a session against the given API base URL.
func NewSession(baseURL string, opts ...SessionOption) *Session {
	s := &Session{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type authResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Profile   Profile   `json:"profile"`
}

// Login authenticates a brand or creator account and stores the token.
func (s *Session) Login(ctx context.Context, email, password string) (*Profile, error) {
	return s.login(ctx, "/api/auth/login", email, password)
}

// AgentLogin authenticates a support agent and stores the token.
func (s *Session) AgentLogin(ctx context.Context, email, password string) (*Profile, error) {
	return s.login(ctx, "/api/auth/agent-login", email, password)
}

// Register creates a new account and stores the issued token.
func (s *Session) Register(ctx context.Context, name, email, password, role string) (*Profile, error) {
	payload := map[string]string{"name": name, "email": email, "password": password, "role": role}
	var resp authResponse
	if err := s.Do(ctx, http.MethodPost, "/api/auth/register", nil, payload, &resp); err != nil {
		return nil, err
	}
	s.store(resp)
	return s.Profile(), nil
}

func (s *Session) login(ctx context.Context, path, email, password string) (*Profile, error) {
	payload := map[string]string{"email": email, "password": password}
	var resp authResponse
	if err := s.Do(ctx, http.MethodPost, path, nil, payload, &resp); err != nil {
		return nil, err
	}
	s.store(resp)
	return s.Profile(), nil
}

func (s *Session) store(resp authResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = resp.Token
	s.expiresAt = resp.ExpiresAt
	profile := resp.Profile
	s.profile = &profile
}

// Logout clears the stored token and profile.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expiresAt = time.Time{}
	s.profile = nil
}

// Token returns the current bearer token, empty when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authenticated reports whether a token is held.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Profile returns a copy of the logged-in identity, nil when logged out.
func (s *Session) Profile() *Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return nil
	}
	profile := *s.profile
	return &profile
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

// Do issues one authenticated request and decodes the data envelope into
// out. A 401 on a request that carried a bearer token clears the session and
// returns ErrSessionExpired; a 401 without one (a failed login) surfaces as a
// regular APIError.
func (s *Session) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	endpoint := s.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	authenticated := false
	if token := s.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
		authenticated = true
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized && authenticated {
		s.Logout()
		s.logger.Warn("session expired, token cleared", zap.String("path", path))
		return ErrSessionExpired
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			return fmt.Errorf("decode response (%d): %w", resp.StatusCode, err)
		}
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Code: "UNKNOWN", Message: http.StatusText(resp.StatusCode)}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
	}
	return nil
}
