// Package app wires the Kick OAuth flow, subscription lifecycle, and
// webhook dispatch behind a single service with explicit state instead
// of process-wide globals.
package app

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/AnthonyMosley/OpenStreamKit/internal/kick"
	"github.com/AnthonyMosley/OpenStreamKit/internal/metrics"
)

var (
	// ErrUnknownState means the callback carried a state that was never
	// issued, already consumed, or expired. The user restarts login.
	ErrUnknownState = errors.New("unknown or expired login state")
	// ErrNoToken means no access token is cached, so privileged calls
	// cannot be attempted.
	ErrNoToken = errors.New("no access token available")
	// ErrMissingAccessToken means the upstream token response lacked
	// the one contractually required key.
	ErrMissingAccessToken = errors.New("token response missing access_token")
)

// OAuthClient is the subset of kick.OAuthClient the service uses.
type OAuthClient interface {
	AuthorizeURL(state, challenge string) string
	ExchangeCode(ctx context.Context, code, verifier string) (map[string]any, error)
}

// Subscriber registers event subscriptions with the upstream platform.
type Subscriber interface {
	Subscribe(ctx context.Context, accessToken string) (*kick.SubscriptionResult, error)
}

// TokenStore persists token and subscription state across restarts.
type TokenStore interface {
	LoadToken() (map[string]any, error)
	SaveToken(token map[string]any) error
	SaveSubscriptionResult(result *kick.SubscriptionResult) error
}

// LoginOutcome describes what happened during a callback: the exchange
// succeeded (or CompleteLogin returned an error), and the subscription
// attempt either worked, failed upstream, or failed at transport level.
type LoginOutcome struct {
	TokenKeys    []string
	Subscription *kick.SubscriptionResult // nil when the request never completed
}

// SubscriptionOK reports whether the subscription attempt fully
// succeeded. False means partial success: the token is valid and
// cached, but the caller should retry via POST /subscribe.
func (o *LoginOutcome) SubscriptionOK() bool {
	return o.Subscription != nil && o.Subscription.OK()
}

type Service struct {
	logins *kick.LoginStateStore
	oauth  OAuthClient
	subs   Subscriber
	store  TokenStore
	events *kick.EventHandler
	logger *slog.Logger

	mu    sync.RWMutex
	token map[string]any
}

// NewService constructs the service and loads any persisted token into
// the in-memory cache. A corrupt token file surfaces here and must be
// treated as fatal by the caller; silently starting without the token
// would mask real corruption.
func NewService(logins *kick.LoginStateStore, oauth OAuthClient, subs Subscriber, store TokenStore, events *kick.EventHandler, logger *slog.Logger) (*Service, error) {
	s := &Service{
		logins: logins,
		oauth:  oauth,
		subs:   subs,
		store:  store,
		events: events,
		logger: logger,
	}

	token, err := store.LoadToken()
	if err != nil {
		return nil, err
	}
	if token != nil {
		if access, _ := token["access_token"].(string); access != "" {
			s.token = token
			logger.Info("restored access token from disk")
		}
	}

	return s, nil
}

// StartLogin begins a new OAuth login attempt: generates a PKCE pair
// and state, records the attempt, and returns the authorize URL the
// user must open in a browser.
func (s *Service) StartLogin() (string, error) {
	verifier, challenge, err := kick.GeneratePKCE()
	if err != nil {
		return "", err
	}
	state, err := kick.GenerateState()
	if err != nil {
		return "", err
	}

	s.logins.Put(state, verifier)
	metrics.LoginsStartedTotal.Inc()
	s.logger.Debug("login attempt started", "state", state)

	return s.oauth.AuthorizeURL(state, challenge), nil
}

// CompleteLogin handles the OAuth callback. An unknown state fails
// before any network call. Token exchange failure is an error; a
// subscription failure after a successful exchange is not, since the
// token is usable and the caller can retry subscribing manually.
func (s *Service) CompleteLogin(ctx context.Context, code, state string) (*LoginOutcome, error) {
	verifier, ok := s.logins.Pop(state)
	if !ok {
		metrics.LoginsCompletedTotal.WithLabelValues("failed").Inc()
		return nil, ErrUnknownState
	}

	token, err := s.oauth.ExchangeCode(ctx, code, verifier)
	if err != nil {
		metrics.LoginsCompletedTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	access, _ := token["access_token"].(string)
	if access == "" {
		metrics.LoginsCompletedTotal.WithLabelValues("failed").Inc()
		return nil, ErrMissingAccessToken
	}

	// The in-memory cache is the source of truth; disk is a durability
	// backstop, so a failed write downgrades to a log line.
	if err := s.store.SaveToken(token); err != nil {
		s.logger.Error("failed to persist token", "error", err)
	}
	s.setToken(token)

	outcome := &LoginOutcome{TokenKeys: sortedKeys(token)}

	result, err := s.subs.Subscribe(ctx, access)
	if err != nil {
		s.logger.Error("subscription request failed", "error", err)
		metrics.LoginsCompletedTotal.WithLabelValues("partial").Inc()
		return outcome, nil
	}
	outcome.Subscription = result

	if err := s.store.SaveSubscriptionResult(result); err != nil {
		s.logger.Error("failed to persist subscription result", "error", err)
	}

	if result.OK() {
		s.logger.Info("event subscriptions registered", "status", result.StatusCode)
		metrics.LoginsCompletedTotal.WithLabelValues("success").Inc()
	} else {
		s.logger.Warn("event subscription rejected by upstream", "status", result.StatusCode, "body", result.Text)
		metrics.LoginsCompletedTotal.WithLabelValues("partial").Inc()
	}

	return outcome, nil
}

// Subscribe manually (re)registers event subscriptions with the cached
// token. ErrNoToken when no login has completed yet.
func (s *Service) Subscribe(ctx context.Context) (*kick.SubscriptionResult, error) {
	access := s.AccessToken()
	if access == "" {
		return nil, ErrNoToken
	}

	result, err := s.subs.Subscribe(ctx, access)
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveSubscriptionResult(result); err != nil {
		s.logger.Error("failed to persist subscription result", "error", err)
	}
	s.logger.Info("subscription attempt", "status", result.StatusCode)

	return result, nil
}

// HandleWebhook classifies and dispatches an inbound payload. It never
// fails: the webhook endpoint must always acknowledge to avoid
// triggering upstream retry storms.
func (s *Service) HandleWebhook(ctx context.Context, payload map[string]any) kick.EventKind {
	return s.events.Handle(ctx, payload)
}

// AccessToken returns the cached bearer token, or "" when absent.
func (s *Service) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == nil {
		return ""
	}
	access, _ := s.token["access_token"].(string)
	return access
}

// HasToken reports whether a usable access token is cached.
func (s *Service) HasToken() bool {
	return s.AccessToken() != ""
}

func (s *Service) setToken(token map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
