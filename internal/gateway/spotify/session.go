package spotify

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/zmb3/spotify/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// DefaultRefreshInterval возраст сессии, после которого она пересоздаётся
const DefaultRefreshInterval = 3000 * time.Second

// TokenSource выдаёт и обновляет OAuth токены
type TokenSource interface {
	Token(ctx context.Context) (*oauth2.Token, error)
	Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error)
	HTTPClient(ctx context.Context, token *oauth2.Token) *http.Client
}

// Session хранит клиент API и пересоздаёт его по истечении интервала
type Session struct {
	mu              sync.Mutex
	tokens          TokenSource
	token           *oauth2.Token
	api             API
	createdAt       time.Time
	refreshInterval time.Duration
	now             func() time.Time
	newAPI          func(httpClient *http.Client) API
	logger          *zap.Logger
}

var _ APIProvider = (*Session)(nil)

// NewSession создает менеджер сессии. Клиент создаётся лениво при первом обращении.
func NewSession(tokens TokenSource, refreshInterval time.Duration, logger *zap.Logger, opts ...spotify.ClientOption) *Session {
	if refreshInterval <= 0 {
		refreshInterval = DefaultRefreshInterval
	}

	return &Session{
		tokens:          tokens,
		refreshInterval: refreshInterval,
		now:             time.Now,
		newAPI: func(httpClient *http.Client) API {
			return spotify.New(httpClient, opts...)
		},
		logger: logger,
	}
}

// API возвращает текущий клиент, пересоздавая его, если сессия старше интервала
func (s *Session) API(ctx context.Context) (API, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.api == nil {
		token, err := s.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to obtain spotify token: %w", err)
		}
		s.install(token)
		s.logger.Debug("Spotify session created")
		return s.api, nil
	}

	age := s.now().Sub(s.createdAt)
	if age <= s.refreshInterval {
		return s.api, nil
	}

	s.logger.Info("Refreshing Spotify session",
		zap.Duration("age", age),
		zap.Duration("refresh_interval", s.refreshInterval))

	token, err := s.tokens.Refresh(ctx, s.token)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh spotify token: %w", err)
	}
	s.install(token)

	return s.api, nil
}

// Age возвращает возраст текущей сессии
func (s *Session) Age() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.api == nil {
		return 0
	}
	return s.now().Sub(s.createdAt)
}

// install должен вызываться под s.mu
func (s *Session) install(token *oauth2.Token) {
	// контекст клиента живёт дольше запроса: oauth2 использует его для обновления токена
	s.token = token
	s.api = s.newAPI(s.tokens.HTTPClient(context.Background(), token))
	s.createdAt = s.now()
}
