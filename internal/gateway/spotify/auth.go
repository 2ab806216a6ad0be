package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// ErrAuthentication ошибка авторизации в Spotify
var ErrAuthentication = errors.New("spotify authentication failed")

const tokenFilePermission = 0o600

// TokenData формат файла с сохранённым токеном
type TokenData struct {
	Token *oauth2.Token `json:"token"`
}

// Authenticator реализует Authorization Code Flow и хранит токен в файле
type Authenticator struct {
	auth        *spotifyauth.Authenticator
	oauth       *oauth2.Config
	redirectURL string
	tokenPath   string
	logger      *zap.Logger
}

var _ TokenSource = (*Authenticator)(nil)

// NewAuthenticator создает авторизатор для чтения плейлистов пользователя
func NewAuthenticator(clientID, clientSecret, redirectURL, tokenPath string, logger *zap.Logger) (*Authenticator, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("%w: client ID and secret are required", ErrAuthentication)
	}
	if redirectURL == "" {
		return nil, fmt.Errorf("%w: redirect URI is required", ErrAuthentication)
	}

	scopes := []string{
		spotifyauth.ScopePlaylistReadPrivate,
		spotifyauth.ScopePlaylistReadCollaborative,
	}
	auth := spotifyauth.New(
		spotifyauth.WithRedirectURL(redirectURL),
		spotifyauth.WithScopes(scopes...),
		spotifyauth.WithClientID(clientID),
		spotifyauth.WithClientSecret(clientSecret),
	)

	return &Authenticator{
		auth: auth,
		// та же конфигурация, что у auth: нужна для источника токенов с сохранением
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyauth.AuthURL,
				TokenURL: spotifyauth.TokenURL,
			},
		},
		redirectURL: redirectURL,
		tokenPath:   tokenPath,
		logger:      logger,
	}, nil
}

// Token возвращает сохранённый токен или запускает авторизацию через браузер
func (a *Authenticator) Token(ctx context.Context) (*oauth2.Token, error) {
	token, err := a.loadToken()
	if err == nil {
		a.logger.Debug("Loaded saved Spotify token", zap.String("path", a.tokenPath))
		return token, nil
	}

	a.logger.Info("No saved token found, starting OAuth flow", zap.String("reason", err.Error()))
	return a.Login(ctx)
}

// Refresh обновляет токен и сохраняет его
func (a *Authenticator) Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	if token == nil {
		return nil, fmt.Errorf("%w: no token to refresh", ErrAuthentication)
	}

	refreshed, err := a.auth.RefreshToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: refresh token: %v", ErrAuthentication, err)
	}

	if err := a.saveToken(refreshed); err != nil {
		a.logger.Warn("Failed to save refreshed token", zap.Error(err))
	}

	return refreshed, nil
}

// HTTPClient возвращает HTTP клиент, подписывающий запросы токеном.
// Токены, обновлённые транспортом между пересозданиями сессии, тоже сохраняются в файл.
func (a *Authenticator) HTTPClient(ctx context.Context, token *oauth2.Token) *http.Client {
	src := newSavingTokenSource(a.oauth.TokenSource(ctx, token), token, a.saveToken, a.logger)
	return oauth2.NewClient(ctx, src)
}

// savingTokenSource сохраняет каждый новый токен, выданный src
type savingTokenSource struct {
	mu     sync.Mutex
	src    oauth2.TokenSource
	last   string
	save   func(*oauth2.Token) error
	logger *zap.Logger
}

func newSavingTokenSource(src oauth2.TokenSource, current *oauth2.Token, save func(*oauth2.Token) error, logger *zap.Logger) *savingTokenSource {
	s := &savingTokenSource{src: src, save: save, logger: logger}
	if current != nil {
		s.last = current.AccessToken
	}
	return s
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.src.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if token.AccessToken == s.last {
		return token, nil
	}
	s.last = token.AccessToken

	if err := s.save(token); err != nil {
		s.logger.Warn("Failed to save refreshed token", zap.Error(err))
	} else {
		s.logger.Debug("Saved token refreshed by transport", zap.Time("expiry", token.Expiry))
	}
	return token, nil
}

// Login поднимает обработчик redirect URI, ждёт callback и обменивает код на токен
func (a *Authenticator) Login(ctx context.Context) (*oauth2.Token, error) {
	u, err := url.Parse(a.redirectURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid redirect URI: %v", ErrAuthentication, err)
	}

	callbackPath := u.Path
	if callbackPath == "" {
		callbackPath = "/"
	}

	state := uuid.NewString()
	handler := newCallbackHandler(a.auth, state)

	mux := http.NewServeMux()
	mux.Handle(callbackPath, handler)

	listener, err := net.Listen("tcp", u.Host)
	if err != nil {
		return nil, fmt.Errorf("%w: listen on %s: %v", ErrAuthentication, u.Host, err)
	}

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("OAuth callback server failed", zap.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("Failed to stop OAuth callback server", zap.Error(err))
		}
	}()

	authURL := a.auth.AuthURL(state)
	a.logger.Info("Open the following URL in a browser to authorize access",
		zap.String("url", authURL))
	fmt.Fprintf(os.Stderr, "Authorize Zortify by visiting:\n\n  %s\n\n", authURL)

	var result callbackResult
	select {
	case result = <-handler.Result():
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, ctx.Err())
	}

	if result.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, result.err)
	}

	if err := a.saveToken(result.token); err != nil {
		a.logger.Warn("Failed to save token", zap.Error(err))
	}

	a.logger.Info("OAuth flow completed successfully")
	return result.token, nil
}

func (a *Authenticator) loadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(a.tokenPath)
	if err != nil {
		return nil, err
	}

	var tokenData TokenData
	if err := json.Unmarshal(data, &tokenData); err != nil {
		return nil, fmt.Errorf("failed to decode token file: %w", err)
	}
	if tokenData.Token == nil || (tokenData.Token.AccessToken == "" && tokenData.Token.RefreshToken == "") {
		return nil, fmt.Errorf("token file %s holds no token", a.tokenPath)
	}

	return tokenData.Token, nil
}

func (a *Authenticator) saveToken(token *oauth2.Token) error {
	data, err := json.MarshalIndent(TokenData{Token: token}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	if dir := filepath.Dir(a.tokenPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create token directory: %w", err)
		}
	}

	return os.WriteFile(a.tokenPath, data, tokenFilePermission)
}

type callbackResult struct {
	token *oauth2.Token
	err   error
}

// tokenExchanger обменивает callback запрос на токен
type tokenExchanger interface {
	Token(ctx context.Context, state string, r *http.Request, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
}

// callbackHandler обрабатывает один redirect от Spotify
type callbackHandler struct {
	exchanger tokenExchanger
	state     string
	results   chan callbackResult
	done      chan struct{}
	once      sync.Once
}

func newCallbackHandler(exchanger tokenExchanger, state string) *callbackHandler {
	return &callbackHandler{
		exchanger: exchanger,
		state:     state,
		results:   make(chan callbackResult, 1),
		done:      make(chan struct{}),
	}
}

func (h *callbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.done:
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	default:
	}

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.send(callbackResult{err: fmt.Errorf("authorization denied: %s", errParam)})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.exchanger.Token(r.Context(), h.state, r)
	if err != nil {
		h.send(callbackResult{err: fmt.Errorf("token exchange failed: %w", err)})
		http.Error(w, "Token exchange failed", http.StatusForbidden)
		return
	}

	h.send(callbackResult{token: token})

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintln(w, "Authorization successful. You can close this window and return to the terminal.")
}

func (h *callbackHandler) send(result callbackResult) {
	h.once.Do(func() {
		close(h.done)
		h.results <- result
	})
}

// Result канал, в который приходит ровно один результат
func (h *callbackHandler) Result() <-chan callbackResult {
	return h.results
}
