package spotify

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zmb3/spotify/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type fakeTokens struct {
	mu         sync.Mutex
	tokenCalls int
	refreshes  int
	tokenErr   error
	refreshErr error
}

func (f *fakeTokens) Token(context.Context) (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenCalls++
	if f.tokenErr != nil {
		return nil, f.tokenErr
	}
	return &oauth2.Token{AccessToken: "initial", RefreshToken: "refresh"}, nil
}

func (f *fakeTokens) Refresh(_ context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &oauth2.Token{AccessToken: "refreshed", RefreshToken: token.RefreshToken}, nil
}

func (f *fakeTokens) HTTPClient(context.Context, *oauth2.Token) *http.Client {
	return &http.Client{}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestSession(tokens TokenSource, interval time.Duration) (*Session, *fakeClock, *int) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	created := 0

	s := NewSession(tokens, interval, zap.NewNop())
	s.now = clock.Now
	s.newAPI = func(httpClient *http.Client) API {
		created++
		return spotify.New(httpClient)
	}
	return s, clock, &created
}

func TestSession_LazyCreateAndReuse(t *testing.T) {
	tokens := &fakeTokens{}
	s, clock, created := newTestSession(tokens, time.Hour)

	assert.Equal(t, time.Duration(0), s.Age())

	first, err := s.API(context.Background())
	require.NoError(t, err)

	clock.Advance(30 * time.Minute)
	second, err := s.API(context.Background())
	require.NoError(t, err)

	assert.Same(t, first.(*spotify.Client), second.(*spotify.Client))
	assert.Equal(t, 1, tokens.tokenCalls)
	assert.Equal(t, 0, tokens.refreshes)
	assert.Equal(t, 1, *created)
	assert.Equal(t, 30*time.Minute, s.Age())
}

func TestSession_RefreshesAfterInterval(t *testing.T) {
	tokens := &fakeTokens{}
	s, clock, created := newTestSession(tokens, DefaultRefreshInterval)

	first, err := s.API(context.Background())
	require.NoError(t, err)

	clock.Advance(DefaultRefreshInterval + time.Second)
	second, err := s.API(context.Background())
	require.NoError(t, err)

	assert.NotSame(t, first.(*spotify.Client), second.(*spotify.Client))
	assert.Equal(t, 1, tokens.refreshes)
	assert.Equal(t, 2, *created)
	assert.Equal(t, "refreshed", s.token.AccessToken)
	assert.Equal(t, time.Duration(0), s.Age())
}

func TestSession_Errors(t *testing.T) {
	t.Run("token failure", func(t *testing.T) {
		s, _, _ := newTestSession(&fakeTokens{tokenErr: errors.New("no browser")}, time.Hour)
		_, err := s.API(context.Background())
		assert.Error(t, err)
	})

	t.Run("refresh failure", func(t *testing.T) {
		s, clock, _ := newTestSession(&fakeTokens{refreshErr: errors.New("revoked")}, time.Minute)
		_, err := s.API(context.Background())
		require.NoError(t, err)

		clock.Advance(2 * time.Minute)
		_, err = s.API(context.Background())
		assert.Error(t, err)
	})
}

func TestSession_ConcurrentAccess(t *testing.T) {
	tokens := &fakeTokens{}
	s, _, created := newTestSession(tokens, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.API(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, *created)
	assert.Equal(t, 1, tokens.tokenCalls)
}
