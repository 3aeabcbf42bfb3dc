package credentials

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func discardLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

type scriptedTokenSource struct {
	mu      sync.Mutex
	tokens  []*oauth2.Token
	errs    []error
	callIdx int
}

func (s *scriptedTokenSource) Token(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.callIdx
	s.callIdx++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return s.tokens[i], nil
}

func TestCache_GetBeforeRefreshReturnsNil(t *testing.T) {
	cache := New(&scriptedTokenSource{}, discardLogger())
	require.Nil(t, cache.Get())
}

func TestCache_RefreshPopulatesToken(t *testing.T) {
	source := &scriptedTokenSource{tokens: []*oauth2.Token{{AccessToken: "tok-1"}}}
	cache := New(source, discardLogger())

	require.NoError(t, cache.Refresh(context.Background()))
	require.Equal(t, "tok-1", cache.Get().Bearer)
}

func TestCache_RefreshFailureKeepsPreviousToken(t *testing.T) {
	source := &scriptedTokenSource{
		tokens: []*oauth2.Token{{AccessToken: "tok-1"}, nil},
		errs:   []error{nil, errors.New("token exchange failed")},
	}
	cache := New(source, discardLogger())

	require.NoError(t, cache.Refresh(context.Background()))
	require.Error(t, cache.Refresh(context.Background()))
	require.Equal(t, "tok-1", cache.Get().Bearer, "a failed refresh must not clear the previously cached token")
}

func TestCache_ConcurrentGetDuringRefresh(t *testing.T) {
	source := &scriptedTokenSource{tokens: []*oauth2.Token{{AccessToken: "tok-1"}, {AccessToken: "tok-2"}}}
	cache := New(source, discardLogger())
	require.NoError(t, cache.Refresh(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = cache.Get()
		}()
	}
	require.NoError(t, cache.Refresh(context.Background()))
	wg.Wait()

	require.Equal(t, "tok-2", cache.Get().Bearer)
}
