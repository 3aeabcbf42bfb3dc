// Package credentials implements the push channel's Credential Cache
// (spec.md §4.6/§4.7): a single bearer token shared by all push sends,
// fetched eagerly at worker start and refreshed on demand when a dispatch
// observes a 401.
//
// Grounded on original_source's fcm_token_manager.rs TokenManager, which
// holds the token behind a sync::RwLock<Arc<Token>> and fetches into a new
// value before ever taking the write lock. The Go port uses sync.RWMutex
// for the same reason: many concurrent readers, one writer, and the writer
// must never hold the lock across network I/O (spec.md §5).
package credentials

import (
	"context"
	"os"
	"sync"
	"time"

	gwerrors "github.com/notihub/gateway/internal/domain/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// FirebaseMessagingScope is the fixed OAuth scope the push provider requires.
const FirebaseMessagingScope = "https://www.googleapis.com/auth/firebase.messaging"

// Token is the in-memory credential held by the Cache. It is never persisted.
type Token struct {
	Bearer string
	Expiry time.Time
}

// TokenSource abstracts the GCP service-account token exchange so tests can
// substitute a fake without touching the filesystem or the network.
type TokenSource interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// fileTokenSource reads GOOGLE_APPLICATION_CREDENTIALS and exchanges it for
// a bearer token scoped to FirebaseMessagingScope, using the idiomatic Go
// ecosystem package for GCP service-account auth.
type fileTokenSource struct {
	credentialsFile string
}

func (f *fileTokenSource) Token(ctx context.Context) (*oauth2.Token, error) {
	raw, err := os.ReadFile(f.credentialsFile)
	if err != nil {
		return nil, err
	}
	creds, err := google.CredentialsFromJSONWithParams(ctx, raw, google.CredentialsParams{
		Scopes: []string{FirebaseMessagingScope},
	})
	if err != nil {
		return nil, err
	}
	return creds.TokenSource.Token()
}

// NewFileTokenSource builds a TokenSource backed by a service-account JSON
// document on disk, per spec.md §4.6.
func NewFileTokenSource(credentialsFile string) TokenSource {
	return &fileTokenSource{credentialsFile: credentialsFile}
}

// Cache holds one token shared by concurrent push sends.
type Cache struct {
	mu     sync.RWMutex
	token  *Token
	source TokenSource
	logger zerolog.Logger
}

// New creates a Cache. It does not fetch a token; call Refresh to populate
// it (spec.md §4.6: refresh() is called once at delivery-service start and
// its failure there is fatal).
func New(source TokenSource, logger *zerolog.Logger) *Cache {
	return &Cache{
		source: source,
		logger: logger.With().Str("component", "credential_cache").Logger(),
	}
}

// Get returns the currently cached token, or nil if the cache has never
// been populated. Safe for concurrent use with Refresh.
func (c *Cache) Get() *Token {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Refresh obtains a new token and atomically replaces the cached one. The
// fetch happens before any lock is taken, so no reader is ever blocked on
// network I/O and the write lock is never held across an await point.
// On failure, it logs and leaves the previous token (if any) in place.
func (c *Cache) Refresh(ctx context.Context) error {
	tok, err := c.source.Token(ctx)
	if err != nil {
		wrapped := gwerrors.GCPAuth(err)
		c.logger.Error().Err(wrapped).Msg("failed to refresh credential token; keeping previous token")
		return wrapped
	}

	next := &Token{Bearer: tok.AccessToken, Expiry: tok.Expiry}

	c.mu.Lock()
	c.token = next
	c.mu.Unlock()

	c.logger.Info().Time("expiry", next.Expiry).Msg("credential token refreshed")
	return nil
}
