package permissions

import (
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2/expirable"

	customerrors "github.com/bavix/avwatch/internal/errors"
)

const (
	defaultRegistrySize = 64
	defaultRequestTTL   = 2 * time.Minute
)

// Registry keeps outstanding requests addressable by id for callers that
// resolve them out of band (HTTP, WebSocket). A request that expires or is
// evicted before anyone resolves it is resolved with OutcomeError, so an
// abandoned prompt never leaves the state pending.
type Registry struct {
	cache *lru.LRU[string, *Request]
}

// NewRegistry creates a registry holding at most size requests for ttl each.
// Non-positive values select the defaults.
func NewRegistry(size int, ttl time.Duration) *Registry {
	if size <= 0 {
		size = defaultRegistrySize
	}

	if ttl <= 0 {
		ttl = defaultRequestTTL
	}

	return &Registry{
		cache: lru.NewLRU[string, *Request](size, func(_ string, req *Request) {
			// the callback runs under the cache lock
			go req.Resolve(OutcomeError)
		}, ttl),
	}
}

// Add stores req and returns its id.
func (r *Registry) Add(req *Request) string {
	id := uuid.NewString()
	r.cache.Add(id, req)

	return id
}

// Get returns the outstanding request with the given id.
func (r *Registry) Get(id string) (*Request, bool) {
	return r.cache.Get(id)
}

// Resolve applies outcome to the request with the given id and forgets it.
func (r *Registry) Resolve(id string, outcome Outcome) error {
	if !outcome.Valid() {
		return customerrors.ErrUnknownOutcomeWithToken(string(outcome))
	}

	req, ok := r.cache.Peek(id)
	if !ok {
		return customerrors.ErrRequestNotFoundWithID(id)
	}

	if !req.Resolve(outcome) {
		return customerrors.ErrRequestAlreadyResolved
	}

	r.cache.Remove(id)

	return nil
}

// Len returns the number of outstanding requests.
func (r *Registry) Len() int {
	return r.cache.Len()
}
