package snapshot

import (
	"context"
	"time"

	"github.com/meetwatch/meetwatch-agent/internal/cache"
)

// CachedSource wraps a Source and reuses window-title lookups for a short
// period, so a manual scan right after a timer tick does not shell out twice
// for the same process.
type CachedSource struct {
	inner  Source
	titles *cache.Cache
}

// NewCachedSource wraps src with a title cache of the given TTL.
func NewCachedSource(src Source, ttl time.Duration) *CachedSource {
	return &CachedSource{
		inner:  src,
		titles: cache.New(ttl),
	}
}

// Processes delegates to the wrapped source; snapshots are never cached.
func (s *CachedSource) Processes(ctx context.Context) ([]ProcessInfo, error) {
	return s.inner.Processes(ctx)
}

// WindowTitle serves recent titles from cache. Only successful lookups are
// cached; failures always retry on the next call.
func (s *CachedSource) WindowTitle(ctx context.Context, pid string) (string, bool, error) {
	if v, ok := s.titles.Get(pid); ok {
		return v.(string), true, nil
	}

	title, found, err := s.inner.WindowTitle(ctx, pid)
	if err != nil || !found {
		return "", false, err
	}

	s.titles.Set(pid, title)
	return title, true, nil
}

// Forget drops the cached title for a process, used when it ends.
func (s *CachedSource) Forget(pid string) {
	s.titles.Delete(pid)
}

// Close releases the cache sweeper.
func (s *CachedSource) Close() {
	s.titles.Close()
}
