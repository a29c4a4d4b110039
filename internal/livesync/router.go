package livesync

import (
	"context"
	"sync"

	"solis/internal/logger"
)

// Resyncer is implemented by every Feed.
type Resyncer interface {
	Resync(ctx context.Context)
}

// Router maps change notifications to feed resyncs by collection name.
type Router struct {
	log *logger.Logger

	mu    sync.RWMutex
	feeds map[string]Resyncer
}

func NewRouter(log *logger.Logger) *Router {
	return &Router{log: log.Named("livesync"), feeds: make(map[string]Resyncer)}
}

func (r *Router) Register(collection string, feed Resyncer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feeds[collection] = feed
}

func (r *Router) Dispatch(ctx context.Context, collection string) {
	r.mu.RLock()
	feed, ok := r.feeds[collection]
	r.mu.RUnlock()
	if !ok {
		r.log.Debug().Str("collection", collection).Msg("no feed for collection")
		return
	}
	feed.Resync(ctx)
}

func (r *Router) DispatchAll(ctx context.Context) {
	r.mu.RLock()
	feeds := make([]Resyncer, 0, len(r.feeds))
	for _, f := range r.feeds {
		feeds = append(feeds, f)
	}
	r.mu.RUnlock()
	for _, f := range feeds {
		f.Resync(ctx)
	}
}
