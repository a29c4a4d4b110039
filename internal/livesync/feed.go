package livesync

import (
	"context"
	"sync"

	"solis/internal/logger"
)

// Query describes one live view over a collection.
type Query[T any] struct {
	// Key is the canonical filter key, used in logs.
	Key string
	// Fetch returns the authoritative result set.
	Fetch func(ctx context.Context) ([]T, error)
	// Match decides whether an optimistically pushed item belongs to the view.
	// Nil matches everything.
	Match func(T) bool
}

func (q Query[T]) matches(item T) bool {
	return q.Match == nil || q.Match(item)
}

// Feed fans a collection's snapshots out to its subscriptions. At most one
// subscription exists per view id.
type Feed[T any] struct {
	name string
	key  func(T) string
	less func(a, b T) bool
	log  *logger.Logger

	mu   sync.Mutex
	subs map[string]*Subscription[T]
}

func NewFeed[T any](name string, key func(T) string, less func(a, b T) bool, log *logger.Logger) *Feed[T] {
	return &Feed[T]{
		name: name,
		key:  key,
		less: less,
		log:  log.Named("feed." + name),
		subs: make(map[string]*Subscription[T]),
	}
}

func (f *Feed[T]) Name() string {
	return f.name
}

// Subscribe fetches the initial result set and registers the view. An existing
// subscription for viewID is closed first. The subscription ends when ctx is
// cancelled or Close is called.
func (f *Feed[T]) Subscribe(ctx context.Context, viewID string, q Query[T]) (*Subscription[T], error) {
	f.mu.Lock()
	if prev, ok := f.subs[viewID]; ok {
		delete(f.subs, viewID)
		f.mu.Unlock()
		prev.Close()
	} else {
		f.mu.Unlock()
	}

	items, err := q.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	sub := &Subscription[T]{
		feed:    f,
		viewID:  viewID,
		query:   q,
		mirror:  newMirror(f.key, f.less),
		updates: make(chan []T, 1),
		done:    make(chan struct{}),
	}
	sub.replace(items)

	f.mu.Lock()
	if prev, ok := f.subs[viewID]; ok {
		defer prev.Close()
	}
	f.subs[viewID] = sub
	f.mu.Unlock()

	f.log.Debug().Str("view", viewID).Str("query", q.Key).Int("items", len(items)).Msg("subscribed")

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()
	return sub, nil
}

// Upsert pushes item into every mirror whose query matches it and drops it
// from mirrors whose query no longer does.
func (f *Feed[T]) Upsert(item T) {
	for _, sub := range f.snapshot() {
		if sub.query.matches(item) {
			sub.upsert(item)
		} else {
			sub.remove(f.key(item))
		}
	}
}

// Remove drops the item with key k from every mirror holding it.
func (f *Feed[T]) Remove(k string) {
	for _, sub := range f.snapshot() {
		sub.remove(k)
	}
}

// Resync refetches every subscription. A failing fetch terminates that
// subscription; the others are unaffected.
func (f *Feed[T]) Resync(ctx context.Context) {
	for _, sub := range f.snapshot() {
		items, err := sub.query.Fetch(ctx)
		if err != nil {
			f.log.Error().Err(err).Str("view", sub.viewID).Str("query", sub.query.Key).Msg("resync failed")
			sub.fail(err)
			continue
		}
		sub.replace(items)
	}
}

// Subscribers returns the number of active subscriptions.
func (f *Feed[T]) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *Feed[T]) snapshot() []*Subscription[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	subs := make([]*Subscription[T], 0, len(f.subs))
	for _, s := range f.subs {
		subs = append(subs, s)
	}
	return subs
}

func (f *Feed[T]) detach(s *Subscription[T]) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cur, ok := f.subs[s.viewID]; ok && cur == s {
		delete(f.subs, s.viewID)
	}
}

// Subscription delivers whole, sorted result sets. Only the newest undelivered
// snapshot is kept.
type Subscription[T any] struct {
	feed   *Feed[T]
	viewID string
	query  Query[T]

	mu      sync.Mutex
	mirror  *Mirror[T]
	updates chan []T
	done    chan struct{}
	closed  bool
	err     error
}

// Updates is closed when the subscription ends.
func (s *Subscription[T]) Updates() <-chan []T {
	return s.updates
}

// Done is closed when the subscription ends.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

// Err returns the fetch error that ended the subscription, if any.
func (s *Subscription[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Items returns the current mirror contents.
func (s *Subscription[T]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mirror.Items()
}

func (s *Subscription[T]) ViewID() string {
	return s.viewID
}

func (s *Subscription[T]) Close() {
	s.mu.Lock()
	s.closeLocked()
	s.mu.Unlock()
	s.feed.detach(s)
}

func (s *Subscription[T]) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.updates)
	close(s.done)
}

func (s *Subscription[T]) fail(err error) {
	s.mu.Lock()
	if !s.closed {
		s.err = err
	}
	s.closeLocked()
	s.mu.Unlock()
	s.feed.detach(s)
}

func (s *Subscription[T]) replace(items []T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.mirror.Replace(items)
	s.deliverLocked()
}

func (s *Subscription[T]) upsert(item T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.mirror.Upsert(item)
	s.deliverLocked()
}

func (s *Subscription[T]) remove(k string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.mirror.Remove(k) {
		return
	}
	s.deliverLocked()
}

// deliverLocked replaces any pending snapshot with the current one.
func (s *Subscription[T]) deliverLocked() {
	select {
	case <-s.updates:
	default:
	}
	s.updates <- s.mirror.Items()
}
