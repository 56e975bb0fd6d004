// ABOUTME: Keeps a feed current by rebuilding it whenever a cached collection changes
// ABOUTME: Listeners are notified with the new feed after each rebuild
package feed

import (
	"sync"
	"time"

	"github.com/harperreed/crmdesk/metrics"
	"github.com/harperreed/crmdesk/store"
)

// SnapshotOf copies the cache's current collections.
func SnapshotOf(cache *store.Cache) Snapshot {
	return Snapshot{
		Activities:    cache.Activities.Items(),
		Tasks:         cache.Tasks.Items(),
		Clients:       cache.Clients.Items(),
		Leads:         cache.Leads.Items(),
		Opportunities: cache.Opportunities.Items(),
	}
}

// Watcher rebuilds the feed from a cache on every change.
type Watcher struct {
	cache   *store.Cache
	opts    Options
	metrics *metrics.Metrics

	// buildMu orders rebuilds so a slower, older build never replaces a newer feed
	buildMu sync.Mutex
	mu      sync.RWMutex
	current Feed

	listenMu  sync.Mutex
	listeners map[int]func(Feed)
	nextID    int

	unsubscribe []func()
}

// NewWatcher builds the initial feed and subscribes to the five source collections.
func NewWatcher(cache *store.Cache, opts Options, m *metrics.Metrics) *Watcher {
	w := &Watcher{
		cache:     cache,
		opts:      opts,
		metrics:   m,
		listeners: make(map[int]func(Feed)),
	}

	w.rebuild()

	w.unsubscribe = []func(){
		cache.Activities.Subscribe(w.rebuild),
		cache.Tasks.Subscribe(w.rebuild),
		cache.Clients.Subscribe(w.rebuild),
		cache.Leads.Subscribe(w.rebuild),
		cache.Opportunities.Subscribe(w.rebuild),
	}
	return w
}

// Feed returns the latest feed.
func (w *Watcher) Feed() Feed {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers fn to receive every rebuilt feed. The returned func unregisters it.
func (w *Watcher) OnChange(fn func(Feed)) func() {
	w.listenMu.Lock()
	defer w.listenMu.Unlock()

	id := w.nextID
	w.nextID++
	w.listeners[id] = fn

	return func() {
		w.listenMu.Lock()
		defer w.listenMu.Unlock()
		delete(w.listeners, id)
	}
}

// Close stops watching the cache.
func (w *Watcher) Close() {
	for _, unsub := range w.unsubscribe {
		unsub()
	}
	w.unsubscribe = nil
}

func (w *Watcher) rebuild() {
	w.buildMu.Lock()
	start := time.Now()
	f := Build(SnapshotOf(w.cache), w.opts)
	w.metrics.RecordFeedBuild(len(f.Items), time.Since(start))

	w.mu.Lock()
	w.current = f
	w.mu.Unlock()
	w.buildMu.Unlock()

	w.listenMu.Lock()
	fns := make([]func(Feed), 0, len(w.listeners))
	for _, fn := range w.listeners {
		fns = append(fns, fn)
	}
	w.listenMu.Unlock()

	for _, fn := range fns {
		fn(f)
	}
}
