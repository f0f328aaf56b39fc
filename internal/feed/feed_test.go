package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/mission-control/internal/model"
	"github.com/rcliao/mission-control/internal/search"
)

var base = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func memoryAt(id string, offset time.Duration) search.Item {
	return search.MemoryItem(model.Memory{ID: id, UpdatedAt: base.Add(offset)})
}

func activityAt(id string, offset time.Duration) search.Item {
	return search.ActivityItem(model.Activity{ID: id, Timestamp: base.Add(offset)})
}

func ids(items []search.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID()
	}
	return out
}

func TestComposeRecentMode(t *testing.T) {
	recent := search.PerType{
		Memories:   []search.Item{memoryAt("m1", time.Minute)},
		Activities: []search.Item{activityAt("a1", 2*time.Minute), activityAt("a2", 0)},
	}
	v := Compose(State{}, recent, nil)
	assert.Equal(t, ModeRecent, v.Mode)
	assert.Equal(t, []string{"a1", "m1", "a2"}, ids(v.Items))
	assert.Equal(t, 2, v.Counts[model.EntityActivity])
	assert.Equal(t, 0, v.Counts[model.EntityTask])
}

func TestComposeSearchMode(t *testing.T) {
	recent := search.PerType{Memories: []search.Item{memoryAt("recent", 0)}}
	results := &search.Results{PerType: search.PerType{Activities: []search.Item{activityAt("hit", 0)}}, TotalCount: 1}

	v := Compose(State{Query: "dep", Debounced: "dep"}, recent, results)
	assert.Equal(t, ModeSearch, v.Mode)
	assert.Equal(t, []string{"hit"}, ids(v.Items))

	// One rune is below the search threshold.
	v = Compose(State{Query: "d", Debounced: "d"}, recent, results)
	assert.Equal(t, ModeRecent, v.Mode)

	// Multi-byte runes count once each.
	v = Compose(State{Debounced: "日本"}, recent, results)
	assert.Equal(t, ModeSearch, v.Mode)

	// No results yet falls back to the recent lists.
	v = Compose(State{Debounced: "dep"}, recent, nil)
	assert.Equal(t, ModeRecent, v.Mode)
	assert.Equal(t, []string{"recent"}, ids(v.Items))
}

func TestComposeFilters(t *testing.T) {
	recent := search.PerType{
		Memories:   []search.Item{memoryAt("m1", time.Minute)},
		Activities: []search.Item{activityAt("a1", 0)},
	}
	v := Compose(State{Filters: search.NewFilterSet(model.EntityActivity)}, recent, nil)
	assert.Equal(t, []string{"a1"}, ids(v.Items))
	assert.Equal(t, 1, v.Counts[model.EntityMemory], "counts are unfiltered")

	v = Compose(State{Filters: search.NewFilterSet(model.EntityTask)}, recent, nil)
	assert.NotNil(t, v.Items)
	assert.Empty(t, v.Items)
}

type fakeSource struct {
	mu        sync.Mutex
	recent    search.PerType
	recentErr map[model.EntityType]error
	searches  []string
	refreshes []string
}

func (f *fakeSource) Recent(_ context.Context, t model.EntityType) ([]search.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.recentErr[t]; err != nil {
		return nil, err
	}
	return f.recent.Get(t), nil
}

func (f *fakeSource) results(q string) *search.Results {
	items := []search.Item{activityAt("hit-"+q, 0)}
	return &search.Results{PerType: search.PerType{Activities: items}, TotalCount: 1}
}

func (f *fakeSource) SearchAll(_ context.Context, q string, _ int) (*search.Results, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, q)
	return f.results(q), nil
}

func (f *fakeSource) RefreshSearch(_ context.Context, q string, _ int) (*search.Results, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes = append(f.refreshes, q)
	return f.results(q), nil
}

func (f *fakeSource) calls() (searches, refreshes []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searches...), append([]string(nil), f.refreshes...)
}

func (f *fakeSource) set(fn func(f *fakeSource)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

type fakeNotifier struct {
	ch      chan struct{}
	mu      sync.Mutex
	pending []model.EntityType
	closed  bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{ch: make(chan struct{}, 1)}
}

func (n *fakeNotifier) Ready() <-chan struct{} { return n.ch }

func (n *fakeNotifier) Changes() []model.EntityType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.pending
	n.pending = nil
	return out
}

func (n *fakeNotifier) Close() {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
}

func (n *fakeNotifier) fire(types ...model.EntityType) {
	n.mu.Lock()
	n.pending = append(n.pending, types...)
	n.mu.Unlock()
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

func startSession(t *testing.T, src Source, n Notifier, opts ...Option) (*Session, <-chan View) {
	t.Helper()
	s := NewSession(src, n, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-s.Done()
	})
	views, unsub := s.Subscribe()
	t.Cleanup(unsub)
	return s, views
}

func waitFor(t *testing.T, views <-chan View, pred func(View) bool) View {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case v, ok := <-views:
			require.True(t, ok, "view channel closed")
			if pred(v) {
				return v
			}
		case <-timeout:
			t.Fatal("timed out waiting for view")
		}
	}
}

func TestSessionLoadsRecent(t *testing.T) {
	src := &fakeSource{recent: search.PerType{Memories: []search.Item{memoryAt("m1", 0)}}}
	_, views := startSession(t, src, nil)

	v := waitFor(t, views, func(v View) bool { return len(v.Items) == 1 })
	assert.Equal(t, ModeRecent, v.Mode)
	assert.Equal(t, "m1", v.Items[0].ID())
}

func TestSessionDebounceCollapsesKeystrokes(t *testing.T) {
	src := &fakeSource{}
	s, views := startSession(t, src, nil, WithDebounce(100*time.Millisecond))

	s.SetQuery("d")
	time.Sleep(20 * time.Millisecond)
	s.SetQuery("de")
	time.Sleep(20 * time.Millisecond)
	s.SetQuery("dep")

	v := waitFor(t, views, func(v View) bool { return v.Mode == ModeSearch })
	assert.Equal(t, "dep", v.Debounced)
	assert.Equal(t, []string{"hit-dep"}, ids(v.Items))

	time.Sleep(300 * time.Millisecond)
	searches, _ := src.calls()
	assert.Equal(t, []string{"dep"}, searches)
}

func TestSessionShortQueryDoesNotSearch(t *testing.T) {
	src := &fakeSource{}
	s, views := startSession(t, src, nil, WithDebounce(20*time.Millisecond))

	s.SetQuery("d")
	v := waitFor(t, views, func(v View) bool { return v.Debounced == "d" })
	assert.Equal(t, ModeRecent, v.Mode)

	searches, _ := src.calls()
	assert.Empty(t, searches)
}

func TestSessionClearResetsFiltersAndQuery(t *testing.T) {
	src := &fakeSource{}
	s, views := startSession(t, src, nil, WithDebounce(20*time.Millisecond))

	s.ToggleFilter(model.EntityTask)
	s.SetQuery("deploy")
	waitFor(t, views, func(v View) bool { return v.Mode == ModeSearch })

	s.Clear()
	v := waitFor(t, views, func(v View) bool { return v.Query == "" })
	assert.Equal(t, ModeRecent, v.Mode)
	assert.Empty(t, v.Debounced)
	assert.True(t, v.Filters.Empty())
}

func TestSessionClearCancelsPendingSearch(t *testing.T) {
	src := &fakeSource{}
	s, views := startSession(t, src, nil, WithDebounce(80*time.Millisecond))

	s.SetQuery("deploy")
	s.Clear()
	waitFor(t, views, func(v View) bool { return v.Query == "" })

	time.Sleep(200 * time.Millisecond)
	searches, _ := src.calls()
	assert.Empty(t, searches)
}

func TestSessionRefreshesOnDataChange(t *testing.T) {
	src := &fakeSource{}
	n := newFakeNotifier()
	s, views := startSession(t, src, n, WithDebounce(20*time.Millisecond))

	s.SetQuery("deploy")
	waitFor(t, views, func(v View) bool { return v.Mode == ModeSearch })

	src.set(func(f *fakeSource) {
		f.recent.Memories = []search.Item{memoryAt("new", 0)}
	})
	n.fire(model.EntityMemory)

	waitFor(t, views, func(v View) bool { return v.Counts[model.EntityActivity] == 1 && len(src.refreshesSnapshot()) == 1 })
	searches, refreshes := src.calls()
	assert.Equal(t, []string{"deploy"}, searches, "a refresh must not record history")
	assert.Equal(t, []string{"deploy"}, refreshes)

	s.Clear()
	v := waitFor(t, views, func(v View) bool { return v.Mode == ModeRecent })
	assert.Equal(t, []string{"new"}, ids(v.Items))
}

func (f *fakeSource) refreshesSnapshot() []string {
	_, r := f.calls()
	return r
}

func TestSessionKeepsListOnReloadFailure(t *testing.T) {
	src := &fakeSource{recent: search.PerType{Memories: []search.Item{memoryAt("m1", 0)}}}
	n := newFakeNotifier()
	_, views := startSession(t, src, n)
	waitFor(t, views, func(v View) bool { return len(v.Items) == 1 })

	src.set(func(f *fakeSource) {
		f.recentErr = map[model.EntityType]error{model.EntityMemory: errors.New("store down")}
	})
	n.fire(model.EntityMemory)

	v := waitFor(t, views, func(v View) bool { return len(v.Warnings) > 0 })
	assert.Equal(t, []string{"m1"}, ids(v.Items))
	assert.Contains(t, v.Warnings[0], "store down")
}

func TestSessionStopClosesSubscribers(t *testing.T) {
	s := NewSession(&fakeSource{}, newFakeNotifier())
	ctx, cancel := context.WithCancel(context.Background())
	views, _ := s.Subscribe()

	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()
	cancel()
	require.ErrorIs(t, <-errc, context.Canceled)

	for range views {
	}
	assert.ErrorIs(t, s.Run(context.Background()), ErrClosed)
}
