package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/rcliao/mission-control/internal/debounce"
	"github.com/rcliao/mission-control/internal/model"
	"github.com/rcliao/mission-control/internal/search"
)

// DefaultDebounce is the quiet period before a typed query is searched.
const DefaultDebounce = 300 * time.Millisecond

// ErrClosed is returned by Run when the session already ran.
var ErrClosed = errors.New("feed session closed")

// Source supplies the data a session composes.
type Source interface {
	Recent(ctx context.Context, t model.EntityType) ([]search.Item, error)
	// SearchAll runs a user-issued search and records it in history.
	SearchAll(ctx context.Context, query string, limit int) (*search.Results, error)
	// RefreshSearch re-runs a search without recording history.
	RefreshSearch(ctx context.Context, query string, limit int) (*search.Results, error)
}

// Notifier signals data changes. Changes drains the collections modified
// since the previous call.
type Notifier interface {
	Ready() <-chan struct{}
	Changes() []model.EntityType
	Close()
}

// Session is one live feed. All state changes run on the goroutine that
// calls Run; the exported methods only post commands to it.
type Session struct {
	src      Source
	changes  Notifier
	logger   *log.Logger
	window   time.Duration
	limit    int
	debounce *debounce.Debouncer[struct{}, string]

	cmds chan func()
	done chan struct{}
	once sync.Once

	// loop-owned
	ctx      context.Context
	state    State
	recent   search.PerType
	results  *search.Results
	warnings map[string]string

	mu        sync.Mutex
	last      View
	published bool
	subs      map[chan View]struct{}
	closed    bool
}

// Option configures a Session.
type Option func(*Session)

func WithLogger(l *log.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDebounce sets the quiet period applied to SetQuery.
func WithDebounce(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.window = d
		}
	}
}

// WithSearchLimit caps each collection's hits in search mode.
func WithSearchLimit(n int) Option {
	return func(s *Session) { s.limit = n }
}

// NewSession creates a session over src. changes may be nil, in which case
// the feed only updates on state changes.
func NewSession(src Source, changes Notifier, opts ...Option) *Session {
	s := &Session{
		src:      src,
		changes:  changes,
		logger:   log.New(io.Discard),
		window:   DefaultDebounce,
		cmds:     make(chan func(), 16),
		done:     make(chan struct{}),
		warnings: make(map[string]string),
		subs:     make(map[chan View]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.debounce = debounce.New[struct{}, string](s.window, 0, func(values []string) {
		q := values[len(values)-1]
		s.post(func() { s.settle(q) })
	})
	return s
}

// Run loads the recent lists and processes commands and data changes until
// ctx is done. A session runs at most once.
func (s *Session) Run(ctx context.Context) error {
	started := false
	s.once.Do(func() { started = true })
	if !started {
		return ErrClosed
	}
	defer s.shutdown()
	s.ctx = ctx

	var ready <-chan struct{}
	if s.changes != nil {
		ready = s.changes.Ready()
	}

	s.reload(ctx, model.EntityTypes...)
	s.publish()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-s.cmds:
			fn()
			s.publish()
		case <-ready:
			changed := s.changes.Changes()
			if len(changed) == 0 {
				continue
			}
			s.logger.Debug("data changed", "types", changed)
			s.reload(ctx, changed...)
			if s.state.Searching() {
				s.runSearch(ctx, s.state.Debounced, false)
			}
			s.publish()
		}
	}
}

func (s *Session) shutdown() {
	s.debounce.Cancel()
	if s.changes != nil {
		s.changes.Close()
	}
	s.mu.Lock()
	s.closed = true
	for ch := range s.subs {
		close(ch)
		delete(s.subs, ch)
	}
	s.mu.Unlock()
	close(s.done)
}

// post queues fn for the loop. It is dropped once the session has stopped.
func (s *Session) post(fn func()) {
	select {
	case s.cmds <- fn:
	case <-s.done:
	}
}

// SetQuery updates the typed query. The debounced query follows once no
// further SetQuery arrives for the debounce window.
func (s *Session) SetQuery(q string) {
	s.post(func() {
		s.state.Query = q
	})
	s.debounce.Add(struct{}{}, q)
}

// ToggleFilter adds t to the active filters, or removes it when present.
func (s *Session) ToggleFilter(t model.EntityType) {
	s.post(func() {
		s.state.Filters = s.state.Filters.Toggle(t)
	})
}

// SetFilters replaces the active filters.
func (s *Session) SetFilters(f search.FilterSet) {
	s.post(func() {
		s.state.Filters = f
	})
}

// Clear resets the query, the debounced query and the filters, and drops
// any pending debounced search.
func (s *Session) Clear() {
	s.debounce.Cancel()
	s.post(func() {
		s.state = State{}
		s.results = nil
		delete(s.warnings, "search")
	})
}

// settle applies a debounced query. A value that no longer matches the
// typed query was superseded or cleared and is ignored.
func (s *Session) settle(q string) {
	if q != s.state.Query || q == s.state.Debounced {
		return
	}
	s.state.Debounced = q
	s.results = nil
	delete(s.warnings, "search")
	if s.state.Searching() {
		s.runSearch(s.ctx, q, true)
	}
}

// runSearch replaces the cached results. On failure the previous results
// stay in place.
func (s *Session) runSearch(ctx context.Context, q string, record bool) {
	var (
		res *search.Results
		err error
	)
	if record {
		res, err = s.src.SearchAll(ctx, q, s.limit)
	} else {
		res, err = s.src.RefreshSearch(ctx, q, s.limit)
	}
	if res != nil {
		s.results = res
	}
	if err != nil {
		s.logger.Warn("feed search failed", "query", q, "err", err)
		s.warnings["search"] = err.Error()
		return
	}
	delete(s.warnings, "search")
}

// reload refreshes the recent lists of types. A failed load keeps the
// previous list.
func (s *Session) reload(ctx context.Context, types ...model.EntityType) {
	for _, t := range types {
		items, err := s.src.Recent(ctx, t)
		key := "recent " + string(t)
		if err != nil {
			s.logger.Warn("feed reload failed", "type", t, "err", err)
			s.warnings[key] = err.Error()
			continue
		}
		delete(s.warnings, key)
		s.recent.Set(t, items)
	}
}

func (s *Session) compose() View {
	v := Compose(s.state, s.recent, s.results)
	for _, key := range []string{"search", "recent memory", "recent document", "recent activity", "recent task"} {
		if msg, ok := s.warnings[key]; ok {
			v.Warnings = append(v.Warnings, fmt.Sprintf("%s: %s", key, msg))
		}
	}
	return v
}

// publish delivers the current view to every subscriber, replacing any
// view a slow subscriber has not read yet.
func (s *Session) publish() {
	v := s.compose()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = v
	s.published = true
	for ch := range s.subs {
		deliver(ch, v)
	}
}

func deliver(ch chan View, v View) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Subscribe returns a channel that always holds the latest view, starting
// with the current one once Run has composed it. The channel is closed by
// cancel or when the session stops.
func (s *Session) Subscribe() (views <-chan View, cancel func()) {
	ch := make(chan View, 1)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}
	if s.published {
		deliver(ch, s.last)
	}
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
}

// View returns the latest composed view.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Done is closed once Run returns.
func (s *Session) Done() <-chan struct{} { return s.done }
