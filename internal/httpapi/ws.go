package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"

	"github.com/rcliao/mission-control/internal/feed"
	"github.com/rcliao/mission-control/internal/model"
	"github.com/rcliao/mission-control/internal/search"
)

// Client message types on /ws/feed.
const (
	MsgQuery        = "query"
	MsgToggleFilter = "toggle_filter"
	MsgFilters      = "filters"
	MsgClear        = "clear"
)

// ClientMessage is a state change sent by a feed client.
type ClientMessage struct {
	Type    string   `json:"type"`
	Query   string   `json:"query,omitempty"`
	Filter  string   `json:"filter,omitempty"`
	Filters []string `json:"filters,omitempty"`
}

// handleFeedSocket runs one feed session per connection. Every composed
// view is written as a JSON text message; a slow client only ever sees the
// latest view.
func (s *Server) handleFeedSocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			s.logger.Error("websocket accept failed", "err", err)
			return
		}
		defer func() {
			_ = conn.Close(websocket.StatusInternalError, "unexpected close")
		}()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		logger := s.logger.WithPrefix("feed")
		opts := append([]feed.Option{feed.WithLogger(logger)}, s.feedOpts...)
		sess := feed.NewSession(s.svc, s.svc.Subscribe(), opts...)
		views, unsubscribe := sess.Subscribe()
		defer unsubscribe()

		go func() { _ = sess.Run(ctx) }()
		defer func() {
			cancel()
			<-sess.Done()
		}()

		s.metrics.feedSessions.Inc()
		defer s.metrics.feedSessions.Dec()
		logger.Info("feed session opened", "remote", r.RemoteAddr)
		defer logger.Info("feed session closed", "remote", r.RemoteAddr)

		go s.readClient(ctx, cancel, conn, sess)

		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-views:
				if !ok {
					return
				}
				data, err := json.Marshal(v)
				if err != nil {
					logger.Error("encode feed view failed", "err", err)
					return
				}
				if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
					return
				}
				s.metrics.feedViews.Inc()
			}
		}
	}
}

// readClient applies client messages to sess until the connection fails,
// then cancels the session.
func (s *Server) readClient(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, sess *feed.Session) {
	defer cancel()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warn("invalid feed message", "err", err)
			continue
		}

		switch msg.Type {
		case MsgQuery:
			sess.SetQuery(msg.Query)
		case MsgToggleFilter:
			t, err := model.ParseEntityType(msg.Filter)
			if err != nil {
				s.logger.Warn("invalid feed filter", "filter", msg.Filter, "err", err)
				continue
			}
			sess.ToggleFilter(t)
		case MsgFilters:
			f, err := search.ParseFilters(msg.Filters)
			if err != nil {
				s.logger.Warn("invalid feed filters", "filters", msg.Filters, "err", err)
				continue
			}
			sess.SetFilters(f)
		case MsgClear:
			sess.Clear()
		default:
			s.logger.Warn("unexpected feed message type", "type", msg.Type)
		}
	}
}
