package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rcliao/mission-control/internal/app"
	"github.com/rcliao/mission-control/internal/feed"
	"github.com/rcliao/mission-control/internal/model"
	"github.com/rcliao/mission-control/internal/search"
	"github.com/rcliao/mission-control/internal/stats"
	"github.com/rcliao/mission-control/internal/store"
)

// --- activities ---

func (s *Server) handleListActivities() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q store.ActivityQuery
		var err error
		if raw := r.URL.Query().Get("type"); raw != "" {
			if q.Type, err = model.ParseActivityType(raw); err != nil {
				s.writeError(w, r, err)
				return
			}
		}
		q.Category = r.URL.Query().Get("category")
		before, err := queryTime(r, "before")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if !before.IsZero() {
			q.Before = &before
		}
		if q.Limit, err = queryInt(r, "limit"); err != nil {
			s.writeError(w, r, err)
			return
		}

		acts, err := s.svc.ListActivities(r.Context(), q)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, nonNil(acts))
	}
}

func (s *Server) handleCreateActivity() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req activityRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		in, err := req.input()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		a, err := s.svc.CreateActivity(r.Context(), in)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	}
}

func (s *Server) handleActivitiesInRange() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start, err := requireTime(r, "start")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		end, err := requireTime(r, "end")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		acts, err := s.svc.ActivitiesInRange(r.Context(), start, end)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, nonNil(acts))
	}
}

type activityStatsResponse struct {
	stats.ActivityStats
	SuccessRate int `json:"success_rate"`
}

func (s *Server) handleActivityStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := s.svc.ActivityStats(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, activityStatsResponse{ActivityStats: st, SuccessRate: st.SuccessRate()})
	}
}

func (s *Server) handleGetActivity() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := s.svc.GetActivity(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

func (s *Server) handleActivityStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req statusRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		status, err := model.ParseActivityStatus(req.Status)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		a, err := s.svc.UpdateActivityStatus(r.Context(), chi.URLParam(r, "id"), status)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// --- tasks ---

func (s *Server) handleUpcomingTasks() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, err := queryTime(r, "from")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		limit, err := queryInt(r, "limit")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		tasks, err := s.svc.UpcomingTasks(r.Context(), from, limit)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, nonNil(tasks))
	}
}

func (s *Server) handleCreateTask() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req taskRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		in, err := req.input()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		t, err := s.svc.CreateTask(r.Context(), in)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, t)
	}
}

func (s *Server) handleTasksInRange() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start, err := requireTime(r, "start")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		end, err := requireTime(r, "end")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		tasks, err := s.svc.TasksInRange(r.Context(), start, end)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, nonNil(tasks))
	}
}

func (s *Server) handleTasksByWeek() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start, err := queryTime(r, "start")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if start.IsZero() {
			start = app.WeekStart(s.svc.Now())
		}
		tasks, err := s.svc.TasksByWeek(r.Context(), start)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, nonNil(tasks))
	}
}

func (s *Server) handleTasksByMonth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		year, month, err := queryMonth(r, s.svc.Now())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		tasks, err := s.svc.TasksByMonth(r.Context(), year, month)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, nonNil(tasks))
	}
}

type taskStatsResponse struct {
	stats.TaskStats
	CompletionRate int `json:"completion_rate"`
}

func (s *Server) handleTaskStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := s.svc.TaskStats(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, taskStatsResponse{TaskStats: st, CompletionRate: st.CompletionRate()})
	}
}

func (s *Server) handleGetTask() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := s.svc.GetTask(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func (s *Server) handleUpdateTask() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req taskPatchRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		p, err := req.patch()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		t, err := s.svc.UpdateTask(r.Context(), chi.URLParam(r, "id"), p)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func (s *Server) handleDeleteTask() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.svc.DeleteTask(r.Context(), chi.URLParam(r, "id")); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type completeResponse struct {
	Task *model.ScheduledTask `json:"task"`
	Next *model.ScheduledTask `json:"next,omitempty"`
}

func (s *Server) handleCompleteTask() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		done, next, err := s.svc.CompleteTask(r.Context(), chi.URLParam(r, "id"))
		if err != nil && done == nil {
			s.writeError(w, r, err)
			return
		}
		if err != nil {
			// The completion stuck; only the follow-up occurrence failed.
			s.logger.Error("schedule next occurrence failed", "task", done.ID, "err", err)
		}
		writeJSON(w, http.StatusOK, completeResponse{Task: done, Next: next})
	}
}

func (s *Server) handleCancelTask() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := s.svc.CancelTask(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

// --- memories ---

func (s *Server) handleListMemories() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q store.MemoryQuery
		var err error
		if raw := r.URL.Query().Get("type"); raw != "" {
			if q.Type, err = model.ParseMemoryType(raw); err != nil {
				s.writeError(w, r, err)
				return
			}
		}
		q.Category = r.URL.Query().Get("category")
		if q.Limit, err = queryInt(r, "limit"); err != nil {
			s.writeError(w, r, err)
			return
		}
		mems, err := s.svc.ListMemories(r.Context(), q)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, nonNil(mems))
	}
}

func (s *Server) handleCreateMemory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req memoryRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		in, err := req.input()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		m, err := s.svc.CreateMemory(r.Context(), in)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, m)
	}
}

func (s *Server) handleGetMemory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := s.svc.GetMemory(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}

func (s *Server) handleUpdateMemory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req memoryPatchRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		m, err := s.svc.UpdateMemory(r.Context(), chi.URLParam(r, "id"), req.patch())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}

func (s *Server) handleDeleteMemory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.svc.DeleteMemory(r.Context(), chi.URLParam(r, "id")); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// --- documents ---

func (s *Server) handleListDocuments() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q store.DocumentQuery
		var err error
		if raw := r.URL.Query().Get("type"); raw != "" {
			if q.Type, err = model.ParseDocumentType(raw); err != nil {
				s.writeError(w, r, err)
				return
			}
		}
		if q.Limit, err = queryInt(r, "limit"); err != nil {
			s.writeError(w, r, err)
			return
		}
		docs, err := s.svc.ListDocuments(r.Context(), q)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, nonNil(docs))
	}
}

func (s *Server) handleUpsertDocument() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req documentRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		in, err := req.input()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		d, err := s.svc.UpsertDocument(r.Context(), in)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func documentPath(r *http.Request) (string, error) {
	p := strings.TrimSpace(r.URL.Query().Get("path"))
	if p == "" {
		return "", &model.ValidationError{Field: "path", Reason: "required"}
	}
	return p, nil
}

func (s *Server) handleGetDocument() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := documentPath(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		d, err := s.svc.GetDocument(r.Context(), p)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func (s *Server) handleDeleteDocument() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := documentPath(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := s.svc.DeleteDocument(r.Context(), p); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// --- search and feed ---

func (s *Server) handleSearch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		if query == "" {
			s.writeError(w, r, &model.ValidationError{Field: "q", Reason: "required"})
			return
		}
		limit, err := queryInt(r, "limit")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		res, err := s.svc.SearchAll(r.Context(), query, limit)
		warnings, fatal := splitSearchError(err)
		if fatal != nil {
			s.writeError(w, r, fatal)
			return
		}
		writeJSON(w, http.StatusOK, searchResponse{Results: res, Warnings: warnings})
	}
}

func (s *Server) handleSearchHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := queryInt(r, "limit")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		hist, err := s.svc.SearchHistory(r.Context(), limit)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, nonNil(hist))
	}
}

// handleFeed composes one feed view. A q of at least two runes runs (and
// records) a search; filter may repeat to narrow the entity types.
func (s *Server) handleFeed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters, err := search.ParseFilters(r.URL.Query()["filter"])
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		state := feed.State{Query: r.URL.Query().Get("q"), Filters: filters}
		state.Debounced = state.Query

		recent, err := s.svc.RecentAll(r.Context())
		var warnings []string
		if err != nil {
			warnings = append(warnings, err.Error())
		}

		var results *search.Results
		if state.Searching() {
			res, err := s.svc.SearchAll(r.Context(), state.Debounced, 0)
			partial, fatal := splitSearchError(err)
			if fatal != nil {
				s.writeError(w, r, fatal)
				return
			}
			warnings = append(warnings, partial...)
			results = res
		}

		v := feed.Compose(state, recent, results)
		v.Warnings = warnings
		writeJSON(w, http.StatusOK, v)
	}
}

func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}

// instrument records request counts and latencies.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.metrics.observeRequest(r.Method, route, rec.status, time.Since(start))
	})
}
