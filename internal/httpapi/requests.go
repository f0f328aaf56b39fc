package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rcliao/mission-control/internal/model"
)

const maxBodyBytes = 4 << 20

type activityRequest struct {
	Type            string         `json:"type"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Category        string         `json:"category"`
	Metadata        map[string]any `json:"metadata"`
	Status          string         `json:"status"`
	DurationSeconds *float64       `json:"duration_seconds"`
	SessionKey      string         `json:"session_key"`
}

func (r activityRequest) input() (model.ActivityInput, error) {
	typ, err := model.ParseActivityType(r.Type)
	if err != nil {
		return model.ActivityInput{}, err
	}
	in := model.ActivityInput{
		Type:            typ,
		Title:           r.Title,
		Description:     r.Description,
		Category:        r.Category,
		Metadata:        r.Metadata,
		DurationSeconds: r.DurationSeconds,
		SessionKey:      r.SessionKey,
	}
	if r.Status != "" {
		if in.Status, err = model.ParseActivityStatus(r.Status); err != nil {
			return model.ActivityInput{}, err
		}
	}
	return in, nil
}

type statusRequest struct {
	Status string `json:"status"`
}

type taskRequest struct {
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	ScheduledFor time.Time      `json:"scheduled_for"`
	Recurrence   string         `json:"recurrence"`
	Category     string         `json:"category"`
	Priority     string         `json:"priority"`
	Source       string         `json:"source"`
	Metadata     map[string]any `json:"metadata"`
}

func (r taskRequest) input() (model.TaskInput, error) {
	rec, err := model.ParseRecurrence(r.Recurrence)
	if err != nil {
		return model.TaskInput{}, err
	}
	in := model.TaskInput{
		Title:        r.Title,
		Description:  r.Description,
		ScheduledFor: r.ScheduledFor,
		Recurrence:   rec,
		Category:     r.Category,
		Source:       r.Source,
		Metadata:     r.Metadata,
	}
	if r.Priority != "" {
		if in.Priority, err = model.ParsePriority(r.Priority); err != nil {
			return model.TaskInput{}, err
		}
	}
	return in, nil
}

type taskPatchRequest struct {
	Title        *string        `json:"title"`
	Description  *string        `json:"description"`
	ScheduledFor *time.Time     `json:"scheduled_for"`
	Status       *string        `json:"status"`
	Category     *string        `json:"category"`
	Priority     *string        `json:"priority"`
	Metadata     map[string]any `json:"metadata"`
}

func (r taskPatchRequest) patch() (model.TaskPatch, error) {
	p := model.TaskPatch{
		Title:        r.Title,
		Description:  r.Description,
		ScheduledFor: r.ScheduledFor,
		Category:     r.Category,
		Metadata:     r.Metadata,
	}
	if r.Status != nil {
		st, err := model.ParseTaskStatus(*r.Status)
		if err != nil {
			return p, err
		}
		p.Status = &st
	}
	if r.Priority != nil {
		var pr model.Priority
		if *r.Priority != "" {
			var err error
			if pr, err = model.ParsePriority(*r.Priority); err != nil {
				return p, err
			}
		}
		p.Priority = &pr
	}
	return p, nil
}

type memoryRequest struct {
	Content    string   `json:"content"`
	Type       string   `json:"type"`
	Category   string   `json:"category"`
	Source     string   `json:"source"`
	Importance *int     `json:"importance"`
	Tags       []string `json:"tags"`
}

func (r memoryRequest) input() (model.MemoryInput, error) {
	typ, err := model.ParseMemoryType(r.Type)
	if err != nil {
		return model.MemoryInput{}, err
	}
	return model.MemoryInput{
		Content:    r.Content,
		Type:       typ,
		Category:   r.Category,
		Source:     r.Source,
		Importance: r.Importance,
		Tags:       r.Tags,
	}, nil
}

type memoryPatchRequest struct {
	Content    *string   `json:"content"`
	Category   *string   `json:"category"`
	Importance *int      `json:"importance"`
	Tags       *[]string `json:"tags"`
}

func (r memoryPatchRequest) patch() model.MemoryPatch {
	return model.MemoryPatch{
		Content:    r.Content,
		Category:   r.Category,
		Importance: r.Importance,
		Tags:       r.Tags,
	}
}

type documentRequest struct {
	Path    string `json:"path"`
	Name    string `json:"name"`
	Content string `json:"content"`
	Type    string `json:"type"`
	Size    *int64 `json:"size"`
}

func (r documentRequest) input() (model.DocumentInput, error) {
	in := model.DocumentInput{Path: r.Path, Name: r.Name, Content: r.Content, Size: r.Size}
	if r.Type != "" {
		typ, err := model.ParseDocumentType(r.Type)
		if err != nil {
			return in, err
		}
		in.Type = typ
	}
	return in, nil
}

// decodeJSON reads a JSON body into v. Decoding problems are reported as
// validation errors.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &model.ValidationError{Field: "body", Reason: "empty request body"}
		}
		return &model.ValidationError{Field: "body", Reason: err.Error()}
	}
	return nil
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &model.ValidationError{Field: key, Value: raw, Reason: "must be a non-negative integer"}
	}
	return n, nil
}

// queryTime parses an RFC 3339 timestamp parameter. A missing parameter
// yields the zero time.
func queryTime(r *http.Request, key string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, &model.ValidationError{Field: key, Value: raw, Reason: "must be an RFC 3339 timestamp"}
	}
	return t, nil
}

func requireTime(r *http.Request, key string) (time.Time, error) {
	t, err := queryTime(r, key)
	if err != nil {
		return t, err
	}
	if t.IsZero() {
		return t, &model.ValidationError{Field: key, Reason: "required"}
	}
	return t, nil
}

func queryMonth(r *http.Request, now time.Time) (int, time.Month, error) {
	year, err := queryInt(r, "year")
	if err != nil {
		return 0, 0, err
	}
	month, err := queryInt(r, "month")
	if err != nil {
		return 0, 0, err
	}
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}
	if month > 12 {
		return 0, 0, &model.ValidationError{Field: "month", Value: fmt.Sprint(month), Reason: "must be 1-12"}
	}
	return year, time.Month(month), nil
}
