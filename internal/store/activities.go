package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/mission-control/internal/model"
)

const activityColumns = `id, type, title, description, category, metadata, status,
	duration_seconds, session_key, timestamp`

func (s *SQLiteStore) CreateActivity(ctx context.Context, in model.ActivityInput) (*model.Activity, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	a := model.Activity{
		ID:              s.newID(),
		Type:            in.Type,
		Title:           in.Title,
		Description:     in.Description,
		Category:        in.Category,
		Metadata:        in.Metadata,
		Status:          in.Status,
		DurationSeconds: in.DurationSeconds,
		SessionKey:      in.SessionKey,
		Timestamp:       fromMillis(s.stamp()),
	}
	if _, err := insertActivity(ctx, s.db, a); err != nil {
		return nil, err
	}

	s.changes.publish(model.EntityActivity)
	return &a, nil
}

func insertActivity(ctx context.Context, db execer, a model.Activity) (bool, error) {
	meta, err := encodeJSON(a.Metadata)
	if err != nil {
		return false, fmt.Errorf("encode metadata: %w", err)
	}
	var duration any
	if a.DurationSeconds != nil {
		duration = *a.DurationSeconds
	}
	res, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO activities (`+activityColumns+`, fold_title, fold_description)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, string(a.Type), a.Title, nullable(a.Description), nullable(a.Category), meta,
		nullable(string(a.Status)), duration, nullable(a.SessionKey), a.Timestamp.UnixMilli(),
		fold(a.Title), fold(a.Description))
	return inserted("insert activity", res, err)
}

func (s *SQLiteStore) GetActivity(ctx context.Context, id string) (*model.Activity, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = ?`, id)
	a, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("activity", id)
	}
	if err != nil {
		return nil, unavailable("get activity", err)
	}
	return &a, nil
}

func (s *SQLiteStore) ListActivities(ctx context.Context, q ActivityQuery) ([]model.Activity, error) {
	var where []string
	var args []any

	switch {
	case q.Type != "":
		typ, err := model.ParseActivityType(string(q.Type))
		if err != nil {
			return nil, err
		}
		where = append(where, "type = ?")
		args = append(args, string(typ))
	case q.Category != "":
		where = append(where, "category = ?")
		args = append(args, q.Category)
	}
	if q.Before != nil {
		where = append(where, "timestamp < ?")
		args = append(args, q.Before.UnixMilli())
	}

	query := `SELECT ` + activityColumns + ` FROM activities`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY timestamp DESC, id DESC LIMIT ?`
	args = append(args, limitOr(q.Limit, DefaultListLimit))

	return s.queryActivities(ctx, "list activities", query, args...)
}

func (s *SQLiteStore) ActivitiesInRange(ctx context.Context, start, end time.Time) ([]model.Activity, error) {
	return s.queryActivities(ctx, "activities in range",
		`SELECT `+activityColumns+` FROM activities
		 WHERE timestamp >= ? AND timestamp <= ?
		 ORDER BY timestamp DESC, id DESC`,
		start.UnixMilli(), end.UnixMilli())
}

func (s *SQLiteStore) AllActivities(ctx context.Context) ([]model.Activity, error) {
	return s.queryActivities(ctx, "all activities",
		`SELECT `+activityColumns+` FROM activities ORDER BY timestamp DESC, id DESC`)
}

// UpdateActivityStatus patches the only mutable activity field.
func (s *SQLiteStore) UpdateActivityStatus(ctx context.Context, id string, status model.ActivityStatus) (*model.Activity, error) {
	status, err := model.ParseActivityStatus(string(status))
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE activities SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return nil, unavailable("update activity status", err)
	}
	if err := affected(res, "activity", id); err != nil {
		return nil, err
	}
	s.changes.publish(model.EntityActivity)
	return s.GetActivity(ctx, id)
}

// SearchActivities matches the query against title or description.
func (s *SQLiteStore) SearchActivities(ctx context.Context, query string, limit int) ([]model.Activity, error) {
	pattern := likePattern(query)
	return s.queryActivities(ctx, "search activities",
		`SELECT `+activityColumns+` FROM activities
		 WHERE fold_title LIKE ? ESCAPE '\' OR fold_description LIKE ? ESCAPE '\'
		 ORDER BY timestamp DESC, id DESC LIMIT ?`,
		pattern, pattern, limitOr(limit, DefaultSearchLimit))
}

// ClearActivities deletes every activity. It is irreversible.
func (s *SQLiteStore) ClearActivities(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM activities`)
	if err != nil {
		return 0, unavailable("clear activities", err)
	}
	n, _ := res.RowsAffected()
	s.changes.publish(model.EntityActivity)
	return int(n), nil
}

func (s *SQLiteStore) queryActivities(ctx context.Context, op, query string, args ...any) ([]model.Activity, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer rows.Close()

	var activities []model.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, unavailable(op, err)
		}
		activities = append(activities, a)
	}
	return activities, unavailable(op, rows.Err())
}

func scanActivity(row scanner) (model.Activity, error) {
	var a model.Activity
	var typ string
	var description, category, metadata, status, sessionKey sql.NullString
	var duration sql.NullFloat64
	var ts int64

	err := row.Scan(&a.ID, &typ, &a.Title, &description, &category, &metadata,
		&status, &duration, &sessionKey, &ts)
	if err != nil {
		return a, err
	}

	a.Type = model.ActivityType(typ)
	a.Description = description.String
	a.Category = category.String
	a.Metadata = decodeMetadata(metadata)
	a.Status = model.ActivityStatus(status.String)
	if duration.Valid {
		d := duration.Float64
		a.DurationSeconds = &d
	}
	a.SessionKey = sessionKey.String
	a.Timestamp = fromMillis(ts)
	return a, nil
}
