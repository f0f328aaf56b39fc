package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rcliao/mission-control/internal/model"
)

const memoryColumns = `id, content, type, category, source, importance, tags, created_at, updated_at`

func (s *SQLiteStore) CreateMemory(ctx context.Context, in model.MemoryInput) (*model.Memory, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := fromMillis(s.stamp())
	m := model.Memory{
		ID:         s.newID(),
		Content:    in.Content,
		Type:       in.Type,
		Category:   in.Category,
		Source:     in.Source,
		Importance: in.Importance,
		Tags:       model.NormalizeTags(in.Tags),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := insertMemory(ctx, s.db, m); err != nil {
		return nil, err
	}

	s.changes.publish(model.EntityMemory)
	return &m, nil
}

func insertMemory(ctx context.Context, db execer, m model.Memory) (bool, error) {
	tags, err := encodeJSON(m.Tags)
	if err != nil {
		return false, fmt.Errorf("encode tags: %w", err)
	}
	var importance any
	if m.Importance != nil {
		importance = *m.Importance
	}
	res, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO memories (`+memoryColumns+`, fold_content)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Content, string(m.Type), nullable(m.Category), nullable(m.Source), importance,
		tags, m.CreatedAt.UnixMilli(), m.UpdatedAt.UnixMilli(), fold(m.Content))
	return inserted("insert memory", res, err)
}

func (s *SQLiteStore) GetMemory(ctx context.Context, id string) (*model.Memory, error) {
	return getMemory(ctx, s.db, id)
}

func getMemory(ctx context.Context, db rowQuerier, id string) (*model.Memory, error) {
	row := db.QueryRowContext(ctx, `SELECT `+memoryColumns+` FROM memories WHERE id = ?`, id)
	m, err := scanMemory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("memory", id)
	}
	if err != nil {
		return nil, unavailable("get memory", err)
	}
	return &m, nil
}

func (s *SQLiteStore) ListMemories(ctx context.Context, q MemoryQuery) ([]model.Memory, error) {
	var where []string
	var args []any

	switch {
	case q.Type != "":
		typ, err := model.ParseMemoryType(string(q.Type))
		if err != nil {
			return nil, err
		}
		where = append(where, "type = ?")
		args = append(args, string(typ))
	case q.Category != "":
		where = append(where, "category = ?")
		args = append(args, q.Category)
	}

	query := `SELECT ` + memoryColumns + ` FROM memories`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY updated_at DESC, id DESC LIMIT ?`
	args = append(args, limitOr(q.Limit, DefaultListLimit))

	return s.queryMemories(ctx, "list memories", query, args...)
}

func (s *SQLiteStore) AllMemories(ctx context.Context) ([]model.Memory, error) {
	return s.queryMemories(ctx, "all memories",
		`SELECT `+memoryColumns+` FROM memories ORDER BY updated_at DESC, id DESC`)
}

// UpdateMemory applies a patch and advances UpdatedAt past its previous value.
func (s *SQLiteStore) UpdateMemory(ctx context.Context, id string, p model.MemoryPatch) (*model.Memory, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, unavailable("begin tx", err)
	}
	defer tx.Rollback()

	m, err := getMemory(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if p.Content != nil {
		m.Content = *p.Content
	}
	if p.Category != nil {
		m.Category = *p.Category
	}
	if p.Importance != nil {
		m.Importance = p.Importance
	}
	if p.Tags != nil {
		m.Tags = model.NormalizeTags(*p.Tags)
	}
	m.UpdatedAt = fromMillis(s.stampAfter(m.UpdatedAt.UnixMilli()))

	tags, err := encodeJSON(m.Tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}
	var importance any
	if m.Importance != nil {
		importance = *m.Importance
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE memories SET content = ?, category = ?, importance = ?, tags = ?,
		   updated_at = ?, fold_content = ?
		 WHERE id = ?`,
		m.Content, nullable(m.Category), importance, tags, m.UpdatedAt.UnixMilli(), fold(m.Content), id)
	if err != nil {
		return nil, unavailable("update memory", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, unavailable("commit", err)
	}

	s.changes.publish(model.EntityMemory)
	return m, nil
}

func (s *SQLiteStore) DeleteMemory(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return unavailable("delete memory", err)
	}
	if err := affected(res, "memory", id); err != nil {
		return err
	}
	s.changes.publish(model.EntityMemory)
	return nil
}

// SearchMemories matches the query against content, most recently updated first.
func (s *SQLiteStore) SearchMemories(ctx context.Context, query string, limit int) ([]model.Memory, error) {
	return s.queryMemories(ctx, "search memories",
		`SELECT `+memoryColumns+` FROM memories
		 WHERE fold_content LIKE ? ESCAPE '\'
		 ORDER BY updated_at DESC, id DESC LIMIT ?`,
		likePattern(query), limitOr(limit, DefaultSearchLimit))
}

// ClearMemories deletes every memory.
func (s *SQLiteStore) ClearMemories(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM memories`)
	if err != nil {
		return 0, unavailable("clear memories", err)
	}
	n, _ := res.RowsAffected()
	s.changes.publish(model.EntityMemory)
	return int(n), nil
}

func (s *SQLiteStore) queryMemories(ctx context.Context, op, query string, args ...any) ([]model.Memory, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer rows.Close()

	var memories []model.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, unavailable(op, err)
		}
		memories = append(memories, m)
	}
	return memories, unavailable(op, rows.Err())
}

func scanMemory(row scanner) (model.Memory, error) {
	var m model.Memory
	var typ string
	var category, source, tags sql.NullString
	var importance sql.NullInt64
	var created, updated int64

	err := row.Scan(&m.ID, &m.Content, &typ, &category, &source, &importance, &tags, &created, &updated)
	if err != nil {
		return m, err
	}

	m.Type = model.MemoryType(typ)
	m.Category = category.String
	m.Source = source.String
	if importance.Valid {
		v := int(importance.Int64)
		m.Importance = &v
	}
	if tags.Valid && tags.String != "" {
		json.Unmarshal([]byte(tags.String), &m.Tags)
	}
	m.CreatedAt = fromMillis(created)
	m.UpdatedAt = fromMillis(updated)
	return m, nil
}
