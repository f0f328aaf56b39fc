package store

import (
	"context"

	"github.com/rcliao/mission-control/internal/model"
)

// RecordSearch appends an entry to the search history.
func (s *SQLiteStore) RecordSearch(ctx context.Context, query string, resultCount int) (*model.SearchHistoryEntry, error) {
	e := model.SearchHistoryEntry{
		ID:          s.newID(),
		Query:       query,
		ResultCount: resultCount,
		Timestamp:   fromMillis(s.stamp()),
	}
	if _, err := insertSearch(ctx, s.db, e); err != nil {
		return nil, err
	}
	return &e, nil
}

func insertSearch(ctx context.Context, db execer, e model.SearchHistoryEntry) (bool, error) {
	res, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO searches (id, query, result_count, timestamp) VALUES (?, ?, ?, ?)`,
		e.ID, e.Query, e.ResultCount, e.Timestamp.UnixMilli())
	return inserted("record search", res, err)
}

// SearchHistory returns the most recent searches first.
func (s *SQLiteStore) SearchHistory(ctx context.Context, limit int) ([]model.SearchHistoryEntry, error) {
	return s.querySearches(ctx, limitOr(limit, DefaultListLimit))
}

// querySearches lists history entries newest first. A negative limit means no limit.
func (s *SQLiteStore) querySearches(ctx context.Context, limit int) ([]model.SearchHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, result_count, timestamp FROM searches
		 ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, unavailable("search history", err)
	}
	defer rows.Close()

	var entries []model.SearchHistoryEntry
	for rows.Next() {
		var e model.SearchHistoryEntry
		var ts int64
		if err := rows.Scan(&e.ID, &e.Query, &e.ResultCount, &ts); err != nil {
			return nil, unavailable("search history", err)
		}
		e.Timestamp = fromMillis(ts)
		entries = append(entries, e)
	}
	return entries, unavailable("search history", rows.Err())
}

// ClearSearchHistory deletes every history entry.
func (s *SQLiteStore) ClearSearchHistory(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM searches`)
	if err != nil {
		return 0, unavailable("clear search history", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
