package store

import (
	"context"
	"os"
)

// Info holds database statistics.
type Info struct {
	DBPath      string `json:"db_path"`
	DBSizeBytes int64  `json:"db_size_bytes"`
	Activities  int    `json:"activities"`
	Tasks       int    `json:"tasks"`
	Memories    int    `json:"memories"`
	Documents   int    `json:"documents"`
	Chunks      int    `json:"chunks"`
	Searches    int    `json:"searches"`
}

// Info returns database statistics.
func (s *SQLiteStore) Info(ctx context.Context) (*Info, error) {
	info := &Info{DBPath: s.path}

	if fi, err := os.Stat(s.path); err == nil {
		info.DBSizeBytes = fi.Size()
	}

	counts := []struct {
		table string
		dst   *int
	}{
		{"activities", &info.Activities},
		{"scheduled_tasks", &info.Tasks},
		{"memories", &info.Memories},
		{"documents", &info.Documents},
		{"document_chunks", &info.Chunks},
		{"searches", &info.Searches},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+c.table).Scan(c.dst); err != nil {
			return info, unavailable("count "+c.table, err)
		}
	}
	return info, nil
}
