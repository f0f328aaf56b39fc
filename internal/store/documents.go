package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"

	"github.com/rcliao/mission-control/internal/chunker"
	"github.com/rcliao/mission-control/internal/model"
)

const documentColumns = `id, path, name, content, type, last_modified, size`

// UpsertDocument creates the document at in.Path or replaces its fields.
// LastModified always advances past the previously stored value. The
// chunk set used for search excerpts is rebuilt on every call.
func (s *SQLiteStore) UpsertDocument(ctx context.Context, in model.DocumentInput) (*model.Document, error) {
	if in.Name == "" {
		in.Name = filepath.Base(in.Path)
	}
	if in.Type == "" {
		in.Type = model.DocumentTypeFor(in.Path)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, unavailable("begin tx", err)
	}
	defer tx.Rollback()

	d := model.Document{
		Path:    in.Path,
		Name:    in.Name,
		Content: in.Content,
		Type:    in.Type,
		Size:    in.Size,
	}

	var prevID string
	var prevModified int64
	err = tx.QueryRowContext(ctx, `SELECT id, last_modified FROM documents WHERE path = ?`, in.Path).
		Scan(&prevID, &prevModified)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		d.ID = s.newID()
		d.LastModified = fromMillis(s.stamp())
		if _, err := insertDocument(ctx, tx, d); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, unavailable("lookup document", err)
	default:
		d.ID = prevID
		d.LastModified = fromMillis(s.stampAfter(prevModified))
		_, err = tx.ExecContext(ctx,
			`UPDATE documents SET name = ?, content = ?, type = ?, last_modified = ?, size = ?, fold_content = ?
			 WHERE id = ?`,
			d.Name, d.Content, string(d.Type), d.LastModified.UnixMilli(), sizeArg(d.Size), fold(d.Content), d.ID)
		if err != nil {
			return nil, unavailable("update document", err)
		}
	}

	if err := replaceChunks(ctx, tx, d); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, unavailable("commit", err)
	}

	s.changes.publish(model.EntityDocument)
	return &d, nil
}

func insertDocument(ctx context.Context, db execer, d model.Document) (bool, error) {
	res, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO documents (`+documentColumns+`, fold_content) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Path, d.Name, d.Content, string(d.Type), d.LastModified.UnixMilli(), sizeArg(d.Size), fold(d.Content))
	return inserted("insert document", res, err)
}

func replaceChunks(ctx context.Context, db execer, d model.Document) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = ?`, d.ID); err != nil {
		return unavailable("delete chunks", err)
	}
	for _, c := range chunker.Chunk(d.Content, chunker.OptionsFor(d.Type)) {
		_, err := db.ExecContext(ctx,
			`INSERT INTO document_chunks (document_id, seq, text, start_line, end_line) VALUES (?, ?, ?, ?, ?)`,
			d.ID, c.Seq, c.Text, c.StartLine, c.EndLine)
		if err != nil {
			return unavailable("insert chunk", err)
		}
	}
	return nil
}

func sizeArg(size *int64) any {
	if size == nil {
		return nil
	}
	return *size
}

func (s *SQLiteStore) GetDocumentByPath(ctx context.Context, path string) (*model.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE path = ?`, path)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("document", path)
	}
	if err != nil {
		return nil, unavailable("get document", err)
	}
	return &d, nil
}

func (s *SQLiteStore) ListDocuments(ctx context.Context, q DocumentQuery) ([]model.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents`
	var args []any
	if q.Type != "" {
		typ, err := model.ParseDocumentType(string(q.Type))
		if err != nil {
			return nil, err
		}
		query += ` WHERE type = ?`
		args = append(args, string(typ))
	}
	query += ` ORDER BY last_modified DESC, id DESC LIMIT ?`
	args = append(args, limitOr(q.Limit, DefaultListLimit))

	return s.queryDocuments(ctx, "list documents", query, args...)
}

func (s *SQLiteStore) AllDocuments(ctx context.Context) ([]model.Document, error) {
	return s.queryDocuments(ctx, "all documents",
		`SELECT `+documentColumns+` FROM documents ORDER BY last_modified DESC, id DESC`)
}

// DeleteDocument removes the document stored under path along with its chunks.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, path string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, path)
	if err != nil {
		return unavailable("delete document", err)
	}
	if err := affected(res, "document", path); err != nil {
		return err
	}
	s.changes.publish(model.EntityDocument)
	return nil
}

// DocumentChunks returns the chunks of a document in order.
func (s *SQLiteStore) DocumentChunks(ctx context.Context, documentID string) ([]model.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT document_id, seq, text, start_line, end_line FROM document_chunks
		 WHERE document_id = ? ORDER BY seq`, documentID)
	if err != nil {
		return nil, unavailable("document chunks", err)
	}
	defer rows.Close()

	var chunks []model.Chunk
	for rows.Next() {
		var c model.Chunk
		var start, end sql.NullInt64
		if err := rows.Scan(&c.DocumentID, &c.Seq, &c.Text, &start, &end); err != nil {
			return nil, unavailable("document chunks", err)
		}
		c.StartLine = int(start.Int64)
		c.EndLine = int(end.Int64)
		chunks = append(chunks, c)
	}
	return chunks, unavailable("document chunks", rows.Err())
}

// SearchDocuments matches the query against content, most recently modified
// first. Each hit carries the first chunk containing the query, when one does.
func (s *SQLiteStore) SearchDocuments(ctx context.Context, query string, limit int) ([]model.DocumentMatch, error) {
	docs, err := s.queryDocuments(ctx, "search documents",
		`SELECT `+documentColumns+` FROM documents
		 WHERE fold_content LIKE ? ESCAPE '\'
		 ORDER BY last_modified DESC, id DESC LIMIT ?`,
		likePattern(query), limitOr(limit, DefaultSearchLimit))
	if err != nil {
		return nil, err
	}

	needle := fold(query)
	matches := make([]model.DocumentMatch, 0, len(docs))
	for _, d := range docs {
		m := model.DocumentMatch{Document: d}
		chunks, err := s.DocumentChunks(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		for i := range chunks {
			if strings.Contains(fold(chunks[i].Text), needle) {
				m.Match = &chunks[i]
				break
			}
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// ClearDocuments deletes every document.
func (s *SQLiteStore) ClearDocuments(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents`)
	if err != nil {
		return 0, unavailable("clear documents", err)
	}
	n, _ := res.RowsAffected()
	s.changes.publish(model.EntityDocument)
	return int(n), nil
}

func (s *SQLiteStore) queryDocuments(ctx context.Context, op, query string, args ...any) ([]model.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, unavailable(op, err)
		}
		docs = append(docs, d)
	}
	return docs, unavailable(op, rows.Err())
}

func scanDocument(row scanner) (model.Document, error) {
	var d model.Document
	var typ string
	var modified int64
	var size sql.NullInt64

	if err := row.Scan(&d.ID, &d.Path, &d.Name, &d.Content, &typ, &modified, &size); err != nil {
		return d, err
	}
	d.Type = model.DocumentType(typ)
	d.LastModified = fromMillis(modified)
	if size.Valid {
		v := size.Int64
		d.Size = &v
	}
	return d, nil
}
