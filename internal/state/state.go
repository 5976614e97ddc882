// Package state tracks which files have been indexed, at what
// modification time, and which documents in the vector/lexical stores
// belong to them. It is the single source of truth the indexer
// consults to decide what work remains, backed by a SQLite database
// opened in WAL mode for a single writer.
package state

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver (no CGO)
)

// File is a tracked file's indexing state.
type File struct {
	Path        string
	FileMtime   time.Time
	IndexedAt   time.Time
	PageCursor  int  // last fully-indexed page, 0 if not a paged document
	TotalPages  int  // total pages known for a paged document, 0 if unknown
	HasPageInfo bool // true once TotalPages has been recorded at least once
}

// Manager is the State Manager. All methods are safe for concurrent
// use; writes are serialized behind an internal mutex matching
// SQLite's single-writer constraint.
type Manager struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates or opens the state database at path. An empty path
// opens an in-memory database, used by tests.
func Open(path string) (*Manager, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("state: create directory: %w", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("state: open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("state: set pragma %q: %w", p, err)
		}
	}

	m := &Manager{db: db}
	if err := m.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return m, nil
}

func (m *Manager) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS files (
	path        TEXT PRIMARY KEY,
	file_mtime  INTEGER NOT NULL,
	indexed_at  INTEGER NOT NULL,
	page_cursor INTEGER NOT NULL DEFAULT 0,
	total_pages INTEGER NOT NULL DEFAULT 0,
	has_page_info INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS file_docs (
	path   TEXT NOT NULL,
	doc_id TEXT NOT NULL,
	PRIMARY KEY (path, doc_id),
	FOREIGN KEY (path) REFERENCES files(path) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_file_docs_path ON file_docs(path);
`
	if _, err := m.db.Exec(schema); err != nil {
		return fmt.Errorf("state: migrate schema: %w", err)
	}
	return nil
}

// NeedsIndexing reports whether a file must be (re)indexed, comparing
// the given modification time against the file mtime stored when it was
// last recorded.
// A file that has never been seen always needs indexing.
func (m *Manager) NeedsIndexing(ctx context.Context, path string, mtime time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var storedMtime int64
	err := m.db.QueryRowContext(ctx, `SELECT file_mtime FROM files WHERE path = ?`, path).Scan(&storedMtime)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("state: query file: %w", err)
	}
	return mtime.UnixNano() > storedMtime, nil
}

// MarkIndexed records a file as fully indexed (not paged, or a paged
// file whose final page has been processed), clearing any resume
// cursor.
func (m *Manager) MarkIndexed(ctx context.Context, path string, mtime time.Time, docIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("state: begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixNano()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO files (path, file_mtime, indexed_at, page_cursor, total_pages, has_page_info)
		VALUES (?, ?, ?, 0, 0, 0)
		ON CONFLICT(path) DO UPDATE SET
			file_mtime = excluded.file_mtime,
			indexed_at = excluded.indexed_at,
			page_cursor = 0,
			total_pages = 0,
			has_page_info = 0
	`, path, mtime.UnixNano(), now)
	if err != nil {
		return fmt.Errorf("state: upsert file: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM file_docs WHERE path = ?`, path); err != nil {
		return fmt.Errorf("state: clear file_docs: %w", err)
	}
	for _, docID := range docIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO file_docs (path, doc_id) VALUES (?, ?)`, path, docID); err != nil {
			return fmt.Errorf("state: insert file_doc: %w", err)
		}
	}

	return tx.Commit()
}

// MarkPageIndexed records progress through a paged document (e.g. a
// multi-page PDF), persisting a resumable checkpoint: the last
// fully-processed page and the document's total page count. docIDs
// are the chunk doc_ids produced by this page only; they accumulate
// across calls rather than replacing prior pages' entries.
func (m *Manager) MarkPageIndexed(ctx context.Context, path string, mtime time.Time, page, totalPages int, docIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("state: begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO files (path, file_mtime, indexed_at, page_cursor, total_pages, has_page_info)
		VALUES (?, ?, 0, ?, ?, 1)
		ON CONFLICT(path) DO UPDATE SET
			file_mtime = excluded.file_mtime,
			page_cursor = excluded.page_cursor,
			total_pages = excluded.total_pages,
			has_page_info = 1
	`, path, mtime.UnixNano(), page, totalPages)
	if err != nil {
		return fmt.Errorf("state: upsert page checkpoint: %w", err)
	}

	for _, docID := range docIDs {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO file_docs (path, doc_id) VALUES (?, ?)`, path, docID); err != nil {
			return fmt.Errorf("state: insert page file_doc: %w", err)
		}
	}

	if page+1 >= totalPages && totalPages > 0 {
		if _, err := tx.ExecContext(ctx, `UPDATE files SET indexed_at = ? WHERE path = ?`, time.Now().UnixNano(), path); err != nil {
			return fmt.Errorf("state: finalize paged file: %w", err)
		}
	}

	return tx.Commit()
}

// GetResumePage returns the page to resume extraction from (the
// checkpointed page_cursor plus one) and the last known total page
// count. ok is false if the file has no recorded progress.
func (m *Manager) GetResumePage(ctx context.Context, path string) (page int, totalPages int, ok bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var cursor, total int
	var hasPageInfo int
	qerr := m.db.QueryRowContext(ctx, `SELECT page_cursor, total_pages, has_page_info FROM files WHERE path = ?`, path).
		Scan(&cursor, &total, &hasPageInfo)
	if qerr == sql.ErrNoRows {
		return 0, 0, false, nil
	}
	if qerr != nil {
		return 0, 0, false, fmt.Errorf("state: query resume page: %w", qerr)
	}
	if hasPageInfo == 0 {
		return 0, 0, false, nil
	}
	return cursor + 1, total, true, nil
}

// GetFileMtime returns the last recorded mtime for path. ok is false
// if the file has never been recorded.
func (m *Manager) GetFileMtime(ctx context.Context, path string) (mtime time.Time, ok bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stored int64
	qerr := m.db.QueryRowContext(ctx, `SELECT file_mtime FROM files WHERE path = ?`, path).Scan(&stored)
	if qerr == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if qerr != nil {
		return time.Time{}, false, fmt.Errorf("state: query file mtime: %w", qerr)
	}
	return time.Unix(0, stored), true, nil
}

// GetDeletedFiles returns tracked paths that are no longer present in
// currentPaths, i.e. files removed from disk since the last scan.
func (m *Manager) GetDeletedFiles(ctx context.Context, currentPaths []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	present := make(map[string]struct{}, len(currentPaths))
	for _, p := range currentPaths {
		present[p] = struct{}{}
	}

	rows, err := m.db.QueryContext(ctx, `SELECT path FROM files`)
	if err != nil {
		return nil, fmt.Errorf("state: query all files: %w", err)
	}
	defer rows.Close()

	var deleted []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("state: scan path: %w", err)
		}
		if _, ok := present[path]; !ok {
			deleted = append(deleted, path)
		}
	}
	return deleted, rows.Err()
}

// RemoveFile deletes a file's state and doc associations. Callers are
// responsible for deleting the corresponding vectors/lexical entries
// before or after this call; RemoveFile only updates the ledger.
func (m *Manager) RemoveFile(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.db.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path); err != nil {
		return fmt.Errorf("state: delete file: %w", err)
	}
	return nil
}

// GetDocIDs returns the doc_ids recorded against a file.
func (m *Manager) GetDocIDs(ctx context.Context, path string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, err := m.db.QueryContext(ctx, `SELECT doc_id FROM file_docs WHERE path = ?`, path)
	if err != nil {
		return nil, fmt.Errorf("state: query file_docs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("state: scan doc_id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetAllFiles returns every tracked file's state, used for status
// reporting and garbage collection.
func (m *Manager) GetAllFiles(ctx context.Context) ([]File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, err := m.db.QueryContext(ctx, `
		SELECT path, file_mtime, indexed_at, page_cursor, total_pages, has_page_info FROM files
	`)
	if err != nil {
		return nil, fmt.Errorf("state: query all files: %w", err)
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		var f File
		var fileMtime, indexedAt int64
		var hasPageInfo int
		if err := rows.Scan(&f.Path, &fileMtime, &indexedAt, &f.PageCursor, &f.TotalPages, &hasPageInfo); err != nil {
			return nil, fmt.Errorf("state: scan file: %w", err)
		}
		f.FileMtime = time.Unix(0, fileMtime)
		f.IndexedAt = time.Unix(0, indexedAt)
		f.HasPageInfo = hasPageInfo != 0
		files = append(files, f)
	}
	return files, rows.Err()
}

// Close releases the underlying database handle.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db.Close()
}
