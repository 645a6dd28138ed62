package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/raysh454/harstyle/internal/logging"
	"github.com/raysh454/harstyle/internal/model"
)

//go:embed schema.sql
var schemaFS embed.FS

// SQLiteStore is a MemoryStore whose records are journaled to SQLite, so a
// run can be resumed by reopening the same file.
type SQLiteStore struct {
	mu     sync.Mutex
	db     *sql.DB
	mem    *MemoryStore
	logger logging.Logger
}

// OpenSQLiteStore opens (or creates) the journal at path and replays it.
// ":memory:" gives a throwaway journal.
func OpenSQLiteStore(ctx context.Context, path string, logger logging.Logger) (*SQLiteStore, error) {
	if logger == nil {
		return nil, errors.New("store: nil logger provided")
	}
	if path == "" {
		return nil, errors.New("store: empty sqlite path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps ":memory:" a single database and serializes writes
	db.SetMaxOpenConns(1)

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		mem:    NewMemoryStore(),
		logger: logger.With(logging.Field{Key: "component", Value: "store"}),
	}
	n, err := s.replay(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to replay journal: %w", err)
	}
	s.logger.Info("sqlite store opened",
		logging.Field{Key: "path", Value: path},
		logging.Field{Key: "replayed", Value: n})
	return s, nil
}

func applySchema(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if _, err := db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('tool_version', ?)`, model.ToolVersion); err != nil {
		return fmt.Errorf("failed to write meta: %w", err)
	}
	return nil
}

func (s *SQLiteStore) replay(ctx context.Context) (int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT group_key, url, analyzed_json, knowledge_json FROM page_records ORDER BY seq`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var group, url, analyzed, knowledge string
		if err := rows.Scan(&group, &url, &analyzed, &knowledge); err != nil {
			return n, err
		}
		ext := &model.ExtractionResult{}
		if err := json.Unmarshal([]byte(analyzed), ext); err != nil {
			return n, fmt.Errorf("record %d of %s: %w", n, group, err)
		}
		kn := &model.KnowledgeSnapshot{}
		if err := json.Unmarshal([]byte(knowledge), kn); err != nil {
			return n, fmt.Errorf("record %d of %s: %w", n, group, err)
		}
		if err := s.mem.Record(group, url, ext, kn); err != nil {
			return n, err
		}
		n++
	}
	return n, rows.Err()
}

// Record writes the page to the journal, then to memory. A failed write
// leaves the group unchanged.
func (s *SQLiteStore) Record(group, url string, ext *model.ExtractionResult, kn *model.KnowledgeSnapshot) error {
	if group == "" {
		return ErrEmptyGroup
	}
	analyzed, err := json.Marshal(ext)
	if err != nil {
		return fmt.Errorf("failed to encode extraction: %w", err)
	}
	knowledge, err := json.Marshal(kn)
	if err != nil {
		return fmt.Errorf("failed to encode knowledge: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		`INSERT INTO page_records (id, group_key, url, analyzed_json, knowledge_json, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), group, url, string(analyzed), string(knowledge), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to journal page: %w", err)
	}
	return s.mem.Record(group, url, ext, kn)
}

func (s *SQLiteStore) Get(group string) (*model.GroupState, bool) {
	return s.mem.Get(group)
}

func (s *SQLiteStore) Groups() []string {
	return s.mem.Groups()
}

func (s *SQLiteStore) Summarize() map[string]*model.GroupState {
	return s.mem.Summarize()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
