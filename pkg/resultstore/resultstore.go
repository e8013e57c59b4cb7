// Package resultstore keeps oversized tool outputs out of conversation
// history. Each stored result is addressed by an opaque handle that is
// cheap to embed in a message; the full payload stays in SQLite until
// it is deleted or its session is cleaned up.
package resultstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	_ "modernc.org/sqlite"

	"github.com/typhonlabs/missioncore/pkg/logger"
)

// SchemaVersion is stamped onto every handle at Put time so future
// readers can tell how the payload was serialized.
const SchemaVersion = 1

// ErrNotFound is returned by Fetch for unknown or deleted handles.
var ErrNotFound = errors.New("resultstore: handle not found")

// largeFields are the payload fields Fetch may truncate when a caller
// asks for a capped view of a stored result.
var largeFields = []string{"output", "content", "stdout", "stderr", "data"}

// Handle identifies one stored result. Messages carry the handle id and
// a short preview, never the payload itself.
type Handle struct {
	ID            string         `json:"id"`
	Tool          string         `json:"tool"`
	CreatedAt     time.Time      `json:"created_at"`
	SizeBytes     int            `json:"size_bytes"`
	SizeChars     int            `json:"size_chars"`
	SchemaVersion int            `json:"schema_version"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// FetchOptions narrows what Fetch returns. Selector is a gjson path
// evaluated against the stored payload; MaxChars, when positive, is
// spread evenly across the large payload fields that are present.
type FetchOptions struct {
	Selector string
	MaxChars int
}

// FetchResult pairs the payload view with the handle it came from. The
// handle metadata is always intact even when the payload was truncated.
type FetchResult struct {
	Handle    Handle
	Payload   json.RawMessage
	Truncated bool
}

// Stats summarizes the store contents.
type Stats struct {
	TotalResults int       `json:"total_results"`
	TotalBytes   int64     `json:"total_bytes"`
	Oldest       time.Time `json:"oldest,omitempty"`
	Newest       time.Time `json:"newest,omitempty"`
}

// Store persists tool results in a single SQLite database. Payloads are
// write-once: reads take no lock, writes and deletes for the same
// handle id are serialized through a lazily created per-id mutex.
type Store struct {
	db    *sql.DB
	locks sync.Map // handle id -> *sync.Mutex
}

// New opens (creating if needed) the store database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open result store: %w", err)
	}
	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS tool_results (
		id TEXT PRIMARY KEY,
		tool TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		size_bytes INTEGER NOT NULL,
		size_chars INTEGER NOT NULL,
		schema_version INTEGER NOT NULL,
		metadata JSON,
		payload BLOB NOT NULL
	);`)
	if err != nil {
		return fmt.Errorf("init result store schema: %w", err)
	}
	return nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) lockFor(id string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Put serializes result, persists it under a fresh handle id, and
// returns the handle. sessionID, when non-empty, is recorded in the
// handle metadata so CleanupSession can find it later.
func (s *Store) Put(ctx context.Context, toolName string, result any, sessionID string, metadata map[string]any) (*Handle, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("serialize result for %s: %w", toolName, err)
	}

	meta := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	if sessionID != "" {
		meta["session_id"] = sessionID
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("serialize metadata for %s: %w", toolName, err)
	}

	h := &Handle{
		ID:            uuid.NewString(),
		Tool:          toolName,
		CreatedAt:     time.Now().UTC(),
		SizeBytes:     len(payload),
		SizeChars:     utf8.RuneCount(payload),
		SchemaVersion: SchemaVersion,
		Metadata:      meta,
	}

	mu := s.lockFor(h.ID)
	mu.Lock()
	defer mu.Unlock()

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO tool_results VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		h.ID, h.Tool, h.CreatedAt, h.SizeBytes, h.SizeChars, h.SchemaVersion, metaJSON, payload)
	if err != nil {
		return nil, fmt.Errorf("store result for %s: %w", toolName, err)
	}

	logger.DebugCF("resultstore", "stored tool result", map[string]any{
		"handle": h.ID,
		"tool":   toolName,
		"bytes":  h.SizeBytes,
	})
	return h, nil
}

// Fetch loads the result stored under handleID. Results are immutable
// after Put, so no lock is taken. Returns ErrNotFound when the handle
// does not exist.
func (s *Store) Fetch(ctx context.Context, handleID string, opts FetchOptions) (*FetchResult, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, tool, created_at, size_bytes, size_chars, schema_version, metadata, payload FROM tool_results WHERE id=?",
		handleID)

	var h Handle
	var metaJSON, payload []byte
	err := row.Scan(&h.ID, &h.Tool, &h.CreatedAt, &h.SizeBytes, &h.SizeChars, &h.SchemaVersion, &metaJSON, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load result %s: %w", handleID, err)
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &h.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for %s: %w", handleID, err)
		}
	}

	res := &FetchResult{Handle: h, Payload: payload}

	if opts.Selector != "" {
		v := gjson.GetBytes(payload, opts.Selector)
		if !v.Exists() {
			return nil, fmt.Errorf("selector %q matched nothing in result %s", opts.Selector, handleID)
		}
		if v.Index > 0 {
			res.Payload = payload[v.Index : v.Index+len(v.Raw)]
		} else {
			res.Payload = json.RawMessage(v.Raw)
		}
	}

	if opts.MaxChars > 0 {
		capped, truncated, err := capLargeFields(res.Payload, opts.MaxChars)
		if err != nil {
			return nil, fmt.Errorf("truncate result %s: %w", handleID, err)
		}
		res.Payload = capped
		res.Truncated = truncated
	}
	return res, nil
}

// Delete removes the result stored under handleID. It reports whether a
// result was actually removed.
func (s *Store) Delete(ctx context.Context, handleID string) (bool, error) {
	mu := s.lockFor(handleID)
	mu.Lock()
	defer mu.Unlock()

	r, err := s.db.ExecContext(ctx, "DELETE FROM tool_results WHERE id=?", handleID)
	if err != nil {
		return false, fmt.Errorf("delete result %s: %w", handleID, err)
	}
	n, _ := r.RowsAffected()
	s.locks.Delete(handleID)
	return n > 0, nil
}

// CleanupSession deletes every result whose metadata names sessionID,
// returning how many were removed. Entries with unreadable metadata are
// logged and skipped rather than failing the sweep.
func (s *Store) CleanupSession(ctx context.Context, sessionID string) (int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, metadata FROM tool_results")
	if err != nil {
		return 0, fmt.Errorf("scan results for session %s: %w", sessionID, err)
	}

	var matches []string
	for rows.Next() {
		var id string
		var metaJSON []byte
		if err := rows.Scan(&id, &metaJSON); err != nil {
			logger.WarnCF("resultstore", "skipping unreadable row during cleanup", map[string]any{
				"error": err.Error(),
			})
			continue
		}
		var meta map[string]any
		if err := json.Unmarshal(metaJSON, &meta); err != nil {
			logger.WarnCF("resultstore", "skipping corrupt metadata during cleanup", map[string]any{
				"handle": id,
				"error":  err.Error(),
			})
			continue
		}
		if sid, _ := meta["session_id"].(string); sid == sessionID {
			matches = append(matches, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("scan results for session %s: %w", sessionID, err)
	}

	count := 0
	for _, id := range matches {
		removed, err := s.Delete(ctx, id)
		if err != nil {
			logger.WarnCF("resultstore", "failed to delete result during cleanup", map[string]any{
				"handle": id,
				"error":  err.Error(),
			})
			continue
		}
		if removed {
			count++
		}
	}

	logger.InfoCF("resultstore", "session cleanup complete", map[string]any{
		"session": sessionID,
		"removed": count,
	})
	return count, nil
}

// Stats reports aggregate store contents.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM tool_results")

	var st Stats
	if err := row.Scan(&st.TotalResults, &st.TotalBytes); err != nil {
		return nil, fmt.Errorf("collect store stats: %w", err)
	}
	if st.TotalResults == 0 {
		return &st, nil
	}

	// Aggregate MIN/MAX expressions lose the column's declared type, so
	// read the boundary timestamps off the column itself.
	err := s.db.QueryRowContext(ctx,
		"SELECT created_at FROM tool_results ORDER BY created_at ASC LIMIT 1").Scan(&st.Oldest)
	if err != nil {
		return nil, fmt.Errorf("collect store stats: %w", err)
	}
	err = s.db.QueryRowContext(ctx,
		"SELECT created_at FROM tool_results ORDER BY created_at DESC LIMIT 1").Scan(&st.Newest)
	if err != nil {
		return nil, fmt.Errorf("collect store stats: %w", err)
	}
	return &st, nil
}

// capLargeFields truncates the well-known large string fields of a JSON
// object payload, spreading maxChars evenly across the fields that are
// present. Non-object payloads pass through untouched.
func capLargeFields(payload json.RawMessage, maxChars int) (json.RawMessage, bool, error) {
	var obj map[string]any
	if err := json.Unmarshal(payload, &obj); err != nil {
		return payload, false, nil
	}

	present := make([]string, 0, len(largeFields))
	for _, f := range largeFields {
		if _, ok := obj[f].(string); ok {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return payload, false, nil
	}

	perField := maxChars / len(present)
	truncated := false
	for _, f := range present {
		s := obj[f].(string)
		runes := []rune(s)
		if len(runes) > perField {
			obj[f] = string(runes[:perField]) + "..."
			truncated = true
		}
	}
	if !truncated {
		return payload, false, nil
	}

	out, err := json.Marshal(obj)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}
