package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/memoryd/internal/embeddings"
)

// Store is the persistent entry store. One interface fronts two SQLite
// engines; selection happens once at Init and is invisible afterwards.
//
// Failure semantics: any call before a successful Init returns a neutral
// empty/zero/nil result, never an error. Underlying engine errors are
// caught at the call boundary, logged, and converted to the same neutral
// results. Only Init itself reports failure, via its boolean return.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	engine string
	path   string

	policy   string
	logger   *zap.Logger
	embedder embeddings.Provider
	model    string

	// wg tracks fire-and-forget embedding goroutines so Close can drain.
	wg sync.WaitGroup
}

// Option configures a Store.
type Option func(*Store)

// WithEmbedder attaches an embedding provider. Without one, entries are
// stored without vectors and search degrades to keyword-only.
func WithEmbedder(p embeddings.Provider, model string) Option {
	return func(s *Store) {
		s.embedder = p
		s.model = model
	}
}

// WithEnginePolicy pins the engine selection: "auto", "portable", "native".
func WithEnginePolicy(policy string) Option {
	return func(s *Store) {
		s.policy = policy
	}
}

// New creates an uninitialized Store. Call Init before use.
func New(logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		logger: logger,
		policy: "auto",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init opens or creates storage at path and runs schema migration.
//
// Idempotent for an unchanged, still-present location: a second call is a
// no-op returning true. The store re-opens (resetting state) when the
// location changed or the underlying file vanished. Returns false only
// when every engine failed or migration failed.
func (s *Store) Init(ctx context.Context, path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		if path == s.path && fileExists(path) {
			return true
		}
		// Location changed or file vanished: reset.
		if err := s.db.Close(); err != nil {
			s.logger.Warn("closing previous engine", zap.Error(err))
		}
		s.db = nil
	}

	db, engine, err := openEngine(path, s.policy, s.logger)
	if err != nil {
		s.logger.Error("store initialization failed", zap.String("path", path), zap.Error(err))
		return false
	}

	if err := migrate(db, s.logger); err != nil {
		// Data-loss risk: never swallowed silently.
		s.logger.Error("schema migration failed", zap.String("path", path), zap.Error(err))
		db.Close()
		return false
	}

	s.db = db
	s.engine = engine
	s.path = path
	s.logger.Info("store initialized",
		zap.String("path", path),
		zap.String("engine", engine))
	return true
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Engine returns the selected engine name ("portable" or "native"), or ""
// before Init.
func (s *Store) Engine() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// Path returns the storage location, or "" before Init.
func (s *Store) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

func (s *Store) dbHandle() *sql.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

// AppendEntry inserts a new entry and returns its id, or nil if the store
// is not ready or the insert failed. Embedding generation for the content
// is triggered fire-and-forget; the caller does not await it.
func (s *Store) AppendEntry(ctx context.Context, e *Entry) *int64 {
	db := s.dbHandle()
	if db == nil || e == nil {
		return nil
	}
	if !IsValidCategory(string(e.Category)) {
		s.logger.Warn("rejecting entry with invalid category", zap.String("category", string(e.Category)))
		return nil
	}
	if e.Phase != nil && !IsValidPhase(string(*e.Phase)) {
		s.logger.Warn("rejecting entry with invalid phase", zap.String("phase", string(*e.Phase)))
		return nil
	}
	if e.ProgressStatus != nil && !IsValidProgressStatus(string(*e.ProgressStatus)) {
		s.logger.Warn("rejecting entry with invalid progress status", zap.String("progress_status", string(*e.ProgressStatus)))
		return nil
	}

	start := time.Now()
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	tag := e.Tag
	if tag == "" {
		tag = fmt.Sprintf("%s:%s", e.Category, ts.Format("2006-01-02"))
	}
	metadata := e.Metadata
	if metadata == "" {
		metadata = "{}"
	}

	res, err := db.ExecContext(ctx, `INSERT INTO entries
		(category, timestamp, tag, content, metadata, phase, progress_status, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(e.Category), ts.UTC().Format(time.RFC3339), tag, e.Content, metadata,
		phaseValue(e.Phase), statusValue(e.ProgressStatus), e.Embedding)
	if err != nil {
		s.logger.Error("append failed", zap.Error(err))
		return nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		s.logger.Error("append: reading inserted id", zap.Error(err))
		return nil
	}

	if e.Embedding == nil {
		s.triggerEmbedding(id, e.Content)
	}
	s.recordOperation(ctx, "append", start, 1)
	return &id
}

// UpdateEntry mutates only the supplied fields. Content changes invalidate
// the stored embedding and re-trigger generation. Returns false when
// nothing was supplied, the id is unknown, or the store is not ready.
func (s *Store) UpdateEntry(ctx context.Context, id int64, fields UpdateFields) bool {
	db := s.dbHandle()
	if db == nil || fields.IsEmpty() {
		return false
	}
	if fields.Phase != nil && !IsValidPhase(string(*fields.Phase)) {
		s.logger.Warn("rejecting update with invalid phase", zap.Int64("id", id), zap.String("phase", string(*fields.Phase)))
		return false
	}
	if fields.ProgressStatus != nil && !IsValidProgressStatus(string(*fields.ProgressStatus)) {
		s.logger.Warn("rejecting update with invalid progress status", zap.Int64("id", id), zap.String("progress_status", string(*fields.ProgressStatus)))
		return false
	}

	set := make([]string, 0, 6)
	args := make([]any, 0, 7)
	if fields.Content != nil {
		set = append(set, "content = ?", "embedding = NULL")
		args = append(args, *fields.Content)
	}
	if fields.Tag != nil {
		set = append(set, "tag = ?")
		args = append(args, *fields.Tag)
	}
	if fields.Metadata != nil {
		set = append(set, "metadata = ?")
		args = append(args, *fields.Metadata)
	}
	if fields.Phase != nil {
		set = append(set, "phase = ?")
		args = append(args, string(*fields.Phase))
	}
	if fields.ProgressStatus != nil {
		set = append(set, "progress_status = ?")
		args = append(args, string(*fields.ProgressStatus))
	}
	args = append(args, id)

	res, err := db.ExecContext(ctx,
		"UPDATE entries SET "+strings.Join(set, ", ")+" WHERE id = ?", args...)
	if err != nil {
		s.logger.Error("update failed", zap.Int64("id", id), zap.Error(err))
		return false
	}
	affected, err := res.RowsAffected()
	if err != nil || affected == 0 {
		return false
	}

	if fields.Content != nil {
		s.triggerEmbedding(id, *fields.Content)
	}
	return true
}

// GetEntryByID returns the entry or nil when absent or the store is not
// ready.
func (s *Store) GetEntryByID(ctx context.Context, id int64) *Entry {
	entries := s.queryEntries(ctx, "get_by_id",
		selectColumns+" FROM entries WHERE id = ?", id)
	if len(entries) == 0 {
		return nil
	}
	return &entries[0]
}

// QueryByType returns up to limit category-C entries, newest first.
func (s *Store) QueryByType(ctx context.Context, category Category, limit int) []Entry {
	return s.queryEntries(ctx, "query_by_type",
		selectColumns+` FROM entries WHERE category = ?
		ORDER BY timestamp DESC, id DESC LIMIT ?`,
		string(category), normalizeLimit(limit))
}

// QueryByDateRange returns category entries created in [start, end],
// newest first.
func (s *Store) QueryByDateRange(ctx context.Context, category Category, start, end time.Time) []Entry {
	return s.queryEntries(ctx, "query_by_date_range",
		selectColumns+` FROM entries
		WHERE category = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp DESC, id DESC`,
		string(category), start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))
}

// QueryByPhase returns up to limit entries in the given phase, newest first.
func (s *Store) QueryByPhase(ctx context.Context, phase Phase, limit int) []Entry {
	return s.queryEntries(ctx, "query_by_phase",
		selectColumns+` FROM entries WHERE phase = ?
		ORDER BY timestamp DESC, id DESC LIMIT ?`,
		string(phase), normalizeLimit(limit))
}

// FullTextSearch returns entries whose tag or content contains the
// substring, newest first.
func (s *Store) FullTextSearch(ctx context.Context, substring string, limit int) []Entry {
	pattern := "%" + escapeLike(substring) + "%"
	return s.queryEntries(ctx, "full_text_search",
		selectColumns+` FROM entries
		WHERE content LIKE ? ESCAPE '\' OR tag LIKE ? ESCAPE '\'
		ORDER BY timestamp DESC, id DESC LIMIT ?`,
		pattern, pattern, normalizeLimit(limit))
}

// QueryEntriesWithEmbeddings returns up to limit entries that have a
// stored vector, newest first.
func (s *Store) QueryEntriesWithEmbeddings(ctx context.Context, limit int) []Entry {
	return s.queryEntries(ctx, "query_with_embeddings",
		selectColumns+` FROM entries WHERE embedding IS NOT NULL
		ORDER BY timestamp DESC, id DESC LIMIT ?`,
		normalizeLimit(limit))
}

// QueryAll returns up to limit entries, newest first. Used by the scorer
// and allocator to gather the candidate pool.
func (s *Store) QueryAll(ctx context.Context, limit int) []Entry {
	return s.queryEntries(ctx, "query_all",
		selectColumns+` FROM entries ORDER BY timestamp DESC, id DESC LIMIT ?`,
		normalizeLimit(limit))
}

// GetEntryCounts returns total and per-category entry counts.
func (s *Store) GetEntryCounts(ctx context.Context) EntryCounts {
	counts := EntryCounts{ByCategory: make(map[string]int)}
	db := s.dbHandle()
	if db == nil {
		return counts
	}

	rows, err := db.QueryContext(ctx, "SELECT category, COUNT(*) FROM entries GROUP BY category")
	if err != nil {
		s.logger.Error("counting entries failed", zap.Error(err))
		return counts
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			s.logger.Error("scanning entry counts", zap.Error(err))
			return EntryCounts{ByCategory: make(map[string]int)}
		}
		counts.ByCategory[category] = n
		counts.Total += n
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("reading entry counts", zap.Error(err))
	}
	return counts
}

// CountEntriesWithEmbeddings returns how many entries carry a stored
// vector.
func (s *Store) CountEntriesWithEmbeddings(ctx context.Context) int {
	db := s.dbHandle()
	if db == nil {
		return 0
	}
	var n int
	if err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM entries WHERE embedding IS NOT NULL").Scan(&n); err != nil {
		s.logger.Error("counting embedded entries failed", zap.Error(err))
		return 0
	}
	return n
}

// BackfillEmbeddings generates vectors for entries that lack one, one
// entry at a time. The loop is interruptible: ctx cancellation stops it
// between entries, leaving a valid, resumable partial state. Returns the
// number of entries embedded.
func (s *Store) BackfillEmbeddings(ctx context.Context, limit int) int {
	db := s.dbHandle()
	if db == nil || s.embedder == nil {
		return 0
	}

	pending := s.queryEntries(ctx, "backfill_scan",
		selectColumns+` FROM entries WHERE embedding IS NULL AND content != ''
		ORDER BY timestamp DESC, id DESC LIMIT ?`, normalizeLimit(limit))

	done := 0
	for i := range pending {
		select {
		case <-ctx.Done():
			s.logger.Info("backfill interrupted", zap.Int("embedded", done), zap.Int("remaining", len(pending)-i))
			return done
		default:
		}
		if s.embedEntry(ctx, pending[i].ID, pending[i].Content) {
			done++
		}
	}
	return done
}

// Close drains pending embedding work, flushes and releases the engine.
func (s *Store) Close() error {
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.engine = ""
	s.path = ""
	return err
}

// --- embedding generation ---

// triggerEmbedding starts fire-and-forget vector generation. A burst of
// writes can leave embeddings pending after the calls return; readers
// treat NULL embeddings as normal.
func (s *Store) triggerEmbedding(id int64, content string) {
	if s.embedder == nil || content == "" {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.embedEntry(context.Background(), id, content)
	}()
}

// embedEntry generates, quantizes and stores one entry's vector.
// Failures degrade: the entry simply keeps a NULL embedding.
func (s *Store) embedEntry(ctx context.Context, id int64, content string) bool {
	start := time.Now()
	vectors, err := s.embedder.EmbedDocuments(ctx, []string{content})
	embeddings.GenerationDuration.WithLabelValues("embed_documents").Observe(time.Since(start).Seconds())
	if err != nil || len(vectors) == 0 {
		embeddings.GenerationTotal.WithLabelValues("embed_documents", "error").Inc()
		s.recordTokenUsage(ctx, len(content)/4, "failed")
		s.logger.Debug("embedding generation failed", zap.Int64("id", id), zap.Error(err))
		return false
	}
	embeddings.GenerationTotal.WithLabelValues("embed_documents", "success").Inc()
	s.recordTokenUsage(ctx, len(content)/4, "ok")

	code, err := embeddings.Quantize(vectors[0])
	if err != nil {
		s.logger.Warn("quantization failed", zap.Int64("id", id), zap.Error(err))
		return false
	}

	db := s.dbHandle()
	if db == nil {
		return false
	}
	if _, err := db.ExecContext(ctx, "UPDATE entries SET embedding = ? WHERE id = ?", code, id); err != nil {
		s.logger.Error("storing embedding failed", zap.Int64("id", id), zap.Error(err))
		return false
	}
	return true
}

// --- internals ---

const selectColumns = `SELECT id, category, timestamp, tag, content, metadata, phase, progress_status, embedding`

// queryEntries is the single execution seam all reads route through.
func (s *Store) queryEntries(ctx context.Context, operation, query string, args ...any) []Entry {
	db := s.dbHandle()
	if db == nil {
		return nil
	}

	start := time.Now()
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("query failed", zap.String("operation", operation), zap.Error(err))
		return nil
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			s.logger.Error("scanning entry failed", zap.String("operation", operation), zap.Error(err))
			return nil
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("reading entries failed", zap.String("operation", operation), zap.Error(err))
		return nil
	}

	s.recordOperation(ctx, operation, start, len(entries))
	return entries
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e         Entry
		category  string
		timestamp string
		phase     sql.NullString
		status    sql.NullString
	)
	if err := rows.Scan(&e.ID, &category, &timestamp, &e.Tag, &e.Content,
		&e.Metadata, &phase, &status, &e.Embedding); err != nil {
		return Entry{}, err
	}
	e.Category = Category(category)
	if ts, err := time.Parse(time.RFC3339, timestamp); err == nil {
		e.Timestamp = ts
	}
	if phase.Valid {
		p := Phase(phase.String)
		e.Phase = &p
	}
	if status.Valid {
		st := ProgressStatus(status.String)
		e.ProgressStatus = &st
	}
	return e, nil
}

func phaseValue(p *Phase) any {
	if p == nil {
		return nil
	}
	return string(*p)
}

func statusValue(st *ProgressStatus) any {
	if st == nil {
		return nil
	}
	return string(*st)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}

// escapeLike escapes LIKE wildcards in user input.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
