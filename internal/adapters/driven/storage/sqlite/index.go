package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/kbase/internal/adapters/driven/storage/codec"
	"github.com/custodia-labs/kbase/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/kbase/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/logger"
)

// FileName is the database file inside the vector store directory.
const FileName = "index.db"

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index is a vector index persisted to a single SQLite file. Searches run
// against the embedded in-memory index.
type Index struct {
	*memory.Index
	dir string
}

// NewIndex creates an index rooted at dir. Nothing is read until Load.
func NewIndex(dir string, metric domain.Metric, model string) (*Index, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("%w: vector store directory is required", domain.ErrConfiguration)
	}
	mem, err := memory.NewIndex(metric, model)
	if err != nil {
		return nil, err
	}
	return &Index{Index: mem, dir: dir}, nil
}

// Path returns the database file path.
func (x *Index) Path() string {
	return filepath.Join(x.dir, FileName)
}

// Persist writes every entry to a fresh database and renames it over the
// previous one.
func (x *Index) Persist(ctx context.Context) error {
	entries, info := x.Entries()
	info.BuiltAt = time.Now().UTC()

	if err := os.MkdirAll(x.dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating %s: %w", domain.ErrIndexPersistence, x.dir, err)
	}

	tmp := x.Path() + ".tmp"
	removeDBFiles(tmp)

	if err := writeDatabase(ctx, tmp, entries, info); err != nil {
		removeDBFiles(tmp)
		return fmt.Errorf("%w: writing %s: %w", domain.ErrIndexPersistence, tmp, err)
	}

	removeSidecars(x.Path())
	if err := os.Rename(tmp, x.Path()); err != nil {
		removeDBFiles(tmp)
		return fmt.Errorf("%w: replacing %s: %w", domain.ErrIndexPersistence, x.Path(), err)
	}

	x.MarkBuilt(info.BuiltAt)
	logger.Debug("sqlite: persisted %d entries to %s", len(entries), x.Path())
	return nil
}

// Load replaces the in-memory entries with the persisted ones.
// A missing database is an empty index.
func (x *Index) Load(ctx context.Context) error {
	path := x.Path()
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug("sqlite: no index at %s, starting empty", path)
			return x.Replace(nil, domain.IndexInfo{Metric: x.Metric()})
		}
		return fmt.Errorf("%w: %w", domain.ErrIndexPersistence, err)
	}

	db, err := openDatabase(path)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrIndexPersistence, err)
	}
	defer db.Close()

	info, err := readInfo(ctx, db)
	if err != nil {
		return err
	}
	entries, err := readEntries(ctx, db)
	if err != nil {
		return err
	}
	if len(entries) != info.Count {
		return fmt.Errorf("%w: index records %d entries, found %d",
			domain.ErrIndexPersistence, info.Count, len(entries))
	}

	if err := x.Replace(entries, info); err != nil {
		return err
	}
	logger.Debug("sqlite: loaded %d entries from %s", len(entries), path)
	return nil
}

// Purge removes the database file and clears the in-memory entries.
func (x *Index) Purge(_ context.Context) error {
	x.Reset()
	for _, p := range []string{x.Path(), x.Path() + ".tmp"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: removing %s: %w", domain.ErrIndexPersistence, p, err)
		}
		removeSidecars(p)
	}
	return nil
}

func openDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func writeDatabase(ctx context.Context, path string, entries []domain.IndexEntry, info domain.IndexInfo) error {
	db, err := openDatabase(path)
	if err != nil {
		return err
	}

	if err := populate(ctx, db, entries, info); err != nil {
		db.Close()
		return err
	}
	if err := db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

func populate(ctx context.Context, db *sql.DB, entries []domain.IndexEntry, info domain.IndexInfo) error {
	if err := migrate(ctx, db, migrations.FS); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (id, source_id, chunk_index, text, char_start, char_end, vector, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		meta, err := codec.MarshalMetadata(e.Metadata)
		if err != nil {
			return err
		}
		c := e.Chunk
		if _, err := stmt.ExecContext(ctx, c.ID, c.SourceID, c.Index, c.Text, c.CharStart, c.CharEnd,
			codec.EncodeVector(e.Vector), meta); err != nil {
			return fmt.Errorf("inserting entry %d: %w", i, err)
		}
	}

	for k, v := range codec.InfoToMeta(info) {
		if _, err := tx.ExecContext(ctx, `INSERT INTO index_meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("writing meta %s: %w", k, err)
		}
	}

	return tx.Commit()
}

func readInfo(ctx context.Context, db *sql.DB) (domain.IndexInfo, error) {
	rows, err := db.QueryContext(ctx, `SELECT key, value FROM index_meta`)
	if err != nil {
		return domain.IndexInfo{}, fmt.Errorf("%w: reading index meta: %w", domain.ErrIndexPersistence, err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return domain.IndexInfo{}, fmt.Errorf("%w: scanning meta: %w", domain.ErrIndexPersistence, err)
		}
		meta[k] = v
	}
	if err := rows.Err(); err != nil {
		return domain.IndexInfo{}, fmt.Errorf("%w: %w", domain.ErrIndexPersistence, err)
	}
	return codec.MetaToInfo(meta)
}

func readEntries(ctx context.Context, db *sql.DB) ([]domain.IndexEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, source_id, chunk_index, text, char_start, char_end, vector, metadata
		FROM entries ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying entries: %w", domain.ErrIndexPersistence, err)
	}
	defer rows.Close()

	var entries []domain.IndexEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexPersistence, err)
	}
	return entries, nil
}

func scanEntry(rows *sql.Rows) (domain.IndexEntry, error) {
	var rec codec.Record
	var blob []byte
	var metadataJSON string

	if err := rows.Scan(&rec.ID, &rec.SourceID, &rec.Index, &rec.Text,
		&rec.CharStart, &rec.CharEnd, &blob, &metadataJSON); err != nil {
		return domain.IndexEntry{}, fmt.Errorf("%w: scanning entry: %w", domain.ErrIndexPersistence, err)
	}

	vec, err := codec.DecodeVector(blob)
	if err != nil {
		return domain.IndexEntry{}, err
	}
	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &rec.Metadata); err != nil {
			return domain.IndexEntry{}, fmt.Errorf("%w: unmarshalling metadata: %w", domain.ErrIndexPersistence, err)
		}
	}
	return rec.Entry(vec), nil
}

// migrate runs all pending migrations.
func migrate(ctx context.Context, db *sql.DB, fsys fs.FS) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	dirEntries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range dirEntries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_index.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

func removeSidecars(path string) {
	for _, suffix := range []string{"-wal", "-shm", "-journal"} {
		_ = os.Remove(path + suffix)
	}
}

func removeDBFiles(path string) {
	_ = os.Remove(path)
	removeSidecars(path)
}
