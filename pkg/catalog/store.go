package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/bastiangx/gallerysearch/internal/utils"
	"github.com/bastiangx/gallerysearch/pkg/search"
	"github.com/charmbracelet/log"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS commissions (
	id              INTEGER PRIMARY KEY,
	character       TEXT NOT NULL DEFAULT '',
	creator         TEXT NOT NULL DEFAULT '',
	creator_aliases TEXT NOT NULL DEFAULT '',
	date            TEXT NOT NULL DEFAULT '',
	file_name       TEXT NOT NULL DEFAULT '',
	design          TEXT NOT NULL DEFAULT '',
	description     TEXT NOT NULL DEFAULT '',
	keywords        TEXT NOT NULL DEFAULT '',
	search_text     TEXT NOT NULL DEFAULT '',
	suggestion_rows TEXT NOT NULL DEFAULT ''
);
`

const insertSQL = `
		INSERT OR REPLACE INTO commissions
			(id, character, creator, creator_aliases, date, file_name, design, description, keywords, search_text, suggestion_rows)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// insertArgs binds c for insertSQL. A zero ID binds NULL so SQLite assigns one.
func insertArgs(c Commission) []any {
	e := Project(c)
	var id any
	if c.ID != 0 {
		id = int64(c.ID)
	}
	return []any{
		id, c.Character, c.Creator, strings.Join(c.CreatorAliases, "\n"), c.Date, c.FileName,
		c.Design, c.Description, strings.Join(c.Keywords, "\n"),
		e.SearchText, FormatSuggestionRows(e.SuggestionRows),
	}
}

// Store is the commission table. The projected search text and suggestion
// rows are written alongside each record so loading an index needs no
// re-projection.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := MemoryPath
	if path != MemoryPath {
		if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		// modernc.org/sqlite uses _pragma=name(value) syntax
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// one connection keeps an in-memory database alive and serializes writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the schema if missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrating commissions table: %w", err)
	}
	return nil
}

// Insert writes c, replacing any record with the same ID. A zero ID lets the
// database assign one. The stored ID is returned.
func (s *Store) Insert(ctx context.Context, c Commission) (uint32, error) {
	res, err := s.db.ExecContext(ctx, insertSQL, insertArgs(c)...)
	if err != nil {
		return 0, fmt.Errorf("inserting commission: %w", err)
	}
	if c.ID != 0 {
		return c.ID, nil
	}
	last, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading inserted id: %w", err)
	}
	if last <= 0 || last > math.MaxUint32 {
		return 0, fmt.Errorf("assigned id %d out of range", last)
	}
	return uint32(last), nil
}

// InsertAll writes every commission in one transaction.
func (s *Store) InsertAll(ctx context.Context, list []Commission) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning import: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("preparing import: %w", err)
	}
	defer stmt.Close()

	for _, c := range list {
		if _, err = stmt.ExecContext(ctx, insertArgs(c)...); err != nil {
			return fmt.Errorf("importing commission %d: %w", c.ID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing import: %w", err)
	}
	return nil
}

// Delete removes the commission with the given ID.
func (s *Store) Delete(ctx context.Context, id uint32) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM commissions WHERE id = ?`, int64(id)); err != nil {
		return fmt.Errorf("deleting commission %d: %w", id, err)
	}
	return nil
}

// Get returns one commission. sql.ErrNoRows is wrapped when it is missing.
func (s *Store) Get(ctx context.Context, id uint32) (Commission, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, character, creator, creator_aliases, date, file_name, design, description, keywords
		FROM commissions WHERE id = ?`, int64(id))
	c, err := scanCommission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Commission{}, fmt.Errorf("commission %d: %w", id, err)
	}
	return c, err
}

// List returns every commission ordered by ID.
func (s *Store) List(ctx context.Context) ([]Commission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, character, creator, creator_aliases, date, file_name, design, description, keywords
		FROM commissions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing commissions: %w", err)
	}
	defer rows.Close()

	var out []Commission
	for rows.Next() {
		c, err := scanCommission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing commissions: %w", err)
	}
	return out, nil
}

// Entries loads the stored projections, ready for search.Build.
func (s *Store) Entries(ctx context.Context) ([]search.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, search_text, suggestion_rows FROM commissions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("loading entries: %w", err)
	}
	defer rows.Close()

	var out []search.Entry
	for rows.Next() {
		var (
			id   int64
			text string
			blob string
		)
		if err := rows.Scan(&id, &text, &blob); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		if id <= 0 || id > math.MaxUint32 {
			log.Warnf("Skipping commission with out of range id %d", id)
			continue
		}
		out = append(out, search.Entry{
			ID:             uint32(id),
			SearchText:     text,
			SuggestionRows: ParseSuggestionRows(blob),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading entries: %w", err)
	}
	return out, nil
}

// Reproject rewrites the stored projection of every record, for use after
// the projection rules change.
func (s *Store) Reproject(ctx context.Context) (int, error) {
	list, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.InsertAll(ctx, list); err != nil {
		return 0, err
	}
	return len(list), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCommission(r rowScanner) (Commission, error) {
	var (
		c        Commission
		id       int64
		aliases  string
		keywords string
	)
	if err := r.Scan(&id, &c.Character, &c.Creator, &aliases, &c.Date, &c.FileName,
		&c.Design, &c.Description, &keywords); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, err
		}
		return c, fmt.Errorf("scanning commission: %w", err)
	}
	c.ID = uint32(id)
	c.CreatorAliases = splitLines(aliases)
	c.Keywords = splitLines(keywords)
	return c, nil
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
