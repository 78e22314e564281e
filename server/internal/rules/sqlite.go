package rules

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/obsidianstack/synthetics/pkg/types"
)

//go:embed sqlite_schema.sql
var sqliteSchema string

const ruleColumns = `id, rule_type_id, name, consumer, schedule_interval, tags, enabled,
	throttle, notify_when, params, actions, created_at, updated_at`

// SQLite is a Registry backed by a SQLite database file.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite creates or opens the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
//
// The database is configured with WAL mode, a 5-second busy timeout and a
// single connection, so writes are serialized.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("rules sqlite: open %q: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("rules sqlite: connect %q: %w", path, err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("rules sqlite: %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("rules sqlite: apply schema: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Find implements Registry.
func (s *SQLite) Find(ctx context.Context, opts FindOptions) (*FindResult, error) {
	page, perPage := normalizePage(opts)
	where, args := "", []any{}
	if opts.RuleTypeID != "" {
		where, args = " WHERE rule_type_id = ?", append(args, opts.RuleTypeID)
	}

	res := &FindResult{Page: page, PerPage: perPage, Data: []*types.Rule{}}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rules"+where, args...).Scan(&res.Total); err != nil {
		return nil, fmt.Errorf("rules sqlite: count: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+ruleColumns+" FROM rules"+where+" ORDER BY created_at, rowid LIMIT ? OFFSET ?",
		append(args, perPage, (page-1)*perPage)...)
	if err != nil {
		return nil, fmt.Errorf("rules sqlite: find: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		r, err := scanSQLiteRule(rows)
		if err != nil {
			return nil, fmt.Errorf("rules sqlite: find: %w", err)
		}
		res.Data = append(res.Data, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rules sqlite: find: %w", err)
	}
	return res, nil
}

// Get implements Registry.
func (s *SQLite) Get(ctx context.Context, id string) (*types.Rule, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+ruleColumns+" FROM rules WHERE id = ?", id)
	r, err := scanSQLiteRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("rules sqlite: get %q: %w", id, err)
	}
	return r, nil
}

// Create implements Registry.
func (s *SQLite) Create(ctx context.Context, def Definition) (*types.Rule, error) {
	id := uuid.NewString()
	if _, err := s.insert(ctx, id, def, false); err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("rules sqlite: create: %w", err)
	}
	return s.Get(ctx, id)
}

// CreateIfAbsent implements AtomicCreator using the partial unique index on
// default rules.
func (s *SQLite) CreateIfAbsent(ctx context.Context, def Definition) (*types.Rule, bool, error) {
	if !isDefault(def.Tags) {
		r, err := s.Create(ctx, def)
		return r, err == nil, err
	}
	id := uuid.NewString()
	n, err := s.insert(ctx, id, def, true)
	if err != nil {
		return nil, false, fmt.Errorf("rules sqlite: create if absent: %w", err)
	}
	if n == 1 {
		r, err := s.Get(ctx, id)
		return r, err == nil, err
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT "+ruleColumns+" FROM rules WHERE rule_type_id = ? AND is_default = 1", def.RuleTypeID)
	r, err := scanSQLiteRule(row)
	if err != nil {
		return nil, false, fmt.Errorf("rules sqlite: read existing default: %w", err)
	}
	return r, false, nil
}

// Update implements Registry.
func (s *SQLite) Update(ctx context.Context, id string, p Patch) (*types.Rule, error) {
	enc, err := encodeColumns(p.Tags, p.Params, p.Actions)
	if err != nil {
		return nil, fmt.Errorf("rules sqlite: update: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE rules
		SET name = ?, tags = ?, is_default = ?, schedule_interval = ?, params = ?,
		    notify_when = ?, actions = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, string(enc.tags), isDefault(p.Tags), p.Schedule.Interval, string(enc.params),
		p.NotifyWhen, string(enc.actions), s.now().UnixNano(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("rules sqlite: update %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *SQLite) insert(ctx context.Context, id string, def Definition, ignoreConflict bool) (int64, error) {
	enc, err := encodeColumns(def.Tags, def.Params, def.Actions)
	if err != nil {
		return 0, err
	}
	q := `INSERT INTO rules
		(id, rule_type_id, name, consumer, schedule_interval, tags, is_default, enabled,
		 throttle, notify_when, params, actions, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if ignoreConflict {
		q += " ON CONFLICT DO NOTHING"
	}
	now := s.now().UnixNano()
	res, err := s.db.ExecContext(ctx, q,
		id, def.RuleTypeID, def.Name, def.Consumer, def.Schedule.Interval, string(enc.tags),
		isDefault(def.Tags), def.Enabled, def.Throttle, def.NotifyWhen,
		string(enc.params), string(enc.actions), now, now,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRule(row rowScanner) (*types.Rule, error) {
	var (
		r                     types.Rule
		tags, params, actions string
		throttle              sql.NullString
		createdAt, updatedAt  int64
	)
	if err := row.Scan(&r.ID, &r.RuleTypeID, &r.Name, &r.Consumer, &r.Schedule.Interval, &tags,
		&r.Enabled, &throttle, &r.NotifyWhen, &params, &actions, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if throttle.Valid {
		r.Throttle = &throttle.String
	}
	r.CreatedAt = time.Unix(0, createdAt).UTC()
	r.UpdatedAt = time.Unix(0, updatedAt).UTC()
	if err := decodeColumns(&r, []byte(tags), []byte(params), []byte(actions)); err != nil {
		return nil, err
	}
	return &r, nil
}
