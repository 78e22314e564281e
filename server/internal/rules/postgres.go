package rules

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/obsidianstack/synthetics/pkg/types"
)

//go:embed postgres_schema.sql
var postgresSchema string

const pgUniqueViolation = "23505"

// Postgres is a Registry backed by a PostgreSQL table.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn, verifies the connection and applies the schema.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("rules postgres: connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("rules postgres: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("rules postgres: apply schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// Find implements Registry.
func (p *Postgres) Find(ctx context.Context, opts FindOptions) (*FindResult, error) {
	page, perPage := normalizePage(opts)
	res := &FindResult{Page: page, PerPage: perPage, Data: []*types.Rule{}}

	// An empty filter matches every rule.
	const filter = ` WHERE ($1 = '' OR rule_type_id = $1)`
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM synthetics_rules`+filter, opts.RuleTypeID).
		Scan(&res.Total); err != nil {
		return nil, fmt.Errorf("rules postgres: count: %w", err)
	}

	rows, err := p.pool.Query(ctx,
		`SELECT `+ruleColumns+` FROM synthetics_rules`+filter+` ORDER BY created_at, id LIMIT $2 OFFSET $3`,
		opts.RuleTypeID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, fmt.Errorf("rules postgres: find: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		r, err := scanPostgresRule(rows)
		if err != nil {
			return nil, fmt.Errorf("rules postgres: find: %w", err)
		}
		res.Data = append(res.Data, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rules postgres: find: %w", err)
	}
	return res, nil
}

// Get implements Registry.
func (p *Postgres) Get(ctx context.Context, id string) (*types.Rule, error) {
	r, err := scanPostgresRule(p.pool.QueryRow(ctx,
		`SELECT `+ruleColumns+` FROM synthetics_rules WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("rules postgres: get %q: %w", id, err)
	}
	return r, nil
}

// Create implements Registry.
func (p *Postgres) Create(ctx context.Context, def Definition) (*types.Rule, error) {
	id := uuid.NewString()
	if _, err := p.insert(ctx, id, def, false); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("rules postgres: create: %w", err)
	}
	return p.Get(ctx, id)
}

// CreateIfAbsent implements AtomicCreator.
func (p *Postgres) CreateIfAbsent(ctx context.Context, def Definition) (*types.Rule, bool, error) {
	if !isDefault(def.Tags) {
		r, err := p.Create(ctx, def)
		return r, err == nil, err
	}
	id := uuid.NewString()
	n, err := p.insert(ctx, id, def, true)
	if err != nil {
		return nil, false, fmt.Errorf("rules postgres: create if absent: %w", err)
	}
	if n == 1 {
		r, err := p.Get(ctx, id)
		return r, err == nil, err
	}
	r, err := scanPostgresRule(p.pool.QueryRow(ctx,
		`SELECT `+ruleColumns+` FROM synthetics_rules WHERE rule_type_id = $1 AND is_default`, def.RuleTypeID))
	if err != nil {
		return nil, false, fmt.Errorf("rules postgres: read existing default: %w", err)
	}
	return r, false, nil
}

// Update implements Registry.
func (p *Postgres) Update(ctx context.Context, id string, patch Patch) (*types.Rule, error) {
	enc, err := encodeColumns(patch.Tags, patch.Params, patch.Actions)
	if err != nil {
		return nil, fmt.Errorf("rules postgres: update: %w", err)
	}
	tag, err := p.pool.Exec(ctx, `
		UPDATE synthetics_rules
		SET name=$1, tags=$2, is_default=$3, schedule_interval=$4, params=$5,
		    notify_when=$6, actions=$7, updated_at=now()
		WHERE id=$8`,
		patch.Name, enc.tags, isDefault(patch.Tags), patch.Schedule.Interval, enc.params,
		patch.NotifyWhen, enc.actions, id,
	)
	if err != nil {
		return nil, fmt.Errorf("rules postgres: update %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return p.Get(ctx, id)
}

func (p *Postgres) insert(ctx context.Context, id string, def Definition, ignoreConflict bool) (int64, error) {
	enc, err := encodeColumns(def.Tags, def.Params, def.Actions)
	if err != nil {
		return 0, err
	}
	q := `INSERT INTO synthetics_rules
		(id, rule_type_id, name, consumer, schedule_interval, tags, is_default, enabled,
		 throttle, notify_when, params, actions, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,now(),now())`
	if ignoreConflict {
		q += ` ON CONFLICT (rule_type_id) WHERE is_default DO NOTHING`
	}
	tag, err := p.pool.Exec(ctx, q,
		id, def.RuleTypeID, def.Name, def.Consumer, def.Schedule.Interval, enc.tags,
		isDefault(def.Tags), def.Enabled, def.Throttle, def.NotifyWhen, enc.params, enc.actions,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanPostgresRule(row pgx.Row) (*types.Rule, error) {
	var (
		r                     types.Rule
		tags, params, actions []byte
	)
	if err := row.Scan(&r.ID, &r.RuleTypeID, &r.Name, &r.Consumer, &r.Schedule.Interval, &tags,
		&r.Enabled, &r.Throttle, &r.NotifyWhen, &params, &actions, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	if err := decodeColumns(&r, tags, params, actions); err != nil {
		return nil, err
	}
	return &r, nil
}
