package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sjsage522/bestdeal/internal/model"
	"sjsage522/bestdeal/logger"
	apperrors "sjsage522/bestdeal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const tablePrefix = "price_history_"

// PostgresBackend shares one connection pool between category stores.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database.
func Connect(ctx context.Context, databaseURL string) (*PostgresBackend, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, storageError(ctx, "failed to connect to database", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, storageError(ctx, "failed to ping database", err)
	}

	return &PostgresBackend{pool: pool}, nil
}

// Open creates the collection table if needed and returns its store.
func (b *PostgresBackend) Open(ctx context.Context, collection string) (Store, error) {
	p := &Postgres{
		pool:  b.pool,
		table: tablePrefix + strings.ToLower(collection),
	}
	if err := p.migrate(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (b *PostgresBackend) Name() string { return "postgres" }

// Close closes the connection pool.
func (b *PostgresBackend) Close() {
	if b.pool != nil {
		b.pool.Close()
	}
}

// Postgres stores one category in its own table.
type Postgres struct {
	pool  *pgxpool.Pool
	table string
}

func (p *Postgres) ident(suffix string) string {
	return pgx.Identifier{p.table + suffix}.Sanitize()
}

func (p *Postgres) migrate(ctx context.Context) error {
	table := p.ident("")
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id            BIGSERIAL PRIMARY KEY,
			product_name  TEXT NOT NULL,
			product_brand TEXT NOT NULL,
			product_type  TEXT NOT NULL,
			product_price NUMERIC(12, 2) NOT NULL,
			source        TEXT NOT NULL,
			url           TEXT NOT NULL,
			observed_at   TIMESTAMPTZ NOT NULL,
			observed_on   DATE NOT NULL
		)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (product_name, source, observed_on, observed_at DESC)`,
			p.ident("_dedup_idx"), table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (product_type, observed_on, product_price)`,
			p.ident("_type_idx"), table),
	}

	for _, stmt := range statements {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return storageError(ctx, "failed to migrate "+p.table, err)
		}
	}

	logger.ForStore("postgres").Debug().Str("table", p.table).Msg("Table ready")
	return nil
}

const observationColumns = `id, product_name, product_brand, product_type, product_price::float8, source, url, observed_at, observed_on`

func scanObservation(row pgx.Row) (model.Observation, error) {
	var o model.Observation
	var day time.Time
	err := row.Scan(&o.ID, &o.ProductName, &o.ProductBrand, &o.ProductType, &o.ProductPrice,
		&o.SourceName, &o.URL, &o.Timestamp, &day)
	if err != nil {
		return o, err
	}
	o.Day = model.DayOf(day, time.UTC)
	return o, nil
}

// InsertBatch runs in one transaction. Each dedup key is serialized with a
// transaction-scoped advisory lock so concurrent writers cannot both insert
// the same price.
func (p *Postgres) InsertBatch(ctx context.Context, observations []model.Observation) ([]model.Observation, error) {
	if len(observations) == 0 {
		return nil, nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, storageError(ctx, "failed to begin transaction", err)
	}
	defer func() {
		if rErr := tx.Rollback(ctx); rErr != nil && !errors.Is(rErr, pgx.ErrTxClosed) {
			logger.ForStore("postgres").Warn().Err(rErr).Msg("Rollback failed")
		}
	}()

	lockSQL := `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`
	latestSQL := fmt.Sprintf(`SELECT product_price::float8 FROM %s
		WHERE product_name = $1 AND source = $2 AND observed_on = $3
		ORDER BY observed_at DESC, id DESC LIMIT 1`, p.ident(""))
	insertSQL := fmt.Sprintf(`INSERT INTO %s
		(product_name, product_brand, product_type, product_price, source, url, observed_at, observed_on)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`, p.ident(""))

	var accepted []model.Observation
	for _, o := range observations {
		key := o.Key()
		if _, err := tx.Exec(ctx, lockSQL, p.table+"|"+key.String()); err != nil {
			return nil, storageError(ctx, "failed to lock "+key.String(), err)
		}

		var lastPrice float64
		err := tx.QueryRow(ctx, latestSQL, key.ProductName, key.SourceName, key.Day.Time()).Scan(&lastPrice)
		switch {
		case err == nil && lastPrice == o.ProductPrice:
			continue
		case err != nil && !errors.Is(err, pgx.ErrNoRows):
			return nil, storageError(ctx, "failed to read last price", err)
		}

		err = tx.QueryRow(ctx, insertSQL,
			o.ProductName, o.ProductBrand, o.ProductType, o.ProductPrice,
			o.SourceName, o.URL, o.Timestamp, o.Day.Time(),
		).Scan(&o.ID)
		if err != nil {
			return nil, storageError(ctx, "failed to insert observation", err)
		}
		accepted = append(accepted, o)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storageError(ctx, "failed to commit batch", err)
	}

	logger.ForStore("postgres").Debug().
		Str("table", p.table).
		Int("received", len(observations)).
		Int("inserted", len(accepted)).
		Msg("Batch inserted")
	return accepted, nil
}

func (p *Postgres) FindLastPrice(ctx context.Context, key model.DedupKey) (*model.Observation, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s
		WHERE product_name = $1 AND source = $2 AND observed_on = $3
		ORDER BY observed_at DESC, id DESC LIMIT 1`, observationColumns, p.ident(""))

	o, err := scanObservation(p.pool.QueryRow(ctx, query, key.ProductName, key.SourceName, key.Day.Time()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound(fmt.Sprintf("no price for [%s] at [%s] on %s", key.ProductName, key.SourceName, key.Day))
		}
		return nil, storageError(ctx, "failed to find last price", err)
	}
	return &o, nil
}

func (p *Postgres) FindCheapest(ctx context.Context, filter CheapestFilter) (*model.Observation, error) {
	w := where{}
	w.add("product_type = $%d", filter.ProductType)
	if filter.Day != nil {
		w.add("observed_on = $%d", filter.Day.Time())
	}
	if len(filter.ExcludedSources) > 0 {
		w.add("NOT (source = ANY($%d))", filter.ExcludedSources)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s %s
		ORDER BY product_price ASC, observed_at ASC, id ASC LIMIT 1`, observationColumns, p.ident(""), w.sql())

	o, err := scanObservation(p.pool.QueryRow(ctx, query, w.args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound(missingCheapest(filter))
		}
		return nil, storageError(ctx, "failed to find cheapest", err)
	}
	return &o, nil
}

func (p *Postgres) DistinctProductTypes(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, fmt.Sprintf(`SELECT DISTINCT product_type FROM %s ORDER BY product_type`, p.ident("")))
	if err != nil {
		return nil, storageError(ctx, "failed to list product types", err)
	}
	types, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, storageError(ctx, "failed to scan product types", err)
	}
	return types, nil
}

func (p *Postgres) DeleteBelowPriceThreshold(ctx context.Context, threshold float64) (int64, error) {
	tag, err := p.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE product_price < $1`, p.ident("")), threshold)
	if err != nil {
		return 0, storageError(ctx, "failed to delete anomalies", err)
	}
	return tag.RowsAffected(), nil
}

func (p *Postgres) Find(ctx context.Context, filter Filter) ([]model.Observation, error) {
	w := where{}
	if filter.Day != nil {
		w.add("observed_on = $%d", filter.Day.Time())
	}
	if filter.ProductType != "" {
		w.add("product_type = $%d", filter.ProductType)
	}
	if filter.Brand != "" {
		w.add("product_brand = $%d", filter.Brand)
	}
	if filter.Source != "" {
		w.add("source = $%d", filter.Source)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s %s ORDER BY observed_at ASC, id ASC`, observationColumns, p.ident(""), w.sql())
	rows, err := p.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, storageError(ctx, "failed to query history", err)
	}
	defer rows.Close()

	found := []model.Observation{}
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, storageError(ctx, "failed to scan observation", err)
		}
		found = append(found, o)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(ctx, "failed to iterate history", err)
	}
	return found, nil
}

// where accumulates numbered placeholders for an optional WHERE clause.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, fmt.Sprintf(clause, len(w.args)))
}

func (w *where) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.clauses, " AND ")
}

// storageError reports a failed call as storage_unavailable, unless the
// caller gave up first, in which case the context error is returned as is.
func storageError(ctx context.Context, message string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return apperrors.NewStorage("postgres", message, err)
}
