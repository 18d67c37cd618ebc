// Package database is the SQLite record store.
package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/TamChouWeng/my-asset-sub000/internal/id"
	"github.com/TamChouWeng/my-asset-sub000/internal/logger"
	"github.com/TamChouWeng/my-asset-sub000/internal/model"
	"github.com/TamChouWeng/my-asset-sub000/internal/remarks"
	"github.com/TamChouWeng/my-asset-sub000/internal/store"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const columns = `id, date, type, name, action, amount, unit_price, quantity, fee,
	interest_rate, interest_dividend, maturity_date, status, currency, remarks`

// Store is a store.Store backed by SQLite.
type Store struct {
	db   *sql.DB
	tags bool
}

var _ store.Store = (*Store)(nil)

// Open connects to the database at path and applies pending migrations.
// When tags is set, rate and interest are also written into the remarks.
func Open(ctx context.Context, path string, tags bool) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}

	// One connection avoids SQLITE_BUSY between writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	logger.FromContext(ctx).Debug().Str("path", path).Msg("database ready")
	return &Store{db: db, tags: tags}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	log := logger.FromContext(ctx)

	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating sqlite migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Debug().Msg("no new database migrations to apply")
			return nil
		}
		return fmt.Errorf("applying migrations: %w", err)
	}
	log.Info().Msg("database migrations applied")
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// List implements store.Store.
func (s *Store) List(ctx context.Context) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+columns+` FROM records ORDER BY date DESC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return records, nil
}

// Insert implements store.Store.
func (s *Store) Insert(ctx context.Context, r model.Record) (model.Record, error) {
	if r.ID == "" {
		r.ID = id.NewRecordID()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.args(r)...)
	if err != nil {
		return model.Record{}, fmt.Errorf("inserting record: %w", err)
	}
	return r, nil
}

// Update implements store.Store. The read-modify-write runs in a transaction.
func (s *Store) Update(ctx context.Context, recordID string, p model.Patch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	row := tx.QueryRowContext(ctx, `SELECT `+columns+` FROM records WHERE id = ?`, recordID)
	current, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}

	next := p.Apply(current)
	args := s.args(next)
	_, err = tx.ExecContext(ctx, `UPDATE records SET
		date = ?, type = ?, name = ?, action = ?, amount = ?, unit_price = ?, quantity = ?, fee = ?,
		interest_rate = ?, interest_dividend = ?, maturity_date = ?, status = ?, currency = ?, remarks = ?
		WHERE id = ?`, append(args[1:], recordID)...)
	if err != nil {
		return fmt.Errorf("updating record %s: %w", recordID, err)
	}
	return tx.Commit()
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, recordID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, recordID)
	if err != nil {
		return fmt.Errorf("deleting record %s: %w", recordID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting record %s: %w", recordID, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteMany implements store.Store.
func (s *Store) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, v := range ids {
		args[i] = v
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("deleting %d records: %w", len(ids), err)
	}
	return nil
}

func (s *Store) args(r model.Record) []any {
	rem := remarks.Strip(r.Remarks)
	if s.tags {
		rem = remarks.Encode(r)
	}
	return []any{
		r.ID,
		r.Date.Format(model.DateFormat),
		string(r.Type),
		r.Name,
		r.Action,
		r.Amount.String(),
		nullDecimal(r.UnitPrice),
		nullDecimal(r.Quantity),
		nullDecimal(r.Fee),
		nullDecimal(r.InterestRate),
		nullDecimal(r.InterestDividend),
		nullString(model.FormatOptionalDate(r.MaturityDate)),
		string(r.Status),
		r.CurrencyCode(),
		rem,
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (model.Record, error) {
	var (
		r                                               model.Record
		date, typ, amount, status                       string
		unitPrice, quantity, fee, rate, interest, matur sql.NullString
	)
	err := sc.Scan(&r.ID, &date, &typ, &r.Name, &r.Action, &amount,
		&unitPrice, &quantity, &fee, &rate, &interest, &matur, &status, &r.Currency, &r.Remarks)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Record{}, err
	}
	if err != nil {
		return model.Record{}, fmt.Errorf("scanning record: %w", err)
	}

	if r.Date, err = model.ParseDate(date); err != nil {
		return model.Record{}, fmt.Errorf("record %s: %w", r.ID, err)
	}
	if r.MaturityDate, err = model.ParseOptionalDate(matur.String); err != nil {
		return model.Record{}, fmt.Errorf("record %s: %w", r.ID, err)
	}
	r.Type = model.AssetType(typ)
	r.Status = model.Status(status)
	r.Amount = model.CoerceAmount(amount)
	r.UnitPrice = toNullDecimal(unitPrice)
	r.Quantity = toNullDecimal(quantity)
	r.Fee = toNullDecimal(fee)
	r.InterestRate = toNullDecimal(rate)
	r.InterestDividend = toNullDecimal(interest)

	r = remarks.Decode(r)
	r.Remarks = remarks.Strip(r.Remarks)
	return r, nil
}

func nullDecimal(d decimal.NullDecimal) sql.NullString {
	if !d.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Decimal.String(), Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func toNullDecimal(s sql.NullString) decimal.NullDecimal {
	if !s.Valid || s.String == "" {
		return decimal.NullDecimal{}
	}
	return model.CoerceOptional(s.String)
}
