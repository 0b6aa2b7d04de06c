package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

// PostgresLedgerStore persists the ledger in PostgreSQL. Each tenant gets
// its own store instance; rows are scoped by tenant_id.
type PostgresLedgerStore struct {
	db       *sql.DB
	tenantID string
}

func NewPostgresLedgerStore(db *sql.DB, tenantID string) *PostgresLedgerStore {
	return &PostgresLedgerStore{
		db:       db,
		tenantID: tenantID,
	}
}

// Append stores an entry with the next per-pair sequence.
func (s *PostgresLedgerStore) Append(ctx context.Context, entry Entry) (*Entry, error) {
	var currentSeq int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) FROM stock_entries
		 WHERE tenant_id = $1 AND variant_id = $2 AND location_id = $3`,
		s.tenantID, entry.VariantID, entry.LocationID,
	).Scan(&currentSeq)
	if err != nil {
		return nil, err
	}

	entry.Sequence = currentSeq + 1

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO stock_entries (id, tenant_id, variant_id, location_id, delta, adjustment_type, reference, sequence, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID,
		s.tenantID,
		entry.VariantID,
		entry.LocationID,
		entry.Delta,
		string(entry.Type),
		entry.Reference,
		entry.Sequence,
		entry.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	return &entry, nil
}

// Replay returns the pair history in sequence order.
func (s *PostgresLedgerStore) Replay(ctx context.Context, variantID, locationID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, variant_id, location_id, delta, adjustment_type, reference, sequence, created_at
		 FROM stock_entries
		 WHERE tenant_id = $1 AND variant_id = $2 AND location_id = $3
		 ORDER BY sequence ASC`,
		s.tenantID, variantID, locationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ReplayVariant returns all entries for a variant across locations.
func (s *PostgresLedgerStore) ReplayVariant(ctx context.Context, variantID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, variant_id, location_id, delta, adjustment_type, reference, sequence, created_at
		 FROM stock_entries
		 WHERE tenant_id = $1 AND variant_id = $2
		 ORDER BY location_id ASC, sequence ASC`,
		s.tenantID, variantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// EntriesInWindow returns all entries with from <= created_at < to.
func (s *PostgresLedgerStore) EntriesInWindow(ctx context.Context, from, to time.Time) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, variant_id, location_id, delta, adjustment_type, reference, sequence, created_at
		 FROM stock_entries
		 WHERE tenant_id = $1 AND created_at >= $2 AND created_at < $3
		 ORDER BY created_at ASC, variant_id ASC, sequence ASC`,
		s.tenantID, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var typ string
		if err := rows.Scan(&e.ID, &e.VariantID, &e.LocationID, &e.Delta, &typ, &e.Reference, &e.Sequence, &e.Timestamp); err != nil {
			return nil, err
		}
		e.Type = AdjustmentType(typ)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ConnectPostgres establishes a connection to PostgreSQL.
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}
