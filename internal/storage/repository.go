package storage

import (
	"database/sql"
	"fmt"
	"time"

	pq "github.com/lib/pq"

	"github.com/tickerplot/nsepulse/internal/domain/models"
)

// HistoryRepository defines the contract for durable daily-record storage.
type HistoryRepository interface {
	// ReplaceDay deletes every record for the date and inserts the given
	// records as one transaction. A half-applied replace is never observable.
	ReplaceDay(date time.Time, records []models.DailyRecord) error

	// RenameSymbol rewrites old → new for all records dated strictly before
	// the cutoff. Applying it twice has the same effect as once.
	RenameSymbol(oldSymbol, newSymbol string, before time.Time) error

	// GetDailyHistory returns records for a symbol, optionally bounded by an
	// inclusive date range, in ascending date order.
	GetDailyHistory(symbol string, startDate, endDate *time.Time) ([]models.DailyRecord, error)
}

type historyRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) HistoryRepository {
	return &historyRepository{db: db}
}

// ReplaceDay performs the delete-then-insert for one date inside a single
// transaction, bulk-loading via COPY.
func (r *historyRepository) ReplaceDay(date time.Time, records []models.DailyRecord) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	// Small optimization for bulk load
	if _, err := tx.Exec(`SET LOCAL synchronous_commit = OFF`); err != nil {
		_ = tx.Rollback()
		return err
	}

	if _, err := tx.Exec(`DELETE FROM daily_prices WHERE date = $1`, date); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete day: %w", err)
	}

	stmt, err := tx.Prepare(pq.CopyIn(
		"daily_prices",
		"symbol",
		"date",
		"open",
		"high",
		"low",
		"close",
		"volume",
		"delivery",
	))
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	for _, rec := range records {
		// NULL delivery is the "no delivery reported" sentinel.
		var delivery interface{}
		if rec.Delivery.Valid {
			delivery = rec.Delivery.Int64
		}
		if _, err := stmt.Exec(
			rec.Symbol,
			rec.Date,
			rec.Open,
			rec.High,
			rec.Low,
			rec.Close,
			rec.Volume,
			delivery,
		); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return err
		}
	}

	if _, err := stmt.Exec(); err != nil {
		_ = stmt.Close()
		_ = tx.Rollback()
		return err
	}
	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

// RenameSymbol moves all pre-cutoff history from old to new. The WHERE clause
// makes the statement idempotent: once rewritten, no row matches old.
func (r *historyRepository) RenameSymbol(oldSymbol, newSymbol string, before time.Time) error {
	_, err := r.db.Exec(`
		UPDATE daily_prices SET symbol = $2
		WHERE symbol = $1 AND date < $3
	`, oldSymbol, newSymbol, before)
	return err
}

func (r *historyRepository) GetDailyHistory(symbol string, startDate, endDate *time.Time) ([]models.DailyRecord, error) {
	conditions := "symbol = $1"
	args := []interface{}{symbol}
	if startDate != nil {
		conditions += fmt.Sprintf(" AND date >= $%d", len(args)+1)
		args = append(args, *startDate)
	}
	if endDate != nil {
		conditions += fmt.Sprintf(" AND date <= $%d", len(args)+1)
		args = append(args, *endDate)
	}

	query := fmt.Sprintf(`
		SELECT symbol, date, open, high, low, close, volume, delivery
		FROM daily_prices
		WHERE %s
		ORDER BY date ASC
	`, conditions)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.DailyRecord
	for rows.Next() {
		var rec models.DailyRecord
		if err := rows.Scan(&rec.Symbol, &rec.Date, &rec.Open, &rec.High, &rec.Low, &rec.Close, &rec.Volume, &rec.Delivery); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
