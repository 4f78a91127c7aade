package ledger

import (
	"database/sql"
	"time"

	"github.com/tickerplot/nsepulse/internal/domain/models"
)

// Ledger is the per-date download bookkeeping that makes ingestion idempotent
// and resumable.
type Ledger interface {
	// IsComplete reports whether a date needs no further fetching: both
	// sources succeeded with no error recorded, or a NOT_FOUND outcome has
	// aged past the grace window (closed gap, e.g. an exchange holiday).
	// A NOT_FOUND inside the window and a TRANSIENT_ERROR of any age stay
	// open for retry.
	IsComplete(date time.Time) (bool, error)

	// Record upserts the attempt row for a date. There is never more than
	// one row per date; a later attempt overwrites the earlier one.
	Record(date time.Time, bhavOK, delivOK bool, kind models.ErrorKind) error

	// Get returns the attempt for a date, or nil when none was recorded.
	Get(date time.Time) (*models.DownloadAttempt, error)
}

type pgLedger struct {
	db        *sql.DB
	graceDays int
	now       func() time.Time
}

// New returns a Postgres-backed Ledger over the download_ledger table.
func New(db *sql.DB, graceDays int) Ledger {
	return &pgLedger{db: db, graceDays: graceDays, now: time.Now}
}

func (l *pgLedger) IsComplete(date time.Time) (bool, error) {
	att, err := l.Get(date)
	if err != nil {
		return false, err
	}
	if att == nil {
		return false, nil
	}
	// Both flags alone are not enough: a transient failure after two 200s
	// (e.g. a corrupt payload) stores nothing and must stay retryable.
	if att.Complete() && att.ErrorKind == models.ErrorNone {
		return true, nil
	}

	// NOT_FOUND older than the grace window is a closed gap; anything else
	// stays open.
	if att.ErrorKind == models.ErrorNotFound {
		age := l.now().UTC().Sub(date.UTC())
		if age > time.Duration(l.graceDays)*24*time.Hour {
			return true, nil
		}
	}
	return false, nil
}

func (l *pgLedger) Get(date time.Time) (*models.DownloadAttempt, error) {
	var att models.DownloadAttempt
	var kind string
	err := l.db.QueryRow(`
		SELECT date, bhav_ok, deliv_ok, error_kind, attempted_at
		FROM download_ledger
		WHERE date = $1
	`, date).Scan(&att.Date, &att.BhavOK, &att.DelivOK, &kind, &att.AttemptedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	att.ErrorKind = models.ErrorKind(kind)
	return &att, nil
}

func (l *pgLedger) Record(date time.Time, bhavOK, delivOK bool, kind models.ErrorKind) error {
	_, err := l.db.Exec(`
		INSERT INTO download_ledger (date, bhav_ok, deliv_ok, error_kind, attempted_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (date)
		DO UPDATE SET bhav_ok = EXCLUDED.bhav_ok,
					  deliv_ok = EXCLUDED.deliv_ok,
					  error_kind = EXCLUDED.error_kind,
					  attempted_at = NOW()
	`, date, bhavOK, delivOK, string(kind))
	return err
}
