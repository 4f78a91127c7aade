package ledger

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/tickerplot/nsepulse/internal/domain/models"
)

func newMockLedger(t *testing.T) (*pgLedger, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	l := &pgLedger{db: db, graceDays: 7, now: time.Now}
	cleanup := func() { _ = db.Close() }
	return l, mock, cleanup
}

var selectLedger = regexp.MustCompile(`SELECT date, bhav_ok, deliv_ok, error_kind, attempted_at\s+FROM download_ledger\s+WHERE date = \$1`)

func ledgerRow(date time.Time, bhavOK, delivOK bool, kind models.ErrorKind, at time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"date", "bhav_ok", "deliv_ok", "error_kind", "attempted_at"}).
		AddRow(date, bhavOK, delivOK, string(kind), at)
}

func TestIsComplete_TableDriven(t *testing.T) {
	now := time.Date(2021, 2, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		date    time.Time
		noRow   bool
		bhavOK  bool
		delivOK bool
		kind    models.ErrorKind
		want    bool
	}{
		{
			name: "no attempt yet",
			date: time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC), noRow: true,
			want: false,
		},
		{
			name: "both sources ok",
			date: time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC),
			bhavOK: true, delivOK: true, kind: models.ErrorNone,
			want: true,
		},
		{
			name: "stale not-found is a closed gap",
			date: time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC), // Saturday, 30 days ago
			kind: models.ErrorNotFound,
			want: true,
		},
		{
			name: "fresh not-found still open",
			date: time.Date(2021, 1, 29, 0, 0, 0, 0, time.UTC), // 3 days ago
			kind: models.ErrorNotFound,
			want: false,
		},
		{
			name: "transient with both flags set stays open",
			// Both downloads returned 200 but the payload was unusable and
			// nothing was stored; the date must remain retryable.
			date:   time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC),
			bhavOK: true, delivOK: true, kind: models.ErrorTransient,
			want: false,
		},
		{
			name: "transient never ages out",
			date: time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC),
			kind: models.ErrorTransient,
			want: false,
		},
		{
			name: "partial success stays open",
			date: time.Date(2021, 1, 28, 0, 0, 0, 0, time.UTC),
			bhavOK: true, delivOK: false, kind: models.ErrorTransient,
			want: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l, mock, done := newMockLedger(t)
			defer done()
			l.now = func() time.Time { return now }

			q := mock.ExpectQuery(selectLedger.String()).WithArgs(tc.date)
			if tc.noRow {
				q.WillReturnRows(sqlmock.NewRows([]string{"date", "bhav_ok", "deliv_ok", "error_kind", "attempted_at"}))
			} else {
				q.WillReturnRows(ledgerRow(tc.date, tc.bhavOK, tc.delivOK, tc.kind, tc.date))
			}

			got, err := l.IsComplete(tc.date)
			if err != nil {
				t.Fatalf("err: %v", err)
			}
			if got != tc.want {
				t.Fatalf("IsComplete=%v want %v", got, tc.want)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestRecord_Upsert(t *testing.T) {
	l, mock, done := newMockLedger(t)
	defer done()

	d := time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO download_ledger .*ON CONFLICT \(date\)`).
		WithArgs(d, true, false, string(models.ErrorTransient)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := l.Record(d, true, false, models.ErrorTransient); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGet_NoRow(t *testing.T) {
	l, mock, done := newMockLedger(t)
	defer done()

	d := time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(selectLedger.String()).WithArgs(d).
		WillReturnRows(sqlmock.NewRows([]string{"date", "bhav_ok", "deliv_ok", "error_kind", "attempted_at"}))

	att, err := l.Get(d)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if att != nil {
		t.Fatalf("want nil attempt got %+v", att)
	}
}

func TestGet_Row(t *testing.T) {
	l, mock, done := newMockLedger(t)
	defer done()

	d := time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)
	at := time.Date(2021, 1, 4, 18, 0, 0, 0, time.UTC)
	mock.ExpectQuery(selectLedger.String()).WithArgs(d).
		WillReturnRows(ledgerRow(d, true, true, models.ErrorNone, at))

	att, err := l.Get(d)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if att == nil || !att.Complete() || att.ErrorKind != models.ErrorNone {
		t.Fatalf("unexpected attempt %+v", att)
	}
}
