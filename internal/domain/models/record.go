package models

import (
	"database/sql"
	"time"
)

// DailyRecord is the merged per-security view of one trading day: OHLCV from
// the bhavcopy joined with the delivered quantity from the MTO report.
//
// Delivery is nullable on purpose. The MTO report routinely omits securities
// that appear in the bhavcopy, and an absent delivery figure is a data-quality
// signal, not a true zero. A NULL in the database (invalid NullInt64 here)
// means "no delivery reported for this symbol on this day".
type DailyRecord struct {
	Symbol   string
	Date     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   int64
	Delivery sql.NullInt64
}

// ReportedDelivery returns a DailyRecord delivery value marked as present.
func ReportedDelivery(qty int64) sql.NullInt64 {
	return sql.NullInt64{Int64: qty, Valid: true}
}

// ErrorKind classifies why a per-date download attempt failed. It drives the
// retry policy: NOT_FOUND ages out of retry after a grace window (the date was
// almost certainly a holiday), TRANSIENT_ERROR stays open for retry forever.
type ErrorKind string

const (
	ErrorNone      ErrorKind = "NONE"
	ErrorNotFound  ErrorKind = "NOT_FOUND"
	ErrorTransient ErrorKind = "TRANSIENT_ERROR"
)

// DownloadAttempt is the ledger row for one calendar date. There is at most
// one row per date; a later attempt overwrites the previous one.
type DownloadAttempt struct {
	Date        time.Time
	BhavOK      bool
	DelivOK     bool
	ErrorKind   ErrorKind
	AttemptedAt time.Time
}

// Complete reports whether both sources were fetched successfully.
func (a DownloadAttempt) Complete() bool {
	return a.BhavOK && a.DelivOK
}

// RenameEvent describes one hop of a ticker-symbol change published by the
// exchange. Events are consumed per run and never persisted; only their effect
// on DailyRecord.Symbol is.
type RenameEvent struct {
	OldSymbol     string
	NewSymbol     string
	EffectiveDate time.Time
}
