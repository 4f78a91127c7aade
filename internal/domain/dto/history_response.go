package dto

import (
	"time"

	"github.com/tickerplot/nsepulse/internal/domain/models"
)

// DailyPrice is one day of a symbol's history as exposed over the API.
//
// Fields match the API contract and may differ from internal domain models.
// Delivery is a pointer: null in the JSON means the exchange published no
// delivery figure for that day, which is not the same as zero.
type DailyPrice struct {
	Date     string  `json:"date" example:"2021-01-04"`
	Open     float64 `json:"open" example:"280.0"`
	High     float64 `json:"high" example:"285.4"`
	Low      float64 `json:"low" example:"278.1"`
	Close    float64 `json:"close" example:"282.9"`
	Volume   int64   `json:"volume" example:"1500000"`
	Delivery *int64  `json:"delivery" example:"640000"`
}

// HistoryResponse is the JSON structure returned by GET /api/v1/history.
type HistoryResponse struct {
	Symbol string       `json:"symbol" example:"SBIN"`
	Days   int          `json:"days" example:"250"`
	Prices []DailyPrice `json:"prices"`
}

// NewHistoryResponse maps stored records into the response shape.
func NewHistoryResponse(symbol string, records []models.DailyRecord) HistoryResponse {
	prices := make([]DailyPrice, 0, len(records))
	for _, rec := range records {
		p := DailyPrice{
			Date:   rec.Date.Format("2006-01-02"),
			Open:   rec.Open,
			High:   rec.High,
			Low:    rec.Low,
			Close:  rec.Close,
			Volume: rec.Volume,
		}
		if rec.Delivery.Valid {
			v := rec.Delivery.Int64
			p.Delivery = &v
		}
		prices = append(prices, p)
	}
	return HistoryResponse{Symbol: symbol, Days: len(prices), Prices: prices}
}

// LedgerResponse is the JSON structure returned by GET /api/v1/ledger/:date.
type LedgerResponse struct {
	Date        string    `json:"date" example:"2021-01-04"`
	BhavOK      bool      `json:"bhav_ok" example:"true"`
	DelivOK     bool      `json:"deliv_ok" example:"true"`
	ErrorKind   string    `json:"error_kind" example:"NONE"`
	AttemptedAt time.Time `json:"attempted_at"`
}

// NewLedgerResponse maps a recorded download attempt into the response shape.
func NewLedgerResponse(att *models.DownloadAttempt) LedgerResponse {
	return LedgerResponse{
		Date:        att.Date.Format("2006-01-02"),
		BhavOK:      att.BhavOK,
		DelivOK:     att.DelivOK,
		ErrorKind:   string(att.ErrorKind),
		AttemptedAt: att.AttemptedAt,
	}
}
