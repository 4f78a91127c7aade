package merge

import (
	"time"

	"github.com/tickerplot/nsepulse/internal/domain/models"
	"github.com/tickerplot/nsepulse/internal/fetch"
	"github.com/tickerplot/nsepulse/internal/logger"
)

// Report summarizes one merge: how many records came out and how many
// delivery rows had no matching price row. Inconsistent rows are dropped
// (there is no price data to attach them to) but never silently.
type Report struct {
	Records      int
	Matched      int // records with a delivery figure
	Inconsistent int // delivery rows without a price row
}

// Merge joins the parsed bhavcopy rows with the delivery rows for one date.
//
// Every price-row symbol yields exactly one DailyRecord. A symbol missing
// from the delivery report gets a NULL delivery (absence is a data-quality
// signal, not zero). Running Merge twice on the same inputs yields the same
// record set; output order is unspecified.
func Merge(date time.Time, priceRows map[string]fetch.PriceRow, delivRows map[string]int64) ([]models.DailyRecord, Report) {
	var report Report

	records := make([]models.DailyRecord, 0, len(priceRows))
	for sym, row := range priceRows {
		rec := models.DailyRecord{
			Symbol: sym,
			Date:   date,
			Open:   row.Open,
			High:   row.High,
			Low:    row.Low,
			Close:  row.Close,
			Volume: row.Volume,
		}
		if qty, ok := delivRows[sym]; ok {
			rec.Delivery = models.ReportedDelivery(qty)
			report.Matched++
		}
		records = append(records, rec)
	}
	report.Records = len(records)

	for sym := range delivRows {
		if _, ok := priceRows[sym]; !ok {
			report.Inconsistent++
			logger.L().Warn().
				Str("date", date.Format("2006-01-02")).
				Str("symbol", sym).
				Msg("delivery row without matching price row")
		}
	}

	return records, report
}
