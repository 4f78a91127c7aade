package fetch

import (
	"archive/zip"
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tickerplot/nsepulse/internal/logger"
)

// PriceRow is one bhavcopy line for a regular-equity security.
type PriceRow struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// ParseStats counts rows dropped while parsing the two artifacts. Dropped
// rows never fail the date; they are reported so runs stay observable.
type ParseStats struct {
	BhavParseErrors  int // malformed bhavcopy rows
	BhavSkipped      int // bhavcopy rows outside the series allow-list
	DelivParseErrors int // malformed delivery rows
	DelivSkipped     int // delivery rows outside the series allow-list
}

// allowedSeries is the allow-list of regular-equity series. Everything else
// (debt, warrants, trade-for-trade variants beyond BE, ...) is skipped.
var allowedSeries = map[string]bool{
	"EQ": true,
	"BE": true,
}

// Bhavcopy column layout: SYMBOL,SERIES,OPEN,HIGH,LOW,CLOSE,LAST,PREVCLOSE,
// TOTTRDQTY,... Only the first nine columns matter here.
const (
	colSymbol = 0
	colSeries = 1
	colOpen   = 2
	colHigh   = 3
	colLow    = 4
	colClose  = 5
	colVolume = 8
)

// ParseBhavcopy unpacks the bhavcopy zip (single CSV member) and returns one
// PriceRow per allow-listed symbol. Malformed rows are counted and dropped.
func ParseBhavcopy(zipped []byte) (map[string]PriceRow, ParseStats, error) {
	var stats ParseStats

	zr, err := zip.NewReader(bytes.NewReader(zipped), int64(len(zipped)))
	if err != nil {
		return nil, stats, fmt.Errorf("open bhavcopy zip: %w", err)
	}
	if len(zr.File) == 0 {
		return nil, stats, fmt.Errorf("bhavcopy zip has no members")
	}

	// The archive carries exactly one CSV; take the first member like the
	// exchange publishes it.
	member, err := zr.File[0].Open()
	if err != nil {
		return nil, stats, fmt.Errorf("open bhavcopy member %q: %w", zr.File[0].Name, err)
	}
	defer func() { _ = member.Close() }()

	r := csv.NewReader(member)
	r.FieldsPerRecord = -1 // trailing comma variants exist; check length ourselves
	r.TrimLeadingSpace = true

	rows := make(map[string]PriceRow)
	line := 0
	for {
		rec, err := r.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, stats, fmt.Errorf("read bhavcopy line %d: %w", line+1, err)
		}
		line++
		if line == 1 {
			continue // header
		}
		if len(rec) <= colVolume {
			stats.BhavParseErrors++
			logger.L().Warn().Int("line", line).Int("cols", len(rec)).Msg("bhavcopy row too short")
			continue
		}
		if !allowedSeries[strings.TrimSpace(rec[colSeries])] {
			stats.BhavSkipped++
			continue
		}

		row, err := recordToPriceRow(rec)
		if err != nil {
			stats.BhavParseErrors++
			logger.L().Warn().Int("line", line).Err(err).Msg("bhavcopy row dropped")
			continue
		}
		rows[strings.TrimSpace(rec[colSymbol])] = row
	}

	return rows, stats, nil
}

func recordToPriceRow(rec []string) (PriceRow, error) {
	var row PriceRow
	var err error

	if row.Open, err = strconv.ParseFloat(strings.TrimSpace(rec[colOpen]), 64); err != nil {
		return row, fmt.Errorf("invalid open: %v", err)
	}
	if row.High, err = strconv.ParseFloat(strings.TrimSpace(rec[colHigh]), 64); err != nil {
		return row, fmt.Errorf("invalid high: %v", err)
	}
	if row.Low, err = strconv.ParseFloat(strings.TrimSpace(rec[colLow]), 64); err != nil {
		return row, fmt.Errorf("invalid low: %v", err)
	}
	if row.Close, err = strconv.ParseFloat(strings.TrimSpace(rec[colClose]), 64); err != nil {
		return row, fmt.Errorf("invalid close: %v", err)
	}
	if row.Volume, err = strconv.ParseInt(strings.TrimSpace(rec[colVolume]), 10, 64); err != nil {
		return row, fmt.Errorf("invalid volume: %v", err)
	}
	return row, nil
}

// ParseDelivery reads the MTO flat report. Record lines carry record type 20
// in the first field; header and footer lines are skipped. Two layouts exist:
//
//	4 fields: 20, SYMBOL, qty_traded, deliv_qty
//	7 fields: 20, sl_no, SYMBOL, SERIES, qty_traded, deliv_qty, pct
//
// 7-field rows outside the series allow-list are skipped like bhavcopy rows.
func ParseDelivery(body []byte) (map[string]int64, ParseStats) {
	var stats ParseStats
	rows := make(map[string]int64)

	sc := bufio.NewScanner(bytes.NewReader(body))
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(text, "20") {
			continue // header/footer
		}

		fields := strings.Split(text, ",")
		var sym, qty string
		switch len(fields) {
		case 4:
			sym = strings.TrimSpace(fields[1])
			qty = strings.TrimSpace(fields[3])
		case 7:
			if !allowedSeries[strings.TrimSpace(fields[3])] {
				stats.DelivSkipped++
				continue
			}
			sym = strings.TrimSpace(fields[2])
			qty = strings.TrimSpace(fields[5])
		default:
			stats.DelivParseErrors++
			logger.L().Warn().Int("line", line).Int("cols", len(fields)).Msg("delivery row with unexpected field count")
			continue
		}

		v, err := strconv.ParseInt(qty, 10, 64)
		if err != nil {
			stats.DelivParseErrors++
			logger.L().Warn().Int("line", line).Str("symbol", sym).Err(err).Msg("delivery row dropped")
			continue
		}
		rows[sym] = v
	}

	return rows, stats
}
