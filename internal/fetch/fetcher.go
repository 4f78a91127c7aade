package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tickerplot/nsepulse/internal/domain/models"
	"github.com/tickerplot/nsepulse/internal/logger"
)

// Source identifies which upstream feed a fetch outcome belongs to.
type Source string

const (
	SourceBhavcopy Source = "bhavcopy"
	SourceDelivery Source = "delivery"
)

// FetchError is the typed failure returned when at least one of the two
// per-date artifacts could not be retrieved. BhavOK/DelivOK carry the
// per-source outcome so the caller can record it in the ledger; the fetcher
// itself never touches the ledger.
type FetchError struct {
	Source  Source
	Kind    models.ErrorKind
	Status  int
	BhavOK  bool
	DelivOK bool
	Err     error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.Source, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s (http %d)", e.Source, e.Kind, e.Status)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DayData is the parsed content of both artifacts for one date.
type DayData struct {
	PriceRows map[string]PriceRow
	DelivRows map[string]int64
	Stats     ParseStats
}

// Fetcher retrieves and parses the two per-date artifacts. A single call
// makes exactly one attempt per source; retry policy lives with the caller.
type Fetcher interface {
	Fetch(ctx context.Context, date time.Time) (*DayData, error)
}

// NSEFetcher downloads the daily bhavcopy zip and the MTO delivery report
// from the exchange archive.
type NSEFetcher struct {
	client   *http.Client
	bhavURL  string
	delivURL string
}

// NewNSEFetcher builds a fetcher over the given URL templates. The bhav
// template expands with (YYYY, MON, DD, MON, YYYY) and the delivery template
// with (DD, MM, YYYY).
func NewNSEFetcher(client *http.Client, bhavURL, delivURL string) *NSEFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &NSEFetcher{client: client, bhavURL: bhavURL, delivURL: delivURL}
}

// BhavcopyURL returns the bhavcopy archive URL for a date.
func (f *NSEFetcher) BhavcopyURL(date time.Time) string {
	yr := date.Format("2006")
	mon := strings.ToUpper(date.Format("Jan"))
	dd := date.Format("02")
	return fmt.Sprintf(f.bhavURL, yr, mon, dd, mon, yr)
}

// DeliveryURL returns the MTO delivery report URL for a date.
func (f *NSEFetcher) DeliveryURL(date time.Time) string {
	return fmt.Sprintf(f.delivURL, date.Format("02"), date.Format("01"), date.Format("2006"))
}

type download struct {
	body   []byte
	status int
	err    error
}

// ok reports a usable HTTP 200 payload.
func (d download) ok() bool { return d.err == nil && d.status == http.StatusOK }

// Fetch retrieves both artifacts for a date, one attempt per source, the two
// requests running concurrently. On success both payloads are parsed and the
// parse statistics (dropped rows) are reported in DayData.Stats.
//
// Classification:
//   - bhavcopy HTTP 404 → NOT_FOUND (almost always a non-trading day)
//   - any other failure on either source → TRANSIENT_ERROR
func (f *NSEFetcher) Fetch(ctx context.Context, date time.Time) (*DayData, error) {
	bhavURL := f.BhavcopyURL(date)
	delivURL := f.DeliveryURL(date)

	var bhav, deliv download
	var g errgroup.Group
	g.Go(func() error {
		bhav = f.get(ctx, bhavURL)
		return nil
	})
	g.Go(func() error {
		deliv = f.get(ctx, delivURL)
		return nil
	})
	_ = g.Wait()

	logger.L().Debug().
		Str("date", date.Format("2006-01-02")).
		Int("bhav_status", bhav.status).
		Int("deliv_status", deliv.status).
		Msg("fetch attempted")

	if !bhav.ok() || !deliv.ok() {
		return nil, classify(bhav, deliv)
	}

	priceRows, stats, err := ParseBhavcopy(bhav.body)
	if err != nil {
		// A 200 with an unusable payload is still a failed source: the flags
		// feed the ledger, and a date with no stored records must stay open.
		return nil, &FetchError{
			Source: SourceBhavcopy, Kind: models.ErrorTransient,
			Status: bhav.status, BhavOK: false, DelivOK: true, Err: err,
		}
	}
	delivRows, dstats := ParseDelivery(deliv.body)
	stats.DelivParseErrors = dstats.DelivParseErrors
	stats.DelivSkipped = dstats.DelivSkipped

	return &DayData{PriceRows: priceRows, DelivRows: delivRows, Stats: stats}, nil
}

func (f *NSEFetcher) get(ctx context.Context, url string) download {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return download{err: err}
	}
	req.Header.Set("User-Agent", "nsepulse/1.0")
	req.Header.Set("Accept", "*/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return download{err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return download{status: resp.StatusCode, err: err}
	}
	return download{body: body, status: resp.StatusCode}
}

// classify maps the pair of raw download outcomes to a single FetchError.
// A 404 on the bhavcopy wins: it marks the whole date as likely non-trading.
func classify(bhav, deliv download) *FetchError {
	fe := &FetchError{
		Kind:    models.ErrorTransient,
		BhavOK:  bhav.ok(),
		DelivOK: deliv.ok(),
	}
	switch {
	case !bhav.ok():
		fe.Source = SourceBhavcopy
		fe.Status = bhav.status
		fe.Err = bhav.err
		if bhav.err == nil && bhav.status == http.StatusNotFound {
			fe.Kind = models.ErrorNotFound
		}
	default:
		fe.Source = SourceDelivery
		fe.Status = deliv.status
		fe.Err = deliv.err
	}
	return fe
}
