package fetch

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tickerplot/nsepulse/internal/domain/models"
	"github.com/tickerplot/nsepulse/internal/logger"
)

// RenameSource yields the current list of ticker rename events, in the order
// the exchange publishes them.
type RenameSource interface {
	RenameEvents(ctx context.Context) ([]models.RenameEvent, error)
}

// NSERenameSource reads the symbol-change CSV from the exchange archive.
//
// Layout: COMPANY, OLD_SYMBOL, NEW_SYMBOL, EFFECTIVE_DATE (DD-Mon-YYYY).
// Rows with a missing or unparsable effective date fall back to the fetch
// time, which makes the later date-bounded rename rewrite everything stored
// so far for that symbol.
type NSERenameSource struct {
	client *http.Client
	url    string
	now    func() time.Time
}

func NewNSERenameSource(client *http.Client, url string) *NSERenameSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &NSERenameSource{client: client, url: url, now: time.Now}
}

func (s *NSERenameSource) RenameEvents(ctx context.Context) ([]models.RenameEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build rename request: %w", err)
	}
	req.Header.Set("User-Agent", "nsepulse/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rename list: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch rename list: http %d", resp.StatusCode)
	}

	r := csv.NewReader(resp.Body)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var events []models.RenameEvent
	line := 0
	for {
		rec, err := r.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("read rename list line %d: %w", line+1, err)
		}
		line++
		if line == 1 {
			continue // header
		}
		if len(rec) < 4 {
			logger.L().Warn().Int("line", line).Int("cols", len(rec)).Msg("rename row too short")
			continue
		}

		old := strings.ToUpper(strings.TrimSpace(rec[1]))
		nw := strings.ToUpper(strings.TrimSpace(rec[2]))
		if old == "" || nw == "" || old == nw {
			continue
		}

		eff, err := time.Parse("02-Jan-2006", strings.TrimSpace(rec[3]))
		if err != nil {
			eff = s.now().UTC().Truncate(24 * time.Hour)
		}
		events = append(events, models.RenameEvent{
			OldSymbol:     old,
			NewSymbol:     nw,
			EffectiveDate: eff,
		})
	}

	return events, nil
}
