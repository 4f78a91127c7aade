package dto

import (
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/tickerplot/nsepulse/internal/domain/models"
)

func TestNewHistoryResponse_DeliverySentinel(t *testing.T) {
	d := time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)
	resp := NewHistoryResponse("SBIN", []models.DailyRecord{
		{Symbol: "SBIN", Date: d, Close: 282.9, Volume: 1000, Delivery: sql.NullInt64{Int64: 400, Valid: true}},
		{Symbol: "SBIN", Date: d.AddDate(0, 0, 1), Close: 284.1, Volume: 900},
	})

	if resp.Days != 2 || len(resp.Prices) != 2 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Prices[0].Delivery == nil || *resp.Prices[0].Delivery != 400 {
		t.Fatalf("reported delivery lost: %+v", resp.Prices[0])
	}
	if resp.Prices[1].Delivery != nil {
		t.Fatalf("missing delivery must stay null, got %v", *resp.Prices[1].Delivery)
	}

	// The unreported day serializes as an explicit null, never 0.
	body, err := json.Marshal(resp.Prices[1])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(body), `"delivery":null`) {
		t.Fatalf("want null delivery in %s", body)
	}
}

func TestNewHistoryResponse_Empty(t *testing.T) {
	resp := NewHistoryResponse("SBIN", nil)
	if resp.Days != 0 || resp.Prices == nil {
		t.Fatalf("empty history must yield an empty (non-nil) slice: %+v", resp)
	}
}
