package ingestion

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	got, err := ParseDate("04-01-2021")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	want := time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("want %v got %v", want, got)
	}

	if _, err := ParseDate("2021-01-04"); err == nil {
		t.Fatalf("ISO layout must be rejected")
	}
	if _, err := ParseDate("garbage"); err == nil {
		t.Fatalf("garbage must be rejected")
	}

	today, err := ParseDate("Today")
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if !today.Equal(DateKey(time.Now())) {
		t.Fatalf("today mismatch: %v", today)
	}
}

func TestDateKey_Normalizes(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	in := time.Date(2021, 1, 4, 23, 45, 0, 0, ist) // 18:15 UTC same day
	got := DateKey(in)
	want := time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("want %v got %v", want, got)
	}
	if DateKey(got) != got {
		t.Fatalf("DateKey must be idempotent")
	}
}

func TestDateRange(t *testing.T) {
	from := time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)
	to := time.Date(2021, 1, 6, 0, 0, 0, 0, time.UTC)

	dates, err := DateRange(from, to)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(dates) != 3 {
		t.Fatalf("want 3 dates got %d", len(dates))
	}
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			t.Fatalf("dates not ascending: %v", dates)
		}
	}

	single, err := DateRange(from, from)
	if err != nil || len(single) != 1 {
		t.Fatalf("single-day range: %v err=%v", single, err)
	}

	if _, err := DateRange(to, from); err == nil {
		t.Fatalf("inverted range must fail")
	}
}
