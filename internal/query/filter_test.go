package query

import (
	"errors"
	"testing"
	"time"
)

func TestParsePeriodEnd(t *testing.T) {
	tests := []struct {
		period string
		want   string
	}{
		{"2024-01", "2024-01-31"},
		{"2024-02", "2024-02-29"}, // leap year
		{"2023-02", "2023-02-28"},
		{"1900-02", "1900-02-28"}, // century, not leap
		{"2000-02", "2000-02-29"}, // divisible by 400
		{"2024-04", "2024-04-30"},
		{"2024-12", "2024-12-31"},
	}

	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			got, err := ParsePeriodEnd(tt.period)
			if err != nil {
				t.Fatalf("ParsePeriodEnd(%q) unexpected error: %v", tt.period, err)
			}
			if s := got.Format("2006-01-02"); s != tt.want {
				t.Errorf("ParsePeriodEnd(%q) = %s, want %s", tt.period, s, tt.want)
			}
		})
	}
}

func TestParsePeriodStart(t *testing.T) {
	got, err := ParsePeriodStart("2024-03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParsePeriodStart = %v, want %v", got, want)
	}
}

func TestParsePeriodRejectsMalformed(t *testing.T) {
	for _, bad := range []string{"2024-1", "2024/01", "24-01", "2024-13", "2024-00", "2024-01-01", "abcd-ef", " 2024-01"} {
		t.Run(bad, func(t *testing.T) {
			if _, err := ParsePeriodStart(bad); !errors.Is(err, ErrInvalidPeriod) {
				t.Errorf("ParsePeriodStart(%q) error = %v, want ErrInvalidPeriod", bad, err)
			}
			if _, err := ParsePeriodEnd(bad); !errors.Is(err, ErrInvalidPeriod) {
				t.Errorf("ParsePeriodEnd(%q) error = %v, want ErrInvalidPeriod", bad, err)
			}
		})
	}
}

func TestSetYears(t *testing.T) {
	start, end := 2020, 2021
	var f Filter
	f.SetYears(&start, &end)

	if f.From == nil || f.From.Format("2006-01-02") != "2020-01-01" {
		t.Errorf("From = %v, want 2020-01-01", f.From)
	}
	if f.To == nil || f.To.Format("2006-01-02") != "2021-12-31" {
		t.Errorf("To = %v, want 2021-12-31", f.To)
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList([]string{"A320, B737", "", "E190", " ,"})
	want := []string{"A320", "B737", "E190"}
	if len(got) != len(want) {
		t.Fatalf("SplitList = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SplitList[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNewPage(t *testing.T) {
	lim := PageLimits{Default: 100, Max: 1000}

	tests := []struct {
		name      string
		skip      int
		limit     int
		wantLimit int
		wantErr   bool
	}{
		{"defaults", 0, 0, 100, false},
		{"explicit", 10, 50, 50, false},
		{"clamped", 0, 5000, 1000, false},
		{"negative skip", -1, 10, 0, true},
		{"negative limit", 0, -5, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPage(tt.skip, tt.limit, lim)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPage) {
					t.Fatalf("NewPage error = %v, want ErrInvalidPage", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Limit != tt.wantLimit || p.Skip != tt.skip {
				t.Errorf("NewPage = %+v, want skip=%d limit=%d", p, tt.skip, tt.wantLimit)
			}
		})
	}
}
