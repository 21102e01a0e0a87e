package types

import (
	"testing"
	"time"
)

func TestParseSchedule(t *testing.T) {
	tests := []struct {
		name    string
		days    []string
		want    []time.Weekday
		wantErr bool
	}{
		{
			name: "full names",
			days: []string{"Monday", "Wednesday", "Friday"},
			want: []time.Weekday{time.Monday, time.Wednesday, time.Friday},
		},
		{
			name: "short names case insensitive",
			days: []string{"mon", "TUE"},
			want: []time.Weekday{time.Monday, time.Tuesday},
		},
		{
			name: "duplicates collapse",
			days: []string{"monday", "mon", "Monday"},
			want: []time.Weekday{time.Monday},
		},
		{
			name:    "empty schedule rejected",
			days:    []string{},
			wantErr: true,
		},
		{
			name:    "unknown weekday rejected",
			days:    []string{"monday", "funday"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSchedule(tt.days)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i, wd := range tt.want {
				if got[i] != wd {
					t.Errorf("day %d: expected %v, got %v", i, wd, got[i])
				}
			}
		})
	}
}

func TestScheduleRoundTrip(t *testing.T) {
	schedule, err := ParseSchedule([]string{"sunday", "saturday"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rebuilt, err := ScheduleFromInts(schedule.Ints())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rebuilt) != 2 || rebuilt[0] != time.Sunday || rebuilt[1] != time.Saturday {
		t.Errorf("round trip mismatch: %v", rebuilt)
	}

	if _, err := ScheduleFromInts([]int{7}); err == nil {
		t.Error("expected out-of-range weekday to be rejected")
	}
	if _, err := ScheduleFromInts(nil); err == nil {
		t.Error("expected empty stored schedule to be rejected")
	}
}

func TestDateOnly(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	// 2026-03-10 01:30 UTC is still 2026-03-09 evening in New York.
	ts := time.Date(2026, 3, 10, 1, 30, 0, 0, time.UTC)

	got := DateOnly(ts, ny)
	want := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	// nil location falls back to UTC
	got = DateOnly(ts, nil)
	want = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestCalendarDay(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	want := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	// However the caller parsed "2026-01-05", it still names January 5th.
	for _, loc := range []*time.Location{time.UTC, ny, tokyo} {
		parsed, err := time.ParseInLocation("2006-01-02", "2026-01-05", loc)
		if err != nil {
			t.Fatalf("parse in %v: %v", loc, err)
		}
		got := CalendarDay(parsed)
		if !got.Equal(want) {
			t.Errorf("CalendarDay in %v: expected %v, got %v", loc, want, got)
		}
	}
}

func TestPrevNextScheduledDay(t *testing.T) {
	schedule := Schedule{time.Monday, time.Wednesday, time.Friday}

	// 2026-01-05 is a Monday.
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	next := NextScheduledDay(monday, schedule)
	if next.Weekday() != time.Wednesday || !next.Equal(monday.AddDate(0, 0, 2)) {
		t.Errorf("expected following Wednesday, got %v", next)
	}

	prev := PrevScheduledDay(monday, schedule)
	if prev.Weekday() != time.Friday || !prev.Equal(monday.AddDate(0, 0, -3)) {
		t.Errorf("expected preceding Friday, got %v", prev)
	}

	// Friday to Monday crosses the weekend.
	friday := time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC)
	next = NextScheduledDay(friday, schedule)
	if next.Weekday() != time.Monday {
		t.Errorf("expected Monday after Friday, got %v", next.Weekday())
	}
}

func TestTransactionStatusTerminal(t *testing.T) {
	if TxStatusPending.Terminal() {
		t.Error("pending must not be terminal")
	}
	if !TxStatusConfirmed.Terminal() {
		t.Error("confirmed must be terminal")
	}
	if !TxStatusFailed.Terminal() {
		t.Error("failed must be terminal")
	}
}

func TestTransactionTypeValid(t *testing.T) {
	for _, tt := range []TransactionType{TxTypeStake, TxTypePunishment, TxTypeReward, TxTypeRefund} {
		if !tt.Valid() {
			t.Errorf("%s should be valid", tt)
		}
	}
	if TransactionType("bribe").Valid() {
		t.Error("unknown type should be invalid")
	}
}
