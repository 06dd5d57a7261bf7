package reservation

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestParseTimeSlots(t *testing.T) {
	t.Parallel()

	cases := []struct {
		hours string
		first string
		last  string
		count int
	}{
		{hours: "12:00 PM - 11:30 PM", first: "12:00", last: "23:30", count: 24},
		{hours: "12:00 PM - 12:30 AM", first: "12:00", last: "00:30", count: 26},
		{hours: "6:00 PM - 7:00 PM", first: "18:00", last: "19:00", count: 3},
	}
	for _, tc := range cases {
		got, err := ParseTimeSlots(tc.hours)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.hours, err)
		}
		if len(got) != tc.count || got[0] != tc.first || got[len(got)-1] != tc.last {
			t.Fatalf("%s: unexpected slots %v", tc.hours, got)
		}
	}

	if _, err := ParseTimeSlots("noon till late"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSeedWeek(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	store.PutSlot(AvailabilitySlot{StoreID: DefaultStoreID, Date: "2025-01-01", Time: "12:00", Covers: 2, AvailableTables: 1, MaxCapacity: 1})
	store.PutSlot(AvailabilitySlot{StoreID: "other", Date: "2025-01-01", Time: "12:00", Covers: 2, AvailableTables: 1, MaxCapacity: 1})

	seeder := Seeder{Store: store}
	first := time.Date(2026, 6, 1, 0, 0, 0, 0, DefaultLocation) // Monday
	last := time.Date(2026, 6, 7, 0, 0, 0, 0, DefaultLocation)  // Sunday
	report, err := seeder.Seed(context.Background(), first, last)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.WeekdayDays != 5 || report.WeekendDays != 2 {
		t.Fatalf("unexpected day split: %+v", report)
	}
	want := 5*24*len(DefaultCovers) + 2*26*len(DefaultCovers)
	if report.SlotsCreated != want {
		t.Fatalf("expected %d slots, got %d", want, report.SlotsCreated)
	}

	if _, ok := store.Slot(SlotKey{StoreID: DefaultStoreID, Date: "2025-01-01", Time: "12:00", Covers: 2}); ok {
		t.Fatal("old slots of the store must be cleared")
	}
	if _, ok := store.Slot(SlotKey{StoreID: "other", Date: "2025-01-01", Time: "12:00", Covers: 2}); !ok {
		t.Fatal("slots of other stores must be kept")
	}

	sat, ok := store.Slot(SlotKey{StoreID: DefaultStoreID, Date: "2026-06-06", Time: "00:30", Covers: 10})
	if !ok {
		t.Fatal("weekend late slot missing")
	}
	if sat.DayType != DayTypeWeekend || sat.AvailableTables != 8 || sat.MaxCapacity != 8 || !sat.IsAvailable {
		t.Fatalf("unexpected weekend slot: %+v", sat)
	}
	if _, ok := store.Slot(SlotKey{StoreID: DefaultStoreID, Date: "2026-06-01", Time: "00:30", Covers: 10}); ok {
		t.Fatal("weekday must not have past-midnight slots")
	}
}

func TestSeedClosedDaysAndFallbackHours(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	seeder := Seeder{
		Store:      store,
		StoreID:    "s1",
		Hours:      OperatingHours{Weekdays: "garbage", Weekends: "also garbage"},
		Covers:     []int{2},
		ClosedDays: []time.Weekday{time.Tuesday},
	}
	first := time.Date(2026, 6, 1, 0, 0, 0, 0, DefaultLocation)
	report, err := seeder.Seed(context.Background(), first, first.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.WeekdayDays != 1 || report.SlotsCreated != len(fallbackSlots) {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(report.WeekendSlots) != len(fallbackSlots) {
		t.Fatalf("weekend slots should fall back to weekday slots, got %v", report.WeekendSlots)
	}
}
