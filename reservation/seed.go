package reservation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const slotInterval = 30 * time.Minute

var (
	DefaultCovers = []int{1, 2, 3, 4, 5, 6, 8, 9, 10}

	// DefaultTableInventory is the number of tables per party size.
	DefaultTableInventory = map[int]int{1: 15, 2: 18, 3: 16, 4: 15, 5: 14, 6: 13, 8: 12, 9: 10, 10: 8}

	fallbackSlots = []string{
		"12:00", "12:30", "13:00", "13:30", "14:00", "14:30", "15:00",
		"18:00", "18:30", "19:00", "19:30", "20:00", "20:30", "21:00", "21:30",
	}
)

// OperatingHours holds "12:00 PM - 11:30 PM" style ranges.
type OperatingHours struct {
	Weekdays string `json:"weekdays"`
	Weekends string `json:"weekends"`
}

var DefaultOperatingHours = OperatingHours{
	Weekdays: "12:00 PM - 11:30 PM",
	Weekends: "12:00 PM - 12:30 AM",
}

// ParseTimeSlots expands an hours range into 30 minute HH:MM slots, both ends
// inclusive. An end before the start is read as closing after midnight.
func ParseTimeSlots(hours string) ([]string, error) {
	parts := strings.Split(hours, "-")
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: hours %q must look like \"12:00 PM - 11:30 PM\"", ErrInvalidInput, hours)
	}
	start, err := time.Parse("3:04 PM", strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, fmt.Errorf("%w: opening time %q: %v", ErrInvalidInput, parts[0], err)
	}
	end, err := time.Parse("3:04 PM", strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, fmt.Errorf("%w: closing time %q: %v", ErrInvalidInput, parts[1], err)
	}
	if end.Before(start) {
		end = end.Add(24 * time.Hour)
	}

	var slots []string
	for cur := start; !cur.After(end); cur = cur.Add(slotInterval) {
		slots = append(slots, cur.Format(TimeLayout))
	}
	return slots, nil
}

type SeedReport struct {
	SlotsCreated int
	WeekdayDays  int
	WeekendDays  int
	WeekdaySlots []string
	WeekendSlots []string
}

// Seeder regenerates the availability calendar of one store.
type Seeder struct {
	Store      SlotStore
	StoreID    string
	Hours      OperatingHours
	Covers     []int
	Inventory  map[int]int
	ClosedDays []time.Weekday
	Location   *time.Location
	Now        func() time.Time
}

func (s Seeder) withDefaults() Seeder {
	if s.StoreID == "" {
		s.StoreID = DefaultStoreID
	}
	if s.Hours.Weekdays == "" {
		s.Hours.Weekdays = DefaultOperatingHours.Weekdays
	}
	if s.Hours.Weekends == "" {
		s.Hours.Weekends = DefaultOperatingHours.Weekends
	}
	if len(s.Covers) == 0 {
		s.Covers = DefaultCovers
	}
	if len(s.Inventory) == 0 {
		s.Inventory = DefaultTableInventory
	}
	if s.Location == nil {
		s.Location = DefaultLocation
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	return s
}

func (s Seeder) slotTimes() (weekday, weekend []string) {
	logger := log.Logger
	weekday, err := ParseTimeSlots(s.Hours.Weekdays)
	if err != nil || len(weekday) == 0 {
		logger.Warn().Err(err).Msg("using default weekday slots")
		weekday = fallbackSlots
	}
	weekend, err = ParseTimeSlots(s.Hours.Weekends)
	if err != nil || len(weekend) == 0 {
		logger.Warn().Err(err).Msg("using weekday slots for weekends")
		weekend = weekday
	}
	return weekday, weekend
}

// Seed clears the store's slots and writes a fresh calendar for every open day
// from first to last inclusive.
func (s Seeder) Seed(ctx context.Context, first, last time.Time) (SeedReport, error) {
	if s.Store == nil {
		return SeedReport{}, fmt.Errorf("%w: seeder has no store", ErrInvalidInput)
	}
	s = s.withDefaults()
	first = dayStart(first, s.Location)
	last = dayStart(last, s.Location)
	if last.Before(first) {
		return SeedReport{}, fmt.Errorf("%w: seed range ends before it starts", ErrInvalidInput)
	}

	weekdaySlots, weekendSlots := s.slotTimes()
	closed := make(map[time.Weekday]bool, len(s.ClosedDays))
	for _, d := range s.ClosedDays {
		closed[d] = true
	}

	report := SeedReport{WeekdaySlots: weekdaySlots, WeekendSlots: weekendSlots}
	createdAt := s.Now()
	var slots []AvailabilitySlot
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		if closed[day.Weekday()] {
			continue
		}
		weekend := day.Weekday() == time.Saturday || day.Weekday() == time.Sunday
		times, dayType := weekdaySlots, DayTypeWeekday
		if weekend {
			times, dayType = weekendSlots, DayTypeWeekend
			report.WeekendDays++
		} else {
			report.WeekdayDays++
		}
		date := day.Format(DateLayout)
		for _, t := range times {
			for _, covers := range s.Covers {
				tables, ok := s.Inventory[covers]
				if !ok {
					tables = 1
				}
				slots = append(slots, AvailabilitySlot{
					StoreID:         s.StoreID,
					Date:            date,
					Time:            t,
					Covers:          covers,
					IsAvailable:     true,
					AvailableTables: tables,
					MaxCapacity:     tables,
					DayType:         dayType,
					CreatedAt:       createdAt,
				})
			}
		}
	}

	if err := s.Store.ReplaceSlots(ctx, s.StoreID, slots); err != nil {
		return SeedReport{}, fmt.Errorf("replace slots: %w", err)
	}
	report.SlotsCreated = len(slots)
	log.Ctx(ctx).Info().
		Str("store_id", s.StoreID).
		Int("slots", report.SlotsCreated).
		Int("weekday_days", report.WeekdayDays).
		Int("weekend_days", report.WeekendDays).
		Msg("availability seeded")
	return report, nil
}

func dayStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
