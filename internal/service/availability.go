package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bookline/bot-server-go/internal/repository"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// AvailabilityService derives concrete bookable slots. Slots are never
// stored: the weekly template for the date's weekday is expanded into start
// times and the ones already held by non-cancelled reservations are removed.
type AvailabilityService struct {
	availabilityRepo repository.AvailabilityRepository
	reservationRepo  repository.ReservationRepository
}

func NewAvailabilityService(
	availabilityRepo repository.AvailabilityRepository,
	reservationRepo repository.ReservationRepository,
) *AvailabilityService {
	return &AvailabilityService{
		availabilityRepo: availabilityRepo,
		reservationRepo:  reservationRepo,
	}
}

// SlotsForDate returns the free HH:MM start times for a business on a date,
// sorted ascending. An empty result is a normal outcome, not an error.
func (s *AvailabilityService) SlotsForDate(ctx context.Context, businessID string, date time.Time) ([]string, error) {
	templates, err := s.availabilityRepo.FindByBusinessAndWeekday(ctx, businessID, int(date.Weekday()))
	if err != nil {
		return nil, fmt.Errorf("load availability templates: %w", err)
	}
	if len(templates) == 0 {
		return nil, nil
	}

	dateStr := date.Format(dateLayout)
	booked, err := s.reservationRepo.BookedTimes(ctx, businessID, dateStr)
	if err != nil {
		return nil, fmt.Errorf("load booked times: %w", err)
	}
	taken := make(map[string]bool, len(booked))
	for _, t := range booked {
		taken[t] = true
	}

	seen := make(map[string]bool)
	var slots []string
	for _, tpl := range templates {
		start, err := time.Parse(timeLayout, tpl.StartTime)
		if err != nil {
			return nil, fmt.Errorf("template %s: bad start time %q: %w", tpl.ID, tpl.StartTime, err)
		}
		end, err := time.Parse(timeLayout, tpl.EndTime)
		if err != nil {
			return nil, fmt.Errorf("template %s: bad end time %q: %w", tpl.ID, tpl.EndTime, err)
		}
		if tpl.SlotMinutes <= 0 {
			return nil, fmt.Errorf("template %s: non-positive slot duration", tpl.ID)
		}

		step := time.Duration(tpl.SlotMinutes) * time.Minute
		for cur := start; cur.Add(step).Before(end) || cur.Add(step).Equal(end); cur = cur.Add(step) {
			slot := cur.Format(timeLayout)
			if taken[slot] || seen[slot] {
				continue
			}
			seen[slot] = true
			slots = append(slots, slot)
		}
	}

	sort.Strings(slots)
	return slots, nil
}
