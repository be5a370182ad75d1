// Package availability computes bookable slots from weekly schedules and the
// day's non-canceled appointments.
package availability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vidaplena/clinic-api/internal/model"
	"github.com/vidaplena/clinic-api/internal/repository"
	"github.com/vidaplena/clinic-api/pkg/apperror"
	"github.com/vidaplena/clinic-api/pkg/timeutil"
)

type Service struct {
	scheduleRepo    repository.ScheduleRepository
	appointmentRepo repository.AppointmentRepository
	serviceRepo     repository.ServiceRepository
}

func NewService(
	scheduleRepo repository.ScheduleRepository,
	appointmentRepo repository.AppointmentRepository,
	serviceRepo repository.ServiceRepository,
) *Service {
	return &Service{
		scheduleRepo:    scheduleRepo,
		appointmentRepo: appointmentRepo,
		serviceRepo:     serviceRepo,
	}
}

// slotDuration resolves the slot length in minutes for the given service, or
// the default when no service is specified.
func (s *Service) slotDuration(ctx context.Context, serviceID *uuid.UUID) (int, error) {
	if serviceID == nil {
		return model.DefaultServiceDuration, nil
	}
	svc, err := s.serviceRepo.Get(ctx, *serviceID)
	if err != nil {
		return 0, err
	}
	if svc.AverageDuration <= 0 {
		return model.DefaultServiceDuration, nil
	}
	return svc.AverageDuration, nil
}

type busyInterval struct {
	start timeutil.Clock
	end   timeutil.Clock
}

func busyIntervals(appointments []*model.Appointment) ([]busyInterval, error) {
	intervals := make([]busyInterval, 0, len(appointments))
	for _, apt := range appointments {
		start, err := timeutil.ParseClock(apt.StartTime)
		if err != nil {
			return nil, fmt.Errorf("appointment %s has malformed start time: %w", apt.ID, err)
		}
		end, err := timeutil.ParseClock(apt.EndTime)
		if err != nil {
			return nil, fmt.Errorf("appointment %s has malformed end time: %w", apt.ID, err)
		}
		intervals = append(intervals, busyInterval{start: start, end: end})
	}
	return intervals, nil
}

// slotsForDay walks each schedule window in steps of duration minutes and
// keeps the slots whose [slot, slot+duration) interval touches no busy
// interval. A window shorter than the duration yields no slots. Windows may
// overlap when a therapist works at several branches on the same weekday, so
// slots are collected as a set and sorted before formatting.
func slotsForDay(schedules []*model.Schedule, busy []busyInterval, duration int) ([]string, error) {
	seen := map[timeutil.Clock]struct{}{}
	for _, window := range schedules {
		start, err := timeutil.ParseClock(window.StartTime)
		if err != nil {
			return nil, fmt.Errorf("schedule %s has malformed start time: %w", window.ID, err)
		}
		end, err := timeutil.ParseClock(window.EndTime)
		if err != nil {
			return nil, fmt.Errorf("schedule %s has malformed end time: %w", window.ID, err)
		}

		for slot := start; !slot.Add(duration).After(end); slot = slot.Add(duration) {
			slotEnd := slot.Add(duration)
			free := true
			for _, b := range busy {
				if timeutil.Overlaps(slot, slotEnd, b.start, b.end) {
					free = false
					break
				}
			}
			if free {
				seen[slot] = struct{}{}
			}
		}
	}

	starts := make([]timeutil.Clock, 0, len(seen))
	for slot := range seen {
		starts = append(starts, slot)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	slots := make([]string, 0, len(starts))
	for _, slot := range starts {
		slots = append(slots, slot.String())
	}
	return slots, nil
}

// GetAvailableSlots returns the free slot start times ("HH:MM") for a
// therapist on a calendar day.
func (s *Service) GetAvailableSlots(ctx context.Context, therapistID uuid.UUID, date string, serviceID, branchID *uuid.UUID) ([]string, error) {
	day, err := timeutil.ParseDate(date)
	if err != nil {
		return nil, apperror.Validation("%v", err)
	}

	duration, err := s.slotDuration(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	schedules, err := s.scheduleRepo.ListForTherapistDay(ctx, therapistID, timeutil.ISOWeekday(day), branchID)
	if err != nil {
		return nil, err
	}
	if len(schedules) == 0 {
		return []string{}, nil
	}

	// Busy intervals span all branches, matching the conflict check at
	// booking time: a listing must never advertise a time that booking would
	// reject.
	appointments, err := s.appointmentRepo.ListActiveForTherapistDate(ctx, therapistID, day, nil)
	if err != nil {
		return nil, err
	}
	busy, err := busyIntervals(appointments)
	if err != nil {
		return nil, err
	}

	return slotsForDay(schedules, busy, duration)
}

// GetMonthAvailability reports, for every day of the month, whether the
// therapist has at least one free slot. Days without any schedule window are
// marked Closed; days fully booked are open but unavailable.
func (s *Service) GetMonthAvailability(ctx context.Context, therapistID uuid.UUID, year int, month time.Month, serviceID, branchID *uuid.UUID) ([]model.DayAvailability, error) {
	if month < time.January || month > time.December {
		return nil, apperror.Validation("invalid month %d", month)
	}

	duration, err := s.slotDuration(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	schedules, err := s.scheduleRepo.ListForTherapist(ctx, therapistID, branchID)
	if err != nil {
		return nil, err
	}
	byWeekday := make(map[int][]*model.Schedule)
	for _, sch := range schedules {
		byWeekday[sch.DayOfWeek] = append(byWeekday[sch.DayOfWeek], sch)
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(year, month, timeutil.DaysInMonth(year, month), 0, 0, 0, 0, time.UTC)

	appointments, err := s.appointmentRepo.ListActiveForTherapistRange(ctx, therapistID, first, last, nil)
	if err != nil {
		return nil, err
	}
	busyByDate := make(map[string][]busyInterval)
	for _, apt := range appointments {
		key := timeutil.FormatDate(apt.Date)
		intervals, err := busyIntervals([]*model.Appointment{apt})
		if err != nil {
			return nil, err
		}
		busyByDate[key] = append(busyByDate[key], intervals...)
	}

	days := make([]model.DayAvailability, 0, timeutil.DaysInMonth(year, month))
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		key := timeutil.FormatDate(d)
		windows := byWeekday[timeutil.ISOWeekday(d)]

		if len(windows) == 0 {
			days = append(days, model.DayAvailability{
				Date:   key,
				Closed: true,
				Slots:  []string{},
			})
			continue
		}

		slots, err := slotsForDay(windows, busyByDate[key], duration)
		if err != nil {
			return nil, err
		}
		days = append(days, model.DayAvailability{
			Date:      key,
			Available: len(slots) > 0,
			Slots:     slots,
		})
	}
	return days, nil
}

// CheckBookable validates [startTime, endTime) on the given day for the
// therapist. It fails with NotAvailable when no schedule window contains the
// interval and with Conflict when the interval overlaps an existing booking
// at any branch. excludeID skips one appointment from the conflict check, for
// reschedules.
func (s *Service) CheckBookable(ctx context.Context, therapistID uuid.UUID, date time.Time, startTime, endTime string, branchID, excludeID *uuid.UUID) error {
	start, err := timeutil.ParseClock(startTime)
	if err != nil {
		return apperror.Validation("%v", err)
	}
	end, err := timeutil.ParseClock(endTime)
	if err != nil {
		return apperror.Validation("%v", err)
	}
	if !start.Before(end) {
		return apperror.Validation("start time %s must be before end time %s", startTime, endTime)
	}

	schedules, err := s.scheduleRepo.ListForTherapistDay(ctx, therapistID, timeutil.ISOWeekday(date), branchID)
	if err != nil {
		return err
	}
	inWindow := false
	for _, window := range schedules {
		wStart, err := timeutil.ParseClock(window.StartTime)
		if err != nil {
			return fmt.Errorf("schedule %s has malformed start time: %w", window.ID, err)
		}
		wEnd, err := timeutil.ParseClock(window.EndTime)
		if err != nil {
			return fmt.Errorf("schedule %s has malformed end time: %w", window.ID, err)
		}
		if !start.Before(wStart) && !end.After(wEnd) {
			inWindow = true
			break
		}
	}
	if !inWindow {
		return apperror.NotAvailable("therapist has no schedule window covering %s-%s on %s",
			startTime, endTime, timeutil.FormatDate(date))
	}

	// A therapist working at several branches still has one body: conflicts
	// are checked across all branches.
	appointments, err := s.appointmentRepo.ListActiveForTherapistDate(ctx, therapistID, date, nil)
	if err != nil {
		return err
	}
	if excludeID != nil {
		kept := appointments[:0]
		for _, apt := range appointments {
			if apt.ID != *excludeID {
				kept = append(kept, apt)
			}
		}
		appointments = kept
	}
	busy, err := busyIntervals(appointments)
	if err != nil {
		return err
	}
	for _, b := range busy {
		if timeutil.Overlaps(start, end, b.start, b.end) {
			return apperror.Conflict("therapist already has an appointment overlapping %s-%s on %s",
				startTime, endTime, timeutil.FormatDate(date))
		}
	}
	return nil
}
