// Package therapist manages therapists, their branch and service
// associations, and their weekly schedules.
package therapist

import (
	"context"

	"github.com/google/uuid"

	"github.com/vidaplena/clinic-api/internal/model"
	"github.com/vidaplena/clinic-api/internal/repository"
	"github.com/vidaplena/clinic-api/pkg/apperror"
	"github.com/vidaplena/clinic-api/pkg/timeutil"
)

type Service struct {
	therapistRepo repository.TherapistRepository
	scheduleRepo  repository.ScheduleRepository
	branchRepo    repository.BranchRepository
	serviceRepo   repository.ServiceRepository
}

func NewService(
	therapistRepo repository.TherapistRepository,
	scheduleRepo repository.ScheduleRepository,
	branchRepo repository.BranchRepository,
	serviceRepo repository.ServiceRepository,
) *Service {
	return &Service{
		therapistRepo: therapistRepo,
		scheduleRepo:  scheduleRepo,
		branchRepo:    branchRepo,
		serviceRepo:   serviceRepo,
	}
}

func (s *Service) Create(ctx context.Context, therapist *model.Therapist) error {
	return s.therapistRepo.Create(ctx, therapist)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Therapist, error) {
	return s.therapistRepo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, therapist *model.Therapist) error {
	return s.therapistRepo.Update(ctx, therapist)
}

func (s *Service) List(ctx context.Context, branchID *uuid.UUID) ([]*model.Therapist, error) {
	return s.therapistRepo.List(ctx, branchID)
}

func (s *Service) ListByService(ctx context.Context, serviceID uuid.UUID, branchID *uuid.UUID) ([]*model.Therapist, error) {
	if _, err := s.serviceRepo.Get(ctx, serviceID); err != nil {
		return nil, err
	}
	return s.therapistRepo.ListByService(ctx, serviceID, branchID)
}

func (s *Service) AddBranch(ctx context.Context, therapistID, branchID uuid.UUID) error {
	if _, err := s.therapistRepo.Get(ctx, therapistID); err != nil {
		return err
	}
	if _, err := s.branchRepo.Get(ctx, branchID); err != nil {
		return err
	}
	return s.therapistRepo.AddBranch(ctx, therapistID, branchID)
}

func (s *Service) RemoveBranch(ctx context.Context, therapistID, branchID uuid.UUID) error {
	return s.therapistRepo.DeactivateBranch(ctx, therapistID, branchID)
}

func (s *Service) AddService(ctx context.Context, therapistID, serviceID uuid.UUID) error {
	if _, err := s.therapistRepo.Get(ctx, therapistID); err != nil {
		return err
	}
	if _, err := s.serviceRepo.Get(ctx, serviceID); err != nil {
		return err
	}
	return s.therapistRepo.AddService(ctx, therapistID, serviceID)
}

func (s *Service) RemoveService(ctx context.Context, therapistID, serviceID uuid.UUID) error {
	return s.therapistRepo.RemoveService(ctx, therapistID, serviceID)
}

// UpsertResult pairs the saved schedule with any overlapping windows the
// therapist has at other branches on the same weekday. Cross-branch overlaps
// are reported to the caller, not rejected.
type UpsertResult struct {
	Schedule  *model.Schedule           `json:"schedule"`
	Conflicts []*model.ScheduleConflict `json:"conflicts,omitempty"`
}

// UpsertSchedule creates or edits a weekly window. An identical window at the
// same branch and weekday is rejected as a duplicate.
func (s *Service) UpsertSchedule(ctx context.Context, therapistID uuid.UUID, req *model.UpsertScheduleRequest) (*UpsertResult, error) {
	start, err := timeutil.ParseClock(req.StartTime)
	if err != nil {
		return nil, apperror.Validation("%v", err)
	}
	end, err := timeutil.ParseClock(req.EndTime)
	if err != nil {
		return nil, apperror.Validation("%v", err)
	}
	if !start.Before(end) {
		return nil, apperror.Validation("start time %s must be before end time %s", req.StartTime, req.EndTime)
	}

	if _, err := s.therapistRepo.Get(ctx, therapistID); err != nil {
		return nil, err
	}
	ok, err := s.therapistRepo.HasBranch(ctx, therapistID, req.BranchID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.Validation("therapist does not work at branch %s", req.BranchID)
	}

	schedule := &model.Schedule{
		TherapistID: therapistID,
		BranchID:    req.BranchID,
		DayOfWeek:   req.DayOfWeek,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	}

	duplicate, err := s.scheduleRepo.FindDuplicate(ctx, schedule, req.ID)
	if err != nil {
		return nil, err
	}
	if duplicate != nil {
		return nil, apperror.Conflict("an identical schedule window already exists")
	}

	if req.ID != nil {
		existing, err := s.scheduleRepo.Get(ctx, *req.ID)
		if err != nil {
			return nil, err
		}
		if existing.TherapistID != therapistID {
			return nil, apperror.Validation("schedule %s does not belong to therapist %s", *req.ID, therapistID)
		}
		schedule.ID = existing.ID
		schedule.CreatedAt = existing.CreatedAt
		if err := s.scheduleRepo.Update(ctx, schedule); err != nil {
			return nil, err
		}
	} else {
		if err := s.scheduleRepo.Create(ctx, schedule); err != nil {
			return nil, err
		}
	}

	conflicts, err := s.crossBranchConflicts(ctx, schedule, start, end)
	if err != nil {
		return nil, err
	}
	return &UpsertResult{Schedule: schedule, Conflicts: conflicts}, nil
}

func (s *Service) crossBranchConflicts(ctx context.Context, schedule *model.Schedule, start, end timeutil.Clock) ([]*model.ScheduleConflict, error) {
	others, err := s.scheduleRepo.ListForTherapistDay(ctx, schedule.TherapistID, schedule.DayOfWeek, nil)
	if err != nil {
		return nil, err
	}

	var conflicts []*model.ScheduleConflict
	names := map[uuid.UUID]string{}
	for _, other := range others {
		if other.ID == schedule.ID || other.BranchID == schedule.BranchID {
			continue
		}
		oStart, err := timeutil.ParseClock(other.StartTime)
		if err != nil {
			continue
		}
		oEnd, err := timeutil.ParseClock(other.EndTime)
		if err != nil {
			continue
		}
		if !timeutil.Overlaps(start, end, oStart, oEnd) {
			continue
		}

		name, seen := names[other.BranchID]
		if !seen {
			branch, err := s.branchRepo.Get(ctx, other.BranchID)
			if err == nil {
				name = branch.Name
			}
			names[other.BranchID] = name
		}
		conflicts = append(conflicts, &model.ScheduleConflict{
			BranchID:   other.BranchID,
			BranchName: name,
			DayOfWeek:  other.DayOfWeek,
			StartTime:  other.StartTime,
			EndTime:    other.EndTime,
		})
	}
	return conflicts, nil
}

func (s *Service) ListSchedules(ctx context.Context, therapistID uuid.UUID, branchID *uuid.UUID) ([]*model.Schedule, error) {
	return s.scheduleRepo.ListForTherapist(ctx, therapistID, branchID)
}

func (s *Service) DeleteSchedule(ctx context.Context, therapistID, scheduleID uuid.UUID) error {
	schedule, err := s.scheduleRepo.Get(ctx, scheduleID)
	if err != nil {
		return err
	}
	if schedule.TherapistID != therapistID {
		return apperror.Validation("schedule %s does not belong to therapist %s", scheduleID, therapistID)
	}
	return s.scheduleRepo.Delete(ctx, scheduleID)
}
