package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/yigalul/gym-appointment/internal/dto"
	"github.com/yigalul/gym-appointment/internal/models"
	appErrors "github.com/yigalul/gym-appointment/pkg/errors"
)

const gymClosedDay = int(time.Saturday)

type availabilityStore interface {
	Create(ctx context.Context, window *models.Availability) error
	FindByID(ctx context.Context, id int64) (*models.Availability, error)
	Delete(ctx context.Context, id int64) error
	CountOtherTrainersOverlapping(ctx context.Context, trainerID int64, day int, start, end string) (int, error)
	HasOverlap(ctx context.Context, trainerID int64, day int, start, end string) (bool, error)
}

type trainerFinder interface {
	ListWithAvailability(ctx context.Context) ([]models.Trainer, error)
	FindByID(ctx context.Context, id int64) (*models.Trainer, error)
}

// shift is a working block trainers may open windows in, in minutes of the day.
type shift struct {
	name       string
	start, end int
}

var gymShifts = []shift{
	{name: "morning", start: 7 * 60, end: 13 * 60},
	{name: "evening", start: 15 * 60, end: 21 * 60},
}

// AvailabilityService manages trainers and their recurring windows.
type AvailabilityService struct {
	windows            availabilityStore
	trainers           trainerFinder
	maxTrainersByShift int
	validator          *validator.Validate
	logger             *zap.Logger
}

// NewAvailabilityService constructs an AvailabilityService.
func NewAvailabilityService(windows availabilityStore, trainers trainerFinder, maxTrainersPerShift int, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxTrainersPerShift <= 0 {
		maxTrainersPerShift = 3
	}
	return &AvailabilityService{windows: windows, trainers: trainers, maxTrainersByShift: maxTrainersPerShift, validator: validate, logger: logger}
}

// ListTrainers returns every trainer with its windows.
func (s *AvailabilityService) ListTrainers(ctx context.Context) ([]models.Trainer, error) {
	trainers, err := s.trainers.ListWithAvailability(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list trainers")
	}
	if trainers == nil {
		trainers = []models.Trainer{}
	}
	return trainers, nil
}

// Create adds a window to a trainer. The gym is closed on Saturday, windows must sit
// inside one shift, and a shift holds at most maxTrainersByShift trainers.
func (s *AvailabilityService) Create(ctx context.Context, actor models.Actor, trainerID int64, req dto.CreateAvailabilityRequest) (*models.Availability, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}
	if _, err := s.ownedTrainer(ctx, actor, trainerID); err != nil {
		return nil, err
	}

	day := *req.DayOfWeek
	if day == gymClosedDay {
		return nil, appErrors.Clone(appErrors.ErrValidation, "the gym is closed on Saturday")
	}
	start, err := parseClock(req.StartTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start_time, expected HH:MM")
	}
	end, err := parseClock(req.EndTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end_time, expected HH:MM")
	}
	if start >= end {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	sh, ok := shiftFor(start, end)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "availability must fall within the morning (07:00-13:00) or evening (15:00-21:00) shift")
	}

	startLabel, endLabel := formatClock(start), formatClock(end)
	overlap, err := s.windows.HasOverlap(ctx, trainerID, day, startLabel, endLabel)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check availability")
	}
	if overlap {
		return nil, appErrors.Clone(appErrors.ErrConflict, "window overlaps an existing window")
	}
	others, err := s.windows.CountOtherTrainersOverlapping(ctx, trainerID, day, formatClock(sh.start), formatClock(sh.end))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check shift staffing")
	}
	if others >= s.maxTrainersByShift {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("the %s shift already has %d trainers", sh.name, others))
	}

	window := &models.Availability{
		TrainerID:   trainerID,
		DayOfWeek:   day,
		StartTime:   startLabel,
		EndTime:     endLabel,
		IsRecurring: req.IsRecurring == nil || *req.IsRecurring,
	}
	if err := s.windows.Create(ctx, window); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create availability")
	}
	s.logger.Info("availability added", zap.Int64("trainer_id", trainerID), zap.Int("day", day), zap.String("start", startLabel), zap.String("end", endLabel))
	return window, nil
}

// Delete removes a window.
func (s *AvailabilityService) Delete(ctx context.Context, actor models.Actor, id int64) error {
	window, err := s.windows.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "availability not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}
	if _, err := s.ownedTrainer(ctx, actor, window.TrainerID); err != nil {
		return err
	}
	if err := s.windows.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "availability not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete availability")
	}
	return nil
}

// ownedTrainer loads the trainer; a TRAINER actor must be linked to it.
func (s *AvailabilityService) ownedTrainer(ctx context.Context, actor models.Actor, trainerID int64) (*models.Trainer, error) {
	trainer, err := s.trainers.FindByID(ctx, trainerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "trainer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load trainer")
	}
	if actor.Role == models.RoleTrainer && (trainer.UserID == nil || *trainer.UserID != actor.UserID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "trainers can only manage their own availability")
	}
	return trainer, nil
}

func shiftFor(start, end int) (shift, bool) {
	for _, sh := range gymShifts {
		if start >= sh.start && end <= sh.end {
			return sh, true
		}
	}
	return shift{}, false
}

func formatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
