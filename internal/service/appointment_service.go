package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/yigalul/gym-appointment/internal/dto"
	"github.com/yigalul/gym-appointment/internal/models"
	appErrors "github.com/yigalul/gym-appointment/pkg/errors"
)

type appointmentStore interface {
	ListActiveBetween(ctx context.Context, from, to time.Time) ([]models.Appointment, error)
	ListBetween(ctx context.Context, from, to time.Time, trainerID int64) ([]models.Appointment, error)
	FindByID(ctx context.Context, id int64) (*models.Appointment, error)
	Cancel(ctx context.Context, id int64) (*models.Appointment, error)
	DeleteBetween(ctx context.Context, from, to time.Time) (int64, error)
	CreateGuarded(ctx context.Context, appt *models.Appointment, guard models.BookingGuard) error
}

type clientLookup interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type reportInvalidator interface {
	Invalidate(ctx context.Context, key string) error
}

// AppointmentService handles interactive bookings. Every booking goes through the
// same checker and guarded insert as the auto-scheduler.
type AppointmentService struct {
	appointments appointmentStore
	clients      clientLookup
	trainers     scheduleTrainerSource
	notifier     bookingNotifier
	reports      reportInvalidator
	policy       BookingPolicy
	loc          *time.Location
	validator    *validator.Validate
	logger       *zap.Logger
	now          func() time.Time
}

// NewAppointmentService constructs an AppointmentService.
func NewAppointmentService(
	appointments appointmentStore,
	clients clientLookup,
	trainers scheduleTrainerSource,
	notifier bookingNotifier,
	reports reportInvalidator,
	policy BookingPolicy,
	loc *time.Location,
	validate *validator.Validate,
	logger *zap.Logger,
) *AppointmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	if policy.MaxClientsPerTrainer <= 0 {
		policy = DefaultBookingPolicy()
	}
	return &AppointmentService{
		appointments: appointments,
		clients:      clients,
		trainers:     trainers,
		notifier:     notifier,
		reports:      reports,
		policy:       policy,
		loc:          loc,
		validator:    validate,
		logger:       logger,
		now:          time.Now,
	}
}

// Book creates one appointment. Clients without an account book by e-mail only and
// are not subject to limits or credits.
func (s *AppointmentService) Book(ctx context.Context, actor models.Actor, req dto.BookAppointmentRequest) (*models.Appointment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	at := req.StartTime.In(s.loc)
	if at.Minute() != 0 || at.Second() != 0 || at.Nanosecond() != 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "appointments start on the hour")
	}
	if !at.After(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot book an appointment in the past")
	}
	if actor.Role == models.RoleClient && !strings.EqualFold(strings.TrimSpace(req.ClientEmail), actor.Email) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "clients can only book for themselves")
	}

	client, err := s.clients.FindByEmail(ctx, req.ClientEmail)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load client")
		}
		client = nil
	}

	week := WeekOf(at, s.loc)
	trainers, err := s.trainers.ListWithAvailability(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load trainers")
	}
	existing, err := s.appointments.ListActiveBetween(ctx, week.Start, week.End())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointments")
	}

	index := newAvailabilityIndex(trainers, s.loc)
	trainer, ok := index.Trainer(req.TrainerID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "trainer not found")
	}
	ledger := newBookingLedger(existing)

	booking := bookingRequest{TrainerID: req.TrainerID, ClientEmail: req.ClientEmail, At: at}
	appt := &models.Appointment{
		TrainerID:   req.TrainerID,
		ClientName:  strings.TrimSpace(req.ClientName),
		ClientEmail: strings.TrimSpace(req.ClientEmail),
		StartTime:   at,
		Status:      models.AppointmentConfirmed,
	}
	if client != nil {
		booking.ClientID = client.ID
		clientID := client.ID
		appt.ClientID = &clientID
		if ledger.weeklyCount(client.ID, client.Email) >= client.WeeklyWorkoutLimit {
			return nil, appErrors.Rejected(models.ReasonWeeklyLimitReached)
		}
		if s.policy.EnforceCredits && client.WorkoutCredits <= 0 {
			return nil, appErrors.Rejected(models.ReasonNoCreditsRemaining)
		}
	}

	checker := bookingChecker{policy: s.policy, index: index}
	if reason := checker.Check(ledger, booking); reason != "" {
		return nil, appErrors.Rejected(reason)
	}

	if err := s.appointments.CreateGuarded(ctx, appt, s.policy.guard(client != nil)); err != nil {
		var conflict *models.BookingConflictError
		if errors.As(err, &conflict) {
			return nil, appErrors.Rejected(conflict.Reason)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to book appointment")
	}

	if client != nil && s.notifier != nil {
		s.notifier.AppointmentBooked(ctx, *client, trainer, *appt)
	}
	s.logger.Info("appointment booked",
		zap.Int64("appointment_id", appt.ID),
		zap.Int64("trainer_id", appt.TrainerID),
		zap.String("slot", LabelAt(at, s.loc)),
		zap.Int64("by", actor.UserID),
	)
	return appt, nil
}

// Cancel marks an appointment cancelled. Clients may only cancel their own.
func (s *AppointmentService) Cancel(ctx context.Context, actor models.Actor, id int64) (*models.Appointment, error) {
	appt, err := s.appointments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}
	if actor.Role == models.RoleClient && !ownsAppointment(actor, *appt) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot cancel another client's appointment")
	}
	if !appt.Active() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "appointment already cancelled")
	}

	cancelled, err := s.appointments.Cancel(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel appointment")
	}
	return cancelled, nil
}

// ListWeek returns the appointments of one week, optionally for one trainer. An empty
// week_start means the current week.
func (s *AppointmentService) ListWeek(ctx context.Context, query dto.AppointmentWeekQuery) ([]models.Appointment, error) {
	week := WeekOf(s.now(), s.loc)
	if query.WeekStart != "" {
		parsed, err := ParseWeekDate(query.WeekStart, s.loc)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid week_start format, expected YYYY-MM-DD")
		}
		week = parsed
	}
	items, err := s.appointments.ListBetween(ctx, week.Start, week.End(), query.TrainerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}
	if items == nil {
		items = []models.Appointment{}
	}
	return items, nil
}

// ClearWeek deletes every appointment of the week and drops its cached run report.
func (s *AppointmentService) ClearWeek(ctx context.Context, actor models.Actor, weekDate string) (int64, error) {
	week, err := ParseWeekDate(weekDate, s.loc)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid week format, expected YYYY-MM-DD")
	}
	deleted, err := s.appointments.DeleteBetween(ctx, week.Start, week.End())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear week")
	}
	if s.reports != nil {
		if err := s.reports.Invalidate(ctx, reportCacheKey(week)); err != nil {
			s.logger.Warn("failed to drop cached report", zap.String("week", week.Key()), zap.Error(err))
		}
	}
	s.logger.Info("week cleared", zap.String("week", week.Key()), zap.Int64("deleted", deleted), zap.Int64("by", actor.UserID))
	return deleted, nil
}

func ownsAppointment(actor models.Actor, appt models.Appointment) bool {
	if appt.ClientID != nil {
		return *appt.ClientID == actor.UserID
	}
	return strings.EqualFold(appt.ClientEmail, actor.Email)
}
