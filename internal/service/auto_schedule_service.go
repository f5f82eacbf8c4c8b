package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yigalul/gym-appointment/internal/dto"
	"github.com/yigalul/gym-appointment/internal/models"
	appErrors "github.com/yigalul/gym-appointment/pkg/errors"
	"github.com/yigalul/gym-appointment/pkg/export"
)

const (
	scheduleKindRun     = "schedule"
	scheduleKindResolve = "resolve"
	reportCachePrefix   = "autoschedule:report:"
)

type scheduleClientSource interface {
	ListSchedulableClients(ctx context.Context) ([]models.SchedulableClient, error)
}

type scheduleTrainerSource interface {
	ListWithAvailability(ctx context.Context) ([]models.Trainer, error)
}

type appointmentWriter interface {
	ListActiveBetween(ctx context.Context, from, to time.Time) ([]models.Appointment, error)
	CreateGuarded(ctx context.Context, appt *models.Appointment, guard models.BookingGuard) error
}

type reportCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type bookingNotifier interface {
	AppointmentBooked(ctx context.Context, client models.User, trainer models.Trainer, appt models.Appointment)
	SchedulingFailed(ctx context.Context, client models.User, failure models.FailedAssignment, at time.Time)
}

type scheduleRunObserver interface {
	ObserveScheduleRun(kind, outcome string, duration time.Duration, booked, failed, resolved int)
}

// AutoScheduleConfig governs the weekly auto-scheduler.
type AutoScheduleConfig struct {
	Location  *time.Location
	Policy    BookingPolicy
	ReportTTL time.Duration
}

// AutoScheduleService places clients' default slots for a week and resolves the
// placements that failed.
type AutoScheduleService struct {
	clients      scheduleClientSource
	trainers     scheduleTrainerSource
	appointments appointmentWriter
	reports      reportCache
	notifier     bookingNotifier
	metrics      scheduleRunObserver
	validator    *validator.Validate
	logger       *zap.Logger
	cfg          AutoScheduleConfig
	running      *weekRunGuard
	csv          *export.CSVExporter
	pdf          *export.PDFExporter
	now          func() time.Time
}

// NewAutoScheduleService wires the scheduler. reports, notifier and metrics may be nil.
func NewAutoScheduleService(
	clients scheduleClientSource,
	trainers scheduleTrainerSource,
	appointments appointmentWriter,
	reports reportCache,
	notifier bookingNotifier,
	metrics scheduleRunObserver,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg AutoScheduleConfig,
) *AutoScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Policy.MaxClientsPerTrainer <= 0 {
		cfg.Policy = DefaultBookingPolicy()
	}
	if cfg.ReportTTL <= 0 {
		cfg.ReportTTL = 7 * 24 * time.Hour
	}
	return &AutoScheduleService{
		clients:      clients,
		trainers:     trainers,
		appointments: appointments,
		reports:      reports,
		notifier:     notifier,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		cfg:          cfg,
		running:      newWeekRunGuard(),
		csv:          export.NewCSVExporter(),
		pdf:          export.NewPDFExporter(),
		now:          time.Now,
	}
}

// RunAutoSchedule books every client's default slots for the week, then tries to
// rebook each failure elsewhere in the same week. Storage failures abort the run
// with an opaque error; bookings committed before the failure stay. Preferences
// that already started are left alone, and rebooking only targets later hours.
func (s *AutoScheduleService) RunAutoSchedule(ctx context.Context, actor models.Actor, req dto.AutoScheduleRequest) (*models.ScheduleRunReport, error) {
	week, err := s.parseWeek(req)
	if err != nil {
		return nil, err
	}
	release, err := s.running.acquire(week.Key())
	if err != nil {
		return nil, err
	}
	defer release()

	started := s.now()
	run, err := s.loadRun(ctx, week)
	if err != nil {
		return nil, s.abort(scheduleKindRun, week, started, err)
	}

	placement, err := run.place(ctx)
	if err != nil {
		return nil, s.abort(scheduleKindRun, week, started, err)
	}
	resolutions, err := run.resolve(ctx, placement.failures)
	if err != nil {
		return nil, s.abort(scheduleKindRun, week, started, err)
	}

	report := buildScheduleReport(uuid.NewString(), week, placement, resolutions, s.now().UTC())
	run.notifyUnresolved(ctx, placement.failures, report.FailedAssignments)
	s.storeReport(ctx, week, report)

	s.observe(scheduleKindRun, "success", started, report.SuccessCount+report.ResolvedCount, len(report.FailedAssignments)-report.ResolvedCount, report.ResolvedCount)
	s.logger.Info("auto-schedule completed",
		zap.String("run_id", report.RunID),
		zap.String("week", week.Key()),
		zap.Int64("triggered_by", actor.UserID),
		zap.Int("success", report.SuccessCount),
		zap.Int("skipped", report.SkippedCount),
		zap.Int("failed", len(report.FailedAssignments)),
		zap.Int("resolved", report.ResolvedCount),
	)
	return report, nil
}

// RunAutoResolve runs the resolver alone. The failure set is derived from current
// state: per client, the preferences still unbooked up to min(limit, #preferences)
// minus this week's bookings, keeping only those placement would reject now.
func (s *AutoScheduleService) RunAutoResolve(ctx context.Context, actor models.Actor, req dto.AutoScheduleRequest) (*models.AutoResolveResult, error) {
	week, err := s.parseWeek(req)
	if err != nil {
		return nil, err
	}
	release, err := s.running.acquire(week.Key())
	if err != nil {
		return nil, err
	}
	defer release()

	started := s.now()
	run, err := s.loadRun(ctx, week)
	if err != nil {
		return nil, s.abort(scheduleKindResolve, week, started, err)
	}

	failures := run.outstandingFailures()
	resolutions, err := run.resolve(ctx, failures)
	if err != nil {
		return nil, s.abort(scheduleKindResolve, week, started, err)
	}

	entries := failureEntries(failures, resolutions)
	run.notifyUnresolved(ctx, failures, entries)

	details := make([]models.ResolutionDetail, 0, len(resolutions))
	for _, res := range resolutions {
		details = append(details, res.detail)
	}
	result := &models.AutoResolveResult{
		RunID:         uuid.NewString(),
		WeekStart:     week.Key(),
		Outstanding:   len(failures),
		ResolvedCount: len(details),
		Details:       details,
	}
	s.mergeCachedReport(ctx, week, details)

	s.observe(scheduleKindResolve, "success", started, result.ResolvedCount, result.Outstanding-result.ResolvedCount, result.ResolvedCount)
	s.logger.Info("auto-resolve completed",
		zap.String("run_id", result.RunID),
		zap.String("week", week.Key()),
		zap.Int64("triggered_by", actor.UserID),
		zap.Int("outstanding", result.Outstanding),
		zap.Int("resolved", result.ResolvedCount),
	)
	return result, nil
}

// LastReport returns the cached report of the latest run for the week containing weekDate.
func (s *AutoScheduleService) LastReport(ctx context.Context, weekDate string) (*models.ScheduleRunReport, error) {
	week, err := ParseWeekDate(weekDate, s.cfg.Location)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if s.reports == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no auto-schedule report for this week")
	}
	var report models.ScheduleRunReport
	hit, err := s.reports.Get(ctx, reportCacheKey(week), &report)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load auto-schedule report")
	}
	if !hit {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no auto-schedule report for this week")
	}
	return &report, nil
}

// ExportReport renders the cached report as json, csv or pdf.
func (s *AutoScheduleService) ExportReport(ctx context.Context, query dto.ScheduleReportQuery) (*dto.ExportedReport, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report query")
	}
	report, err := s.LastReport(ctx, query.Week)
	if err != nil {
		return nil, err
	}

	base := fmt.Sprintf("auto-schedule-%s", report.WeekStart)
	switch query.Format {
	case "csv":
		body, err := s.csv.Render(reportDataset(report))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv report")
		}
		return &dto.ExportedReport{Filename: base + ".csv", ContentType: "text/csv", Body: body}, nil
	case "pdf":
		body, err := s.pdf.Render(reportDataset(report), reportTitle(report))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf report")
		}
		return &dto.ExportedReport{Filename: base + ".pdf", ContentType: "application/pdf", Body: body}, nil
	default:
		body, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode report")
		}
		return &dto.ExportedReport{Filename: base + ".json", ContentType: "application/json", Body: body}, nil
	}
}

func (s *AutoScheduleService) parseWeek(req dto.AutoScheduleRequest) (Week, error) {
	if err := s.validator.Struct(req); err != nil {
		return Week{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "week_start_date is required")
	}
	week, err := ParseWeekDate(req.WeekStartDate, s.cfg.Location)
	if err != nil {
		return Week{}, appErrors.Clone(appErrors.ErrValidation, "invalid week_start_date format, expected YYYY-MM-DD")
	}
	return week, nil
}

func (s *AutoScheduleService) loadRun(ctx context.Context, week Week) (*scheduleRun, error) {
	clients, err := s.clients.ListSchedulableClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("load clients: %w", err)
	}
	trainers, err := s.trainers.ListWithAvailability(ctx)
	if err != nil {
		return nil, fmt.Errorf("load trainers: %w", err)
	}
	existing, err := s.appointments.ListActiveBetween(ctx, week.Start, week.End())
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	sorted := make([]models.SchedulableClient, len(clients))
	copy(sorted, clients)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	index := newAvailabilityIndex(trainers, week.Location())
	ledger := newBookingLedger(existing)
	budgets := make(map[int64]*clientBudget, len(sorted))
	for _, client := range sorted {
		budgets[client.ID] = newClientBudget(client.User, ledger.weeklyCount(client.ID, client.Email), s.cfg.Policy.EnforceCredits)
	}

	return &scheduleRun{
		week:     week,
		now:      s.now(),
		clients:  sorted,
		index:    index,
		ledger:   ledger,
		checker:  bookingChecker{policy: s.cfg.Policy, index: index},
		policy:   s.cfg.Policy,
		budgets:  budgets,
		store:    s.appointments,
		notifier: s.notifier,
		logger:   s.logger,
	}, nil
}

func (s *AutoScheduleService) abort(kind string, week Week, started time.Time, err error) error {
	s.observe(kind, "error", started, 0, 0, 0)
	s.logger.Error("auto-scheduler aborted", zap.String("kind", kind), zap.String("week", week.Key()), zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to run auto-scheduler")
}

func (s *AutoScheduleService) observe(kind, outcome string, started time.Time, booked, failed, resolved int) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveScheduleRun(kind, outcome, s.now().Sub(started), booked, failed, resolved)
}

func (s *AutoScheduleService) storeReport(ctx context.Context, week Week, report *models.ScheduleRunReport) {
	if s.reports == nil {
		return
	}
	if err := s.reports.Set(ctx, reportCacheKey(week), report, s.cfg.ReportTTL); err != nil {
		s.logger.Warn("failed to cache auto-schedule report", zap.String("week", week.Key()), zap.Error(err))
	}
}

func (s *AutoScheduleService) mergeCachedReport(ctx context.Context, week Week, details []models.ResolutionDetail) {
	if s.reports == nil || len(details) == 0 {
		return
	}
	var report models.ScheduleRunReport
	hit, err := s.reports.Get(ctx, reportCacheKey(week), &report)
	if err != nil || !hit {
		return
	}
	mergeResolutions(&report, details)
	s.storeReport(ctx, week, &report)
}

func reportCacheKey(week Week) string {
	return reportCachePrefix + week.Key()
}

// weekRunGuard allows one scheduler run per week at a time.
type weekRunGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func newWeekRunGuard() *weekRunGuard {
	return &weekRunGuard{active: make(map[string]struct{})}
}

func (g *weekRunGuard) acquire(key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.active[key]; busy {
		return nil, appErrors.Clone(appErrors.ErrConflict, "auto-schedule already running for this week")
	}
	g.active[key] = struct{}{}
	return func() {
		g.mu.Lock()
		delete(g.active, key)
		g.mu.Unlock()
	}, nil
}

// clientBudget tracks how many more bookings a client may receive in this run.
type clientBudget struct {
	limit          int
	allowance      int
	credits        int
	enforceCredits bool
}

func newClientBudget(user models.User, bookedThisWeek int, enforceCredits bool) *clientBudget {
	return &clientBudget{
		limit:          user.WeeklyWorkoutLimit,
		allowance:      user.WeeklyWorkoutLimit - bookedThisWeek,
		credits:        user.WorkoutCredits,
		enforceCredits: enforceCredits,
	}
}

func (b *clientBudget) schedulable() bool {
	return b.limit > 0 && b.allowance > 0 && (!b.enforceCredits || b.credits > 0)
}

func (b *clientBudget) exhaustedReason() string {
	if b.allowance <= 0 {
		return models.ReasonWeeklyLimitReached
	}
	if b.enforceCredits && b.credits <= 0 {
		return models.ReasonNoCreditsRemaining
	}
	return ""
}

func (b *clientBudget) consume() {
	b.allowance--
	if b.enforceCredits {
		b.credits--
	}
}

type preference struct {
	day  int
	hour int
}

// normalizePreferences drops out-of-range and duplicate slots and orders by (day, hour).
func normalizePreferences(slots []models.ClientDefaultSlot) []preference {
	seen := make(map[preference]struct{}, len(slots))
	prefs := make([]preference, 0, len(slots))
	for _, slot := range slots {
		if slot.DayOfWeek < 0 || slot.DayOfWeek > 6 || slot.StartHour < 0 || slot.StartHour > 23 {
			continue
		}
		p := preference{day: slot.DayOfWeek, hour: slot.StartHour}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		prefs = append(prefs, p)
	}
	sort.Slice(prefs, func(i, j int) bool {
		if prefs[i].day == prefs[j].day {
			return prefs[i].hour < prefs[j].hour
		}
		return prefs[i].day < prefs[j].day
	})
	return prefs
}

type placementFailure struct {
	client models.User
	day    int
	hour   int
	at     time.Time
	reason string
}

type placementOutcome struct {
	booked   int
	skipped  int
	failures []placementFailure
}

// scheduleRun is the state of one run. It is used by a single goroutine.
// Slots starting at or before now are never booked.
type scheduleRun struct {
	week     Week
	now      time.Time
	clients  []models.SchedulableClient
	index    *availabilityIndex
	ledger   *bookingLedger
	checker  bookingChecker
	policy   BookingPolicy
	budgets  map[int64]*clientBudget
	store    appointmentWriter
	notifier bookingNotifier
	logger   *zap.Logger
}

// place is the first pass over every client's default slots.
func (r *scheduleRun) place(ctx context.Context) (placementOutcome, error) {
	outcome := placementOutcome{failures: []placementFailure{}}
	for _, client := range r.clients {
		prefs := normalizePreferences(client.DefaultSlots)
		budget := r.budgets[client.ID]
		if len(prefs) == 0 || budget == nil || !budget.schedulable() {
			outcome.skipped++
			continue
		}

		for _, pref := range prefs {
			at, ok := r.week.Slot(pref.day, pref.hour)
			if !ok || r.elapsed(at) || r.ledger.clientBooked(client.ID, client.Email, at) {
				continue
			}
			failure := placementFailure{client: client.User, day: pref.day, hour: pref.hour, at: at}
			if reason := budget.exhaustedReason(); reason != "" {
				failure.reason = reason
				outcome.failures = append(outcome.failures, failure)
				continue
			}

			trainerID, reason := r.evaluate(client.User, pref.day, pref.hour, at)
			if reason == "" {
				var err error
				if _, reason, err = r.commit(ctx, client.User, trainerID, at); err != nil {
					return outcome, err
				}
			}
			if reason == "" {
				outcome.booked++
				continue
			}
			failure.reason = reason
			outcome.failures = append(outcome.failures, failure)
		}
	}
	return outcome, nil
}

func (r *scheduleRun) elapsed(at time.Time) bool {
	return !at.After(r.now)
}

// evaluate picks the lowest-id covering trainer that passes the checker. When none
// passes, the reason is the one reported for the lowest-id covering trainer.
func (r *scheduleRun) evaluate(client models.User, day, hour int, at time.Time) (int64, string) {
	covering := r.index.TrainersCovering(day, hour)
	if len(covering) == 0 {
		return 0, models.ReasonNoTrainerCovers
	}
	first := ""
	for _, trainerID := range covering {
		reason := r.checker.Check(r.ledger, bookingRequest{TrainerID: trainerID, ClientID: client.ID, ClientEmail: client.Email, At: at})
		if reason == "" {
			return trainerID, ""
		}
		if first == "" {
			first = reason
		}
	}
	return 0, first
}

// commit writes one booking through the guarded insert. A conflict detected by
// storage comes back as a reason; any other error aborts the run.
func (r *scheduleRun) commit(ctx context.Context, client models.User, trainerID int64, at time.Time) (*models.Appointment, string, error) {
	clientID := client.ID
	appt := &models.Appointment{
		TrainerID:   trainerID,
		ClientID:    &clientID,
		ClientName:  client.DisplayName(),
		ClientEmail: client.Email,
		StartTime:   at,
		Status:      models.AppointmentConfirmed,
	}
	if err := r.store.CreateGuarded(ctx, appt, r.policy.guard(true)); err != nil {
		var conflict *models.BookingConflictError
		if errors.As(err, &conflict) {
			r.logger.Info("booking rejected by storage guard",
				zap.Int64("client_id", client.ID),
				zap.Int64("trainer_id", trainerID),
				zap.Time("at", at),
				zap.String("reason", conflict.Reason),
			)
			return nil, conflict.Reason, nil
		}
		return nil, "", err
	}

	r.ledger.add(*appt)
	if budget := r.budgets[client.ID]; budget != nil {
		budget.consume()
	}
	if r.notifier != nil {
		trainer, _ := r.index.Trainer(trainerID)
		r.notifier.AppointmentBooked(ctx, client, trainer, *appt)
	}
	return appt, "", nil
}

// outstandingFailures rebuilds a failure set from current bookings for a standalone resolve.
// Preferences that could be placed right now use up outstanding demand but are left to
// the auto-scheduler.
func (r *scheduleRun) outstandingFailures() []placementFailure {
	failures := []placementFailure{}
	for _, client := range r.clients {
		prefs := normalizePreferences(client.DefaultSlots)
		budget := r.budgets[client.ID]
		if len(prefs) == 0 || budget == nil || !budget.schedulable() {
			continue
		}
		outstanding := min(client.WeeklyWorkoutLimit, len(prefs)) - r.ledger.weeklyCount(client.ID, client.Email)
		for _, pref := range prefs {
			if outstanding <= 0 {
				break
			}
			at, ok := r.week.Slot(pref.day, pref.hour)
			if !ok || r.elapsed(at) || r.ledger.clientBooked(client.ID, client.Email, at) {
				continue
			}
			outstanding--
			if _, reason := r.evaluate(client.User, pref.day, pref.hour, at); reason != "" {
				failures = append(failures, placementFailure{client: client.User, day: pref.day, hour: pref.hour, at: at, reason: reason})
			}
		}
	}
	return failures
}

func (r *scheduleRun) notifyUnresolved(ctx context.Context, failures []placementFailure, entries []models.FailedAssignment) {
	if r.notifier == nil {
		return
	}
	for i, failure := range failures {
		if i < len(entries) && entries[i].Resolved {
			continue
		}
		r.notifier.SchedulingFailed(ctx, failure.client, failure.entry(), failure.at)
	}
}
