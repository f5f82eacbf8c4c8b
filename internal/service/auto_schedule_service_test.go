package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yigalul/gym-appointment/internal/dto"
	"github.com/yigalul/gym-appointment/internal/models"
	appErrors "github.com/yigalul/gym-appointment/pkg/errors"
)

const testWeek = "2024-06-09"

var (
	testAdmin  = models.Actor{UserID: 1, Role: models.RoleAdmin, Email: "admin@gym.test"}
	testMonday = time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
)

type fakeClientSource struct {
	clients []models.SchedulableClient
	err     error
}

func (f *fakeClientSource) ListSchedulableClients(ctx context.Context) ([]models.SchedulableClient, error) {
	return f.clients, f.err
}

type fakeTrainerSource struct {
	trainers []models.Trainer
	err      error
}

func (f *fakeTrainerSource) ListWithAvailability(ctx context.Context) ([]models.Trainer, error) {
	return f.trainers, f.err
}

func (f *fakeTrainerSource) FindByID(ctx context.Context, id int64) (*models.Trainer, error) {
	for i := range f.trainers {
		if f.trainers[i].ID == id {
			return &f.trainers[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

// fakeAppointmentStore mimics the guarded insert: it enforces trainer capacity and
// client double booking, and can inject conflicts and storage failures.
type fakeAppointmentStore struct {
	mu           sync.Mutex
	appointments []models.Appointment
	nextID       int64
	creates      int
	failAfter    int
	createErr    error
	conflicts    map[int64]string
}

func newFakeAppointmentStore(existing ...models.Appointment) *fakeAppointmentStore {
	store := &fakeAppointmentStore{nextID: 100, failAfter: -1, conflicts: map[int64]string{}}
	for _, appt := range existing {
		store.nextID++
		appt.ID = store.nextID
		if appt.Status == "" {
			appt.Status = models.AppointmentConfirmed
		}
		store.appointments = append(store.appointments, appt)
	}
	return store
}

func (f *fakeAppointmentStore) ListActiveBetween(ctx context.Context, from, to time.Time) ([]models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Appointment
	for _, appt := range f.appointments {
		if appt.Active() && !appt.StartTime.Before(from) && appt.StartTime.Before(to) {
			out = append(out, appt)
		}
	}
	return out, nil
}

func (f *fakeAppointmentStore) ListBetween(ctx context.Context, from, to time.Time, trainerID int64) ([]models.Appointment, error) {
	all, _ := f.ListActiveBetween(ctx, from, to)
	if trainerID == 0 {
		return all, nil
	}
	var out []models.Appointment
	for _, appt := range all {
		if appt.TrainerID == trainerID {
			out = append(out, appt)
		}
	}
	return out, nil
}

func (f *fakeAppointmentStore) FindByID(ctx context.Context, id int64) (*models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.appointments {
		if f.appointments[i].ID == id {
			appt := f.appointments[i]
			return &appt, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAppointmentStore) Cancel(ctx context.Context, id int64) (*models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.appointments {
		if f.appointments[i].ID == id {
			f.appointments[i].Status = models.AppointmentCancelled
			appt := f.appointments[i]
			return &appt, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAppointmentStore) DeleteBetween(ctx context.Context, from, to time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.appointments[:0]
	var deleted int64
	for _, appt := range f.appointments {
		if !appt.StartTime.Before(from) && appt.StartTime.Before(to) {
			deleted++
			continue
		}
		kept = append(kept, appt)
	}
	f.appointments = kept
	return deleted, nil
}

func (f *fakeAppointmentStore) CreateGuarded(ctx context.Context, appt *models.Appointment, guard models.BookingGuard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAfter >= 0 && f.creates >= f.failAfter {
		return f.createErr
	}
	if reason, ok := f.conflicts[appt.StartTime.Unix()]; ok {
		delete(f.conflicts, appt.StartTime.Unix())
		return &models.BookingConflictError{Reason: reason}
	}
	trainerLoad := 0
	for _, existing := range f.appointments {
		if !existing.Active() || !existing.StartTime.Equal(appt.StartTime) {
			continue
		}
		if existing.TrainerID == appt.TrainerID {
			trainerLoad++
		}
		if appt.ClientID != nil && existing.ClientID != nil && *existing.ClientID == *appt.ClientID {
			return &models.BookingConflictError{Reason: models.ReasonClientDoubleBooked}
		}
	}
	if trainerLoad >= guard.TrainerCapacity {
		return &models.BookingConflictError{Reason: models.ReasonTrainerSlotFull}
	}
	f.creates++
	f.nextID++
	appt.ID = f.nextID
	appt.CreatedAt = time.Now().UTC()
	f.appointments = append(f.appointments, *appt)
	return nil
}

func (f *fakeAppointmentStore) active() []models.Appointment {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Appointment
	for _, appt := range f.appointments {
		if appt.Active() {
			out = append(out, appt)
		}
	}
	return out
}

type fakeReportCache struct {
	entries map[string][]byte
	setErr  error
}

func newFakeReportCache() *fakeReportCache {
	return &fakeReportCache{entries: map[string][]byte{}}
}

func (f *fakeReportCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := f.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (f *fakeReportCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.entries[key] = raw
	return nil
}

func (f *fakeReportCache) Invalidate(ctx context.Context, key string) error {
	delete(f.entries, key)
	return nil
}

type fakeNotifier struct {
	booked []models.Appointment
	failed []models.FailedAssignment
}

func (f *fakeNotifier) AppointmentBooked(ctx context.Context, client models.User, trainer models.Trainer, appt models.Appointment) {
	f.booked = append(f.booked, appt)
}

func (f *fakeNotifier) SchedulingFailed(ctx context.Context, client models.User, failure models.FailedAssignment, at time.Time) {
	f.failed = append(f.failed, failure)
}

type runObservation struct {
	kind, outcome            string
	booked, failed, resolved int
}

type fakeRunObserver struct {
	runs []runObservation
}

func (f *fakeRunObserver) ObserveScheduleRun(kind, outcome string, duration time.Duration, booked, failed, resolved int) {
	f.runs = append(f.runs, runObservation{kind, outcome, booked, failed, resolved})
}

type scheduleFixture struct {
	svc      *AutoScheduleService
	clients  *fakeClientSource
	trainers *fakeTrainerSource
	store    *fakeAppointmentStore
	cache    *fakeReportCache
	notifier *fakeNotifier
	metrics  *fakeRunObserver
}

func newScheduleFixture(clients []models.SchedulableClient, trainers []models.Trainer, existing ...models.Appointment) *scheduleFixture {
	fx := &scheduleFixture{
		clients:  &fakeClientSource{clients: clients},
		trainers: &fakeTrainerSource{trainers: trainers},
		store:    newFakeAppointmentStore(existing...),
		cache:    newFakeReportCache(),
		notifier: &fakeNotifier{},
		metrics:  &fakeRunObserver{},
	}
	fx.svc = NewAutoScheduleService(fx.clients, fx.trainers, fx.store, fx.cache, fx.notifier, fx.metrics, nil, zap.NewNop(), AutoScheduleConfig{
		Location: time.UTC,
		Policy:   DefaultBookingPolicy(),
	})
	fx.svc.now = func() time.Time { return testMonday.Add(-48 * time.Hour) }
	return fx
}

func testClient(id int64, first string, slots ...[2]int) models.SchedulableClient {
	c := models.SchedulableClient{User: models.User{
		ID:                 id,
		Email:              strings.ToLower(first) + "@gym.test",
		FirstName:          first,
		LastName:           "Test",
		PhoneNumber:        "+972500000000",
		Role:               models.RoleClient,
		WeeklyWorkoutLimit: models.DefaultWeeklyWorkoutLimit,
		WorkoutCredits:     models.DefaultWorkoutCredits,
	}}
	for _, s := range slots {
		c.DefaultSlots = append(c.DefaultSlots, models.ClientDefaultSlot{UserID: id, DayOfWeek: s[0], StartHour: s[1]})
	}
	return c
}

func testTrainer(id int64, name string, windows ...models.Availability) models.Trainer {
	for i := range windows {
		windows[i].TrainerID = id
	}
	return models.Trainer{ID: id, Name: name, Availabilities: windows}
}

func testWindow(day int, start, end string) models.Availability {
	return models.Availability{DayOfWeek: day, StartTime: start, EndTime: end, IsRecurring: true}
}

func walkIn(trainerID int64, email string, at time.Time) models.Appointment {
	return models.Appointment{TrainerID: trainerID, ClientName: "Walk In", ClientEmail: email, StartTime: at, Status: models.AppointmentConfirmed}
}

func mondayAt(hour int) time.Time {
	return testMonday.Add(time.Duration(hour) * time.Hour)
}

func runWeek(t *testing.T, fx *scheduleFixture) *models.ScheduleRunReport {
	t.Helper()
	report, err := fx.svc.RunAutoSchedule(context.Background(), testAdmin, dto.AutoScheduleRequest{WeekStartDate: testWeek})
	require.NoError(t, err)
	return report
}

func TestAutoScheduleBooksFreeSlot(t *testing.T) {
	fx := newScheduleFixture(
		[]models.SchedulableClient{testClient(10, "Noa", [2]int{1, 9})},
		[]models.Trainer{testTrainer(1, "Avi", testWindow(1, "07:00", "12:00"))},
	)

	report := runWeek(t, fx)

	assert.Equal(t, 1, report.SuccessCount)
	assert.Empty(t, report.FailedAssignments)
	assert.NotNil(t, report.FailedAssignments)
	assert.NotNil(t, report.ResolutionDetails)
	assert.Equal(t, "2024-06-09", report.WeekStart)
	assert.Equal(t, "UTC", report.Timezone)

	booked := fx.store.active()
	require.Len(t, booked, 1)
	assert.Equal(t, int64(1), booked[0].TrainerID)
	assert.True(t, booked[0].StartTime.Equal(mondayAt(9)))
	assert.Equal(t, "Noa Test", booked[0].ClientName)
	assert.Len(t, fx.notifier.booked, 1)
}

func TestAutoScheduleResolvesFullTrainerSlot(t *testing.T) {
	fx := newScheduleFixture(
		[]models.SchedulableClient{testClient(10, "Noa", [2]int{1, 9})},
		[]models.Trainer{testTrainer(1, "Avi", testWindow(1, "07:00", "12:00"))},
		walkIn(1, "a@walk.in", mondayAt(9)),
		walkIn(1, "b@walk.in", mondayAt(9)),
	)

	report := runWeek(t, fx)

	assert.Equal(t, 0, report.SuccessCount)
	require.Len(t, report.FailedAssignments, 1)
	failure := report.FailedAssignments[0]
	assert.Equal(t, "Noa Test", failure.Client)
	assert.Equal(t, "Mon 09:00", failure.Slot)
	assert.Equal(t, models.ReasonTrainerSlotFull, failure.Reason)
	assert.True(t, failure.Resolved)
	assert.Equal(t, "Mon 07:00", failure.ResolvedSlot)

	assert.Equal(t, 1, report.ResolvedCount)
	require.Len(t, report.ResolutionDetails, 1)
	detail := report.ResolutionDetails[0]
	assert.Equal(t, "Avi", detail.Trainer)
	assert.Equal(t, "Mon 09:00", detail.OriginalSlot)
	assert.Equal(t, "Mon 07:00", detail.NewSlot)
	assert.NotZero(t, detail.AppointmentID)
	assert.Empty(t, fx.notifier.failed)
}

func TestAutoScheduleLeavesFailureWhenWeekIsFull(t *testing.T) {
	fx := newScheduleFixture(
		[]models.SchedulableClient{testClient(10, "Noa", [2]int{1, 9})},
		[]models.Trainer{testTrainer(1, "Avi", testWindow(1, "09:00", "10:00"))},
		walkIn(1, "a@walk.in", mondayAt(9)),
		walkIn(1, "b@walk.in", mondayAt(9)),
	)

	report := runWeek(t, fx)

	assert.Equal(t, 0, report.ResolvedCount)
	assert.Empty(t, report.ResolutionDetails)
	require.Len(t, report.FailedAssignments, 1)
	assert.False(t, report.FailedAssignments[0].Resolved)
	require.Len(t, fx.notifier.failed, 1)
	assert.Equal(t, "Mon 09:00", fx.notifier.failed[0].Slot)
}

func TestAutoScheduleSkipsClientsWithoutAllowance(t *testing.T) {
	noLimit := testClient(10, "Noa", [2]int{1, 9})
	noLimit.WeeklyWorkoutLimit = 0
	noCredits := testClient(11, "Lior", [2]int{1, 9})
	noCredits.WorkoutCredits = 0
	noSlots := testClient(12, "Maya")

	fx := newScheduleFixture(
		[]models.SchedulableClient{noLimit, noCredits, noSlots},
		[]models.Trainer{testTrainer(1, "Avi", testWindow(1, "07:00", "12:00"))},
	)

	report := runWeek(t, fx)

	assert.Equal(t, 0, report.SuccessCount)
	assert.Equal(t, 3, report.SkippedCount)
	assert.Empty(t, report.FailedAssignments)
	assert.Empty(t, fx.store.active())
}

func TestAutoScheduleTwoClientsShareTrainerSlot(t *testing.T) {
	fx := newScheduleFixture(
		[]models.SchedulableClient{testClient(10, "Noa", [2]int{1, 9}), testClient(11, "Lior", [2]int{1, 9})},
		[]models.Trainer{testTrainer(1, "Avi", testWindow(1, "07:00", "12:00"))},
	)

	report := runWeek(t, fx)

	assert.Equal(t, 2, report.SuccessCount)
	assert.Empty(t, report.FailedAssignments)
}

func TestAutoScheduleRespectsCapacityAndDoubleBooking(t *testing.T) {
	var clients []models.SchedulableClient
	for i := int64(0); i < 6; i++ {
		clients = append(clients, testClient(10+i, fmt.Sprintf("Client%d", i), [2]int{1, 9}, [2]int{1, 10}, [2]int{1, 9}))
	}
	fx := newScheduleFixture(clients, []models.Trainer{
		testTrainer(1, "Avi", testWindow(1, "07:00", "12:00")),
		testTrainer(2, "Dana", testWindow(1, "09:00", "11:00")),
	})

	runWeek(t, fx)

	perTrainer := map[string]int{}
	perClient := map[string]int{}
	for _, appt := range fx.store.active() {
		perTrainer[fmt.Sprintf("%d/%d", appt.StartTime.Unix(), appt.TrainerID)]++
		perClient[fmt.Sprintf("%d/%s", appt.StartTime.Unix(), appt.ClientEmail)]++
	}
	for key, count := range perTrainer {
		assert.LessOrEqual(t, count, 2, key)
	}
	for key, count := range perClient {
		assert.Equal(t, 1, count, key)
	}
}

func TestAutoScheduleRerunIsNoOp(t *testing.T) {
	fx := newScheduleFixture(
		[]models.SchedulableClient{testClient(10, "Noa", [2]int{1, 9}, [2]int{3, 10})},
		[]models.Trainer{testTrainer(1, "Avi", testWindow(1, "07:00", "12:00"), testWindow(3, "07:00", "12:00"))},
	)

	first := runWeek(t, fx)
	require.Equal(t, 2, first.SuccessCount)
	before := len(fx.store.active())

	second := runWeek(t, fx)

	assert.Equal(t, 0, second.SuccessCount)
	assert.Empty(t, second.FailedAssignments)
	assert.Equal(t, before, len(fx.store.active()))
}

func TestAutoScheduleIsDeterministic(t *testing.T) {
	build := func() *scheduleFixture {
		return newScheduleFixture(
			[]models.SchedulableClient{
				testClient(12, "Maya", [2]int{1, 9}, [2]int{2, 16}),
				testClient(10, "Noa", [2]int{1, 9}),
				testClient(11, "Lior", [2]int{1, 9}, [2]int{2, 16}),
			},
			[]models.Trainer{
				testTrainer(2, "Dana", testWindow(1, "07:00", "12:00"), testWindow(2, "15:00", "21:00")),
				testTrainer(1, "Avi", testWindow(1, "09:00", "10:00")),
			},
		)
	}
	a, b := build(), build()
	reportA := runWeek(t, a)
	reportB := runWeek(t, b)

	assert.Equal(t, reportA.SuccessCount, reportB.SuccessCount)
	assert.Equal(t, reportA.FailedAssignments, reportB.FailedAssignments)
	assert.Equal(t, reportA.ResolutionDetails, reportB.ResolutionDetails)

	apptsA, apptsB := a.store.active(), b.store.active()
	require.Equal(t, len(apptsA), len(apptsB))
	for i := range apptsA {
		assert.Equal(t, apptsA[i].TrainerID, apptsB[i].TrainerID)
		assert.Equal(t, apptsA[i].ClientEmail, apptsB[i].ClientEmail)
		assert.True(t, apptsA[i].StartTime.Equal(apptsB[i].StartTime))
	}
}

func TestAutoSchedulePicksLowestTrainerID(t *testing.T) {
	fx := newScheduleFixture(
		[]models.SchedulableClient{testClient(10, "Noa", [2]int{1, 9})},
		[]models.Trainer{
			testTrainer(5, "Eli", testWindow(1, "07:00", "12:00")),
			testTrainer(3, "Gil", testWindow(1, "07:00", "12:00")),
		},
	)

	runWeek(t, fx)

	booked := fx.store.active()
	require.Len(t, booked, 1)
	assert.Equal(t, int64(3), booked[0].TrainerID)
}

func TestAutoScheduleReportsMissingTrainerAndWeeklyLimit(t *testing.T) {
	limited := testClient(10, "Noa", [2]int{1, 9}, [2]int{1, 10}, [2]int{4, 9})
	limited.WeeklyWorkoutLimit = 1
	fx := newScheduleFixture(
		[]models.SchedulableClient{limited, testClient(11, "Lior", [2]int{0, 9})},
		[]models.Trainer{testTrainer(1, "Avi", testWindow(1, "07:00", "12:00"))},
	)

	report := runWeek(t, fx)

	assert.Equal(t, 1, report.SuccessCount)
	reasons := map[string]string{}
	for _, fa := range report.FailedAssignments {
		reasons[fa.Client+" "+fa.Slot] = fa.Reason
	}
	assert.Equal(t, models.ReasonWeeklyLimitReached, reasons["Noa Test Mon 10:00"])
	assert.Equal(t, models.ReasonWeeklyLimitReached, reasons["Noa Test Thu 09:00"])
	assert.Equal(t, models.ReasonNoTrainerCovers, reasons["Lior Test Sun 09:00"])

	// Lior's failure is resolvable elsewhere in the week; Noa's are not.
	assert.Equal(t, 1, report.ResolvedCount)
	assert.Equal(t, "Lior Test", report.ResolutionDetails[0].Client)
	assert.Equal(t, "Mon 07:00", report.ResolutionDetails[0].NewSlot)
}

func TestAutoScheduleRecordsStorageConflict(t *testing.T) {
	fx := newScheduleFixture(
		[]models.SchedulableClient{testClient(10, "Noa", [2]int{1, 9})},
		[]models.Trainer{testTrainer(1, "Avi", testWindow(1, "07:00", "12:00"))},
	)
	fx.store.conflicts[mondayAt(9).Unix()] = models.ReasonTrainerSlotFull

	report := runWeek(t, fx)

	assert.Equal(t, 0, report.SuccessCount)
	require.Len(t, report.FailedAssignments, 1)
	assert.Equal(t, models.ReasonTrainerSlotFull, report.FailedAssignments[0].Reason)
	assert.Equal(t, "Mon 07:00", report.FailedAssignments[0].ResolvedSlot)
}

func TestAutoScheduleAbortsOnStorageError(t *testing.T) {
	fx := newScheduleFixture(
		[]models.SchedulableClient{testClient(10, "Noa", [2]int{1, 9}), testClient(11, "Lior", [2]int{1, 10})},
		[]models.Trainer{testTrainer(1, "Avi", testWindow(1, "07:00", "12:00"))},
	)
	fx.store.failAfter = 1
	fx.store.createErr = errors.New("connection reset")

	report, err := fx.svc.RunAutoSchedule(context.Background(), testAdmin, dto.AutoScheduleRequest{WeekStartDate: testWeek})

	require.Error(t, err)
	assert.Nil(t, report)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
	assert.Equal(t, "failed to run auto-scheduler", appErr.Message)
	assert.Len(t, fx.store.active(), 1)
	assert.Empty(t, fx.cache.entries)
	require.Len(t, fx.metrics.runs, 1)
	assert.Equal(t, "error", fx.metrics.runs[0].outcome)
}

func TestAutoScheduleAbortsWhenLoadingFails(t *testing.T) {
	fx := newScheduleFixture(nil, nil)
	fx.clients.err = errors.New("db down")

	_, err := fx.svc.RunAutoSchedule(context.Background(), testAdmin, dto.AutoScheduleRequest{WeekStartDate: testWeek})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestAutoScheduleValidatesWeek(t *testing.T) {
	fx := newScheduleFixture(nil, nil)

	_, err := fx.svc.RunAutoSchedule(context.Background(), testAdmin, dto.AutoScheduleRequest{WeekStartDate: "next testMonday"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = fx.svc.RunAutoSchedule(context.Background(), testAdmin, dto.AutoScheduleRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAutoScheduleRejectsConcurrentRunForSameWeek(t *testing.T) {
	fx := newScheduleFixture(nil, nil)
	release, err := fx.svc.running.acquire("2024-06-09")
	require.NoError(t, err)
	defer release()

	_, err = fx.svc.RunAutoSchedule(context.Background(), testAdmin, dto.AutoScheduleRequest{WeekStartDate: "2024-06-12"})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAutoScheduleSurvivesCacheFailure(t *testing.T) {
	fx := newScheduleFixture(
		[]models.SchedulableClient{testClient(10, "Noa", [2]int{1, 9})},
		[]models.Trainer{testTrainer(1, "Avi", testWindow(1, "07:00", "12:00"))},
	)
	fx.cache.setErr = errors.New("redis down")

	report := runWeek(t, fx)

	assert.Equal(t, 1, report.SuccessCount)
}

func TestAutoScheduleCachesReportForExport(t *testing.T) {
	fx := newScheduleFixture(
		[]models.SchedulableClient{testClient(10, "Noa", [2]int{1, 9})},
		[]models.Trainer{testTrainer(1, "Avi", testWindow(1, "07:00", "12:00"))},
		walkIn(1, "a@walk.in", mondayAt(9)),
		walkIn(1, "b@walk.in", mondayAt(9)),
	)
	report := runWeek(t, fx)

	cached, err := fx.svc.LastReport(context.Background(), "2024-06-11")
	require.NoError(t, err)
	assert.Equal(t, report.RunID, cached.RunID)

	exported, err := fx.svc.ExportReport(context.Background(), dto.ScheduleReportQuery{Week: testWeek, Format: "csv"})
	require.NoError(t, err)
	assert.Equal(t, "auto-schedule-2024-06-09.csv", exported.Filename)
	assert.Equal(t, "text/csv", exported.ContentType)
	body := string(exported.Body)
	assert.Contains(t, body, "Client ID,Client,Email,Slot,Reason,Resolved,New Slot")
	assert.Contains(t, body, "10,Noa Test,noa@gym.test,Mon 09:00,trainer slot full,yes,Mon 07:00")

	pdf, err := fx.svc.ExportReport(context.Background(), dto.ScheduleReportQuery{Week: testWeek, Format: "pdf"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdf.Body), "%PDF"))

	_, err = fx.svc.LastReport(context.Background(), "2024-06-16")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAutoResolveStandalone(t *testing.T) {
	fx := newScheduleFixture(
		[]models.SchedulableClient{testClient(10, "Noa", [2]int{1, 9})},
		[]models.Trainer{testTrainer(1, "Avi", testWindow(1, "07:00", "12:00"))},
		walkIn(1, "a@walk.in", mondayAt(9)),
		walkIn(1, "b@walk.in", mondayAt(9)),
	)

	result, err := fx.svc.RunAutoResolve(context.Background(), testAdmin, dto.AutoScheduleRequest{WeekStartDate: testWeek})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Outstanding)
	assert.Equal(t, 1, result.ResolvedCount)
	require.Len(t, result.Details, 1)
	assert.Equal(t, "Mon 09:00", result.Details[0].OriginalSlot)
	assert.Equal(t, "Mon 07:00", result.Details[0].NewSlot)
}

func TestAutoResolveLeavesPlaceablePreferences(t *testing.T) {
	fx := newScheduleFixture(
		[]models.SchedulableClient{testClient(10, "Noa", [2]int{1, 9})},
		[]models.Trainer{testTrainer(1, "Avi", testWindow(1, "07:00", "12:00"))},
	)

	result, err := fx.svc.RunAutoResolve(context.Background(), testAdmin, dto.AutoScheduleRequest{WeekStartDate: testWeek})

	require.NoError(t, err)
	assert.Equal(t, 0, result.Outstanding)
	assert.Equal(t, 0, result.ResolvedCount)
	assert.NotNil(t, result.Details)
	assert.Empty(t, fx.store.active())
}

func TestAutoResolveUpdatesCachedReport(t *testing.T) {
	fx := newScheduleFixture(
		[]models.SchedulableClient{testClient(10, "Noa", [2]int{1, 9})},
		[]models.Trainer{testTrainer(1, "Avi", testWindow(1, "09:00", "10:00"))},
		walkIn(1, "a@walk.in", mondayAt(9)),
		walkIn(1, "b@walk.in", mondayAt(9)),
	)
	report := runWeek(t, fx)
	require.Equal(t, 0, report.ResolvedCount)

	fx.trainers.trainers = append(fx.trainers.trainers, testTrainer(2, "Dana", testWindow(2, "07:00", "12:00")))
	result, err := fx.svc.RunAutoResolve(context.Background(), testAdmin, dto.AutoScheduleRequest{WeekStartDate: testWeek})
	require.NoError(t, err)
	require.Equal(t, 1, result.ResolvedCount)
	assert.Equal(t, "Tue 07:00", result.Details[0].NewSlot)

	cached, err := fx.svc.LastReport(context.Background(), testWeek)
	require.NoError(t, err)
	assert.Equal(t, 1, cached.ResolvedCount)
	assert.True(t, cached.FailedAssignments[0].Resolved)
	assert.Equal(t, "Tue 07:00", cached.FailedAssignments[0].ResolvedSlot)
}

func TestAutoScheduleMidweekResolvesOnlyIntoLaterHours(t *testing.T) {
	thursdayNine := testMonday.Add(3*24*time.Hour + 9*time.Hour)
	fx := newScheduleFixture(
		[]models.SchedulableClient{testClient(10, "Noa", [2]int{4, 9})},
		[]models.Trainer{
			testTrainer(1, "Avi", testWindow(4, "09:00", "10:00")),
			testTrainer(2, "Dana", testWindow(0, "07:00", "08:00"), testWindow(5, "07:00", "08:00")),
		},
		walkIn(1, "a@walk.in", thursdayNine),
		walkIn(1, "b@walk.in", thursdayNine),
	)
	fx.svc.now = func() time.Time { return time.Date(2024, 6, 12, 12, 0, 0, 0, time.UTC) }

	report := runWeek(t, fx)

	require.Len(t, report.ResolutionDetails, 1)
	assert.Equal(t, "Thu 09:00", report.ResolutionDetails[0].OriginalSlot)
	assert.Equal(t, "Fri 07:00", report.ResolutionDetails[0].NewSlot)

	var booked []models.Appointment
	for _, appt := range fx.store.active() {
		if appt.ClientID != nil {
			booked = append(booked, appt)
		}
	}
	require.Len(t, booked, 1)
	assert.True(t, booked[0].StartTime.Equal(time.Date(2024, 6, 14, 7, 0, 0, 0, time.UTC)))
}

func TestAutoScheduleIgnoresElapsedPreferences(t *testing.T) {
	fx := newScheduleFixture(
		[]models.SchedulableClient{testClient(10, "Noa", [2]int{1, 9}, [2]int{5, 9})},
		[]models.Trainer{
			testTrainer(1, "Avi", testWindow(1, "07:00", "12:00"), testWindow(5, "07:00", "12:00")),
		},
	)
	fx.svc.now = func() time.Time { return mondayAt(9) }

	report := runWeek(t, fx)

	assert.Equal(t, 1, report.SuccessCount)
	assert.Empty(t, report.FailedAssignments)
	assert.Empty(t, fx.notifier.failed)
	booked := fx.store.active()
	require.Len(t, booked, 1)
	assert.True(t, booked[0].StartTime.Equal(time.Date(2024, 6, 14, 9, 0, 0, 0, time.UTC)))
}

func TestAutoResolveSkipsElapsedWeek(t *testing.T) {
	fx := newScheduleFixture(
		[]models.SchedulableClient{testClient(10, "Noa", [2]int{1, 9})},
		[]models.Trainer{testTrainer(1, "Avi", testWindow(1, "09:00", "10:00"), testWindow(3, "07:00", "08:00"))},
		walkIn(1, "a@walk.in", mondayAt(9)),
		walkIn(1, "b@walk.in", mondayAt(9)),
	)
	fx.svc.now = func() time.Time { return testMonday.Add(7 * 24 * time.Hour) }

	result, err := fx.svc.RunAutoResolve(context.Background(), testAdmin, dto.AutoScheduleRequest{WeekStartDate: testWeek})

	require.NoError(t, err)
	assert.Equal(t, 0, result.Outstanding)
	assert.Equal(t, 0, result.ResolvedCount)
	assert.Len(t, fx.store.active(), 2)
}
