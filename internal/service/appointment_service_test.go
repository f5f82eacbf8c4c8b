package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yigalul/gym-appointment/internal/dto"
	"github.com/yigalul/gym-appointment/internal/models"
	appErrors "github.com/yigalul/gym-appointment/pkg/errors"
)

type stubClientLookup struct {
	users map[string]*models.User
}

func (s stubClientLookup) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := s.users[email]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

type appointmentFixture struct {
	svc      *AppointmentService
	store    *fakeAppointmentStore
	cache    *fakeReportCache
	notifier *fakeNotifier
	noa      *models.User
}

func newAppointmentFixture(existing ...models.Appointment) *appointmentFixture {
	noa := testClient(10, "Noa").User
	fx := &appointmentFixture{
		store:    newFakeAppointmentStore(existing...),
		cache:    newFakeReportCache(),
		notifier: &fakeNotifier{},
		noa:      &noa,
	}
	trainers := &fakeTrainerSource{trainers: []models.Trainer{
		testTrainer(1, "Avi", testWindow(1, "07:00", "12:00")),
	}}
	fx.svc = NewAppointmentService(fx.store, stubClientLookup{users: map[string]*models.User{noa.Email: fx.noa}}, trainers, fx.notifier, fx.cache,
		DefaultBookingPolicy(), time.UTC, nil, zap.NewNop())
	fx.svc.now = func() time.Time { return testMonday.Add(-24 * time.Hour) }
	return fx
}

func bookingFor(email string, at time.Time) dto.BookAppointmentRequest {
	return dto.BookAppointmentRequest{TrainerID: 1, ClientName: "Noa Test", ClientEmail: email, StartTime: at}
}

func TestAppointmentBookLinksRegisteredClient(t *testing.T) {
	fx := newAppointmentFixture()

	appt, err := fx.svc.Book(context.Background(), testAdmin, bookingFor("noa@gym.test", testMonday.Add(9*time.Hour)))

	require.NoError(t, err)
	require.NotNil(t, appt.ClientID)
	assert.Equal(t, int64(10), *appt.ClientID)
	assert.Equal(t, models.AppointmentConfirmed, appt.Status)
	assert.Len(t, fx.notifier.booked, 1)
}

func TestAppointmentBookWalkIn(t *testing.T) {
	fx := newAppointmentFixture()

	appt, err := fx.svc.Book(context.Background(), testAdmin, bookingFor("guest@walk.in", testMonday.Add(10*time.Hour)))

	require.NoError(t, err)
	assert.Nil(t, appt.ClientID)
	assert.Empty(t, fx.notifier.booked)
}

func TestAppointmentBookRejections(t *testing.T) {
	nine := testMonday.Add(9 * time.Hour)
	cases := []struct {
		name     string
		existing []models.Appointment
		prepare  func(fx *appointmentFixture)
		actor    models.Actor
		req      dto.BookAppointmentRequest
		code     string
		message  string
	}{
		{name: "past", actor: testAdmin, req: bookingFor("noa@gym.test", testMonday.Add(-48*time.Hour)), code: appErrors.ErrValidation.Code},
		{name: "not on the hour", actor: testAdmin, req: bookingFor("noa@gym.test", nine.Add(15*time.Minute)), code: appErrors.ErrValidation.Code},
		{name: "client books for someone else", actor: models.Actor{UserID: 10, Role: models.RoleClient, Email: "noa@gym.test"}, req: bookingFor("other@gym.test", nine), code: appErrors.ErrForbidden.Code},
		{
			name:     "trainer full",
			existing: []models.Appointment{walkIn(1, "a@walk.in", nine), walkIn(1, "b@walk.in", nine)},
			actor:    testAdmin,
			req:      bookingFor("noa@gym.test", nine),
			code:     appErrors.ErrBookingRejected.Code,
			message:  models.ReasonTrainerSlotFull,
		},
		{
			name:    "out of credits",
			prepare: func(fx *appointmentFixture) { fx.noa.WorkoutCredits = 0 },
			actor:   testAdmin,
			req:     bookingFor("noa@gym.test", nine),
			code:    appErrors.ErrBookingRejected.Code,
			message: models.ReasonNoCreditsRemaining,
		},
		{
			name:    "weekly limit",
			prepare: func(fx *appointmentFixture) { fx.noa.WeeklyWorkoutLimit = 0 },
			actor:   testAdmin,
			req:     bookingFor("noa@gym.test", nine),
			code:    appErrors.ErrBookingRejected.Code,
			message: models.ReasonWeeklyLimitReached,
		},
		{name: "trainer not available", actor: testAdmin, req: bookingFor("noa@gym.test", testMonday.Add(16*time.Hour)), code: appErrors.ErrBookingRejected.Code, message: models.ReasonTrainerUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newAppointmentFixture(tc.existing...)
			if tc.prepare != nil {
				tc.prepare(fx)
			}
			_, err := fx.svc.Book(context.Background(), tc.actor, tc.req)
			require.Error(t, err)
			appErr := appErrors.FromError(err)
			assert.Equal(t, tc.code, appErr.Code)
			if tc.message != "" {
				assert.Equal(t, tc.message, appErr.Message)
			}
		})
	}
}

func TestAppointmentBookUnknownTrainer(t *testing.T) {
	fx := newAppointmentFixture()
	req := bookingFor("noa@gym.test", testMonday.Add(9*time.Hour))
	req.TrainerID = 42

	_, err := fx.svc.Book(context.Background(), testAdmin, req)

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAppointmentCancel(t *testing.T) {
	clientID := int64(10)
	other := int64(11)
	fx := newAppointmentFixture(
		models.Appointment{TrainerID: 1, ClientID: &clientID, ClientEmail: "noa@gym.test", StartTime: testMonday.Add(9 * time.Hour)},
		models.Appointment{TrainerID: 1, ClientID: &other, ClientEmail: "lior@gym.test", StartTime: testMonday.Add(9 * time.Hour)},
	)
	noa := models.Actor{UserID: 10, Role: models.RoleClient, Email: "noa@gym.test"}

	_, err := fx.svc.Cancel(context.Background(), noa, 102)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	cancelled, err := fx.svc.Cancel(context.Background(), noa, 101)
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentCancelled, cancelled.Status)

	_, err = fx.svc.Cancel(context.Background(), noa, 101)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = fx.svc.Cancel(context.Background(), testAdmin, 999)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAppointmentListAndClearWeek(t *testing.T) {
	fx := newAppointmentFixture(
		walkIn(1, "a@walk.in", testMonday.Add(9*time.Hour)),
		walkIn(1, "b@walk.in", testMonday.Add(8*24*time.Hour)),
	)
	fx.cache.entries["autoschedule:report:2024-06-09"] = []byte(`{}`)

	items, err := fx.svc.ListWeek(context.Background(), dto.AppointmentWeekQuery{WeekStart: testWeek})
	require.NoError(t, err)
	assert.Len(t, items, 1)

	current, err := fx.svc.ListWeek(context.Background(), dto.AppointmentWeekQuery{})
	require.NoError(t, err)
	assert.NotNil(t, current)

	deleted, err := fx.svc.ClearWeek(context.Background(), testAdmin, "2024-06-10")
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.NotContains(t, fx.cache.entries, "autoschedule:report:2024-06-09")
	assert.Len(t, fx.store.active(), 1)

	_, err = fx.svc.ClearWeek(context.Background(), testAdmin, "soon")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
