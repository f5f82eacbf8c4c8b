package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yigalul/gym-appointment/internal/dto"
	"github.com/yigalul/gym-appointment/internal/models"
	appErrors "github.com/yigalul/gym-appointment/pkg/errors"
)

type stubDefaultSlotStore struct {
	users   map[int64]*models.User
	saved   map[int64][]models.ClientDefaultSlot
	saveErr error
	listErr error
}

func (s *stubDefaultSlotStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubDefaultSlotStore) ListDefaultSlots(ctx context.Context, userID int64) ([]models.ClientDefaultSlot, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.saved[userID], nil
}

func (s *stubDefaultSlotStore) ReplaceDefaultSlots(ctx context.Context, userID int64, slots []models.ClientDefaultSlot) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved[userID] = slots
	return nil
}

func newPreferenceFixture() (*ClientPreferenceService, *stubDefaultSlotStore) {
	noa := testClient(10, "Noa").User
	coach := models.User{ID: 20, Email: "coach@gym.test", Role: models.RoleTrainer}
	store := &stubDefaultSlotStore{
		users: map[int64]*models.User{10: &noa, 20: &coach},
		saved: map[int64][]models.ClientDefaultSlot{},
	}
	return NewClientPreferenceService(store, nil, zap.NewNop()), store
}

func slotInput(day, hour int) dto.DefaultSlotInput {
	return dto.DefaultSlotInput{DayOfWeek: &day, StartHour: &hour}
}

func TestClientPreferenceReplaceDeduplicates(t *testing.T) {
	svc, store := newPreferenceFixture()
	noa := models.Actor{UserID: 10, Role: models.RoleClient}

	slots, err := svc.Replace(context.Background(), noa, 10, dto.ReplaceDefaultSlotsRequest{Slots: []dto.DefaultSlotInput{
		slotInput(3, 18), slotInput(1, 9), slotInput(3, 18), slotInput(1, 7),
	}})

	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, 1, slots[0].DayOfWeek)
	assert.Equal(t, 7, slots[0].StartHour)
	assert.Equal(t, 3, slots[2].DayOfWeek)
	assert.Equal(t, slots, store.saved[10])

	listed, err := svc.List(context.Background(), noa, 10)
	require.NoError(t, err)
	assert.Len(t, listed, 3)
}

func TestClientPreferenceReplaceRules(t *testing.T) {
	cases := []struct {
		name   string
		actor  models.Actor
		target int64
		slots  []dto.DefaultSlotInput
		code   string
	}{
		{name: "hour out of range", actor: testAdmin, target: 10, slots: []dto.DefaultSlotInput{slotInput(1, 24)}, code: appErrors.ErrValidation.Code},
		{name: "day out of range", actor: testAdmin, target: 10, slots: []dto.DefaultSlotInput{slotInput(7, 9)}, code: appErrors.ErrValidation.Code},
		{name: "other client", actor: models.Actor{UserID: 11, Role: models.RoleClient}, target: 10, code: appErrors.ErrForbidden.Code},
		{name: "not a client", actor: testAdmin, target: 20, code: appErrors.ErrValidation.Code},
		{name: "unknown user", actor: testAdmin, target: 99, code: appErrors.ErrNotFound.Code},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newPreferenceFixture()
			_, err := svc.Replace(context.Background(), tc.actor, tc.target, dto.ReplaceDefaultSlotsRequest{Slots: tc.slots})
			require.Error(t, err)
			assert.Equal(t, tc.code, appErrors.FromError(err).Code)
		})
	}
}

func TestClientPreferenceEmptyListAndErrors(t *testing.T) {
	svc, store := newPreferenceFixture()

	slots, err := svc.List(context.Background(), testAdmin, 10)
	require.NoError(t, err)
	assert.NotNil(t, slots)

	store.listErr = errors.New("db down")
	_, err = svc.List(context.Background(), testAdmin, 10)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)

	store.saveErr = errors.New("db down")
	_, err = svc.Replace(context.Background(), testAdmin, 10, dto.ReplaceDefaultSlotsRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
