package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/yigalul/gym-appointment/internal/dto"
	"github.com/yigalul/gym-appointment/internal/models"
	appErrors "github.com/yigalul/gym-appointment/pkg/errors"
)

type defaultSlotStore interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	ListDefaultSlots(ctx context.Context, userID int64) ([]models.ClientDefaultSlot, error)
	ReplaceDefaultSlots(ctx context.Context, userID int64, slots []models.ClientDefaultSlot) error
}

// ClientPreferenceService manages the recurring default slots the auto-scheduler consumes.
type ClientPreferenceService struct {
	store     defaultSlotStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClientPreferenceService constructs a ClientPreferenceService.
func NewClientPreferenceService(store defaultSlotStore, validate *validator.Validate, logger *zap.Logger) *ClientPreferenceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClientPreferenceService{store: store, validator: validate, logger: logger}
}

// Replace swaps all default slots of a CLIENT user. Duplicates are collapsed.
func (s *ClientPreferenceService) Replace(ctx context.Context, actor models.Actor, clientID int64, req dto.ReplaceDefaultSlotsRequest) ([]models.ClientDefaultSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid default slots payload")
	}
	if !actor.IsAdmin() && actor.UserID != clientID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot change another client's default slots")
	}

	user, err := s.store.FindByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "client not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load client")
	}
	if user.Role != models.RoleClient {
		return nil, appErrors.Clone(appErrors.ErrValidation, "default slots can only be set for clients")
	}

	slots := uniqueSlots(clientID, req.Slots)
	if err := s.store.ReplaceDefaultSlots(ctx, clientID, slots); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save default slots")
	}
	s.logger.Info("default slots replaced", zap.Int64("client_id", clientID), zap.Int("count", len(slots)), zap.Int64("by", actor.UserID))
	return slots, nil
}

// List returns a client's default slots.
func (s *ClientPreferenceService) List(ctx context.Context, actor models.Actor, clientID int64) ([]models.ClientDefaultSlot, error) {
	if !actor.IsAdmin() && actor.UserID != clientID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot read another client's default slots")
	}
	slots, err := s.store.ListDefaultSlots(ctx, clientID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list default slots")
	}
	if slots == nil {
		slots = []models.ClientDefaultSlot{}
	}
	return slots, nil
}

func uniqueSlots(clientID int64, inputs []dto.DefaultSlotInput) []models.ClientDefaultSlot {
	seen := make(map[[2]int]struct{}, len(inputs))
	slots := make([]models.ClientDefaultSlot, 0, len(inputs))
	for _, in := range inputs {
		key := [2]int{*in.DayOfWeek, *in.StartHour}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		slots = append(slots, models.ClientDefaultSlot{UserID: clientID, DayOfWeek: key[0], StartHour: key[1]})
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].DayOfWeek == slots[j].DayOfWeek {
			return slots[i].StartHour < slots[j].StartHour
		}
		return slots[i].DayOfWeek < slots[j].DayOfWeek
	})
	return slots
}
