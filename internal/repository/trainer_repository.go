package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/yigalul/gym-appointment/internal/models"
)

const trainerColumns = `id, user_id, name, COALESCE(role, '') AS role, COALESCE(bio, '') AS bio, COALESCE(photo_url, '') AS photo_url`

// TrainerRepository manages persistence for trainers.
type TrainerRepository struct {
	db *sqlx.DB
}

// NewTrainerRepository constructs a TrainerRepository.
func NewTrainerRepository(db *sqlx.DB) *TrainerRepository {
	return &TrainerRepository{db: db}
}

// ListWithAvailability returns all trainers ordered by id, each carrying its windows.
func (r *TrainerRepository) ListWithAvailability(ctx context.Context) ([]models.Trainer, error) {
	query := `SELECT ` + trainerColumns + ` FROM trainers ORDER BY id`
	var trainers []models.Trainer
	if err := r.db.SelectContext(ctx, &trainers, query); err != nil {
		return nil, fmt.Errorf("list trainers: %w", err)
	}
	if len(trainers) == 0 {
		return []models.Trainer{}, nil
	}

	const windowQuery = `SELECT id, trainer_id, day_of_week, start_time, end_time, is_recurring FROM availabilities ORDER BY trainer_id, day_of_week, start_time, id`
	var windows []models.Availability
	if err := r.db.SelectContext(ctx, &windows, windowQuery); err != nil {
		return nil, fmt.Errorf("list availabilities: %w", err)
	}

	byTrainer := make(map[int64][]models.Availability, len(trainers))
	for _, window := range windows {
		byTrainer[window.TrainerID] = append(byTrainer[window.TrainerID], window)
	}
	for i := range trainers {
		trainers[i].Availabilities = byTrainer[trainers[i].ID]
		if trainers[i].Availabilities == nil {
			trainers[i].Availabilities = []models.Availability{}
		}
	}
	return trainers, nil
}

// FindByID returns a trainer without its windows.
func (r *TrainerRepository) FindByID(ctx context.Context, id int64) (*models.Trainer, error) {
	query := `SELECT ` + trainerColumns + ` FROM trainers WHERE id = $1`
	var trainer models.Trainer
	if err := r.db.GetContext(ctx, &trainer, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find trainer: %w", err)
	}
	return &trainer, nil
}
