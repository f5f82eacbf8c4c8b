package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/yigalul/gym-appointment/internal/models"
)

// AvailabilityRepository stores trainer availability windows.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs an AvailabilityRepository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// Create inserts a window and fills its id.
func (r *AvailabilityRepository) Create(ctx context.Context, window *models.Availability) error {
	const query = `INSERT INTO availabilities (trainer_id, day_of_week, start_time, end_time, is_recurring) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, window.TrainerID, window.DayOfWeek, window.StartTime, window.EndTime, window.IsRecurring).Scan(&window.ID); err != nil {
		return fmt.Errorf("create availability: %w", err)
	}
	return nil
}

// FindByID returns a single window.
func (r *AvailabilityRepository) FindByID(ctx context.Context, id int64) (*models.Availability, error) {
	const query = `SELECT id, trainer_id, day_of_week, start_time, end_time, is_recurring FROM availabilities WHERE id = $1`
	var window models.Availability
	if err := r.db.GetContext(ctx, &window, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find availability: %w", err)
	}
	return &window, nil
}

// Delete removes a window. sql.ErrNoRows is returned when nothing was deleted.
func (r *AvailabilityRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM availabilities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete availability: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete availability rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountOtherTrainersOverlapping counts distinct trainers other than trainerID with a
// window on day that overlaps [start, end).
func (r *AvailabilityRepository) CountOtherTrainersOverlapping(ctx context.Context, trainerID int64, day int, start, end string) (int, error) {
	const query = `SELECT COUNT(DISTINCT trainer_id) FROM availabilities WHERE day_of_week = $1 AND start_time < $3 AND end_time > $2 AND trainer_id <> $4`
	var count int
	if err := r.db.GetContext(ctx, &count, query, day, start, end, trainerID); err != nil {
		return 0, fmt.Errorf("count overlapping trainers: %w", err)
	}
	return count, nil
}

// HasOverlap reports whether trainerID already has a window on day overlapping [start, end).
func (r *AvailabilityRepository) HasOverlap(ctx context.Context, trainerID int64, day int, start, end string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM availabilities WHERE trainer_id = $1 AND day_of_week = $2 AND start_time < $4 AND end_time > $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, trainerID, day, start, end); err != nil {
		return false, fmt.Errorf("check availability overlap: %w", err)
	}
	return exists, nil
}
