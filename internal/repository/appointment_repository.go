package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yigalul/gym-appointment/internal/models"
)

const appointmentColumns = `id, trainer_id, client_id, client_name, client_email, start_time, status, created_at`

// AppointmentRepository persists appointments and provides the guarded insert
// used by both the auto-scheduler and interactive booking.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository constructs an AppointmentRepository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// ListActiveBetween returns non-cancelled appointments with from <= start_time < to.
func (r *AppointmentRepository) ListActiveBetween(ctx context.Context, from, to time.Time) ([]models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE start_time >= $1 AND start_time < $2 AND status <> $3 ORDER BY start_time, id`
	var items []models.Appointment
	if err := r.db.SelectContext(ctx, &items, query, from, to, models.AppointmentCancelled); err != nil {
		return nil, fmt.Errorf("list active appointments: %w", err)
	}
	return items, nil
}

// ListBetween returns every appointment in range, optionally for one trainer.
func (r *AppointmentRepository) ListBetween(ctx context.Context, from, to time.Time, trainerID int64) ([]models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE start_time >= $1 AND start_time < $2`
	args := []interface{}{from, to}
	if trainerID > 0 {
		query += ` AND trainer_id = $3`
		args = append(args, trainerID)
	}
	query += ` ORDER BY start_time, id`

	var items []models.Appointment
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return items, nil
}

// FindByID returns an appointment by id.
func (r *AppointmentRepository) FindByID(ctx context.Context, id int64) (*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	var appt models.Appointment
	if err := r.db.GetContext(ctx, &appt, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find appointment: %w", err)
	}
	return &appt, nil
}

// Cancel marks an appointment cancelled and returns the updated row.
func (r *AppointmentRepository) Cancel(ctx context.Context, id int64) (*models.Appointment, error) {
	query := `UPDATE appointments SET status = $2 WHERE id = $1 RETURNING ` + appointmentColumns
	var appt models.Appointment
	if err := r.db.GetContext(ctx, &appt, query, id, models.AppointmentCancelled); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}
	return &appt, nil
}

// DeleteBetween hard-deletes every appointment in range and reports how many went.
func (r *AppointmentRepository) DeleteBetween(ctx context.Context, from, to time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE start_time >= $1 AND start_time < $2`, from, to)
	if err != nil {
		return 0, fmt.Errorf("delete appointments: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete appointments rows: %w", err)
	}
	return affected, nil
}

type slotCounts struct {
	Trainer  int `db:"trainer_count"`
	Client   int `db:"client_count"`
	Total    int `db:"total_count"`
	Trainers int `db:"trainer_distinct"`
}

// CreateGuarded inserts appt after re-checking the slot under a transaction-scoped
// advisory lock keyed by the start instant. Concurrent writers for the same
// instant serialize on the lock. A violated limit returns *models.BookingConflictError
// and nothing is written. When guard.ConsumeCredit is set and the appointment has a
// client id, one workout credit is taken in the same transaction.
func (r *AppointmentRepository) CreateGuarded(ctx context.Context, appt *models.Appointment, guard models.BookingGuard) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin guarded insert: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, appt.StartTime.Unix()); err != nil {
		return fmt.Errorf("lock slot: %w", err)
	}

	const countQuery = `SELECT
		COUNT(*) FILTER (WHERE trainer_id = $2) AS trainer_count,
		COUNT(*) FILTER (WHERE client_id = $3 OR LOWER(client_email) = LOWER($4)) AS client_count,
		COUNT(*) AS total_count,
		COUNT(DISTINCT trainer_id) AS trainer_distinct
	FROM appointments WHERE start_time = $1 AND status <> $5`
	var counts slotCounts
	if err = tx.GetContext(ctx, &counts, countQuery, appt.StartTime, appt.TrainerID, appt.ClientID, appt.ClientEmail, models.AppointmentCancelled); err != nil {
		return fmt.Errorf("count slot bookings: %w", err)
	}
	if reason := guardViolation(counts, guard); reason != "" {
		err = &models.BookingConflictError{Reason: reason}
		return err
	}

	if guard.ConsumeCredit && appt.ClientID != nil {
		res, execErr := tx.ExecContext(ctx, `UPDATE users SET workout_credits = workout_credits - 1 WHERE id = $1 AND workout_credits > 0`, *appt.ClientID)
		if execErr != nil {
			err = fmt.Errorf("consume workout credit: %w", execErr)
			return err
		}
		affected, rowsErr := res.RowsAffected()
		if rowsErr != nil {
			err = fmt.Errorf("consume workout credit rows: %w", rowsErr)
			return err
		}
		if affected == 0 {
			err = &models.BookingConflictError{Reason: models.ReasonNoCreditsRemaining}
			return err
		}
	}

	if appt.Status == "" {
		appt.Status = models.AppointmentConfirmed
	}
	const insert = `INSERT INTO appointments (trainer_id, client_id, client_name, client_email, start_time, status) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`
	if err = tx.QueryRowxContext(ctx, insert, appt.TrainerID, appt.ClientID, appt.ClientName, appt.ClientEmail, appt.StartTime, appt.Status).Scan(&appt.ID, &appt.CreatedAt); err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit guarded insert: %w", err)
	}
	return nil
}

func guardViolation(counts slotCounts, guard models.BookingGuard) string {
	switch {
	case guard.TrainerCapacity > 0 && counts.Trainer >= guard.TrainerCapacity:
		return models.ReasonTrainerSlotFull
	case counts.Client > 0:
		return models.ReasonClientDoubleBooked
	case guard.SlotCapacity > 0 && counts.Total >= guard.SlotCapacity:
		return models.ReasonGymCapacity
	case guard.MaxTrainersPerSlot > 0 && counts.Trainer == 0 && counts.Trainers >= guard.MaxTrainersPerSlot:
		return models.ReasonShiftTrainerLimit
	}
	return ""
}
