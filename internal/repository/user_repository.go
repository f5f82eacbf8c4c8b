package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/yigalul/gym-appointment/internal/models"
)

const userColumns = `id, email, password_hash, first_name, last_name, COALESCE(phone_number, '') AS phone_number, role, weekly_workout_limit, workout_credits, created_at`

// UserRepository provides database access for accounts and client preferences.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns a user by email address, case-insensitively.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// ListSchedulableClients returns every CLIENT ordered by id with their default slots
// ordered by day and hour.
func (r *UserRepository) ListSchedulableClients(ctx context.Context) ([]models.SchedulableClient, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 ORDER BY id`
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, models.RoleClient); err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	if len(users) == 0 {
		return []models.SchedulableClient{}, nil
	}

	const slotQuery = `SELECT s.id, s.user_id, s.day_of_week, s.start_hour FROM client_default_slots s JOIN users u ON u.id = s.user_id WHERE u.role = $1 ORDER BY s.user_id, s.day_of_week, s.start_hour`
	var slots []models.ClientDefaultSlot
	if err := r.db.SelectContext(ctx, &slots, slotQuery, models.RoleClient); err != nil {
		return nil, fmt.Errorf("list client default slots: %w", err)
	}

	byUser := make(map[int64][]models.ClientDefaultSlot, len(users))
	for _, slot := range slots {
		byUser[slot.UserID] = append(byUser[slot.UserID], slot)
	}

	clients := make([]models.SchedulableClient, 0, len(users))
	for _, user := range users {
		clients = append(clients, models.SchedulableClient{User: user, DefaultSlots: byUser[user.ID]})
	}
	return clients, nil
}

// ListDefaultSlots returns one client's default slots.
func (r *UserRepository) ListDefaultSlots(ctx context.Context, userID int64) ([]models.ClientDefaultSlot, error) {
	const query = `SELECT id, user_id, day_of_week, start_hour FROM client_default_slots WHERE user_id = $1 ORDER BY day_of_week, start_hour`
	var slots []models.ClientDefaultSlot
	if err := r.db.SelectContext(ctx, &slots, query, userID); err != nil {
		return nil, fmt.Errorf("list default slots: %w", err)
	}
	return slots, nil
}

// ReplaceDefaultSlots swaps a client's default slots inside one transaction.
func (r *UserRepository) ReplaceDefaultSlots(ctx context.Context, userID int64, slots []models.ClientDefaultSlot) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace default slots: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM client_default_slots WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete default slots: %w", err)
	}
	const insert = `INSERT INTO client_default_slots (user_id, day_of_week, start_hour) VALUES ($1, $2, $3)`
	for _, slot := range slots {
		if _, err = tx.ExecContext(ctx, insert, userID, slot.DayOfWeek, slot.StartHour); err != nil {
			return fmt.Errorf("insert default slot: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit default slots: %w", err)
	}
	return nil
}
