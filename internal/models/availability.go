package models

// Availability is a recurring weekly window. StartTime and EndTime are "HH:MM"; the
// window covers hours h with StartTime <= h:00 < EndTime.
type Availability struct {
	ID          int64  `db:"id" json:"id"`
	TrainerID   int64  `db:"trainer_id" json:"trainer_id"`
	DayOfWeek   int    `db:"day_of_week" json:"day_of_week"`
	StartTime   string `db:"start_time" json:"start_time"`
	EndTime     string `db:"end_time" json:"end_time"`
	IsRecurring bool   `db:"is_recurring" json:"is_recurring"`
}
