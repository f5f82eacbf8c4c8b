package models

// ClientDefaultSlot is a client's recurring weekly preference. DayOfWeek runs 0=Sunday..6=Saturday.
type ClientDefaultSlot struct {
	ID        int64 `db:"id" json:"id"`
	UserID    int64 `db:"user_id" json:"user_id"`
	DayOfWeek int   `db:"day_of_week" json:"day_of_week"`
	StartHour int   `db:"start_hour" json:"start_hour"`
}

// SchedulableClient is a client with the preferences the auto-scheduler consumes.
type SchedulableClient struct {
	User
	DefaultSlots []ClientDefaultSlot `json:"default_slots"`
}
