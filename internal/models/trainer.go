package models

// Trainer is a bookable coach. UserID links the trainer to a login when one exists.
type Trainer struct {
	ID             int64          `db:"id" json:"id"`
	UserID         *int64         `db:"user_id" json:"user_id,omitempty"`
	Name           string         `db:"name" json:"name"`
	Role           string         `db:"role" json:"role"`
	Bio            string         `db:"bio" json:"bio"`
	PhotoURL       string         `db:"photo_url" json:"photo_url"`
	Availabilities []Availability `db:"-" json:"availabilities"`
}
