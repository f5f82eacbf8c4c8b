package dto

// CreateAvailabilityRequest adds a recurring window to a trainer.
type CreateAvailabilityRequest struct {
	DayOfWeek   *int   `json:"day_of_week" validate:"required,min=0,max=6"`
	StartTime   string `json:"start_time" validate:"required"`
	EndTime     string `json:"end_time" validate:"required"`
	IsRecurring *bool  `json:"is_recurring"`
}
