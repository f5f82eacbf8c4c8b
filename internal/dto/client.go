package dto

// DefaultSlotInput is one recurring preference.
type DefaultSlotInput struct {
	DayOfWeek *int `json:"day_of_week" validate:"required,min=0,max=6"`
	StartHour *int `json:"start_hour" validate:"required,min=0,max=23"`
}

// ReplaceDefaultSlotsRequest replaces all of a client's default slots.
type ReplaceDefaultSlotsRequest struct {
	Slots []DefaultSlotInput `json:"slots" validate:"dive"`
}
