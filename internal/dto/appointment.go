package dto

import "time"

// BookAppointmentRequest books one hour with a trainer.
type BookAppointmentRequest struct {
	TrainerID   int64     `json:"trainer_id" validate:"required,gt=0"`
	ClientName  string    `json:"client_name" validate:"required,max=120"`
	ClientEmail string    `json:"client_email" validate:"required,email"`
	StartTime   time.Time `json:"start_time" validate:"required"`
}

// AppointmentWeekQuery filters appointments to one week.
type AppointmentWeekQuery struct {
	WeekStart string `form:"week_start"`
	TrainerID int64  `form:"trainer_id"`
}
