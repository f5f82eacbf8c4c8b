package models

import "time"

// AppointmentStatus enumerates appointment lifecycle states.
type AppointmentStatus string

const (
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// Appointment is a booked hour with a trainer. ClientID is nil for walk-in bookings made by e-mail only.
type Appointment struct {
	ID          int64             `db:"id" json:"id"`
	TrainerID   int64             `db:"trainer_id" json:"trainer_id"`
	ClientID    *int64            `db:"client_id" json:"client_id,omitempty"`
	ClientName  string            `db:"client_name" json:"client_name"`
	ClientEmail string            `db:"client_email" json:"client_email"`
	StartTime   time.Time         `db:"start_time" json:"start_time"`
	Status      AppointmentStatus `db:"status" json:"status"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
}

// Active reports whether the appointment counts toward capacity and duplicate checks.
func (a Appointment) Active() bool {
	return a.Status != AppointmentCancelled
}

// BookingConflictError is returned by the guarded insert when a concurrent writer took the slot.
type BookingConflictError struct {
	Reason string
}

func (e *BookingConflictError) Error() string {
	return "booking conflict: " + e.Reason
}

// Rejection reasons shared by the in-memory checker and the guarded insert.
const (
	ReasonTrainerSlotFull    = "trainer slot full"
	ReasonClientDoubleBooked = "client already booked at this time"
	ReasonTrainerUnavailable = "trainer not available"
	ReasonGymCapacity        = "gym capacity reached for this slot"
	ReasonShiftTrainerLimit  = "shift trainer limit reached"
	ReasonOutsideClientHours = "outside client booking hours"
	ReasonNoTrainerCovers    = "no trainer covers this slot"
	ReasonWeeklyLimitReached = "weekly workout limit reached"
	ReasonNoCreditsRemaining = "no workout credits remaining"
)

// BookingGuard carries the limits re-checked by the storage layer under lock.
// Zero SlotCapacity or MaxTrainersPerSlot disables that check.
type BookingGuard struct {
	TrainerCapacity    int
	SlotCapacity       int
	MaxTrainersPerSlot int
	ConsumeCredit      bool
}
