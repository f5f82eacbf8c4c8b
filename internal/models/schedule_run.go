package models

import "time"

// FailedAssignment is a default slot the placement pass could not book. Resolved
// and ResolvedSlot are filled in when the resolver later found an alternative.
type FailedAssignment struct {
	ClientID     int64  `json:"client_id"`
	Client       string `json:"client"`
	ClientEmail  string `json:"client_email"`
	Slot         string `json:"slot"`
	Reason       string `json:"reason"`
	Resolved     bool   `json:"resolved"`
	ResolvedSlot string `json:"resolved_slot,omitempty"`
}

// ResolutionDetail records an alternative booking made by the resolver.
type ResolutionDetail struct {
	ClientID      int64  `json:"client_id"`
	Client        string `json:"client"`
	TrainerID     int64  `json:"trainer_id"`
	Trainer       string `json:"trainer"`
	AppointmentID int64  `json:"appointment_id"`
	OriginalSlot  string `json:"original_slot"`
	NewSlot       string `json:"new_slot"`
}

// ScheduleRunReport is the outcome of one auto-schedule run.
type ScheduleRunReport struct {
	RunID             string             `json:"run_id"`
	WeekStart         string             `json:"week_start"`
	Timezone          string             `json:"timezone"`
	SuccessCount      int                `json:"success_count"`
	SkippedCount      int                `json:"skipped_count"`
	FailedAssignments []FailedAssignment `json:"failed_assignments"`
	ResolvedCount     int                `json:"resolved_count"`
	ResolutionDetails []ResolutionDetail `json:"resolution_details"`
	GeneratedAt       time.Time          `json:"generated_at"`
}

// AutoResolveResult is the outcome of a standalone resolver run.
type AutoResolveResult struct {
	RunID         string             `json:"run_id"`
	WeekStart     string             `json:"week_start"`
	Outstanding   int                `json:"outstanding"`
	ResolvedCount int                `json:"resolved_count"`
	Details       []ResolutionDetail `json:"details"`
}
