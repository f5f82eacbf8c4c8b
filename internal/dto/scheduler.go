package dto

// AutoScheduleRequest selects the week to schedule. Any date inside the week is accepted.
type AutoScheduleRequest struct {
	WeekStartDate string `json:"week_start_date" validate:"required"`
}

// ScheduleReportQuery selects the export format for a cached run report.
type ScheduleReportQuery struct {
	Week   string `validate:"required"`
	Format string `validate:"omitempty,oneof=json csv pdf"`
}

// ExportedReport is a rendered report ready to stream.
type ExportedReport struct {
	Filename    string
	ContentType string
	Body        []byte
}
