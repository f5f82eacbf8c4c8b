package service

import (
	"fmt"
	"strconv"
	"time"

	"github.com/yigalul/gym-appointment/internal/models"
	"github.com/yigalul/gym-appointment/pkg/export"
)

var reportHeaders = []string{"Client ID", "Client", "Email", "Slot", "Reason", "Resolved", "New Slot"}

func (f placementFailure) entry() models.FailedAssignment {
	return models.FailedAssignment{
		ClientID:    f.client.ID,
		Client:      f.client.DisplayName(),
		ClientEmail: f.client.Email,
		Slot:        SlotLabel(f.day, f.hour),
		Reason:      f.reason,
	}
}

// failureEntries renders failures in order and marks the ones a resolution fixed.
func failureEntries(failures []placementFailure, resolutions []resolution) []models.FailedAssignment {
	entries := make([]models.FailedAssignment, 0, len(failures))
	for _, failure := range failures {
		entries = append(entries, failure.entry())
	}
	for _, res := range resolutions {
		if res.failureIndex < 0 || res.failureIndex >= len(entries) {
			continue
		}
		entries[res.failureIndex].Resolved = true
		entries[res.failureIndex].ResolvedSlot = res.detail.NewSlot
	}
	return entries
}

func buildScheduleReport(runID string, week Week, placement placementOutcome, resolutions []resolution, generatedAt time.Time) *models.ScheduleRunReport {
	details := make([]models.ResolutionDetail, 0, len(resolutions))
	for _, res := range resolutions {
		details = append(details, res.detail)
	}
	return &models.ScheduleRunReport{
		RunID:             runID,
		WeekStart:         week.Key(),
		Timezone:          week.Location().String(),
		SuccessCount:      placement.booked,
		SkippedCount:      placement.skipped,
		FailedAssignments: failureEntries(placement.failures, resolutions),
		ResolvedCount:     len(details),
		ResolutionDetails: details,
		GeneratedAt:       generatedAt,
	}
}

// mergeResolutions folds a standalone resolve into an earlier report. Each detail
// marks the first unresolved failure with the same client and original slot.
func mergeResolutions(report *models.ScheduleRunReport, details []models.ResolutionDetail) {
	if report.FailedAssignments == nil {
		report.FailedAssignments = []models.FailedAssignment{}
	}
	for _, detail := range details {
		for i := range report.FailedAssignments {
			fa := &report.FailedAssignments[i]
			if fa.Resolved || fa.ClientID != detail.ClientID || fa.Slot != detail.OriginalSlot {
				continue
			}
			fa.Resolved = true
			fa.ResolvedSlot = detail.NewSlot
			break
		}
		report.ResolutionDetails = append(report.ResolutionDetails, detail)
	}
	report.ResolvedCount = len(report.ResolutionDetails)
}

func reportDataset(report *models.ScheduleRunReport) export.Dataset {
	rows := make([]map[string]string, 0, len(report.FailedAssignments))
	for _, fa := range report.FailedAssignments {
		resolved := "no"
		if fa.Resolved {
			resolved = "yes"
		}
		rows = append(rows, map[string]string{
			"Client ID": strconv.FormatInt(fa.ClientID, 10),
			"Client":    fa.Client,
			"Email":     fa.ClientEmail,
			"Slot":      fa.Slot,
			"Reason":    fa.Reason,
			"Resolved":  resolved,
			"New Slot":  fa.ResolvedSlot,
		})
	}
	return export.Dataset{
		Headers: reportHeaders,
		Rows:    rows,
		Summary: []string{
			fmt.Sprintf("%d booked, %d skipped, %d failed, %d resolved",
				report.SuccessCount, report.SkippedCount, len(report.FailedAssignments), report.ResolvedCount),
			fmt.Sprintf("Run %s, generated %s (%s)", report.RunID, report.GeneratedAt.Format("2006-01-02 15:04"), report.Timezone),
		},
		Widths: map[string]float64{"Client ID": 0.6, "Email": 1.6, "Reason": 2, "Resolved": 0.6},
	}
}

func reportTitle(report *models.ScheduleRunReport) string {
	return "Auto-schedule report, week of " + report.WeekStart
}
