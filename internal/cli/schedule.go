package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/yigalul/gym-appointment/internal/dto"
	"github.com/yigalul/gym-appointment/internal/models"
)

// Scheduler is the part of the auto-scheduler gymctl drives.
type Scheduler interface {
	RunAutoSchedule(ctx context.Context, actor models.Actor, req dto.AutoScheduleRequest) (*models.ScheduleRunReport, error)
	RunAutoResolve(ctx context.Context, actor models.Actor, req dto.AutoScheduleRequest) (*models.AutoResolveResult, error)
	ExportReport(ctx context.Context, query dto.ScheduleReportQuery) (*dto.ExportedReport, error)
}

// Context is handed to every command's Run method.
type Context struct {
	Ctx       context.Context
	Scheduler Scheduler
	Out       io.Writer
}

// operator is the actor recorded for runs started from the command line.
var operator = models.Actor{Role: models.RoleAdmin, Email: "gymctl@localhost"}

type ScheduleRunCmd struct {
	Week string `help:"Any date inside the week to schedule (YYYY-MM-DD)." required:""`
}

func (c *ScheduleRunCmd) Run(ctx *Context) error {
	report, err := ctx.Scheduler.RunAutoSchedule(ctx.Ctx, operator, dto.AutoScheduleRequest{WeekStartDate: c.Week})
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "week %s: %d booked, %d skipped, %d failed, %d resolved\n",
		report.WeekStart, report.SuccessCount, report.SkippedCount, len(report.FailedAssignments), report.ResolvedCount)
	for _, failure := range report.FailedAssignments {
		line := fmt.Sprintf("  %-24s %-10s %s", failure.Client, failure.Slot, failure.Reason)
		if failure.Resolved {
			line += " -> " + failure.ResolvedSlot
		}
		fmt.Fprintln(ctx.Out, line)
	}
	return nil
}

type ScheduleResolveCmd struct {
	Week string `help:"Any date inside the week to resolve (YYYY-MM-DD)." required:""`
}

func (c *ScheduleResolveCmd) Run(ctx *Context) error {
	result, err := ctx.Scheduler.RunAutoResolve(ctx.Ctx, operator, dto.AutoScheduleRequest{WeekStartDate: c.Week})
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "week %s: %d outstanding, %d resolved\n", result.WeekStart, result.Outstanding, result.ResolvedCount)
	for _, detail := range result.Details {
		fmt.Fprintf(ctx.Out, "  %-24s %s -> %s with %s\n", detail.Client, detail.OriginalSlot, detail.NewSlot, detail.Trainer)
	}
	return nil
}

type ScheduleReportCmd struct {
	Week   string `help:"Any date inside the week (YYYY-MM-DD)." required:""`
	Format string `help:"Output format." enum:"json,csv,pdf" default:"json"`
	Out    string `help:"Write to this file instead of stdout." type:"path"`
}

func (c *ScheduleReportCmd) Run(ctx *Context) error {
	format := strings.ToLower(c.Format)
	if format == "pdf" && c.Out == "" {
		return fmt.Errorf("--out is required for pdf reports")
	}
	exported, err := ctx.Scheduler.ExportReport(ctx.Ctx, dto.ScheduleReportQuery{Week: c.Week, Format: format})
	if err != nil {
		return err
	}
	if c.Out == "" {
		body := exported.Body
		if format == "json" {
			var pretty interface{}
			if err := json.Unmarshal(body, &pretty); err == nil {
				if indented, err := json.MarshalIndent(pretty, "", "  "); err == nil {
					body = append(indented, '\n')
				}
			}
		}
		_, err := ctx.Out.Write(body)
		return err
	}
	if err := os.WriteFile(c.Out, exported.Body, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Fprintf(ctx.Out, "wrote %s\n", c.Out)
	return nil
}

// ScheduleCmd groups the auto-scheduler commands.
type ScheduleCmd struct {
	Run     ScheduleRunCmd     `cmd:"" help:"Auto-schedule a week from client default slots."`
	Resolve ScheduleResolveCmd `cmd:"" help:"Rebook the week's outstanding failures."`
	Report  ScheduleReportCmd  `cmd:"" help:"Export the last run report for a week."`
}
