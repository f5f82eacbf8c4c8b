package service

import (
	"context"

	"github.com/yigalul/gym-appointment/internal/models"
)

type resolution struct {
	failureIndex int
	detail       models.ResolutionDetail
}

// resolvable reports whether another slot in the week could fix the failure.
// Weekly limit and credit failures follow the client, not the slot.
func resolvable(reason string) bool {
	switch reason {
	case models.ReasonWeeklyLimitReached, models.ReasonNoCreditsRemaining:
		return false
	}
	return true
}

// resolve is the second pass. Each failure, in order, takes the first candidate of
// the week (day, hour, trainer ascending) that is still ahead and the checker accepts.
// Greedy, no backtracking.
func (r *scheduleRun) resolve(ctx context.Context, failures []placementFailure) ([]resolution, error) {
	resolutions := []resolution{}
	if len(failures) == 0 {
		return resolutions, nil
	}

	candidates := r.index.WeekCandidates()
	for i, failure := range failures {
		if !resolvable(failure.reason) {
			continue
		}
		if budget := r.budgets[failure.client.ID]; budget != nil && budget.exhaustedReason() != "" {
			continue
		}

		res, ok, err := r.resolveOne(ctx, failure, candidates)
		if err != nil {
			return resolutions, err
		}
		if ok {
			res.failureIndex = i
			resolutions = append(resolutions, res)
		}
	}
	return resolutions, nil
}

func (r *scheduleRun) resolveOne(ctx context.Context, failure placementFailure, candidates []slotCandidate) (resolution, bool, error) {
	client := failure.client
	for _, cand := range candidates {
		at, ok := r.week.Slot(cand.Day, cand.Hour)
		if !ok || r.elapsed(at) {
			continue
		}
		req := bookingRequest{TrainerID: cand.TrainerID, ClientID: client.ID, ClientEmail: client.Email, At: at}
		if r.checker.Check(r.ledger, req) != "" {
			continue
		}

		appt, reason, err := r.commit(ctx, client, cand.TrainerID, at)
		if err != nil {
			return resolution{}, false, err
		}
		if reason != "" {
			continue
		}

		trainer, _ := r.index.Trainer(cand.TrainerID)
		return resolution{detail: models.ResolutionDetail{
			ClientID:      client.ID,
			Client:        client.DisplayName(),
			TrainerID:     cand.TrainerID,
			Trainer:       trainer.Name,
			AppointmentID: appt.ID,
			OriginalSlot:  SlotLabel(failure.day, failure.hour),
			NewSlot:       SlotLabel(cand.Day, cand.Hour),
		}}, true, nil
	}
	return resolution{}, false, nil
}
