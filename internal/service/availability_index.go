package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yigalul/gym-appointment/internal/models"
)

type availabilityWindow struct {
	startMin int
	endMin   int
	source   models.Availability
}

// slotCandidate is one (day, hour, trainer) triple a trainer's windows cover.
type slotCandidate struct {
	Day       int
	Hour      int
	TrainerID int64
}

// availabilityIndex answers whether a trainer is bookable at an instant. Windows
// are recurring per weekday; an hour h is covered when start <= h:00 < end.
type availabilityIndex struct {
	loc      *time.Location
	windows  map[int64]*[7][]availabilityWindow
	trainers map[int64]models.Trainer
	ids      []int64
}

func newAvailabilityIndex(trainers []models.Trainer, loc *time.Location) *availabilityIndex {
	idx := &availabilityIndex{
		loc:      loc,
		windows:  make(map[int64]*[7][]availabilityWindow, len(trainers)),
		trainers: make(map[int64]models.Trainer, len(trainers)),
		ids:      make([]int64, 0, len(trainers)),
	}
	for _, trainer := range trainers {
		if _, seen := idx.trainers[trainer.ID]; !seen {
			idx.ids = append(idx.ids, trainer.ID)
		}
		idx.trainers[trainer.ID] = trainer
		days := idx.windows[trainer.ID]
		if days == nil {
			days = &[7][]availabilityWindow{}
			idx.windows[trainer.ID] = days
		}
		for _, window := range trainer.Availabilities {
			if window.DayOfWeek < 0 || window.DayOfWeek > 6 {
				continue
			}
			start, err := parseClock(window.StartTime)
			if err != nil {
				continue
			}
			end, err := parseClock(window.EndTime)
			if err != nil || end <= start {
				continue
			}
			days[window.DayOfWeek] = append(days[window.DayOfWeek], availabilityWindow{startMin: start, endMin: end, source: window})
		}
	}
	sort.Slice(idx.ids, func(i, j int) bool { return idx.ids[i] < idx.ids[j] })
	return idx
}

// Trainer returns the indexed trainer.
func (idx *availabilityIndex) Trainer(id int64) (models.Trainer, bool) {
	trainer, ok := idx.trainers[id]
	return trainer, ok
}

// Covers reports whether trainerID has a window containing at.
func (idx *availabilityIndex) Covers(trainerID int64, at time.Time) bool {
	_, ok := idx.Match(trainerID, at)
	return ok
}

// Match returns the first window of trainerID that contains at.
func (idx *availabilityIndex) Match(trainerID int64, at time.Time) (models.Availability, bool) {
	local := at.In(idx.loc)
	return idx.matchMinute(trainerID, int(local.Weekday()), local.Hour()*60+local.Minute())
}

// Lookup returns the window covering hour on day.
func (idx *availabilityIndex) Lookup(trainerID int64, day, hour int) (models.Availability, bool) {
	return idx.matchMinute(trainerID, day, hour*60)
}

func (idx *availabilityIndex) matchMinute(trainerID int64, day, minute int) (models.Availability, bool) {
	days, ok := idx.windows[trainerID]
	if !ok || day < 0 || day > 6 {
		return models.Availability{}, false
	}
	for _, window := range days[day] {
		if window.startMin <= minute && minute < window.endMin {
			return window.source, true
		}
	}
	return models.Availability{}, false
}

// TrainersCovering lists trainers available at (day, hour) in ascending id order.
func (idx *availabilityIndex) TrainersCovering(day, hour int) []int64 {
	result := make([]int64, 0, len(idx.ids))
	for _, id := range idx.ids {
		if _, ok := idx.Lookup(id, day, hour); ok {
			result = append(result, id)
		}
	}
	return result
}

// WeekCandidates enumerates every covered (day, hour, trainer) ordered by day, hour, trainer id.
func (idx *availabilityIndex) WeekCandidates() []slotCandidate {
	var result []slotCandidate
	for day := 0; day < 7; day++ {
		for hour := 0; hour < 24; hour++ {
			for _, id := range idx.TrainersCovering(day, hour) {
				result = append(result, slotCandidate{Day: day, Hour: hour, TrainerID: id})
			}
		}
	}
	return result
}

// parseClock reads "HH:MM" or "HH:MM:SS" into minutes after midnight. "24:00" is accepted as an end bound.
func parseClock(raw string) (int, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid clock %q", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: %w", raw, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: %w", raw, err)
	}
	if hour < 0 || hour > 24 || minute < 0 || minute > 59 || (hour == 24 && minute != 0) {
		return 0, fmt.Errorf("invalid clock %q", raw)
	}
	return hour*60 + minute, nil
}
