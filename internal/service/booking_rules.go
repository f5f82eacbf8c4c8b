package service

import (
	"strings"
	"time"

	"github.com/yigalul/gym-appointment/internal/models"
	"github.com/yigalul/gym-appointment/pkg/config"
)

// BookingPolicy holds the limits every booking path enforces.
type BookingPolicy struct {
	MaxClientsPerTrainer int
	// MaxClientsPerSlot caps bookings across the whole gym at one instant. Zero disables it.
	MaxClientsPerSlot int
	// MaxTrainersPerSlot caps distinct trainers working one instant. Zero disables it.
	MaxTrainersPerSlot int
	// ClientHours restricts start hours. Empty allows any hour.
	ClientHours    []config.HourRange
	EnforceCredits bool
}

// DefaultBookingPolicy mirrors the gym's house rules.
func DefaultBookingPolicy() BookingPolicy {
	return BookingPolicy{
		MaxClientsPerTrainer: 2,
		MaxClientsPerSlot:    6,
		MaxTrainersPerSlot:   3,
		ClientHours:          []config.HourRange{{Start: 7, End: 13}, {Start: 15, End: 21}},
		EnforceCredits:       true,
	}
}

// BookingPolicyFromConfig builds a policy from scheduler settings.
func BookingPolicyFromConfig(cfg config.SchedulerConfig) BookingPolicy {
	policy := BookingPolicy{
		MaxClientsPerTrainer: cfg.TrainerCapacity,
		MaxClientsPerSlot:    cfg.SlotCapacity,
		MaxTrainersPerSlot:   cfg.MaxTrainersPerSlot,
		ClientHours:          cfg.ClientHours,
		EnforceCredits:       cfg.EnforceCredits,
	}
	if policy.MaxClientsPerTrainer <= 0 {
		policy.MaxClientsPerTrainer = 2
	}
	return policy
}

func (p BookingPolicy) guard(hasClient bool) models.BookingGuard {
	return models.BookingGuard{
		TrainerCapacity:    p.MaxClientsPerTrainer,
		SlotCapacity:       p.MaxClientsPerSlot,
		MaxTrainersPerSlot: p.MaxTrainersPerSlot,
		ConsumeCredit:      p.EnforceCredits && hasClient,
	}
}

func (p BookingPolicy) withinClientHours(hour int) bool {
	if len(p.ClientHours) == 0 {
		return true
	}
	for _, r := range p.ClientHours {
		if r.Start <= hour && hour < r.End {
			return true
		}
	}
	return false
}

type trainerSlotKey struct {
	trainerID int64
	at        int64
}

type clientSlotKey struct {
	clientID int64
	at       int64
}

type emailSlotKey struct {
	email string
	at    int64
}

// bookingLedger is the in-memory view of one week's non-cancelled appointments.
// Instants are keyed by Unix seconds so equal times in different zones collide.
type bookingLedger struct {
	perTrainer  map[trainerSlotKey]int
	perClient   map[clientSlotKey]struct{}
	perEmail    map[emailSlotKey]struct{}
	perSlot     map[int64]int
	slotCrew    map[int64]map[int64]struct{}
	weekly      map[int64]int
	weeklyEmail map[string]int
}

func newBookingLedger(appointments []models.Appointment) *bookingLedger {
	ledger := &bookingLedger{
		perTrainer:  make(map[trainerSlotKey]int),
		perClient:   make(map[clientSlotKey]struct{}),
		perEmail:    make(map[emailSlotKey]struct{}),
		perSlot:     make(map[int64]int),
		slotCrew:    make(map[int64]map[int64]struct{}),
		weekly:      make(map[int64]int),
		weeklyEmail: make(map[string]int),
	}
	for _, appt := range appointments {
		ledger.add(appt)
	}
	return ledger
}

func (l *bookingLedger) add(appt models.Appointment) {
	if !appt.Active() {
		return
	}
	at := appt.StartTime.Unix()
	l.perTrainer[trainerSlotKey{appt.TrainerID, at}]++
	l.perSlot[at]++
	crew := l.slotCrew[at]
	if crew == nil {
		crew = make(map[int64]struct{})
		l.slotCrew[at] = crew
	}
	crew[appt.TrainerID] = struct{}{}

	if appt.ClientID != nil {
		l.perClient[clientSlotKey{*appt.ClientID, at}] = struct{}{}
		l.weekly[*appt.ClientID]++
	}
	if email := normalizeEmail(appt.ClientEmail); email != "" {
		l.perEmail[emailSlotKey{email, at}] = struct{}{}
		l.weeklyEmail[email]++
	}
}

func (l *bookingLedger) trainerCount(trainerID int64, at time.Time) int {
	return l.perTrainer[trainerSlotKey{trainerID, at.Unix()}]
}

func (l *bookingLedger) clientBooked(clientID int64, email string, at time.Time) bool {
	if clientID > 0 {
		if _, ok := l.perClient[clientSlotKey{clientID, at.Unix()}]; ok {
			return true
		}
	}
	if email = normalizeEmail(email); email != "" {
		if _, ok := l.perEmail[emailSlotKey{email, at.Unix()}]; ok {
			return true
		}
	}
	return false
}

func (l *bookingLedger) slotCount(at time.Time) int {
	return l.perSlot[at.Unix()]
}

func (l *bookingLedger) crewSize(at time.Time) int {
	return len(l.slotCrew[at.Unix()])
}

// weeklyCount is the larger of the id and e-mail tallies, so walk-in bookings made by e-mail still count.
func (l *bookingLedger) weeklyCount(clientID int64, email string) int {
	byID := 0
	if clientID > 0 {
		byID = l.weekly[clientID]
	}
	byEmail := l.weeklyEmail[normalizeEmail(email)]
	if byEmail > byID {
		return byEmail
	}
	return byID
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// bookingRequest is a candidate booking evaluated by the checker.
type bookingRequest struct {
	TrainerID   int64
	ClientID    int64
	ClientEmail string
	At          time.Time
}

// bookingChecker is a pure predicate over a ledger snapshot. Check returns the
// first failing rule's reason, or "" when the booking may be created.
type bookingChecker struct {
	policy BookingPolicy
	index  *availabilityIndex
}

func (c bookingChecker) Check(ledger *bookingLedger, req bookingRequest) string {
	trainerLoad := ledger.trainerCount(req.TrainerID, req.At)
	if trainerLoad >= c.policy.MaxClientsPerTrainer {
		return models.ReasonTrainerSlotFull
	}
	if ledger.clientBooked(req.ClientID, req.ClientEmail, req.At) {
		return models.ReasonClientDoubleBooked
	}
	if !c.index.Covers(req.TrainerID, req.At) {
		return models.ReasonTrainerUnavailable
	}
	if c.policy.MaxClientsPerSlot > 0 && ledger.slotCount(req.At) >= c.policy.MaxClientsPerSlot {
		return models.ReasonGymCapacity
	}
	if c.policy.MaxTrainersPerSlot > 0 && trainerLoad == 0 && ledger.crewSize(req.At) >= c.policy.MaxTrainersPerSlot {
		return models.ReasonShiftTrainerLimit
	}
	if !c.policy.withinClientHours(req.At.In(c.index.loc).Hour()) {
		return models.ReasonOutsideClientHours
	}
	return ""
}
