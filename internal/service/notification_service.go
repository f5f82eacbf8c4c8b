package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yigalul/gym-appointment/internal/models"
	appErrors "github.com/yigalul/gym-appointment/pkg/errors"
	"github.com/yigalul/gym-appointment/pkg/jobs"
	"github.com/yigalul/gym-appointment/pkg/notify"
)

const notifyJobType = "notify.deliver"

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.Notification, error)
	FindByID(ctx context.Context, id int64) (*models.Notification, error)
	MarkRead(ctx context.Context, id int64) (*models.Notification, error)
}

type notificationQueue interface {
	Enqueue(job jobs.Job) error
}

type deliveryObserver interface {
	ObserveNotification(channel string, err error)
}

// delivery is the payload of a notification job.
type delivery struct {
	Channel string
	Message notify.Message
}

// NotificationService stores in-app notifications and dispatches WhatsApp and
// e-mail messages. Delivery failures are logged and never reach the caller.
type NotificationService struct {
	store   notificationStore
	senders map[string]notify.Sender
	queue   notificationQueue
	metrics deliveryObserver
	loc     *time.Location
	logger  *zap.Logger
}

// NewNotificationService builds the service. Without a queue, messages are sent inline.
func NewNotificationService(store notificationStore, senders []notify.Sender, metrics deliveryObserver, loc *time.Location, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	byChannel := make(map[string]notify.Sender, len(senders))
	for _, sender := range senders {
		if sender != nil {
			byChannel[sender.Channel()] = sender
		}
	}
	return &NotificationService{store: store, senders: byChannel, metrics: metrics, loc: loc, logger: logger}
}

// UseQueue routes outbound messages through a background queue whose handler is HandleJob.
func (s *NotificationService) UseQueue(queue notificationQueue) {
	s.queue = queue
}

// HandleJob delivers one queued message.
func (s *NotificationService) HandleJob(ctx context.Context, job jobs.Job) error {
	d, ok := job.Payload.(delivery)
	if !ok {
		return fmt.Errorf("unexpected notification payload %T", job.Payload)
	}
	return s.deliver(ctx, d)
}

// AppointmentBooked sends the WhatsApp booking confirmation.
func (s *NotificationService) AppointmentBooked(ctx context.Context, client models.User, trainer models.Trainer, appt models.Appointment) {
	if client.PhoneNumber == "" {
		s.logger.Debug("client has no phone number, skipping confirmation", zap.Int64("client_id", client.ID))
		return
	}
	s.dispatch(ctx, delivery{
		Channel: notify.ChannelWhatsApp,
		Message: notify.Message{
			To:     client.PhoneNumber,
			ToName: client.DisplayName(),
			Body:   notify.BookingConfirmation(client.DisplayName(), trainer.Name, appt.StartTime.In(s.loc)),
		},
	})
}

// SchedulingFailed stores an in-app notice for an unresolved slot and sends it by WhatsApp and e-mail.
func (s *NotificationService) SchedulingFailed(ctx context.Context, client models.User, failure models.FailedAssignment, at time.Time) {
	text := FailureMessage(at.In(s.loc), failure.Reason)
	if s.store != nil {
		n := &models.Notification{UserID: client.ID, Message: text}
		if err := s.store.Create(ctx, n); err != nil {
			s.logger.Warn("failed to store notification", zap.Int64("user_id", client.ID), zap.Error(err))
		}
	}
	if client.PhoneNumber != "" {
		s.dispatch(ctx, delivery{
			Channel: notify.ChannelWhatsApp,
			Message: notify.Message{To: client.PhoneNumber, ToName: client.DisplayName(), Body: text},
		})
	}
	if client.Email != "" {
		s.dispatch(ctx, delivery{
			Channel: notify.ChannelEmail,
			Message: notify.Message{To: client.Email, ToName: client.DisplayName(), Subject: "We could not book your workout", Body: text},
		})
	}
}

// FailureMessage renders the in-app text for an unresolved slot.
func FailureMessage(at time.Time, reason string) string {
	return fmt.Sprintf("Could not auto-schedule %s at %s: %s.", at.Weekday(), at.Format("15:04"), reason)
}

// List returns a user's notifications. Non-admins only see their own.
func (s *NotificationService) List(ctx context.Context, actor models.Actor, userID int64, limit int) ([]models.Notification, error) {
	if !actor.IsAdmin() && actor.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot read another user's notifications")
	}
	items, err := s.store.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	if items == nil {
		items = []models.Notification{}
	}
	return items, nil
}

// MarkRead flags a notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, actor models.Actor, id int64) (*models.Notification, error) {
	existing, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notification")
	}
	if !actor.IsAdmin() && existing.UserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	n, err := s.store.MarkRead(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update notification")
	}
	return n, nil
}

func (s *NotificationService) dispatch(ctx context.Context, d delivery) {
	if s.queue != nil {
		if err := s.queue.Enqueue(jobs.Job{Type: notifyJobType, Payload: d}); err != nil {
			s.logger.Warn("failed to enqueue notification", zap.String("channel", d.Channel), zap.Error(err))
		}
		return
	}
	if err := s.deliver(ctx, d); err != nil {
		s.logger.Warn("notification delivery failed", zap.String("channel", d.Channel), zap.Error(err))
	}
}

func (s *NotificationService) deliver(ctx context.Context, d delivery) error {
	sender, ok := s.senders[d.Channel]
	if !ok {
		return fmt.Errorf("no sender for channel %s", d.Channel)
	}
	err := sender.Send(ctx, d.Message)
	if s.metrics != nil {
		s.metrics.ObserveNotification(d.Channel, err)
	}
	return err
}
