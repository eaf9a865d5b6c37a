package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/suminyol/ayursutra-api/internal/email"
	"github.com/suminyol/ayursutra-api/internal/model"
	"github.com/suminyol/ayursutra-api/internal/repository"
	"github.com/suminyol/ayursutra-api/internal/sms"
	apperrors "github.com/suminyol/ayursutra-api/pkg/errors"
	"github.com/suminyol/ayursutra-api/pkg/logger"
	"github.com/suminyol/ayursutra-api/pkg/messaging"
	"github.com/suminyol/ayursutra-api/pkg/metrics"
)

const dispatchTimeout = 30 * time.Second

type Service interface {
	// Dispatch persists the notification and fans it out over its
	// delivery methods in the background. Delivery failures are
	// logged, never surfaced to the caller.
	Dispatch(ctx context.Context, notification *model.Notification) error
	ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]*model.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) (*model.Notification, error)
}

type service struct {
	repo     repository.NotificationRepository
	userRepo repository.UserRepository
	emailSvc email.Service
	smsSvc   sms.Sender
	broker   messaging.Broker
	metrics  *metrics.Metrics
	logger   *logger.Logger
}

func NewService(
	repo repository.NotificationRepository,
	userRepo repository.UserRepository,
	emailSvc email.Service,
	smsSvc sms.Sender,
	broker messaging.Broker,
	metrics *metrics.Metrics,
	logger *logger.Logger,
) Service {
	return &service{
		repo:     repo,
		userRepo: userRepo,
		emailSvc: emailSvc,
		smsSvc:   smsSvc,
		broker:   broker,
		metrics:  metrics,
		logger:   logger,
	}
}

func (s *service) Dispatch(ctx context.Context, notification *model.Notification) error {
	if notification.UserID == uuid.Nil {
		return apperrors.BadRequest("notification requires a recipient", nil)
	}
	if len(notification.DeliveryMethods) == 0 {
		notification.DeliveryMethods = model.StringList{model.ChannelInApp}
	}
	if notification.Priority == "" {
		notification.Priority = model.NotificationPriorityMedium
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	go s.deliver(notification)

	return nil
}

// deliver runs detached from the request; it gets its own deadline.
func (s *service) deliver(notification *model.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	start := time.Now()

	var user *model.User
	for _, method := range notification.DeliveryMethods {
		var err error
		switch method {
		case model.ChannelInApp:
			err = s.publishInApp(ctx, notification)
		case model.ChannelEmail:
			if user, err = s.recipient(ctx, notification, user); err == nil {
				err = s.emailSvc.Send(ctx, user.Email, notification.Title, notification.Message)
			}
		case model.ChannelSMS:
			if user, err = s.recipient(ctx, notification, user); err == nil {
				err = s.smsSvc.Send(ctx, user.Phone, notification.Message)
			}
		default:
			err = fmt.Errorf("unsupported delivery method: %s", method)
		}

		if err != nil {
			s.metrics.NotificationsFailed.WithLabelValues(method).Inc()
			s.logger.Error(err, "notification delivery failed",
				"notification_id", notification.ID, "method", method)
			continue
		}
		s.metrics.NotificationsDispatched.WithLabelValues(method).Inc()
	}

	s.metrics.DispatchLatency.Observe(time.Since(start).Seconds())

	now := time.Now()
	notification.SentAt = &now
	if err := s.repo.Update(ctx, notification); err != nil {
		s.logger.Error(err, "failed to record notification sent time",
			"notification_id", notification.ID)
	}
}

func (s *service) recipient(ctx context.Context, notification *model.Notification, cached *model.User) (*model.User, error) {
	if cached != nil {
		return cached, nil
	}
	user, err := s.userRepo.Get(ctx, notification.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve recipient: %w", err)
	}
	return user, nil
}

func (s *service) publishInApp(ctx context.Context, notification *model.Notification) error {
	event := model.NotificationEvent{
		NotificationID: notification.ID,
		UserID:         notification.UserID,
		Type:           notification.Type,
		Title:          notification.Title,
		Message:        notification.Message,
		Data:           notification.Data,
		CreatedAt:      notification.CreatedAt,
	}
	return s.broker.Publish(ctx, messaging.UserChannel(notification.UserID.String()), event)
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]*model.Notification, error) {
	notifications, err := s.repo.ListForUser(ctx, userID, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) (*model.Notification, error) {
	notification, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return nil, apperrors.NotFound("notification", err)
	}
	if notification.UserID != userID {
		return nil, apperrors.Forbidden("notification belongs to another user")
	}
	if !notification.IsRead {
		now := time.Now()
		notification.IsRead = true
		notification.ReadAt = &now
		if err := s.repo.Update(ctx, notification); err != nil {
			return nil, fmt.Errorf("failed to mark notification read: %w", err)
		}
	}
	return notification, nil
}
