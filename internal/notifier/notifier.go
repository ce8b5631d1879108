package notifier

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/segyhp/investment-engine/internal/domain"
	"github.com/segyhp/investment-engine/internal/repository"
	customError "github.com/segyhp/investment-engine/pkg/errors"
)

// Notifier delivers a notification to an investor.
type Notifier interface {
	Notify(ctx context.Context, n *domain.Notification) error
}

// StoreNotifier persists notifications so investors can list them, then
// publishes them on a per-user Redis channel when Redis is configured.
// The stored row is the delivery; the publish is best effort.
type StoreNotifier struct {
	repo   repository.NotificationRepository
	redis  *redis.Client
	prefix string
	logger *zap.Logger
}

// NewStoreNotifier creates a notifier. rdb may be nil.
func NewStoreNotifier(repo repository.NotificationRepository, rdb *redis.Client, prefix string, logger *zap.Logger) *StoreNotifier {
	return &StoreNotifier{
		repo:   repo,
		redis:  rdb,
		prefix: prefix,
		logger: logger,
	}
}

// Channel returns the pub/sub channel for userID.
func (n *StoreNotifier) Channel(userID string) string {
	return n.prefix + userID
}

func (n *StoreNotifier) Notify(ctx context.Context, notification *domain.Notification) error {
	if err := n.repo.Create(ctx, notification); err != nil {
		return customError.WrapNotificationDeliveryFailed(notification.UserID, err)
	}

	if n.redis == nil {
		return nil
	}

	payload, err := json.Marshal(notification)
	if err != nil {
		n.logger.Warn("failed to encode notification", zap.String("notification_id", notification.ID.String()), zap.Error(err))
		return nil
	}
	if err := n.redis.Publish(ctx, n.Channel(notification.UserID), payload).Err(); err != nil {
		n.logger.Warn("failed to publish notification",
			zap.String("notification_id", notification.ID.String()),
			zap.String("user_id", notification.UserID),
			zap.Error(err),
		)
	}
	return nil
}
