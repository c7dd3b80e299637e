package worker

import (
	"go.uber.org/zap"

	"github.com/plantops/finding-service/internal/config"
	"github.com/plantops/finding-service/internal/events"
	"github.com/plantops/finding-service/internal/service"
)

// StartNotificationWorker subscribes the notification service to lifecycle
// events. Handlers run synchronously after commit; the dispatcher swallows
// their errors, so a failed notification never fails a lifecycle action.
func StartNotificationWorker(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *service.NotificationService {
	notifications := service.NewNotificationService(dispatcher, logger.Named("notifications"), cfg)
	notifications.RegisterHandlers()
	logger.Info("notification worker registered")
	return notifications
}
