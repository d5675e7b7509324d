package sync

import (
	"context"
	"fmt"

	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/sync"
	"go.uber.org/zap"
)

// FetchFailedAlertHandler handles FetchFailed events and raises an alert
// when a fetch has exhausted its retries. A failed fetch means the portal
// data is going stale until someone intervenes, so failures surface
// immediately instead of waiting for the health endpoint to be polled.
type FetchFailedAlertHandler struct {
	logger   *zap.Logger
	notifier FetchAlertNotifier
}

// FetchAlertNotifier is the interface for delivering fetch failure alerts.
// Implementations can support different channels (log, webhook, email).
type FetchAlertNotifier interface {
	// SendAlert sends a fetch failure alert
	SendAlert(ctx context.Context, alert FetchAlert) error
}

// FetchAlert describes one failed fetch
type FetchAlert struct {
	FetchRecordID string `json:"fetch_record_id"`
	Source        string `json:"source"`
	FetchKind     string `json:"fetch_kind"`
	Attempts      int    `json:"attempts"`
	ErrorMessage  string `json:"error_message"`
}

// NewFetchFailedAlertHandler creates a new handler for fetch failed events
func NewFetchFailedAlertHandler(logger *zap.Logger) *FetchFailedAlertHandler {
	return &FetchFailedAlertHandler{
		logger: logger,
	}
}

// WithNotifier sets the notifier for delivering alerts
func (h *FetchFailedAlertHandler) WithNotifier(notifier FetchAlertNotifier) *FetchFailedAlertHandler {
	h.notifier = notifier
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *FetchFailedAlertHandler) EventTypes() []string {
	return []string{sync.EventTypeFetchFailed}
}

// Handle processes a FetchFailedEvent
func (h *FetchFailedAlertHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	failedEvent, ok := event.(*sync.FetchFailedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", sync.EventTypeFetchFailed),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			sync.EventTypeFetchFailed, event.EventType())
	}

	h.logger.Warn("fetch failed after retries",
		zap.String("fetch_id", failedEvent.FetchRecordID.String()),
		zap.String("source", failedEvent.Source.String()),
		zap.String("kind", failedEvent.FetchKind.String()),
		zap.Int("attempts", failedEvent.Attempts),
		zap.String("error", failedEvent.ErrorMessage),
	)

	if h.notifier != nil {
		alert := FetchAlert{
			FetchRecordID: failedEvent.FetchRecordID.String(),
			Source:        failedEvent.Source.String(),
			FetchKind:     failedEvent.FetchKind.String(),
			Attempts:      failedEvent.Attempts,
			ErrorMessage:  failedEvent.ErrorMessage,
		}
		if err := h.notifier.SendAlert(ctx, alert); err != nil {
			h.logger.Error("failed to send fetch alert",
				zap.String("fetch_id", alert.FetchRecordID),
				zap.Error(err),
			)
			// Notification failure never fails the event handling
		}
	}

	return nil
}

// Ensure FetchFailedAlertHandler implements shared.EventHandler
var _ shared.EventHandler = (*FetchFailedAlertHandler)(nil)

// LoggingFetchAlertNotifier is a notifier that writes alerts to the log.
// This is the default channel when no external alerting is configured.
type LoggingFetchAlertNotifier struct {
	logger *zap.Logger
}

// NewLoggingFetchAlertNotifier creates a new logging notifier
func NewLoggingFetchAlertNotifier(logger *zap.Logger) *LoggingFetchAlertNotifier {
	return &LoggingFetchAlertNotifier{
		logger: logger,
	}
}

// SendAlert logs the fetch alert
func (n *LoggingFetchAlertNotifier) SendAlert(ctx context.Context, alert FetchAlert) error {
	n.logger.Warn("FETCH ALERT",
		zap.String("source", alert.Source),
		zap.String("kind", alert.FetchKind),
		zap.Int("attempts", alert.Attempts),
		zap.String("error", alert.ErrorMessage),
	)
	return nil
}

// Ensure LoggingFetchAlertNotifier implements FetchAlertNotifier
var _ FetchAlertNotifier = (*LoggingFetchAlertNotifier)(nil)
