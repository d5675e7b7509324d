package sync

import (
	"context"
	"errors"
	gosync "sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/sync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// mockFetchAlertNotifier captures alerts for assertions
type mockFetchAlertNotifier struct {
	mu     gosync.Mutex
	alerts []FetchAlert
	err    error
}

func newMockFetchAlertNotifier() *mockFetchAlertNotifier {
	return &mockFetchAlertNotifier{
		alerts: make([]FetchAlert, 0),
	}
}

func (n *mockFetchAlertNotifier) SendAlert(ctx context.Context, alert FetchAlert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	return n.err
}

func (n *mockFetchAlertNotifier) getAlerts() []FetchAlert {
	n.mu.Lock()
	defer n.mu.Unlock()
	result := make([]FetchAlert, len(n.alerts))
	copy(result, n.alerts)
	return result
}

func newFailedEvent(recordID uuid.UUID) *sync.FetchFailedEvent {
	return &sync.FetchFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(sync.EventTypeFetchFailed, sync.AggregateTypeFetchRecord, recordID),
		FetchRecordID:   recordID,
		Source:          sync.SourceVendorPortal,
		FetchKind:       sync.FetchKindOrders,
		ErrorMessage:    "portal timeout",
		Attempts:        3,
	}
}

func TestFetchFailedAlertHandler_Handle(t *testing.T) {
	logger := zaptest.NewLogger(t)
	notifier := newMockFetchAlertNotifier()
	handler := NewFetchFailedAlertHandler(logger).WithNotifier(notifier)

	recordID := uuid.New()

	t.Run("delivers alert to notifier", func(t *testing.T) {
		err := handler.Handle(context.Background(), newFailedEvent(recordID))
		require.NoError(t, err)

		alerts := notifier.getAlerts()
		require.Len(t, alerts, 1)
		assert.Equal(t, recordID.String(), alerts[0].FetchRecordID)
		assert.Equal(t, "vendor_portal", alerts[0].Source)
		assert.Equal(t, "orders", alerts[0].FetchKind)
		assert.Equal(t, 3, alerts[0].Attempts)
		assert.Equal(t, "portal timeout", alerts[0].ErrorMessage)
	})

	t.Run("returns error for wrong event type", func(t *testing.T) {
		wrongEvent := &sync.FetchCompletedEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(sync.EventTypeFetchCompleted, sync.AggregateTypeFetchRecord, recordID),
		}

		err := handler.Handle(context.Background(), wrongEvent)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected event type")
	})

	t.Run("notifier failure does not fail handling", func(t *testing.T) {
		failing := newMockFetchAlertNotifier()
		failing.err = errors.New("webhook down")
		h := NewFetchFailedAlertHandler(zap.NewNop()).WithNotifier(failing)

		err := h.Handle(context.Background(), newFailedEvent(uuid.New()))
		assert.NoError(t, err)
		assert.Len(t, failing.getAlerts(), 1)
	})

	t.Run("works without notifier", func(t *testing.T) {
		h := NewFetchFailedAlertHandler(zap.NewNop())

		err := h.Handle(context.Background(), newFailedEvent(uuid.New()))
		assert.NoError(t, err)
	})
}

func TestFetchFailedAlertHandler_EventTypes(t *testing.T) {
	handler := NewFetchFailedAlertHandler(zap.NewNop())

	eventTypes := handler.EventTypes()
	assert.Len(t, eventTypes, 1)
	assert.Equal(t, sync.EventTypeFetchFailed, eventTypes[0])
}

func TestLoggingFetchAlertNotifier_SendAlert(t *testing.T) {
	logger := zaptest.NewLogger(t)
	notifier := NewLoggingFetchAlertNotifier(logger)

	alert := FetchAlert{
		FetchRecordID: uuid.New().String(),
		Source:        "retail_portal",
		FetchKind:     "invoices",
		Attempts:      2,
		ErrorMessage:  "login failed",
	}

	err := notifier.SendAlert(context.Background(), alert)
	assert.NoError(t, err)
}
