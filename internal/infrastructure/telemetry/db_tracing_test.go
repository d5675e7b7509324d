package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fetchProbe is a minimal model standing in for a synced table
type fetchProbe struct {
	ID        uint   `gorm:"primaryKey"`
	Source    string `gorm:"size:64"`
	CreatedAt time.Time
}

// setupTestDB creates a new SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&fetchProbe{})
	require.NoError(t, err)

	return db
}

// setupTracerWithExporter creates a tracer provider with a span recorder for testing
func setupTracerWithExporter(t *testing.T) (*trace.TracerProvider, *tracetest.SpanRecorder) {
	spanRecorder := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(spanRecorder))
	return tp, spanRecorder
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := DefaultDBTracingConfig()

	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
	assert.Equal(t, "postgresql", cfg.DBSystem)
	assert.True(t, cfg.WithoutVariables)
}

func TestNewDBTracingPlugin(t *testing.T) {
	logger := zap.NewNop()
	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true

	plugin := NewDBTracingPlugin(cfg, logger)

	assert.NotNil(t, plugin)
	assert.Equal(t, cfg, plugin.config)
}

func TestDBTracingPlugin_RegisterOtelGorm_Disabled(t *testing.T) {
	db := setupTestDB(t)
	logger := zap.NewNop()

	cfg := DefaultDBTracingConfig()
	cfg.Enabled = false

	plugin := NewDBTracingPlugin(cfg, logger)
	err := plugin.RegisterOtelGorm(db)

	assert.NoError(t, err)
}

func TestDBTracingPlugin_RegisterOtelGorm_Enabled(t *testing.T) {
	db := setupTestDB(t)
	logger := zap.NewNop()

	cfg := DBTracingConfig{
		Enabled:          true,
		LogFullSQL:       false,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "sqlite",
		WithoutVariables: true,
	}

	plugin := NewDBTracingPlugin(cfg, logger)
	err := plugin.RegisterOtelGorm(db)

	assert.NoError(t, err)
}

func TestDBTracingPlugin_RegisterOtelGorm_WithFullSQL(t *testing.T) {
	db := setupTestDB(t)
	logger := zap.NewNop()

	cfg := DBTracingConfig{
		Enabled:          true,
		LogFullSQL:       true,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "sqlite",
		WithoutVariables: false,
	}

	plugin := NewDBTracingPlugin(cfg, logger)
	err := plugin.RegisterOtelGorm(db)

	assert.NoError(t, err)
}

func TestDBTracingPlugin_RegisterOtelGorm_DoubleRegistration(t *testing.T) {
	db := setupTestDB(t)
	logger := zap.NewNop()

	cfg := DBTracingConfig{
		Enabled:          true,
		LogFullSQL:       false,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "sqlite",
		WithoutVariables: true,
	}

	plugin := NewDBTracingPlugin(cfg, logger)

	// First registration should succeed
	err := plugin.RegisterOtelGorm(db)
	assert.NoError(t, err)

	// Second registration should fail (duplicate plugin/callback names)
	err = plugin.RegisterOtelGorm(db)
	assert.Error(t, err)
}

func TestSlowQueryCallback_RowsAffected(t *testing.T) {
	db := setupTestDB(t)
	tp, spanRecorder := setupTracerWithExporter(t)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	tracer := tp.Tracer("test")
	ctx, span := tracer.Start(context.Background(), "ingest-batch")

	db = db.WithContext(ctx)
	plugin := NewDBTracingPlugin(DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "sqlite",
	}, zap.NewNop())

	probes := []fetchProbe{{Source: "vendor_portal"}, {Source: "retail_portal"}, {Source: "vendor_portal"}}
	result := db.Create(&probes)
	require.NoError(t, result.Error)

	plugin.slowQueryCallback(result)
	span.End()

	spans := spanRecorder.Ended()
	require.NotEmpty(t, spans)

	foundRows := false
	for _, attr := range spans[0].Attributes() {
		if attr.Key == "db.rows_affected" {
			foundRows = true
			assert.Equal(t, int64(3), attr.Value.AsInt64())
			break
		}
	}
	assert.True(t, foundRows, "db.rows_affected attribute should be present")
}

func TestSlowQueryCallback_TableAttribute(t *testing.T) {
	db := setupTestDB(t)
	tp, spanRecorder := setupTracerWithExporter(t)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	tracer := tp.Tracer("test")
	ctx, span := tracer.Start(context.Background(), "table-test")

	db = db.WithContext(ctx)
	plugin := NewDBTracingPlugin(DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "sqlite",
	}, zap.NewNop())

	result := db.Create(&fetchProbe{Source: "vendor_portal"})
	require.NoError(t, result.Error)

	plugin.slowQueryCallback(result)
	span.End()

	spans := spanRecorder.Ended()
	require.NotEmpty(t, spans)

	for _, attr := range spans[0].Attributes() {
		if attr.Key == "db.sql.table" {
			assert.Equal(t, "fetch_probes", attr.Value.AsString())
			break
		}
	}
}

func TestSlowQueryCallback_RecordNotFoundNotAnError(t *testing.T) {
	db := setupTestDB(t)
	tp, spanRecorder := setupTracerWithExporter(t)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	tracer := tp.Tracer("test")
	ctx, span := tracer.Start(context.Background(), "natural-key-probe")

	db = db.WithContext(ctx)
	plugin := NewDBTracingPlugin(DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "sqlite",
	}, zap.NewNop())

	// Natural-key probes miss routinely during upserts
	var result fetchProbe
	tx := db.First(&result, 99999)

	plugin.slowQueryCallback(tx)
	span.End()

	spans := spanRecorder.Ended()
	require.NotEmpty(t, spans)
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestSlowQueryCallback_SlowQueryEvent(t *testing.T) {
	db := setupTestDB(t)
	tp, spanRecorder := setupTracerWithExporter(t)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	tracer := tp.Tracer("test")
	ctx, span := tracer.Start(context.Background(), "slow-query-event-test")

	// Seed the start time so elapsed time exceeds the 1ns threshold
	ctx = WithQueryStartTime(ctx)
	time.Sleep(1 * time.Millisecond)

	db = db.WithContext(ctx)
	plugin := NewDBTracingPlugin(DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: 1 * time.Nanosecond,
		DBSystem:        "sqlite",
	}, zap.NewNop())

	plugin.slowQueryCallback(db)
	span.End()

	spans := spanRecorder.Ended()
	require.NotEmpty(t, spans)

	foundEvent := false
	for _, event := range spans[0].Events() {
		if event.Name == "slow_query_warning" {
			foundEvent = true
			for _, attr := range event.Attributes {
				if attr.Key == "duration_ms" {
					assert.True(t, attr.Value.AsInt64() > 0)
				}
			}
		}
	}
	assert.True(t, foundEvent, "slow_query_warning event should be recorded")
}

func TestSlowQueryCallback_NonRecordingSpan(t *testing.T) {
	db := setupTestDB(t)
	logger := zap.NewNop()

	cfg := DBTracingConfig{
		Enabled:          true,
		LogFullSQL:       false,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "sqlite",
		WithoutVariables: true,
	}

	plugin := NewDBTracingPlugin(cfg, logger)

	// Create a context without a span
	ctx := context.Background()
	db = db.WithContext(ctx)

	// This should not panic even without a recording span
	plugin.slowQueryCallback(db)
}

func TestSlowQueryCallback_NilContext(t *testing.T) {
	logger := zap.NewNop()

	cfg := DBTracingConfig{
		Enabled:          true,
		LogFullSQL:       false,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "sqlite",
		WithoutVariables: true,
	}

	plugin := NewDBTracingPlugin(cfg, logger)

	// Create a DB without context
	db := setupTestDB(t)

	// This should not panic with nil context
	plugin.slowQueryCallback(db)
}

func TestWithQueryStartTime(t *testing.T) {
	ctx := context.Background()
	ctx = WithQueryStartTime(ctx)

	startTime, ok := ctx.Value(queryStartTimeKey).(time.Time)
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now(), startTime, 1*time.Second)
}

func TestDBTracingPlugin_IntegrationWithOtelGorm(t *testing.T) {
	db := setupTestDB(t)
	tp, spanRecorder := setupTracerWithExporter(t)
	defer func() { _ = tp.Shutdown(context.Background()) }()
	logger := zap.NewNop()

	cfg := DBTracingConfig{
		Enabled:          true,
		LogFullSQL:       true,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "sqlite",
		WithoutVariables: false,
	}

	plugin := NewDBTracingPlugin(cfg, logger)
	err := plugin.RegisterOtelGorm(db)
	require.NoError(t, err)

	// Create a traced context
	tracer := tp.Tracer("test")
	ctx, span := tracer.Start(context.Background(), "integration-test")

	// Perform database operations
	db = db.WithContext(ctx)
	result := db.Create(&fetchProbe{Source: "vendor_portal"})
	require.NoError(t, result.Error)

	var found fetchProbe
	result = db.First(&found, "source = ?", "vendor_portal")
	require.NoError(t, result.Error)
	assert.Equal(t, "vendor_portal", found.Source)

	span.End()

	// Check that spans were recorded
	spans := spanRecorder.Ended()
	assert.NotEmpty(t, spans)
}

func TestDBTracingConfig_SecurityDefaults(t *testing.T) {
	// Verify that default config is secure (no SQL logging, variables hidden)
	cfg := DefaultDBTracingConfig()

	assert.False(t, cfg.LogFullSQL, "LogFullSQL should be disabled by default for security")
	assert.True(t, cfg.WithoutVariables, "WithoutVariables should be true by default for security")
}

// BenchmarkSlowQueryCallback benchmarks the callback overhead per query
func BenchmarkSlowQueryCallback(b *testing.B) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		b.Fatal(err)
	}

	err = db.AutoMigrate(&fetchProbe{})
	if err != nil {
		b.Fatal(err)
	}

	plugin := NewDBTracingPlugin(DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "sqlite",
	}, zap.NewNop())
	ctx := context.Background()
	db = db.WithContext(ctx)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		plugin.slowQueryCallback(db)
	}
}

// TestVerifySpanAttributes verifies that expected span attributes are set
func TestVerifySpanAttributes(t *testing.T) {
	tests := []struct {
		name          string
		attrs         []attribute.KeyValue
		expectedKey   attribute.Key
		expectedValue interface{}
	}{
		{
			name: "db.rows_affected",
			attrs: []attribute.KeyValue{
				attribute.Int64("db.rows_affected", 5),
			},
			expectedKey:   "db.rows_affected",
			expectedValue: int64(5),
		},
		{
			name: "db.sql.table",
			attrs: []attribute.KeyValue{
				attribute.String("db.sql.table", "fetch_records"),
			},
			expectedKey:   "db.sql.table",
			expectedValue: "fetch_records",
		},
		{
			name: "db.slow_query",
			attrs: []attribute.KeyValue{
				attribute.Bool("db.slow_query", true),
			},
			expectedKey:   "db.slow_query",
			expectedValue: true,
		},
		{
			name: "db.query_duration_ms",
			attrs: []attribute.KeyValue{
				attribute.Int64("db.query_duration_ms", 250),
			},
			expectedKey:   "db.query_duration_ms",
			expectedValue: int64(250),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			found := false
			for _, attr := range tc.attrs {
				if attr.Key == tc.expectedKey {
					found = true
					switch v := tc.expectedValue.(type) {
					case int64:
						assert.Equal(t, v, attr.Value.AsInt64())
					case string:
						assert.Equal(t, v, attr.Value.AsString())
					case bool:
						assert.Equal(t, v, attr.Value.AsBool())
					}
				}
			}
			assert.True(t, found, "Expected attribute %s not found", tc.expectedKey)
		})
	}
}
