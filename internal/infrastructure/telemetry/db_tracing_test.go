package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type tracedRow struct {
	ID   int64 `gorm:"primaryKey"`
	Name string
}

func openTracedDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedRow{}))
	return db
}

func TestNewDBTracingPlugin_Defaults(t *testing.T) {
	p := NewDBTracingPlugin(DBTracingConfig{Enabled: true}, zap.NewNop())
	assert.Equal(t, 200*time.Millisecond, p.config.SlowQueryThresh)
	assert.Equal(t, "postgresql", p.config.DBSystem)
}

func TestDBTracingPlugin_Disabled(t *testing.T) {
	db := openTracedDB(t)
	p := NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop())

	require.NoError(t, p.Register(db))
	assert.Nil(t, db.Callback().Query().Get("otel_timing:after_query"))
}

func TestDBTracingPlugin_RecordsQuerySpans(t *testing.T) {
	recorder := setupRecorder(t)
	db := openTracedDB(t)

	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true
	cfg.DBSystem = "sqlite"
	cfg.SlowQueryThresh = time.Nanosecond
	p := NewDBTracingPlugin(cfg, zap.NewNop())
	require.NoError(t, p.Register(db))
	assert.NotNil(t, db.Callback().Query().Get("otel_timing:after_query"))

	ctx, span := StartSpan(context.Background(), "test.parent")
	require.NoError(t, db.WithContext(ctx).Create(&tracedRow{Name: "a"}).Error)
	var rows []tracedRow
	require.NoError(t, db.WithContext(ctx).Find(&rows).Error)
	span.End()

	var dbSpans int
	for _, s := range recorder.Ended() {
		if s.Name() != "test.parent" {
			dbSpans++
		}
	}
	assert.GreaterOrEqual(t, dbSpans, 2)
}

func TestDBTracingPlugin_AfterQueryMarksSlowAndFailedQueries(t *testing.T) {
	recorder := setupRecorder(t)
	db := openTracedDB(t)
	p := NewDBTracingPlugin(DBTracingConfig{Enabled: true, SlowQueryThresh: time.Millisecond}, zap.NewNop())

	ctx, span := StartSpan(context.Background(), "db.query")
	ctx = context.WithValue(ctx, queryStartKey{}, time.Now().Add(-time.Second))

	tx := db.Session(&gorm.Session{NewDB: true, Context: ctx})
	tx.Statement.Table = "meters"
	tx.Statement.RowsAffected = 2
	_ = tx.AddError(errors.New("connection reset"))
	p.afterQuery(tx)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	got := spans[0]
	attrs := attrMap(got.Attributes())
	assert.True(t, attrs["db.slow_query"].AsBool())
	assert.Equal(t, int64(2), attrs["db.rows_affected"].AsInt64())
	assert.Equal(t, "meters", attrs["db.sql.table"].AsString())
	assert.Equal(t, codes.Error, got.Status().Code)
	require.NotEmpty(t, got.Events())
}

func TestDBTracingPlugin_AfterQueryIgnoresRecordNotFound(t *testing.T) {
	recorder := setupRecorder(t)
	db := openTracedDB(t)
	p := NewDBTracingPlugin(DBTracingConfig{Enabled: true}, zap.NewNop())

	ctx, span := StartSpan(context.Background(), "db.query")
	tx := db.Session(&gorm.Session{NewDB: true, Context: ctx})
	_ = tx.AddError(gorm.ErrRecordNotFound)
	p.afterQuery(tx)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}
