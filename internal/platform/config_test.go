package platform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm/logger"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ANALYSIS_TIMEOUT", "")
	t.Setenv("WORKER_CONCURRENCY", "")
	t.Setenv("MIGRATIONS_DIR", "")

	cfg, _ := LoadConfig()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 120*time.Second, cfg.AnalysisTimeout)
	assert.Equal(t, 2, cfg.WorkerConcurrency)
	assert.Equal(t, "db/migrations", cfg.MigrationsDir)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ANALYSIS_TIMEOUT", "45s")
	t.Setenv("WORKER_CONCURRENCY", "8")
	t.Setenv("DRAG_SESSION_TTL", "bogus")

	cfg, _ := LoadConfig()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 45*time.Second, cfg.AnalysisTimeout)
	assert.Equal(t, 8, cfg.WorkerConcurrency)
	assert.Equal(t, 30*time.Minute, cfg.DragSessionTTL)
}

func TestNewLogger_Level(t *testing.T) {
	l, err := NewLogger("debug")
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = NewLogger("nonsense")
	assert.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
}

func TestGormLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, gormLogLevel("silent"))
	assert.Equal(t, logger.Info, gormLogLevel("DEBUG"))
	assert.Equal(t, logger.Warn, gormLogLevel(""))
}

func TestNewMigrator_RequiresDSN(t *testing.T) {
	_, err := NewMigrator("", "")
	assert.Error(t, err)

	m, err := NewMigrator("postgres://x", "")
	assert.NoError(t, err)
	assert.Equal(t, "db/migrations", m.dir)
}

func TestNewAnalyzer_Backends(t *testing.T) {
	log := zap.NewNop()

	_, _, err := NewAnalyzer(Config{}, log)
	assert.Error(t, err)

	a, gen, err := NewAnalyzer(Config{AnalysisEndpointURL: "http://analysis.local/analyze", AnalysisTimeout: time.Second}, log)
	assert.NoError(t, err)
	assert.NotNil(t, a)
	assert.Nil(t, gen)

	a, gen, err = NewAnalyzer(Config{OpenAIAPIKey: "sk-test", OpenAIModel: "gpt-4o-mini", AnalysisTimeout: time.Second}, log)
	assert.NoError(t, err)
	assert.NotNil(t, a)
	assert.NotNil(t, gen)
}
