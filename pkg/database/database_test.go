package database

import (
	"path/filepath"
	"testing"
	"training_tracker_backend/internal/config"
	"training_tracker_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDBSQLiteMigrates(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "nested", "training.db"),
	}

	db, err := InitDB(cfg, true)
	require.NoError(t, err)

	for _, table := range []interface{}{
		&model.User{}, &model.Block{}, &model.Session{}, &model.TrainingResult{},
		&model.TestResult{}, &model.XpTransaction{}, &model.UserStat{}, &model.ProgressTracking{},
	} {
		assert.True(t, db.Migrator().HasTable(table))
	}
	assert.True(t, db.Migrator().HasIndex(&model.XpTransaction{}, "idx_xp_user_source_window"))
	assert.True(t, db.Migrator().HasIndex(&model.ProgressTracking{}, "idx_progress_user_test"))
}

func TestInitDBRejectsUnknownDriver(t *testing.T) {
	_, err := InitDB(&config.DatabaseConfig{Driver: "oracle"}, false)
	assert.Error(t, err)
}
