package repository

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vperreard/mathildanesth/pkg/model"
)

func TestSettingsRepository_LoadRulesConfiguration(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSettingsRepository(db)

	stored := model.DefaultRulesConfiguration()
	stored.Interval.MinDaysBetweenDuties = 5
	value, err := json.Marshal(stored)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT value FROM planning_settings").
		WithArgs("rules_configuration").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(value))

	cfg, err := repo.LoadRulesConfiguration(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Interval.MinDaysBetweenDuties)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepository_LoadRulesConfiguration_Missing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSettingsRepository(db)

	mock.ExpectQuery("SELECT value FROM planning_settings").
		WithArgs("rules_configuration").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	cfg, err := repo.LoadRulesConfiguration(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultRulesConfiguration(), cfg, "缺失时应回落到默认配置")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepository_LoadFatigueConfig(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSettingsRepository(db)

	stored := model.DefaultFatigueConfig()
	stored.Thresholds.Critical = 90
	value, err := json.Marshal(stored)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT value FROM planning_settings").
		WithArgs("fatigue_configuration").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(value))

	cfg, err := repo.LoadFatigueConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 90.0, cfg.Thresholds.Critical)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepository_SaveRulesConfiguration(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSettingsRepository(db)

	mock.ExpectExec("INSERT INTO planning_settings").
		WithArgs("rules_configuration", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.SaveRulesConfiguration(context.Background(), model.DefaultRulesConfiguration())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
