package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vperreard/mathildanesth/pkg/model"
)

// 配置快照键
const (
	settingRules   = "rules_configuration"
	settingFatigue = "fatigue_configuration"
)

// SettingsRepository 排班配置仓储
// 规则配置与疲劳配置按键以 JSONB 快照存储
type SettingsRepository struct {
	db DB
}

// NewSettingsRepository 创建配置仓储
func NewSettingsRepository(db DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// LoadRulesConfiguration 读取规则配置快照，不存在时返回默认配置
func (r *SettingsRepository) LoadRulesConfiguration(ctx context.Context) (*model.RulesConfiguration, error) {
	cfg := model.DefaultRulesConfiguration()
	found, err := r.load(ctx, settingRules, cfg)
	if err != nil {
		return nil, err
	}
	if !found {
		return model.DefaultRulesConfiguration(), nil
	}
	return cfg, nil
}

// LoadFatigueConfig 读取疲劳配置快照，不存在时返回默认配置
func (r *SettingsRepository) LoadFatigueConfig(ctx context.Context) (*model.FatigueConfig, error) {
	cfg := model.DefaultFatigueConfig()
	found, err := r.load(ctx, settingFatigue, cfg)
	if err != nil {
		return nil, err
	}
	if !found {
		return model.DefaultFatigueConfig(), nil
	}
	return cfg, nil
}

// SaveRulesConfiguration 写入规则配置快照
func (r *SettingsRepository) SaveRulesConfiguration(ctx context.Context, cfg *model.RulesConfiguration) error {
	return r.save(ctx, settingRules, cfg)
}

// SaveFatigueConfig 写入疲劳配置快照
func (r *SettingsRepository) SaveFatigueConfig(ctx context.Context, cfg *model.FatigueConfig) error {
	return r.save(ctx, settingFatigue, cfg)
}

func (r *SettingsRepository) load(ctx context.Context, key string, dest interface{}) (bool, error) {
	query := `SELECT value FROM planning_settings WHERE key = $1`

	var value []byte
	err := r.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("查询配置 %s 失败: %w", key, err)
	}

	if err := json.Unmarshal(value, dest); err != nil {
		return false, fmt.Errorf("解析配置 %s 失败: %w", key, err)
	}
	return true, nil
}

func (r *SettingsRepository) save(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("序列化配置 %s 失败: %w", key, err)
	}

	query := `
		INSERT INTO planning_settings (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query, key, data, time.Now()); err != nil {
		return fmt.Errorf("保存配置 %s 失败: %w", key, err)
	}
	return nil
}
