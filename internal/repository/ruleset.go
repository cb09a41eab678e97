package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vperreard/mathildanesth/pkg/rules"
)

// RuleSetRepository 规则集仓储
// 规则的条件与动作以 JSONB 形式存储
type RuleSetRepository struct {
	db DB
}

// NewRuleSetRepository 创建规则集仓储
func NewRuleSetRepository(db DB) *RuleSetRepository {
	return &RuleSetRepository{db: db}
}

// Save 写入或更新一条规则
func (r *RuleSetRepository) Save(ctx context.Context, rule *rules.Rule) error {
	conditionsJSON, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("序列化规则条件失败: %w", err)
	}
	actionsJSON, err := json.Marshal(rule.Actions)
	if err != nil {
		return fmt.Errorf("序列化规则动作失败: %w", err)
	}
	phasesJSON, err := json.Marshal(rule.Phases)
	if err != nil {
		return fmt.Errorf("序列化规则阶段失败: %w", err)
	}

	query := `
		INSERT INTO planning_rules (id, name, priority, phases, conditions, actions, active, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			priority = EXCLUDED.priority,
			phases = EXCLUDED.phases,
			conditions = EXCLUDED.conditions,
			actions = EXCLUDED.actions,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		rule.ID, rule.Name, rule.Priority, phasesJSON, conditionsJSON, actionsJSON, rule.Active, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("保存规则失败: %w", err)
	}
	return nil
}

// ListActive 获取全部启用的规则
func (r *RuleSetRepository) ListActive(ctx context.Context) ([]rules.Rule, error) {
	query := `
		SELECT id, name, priority, phases, conditions, actions, active
		FROM planning_rules
		WHERE active = true
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("查询规则失败: %w", err)
	}
	defer rows.Close()

	var result []rules.Rule
	for rows.Next() {
		var rule rules.Rule
		var phasesJSON, conditionsJSON, actionsJSON []byte
		if err := rows.Scan(
			&rule.ID, &rule.Name, &rule.Priority, &phasesJSON, &conditionsJSON, &actionsJSON, &rule.Active,
		); err != nil {
			return nil, fmt.Errorf("读取规则失败: %w", err)
		}
		if err := json.Unmarshal(phasesJSON, &rule.Phases); err != nil {
			return nil, fmt.Errorf("解析规则 %s 的阶段失败: %w", rule.ID, err)
		}
		if err := json.Unmarshal(conditionsJSON, &rule.Conditions); err != nil {
			return nil, fmt.Errorf("解析规则 %s 的条件失败: %w", rule.ID, err)
		}
		if err := json.Unmarshal(actionsJSON, &rule.Actions); err != nil {
			return nil, fmt.Errorf("解析规则 %s 的动作失败: %w", rule.ID, err)
		}
		result = append(result, rule)
	}
	return result, rows.Err()
}

// Deactivate 停用规则
func (r *RuleSetRepository) Deactivate(ctx context.Context, id string) error {
	query := `UPDATE planning_rules SET active = false, updated_at = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("停用规则失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("规则不存在")
	}
	return nil
}
