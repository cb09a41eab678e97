// Package rules 定义规则评估边界
// 引擎只依赖 Evaluator 接口，具体规则引擎（静态规则表、DSL、外部服务）均可接入
package rules

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vperreard/mathildanesth/pkg/model"
)

// Phase 评估阶段
type Phase string

const (
	PhaseGeneration Phase = "generation" // 生成阶段：规则引擎可以主动提出分配
	PhaseValidation Phase = "validation" // 校验阶段：规则引擎对候选分配做合规检查
)

// PersonMetrics 人员指标快照（供规则条件引用）
type PersonMetrics struct {
	DutyCount         int     `json:"duty_count"`
	ReserveCount      int     `json:"reserve_count"`
	ConsultationCount int     `json:"consultation_count"`
	FatigueScore      float64 `json:"fatigue_score"`
}

// EvalContext 规则评估上下文快照
type EvalContext struct {
	Date      time.Time                   `json:"date"`
	Kind      model.ActivityKind          `json:"kind,omitempty"`
	Person    *model.Person               `json:"person,omitempty"`
	Tentative *model.Attribution          `json:"tentative,omitempty"`
	Existing  []*model.Attribution        `json:"existing"`
	Proposed  []*model.Attribution        `json:"proposed"`
	Metrics   map[uuid.UUID]PersonMetrics `json:"metrics"`
}

// MetricsFor 返回人员的指标快照
func (ec *EvalContext) MetricsFor(personID uuid.UUID) PersonMetrics {
	if ec.Metrics == nil {
		return PersonMetrics{}
	}
	return ec.Metrics[personID]
}

// ActionType 规则动作类型
type ActionType string

const (
	ActionAssign   ActionType = "assign"   // 指派某人到某类班次
	ActionValidate ActionType = "validate" // 产生一条校验结论
)

// AssignAction 指派动作
type AssignAction struct {
	PersonID uuid.UUID          `json:"person_id"`
	Kind     model.ActivityKind `json:"kind"`
}

// ValidateAction 校验动作
type ValidateAction struct {
	Severity      model.Severity      `json:"severity"`
	Message       string              `json:"message"`
	ViolationKind model.ViolationKind `json:"violation_kind"`
}

// Action 规则动作（标签联合：Assign 或 Validate 二选一）
type Action struct {
	Type     ActionType      `json:"type"`
	Assign   *AssignAction   `json:"assign,omitempty"`
	Validate *ValidateAction `json:"validate,omitempty"`
}

// RuleResult 单条规则的评估结果
// Passed 为 false 表示规则判定存在问题，Actions 中的 Validate 动作描述具体违规
type RuleResult struct {
	RuleID   string   `json:"rule_id"`
	RuleName string   `json:"rule_name"`
	Passed   bool     `json:"passed"`
	Actions  []Action `json:"actions,omitempty"`
}

// AssignActions 返回结果中的全部指派动作
func (r RuleResult) AssignActions() []AssignAction {
	var out []AssignAction
	for _, a := range r.Actions {
		if a.Type == ActionAssign && a.Assign != nil {
			out = append(out, *a.Assign)
		}
	}
	return out
}

// ValidateActions 返回结果中的全部校验动作
func (r RuleResult) ValidateActions() []ValidateAction {
	var out []ValidateAction
	for _, a := range r.Actions {
		if a.Type == ActionValidate && a.Validate != nil {
			out = append(out, *a.Validate)
		}
	}
	return out
}

// Evaluator 规则评估接口
// 评估失败的错误原样向调用方传播，引擎内部不做重试
type Evaluator interface {
	Evaluate(ctx context.Context, ec *EvalContext, phase Phase) ([]RuleResult, error)
}

// NopEvaluator 空规则引擎：不提任何建议，也不报任何违规
type NopEvaluator struct{}

// Evaluate 恒返回空结果
func (NopEvaluator) Evaluate(context.Context, *EvalContext, Phase) ([]RuleResult, error) {
	return nil, nil
}
