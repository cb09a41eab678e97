package rules

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/vperreard/mathildanesth/pkg/model"
)

// Priority 规则优先级
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// rank 优先级排序值
func (p Priority) rank() int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// LogicOperator 条件组合方式
type LogicOperator string

const (
	LogicAnd LogicOperator = "AND"
	LogicOr  LogicOperator = "OR"
)

// Condition 单个条件
type Condition struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
	ValueEnd interface{} `json:"value_end,omitempty"` // BETWEEN 的上界
}

// ConditionGroup 条件组（支持嵌套）
type ConditionGroup struct {
	LogicOperator LogicOperator    `json:"logic_operator"`
	Conditions    []Condition      `json:"conditions"`
	SubGroups     []ConditionGroup `json:"sub_groups,omitempty"`
}

// ActionSpec 规则动作定义（参数为松散 map，评估时解码）
type ActionSpec struct {
	Type       ActionType             `json:"type"`
	Parameters map[string]interface{} `json:"parameters"`
}

// Rule 静态规则
type Rule struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Priority   Priority       `json:"priority"`
	Phases     []Phase        `json:"phases"` // 规则参与的阶段
	Conditions ConditionGroup `json:"conditions"`
	Actions    []ActionSpec   `json:"actions"`
	Active     bool           `json:"active"`
}

// appliesTo 判断规则是否参与指定阶段
func (r *Rule) appliesTo(phase Phase) bool {
	if len(r.Phases) == 0 {
		return phase == PhaseValidation
	}
	for _, p := range r.Phases {
		if p == phase {
			return true
		}
	}
	return false
}

// StaticEvaluator 基于静态规则表的规则引擎
// 动态规则子系统的内部表示不在本仓库范围内，这里只实现其评估契约
type StaticEvaluator struct {
	rules []Rule
}

// NewStaticEvaluator 创建静态规则引擎
// 规则按优先级从高到低排序，评估顺序稳定
func NewStaticEvaluator(rules []Rule) *StaticEvaluator {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority.rank() > sorted[j].Priority.rank()
	})
	return &StaticEvaluator{rules: sorted}
}

// Evaluate 评估指定阶段的全部规则
func (e *StaticEvaluator) Evaluate(_ context.Context, ec *EvalContext, phase Phase) ([]RuleResult, error) {
	var results []RuleResult

	for i := range e.rules {
		rule := &e.rules[i]
		if !rule.Active || !rule.appliesTo(phase) {
			continue
		}

		satisfied, err := evaluateGroup(&rule.Conditions, ec)
		if err != nil {
			return nil, fmt.Errorf("规则 %s 条件评估失败: %w", rule.ID, err)
		}

		result := RuleResult{RuleID: rule.ID, RuleName: rule.Name, Passed: true}
		if satisfied {
			actions, err := materializeActions(rule.Actions)
			if err != nil {
				return nil, fmt.Errorf("规则 %s 动作解析失败: %w", rule.ID, err)
			}
			result.Actions = actions
			// 条件命中且带校验动作的规则视为不通过
			for _, a := range actions {
				if a.Type == ActionValidate {
					result.Passed = false
					break
				}
			}
		}
		results = append(results, result)
	}

	return results, nil
}

// assignParams 指派动作参数
type assignParams struct {
	PersonID string `mapstructure:"person_id"`
	Kind     string `mapstructure:"kind"`
}

// validateParams 校验动作参数
type validateParams struct {
	Severity      string `mapstructure:"severity"`
	Message       string `mapstructure:"message"`
	ViolationKind string `mapstructure:"violation_kind"`
}

// materializeActions 将松散参数解码为类型化动作
func materializeActions(specs []ActionSpec) ([]Action, error) {
	var actions []Action

	for _, spec := range specs {
		switch spec.Type {
		case ActionAssign:
			var p assignParams
			if err := mapstructure.Decode(spec.Parameters, &p); err != nil {
				return nil, err
			}
			personID, err := uuid.Parse(p.PersonID)
			if err != nil {
				return nil, fmt.Errorf("person_id 无效: %w", err)
			}
			kind := model.ActivityKind(p.Kind)
			if !kind.IsValid() {
				return nil, fmt.Errorf("活动类型无效: %s", p.Kind)
			}
			actions = append(actions, Action{
				Type:   ActionAssign,
				Assign: &AssignAction{PersonID: personID, Kind: kind},
			})

		case ActionValidate:
			var p validateParams
			if err := mapstructure.Decode(spec.Parameters, &p); err != nil {
				return nil, err
			}
			severity := model.Severity(p.Severity)
			if severity == "" {
				severity = model.SeverityWarning
			}
			violationKind := model.ViolationKind(p.ViolationKind)
			if violationKind == "" {
				violationKind = model.ViolationRuleEngine
			}
			actions = append(actions, Action{
				Type: ActionValidate,
				Validate: &ValidateAction{
					Severity:      severity,
					Message:       p.Message,
					ViolationKind: violationKind,
				},
			})

		default:
			return nil, fmt.Errorf("未知动作类型: %s", spec.Type)
		}
	}

	return actions, nil
}

// evaluateGroup 递归评估条件组
func evaluateGroup(group *ConditionGroup, ec *EvalContext) (bool, error) {
	var results []bool

	for i := range group.Conditions {
		ok, err := evaluateCondition(&group.Conditions[i], ec)
		if err != nil {
			return false, err
		}
		results = append(results, ok)
	}
	for i := range group.SubGroups {
		ok, err := evaluateGroup(&group.SubGroups[i], ec)
		if err != nil {
			return false, err
		}
		results = append(results, ok)
	}

	if len(results) == 0 {
		return false, nil
	}

	if group.LogicOperator == LogicOr {
		for _, r := range results {
			if r {
				return true, nil
			}
		}
		return false, nil
	}
	for _, r := range results {
		if !r {
			return false, nil
		}
	}
	return true, nil
}

// evaluateCondition 评估单个条件
func evaluateCondition(c *Condition, ec *EvalContext) (bool, error) {
	contextValue, ok := contextField(c.Field, ec)
	if !ok {
		return false, nil
	}
	return compare(contextValue, c.Operator, c.Value, c.ValueEnd)
}

// contextField 从评估上下文中提取字段值
func contextField(field string, ec *EvalContext) (interface{}, bool) {
	var personID uuid.UUID
	if ec.Person != nil {
		personID = ec.Person.ID
	} else if ec.Tentative != nil {
		personID = ec.Tentative.PersonID
	}

	switch field {
	case "PERSON_ID":
		if personID == uuid.Nil {
			return nil, false
		}
		return personID.String(), true
	case "SPECIALTY":
		if ec.Person == nil {
			return nil, false
		}
		return ec.Person.Specialty, true
	case "EXPERIENCE_YEARS":
		if ec.Person == nil {
			return nil, false
		}
		return ec.Person.ExperienceYears, true
	case "WORK_RATIO":
		if ec.Person == nil {
			return nil, false
		}
		return ec.Person.WorkRatio, true
	case "DATE":
		return ec.Date.Format(model.DateKey), true
	case "DAY_OF_WEEK":
		return int(ec.Date.Weekday()), true
	case "IS_WEEKEND":
		wd := ec.Date.Weekday()
		return wd == time.Saturday || wd == time.Sunday, true
	case "ACTIVITY_KIND":
		if ec.Tentative != nil {
			return string(ec.Tentative.Kind), true
		}
		if ec.Kind != "" {
			return string(ec.Kind), true
		}
		return nil, false
	case "DUTY_COUNT":
		if personID == uuid.Nil {
			return nil, false
		}
		return ec.MetricsFor(personID).DutyCount, true
	case "RESERVE_COUNT":
		if personID == uuid.Nil {
			return nil, false
		}
		return ec.MetricsFor(personID).ReserveCount, true
	case "CONSULTATION_COUNT":
		if personID == uuid.Nil {
			return nil, false
		}
		return ec.MetricsFor(personID).ConsultationCount, true
	case "FATIGUE_SCORE":
		if personID == uuid.Nil {
			return nil, false
		}
		return ec.MetricsFor(personID).FatigueScore, true
	default:
		return nil, false
	}
}

// compare 按操作符比较上下文值和规则值
func compare(contextValue interface{}, operator string, value, valueEnd interface{}) (bool, error) {
	switch operator {
	case "EQUALS":
		return equalValues(contextValue, value), nil
	case "NOT_EQUALS":
		return !equalValues(contextValue, value), nil
	case "GREATER_THAN", "LESS_THAN", "GREATER_THAN_OR_EQUAL", "LESS_THAN_OR_EQUAL":
		a, aok := toFloat(contextValue)
		b, bok := toFloat(value)
		if !aok || !bok {
			return false, nil
		}
		switch operator {
		case "GREATER_THAN":
			return a > b, nil
		case "LESS_THAN":
			return a < b, nil
		case "GREATER_THAN_OR_EQUAL":
			return a >= b, nil
		default:
			return a <= b, nil
		}
	case "BETWEEN":
		a, aok := toFloat(contextValue)
		lo, lok := toFloat(value)
		hi, hok := toFloat(valueEnd)
		if !aok || !lok || !hok {
			return false, nil
		}
		return a >= lo && a <= hi, nil
	case "CONTAINS":
		s, sok := contextValue.(string)
		sub, subok := value.(string)
		if !sok || !subok {
			return false, nil
		}
		return strings.Contains(s, sub), nil
	case "IN":
		list, ok := value.([]interface{})
		if !ok {
			return false, nil
		}
		for _, item := range list {
			if equalValues(contextValue, item) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("未知操作符: %s", operator)
	}
}

// equalValues 宽松相等比较（数值按浮点比较，其余按字符串化比较）
func equalValues(a, b interface{}) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// toFloat 尝试转换为浮点数
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// DefaultRuleSet 默认规则集
// 对应无外部动态规则子系统时的最小合规检查
func DefaultRuleSet() []Rule {
	return []Rule{
		{
			ID:       "fatigue-critical",
			Name:     "疲劳分临界检查",
			Priority: PriorityCritical,
			Phases:   []Phase{PhaseValidation},
			Active:   true,
			Conditions: ConditionGroup{
				LogicOperator: LogicAnd,
				Conditions: []Condition{
					{Field: "FATIGUE_SCORE", Operator: "GREATER_THAN_OR_EQUAL", Value: 80.0},
				},
			},
			Actions: []ActionSpec{
				{
					Type: ActionValidate,
					Parameters: map[string]interface{}{
						"severity":       "critical",
						"message":        "疲劳分已达临界阈值",
						"violation_kind": "FATIGUE_CRITICAL",
					},
				},
			},
		},
		{
			ID:       "junior-duty-warning",
			Name:     "低年资值班提示",
			Priority: PriorityMedium,
			Phases:   []Phase{PhaseValidation},
			Active:   true,
			Conditions: ConditionGroup{
				LogicOperator: LogicAnd,
				Conditions: []Condition{
					{Field: "ACTIVITY_KIND", Operator: "EQUALS", Value: "duty"},
					{Field: "EXPERIENCE_YEARS", Operator: "LESS_THAN", Value: 1},
				},
			},
			Actions: []ActionSpec{
				{
					Type: ActionValidate,
					Parameters: map[string]interface{}{
						"severity": "info",
						"message":  "低年资人员承担值班，建议安排资深备班",
					},
				},
			},
		},
	}
}
