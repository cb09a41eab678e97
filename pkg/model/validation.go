package model

import "github.com/google/uuid"

// Severity 违规严重程度
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// rank 严重程度排序值
func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityError:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// AtLeast 判断严重程度是否不低于指定级别
func (s Severity) AtLeast(other Severity) bool {
	return s.rank() >= other.rank()
}

// ViolationKind 违规类型
type ViolationKind string

const (
	ViolationMinInterval      ViolationKind = "MIN_INTERVAL"
	ViolationMaxDutiesMonth   ViolationKind = "MAX_DUTIES_MONTH"
	ViolationMaxReservesMonth ViolationKind = "MAX_RESERVES_MONTH"
	ViolationConsecutive      ViolationKind = "CONSECUTIVE_ASSIGNMENTS"
	ViolationFatigueAlert     ViolationKind = "FATIGUE_ALERT"
	ViolationFatigueCritical  ViolationKind = "FATIGUE_CRITICAL"
	ViolationRuleEngine       ViolationKind = "RULE_ENGINE"
	ViolationSameDayConflict  ViolationKind = "SAME_DAY_CONFLICT"
)

// RuleViolation 规则违规
type RuleViolation struct {
	ID                   uuid.UUID     `json:"id"`
	Kind                 ViolationKind `json:"kind"`
	Severity             Severity      `json:"severity"`
	Message              string        `json:"message"`
	AffectedAttributions []uuid.UUID   `json:"affected_attributions"`
}

// NewRuleViolation 创建规则违规
func NewRuleViolation(kind ViolationKind, severity Severity, message string, affected ...uuid.UUID) RuleViolation {
	return RuleViolation{
		ID:                   uuid.New(),
		Kind:                 kind,
		Severity:             severity,
		Message:              message,
		AffectedAttributions: affected,
	}
}

// SatisfactionNotComputed 满意度未实现的哨兵值
// 产品语义未定，保留显式的"未计算"状态
const SatisfactionNotComputed = -1.0

// PlanningMetrics 排班质量指标
type PlanningMetrics struct {
	EquityScore          float64 `json:"equity_score"`  // [0,1]，1 为完全均衡
	FatigueScore         float64 `json:"fatigue_score"` // 人均衰减后疲劳分
	SatisfactionScore    float64 `json:"satisfaction_score"`
	SatisfactionComputed bool    `json:"satisfaction_computed"`
}

// ValidationResult 校验结果
type ValidationResult struct {
	Valid      bool            `json:"valid"`
	Violations []RuleViolation `json:"violations"`
	Metrics    PlanningMetrics `json:"metrics"`
}

// HasSeverity 判断是否存在不低于指定严重程度的违规
func (r *ValidationResult) HasSeverity(min Severity) bool {
	for _, v := range r.Violations {
		if v.Severity.AtLeast(min) {
			return true
		}
	}
	return false
}
