package planner

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/vperreard/mathildanesth/pkg/model"
	"github.com/vperreard/mathildanesth/pkg/rules"
)

// Validator 对生成结果做全量校验并计算质量指标
type Validator struct {
	rc         *RunContext
	rulesCfg   *model.RulesConfiguration
	fatigueCfg *model.FatigueConfig
	evaluator  rules.Evaluator
}

// NewValidator 创建校验器，nil 配置使用默认值
func NewValidator(rc *RunContext, rulesCfg *model.RulesConfiguration, fatigueCfg *model.FatigueConfig, evaluator rules.Evaluator) *Validator {
	if rulesCfg == nil {
		rulesCfg = model.DefaultRulesConfiguration()
	}
	if fatigueCfg == nil {
		fatigueCfg = model.DefaultFatigueConfig()
	}
	if evaluator == nil {
		evaluator = rules.NopEvaluator{}
	}
	return &Validator{
		rc:         rc,
		rulesCfg:   rulesCfg,
		fatigueCfg: fatigueCfg,
		evaluator:  evaluator,
	}
}

// Validate 扫描全部已确认分配，返回违规清单与指标
func (v *Validator) Validate(ctx context.Context, committed []*model.Attribution, now time.Time) (*model.ValidationResult, error) {
	violations := make([]model.RuleViolation, 0)

	byPerson := lo.GroupBy(committed, func(a *model.Attribution) uuid.UUID {
		return a.PersonID
	})

	for _, personAttrs := range byPerson {
		sorted := make([]*model.Attribution, len(personAttrs))
		copy(sorted, personAttrs)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].StartDate.Before(sorted[j].StartDate)
		})

		violations = append(violations, v.checkDutyIntervals(sorted)...)
		violations = append(violations, v.checkMonthlyCeilings(sorted)...)
		violations = append(violations, v.checkConsecutiveRuns(sorted)...)
		violations = append(violations, v.checkSameDayConflicts(sorted)...)
	}

	violations = append(violations, v.checkFatigue(now)...)

	ruleViolations, err := v.checkRuleEngine(ctx, committed)
	if err != nil {
		return nil, err
	}
	violations = append(violations, ruleViolations...)

	return &model.ValidationResult{
		Valid:      len(violations) == 0,
		Violations: violations,
		Metrics:    v.computeMetrics(committed, now),
	}, nil
}

// checkDutyIntervals 校验同一人相邻值班的最小间隔
func (v *Validator) checkDutyIntervals(sorted []*model.Attribution) []model.RuleViolation {
	duties := lo.Filter(sorted, func(a *model.Attribution, _ int) bool {
		return a.Kind == model.KindDuty
	})

	var violations []model.RuleViolation
	minDays := v.rulesCfg.Interval.MinDaysBetweenDuties
	for i := 1; i < len(duties); i++ {
		gap := model.DaysBetween(duties[i-1].Date(), duties[i].Date())
		if gap >= minDays {
			continue
		}
		severity := model.SeverityError
		if gap < 3 {
			severity = model.SeverityCritical
		}
		violations = append(violations, model.NewRuleViolation(
			model.ViolationMinInterval, severity,
			fmt.Sprintf("值班间隔 %d 天，低于最小要求 %d 天", gap, minDays),
			duties[i-1].ID, duties[i].ID))
	}
	return violations
}

// checkMonthlyCeilings 校验每月值班与备班上限
func (v *Validator) checkMonthlyCeilings(sorted []*model.Attribution) []model.RuleViolation {
	var violations []model.RuleViolation

	check := func(kind model.ActivityKind, max int, violationKind model.ViolationKind, label string) {
		byMonth := lo.GroupBy(
			lo.Filter(sorted, func(a *model.Attribution, _ int) bool { return a.Kind == kind }),
			func(a *model.Attribution) string { return a.Date().Format("2006-01") },
		)
		for month, attrs := range byMonth {
			if len(attrs) <= max {
				continue
			}
			ids := lo.Map(attrs, func(a *model.Attribution, _ int) uuid.UUID { return a.ID })
			violations = append(violations, model.NewRuleViolation(
				violationKind, model.SeverityError,
				fmt.Sprintf("%s 月%s %d 次，超过上限 %d 次", month, label, len(attrs), max),
				ids...))
		}
	}

	check(model.KindDuty, v.rulesCfg.Interval.MaxDutiesPerMonth, model.ViolationMaxDutiesMonth, "值班")
	check(model.KindReserve, v.rulesCfg.Interval.MaxReservesPerMonth, model.ViolationMaxReservesMonth, "备班")
	return violations
}

// checkConsecutiveRuns 校验整日排他活动的连续天数
func (v *Validator) checkConsecutiveRuns(sorted []*model.Attribution) []model.RuleViolation {
	if !v.rulesCfg.QualityOfLife.AvoidConsecutive {
		return nil
	}
	exclusive := lo.Filter(sorted, func(a *model.Attribution, _ int) bool {
		return a.Kind.IsDayExclusive()
	})
	if len(exclusive) == 0 {
		return nil
	}

	maxRun := v.rulesCfg.Interval.MaxConsecutiveDuties
	var violations []model.RuleViolation

	run := []*model.Attribution{exclusive[0]}
	flush := func() {
		if len(run) > maxRun {
			ids := lo.Map(run, func(a *model.Attribution, _ int) uuid.UUID { return a.ID })
			violations = append(violations, model.NewRuleViolation(
				model.ViolationConsecutive, model.SeverityWarning,
				fmt.Sprintf("连续 %d 天承担整日岗位，超过建议上限 %d 天", len(run), maxRun),
				ids...))
		}
	}
	for i := 1; i < len(exclusive); i++ {
		if model.DaysBetween(exclusive[i-1].Date(), exclusive[i].Date()) == 1 {
			run = append(run, exclusive[i])
			continue
		}
		flush()
		run = []*model.Attribution{exclusive[i]}
	}
	flush()
	return violations
}

// checkSameDayConflicts 校验同一人同一天的整日排他冲突
func (v *Validator) checkSameDayConflicts(sorted []*model.Attribution) []model.RuleViolation {
	byDay := lo.GroupBy(sorted, func(a *model.Attribution) string { return a.DayKey() })

	var violations []model.RuleViolation
	for day, attrs := range byDay {
		exclusive := lo.Filter(attrs, func(a *model.Attribution, _ int) bool {
			return a.Kind.IsDayExclusive()
		})
		if len(exclusive) > 1 || (len(exclusive) == 1 && len(attrs) > 1) {
			ids := lo.Map(attrs, func(a *model.Attribution, _ int) uuid.UUID { return a.ID })
			violations = append(violations, model.NewRuleViolation(
				model.ViolationSameDayConflict, model.SeverityError,
				fmt.Sprintf("%s 存在整日排他岗位与其他分配的冲突", day),
				ids...))
		}
	}
	return violations
}

// checkFatigue 校验全员的当前疲劳水平
func (v *Validator) checkFatigue(now time.Time) []model.RuleViolation {
	if v.fatigueCfg == nil || !v.fatigueCfg.Enabled {
		return nil
	}
	var violations []model.RuleViolation
	for _, p := range v.rc.Personnel {
		counter := v.rc.Counter(p.ID)
		score := decayedFatigue(counter.Fatigue, now, v.fatigueCfg)
		switch {
		case score >= v.fatigueCfg.Thresholds.Critical:
			violations = append(violations, model.NewRuleViolation(
				model.ViolationFatigueCritical, model.SeverityCritical,
				fmt.Sprintf("%s 疲劳分 %.0f 达到临界阈值 %.0f", p.Name, score, v.fatigueCfg.Thresholds.Critical)))
		case score >= v.fatigueCfg.Thresholds.Alert:
			violations = append(violations, model.NewRuleViolation(
				model.ViolationFatigueAlert, model.SeverityWarning,
				fmt.Sprintf("%s 疲劳分 %.0f 达到警戒阈值 %.0f", p.Name, score, v.fatigueCfg.Thresholds.Alert)))
		}
	}
	return violations
}

// checkRuleEngine 对每个已确认分配执行规则引擎的校验阶段
// 规则引擎错误原样上抛
func (v *Validator) checkRuleEngine(ctx context.Context, committed []*model.Attribution) ([]model.RuleViolation, error) {
	var violations []model.RuleViolation
	for _, a := range committed {
		ec := v.rc.EvalContext(a.Date(), a.Kind)
		ec.Person = v.rc.Person(a.PersonID)
		ec.Tentative = a
		results, err := v.evaluator.Evaluate(ctx, ec, rules.PhaseValidation)
		if err != nil {
			return nil, err
		}
		for _, res := range results {
			if res.Passed {
				continue
			}
			for _, action := range res.ValidateActions() {
				violations = append(violations, model.NewRuleViolation(
					action.ViolationKind, action.Severity, action.Message, a.ID))
			}
		}
	}
	return violations, nil
}

// computeMetrics 计算公平性与疲劳指标
// 满意度暂不计算，使用显式哨兵值
func (v *Validator) computeMetrics(committed []*model.Attribution, now time.Time) model.PlanningMetrics {
	return model.PlanningMetrics{
		EquityScore:          v.equityScore(committed),
		FatigueScore:         v.meanFatigue(now),
		SatisfactionScore:    model.SatisfactionNotComputed,
		SatisfactionComputed: false,
	}
}

// equityScore 值班分布的公平性得分，1 为完全均衡
func (v *Validator) equityScore(committed []*model.Attribution) float64 {
	duties := lo.Filter(committed, func(a *model.Attribution, _ int) bool {
		return a.Kind == model.KindDuty
	})
	if len(duties) == 0 || len(v.rc.Personnel) == 0 {
		return 1.0
	}

	counts := lo.CountValuesBy(duties, func(a *model.Attribution) uuid.UUID {
		return a.PersonID
	})
	mean := float64(len(duties)) / float64(len(v.rc.Personnel))

	deviation := lo.SumBy(v.rc.Personnel, func(p *model.Person) float64 {
		return math.Abs(float64(counts[p.ID]) - mean)
	})

	score := 1 - deviation/float64(len(duties))
	return math.Max(0, math.Min(score, 1))
}

// meanFatigue 全员当前疲劳分的平均值
func (v *Validator) meanFatigue(now time.Time) float64 {
	if len(v.rc.Personnel) == 0 {
		return 0
	}
	total := lo.SumBy(v.rc.Personnel, func(p *model.Person) float64 {
		return decayedFatigue(v.rc.Counter(p.ID).Fatigue, now, v.fatigueCfg)
	})
	return total / float64(len(v.rc.Personnel))
}
