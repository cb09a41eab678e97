package planner

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/vperreard/mathildanesth/pkg/calendar"
	apperrors "github.com/vperreard/mathildanesth/pkg/errors"
	"github.com/vperreard/mathildanesth/pkg/logger"
	"github.com/vperreard/mathildanesth/pkg/model"
	"github.com/vperreard/mathildanesth/pkg/rules"
)

// runState 生成器运行状态
type runState int

const (
	stateIdle runState = iota
	stateInitialized
	stateRunning
	stateOptimizing
	stateValidated
	stateDone
)

// Result 一次生成运行的产出
type Result struct {
	Attributions []*model.Attribution    `json:"attributions"`
	Validation   *model.ValidationResult `json:"validation"`
	Statistics   *Statistics             `json:"statistics"`
	Duration     time.Duration           `json:"duration"`
}

// Statistics 生成统计
type Statistics struct {
	TotalAttributions int                        `json:"total_attributions"`
	RequiredSlots     int                        `json:"required_slots"`
	FilledSlots       int                        `json:"filled_slots"`
	UnfilledSlots     int                        `json:"unfilled_slots"`
	FillRate          float64                    `json:"fill_rate"`
	ByKind            map[model.ActivityKind]int `json:"by_kind"`
	Days              int                        `json:"days"`
	PersonnelCount    int                        `json:"personnel_count"`
}

// Generator 排班生成器
// 用法：NewGenerator → Initialize → Generate，单个实例不可并发使用
type Generator struct {
	params     *model.GenerationParameters
	rulesCfg   *model.RulesConfiguration
	fatigueCfg *model.FatigueConfig

	evaluator rules.Evaluator
	holidays  calendar.HolidayOracle
	logger    *logger.PlannerLogger

	rc    *RunContext
	state runState
	rng   *rand.Rand
	stats *Statistics
}

// NewGenerator 创建排班生成器，nil 配置使用默认值
func NewGenerator(params *model.GenerationParameters, rulesCfg *model.RulesConfiguration, fatigueCfg *model.FatigueConfig) *Generator {
	if rulesCfg == nil {
		rulesCfg = model.DefaultRulesConfiguration()
	}
	if fatigueCfg == nil {
		fatigueCfg = model.DefaultFatigueConfig()
	}
	seed := params.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		params:     params,
		rulesCfg:   rulesCfg,
		fatigueCfg: fatigueCfg,
		evaluator:  rules.NopEvaluator{},
		holidays:   calendar.NoHolidays{},
		logger:     logger.NewPlannerLogger(),
		state:      stateIdle,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// SetEvaluator 注入规则引擎
func (g *Generator) SetEvaluator(ev rules.Evaluator) {
	if ev != nil {
		g.evaluator = ev
	}
}

// SetHolidayOracle 注入节假日判定
func (g *Generator) SetHolidayOracle(h calendar.HolidayOracle) {
	if h != nil {
		g.holidays = h
	}
}

// Initialize 载入人员与已有排班，校验参数
func (g *Generator) Initialize(personnel []*model.Person, existing []*model.Attribution) error {
	if g.params == nil {
		return apperrors.InvalidInput("params", "缺少生成参数")
	}
	if g.params.EndDate.Before(g.params.StartDate) {
		return apperrors.InvalidTimeRange(
			g.params.StartDate.Format(model.DateKey),
			g.params.EndDate.Format(model.DateKey))
	}
	if len(personnel) == 0 {
		return apperrors.InvalidInput("personnel", "没有可用人员")
	}
	if !g.params.OptimizationLevel.IsValid() {
		return apperrors.InvalidInput("optimization_level",
			fmt.Sprintf("未知的优化级别 %q", g.params.OptimizationLevel))
	}

	g.rc = NewRunContext(g.params, g.rulesCfg, g.fatigueCfg)
	g.rc.SetPersonnel(personnel)
	if g.params.KeepExisting {
		g.rc.SeedAttributions(existing, g.holidays)
	}
	g.state = stateInitialized
	return nil
}

// Generate 执行生成、优化与校验，返回完整结果
func (g *Generator) Generate(ctx context.Context) (*Result, error) {
	if g.state != stateInitialized {
		return nil, apperrors.ErrEngineNotInitialized
	}
	g.state = stateRunning
	startTime := time.Now()

	days := model.DaysBetween(g.params.StartDate, g.params.EndDate) + 1
	g.stats = &Statistics{
		ByKind:         make(map[model.ActivityKind]int),
		Days:           days,
		PersonnelCount: len(g.rc.Personnel),
	}
	g.logger.StartRun(len(g.rc.Personnel), days, activeKindNames(g.params))

	scorer := newScorer(g.rc, g.rng)

	for day := g.params.StartDate; !day.After(g.params.EndDate); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		class := calendar.Classify(day, g.holidays)
		for _, kind := range model.AllActivityKinds {
			if !g.params.KindActive(kind) {
				continue
			}
			if err := g.fillSlots(ctx, scorer, day, kind, class); err != nil {
				return nil, err
			}
		}
	}

	// 优化后处理（fast 级别跳过）
	committed := g.rc.Committed()
	g.state = stateOptimizing
	if g.params.OptimizationLevel != model.OptimizationFast {
		opt := NewOptimizer(g.rc, g.fatigueCfg)
		committed = opt.Run(committed, time.Now())
	}

	// 全量校验
	g.state = stateValidated
	validator := NewValidator(g.rc, g.rulesCfg, g.fatigueCfg, g.evaluator)
	validation, err := validator.Validate(ctx, committed, time.Now())
	if err != nil {
		return nil, err
	}

	g.state = stateDone
	g.stats.TotalAttributions = len(committed)
	if g.stats.RequiredSlots > 0 {
		g.stats.FillRate = float64(g.stats.FilledSlots) / float64(g.stats.RequiredSlots) * 100
	}

	duration := time.Since(startTime)
	g.logger.RunComplete(len(committed), duration, validation.Metrics.EquityScore)

	return &Result{
		Attributions: committed,
		Validation:   validation,
		Statistics:   g.stats,
		Duration:     duration,
	}, nil
}

// fillSlots 填充某天某活动类型的全部岗位
func (g *Generator) fillSlots(ctx context.Context, scorer *scorer, day time.Time, kind model.ActivityKind, class calendar.DayClass) error {
	required := slotsFor(kind, class, g.rulesCfg)
	if required == 0 {
		return nil
	}
	g.stats.RequiredSlots += required

	filled := 0
	excluded := make(map[uuid.UUID]bool)

	// 先执行规则引擎的生成阶段指派
	results, err := g.evaluator.Evaluate(ctx, g.rc.EvalContext(day, kind), rules.PhaseGeneration)
	if err != nil {
		return err
	}
	for _, res := range results {
		if !res.Passed {
			continue
		}
		for _, action := range res.AssignActions() {
			if filled >= required {
				break
			}
			if action.Kind != "" && action.Kind != kind {
				continue
			}
			p := g.rc.Person(action.PersonID)
			if p == nil || excluded[p.ID] {
				continue
			}
			ok, err := g.tryCommit(ctx, p, day, kind, class)
			if err != nil {
				return err
			}
			if ok {
				filled++
			} else {
				excluded[p.ID] = true
			}
		}
	}

	// 贪心回填剩余岗位
	for filled < required {
		candidates := eligibleCandidates(g.rc, day, kind, excluded)
		if len(candidates) == 0 {
			missing := required - filled
			g.logger.SlotUnfilled(model.DayKey(day), string(kind), missing)
			g.stats.UnfilledSlots += missing
			break
		}
		best := scorer.pickBest(candidates, day, kind)
		ok, err := g.tryCommit(ctx, best, day, kind, class)
		if err != nil {
			return err
		}
		if ok {
			filled++
		} else {
			excluded[best.ID] = true
		}
	}

	g.stats.FilledSlots += filled
	return nil
}

// tryCommit 构建试探性分配并经规则引擎校验后提交
// 返回是否提交成功；规则引擎错误原样上抛
// 硬约束在此兜底：规则引擎生成阶段的指派同样不得绕过资格过滤
func (g *Generator) tryCommit(ctx context.Context, p *model.Person, day time.Time, kind model.ActivityKind, class calendar.DayClass) (bool, error) {
	if ok, reason := isEligible(g.rc, p, day, kind); !ok {
		g.logger.TentativeDiscarded(model.DayKey(day), string(kind), p.Name, reason)
		return false, nil
	}

	tentative, err := g.buildAttribution(p, day, kind)
	if err != nil {
		return false, err
	}

	ec := g.rc.EvalContext(day, kind)
	ec.Person = p
	ec.Tentative = tentative
	results, err := g.evaluator.Evaluate(ctx, ec, rules.PhaseValidation)
	if err != nil {
		return false, err
	}
	for _, res := range results {
		if res.Passed {
			continue
		}
		for _, action := range res.ValidateActions() {
			if action.Severity.AtLeast(model.SeverityError) {
				g.logger.TentativeDiscarded(model.DayKey(day), string(kind), p.Name, action.Message)
				return false, nil
			}
			g.logger.RuleViolation(string(action.ViolationKind), action.Message)
		}
	}

	g.rc.Commit(tentative, class)
	g.stats.ByKind[kind]++
	return true, nil
}

// buildAttribution 按活动类型的时间窗口创建分配
func (g *Generator) buildAttribution(p *model.Person, day time.Time, kind model.ActivityKind) (*model.Attribution, error) {
	start, end, err := g.rulesCfg.WindowFor(kind).OnDate(day)
	if err != nil {
		return nil, apperrors.InvalidInput("shift_windows", err.Error())
	}
	return model.NewAttribution(p.ID, kind, start, end), nil
}

// slotsFor 返回某天某活动类型需要的岗位数
func slotsFor(kind model.ActivityKind, class calendar.DayClass, cfg *model.RulesConfiguration) int {
	switch kind {
	case model.KindDuty:
		if class.WeekendOrHoliday() {
			return cfg.Coverage.WeekendDutySlots
		}
		return cfg.Coverage.WeekdayDutySlots
	case model.KindReserve:
		return cfg.Coverage.ReserveSlots
	case model.KindMorningConsultation:
		return cfg.Coverage.MorningConsultationSlots
	case model.KindAfternoonConsultation:
		return cfg.Coverage.AfternoonConsultationSlots
	case model.KindSupervision:
		if class.WeekendOrHoliday() {
			return cfg.Coverage.WeekendSupervisionSlots
		}
		return cfg.Coverage.WeekdaySupervisionSlots
	default:
		return 0
	}
}

func activeKindNames(params *model.GenerationParameters) []string {
	names := make([]string, 0, len(model.AllActivityKinds))
	for _, kind := range model.AllActivityKinds {
		if params.KindActive(kind) {
			names = append(names, string(kind))
		}
	}
	return names
}
