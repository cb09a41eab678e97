package planner

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vperreard/mathildanesth/pkg/calendar"
	apperrors "github.com/vperreard/mathildanesth/pkg/errors"
	"github.com/vperreard/mathildanesth/pkg/model"
	"github.com/vperreard/mathildanesth/pkg/rules"
)

func testPerson(name string) *model.Person {
	return &model.Person{
		ID:              uuid.New(),
		Name:            name,
		WorkRatio:       1.0,
		Specialty:       "anesthesia",
		ExperienceYears: 5,
		Active:          true,
	}
}

func testDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func dutyOnlyParams(start, end time.Time) *model.GenerationParameters {
	params := model.DefaultGenerationParameters(start, end)
	params.ActiveKinds = []model.ActivityKind{model.KindDuty}
	params.Seed = 1
	return params
}

// 测试用规则：短间隔、宽松月上限，便于在短周期内滚动排班
func testRules() *model.RulesConfiguration {
	cfg := model.DefaultRulesConfiguration()
	cfg.Interval.MinDaysBetweenDuties = 2
	cfg.Interval.MaxDutiesPerMonth = 10
	return cfg
}

func disabledFatigue() *model.FatigueConfig {
	cfg := model.DefaultFatigueConfig()
	cfg.Enabled = false
	return cfg
}

func TestGenerator_WeekdayDutyRotation(t *testing.T) {
	personnel := []*model.Person{testPerson("张三"), testPerson("李四"), testPerson("王五")}

	// 2026-01-05 到 2026-01-09 是周一到周五
	params := dutyOnlyParams(testDate(2026, time.January, 5), testDate(2026, time.January, 9))
	gen := NewGenerator(params, testRules(), disabledFatigue())

	if err := gen.Initialize(personnel, nil); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	result, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(result.Attributions) != 5 {
		t.Fatalf("Expected 5 attributions, got %d", len(result.Attributions))
	}
	for _, a := range result.Attributions {
		if a.Kind != model.KindDuty {
			t.Errorf("Expected duty attribution, got %s", a.Kind)
		}
		if a.Status != model.StatusPending {
			t.Errorf("Expected pending status, got %s", a.Status)
		}
	}

	// 公平性：人均负载差不超过 1
	counts := make(map[uuid.UUID]int)
	for _, a := range result.Attributions {
		counts[a.PersonID]++
	}
	min, max := 5, 0
	for _, p := range personnel {
		n := counts[p.ID]
		if n < min {
			min = n
		}
		if n > max {
			max = n
		}
	}
	if max-min > 1 {
		t.Errorf("Duty counts should differ by at most 1, got min=%d max=%d", min, max)
	}

	if result.Statistics.UnfilledSlots != 0 {
		t.Errorf("Expected no unfilled slots, got %d", result.Statistics.UnfilledSlots)
	}
	if result.Statistics.FillRate != 100 {
		t.Errorf("Expected 100%% fill rate, got %.1f", result.Statistics.FillRate)
	}
	if !result.Validation.Valid {
		t.Errorf("Expected valid planning, violations: %+v", result.Validation.Violations)
	}
}

func TestGenerator_CriticalFatigueExcludesCandidate(t *testing.T) {
	p := testPerson("张三")

	// 上个月的三次值班把疲劳分推到 90，前瞻后超过临界阈值 80
	existing := []*model.Attribution{
		model.NewAttribution(p.ID, model.KindDuty, testDate(2025, time.December, 10), testDate(2025, time.December, 11)),
		model.NewAttribution(p.ID, model.KindDuty, testDate(2025, time.December, 17), testDate(2025, time.December, 18)),
		model.NewAttribution(p.ID, model.KindDuty, testDate(2025, time.December, 24), testDate(2025, time.December, 25)),
	}

	params := dutyOnlyParams(testDate(2026, time.January, 5), testDate(2026, time.January, 5))
	gen := NewGenerator(params, testRules(), model.DefaultFatigueConfig())

	if err := gen.Initialize([]*model.Person{p}, existing); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	result, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(result.Attributions) != 0 {
		t.Errorf("Fatigued person should not be assigned, got %d attributions", len(result.Attributions))
	}
	if result.Statistics.UnfilledSlots != 1 {
		t.Errorf("Expected 1 unfilled slot, got %d", result.Statistics.UnfilledSlots)
	}
}

func TestGenerator_WeekendShortage(t *testing.T) {
	available := testPerson("张三")
	gone := testPerson("李四")
	left := testDate(2025, time.June, 30)
	gone.LeftAt = &left

	// 2026-01-10 是周六，需要 2 个值班岗位
	params := dutyOnlyParams(testDate(2026, time.January, 10), testDate(2026, time.January, 10))
	gen := NewGenerator(params, testRules(), disabledFatigue())

	if err := gen.Initialize([]*model.Person{available, gone}, nil); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	result, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate should not fail on shortage: %v", err)
	}

	if len(result.Attributions) != 1 {
		t.Fatalf("Expected 1 attribution, got %d", len(result.Attributions))
	}
	if result.Attributions[0].PersonID != available.ID {
		t.Errorf("Attribution should go to the available person")
	}
	if result.Statistics.UnfilledSlots != 1 {
		t.Errorf("Expected 1 unfilled slot, got %d", result.Statistics.UnfilledSlots)
	}
}

func TestGenerator_NoSameDayDoubleBooking(t *testing.T) {
	p := testPerson("张三")

	params := dutyOnlyParams(testDate(2026, time.January, 5), testDate(2026, time.January, 5))
	params.ActiveKinds = []model.ActivityKind{model.KindDuty, model.KindReserve}
	gen := NewGenerator(params, testRules(), disabledFatigue())

	if err := gen.Initialize([]*model.Person{p}, nil); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	result, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// 值班占用当天后，同一人不能再承担备班
	if len(result.Attributions) != 1 {
		t.Fatalf("Expected 1 attribution, got %d", len(result.Attributions))
	}
	if result.Attributions[0].Kind != model.KindDuty {
		t.Errorf("Duty should be filled first, got %s", result.Attributions[0].Kind)
	}
	if result.Statistics.UnfilledSlots != 1 {
		t.Errorf("Reserve slot should stay unfilled, got %d unfilled", result.Statistics.UnfilledSlots)
	}
}

func TestGenerator_MonthlyDutyQuota(t *testing.T) {
	p := testPerson("张三")

	rules := testRules()
	rules.Interval.MaxDutiesPerMonth = 2

	// 10 个工作日内最多 2 次值班
	params := dutyOnlyParams(testDate(2026, time.January, 5), testDate(2026, time.January, 14))
	gen := NewGenerator(params, rules, disabledFatigue())

	if err := gen.Initialize([]*model.Person{p}, nil); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	result, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(result.Attributions) != 2 {
		t.Errorf("Monthly quota should cap duties at 2, got %d", len(result.Attributions))
	}
}

func TestGenerator_DutySpacing(t *testing.T) {
	p := testPerson("张三")

	rules := testRules()
	rules.Interval.MinDaysBetweenDuties = 3

	params := dutyOnlyParams(testDate(2026, time.January, 5), testDate(2026, time.January, 9))
	gen := NewGenerator(params, rules, disabledFatigue())

	if err := gen.Initialize([]*model.Person{p}, nil); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	result, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	for i := 1; i < len(result.Attributions); i++ {
		gap := model.DaysBetween(result.Attributions[i-1].Date(), result.Attributions[i].Date())
		if gap < 3 {
			t.Errorf("Duty spacing violated: gap of %d days", gap)
		}
	}
}

func TestGenerator_GenerateBeforeInitialize(t *testing.T) {
	params := dutyOnlyParams(testDate(2026, time.January, 5), testDate(2026, time.January, 9))
	gen := NewGenerator(params, nil, nil)

	_, err := gen.Generate(context.Background())
	if err == nil {
		t.Fatal("Generate before Initialize should fail")
	}
	if !apperrors.Is(err, apperrors.CodeEngineNotInitialized) {
		t.Errorf("Expected ENGINE_NOT_INITIALIZED, got %v", err)
	}
}

func TestGenerator_InvalidTimeRange(t *testing.T) {
	params := dutyOnlyParams(testDate(2026, time.January, 9), testDate(2026, time.January, 5))
	gen := NewGenerator(params, nil, nil)

	err := gen.Initialize([]*model.Person{testPerson("张三")}, nil)
	if err == nil {
		t.Fatal("Initialize with end before start should fail")
	}
	if !apperrors.Is(err, apperrors.CodeInvalidTimeRange) {
		t.Errorf("Expected INVALID_TIME_RANGE, got %v", err)
	}
}

func TestGenerator_EmptyPersonnel(t *testing.T) {
	params := dutyOnlyParams(testDate(2026, time.January, 5), testDate(2026, time.January, 9))
	gen := NewGenerator(params, nil, nil)

	if err := gen.Initialize(nil, nil); err == nil {
		t.Fatal("Initialize without personnel should fail")
	}
}

func TestGenerator_DeterministicWithSeed(t *testing.T) {
	personnel := []*model.Person{testPerson("张三"), testPerson("李四"), testPerson("王五")}

	run := func() []uuid.UUID {
		params := dutyOnlyParams(testDate(2026, time.January, 5), testDate(2026, time.January, 9))
		params.ApplyPreferences = true
		params.Seed = 42
		gen := NewGenerator(params, testRules(), disabledFatigue())
		if err := gen.Initialize(personnel, nil); err != nil {
			t.Fatalf("Initialize failed: %v", err)
		}
		result, err := gen.Generate(context.Background())
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		order := make([]uuid.UUID, 0, len(result.Attributions))
		for _, a := range result.Attributions {
			order = append(order, a.PersonID)
		}
		return order
	}

	// 相同种子下偏好扰动一致，两次运行产出相同的指派序列
	first := run()
	second := run()
	if len(first) != len(second) {
		t.Fatalf("Runs with same seed produced different sizes: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("Runs with same seed diverged at index %d", i)
		}
	}
}

func TestGenerator_ContextCancellation(t *testing.T) {
	personnel := []*model.Person{testPerson("张三")}
	params := dutyOnlyParams(testDate(2026, time.January, 5), testDate(2026, time.March, 31))
	gen := NewGenerator(params, testRules(), disabledFatigue())

	if err := gen.Initialize(personnel, nil); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := gen.Generate(ctx); err == nil {
		t.Fatal("Generate should return error when context is cancelled")
	}
}

func TestSlotsFor(t *testing.T) {
	cfg := model.DefaultRulesConfiguration()

	tests := []struct {
		kind     model.ActivityKind
		weekend  bool
		expected int
	}{
		{model.KindDuty, false, 1},
		{model.KindDuty, true, 2},
		{model.KindReserve, false, 1},
		{model.KindMorningConsultation, false, 2},
		{model.KindAfternoonConsultation, false, 2},
		{model.KindSupervision, false, 4},
		{model.KindSupervision, true, 2},
	}

	for _, tt := range tests {
		class := calendar.DayClass{Weekend: tt.weekend}
		if got := slotsFor(tt.kind, class, cfg); got != tt.expected {
			t.Errorf("slotsFor(%s, weekend=%v) = %d, expected %d", tt.kind, tt.weekend, got, tt.expected)
		}
	}
}

// favoringEvaluator 生成阶段总是把同一个人推荐给当前活动类型
type favoringEvaluator struct {
	personID uuid.UUID
}

func (e *favoringEvaluator) Evaluate(_ context.Context, ec *rules.EvalContext, phase rules.Phase) ([]rules.RuleResult, error) {
	if phase != rules.PhaseGeneration {
		return nil, nil
	}
	return []rules.RuleResult{{
		RuleID:   "favor-person",
		RuleName: "偏好指派",
		Passed:   true,
		Actions: []rules.Action{{
			Type:   rules.ActionAssign,
			Assign: &rules.AssignAction{PersonID: e.personID, Kind: ec.Kind},
		}},
	}}, nil
}

func TestGenerator_EngineProposalCannotDoubleBook(t *testing.T) {
	favored := testPerson("张三")
	personnel := []*model.Person{favored, testPerson("李四"), testPerson("王五")}

	params := dutyOnlyParams(testDate(2026, time.January, 5), testDate(2026, time.January, 5))
	params.ActiveKinds = []model.ActivityKind{model.KindDuty, model.KindReserve}
	gen := NewGenerator(params, testRules(), disabledFatigue())
	gen.SetEvaluator(&favoringEvaluator{personID: favored.ID})

	if err := gen.Initialize(personnel, nil); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	result, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// 引擎把同一人同时推荐给值班和备班：第二次指派必须被资格过滤拦下
	perPerson := make(map[uuid.UUID]int)
	for _, a := range result.Attributions {
		if a.Kind.IsDayExclusive() {
			perPerson[a.PersonID]++
		}
	}
	for id, n := range perPerson {
		if n > 1 {
			t.Errorf("Person %s holds %d day-exclusive attributions on the same day", id, n)
		}
	}
	if len(result.Attributions) != 2 {
		t.Fatalf("Expected duty and reserve both filled, got %d attributions", len(result.Attributions))
	}
	if perPerson[favored.ID] != 1 {
		t.Errorf("Favored person should hold exactly 1 attribution, got %d", perPerson[favored.ID])
	}
}

// flaggingEvaluator 校验阶段对所有候选分配报告同一严重级别的违规
type flaggingEvaluator struct {
	severity model.Severity
}

func (e *flaggingEvaluator) Evaluate(_ context.Context, _ *rules.EvalContext, phase rules.Phase) ([]rules.RuleResult, error) {
	if phase != rules.PhaseValidation {
		return nil, nil
	}
	return []rules.RuleResult{{
		RuleID:   "flag-all",
		RuleName: "全量标记",
		Passed:   false,
		Actions: []rules.Action{{
			Type: rules.ActionValidate,
			Validate: &rules.ValidateAction{
				Severity:      e.severity,
				Message:       "测试违规",
				ViolationKind: model.ViolationRuleEngine,
			},
		}},
	}}, nil
}

func TestGenerator_WarningSeverityStillCommits(t *testing.T) {
	params := dutyOnlyParams(testDate(2026, time.January, 5), testDate(2026, time.January, 5))
	gen := NewGenerator(params, testRules(), disabledFatigue())
	gen.SetEvaluator(&flaggingEvaluator{severity: model.SeverityWarning})

	if err := gen.Initialize([]*model.Person{testPerson("张三")}, nil); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	result, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// warning 级别的规则结论不阻断提交
	if len(result.Attributions) != 1 {
		t.Fatalf("Warning-level violations should not block commits, got %d attributions", len(result.Attributions))
	}
}

func TestGenerator_ErrorSeverityDiscardsTentative(t *testing.T) {
	params := dutyOnlyParams(testDate(2026, time.January, 5), testDate(2026, time.January, 5))
	gen := NewGenerator(params, testRules(), disabledFatigue())
	gen.SetEvaluator(&flaggingEvaluator{severity: model.SeverityError})

	if err := gen.Initialize([]*model.Person{testPerson("张三")}, nil); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	result, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(result.Attributions) != 0 {
		t.Fatalf("Error-level violations must discard the tentative, got %d attributions", len(result.Attributions))
	}
	if result.Statistics.UnfilledSlots == 0 {
		t.Error("Discarded slots should be counted as unfilled")
	}
}
