// Package scenario 提供场景测试
package scenario

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vperreard/mathildanesth/pkg/calendar"
	"github.com/vperreard/mathildanesth/pkg/model"
	"github.com/vperreard/mathildanesth/pkg/planner"
	"github.com/vperreard/mathildanesth/pkg/rules"
	"github.com/vperreard/mathildanesth/pkg/stats"
)

func makeTeam(n int) []*model.Person {
	team := make([]*model.Person, n)
	for i := 0; i < n; i++ {
		team[i] = &model.Person{
			ID:              uuid.New(),
			Name:            fmt.Sprintf("麻醉医生%d", i+1),
			WorkRatio:       1.0,
			Specialty:       "anesthesia",
			ExperienceYears: 3 + i%10,
			Active:          true,
		}
	}
	return team
}

func generate(t *testing.T, params *model.GenerationParameters, team []*model.Person, oracle calendar.HolidayOracle) *planner.Result {
	t.Helper()

	gen := planner.NewGenerator(params, nil, nil)
	gen.SetEvaluator(rules.NewStaticEvaluator(rules.DefaultRuleSet()))
	if oracle != nil {
		gen.SetHolidayOracle(oracle)
	}
	if err := gen.Initialize(team, nil); err != nil {
		t.Fatalf("初始化失败: %v", err)
	}

	result, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("生成失败: %v", err)
	}
	return result
}

// TestFullMonthDutyRoster 测试整月值班排班
func TestFullMonthDutyRoster(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	params := model.DefaultGenerationParameters(start, end)
	params.Seed = 99

	team := makeTeam(10)
	result := generate(t, params, team, nil)

	t.Logf("生成 %d 条排班, 填充率 %.1f%%, 耗时 %s",
		result.Statistics.TotalAttributions, result.Statistics.FillRate, result.Duration)

	if !result.Validation.Valid {
		t.Errorf("整月排班不应有违规: %+v", result.Validation.Violations)
	}

	cfg := model.DefaultRulesConfiguration()

	// 同一人同一天不能有两个整日排他活动
	byPersonDay := make(map[string]int)
	for _, a := range result.Attributions {
		if a.Kind.IsDayExclusive() {
			key := a.PersonID.String() + "/" + a.DayKey()
			byPersonDay[key]++
			if byPersonDay[key] > 1 {
				t.Errorf("同日排他冲突: %s", key)
			}
		}
	}

	// 相邻值班间隔与月度上限
	dutyDates := make(map[uuid.UUID][]time.Time)
	reserves := make(map[uuid.UUID]int)
	for _, a := range result.Attributions {
		switch a.Kind {
		case model.KindDuty:
			dutyDates[a.PersonID] = append(dutyDates[a.PersonID], a.Date())
		case model.KindReserve:
			reserves[a.PersonID]++
		}
	}

	for personID, dates := range dutyDates {
		if len(dates) > cfg.Interval.MaxDutiesPerMonth {
			t.Errorf("%s 当月值班 %d 次, 超过上限 %d", personID, len(dates), cfg.Interval.MaxDutiesPerMonth)
		}
		for i := 1; i < len(dates); i++ {
			gap := int(dates[i].Sub(dates[i-1]).Hours() / 24)
			if gap < 0 {
				gap = -gap
			}
			if gap < cfg.Interval.MinDaysBetweenDuties {
				t.Errorf("%s 值班间隔 %d 天, 低于下限 %d", personID, gap, cfg.Interval.MinDaysBetweenDuties)
			}
		}
	}

	for personID, count := range reserves {
		if count > cfg.Interval.MaxReservesPerMonth {
			t.Errorf("%s 当月备班 %d 次, 超过上限 %d", personID, count, cfg.Interval.MaxReservesPerMonth)
		}
	}
}

// TestHolidayCoverage 测试节假日覆盖需求
func TestHolidayCoverage(t *testing.T) {
	start := time.Date(2026, 4, 27, 0, 0, 0, 0, time.UTC) // 周一
	end := time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC)
	holiday := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) // 周五，劳动节

	oracle := calendar.NewStaticHolidays(holiday)

	params := model.DefaultGenerationParameters(start, end)
	params.Seed = 42

	team := makeTeam(12)
	result := generate(t, params, team, oracle)

	cfg := model.DefaultRulesConfiguration()
	analyzer := stats.NewCoverageAnalyzer(cfg, oracle)
	report := analyzer.Analyze(result.Attributions, start, end,
		[]model.ActivityKind{model.KindDuty, model.KindReserve})

	t.Logf("覆盖率 %.1f%% (%d/%d)", report.OverallCoverage, report.FilledSlots, report.TotalSlots)

	// 节假日按周末标准配置值班岗位
	holidayCov, ok := report.DailyCoverage[model.DayKey(holiday)]
	if !ok {
		t.Fatal("节假日应出现在覆盖报告中")
	}
	expected := cfg.Coverage.WeekendDutySlots + cfg.Coverage.ReserveSlots
	if holidayCov.TotalSlots != expected {
		t.Errorf("节假日岗位需求应为 %d, 实际 %d", expected, holidayCov.TotalSlots)
	}
}

// TestUnderstaffedMonth 测试人手不足时留缺口而非违规
func TestUnderstaffedMonth(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	params := model.DefaultGenerationParameters(start, end)
	params.ActiveKinds = []model.ActivityKind{model.KindDuty}
	params.Seed = 7

	team := makeTeam(3)
	result := generate(t, params, team, nil)

	t.Logf("填充 %d/%d, 缺口 %d",
		result.Statistics.FilledSlots, result.Statistics.RequiredSlots, result.Statistics.UnfilledSlots)

	// 3人每月最多3次值班，覆盖不了整月需求
	if result.Statistics.UnfilledSlots == 0 {
		t.Error("人手不足时应留有缺口")
	}
	if result.Statistics.FillRate >= 100 {
		t.Errorf("填充率不应达到100%%, 实际 %.1f%%", result.Statistics.FillRate)
	}

	// 宁缺勿滥：已填充的排班仍须合规
	if !result.Validation.Valid {
		t.Errorf("缺口不应以违规换取: %+v", result.Validation.Violations)
	}

	cfg := model.DefaultRulesConfiguration()
	duties := make(map[uuid.UUID]int)
	for _, a := range result.Attributions {
		duties[a.PersonID]++
	}
	for personID, count := range duties {
		if count > cfg.Interval.MaxDutiesPerMonth {
			t.Errorf("%s 值班 %d 次, 超过上限", personID, count)
		}
	}
}

// TestConsultationWeekLimit 测试每周门诊上限
func TestConsultationWeekLimit(t *testing.T) {
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) // 周一
	end := time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)   // 周五

	params := model.DefaultGenerationParameters(start, end)
	params.ActiveKinds = []model.ActivityKind{model.KindMorningConsultation, model.KindAfternoonConsultation}
	params.Seed = 13

	team := makeTeam(12)
	result := generate(t, params, team, nil)

	cfg := model.DefaultRulesConfiguration()
	consultations := make(map[uuid.UUID]int)
	for _, a := range result.Attributions {
		if !a.Kind.IsConsultation() {
			t.Errorf("不应出现非门诊排班: %s", a.Kind)
		}
		consultations[a.PersonID]++
	}

	for personID, count := range consultations {
		if count > cfg.Consultations.MaxPerWeek {
			t.Errorf("%s 本周门诊 %d 次, 超过上限 %d", personID, count, cfg.Consultations.MaxPerWeek)
		}
	}
}

// TestEquityAcrossMonths 测试跨月公平性趋势
func TestEquityAcrossMonths(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)

	params := model.DefaultGenerationParameters(start, end)
	params.ActiveKinds = []model.ActivityKind{model.KindDuty}
	params.Seed = 2026

	team := makeTeam(10)
	result := generate(t, params, team, nil)

	cfg := model.DefaultRulesConfiguration()
	analyzer := stats.NewFairnessAnalyzer(cfg.Equity, calendar.NoHolidays{})
	report := analyzer.Analyze(result.Attributions, team)

	t.Logf("值班基尼系数 %.3f, 人均 %.1f 次 (最多%d/最少%d)",
		report.DutyGini, report.AvgDutiesPerPerson, report.MaxDuties, report.MinDuties)

	if report.DutyGini > 0.35 {
		t.Errorf("两个月周期内值班分布应大体均衡, 基尼系数 %.3f", report.DutyGini)
	}
	if report.MaxDuties-report.MinDuties > 3 {
		t.Errorf("值班次数极差过大: %d - %d", report.MaxDuties, report.MinDuties)
	}
}
