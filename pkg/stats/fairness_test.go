package stats

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vperreard/mathildanesth/pkg/calendar"
	"github.com/vperreard/mathildanesth/pkg/model"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func person(name string) *model.Person {
	return &model.Person{ID: uuid.New(), Name: name, WorkRatio: 1.0, Active: true}
}

func duty(p *model.Person, day time.Time) *model.Attribution {
	return model.NewAttribution(p.ID, model.KindDuty, day, day.AddDate(0, 0, 1))
}

func defaultEquity() model.EquityRules {
	return model.DefaultRulesConfiguration().Equity
}

func TestFairnessAnalyzer_Analyze(t *testing.T) {
	a := person("张三")
	b := person("李四")
	analyzer := NewFairnessAnalyzer(defaultEquity(), calendar.NoHolidays{})

	attributions := []*model.Attribution{
		duty(a, date(2026, time.January, 5)),
		duty(a, date(2026, time.January, 12)),
		duty(b, date(2026, time.January, 19)),
	}

	report := analyzer.Analyze(attributions, []*model.Person{a, b})

	if report == nil {
		t.Fatal("Report should not be nil")
	}
	if report.DutyGini < 0 || report.DutyGini > 1 {
		t.Errorf("Gini coefficient should be between 0 and 1, got %f", report.DutyGini)
	}
	if len(report.PersonStats) != 2 {
		t.Errorf("Expected 2 person stats, got %d", len(report.PersonStats))
	}
	if report.AvgDutiesPerPerson != 1.5 {
		t.Errorf("Expected average 1.5 duties, got %f", report.AvgDutiesPerPerson)
	}
	if report.MaxDuties != 2 || report.MinDuties != 1 {
		t.Errorf("Expected max 2 / min 1, got %d / %d", report.MaxDuties, report.MinDuties)
	}
}

func TestFairnessAnalyzer_EmptyInput(t *testing.T) {
	analyzer := NewFairnessAnalyzer(defaultEquity(), nil)

	report := analyzer.Analyze(nil, nil)

	if report == nil {
		t.Fatal("Should return empty report for nil input")
	}
	if report.OverallScore != 100 {
		t.Errorf("Empty planning should score 100, got %f", report.OverallScore)
	}
}

func TestFairnessAnalyzer_PerfectFairness(t *testing.T) {
	a := person("张三")
	b := person("李四")
	analyzer := NewFairnessAnalyzer(defaultEquity(), calendar.NoHolidays{})

	// 完全相同的值班分配
	attributions := []*model.Attribution{
		duty(a, date(2026, time.January, 5)),
		duty(b, date(2026, time.January, 6)),
	}

	report := analyzer.Analyze(attributions, []*model.Person{a, b})

	if report.DutyGini > 0.01 {
		t.Errorf("Perfect fairness should have Gini near 0, got %f", report.DutyGini)
	}
}

func TestFairnessAnalyzer_WeekendWeighting(t *testing.T) {
	a := person("张三")
	b := person("李四")
	analyzer := NewFairnessAnalyzer(defaultEquity(), calendar.NoHolidays{})

	// 各一次值班，但一人在周六（2026-01-10）
	attributions := []*model.Attribution{
		duty(a, date(2026, time.January, 10)),
		duty(b, date(2026, time.January, 5)),
	}

	report := analyzer.Analyze(attributions, []*model.Person{a, b})

	// 未加权基尼为 0，加权后应体现周末负载差异
	if report.DutyGini > 0.01 {
		t.Errorf("Raw duty Gini should be near 0, got %f", report.DutyGini)
	}
	if report.WeightedDutyGini <= report.DutyGini {
		t.Errorf("Weekend weighting should raise the weighted Gini, got %f", report.WeightedDutyGini)
	}

	// 周末值班人员的加权负载应为 1.5
	for _, stat := range report.PersonStats {
		if stat.PersonID == a.ID && stat.WeightedLoad != 1.5 {
			t.Errorf("Expected weighted load 1.5, got %f", stat.WeightedLoad)
		}
	}
}

func TestFairnessAnalyzer_HolidayWeighting(t *testing.T) {
	a := person("张三")
	oracle := calendar.NewStaticHolidays(date(2026, time.January, 1))
	analyzer := NewFairnessAnalyzer(defaultEquity(), oracle)

	attributions := []*model.Attribution{duty(a, date(2026, time.January, 1))}
	report := analyzer.Analyze(attributions, []*model.Person{a})

	if report.PersonStats[0].HolidayDuties != 1 {
		t.Errorf("Expected 1 holiday duty, got %d", report.PersonStats[0].HolidayDuties)
	}
	if report.PersonStats[0].WeightedLoad != 2.0 {
		t.Errorf("Holiday duty should weigh 2.0, got %f", report.PersonStats[0].WeightedLoad)
	}
}

func TestFairnessAnalyzer_KindDistribution(t *testing.T) {
	a := person("张三")
	analyzer := NewFairnessAnalyzer(defaultEquity(), calendar.NoHolidays{})

	attributions := []*model.Attribution{
		duty(a, date(2026, time.January, 5)),
		model.NewAttribution(a.ID, model.KindReserve, date(2026, time.January, 6), date(2026, time.January, 7)),
	}

	report := analyzer.Analyze(attributions, []*model.Person{a})

	if report.KindDistribution[model.KindDuty] != 50 {
		t.Errorf("Expected 50%% duties, got %f", report.KindDistribution[model.KindDuty])
	}
}

func TestFairnessAnalyzer_OverallScoreBounds(t *testing.T) {
	a := person("张三")
	analyzer := NewFairnessAnalyzer(defaultEquity(), calendar.NoHolidays{})

	attributions := []*model.Attribution{duty(a, date(2026, time.January, 5))}
	report := analyzer.Analyze(attributions, []*model.Person{a})

	if report.OverallScore < 0 || report.OverallScore > 100 {
		t.Errorf("Score should be 0-100, got %f", report.OverallScore)
	}
}
