package stats

import (
	"time"

	"github.com/vperreard/mathildanesth/pkg/calendar"
	"github.com/vperreard/mathildanesth/pkg/model"
)

// CoverageReport 覆盖率报告
type CoverageReport struct {
	TotalSlots      int     `json:"total_slots"`      // 需要的岗位总数
	FilledSlots     int     `json:"filled_slots"`     // 已填充岗位数
	OverallCoverage float64 `json:"overall_coverage"` // 整体覆盖率 (%)

	DailyCoverage map[string]DayCoverage         `json:"daily_coverage"` // 每日覆盖情况
	KindCoverage  map[model.ActivityKind]float64 `json:"kind_coverage"`  // 按活动类型的覆盖率
	UnfilledSlots []UnfilledSlot                 `json:"unfilled_slots"` // 缺口清单
}

// DayCoverage 每日覆盖情况
type DayCoverage struct {
	Date         string  `json:"date"`
	TotalSlots   int     `json:"total_slots"`
	Filled       int     `json:"filled"`
	CoverageRate float64 `json:"coverage_rate"`
}

// UnfilledSlot 未填充岗位
type UnfilledSlot struct {
	Date    string             `json:"date"`
	Kind    model.ActivityKind `json:"kind"`
	Missing int                `json:"missing"`
}

// CoverageAnalyzer 覆盖率分析器
// 根据规则配置推导每天各活动类型需要的岗位数
type CoverageAnalyzer struct {
	rules  *model.RulesConfiguration
	oracle calendar.HolidayOracle
}

// NewCoverageAnalyzer 创建覆盖率分析器
func NewCoverageAnalyzer(rules *model.RulesConfiguration, oracle calendar.HolidayOracle) *CoverageAnalyzer {
	if rules == nil {
		rules = model.DefaultRulesConfiguration()
	}
	if oracle == nil {
		oracle = calendar.NoHolidays{}
	}
	return &CoverageAnalyzer{rules: rules, oracle: oracle}
}

// Analyze 统计日期区间内各活动类型的覆盖情况
func (c *CoverageAnalyzer) Analyze(attributions []*model.Attribution, start, end time.Time, kinds []model.ActivityKind) *CoverageReport {
	report := &CoverageReport{
		DailyCoverage: make(map[string]DayCoverage),
		KindCoverage:  make(map[model.ActivityKind]float64),
		UnfilledSlots: []UnfilledSlot{},
	}
	if end.Before(start) || len(kinds) == 0 {
		report.OverallCoverage = 100
		return report
	}

	filled := make(map[string]map[model.ActivityKind]int)
	for _, a := range attributions {
		key := a.DayKey()
		if filled[key] == nil {
			filled[key] = make(map[model.ActivityKind]int)
		}
		filled[key][a.Kind]++
	}

	kindRequired := make(map[model.ActivityKind]int)
	kindFilled := make(map[model.ActivityKind]int)

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		key := model.DayKey(day)
		class := calendar.Classify(day, c.oracle)
		dayCov := DayCoverage{Date: key}

		for _, kind := range kinds {
			required := c.requiredSlots(kind, class)
			if required == 0 {
				continue
			}
			got := filled[key][kind]
			if got > required {
				got = required
			}

			dayCov.TotalSlots += required
			dayCov.Filled += got
			kindRequired[kind] += required
			kindFilled[kind] += got

			if got < required {
				report.UnfilledSlots = append(report.UnfilledSlots, UnfilledSlot{
					Date:    key,
					Kind:    kind,
					Missing: required - got,
				})
			}
		}

		if dayCov.TotalSlots > 0 {
			dayCov.CoverageRate = float64(dayCov.Filled) / float64(dayCov.TotalSlots) * 100
		}
		report.DailyCoverage[key] = dayCov
		report.TotalSlots += dayCov.TotalSlots
		report.FilledSlots += dayCov.Filled
	}

	for kind, required := range kindRequired {
		if required > 0 {
			report.KindCoverage[kind] = float64(kindFilled[kind]) / float64(required) * 100
		}
	}
	if report.TotalSlots > 0 {
		report.OverallCoverage = float64(report.FilledSlots) / float64(report.TotalSlots) * 100
	} else {
		report.OverallCoverage = 100
	}
	return report
}

// requiredSlots 某天某活动类型需要的岗位数
func (c *CoverageAnalyzer) requiredSlots(kind model.ActivityKind, class calendar.DayClass) int {
	switch kind {
	case model.KindDuty:
		if class.WeekendOrHoliday() {
			return c.rules.Coverage.WeekendDutySlots
		}
		return c.rules.Coverage.WeekdayDutySlots
	case model.KindReserve:
		return c.rules.Coverage.ReserveSlots
	case model.KindMorningConsultation:
		return c.rules.Coverage.MorningConsultationSlots
	case model.KindAfternoonConsultation:
		return c.rules.Coverage.AfternoonConsultationSlots
	case model.KindSupervision:
		if class.WeekendOrHoliday() {
			return c.rules.Coverage.WeekendSupervisionSlots
		}
		return c.rules.Coverage.WeekdaySupervisionSlots
	default:
		return 0
	}
}
