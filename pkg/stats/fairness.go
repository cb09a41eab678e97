// Package stats 提供排班结果的统计分析功能
package stats

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/vperreard/mathildanesth/pkg/calendar"
	"github.com/vperreard/mathildanesth/pkg/model"
)

// FairnessReport 公平性报告
type FairnessReport struct {
	// 值班分布公平性
	DutyGini         float64 `json:"duty_gini"`          // 值班基尼系数 (0=完全公平, 1=完全不公平)
	WeightedDutyGini float64 `json:"weighted_duty_gini"` // 加权值班基尼系数（周末/节假日加权）
	WeekendDutyGini  float64 `json:"weekend_duty_gini"`  // 周末值班基尼系数

	AvgDutiesPerPerson float64 `json:"avg_duties_per_person"`
	MaxDuties          int     `json:"max_duties"`
	MinDuties          int     `json:"min_duties"`

	// 按活动类型的分布
	KindDistribution map[model.ActivityKind]float64 `json:"kind_distribution"` // 各活动类型占比 (%)

	// 人员级别统计
	PersonStats []PersonStat `json:"person_stats"`

	// 综合评分 (0-100)
	OverallScore float64 `json:"overall_score"`
}

// PersonStat 人员统计
type PersonStat struct {
	PersonID      uuid.UUID `json:"person_id"`
	PersonName    string    `json:"person_name"`
	Duties        int       `json:"duties"`
	WeekendDuties int       `json:"weekend_duties"`
	HolidayDuties int       `json:"holiday_duties"`
	Reserves      int       `json:"reserves"`
	Consultations int       `json:"consultations"`
	WeightedLoad  float64   `json:"weighted_load"` // 加权后的值班负载
	Deviation     float64   `json:"deviation"`     // 与人均值班数的偏差百分比
}

// FairnessAnalyzer 公平性分析器
// 周末与节假日的权重来自公平性规则配置
type FairnessAnalyzer struct {
	equity model.EquityRules
	oracle calendar.HolidayOracle
}

// NewFairnessAnalyzer 创建公平性分析器
func NewFairnessAnalyzer(equity model.EquityRules, oracle calendar.HolidayOracle) *FairnessAnalyzer {
	if oracle == nil {
		oracle = calendar.NoHolidays{}
	}
	return &FairnessAnalyzer{equity: equity, oracle: oracle}
}

// Analyze 分析排班公平性
func (f *FairnessAnalyzer) Analyze(attributions []*model.Attribution, personnel []*model.Person) *FairnessReport {
	if len(attributions) == 0 || len(personnel) == 0 {
		return &FairnessReport{
			KindDistribution: make(map[model.ActivityKind]float64),
			PersonStats:      []PersonStat{},
			OverallScore:     100,
		}
	}

	stats := f.collectPersonStats(attributions, personnel)

	duties := make([]float64, len(stats))
	weighted := make([]float64, len(stats))
	weekends := make([]float64, len(stats))
	for i, stat := range stats {
		duties[i] = float64(stat.Duties)
		weighted[i] = stat.WeightedLoad
		weekends[i] = float64(stat.WeekendDuties)
	}

	avgDuties := mean(duties)
	maxDuties, minDuties := intRange(stats)

	for i := range stats {
		if avgDuties > 0 {
			stats[i].Deviation = (float64(stats[i].Duties) - avgDuties) / avgDuties * 100
		}
	}

	dutyGini := gini(duties)
	weightedGini := gini(weighted)
	weekendGini := gini(weekends)

	return &FairnessReport{
		DutyGini:           dutyGini,
		WeightedDutyGini:   weightedGini,
		WeekendDutyGini:    weekendGini,
		AvgDutiesPerPerson: avgDuties,
		MaxDuties:          maxDuties,
		MinDuties:          minDuties,
		KindDistribution:   kindDistribution(attributions),
		PersonStats:        stats,
		OverallScore:       f.overallScore(dutyGini, weightedGini, weekendGini),
	}
}

// collectPersonStats 汇总每个人的分配统计
// 全员都出现在结果中，没有分配的人员计数为零
func (f *FairnessAnalyzer) collectPersonStats(attributions []*model.Attribution, personnel []*model.Person) []PersonStat {
	statMap := make(map[uuid.UUID]*PersonStat, len(personnel))
	for _, p := range personnel {
		statMap[p.ID] = &PersonStat{PersonID: p.ID, PersonName: p.Name}
	}

	for _, a := range attributions {
		stat, ok := statMap[a.PersonID]
		if !ok {
			continue
		}
		class := calendar.Classify(a.Date(), f.oracle)
		switch {
		case a.Kind == model.KindDuty:
			stat.Duties++
			weight := 1.0
			if class.Weekend {
				stat.WeekendDuties++
				weight = f.equity.WeekendDutyWeight
			}
			if class.Holiday {
				stat.HolidayDuties++
				weight = math.Max(weight, f.equity.HolidayDutyWeight)
			}
			stat.WeightedLoad += weight
		case a.Kind == model.KindReserve:
			stat.Reserves++
		case a.Kind.IsConsultation():
			stat.Consultations++
		}
	}

	result := make([]PersonStat, 0, len(statMap))
	for _, p := range personnel {
		result = append(result, *statMap[p.ID])
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].WeightedLoad > result[j].WeightedLoad
	})
	return result
}

// overallScore 综合公平性评分
func (f *FairnessAnalyzer) overallScore(dutyGini, weightedGini, weekendGini float64) float64 {
	const (
		dutyWeight     = 0.4
		weightedWeight = 0.35
		weekendWeight  = 0.25
	)
	score := dutyWeight*(1-dutyGini)*100 +
		weightedWeight*(1-weightedGini)*100 +
		weekendWeight*(1-weekendGini)*100
	return math.Max(0, math.Min(100, score))
}

// kindDistribution 各活动类型的占比
func kindDistribution(attributions []*model.Attribution) map[model.ActivityKind]float64 {
	counts := make(map[model.ActivityKind]int)
	for _, a := range attributions {
		counts[a.Kind]++
	}
	distribution := make(map[model.ActivityKind]float64, len(counts))
	total := float64(len(attributions))
	for kind, count := range counts {
		distribution[kind] = float64(count) / total * 100
	}
	return distribution
}

// mean 计算平均值
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// intRange 计算值班数的极值
func intRange(stats []PersonStat) (max, min int) {
	if len(stats) == 0 {
		return 0, 0
	}
	max, min = stats[0].Duties, stats[0].Duties
	for _, s := range stats[1:] {
		if s.Duties > max {
			max = s.Duties
		}
		if s.Duties < min {
			min = s.Duties
		}
	}
	return
}

// gini 计算基尼系数
func gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	g := 0.0
	for i, v := range sorted {
		g += (2*float64(i+1) - float64(n) - 1) * v
	}
	g = g / (float64(n) * sum)
	return math.Max(0, math.Min(1, g))
}
