package planner

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vperreard/mathildanesth/pkg/model"
)

// kindPriority 优化排序的活动优先级，值越小越靠前
var kindPriority = map[model.ActivityKind]int{
	model.KindDuty:                  0,
	model.KindReserve:               1,
	model.KindMorningConsultation:   2,
	model.KindAfternoonConsultation: 2,
	model.KindSupervision:           3,
}

// Optimizer 生成结果的优化后处理
// 三段变换：优先级排序、负载重排、疲劳重算
type Optimizer struct {
	rc         *RunContext
	fatigueCfg *model.FatigueConfig
}

// NewOptimizer 创建优化器
func NewOptimizer(rc *RunContext, fatigueCfg *model.FatigueConfig) *Optimizer {
	return &Optimizer{rc: rc, fatigueCfg: fatigueCfg}
}

// Run 依次执行三段优化变换，返回重排后的分配列表
// 前两段只调整顺序，不改变任何指派；第三段重算疲劳分
func (o *Optimizer) Run(attributions []*model.Attribution, now time.Time) []*model.Attribution {
	result := make([]*model.Attribution, len(attributions))
	copy(result, attributions)

	o.sortByPriority(result)
	o.rebalanceOrder(result)
	o.recomputeFatigue(result, now)

	return result
}

// sortByPriority 按活动优先级稳定排序（值班 > 备班 > 门诊 > 监督）
func (o *Optimizer) sortByPriority(attributions []*model.Attribution) {
	sort.SliceStable(attributions, func(i, j int) bool {
		return kindPriority[attributions[i].Kind] < kindPriority[attributions[j].Kind]
	})
}

// rebalanceOrder 负载低于均值的人员的分配排到前面
// 均值按活动类型分别计算：某人门诊偏少但值班偏多时，其门诊分配仍应靠前
// 只改变处理顺序，供下游审批流程优先处理，不做重新指派
func (o *Optimizer) rebalanceOrder(attributions []*model.Attribution) {
	if len(attributions) == 0 || len(o.rc.Personnel) == 0 {
		return
	}
	counts := make(map[model.ActivityKind]map[uuid.UUID]int)
	totals := make(map[model.ActivityKind]int)
	for _, a := range attributions {
		if counts[a.Kind] == nil {
			counts[a.Kind] = make(map[uuid.UUID]int)
		}
		counts[a.Kind][a.PersonID]++
		totals[a.Kind]++
	}
	means := make(map[model.ActivityKind]float64, len(totals))
	for kind, total := range totals {
		means[kind] = float64(total) / float64(len(o.rc.Personnel))
	}

	sort.SliceStable(attributions, func(i, j int) bool {
		a, b := attributions[i], attributions[j]
		return belowMeanRank(counts[a.Kind][a.PersonID], means[a.Kind]) <
			belowMeanRank(counts[b.Kind][b.PersonID], means[b.Kind])
	})
}

func belowMeanRank(count int, mean float64) int {
	if float64(count) < mean {
		return 0
	}
	return 1
}

// recomputeFatigue 对每个分配重算承担人的疲劳分：先衰减再计入积分
func (o *Optimizer) recomputeFatigue(attributions []*model.Attribution, now time.Time) {
	if o.fatigueCfg == nil || !o.fatigueCfg.Enabled {
		return
	}
	for _, a := range attributions {
		counter := o.rc.Counter(a.PersonID)
		if counter == nil {
			continue
		}
		counter.Fatigue.Score = decayedFatigue(counter.Fatigue, now, o.fatigueCfg) +
			o.fatigueCfg.Points.PointsFor(a.Kind)
		counter.Fatigue.LastUpdate = now
	}
}
