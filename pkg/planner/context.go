// Package planner 实现排班生成引擎：贪心分配、优化与校验
package planner

import (
	"time"

	"github.com/google/uuid"

	"github.com/vperreard/mathildanesth/pkg/calendar"
	"github.com/vperreard/mathildanesth/pkg/model"
	"github.com/vperreard/mathildanesth/pkg/rules"
)

// RunContext 单次生成运行的上下文
// 持有人员、计数器与已确认的分配，并维护索引缓存
type RunContext struct {
	Personnel []*model.Person
	Params    *model.GenerationParameters
	Rules     *model.RulesConfiguration
	Fatigue   *model.FatigueConfig

	attributions []*model.Attribution
	seeded       []*model.Attribution
	committed    []*model.Attribution
	counters     map[uuid.UUID]*model.Counter

	// 索引缓存
	personMap map[uuid.UUID]*model.Person
	byPerson  map[uuid.UUID][]*model.Attribution
	byDate    map[string][]*model.Attribution
}

// NewRunContext 创建运行上下文，nil 配置使用默认值
func NewRunContext(params *model.GenerationParameters, rulesCfg *model.RulesConfiguration, fatigueCfg *model.FatigueConfig) *RunContext {
	if rulesCfg == nil {
		rulesCfg = model.DefaultRulesConfiguration()
	}
	if fatigueCfg == nil {
		fatigueCfg = model.DefaultFatigueConfig()
	}
	return &RunContext{
		Params:       params,
		Rules:        rulesCfg,
		Fatigue:      fatigueCfg,
		attributions: make([]*model.Attribution, 0),
		seeded:       make([]*model.Attribution, 0),
		committed:    make([]*model.Attribution, 0),
		counters:     make(map[uuid.UUID]*model.Counter),
		personMap:    make(map[uuid.UUID]*model.Person),
		byPerson:     make(map[uuid.UUID][]*model.Attribution),
		byDate:       make(map[string][]*model.Attribution),
	}
}

// SetPersonnel 设置人员列表并为每人初始化计数器
func (c *RunContext) SetPersonnel(personnel []*model.Person) {
	c.Personnel = personnel
	c.personMap = make(map[uuid.UUID]*model.Person)
	for _, p := range personnel {
		c.personMap[p.ID] = p
		c.counters[p.ID] = model.NewCounter(p.ID)
	}
}

// SeedAttributions 载入已有分配（不计入本次运行的产出）
func (c *RunContext) SeedAttributions(existing []*model.Attribution, oracle calendar.HolidayOracle) {
	for _, a := range existing {
		if !a.IsActive() {
			continue
		}
		c.seeded = append(c.seeded, a)
		c.index(a)
		if counter, ok := c.counters[a.PersonID]; ok {
			class := calendar.Classify(a.Date(), oracle)
			applyToCounter(counter, a, class, c.Fatigue)
		}
	}
}

// Commit 确认一个分配：写入索引并更新该人员的计数器
func (c *RunContext) Commit(a *model.Attribution, class calendar.DayClass) {
	c.index(a)
	c.committed = append(c.committed, a)
	if counter, ok := c.counters[a.PersonID]; ok {
		applyToCounter(counter, a, class, c.Fatigue)
	}
}

func (c *RunContext) index(a *model.Attribution) {
	c.attributions = append(c.attributions, a)
	c.byPerson[a.PersonID] = append(c.byPerson[a.PersonID], a)
	c.byDate[a.DayKey()] = append(c.byDate[a.DayKey()], a)
}

// Person 按 ID 获取人员
func (c *RunContext) Person(id uuid.UUID) *model.Person {
	return c.personMap[id]
}

// Counter 按人员 ID 获取计数器
func (c *RunContext) Counter(id uuid.UUID) *model.Counter {
	return c.counters[id]
}

// Counters 返回全部计数器
func (c *RunContext) Counters() map[uuid.UUID]*model.Counter {
	return c.counters
}

// Attributions 返回全部分配（已有 + 本次确认）
func (c *RunContext) Attributions() []*model.Attribution {
	return c.attributions
}

// Committed 返回本次运行确认的分配
func (c *RunContext) Committed() []*model.Attribution {
	return c.committed
}

// AttributionsOn 返回某天的全部分配
func (c *RunContext) AttributionsOn(date time.Time) []*model.Attribution {
	return c.byDate[model.DayKey(date)]
}

// ForPerson 返回某人的全部分配
func (c *RunContext) ForPerson(id uuid.UUID) []*model.Attribution {
	return c.byPerson[id]
}

// HasAttributionOn 判断某人某天是否已有分配
func (c *RunContext) HasAttributionOn(id uuid.UUID, date time.Time) bool {
	key := model.DayKey(date)
	for _, a := range c.byPerson[id] {
		if a.DayKey() == key {
			return true
		}
	}
	return false
}

// CountInMonth 统计某人某月内指定类型的分配数
func (c *RunContext) CountInMonth(id uuid.UUID, kind model.ActivityKind, date time.Time) int {
	count := 0
	for _, a := range c.byPerson[id] {
		if a.Kind != kind {
			continue
		}
		d := a.Date()
		if d.Year() == date.Year() && d.Month() == date.Month() {
			count++
		}
	}
	return count
}

// CountInWeek 统计某人在指定日期所在 ISO 周内的门诊分配数
func (c *RunContext) CountInWeek(id uuid.UUID, date time.Time) int {
	year, week := date.ISOWeek()
	count := 0
	for _, a := range c.byPerson[id] {
		if !a.Kind.IsConsultation() {
			continue
		}
		y, w := a.Date().ISOWeek()
		if y == year && w == week {
			count++
		}
	}
	return count
}

// EvalContext 构建规则引擎的评估上下文
func (c *RunContext) EvalContext(date time.Time, kind model.ActivityKind) *rules.EvalContext {
	metrics := make(map[uuid.UUID]rules.PersonMetrics, len(c.counters))
	for id, counter := range c.counters {
		metrics[id] = rules.PersonMetrics{
			DutyCount:         counter.Duty.Total,
			ReserveCount:      counter.Reserve.Total,
			ConsultationCount: counter.Consultation.Total,
			FatigueScore:      counter.Fatigue.Score,
		}
	}
	return &rules.EvalContext{
		Date:     date,
		Kind:     kind,
		Existing: c.seeded,
		Proposed: c.committed,
		Metrics:  metrics,
	}
}
