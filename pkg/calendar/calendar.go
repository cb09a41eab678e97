// Package calendar 提供日期分类能力
package calendar

import "time"

// HolidayOracle 法定节假日判定接口
// 节假日数据由外部日历服务提供，引擎只依赖该接口
type HolidayOracle interface {
	IsHoliday(date time.Time) bool
}

// NoHolidays 空实现：不认定任何节假日
// 没有外部日历服务时只能区分工作日/周末
type NoHolidays struct{}

// IsHoliday 恒为 false
func (NoHolidays) IsHoliday(time.Time) bool { return false }

// StaticHolidays 基于固定日期列表的节假日判定
type StaticHolidays struct {
	days map[string]bool
}

// NewStaticHolidays 从日期列表创建节假日判定
func NewStaticHolidays(days ...time.Time) *StaticHolidays {
	m := make(map[string]bool, len(days))
	for _, d := range days {
		m[d.Format("2006-01-02")] = true
	}
	return &StaticHolidays{days: m}
}

// IsHoliday 判断日期是否在列表中
func (s *StaticHolidays) IsHoliday(date time.Time) bool {
	return s.days[date.Format("2006-01-02")]
}

// DayClass 日期分类
type DayClass struct {
	Weekend bool `json:"weekend"`
	Holiday bool `json:"holiday"`
}

// WeekendOrHoliday 判断是否为周末或节假日
func (c DayClass) WeekendOrHoliday() bool {
	return c.Weekend || c.Holiday
}

// IsWeekend 判断日期是否为周末
func IsWeekend(date time.Time) bool {
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Classify 对日期做周末/节假日分类
func Classify(date time.Time, oracle HolidayOracle) DayClass {
	c := DayClass{Weekend: IsWeekend(date)}
	if oracle != nil {
		c.Holiday = oracle.IsHoliday(date)
	}
	return c
}
