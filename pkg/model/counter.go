package model

import (
	"time"

	"github.com/google/uuid"
)

// DutyCounts 值班计数
type DutyCounts struct {
	Total       int `json:"total"`
	Weekends    int `json:"weekends"`
	Holidays    int `json:"holidays"`
	SpecialDays int `json:"special_days"` // 圣诞/年末等特殊日
}

// ReserveCounts 备班计数
type ReserveCounts struct {
	Total            int `json:"total"`
	Weekday          int `json:"weekday"`
	WeekendOrHoliday int `json:"weekend_or_holiday"`
}

// ConsultationCounts 门诊计数
type ConsultationCounts struct {
	Total     int `json:"total"`
	Morning   int `json:"morning"`
	Afternoon int `json:"afternoon"`
}

// FatigueState 疲劳状态
// 分数只在提交排班时增加，衰减在读取时按经过天数计算
type FatigueState struct {
	Score      float64   `json:"score"`
	LastUpdate time.Time `json:"last_update"`
}

// Counter 人员运行期计数器
// 生成器所有，单次运行的工作状态，不做持久化
type Counter struct {
	PersonID     uuid.UUID          `json:"person_id"`
	Duty         DutyCounts         `json:"duty"`
	Reserve      ReserveCounts      `json:"reserve"`
	Consultation ConsultationCounts `json:"consultation"`
	Fatigue      FatigueState       `json:"fatigue"`
}

// NewCounter 创建人员计数器
func NewCounter(personID uuid.UUID) *Counter {
	return &Counter{
		PersonID: personID,
		Fatigue:  FatigueState{Score: 0, LastUpdate: time.Now()},
	}
}

// CountFor 返回指定活动类型的计数
func (c *Counter) CountFor(kind ActivityKind) int {
	switch kind {
	case KindDuty:
		return c.Duty.Total
	case KindReserve:
		return c.Reserve.Total
	case KindMorningConsultation, KindAfternoonConsultation:
		return c.Consultation.Total
	default:
		return 0
	}
}
