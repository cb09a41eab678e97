package model

import (
	"fmt"
	"time"
)

// IntervalRules 间隔与配额规则
type IntervalRules struct {
	MinDaysBetweenDuties int `json:"min_days_between_duties"` // 两次值班之间的最小天数
	RecommendedMinDays   int `json:"recommended_min_days"`    // 推荐最小间隔
	MaxDutiesPerMonth    int `json:"max_duties_per_month"`
	MaxConsecutiveDuties int `json:"max_consecutive_duties"`
	MaxReservesPerMonth  int `json:"max_reserves_per_month"`
}

// SupervisionRules 手术室监督规则
type SupervisionRules struct {
	MaxRoomsPerSector   map[string]int `json:"max_rooms_per_sector"` // 按科室的最大监督手术室数
	MaxRoomsExceptional int            `json:"max_rooms_exceptional"`
}

// MaxRoomsFor 返回指定科室的最大监督手术室数
func (s SupervisionRules) MaxRoomsFor(sector string) int {
	if n, ok := s.MaxRoomsPerSector[sector]; ok {
		return n
	}
	if n, ok := s.MaxRoomsPerSector["standard"]; ok {
		return n
	}
	return 2
}

// ConsultationRules 门诊规则
type ConsultationRules struct {
	MaxPerWeek              int  `json:"max_per_week"`
	BalanceMorningAfternoon bool `json:"balance_morning_afternoon"`
}

// CoverageRules 各活动类型每天需要的岗位数
type CoverageRules struct {
	WeekdayDutySlots           int `json:"weekday_duty_slots"`
	WeekendDutySlots           int `json:"weekend_duty_slots"` // 周末与节假日
	ReserveSlots               int `json:"reserve_slots"`
	MorningConsultationSlots   int `json:"morning_consultation_slots"`
	AfternoonConsultationSlots int `json:"afternoon_consultation_slots"`
	WeekdaySupervisionSlots    int `json:"weekday_supervision_slots"`
	WeekendSupervisionSlots    int `json:"weekend_supervision_slots"`
}

// ShiftWindow 班次的工作时间窗口，格式 HH:MM
// 结束时间早于开始时间表示跨天班次
type ShiftWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// OnDate 把时间窗口落到具体日期上，返回开始与结束时刻
func (w ShiftWindow) OnDate(date time.Time) (time.Time, time.Time, error) {
	start, err := parseTimeOnDate(w.Start, date)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseTimeOnDate(w.End, date)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start, end, nil
}

func parseTimeOnDate(hhmm string, date time.Time) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("无效的时间格式 %q: %w", hhmm, err)
	}
	return time.Date(date.Year(), date.Month(), date.Day(),
		t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}

// EquityRules 公平性权重
type EquityRules struct {
	WeekendDutyWeight  float64 `json:"weekend_duty_weight"`
	HolidayDutyWeight  float64 `json:"holiday_duty_weight"`
	BalanceSpecialties bool    `json:"balance_specialties"`
}

// QualityOfLifeRules 生活质量规则
type QualityOfLifeRules struct {
	PreferenceWeight       float64 `json:"preference_weight"`
	AvoidConsecutive       bool    `json:"avoid_consecutive"`
	RecoveryAfterNightDuty bool    `json:"recovery_after_night_duty"`
}

// RulesConfiguration 排班规则配置
// 由调用方提供，运行期间只读
type RulesConfiguration struct {
	Interval      IntervalRules                `json:"interval"`
	Supervision   SupervisionRules             `json:"supervision"`
	Consultations ConsultationRules            `json:"consultations"`
	Coverage      CoverageRules                `json:"coverage"`
	ShiftWindows  map[ActivityKind]ShiftWindow `json:"shift_windows"`
	Equity        EquityRules                  `json:"equity"`
	QualityOfLife QualityOfLifeRules           `json:"quality_of_life"`
}

// WindowFor 返回活动类型的工作时间窗口
func (r *RulesConfiguration) WindowFor(kind ActivityKind) ShiftWindow {
	if w, ok := r.ShiftWindows[kind]; ok {
		return w
	}
	return defaultShiftWindows[kind]
}

var defaultShiftWindows = map[ActivityKind]ShiftWindow{
	KindDuty:                  {Start: "08:00", End: "08:00"},
	KindReserve:               {Start: "08:00", End: "08:00"},
	KindMorningConsultation:   {Start: "08:00", End: "13:00"},
	KindAfternoonConsultation: {Start: "13:30", End: "18:30"},
	KindSupervision:           {Start: "08:00", End: "18:00"},
}

// DefaultRulesConfiguration 默认规则配置（标准中型机构）
func DefaultRulesConfiguration() *RulesConfiguration {
	return &RulesConfiguration{
		Interval: IntervalRules{
			MinDaysBetweenDuties: 7,
			RecommendedMinDays:   21,
			MaxDutiesPerMonth:    3,
			MaxConsecutiveDuties: 1,
			MaxReservesPerMonth:  5,
		},
		Supervision: SupervisionRules{
			MaxRoomsPerSector: map[string]int{
				"standard":      2,
				"ophtalmologie": 3,
				"endoscopie":    2,
			},
			MaxRoomsExceptional: 3,
		},
		Consultations: ConsultationRules{
			MaxPerWeek:              2,
			BalanceMorningAfternoon: true,
		},
		Coverage: CoverageRules{
			WeekdayDutySlots:           1,
			WeekendDutySlots:           2,
			ReserveSlots:               1,
			MorningConsultationSlots:   2,
			AfternoonConsultationSlots: 2,
			WeekdaySupervisionSlots:    4,
			WeekendSupervisionSlots:    2,
		},
		Equity: EquityRules{
			WeekendDutyWeight:  1.5,
			HolidayDutyWeight:  2.0,
			BalanceSpecialties: true,
		},
		QualityOfLife: QualityOfLifeRules{
			PreferenceWeight:       0.5,
			AvoidConsecutive:       true,
			RecoveryAfterNightDuty: true,
		},
	}
}

// FatiguePoints 各活动类型的疲劳积分
type FatiguePoints struct {
	Duty                float64 `json:"duty"`
	Reserve             float64 `json:"reserve"`
	MultipleSupervision float64 `json:"multiple_supervision"`
	Pediatrics          float64 `json:"pediatrics"`
	HeavySpecialty      float64 `json:"heavy_specialty"`
}

// PointsFor 返回活动类型的疲劳积分
func (p FatiguePoints) PointsFor(kind ActivityKind) float64 {
	switch kind {
	case KindDuty:
		return p.Duty
	case KindReserve:
		return p.Reserve
	case KindSupervision:
		return p.MultipleSupervision
	default:
		return 0
	}
}

// FatigueRecovery 各休息类型的恢复积分
type FatigueRecovery struct {
	DayOff     float64 `json:"day_off"`
	HalfDayOff float64 `json:"half_day_off"`
	Weekend    float64 `json:"weekend"`
}

// FatigueThresholds 疲劳阈值
type FatigueThresholds struct {
	Alert    float64 `json:"alert"`
	Critical float64 `json:"critical"`
}

// FatigueConfig 疲劳模型配置
type FatigueConfig struct {
	Enabled    bool              `json:"enabled"`
	Points     FatiguePoints     `json:"points"`
	Recovery   FatigueRecovery   `json:"recovery"`
	Thresholds FatigueThresholds `json:"thresholds"`
}

// recoveryWindowDays 恢复速率的计算窗口（天）
const recoveryWindowDays = 30.0

// RecoveryRatePerDay 返回每天的疲劳恢复速率
func (f *FatigueConfig) RecoveryRatePerDay() float64 {
	return f.Recovery.DayOff / recoveryWindowDays
}

// DefaultFatigueConfig 默认疲劳配置
func DefaultFatigueConfig() *FatigueConfig {
	return &FatigueConfig{
		Enabled: true,
		Points: FatiguePoints{
			Duty:                30,
			Reserve:             10,
			MultipleSupervision: 15,
			Pediatrics:          10,
			HeavySpecialty:      20,
		},
		Recovery: FatigueRecovery{
			DayOff:     15,
			HalfDayOff: 8,
			Weekend:    30,
		},
		Thresholds: FatigueThresholds{
			Alert:    50,
			Critical: 80,
		},
	}
}
