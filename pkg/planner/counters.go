package planner

import (
	"time"

	"github.com/vperreard/mathildanesth/pkg/calendar"
	"github.com/vperreard/mathildanesth/pkg/model"
)

// applyToCounter 把一个分配计入人员计数器
// 按日类别更新子桶，并累加疲劳积分
func applyToCounter(counter *model.Counter, a *model.Attribution, class calendar.DayClass, fatigueCfg *model.FatigueConfig) {
	switch a.Kind {
	case model.KindDuty:
		counter.Duty.Total++
		if class.Weekend {
			counter.Duty.Weekends++
		}
		if class.Holiday {
			counter.Duty.Holidays++
		}
		if class.WeekendOrHoliday() {
			counter.Duty.SpecialDays++
		}
	case model.KindReserve:
		counter.Reserve.Total++
		if class.WeekendOrHoliday() {
			counter.Reserve.WeekendOrHoliday++
		} else {
			counter.Reserve.Weekday++
		}
	case model.KindMorningConsultation:
		counter.Consultation.Total++
		counter.Consultation.Morning++
	case model.KindAfternoonConsultation:
		counter.Consultation.Total++
		counter.Consultation.Afternoon++
	}

	if fatigueCfg != nil && fatigueCfg.Enabled {
		if pts := fatigueCfg.Points.PointsFor(a.Kind); pts > 0 {
			counter.Fatigue.Score += pts
			counter.Fatigue.LastUpdate = time.Now()
		}
	}
}

// decayedFatigue 计算参考时刻的疲劳分：按天线性恢复，不低于零
func decayedFatigue(state model.FatigueState, ref time.Time, fatigueCfg *model.FatigueConfig) float64 {
	if state.Score <= 0 {
		return 0
	}
	if state.LastUpdate.IsZero() || !ref.After(state.LastUpdate) {
		return state.Score
	}
	days := float64(model.DaysBetween(state.LastUpdate, ref))
	decayed := state.Score - days*fatigueCfg.RecoveryRatePerDay()
	if decayed < 0 {
		return 0
	}
	return decayed
}
