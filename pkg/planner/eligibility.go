package planner

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vperreard/mathildanesth/pkg/model"
)

// isEligible 判断某人能否承担某天某类型的岗位
// 返回是否可用及不可用原因（用于日志）
func isEligible(rc *RunContext, p *model.Person, date time.Time, kind model.ActivityKind) (bool, string) {
	if !p.AvailableOn(date) {
		return false, "人员当天不在岗"
	}

	counter := rc.Counter(p.ID)
	if counter == nil {
		return false, "缺少人员计数器"
	}

	// 疲劳前瞻：承担后将达到临界阈值的人员不参与候选
	if rc.Fatigue != nil && rc.Fatigue.Enabled {
		projected := counter.Fatigue.Score + rc.Fatigue.Points.PointsFor(kind)
		if projected >= rc.Fatigue.Thresholds.Critical {
			return false, fmt.Sprintf("疲劳前瞻 %.0f 达到临界阈值", projected)
		}
	}

	// 同一天已有任何分配即不再参与
	if rc.HasAttributionOn(p.ID, date) {
		return false, "当天已有分配"
	}

	switch kind {
	case model.KindDuty:
		// 最小间隔：与任何已有值班间隔不足则不可用
		minDays := rc.Rules.Interval.MinDaysBetweenDuties
		for _, a := range rc.ForPerson(p.ID) {
			if a.Kind != model.KindDuty {
				continue
			}
			// 值班次日强制休息，先于间隔检查以保证拒绝原因准确
			if model.DaysBetween(a.Date(), date) == 1 && a.Date().Before(date) {
				return false, "值班次日需要休息"
			}
			if model.DaysBetween(a.Date(), date) < minDays {
				return false, fmt.Sprintf("与 %s 的值班间隔不足 %d 天", a.DayKey(), minDays)
			}
		}
		if rc.CountInMonth(p.ID, model.KindDuty, date) >= rc.Rules.Interval.MaxDutiesPerMonth {
			return false, "本月值班已达上限"
		}
	case model.KindReserve:
		if rc.CountInMonth(p.ID, model.KindReserve, date) >= rc.Rules.Interval.MaxReservesPerMonth {
			return false, "本月备班已达上限"
		}
	case model.KindMorningConsultation, model.KindAfternoonConsultation:
		if rc.CountInWeek(p.ID, date) >= rc.Rules.Consultations.MaxPerWeek {
			return false, "本周门诊已达上限"
		}
	}

	return true, ""
}

// eligibleCandidates 返回某天某类型岗位的候选人员
// excluded 中的人员（本槽位已尝试失败）被跳过
func eligibleCandidates(rc *RunContext, date time.Time, kind model.ActivityKind, excluded map[uuid.UUID]bool) []*model.Person {
	candidates := make([]*model.Person, 0, len(rc.Personnel))
	for _, p := range rc.Personnel {
		if excluded[p.ID] {
			continue
		}
		if ok, _ := isEligible(rc, p, date, kind); ok {
			candidates = append(candidates, p)
		}
	}
	return candidates
}
