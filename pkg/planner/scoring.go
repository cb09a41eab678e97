package planner

import (
	"math"
	"math/rand"
	"time"

	"github.com/vperreard/mathildanesth/pkg/model"
)

// 评分各分量的幅度
const (
	baseScore          = 100.0
	fatiguePenaltyMax  = 40.0
	equityBonusMax     = 30.0
	equityPenaltyMax   = 20.0
	recentLoadPenalty  = 5.0
	recentLoadWindow   = 7 // 天
	partTimeBonusMax   = 10.0
	preferenceBonusMax = 10.0
)

// scorer 候选人评分器
type scorer struct {
	rc  *RunContext
	rng *rand.Rand
}

func newScorer(rc *RunContext, rng *rand.Rand) *scorer {
	return &scorer{rc: rc, rng: rng}
}

// score 计算某人承担某天某类型岗位的得分，范围 [0, 100]
func (s *scorer) score(p *model.Person, date time.Time, kind model.ActivityKind) float64 {
	counter := s.rc.Counter(p.ID)
	score := baseScore

	// 疲劳惩罚：按距临界阈值的比例扣分
	if s.rc.Fatigue != nil && s.rc.Fatigue.Enabled && s.rc.Fatigue.Thresholds.Critical > 0 {
		ratio := math.Min(counter.Fatigue.Score/s.rc.Fatigue.Thresholds.Critical, 1)
		score -= ratio * fatiguePenaltyMax
	}

	// 公平性：低于均值加分，高于均值减分
	mean := s.meanCount(kind)
	count := float64(counter.CountFor(kind))
	if count < mean {
		score += math.Min((mean-count)/math.Max(mean, 1), 1) * equityBonusMax
	} else if count > mean {
		score -= math.Min((count-mean)/math.Max(mean, 1), 1) * equityPenaltyMax
	}

	// 近期负载：最近 7 天内每个分配扣 5 分
	score -= float64(s.recentCount(p, date)) * recentLoadPenalty

	// 兼职人员按工时比例加分
	if p.IsPartTime() {
		score += (1 - p.WorkRatio) * partTimeBonusMax
	}

	// 偏好加成：启用时加入有界随机扰动
	if s.rc.Params.ApplyPreferences {
		score += s.rng.Float64() * preferenceBonusMax
	}

	return math.Max(0, math.Min(score, baseScore))
}

// meanCount 全员该活动类型的平均计数
func (s *scorer) meanCount(kind model.ActivityKind) float64 {
	if len(s.rc.Personnel) == 0 {
		return 0
	}
	total := 0
	for _, p := range s.rc.Personnel {
		total += s.rc.Counter(p.ID).CountFor(kind)
	}
	return float64(total) / float64(len(s.rc.Personnel))
}

// recentCount 统计某人在目标日期前 7 天内的分配数
func (s *scorer) recentCount(p *model.Person, date time.Time) int {
	count := 0
	for _, a := range s.rc.ForPerson(p.ID) {
		days := model.DaysBetween(a.Date(), date)
		if a.Date().Before(date) && days >= 1 && days <= recentLoadWindow {
			count++
		}
	}
	return count
}

// pickBest 返回得分最高的候选人，得分相同时保持先遇到者
func (s *scorer) pickBest(candidates []*model.Person, date time.Time, kind model.ActivityKind) *model.Person {
	var best *model.Person
	bestScore := -1.0
	for _, p := range candidates {
		if sc := s.score(p, date, kind); sc > bestScore {
			best = p
			bestScore = sc
		}
	}
	return best
}
