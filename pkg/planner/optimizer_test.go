package planner

import (
	"testing"
	"time"

	"github.com/vperreard/mathildanesth/pkg/model"
)

func TestOptimizer_PrioritySort(t *testing.T) {
	p := testPerson("张三")
	rc := testRunContext(p)
	opt := NewOptimizer(rc, disabledFatigue())

	day := testDate(2026, time.January, 5)
	supervision := model.NewAttribution(p.ID, model.KindSupervision, day, day)
	consultation := model.NewAttribution(p.ID, model.KindMorningConsultation, day, day)
	duty := model.NewAttribution(p.ID, model.KindDuty, day, day.AddDate(0, 0, 1))
	reserve := model.NewAttribution(p.ID, model.KindReserve, day, day.AddDate(0, 0, 1))

	result := opt.Run([]*model.Attribution{supervision, consultation, duty, reserve}, time.Now())

	expected := []model.ActivityKind{model.KindDuty, model.KindReserve, model.KindMorningConsultation, model.KindSupervision}
	for i, kind := range expected {
		if result[i].Kind != kind {
			t.Errorf("Position %d: expected %s, got %s", i, kind, result[i].Kind)
		}
	}
}

func TestOptimizer_StableWithinKind(t *testing.T) {
	p := testPerson("张三")
	rc := testRunContext(p)
	opt := NewOptimizer(rc, disabledFatigue())

	early := model.NewAttribution(p.ID, model.KindDuty, testDate(2026, time.January, 5), testDate(2026, time.January, 6))
	late := model.NewAttribution(p.ID, model.KindDuty, testDate(2026, time.January, 12), testDate(2026, time.January, 13))

	result := opt.Run([]*model.Attribution{early, late}, time.Now())

	if result[0].ID != early.ID || result[1].ID != late.ID {
		t.Error("Chronological order within a kind should be preserved")
	}
}

func TestOptimizer_RebalancePutsBelowMeanFirst(t *testing.T) {
	heavy := testPerson("张三")
	light := testPerson("李四")
	rc := testRunContext(heavy, light)
	opt := NewOptimizer(rc, disabledFatigue())

	day := testDate(2026, time.January, 5)
	attrs := []*model.Attribution{
		model.NewAttribution(heavy.ID, model.KindDuty, day, day.AddDate(0, 0, 1)),
		model.NewAttribution(heavy.ID, model.KindDuty, day.AddDate(0, 0, 7), day.AddDate(0, 0, 8)),
		model.NewAttribution(heavy.ID, model.KindDuty, day.AddDate(0, 0, 14), day.AddDate(0, 0, 15)),
		model.NewAttribution(light.ID, model.KindDuty, day.AddDate(0, 0, 21), day.AddDate(0, 0, 22)),
	}

	result := opt.Run(attrs, time.Now())

	// 均值 2：轻负载人员的分配应排到最前
	if result[0].PersonID != light.ID {
		t.Errorf("Below-mean person's attribution should come first")
	}
}

func TestOptimizer_DoesNotReassign(t *testing.T) {
	a := testPerson("张三")
	b := testPerson("李四")
	rc := testRunContext(a, b)
	opt := NewOptimizer(rc, disabledFatigue())

	day := testDate(2026, time.January, 5)
	attrs := []*model.Attribution{
		model.NewAttribution(a.ID, model.KindDuty, day, day.AddDate(0, 0, 1)),
		model.NewAttribution(a.ID, model.KindDuty, day.AddDate(0, 0, 7), day.AddDate(0, 0, 8)),
	}

	result := opt.Run(attrs, time.Now())

	if len(result) != 2 {
		t.Fatalf("Optimizer should not add or drop attributions, got %d", len(result))
	}
	for _, attr := range result {
		if attr.PersonID != a.ID {
			t.Error("Optimizer should never change the assigned person")
		}
	}
}

func TestOptimizer_FatigueRecompute(t *testing.T) {
	p := testPerson("张三")
	rc := testRunContext(p)
	cfg := model.DefaultFatigueConfig()
	opt := NewOptimizer(rc, cfg)

	day := testDate(2026, time.January, 5)
	duty := model.NewAttribution(p.ID, model.KindDuty, day, day.AddDate(0, 0, 1))

	counter := rc.Counter(p.ID)
	counter.Fatigue = model.FatigueState{Score: 30, LastUpdate: testDate(2026, time.January, 1)}

	now := testDate(2026, time.January, 31)
	opt.Run([]*model.Attribution{duty}, now)

	// 30 天衰减 15 分，再计入值班 30 分
	if counter.Fatigue.Score != 45 {
		t.Errorf("Expected recomputed fatigue 45, got %.1f", counter.Fatigue.Score)
	}
	if !counter.Fatigue.LastUpdate.Equal(now) {
		t.Error("Fatigue recompute should restamp LastUpdate")
	}
}

func TestOptimizer_RebalanceUsesPerKindMeans(t *testing.T) {
	a := testPerson("张三")
	b := testPerson("李四")
	rc := testRunContext(a, b)
	opt := NewOptimizer(rc, disabledFatigue())

	day := testDate(2026, time.January, 5)
	// 张三值班偏多（2 对均值 1）但门诊偏少（1 对均值 1.5）
	// 李四门诊偏多（2 对均值 1.5）
	attrs := []*model.Attribution{
		model.NewAttribution(a.ID, model.KindDuty, day, day.AddDate(0, 0, 1)),
		model.NewAttribution(a.ID, model.KindDuty, day.AddDate(0, 0, 7), day.AddDate(0, 0, 8)),
		model.NewAttribution(a.ID, model.KindMorningConsultation, day.AddDate(0, 0, 1), day.AddDate(0, 0, 1)),
		model.NewAttribution(b.ID, model.KindMorningConsultation, day.AddDate(0, 0, 2), day.AddDate(0, 0, 2)),
		model.NewAttribution(b.ID, model.KindMorningConsultation, day.AddDate(0, 0, 3), day.AddDate(0, 0, 3)),
	}

	result := opt.Run(attrs, time.Now())

	// 均值按活动类型分别计算：张三的门诊分配应排到最前
	// 按全局均值计算时张三总量偏多，其门诊分配会被错误地排到后面
	first := result[0]
	if first.PersonID != a.ID || first.Kind != model.KindMorningConsultation {
		t.Errorf("Below-kind-mean consultation should come first, got %s for person %s", first.Kind, first.PersonID)
	}
}
