package model

import "time"

// OptimizationLevel 优化深度
type OptimizationLevel string

const (
	OptimizationFast     OptimizationLevel = "fast"     // 跳过优化后处理
	OptimizationStandard OptimizationLevel = "standard" // 标准三段优化
	OptimizationThorough OptimizationLevel = "thorough"
)

// IsValid 判断优化深度是否有效
func (l OptimizationLevel) IsValid() bool {
	switch l {
	case OptimizationFast, OptimizationStandard, OptimizationThorough:
		return true
	}
	return false
}

// GenerationParameters 排班生成参数
type GenerationParameters struct {
	StartDate           time.Time         `json:"start_date"`
	EndDate             time.Time         `json:"end_date"`
	ActiveKinds         []ActivityKind    `json:"active_kinds"`
	OptimizationLevel   OptimizationLevel `json:"optimization_level"`
	KeepExisting        bool              `json:"keep_existing"` // 保留已有排班并计入计数器
	ApplyPreferences    bool              `json:"apply_preferences"`
	EquityWeight        float64           `json:"equity_weight"`
	PreferenceWeight    float64           `json:"preference_weight"`
	QualityOfLifeWeight float64           `json:"quality_of_life_weight"`
	Seed                int64             `json:"seed,omitempty"` // 0 = 按时间播种
}

// KindActive 判断活动类型是否在本次生成范围内
func (p *GenerationParameters) KindActive(kind ActivityKind) bool {
	for _, k := range p.ActiveKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// DefaultGenerationParameters 默认生成参数
func DefaultGenerationParameters(start, end time.Time) *GenerationParameters {
	return &GenerationParameters{
		StartDate:           start,
		EndDate:             end,
		ActiveKinds:         []ActivityKind{KindDuty, KindReserve},
		OptimizationLevel:   OptimizationStandard,
		KeepExisting:        true,
		ApplyPreferences:    false,
		EquityWeight:        0.5,
		PreferenceWeight:    0.3,
		QualityOfLifeWeight: 0.2,
	}
}
