// Package constraints 描述排班引擎支持的约束与规则条件
package constraints

// ConstraintParam 约束参数定义
type ConstraintParam struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // int, float, string, bool
	Description string `json:"description"`
	Default     string `json:"default,omitempty"`
	Min         string `json:"min,omitempty"`
	Max         string `json:"max,omitempty"`
}

// ConstraintDefinition 约束定义
type ConstraintDefinition struct {
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name"`
	Type        string            `json:"type"`     // hard 硬约束, soft 软约束
	Category    string            `json:"category"` // 分类
	Description string            `json:"description"`
	Params      []ConstraintParam `json:"params"`
}

// ConditionField 规则条件可用字段
type ConditionField struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // string, int, float, bool
	Description string `json:"description"`
}

// Library 引擎约束库
type Library struct {
	Constraints []ConstraintDefinition `json:"constraints"`
	Fields      []ConditionField       `json:"fields"`
	Operators   []string               `json:"operators"`
}

// GetLibrary 获取完整的约束库
func GetLibrary() *Library {
	return &Library{
		Constraints: builtinConstraints(),
		Fields:      conditionFields(),
		Operators: []string{
			"EQUALS", "NOT_EQUALS", "GREATER_THAN", "LESS_THAN",
			"GREATER_THAN_OR_EQUAL", "LESS_THAN_OR_EQUAL",
			"BETWEEN", "CONTAINS", "IN",
		},
	}
}

func builtinConstraints() []ConstraintDefinition {
	return []ConstraintDefinition{
		{
			Name:        "min_days_between_duties",
			DisplayName: "值班最小间隔",
			Type:        "hard",
			Category:    "休息保障",
			Description: "两次值班之间必须间隔的最小天数。间隔不足3天时升级为严重违规。",
			Params: []ConstraintParam{
				{Name: "min_days", Type: "int", Description: "最小间隔天数", Default: "7", Min: "1", Max: "30"},
			},
		},
		{
			Name:        "max_duties_per_month",
			DisplayName: "每月最大值班数",
			Type:        "hard",
			Category:    "负荷限制",
			Description: "限制每人每自然月的值班次数，防止过度排班。",
			Params: []ConstraintParam{
				{Name: "max_duties", Type: "int", Description: "每月最大值班数", Default: "3", Min: "1", Max: "15"},
			},
		},
		{
			Name:        "max_reserves_per_month",
			DisplayName: "每月最大备班数",
			Type:        "hard",
			Category:    "负荷限制",
			Description: "限制每人每自然月的备班次数。",
			Params: []ConstraintParam{
				{Name: "max_reserves", Type: "int", Description: "每月最大备班数", Default: "5", Min: "1", Max: "15"},
			},
		},
		{
			Name:        "max_consultations_per_week",
			DisplayName: "每周最大门诊数",
			Type:        "hard",
			Category:    "负荷限制",
			Description: "限制每人每ISO周的门诊场次（上午与下午合并计算）。",
			Params: []ConstraintParam{
				{Name: "max_per_week", Type: "int", Description: "每周最大门诊数", Default: "2", Min: "1", Max: "10"},
			},
		},
		{
			Name:        "duty_rest_day",
			DisplayName: "值班次日休息",
			Type:        "hard",
			Category:    "休息保障",
			Description: "值班结束后的次日不安排任何活动。",
			Params:      []ConstraintParam{},
		},
		{
			Name:        "same_day_exclusivity",
			DisplayName: "同日互斥",
			Type:        "hard",
			Category:    "冲突检测",
			Description: "同一人同一天只能有一个活动分配。",
			Params:      []ConstraintParam{},
		},
		{
			Name:        "fatigue_threshold",
			DisplayName: "疲劳阈值",
			Type:        "hard",
			Category:    "疲劳管理",
			Description: "疲劳分达到临界阈值的人员不再参与分配；达到告警阈值时记录警告。",
			Params: []ConstraintParam{
				{Name: "alert", Type: "float", Description: "告警阈值", Default: "50", Min: "0", Max: "100"},
				{Name: "critical", Type: "float", Description: "临界阈值", Default: "80", Min: "0", Max: "200"},
			},
		},
		{
			Name:        "avoid_consecutive",
			DisplayName: "避免连续排班",
			Type:        "soft",
			Category:    "生活质量",
			Description: "尽量避免同一人连续多天有活动分配，违反时记录警告。",
			Params: []ConstraintParam{
				{Name: "enabled", Type: "bool", Description: "是否启用", Default: "true"},
			},
		},
		{
			Name:        "equity_balance",
			DisplayName: "负荷均衡",
			Type:        "soft",
			Category:    "公平性",
			Description: "评分时向低于平均负荷的人员倾斜，周末与节假日按权重加权。",
			Params: []ConstraintParam{
				{Name: "weekend_weight", Type: "float", Description: "周末权重", Default: "1.5", Min: "1", Max: "3"},
				{Name: "holiday_weight", Type: "float", Description: "节假日权重", Default: "2.0", Min: "1", Max: "3"},
			},
		},
	}
}

func conditionFields() []ConditionField {
	return []ConditionField{
		{Name: "PERSON_ID", Type: "string", Description: "人员ID"},
		{Name: "SPECIALTY", Type: "string", Description: "专科"},
		{Name: "EXPERIENCE_YEARS", Type: "int", Description: "工作年限"},
		{Name: "WORK_RATIO", Type: "float", Description: "工时比例"},
		{Name: "DATE", Type: "string", Description: "评估日期 YYYY-MM-DD"},
		{Name: "DAY_OF_WEEK", Type: "int", Description: "星期几 (0=周日)"},
		{Name: "IS_WEEKEND", Type: "bool", Description: "是否周末"},
		{Name: "ACTIVITY_KIND", Type: "string", Description: "活动类型"},
		{Name: "DUTY_COUNT", Type: "int", Description: "累计值班数"},
		{Name: "RESERVE_COUNT", Type: "int", Description: "累计备班数"},
		{Name: "CONSULTATION_COUNT", Type: "int", Description: "累计门诊数"},
		{Name: "FATIGUE_SCORE", Type: "float", Description: "当前疲劳分"},
	}
}
