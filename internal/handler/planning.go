// Package handler 提供HTTP请求处理器
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/vperreard/mathildanesth/internal/metrics"
	"github.com/vperreard/mathildanesth/pkg/calendar"
	"github.com/vperreard/mathildanesth/pkg/errors"
	"github.com/vperreard/mathildanesth/pkg/logger"
	"github.com/vperreard/mathildanesth/pkg/model"
	"github.com/vperreard/mathildanesth/pkg/planner"
	"github.com/vperreard/mathildanesth/pkg/rules"
)

// AttributionStore 生成结果持久化
type AttributionStore interface {
	CreateBatch(ctx context.Context, attributions []*model.Attribution) error
	DeleteInRange(ctx context.Context, start, end time.Time) (int64, error)
}

// PersonnelSource 人员数据来源
type PersonnelSource interface {
	ListActive(ctx context.Context, date time.Time) ([]*model.Person, error)
}

// RuleSource 规则集数据来源
type RuleSource interface {
	ListActive(ctx context.Context) ([]rules.Rule, error)
}

// PlanningHandler 排班引擎处理器
type PlanningHandler struct {
	rulesCfg   *model.RulesConfiguration
	fatigueCfg *model.FatigueConfig
	store      AttributionStore
	personnel  PersonnelSource
	ruleSource RuleSource
}

// NewPlanningHandler 创建排班处理器，nil 配置使用默认值
func NewPlanningHandler(rulesCfg *model.RulesConfiguration, fatigueCfg *model.FatigueConfig) *PlanningHandler {
	if rulesCfg == nil {
		rulesCfg = model.DefaultRulesConfiguration()
	}
	if fatigueCfg == nil {
		fatigueCfg = model.DefaultFatigueConfig()
	}
	return &PlanningHandler{rulesCfg: rulesCfg, fatigueCfg: fatigueCfg}
}

// WithStore 启用生成结果持久化
func (h *PlanningHandler) WithStore(store AttributionStore) *PlanningHandler {
	h.store = store
	return h
}

// WithPersonnelSource 启用人员数据加载
func (h *PlanningHandler) WithPersonnelSource(src PersonnelSource) *PlanningHandler {
	h.personnel = src
	return h
}

// WithRuleSource 启用规则集加载
func (h *PlanningHandler) WithRuleSource(src RuleSource) *PlanningHandler {
	h.ruleSource = src
	return h
}

// GenerateRequest 排班生成请求
type GenerateRequest struct {
	StartDate         string               `json:"start_date"` // YYYY-MM-DD
	EndDate           string               `json:"end_date"`
	ActiveKinds       []string             `json:"active_kinds,omitempty"`
	OptimizationLevel string               `json:"optimization_level,omitempty"`
	KeepExisting      bool                 `json:"keep_existing,omitempty"`
	ApplyPreferences  bool                 `json:"apply_preferences,omitempty"`
	Seed              int64                `json:"seed,omitempty"`
	Persist           bool                 `json:"persist,omitempty"` // 持久化生成结果，替换区间内待确认排班
	Personnel         []*model.Person      `json:"personnel"`         // 为空时从数据库加载
	Existing          []*model.Attribution `json:"existing,omitempty"`
	Holidays          []string             `json:"holidays,omitempty"` // YYYY-MM-DD
	Rules             []rules.Rule         `json:"rules,omitempty"`    // 为空时使用内置规则集
}

// GenerateResponse 排班生成响应
type GenerateResponse struct {
	Success      bool                    `json:"success"`
	Persisted    bool                    `json:"persisted,omitempty"`
	Attributions []*model.Attribution    `json:"attributions"`
	Validation   *model.ValidationResult `json:"validation"`
	Statistics   *planner.Statistics     `json:"statistics"`
	Duration     string                  `json:"duration"`
}

// Generate 生成排班
func (h *PlanningHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	params, appErr := buildParameters(&req)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	oracle, appErr := parseHolidays(req.Holidays)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	// 规则优先级：请求内联 > 数据库规则集 > 内置规则集
	ruleSet := rules.DefaultRuleSet()
	if len(req.Rules) > 0 {
		ruleSet = req.Rules
	} else if h.ruleSource != nil {
		stored, err := h.ruleSource.ListActive(r.Context())
		if err != nil {
			respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "加载规则集失败"))
			return
		}
		if len(stored) > 0 {
			ruleSet = stored
		}
	}

	personnel := req.Personnel
	if len(personnel) == 0 && h.personnel != nil {
		loaded, err := h.personnel.ListActive(r.Context(), params.StartDate)
		if err != nil {
			respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "加载人员失败"))
			return
		}
		personnel = loaded
	}

	gen := planner.NewGenerator(params, h.rulesCfg, h.fatigueCfg)
	gen.SetEvaluator(rules.NewStaticEvaluator(ruleSet))
	gen.SetHolidayOracle(oracle)

	if err := gen.Initialize(personnel, req.Existing); err != nil {
		respondAnyError(w, err)
		return
	}

	result, err := gen.Generate(r.Context())
	if err != nil {
		metrics.RecordGeneration(string(params.OptimizationLevel), false, 0)
		respondAnyError(w, err)
		return
	}

	metrics.RecordGeneration(string(params.OptimizationLevel), true, result.Duration)
	metrics.RecordPlanningQuality(
		result.Validation.Metrics.EquityScore,
		result.Statistics.FillRate,
		result.Statistics.UnfilledSlots)

	persisted := false
	if req.Persist && h.store != nil {
		if _, err := h.store.DeleteInRange(r.Context(), params.StartDate, params.EndDate); err != nil {
			respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "清理旧排班失败"))
			return
		}
		if err := h.store.CreateBatch(r.Context(), result.Attributions); err != nil {
			respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "保存排班失败"))
			return
		}
		persisted = true
	}

	logger.Info().
		Int("attributions", len(result.Attributions)).
		Bool("persisted", persisted).
		Str("duration", result.Duration.String()).
		Msg("排班生成请求完成")

	respondJSON(w, http.StatusOK, GenerateResponse{
		Success:      true,
		Persisted:    persisted,
		Attributions: result.Attributions,
		Validation:   result.Validation,
		Statistics:   result.Statistics,
		Duration:     result.Duration.String(),
	})
}

// ValidateRequest 排班校验请求
type ValidateRequest struct {
	StartDate    string               `json:"start_date"`
	EndDate      string               `json:"end_date"`
	Personnel    []*model.Person      `json:"personnel"`
	Attributions []*model.Attribution `json:"attributions"`
	Holidays     []string             `json:"holidays,omitempty"`
	Rules        []rules.Rule         `json:"rules,omitempty"`
}

// Validate 校验既有排班
func (h *PlanningHandler) Validate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	if len(req.Personnel) == 0 {
		respondError(w, errors.InvalidInput("personnel", "人员列表不能为空"))
		return
	}

	start, end, appErr := parseDateRange(req.StartDate, req.EndDate)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	oracle, appErr := parseHolidays(req.Holidays)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	ruleSet := rules.DefaultRuleSet()
	if len(req.Rules) > 0 {
		ruleSet = req.Rules
	}

	params := model.DefaultGenerationParameters(start, end)
	rc := planner.NewRunContext(params, h.rulesCfg, h.fatigueCfg)
	rc.SetPersonnel(req.Personnel)
	rc.SeedAttributions(req.Attributions, oracle)

	validator := planner.NewValidator(rc, h.rulesCfg, h.fatigueCfg, rules.NewStaticEvaluator(ruleSet))
	result, err := validator.Validate(r.Context(), rc.Attributions(), time.Now())
	if err != nil {
		respondAnyError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// buildParameters 从请求构建生成参数
func buildParameters(req *GenerateRequest) (*model.GenerationParameters, *errors.AppError) {
	start, end, appErr := parseDateRange(req.StartDate, req.EndDate)
	if appErr != nil {
		return nil, appErr
	}

	params := model.DefaultGenerationParameters(start, end)
	params.KeepExisting = req.KeepExisting
	params.ApplyPreferences = req.ApplyPreferences
	params.Seed = req.Seed

	if req.OptimizationLevel != "" {
		params.OptimizationLevel = model.OptimizationLevel(req.OptimizationLevel)
	}

	if len(req.ActiveKinds) > 0 {
		kinds := make([]model.ActivityKind, 0, len(req.ActiveKinds))
		for _, s := range req.ActiveKinds {
			kind := model.ActivityKind(s)
			if !kind.IsValid() {
				return nil, errors.InvalidInput("active_kinds", "未知的活动类型: "+s)
			}
			kinds = append(kinds, kind)
		}
		params.ActiveKinds = kinds
	}

	return params, nil
}

// parseDateRange 解析日期区间
func parseDateRange(startStr, endStr string) (time.Time, time.Time, *errors.AppError) {
	if startStr == "" || endStr == "" {
		return time.Time{}, time.Time{}, errors.InvalidInput("start_date", "开始日期与结束日期不能为空")
	}
	start, err := time.Parse(model.DateKey, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.InvalidInput("start_date", "日期格式无效，应为YYYY-MM-DD")
	}
	end, err := time.Parse(model.DateKey, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.InvalidInput("end_date", "日期格式无效，应为YYYY-MM-DD")
	}
	return start, end, nil
}

// parseHolidays 解析节假日列表
func parseHolidays(days []string) (calendar.HolidayOracle, *errors.AppError) {
	if len(days) == 0 {
		return calendar.NoHolidays{}, nil
	}
	dates := make([]time.Time, 0, len(days))
	for _, s := range days {
		d, err := time.Parse(model.DateKey, s)
		if err != nil {
			return nil, errors.InvalidInput("holidays", "日期格式无效: "+s)
		}
		dates = append(dates, d)
	}
	return calendar.NewStaticHolidays(dates...), nil
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError 返回错误响应
func respondError(w http.ResponseWriter, err *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"code":    err.Code,
		"message": err.Message,
		"details": err.Details,
	})
}

// respondAnyError 按错误码映射HTTP状态后返回
func respondAnyError(w http.ResponseWriter, err error) {
	if appErr, ok := err.(*errors.AppError); ok {
		respondError(w, appErr)
		return
	}
	respondError(w, errors.Wrap(err, errors.CodeInternal, "内部错误"))
}
