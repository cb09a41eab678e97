package handler

import (
	"encoding/json"
	"net/http"

	"github.com/vperreard/mathildanesth/pkg/errors"
	"github.com/vperreard/mathildanesth/pkg/logger"
	"github.com/vperreard/mathildanesth/pkg/model"
	"github.com/vperreard/mathildanesth/pkg/stats"
)

// StatsHandler 统计分析处理器
type StatsHandler struct {
	rulesCfg *model.RulesConfiguration
}

// NewStatsHandler 创建统计处理器
func NewStatsHandler(rulesCfg *model.RulesConfiguration) *StatsHandler {
	if rulesCfg == nil {
		rulesCfg = model.DefaultRulesConfiguration()
	}
	return &StatsHandler{rulesCfg: rulesCfg}
}

// StatsRequest 统计请求
type StatsRequest struct {
	StartDate    string               `json:"start_date,omitempty"`
	EndDate      string               `json:"end_date,omitempty"`
	Kinds        []string             `json:"kinds,omitempty"`
	Personnel    []*model.Person      `json:"personnel"`
	Attributions []*model.Attribution `json:"attributions"`
	Holidays     []string             `json:"holidays,omitempty"`
}

// FairnessResponse 公平性响应
type FairnessResponse struct {
	Success bool                  `json:"success"`
	Data    *stats.FairnessReport `json:"data,omitempty"`
}

// CoverageResponse 覆盖率响应
type CoverageResponse struct {
	Success bool                  `json:"success"`
	Data    *stats.CoverageReport `json:"data,omitempty"`
}

// Fairness 公平性分析
func (h *StatsHandler) Fairness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req StatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	oracle, appErr := parseHolidays(req.Holidays)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	logger.Debug().
		Int("personnel", len(req.Personnel)).
		Int("attributions", len(req.Attributions)).
		Msg("公平性分析请求")

	analyzer := stats.NewFairnessAnalyzer(h.rulesCfg.Equity, oracle)
	report := analyzer.Analyze(req.Attributions, req.Personnel)

	respondJSON(w, http.StatusOK, FairnessResponse{Success: true, Data: report})
}

// Coverage 覆盖率分析
func (h *StatsHandler) Coverage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req StatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
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

	kinds := model.AllActivityKinds
	if len(req.Kinds) > 0 {
		kinds = make([]model.ActivityKind, 0, len(req.Kinds))
		for _, s := range req.Kinds {
			kind := model.ActivityKind(s)
			if !kind.IsValid() {
				respondError(w, errors.InvalidInput("kinds", "未知的活动类型: "+s))
				return
			}
			kinds = append(kinds, kind)
		}
	}

	analyzer := stats.NewCoverageAnalyzer(h.rulesCfg, oracle)
	report := analyzer.Analyze(req.Attributions, start, end, kinds)

	respondJSON(w, http.StatusOK, CoverageResponse{Success: true, Data: report})
}
