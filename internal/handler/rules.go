package handler

import (
	"net/http"

	"github.com/vperreard/mathildanesth/internal/constraints"
	"github.com/vperreard/mathildanesth/pkg/errors"
)

// RulesLibrary 返回引擎支持的约束与规则条件定义
func RulesLibrary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET方法"))
		return
	}
	respondJSON(w, http.StatusOK, constraints.GetLibrary())
}
