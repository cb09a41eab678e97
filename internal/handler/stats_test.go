package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vperreard/mathildanesth/pkg/model"
)

func TestStatsHandler_Fairness(t *testing.T) {
	h := NewStatsHandler(nil)
	personnel := testPersonnel(2)

	day := time.Date(2026, time.January, 5, 8, 0, 0, 0, time.UTC)
	attributions := []*model.Attribution{
		model.NewAttribution(personnel[0].ID, model.KindDuty, day, day.AddDate(0, 0, 1)),
		model.NewAttribution(personnel[1].ID, model.KindDuty, day.AddDate(0, 0, 1), day.AddDate(0, 0, 2)),
	}

	rec := postJSON(t, h.Fairness, StatsRequest{
		Personnel:    personnel,
		Attributions: attributions,
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp FairnessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Data)
	assert.Len(t, resp.Data.PersonStats, 2)
}

func TestStatsHandler_Coverage(t *testing.T) {
	h := NewStatsHandler(nil)
	personnel := testPersonnel(1)

	day := time.Date(2026, time.January, 5, 8, 0, 0, 0, time.UTC) // 周一
	attributions := []*model.Attribution{
		model.NewAttribution(personnel[0].ID, model.KindDuty, day, day.AddDate(0, 0, 1)),
	}

	rec := postJSON(t, h.Coverage, StatsRequest{
		StartDate:    "2026-01-05",
		EndDate:      "2026-01-05",
		Kinds:        []string{"duty"},
		Personnel:    personnel,
		Attributions: attributions,
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp CoverageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Data)
	assert.Equal(t, 1, resp.Data.TotalSlots)
	assert.Equal(t, 1, resp.Data.FilledSlots)
	assert.InDelta(t, 100.0, resp.Data.OverallCoverage, 0.001)
}

func TestStatsHandler_Coverage_MissingRange(t *testing.T) {
	h := NewStatsHandler(nil)

	rec := postJSON(t, h.Coverage, StatsRequest{
		Personnel: testPersonnel(1),
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatsHandler_Fairness_InvalidHoliday(t *testing.T) {
	h := NewStatsHandler(nil)

	rec := postJSON(t, h.Fairness, StatsRequest{
		Personnel: testPersonnel(1),
		Holidays:  []string{"not-a-date"},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
