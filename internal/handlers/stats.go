package handlers

import "net/http"

// GetStats returns headline statistics of the historical dataset
// @Summary Get Dataset Stats
// @Tags Stats
// @Produce json
// @Success 200 {object} models.DatasetStats
// @Failure 500 {object} models.ErrorResponse
// @Router /stats [get]
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.GetStats(r.Context())
	if err != nil {
		h.logger.Errorw("Failed to get stats", "error", err)
		h.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.jsonResponse(w, http.StatusOK, stats)
}

// GetStatsReport returns the descriptive analysis of the historical dataset
// @Summary Get Dataset Report
// @Tags Stats
// @Produce json
// @Success 200 {object} models.DatasetReport
// @Failure 500 {object} models.ErrorResponse
// @Router /stats/report [get]
func (h *Handler) GetStatsReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.stats.GetReport(r.Context())
	if err != nil {
		h.logger.Errorw("Failed to get stats report", "error", err)
		h.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.jsonResponse(w, http.StatusOK, report)
}
