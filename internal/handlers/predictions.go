package handlers

import (
	"errors"
	"net/http"

	"github.com/cornerstats/fight-predictor/internal/features"
)

// GetPredictions returns the ensemble's call for every upcoming fight
// @Summary Get Upcoming Fight Predictions
// @Tags Predictions
// @Produce json
// @Success 200 {object} models.PredictionsResponse
// @Failure 500 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse "Upcoming card unusable"
// @Router /predictions [get]
func (h *Handler) GetPredictions(w http.ResponseWriter, r *http.Request) {
	resp, err := h.prediction.GetPredictions(r.Context())
	if err != nil {
		h.logger.Errorw("Failed to get predictions", "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, features.ErrSchema) || errors.Is(err, features.ErrDataQuality) {
			// the upcoming card is unusable until it is replaced
			status = http.StatusServiceUnavailable
		}
		h.errorResponse(w, status, err.Error())
		return
	}

	h.jsonResponse(w, http.StatusOK, resp)
}

// GetModel describes the artifact serving predictions
// @Summary Get Model Info
// @Tags Predictions
// @Produce json
// @Success 200 {object} models.ModelInfo
// @Failure 500 {object} models.ErrorResponse
// @Router /model [get]
func (h *Handler) GetModel(w http.ResponseWriter, r *http.Request) {
	info, err := h.prediction.GetModelInfo(r.Context())
	if err != nil {
		h.logger.Errorw("Failed to get model info", "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to get model info")
		return
	}

	h.jsonResponse(w, http.StatusOK, info)
}
