package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"parkwise/models"
	"parkwise/services/ledger"
	"parkwise/utils"
)

// LotHandler exposes lot listing and the slot availability index.
type LotHandler struct {
	Ledger ledger.Ledger
	Logger *zap.Logger
}

func NewLotHandler(l ledger.Ledger, logger *zap.Logger) *LotHandler {
	return &LotHandler{Ledger: l, Logger: logger}
}

// ListLots handles GET /api/lots.
func (h *LotHandler) ListLots(c *gin.Context) {
	lots, err := h.Ledger.ListLots(c.Request.Context())
	if err != nil {
		h.Logger.Error("failed to list lots", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "failed to list lots", err.Error())
		return
	}
	summaries := make([]models.LotSummary, 0, len(lots))
	for i := range lots {
		summaries = append(summaries, lots[i].Summary())
	}
	c.JSON(http.StatusOK, summaries)
}

// GetAvailability handles GET /api/lots/:lotID/availability. The optional
// start and end query parameters (RFC 3339) must come as a pair; without
// them the index is evaluated at the current instant.
func (h *LotHandler) GetAvailability(c *gin.Context) {
	lotID := c.Param("lotID")

	var q *models.Interval
	startStr, endStr := c.Query("start"), c.Query("end")
	if startStr != "" || endStr != "" {
		if startStr == "" || endStr == "" {
			utils.JSONError(c, http.StatusBadRequest, "invalid query interval", "start and end must be supplied together")
			return
		}
		start, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid start", err.Error())
			return
		}
		end, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid end", err.Error())
			return
		}
		q = &models.Interval{Start: start, End: end}
	}

	statuses, err := h.Ledger.Availability(c.Request.Context(), lotID, q)
	switch {
	case errors.Is(err, ledger.ErrInvalidInterval):
		utils.JSONError(c, http.StatusBadRequest, "invalid query interval", err.Error())
		return
	case errors.Is(err, ledger.ErrNotFound):
		utils.JSONError(c, http.StatusNotFound, "lot not found", err.Error())
		return
	case err != nil:
		h.Logger.Error("availability lookup failed", zap.String("lotId", lotID), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "availability lookup failed", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"lotId": lotID, "slots": statuses})
}
