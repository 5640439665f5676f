package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parking_lot_system/internal/domain"
	"parking_lot_system/internal/service"
)

type HistoryHandler struct {
	parkingService *service.ParkingService
}

func NewHistoryHandler(ps *service.ParkingService) *HistoryHandler {
	return &HistoryHandler{parkingService: ps}
}

// GET /api/v1/history?activeOnly=true&vehicle=KA01&customer=an
func (h *HistoryHandler) ListHistory(c *gin.Context) {
	var filter domain.HistoryFilterDTO
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records, err := h.parkingService.ListHistory(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi lấy lịch sử đỗ xe"})
		return
	}
	c.JSON(http.StatusOK, records)
}
