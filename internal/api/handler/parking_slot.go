package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"parking_lot_system/internal/api/middleware"
	"parking_lot_system/internal/domain"
	"parking_lot_system/internal/repository"
	"parking_lot_system/internal/service"
)

type ParkingSlotHandler struct {
	parkingService *service.ParkingService
}

func NewParkingSlotHandler(ps *service.ParkingService) *ParkingSlotHandler {
	return &ParkingSlotHandler{parkingService: ps}
}

func actorFromContext(c *gin.Context) domain.Actor {
	return domain.Actor{
		ID:    c.GetInt(middleware.UserIDKey),
		Name:  c.GetString(middleware.UserNameKey),
		Email: c.GetString(middleware.UserEmailKey),
		Role:  c.GetString(middleware.UserRoleKey),
	}
}

func slotIDParam(c *gin.Context) (int, bool) {
	slotID, err := strconv.Atoi(c.Param("slot_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Slot ID không hợp lệ"})
		return 0, false
	}
	return slotID, true
}

// GET /api/v1/parking-slots
func (h *ParkingSlotHandler) GetAllSlots(c *gin.Context) {
	slots, err := h.parkingService.GetAllSlots(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi lấy danh sách chỗ đỗ xe"})
		return
	}
	c.JSON(http.StatusOK, slots)
}

// GET /api/v1/parking-slots/stats
func (h *ParkingSlotHandler) GetStats(c *gin.Context) {
	stats, err := h.parkingService.GetStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi tính thống kê bãi đỗ"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// POST /api/v1/parking-slots/next
func (h *ParkingSlotHandler) AddNextSlot(c *gin.Context) {
	slot, err := h.parkingService.AddNextSlot(c.Request.Context())
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể thêm chỗ đỗ xe", "details": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, slot)
}

// POST /api/v1/parking-slots
func (h *ParkingSlotHandler) AddCustomSlot(c *gin.Context) {
	var dto domain.AddCustomSlotDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	slot, err := h.parkingService.AddCustomSlot(c.Request.Context(), dto)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, repository.ErrDuplicateEntry) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể thêm chỗ đỗ xe", "details": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, slot)
}

// DELETE /api/v1/parking-slots/:slot_id
func (h *ParkingSlotHandler) DeleteSlot(c *gin.Context) {
	slotID, ok := slotIDParam(c)
	if !ok {
		return
	}

	if err := h.parkingService.DeleteSlot(c.Request.Context(), slotID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy chỗ đỗ xe để xóa"})
			return
		}
		if errors.Is(err, service.ErrPrecondition) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể xóa chỗ đỗ xe", "details": err.Error()})
		return
	}
	c.JSON(http.StatusNoContent, nil)
}

// DELETE /api/v1/parking-slots
func (h *ParkingSlotHandler) DeleteMostRecentSlot(c *gin.Context) {
	if err := h.parkingService.DeleteMostRecentSlot(c.Request.Context()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Bãi đỗ chưa có chỗ nào để xóa"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể xóa chỗ đỗ xe", "details": err.Error()})
		return
	}
	c.JSON(http.StatusNoContent, nil)
}

// POST /api/v1/parking-slots/:slot_id/book
func (h *ParkingSlotHandler) BookSlot(c *gin.Context) {
	slotID, ok := slotIDParam(c)
	if !ok {
		return
	}

	var dto domain.BookSlotDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	slot, err := h.parkingService.BookSlot(c.Request.Context(), slotID, dto, actorFromContext(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy chỗ đỗ xe"})
			return
		}
		if errors.Is(err, service.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, service.ErrPrecondition) || errors.Is(err, repository.ErrDuplicateEntry) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể đặt chỗ đỗ xe", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, slot)
}

// POST /api/v1/parking-slots/:slot_id/walk-in-booking
func (h *ParkingSlotHandler) BookForWalkIn(c *gin.Context) {
	slotID, ok := slotIDParam(c)
	if !ok {
		return
	}

	var dto domain.BookForWalkInDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	slot, err := h.parkingService.BookForWalkIn(c.Request.Context(), slotID, dto, actorFromContext(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy chỗ đỗ xe hoặc khách walk-in"})
			return
		}
		if errors.Is(err, service.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, service.ErrPrecondition) || errors.Is(err, repository.ErrDuplicateEntry) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể đặt chỗ cho khách walk-in", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, slot)
}

// POST /api/v1/parking-slots/:slot_id/exit
func (h *ParkingSlotHandler) ExitSlot(c *gin.Context) {
	slotID, ok := slotIDParam(c)
	if !ok {
		return
	}

	slot, err := h.parkingService.ExitSlot(c.Request.Context(), slotID, actorFromContext(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy chỗ đỗ xe"})
			return
		}
		if errors.Is(err, service.ErrPrecondition) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể xử lý xe rời bãi", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, slot)
}

// POST /api/v1/parking-slots/:slot_id/maintenance
func (h *ParkingSlotHandler) ToggleMaintenance(c *gin.Context) {
	slotID, ok := slotIDParam(c)
	if !ok {
		return
	}

	slot, err := h.parkingService.ToggleMaintenance(c.Request.Context(), slotID, actorFromContext(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy chỗ đỗ xe"})
			return
		}
		if errors.Is(err, service.ErrPrecondition) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể đổi trạng thái bảo trì", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, slot)
}

// POST /api/v1/parking-slots/:slot_id/resolve-maintenance
func (h *ParkingSlotHandler) ResolveMaintenance(c *gin.Context) {
	slotID, ok := slotIDParam(c)
	if !ok {
		return
	}

	var dto domain.ResolveMaintenanceDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.parkingService.ResolveMaintenance(c.Request.Context(), slotID, dto, actorFromContext(c)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy chỗ đỗ xe"})
			return
		}
		if errors.Is(err, service.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, service.ErrPrecondition) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể xử lý chỗ đỗ đang bảo trì", "details": err.Error()})
		return
	}
	c.JSON(http.StatusNoContent, nil)
}
