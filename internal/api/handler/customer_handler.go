package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gopkg.in/guregu/null.v4"

	"parking_lot_system/internal/domain"
	"parking_lot_system/internal/repository"
	"parking_lot_system/internal/service"
)

// CustomerHandler phục vụ danh bạ người dùng: khách đăng ký, khách walk-in,
// nhân viên và archive khách đã xóa.
type CustomerHandler struct {
	directoryService *service.DirectoryService
}

func NewCustomerHandler(ds *service.DirectoryService) *CustomerHandler {
	return &CustomerHandler{directoryService: ds}
}

func stripPasswords(users []domain.User) []domain.User {
	for i := range users {
		users[i].Password = null.String{}
	}
	return users
}

// GET /api/v1/customers
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	users, err := h.directoryService.ListCustomers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi lấy danh sách khách hàng"})
		return
	}
	c.JSON(http.StatusOK, stripPasswords(users))
}

// GET /api/v1/customers/walk-in
func (h *CustomerHandler) ListWalkIns(c *gin.Context) {
	users, err := h.directoryService.ListWalkIns(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi lấy danh sách khách walk-in"})
		return
	}
	c.JSON(http.StatusOK, stripPasswords(users))
}

// GET /api/v1/staff
func (h *CustomerHandler) ListStaff(c *gin.Context) {
	users, err := h.directoryService.ListStaff(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi lấy danh sách nhân viên"})
		return
	}
	c.JSON(http.StatusOK, stripPasswords(users))
}

// GET /api/v1/deleted-users
func (h *CustomerHandler) ListDeletedUsers(c *gin.Context) {
	entries, err := h.directoryService.ListDeletedUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi lấy danh sách khách đã xóa"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

// POST /api/v1/customers/walk-in
func (h *CustomerHandler) RegisterWalkIn(c *gin.Context) {
	var dto domain.RegisterWalkInDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.directoryService.RegisterWalkIn(c.Request.Context(), dto, actorFromContext(c))
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, repository.ErrDuplicateEntry) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể đăng ký khách walk-in", "details": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, user)
}

// POST /api/v1/staff
func (h *CustomerHandler) RegisterStaff(c *gin.Context) {
	var dto domain.RegisterStaffDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.directoryService.RegisterStaff(c.Request.Context(), dto)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, repository.ErrDuplicateEntry) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể tạo tài khoản nhân viên", "details": err.Error()})
		return
	}
	user.Password = null.String{}
	c.JSON(http.StatusCreated, user)
}

// DELETE /api/v1/customers/:id
func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID không hợp lệ"})
		return
	}

	if err := h.directoryService.DeleteCustomer(c.Request.Context(), userID, actorFromContext(c)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy khách hàng để xóa"})
			return
		}
		if errors.Is(err, service.ErrPrecondition) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể xóa khách hàng", "details": err.Error()})
		return
	}
	c.JSON(http.StatusNoContent, nil)
}
