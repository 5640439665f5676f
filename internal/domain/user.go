package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

const (
	RoleAdmin    = "admin"
	RoleStaff    = "staff"
	RoleCustomer = "customer"
)

const (
	CustomerTypeRegistered = "registered"
	CustomerTypeWalkIn     = "walk-in"
)

type User struct {
	ID           int         `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	Password     null.String `json:"-"` // Password hash, null cho khách walk-in
	Role         string      `json:"role"`
	CustomerType null.String `json:"customer_type,omitempty"` // Chỉ có ý nghĩa với role=customer
	// VehicleNumber là duy nhất trong số người dùng đang hoạt động.
	// Khách đăng ký được gán biển số ở lần đặt chỗ đầu tiên, không phải lúc đăng ký.
	VehicleNumber null.String `json:"vehicle_number"`
	MobileNumber  null.String `json:"mobile_number"`
	RegisteredBy  null.String `json:"registered_by,omitempty"` // Tên nhân viên đã tạo bản ghi walk-in
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Actor là người dùng đang thao tác, lấy từ claims của JWT.
// Luôn truyền tường minh vào các thao tác cần registeredBy/deletedBy.
type Actor struct {
	ID    int
	Name  string
	Email string
	Role  string
}

type RegisterCustomerDTO struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=100"`
}

type LoginUserDTO struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponseDTO struct {
	Token  string `json:"token"`
	UserID int    `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

type RegisterStaffDTO struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=100"`
}

type RegisterWalkInDTO struct {
	VehicleNumber string `json:"vehicle_number" binding:"required"`
	MobileNumber  string `json:"mobile_number" binding:"required"`
}
