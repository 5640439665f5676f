package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// ArchiveEntry lưu lại snapshot của một người dùng đã bị xóa
// (walk-in rời bãi hoặc khách bị admin xóa). Append-only.
type ArchiveEntry struct {
	ID            int         `json:"id"`
	OriginalID    int         `json:"original_id"`
	Name          string      `json:"name"`
	Email         string      `json:"email"`
	VehicleNumber null.String `json:"vehicle_number"`
	MobileNumber  null.String `json:"mobile_number"`
	CustomerType  null.String `json:"customer_type"`
	DeletedAt     time.Time   `json:"deleted_at"`
	DeletedBy     string      `json:"deleted_by"`
}

// NewArchiveEntry chụp lại các trường của user trước khi xóa.
// Phải gọi với bản ghi đã được fetch sẵn, id đơn thuần là không đủ.
func NewArchiveEntry(user *User, deletedBy string) *ArchiveEntry {
	return &ArchiveEntry{
		OriginalID:    user.ID,
		Name:          user.Name,
		Email:         user.Email,
		VehicleNumber: user.VehicleNumber,
		MobileNumber:  user.MobileNumber,
		CustomerType:  user.CustomerType,
		DeletedAt:     time.Now().UTC(),
		DeletedBy:     deletedBy,
	}
}
