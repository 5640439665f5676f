package domain

import (
	"fmt"
	"time"

	"gopkg.in/guregu/null.v4"
)

// HistoryRecord là bản ghi audit append-only, tạo đúng một lần mỗi khi
// một slot rời trạng thái occupied (kể cả khi bị buộc đóng).
type HistoryRecord struct {
	ID            int       `json:"id"`
	SlotID        int       `json:"slot_id"`
	SlotNumber    string    `json:"slot_number"`
	CustomerID    int       `json:"customer_id"` // Tham chiếu lỏng, có thể trỏ tới bản ghi archive
	VehicleNumber string    `json:"vehicle_number"`
	EntryTime     time.Time `json:"entry_time"`
	ExitTime      time.Time `json:"exit_time"`
	CreatedAt     time.Time `json:"created_at"`
}

// HistoryViewRecord là một dòng trong màn hình lịch sử: gộp các bản ghi
// đã hoàn tất với các phiên đang hoạt động (slot đang occupied).
type HistoryViewRecord struct {
	ID            string      `json:"id"`
	SlotID        int         `json:"slot_id"`
	SlotNumber    string      `json:"slot_number"`
	CustomerID    int         `json:"customer_id"`
	CustomerName  string      `json:"customer_name"`
	CustomerType  string      `json:"customer_type"` // "Walk-in" | "Registered" | "Unknown"
	VehicleNumber string      `json:"vehicle_number"`
	EntryTime     time.Time   `json:"entry_time"`
	ExitTime      null.Time   `json:"exit_time"`
	Duration      string      `json:"duration"`
	Active        bool        `json:"active"`
}

type HistoryFilterDTO struct {
	ActiveOnly bool   `form:"activeOnly"`
	Vehicle    string `form:"vehicle"`
	Customer   string `form:"customer"`
}

// FormatDuration hiển thị khoảng thời gian đỗ dạng "Xh Ym".
// exit trước entry (đồng hồ lệch) hiển thị là "0h 0m".
func FormatDuration(entry, exit time.Time) string {
	d := exit.Sub(entry)
	if d < 0 {
		d = 0
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
