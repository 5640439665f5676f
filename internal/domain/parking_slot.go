package domain

import (
	"sort"
	"strings"
	"time"

	"gopkg.in/guregu/null.v4"
)

type SlotStatus string

const (
	StatusAvailable   SlotStatus = "available"
	StatusOccupied    SlotStatus = "occupied"
	StatusMaintenance SlotStatus = "maintenance"
)

// ParkingSlot giữ bất biến: status=occupied khi và chỉ khi
// BookedByUserID, VehicleNumber và EntryTime đều khác null;
// cả ba đều null khi status là available hoặc maintenance.
type ParkingSlot struct {
	ID             int         `json:"id"`
	SlotNumber     string      `json:"slot_number"` // Nhãn hiển thị, ví dụ "P3", duy nhất
	Status         SlotStatus  `json:"status"`
	BookedByUserID null.Int    `json:"booked_by_user_id"`
	VehicleNumber  null.String `json:"vehicle_number"`
	EntryTime      null.Time   `json:"entry_time"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// IsOccupancyConsistent kiểm tra bất biến chiếm chỗ của slot.
func (s *ParkingSlot) IsOccupancyConsistent() bool {
	if s.Status == StatusOccupied {
		return s.BookedByUserID.Valid && s.VehicleNumber.Valid && s.EntryTime.Valid
	}
	return !s.BookedByUserID.Valid && !s.VehicleNumber.Valid && !s.EntryTime.Valid
}

// SlotNumericSuffix trích phần số của slot_number, dùng cho sắp xếp hiển thị
// (P10 đứng sau P9). Nhãn không chứa chữ số xếp như 0.
func SlotNumericSuffix(slotNumber string) int {
	n := 0
	found := false
	for _, r := range slotNumber {
		if r >= '0' && r <= '9' {
			n = n*10 + int(r-'0')
			found = true
		}
	}
	if !found {
		return 0
	}
	return n
}

type AddCustomSlotDTO struct {
	SlotNumber string `json:"slot_number" binding:"required"`
}

type BookSlotDTO struct {
	// Biển số xe; có thể bỏ trống nếu người dùng đã có biển số lưu sẵn
	VehicleNumber string `json:"vehicle_number"`
}

type BookForWalkInDTO struct {
	CustomerID int `json:"customer_id" binding:"required"`
}

const (
	MaintenanceActionMakeAvailable = "make_available"
	MaintenanceActionDelete        = "delete"
)

type ResolveMaintenanceDTO struct {
	Action string `json:"action" binding:"required,oneof=make_available delete"`
}

type ParkingStatsDTO struct {
	TotalSlots       int `json:"total_slots"`
	AvailableSlots   int `json:"available_slots"`
	OccupiedSlots    int `json:"occupied_slots"`
	MaintenanceSlots int `json:"maintenance_slots"`
	OccupancyRate    int `json:"occupancy_rate"` // Phần trăm, làm tròn
}

// SortSlots sắp xếp theo phần số của slot_number tăng dần, giữ nguyên thứ tự
// chèn khi trùng số (id tự tăng nên danh sách đầu vào đã theo thứ tự chèn).
func SortSlots(slots []ParkingSlot) {
	sort.SliceStable(slots, func(i, j int) bool {
		return SlotNumericSuffix(slots[i].SlotNumber) < SlotNumericSuffix(slots[j].SlotNumber)
	})
}

// NormalizeSlotLabel chuẩn hóa nhãn slot nhập tay: cắt khoảng trắng và viết hoa.
func NormalizeSlotLabel(label string) string {
	return strings.ToUpper(strings.TrimSpace(label))
}
