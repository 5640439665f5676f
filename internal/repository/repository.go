package repository

import (
	"context"
	"errors"
	"time"

	"parking_lot_system/internal/domain"
)

var ErrNotFound = errors.New("không tìm thấy bản ghi")
var ErrDuplicateEntry = errors.New("bản ghi đã tồn tại")

// TxManager gom nhiều thao tác repository thành một đơn vị công việc:
// fn trả về lỗi thì mọi ghi chép trong fn bị hủy bỏ, không còn ghi nửa chừng
// (chuỗi exit: thêm history + thêm archive + xóa user + cập nhật slot).
type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id int) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// FindByVehicleNumber so khớp trên biển số đã chuẩn hóa
	FindByVehicleNumber(ctx context.Context, vehicleNumber string) (*domain.User, error)
	FindByRole(ctx context.Context, role string) ([]domain.User, error)
	FindByCustomerType(ctx context.Context, customerType string) ([]domain.User, error)
	FindAll(ctx context.Context) ([]domain.User, error)
	Count(ctx context.Context) (int, error)
	UpdateVehicleNumber(ctx context.Context, id int, vehicleNumber string) error
	Delete(ctx context.Context, id int) error
}

type ParkingSlotRepository interface {
	Create(ctx context.Context, slot *domain.ParkingSlot) (*domain.ParkingSlot, error)
	FindByID(ctx context.Context, id int) (*domain.ParkingSlot, error)
	FindBySlotNumber(ctx context.Context, slotNumber string) (*domain.ParkingSlot, error)
	FindAll(ctx context.Context) ([]domain.ParkingSlot, error)
	FindByStatus(ctx context.Context, status domain.SlotStatus) ([]domain.ParkingSlot, error)
	// FindByBookedUser trả về slot đang được user đặt, ErrNotFound nếu không có
	FindByBookedUser(ctx context.Context, userID int) (*domain.ParkingSlot, error)
	// FindOccupiedByVehicle tìm slot occupied đang giữ biển số (đã chuẩn hóa)
	FindOccupiedByVehicle(ctx context.Context, vehicleNumber string) (*domain.ParkingSlot, error)
	// FindMostRecent trả về slot có id lớn nhất (được thêm gần nhất)
	FindMostRecent(ctx context.Context) (*domain.ParkingSlot, error)
	// Occupy chuyển slot sang occupied kèm đủ ba trường chiếm chỗ
	Occupy(ctx context.Context, id int, userID int, vehicleNumber string, entryTime time.Time) error
	// Release xóa ba trường chiếm chỗ và đưa slot về available
	Release(ctx context.Context, id int) error
	UpdateStatus(ctx context.Context, id int, status domain.SlotStatus) error
	Delete(ctx context.Context, id int) error
}

type ParkingHistoryRepository interface {
	Create(ctx context.Context, record *domain.HistoryRecord) (*domain.HistoryRecord, error)
	FindAll(ctx context.Context) ([]domain.HistoryRecord, error)
}

type ArchiveRepository interface {
	Create(ctx context.Context, entry *domain.ArchiveEntry) (*domain.ArchiveEntry, error)
	FindAll(ctx context.Context) ([]domain.ArchiveEntry, error)
	FindByOriginalID(ctx context.Context, originalID int) (*domain.ArchiveEntry, error)
}
