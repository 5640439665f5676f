package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parking_lot_system/internal/domain"
	"parking_lot_system/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/guregu/null.v4"
)

// DirectoryService quản lý danh bạ người dùng: khách đăng ký, khách walk-in,
// nhân viên, và archive của những người dùng đã bị xóa.
type DirectoryService struct {
	userRepo    repository.UserRepository
	slotRepo    repository.ParkingSlotRepository
	historyRepo repository.ParkingHistoryRepository
	archiveRepo repository.ArchiveRepository
	txManager   repository.TxManager
	notifier    ChangeNotifier
}

func NewDirectoryService(
	userRepo repository.UserRepository,
	slotRepo repository.ParkingSlotRepository,
	historyRepo repository.ParkingHistoryRepository,
	archiveRepo repository.ArchiveRepository,
	txManager repository.TxManager,
	notifier ChangeNotifier,
) *DirectoryService {
	return &DirectoryService{
		userRepo:    userRepo,
		slotRepo:    slotRepo,
		historyRepo: historyRepo,
		archiveRepo: archiveRepo,
		txManager:   txManager,
		notifier:    notifier,
	}
}

func (s *DirectoryService) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.userRepo.FindByEmail(ctx, email)
}

// FindByNormalizedVehicle chuẩn hóa biển số rồi tra trong danh bạ.
func (s *DirectoryService) FindByNormalizedVehicle(ctx context.Context, vehicleNumber string) (*domain.User, error) {
	normalized := domain.NormalizeVehicleNumber(vehicleNumber)
	if normalized == "" {
		return nil, fmt.Errorf("%w: biển số xe không hợp lệ", ErrValidation)
	}
	return s.userRepo.FindByVehicleNumber(ctx, normalized)
}

func (s *DirectoryService) ListCustomers(ctx context.Context) ([]domain.User, error) {
	return s.userRepo.FindByRole(ctx, domain.RoleCustomer)
}

func (s *DirectoryService) ListStaff(ctx context.Context) ([]domain.User, error) {
	return s.userRepo.FindByRole(ctx, domain.RoleStaff)
}

func (s *DirectoryService) ListWalkIns(ctx context.Context) ([]domain.User, error) {
	return s.userRepo.FindByCustomerType(ctx, domain.CustomerTypeWalkIn)
}

func (s *DirectoryService) ListDeletedUsers(ctx context.Context) ([]domain.ArchiveEntry, error) {
	return s.archiveRepo.FindAll(ctx)
}

// RegisterWalkIn tạo bản ghi khách vãng lai. Chặn đăng ký trùng biển số:
// cả trong danh bạ người dùng đang hoạt động lẫn trên các slot đang occupied.
func (s *DirectoryService) RegisterWalkIn(ctx context.Context, dto domain.RegisterWalkInDTO, actor domain.Actor) (*domain.User, error) {
	normalized := domain.NormalizeVehicleNumber(dto.VehicleNumber)
	if normalized == "" {
		return nil, fmt.Errorf("%w: biển số xe không hợp lệ", ErrValidation)
	}

	existing, err := s.userRepo.FindByVehicleNumber(ctx, normalized)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lỗi khi kiểm tra biển số: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: biển số '%s' đã được đăng ký", repository.ErrDuplicateEntry, normalized)
	}

	occupiedSlot, err := s.slotRepo.FindOccupiedByVehicle(ctx, normalized)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lỗi khi kiểm tra chỗ đỗ: %w", err)
	}
	if occupiedSlot != nil {
		return nil, fmt.Errorf("%w: xe '%s' đang đỗ tại chỗ %s", repository.ErrDuplicateEntry, normalized, occupiedSlot.SlotNumber)
	}

	registeredBy := actor.Name
	if registeredBy == "" {
		registeredBy = "Staff"
	}

	user := &domain.User{
		Name: fmt.Sprintf("Walk-in (%s)", normalized),
		// Email giả nhưng duy nhất để thỏa ràng buộc unique trên cột email
		Email:         fmt.Sprintf("walkin-%s@parking.system", uuid.NewString()),
		Role:          domain.RoleCustomer,
		CustomerType:  null.StringFrom(domain.CustomerTypeWalkIn),
		VehicleNumber: null.StringFrom(normalized),
		MobileNumber:  null.StringFrom(dto.MobileNumber),
		RegisteredBy:  null.StringFrom(registeredBy),
	}

	createdUser, err := s.userRepo.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("lỗi khi tạo khách walk-in: %w", err)
	}
	s.notifier.NotifyChange(CollectionUsers, "add")
	return createdUser, nil
}

// RegisterStaff tạo tài khoản nhân viên. Biển số placeholder STAFF-<email>
// chỉ để thỏa unique index trên vehicle_number, không phải thuộc tính
// nghiệp vụ của nhân viên.
func (s *DirectoryService) RegisterStaff(ctx context.Context, dto domain.RegisterStaffDTO) (*domain.User, error) {
	if dto.Name == "" || dto.Email == "" || dto.Password == "" {
		return nil, fmt.Errorf("%w: cần đủ tên, email và mật khẩu", ErrValidation)
	}

	existingUser, err := s.userRepo.FindByEmail(ctx, dto.Email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lỗi khi kiểm tra người dùng: %w", err)
	}
	if existingUser != nil {
		return nil, fmt.Errorf("%w: email '%s' đã tồn tại", repository.ErrDuplicateEntry, dto.Email)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("lỗi hash mật khẩu: %w", err)
	}

	user := &domain.User{
		Name:          dto.Name,
		Email:         dto.Email,
		Password:      null.StringFrom(string(hashedPassword)),
		Role:          domain.RoleStaff,
		VehicleNumber: null.StringFrom("STAFF-" + dto.Email),
	}

	createdUser, err := s.userRepo.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("lỗi khi tạo nhân viên: %w", err)
	}
	s.notifier.NotifyChange(CollectionUsers, "add")
	createdUser.Password = null.String{}
	return createdUser, nil
}

// DeleteCustomer là đường xóa của admin: nếu khách đang giữ một slot occupied
// thì buộc đóng phiên đỗ (ghi history, giải phóng slot) trước, sau đó snapshot
// sang archive rồi xóa bản ghi user. Toàn bộ chạy trong một transaction.
func (s *DirectoryService) DeleteCustomer(ctx context.Context, userID int, actor domain.Actor) error {
	var freedSlot bool
	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		user, err := s.userRepo.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if user.Role != domain.RoleCustomer {
			return fmt.Errorf("%w: chỉ xóa được tài khoản khách hàng", ErrPrecondition)
		}

		slot, err := s.slotRepo.FindByBookedUser(ctx, userID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("lỗi khi kiểm tra chỗ đỗ của khách: %w", err)
		}
		if slot != nil && slot.Status == domain.StatusOccupied {
			if err := closeOccupancy(ctx, s.historyRepo, s.slotRepo, slot, time.Now().UTC()); err != nil {
				return err
			}
			freedSlot = true
		}

		deletedBy := actor.Name
		if deletedBy == "" {
			deletedBy = "Admin"
		}
		return archiveAndDeleteUser(ctx, s.userRepo, s.archiveRepo, user, deletedBy)
	})
	if err != nil {
		return err
	}

	s.notifier.NotifyChange(CollectionUsers, "delete")
	s.notifier.NotifyChange(CollectionDeletedUsers, "add")
	if freedSlot {
		s.notifier.NotifyChange(CollectionParkingSlots, "update")
		s.notifier.NotifyChange(CollectionHistory, "add")
	}
	return nil
}

// archiveAndDeleteUser chụp snapshot user vào archive rồi xóa bản ghi gốc.
// Phải gọi với user đã fetch sẵn; đúng một ArchiveEntry mỗi lần xóa.
func archiveAndDeleteUser(ctx context.Context, userRepo repository.UserRepository, archiveRepo repository.ArchiveRepository, user *domain.User, deletedBy string) error {
	if _, err := archiveRepo.Create(ctx, domain.NewArchiveEntry(user, deletedBy)); err != nil {
		return fmt.Errorf("lỗi khi ghi archive: %w", err)
	}
	if err := userRepo.Delete(ctx, user.ID); err != nil {
		return fmt.Errorf("lỗi khi xóa người dùng: %w", err)
	}
	return nil
}

// closeOccupancy ghi đúng một HistoryRecord cho phiên đỗ đang mở rồi
// giải phóng slot. Dùng chung cho exit thường và buộc đóng khi xóa khách.
func closeOccupancy(ctx context.Context, historyRepo repository.ParkingHistoryRepository, slotRepo repository.ParkingSlotRepository, slot *domain.ParkingSlot, exitTime time.Time) error {
	if slot.BookedByUserID.Valid && slot.EntryTime.Valid {
		record := &domain.HistoryRecord{
			SlotID:        slot.ID,
			SlotNumber:    slot.SlotNumber,
			CustomerID:    int(slot.BookedByUserID.Int64),
			VehicleNumber: slot.VehicleNumber.ValueOrZero(),
			EntryTime:     slot.EntryTime.Time,
			ExitTime:      exitTime,
		}
		if _, err := historyRepo.Create(ctx, record); err != nil {
			return fmt.Errorf("lỗi khi ghi lịch sử đỗ xe: %w", err)
		}
	}
	if err := slotRepo.Release(ctx, slot.ID); err != nil {
		return fmt.Errorf("lỗi khi giải phóng chỗ đỗ: %w", err)
	}
	return nil
}
