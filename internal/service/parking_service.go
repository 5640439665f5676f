package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/guregu/null.v4"

	"parking_lot_system/internal/domain"
	"parking_lot_system/internal/repository"
)

// ParkingService là Slot & Occupancy Manager: CRUD chỗ đỗ, đặt chỗ,
// rời bãi, bảo trì, và các bất biến nhất quán chiếm chỗ giữa chúng.
type ParkingService struct {
	slotRepo    repository.ParkingSlotRepository
	userRepo    repository.UserRepository
	historyRepo repository.ParkingHistoryRepository
	archiveRepo repository.ArchiveRepository
	txManager   repository.TxManager
	notifier    ChangeNotifier
}

func NewParkingService(
	slotRepo repository.ParkingSlotRepository,
	userRepo repository.UserRepository,
	historyRepo repository.ParkingHistoryRepository,
	archiveRepo repository.ArchiveRepository,
	txManager repository.TxManager,
	notifier ChangeNotifier,
) *ParkingService {
	return &ParkingService{
		slotRepo:    slotRepo,
		userRepo:    userRepo,
		historyRepo: historyRepo,
		archiveRepo: archiveRepo,
		txManager:   txManager,
		notifier:    notifier,
	}
}

// --- Slot Registry ---

// GetAllSlots trả về toàn bộ slot theo thứ tự hiển thị: phần số của
// slot_number tăng dần (P10 sau P9), trùng số thì theo thứ tự chèn.
func (s *ParkingService) GetAllSlots(ctx context.Context) ([]domain.ParkingSlot, error) {
	slots, err := s.slotRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	domain.SortSlots(slots)
	return slots, nil
}

func (s *ParkingService) GetStats(ctx context.Context) (*domain.ParkingStatsDTO, error) {
	slots, err := s.slotRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	stats := &domain.ParkingStatsDTO{TotalSlots: len(slots)}
	for _, slot := range slots {
		switch slot.Status {
		case domain.StatusAvailable:
			stats.AvailableSlots++
		case domain.StatusOccupied:
			stats.OccupiedSlots++
		case domain.StatusMaintenance:
			stats.MaintenanceSlots++
		}
	}
	if stats.TotalSlots > 0 {
		stats.OccupancyRate = int(math.Round(float64(stats.OccupiedSlots) / float64(stats.TotalSlots) * 100))
	}
	return stats, nil
}

// AddNextSlot tạo slot kế tiếp theo quy ước "P<n>": lấy max phần số trong
// các slot có nhãn bắt đầu bằng "P" rồi cộng 1 (không lấp khoảng trống:
// {P1, P3} sinh ra P4).
func (s *ParkingService) AddNextSlot(ctx context.Context) (*domain.ParkingSlot, error) {
	slots, err := s.slotRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	maxSuffix := 0
	for _, slot := range slots {
		if strings.HasPrefix(slot.SlotNumber, "P") {
			if n := domain.SlotNumericSuffix(slot.SlotNumber); n > maxSuffix {
				maxSuffix = n
			}
		}
	}
	slotNumber := "P" + strconv.Itoa(maxSuffix+1)

	// Chặn race: số vừa tính có thể đã bị chiếm bởi một lần thêm khác
	existing, err := s.slotRepo.FindBySlotNumber(ctx, slotNumber)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lỗi khi kiểm tra slot '%s': %w", slotNumber, err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: chỗ đỗ '%s' đã tồn tại", repository.ErrDuplicateEntry, slotNumber)
	}

	slot, err := s.slotRepo.Create(ctx, &domain.ParkingSlot{SlotNumber: slotNumber, Status: domain.StatusAvailable})
	if err != nil {
		return nil, err
	}
	s.notifier.NotifyChange(CollectionParkingSlots, "add")
	return slot, nil
}

func (s *ParkingService) AddCustomSlot(ctx context.Context, dto domain.AddCustomSlotDTO) (*domain.ParkingSlot, error) {
	label := domain.NormalizeSlotLabel(dto.SlotNumber)
	if label == "" {
		return nil, fmt.Errorf("%w: nhãn chỗ đỗ không được để trống", ErrValidation)
	}

	slot, err := s.slotRepo.Create(ctx, &domain.ParkingSlot{SlotNumber: label, Status: domain.StatusAvailable})
	if err != nil {
		return nil, err
	}
	s.notifier.NotifyChange(CollectionParkingSlots, "add")
	return slot, nil
}

// DeleteSlot xóa một slot cụ thể; chỉ cho phép khi slot không occupied.
func (s *ParkingService) DeleteSlot(ctx context.Context, slotID int) error {
	slot, err := s.slotRepo.FindByID(ctx, slotID)
	if err != nil {
		return err
	}
	if slot.Status == domain.StatusOccupied {
		return fmt.Errorf("%w: không thể xóa chỗ đỗ đang có xe", ErrPrecondition)
	}
	if err := s.slotRepo.Delete(ctx, slotID); err != nil {
		return err
	}
	s.notifier.NotifyChange(CollectionParkingSlots, "delete")
	return nil
}

// DeleteMostRecentSlot xóa slot được thêm gần nhất (id lớn nhất) bất kể
// trạng thái. LƯU Ý: cố tình bất đối xứng với DeleteSlot (có kiểm tra
// occupied) để giữ tương thích với hành vi đã có; không tự ý hợp nhất
// hai đường xóa khi chưa có quyết định nghiệp vụ.
func (s *ParkingService) DeleteMostRecentSlot(ctx context.Context) error {
	slot, err := s.slotRepo.FindMostRecent(ctx)
	if err != nil {
		return err
	}
	if err := s.slotRepo.Delete(ctx, slot.ID); err != nil {
		return err
	}
	s.notifier.NotifyChange(CollectionParkingSlots, "delete")
	return nil
}

// --- Occupancy State Machine ---

// BookSlot: khách tự đặt một slot available. Guard: khách chưa giữ slot nào
// khác; biển số (chuẩn hóa) không rỗng, không trùng xe đang đỗ, không thuộc
// một khách walk-in khác. Biển số được lưu vào hồ sơ khách ở lần đặt đầu tiên.
func (s *ParkingService) BookSlot(ctx context.Context, slotID int, dto domain.BookSlotDTO, actor domain.Actor) (*domain.ParkingSlot, error) {
	var booked *domain.ParkingSlot
	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		slot, err := s.slotRepo.FindByID(ctx, slotID)
		if err != nil {
			return err
		}
		if slot.Status != domain.StatusAvailable {
			return fmt.Errorf("%w: chỗ đỗ %s hiện không trống", ErrPrecondition, slot.SlotNumber)
		}

		existing, err := s.slotRepo.FindByBookedUser(ctx, actor.ID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("lỗi khi kiểm tra chỗ đỗ hiện tại: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("%w: bạn đang giữ chỗ đỗ %s, mỗi khách chỉ được một chỗ", ErrPrecondition, existing.SlotNumber)
		}

		user, err := s.userRepo.FindByID(ctx, actor.ID)
		if err != nil {
			return fmt.Errorf("lỗi khi tìm khách hàng: %w", err)
		}

		vehicle := domain.NormalizeVehicleNumber(dto.VehicleNumber)
		if vehicle == "" {
			// Không nhập biển số thì dùng biển số đã lưu trong hồ sơ
			vehicle = user.VehicleNumber.ValueOrZero()
		}
		if vehicle == "" {
			return fmt.Errorf("%w: biển số xe không hợp lệ", ErrValidation)
		}

		if err := s.guardVehicleFree(ctx, vehicle, user.ID); err != nil {
			return err
		}

		if err := s.slotRepo.Occupy(ctx, slot.ID, user.ID, vehicle, time.Now().UTC()); err != nil {
			return err
		}
		if !user.VehicleNumber.Valid {
			if err := s.userRepo.UpdateVehicleNumber(ctx, user.ID, vehicle); err != nil {
				return err
			}
		}

		booked, err = s.slotRepo.FindByID(ctx, slot.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyChange(CollectionParkingSlots, "update")
	s.notifier.NotifyChange(CollectionUsers, "update")
	return booked, nil
}

// BookForWalkIn: nhân viên đặt một slot available cho khách walk-in đã đăng
// ký, dùng biển số lưu trên bản ghi khách. Request có kiểu tường minh thay
// cho prompt nhập tay.
func (s *ParkingService) BookForWalkIn(ctx context.Context, slotID int, dto domain.BookForWalkInDTO, actor domain.Actor) (*domain.ParkingSlot, error) {
	var booked *domain.ParkingSlot
	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		slot, err := s.slotRepo.FindByID(ctx, slotID)
		if err != nil {
			return err
		}
		if slot.Status != domain.StatusAvailable {
			return fmt.Errorf("%w: chỗ đỗ %s hiện không trống", ErrPrecondition, slot.SlotNumber)
		}

		customer, err := s.userRepo.FindByID(ctx, dto.CustomerID)
		if err != nil {
			return fmt.Errorf("lỗi khi tìm khách walk-in: %w", err)
		}
		if !customer.CustomerType.Valid || customer.CustomerType.String != domain.CustomerTypeWalkIn {
			return fmt.Errorf("%w: người dùng %d không phải khách walk-in", ErrValidation, dto.CustomerID)
		}

		existing, err := s.slotRepo.FindByBookedUser(ctx, customer.ID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("lỗi khi kiểm tra chỗ đỗ hiện tại: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("%w: khách đang giữ chỗ đỗ %s", ErrPrecondition, existing.SlotNumber)
		}

		vehicle := customer.VehicleNumber.ValueOrZero()
		if vehicle == "" {
			return fmt.Errorf("%w: khách walk-in chưa có biển số", ErrValidation)
		}

		occupied, err := s.slotRepo.FindOccupiedByVehicle(ctx, vehicle)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("lỗi khi kiểm tra biển số: %w", err)
		}
		if occupied != nil {
			return fmt.Errorf("%w: xe '%s' đang đỗ tại chỗ %s", repository.ErrDuplicateEntry, vehicle, occupied.SlotNumber)
		}

		if err := s.slotRepo.Occupy(ctx, slot.ID, customer.ID, vehicle, time.Now().UTC()); err != nil {
			return err
		}

		booked, err = s.slotRepo.FindByID(ctx, slot.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyChange(CollectionParkingSlots, "update")
	return booked, nil
}

// guardVehicleFree chặn biển số đang được dùng ở nơi khác: một slot occupied
// bất kỳ, hoặc hồ sơ của một khách walk-in khác với người đang đặt.
func (s *ParkingService) guardVehicleFree(ctx context.Context, vehicle string, bookingUserID int) error {
	occupied, err := s.slotRepo.FindOccupiedByVehicle(ctx, vehicle)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("lỗi khi kiểm tra biển số trên các chỗ đỗ: %w", err)
	}
	if occupied != nil {
		return fmt.Errorf("%w: xe '%s' đang đỗ tại chỗ %s", repository.ErrDuplicateEntry, vehicle, occupied.SlotNumber)
	}

	owner, err := s.userRepo.FindByVehicleNumber(ctx, vehicle)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("lỗi khi kiểm tra biển số trong danh bạ: %w", err)
	}
	if owner != nil && owner.ID != bookingUserID &&
		owner.CustomerType.Valid && owner.CustomerType.String == domain.CustomerTypeWalkIn {
		return fmt.Errorf("%w: biển số '%s' đã thuộc về một khách walk-in", repository.ErrDuplicateEntry, vehicle)
	}
	return nil
}

// ExitSlot đóng phiên đỗ của một slot occupied: ghi đúng một HistoryRecord,
// archive + xóa bản ghi khách nếu là walk-in, rồi đưa slot về available.
// Chạy trong một transaction — lỗi ở bất kỳ bước nào thì không có gì được ghi.
func (s *ParkingService) ExitSlot(ctx context.Context, slotID int, actor domain.Actor) (*domain.ParkingSlot, error) {
	var (
		freed         *domain.ParkingSlot
		walkInDeleted bool
	)
	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		slot, err := s.slotRepo.FindByID(ctx, slotID)
		if err != nil {
			return err
		}
		if slot.Status != domain.StatusOccupied {
			return fmt.Errorf("%w: chỗ đỗ %s không có xe đang đỗ", ErrPrecondition, slot.SlotNumber)
		}

		var occupant *domain.User
		if slot.BookedByUserID.Valid {
			occupant, err = s.userRepo.FindByID(ctx, int(slot.BookedByUserID.Int64))
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("lỗi khi tìm khách đang đỗ: %w", err)
			}
		}

		if err := closeOccupancy(ctx, s.historyRepo, s.slotRepo, slot, time.Now().UTC()); err != nil {
			return err
		}

		// Walk-in là bản ghi tạm: rời bãi thì archive rồi xóa.
		// Khách đăng ký chỉ bị gỡ đặt chỗ, tài khoản giữ nguyên.
		if occupant != nil && occupant.CustomerType.Valid && occupant.CustomerType.String == domain.CustomerTypeWalkIn {
			deletedBy := actor.Name
			if deletedBy == "" {
				deletedBy = "Staff"
			}
			if err := archiveAndDeleteUser(ctx, s.userRepo, s.archiveRepo, occupant, deletedBy); err != nil {
				return err
			}
			walkInDeleted = true
		}

		freed, err = s.slotRepo.FindByID(ctx, slot.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyChange(CollectionParkingSlots, "update")
	s.notifier.NotifyChange(CollectionHistory, "add")
	if walkInDeleted {
		s.notifier.NotifyChange(CollectionUsers, "delete")
		s.notifier.NotifyChange(CollectionDeletedUsers, "add")
	}
	return freed, nil
}

// ToggleMaintenance đảo available <-> maintenance. Slot occupied không
// chuyển được; các trường chiếm chỗ vốn đã null ở cả hai trạng thái.
func (s *ParkingService) ToggleMaintenance(ctx context.Context, slotID int, actor domain.Actor) (*domain.ParkingSlot, error) {
	slot, err := s.slotRepo.FindByID(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if slot.Status == domain.StatusOccupied {
		return nil, fmt.Errorf("%w: chỗ đỗ %s đang có xe, không chuyển bảo trì được", ErrPrecondition, slot.SlotNumber)
	}

	newStatus := domain.StatusMaintenance
	if slot.Status == domain.StatusMaintenance {
		newStatus = domain.StatusAvailable
	}
	if err := s.slotRepo.UpdateStatus(ctx, slot.ID, newStatus); err != nil {
		return nil, err
	}
	s.notifier.NotifyChange(CollectionParkingSlots, "update")
	slot.Status = newStatus
	return slot, nil
}

// ResolveMaintenance xử lý một slot đang bảo trì: đưa về available hoặc
// xóa vĩnh viễn.
func (s *ParkingService) ResolveMaintenance(ctx context.Context, slotID int, dto domain.ResolveMaintenanceDTO, actor domain.Actor) error {
	slot, err := s.slotRepo.FindByID(ctx, slotID)
	if err != nil {
		return err
	}
	if slot.Status != domain.StatusMaintenance {
		return fmt.Errorf("%w: chỗ đỗ %s không ở trạng thái bảo trì", ErrPrecondition, slot.SlotNumber)
	}

	switch dto.Action {
	case domain.MaintenanceActionMakeAvailable:
		if err := s.slotRepo.UpdateStatus(ctx, slot.ID, domain.StatusAvailable); err != nil {
			return err
		}
		s.notifier.NotifyChange(CollectionParkingSlots, "update")
	case domain.MaintenanceActionDelete:
		if err := s.slotRepo.Delete(ctx, slot.ID); err != nil {
			return err
		}
		s.notifier.NotifyChange(CollectionParkingSlots, "delete")
	default:
		return fmt.Errorf("%w: hành động '%s' không hợp lệ", ErrValidation, dto.Action)
	}
	return nil
}

// --- Lịch sử ---

// ListHistory gộp các bản ghi đã hoàn tất với các phiên đang hoạt động
// (slot occupied), tra tên khách từ danh bạ và archive; thiếu cả hai thì
// hiển thị "Unknown Customer".
func (s *ParkingService) ListHistory(ctx context.Context, filter domain.HistoryFilterDTO) ([]domain.HistoryViewRecord, error) {
	records, err := s.historyRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	occupied, err := s.slotRepo.FindByStatus(ctx, domain.StatusOccupied)
	if err != nil {
		return nil, err
	}
	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	archived, err := s.archiveRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	names := make(map[int]string, len(users))
	types := make(map[int]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
		types[u.ID] = u.CustomerType.ValueOrZero()
	}
	for _, a := range archived {
		if _, ok := names[a.OriginalID]; !ok {
			names[a.OriginalID] = a.Name
			types[a.OriginalID] = a.CustomerType.ValueOrZero()
		}
	}

	now := time.Now().UTC()
	view := make([]domain.HistoryViewRecord, 0, len(records)+len(occupied))
	for _, rec := range records {
		view = append(view, domain.HistoryViewRecord{
			ID:            fmt.Sprintf("history-%d", rec.ID),
			SlotID:        rec.SlotID,
			SlotNumber:    rec.SlotNumber,
			CustomerID:    rec.CustomerID,
			CustomerName:  customerNameOf(names, rec.CustomerID),
			CustomerType:  customerTypeLabel(types, rec.CustomerID),
			VehicleNumber: rec.VehicleNumber,
			EntryTime:     rec.EntryTime,
			ExitTime:      null.TimeFrom(rec.ExitTime),
			Duration:      domain.FormatDuration(rec.EntryTime, rec.ExitTime),
			Active:        false,
		})
	}
	for _, slot := range occupied {
		customerID := int(slot.BookedByUserID.Int64)
		view = append(view, domain.HistoryViewRecord{
			ID:            fmt.Sprintf("active-%d", slot.ID),
			SlotID:        slot.ID,
			SlotNumber:    slot.SlotNumber,
			CustomerID:    customerID,
			CustomerName:  customerNameOf(names, customerID),
			CustomerType:  customerTypeLabel(types, customerID),
			VehicleNumber: slot.VehicleNumber.ValueOrZero(),
			EntryTime:     slot.EntryTime.Time,
			Duration:      domain.FormatDuration(slot.EntryTime.Time, now),
			Active:        true,
		})
	}

	filtered := view[:0]
	vehicleTerm := strings.ToLower(strings.TrimSpace(filter.Vehicle))
	customerTerm := strings.ToLower(strings.TrimSpace(filter.Customer))
	for _, rec := range view {
		if filter.ActiveOnly && !rec.Active {
			continue
		}
		if vehicleTerm != "" && !strings.Contains(strings.ToLower(rec.VehicleNumber), vehicleTerm) {
			continue
		}
		if customerTerm != "" && !strings.Contains(strings.ToLower(rec.CustomerName), customerTerm) {
			continue
		}
		filtered = append(filtered, rec)
	}

	// Mới nhất lên đầu, theo exit_time nếu có, không thì entry_time
	sort.SliceStable(filtered, func(i, j int) bool {
		return sortKeyOf(filtered[i]).After(sortKeyOf(filtered[j]))
	})
	return filtered, nil
}

func sortKeyOf(rec domain.HistoryViewRecord) time.Time {
	if rec.ExitTime.Valid {
		return rec.ExitTime.Time
	}
	return rec.EntryTime
}

func customerNameOf(names map[int]string, customerID int) string {
	if name, ok := names[customerID]; ok {
		return name
	}
	return "Unknown Customer"
}

func customerTypeLabel(types map[int]string, customerID int) string {
	switch types[customerID] {
	case domain.CustomerTypeWalkIn:
		return "Walk-in"
	case domain.CustomerTypeRegistered:
		return "Registered"
	default:
		return "Unknown"
	}
}
