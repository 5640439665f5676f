package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"

	"parking_lot_system/internal/domain"
	"parking_lot_system/internal/repository"
	"parking_lot_system/internal/repository/memory"
	"parking_lot_system/internal/service"
)

func newParkingService(store *memory.Store) *service.ParkingService {
	return service.NewParkingService(
		store.Slots(), store.Users(), store.History(), store.Archive(),
		store.TxManager(), service.NopNotifier{},
	)
}

func seedCustomer(t *testing.T, store *memory.Store, name, email string) *domain.User {
	t.Helper()
	user, err := store.Users().Create(context.Background(), &domain.User{
		Name:         name,
		Email:        email,
		Role:         domain.RoleCustomer,
		CustomerType: null.StringFrom(domain.CustomerTypeRegistered),
	})
	require.NoError(t, err)
	return user
}

func seedWalkIn(t *testing.T, store *memory.Store, vehicle string) *domain.User {
	t.Helper()
	user, err := store.Users().Create(context.Background(), &domain.User{
		Name:          "Walk-in (" + vehicle + ")",
		Email:         "walkin-" + vehicle + "@parking.system",
		Role:          domain.RoleCustomer,
		CustomerType:  null.StringFrom(domain.CustomerTypeWalkIn),
		VehicleNumber: null.StringFrom(vehicle),
		RegisteredBy:  null.StringFrom("Staff"),
	})
	require.NoError(t, err)
	return user
}

func seedSlot(t *testing.T, store *memory.Store, label string) *domain.ParkingSlot {
	t.Helper()
	slot, err := store.Slots().Create(context.Background(), &domain.ParkingSlot{SlotNumber: label})
	require.NoError(t, err)
	return slot
}

func actorOf(user *domain.User) domain.Actor {
	return domain.Actor{ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role}
}

var staffActor = domain.Actor{ID: 99, Name: "Nhan Vien A", Email: "staff@parking.system", Role: domain.RoleStaff}

func TestAddNextSlot_SkipsGaps(t *testing.T) {
	store := memory.NewStore()
	ps := newParkingService(store)
	seedSlot(t, store, "P1")
	seedSlot(t, store, "P3")

	slot, err := ps.AddNextSlot(context.Background())
	require.NoError(t, err)
	// max+1, không lấp khoảng trống P2
	assert.Equal(t, "P4", slot.SlotNumber)
	assert.Equal(t, domain.StatusAvailable, slot.Status)
}

func TestAddNextSlot_IgnoresCustomLabels(t *testing.T) {
	store := memory.NewStore()
	ps := newParkingService(store)
	seedSlot(t, store, "B7")
	seedSlot(t, store, "P2")

	slot, err := ps.AddNextSlot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "P3", slot.SlotNumber)
}

func TestAddCustomSlot(t *testing.T) {
	store := memory.NewStore()
	ps := newParkingService(store)

	slot, err := ps.AddCustomSlot(context.Background(), domain.AddCustomSlotDTO{SlotNumber: "  b2 "})
	require.NoError(t, err)
	assert.Equal(t, "B2", slot.SlotNumber)

	_, err = ps.AddCustomSlot(context.Background(), domain.AddCustomSlotDTO{SlotNumber: "b2"})
	assert.ErrorIs(t, err, repository.ErrDuplicateEntry)

	_, err = ps.AddCustomSlot(context.Background(), domain.AddCustomSlotDTO{SlotNumber: "   "})
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestGetAllSlots_SortedByNumericSuffix(t *testing.T) {
	store := memory.NewStore()
	ps := newParkingService(store)
	seedSlot(t, store, "P10")
	seedSlot(t, store, "P2")

	slots, err := ps.GetAllSlots(context.Background())
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "P2", slots[0].SlotNumber)
	assert.Equal(t, "P10", slots[1].SlotNumber)
}

func TestBookSlot_NormalizesAndStoresVehicle(t *testing.T) {
	store := memory.NewStore()
	ps := newParkingService(store)
	customer := seedCustomer(t, store, "Nguyen Van An", "an@example.com")
	slot := seedSlot(t, store, "P1")

	booked, err := ps.BookSlot(context.Background(), slot.ID, domain.BookSlotDTO{VehicleNumber: "ka-01 ab1234"}, actorOf(customer))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusOccupied, booked.Status)
	assert.Equal(t, "KA01AB1234", booked.VehicleNumber.String)
	assert.Equal(t, int64(customer.ID), booked.BookedByUserID.Int64)
	assert.True(t, booked.EntryTime.Valid)
	assert.True(t, booked.IsOccupancyConsistent())

	// Biển số được gắn vào hồ sơ khách ở lần đặt đầu tiên
	updated, err := store.Users().FindByID(context.Background(), customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "KA01AB1234", updated.VehicleNumber.String)
}

func TestBookSlot_UsesStoredVehicleWhenEmpty(t *testing.T) {
	store := memory.NewStore()
	ps := newParkingService(store)
	customer := seedCustomer(t, store, "Nguyen Van An", "an@example.com")
	require.NoError(t, store.Users().UpdateVehicleNumber(context.Background(), customer.ID, "KA01AB1234"))
	slot := seedSlot(t, store, "P1")

	booked, err := ps.BookSlot(context.Background(), slot.ID, domain.BookSlotDTO{}, actorOf(customer))
	require.NoError(t, err)
	assert.Equal(t, "KA01AB1234", booked.VehicleNumber.String)
}

func TestBookSlot_EmptyVehicleRejected(t *testing.T) {
	store := memory.NewStore()
	ps := newParkingService(store)
	customer := seedCustomer(t, store, "Nguyen Van An", "an@example.com")
	slot := seedSlot(t, store, "P1")

	_, err := ps.BookSlot(context.Background(), slot.ID, domain.BookSlotDTO{VehicleNumber: " -- "}, actorOf(customer))
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestBookSlot_SecondBookingRejected(t *testing.T) {
	store := memory.NewStore()
	ps := newParkingService(store)
	customer := seedCustomer(t, store, "Nguyen Van An", "an@example.com")
	first := seedSlot(t, store, "P1")
	second := seedSlot(t, store, "P2")

	_, err := ps.BookSlot(context.Background(), first.ID, domain.BookSlotDTO{VehicleNumber: "KA01AB1234"}, actorOf(customer))
	require.NoError(t, err)

	_, err = ps.BookSlot(context.Background(), second.ID, domain.BookSlotDTO{VehicleNumber: "KA02CD5678"}, actorOf(customer))
	assert.ErrorIs(t, err, service.ErrPrecondition)
}

func TestBookSlot_DuplicateVehicleRejected(t *testing.T) {
	store := memory.NewStore()
	ps := newParkingService(store)
	first := seedCustomer(t, store, "Nguyen Van An", "an@example.com")
	second := seedCustomer(t, store, "Tran Thi Binh", "binh@example.com")
	slotA := seedSlot(t, store, "P1")
	slotB := seedSlot(t, store, "P2")

	_, err := ps.BookSlot(context.Background(), slotA.ID, domain.BookSlotDTO{VehicleNumber: "KA01AB1234"}, actorOf(first))
	require.NoError(t, err)

	// Cùng biển số ở dạng chưa chuẩn hóa vẫn phải bị chặn
	_, err = ps.BookSlot(context.Background(), slotB.ID, domain.BookSlotDTO{VehicleNumber: "ka-01 ab1234"}, actorOf(second))
	assert.ErrorIs(t, err, repository.ErrDuplicateEntry)
}

func TestBookSlot_WalkInHeldVehicleRejected(t *testing.T) {
	store := memory.NewStore()
	ps := newParkingService(store)
	seedWalkIn(t, store, "KA01AB1234")
	customer := seedCustomer(t, store, "Nguyen Van An", "an@example.com")
	slot := seedSlot(t, store, "P1")

	_, err := ps.BookSlot(context.Background(), slot.ID, domain.BookSlotDTO{VehicleNumber: "KA01AB1234"}, actorOf(customer))
	assert.ErrorIs(t, err, repository.ErrDuplicateEntry)
}

func TestBookSlot_UnavailableSlotRejected(t *testing.T) {
	store := memory.NewStore()
	ps := newParkingService(store)
	customer := seedCustomer(t, store, "Nguyen Van An", "an@example.com")
	slot := seedSlot(t, store, "P1")
	require.NoError(t, store.Slots().UpdateStatus(context.Background(), slot.ID, domain.StatusMaintenance))

	_, err := ps.BookSlot(context.Background(), slot.ID, domain.BookSlotDTO{VehicleNumber: "KA01AB1234"}, actorOf(customer))
	assert.ErrorIs(t, err, service.ErrPrecondition)
}

func TestBookForWalkIn(t *testing.T) {
	store := memory.NewStore()
	ps := newParkingService(store)
	walkIn := seedWalkIn(t, store, "MH12XY99")
	slot := seedSlot(t, store, "P1")

	booked, err := ps.BookForWalkIn(context.Background(), slot.ID, domain.BookForWalkInDTO{CustomerID: walkIn.ID}, staffActor)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOccupied, booked.Status)
	assert.Equal(t, "MH12XY99", booked.VehicleNumber.String)
	assert.Equal(t, int64(walkIn.ID), booked.BookedByUserID.Int64)
}

func TestBookForWalkIn_RegisteredCustomerRejected(t *testing.T) {
	store := memory.NewStore()
	ps := newParkingService(store)
	customer := seedCustomer(t, store, "Nguyen Van An", "an@example.com")
	slot := seedSlot(t, store, "P1")

	_, err := ps.BookForWalkIn(context.Background(), slot.ID, domain.BookForWalkInDTO{CustomerID: customer.ID}, staffActor)
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestExitSlot_RegisteredCustomer(t *testing.T) {
	store := memory.NewStore()
	ps := newParkingService(store)
	customer := seedCustomer(t, store, "Nguyen Van An", "an@example.com")
	slot := seedSlot(t, store, "P1")
	_, err := ps.BookSlot(context.Background(), slot.ID, domain.BookSlotDTO{VehicleNumber: "KA01AB1234"}, actorOf(customer))
	require.NoError(t, err)

	freed, err := ps.ExitSlot(context.Background(), slot.ID, staffActor)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusAvailable, freed.Status)
	assert.True(t, freed.IsOccupancyConsistent())

	records, err := store.History().FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "KA01AB1234", records[0].VehicleNumber)
	assert.Equal(t, customer.ID, records[0].CustomerID)
	assert.Equal(t, "P1", records[0].SlotNumber)
	assert.False(t, records[0].ExitTime.Before(records[0].EntryTime))

	// Khách đăng ký vẫn còn trong danh bạ sau khi rời bãi
	_, err = store.Users().FindByID(context.Background(), customer.ID)
	assert.NoError(t, err)
}

func TestExitSlot_WalkInArchivedAndDeleted(t *testing.T) {
	store := memory.NewStore()
	ps := newParkingService(store)
	walkIn := seedWalkIn(t, store, "MH12XY99")
	slot := seedSlot(t, store, "P1")
	_, err := ps.BookForWalkIn(context.Background(), slot.ID, domain.BookForWalkInDTO{CustomerID: walkIn.ID}, staffActor)
	require.NoError(t, err)

	_, err = ps.ExitSlot(context.Background(), slot.ID, staffActor)
	require.NoError(t, err)

	// Bản ghi walk-in bị xóa khỏi danh bạ, snapshot nằm trong archive
	_, err = store.Users().FindByID(context.Background(), walkIn.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	entry, err := store.Archive().FindByOriginalID(context.Background(), walkIn.ID)
	require.NoError(t, err)
	assert.Equal(t, walkIn.Name, entry.Name)
	assert.Equal(t, "MH12XY99", entry.VehicleNumber.String)
	assert.Equal(t, staffActor.Name, entry.DeletedBy)

	records, err := store.History().FindAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestExitSlot_NotOccupiedRejected(t *testing.T) {
	store := memory.NewStore()
	ps := newParkingService(store)
	slot := seedSlot(t, store, "P1")

	_, err := ps.ExitSlot(context.Background(), slot.ID, staffActor)
	assert.ErrorIs(t, err, service.ErrPrecondition)
}

// failingHistoryRepo giả lập lỗi I/O ở bước ghi lịch sử.
type failingHistoryRepo struct {
	repository.ParkingHistoryRepository
}

func (f failingHistoryRepo) Create(context.Context, *domain.HistoryRecord) (*domain.HistoryRecord, error) {
	return nil, errors.New("ghi lịch sử thất bại")
}

func TestExitSlot_RollsBackOnHistoryFailure(t *testing.T) {
	store := memory.NewStore()
	ps := service.NewParkingService(
		store.Slots(), store.Users(), failingHistoryRepo{store.History()}, store.Archive(),
		store.TxManager(), service.NopNotifier{},
	)
	walkIn := seedWalkIn(t, store, "MH12XY99")
	slot := seedSlot(t, store, "P1")
	_, err := ps.BookForWalkIn(context.Background(), slot.ID, domain.BookForWalkInDTO{CustomerID: walkIn.ID}, staffActor)
	require.NoError(t, err)

	_, err = ps.ExitSlot(context.Background(), slot.ID, staffActor)
	require.Error(t, err)

	// Lỗi giữa chừng thì không bước nào được giữ lại: slot vẫn occupied,
	// walk-in vẫn trong danh bạ, archive trống
	current, err := store.Slots().FindByID(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOccupied, current.Status)

	_, err = store.Users().FindByID(context.Background(), walkIn.ID)
	assert.NoError(t, err)

	entries, err := store.Archive().FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestToggleMaintenance(t *testing.T) {
	store := memory.NewStore()
	ps := newParkingService(store)
	slot := seedSlot(t, store, "P1")

	toggled, err := ps.ToggleMaintenance(context.Background(), slot.ID, staffActor)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusMaintenance, toggled.Status)

	toggled, err = ps.ToggleMaintenance(context.Background(), slot.ID, staffActor)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAvailable, toggled.Status)
}

func TestToggleMaintenance_OccupiedRejected(t *testing.T) {
	store := memory.NewStore()
	ps := newParkingService(store)
	customer := seedCustomer(t, store, "Nguyen Van An", "an@example.com")
	slot := seedSlot(t, store, "P1")
	_, err := ps.BookSlot(context.Background(), slot.ID, domain.BookSlotDTO{VehicleNumber: "KA01AB1234"}, actorOf(customer))
	require.NoError(t, err)

	_, err = ps.ToggleMaintenance(context.Background(), slot.ID, staffActor)
	assert.ErrorIs(t, err, service.ErrPrecondition)
}

func TestResolveMaintenance(t *testing.T) {
	store := memory.NewStore()
	ps := newParkingService(store)
	slot := seedSlot(t, store, "P1")
	ctx := context.Background()

	// Chưa ở trạng thái bảo trì thì không xử lý được
	err := ps.ResolveMaintenance(ctx, slot.ID, domain.ResolveMaintenanceDTO{Action: domain.MaintenanceActionMakeAvailable}, staffActor)
	assert.ErrorIs(t, err, service.ErrPrecondition)

	_, err = ps.ToggleMaintenance(ctx, slot.ID, staffActor)
	require.NoError(t, err)

	err = ps.ResolveMaintenance(ctx, slot.ID, domain.ResolveMaintenanceDTO{Action: domain.MaintenanceActionMakeAvailable}, staffActor)
	require.NoError(t, err)
	current, err := store.Slots().FindByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAvailable, current.Status)

	_, err = ps.ToggleMaintenance(ctx, slot.ID, staffActor)
	require.NoError(t, err)
	err = ps.ResolveMaintenance(ctx, slot.ID, domain.ResolveMaintenanceDTO{Action: domain.MaintenanceActionDelete}, staffActor)
	require.NoError(t, err)
	_, err = store.Slots().FindByID(ctx, slot.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeleteSlot_OccupiedRejected(t *testing.T) {
	store := memory.NewStore()
	ps := newParkingService(store)
	customer := seedCustomer(t, store, "Nguyen Van An", "an@example.com")
	slot := seedSlot(t, store, "P1")
	_, err := ps.BookSlot(context.Background(), slot.ID, domain.BookSlotDTO{VehicleNumber: "KA01AB1234"}, actorOf(customer))
	require.NoError(t, err)

	err = ps.DeleteSlot(context.Background(), slot.ID)
	assert.ErrorIs(t, err, service.ErrPrecondition)
}

func TestDeleteMostRecentSlot_Ungated(t *testing.T) {
	store := memory.NewStore()
	ps := newParkingService(store)
	customer := seedCustomer(t, store, "Nguyen Van An", "an@example.com")
	seedSlot(t, store, "P1")
	recent := seedSlot(t, store, "P2")
	_, err := ps.BookSlot(context.Background(), recent.ID, domain.BookSlotDTO{VehicleNumber: "KA01AB1234"}, actorOf(customer))
	require.NoError(t, err)

	// Đường xóa nhanh không kiểm tra trạng thái, kể cả đang occupied
	err = ps.DeleteMostRecentSlot(context.Background())
	require.NoError(t, err)

	_, err = store.Slots().FindByID(context.Background(), recent.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetStats(t *testing.T) {
	store := memory.NewStore()
	ps := newParkingService(store)
	customer := seedCustomer(t, store, "Nguyen Van An", "an@example.com")
	occupied := seedSlot(t, store, "P1")
	seedSlot(t, store, "P2")
	maint := seedSlot(t, store, "P3")
	_, err := ps.BookSlot(context.Background(), occupied.ID, domain.BookSlotDTO{VehicleNumber: "KA01AB1234"}, actorOf(customer))
	require.NoError(t, err)
	require.NoError(t, store.Slots().UpdateStatus(context.Background(), maint.ID, domain.StatusMaintenance))

	stats, err := ps.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalSlots)
	assert.Equal(t, 1, stats.AvailableSlots)
	assert.Equal(t, 1, stats.OccupiedSlots)
	assert.Equal(t, 1, stats.MaintenanceSlots)
	assert.Equal(t, 33, stats.OccupancyRate)
}

func TestListHistory_MergesActiveAndCompleted(t *testing.T) {
	store := memory.NewStore()
	ps := newParkingService(store)
	ctx := context.Background()
	customer := seedCustomer(t, store, "Nguyen Van An", "an@example.com")
	walkIn := seedWalkIn(t, store, "MH12XY99")

	done := seedSlot(t, store, "P1")
	active := seedSlot(t, store, "P2")

	_, err := ps.BookForWalkIn(ctx, done.ID, domain.BookForWalkInDTO{CustomerID: walkIn.ID}, staffActor)
	require.NoError(t, err)
	_, err = ps.ExitSlot(ctx, done.ID, staffActor)
	require.NoError(t, err)

	_, err = ps.BookSlot(ctx, active.ID, domain.BookSlotDTO{VehicleNumber: "KA01AB1234"}, actorOf(customer))
	require.NoError(t, err)

	view, err := ps.ListHistory(ctx, domain.HistoryFilterDTO{})
	require.NoError(t, err)
	require.Len(t, view, 2)

	var activeRow, doneRow *domain.HistoryViewRecord
	for i := range view {
		if view[i].Active {
			activeRow = &view[i]
		} else {
			doneRow = &view[i]
		}
	}
	require.NotNil(t, activeRow)
	require.NotNil(t, doneRow)

	assert.Equal(t, "Nguyen Van An", activeRow.CustomerName)
	assert.Equal(t, "Registered", activeRow.CustomerType)
	assert.False(t, activeRow.ExitTime.Valid)

	// Tên walk-in đã xóa được tra từ archive
	assert.Equal(t, walkIn.Name, doneRow.CustomerName)
	assert.Equal(t, "Walk-in", doneRow.CustomerType)
	assert.True(t, doneRow.ExitTime.Valid)

	// Filter
	onlyActive, err := ps.ListHistory(ctx, domain.HistoryFilterDTO{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, onlyActive, 1)
	assert.True(t, onlyActive[0].Active)

	byVehicle, err := ps.ListHistory(ctx, domain.HistoryFilterDTO{Vehicle: "mh12"})
	require.NoError(t, err)
	require.Len(t, byVehicle, 1)
	assert.Equal(t, "MH12XY99", byVehicle[0].VehicleNumber)

	byCustomer, err := ps.ListHistory(ctx, domain.HistoryFilterDTO{Customer: "nguyen"})
	require.NoError(t, err)
	require.Len(t, byCustomer, 1)
	assert.Equal(t, "Nguyen Van An", byCustomer[0].CustomerName)
}

func TestListHistory_UnknownCustomerFallback(t *testing.T) {
	store := memory.NewStore()
	ps := newParkingService(store)
	_, err := store.History().Create(context.Background(), &domain.HistoryRecord{
		SlotID:        1,
		SlotNumber:    "P1",
		CustomerID:    12345, // không có trong danh bạ lẫn archive
		VehicleNumber: "KA01AB1234",
		EntryTime:     time.Now().UTC().Add(-time.Hour),
		ExitTime:      time.Now().UTC(),
	})
	require.NoError(t, err)

	view, err := ps.ListHistory(context.Background(), domain.HistoryFilterDTO{})
	require.NoError(t, err)
	require.Len(t, view, 1)
	assert.Equal(t, "Unknown Customer", view[0].CustomerName)
	assert.Equal(t, "Unknown", view[0].CustomerType)
}
