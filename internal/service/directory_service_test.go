package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking_lot_system/internal/domain"
	"parking_lot_system/internal/repository"
	"parking_lot_system/internal/repository/memory"
	"parking_lot_system/internal/service"
)

func newDirectoryService(store *memory.Store) *service.DirectoryService {
	return service.NewDirectoryService(
		store.Users(), store.Slots(), store.History(), store.Archive(),
		store.TxManager(), service.NopNotifier{},
	)
}

var adminActor = domain.Actor{ID: 1, Name: "Admin User", Email: "admin@gmail.com", Role: domain.RoleAdmin}

func TestRegisterWalkIn(t *testing.T) {
	store := memory.NewStore()
	ds := newDirectoryService(store)

	user, err := ds.RegisterWalkIn(context.Background(), domain.RegisterWalkInDTO{
		VehicleNumber: "mh-12 xy99",
		MobileNumber:  "0901234567",
	}, staffActor)
	require.NoError(t, err)

	assert.Equal(t, "Walk-in (MH12XY99)", user.Name)
	assert.Equal(t, domain.RoleCustomer, user.Role)
	assert.Equal(t, domain.CustomerTypeWalkIn, user.CustomerType.String)
	assert.Equal(t, "MH12XY99", user.VehicleNumber.String)
	assert.Equal(t, "0901234567", user.MobileNumber.String)
	assert.Equal(t, staffActor.Name, user.RegisteredBy.String)
	assert.False(t, user.Password.Valid)
	assert.True(t, strings.HasPrefix(user.Email, "walkin-"))
}

func TestRegisterWalkIn_DuplicateVehicleRejected(t *testing.T) {
	store := memory.NewStore()
	ds := newDirectoryService(store)
	ctx := context.Background()

	_, err := ds.RegisterWalkIn(ctx, domain.RegisterWalkInDTO{VehicleNumber: "MH12XY99", MobileNumber: "0901234567"}, staffActor)
	require.NoError(t, err)

	// Cùng xe, dạng viết khác
	_, err = ds.RegisterWalkIn(ctx, domain.RegisterWalkInDTO{VehicleNumber: "mh 12 xy 99", MobileNumber: "0907654321"}, staffActor)
	assert.ErrorIs(t, err, repository.ErrDuplicateEntry)
}

func TestRegisterWalkIn_VehicleParkedBySomeoneElseRejected(t *testing.T) {
	store := memory.NewStore()
	ds := newDirectoryService(store)
	ps := newParkingService(store)
	ctx := context.Background()

	customer := seedCustomer(t, store, "Nguyen Van An", "an@example.com")
	slot := seedSlot(t, store, "P1")
	_, err := ps.BookSlot(ctx, slot.ID, domain.BookSlotDTO{VehicleNumber: "KA01AB1234"}, actorOf(customer))
	require.NoError(t, err)

	_, err = ds.RegisterWalkIn(ctx, domain.RegisterWalkInDTO{VehicleNumber: "ka01ab1234", MobileNumber: "0901234567"}, staffActor)
	assert.ErrorIs(t, err, repository.ErrDuplicateEntry)
}

func TestRegisterWalkIn_EmptyVehicleRejected(t *testing.T) {
	store := memory.NewStore()
	ds := newDirectoryService(store)

	_, err := ds.RegisterWalkIn(context.Background(), domain.RegisterWalkInDTO{VehicleNumber: " -- ", MobileNumber: "0901234567"}, staffActor)
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestRegisterStaff(t *testing.T) {
	store := memory.NewStore()
	ds := newDirectoryService(store)

	staff, err := ds.RegisterStaff(context.Background(), domain.RegisterStaffDTO{
		Name:     "Nhan Vien A",
		Email:    "staff@parking.system",
		Password: "secret123",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.RoleStaff, staff.Role)
	assert.False(t, staff.CustomerType.Valid)
	// Placeholder để thỏa ràng buộc unique trên vehicle_number
	assert.Equal(t, "STAFF-staff@parking.system", staff.VehicleNumber.String)
	assert.False(t, staff.Password.Valid)

	_, err = ds.RegisterStaff(context.Background(), domain.RegisterStaffDTO{
		Name:     "Nhan Vien B",
		Email:    "staff@parking.system",
		Password: "secret456",
	})
	assert.ErrorIs(t, err, repository.ErrDuplicateEntry)
}

func TestDeleteCustomer_ForcedExit(t *testing.T) {
	store := memory.NewStore()
	ds := newDirectoryService(store)
	ps := newParkingService(store)
	ctx := context.Background()

	customer := seedCustomer(t, store, "Nguyen Van An", "an@example.com")
	slot := seedSlot(t, store, "P1")
	_, err := ps.BookSlot(ctx, slot.ID, domain.BookSlotDTO{VehicleNumber: "KA01AB1234"}, actorOf(customer))
	require.NoError(t, err)

	require.NoError(t, ds.DeleteCustomer(ctx, customer.ID, adminActor))

	// Phiên đỗ bị buộc đóng: có history, slot trở lại available
	records, err := store.History().FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, customer.ID, records[0].CustomerID)

	freed, err := store.Slots().FindByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAvailable, freed.Status)
	assert.True(t, freed.IsOccupancyConsistent())

	// User bị xóa và được snapshot vào archive
	_, err = store.Users().FindByID(ctx, customer.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	entry, err := store.Archive().FindByOriginalID(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "Nguyen Van An", entry.Name)
	assert.Equal(t, adminActor.Name, entry.DeletedBy)
}

func TestDeleteCustomer_WithoutBooking(t *testing.T) {
	store := memory.NewStore()
	ds := newDirectoryService(store)
	ctx := context.Background()
	customer := seedCustomer(t, store, "Nguyen Van An", "an@example.com")

	require.NoError(t, ds.DeleteCustomer(ctx, customer.ID, adminActor))

	records, err := store.History().FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = store.Archive().FindByOriginalID(ctx, customer.ID)
	assert.NoError(t, err)
}

func TestDeleteCustomer_NonCustomerRejected(t *testing.T) {
	store := memory.NewStore()
	ds := newDirectoryService(store)

	staff, err := ds.RegisterStaff(context.Background(), domain.RegisterStaffDTO{
		Name:     "Nhan Vien A",
		Email:    "staff@parking.system",
		Password: "secret123",
	})
	require.NoError(t, err)

	err = ds.DeleteCustomer(context.Background(), staff.ID, adminActor)
	assert.ErrorIs(t, err, service.ErrPrecondition)
}

func TestDeleteCustomer_NotFound(t *testing.T) {
	store := memory.NewStore()
	ds := newDirectoryService(store)

	err := ds.DeleteCustomer(context.Background(), 12345, adminActor)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListWalkIns(t *testing.T) {
	store := memory.NewStore()
	ds := newDirectoryService(store)
	ctx := context.Background()

	seedCustomer(t, store, "Nguyen Van An", "an@example.com")
	seedWalkIn(t, store, "MH12XY99")

	walkIns, err := ds.ListWalkIns(ctx)
	require.NoError(t, err)
	require.Len(t, walkIns, 1)
	assert.Equal(t, "MH12XY99", walkIns[0].VehicleNumber.String)

	customers, err := ds.ListCustomers(ctx)
	require.NoError(t, err)
	// ListCustomers lọc theo role nên gồm cả khách đăng ký lẫn walk-in
	assert.Len(t, customers, 2)
}

func TestFindByNormalizedVehicle(t *testing.T) {
	store := memory.NewStore()
	ds := newDirectoryService(store)
	seedWalkIn(t, store, "MH12XY99")

	user, err := ds.FindByNormalizedVehicle(context.Background(), "mh-12-xy-99")
	require.NoError(t, err)
	assert.Equal(t, "MH12XY99", user.VehicleNumber.String)

	_, err = ds.FindByNormalizedVehicle(context.Background(), "   ")
	assert.ErrorIs(t, err, service.ErrValidation)
}
