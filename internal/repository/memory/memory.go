// Package memory cài đặt các repository interface trên map trong bộ nhớ,
// dùng cho unit test của tầng service (không cần Postgres).
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"parking_lot_system/internal/domain"
	"parking_lot_system/internal/repository"

	"gopkg.in/guregu/null.v4"
)

type Store struct {
	mu sync.Mutex

	users   map[int]domain.User
	slots   map[int]domain.ParkingSlot
	history map[int]domain.HistoryRecord
	archive map[int]domain.ArchiveEntry

	nextUserID    int
	nextSlotID    int
	nextHistoryID int
	nextArchiveID int
}

func NewStore() *Store {
	return &Store{
		users:         make(map[int]domain.User),
		slots:         make(map[int]domain.ParkingSlot),
		history:       make(map[int]domain.HistoryRecord),
		archive:       make(map[int]domain.ArchiveEntry),
		nextUserID:    1,
		nextSlotID:    1,
		nextHistoryID: 1,
		nextArchiveID: 1,
	}
}

func (s *Store) Users() repository.UserRepository           { return &userRepo{s: s} }
func (s *Store) Slots() repository.ParkingSlotRepository    { return &slotRepo{s: s} }
func (s *Store) History() repository.ParkingHistoryRepository { return &historyRepo{s: s} }
func (s *Store) Archive() repository.ArchiveRepository      { return &archiveRepo{s: s} }

// --- TxManager ---

type snapshot struct {
	users   map[int]domain.User
	slots   map[int]domain.ParkingSlot
	history map[int]domain.HistoryRecord
	archive map[int]domain.ArchiveEntry

	nextUserID    int
	nextSlotID    int
	nextHistoryID int
	nextArchiveID int
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

type txManager struct {
	s *Store
}

func (s *Store) TxManager() repository.TxManager { return &txManager{s: s} }

// Do mô phỏng transaction bằng snapshot/restore: fn lỗi thì toàn bộ
// thay đổi bị hoàn tác. Mô hình single-writer nên chỉ cần như vậy.
func (m *txManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	m.s.mu.Lock()
	snap := snapshot{
		users:         copyMap(m.s.users),
		slots:         copyMap(m.s.slots),
		history:       copyMap(m.s.history),
		archive:       copyMap(m.s.archive),
		nextUserID:    m.s.nextUserID,
		nextSlotID:    m.s.nextSlotID,
		nextHistoryID: m.s.nextHistoryID,
		nextArchiveID: m.s.nextArchiveID,
	}
	m.s.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.s.mu.Lock()
		m.s.users = snap.users
		m.s.slots = snap.slots
		m.s.history = snap.history
		m.s.archive = snap.archive
		m.s.nextUserID = snap.nextUserID
		m.s.nextSlotID = snap.nextSlotID
		m.s.nextHistoryID = snap.nextHistoryID
		m.s.nextArchiveID = snap.nextArchiveID
		m.s.mu.Unlock()
		return err
	}
	return nil
}

func sortedIDs[V any](m map[int]V) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// --- UserRepository ---

type userRepo struct {
	s *Store
}

func (r *userRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == user.Email {
			return nil, fmt.Errorf("%w: email '%s' đã tồn tại", repository.ErrDuplicateEntry, user.Email)
		}
		if user.VehicleNumber.Valid && u.VehicleNumber.Valid && u.VehicleNumber.String == user.VehicleNumber.String {
			return nil, fmt.Errorf("%w: biển số '%s' đã được đăng ký", repository.ErrDuplicateEntry, user.VehicleNumber.String)
		}
	}

	user.ID = r.s.nextUserID
	r.s.nextUserID++
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = *user
	return user, nil
}

func (r *userRepo) FindByID(_ context.Context, id int) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *userRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range sortedIDs(r.s.users) {
		if r.s.users[id].Email == email {
			u := r.s.users[id]
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) FindByVehicleNumber(_ context.Context, vehicleNumber string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range sortedIDs(r.s.users) {
		u := r.s.users[id]
		if u.VehicleNumber.Valid && u.VehicleNumber.String == vehicleNumber {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) FindByRole(_ context.Context, role string) ([]domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var users []domain.User
	for _, id := range sortedIDs(r.s.users) {
		if r.s.users[id].Role == role {
			users = append(users, r.s.users[id])
		}
	}
	return users, nil
}

func (r *userRepo) FindByCustomerType(_ context.Context, customerType string) ([]domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var users []domain.User
	for _, id := range sortedIDs(r.s.users) {
		u := r.s.users[id]
		if u.CustomerType.Valid && u.CustomerType.String == customerType {
			users = append(users, u)
		}
	}
	return users, nil
}

func (r *userRepo) FindAll(_ context.Context) ([]domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var users []domain.User
	for _, id := range sortedIDs(r.s.users) {
		users = append(users, r.s.users[id])
	}
	return users, nil
}

func (r *userRepo) Count(_ context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.users), nil
}

func (r *userRepo) UpdateVehicleNumber(_ context.Context, id int, vehicleNumber string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	for otherID, other := range r.s.users {
		if otherID != id && other.VehicleNumber.Valid && other.VehicleNumber.String == vehicleNumber {
			return fmt.Errorf("%w: biển số '%s' đã được đăng ký", repository.ErrDuplicateEntry, vehicleNumber)
		}
	}
	u.VehicleNumber = null.StringFrom(vehicleNumber)
	u.UpdatedAt = time.Now().UTC()
	r.s.users[id] = u
	return nil
}

func (r *userRepo) Delete(_ context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.users, id)
	return nil
}

// --- ParkingSlotRepository ---

type slotRepo struct {
	s *Store
}

func (r *slotRepo) Create(_ context.Context, slot *domain.ParkingSlot) (*domain.ParkingSlot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, sl := range r.s.slots {
		if sl.SlotNumber == slot.SlotNumber {
			return nil, fmt.Errorf("%w: chỗ đỗ '%s' đã tồn tại", repository.ErrDuplicateEntry, slot.SlotNumber)
		}
	}

	if slot.Status == "" {
		slot.Status = domain.StatusAvailable
	}
	slot.ID = r.s.nextSlotID
	r.s.nextSlotID++
	now := time.Now().UTC()
	slot.CreatedAt = now
	slot.UpdatedAt = now
	r.s.slots[slot.ID] = *slot
	return slot, nil
}

func (r *slotRepo) FindByID(_ context.Context, id int) (*domain.ParkingSlot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sl, ok := r.s.slots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &sl, nil
}

func (r *slotRepo) FindBySlotNumber(_ context.Context, slotNumber string) (*domain.ParkingSlot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range sortedIDs(r.s.slots) {
		if r.s.slots[id].SlotNumber == slotNumber {
			sl := r.s.slots[id]
			return &sl, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *slotRepo) FindAll(_ context.Context) ([]domain.ParkingSlot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var slots []domain.ParkingSlot
	for _, id := range sortedIDs(r.s.slots) {
		slots = append(slots, r.s.slots[id])
	}
	return slots, nil
}

func (r *slotRepo) FindByStatus(_ context.Context, status domain.SlotStatus) ([]domain.ParkingSlot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var slots []domain.ParkingSlot
	for _, id := range sortedIDs(r.s.slots) {
		if r.s.slots[id].Status == status {
			slots = append(slots, r.s.slots[id])
		}
	}
	return slots, nil
}

func (r *slotRepo) FindByBookedUser(_ context.Context, userID int) (*domain.ParkingSlot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range sortedIDs(r.s.slots) {
		sl := r.s.slots[id]
		if sl.BookedByUserID.Valid && int(sl.BookedByUserID.Int64) == userID {
			return &sl, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *slotRepo) FindOccupiedByVehicle(_ context.Context, vehicleNumber string) (*domain.ParkingSlot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range sortedIDs(r.s.slots) {
		sl := r.s.slots[id]
		if sl.Status == domain.StatusOccupied && sl.VehicleNumber.Valid && sl.VehicleNumber.String == vehicleNumber {
			return &sl, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *slotRepo) FindMostRecent(_ context.Context) (*domain.ParkingSlot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := sortedIDs(r.s.slots)
	if len(ids) == 0 {
		return nil, repository.ErrNotFound
	}
	sl := r.s.slots[ids[len(ids)-1]]
	return &sl, nil
}

func (r *slotRepo) Occupy(_ context.Context, id int, userID int, vehicleNumber string, entryTime time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sl, ok := r.s.slots[id]
	if !ok {
		return repository.ErrNotFound
	}
	sl.Status = domain.StatusOccupied
	sl.BookedByUserID = null.IntFrom(int64(userID))
	sl.VehicleNumber = null.StringFrom(vehicleNumber)
	sl.EntryTime = null.TimeFrom(entryTime)
	sl.UpdatedAt = time.Now().UTC()
	r.s.slots[id] = sl
	return nil
}

func (r *slotRepo) Release(_ context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sl, ok := r.s.slots[id]
	if !ok {
		return repository.ErrNotFound
	}
	sl.Status = domain.StatusAvailable
	sl.BookedByUserID = null.Int{}
	sl.VehicleNumber = null.String{}
	sl.EntryTime = null.Time{}
	sl.UpdatedAt = time.Now().UTC()
	r.s.slots[id] = sl
	return nil
}

func (r *slotRepo) UpdateStatus(_ context.Context, id int, status domain.SlotStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sl, ok := r.s.slots[id]
	if !ok {
		return repository.ErrNotFound
	}
	sl.Status = status
	sl.UpdatedAt = time.Now().UTC()
	r.s.slots[id] = sl
	return nil
}

func (r *slotRepo) Delete(_ context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.slots[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.slots, id)
	return nil
}

// --- ParkingHistoryRepository ---

type historyRepo struct {
	s *Store
}

func (r *historyRepo) Create(_ context.Context, record *domain.HistoryRecord) (*domain.HistoryRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	record.ID = r.s.nextHistoryID
	r.s.nextHistoryID++
	record.CreatedAt = time.Now().UTC()
	r.s.history[record.ID] = *record
	return record, nil
}

func (r *historyRepo) FindAll(_ context.Context) ([]domain.HistoryRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var records []domain.HistoryRecord
	for _, id := range sortedIDs(r.s.history) {
		records = append(records, r.s.history[id])
	}
	return records, nil
}

// --- ArchiveRepository ---

type archiveRepo struct {
	s *Store
}

func (r *archiveRepo) Create(_ context.Context, entry *domain.ArchiveEntry) (*domain.ArchiveEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entry.ID = r.s.nextArchiveID
	r.s.nextArchiveID++
	r.s.archive[entry.ID] = *entry
	return entry, nil
}

func (r *archiveRepo) FindAll(_ context.Context) ([]domain.ArchiveEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var entries []domain.ArchiveEntry
	for _, id := range sortedIDs(r.s.archive) {
		entries = append(entries, r.s.archive[id])
	}
	return entries, nil
}

func (r *archiveRepo) FindByOriginalID(_ context.Context, originalID int) (*domain.ArchiveEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := sortedIDs(r.s.archive)
	for i := len(ids) - 1; i >= 0; i-- {
		if r.s.archive[ids[i]].OriginalID == originalID {
			entry := r.s.archive[ids[i]]
			return &entry, nil
		}
	}
	return nil, repository.ErrNotFound
}
