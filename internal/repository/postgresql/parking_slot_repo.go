package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"parking_lot_system/internal/domain"
	"parking_lot_system/internal/repository"
)

const slotColumns = `id, slot_number, status, booked_by_user_id, vehicle_number, entry_time, created_at, updated_at`

type pgParkingSlotRepository struct {
	db *sql.DB
}

func NewPgParkingSlotRepository(db *sql.DB) repository.ParkingSlotRepository {
	return &pgParkingSlotRepository{db: db}
}

func scanSlot(row interface{ Scan(dest ...any) error }) (*domain.ParkingSlot, error) {
	slot := &domain.ParkingSlot{}
	err := row.Scan(&slot.ID, &slot.SlotNumber, &slot.Status,
		&slot.BookedByUserID, &slot.VehicleNumber, &slot.EntryTime,
		&slot.CreatedAt, &slot.UpdatedAt)
	if err != nil {
		return nil, err
	}
	slot.CreatedAt = slot.CreatedAt.In(time.UTC)
	slot.UpdatedAt = slot.UpdatedAt.In(time.UTC)
	if slot.EntryTime.Valid {
		slot.EntryTime.Time = slot.EntryTime.Time.In(time.UTC)
	}
	return slot, nil
}

func (r *pgParkingSlotRepository) Create(ctx context.Context, slot *domain.ParkingSlot) (*domain.ParkingSlot, error) {
	query := `INSERT INTO parking_slots (slot_number, status, created_at, updated_at)
	           VALUES ($1, $2, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING id, created_at, updated_at`
	if slot.Status == "" {
		slot.Status = domain.StatusAvailable
	}
	err := q(ctx, r.db).QueryRowContext(ctx, query, slot.SlotNumber, slot.Status).
		Scan(&slot.ID, &slot.CreatedAt, &slot.UpdatedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return nil, fmt.Errorf("%w: chỗ đỗ '%s' đã tồn tại", repository.ErrDuplicateEntry, slot.SlotNumber)
		}
		return nil, fmt.Errorf("ParkingSlotRepository.Create: %w", err)
	}
	slot.CreatedAt = slot.CreatedAt.In(time.UTC)
	slot.UpdatedAt = slot.UpdatedAt.In(time.UTC)
	return slot, nil
}

func (r *pgParkingSlotRepository) FindByID(ctx context.Context, id int) (*domain.ParkingSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM parking_slots WHERE id = $1`
	slot, err := scanSlot(q(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingSlotRepository.FindByID: %w", err)
	}
	return slot, nil
}

func (r *pgParkingSlotRepository) FindBySlotNumber(ctx context.Context, slotNumber string) (*domain.ParkingSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM parking_slots WHERE slot_number = $1`
	slot, err := scanSlot(q(ctx, r.db).QueryRowContext(ctx, query, slotNumber))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingSlotRepository.FindBySlotNumber: %w", err)
	}
	return slot, nil
}

func (r *pgParkingSlotRepository) findMany(ctx context.Context, query string, args ...any) ([]domain.ParkingSlot, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []domain.ParkingSlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, *slot)
	}
	return slots, rows.Err()
}

func (r *pgParkingSlotRepository) FindAll(ctx context.Context) ([]domain.ParkingSlot, error) {
	// Thứ tự id = thứ tự chèn; service sắp xếp hiển thị theo phần số của slot_number
	query := `SELECT ` + slotColumns + ` FROM parking_slots ORDER BY id`
	slots, err := r.findMany(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ParkingSlotRepository.FindAll: %w", err)
	}
	return slots, nil
}

func (r *pgParkingSlotRepository) FindByStatus(ctx context.Context, status domain.SlotStatus) ([]domain.ParkingSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM parking_slots WHERE status = $1 ORDER BY id`
	slots, err := r.findMany(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("ParkingSlotRepository.FindByStatus: %w", err)
	}
	return slots, nil
}

func (r *pgParkingSlotRepository) FindByBookedUser(ctx context.Context, userID int) (*domain.ParkingSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM parking_slots WHERE booked_by_user_id = $1`
	slot, err := scanSlot(q(ctx, r.db).QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingSlotRepository.FindByBookedUser: %w", err)
	}
	return slot, nil
}

func (r *pgParkingSlotRepository) FindOccupiedByVehicle(ctx context.Context, vehicleNumber string) (*domain.ParkingSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM parking_slots WHERE vehicle_number = $1 AND status = $2`
	slot, err := scanSlot(q(ctx, r.db).QueryRowContext(ctx, query, vehicleNumber, domain.StatusOccupied))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingSlotRepository.FindOccupiedByVehicle: %w", err)
	}
	return slot, nil
}

func (r *pgParkingSlotRepository) FindMostRecent(ctx context.Context) (*domain.ParkingSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM parking_slots ORDER BY id DESC LIMIT 1`
	slot, err := scanSlot(q(ctx, r.db).QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingSlotRepository.FindMostRecent: %w", err)
	}
	return slot, nil
}

func (r *pgParkingSlotRepository) Occupy(ctx context.Context, id int, userID int, vehicleNumber string, entryTime time.Time) error {
	query := `UPDATE parking_slots
	           SET status = $1, booked_by_user_id = $2, vehicle_number = $3, entry_time = $4, updated_at = CURRENT_TIMESTAMP
	           WHERE id = $5`
	result, err := q(ctx, r.db).ExecContext(ctx, query, domain.StatusOccupied, userID, vehicleNumber, entryTime, id)
	if err != nil {
		return fmt.Errorf("ParkingSlotRepository.Occupy: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ParkingSlotRepository.Occupy (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *pgParkingSlotRepository) Release(ctx context.Context, id int) error {
	query := `UPDATE parking_slots
	           SET status = $1, booked_by_user_id = NULL, vehicle_number = NULL, entry_time = NULL, updated_at = CURRENT_TIMESTAMP
	           WHERE id = $2`
	result, err := q(ctx, r.db).ExecContext(ctx, query, domain.StatusAvailable, id)
	if err != nil {
		return fmt.Errorf("ParkingSlotRepository.Release: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ParkingSlotRepository.Release (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *pgParkingSlotRepository) UpdateStatus(ctx context.Context, id int, status domain.SlotStatus) error {
	query := `UPDATE parking_slots SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	result, err := q(ctx, r.db).ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("ParkingSlotRepository.UpdateStatus: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ParkingSlotRepository.UpdateStatus (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *pgParkingSlotRepository) Delete(ctx context.Context, id int) error {
	result, err := q(ctx, r.db).ExecContext(ctx, `DELETE FROM parking_slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ParkingSlotRepository.Delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ParkingSlotRepository.Delete (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
