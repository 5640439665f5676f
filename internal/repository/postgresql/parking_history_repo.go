package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"parking_lot_system/internal/domain"
	"parking_lot_system/internal/repository"
)

type pgParkingHistoryRepository struct {
	db *sql.DB
}

func NewPgParkingHistoryRepository(db *sql.DB) repository.ParkingHistoryRepository {
	return &pgParkingHistoryRepository{db: db}
}

func (r *pgParkingHistoryRepository) Create(ctx context.Context, record *domain.HistoryRecord) (*domain.HistoryRecord, error) {
	query := `INSERT INTO parking_history (slot_id, slot_number, customer_id, vehicle_number, entry_time, exit_time, created_at)
	           VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP)
	           RETURNING id, created_at`
	err := q(ctx, r.db).QueryRowContext(ctx, query,
		record.SlotID, record.SlotNumber, record.CustomerID, record.VehicleNumber,
		record.EntryTime, record.ExitTime,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("ParkingHistoryRepository.Create: %w", err)
	}
	record.CreatedAt = record.CreatedAt.In(time.UTC)
	return record, nil
}

func (r *pgParkingHistoryRepository) FindAll(ctx context.Context) ([]domain.HistoryRecord, error) {
	query := `SELECT id, slot_id, slot_number, customer_id, vehicle_number, entry_time, exit_time, created_at
	           FROM parking_history ORDER BY id`
	rows, err := q(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ParkingHistoryRepository.FindAll: %w", err)
	}
	defer rows.Close()

	var records []domain.HistoryRecord
	for rows.Next() {
		var rec domain.HistoryRecord
		if err := rows.Scan(&rec.ID, &rec.SlotID, &rec.SlotNumber, &rec.CustomerID,
			&rec.VehicleNumber, &rec.EntryTime, &rec.ExitTime, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("ParkingHistoryRepository.FindAll (scanning row): %w", err)
		}
		rec.EntryTime = rec.EntryTime.In(time.UTC)
		rec.ExitTime = rec.ExitTime.In(time.UTC)
		rec.CreatedAt = rec.CreatedAt.In(time.UTC)
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingHistoryRepository.FindAll (rows error): %w", err)
	}
	return records, nil
}
