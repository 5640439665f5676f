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

type pgArchiveRepository struct {
	db *sql.DB
}

func NewPgArchiveRepository(db *sql.DB) repository.ArchiveRepository {
	return &pgArchiveRepository{db: db}
}

func (r *pgArchiveRepository) Create(ctx context.Context, entry *domain.ArchiveEntry) (*domain.ArchiveEntry, error) {
	query := `INSERT INTO deleted_users (original_id, name, email, vehicle_number, mobile_number, customer_type, deleted_at, deleted_by)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	           RETURNING id`
	err := q(ctx, r.db).QueryRowContext(ctx, query,
		entry.OriginalID, entry.Name, entry.Email, entry.VehicleNumber,
		entry.MobileNumber, entry.CustomerType, entry.DeletedAt, entry.DeletedBy,
	).Scan(&entry.ID)
	if err != nil {
		return nil, fmt.Errorf("ArchiveRepository.Create: %w", err)
	}
	return entry, nil
}

func scanArchiveEntry(row interface{ Scan(dest ...any) error }) (*domain.ArchiveEntry, error) {
	entry := &domain.ArchiveEntry{}
	err := row.Scan(&entry.ID, &entry.OriginalID, &entry.Name, &entry.Email,
		&entry.VehicleNumber, &entry.MobileNumber, &entry.CustomerType,
		&entry.DeletedAt, &entry.DeletedBy)
	if err != nil {
		return nil, err
	}
	entry.DeletedAt = entry.DeletedAt.In(time.UTC)
	return entry, nil
}

func (r *pgArchiveRepository) FindAll(ctx context.Context) ([]domain.ArchiveEntry, error) {
	query := `SELECT id, original_id, name, email, vehicle_number, mobile_number, customer_type, deleted_at, deleted_by
	           FROM deleted_users ORDER BY deleted_at DESC`
	rows, err := q(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ArchiveRepository.FindAll: %w", err)
	}
	defer rows.Close()

	var entries []domain.ArchiveEntry
	for rows.Next() {
		entry, err := scanArchiveEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("ArchiveRepository.FindAll (scanning row): %w", err)
		}
		entries = append(entries, *entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ArchiveRepository.FindAll (rows error): %w", err)
	}
	return entries, nil
}

func (r *pgArchiveRepository) FindByOriginalID(ctx context.Context, originalID int) (*domain.ArchiveEntry, error) {
	// Một user có thể bị archive nhiều lần về lý thuyết; lấy bản mới nhất
	query := `SELECT id, original_id, name, email, vehicle_number, mobile_number, customer_type, deleted_at, deleted_by
	           FROM deleted_users WHERE original_id = $1 ORDER BY id DESC LIMIT 1`
	entry, err := scanArchiveEntry(q(ctx, r.db).QueryRowContext(ctx, query, originalID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ArchiveRepository.FindByOriginalID: %w", err)
	}
	return entry, nil
}
