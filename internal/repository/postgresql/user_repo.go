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

const userColumns = `id, name, email, password_hash, role, customer_type, vehicle_number, mobile_number, registered_by, created_at, updated_at`

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) repository.UserRepository {
	return &pgUserRepository{db: db}
}

func scanUser(row interface{ Scan(dest ...any) error }) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Password, &user.Role,
		&user.CustomerType, &user.VehicleNumber, &user.MobileNumber, &user.RegisteredBy,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.In(time.UTC)
	user.UpdatedAt = user.UpdatedAt.In(time.UTC)
	return user, nil
}

func (r *pgUserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `INSERT INTO users (name, email, password_hash, role, customer_type, vehicle_number, mobile_number, registered_by, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING id, created_at, updated_at`
	err := q(ctx, r.db).QueryRowContext(ctx, query,
		user.Name, user.Email, user.Password, user.Role,
		user.CustomerType, user.VehicleNumber, user.MobileNumber, user.RegisteredBy,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if pgErr, ok := uniqueViolation(err); ok {
			if pgErr.ConstraintName == "users_email_key" {
				return nil, fmt.Errorf("%w: email '%s' đã tồn tại", repository.ErrDuplicateEntry, user.Email)
			}
			if pgErr.ConstraintName == "users_vehicle_number_key" {
				return nil, fmt.Errorf("%w: biển số '%s' đã được đăng ký", repository.ErrDuplicateEntry, user.VehicleNumber.ValueOrZero())
			}
			return nil, fmt.Errorf("%w: người dùng đã tồn tại", repository.ErrDuplicateEntry)
		}
		return nil, fmt.Errorf("UserRepository.Create: %w", err)
	}
	user.CreatedAt = user.CreatedAt.In(time.UTC)
	user.UpdatedAt = user.UpdatedAt.In(time.UTC)
	return user, nil
}

func (r *pgUserRepository) FindByID(ctx context.Context, id int) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(q(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("UserRepository.FindByID: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(q(ctx, r.db).QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("UserRepository.FindByEmail: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) FindByVehicleNumber(ctx context.Context, vehicleNumber string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE vehicle_number = $1`
	user, err := scanUser(q(ctx, r.db).QueryRowContext(ctx, query, vehicleNumber))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("UserRepository.FindByVehicleNumber: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) findMany(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func (r *pgUserRepository) FindByRole(ctx context.Context, role string) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 ORDER BY id`
	users, err := r.findMany(ctx, query, role)
	if err != nil {
		return nil, fmt.Errorf("UserRepository.FindByRole: %w", err)
	}
	return users, nil
}

func (r *pgUserRepository) FindByCustomerType(ctx context.Context, customerType string) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE customer_type = $1 ORDER BY id`
	users, err := r.findMany(ctx, query, customerType)
	if err != nil {
		return nil, fmt.Errorf("UserRepository.FindByCustomerType: %w", err)
	}
	return users, nil
}

func (r *pgUserRepository) FindAll(ctx context.Context) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`
	users, err := r.findMany(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("UserRepository.FindAll: %w", err)
	}
	return users, nil
}

func (r *pgUserRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := q(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("UserRepository.Count: %w", err)
	}
	return count, nil
}

func (r *pgUserRepository) UpdateVehicleNumber(ctx context.Context, id int, vehicleNumber string) error {
	query := `UPDATE users SET vehicle_number = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	result, err := q(ctx, r.db).ExecContext(ctx, query, vehicleNumber, id)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return fmt.Errorf("%w: biển số '%s' đã được đăng ký", repository.ErrDuplicateEntry, vehicleNumber)
		}
		return fmt.Errorf("UserRepository.UpdateVehicleNumber: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("UserRepository.UpdateVehicleNumber (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *pgUserRepository) Delete(ctx context.Context, id int) error {
	result, err := q(ctx, r.db).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("UserRepository.Delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("UserRepository.Delete (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
