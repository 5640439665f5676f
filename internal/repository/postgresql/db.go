package postgresql

import (
	"database/sql"
	"fmt"

	"parking_lot_system/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func NewDB(cfg *config.Config) (*sql.DB, error) {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSslMode)

	db, err := sql.Open("pgx", psqlInfo)
	if err != nil {
		return nil, fmt.Errorf("lỗi mở kết nối database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("lỗi ping database: %w", err)
	}
	return db, nil
}

// Migrate tạo schema nếu chưa có. Chạy một lần lúc khởi động.
func Migrate(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT,
			role TEXT NOT NULL,
			customer_type TEXT,
			vehicle_number TEXT UNIQUE,
			mobile_number TEXT,
			registered_by TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_role ON users (role)`,
		`CREATE INDEX IF NOT EXISTS idx_users_customer_type ON users (customer_type)`,
		`CREATE TABLE IF NOT EXISTS parking_slots (
			id SERIAL PRIMARY KEY,
			slot_number TEXT NOT NULL UNIQUE,
			status TEXT NOT NULL DEFAULT 'available',
			booked_by_user_id INTEGER,
			vehicle_number TEXT,
			entry_time TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_parking_slots_status ON parking_slots (status)`,
		`CREATE INDEX IF NOT EXISTS idx_parking_slots_booked_by ON parking_slots (booked_by_user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_parking_slots_vehicle ON parking_slots (vehicle_number)`,
		`CREATE TABLE IF NOT EXISTS parking_history (
			id SERIAL PRIMARY KEY,
			slot_id INTEGER NOT NULL,
			slot_number TEXT NOT NULL,
			customer_id INTEGER NOT NULL,
			vehicle_number TEXT NOT NULL,
			entry_time TIMESTAMPTZ NOT NULL,
			exit_time TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_parking_history_slot ON parking_history (slot_id)`,
		`CREATE INDEX IF NOT EXISTS idx_parking_history_customer ON parking_history (customer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_parking_history_vehicle ON parking_history (vehicle_number)`,
		`CREATE TABLE IF NOT EXISTS deleted_users (
			id SERIAL PRIMARY KEY,
			original_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			vehicle_number TEXT,
			mobile_number TEXT,
			customer_type TEXT,
			deleted_at TIMESTAMPTZ NOT NULL,
			deleted_by TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_deleted_users_original ON deleted_users (original_id)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("lỗi migrate schema: %w", err)
		}
	}
	return nil
}
