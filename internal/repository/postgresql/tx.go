package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"parking_lot_system/internal/repository"
)

// querier là phần giao của *sql.DB và *sql.Tx mà các repository cần.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type txKey struct{}

func txFrom(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// q trả về transaction đang mở trong context nếu có, ngược lại là db.
func q(ctx context.Context, db *sql.DB) querier {
	if tx := txFrom(ctx); tx != nil {
		return tx
	}
	return db
}

type sqlTxManager struct {
	db *sql.DB
}

func NewTxManager(db *sql.DB) repository.TxManager {
	return &sqlTxManager{db: db}
}

func (m *sqlTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		// Đã ở trong transaction, tham gia transaction hiện tại
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("lỗi mở transaction: %w", err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Printf("Lỗi rollback transaction: %v", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("lỗi commit transaction: %w", err)
	}
	return nil
}
