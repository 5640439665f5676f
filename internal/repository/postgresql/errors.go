package postgresql

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Mã lỗi unique_violation của Postgres
const uniqueViolationCode = "23505"

// uniqueViolation bóc *pgconn.PgError từ chuỗi lỗi của driver pgx và cho
// biết có phải vi phạm ràng buộc unique hay không. Kết nối mở bằng driver
// "pgx" nên lỗi driver là *pgconn.PgError, không phải *pq.Error của lib/pq.
func uniqueViolation(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return pgErr, true
	}
	return nil, false
}
