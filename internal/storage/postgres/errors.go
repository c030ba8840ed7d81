package postgres

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const opTimeout = 5 * time.Second

// Коды SQLSTATE, которые репозитории переводят в доменные ошибки
// или считают поводом повторить транзакцию.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgSerializationFail   = "40001"
	pgDeadlockDetected    = "40P01"
)

func pgErrCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgErrCode(err) == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return pgErrCode(err) == pgForeignKeyViolation
}

// isRetryableTxError отмечает конфликты сериализации и deadlock: такие
// транзакции повторяются прозрачно, ограниченное число раз.
func isRetryableTxError(err error) bool {
	code := pgErrCode(err)
	return code == pgSerializationFail || code == pgDeadlockDetected
}
