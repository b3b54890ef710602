package postgres

import (
	"errors"

	"github.com/lib/pq"
)

func hasCode(err error, code pq.ErrorCode) bool {
	var pgErr *pq.Error
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// Constraint returns the violated constraint name, or "" when err is not a pq error.
func Constraint(err error) string {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Constraint
	}
	return ""
}
