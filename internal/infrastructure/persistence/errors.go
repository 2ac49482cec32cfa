package persistence

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/communal/backend/internal/domain/shared"
)

const pgUniqueViolation = "23505"

// translateError maps driver errors onto domain errors. what names the
// resource in the returned message.
func translateError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.NotFoundf("%s not found", what)
	}
	if isUniqueViolation(err) {
		return shared.NewDomainErrorf(shared.CodeAlreadyExists, "%s already exists", what)
	}
	return err
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
