package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"

	"grc-isms/internal/apperr"

	"gorm.io/gorm"
)

// translate maps gorm and driver errors onto apperr kinds.
func translate(what string, err error) error {
	var netErr net.Error
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound(what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Conflict(what)
	case errors.Is(err, driver.ErrBadConn), errors.As(err, &netErr):
		return apperr.Unavailable(err)
	default:
		return err
	}
}
