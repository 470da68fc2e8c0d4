package submissions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	pkgerrors "github.com/diabolofocus/form-displays-sub000/internal/pkg/errors"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/apierr"
)

// mapError attaches a transport status to store failures that have one.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierr.NotFound(fmt.Errorf("%s: submission %w", op, pkgerrors.ErrNotFound))
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505", "40001":
			return apierr.Conflict(fmt.Errorf("%s: %w", op, err))
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
