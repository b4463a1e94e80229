package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/okian/speedcube/internal/errs"
)

// Sentinel causes for store errors. Callers classify with the errs kinds.
var (
	ErrRoundNotFound      = errors.New("round not found")
	ErrEventNotFound      = errors.New("event not found")
	ErrCompetitionMissing = errors.New("competition not found")
	ErrCompetitorMissing  = errors.New("competitor not found")
	ErrResultNotSeeded    = errors.New("competitor is not seeded into the round")
	ErrDuplicate          = errors.New("record already exists")
)

// classify attaches an errs kind to a gorm failure.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errs.KindOf(err) != nil:
		return errs.Wrap(op, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errs.WrapKind(op, errs.ErrNotFound, err)
	case errors.Is(err, gorm.ErrDuplicatedKey), strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return errs.WrapKind(op, errs.ErrValidation, ErrDuplicate)
	default:
		return errs.WrapKind(op, errs.ErrStorage, err)
	}
}
