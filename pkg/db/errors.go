package db

import (
	stderrors "errors"

	"github.com/moussakone/librio-backend/pkg/errors"
	"gorm.io/gorm"
)

// TranslateError maps gorm errors onto the service error taxonomy so
// repositories return codes controllers can render.
func TranslateError(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	switch {
	case stderrors.Is(err, gorm.ErrRecordNotFound):
		return errors.New(errors.CodeNotFound, notFoundMsg)
	case stderrors.Is(err, gorm.ErrDuplicatedKey):
		return errors.Wrap(errors.CodeConflict, err, "duplicate record")
	case stderrors.Is(err, gorm.ErrForeignKeyViolated):
		return errors.Wrap(errors.CodeValidation, err, "referenced record does not exist")
	default:
		return errors.Wrap(errors.CodeDependency, err, "database error")
	}
}
