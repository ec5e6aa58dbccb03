package service

import (
	domain "training-enrollment/internal/domain/enrollment"
	"training-enrollment/internal/infrastructure/database"
	"training-enrollment/pkg/validator"
)

// storageError keeps taxonomy errors as they are, turns constraint
// violations into Conflict and wraps everything else as Infrastructure
// so the original cause stays inspectable.
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if domain.KindOf(err) != nil {
		return err
	}
	if database.IsDuplicateKey(err) {
		return domain.NewConflictError("%s: record already exists", op)
	}
	return domain.NewInfrastructureError(op, err)
}

func validationError(err error) error {
	return domain.NewInvalidArgumentError("%s", validator.Summarize(err))
}
