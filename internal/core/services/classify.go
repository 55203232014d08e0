package services

import (
	"errors"

	"github.com/custodia-labs/caresync/internal/core/domain"
)

// Classify maps an arbitrary error onto a DomainError for op.
// A DomainError already in the chain is returned unchanged.
func Classify(op string, err error) *domain.DomainError {
	if err == nil {
		return nil
	}

	var de *domain.DomainError
	if errors.As(err, &de) {
		return de
	}

	// Remote failures are retryable whatever status the backend reported.
	var re *domain.RemoteError
	if errors.As(err, &re) {
		return domain.NewDomainError(domain.KindNetwork, op, err)
	}

	switch {
	case errors.Is(err, domain.ErrMalformedDocument),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrScopeRequired):
		return domain.NewDomainError(domain.KindValidation, op, err)
	case errors.Is(err, domain.ErrLocalStore):
		return domain.NewDomainError(domain.KindDatabase, op, err)
	case errors.Is(err, domain.ErrNotFound):
		return domain.NewDomainError(domain.KindNotFound, op, err)
	default:
		return domain.NewDomainError(domain.KindUnknown, op, err)
	}
}
