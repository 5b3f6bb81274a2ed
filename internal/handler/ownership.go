package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/josh-kwaku/invoice-reconciler/internal/auth"
	"github.com/josh-kwaku/invoice-reconciler/internal/domain"
)

type paymentLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
}

// tenantFromContext returns the authenticated tenant.
func tenantFromContext(r *http.Request) (uuid.UUID, *AppError) {
	tenantID, ok := auth.TenantIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, ErrMissingToken
	}
	return tenantID, nil
}

// pathUUID parses a path value. Malformed ids read as not found.
func pathUUID(r *http.Request, name string) (uuid.UUID, *AppError) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, ErrResourceNotFound
	}
	return id, nil
}

// ownedPayment resolves the {id} path payment and hides it unless it
// belongs to the caller's tenant.
func ownedPayment(r *http.Request, payments paymentLookup) (*domain.Payment, error) {
	tenantID, appErr := tenantFromContext(r)
	if appErr != nil {
		return nil, appErr
	}
	paymentID, appErr := pathUUID(r, "id")
	if appErr != nil {
		return nil, appErr
	}

	p, err := payments.GetByID(r.Context(), paymentID)
	if err != nil {
		return nil, err
	}
	if p.TenantID != tenantID {
		return nil, ErrResourceNotFound
	}
	return p, nil
}

// respondError writes err as an AppError if it is one, otherwise through the
// domain error table.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	if appErr, ok := err.(*AppError); ok {
		RespondAppError(w, appErr, nil)
		return
	}
	RespondDomainError(w, r, err)
}
