package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/domain"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/repository"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/usecase"
)

// RespondWithError translates usecase and domain errors into the wire
// contract. Unknown errors collapse to a generic 500 so internals never leak.
func RespondWithError(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	if errors.Is(err, usecase.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized,
			NewErrorResponse(c, domain.CodeUnauthenticated, "invalid credentials"))
		return
	}

	if derr, ok := domain.AsError(err); ok {
		c.JSON(derr.Status, NewErrorResponse(c, derr.Code, derr.Message))
		return
	}

	c.JSON(http.StatusInternalServerError,
		NewErrorResponse(c, domain.CodeServiceError, "internal error"))
}

// mapRepositoryError turns the repository miss sentinel into a typed not-found
// error; anything else is surfaced as a service failure for the named resource.
func mapRepositoryError(err error, resource, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NewNotFoundError(resource, id)
	}
	return domain.NewServiceError(resource, resource+" lookup failed").WithCause(err)
}
