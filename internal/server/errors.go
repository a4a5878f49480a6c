package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/transaction-desk/internal/attachment"
	"github.com/jonathan/transaction-desk/internal/pipeline"
	"github.com/jonathan/transaction-desk/internal/recordstore"
	"github.com/jonathan/transaction-desk/internal/renderclient"
	"github.com/jonathan/transaction-desk/internal/schemas"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrForbidden indicates a valid token used for the wrong record
type ErrForbidden struct {
	Message string
}

func (e *ErrForbidden) Error() string {
	return "forbidden: " + e.Message
}

// validationError converts struct validation failures into an ErrValidation
// naming the first offending field.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ErrValidation{Field: fe.Namespace(), Message: fmt.Sprintf("failed %q check", fe.Tag())}
	}
	return &ErrValidation{Field: "(root)", Message: err.Error()}
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validationErr  *ErrValidation
		schemaErr      *schemas.ValidationError
		forbiddenErr   *ErrForbidden
		timeoutErr     *pipeline.RenderTimeoutError
		recordStoreErr *recordstore.RecordStoreError
		sizeErr        *attachment.SizeLimitError
		endpointErr    *renderclient.Error
	)

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validationErr), errors.As(err, &schemaErr):
		return http.StatusBadRequest
	case errors.As(err, &forbiddenErr):
		return http.StatusForbidden
	case errors.As(err, &sizeErr):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &timeoutErr):
		return http.StatusGatewayTimeout
	case errors.As(err, &recordStoreErr), errors.As(err, &endpointErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
