package rest

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/davidleathers/contact-guardian/internal/domain/errors"
)

// mapError turns err into a status code and error body
func mapError(err error) (int, *ErrorResponse) {
	var (
		appErr      *errors.AppError
		fieldErrs   validator.ValidationErrors
		syntaxErr   *json.SyntaxError
		typeErr     *json.UnmarshalTypeError
		maxBytesErr *http.MaxBytesError
	)

	switch {
	case stderrors.As(err, &fieldErrs):
		fields := make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields[fe.Field()] = formatValidationError(fe)
		}
		return http.StatusBadRequest, &ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "request validation failed",
			Fields:  fields,
		}

	case stderrors.As(err, &appErr):
		status := appErr.StatusCode
		if status == 0 {
			status = http.StatusInternalServerError
		}
		msg := appErr.Message
		if status >= http.StatusInternalServerError && appErr.Type == errors.ErrorTypeInternal {
			msg = "internal server error"
		}
		return status, &ErrorResponse{
			Code:    appErr.Code,
			Message: msg,
			Details: appErr.Details,
		}

	case stderrors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge, &ErrorResponse{
			Code:    "BODY_TOO_LARGE",
			Message: "request body too large",
		}

	case stderrors.As(err, &syntaxErr), stderrors.Is(err, io.ErrUnexpectedEOF):
		return http.StatusBadRequest, &ErrorResponse{
			Code:    "INVALID_JSON",
			Message: "request body is not valid JSON",
		}

	case stderrors.As(err, &typeErr):
		return http.StatusBadRequest, &ErrorResponse{
			Code:    "INVALID_FIELD_TYPE",
			Message: "field has the wrong type",
			Fields:  map[string]string{typeErr.Field: "expected " + typeErr.Type.String()},
		}

	case stderrors.Is(err, io.EOF):
		return http.StatusBadRequest, &ErrorResponse{
			Code:    "EMPTY_BODY",
			Message: "request body is required",
		}

	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, &ErrorResponse{
			Code:    "TIMEOUT",
			Message: "request timed out",
		}

	case stderrors.Is(err, context.Canceled):
		return 499, &ErrorResponse{
			Code:    "REQUEST_CANCELLED",
			Message: "request was cancelled",
		}
	}

	// DisallowUnknownFields reports unknown keys as a plain error
	if err != nil && strings.HasPrefix(err.Error(), "json: unknown field ") {
		return http.StatusBadRequest, &ErrorResponse{
			Code:    "UNKNOWN_FIELD",
			Message: err.Error(),
		}
	}

	return http.StatusInternalServerError, &ErrorResponse{
		Code:    "INTERNAL_ERROR",
		Message: "internal server error",
	}
}
