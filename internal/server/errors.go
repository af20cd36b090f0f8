package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	documentdomain "github.com/smallbiznis/docflow/internal/document/domain"
	paymentdomain "github.com/smallbiznis/docflow/internal/payment/domain"
	taxdomain "github.com/smallbiznis/docflow/internal/tax/domain"
	"github.com/smallbiznis/docflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var itemsErr *documentdomain.ValidationError
	if errors.As(err, &itemsErr) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "invalid line items",
			Errors:  fieldErrors(itemsErr),
		}
	}

	if code, ok := validationErrorCode(err); ok {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	switch {
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, documentdomain.ErrAllocationFailure),
		errors.Is(err, documentdomain.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func fieldErrors(verr *documentdomain.ValidationError) []ValidationError {
	out := make([]ValidationError, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		field := f.Field
		if f.Index >= 0 {
			field = fmt.Sprintf("items[%d].%s", f.Index, f.Field)
		}
		out = append(out, ValidationError{
			Field:   field,
			Code:    documentdomain.ErrInvalidLineItems.Error(),
			Message: f.Message,
		})
	}
	return out
}

// validationErrorCode reports the sentinel code of errors caused by bad input.
func validationErrorCode(err error) (string, bool) {
	for _, target := range []error{
		ErrInvalidRequest,
		documentdomain.ErrInvalidDocumentType,
		documentdomain.ErrInvalidStatus,
		documentdomain.ErrInvalidDiscount,
		documentdomain.ErrInvalidCurrency,
		documentdomain.ErrInvalidDocumentID,
		documentdomain.ErrInvalidPayment,
		taxdomain.ErrInvalidProtocol,
		paymentdomain.ErrInvalidAmount,
		paymentdomain.ErrInvalidMethod,
		pagination.ErrInvalidPageToken,
	} {
		if errors.Is(err, target) {
			return target.Error(), true
		}
	}
	return "", false
}

func validationErrorField(code string) string {
	switch code {
	case ErrInvalidRequest.Error():
		return "request"
	case documentdomain.ErrInvalidDocumentID.Error():
		return "id"
	case pagination.ErrInvalidPageToken.Error():
		return "page_token"
	case taxdomain.ErrInvalidProtocol.Error():
		return "tax_protocol"
	case paymentdomain.ErrInvalidAmount.Error():
		return "amount"
	case paymentdomain.ErrInvalidMethod.Error():
		return "method"
	case documentdomain.ErrInvalidDiscount.Error():
		return "discount"
	case documentdomain.ErrInvalidCurrency.Error():
		return "currency"
	case documentdomain.ErrInvalidDocumentType.Error():
		return "document_type"
	case documentdomain.ErrInvalidStatus.Error():
		return "status"
	default:
		return ""
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, documentdomain.ErrDocumentLocked),
		errors.Is(err, documentdomain.ErrIllegalTransition),
		errors.Is(err, documentdomain.ErrIrreversibleDocument),
		errors.Is(err, documentdomain.ErrDuplicateNumber),
		errors.Is(err, documentdomain.ErrVersionConflict):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, documentdomain.ErrDocumentNotFound),
		errors.Is(err, documentdomain.ErrClientNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

// classifyErrorForLog returns the response type and code logged for a failed request.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		return payload.Type, ErrInternal.Error()
	}
	return payload.Type, code
}
