package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	FlowErrorBadInput         = "FLOW_BAD_INPUT"
	FlowErrorNotFound         = "FLOW_NOT_FOUND"
	FlowErrorSendFailed       = "FLOW_SEND_FAILED"
	FlowErrorStoreUnavailable = "FLOW_STORE_UNAVAILABLE"
	FlowErrorInternal         = "FLOW_INTERNAL_ERROR"
	FlowErrorRateLimited      = "FLOW_RATE_LIMITED"
)

func flowErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureFlowErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "not registered"), strings.Contains(msg, "not found"):
		return newFlowError(err.Error(), goerrors.CategoryNotFound, FlowErrorNotFound)
	case strings.Contains(msg, "send"), strings.Contains(msg, "gateway"):
		return newFlowError(err.Error(), goerrors.CategoryOperation, FlowErrorSendFailed)
	case strings.Contains(msg, "store"), strings.Contains(msg, "repository"):
		return newFlowError(err.Error(), goerrors.CategoryOperation, FlowErrorStoreUnavailable)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newFlowError(err.Error(), goerrors.CategoryBadInput, FlowErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureFlowErrorEnvelope(mapped)
}

func newFlowError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureFlowErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureFlowErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = flowHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultFlowTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultFlowTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return FlowErrorBadInput
	case goerrors.CategoryNotFound:
		return FlowErrorNotFound
	case goerrors.CategoryOperation:
		return FlowErrorSendFailed
	case goerrors.CategoryRateLimit:
		return FlowErrorRateLimited
	default:
		return FlowErrorInternal
	}
}

func flowHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryOperation:
		return http.StatusBadGateway
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
