package gateway

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-botflow/core"
)

func gatewayError(
	message string,
	category goerrors.Category,
	code int,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(core.FlowErrorSendFailed)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func gatewayWrapError(
	source error,
	category goerrors.Category,
	message string,
	metadata map[string]any,
) error {
	if source == nil {
		return gatewayError(message, category, http.StatusBadGateway, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(http.StatusBadGateway).
		WithTextCode(core.FlowErrorSendFailed)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func gatewayBadInput(message string, metadata map[string]any) error {
	return gatewayError(
		message,
		goerrors.CategoryBadInput,
		http.StatusBadRequest,
		metadata,
	)
}
