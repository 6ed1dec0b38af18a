package query

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-botflow/core"
)

func TestHandoffStatusMessage_ValidateReturnsRichError(t *testing.T) {
	err := (HandoffStatusMessage{}).Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryValidation {
		t.Fatalf("expected validation category, got %q", rich.Category)
	}
	if rich.TextCode != core.FlowErrorBadInput {
		t.Fatalf("expected %q text code, got %q", core.FlowErrorBadInput, rich.TextCode)
	}
}

func TestHandoffStatusQuery_NilReaderReturnsRichError(t *testing.T) {
	var q *HandoffStatusQuery
	_, err := q.Query(context.Background(), HandoffStatusMessage{ConversationID: 7})
	if err == nil {
		t.Fatalf("expected query dependency error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
}
