package core

import (
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestDefaultErrorMapper_ClassifiesByMessage(t *testing.T) {
	cases := []struct {
		err      error
		textCode string
		code     int
	}{
		{fmt.Errorf("flow: flow not registered: retail"), FlowErrorNotFound, http.StatusNotFound},
		{fmt.Errorf("gateway: send failed"), FlowErrorSendFailed, http.StatusBadGateway},
		{fmt.Errorf("core: phone is required"), FlowErrorBadInput, http.StatusBadRequest},
	}

	for _, tc := range cases {
		mapped := DefaultErrorMapper(tc.err)
		if mapped == nil {
			t.Fatalf("expected mapped error for %v", tc.err)
		}
		if mapped.TextCode != tc.textCode {
			t.Fatalf("unexpected text code for %v: got %q want %q", tc.err, mapped.TextCode, tc.textCode)
		}
		if mapped.Code != tc.code {
			t.Fatalf("unexpected status for %v: got %d want %d", tc.err, mapped.Code, tc.code)
		}
	}
}

func TestDefaultErrorMapper_PreservesRichErrors(t *testing.T) {
	source := goerrors.New("template missing", goerrors.CategoryNotFound).
		WithTextCode("TEMPLATE_MISSING")

	mapped := DefaultErrorMapper(source)
	if mapped == nil {
		t.Fatalf("expected mapped error")
	}
	if mapped.TextCode != "TEMPLATE_MISSING" {
		t.Fatalf("expected explicit text code to survive, got %q", mapped.TextCode)
	}
	if mapped.Code != http.StatusNotFound {
		t.Fatalf("expected status to be filled in, got %d", mapped.Code)
	}
}

func TestDefaultErrorMapper_NilPassthrough(t *testing.T) {
	if mapped := DefaultErrorMapper(nil); mapped != nil {
		t.Fatalf("expected nil for nil error, got %v", mapped)
	}
}
