package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

var errGone = errors.New("gone")

func TestClassify(t *testing.T) {
	rules := []Rule{{Target: errGone, Status: http.StatusNotFound, Code: "gone"}}

	got := Classify(fmt.Errorf("load: %w", errGone), rules, "load_failed")
	if got.Status != http.StatusNotFound || got.Code != "gone" || !got.Public() {
		t.Fatalf("unexpected classification: %+v", got)
	}
	if !errors.Is(got, errGone) {
		t.Fatalf("expected wrapped sentinel")
	}

	got = Classify(errors.New("boom"), rules, "load_failed")
	if got.Status != http.StatusInternalServerError || got.Code != "load_failed" || got.Public() {
		t.Fatalf("unexpected fallback: %+v", got)
	}

	explicit := New(http.StatusTeapot, "teapot", nil)
	if got := Classify(fmt.Errorf("wrap: %w", explicit), rules, "x"); got != explicit {
		t.Fatalf("expected explicit api error to win, got %+v", got)
	}
}

func TestErrorMessage(t *testing.T) {
	var nilErr *Error
	if nilErr.Error() != "" {
		t.Fatalf("nil error should render empty")
	}
	if got := New(http.StatusBadRequest, "bad", nil).Error(); got != "bad" {
		t.Fatalf("got %q", got)
	}
	if got := New(http.StatusBadGateway, "", nil).Error(); got != "api error (502)" {
		t.Fatalf("got %q", got)
	}
}
