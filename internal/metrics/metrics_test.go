package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"

	"promotions-service/internal/models"
)

func TestResult(t *testing.T) {
	if got := Result(nil); got != ResultOK {
		t.Errorf("Expected %s, got %s", ResultOK, got)
	}
	wrapped := errors.Wrap(models.NoIDError(), "update")
	if got := Result(wrapped); got != ResultInvalid {
		t.Errorf("Expected %s, got %s", ResultInvalid, got)
	}
	if got := Result(errors.New("disk full")); got != ResultError {
		t.Errorf("Expected %s, got %s", ResultError, got)
	}
}

func TestObserveAndHandler(t *testing.T) {
	reg := NewRegistry()
	m := New(reg)

	m.Observe("create", time.Now(), nil)
	m.Observe("create", time.Now(), models.ConstraintError(errors.New("CHECK constraint failed")))

	var nilMetrics *Metrics
	nilMetrics.Observe("create", time.Now(), nil)

	rr := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rr.Body)
	out := string(body)

	for _, want := range []string{
		`promotions_store_operations_total{operation="create",result="ok"} 1`,
		`promotions_store_operations_total{operation="create",result="invalid"} 1`,
		`promotions_store_operation_duration_seconds_count{operation="create"} 2`,
		"go_goroutines",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in exposition", want)
		}
	}
}
