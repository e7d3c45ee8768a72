// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cellguard-data/cellguard.report/internal/telemetry"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

// FlatPackTable builds a raw table of n rows describing a perfectly
// uniform pack: `cells` cell channels all at exactly 3500 mV and `temps`
// temperature channels all at exactly 30°C, with no capacity columns.
// Useful for exercising the zero-spread edge cases.
func FlatPackTable(t *testing.T, n, cells, temps int) *telemetry.Table {
	t.Helper()
	tbl := telemetry.NewTable()
	for c := 1; c <= cells; c++ {
		col := make([]float64, n)
		for i := range col {
			col[i] = 3500
		}
		AssertNoError(t, tbl.SetFloats(fmt.Sprintf("%s%d", telemetry.CellPrefix, c), col))
	}
	for c := 1; c <= temps; c++ {
		col := make([]float64, n)
		for i := range col {
			col[i] = 30
		}
		AssertNoError(t, tbl.SetFloats(fmt.Sprintf("%s%d", telemetry.TempPrefix, c), col))
	}
	return tbl
}
