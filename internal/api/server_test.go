package api

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellguard-data/cellguard.report/internal/telemetry"
	"github.com/cellguard-data/cellguard.report/internal/testutil"
)

func newTestServer() *Server {
	return NewServer(telemetry.NewSimulator(42), nil)
}

func doRequest(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := testutil.NewTestRecorder()
	s.ServeMux().ServeHTTP(rec, testutil.NewTestRequest(method, path))
	return rec
}

func TestHandleBattery(t *testing.T) {
	s := newTestServer()

	rec := doRequest(t, s, http.MethodGet, "/battery")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp struct {
		Latest struct {
			Timestamp   string   `json:"timestamp"`
			HealthScore *float64 `json:"health_score"`
			WeakestCell string   `json:"weakest_cell"`
		} `json:"latest"`
		Assessment struct {
			Risk       string `json:"risk"`
			Action     string `json:"action"`
			Confidence string `json:"confidence"`
		} `json:"assessment"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Latest.HealthScore)
	assert.GreaterOrEqual(t, *resp.Latest.HealthScore, 0.0)
	assert.LessOrEqual(t, *resp.Latest.HealthScore, 100.0)
	assert.NotEmpty(t, resp.Latest.WeakestCell)
	assert.NotEmpty(t, resp.Latest.Timestamp)
	assert.NotEmpty(t, resp.Assessment.Risk)
	assert.NotEmpty(t, resp.Assessment.Action)
	assert.NotEmpty(t, resp.Assessment.Confidence)
}

func TestHandleBatteryRejectsBadInput(t *testing.T) {
	s := newTestServer()

	tests := []struct {
		name string
		path string
	}{
		{"unknown scenario", "/battery?scenario=underwater"},
		{"non-numeric window", "/battery?window=ten"},
		{"charge reduction above cap", "/battery?charge_reduction=75"},
		{"negative cooling improvement", "/battery?cooling_improvement=-5"},
		{"unknown range", "/battery?range=fortnight"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodGet, tt.path)
			testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}

func TestHandleBatteryMethodNotAllowed(t *testing.T) {
	s := newTestServer()
	rec := doRequest(t, s, http.MethodPost, "/battery")
	testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
}

func TestHandleBatteryScenario(t *testing.T) {
	s := newTestServer()
	rec := doRequest(t, s, http.MethodGet, "/battery?scenario=aggressive_charging")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
}

func TestHandleUpload(t *testing.T) {
	s := newTestServer()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.Write([]string{"Cell1", "Cell2", "Temp1"}))
	for i := 0; i < 15; i++ {
		require.NoError(t, w.Write([]string{"3500", fmt.Sprintf("%d", 3490-i), "31"}))
	}
	w.Flush()

	req := httptest.NewRequest(http.MethodPost, "/battery/upload", &buf)
	rec := testutil.NewTestRecorder()
	s.ServeMux().ServeHTTP(rec, req)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var resp struct {
		Latest struct {
			WeakestCell string `json:"weakest_cell"`
		} `json:"latest"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Cell2", resp.Latest.WeakestCell)
}

func TestHandleUploadRejectsEmptyBody(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/battery/upload", strings.NewReader(""))
	rec := testutil.NewTestRecorder()
	s.ServeMux().ServeHTTP(rec, req)
	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
}

func TestHandleBatteryReport(t *testing.T) {
	s := newTestServer()
	rec := doRequest(t, s, http.MethodGet, "/battery/report.csv")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "battery_report.csv")

	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"metric", "value"}, records[0])
}

func TestHandleFleet(t *testing.T) {
	s := newTestServer()

	rec := doRequest(t, s, http.MethodGet, "/fleet?size=3")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var resp struct {
		Fleet []struct {
			BatteryID     string `json:"battery_id"`
			FailureWindow int    `json:"failure_window_cycles"`
			Risk          string `json:"risk"`
		} `json:"fleet"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Fleet, 3)
	for _, e := range resp.Fleet {
		assert.Regexp(t, `^BAT-\d{2}$`, e.BatteryID)
		assert.NotEmpty(t, e.Risk)
	}
}

func TestHandleFleetRejectsBadSize(t *testing.T) {
	s := newTestServer()
	for _, path := range []string{"/fleet?size=0", "/fleet?size=999", "/fleet?size=lots"} {
		rec := doRequest(t, s, http.MethodGet, path)
		testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
	}
}

func TestHandleFleetReport(t *testing.T) {
	s := newTestServer()
	rec := doRequest(t, s, http.MethodGet, "/fleet/report.csv?size=2")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3) // header + 2 batteries
	assert.Equal(t, "battery_id", records[0][0])
}

func TestHandleScenarios(t *testing.T) {
	s := newTestServer()
	rec := doRequest(t, s, http.MethodGet, "/scenarios")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var resp struct {
		Names []string `json:"names"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Names, "baseline")
	assert.Contains(t, resp.Names, "aggressive_charging")
	assert.Contains(t, resp.Names, "high_ambient")
	assert.Contains(t, resp.Names, "conservative")
}

func TestChartHandlers(t *testing.T) {
	s := newTestServer()

	for _, path := range []string{"/charts/health", "/charts/cell_diff", "/charts/temp_max"} {
		t.Run(path, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodGet, path)
			testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
			assert.Contains(t, rec.Body.String(), "echarts")
		})
	}
}

func TestUnitConversionQuery(t *testing.T) {
	s := newTestServer()

	celsius := doRequest(t, s, http.MethodGet, "/battery")
	fahrenheit := doRequest(t, s, http.MethodGet, "/battery?temp_units=f")
	testutil.AssertStatusCode(t, celsius.Code, http.StatusOK)
	testutil.AssertStatusCode(t, fahrenheit.Code, http.StatusOK)

	// Each request draws a fresh synthetic history, so compare ranges
	// rather than exact values: the simulator keeps temperatures near
	// 30°C, which is near 86°F.
	parse := func(rec *httptest.ResponseRecorder) float64 {
		var resp struct {
			Latest struct {
				TempMax float64 `json:"temp_max"`
			} `json:"latest"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp.Latest.TempMax
	}
	assert.InDelta(t, 30, parse(celsius), 10)
	assert.InDelta(t, 86, parse(fahrenheit), 18)
}

// Handlers share one simulator, so parallel requests must not trip the
// race detector on its RNG.
func TestConcurrentBatteryRequests(t *testing.T) {
	s := newTestServer()
	mux := s.ServeMux()

	var wg sync.WaitGroup
	codes := make([]int, 8)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := testutil.NewTestRecorder()
			mux.ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/battery"))
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()
	for i, code := range codes {
		assert.Equal(t, http.StatusOK, code, "request %d", i)
	}
}

func TestDisplayUnitValidation(t *testing.T) {
	s := newTestServer()

	t.Run("valid units accepted", func(t *testing.T) {
		for _, path := range []string{
			"/battery?temp_units=f",
			"/battery?temp_units=c",
			"/battery?cell_units=v",
			"/battery?cell_units=mv",
		} {
			rec := doRequest(t, s, http.MethodGet, path)
			testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
		}
	})

	t.Run("invalid units rejected", func(t *testing.T) {
		for _, path := range []string{
			"/battery?temp_units=k",
			"/battery?cell_units=kv",
		} {
			rec := doRequest(t, s, http.MethodGet, path)
			testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
			assert.Contains(t, rec.Body.String(), "error")
		}
	})
}

func TestStatusCodeColor(t *testing.T) {
	t.Parallel()

	assert.Contains(t, statusCodeColor(200), "200")
	assert.Contains(t, statusCodeColor(302), "302")
	assert.Contains(t, statusCodeColor(500), "500")
	assert.Contains(t, statusCodeColor(200), colorBoldGreen)
	assert.Contains(t, statusCodeColor(404), colorBoldRed)
}
