package metrics

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"termux-mcp/internal/dispatch"
)

func TestRegisterAndRecordAreSafe(t *testing.T) {
	Register()
	Register()

	RecordHTTPRequest("GET", "/health", 200, 3*time.Millisecond)
	RecordToolCall("get_system_info", "success", 12*time.Millisecond)

	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	if !strings.Contains(string(body), `termux_mcp_tool_calls_total{outcome="success",tool="get_system_info"}`) {
		t.Fatalf("tool counter missing from exposition:\n%s", body)
	}
}

func TestUnknownToolNamesShareOneSeries(t *testing.T) {
	Register()
	RecordToolCall("no_such_tool_seed", dispatch.KindOperationNotFound.String(), time.Millisecond)
	before := testutil.CollectAndCount(toolCalls)

	for i := 0; i < 100; i++ {
		RecordToolCall(fmt.Sprintf("no_such_tool_%d", i), dispatch.KindOperationNotFound.String(), time.Millisecond)
	}
	if got := testutil.CollectAndCount(toolCalls); got != before {
		t.Fatalf("expected %d series, got %d", before, got)
	}
	if got := testutil.ToFloat64(toolCalls.WithLabelValues(UnknownTool, OutcomeNotFound)); got < 101 {
		t.Fatalf("expected unknown tool counter >= 101, got %v", got)
	}
}
