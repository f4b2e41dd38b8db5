package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropwatch/internal/classify"
	"cropwatch/internal/decision"
	"cropwatch/internal/pipeline"
	"cropwatch/internal/report"
)

type staticStatus pipeline.Status

func (s staticStatus) Status() pipeline.Status { return pipeline.Status(s) }

var testLabels = []string{"Aphid", "Black Rust", "Healthy"}

func newTestRouter(t *testing.T, rec *report.Recorder, loop StatusSource) *mux.Router {
	t.Helper()
	engine, err := decision.NewEngine(decision.DefaultRuleConfig())
	require.NoError(t, err)
	r := mux.NewRouter()
	NewHandler(engine, rec, loop, testLabels).RegisterRoutes(r)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	w := do(newTestRouter(t, nil, nil), "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "ok", response["status"])
}

func TestInfoEndpoint(t *testing.T) {
	w := do(newTestRouter(t, nil, nil), "GET", "/info", "")
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Labels  []string            `json:"labels"`
		Classes map[string][]string `json:"classes"`
		Rules   decision.RuleConfig `json:"rules"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, testLabels, response.Labels)
	assert.Equal(t, []string{"Aphid"}, response.Classes["Pest"])
	assert.Equal(t, []string{"Black Rust"}, response.Classes["Disease"])
	assert.InDelta(t, 0.8, response.Rules.MinConfidence, 1e-12)
}

func TestStatusEndpoint(t *testing.T) {
	rec := report.NewRecorder()
	require.NoError(t, rec.Emit(report.NewAnalysis(time.Now(),
		classify.Result{Label: "Aphid", Confidence: 0.9},
		decision.Recommendation{SprayRecommended: true, Reason: "Pest Detected: Aphid (Confidence: 90.0%)", AmountMl: 800},
		1000)))
	loop := staticStatus{State: pipeline.StateRunning, Cycles: 1}

	w := do(newTestRouter(t, rec, loop), "GET", "/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, float64(1), response["analyses"])
	assert.Equal(t, "running", response["loop"].(map[string]interface{})["state"])
	last := response["last_report"].(map[string]interface{})
	assert.Equal(t, "Aphid", last["label"])
}

func TestStatusEndpointWithoutLoop(t *testing.T) {
	w := do(newTestRouter(t, nil, nil), "GET", "/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"loop": null, "analyses": 0, "last_report": null}`, w.Body.String())
}

func TestDecideEndpoint(t *testing.T) {
	r := newTestRouter(t, nil, nil)

	w := do(r, "POST", "/decide", `{"label": "Black Rust", "confidence": 0.9, "field_area_sqm": 2000}`)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Class struct {
			Name string `json:"name"`
			Kind string `json:"kind"`
		} `json:"class"`
		FieldAreaSqm   float64                 `json:"field_area_sqm"`
		Recommendation decision.Recommendation `json:"recommendation"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Recommendation.SprayRecommended)
	assert.InDelta(t, 1200.0, resp.Recommendation.AmountMl, 1e-9)
	assert.Equal(t, "Disease Detected: Black Rust (Confidence: 90.0%)", resp.Recommendation.Reason)
	assert.Equal(t, 2000.0, resp.FieldAreaSqm)
	assert.Equal(t, "Disease", resp.Class.Kind)

	w = do(r, "POST", "/decide", `{"label": "Healthy", "confidence": 0.95}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.False(t, resp.Recommendation.SprayRecommended)
	assert.Equal(t, decision.DefaultFieldAreaSqm, resp.FieldAreaSqm)
}

func TestDecideEndpointBadInput(t *testing.T) {
	r := newTestRouter(t, nil, nil)
	for _, body := range []string{
		`not json`,
		`{"label": "Aphid"}`,
		`{"confidence": 0.9}`,
		`{"label": "Aphid", "confidence": 1.5}`,
		`{"label": "Aphid", "confidence": 0.9, "field_area_sqm": -5}`,
		`{"label": "Aphid", "confidence": 0.9, "extra": true}`,
	} {
		w := do(r, "POST", "/decide", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestDecideRequiresPost(t *testing.T) {
	w := do(newTestRouter(t, nil, nil), "GET", "/decide", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
