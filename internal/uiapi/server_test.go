package uiapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/awaistahir/pvsizer/internal/catalog"
	"github.com/awaistahir/pvsizer/internal/climate"
	"github.com/awaistahir/pvsizer/internal/config"
	"github.com/awaistahir/pvsizer/internal/engine"
	"github.com/awaistahir/pvsizer/internal/scenario"
	"github.com/awaistahir/pvsizer/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	handler      http.Handler
	archiveCalls *int32
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("{}\n"), 0o644))
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	st, err := store.NewStore(filepath.Join(dir, "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cat, err := catalog.Default()
	require.NoError(t, err)

	var calls int32
	archive := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"daily":{"time":["2024-01-15","2024-07-20"],
			"temperature_2m_max":[4.0,38.5],"temperature_2m_min":[-6.2,21.0]}}`))
	}))
	t.Cleanup(archive.Close)

	srv := NewServer(st, cat, climate.NewClient(archive.URL, time.Second), cfg, zap.NewNop())
	srv.now = func() time.Time { return time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC) }
	return testEnv{handler: srv.Handler(), archiveCalls: &calls}
}

func (e testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const designBody = `{
  "panel_id": "mono-540",
  "inverter_id": "string-8k-1p",
  "t_min_c": 10,
  "ambient_c": 30,
  "target_dc_power_w": 8640,
  "dc_string": {"length_m": 25},
  "ac_output": {"length_m": 20}
}`

func TestStatus(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version":"1.0.0"`)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCreateDesignAppliesDefaults(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/designs", designBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[DesignResponse](t, rec)
	assert.Empty(t, resp.RunID)
	pkg := resp.Package
	require.True(t, pkg.AllGreen, "errors=%v warnings=%v", pkg.Errors, pkg.Warnings)
	assert.Equal(t, 1.25, pkg.Currents.SafetyFactor)

	dc, ok := pkg.Conductor(engine.SegmentDCString)
	require.True(t, ok)
	assert.Equal(t, "10 AWG", dc.Gauge)
	ac, ok := pkg.Conductor(engine.SegmentAC)
	require.True(t, ok)
	assert.Equal(t, "8 AWG", ac.Gauge)
	assert.Equal(t, 45.0, pkg.ACProtection.RatingA)
}

func TestCreateDesignDeratesSiteAmbient(t *testing.T) {
	env := newTestEnv(t)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(designBody), &body))
	body["ambient_c"] = 45

	rec := env.do(t, http.MethodPost, "/api/designs", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ac, ok := decode[DesignResponse](t, rec).Package.Conductor(engine.SegmentAC)
	require.True(t, ok)
	assert.Equal(t, 0.82, ac.TempFactor)
	assert.Equal(t, "6 AWG", ac.Gauge, "8 AWG carries only 41 A at 45 °C")

	body["derate"] = false
	rec = env.do(t, http.MethodPost, "/api/designs", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ac, ok = decode[DesignResponse](t, rec).Package.Conductor(engine.SegmentAC)
	require.True(t, ok)
	assert.Equal(t, 1.0, ac.TempFactor)
	assert.Equal(t, "8 AWG", ac.Gauge)
}

func TestConductorEndpointDeratesByDefault(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/conductors",
		`{"design_current_a": 41.667, "reference_v": 240, "length_m": 20, "target_vd_pct": 2, "ambient_c": 45}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[engine.ConductorResult](t, rec)
	require.True(t, res.OK)
	assert.Equal(t, 0.82, res.Selection.TempFactor)
	assert.Equal(t, "6 AWG", res.Selection.Gauge)

	rec = env.do(t, http.MethodPost, "/api/conductors",
		`{"design_current_a": 41.667, "reference_v": 240, "length_m": 20, "target_vd_pct": 2, "ambient_c": 45, "derate": false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	res = decode[engine.ConductorResult](t, rec)
	assert.Equal(t, 1.0, res.Selection.TempFactor)
	assert.Equal(t, "8 AWG", res.Selection.Gauge)
}

func TestSavedDesignLifecycle(t *testing.T) {
	env := newTestEnv(t)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(designBody), &body))
	body["save"] = true
	body["name"] = "garage roof"

	rec := env.do(t, http.MethodPost, "/api/designs", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[DesignResponse](t, rec)
	require.NotEmpty(t, created.RunID)

	rec = env.do(t, http.MethodGet, "/api/designs/"+created.RunID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	run := decode[store.Run](t, rec)
	assert.Equal(t, "garage roof", run.Name)
	assert.Equal(t, 10.0, run.Input.TMinC)
	assert.True(t, run.Package.AllGreen)

	rec = env.do(t, http.MethodGet, "/api/designs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]store.RunSummary](t, rec), 1)

	rec = env.do(t, http.MethodDelete, "/api/designs/"+created.RunID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/designs/"+created.RunID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDesignRequestErrors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/designs", `{"panel_id": "unknown", "inverter_id": "string-8k-1p"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/designs", `{"panel_id": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/designs", `{"panel_idd": "mono-540"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")
}

func TestStringsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/strings", `{
		"panel": {"model": "inline", "power_w": 540, "vmp_v": 41, "voc_v": 50, "imp_a": 13.2, "isc_a": 13.9, "coef_voc_pct_c": -0.29},
		"inverter_id": "string-8k-1p",
		"t_min_c": 10,
		"target_dc_power_w": 8640
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[engine.StringResult](t, rec)
	require.True(t, res.OK, "errors=%v", res.Errors)
	assert.Equal(t, 8, res.Recommendation.ModulesPerString)
	assert.Equal(t, []int{1, 1}, res.Recommendation.Distribution)
}

func TestConductorEndpointReportsInsufficientData(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/conductors", `{"design_current_a": 40, "reference_v": 240, "length_m": 0, "target_vd_pct": 2}`)
	require.Equal(t, http.StatusOK, rec.Code)

	res := decode[engine.ConductorResult](t, rec)
	assert.False(t, res.OK)
	assert.Equal(t, engine.ReasonInsufficientData, res.Code)
	assert.Contains(t, res.Reason, "insufficient data")
}

func TestPanelCRUD(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/panels", `{"id": "bad", "spec": {"model": "bad", "power_w": 400}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/panels", `{"id": "site-415", "spec": {"model": "Site 415", "power_w": 415,
		"vmp_v": 31.6, "voc_v": 37.8, "imp_a": 13.1, "isc_a": 13.9, "coef_voc_pct_c": -0.26}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/panels", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]interface{}](t, rec), 4)

	rec = env.do(t, http.MethodGet, "/api/panels/site-415", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Site 415")

	rec = env.do(t, http.MethodDelete, "/api/panels/site-415", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodDelete, "/api/panels/site-415", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSaveInverterReturnsSoftWarnings(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/inverters/wide", `{"spec": {"model": "Wide", "ac_power_kw": 5, "vdc_max_v": 500,
		"mppt_min_v": 100, "mppt_max_v": 550, "mppt_count": 1, "imppt_max_a": 15, "nominal_ac_voltage_v": 230, "phases": 1}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), string(engine.WarnInverterWindow))

	rec = env.do(t, http.MethodPost, "/api/inverters", `{"id": "no-mppt-limit", "spec": {"model": "X", "ac_power_kw": 5,
		"vdc_max_v": 600, "mppt_min_v": 100, "mppt_max_v": 500, "mppt_count": 1, "nominal_ac_voltage_v": 230, "phases": 1}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestScenariosRanked(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/scenarios", `{
		"target_ratio": 1.0,
		"scenarios": [
			{"name": "small", "panel_id": "mono-540", "inverter_id": "string-8k-1p", "t_min_c": 10, "target_dc_power_w": 4320,
			 "dc_string": {"length_m": 25}, "ac_output": {"length_m": 20}},
			{"name": "full", "panel_id": "mono-540", "inverter_id": "string-8k-1p", "t_min_c": 10, "target_dc_power_w": 8640,
			 "dc_string": {"length_m": 25}, "ac_output": {"length_m": 20}}
		]
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decode[[]scenario.Outcome](t, rec)
	require.Len(t, out, 2)
	assert.Equal(t, "full", out[0].Name)
	assert.Equal(t, 1, out[0].Rank)
	assert.Equal(t, 1, out[0].Index, "ranking keeps the input index")
	assert.Equal(t, "small", out[1].Name)
	assert.Equal(t, 2, out[1].Rank)

	rec = env.do(t, http.MethodPost, "/api/scenarios", `{"scenarios": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClimateCachesLookups(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodGet, "/api/climate?lat=40.4168&lon=-3.7038&years=1", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		temps := decode[climate.Temperatures](t, rec)
		assert.Equal(t, -6.2, temps.TMinC)
		assert.Equal(t, 38.5, temps.AmbientC)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(env.archiveCalls), "second lookup is served from the cache")

	rec := env.do(t, http.MethodGet, "/api/climate?lat=abc&lon=1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/climate?lat=120&lon=1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
