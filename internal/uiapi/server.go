package uiapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/awaistahir/pvsizer/internal/catalog"
	"github.com/awaistahir/pvsizer/internal/climate"
	"github.com/awaistahir/pvsizer/internal/config"
	"github.com/awaistahir/pvsizer/internal/engine"
	"github.com/awaistahir/pvsizer/internal/equipment"
	"github.com/awaistahir/pvsizer/internal/scenario"
	"github.com/awaistahir/pvsizer/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Version is reported by /api/status
const Version = "1.0.0"

const maxBodyBytes = 1 << 20

type Server struct {
	store     *store.Store
	equipment equipment.Resolver
	climate   *climate.Client
	cfg       *config.Config
	runner    scenario.Runner
	logger    *zap.Logger
	now       func() time.Time
}

func NewServer(st *store.Store, cat *catalog.Catalog, clim *climate.Client, cfg *config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:     st,
		equipment: equipment.Resolver{Store: st, Catalog: cat},
		climate:   clim,
		cfg:       cfg,
		runner:    scenario.Runner{Workers: cfg.Server.ScenarioWorkers},
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	timeout := time.Duration(s.cfg.Server.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(cors)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Post("/strings", s.handleStrings)
		r.Post("/conductors", s.handleConductor)

		r.Post("/designs", s.handleCreateDesign)
		r.Get("/designs", s.handleListDesigns)
		r.Get("/designs/{id}", s.handleGetDesign)
		r.Delete("/designs/{id}", s.handleDeleteDesign)

		r.Post("/scenarios", s.handleScenarios)

		r.Get("/panels", s.handleGetPanels)
		r.Post("/panels", s.handleSavePanel)
		r.Get("/panels/{id}", s.handleGetPanel)
		r.Put("/panels/{id}", s.handleSavePanel)
		r.Delete("/panels/{id}", s.handleDeletePanel)

		r.Get("/inverters", s.handleGetInverters)
		r.Post("/inverters", s.handleSaveInverter)
		r.Get("/inverters/{id}", s.handleGetInverter)
		r.Put("/inverters/{id}", s.handleSaveInverter)
		r.Delete("/inverters/{id}", s.handleDeleteInverter)

		r.Get("/climate", s.handleClimate)
	})

	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"version":  Version,
		"defaults": s.cfg.Design,
	})
}

// equipmentRef selects a panel and inverter either by id or inline
type equipmentRef struct {
	PanelID    string `json:"panel_id,omitempty"`
	InverterID string `json:"inverter_id,omitempty"`
}

func (s *Server) resolve(ref equipmentRef, p *engine.PanelSpec, inv *engine.InverterSpec) error {
	if ref.PanelID != "" {
		spec, err := s.equipment.Panel(ref.PanelID)
		if err != nil {
			return err
		}
		*p = spec
	}
	if ref.InverterID != "" {
		spec, err := s.equipment.Inverter(ref.InverterID)
		if err != nil {
			return err
		}
		*inv = spec
	}
	return nil
}

type StringsRequest struct {
	equipmentRef
	Panel          engine.PanelSpec    `json:"panel"`
	Inverter       engine.InverterSpec `json:"inverter"`
	TMinC          *float64            `json:"t_min_c"`
	TargetDCPowerW float64             `json:"target_dc_power_w"`
	DCACRatio      float64             `json:"dc_ac_ratio"`
	SplitRoof      bool                `json:"split_roof"`
}

func (s *Server) handleStrings(w http.ResponseWriter, r *http.Request) {
	var req StringsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.resolve(req.equipmentRef, &req.Panel, &req.Inverter); err != nil {
		respondLookupError(w, err)
		return
	}

	in := engine.StringInput{
		Panel:          req.Panel,
		Inverter:       req.Inverter,
		TMinC:          s.cfg.Design.TMinC,
		TargetDCPowerW: req.TargetDCPowerW,
		DCACRatio:      req.DCACRatio,
		SplitRoof:      req.SplitRoof,
	}
	if req.TMinC != nil {
		in.TMinC = *req.TMinC
	}

	respondJSON(w, http.StatusOK, engine.ResolveStrings(in))
}

// ConductorRequest sizes one segment. Omitted ambient, grouping and derate
// settings take the configured defaults.
type ConductorRequest struct {
	Derate *bool `json:"derate"`
	engine.ConductorInput
}

func (s *Server) handleConductor(w http.ResponseWriter, r *http.Request) {
	var req ConductorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	in := req.ConductorInput
	if in.Segment == "" {
		in.Segment = engine.SegmentAC
	}
	if in.CurrentCarrying == 0 {
		in.CurrentCarrying = s.cfg.Design.CurrentCarrying
	}
	if in.AmbientC == 0 {
		in.AmbientC = s.cfg.Design.AmbientC
	}
	in.Derate = s.cfg.Design.Derate
	if req.Derate != nil {
		in.Derate = *req.Derate
	}

	// Insufficient data is reported in the result, not as an HTTP error.
	respondJSON(w, http.StatusOK, engine.SizeConductor(in))
}

// DesignRequest is a full sizing request. Zero-valued project parameters take the
// configured defaults. t_min_c and derate are pointers so that 0 °C and an explicit
// opt-out can be told apart from an omitted field.
type DesignRequest struct {
	equipmentRef
	Name   string   `json:"name,omitempty"`
	Save   bool     `json:"save,omitempty"`
	TMinC  *float64 `json:"t_min_c"`
	Derate *bool    `json:"derate"`
	engine.DesignInput
}

// DesignResponse wraps a package with the id it was saved under
type DesignResponse struct {
	RunID   string         `json:"run_id,omitempty"`
	Package engine.Package `json:"package"`
}

func (s *Server) designInput(req DesignRequest) (engine.DesignInput, error) {
	in := req.DesignInput
	if err := s.resolve(req.equipmentRef, &in.Panel, &in.Inverter); err != nil {
		return engine.DesignInput{}, err
	}
	in.TMinC = s.cfg.Design.TMinC
	if req.TMinC != nil {
		in.TMinC = *req.TMinC
	}
	in = s.cfg.Design.Apply(in)
	if req.Derate != nil {
		in.Derate = *req.Derate
	}
	return in, nil
}

func (s *Server) handleCreateDesign(w http.ResponseWriter, r *http.Request) {
	var req DesignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	in, err := s.designInput(req)
	if err != nil {
		respondLookupError(w, err)
		return
	}

	resp := DesignResponse{Package: engine.Design(in)}
	if req.Save {
		run := &store.Run{Name: req.Name, Input: in, Package: resp.Package, CreatedAt: s.now().UTC()}
		if err := s.store.SaveRun(run); err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.RunID = run.ID
		s.logger.Info("design saved", zap.String("run_id", run.ID), zap.Bool("all_green", resp.Package.AllGreen))
		respondJSON(w, http.StatusCreated, resp)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListDesigns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetDesign(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(chi.URLParam(r, "id"))
	if err != nil {
		respondLookupError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, run)
}

func (s *Server) handleDeleteDesign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteRun(id); err != nil {
		respondLookupError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "deleted", "id": id})
}

type ScenarioRequest struct {
	TargetRatio float64         `json:"target_ratio"`
	Scenarios   []DesignRequest `json:"scenarios"`
}

func (s *Server) handleScenarios(w http.ResponseWriter, r *http.Request) {
	var req ScenarioRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Scenarios) == 0 {
		respondError(w, http.StatusBadRequest, "at least one scenario is required")
		return
	}
	if req.TargetRatio <= 0 {
		req.TargetRatio = 1.2
	}

	scenarios := make([]scenario.Scenario, 0, len(req.Scenarios))
	for i, sc := range req.Scenarios {
		in, err := s.designInput(sc)
		if err != nil {
			respondLookupError(w, fmt.Errorf("scenario %d: %w", i, err))
			return
		}
		name := sc.Name
		if name == "" {
			name = fmt.Sprintf("scenario-%d", i+1)
		}
		scenarios = append(scenarios, scenario.Scenario{Name: name, Input: in})
	}

	outcomes, err := s.runner.Run(r.Context(), scenarios)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, scenario.Rank(outcomes, req.TargetRatio))
}

type panelBody struct {
	ID   string           `json:"id"`
	Spec engine.PanelSpec `json:"spec"`
}

func (s *Server) handleGetPanels(w http.ResponseWriter, r *http.Request) {
	panels, err := s.equipment.Panels()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, panels)
}

func (s *Server) handleGetPanel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	spec, err := s.equipment.Panel(id)
	if err != nil {
		respondLookupError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, panelBody{ID: id, Spec: spec})
}

func (s *Server) handleSavePanel(w http.ResponseWriter, r *http.Request) {
	var body panelBody
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	status := http.StatusCreated
	if id := chi.URLParam(r, "id"); id != "" {
		body.ID = id
		status = http.StatusOK
	}
	if body.ID == "" {
		respondError(w, http.StatusBadRequest, "id is required")
		return
	}
	if errs := body.Spec.Validate(); len(errs) > 0 {
		respondError(w, http.StatusUnprocessableEntity, strings.Join(errs, "; "))
		return
	}

	if err := s.store.SavePanel(body.ID, body.Spec); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, status, body)
}

func (s *Server) handleDeletePanel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeletePanel(id); err != nil {
		respondLookupError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "deleted", "id": id})
}

type inverterBody struct {
	ID       string              `json:"id"`
	Spec     engine.InverterSpec `json:"spec"`
	Warnings []engine.Warning    `json:"warnings,omitempty"`
}

func (s *Server) handleGetInverters(w http.ResponseWriter, r *http.Request) {
	inverters, err := s.equipment.Inverters()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, inverters)
}

func (s *Server) handleGetInverter(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	spec, err := s.equipment.Inverter(id)
	if err != nil {
		respondLookupError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, inverterBody{ID: id, Spec: spec})
}

func (s *Server) handleSaveInverter(w http.ResponseWriter, r *http.Request) {
	var body inverterBody
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	status := http.StatusCreated
	if id := chi.URLParam(r, "id"); id != "" {
		body.ID = id
		status = http.StatusOK
	}
	if body.ID == "" {
		respondError(w, http.StatusBadRequest, "id is required")
		return
	}
	errs, warns := body.Spec.Validate()
	if len(errs) > 0 {
		respondError(w, http.StatusUnprocessableEntity, strings.Join(errs, "; "))
		return
	}

	if err := s.store.SaveInverter(body.ID, body.Spec); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	body.Warnings = warns
	respondJSON(w, status, body)
}

func (s *Server) handleDeleteInverter(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteInverter(id); err != nil {
		respondLookupError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "deleted", "id": id})
}

func (s *Server) handleClimate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	if errLat != nil || errLon != nil {
		respondError(w, http.StatusBadRequest, "lat and lon query parameters are required")
		return
	}
	years := s.cfg.Climate.Years
	if v := q.Get("years"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "years must be a positive integer")
			return
		}
		years = n
	}

	if cached, err := s.store.GetCachedClimate(lat, lon, years); err == nil {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	temps, err := s.climate.DesignTemperatures(r.Context(), lat, lon, years, s.now())
	if err != nil {
		if errors.Is(err, climate.ErrInvalidLocation) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusBadGateway, "failed to fetch climate data: "+err.Error())
		return
	}
	if err := s.store.CacheClimate(lat, lon, years, temps); err != nil {
		s.logger.Warn("caching climate data failed", zap.Error(err))
	}
	respondJSON(w, http.StatusOK, temps)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// respondLookupError maps not-found sentinels to 404
func respondLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, equipment.ErrNotFound), errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
