package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/kartoza/crop-recommender/internal/api"
	"github.com/kartoza/crop-recommender/internal/classifier"
	"github.com/kartoza/crop-recommender/internal/config"
	"github.com/kartoza/crop-recommender/internal/history"
	"github.com/kartoza/crop-recommender/internal/httputil"
	"github.com/kartoza/crop-recommender/internal/recommend"
	"github.com/kartoza/crop-recommender/internal/refdata"
	"github.com/kartoza/crop-recommender/internal/telemetry"
)

//go:embed static/*
var staticFS embed.FS

//go:embed templates/*.html
var templateFS embed.FS

var pageFuncs = template.FuncMap{
	"deref": func(v *float64) float64 {
		if v == nil {
			return 0
		}
		return *v
	},
}

// Server holds all the components for the web application
type Server struct {
	cfg        config.Config
	httpServer *http.Server
	router     *mux.Router
	service    *recommend.Service
	history    *history.Store
	pages      *template.Template
}

// New creates a new Server with all components initialized. Reference data
// and the model are required; the prediction history is optional.
func New(cfg config.Config) (*Server, error) {
	ref, err := refdata.Load(cfg.LocationsFile, cfg.YieldsFile, cfg.FileEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference data: %w", err)
	}
	log.Printf("Loaded %d locations from %s", ref.LocationCount(), cfg.LocationsFile)

	predictor, err := classifier.LoadPredictor(cfg.ModelPath, cfg.LabelEncoderPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	log.Printf("Loaded model with %d classes from %s", len(predictor.Classes()), cfg.ModelPath)

	client := &http.Client{Timeout: cfg.HTTPTimeout}
	weather := telemetry.NewWeatherClient(cfg.Weather.BaseURL, cfg.Weather.APIKey, cfg.Weather.UnitGroup, client)
	npk := telemetry.NewNPKClient(cfg.NPK.BaseURL, client)
	if cfg.Weather.UnitGroup != "metric" {
		log.Printf("Warning: weather unit group %q is not metric, the model expects Celsius temperatures", cfg.Weather.UnitGroup)
	}
	if cfg.Weather.APIKey == "" {
		log.Printf("Warning: no weather API key configured, the weather provider may reject requests")
	}

	var store *history.Store
	if cfg.History.Driver != "" {
		store, err = history.Open(cfg.History.Driver, cfg.History.DSN)
		if err != nil {
			log.Printf("Warning: prediction history not available: %v", err)
			store = nil
		}
	}

	opts := recommend.Options{
		ChannelID:       cfg.NPK.ChannelID,
		ExtendedWeather: cfg.Weather.Extended,
	}
	if store != nil {
		opts.Recorder = store
	}

	svc := recommend.NewService(ref, predictor, weather, npk, opts)
	return newServer(cfg, svc, store)
}

// newServer wires routes around an already built service
func newServer(cfg config.Config, svc *recommend.Service, store *history.Store) (*Server, error) {
	pages, err := template.New("").Funcs(pageFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		cfg:     cfg,
		router:  mux.NewRouter(),
		service: svc,
		history: store,
		pages:   pages,
	}
	s.setupRoutes()
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// API routes
	apiRouter := s.router.PathPrefix("/api").Subrouter()
	apiHandler := api.NewHandler(s.service, s.history, s.cfg)
	apiHandler.RegisterRoutes(apiRouter)

	// HTML pages
	s.router.HandleFunc("/", s.handleIndex).Methods("GET")
	s.router.HandleFunc("/predict", s.handlePredictPage).Methods("POST")

	// Static assets (embedded)
	staticContent, err := fs.Sub(staticFS, "static")
	if err != nil {
		log.Printf("Warning: Could not load embedded static files: %v", err)
		return
	}
	s.router.PathPrefix("/static/").Handler(
		http.StripPrefix("/static/", http.FileServer(http.FS(staticContent))))
}

// Router exposes the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// handleIndex renders the input form
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, "index.html", map[string]interface{}{
		"Version": s.cfg.Version,
	})
}

// handlePredictPage runs the pipeline for the form and renders the result.
// Failures are reported as JSON.
func (s *Server) handlePredictPage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid form")
		return
	}

	req, err := recommend.ParseRequest(r.FormValue("pincode"), r.FormValue("land_size"))
	if err != nil {
		httputil.RespondPipelineError(w, err)
		return
	}

	res, err := s.service.Recommend(r.Context(), req)
	if err != nil {
		httputil.RespondPipelineError(w, err)
		return
	}

	s.render(w, "result.html", map[string]interface{}{
		"Version":  s.cfg.Version,
		"Result":   res,
		"TempUnit": temperatureUnit(s.cfg.Weather.UnitGroup),
	})
}

// temperatureUnit is the unit the weather provider reports for a unit group
func temperatureUnit(unitGroup string) string {
	switch unitGroup {
	case "us":
		return "°F"
	case "base":
		return "K"
	default:
		return "°C"
	}
}

func (s *Server) render(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.pages.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("Error rendering %s: %v", name, err)
	}
}

// Start begins listening for HTTP connections
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Server listening on http://localhost:%d", s.cfg.Port)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	// Close stores
	if s.history != nil {
		if cerr := s.history.Close(); cerr != nil {
			log.Printf("Warning: closing prediction history: %v", cerr)
		}
	}

	return err
}
