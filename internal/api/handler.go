package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/kartoza/crop-recommender/internal/config"
	"github.com/kartoza/crop-recommender/internal/history"
	"github.com/kartoza/crop-recommender/internal/httputil"
	"github.com/kartoza/crop-recommender/internal/models"
	"github.com/kartoza/crop-recommender/internal/recommend"
)

// Handler provides HTTP API endpoints
type Handler struct {
	service *recommend.Service
	history *history.Store
	cfg     config.Config
}

// NewHandler creates a new API handler. history may be nil.
func NewHandler(
	service *recommend.Service,
	historyStore *history.Store,
	cfg config.Config,
) *Handler {
	return &Handler{
		service: service,
		history: historyStore,
		cfg:     cfg,
	}
}

// RegisterRoutes sets up all API routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	// Health and info
	r.HandleFunc("/health", h.handleHealth).Methods("GET")
	r.HandleFunc("/info", h.handleInfo).Methods("GET")

	// Recommendation
	r.HandleFunc("/predict", h.handlePredict).Methods("POST")

	// Reference data
	r.HandleFunc("/locations/{pincode}", h.handleLocation).Methods("GET")
	r.HandleFunc("/crops", h.handleCrops).Methods("GET")

	// Prediction history
	r.HandleFunc("/predictions", h.handleListPredictions).Methods("GET")
	r.HandleFunc("/predictions/{id}", h.handleGetPrediction).Methods("GET")
}

// handleHealth returns server health status
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleInfo returns server information
func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, models.InfoResponse{
		Version:         h.cfg.Version,
		Model:           h.service.ModelInfo(),
		ExtendedWeather: h.service.ExtendedWeather(),
		HistoryEnabled:  h.history != nil,
	})
}

// handlePredict runs the pipeline for a JSON or form request
func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	var pincode, landSize string

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body models.PredictRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		pincode, landSize = body.Pincode.String(), body.LandSize.String()
	} else {
		if err := r.ParseForm(); err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "invalid form")
			return
		}
		pincode, landSize = r.FormValue("pincode"), r.FormValue("land_size")
	}

	req, err := recommend.ParseRequest(pincode, landSize)
	if err != nil {
		httputil.RespondPipelineError(w, err)
		return
	}

	res, err := h.service.Recommend(r.Context(), req)
	if err != nil {
		httputil.RespondPipelineError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.PredictResponse{Result: res})
}

// handleLocation returns the reference record for a pincode
func (h *Handler) handleLocation(w http.ResponseWriter, r *http.Request) {
	pincode, err := strconv.Atoi(mux.Vars(r)["pincode"])
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "pincode must be a number")
		return
	}

	loc, err := h.service.Location(pincode)
	if err != nil {
		httputil.RespondPipelineError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, loc)
}

// handleCrops returns the crops the model can recommend
func (h *Handler) handleCrops(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, h.service.Crops())
}

// handleListPredictions returns recent predictions
func (h *Handler) handleListPredictions(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		httputil.RespondJSON(w, http.StatusOK, models.PredictionListResponse{Predictions: []history.Record{}})
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			httputil.RespondError(w, http.StatusBadRequest, "limit must be a positive number")
			return
		}
		limit = n
	}

	records, err := h.history.List(r.Context(), limit)
	if err != nil {
		httputil.RespondPipelineError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.PredictionListResponse{
		Predictions: records,
		Count:       len(records),
	})
}

// handleGetPrediction returns a stored prediction
func (h *Handler) handleGetPrediction(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		httputil.RespondError(w, http.StatusNotFound, "prediction history is disabled")
		return
	}

	rec, err := h.history.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			httputil.RespondError(w, http.StatusNotFound, err.Error())
			return
		}
		httputil.RespondPipelineError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, rec)
}
