package api

import (
	"net/http"
	"strconv"

	"github.com/ayusman/pupiltrack/internal/store"
)

// Result query limits.
const (
	DefaultResultLimit = 100
	MaxResultLimit     = 10000
)

// ResultHandler serves recorded detection results.
type ResultHandler struct {
	store *store.Store
}

// NewResultHandler creates a new ResultHandler with the given store.
func NewResultHandler(s *store.Store) *ResultHandler {
	return &ResultHandler{store: s}
}

type ellipseResponse struct {
	Center [2]float64 `json:"center"`
	Axes   [2]float64 `json:"axes"`
	Angle  float64    `json:"angle"`
}

// resultResponse mirrors the live result record so stored and streamed
// results parse the same way.
type resultResponse struct {
	Ellipse    *ellipseResponse `json:"ellipse"`
	Diameter   *float64         `json:"diameter"`
	Location   *[2]float64      `json:"location"`
	Confidence float64          `json:"confidence"`
	ID         int              `json:"id"`
	Topic      string           `json:"topic"`
	Method     string           `json:"method"`
	Timestamp  float64          `json:"timestamp"`
	NormPos    *[2]float64      `json:"norm_pos"`
	SessionID  string           `json:"session_id"`
}

type listResultsResponse struct {
	Results []resultResponse `json:"results"`
}

func toResultResponse(rec *store.Record) resultResponse {
	resp := resultResponse{
		Diameter:   rec.Diameter,
		Confidence: rec.Confidence,
		ID:         rec.EntityID,
		Topic:      rec.Topic,
		Method:     rec.Method,
		Timestamp:  rec.Timestamp,
		SessionID:  rec.SessionID,
	}
	if e := rec.Ellipse; e != nil {
		resp.Ellipse = &ellipseResponse{
			Center: [2]float64{e.CenterX, e.CenterY},
			Axes:   [2]float64{e.AxisA, e.AxisB},
			Angle:  e.Angle,
		}
		resp.Location = &[2]float64{e.CenterX, e.CenterY}
	}
	if rec.NormX != nil && rec.NormY != nil {
		resp.NormPos = &[2]float64{*rec.NormX, *rec.NormY}
	}
	return resp
}

// ServeHTTP handles GET /api/results?session=ID&entity=N&limit=N
func (h *ResultHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	filter := store.ResultFilter{
		SessionID: q.Get("session"),
		Limit:     DefaultResultLimit,
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n > MaxResultLimit {
			n = MaxResultLimit
		}
		filter.Limit = n
	}

	if v := q.Get("entity"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "entity must be a non-negative integer")
			return
		}
		filter.EntityID = &n
	}

	records, err := h.store.Results().List(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list results")
		return
	}

	response := listResultsResponse{
		Results: make([]resultResponse, 0, len(records)),
	}
	for _, rec := range records {
		response.Results = append(response.Results, toResultResponse(rec))
	}

	writeJSON(w, http.StatusOK, response)
}
