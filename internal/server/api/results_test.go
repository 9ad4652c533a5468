package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ayusman/pupiltrack/internal/store"
)

func TestResultHandler_List(t *testing.T) {
	s := newTestStore(t)
	a := seedSession(t, s, 0, 0.1, 0.2, 0.3)
	seedSession(t, s, 1, 0.4)

	h := NewResultHandler(s)

	tests := []struct {
		name      string
		query     string
		wantCount int
		wantFirst float64
	}{
		{name: "all results newest first", query: "", wantCount: 4, wantFirst: 0.4},
		{name: "by session", query: "?session=" + a.ID, wantCount: 3, wantFirst: 0.3},
		{name: "by entity", query: "?entity=1", wantCount: 1, wantFirst: 0.4},
		{name: "limited", query: "?limit=2", wantCount: 2, wantFirst: 0.4},
		{name: "limit above max is clamped", query: "?limit=999999", wantCount: 4, wantFirst: 0.4},
		{name: "unknown session", query: "?session=none", wantCount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/results"+tt.query, nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
			}

			var resp listResultsResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if len(resp.Results) != tt.wantCount {
				t.Fatalf("len(results) = %d, want %d", len(resp.Results), tt.wantCount)
			}
			if tt.wantCount > 0 && resp.Results[0].Timestamp != tt.wantFirst {
				t.Errorf("first timestamp = %v, want %v", resp.Results[0].Timestamp, tt.wantFirst)
			}
		})
	}
}

func TestResultHandler_BadQuery(t *testing.T) {
	h := NewResultHandler(newTestStore(t))

	for _, q := range []string{"?limit=abc", "?limit=0", "?limit=-3", "?entity=x", "?entity=-1"} {
		req := httptest.NewRequest(http.MethodGet, "/api/results"+q, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s status = %d, want %d", q, rec.Code, http.StatusBadRequest)
		}

		var resp errorResponse
		json.NewDecoder(rec.Body).Decode(&resp)
		if resp.Error == "" {
			t.Errorf("%s: expected error message", q)
		}
	}
}

func TestResultHandler_MethodNotAllowed(t *testing.T) {
	h := NewResultHandler(newTestStore(t))

	req := httptest.NewRequest(http.MethodPost, "/api/results", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestToResultResponse(t *testing.T) {
	t.Run("detection", func(t *testing.T) {
		d := 24.0
		nx, ny := 0.5, 0.25
		got := toResultResponse(&store.Record{
			EntityID:   1,
			Topic:      "pupil.1.2d",
			Method:     "custom-2d",
			Timestamp:  3.5,
			Confidence: 1,
			Ellipse:    &store.Ellipse{CenterX: 200, CenterY: 300, AxisA: 12, AxisB: 12},
			Diameter:   &d,
			NormX:      &nx,
			NormY:      &ny,
		})

		if got.Ellipse == nil || got.Ellipse.Center != [2]float64{200, 300} {
			t.Fatalf("ellipse = %+v", got.Ellipse)
		}
		if got.Location == nil || *got.Location != [2]float64{200, 300} {
			t.Errorf("location = %v, want [200 300]", got.Location)
		}
		if got.NormPos == nil || *got.NormPos != [2]float64{0.5, 0.25} {
			t.Errorf("norm_pos = %v, want [0.5 0.25]", got.NormPos)
		}
		if got.ID != 1 {
			t.Errorf("id = %d, want 1", got.ID)
		}
	})

	t.Run("absent", func(t *testing.T) {
		got := toResultResponse(&store.Record{Topic: "pupil.0.2d", Method: "custom-2d"})

		if got.Ellipse != nil || got.Location != nil || got.NormPos != nil || got.Diameter != nil {
			t.Errorf("absent record produced geometry: %+v", got)
		}
		if got.Confidence != 0 {
			t.Errorf("confidence = %v, want 0", got.Confidence)
		}
	})
}
