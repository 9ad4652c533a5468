package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/pupiltrack/internal/store"
)

func TestAPI_ResultWorkflow(t *testing.T) {
	// Setup
	tmpDir := t.TempDir()
	s, err := store.New(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	sess := &store.Session{EntityID: 0, Strategy: "local"}
	if err := s.Sessions().Create(sess); err != nil {
		t.Fatalf("Create session error = %v", err)
	}

	d := 40.0
	nx, ny := 0.5, 0.5
	recs := []*store.Record{
		{SessionID: sess.ID, Topic: "pupil.0.2d", Method: "custom-2d", Timestamp: 0.1, Confidence: 0},
		{
			SessionID: sess.ID, Topic: "pupil.0.2d", Method: "custom-2d", Timestamp: 0.2, Confidence: 1,
			Ellipse:  &store.Ellipse{CenterX: 200, CenterY: 200, AxisA: 20, AxisB: 20},
			Diameter: &d, NormX: &nx, NormY: &ny,
		},
	}
	for _, rec := range recs {
		if err := s.Results().Insert(rec); err != nil {
			t.Fatalf("Insert error = %v", err)
		}
	}

	srv := New(Config{Store: s})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	// 1. List sessions
	resp, err := client.Get(ts.URL + "/api/sessions")
	if err != nil {
		t.Fatalf("GET /api/sessions error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/sessions status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var listed struct {
		Sessions []struct {
			ID      string `json:"id"`
			Results int    `json:"results"`
		} `json:"sessions"`
	}
	json.NewDecoder(resp.Body).Decode(&listed)
	resp.Body.Close()

	if len(listed.Sessions) != 1 {
		t.Fatalf("len(sessions) = %d, want 1", len(listed.Sessions))
	}
	if listed.Sessions[0].Results != 2 {
		t.Errorf("results = %d, want 2", listed.Sessions[0].Results)
	}

	// 2. Query results, newest first
	resp, _ = client.Get(ts.URL + "/api/results?session=" + sess.ID)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/results status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var results struct {
		Results []struct {
			Confidence float64     `json:"confidence"`
			Timestamp  float64     `json:"timestamp"`
			NormPos    *[2]float64 `json:"norm_pos"`
		} `json:"results"`
	}
	json.NewDecoder(resp.Body).Decode(&results)
	resp.Body.Close()

	if len(results.Results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results.Results))
	}
	if results.Results[0].Timestamp != 0.2 || results.Results[0].Confidence != 1 {
		t.Errorf("first result = %+v, want the detection at 0.2", results.Results[0])
	}
	if results.Results[1].NormPos != nil {
		t.Errorf("absent result norm_pos = %v, want null", results.Results[1].NormPos)
	}

	// 3. Unknown session
	resp, _ = client.Get(ts.URL + "/api/sessions/missing")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET missing session status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	resp.Body.Close()
}

func TestAPI_HealthCheck(t *testing.T) {
	srv := New(Config{})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var health struct {
		Status string `json:"status"`
		Uptime string `json:"uptime"`
	}
	json.NewDecoder(resp.Body).Decode(&health)

	if health.Status != "ok" {
		t.Errorf("status = %s, want ok", health.Status)
	}
}

func TestAPI_PupilStream(t *testing.T) {
	hub := NewResultHub()
	defer hub.Close()

	srv := New(Config{Hub: hub})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/pupil"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	// Registration happens on the server goroutine after the handshake.
	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered with hub")
		}
		time.Sleep(5 * time.Millisecond)
	}

	payload := map[string]interface{}{"topic": "pupil.0.2d", "confidence": 1.0}
	if err := hub.Publish(payload); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got map[string]interface{}
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if got["topic"] != "pupil.0.2d" {
		t.Errorf("topic = %v, want pupil.0.2d", got["topic"])
	}
}
