package api

import (
	"path/filepath"
	"testing"

	"github.com/ayusman/pupiltrack/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedSession(t *testing.T, s *store.Store, entityID int, timestamps ...float64) *store.Session {
	t.Helper()

	sess := &store.Session{EntityID: entityID, Strategy: "remote", Endpoint: "mem://"}
	if err := s.Sessions().Create(sess); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	for _, ts := range timestamps {
		d := 12.0
		nx, ny := 0.25, 0.75
		rec := &store.Record{
			SessionID:  sess.ID,
			EntityID:   entityID,
			Topic:      "pupil.0.2d",
			Method:     "custom-2d-remote",
			Timestamp:  ts,
			Confidence: 1,
			Ellipse:    &store.Ellipse{CenterX: 100, CenterY: 300, AxisA: 12, AxisB: 8, Angle: 30},
			Diameter:   &d,
			NormX:      &nx,
			NormY:      &ny,
		}
		if err := s.Results().Insert(rec); err != nil {
			t.Fatalf("failed to insert result: %v", err)
		}
	}
	return sess
}
