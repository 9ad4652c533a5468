// Package remote caches pupil ellipses pushed by an external inference process.
package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ErrMalformedMessage is returned for payloads that carry no usable estimate.
var ErrMalformedMessage = errors.New("malformed message")

// Estimate is one ellipse as (cx, cy, major, minor, angle).
type Estimate struct {
	CX    float64 `json:"cx"`
	CY    float64 `json:"cy"`
	Major float64 `json:"major"`
	Minor float64 `json:"minor"`
	Angle float64 `json:"angle"`
}

// Tuple returns the estimate in (cx, cy, major, minor, angle) order.
func (e Estimate) Tuple() [5]float64 {
	return [5]float64{e.CX, e.CY, e.Major, e.Minor, e.Angle}
}

// Scaling maps coordinates from the inference network's input resolution to
// the display resolution.
type Scaling struct {
	SourceWidth  float64 `json:"source_width"`
	SourceHeight float64 `json:"source_height"`
	TargetWidth  float64 `json:"target_width"`
	TargetHeight float64 `json:"target_height"`
}

// DefaultScaling maps a 320x240 network input onto a 400x400 eye image.
func DefaultScaling() Scaling {
	return Scaling{
		SourceWidth:  320,
		SourceHeight: 240,
		TargetWidth:  400,
		TargetHeight: 400,
	}
}

// Factors returns (scaleX, scaleY). A zero dimension on either side yields 1 for that axis.
func (s Scaling) Factors() (float64, float64) {
	sx, sy := 1.0, 1.0
	if s.SourceWidth > 0 && s.TargetWidth > 0 {
		sx = s.TargetWidth / s.SourceWidth
	}
	if s.SourceHeight > 0 && s.TargetHeight > 0 {
		sy = s.TargetHeight / s.SourceHeight
	}
	return sx, sy
}

// Apply scales e into display resolution. The center scales per axis; the
// major axis takes scaleX and the minor axis takes scaleY. Angle is unchanged.
func (s Scaling) Apply(e Estimate) Estimate {
	sx, sy := s.Factors()
	return Estimate{
		CX:    e.CX * sx,
		CY:    e.CY * sy,
		Major: e.Major * sx,
		Minor: e.Minor * sy,
		Angle: e.Angle,
	}
}

// Update is one decoded slot of an inbound message.
type Update struct {
	EntityID int
	Estimate Estimate
}

// legacyMessage is the single-entity shape {x, y, w, h, angle}.
type legacyMessage struct {
	X     *float64 `json:"x"`
	Y     *float64 `json:"y"`
	W     *float64 `json:"w"`
	H     *float64 `json:"h"`
	Angle *float64 `json:"angle"`
}

const infoPrefix = "info"

// MaxEntityID is the largest slot id accepted from a message.
const MaxEntityID = 63

// DecodeMessage parses an inbound payload.
//
// The canonical shape keys slots by entity id:
//
//	{"info0": [[cx, cy], [w, h], angle], "info1": [...]}
//
// The legacy flat shape {"x", "y", "w", "h", "angle"} updates entity 0.
//
// Slots that fail to parse are reported in slotErrs and skipped; the remaining
// slots are still returned. err is non-nil only when the payload as a whole is
// unusable. Updates are ordered by entity id.
func DecodeMessage(data []byte) (updates []Update, slotErrs []error, err error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	if _, ok := fields["x"]; ok {
		u, err := decodeLegacy(data)
		if err != nil {
			return nil, nil, err
		}
		return []Update{u}, nil, nil
	}

	for key, raw := range fields {
		if !strings.HasPrefix(key, infoPrefix) {
			continue
		}
		id, ok := parseSlotKey(key)
		if !ok {
			slotErrs = append(slotErrs, fmt.Errorf("%w: bad slot key %q", ErrMalformedMessage, key))
			continue
		}
		est, err := decodeSlot(raw)
		if err != nil {
			slotErrs = append(slotErrs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		updates = append(updates, Update{EntityID: id, Estimate: est})
	}

	if len(updates) == 0 && len(slotErrs) == 0 {
		return nil, nil, fmt.Errorf("%w: no ellipse slots", ErrMalformedMessage)
	}

	sort.Slice(updates, func(i, j int) bool { return updates[i].EntityID < updates[j].EntityID })
	return updates, slotErrs, nil
}

func decodeSlot(raw json.RawMessage) (Estimate, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return Estimate{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if len(parts) != 3 {
		return Estimate{}, fmt.Errorf("%w: want [[cx,cy],[w,h],angle], got %d elements", ErrMalformedMessage, len(parts))
	}

	center, err := decodePair(parts[0])
	if err != nil {
		return Estimate{}, fmt.Errorf("%w: center: %v", ErrMalformedMessage, err)
	}
	axes, err := decodePair(parts[1])
	if err != nil {
		return Estimate{}, fmt.Errorf("%w: axes: %v", ErrMalformedMessage, err)
	}
	var angle float64
	if err := json.Unmarshal(parts[2], &angle); err != nil {
		return Estimate{}, fmt.Errorf("%w: angle: %v", ErrMalformedMessage, err)
	}

	est := Estimate{CX: center[0], CY: center[1], Major: axes[0], Minor: axes[1], Angle: angle}
	if !finite(est) {
		return Estimate{}, fmt.Errorf("%w: non-finite value", ErrMalformedMessage)
	}
	return est, nil
}

// decodePair reads a JSON array of exactly two numbers.
func decodePair(raw json.RawMessage) ([2]float64, error) {
	var values []float64
	if err := json.Unmarshal(raw, &values); err != nil {
		return [2]float64{}, err
	}
	if len(values) != 2 {
		return [2]float64{}, fmt.Errorf("want 2 values, got %d", len(values))
	}
	return [2]float64{values[0], values[1]}, nil
}

// parseSlotKey accepts only canonical keys: "info" followed by a decimal id
// without sign or leading zeros, no larger than MaxEntityID.
func parseSlotKey(key string) (int, bool) {
	suffix := strings.TrimPrefix(key, infoPrefix)
	id, err := strconv.Atoi(suffix)
	if err != nil || id < 0 || id > MaxEntityID || strconv.Itoa(id) != suffix {
		return 0, false
	}
	return id, true
}

func decodeLegacy(data []byte) (Update, error) {
	var m legacyMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return Update{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if m.X == nil || m.Y == nil || m.W == nil || m.H == nil || m.Angle == nil {
		return Update{}, fmt.Errorf("%w: legacy message missing fields", ErrMalformedMessage)
	}
	return Update{
		EntityID: 0,
		Estimate: Estimate{CX: *m.X, CY: *m.Y, Major: *m.W, Minor: *m.H, Angle: *m.Angle},
	}, nil
}

func finite(e Estimate) bool {
	for _, v := range e.Tuple() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
