package pupil

import (
	"fmt"

	"github.com/ayusman/pupiltrack/internal/detector"
)

// Identifier is the detector identifier embedded in every result topic.
const Identifier = "2d"

// Method names reported per strategy.
const (
	MethodLocal  = "custom-2d"
	MethodRemote = "custom-2d-remote"
)

// Result is the per-frame detection record handed to the host.
// Ellipse, Diameter, Location and NormPos are either all set or all nil;
// Confidence is 1 when they are set and 0 otherwise.
type Result struct {
	Ellipse    *detector.Ellipse `json:"ellipse"`
	Diameter   *float64          `json:"diameter"`
	Location   *[2]float64       `json:"location"`
	Confidence float64           `json:"confidence"`
	ID         int               `json:"id"`
	Topic      string            `json:"topic"`
	Method     string            `json:"method"`
	Timestamp  float64           `json:"timestamp"`
	NormPos    *[2]float64       `json:"norm_pos"`
}

// Found reports whether the result carries a detection.
func (r Result) Found() bool {
	return r.Ellipse != nil
}

// Topic returns the topic string for an entity, "pupil.<id>.2d".
func Topic(entityID int) string {
	return fmt.Sprintf("pupil.%d.%s", entityID, Identifier)
}
