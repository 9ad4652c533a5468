package app

import (
	"errors"
	"log"
	"time"

	"github.com/ayusman/pupiltrack/internal/capture"
)

// runPipeline reads one frame per tick and hands it to ProcessFrame.
// Frame cadence is set by the source FPS; remote estimates never gate it.
func (a *App) runPipeline(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	source := a.Source()
	interval := time.Second / time.Duration(source.FPS())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			// Skip processing if detection is disabled
			if !a.IsEnabled() {
				continue
			}

			frame, err := source.ReadFrame()
			if err != nil {
				if errors.Is(err, capture.ErrCameraNotOpen) {
					return
				}
				log.Printf("Error reading frame: %v", err)
				continue
			}

			_, err = a.ProcessFrame(frame)
			frame.Close()

			if err != nil {
				log.Printf("Error processing frame: %v", err)
			}
		}
	}
}
