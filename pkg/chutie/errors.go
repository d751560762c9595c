package chutie

import "fmt"

// Capture steps reported in CaptureError.
const (
	StepNewPage     = "new page"
	StepSetViewport = "set viewport"
	StepNavigate    = "navigate"
	StepScreenshot  = "screenshot"
	StepImprint     = "imprint"
	StepPageInfo    = "page info"
	StepWrite       = "write"
)

// CaptureError is returned when any step of a capture fails. The run is
// aborted at the first failure.
type CaptureError struct {
	URL      string
	Viewport string
	Step     string
	Err      error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("chutie: %s failed for %s (%s): %v", e.Step, e.URL, e.Viewport, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }
