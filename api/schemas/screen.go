package schemas

import "time"

// Screenshot is an encoded capture of the screen, possibly with the
// coordinate grid drawn on top.
type Screenshot struct {
	ID         string    `json:"id"`
	Data       []byte    `json:"-"`
	MIMEType   string    `json:"mime_type"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	GridStep   int       `json:"grid_step,omitempty"` // Zero when no grid was drawn.
	CapturedAt time.Time `json:"captured_at"`
}

// CaptureOptions controls a single capture.
type CaptureOptions struct {
	GridOverlay bool
	GridStep    int
}
