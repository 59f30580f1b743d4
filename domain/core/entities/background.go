package entities

// BackgroundImage is the optional image drawn under the canvas
type BackgroundImage struct {
	DataURL        string  `json:"dataUrl"`
	OriginalWidth  float64 `json:"originalWidth"`
	OriginalHeight float64 `json:"originalHeight"`
	DisplayWidth   float64 `json:"displayWidth,omitempty"`
	DisplayHeight  float64 `json:"displayHeight,omitempty"`
}

// BaseSize returns the unscaled size of the image, falling back to the
// given defaults when the image carries no dimensions.
func (b *BackgroundImage) BaseSize(defaultW, defaultH float64) (float64, float64) {
	w, h := defaultW, defaultH
	if b == nil {
		return w, h
	}
	switch {
	case b.DisplayWidth > 0:
		w = b.DisplayWidth
	case b.OriginalWidth > 0:
		w = b.OriginalWidth
	}
	switch {
	case b.DisplayHeight > 0:
		h = b.DisplayHeight
	case b.OriginalHeight > 0:
		h = b.OriginalHeight
	}
	return w, h
}
