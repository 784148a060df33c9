package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrInvalidTrigger marks a trigger set the model cannot evaluate.
	ErrInvalidTrigger = errors.New("invalid trigger set")

	// ErrLengthMismatch marks a batch whose trigger sets and forecasts are not index-aligned.
	ErrLengthMismatch = errors.New("trigger sets and forecasts differ in length")
)

// Flare is a soft X-ray flare observation.
type Flare struct {
	Longitude float64   `json:"longitude"` // heliographic degrees, west positive
	Magnitude float64   `json:"magnitude"` // peak flux, W/m^2
	Class     string    `json:"class,omitempty"`
	Start     time.Time `json:"start"`
}

// CME is a coronal mass ejection observation.
type CME struct {
	Width    float64   `json:"width"`    // angular width, degrees; 360 is a full halo
	Velocity float64   `json:"velocity"` // plane-of-sky speed, km/s
	Start    time.Time `json:"start"`
}

// TriggerSet associates the precursors of one potential SEP event.
// Either signal may be absent.
type TriggerSet struct {
	ID    string `json:"id,omitempty"`
	Flare *Flare `json:"flare,omitempty"`
	CME   *CME   `json:"cme,omitempty"`
}

// Validate rejects values the lognormal fits are undefined for.
func (ts TriggerSet) Validate() error {
	if f := ts.Flare; f != nil {
		if !isFinite(f.Longitude) {
			return fmt.Errorf("%w: flare longitude %g", ErrInvalidTrigger, f.Longitude)
		}
		if !isFinite(f.Magnitude) || f.Magnitude <= 0 {
			return fmt.Errorf("%w: flare magnitude %g must be positive", ErrInvalidTrigger, f.Magnitude)
		}
	}
	if c := ts.CME; c != nil {
		if !isFinite(c.Width) || c.Width < 0 || c.Width > 360 {
			return fmt.Errorf("%w: cme width %g outside [0, 360]", ErrInvalidTrigger, c.Width)
		}
		if !isFinite(c.Velocity) || c.Velocity <= 0 {
			return fmt.Errorf("%w: cme velocity %g must be positive", ErrInvalidTrigger, c.Velocity)
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
