package domain

import "strings"

// Combination says which precursors a trigger set carries.
type Combination string

const (
	CombinationBoth      Combination = "both"
	CombinationFlareOnly Combination = "flare_only"
	CombinationCMEOnly   Combination = "cme_only"
	CombinationNeither   Combination = "neither"
)

// Connection classifies the flare site relative to the Earth-connected field lines.
type Connection string

const (
	WellConnected   Connection = "well_connected"
	PoorlyConnected Connection = "poorly_connected"
)

// WidthClass classifies a CME by angular width.
type WidthClass string

const (
	Halo        WidthClass = "halo"
	PartialHalo WidthClass = "partial_halo"
	NonHalo     WidthClass = "non_halo"
)

const (
	wellConnectedLongitude = 20.0
	haloWidth              = 360.0
	partialHaloWidth       = 120.0

	// Flare magnitudes below this carry no usable signal when paired with a CME.
	minFlareMagnitude = 1e-6
)

// Category is the discriminated key that selects a parameter table.
// Connection is empty without a flare, Width is empty without a CME.
type Category struct {
	Combination Combination
	Connection  Connection
	Width       WidthClass
}

// Key renders the category as a table key, e.g. "both/well_connected/halo".
func (c Category) Key() string {
	parts := []string{string(c.Combination)}
	if c.Connection != "" {
		parts = append(parts, string(c.Connection))
	}
	if c.Width != "" {
		parts = append(parts, string(c.Width))
	}
	return strings.Join(parts, "/")
}

func (c Category) String() string { return c.Key() }

// Classify builds the category of a trigger set.
func Classify(ts TriggerSet) Category {
	var c Category
	if ts.Flare != nil {
		c.Connection = PoorlyConnected
		if ts.Flare.Longitude >= wellConnectedLongitude {
			c.Connection = WellConnected
		}
	}
	if ts.CME != nil {
		switch w := ts.CME.Width; {
		case w == haloWidth:
			c.Width = Halo
		case w >= partialHaloWidth:
			c.Width = PartialHalo
		default:
			c.Width = NonHalo
		}
	}

	switch {
	case ts.Flare != nil && ts.CME != nil:
		c.Combination = CombinationBoth
	case ts.Flare != nil:
		c.Combination = CombinationFlareOnly
	case ts.CME != nil:
		c.Combination = CombinationCMEOnly
	default:
		c.Combination = CombinationNeither
	}
	return c
}

// Categories lists every category a valid trigger set can fall into.
func Categories() []Category {
	out := make([]Category, 0, 12)
	for _, conn := range []Connection{WellConnected, PoorlyConnected} {
		for _, w := range []WidthClass{Halo, PartialHalo, NonHalo} {
			out = append(out, Category{Combination: CombinationBoth, Connection: conn, Width: w})
		}
	}
	for _, conn := range []Connection{WellConnected, PoorlyConnected} {
		out = append(out, Category{Combination: CombinationFlareOnly, Connection: conn})
	}
	for _, w := range []WidthClass{Halo, PartialHalo, NonHalo} {
		out = append(out, Category{Combination: CombinationCMEOnly, Width: w})
	}
	return append(out, Category{Combination: CombinationNeither})
}

// noFlareSignal reports a flare+CME set whose flare is too faint to model.
func noFlareSignal(ts TriggerSet) bool {
	return ts.Flare != nil && ts.CME != nil && ts.Flare.Magnitude < minFlareMagnitude
}
