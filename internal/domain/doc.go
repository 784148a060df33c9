// Package domain implements the SEP (solar energetic particle) forecast model.
//
// # Trigger Sets
//
// A trigger set pairs the precursors of a potential SEP event: a soft X-ray
// flare, a coronal mass ejection, both, or neither. Flares carry heliographic
// longitude and peak flux (W/m^2); CMEs carry angular width (degrees) and
// plane-of-sky speed (km/s). Messages arrive as JSON:
//
//	{"id": "optional",
//	 "flare": {"longitude": 45, "magnitude": 5e-5, "class": "M5.0", "start": "2024-05-10T06:27:00Z"},
//	 "cme":   {"width": 360, "velocity": 1300, "start": "2024-05-10T06:36:00Z"}}
//
// # Categories
//
// Every trigger set maps to exactly one [Category]:
//
//	combination: both | flare_only | cme_only | neither
//	connection:  well_connected (longitude >= 20) | poorly_connected
//	width:       halo (== 360) | partial_halo ([120, 360)) | non_halo (< 120)
//
// The category key ("both/well_connected/halo") indexes the parameter table of
// package model. Classification happens once; both engines share the result.
//
// # Probability Engine
//
// For each threshold (10, 30, 60, 100, 300 MeV) the table holds either a
// constant or a mixture of populations. Each population has a prior weight and
// one lognormal fit per signal. The posterior is
//
//	P = w_sep*L_sep / sum_p(w_p*L_p)
//
// where L is the product of the signal densities. A threshold missing from the
// table is nil. Advance warning times and error bounds are category lookups.
// A flare fainter than 1e-6 W/m^2 paired with a CME yields an empty forecast.
//
// # Characteristics Engine
//
// Null probabilities are read as 0. The tier is the highest threshold whose
// probability reaches its cutoff (0.26, 0.20, 0.15, 0.12 for 10, 30, 100, 300
// MeV). The first calibration bin of that tier matching the combination,
// magnitude and velocity ranges and halo flag supplies per-threshold
// coefficients, blended with the background floor:
//
//	flux = a*p + b*(1-p)
//
// # ID Generation
//
// Trigger sets without an id get the combination name plus the first 8 bytes
// of a SHA-256 over the observed fields. See [generateID].
package domain
