package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// ParseTriggerSet decodes a trigger-set message and validates it.
// A message without an id gets a deterministic one.
func ParseTriggerSet(raw RawEvent) (TriggerSet, error) {
	var ts TriggerSet
	if err := json.Unmarshal(raw.Value, &ts); err != nil {
		return TriggerSet{}, fmt.Errorf("parse trigger set: %w", err)
	}
	if err := ts.Validate(); err != nil {
		return TriggerSet{}, fmt.Errorf("parse trigger set: %w", err)
	}
	if ts.ID == "" {
		ts.ID = generateID(ts)
	}
	return ts, nil
}

// generateID hashes the observed fields, so replaying a message keeps its ID.
func generateID(ts TriggerSet) string {
	var flare, cme string
	if f := ts.Flare; f != nil {
		flare = fmt.Sprintf("%.4f|%g|%s", f.Longitude, f.Magnitude, f.Start.UTC().Format(time.RFC3339))
	}
	if c := ts.CME; c != nil {
		cme = fmt.Sprintf("%g|%g|%s", c.Width, c.Velocity, c.Start.UTC().Format(time.RFC3339))
	}
	hash := sha256.Sum256([]byte(flare + "#" + cme))
	return string(Classify(ts).Combination) + "-" + hex.EncodeToString(hash[:8])
}

// NewForecastRecord assembles a record stamped with the current time.
func NewForecastRecord(ts TriggerSet, f SEPForecast, c SEPCharacteristics) ForecastRecord {
	return ForecastRecord{
		ID:              ts.ID,
		Category:        f.Category.Key(),
		IssuedAt:        clock.Now().UTC(),
		Trigger:         ts,
		Forecast:        f,
		Characteristics: c,
	}
}

// SerializeForecastRecord converts a record into a sink message keyed by ID.
func SerializeForecastRecord(rec ForecastRecord) (OutputEvent, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize forecast: %w", err)
	}
	return OutputEvent{
		Key:   []byte(rec.ID),
		Value: data,
		Headers: map[string]string{
			"category":  rec.Category,
			"issued_at": rec.IssuedAt.Format(time.RFC3339),
		},
		Record: &rec,
	}, nil
}
