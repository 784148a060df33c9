package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/couchcryptid/sep-forecast-service/internal/domain"
	"github.com/klauspost/pgzip"
)

// readTriggerSets loads a JSON array of trigger sets, or an object with a
// "trigger_sets" array. Files ending in .gz are decompressed in parallel.
// Every set is validated and given an ID if it has none.
func readTriggerSets(path string) ([]domain.TriggerSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReaderN(f, 256*1024, runtime.NumCPU())
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}
	return decodeTriggerSets(bufio.NewReader(r))
}

func decodeTriggerSets(r io.Reader) ([]domain.TriggerSet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var raws []json.RawMessage
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped struct {
			TriggerSets []json.RawMessage `json:"trigger_sets"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, err
		}
		raws = wrapped.TriggerSets
	} else if err := json.Unmarshal(trimmed, &raws); err != nil {
		return nil, err
	}

	sets := make([]domain.TriggerSet, len(raws))
	for i, raw := range raws {
		ts, err := domain.ParseTriggerSet(domain.RawEvent{Value: raw})
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		sets[i] = ts
	}
	return sets, nil
}
