package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"strings"

	"armkin"
)

// parseTarget parses "x,y,z" in meters.
func parseTarget(s string) (armkin.TargetPose, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return armkin.TargetPose{}, fmt.Errorf("target must be x,y,z in meters, got %q", s)
	}
	var xyz [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return armkin.TargetPose{}, fmt.Errorf("invalid target coordinate %q: %w", p, err)
		}
		xyz[i] = v
	}
	return armkin.NewTargetPose(xyz[0], xyz[1], xyz[2]), nil
}

// randSource returns nil for seed 0 so the library falls back to its global source.
func randSource(seed uint64) armkin.RandSource {
	if seed == 0 {
		return nil
	}
	return rand.New(rand.NewPCG(seed, seed))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
