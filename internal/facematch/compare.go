package facematch

import (
	"fmt"
	"strings"

	"github.com/kozaktomas/face-recognizer/internal/constants"
)

// DefaultTolerance is the default maximum Euclidean distance for a match.
const DefaultTolerance = constants.DefaultTolerance

// Strategy selects which entry within tolerance is reported.
type Strategy string

const (
	// FirstWithinTolerance reports the first entry in gallery order whose
	// distance is within tolerance, which is not necessarily the closest one.
	FirstWithinTolerance Strategy = "first"

	// ClosestWithinTolerance reports the minimum-distance entry if it is within tolerance.
	ClosestWithinTolerance Strategy = "closest"
)

// ParseStrategy converts a config value into a Strategy. Empty means FirstWithinTolerance.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", FirstWithinTolerance:
		return FirstWithinTolerance, nil
	case ClosestWithinTolerance:
		return ClosestWithinTolerance, nil
	default:
		return "", fmt.Errorf("unknown match strategy %q (want %q or %q)", s, FirstWithinTolerance, ClosestWithinTolerance)
	}
}

// Comparator matches a query embedding against a gallery.
type Comparator struct {
	Strategy Strategy
}

// Compare matches query against gallery using FirstWithinTolerance.
func Compare(query Embedding, gallery Gallery, tolerance float64) Result {
	return Comparator{Strategy: FirstWithinTolerance}.Compare(query, gallery, tolerance)
}

// Compare matches query against gallery with the comparator's strategy.
func (c Comparator) Compare(query Embedding, gallery Gallery, tolerance float64) Result {
	if len(gallery) == 0 {
		return NoKnownFaces(len(query))
	}

	distances := Distances(query, gallery)
	minIdx, minDistance := MinIndex(distances)
	mask := MatchMask(distances, tolerance)

	matchedIdx := -1
	switch c.Strategy {
	case ClosestWithinTolerance:
		if mask[minIdx] {
			matchedIdx = minIdx
		}
	default:
		for i, ok := range mask {
			if ok {
				matchedIdx = i
				break
			}
		}
	}

	if matchedIdx < 0 {
		return LowConfidence(minDistance)
	}
	return Matched(gallery[matchedIdx].Name, distances[matchedIdx])
}
