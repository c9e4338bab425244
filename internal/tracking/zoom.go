package tracking

import "sort"

// distanceZoomStep is one entry of the distance→zoom lookup table, carried
// verbatim from TrackingControlESPNOW_V2.py's distance_zoom_table.
type distanceZoomStep struct {
	distanceM float64
	zoom      float64
}

var distanceZoomTable = []distanceZoomStep{
	{1, 1},
	{15, 1},
	{25, 2},
	{50, 4},
	{75, 4.5},
	{100, 5},
	{120, 7},
	{140, 9},
	{160, 11},
	{215, 13},
	{300, 15},
	{600, 25},
}

// zoomForDistance linearly interpolates the configured distance→zoom
// table at distanceM, matching zoomCalculations's bracket-and-interpolate
// logic: it finds the largest tabulated distance at or below distanceM
// and the smallest at or above it, and interpolates between them (or
// returns the exact entry when they coincide).
func zoomForDistance(distanceM float64) float64 {
	lowerIdx := -1
	upperIdx := -1
	for i, step := range distanceZoomTable {
		if step.distanceM <= distanceM && (lowerIdx == -1 || step.distanceM > distanceZoomTable[lowerIdx].distanceM) {
			lowerIdx = i
		}
		if step.distanceM >= distanceM && (upperIdx == -1 || step.distanceM < distanceZoomTable[upperIdx].distanceM) {
			upperIdx = i
		}
	}
	if lowerIdx == -1 {
		lowerIdx = 0
	}
	if upperIdx == -1 {
		upperIdx = len(distanceZoomTable) - 1
	}

	lower := distanceZoomTable[lowerIdx]
	upper := distanceZoomTable[upperIdx]
	if lower.distanceM == upper.distanceM {
		return lower.zoom
	}

	frac := (distanceM - lower.distanceM) / (upper.distanceM - lower.distanceM)
	return lower.zoom + frac*(upper.zoom-lower.zoom)
}

func init() {
	sort.Slice(distanceZoomTable, func(i, j int) bool {
		return distanceZoomTable[i].distanceM < distanceZoomTable[j].distanceM
	})
}
