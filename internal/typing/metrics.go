package typing

import (
	"fmt"
	"math"
	"time"
)

const charsPerWord = 5.0

// Metrics holds the live performance figures of a session.
type Metrics struct {
	WPM      int
	CPM      int
	Accuracy int
}

// IdleMetrics is what a session reports before any time has elapsed.
var IdleMetrics = Metrics{WPM: 0, CPM: 0, Accuracy: 100}

func (m Metrics) String() string {
	return fmt.Sprintf("%d wpm, %d cpm, %d%%", m.WPM, m.CPM, m.Accuracy)
}

// Compute derives WPM, CPM and accuracy from the characters typed so far,
// the elapsed time and the number of mistyped characters.
func Compute(totalChars int, elapsed time.Duration, errorCount int) Metrics {
	elapsedMs := elapsed.Milliseconds()
	if elapsedMs <= 0 {
		return IdleMetrics
	}
	minutes := float64(elapsedMs) / 60000.0
	words := float64(totalChars) / charsPerWord

	accuracy := 100
	if totalChars > 0 {
		accuracy = clampRound(float64(totalChars-errorCount) / float64(totalChars) * 100)
	}
	return Metrics{
		WPM:      clampRound(words / minutes),
		CPM:      clampRound(float64(totalChars) / minutes),
		Accuracy: accuracy,
	}
}

// clampRound rounds half up (matching the browser's Math.round for the
// non-negative values seen here) and maps NaN, Inf and negatives to 0.
func clampRound(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return int(math.Floor(v + 0.5))
}
