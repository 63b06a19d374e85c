// Package match decides whether a workout already exists on Strava by
// fuzzy-matching start times and durations against the athlete's activity
// list.
package match

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/graham33/ifit-strava/internal/strava"
	"github.com/graham33/ifit-strava/internal/tcx"
)

const (
	// Activities starting within this window with near-identical duration
	// are treated as the same workout.
	maxStartDelta    = 10 * time.Minute
	maxDurationDelta = 30 * time.Second

	// How far from the bisection point the outward search keeps going.
	searchTimeCutoff  = 24 * time.Hour
	minSearchDistance = 1
)

func startDelta(w tcx.Workout, a strava.Activity) time.Duration {
	d := a.StartDate.Sub(w.StartedAt)
	if d < 0 {
		d = -d
	}
	return d
}

// Similar reports whether the Strava activity looks like the same workout:
// started within 10 minutes and duration within 30 seconds.
func Similar(w tcx.Workout, a strava.Activity) bool {
	durationDelta := math.Abs(w.Duration.Seconds() - float64(a.ElapsedTime))
	return startDelta(w, a) < maxStartDelta && durationDelta < maxDurationDelta.Seconds()
}

// FindSimilar finds activities similar to the workout. The activities must
// be sorted by start date ascending.
//
// It bisects to where the workout's start time would sort into the list,
// then searches outward in both directions. iFit keeps millisecond
// precision and Strava truncates to seconds, so the workout can sort just
// after its own Strava representation; the search therefore always looks at
// least one step each way, and keeps going while activities remain within a
// 24 hour start-time window.
func FindSimilar(w tcx.Workout, activities []strava.Activity) ([]strava.Activity, error) {
	if len(activities) == 0 {
		return nil, fmt.Errorf("no activities to search")
	}
	if !sort.SliceIsSorted(activities, func(i, j int) bool {
		return activities[i].StartDate.Before(activities[j].StartDate)
	}) {
		return nil, fmt.Errorf("activities are not sorted by start date")
	}

	index := sort.Search(len(activities), func(i int) bool {
		return !activities[i].StartDate.Before(w.StartedAt)
	})
	log.Debug().Str("workout", w.ID).Int("index", index).Int("activities", len(activities)).
		Msg("searching for similar activities")

	// The insertion point can be off the end of the list if that is where
	// the workout's time would sort to.
	if index >= len(activities) {
		index = len(activities) - 1
	}

	var similar []strava.Activity
	leftIndex := index
	rightIndex := index + 1
	distance := 0

	shouldContinue := func(i int) bool {
		if i < 0 || i >= len(activities) {
			return false
		}
		return distance < minSearchDistance || startDelta(w, activities[i]) < searchTimeCutoff
	}

	for {
		continueLeft := shouldContinue(leftIndex)
		if continueLeft {
			if Similar(w, activities[leftIndex]) {
				similar = append([]strava.Activity{activities[leftIndex]}, similar...)
			}
			leftIndex--
		}
		continueRight := shouldContinue(rightIndex)
		if continueRight {
			if Similar(w, activities[rightIndex]) {
				similar = append(similar, activities[rightIndex])
			}
			rightIndex++
		}
		if !continueLeft && !continueRight {
			break
		}
		distance++
	}

	return similar, nil
}
