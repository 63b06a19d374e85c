package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graham33/ifit-strava/internal/strava"
	"github.com/graham33/ifit-strava/internal/tcx"
)

func workoutAt(t *testing.T, started string, duration int) tcx.Workout {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, started)
	require.NoError(t, err)
	return tcx.Workout{
		ID:        "workout-" + started,
		StartedAt: ts,
		Duration:  time.Duration(duration) * time.Second,
	}
}

func activityAt(t *testing.T, id int64, started string, elapsed int) strava.Activity {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, started)
	require.NoError(t, err)
	return strava.Activity{ID: id, StartDate: ts, ElapsedTime: elapsed}
}

func TestSimilar(t *testing.T) {
	workout1 := workoutAt(t, "2020-06-01T06:36:58.517Z", 2613)

	// identical
	activity1 := activityAt(t, 1, "2020-06-01T06:36:58.517Z", 2613)
	assert.True(t, Similar(workout1, activity1))

	// starts 6 mins (ish) earlier
	activity2 := activityAt(t, 2, "2020-06-01T06:30:22.293Z", 2613)
	assert.True(t, Similar(workout1, activity2))

	// starts 11 mins (ish) later
	activity3 := activityAt(t, 3, "2020-06-01T06:48:03.384Z", 2613)
	assert.False(t, Similar(workout1, activity3))

	// starts 2 mins (ish) later and is 5 seconds longer
	activity4 := activityAt(t, 4, "2020-06-01T06:38:27.930Z", 2618)
	assert.True(t, Similar(workout1, activity4))

	// starts 3 mins (ish) earlier and is 75 seconds longer
	activity5 := activityAt(t, 5, "2020-06-01T06:33:37.535Z", 2688)
	assert.False(t, Similar(workout1, activity5))

	// different day
	workout2 := workoutAt(t, "2020-06-02T06:36:58.517Z", 2613)
	assert.False(t, Similar(workout2, activity1))
}

func TestFindSimilar(t *testing.T) {
	workout1 := workoutAt(t, "2020-06-01T06:36:58.517Z", 2613)

	activity1 := activityAt(t, 1, "2020-05-30T17:28:38.329Z", 2203)
	activity2 := activityAt(t, 2, "2020-06-01T06:30:22.293Z", 2613)
	activity3 := activityAt(t, 3, "2020-06-01T06:36:58.517Z", 2613)
	activity4 := activityAt(t, 4, "2020-06-03T08:01:22.930Z", 3094)

	// not in ascending order of time
	_, err := FindSimilar(workout1, []strava.Activity{activity2, activity1})
	assert.Error(t, err)

	// empty list
	_, err = FindSimilar(workout1, nil)
	assert.Error(t, err)

	got, err := FindSimilar(workout1, []strava.Activity{activity1, activity3, activity4})
	require.NoError(t, err)
	assert.Equal(t, []strava.Activity{activity3}, got)

	got, err = FindSimilar(workout1, []strava.Activity{activity3, activity4})
	require.NoError(t, err)
	assert.Equal(t, []strava.Activity{activity3}, got)

	got, err = FindSimilar(workout1, []strava.Activity{activity1, activity3})
	require.NoError(t, err)
	assert.Equal(t, []strava.Activity{activity3}, got)

	got, err = FindSimilar(workout1, []strava.Activity{activity1, activity2, activity3, activity4})
	require.NoError(t, err)
	assert.Equal(t, []strava.Activity{activity2, activity3}, got)

	// Strava truncates start times to seconds, so the same workout can sort
	// slightly to the left of where the millisecond-precision iFit time
	// would insert.
	activity5 := activityAt(t, 5, "2020-06-01T06:36:58Z", 2613)
	got, err = FindSimilar(workout1, []strava.Activity{activity1, activity5, activity4})
	require.NoError(t, err)
	assert.Equal(t, []strava.Activity{activity5}, got)

	// Same edge case where the activity sorts off the end of the list.
	got, err = FindSimilar(workout1, []strava.Activity{activity1, activity5})
	require.NoError(t, err)
	assert.Equal(t, []strava.Activity{activity5}, got)
}
