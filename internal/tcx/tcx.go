// Package tcx reads the fields of a Training Center Database (TCX) export
// that the sync needs: start time, total duration and the workout notes.
package tcx

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Workout is a single iFit workout backed by a cached TCX file. The ID is
// the iFit workout identifier (the cache filename).
type Workout struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	Notes     string
	Path      string
}

type document struct {
	XMLName    xml.Name   `xml:"TrainingCenterDatabase"`
	Activities []activity `xml:"Activities>Activity"`
}

type activity struct {
	ID    string `xml:"Id"`
	Laps  []lap  `xml:"Lap"`
	Notes string `xml:"Notes"`
}

type lap struct {
	TotalTimeSeconds float64 `xml:"TotalTimeSeconds"`
}

// Parse decodes a TCX document. The workout start time comes from the
// activity Id element and the duration is the sum of the lap times.
func Parse(r io.Reader) (Workout, error) {
	var doc document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return Workout{}, fmt.Errorf("failed to decode TCX: %w", err)
	}

	if len(doc.Activities) == 0 {
		return Workout{}, fmt.Errorf("TCX document contains no activities")
	}
	act := doc.Activities[0]

	startedAt, err := time.Parse(time.RFC3339, strings.TrimSpace(act.ID))
	if err != nil {
		return Workout{}, fmt.Errorf("failed to parse activity start time %q: %w", act.ID, err)
	}

	var seconds float64
	for _, l := range act.Laps {
		seconds += l.TotalTimeSeconds
	}

	return Workout{
		StartedAt: startedAt,
		Duration:  time.Duration(seconds * float64(time.Second)),
		Notes:     strings.TrimSpace(act.Notes),
	}, nil
}

// ParseFile parses a cached TCX file. The file's base name becomes the
// workout ID.
func ParseFile(path string) (Workout, error) {
	f, err := os.Open(path)
	if err != nil {
		return Workout{}, fmt.Errorf("failed to open workout file: %w", err)
	}
	defer f.Close()

	w, err := Parse(f)
	if err != nil {
		return Workout{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	w.ID = filepath.Base(path)
	w.Path = path
	return w, nil
}

// LoadDir parses every file in the workout cache directory and returns the
// workouts in ascending start-time order.
func LoadDir(dir string) ([]Workout, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read workout directory: %w", err)
	}

	var workouts []Workout
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w, err := ParseFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		workouts = append(workouts, w)
	}

	sort.Slice(workouts, func(i, j int) bool {
		return workouts[i].StartedAt.Before(workouts[j].StartedAt)
	})
	return workouts, nil
}
