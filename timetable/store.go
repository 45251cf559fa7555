// Package timetable loads the published prayer timetable document and
// resolves per-date entries. The document is external read-only input; the
// engine never mutates it.
package timetable

import (
	"encoding/json"
	"os"

	apperrors "prayertimes.app/errors"
	"prayertimes.app/models"
)

// Source yields the schedule for one calendar date. A nil day with a nil
// error means the date has no published entry, which is a normal outcome;
// an error means the document itself could not be read or parsed.
type Source interface {
	Day(dateKey string) (*models.TimetableDay, error)
}

// FileSource reads the timetable JSON document from disk on every lookup,
// so a republished document is picked up without a restart. Wrap it in a
// CachedSource when lookup frequency matters.
type FileSource struct {
	path string
}

// NewFileSource creates a source over a timetable JSON file
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Day returns the entry for a date key, or nil when none is published
func (s *FileSource) Day(dateKey string) (*models.TimetableDay, error) {
	timetable, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range timetable.Days {
		if timetable.Days[i].Date == dateKey {
			return &timetable.Days[i], nil
		}
	}
	return nil, nil
}

func (s *FileSource) load() (*models.Timetable, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, apperrors.NewTimetableReadError("failed to read timetable document", err)
	}

	var timetable models.Timetable
	if err := json.Unmarshal(raw, &timetable); err != nil {
		return nil, apperrors.NewTimetableReadError("failed to parse timetable document", err)
	}
	return &timetable, nil
}
