package storage

import (
	"time"

	"github.com/keshon/jukebox/internal/music/track"
)

type TrackHistoryRecord struct {
	Title    string    `json:"title"`
	Artist   string    `json:"artist,omitempty"`
	Ref      string    `json:"ref"`
	Kind     string    `json:"kind"`
	Duration float64   `json:"duration_sec,omitempty"`
	Datetime time.Time `json:"datetime"`
}

// RecordPlayed stores a track that just started in the guild's history.
func (s *Storage) RecordPlayed(guildID string, t track.Track, info *track.StreamInfo) error {
	rec := TrackHistoryRecord{
		Title:    t.Label(),
		Ref:      t.Ref,
		Kind:     t.Kind.String(),
		Datetime: time.Now(),
	}
	if info != nil {
		if info.Title != "" {
			rec.Title = info.Title
		}
		rec.Artist = info.Artist
		rec.Duration = info.Duration.Seconds()
	}

	return s.update(guildID, func(r *Record) {
		r.TracksHistoryList = lastN(append(r.TracksHistoryList, rec), tracksHistoryLimit)
	})
}

// TracksHistory returns recently started tracks, oldest first.
func (s *Storage) TracksHistory(guildID string) ([]TrackHistoryRecord, error) {
	record, err := s.view(guildID)
	if err != nil {
		return nil, err
	}
	return record.TracksHistoryList, nil
}
