// Package logclient talks to the external match-record index. It exposes the
// two views the pipeline needs: cheap search summaries and full records.
package logclient

import (
	"time"

	sharedtypes "github.com/pugscord/pugbot/app/shared/types"
)

// CandidateSummary is one search result. Summaries carry no roster; a
// candidate must be fetched in full before anything is decided about it.
type CandidateSummary struct {
	ID          sharedtypes.RecordID
	StartedAt   time.Time
	Map         string
	Title       string
	PlayerCount int
}

// PlayerRecord is the record's view of one player.
type PlayerRecord struct {
	Team  sharedtypes.TeamColor
	Stats []sharedtypes.ClassStats
}

// Record is a fully fetched match record.
type Record struct {
	ID        sharedtypes.RecordID
	Map       string
	Title     string
	StartedAt time.Time
	Duration  time.Duration
	RedScore  int
	BlueScore int
	Players   map[sharedtypes.GameID]PlayerRecord
}

// Roster returns the record's players keyed by game identity.
func (r *Record) Roster() map[sharedtypes.GameID]PlayerRecord {
	return r.Players
}

// Shutout reports a match one side finished scoreless.
func (r *Record) Shutout() bool {
	return (r.RedScore == 0) != (r.BlueScore == 0)
}

// Wire shapes of the logs service's JSON API.

type searchResponse struct {
	Success bool        `json:"success"`
	Results int         `json:"results"`
	Total   int         `json:"total"`
	Logs    []searchLog `json:"logs"`
}

type searchLog struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Map     string `json:"map"`
	Date    int64  `json:"date"`
	Players int    `json:"players"`
}

type recordResponse struct {
	Success bool   `json:"success"`
	Version int    `json:"version"`
	Length  int64  `json:"length"`
	Info    struct {
		Map         string `json:"map"`
		Title       string `json:"title"`
		Date        int64  `json:"date"`
		TotalLength int64  `json:"total_length"`
	} `json:"info"`
	Teams struct {
		Red struct {
			Score int `json:"score"`
		} `json:"Red"`
		Blue struct {
			Score int `json:"score"`
		} `json:"Blue"`
	} `json:"teams"`
	Players map[string]recordPlayer `json:"players"`
}

type recordPlayer struct {
	Team       string            `json:"team"`
	ClassStats []recordClassStat `json:"class_stats"`
}

type recordClassStat struct {
	Type      string `json:"type"`
	Kills     int    `json:"kills"`
	Deaths    int    `json:"deaths"`
	Damage    int    `json:"dmg"`
	TotalTime int64  `json:"total_time"`
}
