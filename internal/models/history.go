package models

import "time"

// HistoryEntry records the outcome of one processed queue item.
type HistoryEntry struct {
	ItemID     string     `json:"itemId"`
	Account    string     `json:"account"`
	SourceName string     `json:"sourceName"`
	TargetName string     `json:"targetName,omitempty"`
	Category   Category   `json:"category,omitempty"`
	Status     ItemStatus `json:"status"`
	Error      string     `json:"error,omitempty"`
	SourceSize int64      `json:"sourceSize"`
	TextBytes  int        `json:"textBytes"`
	DurationMs int64      `json:"durationMs"`
	FinishedAt time.Time  `json:"finishedAt"`
}

// HistoryStats aggregates the ledger.
type HistoryStats struct {
	Total      int                `json:"total"`
	ByStatus   map[ItemStatus]int `json:"byStatus"`
	ByCategory map[Category]int   `json:"byCategory"`
	TextBytes  int64              `json:"textBytes"`
}
