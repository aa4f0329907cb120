// Package models contains domain types for the campus admin portal.
package models

import "time"

// ItemStatus represents the processing status of a queued file.
type ItemStatus string

const (
	ItemStatusPending    ItemStatus = "pending"
	ItemStatusExtracting ItemStatus = "extracting"
	ItemStatusUploading  ItemStatus = "uploading"
	ItemStatusCompleted  ItemStatus = "completed"
	ItemStatusError      ItemStatus = "error"
)

// Terminal reports whether no further automatic transition can happen.
func (s ItemStatus) Terminal() bool {
	return s == ItemStatusCompleted || s == ItemStatusError
}

// SourceFile is a raw file selected by the user.
type SourceFile struct {
	Name        string `json:"name" msgpack:"name"`
	Size        int64  `json:"size" msgpack:"size"`
	ContentType string `json:"contentType,omitempty" msgpack:"contentType,omitempty"`
	Data        []byte `json:"-" msgpack:"-"`
}

// NewSourceFile wraps in-memory content, deriving Size from the data.
func NewSourceFile(name string, data []byte) SourceFile {
	return SourceFile{
		Name: name,
		Size: int64(len(data)),
		Data: data,
	}
}

// QueueItem is one file moving through extraction and upload.
type QueueItem struct {
	ID         string     `json:"id" msgpack:"id"`
	File       SourceFile `json:"file" msgpack:"file"`
	Status     ItemStatus `json:"status" msgpack:"status"`
	Error      string     `json:"error,omitempty" msgpack:"error,omitempty"`
	Category   Category   `json:"category,omitempty" msgpack:"category,omitempty"`     // Resolved when processing of the item starts
	TargetName string     `json:"targetName,omitempty" msgpack:"targetName,omitempty"` // Set when extraction succeeds
	EnqueuedAt time.Time  `json:"enqueuedAt" msgpack:"enqueuedAt"`
	UpdatedAt  time.Time  `json:"updatedAt" msgpack:"updatedAt"`
}

// NewQueueItem creates a QueueItem in pending status.
func NewQueueItem(id string, file SourceFile) *QueueItem {
	now := time.Now()
	return &QueueItem{
		ID:         id,
		File:       file,
		Status:     ItemStatusPending,
		EnqueuedAt: now,
		UpdatedAt:  now,
	}
}
