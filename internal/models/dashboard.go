package models

import "encoding/json"

// Counts are the headline ticket numbers on the dashboard.
type Counts struct {
	TotalQueries    int `json:"totalQueries"`
	TodayTickets    int `json:"todayTickets"`
	PendingTickets  int `json:"pendingTickets"`
	ResolvedTickets int `json:"resolvedTickets"`
}

// Query is a recently answered student question.
type Query struct {
	StudentName string `json:"studentName"`
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	Time        string `json:"time"`
}

// Feedback is a rated student comment.
type Feedback struct {
	StudentName  string `json:"studentName"`
	FeedbackText string `json:"feedbackText"`
	Rating       int    `json:"rating"`
	Time         string `json:"time"`
}

// DashboardUploads lists uploaded file names per category.
type DashboardUploads struct {
	Notice  []string `json:"notice"`
	FAQ     []string `json:"faq"`
	ImpData []string `json:"impData"`
}

// Dashboard event types.
const (
	DashboardEventInitial = "initial"
	DashboardEventUpdate  = "update"
)

// DashboardEvent is one message of the remote dashboard stream.
type DashboardEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// DashboardInitial is the payload of an "initial" event.
type DashboardInitial struct {
	Timestamp     string           `json:"timestamp"`
	Counts        Counts           `json:"counts"`
	RecentQueries []Query          `json:"recentQueries"`
	Uploads       DashboardUploads `json:"uploads"`
	TopFeedbacks  []Feedback       `json:"topFeedbacks"`
}

// DashboardUpdate is the payload of an "update" event. Absent fields are unchanged.
type DashboardUpdate struct {
	NewQueries   []Query           `json:"newQueries,omitempty"`
	Counts       *Counts           `json:"counts,omitempty"`
	Uploads      *DashboardUploads `json:"uploads,omitempty"`
	TopFeedbacks []Feedback        `json:"topFeedbacks,omitempty"`
}
