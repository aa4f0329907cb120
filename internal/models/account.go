package models

// Account is the department account returned by the remote backend on login.
type Account struct {
	Email      string `json:"accountEmail"`
	Name       string `json:"accountName,omitempty"`
	Department string `json:"department,omitempty"`
	IsActive   bool   `json:"isActive"`
}

// LoginResponse is the remote backend's answer to a successful login.
type LoginResponse struct {
	Account Account `json:"account"`
	Message string  `json:"message,omitempty"`
}

// ProfileUpdate carries the optional fields of a profile update.
type ProfileUpdate struct {
	Name     string `json:"accountName,omitempty"`
	IsActive *bool  `json:"isActive,omitempty"`
}

// TicketStatus filters tickets on the remote backend.
type TicketStatus string

const (
	TicketStatusPending   TicketStatus = "pending"
	TicketStatusCompleted TicketStatus = "completed"
)

// TicketSolution answers one SmartSolve cluster.
type TicketSolution struct {
	UniqueID int    `json:"uniqueId"`
	Solution string `json:"solution"`
}
