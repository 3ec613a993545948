package models

// RollRequest is the body of POST /roll-aura. Field names match the game
// client's existing payload.
type RollRequest struct {
	Identity  string `json:"steamId"`
	Assertion string `json:"authTicket"`
}

// RollResponse contains the result of a granted roll.
type RollResponse struct {
	RollID   string `json:"roll_id"`
	Identity string `json:"identity"`
	RewardID string `json:"itemdefid"`
}

// ErrorResponse is the envelope for every non-granted outcome.
type ErrorResponse struct {
	Status     string `json:"status"`
	Outcome    string `json:"outcome,omitempty"`
	Error      string `json:"error"`
	RollID     string `json:"roll_id,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"`
}
