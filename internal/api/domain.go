package api

// TurnRequest represents the expected JSON body for one conversation turn.
type TurnRequest struct {
	SessionID string `json:"session_id,omitempty" example:"7a15f9b2-..."`            // Omit to start a new conversation.
	Message   string `json:"message" binding:"required" example:"Plan 3 days in Jaipur"` // The user's utterance.
	Voice     bool   `json:"voice,omitempty" example:"false"`                        // Marks speech transcripts for extra normalization.
}

// EditRequest represents the expected JSON body for a direct itinerary edit.
type EditRequest struct {
	SessionID string `json:"session_id" binding:"required" example:"7a15f9b2-..."`
	Command   string `json:"command" binding:"required" example:"swap day 1 and day 2"` // Natural-language edit command.
}

// ExplainRequest represents the expected JSON body for an itinerary question.
type ExplainRequest struct {
	SessionID string `json:"session_id" binding:"required" example:"7a15f9b2-..."`
	Question  string `json:"question" binding:"required" example:"why is Amber Fort on day 1?"`
}
