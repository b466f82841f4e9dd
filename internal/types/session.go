package types

import (
	"strings"
	"time"
)

// Message is one turn of conversation history.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Preferences accumulates the slots the dialogue fills over multiple turns.
type Preferences struct {
	City         string   `json:"city,omitempty"`
	DurationDays int      `json:"duration_days,omitempty"`
	Interests    []string `json:"interests,omitempty"`
	Pace         Pace     `json:"pace,omitempty"`
	Budget       string   `json:"budget,omitempty"`
	TravelMode   string   `json:"travel_mode,omitempty"`
	StartDate    string   `json:"start_date,omitempty"`
	EndDate      string   `json:"end_date,omitempty"`
	TravelDates  []string `json:"travel_dates,omitempty"`
}

// Merge folds in the non-zero fields of other without clearing anything
// already known. Interests are unioned case-insensitively.
func (p *Preferences) Merge(other Preferences) {
	if other.City != "" {
		p.City = other.City
	}
	if other.DurationDays > 0 {
		p.DurationDays = other.DurationDays
	}
	if other.Pace != "" {
		p.Pace = other.Pace
	}
	if other.Budget != "" {
		p.Budget = other.Budget
	}
	if other.TravelMode != "" {
		p.TravelMode = other.TravelMode
	}
	if other.StartDate != "" {
		p.StartDate = other.StartDate
	}
	if other.EndDate != "" {
		p.EndDate = other.EndDate
	}
	if len(other.TravelDates) > 0 {
		p.TravelDates = append([]string(nil), other.TravelDates...)
	}
	for _, in := range other.Interests {
		found := false
		for _, have := range p.Interests {
			if strings.EqualFold(have, in) {
				found = true
				break
			}
		}
		if !found {
			p.Interests = append(p.Interests, in)
		}
	}
}

// Slot names, in clarification priority order.
const (
	SlotCity        = "city"
	SlotDuration    = "duration_days"
	SlotTravelMode  = "travel_mode"
	SlotTravelDates = "travel_dates"
	SlotInterests   = "interests"
	SlotPace        = "pace"
)

// SlotPriority is the order in which missing slots are clarified.
var SlotPriority = []string{SlotCity, SlotDuration, SlotTravelMode, SlotTravelDates, SlotInterests, SlotPace}

// MissingSlots lists the unfilled slots in clarification priority order.
func (p Preferences) MissingSlots() []string {
	var missing []string
	for _, slot := range SlotPriority {
		switch slot {
		case SlotCity:
			if p.City == "" {
				missing = append(missing, slot)
			}
		case SlotDuration:
			if p.DurationDays <= 0 {
				missing = append(missing, slot)
			}
		case SlotTravelMode:
			if p.TravelMode == "" {
				missing = append(missing, slot)
			}
		case SlotTravelDates:
			if p.StartDate == "" && len(p.TravelDates) == 0 {
				missing = append(missing, slot)
			}
		case SlotInterests:
			if len(p.Interests) == 0 {
				missing = append(missing, slot)
			}
		case SlotPace:
			if p.Pace == "" {
				missing = append(missing, slot)
			}
		}
	}
	return missing
}

// HasMinimumSlots reports whether planning can start at all.
func (p Preferences) HasMinimumSlots() bool {
	return p.City != "" && p.DurationDays > 0
}

// Session holds everything the service remembers about one conversation.
// The store is the only owner of the live struct: reads get detached copies
// via Clone and every mutation goes through the store's update path.
type Session struct {
	ID                       string      `json:"session_id"`
	CreatedAt                time.Time   `json:"created_at"`
	LastActivityAt           time.Time   `json:"last_activity"`
	Preferences              Preferences `json:"preferences"`
	Itinerary                *Itinerary  `json:"itinerary,omitempty"`
	History                  []Message   `json:"conversation_history"`
	ClarifyingQuestionsAsked []string    `json:"clarifying_questions"`
	ClarifyingCount          int         `json:"clarifying_questions_count"`
	Sources                  []Source    `json:"sources,omitempty"`
	Evaluation               *Evaluation `json:"evaluation,omitempty"`
	AwaitingConfirmation     bool        `json:"awaiting_confirmation"`
	Confirmed                bool        `json:"confirmed"`
}

// Expired reports whether the session passed its inactivity TTL.
func (s *Session) Expired(ttl time.Duration) bool {
	return time.Since(s.LastActivityAt) > ttl
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Preferences.Interests = append([]string(nil), s.Preferences.Interests...)
	out.Preferences.TravelDates = append([]string(nil), s.Preferences.TravelDates...)
	out.History = append([]Message(nil), s.History...)
	out.ClarifyingQuestionsAsked = append([]string(nil), s.ClarifyingQuestionsAsked...)
	out.Sources = append([]Source(nil), s.Sources...)
	out.Itinerary = s.Itinerary.Clone()
	out.Evaluation = s.Evaluation.Clone()
	return &out
}
