package datastructs

import (
	"time"
)

// Status is the lifecycle state of a single application.
type Status string

const (
	StatusPending     Status = "Pending"
	StatusAccepted    Status = "Accepted"
	StatusRejected    Status = "Rejected"
	StatusBlacklisted Status = "Blacklisted"
)

// Terminal reports whether a decision has been made for this status.
func (s Status) Terminal() bool {
	return s != StatusPending
}

// Answer pairs one configured question with the text the applicant entered.
type Answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Application is one submission attempt. It is embedded in its owning
// Section and never deleted; decisions only move its status forward.
type Application struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Username    string     `json:"username"`
	Answers     []Answer   `json:"answers"`
	SubmittedAt time.Time  `json:"submitted_at"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
	Status      Status     `json:"status"`
}

// MaxQuestions caps the form size; the platform modal holds five inputs.
const MaxQuestions = 5

// Section is one applyable role with its own questions, reviewers,
// blacklist and application history.
type Section struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Open           bool          `json:"open"`
	Emoji          string        `json:"emoji,omitempty"`
	ChannelID      string        `json:"channel_id,omitempty"`
	ReviewerGroups []string      `json:"reviewer_groups"`
	ApprovedGroups []string      `json:"approved_groups"`
	Questions      []string      `json:"questions"`
	Blacklist      []string      `json:"blacklist"`
	Applications   []Application `json:"applications"`
}

// NewSection returns the empty skeleton an admin wizard creates.
func NewSection(id string) *Section {
	return &Section{
		ID:             id,
		Name:           id,
		Open:           true,
		ReviewerGroups: []string{},
		ApprovedGroups: []string{},
		Questions:      []string{},
		Blacklist:      []string{},
		Applications:   []Application{},
	}
}

// DisplayName falls back to the id when no name was configured.
func (s *Section) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// FindApplication returns a pointer into the Applications slice, or nil.
func (s *Section) FindApplication(id string) *Application {
	for i := range s.Applications {
		if s.Applications[i].ID == id {
			return &s.Applications[i]
		}
	}
	return nil
}

// LatestApplicationBy returns the user's most recent application by
// submission time, or nil if they never applied here.
func (s *Section) LatestApplicationBy(userID string) *Application {
	var latest *Application
	for i := range s.Applications {
		a := &s.Applications[i]
		if a.UserID != userID {
			continue
		}
		if latest == nil || a.SubmittedAt.After(latest.SubmittedAt) {
			latest = a
		}
	}
	return latest
}

// IsBlacklisted reports whether the user is blocked from applying here.
func (s *Section) IsBlacklisted(userID string) bool {
	for _, id := range s.Blacklist {
		if id == userID {
			return true
		}
	}
	return false
}

// AddToBlacklist inserts the user once.
func (s *Section) AddToBlacklist(userID string) {
	if !s.IsBlacklisted(userID) {
		s.Blacklist = append(s.Blacklist, userID)
	}
}

// RemoveFromBlacklist drops the user from the blacklist set.
func (s *Section) RemoveFromBlacklist(userID string) {
	kept := s.Blacklist[:0]
	for _, id := range s.Blacklist {
		if id != userID {
			kept = append(kept, id)
		}
	}
	s.Blacklist = kept
}

// PanelKind distinguishes the two live panel types the refresher keeps
// in sync.
type PanelKind string

const (
	PanelApply PanelKind = "apply"
	PanelAdmin PanelKind = "admin"
)

// Panel records one live rendered message. Sections is only meaningful
// for apply panels: the ordered section ids the panel advertises.
type Panel struct {
	Kind      PanelKind `json:"kind"`
	ChannelID string    `json:"channel_id"`
	MessageID string    `json:"message_id"`
	Sections  []string  `json:"sections,omitempty"`
}

// ApplysToken is substituted with the rendered section list in the main
// panel message.
const ApplysToken = "{applys}"

// DefaultMainMessage is used when no template has been configured.
const DefaultMainMessage = "We are announcing the opening of applications for these sections:\n{applys}"

// Registry is the singleton document holding every panel registration
// plus the main message template.
type Registry struct {
	Panels      []Panel `json:"panels"`
	MainMessage string  `json:"main_message"`
}

// Template returns the configured main message or the default.
func (r *Registry) Template() string {
	if r.MainMessage != "" {
		return r.MainMessage
	}
	return DefaultMainMessage
}

// FindPanel returns the registration for a message id, or nil.
func (r *Registry) FindPanel(messageID string) *Panel {
	for i := range r.Panels {
		if r.Panels[i].MessageID == messageID {
			return &r.Panels[i]
		}
	}
	return nil
}

// Actor is a capability snapshot of the member performing an action,
// fetched from the messaging surface at handling time.
type Actor struct {
	UserID   string
	Username string
	Admin    bool
	Groups   []string
}
