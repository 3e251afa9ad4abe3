// Package types provides the records shared by the interview session, report
// pipeline, export stage and their stores.
package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Completion is the stored completion status of an interview.
type Completion string

const (
	CompletionPending    Completion = "pending"
	CompletionIncomplete Completion = "incomplete"
	CompletionCompleted  Completion = "completed"
)

// Valid reports whether c is a known completion value.
func (c Completion) Valid() bool {
	switch c {
	case CompletionPending, CompletionIncomplete, CompletionCompleted:
		return true
	}
	return false
}

// Rank orders completion values; a status may only move to an equal or higher rank.
func (c Completion) Rank() int {
	switch c {
	case CompletionPending:
		return 0
	case CompletionIncomplete:
		return 1
	case CompletionCompleted:
		return 2
	}
	return -1
}

// State is the lifecycle state of a session as observed from its turns and status.
type State string

const (
	StatePending    State = "pending"
	StateActive     State = "active"
	StateIncomplete State = "incomplete"
	StateCompleted  State = "completed"
)

// Interview modes.
const (
	ModeText  = "text"
	ModeVoice = "voice"
)

// SessionConfig is the input to interview creation.
type SessionConfig struct {
	UserID        string `json:"user_id" validate:"required"`
	Domain        string `json:"domain" validate:"required,min=2,max=50"`
	Experience    string `json:"experience" validate:"required"`
	InterviewType string `json:"interview_type" validate:"required"`
	Mode          string `json:"mode" validate:"required,oneof=text voice"`
	Difficulty    string `json:"difficulty" validate:"required"`
}

// Normalize trims every field and lower-cases the mode.
func (c *SessionConfig) Normalize() {
	c.UserID = strings.TrimSpace(c.UserID)
	c.Domain = strings.TrimSpace(c.Domain)
	c.Experience = strings.TrimSpace(c.Experience)
	c.InterviewType = strings.TrimSpace(c.InterviewType)
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	c.Difficulty = strings.TrimSpace(c.Difficulty)
}

// Validate checks the config with the struct tags.
func (c *SessionConfig) Validate() error {
	return validate.Struct(c)
}

// Interview is one interview session.
type Interview struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	Domain         string     `json:"domain"`
	Experience     string     `json:"experience"`
	InterviewType  string     `json:"interview_type"`
	Mode           string     `json:"mode"`
	Difficulty     string     `json:"difficulty"`
	Completion     Completion `json:"completion"`
	ElapsedSeconds int        `json:"elapsed_seconds"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Sender identifies who produced a turn.
type Sender string

const (
	SenderAI   Sender = "ai"
	SenderUser Sender = "user"
)

// Valid reports whether s is a known sender.
func (s Sender) Valid() bool {
	return s == SenderAI || s == SenderUser
}

// Audio is a rendered audio payload. Data is base64 encoded in JSON.
type Audio struct {
	Data   []byte `json:"audio"`
	Format string `json:"format"`
}

// Turn is one entry in an interview's conversation log.
type Turn struct {
	ID             uuid.UUID `json:"id"`
	InterviewID    uuid.UUID `json:"interview_id"`
	Sender         Sender    `json:"sender"`
	Text           string    `json:"text"`
	IsFirstMessage bool      `json:"is_first_message"`
	Audio          *Audio    `json:"text_audio,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// QAPair is a question asked by the interviewer and the candidate's answer.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
