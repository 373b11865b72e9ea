// Package audit provides audit logging for aggregator mutations: trunk
// and terminal registration, service lifecycle transitions, and tree
// planning decisions.
package audit

import (
	"fmt"
	"time"
)

// Change describes one field-level difference an operation made, for
// operations (like Provide/Withdraw or label mapping) where the event's
// Operation/Trunk/Service fields alone don't capture what changed.
type Change struct {
	Field  string `json:"field"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// Event represents an auditable aggregator operation.
type Event struct {
	ID          string        `json:"id"`
	Timestamp   time.Time     `json:"timestamp"`
	User        string        `json:"user"`
	Trunk       string        `json:"trunk,omitempty"`
	Terminal    string        `json:"terminal,omitempty"`
	Operation   string        `json:"operation"`
	Service     string        `json:"service,omitempty"`
	Changes     []Change      `json:"changes"`
	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
	ExecuteMode bool          `json:"execute_mode"` // true if applied rather than previewed
	DryRun      bool          `json:"dry_run"`
	Duration    time.Duration `json:"duration"`
	ClientIP    string        `json:"client_ip,omitempty"`
	SessionID   string        `json:"session_id,omitempty"`
}

// EventType categorizes audit events
type EventType string

const (
	EventTypeDefine     EventType = "define"
	EventTypeActivate   EventType = "activate"
	EventTypeDeactivate EventType = "deactivate"
	EventTypeRelease    EventType = "release"
	EventTypePlan       EventType = "plan"
	EventTypeCommission EventType = "commission"
)

// Severity indicates the importance of an audit event
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Filter defines criteria for querying audit events
type Filter struct {
	Trunk       string
	User        string
	Operation   string
	Service     string
	Terminal    string
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool
	Limit       int
	Offset      int
}

// NewEvent creates a new audit event
func NewEvent(user, trunk, operation string) *Event {
	return &Event{
		ID:        generateID(),
		Timestamp: time.Now(),
		User:      user,
		Trunk:     trunk,
		Operation: operation,
	}
}

// WithService sets the service name
func (e *Event) WithService(service string) *Event {
	e.Service = service
	return e
}

// WithTerminal sets the terminal name
func (e *Event) WithTerminal(terminal string) *Event {
	e.Terminal = terminal
	return e
}

// WithChanges sets the changes
func (e *Event) WithChanges(changes []Change) *Event {
	e.Changes = changes
	return e
}

// WithSuccess marks the event as successful
func (e *Event) WithSuccess() *Event {
	e.Success = true
	return e
}

// WithError marks the event as failed
func (e *Event) WithError(err error) *Event {
	e.Success = false
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration sets the operation duration
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

// WithExecuteMode marks if execute mode was used
func (e *Event) WithExecuteMode(execute bool) *Event {
	e.ExecuteMode = execute
	e.DryRun = !execute
	return e
}

func generateID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
