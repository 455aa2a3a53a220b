package model

import "github.com/google/uuid"

// Message is a unit of work posted onto the application bus. Every producer
// (stream loop, lifecycle tasks, analysis tasks, user input) only sends
// messages; the single consumer loop is the only component that mutates
// state in response.
//
// Result-carrying messages hold the error as plain text: asynchronous task
// failures are flattened before they cross the task boundary.
type Message interface {
	message()
}

// InfoMsg carries an informational notice for the feed
type InfoMsg struct {
	Text string
}

// ErrorMsg carries an error notice for the feed
type ErrorMsg struct {
	Text string
}

// StreamStateMsg reports a change of the stream connection state
type StreamStateMsg struct {
	Connected bool
}

// StreamPostMsg delivers one post received from the filtered stream
type StreamPostMsg struct {
	Post StreamPost
}

// MonitorAddedMsg completes an add operation
type MonitorAddedMsg struct {
	Monitor Monitor
	Err     string
}

// EditPreparedMsg completes the prepare phase of an edit: the remote rule
// has been disconnected and the edit session may open
type EditPreparedMsg struct {
	MonitorID uuid.UUID
	Monitor   Monitor
	Err       string
}

// MonitorEditedMsg completes the commit phase of an edit
type MonitorEditedMsg struct {
	Monitor Monitor
	Err     string
}

// MonitorActivatedMsg completes an activate operation
type MonitorActivatedMsg struct {
	MonitorID uuid.UUID
	Label     string
	RuleID    string
	Err       string
}

// MonitorDeactivatedMsg completes a deactivate operation
type MonitorDeactivatedMsg struct {
	MonitorID uuid.UUID
	Label     string
	Err       string
}

// MonitorDeletedMsg completes a delete operation
type MonitorDeletedMsg struct {
	MonitorID uuid.UUID
	Label     string
	Err       string
}

// MonitorReconnectedMsg completes a reconnect (delete-then-create) operation,
// including the automatic restore after a cancelled or failed edit
type MonitorReconnectedMsg struct {
	MonitorID uuid.UUID
	Label     string
	RuleID    string
	Err       string
}

// AnalysisCompletedMsg completes one AI analysis task
type AnalysisCompletedMsg struct {
	MonitorLabel string
	Provider     string
	Model        string
	Output       string
	URL          string
	Err          string
}

func (InfoMsg) message()               {}
func (ErrorMsg) message()              {}
func (StreamStateMsg) message()        {}
func (StreamPostMsg) message()         {}
func (MonitorAddedMsg) message()       {}
func (EditPreparedMsg) message()       {}
func (MonitorEditedMsg) message()      {}
func (MonitorActivatedMsg) message()   {}
func (MonitorDeactivatedMsg) message() {}
func (MonitorDeletedMsg) message()     {}
func (MonitorReconnectedMsg) message() {}
func (AnalysisCompletedMsg) message()  {}
