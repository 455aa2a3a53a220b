package interaction

// Intent is a user command decoded from keyboard input. The orchestrator
// consumes intents one at a time between loop iterations.
type Intent int

const (
	IntentNone Intent = iota
	IntentQuit
	IntentToggleMonitor
	IntentDeleteMonitor
	IntentReconnectMonitor
	IntentTerminateConnections
	IntentClearFeed
	IntentSelectUp
	IntentSelectDown
)

func (i Intent) String() string {
	switch i {
	case IntentQuit:
		return "quit"
	case IntentToggleMonitor:
		return "toggle"
	case IntentDeleteMonitor:
		return "delete"
	case IntentReconnectMonitor:
		return "reconnect"
	case IntentTerminateConnections:
		return "terminate"
	case IntentClearFeed:
		return "clear-feed"
	case IntentSelectUp:
		return "select-up"
	case IntentSelectDown:
		return "select-down"
	default:
		return "none"
	}
}
