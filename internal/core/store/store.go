package store

import (
	"github.com/google/uuid"

	"github.com/penwyp/go-x-monitor/internal/core/model"
)

// MaxFeedItems bounds the activity feed; inserting beyond the cap evicts
// the oldest entry.
const MaxFeedItems = 500

// MonitorStore is the single source of truth for monitors and the activity
// feed. It is deliberately not synchronized: the orchestrator loop is its
// only owner, and every other component communicates through bus messages.
// Callers outside the loop only ever see cloned snapshots.
type MonitorStore struct {
	monitors []model.Monitor
	feed     []model.FeedItem // most recent first

	// Transient runtime state, recomputed on reconnection and never persisted.
	activity        map[uuid.UUID]bool
	initiating      map[uuid.UUID]struct{}
	streamConnected bool
	feedSeq         uint64
}

// New creates a store seeded with the given monitors, all initially inactive.
func New(monitors []model.Monitor) *MonitorStore {
	activity := make(map[uuid.UUID]bool, len(monitors))
	for _, m := range monitors {
		activity[m.ID] = false
	}
	return &MonitorStore{
		monitors:   monitors,
		activity:   activity,
		initiating: make(map[uuid.UUID]struct{}),
	}
}

// Monitors returns a snapshot of the monitor list.
func (s *MonitorStore) Monitors() []model.Monitor {
	out := make([]model.Monitor, len(s.monitors))
	copy(out, s.monitors)
	return out
}

// Feed returns a snapshot of the feed, most recent first.
func (s *MonitorStore) Feed() []model.FeedItem {
	out := make([]model.FeedItem, len(s.feed))
	copy(out, s.feed)
	return out
}

// FeedLen returns the current feed length.
func (s *MonitorStore) FeedLen() int {
	return len(s.feed)
}

// PushFeed inserts an item at the front and evicts beyond the cap.
func (s *MonitorStore) PushFeed(item model.FeedItem) {
	s.feedSeq++
	item.Seq = s.feedSeq
	s.feed = append(s.feed, model.FeedItem{})
	copy(s.feed[1:], s.feed)
	s.feed[0] = item
	if len(s.feed) > MaxFeedItems {
		s.feed = s.feed[:MaxFeedItems]
	}
}

// PushInfo appends an informational feed item.
func (s *MonitorStore) PushInfo(message string) {
	s.PushFeed(model.NewInfoItem(message))
}

// PushError appends an error feed item.
func (s *MonitorStore) PushError(message string) {
	s.PushFeed(model.NewErrorItem(message))
}

// PushPost appends a post feed item with the matched monitor labels.
func (s *MonitorStore) PushPost(post model.StreamPost, monitors []string) {
	s.PushFeed(model.NewPostItem(post, monitors))
}

// PushAnalysis appends an analysis feed item.
func (s *MonitorStore) PushAnalysis(monitor, provider, modelID, output, url string) {
	s.PushFeed(model.NewAnalysisItem(monitor, provider, modelID, output, url))
}

// ClearFeed drops all feed items.
func (s *MonitorStore) ClearFeed() {
	s.feed = nil
}

// MonitorByTag finds a monitor by its correlation tag.
func (s *MonitorStore) MonitorByTag(tag string) (model.Monitor, bool) {
	for _, m := range s.monitors {
		if m.RuleTag == tag {
			return m, true
		}
	}
	return model.Monitor{}, false
}

// MonitorByID finds a monitor by ID.
func (s *MonitorStore) MonitorByID(id uuid.UUID) (model.Monitor, bool) {
	for _, m := range s.monitors {
		if m.ID == id {
			return m, true
		}
	}
	return model.Monitor{}, false
}

// AddMonitor appends a new monitor; its active flag follows the current
// stream state.
func (s *MonitorStore) AddMonitor(m model.Monitor) {
	s.activity[m.ID] = m.Enabled && s.streamConnected
	s.monitors = append(s.monitors, m)
}

// ReplaceMonitor swaps a monitor in place, keyed by ID. Returns false when
// the monitor no longer exists.
func (s *MonitorStore) ReplaceMonitor(m model.Monitor) bool {
	for i := range s.monitors {
		if s.monitors[i].ID == m.ID {
			s.monitors[i] = m
			s.activity[m.ID] = m.Enabled && s.streamConnected
			return true
		}
	}
	return false
}

// RemoveMonitor deletes a monitor and its transient flags.
func (s *MonitorStore) RemoveMonitor(id uuid.UUID) (model.Monitor, bool) {
	for i := range s.monitors {
		if s.monitors[i].ID == id {
			removed := s.monitors[i]
			s.monitors = append(s.monitors[:i], s.monitors[i+1:]...)
			delete(s.activity, id)
			delete(s.initiating, id)
			return removed, true
		}
	}
	return model.Monitor{}, false
}

// ActivateWithRule records a freshly created remote rule for a monitor and
// re-enables it.
func (s *MonitorStore) ActivateWithRule(id uuid.UUID, ruleID string) bool {
	for i := range s.monitors {
		if s.monitors[i].ID == id {
			s.monitors[i].RuleID = ruleID
			s.monitors[i].Enabled = true
			s.activity[id] = s.streamConnected
			if s.streamConnected {
				delete(s.initiating, id)
			}
			return true
		}
	}
	return false
}

// Deactivate disables a monitor and forgets its remote rule. The monitor
// record itself is kept.
func (s *MonitorStore) Deactivate(id uuid.UUID) bool {
	for i := range s.monitors {
		if s.monitors[i].ID == id {
			s.monitors[i].Enabled = false
			s.monitors[i].RuleID = ""
			s.activity[id] = false
			delete(s.initiating, id)
			return true
		}
	}
	return false
}

// SetStreamConnected records the stream state and recomputes every
// monitor's active flag from it.
func (s *MonitorStore) SetStreamConnected(connected bool) {
	s.streamConnected = connected
	for _, m := range s.monitors {
		s.activity[m.ID] = m.Enabled && connected
	}
	if connected {
		s.initiating = make(map[uuid.UUID]struct{})
	}
}

// StreamConnected reports the last known stream connection state.
func (s *MonitorStore) StreamConnected() bool {
	return s.streamConnected
}

// SetMonitorActive overrides one monitor's active flag.
func (s *MonitorStore) SetMonitorActive(id uuid.UUID, active bool) {
	s.activity[id] = active
}

// MonitorActive reports whether a monitor is currently live on the stream.
func (s *MonitorStore) MonitorActive(id uuid.UUID) bool {
	return s.activity[id]
}

// SetMonitorInitiating marks or clears a monitor's in-flight connect flag.
func (s *MonitorStore) SetMonitorInitiating(id uuid.UUID, initiating bool) {
	if initiating {
		s.initiating[id] = struct{}{}
	} else {
		delete(s.initiating, id)
	}
}

// MonitorInitiating reports whether a connect operation is in flight.
func (s *MonitorStore) MonitorInitiating(id uuid.UUID) bool {
	_, ok := s.initiating[id]
	return ok
}

// MarkEnabledInitiating flags every enabled monitor as initiating and
// clears the flag for disabled ones. Used when the stream task starts.
func (s *MonitorStore) MarkEnabledInitiating() {
	for _, m := range s.monitors {
		if m.Enabled {
			s.initiating[m.ID] = struct{}{}
		} else {
			delete(s.initiating, m.ID)
		}
	}
}

// RefreshConnectionState recomputes active flags from the current stream
// state and prunes initiating flags for monitors that no longer exist or
// are disabled.
func (s *MonitorStore) RefreshConnectionState() {
	for _, m := range s.monitors {
		s.activity[m.ID] = m.Enabled && s.streamConnected
	}
	if s.streamConnected {
		s.initiating = make(map[uuid.UUID]struct{})
		return
	}
	for id := range s.initiating {
		m, ok := s.MonitorByID(id)
		if !ok || !m.Enabled {
			delete(s.initiating, id)
		}
	}
}

// HasEnabledMonitors reports whether the stream has anything to watch.
func (s *MonitorStore) HasEnabledMonitors() bool {
	for _, m := range s.monitors {
		if m.Enabled {
			return true
		}
	}
	return false
}
