package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-x-monitor/internal/core/model"
)

func newMonitor(label string, enabled bool) model.Monitor {
	id := uuid.New()
	return model.Monitor{
		ID:        id,
		Label:     label,
		Kind:      model.KindPhrase,
		Enabled:   enabled,
		Query:     label,
		RuleTag:   model.NewRuleTag(id),
		CreatedAt: time.Now(),
	}
}

func TestFeedCapEvictsOldest(t *testing.T) {
	s := New(nil)

	for i := 0; i < MaxFeedItems+1; i++ {
		s.PushInfo(fmt.Sprintf("item %d", i))
	}

	feed := s.Feed()
	require.Len(t, feed, MaxFeedItems)
	// Newest first; item 0 was evicted.
	assert.Equal(t, "item 500", feed[0].Message)
	assert.Equal(t, "item 1", feed[len(feed)-1].Message)
}

func TestFeedPreservesInsertionOrder(t *testing.T) {
	s := New(nil)
	s.PushInfo("first")
	s.PushError("second")
	s.PushInfo("third")

	feed := s.Feed()
	require.Len(t, feed, 3)
	assert.Equal(t, "third", feed[0].Message)
	assert.Equal(t, "second", feed[1].Message)
	assert.Equal(t, "first", feed[2].Message)
}

func TestAddAndLookupMonitor(t *testing.T) {
	s := New(nil)
	m := newMonitor("Rust", true)
	s.AddMonitor(m)

	byTag, ok := s.MonitorByTag(m.RuleTag)
	require.True(t, ok)
	assert.Equal(t, m.ID, byTag.ID)

	byID, ok := s.MonitorByID(m.ID)
	require.True(t, ok)
	assert.Equal(t, "Rust", byID.Label)

	_, ok = s.MonitorByTag("xmon:nope")
	assert.False(t, ok)
}

func TestActivateWithRule(t *testing.T) {
	s := New(nil)
	m := newMonitor("Rust", false)
	s.AddMonitor(m)

	require.True(t, s.ActivateWithRule(m.ID, "r42"))

	got, _ := s.MonitorByID(m.ID)
	assert.Equal(t, "r42", got.RuleID)
	assert.True(t, got.Enabled)
	// Stream is down, so the monitor cannot be active yet.
	assert.False(t, s.MonitorActive(m.ID))
}

func TestDeactivateKeepsMonitorRecord(t *testing.T) {
	s := New(nil)
	m := newMonitor("Rust", true)
	m.RuleID = "r1"
	s.AddMonitor(m)

	require.True(t, s.Deactivate(m.ID))

	got, ok := s.MonitorByID(m.ID)
	require.True(t, ok)
	assert.Empty(t, got.RuleID)
	assert.False(t, got.Enabled)
	assert.False(t, s.MonitorActive(m.ID))
}

func TestRemoveMonitor(t *testing.T) {
	s := New(nil)
	m := newMonitor("Rust", true)
	s.AddMonitor(m)
	s.SetMonitorInitiating(m.ID, true)

	removed, ok := s.RemoveMonitor(m.ID)
	require.True(t, ok)
	assert.Equal(t, m.ID, removed.ID)
	assert.False(t, s.MonitorInitiating(m.ID))

	_, ok = s.RemoveMonitor(m.ID)
	assert.False(t, ok)
}

func TestSetStreamConnectedRecomputesActivity(t *testing.T) {
	enabled := newMonitor("on", true)
	disabled := newMonitor("off", false)
	s := New([]model.Monitor{enabled, disabled})
	s.SetMonitorInitiating(enabled.ID, true)

	s.SetStreamConnected(true)
	assert.True(t, s.MonitorActive(enabled.ID))
	assert.False(t, s.MonitorActive(disabled.ID))
	assert.False(t, s.MonitorInitiating(enabled.ID), "connect clears initiating flags")

	s.SetStreamConnected(false)
	assert.False(t, s.MonitorActive(enabled.ID))
}

func TestRefreshConnectionStatePrunesInitiating(t *testing.T) {
	enabled := newMonitor("on", true)
	disabled := newMonitor("off", false)
	s := New([]model.Monitor{enabled, disabled})

	s.SetMonitorInitiating(enabled.ID, true)
	s.SetMonitorInitiating(disabled.ID, true)
	ghost := uuid.New()
	s.SetMonitorInitiating(ghost, true)

	s.RefreshConnectionState()

	assert.True(t, s.MonitorInitiating(enabled.ID))
	assert.False(t, s.MonitorInitiating(disabled.ID), "disabled monitors are pruned")
	assert.False(t, s.MonitorInitiating(ghost), "deleted monitors are pruned")
}

func TestHasEnabledMonitors(t *testing.T) {
	s := New(nil)
	assert.False(t, s.HasEnabledMonitors())

	off := newMonitor("off", false)
	s.AddMonitor(off)
	assert.False(t, s.HasEnabledMonitors())

	s.AddMonitor(newMonitor("on", true))
	assert.True(t, s.HasEnabledMonitors())
}

func TestMarkEnabledInitiating(t *testing.T) {
	enabled := newMonitor("on", true)
	disabled := newMonitor("off", false)
	s := New([]model.Monitor{enabled, disabled})
	s.SetMonitorInitiating(disabled.ID, true)

	s.MarkEnabledInitiating()

	assert.True(t, s.MonitorInitiating(enabled.ID))
	assert.False(t, s.MonitorInitiating(disabled.ID))
}
