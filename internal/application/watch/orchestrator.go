package watch

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/penwyp/go-x-monitor/internal/ai"
	"github.com/penwyp/go-x-monitor/internal/config"
	"github.com/penwyp/go-x-monitor/internal/core/model"
	"github.com/penwyp/go-x-monitor/internal/core/store"
	"github.com/penwyp/go-x-monitor/internal/presentation/display"
	"github.com/penwyp/go-x-monitor/internal/presentation/interaction"
	"github.com/penwyp/go-x-monitor/internal/targets"
	"github.com/penwyp/go-x-monitor/internal/util"
)

const intentPollTimeout = 120 * time.Millisecond

// IntentSource supplies user commands with a bounded wait.
type IntentSource interface {
	Poll(timeout time.Duration) (interaction.Intent, bool)
}

// Renderer draws one read-only snapshot per loop iteration.
type Renderer interface {
	Render(s display.Snapshot)
}

// Options wires an Orchestrator. Rules and RunStream are nil when no bearer
// token is configured; Renderer, Intents, SessionLog and TargetEvents are
// optional.
type Options struct {
	Config       *config.AppConfig
	Store        *store.MonitorStore
	Rules        RuleAPI
	Analyzer     Analyzer
	StatePath    string
	SessionLog   *SessionLogger
	Renderer     Renderer
	Intents      IntentSource
	TargetEvents <-chan targets.FileEvent

	// RunStream runs the stream loop until its context is cancelled.
	RunStream func(ctx context.Context)
}

// Orchestrator owns the application loop. It is the only component that
// mutates the store: every producer communicates through the bus, and each
// iteration drains the bus, reconciles the stream task, flushes the session
// log and renders a snapshot.
type Orchestrator struct {
	cfg          *config.AppConfig
	store        *store.MonitorStore
	rules        RuleAPI
	analyzer     Analyzer
	bus          *Bus
	statePath    string
	sessionLog   *SessionLogger
	renderer     Renderer
	intents      IntentSource
	targetEvents <-chan targets.FileEvent
	runStream    func(ctx context.Context)

	streamCancel context.CancelFunc
	streamDone   chan struct{}

	// pendingEdits holds the edited draft per monitor between the prepare
	// and commit phases of an edit.
	pendingEdits map[uuid.UUID]model.Monitor

	selected int
	quit     bool
}

// New creates an orchestrator consuming from bus.
func New(bus *Bus, opts Options) *Orchestrator {
	return &Orchestrator{
		cfg:          opts.Config,
		store:        opts.Store,
		rules:        opts.Rules,
		analyzer:     opts.Analyzer,
		bus:          bus,
		statePath:    opts.StatePath,
		sessionLog:   opts.SessionLog,
		renderer:     opts.Renderer,
		intents:      opts.Intents,
		targetEvents: opts.TargetEvents,
		runStream:    opts.RunStream,
		pendingEdits: make(map[uuid.UUID]model.Monitor),
	}
}

// Run drives the loop until a quit intent or context cancellation.
func (o *Orchestrator) Run(ctx context.Context) {
	o.reconcileStream()
	o.flushSessionLog()

	for {
		for _, msg := range o.bus.Drain() {
			o.applyMessage(msg)
		}
		o.drainTargetEvents()
		o.reconcileStream()
		o.flushSessionLog()
		o.render()

		if o.quit || ctx.Err() != nil {
			o.shutdown()
			return
		}

		o.pollIntent()
	}
}

func (o *Orchestrator) shutdown() {
	o.stopStream()
	if err := o.saveState(); err != nil {
		o.store.PushError(fmt.Sprintf("failed to persist state: %v", err))
	}
	o.flushSessionLog()
}

// applyMessage is the single place where task results become state.
func (o *Orchestrator) applyMessage(msg model.Message) {
	switch m := msg.(type) {
	case model.InfoMsg:
		o.store.PushInfo(m.Text)

	case model.ErrorMsg:
		o.store.PushError(m.Text)

	case model.StreamStateMsg:
		o.store.SetStreamConnected(m.Connected)

	case model.StreamPostMsg:
		o.handleStreamPost(m.Post)

	case model.MonitorAddedMsg:
		if m.Err != "" {
			o.store.PushError("failed to add monitor: " + m.Err)
			return
		}
		o.store.AddMonitor(m.Monitor)
		o.saveStateOr("monitor added but state save failed")
		o.store.PushInfo("monitor added: " + m.Monitor.Label)

	case model.EditPreparedMsg:
		o.applyEditPrepared(m)

	case model.MonitorEditedMsg:
		if m.Err != "" {
			o.store.PushError("failed to update target: " + m.Err)
			return
		}
		if !o.store.ReplaceMonitor(m.Monitor) {
			o.store.PushError("target update completed but monitor no longer exists")
			return
		}
		o.saveStateOr("target updated but state save failed")
		o.store.PushInfo("target updated: " + m.Monitor.Label)

	case model.MonitorActivatedMsg:
		if m.Err != "" {
			o.store.PushError("failed to activate target: " + m.Err)
			return
		}
		if o.store.ActivateWithRule(m.MonitorID, m.RuleID) {
			o.saveStateOr("target activated but state save failed")
			o.store.PushInfo("target activated: " + m.Label)
		}

	case model.MonitorDeactivatedMsg:
		if m.Err != "" {
			o.store.PushError("failed to deactivate target: " + m.Err)
			return
		}
		if o.store.Deactivate(m.MonitorID) {
			o.saveStateOr("target deactivated but state save failed")
			o.store.PushInfo("target deactivated: " + m.Label)
		}

	case model.MonitorDeletedMsg:
		if m.Err != "" {
			o.store.PushError("failed to delete monitor: " + m.Err)
			return
		}
		if _, ok := o.store.RemoveMonitor(m.MonitorID); ok {
			delete(o.pendingEdits, m.MonitorID)
			o.saveStateOr("monitor deleted but state save failed")
			o.store.PushInfo("monitor removed: " + m.Label)
			o.clampSelection()
		}

	case model.MonitorReconnectedMsg:
		if m.Err != "" {
			o.store.PushError("failed to reconnect target: " + m.Err)
			return
		}
		if o.store.ActivateWithRule(m.MonitorID, m.RuleID) {
			o.saveStateOr("target reconnected but state save failed")
			o.store.PushInfo("target reconnected: " + m.Label)
		}

	case model.AnalysisCompletedMsg:
		if m.Err != "" {
			o.store.PushError(fmt.Sprintf("analysis failed for '%s' via %s:%s: %s",
				m.MonitorLabel, m.Provider, m.Model, m.Err))
			return
		}
		o.store.PushAnalysis(m.MonitorLabel, m.Provider, m.Model, m.Output, m.URL)
	}
}

// applyEditPrepared moves an edit from its prepare phase to commit. A draft
// that disappeared in the meantime (monitor deleted) turns into a cancel:
// the original rule is restored.
func (o *Orchestrator) applyEditPrepared(m model.EditPreparedMsg) {
	if m.Err != "" {
		delete(o.pendingEdits, m.MonitorID)
		o.store.SetMonitorActive(m.MonitorID, o.store.StreamConnected())
		o.store.PushError("failed to prepare target edit: " + m.Err)
		return
	}

	draft, ok := o.pendingEdits[m.MonitorID]
	if !ok {
		o.store.PushInfo(fmt.Sprintf("reconnecting target '%s' after edit cancel...", m.Monitor.Label))
		o.spawnEditCancelRestore(m.Monitor)
		return
	}
	delete(o.pendingEdits, m.MonitorID)

	o.store.PushInfo(fmt.Sprintf("saving edits and reconnecting target '%s'...", m.Monitor.Label))
	o.spawnEditCommit(m.Monitor, draft)
}

func (o *Orchestrator) saveState() error {
	return o.store.SaveMonitors(o.statePath)
}

func (o *Orchestrator) saveStateOr(prefix string) {
	if err := o.saveState(); err != nil {
		o.store.PushError(fmt.Sprintf("%s: %v", prefix, err))
	}
}

// reconcileStream starts or stops the stream task so that it runs exactly
// when a client exists and at least one monitor is enabled.
func (o *Orchestrator) reconcileStream() {
	shouldRun := o.runStream != nil && o.store.HasEnabledMonitors()
	running := o.streamCancel != nil

	switch {
	case shouldRun && !running:
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		o.streamCancel = cancel
		o.streamDone = done
		run := o.runStream
		go func() {
			defer close(done)
			run(ctx)
		}()
		o.store.MarkEnabledInitiating()
		o.store.PushInfo("stream started")

	case !shouldRun && running:
		o.stopStream()
		if o.runStream != nil && !o.store.HasEnabledMonitors() {
			o.store.PushInfo("stream paused (activate or add a target to reconnect)")
		}
	}
}

func (o *Orchestrator) stopStream() {
	if o.streamCancel == nil {
		return
	}
	o.streamCancel()
	o.streamCancel = nil

	// The loop unblocks promptly once its request context is cancelled.
	select {
	case <-o.streamDone:
	case <-time.After(2 * time.Second):
		util.LogWarn("stream task did not stop in time")
	}
	o.streamDone = nil
	o.store.SetStreamConnected(false)
	o.store.RefreshConnectionState()
}

func (o *Orchestrator) flushSessionLog() {
	if o.sessionLog == nil {
		return
	}
	if err := o.sessionLog.FlushNewFeedItems(o.store.Feed()); err != nil {
		o.sessionLog = nil
		o.store.PushError(fmt.Sprintf("session logging disabled: %v", err))
	}
}

func (o *Orchestrator) render() {
	if o.renderer == nil {
		return
	}

	monitors := o.store.Monitors()
	rows := make([]display.MonitorRow, len(monitors))
	for i, m := range monitors {
		rows[i] = display.MonitorRow{
			Monitor:    m,
			Active:     o.store.MonitorActive(m.ID),
			Initiating: o.store.MonitorInitiating(m.ID),
		}
	}
	o.renderer.Render(display.Snapshot{
		Monitors:        rows,
		Feed:            o.store.Feed(),
		StreamConnected: o.store.StreamConnected(),
		Selected:        o.selected,
	})
}

func (o *Orchestrator) pollIntent() {
	if o.intents == nil {
		time.Sleep(intentPollTimeout)
		return
	}
	if intent, ok := o.intents.Poll(intentPollTimeout); ok {
		o.handleIntent(intent)
	}
}

func (o *Orchestrator) handleIntent(intent interaction.Intent) {
	switch intent {
	case interaction.IntentQuit:
		o.quit = true

	case interaction.IntentSelectUp:
		if o.selected > 0 {
			o.selected--
		}

	case interaction.IntentSelectDown:
		if o.selected < len(o.store.Monitors())-1 {
			o.selected++
		}

	case interaction.IntentClearFeed:
		o.store.ClearFeed()

	case interaction.IntentToggleMonitor:
		o.toggleSelected()

	case interaction.IntentDeleteMonitor:
		o.deleteSelected()

	case interaction.IntentReconnectMonitor:
		o.reconnectSelected()

	case interaction.IntentTerminateConnections:
		o.terminateConnections()
	}
}

func (o *Orchestrator) selectedMonitor() (model.Monitor, bool) {
	monitors := o.store.Monitors()
	if o.selected < 0 || o.selected >= len(monitors) {
		return model.Monitor{}, false
	}
	return monitors[o.selected], true
}

func (o *Orchestrator) clampSelection() {
	if count := len(o.store.Monitors()); o.selected >= count && count > 0 {
		o.selected = count - 1
	} else if count == 0 {
		o.selected = 0
	}
}

func (o *Orchestrator) toggleSelected() {
	if o.rules == nil {
		o.store.PushError("cannot toggle target without X bearer token")
		return
	}
	monitor, ok := o.selectedMonitor()
	if !ok {
		o.store.PushInfo("no monitor selected")
		return
	}

	o.store.SetMonitorActive(monitor.ID, false)
	if monitor.Enabled {
		o.store.PushInfo(fmt.Sprintf("deactivating target '%s'...", monitor.Label))
		o.spawnDeactivate(monitor)
	} else {
		o.store.PushInfo(fmt.Sprintf("activating target '%s'...", monitor.Label))
		o.spawnActivate(monitor)
	}
}

func (o *Orchestrator) deleteSelected() {
	if o.rules == nil {
		o.store.PushError("cannot delete monitor without X bearer token")
		return
	}
	monitor, ok := o.selectedMonitor()
	if !ok {
		o.store.PushInfo("no monitor selected")
		return
	}

	o.store.PushInfo(fmt.Sprintf("removing monitor '%s'...", monitor.Label))
	o.spawnDelete(monitor)
}

func (o *Orchestrator) reconnectSelected() {
	if o.rules == nil {
		o.store.PushError("cannot reconnect target without X bearer token")
		return
	}
	monitor, ok := o.selectedMonitor()
	if !ok {
		o.store.PushInfo("no monitor selected")
		return
	}

	o.store.SetMonitorActive(monitor.ID, false)
	o.store.PushInfo(fmt.Sprintf("reconnecting target '%s'...", monitor.Label))
	o.spawnReconnect(monitor)
}

func (o *Orchestrator) terminateConnections() {
	if o.rules == nil {
		o.store.PushError("cannot terminate connections without X bearer token")
		return
	}

	// Optimistic: the kill will drop our connection too.
	o.store.SetStreamConnected(false)
	o.store.PushInfo("terminating all filtered stream connections...")
	o.spawnTerminateAll()
}

// drainTargetEvents folds queued target-file changes into add or edit
// operations, at most once per file per iteration.
func (o *Orchestrator) drainTargetEvents() {
	if o.targetEvents == nil {
		return
	}

	seen := make(map[string]struct{})
	for {
		select {
		case event, ok := <-o.targetEvents:
			if !ok {
				o.targetEvents = nil
				return
			}
			if _, dup := seen[event.Path]; dup {
				continue
			}
			seen[event.Path] = struct{}{}
			o.applyTargetPath(event.Path)
		default:
			return
		}
	}
}

// ImportEntries applies a batch of loaded target files, typically the
// initial directory scan. Files describing an existing monitor are skipped:
// startup must not re-create rules that already exist. The unedited sample
// file is skipped too; it carries placeholder handles and must never spend a
// remote rule.
func (o *Orchestrator) ImportEntries(entries []targets.Entry) {
	for _, entry := range entries {
		if entry.Err != "" {
			o.store.PushError(fmt.Sprintf("target file %s: %s", entry.FileName, entry.Err))
			continue
		}
		if entry.Sample {
			continue
		}
		if _, ok := o.monitorByLabel(o.targetLabel(entry.Parsed)); ok {
			continue
		}
		o.applyTarget(entry.Parsed)
	}
}

func (o *Orchestrator) applyTargetPath(path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Removed files are ignored; deletion is an explicit command.
			return
		}
		o.store.PushError(fmt.Sprintf("target file %s: %v", path, err))
		return
	}
	if targets.IsSample(raw) {
		return
	}

	parsed, err := targets.ParseFile(raw)
	if err != nil {
		o.store.PushError(fmt.Sprintf("target file %s: %v", path, err))
		return
	}
	o.applyTarget(parsed)
}

// applyTarget turns a parsed target file into an add, or an edit when its
// label matches an existing monitor.
func (o *Orchestrator) applyTarget(t *targets.TargetMonitor) {
	label := o.targetLabel(t)

	if existing, ok := o.monitorByLabel(label); ok {
		o.beginEdit(existing, t)
		return
	}

	if o.rules == nil {
		o.store.PushError("cannot add monitor without X bearer token")
		return
	}

	draft, err := o.draftFromTarget(t)
	if err != nil {
		o.store.PushError(fmt.Sprintf("invalid monitor settings: %v", err))
		return
	}
	o.store.PushInfo(fmt.Sprintf("adding monitor '%s'...", draft.Label))
	o.spawnAdd(draft)
}

// beginEdit starts the two-phase edit for an existing monitor: disconnect
// its rule, then commit the edited draft.
func (o *Orchestrator) beginEdit(existing model.Monitor, t *targets.TargetMonitor) {
	if o.rules == nil {
		o.store.PushError("cannot edit target without X bearer token")
		return
	}

	draft, err := o.draftFromTarget(t)
	if err != nil {
		o.store.PushError(fmt.Sprintf("invalid monitor settings: %v", err))
		return
	}

	// The draft keeps the monitor's identity and its enabled state: same
	// ID, same correlation tag, same creation time, and a deactivated
	// monitor stays deactivated across an edit.
	draft.ID = existing.ID
	draft.RuleTag = existing.RuleTag
	draft.CreatedAt = existing.CreatedAt
	draft.Label = existing.Label
	draft.Enabled = existing.Enabled

	if unchanged(existing, draft) {
		return
	}

	o.pendingEdits[existing.ID] = draft
	o.store.SetMonitorActive(existing.ID, false)
	o.store.PushInfo(fmt.Sprintf("disconnecting target '%s' before edit...", existing.Label))
	o.spawnEditPrepare(existing)
}

// unchanged reports whether applying the draft would be a no-op, so watcher
// echoes of our own sample file or repeated fsnotify events do nothing.
func unchanged(existing, draft model.Monitor) bool {
	return existing.Kind == draft.Kind &&
		existing.InputValue == draft.InputValue &&
		existing.Query == draft.Query &&
		existing.Analysis == draft.Analysis
}

func (o *Orchestrator) targetLabel(t *targets.TargetMonitor) string {
	if t.Label != "" {
		return t.Label
	}
	return t.Target
}

func (o *Orchestrator) monitorByLabel(label string) (model.Monitor, bool) {
	for _, m := range o.store.Monitors() {
		if strings.EqualFold(m.Label, label) {
			return m, true
		}
	}
	return model.Monitor{}, false
}

// draftFromTarget builds a pending monitor from a parsed target file. The
// remote rule does not exist yet; RuleID stays empty until creation
// succeeds.
func (o *Orchestrator) draftFromTarget(t *targets.TargetMonitor) (model.Monitor, error) {
	query, err := model.BuildQuery(t.Kind, t.Target)
	if err != nil {
		return model.Monitor{}, err
	}

	analysis := t.Analysis
	if analysis.Enabled {
		if strings.TrimSpace(analysis.Provider) == "" {
			analysis.Provider = o.cfg.DefaultAIProvider
		}
		if strings.TrimSpace(analysis.Prompt) == "" {
			analysis.Prompt = ai.DefaultMonitorPrompt
		}
	}

	id := uuid.New()
	return model.Monitor{
		ID:         id,
		Label:      o.targetLabel(t),
		Kind:       t.Kind,
		Enabled:    true,
		InputValue: t.Target,
		Query:      query,
		RuleTag:    model.NewRuleTag(id),
		Analysis:   analysis,
	}, nil
}
