package watch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/penwyp/go-x-monitor/internal/core/model"
	"github.com/penwyp/go-x-monitor/internal/stream"
)

// RuleAPI is the slice of the rule-management client the lifecycle tasks
// need. Satisfied by *stream.Client.
type RuleAPI interface {
	AddRule(ctx context.Context, query, tag string) (string, error)
	DeleteRule(ctx context.Context, id string) error
	TerminateAllConnections(ctx context.Context) (string, error)
}

// Every lifecycle operation runs as a detached goroutine that performs its
// remote calls and reports exactly one completion message. Tasks are not
// cancellable: each remote call carries its own fixed timeout, and a result
// arriving after shutdown is simply never consumed. No operation retries.

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// createMonitorRule creates the remote rule for a pending monitor and
// returns the completed record. Nothing exists locally until this succeeds.
func createMonitorRule(ctx context.Context, api RuleAPI, pending model.Monitor) (model.Monitor, error) {
	ruleID, err := api.AddRule(ctx, pending.Query, pending.RuleTag)
	if err != nil {
		return model.Monitor{}, fmt.Errorf("x rule creation failed: %w", err)
	}
	pending.RuleID = ruleID
	pending.CreatedAt = time.Now().UTC()
	return pending, nil
}

func activateMonitorRule(ctx context.Context, api RuleAPI, m model.Monitor) (string, error) {
	ruleID, err := api.AddRule(ctx, m.Query, m.RuleTag)
	if err != nil {
		return "", fmt.Errorf("x rule creation failed while activating target: %w", err)
	}
	return ruleID, nil
}

// deactivateMonitorRule deletes the remote rule. A rule that is already gone
// counts as success: the desired end state holds either way.
func deactivateMonitorRule(ctx context.Context, api RuleAPI, m model.Monitor) error {
	if strings.TrimSpace(m.RuleID) == "" {
		return nil
	}
	if err := api.DeleteRule(ctx, m.RuleID); err != nil && !stream.IsNotFound(err) {
		return fmt.Errorf("x rule deletion failed while deactivating target: %w", err)
	}
	return nil
}

func deleteMonitorRule(ctx context.Context, api RuleAPI, m model.Monitor) error {
	if strings.TrimSpace(m.RuleID) == "" {
		return nil
	}
	if err := api.DeleteRule(ctx, m.RuleID); err != nil && !stream.IsNotFound(err) {
		return fmt.Errorf("x rule deletion failed while deleting monitor: %w", err)
	}
	return nil
}

// reconnectMonitorRule replaces a possibly stale remote rule: delete first
// (tolerating an already-missing rule), then recreate with the same tag.
func reconnectMonitorRule(ctx context.Context, api RuleAPI, m model.Monitor) (string, error) {
	if strings.TrimSpace(m.RuleID) != "" {
		if err := api.DeleteRule(ctx, m.RuleID); err != nil && !stream.IsNotFound(err) {
			return "", fmt.Errorf("x rule deletion failed during reconnect: %w", err)
		}
	}

	ruleID, err := api.AddRule(ctx, m.Query, m.RuleTag)
	if err != nil {
		return "", fmt.Errorf("x rule creation failed during reconnect: %w", err)
	}
	return ruleID, nil
}

func disconnectForEdit(ctx context.Context, api RuleAPI, m model.Monitor) error {
	if strings.TrimSpace(m.RuleID) == "" {
		return nil
	}
	if err := api.DeleteRule(ctx, m.RuleID); err != nil && !stream.IsNotFound(err) {
		return fmt.Errorf("x rule deletion failed before edit: %w", err)
	}
	return nil
}

func restoreAfterEdit(ctx context.Context, api RuleAPI, m model.Monitor) (string, error) {
	ruleID, err := api.AddRule(ctx, m.Query, m.RuleTag)
	if err != nil {
		return "", fmt.Errorf("x rule creation failed while reconnecting after edit: %w", err)
	}
	return ruleID, nil
}

func (o *Orchestrator) spawnAdd(pending model.Monitor) {
	go func() {
		monitor, err := createMonitorRule(context.Background(), o.rules, pending)
		o.bus.Send(model.MonitorAddedMsg{Monitor: monitor, Err: errText(err)})
	}()
}

func (o *Orchestrator) spawnActivate(m model.Monitor) {
	go func() {
		ruleID, err := activateMonitorRule(context.Background(), o.rules, m)
		o.bus.Send(model.MonitorActivatedMsg{MonitorID: m.ID, Label: m.Label, RuleID: ruleID, Err: errText(err)})
	}()
}

func (o *Orchestrator) spawnDeactivate(m model.Monitor) {
	go func() {
		err := deactivateMonitorRule(context.Background(), o.rules, m)
		o.bus.Send(model.MonitorDeactivatedMsg{MonitorID: m.ID, Label: m.Label, Err: errText(err)})
	}()
}

func (o *Orchestrator) spawnDelete(m model.Monitor) {
	go func() {
		err := deleteMonitorRule(context.Background(), o.rules, m)
		o.bus.Send(model.MonitorDeletedMsg{MonitorID: m.ID, Label: m.Label, Err: errText(err)})
	}()
}

func (o *Orchestrator) spawnReconnect(m model.Monitor) {
	go func() {
		ruleID, err := reconnectMonitorRule(context.Background(), o.rules, m)
		o.bus.Send(model.MonitorReconnectedMsg{MonitorID: m.ID, Label: m.Label, RuleID: ruleID, Err: errText(err)})
	}()
}

func (o *Orchestrator) spawnEditPrepare(m model.Monitor) {
	go func() {
		err := disconnectForEdit(context.Background(), o.rules, m)
		o.bus.Send(model.EditPreparedMsg{MonitorID: m.ID, Monitor: m, Err: errText(err)})
	}()
}

// spawnEditCommit creates the edited rule. On failure it restores the
// original definition; the restore outcome is reported alongside the commit
// failure, and a failed restore leaves the monitor disconnected. A disabled
// draft commits locally only: no rule may exist remotely for it.
func (o *Orchestrator) spawnEditCommit(original, draft model.Monitor) {
	go func() {
		ctx := context.Background()

		if !draft.Enabled {
			draft.RuleID = ""
			draft.CreatedAt = original.CreatedAt
			o.bus.Send(model.MonitorEditedMsg{Monitor: draft})
			return
		}

		updated, err := createMonitorRule(ctx, o.rules, draft)
		if err == nil {
			updated.CreatedAt = original.CreatedAt
			o.bus.Send(model.MonitorEditedMsg{Monitor: updated})
			return
		}

		ruleID, restoreErr := restoreAfterEdit(ctx, o.rules, original)
		if restoreErr == nil {
			o.bus.Send(model.MonitorReconnectedMsg{MonitorID: original.ID, Label: original.Label, RuleID: ruleID})
			o.bus.Send(model.MonitorEditedMsg{Err: fmt.Sprintf("%v; original target was restored", err)})
			return
		}
		o.bus.Send(model.MonitorEditedMsg{Err: fmt.Sprintf("%v; restore failed: %v", err, restoreErr)})
	}()
}

func (o *Orchestrator) spawnEditCancelRestore(m model.Monitor) {
	go func() {
		ruleID, err := restoreAfterEdit(context.Background(), o.rules, m)
		o.bus.Send(model.MonitorReconnectedMsg{MonitorID: m.ID, Label: m.Label, RuleID: ruleID, Err: errText(err)})
	}()
}

func (o *Orchestrator) spawnTerminateAll() {
	go func() {
		summary, err := o.rules.TerminateAllConnections(context.Background())
		if err != nil {
			o.bus.Send(model.ErrorMsg{Text: fmt.Sprintf("failed to terminate stream connections: %v", err)})
			return
		}
		o.bus.Send(model.InfoMsg{Text: summary})
	}()
}
