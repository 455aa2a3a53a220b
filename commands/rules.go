package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/penwyp/go-x-monitor/internal/config"
	"github.com/penwyp/go-x-monitor/internal/stream"
)

var (
	purgeTagPrefix string

	rulesCmd = &cobra.Command{
		Use:   "rules",
		Short: "Inspect and clean up remote stream rules",
	}

	rulesListCmd = &cobra.Command{
		Use:   "list",
		Short: "List all remote stream rules",
		RunE:  runRulesList,
	}

	rulesPurgeCmd = &cobra.Command{
		Use:   "purge",
		Short: "Delete remote rules by tag prefix",
		Long: `Deletes every remote stream rule whose tag starts with the given prefix.

The default prefix matches the tags this tool generates, so a plain purge
removes leftover rules from crashed or stale sessions without touching rules
created by other clients.`,
		RunE: runRulesPurge,
	}

	rulesTerminateCmd = &cobra.Command{
		Use:   "terminate",
		Short: "Terminate every active stream connection for this credential",
		RunE:  runRulesTerminate,
	}
)

func init() {
	rulesPurgeCmd.Flags().StringVar(&purgeTagPrefix, "tag-prefix", "xmon:",
		"Only delete rules whose tag starts with this prefix")

	rulesCmd.AddCommand(rulesListCmd, rulesPurgeCmd, rulesTerminateCmd)
	rootCmd.AddCommand(rulesCmd)
}

// newRuleClient loads the config and builds an authenticated client.
func newRuleClient() (*stream.Client, error) {
	initLogging()

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.BearerToken) == "" {
		return nil, errors.New("X bearer token is missing; set X_BEARER_TOKEN or x_bearer_token in the config")
	}
	return stream.NewClient(cfg.BearerToken), nil
}

func runRulesList(cmd *cobra.Command, args []string) error {
	client, err := newRuleClient()
	if err != nil {
		return err
	}

	rules, err := client.ListRules(context.Background())
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		fmt.Println("no remote stream rules")
		return nil
	}

	fmt.Printf("%-22s %s\n", "ID", "TAG")
	for _, rule := range rules {
		fmt.Printf("%-22s %s\n", rule.ID, rule.Tag)
	}
	return nil
}

func runRulesPurge(cmd *cobra.Command, args []string) error {
	client, err := newRuleClient()
	if err != nil {
		return err
	}

	deleted, err := client.DeleteRulesByTagPrefix(context.Background(), purgeTagPrefix)
	if err != nil {
		return err
	}
	fmt.Printf("deleted %d rule(s) with tag prefix %q\n", deleted, purgeTagPrefix)
	return nil
}

func runRulesTerminate(cmd *cobra.Command, args []string) error {
	client, err := newRuleClient()
	if err != nil {
		return err
	}

	summary, err := client.TerminateAllConnections(context.Background())
	if err != nil {
		return err
	}
	fmt.Println(summary)
	return nil
}
