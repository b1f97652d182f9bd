package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/sovereign/pkg/cli"
	"mercator-hq/sovereign/pkg/compliance"
	"mercator-hq/sovereign/pkg/governance"
)

var checkFlags struct {
	operation  string
	source     string
	target     string
	dataTypes  []string
	sector     string
	tenant     string
	actor      string
	format     string
	failOnDeny bool
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check data residency and cross-border compliance",
	Long: `Evaluate an operation against the geographic restrictions, residency
policies and sector modes, and print the result with every violation and
condition.

The result is allowed, conditional, pending-approval or denied. With
--fail-on-deny a denied result exits with status 4.

Examples:
  # Transfer of personal data from the EU to the US
  sovereign check --operation transfer --source DE --target US --data-types personal

  # Government-sector transfer out of India
  sovereign check --operation transfer --source IN --target US --sector government

  # Gate a pipeline step
  sovereign check --operation store --source RU --fail-on-deny`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkFlags.operation, "operation", "", "operation, e.g. store, process, transfer (required)")
	checkCmd.Flags().StringVar(&checkFlags.source, "source", "", "source country code (required)")
	checkCmd.Flags().StringVar(&checkFlags.target, "target", "", "target country code")
	checkCmd.Flags().StringSliceVar(&checkFlags.dataTypes, "data-types", nil, "data types, comma separated")
	checkCmd.Flags().StringVar(&checkFlags.sector, "sector", "", "sector mode: civilian, government, military, security, critical-infrastructure")
	checkCmd.Flags().StringVar(&checkFlags.tenant, "tenant", "", "tenant ID")
	checkCmd.Flags().StringVar(&checkFlags.actor, "actor", "", "actor recorded in the audit trail")
	checkCmd.Flags().StringVar(&checkFlags.format, "format", "text", "output format: text, json, csv")
	checkCmd.Flags().BoolVar(&checkFlags.failOnDeny, "fail-on-deny", false, "exit with status 4 when the result is denied")

	_ = checkCmd.MarkFlagRequired("operation")
	_ = checkCmd.MarkFlagRequired("source")
}

func runCheck(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(checkFlags.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	req := compliance.Request{
		TenantID:      checkFlags.tenant,
		Operation:     checkFlags.operation,
		SourceCountry: checkFlags.source,
		TargetCountry: checkFlags.target,
		DataTypes:     checkFlags.dataTypes,
		Actor:         checkFlags.actor,
	}
	if checkFlags.sector != "" {
		mode, err := governance.ParseSectorMode(checkFlags.sector)
		if err != nil {
			return err
		}
		req.SectorMode = mode
	}

	return withSystem(func(ctx context.Context, sys *system) error {
		check, err := sys.engine.CheckCompliance(ctx, req)
		if err != nil {
			return cli.NewCommandError("check", err)
		}
		if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), checkOutput{check}); err != nil {
			return err
		}
		if checkFlags.failOnDeny && check.Result == governance.ResultDenied {
			return fmt.Errorf("%w: %s", governance.ErrAccessDenied, violationCodes(check))
		}
		return nil
	})
}

func violationCodes(check *compliance.Check) string {
	codes := make([]string, 0, len(check.Violations))
	for _, v := range check.Violations {
		codes = append(codes, v.Code)
	}
	return strings.Join(codes, ",")
}

// checkOutput renders a compliance check as one row per finding.
type checkOutput struct {
	*compliance.Check
}

func (o checkOutput) Header() []string {
	return []string{"kind", "code", "severity", "detail"}
}

func (o checkOutput) Rows() [][]string {
	rows := [][]string{{"result", "", "", string(o.Result)}}
	for _, v := range o.Violations {
		rows = append(rows, []string{"violation", v.Code, string(v.Severity), v.Message})
	}
	for _, c := range o.Conditions {
		rows = append(rows, []string{"condition", "", "", c})
	}
	return rows
}
