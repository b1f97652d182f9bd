package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/sovereign/pkg/cli"
	"mercator-hq/sovereign/pkg/policy/catalog"
)

var policiesFormat string

var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "List data handling policies",
	Long: `List the handling policy of every classification level: storage and
processing modes, retention, encryption and the roles allowed to read.`,
	Args: cobra.NoArgs,
	RunE: listPolicies,
}

func init() {
	rootCmd.AddCommand(policiesCmd)
	policiesCmd.Flags().StringVar(&policiesFormat, "format", "text", "output format: text, json, csv")
}

func listPolicies(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(policiesFormat)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}
	return withSystem(func(ctx context.Context, sys *system) error {
		return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), policyTable(sys.engine.Policies()))
	})
}

type policyTable []catalog.DataPolicy

func (t policyTable) Header() []string {
	return []string{"id", "classification", "storage", "processing", "retention", "encrypted", "roles"}
}

func (t policyTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, p := range t {
		rows = append(rows, []string{
			p.ID,
			string(p.Classification),
			string(p.StorageMode),
			string(p.ProcessingMode),
			string(p.Retention),
			fmt.Sprint(p.EncryptionRequired),
			strings.Join(p.AllowedRoles, ","),
		})
	}
	return rows
}
