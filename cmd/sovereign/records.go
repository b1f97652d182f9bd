package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/sovereign/pkg/cli"
	"mercator-hq/sovereign/pkg/engine"
	"mercator-hq/sovereign/pkg/governance"
	"mercator-hq/sovereign/pkg/records"
)

var recordsFlags struct {
	tenant   string
	dataType string
	actor    string
	roles    []string
	file     string
	format   string
}

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Store, retrieve and purge governed records",
	Long: `Store, retrieve, delete and purge records.

Records only outlive the command with storage.backend set to sqlite. Data is
classified on store, encrypted when its policy requires it, and every call
is written to the audit trail.

Subcommands:
  put     - Classify and store data
  get     - Retrieve and decrypt a record
  delete  - Delete a record
  purge   - Remove records whose retention has lapsed

Examples:
  # Store a file for a tenant
  sovereign records put --tenant acme --file payroll.csv --actor alice

  # Retrieve it as an analyst
  sovereign records get <id> --tenant acme --actor alice --roles analyst

  # Run one retention purge
  sovereign records purge`,
}

var recordsPutCmd = &cobra.Command{
	Use:   "put [text]",
	Short: "Classify and store data",
	Args:  cobra.MaximumNArgs(1),
	RunE:  putRecord,
}

var recordsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Retrieve a record",
	Args:  cobra.ExactArgs(1),
	RunE:  getRecord,
}

var recordsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a record",
	Args:  cobra.ExactArgs(1),
	RunE:  deleteRecord,
}

var recordsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove expired records",
	Args:  cobra.NoArgs,
	RunE:  purgeRecords,
}

func init() {
	rootCmd.AddCommand(recordsCmd)
	recordsCmd.AddCommand(recordsPutCmd, recordsGetCmd, recordsDeleteCmd, recordsPurgeCmd)

	recordsCmd.PersistentFlags().StringVar(&recordsFlags.actor, "actor", "", "actor recorded in the audit trail")

	recordsPutCmd.Flags().StringVar(&recordsFlags.tenant, "tenant", "", "owning tenant ID (required)")
	recordsPutCmd.Flags().StringVar(&recordsFlags.dataType, "data-type", "", "declared data type")
	recordsPutCmd.Flags().StringVarP(&recordsFlags.file, "file", "f", "", "read data from file")
	recordsPutCmd.Flags().StringVar(&recordsFlags.format, "format", "text", "output format: text, json, csv")
	_ = recordsPutCmd.MarkFlagRequired("tenant")

	recordsGetCmd.Flags().StringVar(&recordsFlags.tenant, "tenant", "", "requesting tenant ID (required)")
	recordsGetCmd.Flags().StringSliceVar(&recordsFlags.roles, "roles", nil, "requesting roles, comma separated")
	_ = recordsGetCmd.MarkFlagRequired("tenant")
}

func putRecord(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(recordsFlags.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}
	data, err := readInput(cmd.InOrStdin(), args, recordsFlags.file)
	if err != nil {
		return cli.NewCommandError("records put", err)
	}

	return withSystem(func(ctx context.Context, sys *system) error {
		rec, err := sys.engine.Store(ctx, engine.StoreRequest{
			TenantID: recordsFlags.tenant,
			DataType: recordsFlags.dataType,
			Data:     []byte(data),
			Actor:    recordsFlags.actor,
		})
		if err != nil {
			return cli.NewCommandError("records put", err)
		}
		return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), recordOutput{rec})
	})
}

func getRecord(cmd *cobra.Command, args []string) error {
	return withSystem(func(ctx context.Context, sys *system) error {
		data, err := sys.engine.Retrieve(ctx, engine.RetrieveRequest{
			RecordID: args[0],
			TenantID: recordsFlags.tenant,
			Actor:    recordsFlags.actor,
			Roles:    recordsFlags.roles,
		})
		if err != nil {
			return cli.NewCommandError("records get", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	})
}

func deleteRecord(cmd *cobra.Command, args []string) error {
	return withSystem(func(ctx context.Context, sys *system) error {
		deleted, err := sys.engine.Delete(ctx, args[0], recordsFlags.actor)
		if err != nil {
			return cli.NewCommandError("records delete", err)
		}
		if !deleted {
			return cli.NewCommandError("records delete", fmt.Errorf("record %s: %w", args[0], governance.ErrNotFound))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %s\n", args[0])
		return nil
	})
}

func purgeRecords(cmd *cobra.Command, args []string) error {
	return withSystem(func(ctx context.Context, sys *system) error {
		purged, err := sys.engine.PurgeExpired(ctx)
		if err != nil {
			return cli.NewCommandError("records purge", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Purged %d expired records\n", purged)
		return nil
	})
}

// recordOutput renders a stored record without its payload.
type recordOutput struct {
	*records.DataRecord
}

func (o recordOutput) Header() []string {
	return []string{"field", "value"}
}

func (o recordOutput) Rows() [][]string {
	expires := "never"
	if o.ExpiresAt != nil {
		expires = o.ExpiresAt.Format(time.RFC3339)
	}
	return [][]string{
		{"id", o.ID},
		{"tenant", o.TenantID},
		{"classification", string(o.Classification)},
		{"category", string(o.Category)},
		{"encrypted", fmt.Sprint(o.Encrypted())},
		{"key_scope", o.Metadata.KeyScope},
		{"matched_rules", strings.Join(o.Metadata.MatchedRules, ",")},
		{"expires_at", expires},
	}
}
