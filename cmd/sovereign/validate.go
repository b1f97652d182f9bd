package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/sovereign/pkg/classifier"
	"mercator-hq/sovereign/pkg/cli"
	"mercator-hq/sovereign/pkg/compliance"
	"mercator-hq/sovereign/pkg/config"
)

var validateFlags struct {
	rulesFile  string
	tablesFile string
	format     string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration, rules and compliance tables",
	Long: `Validate the configuration file and the classification rules and
compliance tables it references, without starting the engine.

--rules and --tables check files other than the configured ones.

Examples:
  # Validate the configured files
  sovereign validate --config /etc/sovereign/config.yaml

  # Check a rules file before rolling it out
  sovereign validate --rules rules.yaml

  # Machine readable report
  sovereign validate --format json`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.rulesFile, "rules", "", "classification rules file (default from config)")
	validateCmd.Flags().StringVar(&validateFlags.tablesFile, "tables", "", "compliance tables file (default from config)")
	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json, csv")
}

// validationReport is one line per checked artifact.
type validationReport struct {
	Items []validationItem `json:"items"`
	Valid bool             `json:"valid"`
}

type validationItem struct {
	Artifact string `json:"artifact"`
	Path     string `json:"path,omitempty"`
	Valid    bool   `json:"valid"`
	Detail   string `json:"detail"`
}

func (r *validationReport) add(artifact, path, detail string, err error) {
	item := validationItem{Artifact: artifact, Path: path, Valid: err == nil, Detail: detail}
	if err != nil {
		item.Detail = err.Error()
		r.Valid = false
	}
	r.Items = append(r.Items, item)
}

func (r *validationReport) Header() []string {
	return []string{"artifact", "path", "status", "detail"}
}

func (r *validationReport) Rows() [][]string {
	rows := make([][]string, 0, len(r.Items))
	for _, it := range r.Items {
		status := "✓"
		if !it.Valid {
			status = "✗"
		}
		rows = append(rows, []string{it.Artifact, it.Path, status, it.Detail})
	}
	return rows
}

func runValidate(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(validateFlags.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	report := validateAll(cfgFile, validateFlags.rulesFile, validateFlags.tablesFile)
	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), report); err != nil {
		return err
	}
	if !report.Valid {
		return cli.NewConfigError("", "validation failed")
	}
	return nil
}

// validateAll checks the config at cfgPath and the rules and tables files.
// Empty file arguments fall back to the configured paths.
func validateAll(cfgPath, rulesFile, tablesFile string) *validationReport {
	report := &validationReport{Valid: true}

	cfg, err := config.LoadConfigWithEnvOverrides(cfgPath)
	report.add("config", cfgPath, "configuration valid", err)
	if err == nil {
		if rulesFile == "" {
			rulesFile = cfg.Classifier.RulesFile
		}
		if tablesFile == "" {
			tablesFile = cfg.Compliance.TablesFile
		}
	}

	if rulesFile != "" {
		cfg := config.Default()
		cfg.Classifier.RulesFile = rulesFile
		cls, err := newClassifier(cfg, nil)
		if err == nil {
			err = validateRulesFile(rulesFile)
		}
		detail := ""
		if err == nil {
			detail = fmt.Sprintf("%d rules", len(cls.Rules()))
		}
		report.add("classification rules", rulesFile, detail, err)
	}

	if tablesFile != "" {
		tables, err := loadComplianceTables(config.ComplianceConfig{TablesFile: tablesFile})
		detail := ""
		if err == nil {
			detail = tableSummary(tables)
		}
		report.add("compliance tables", tablesFile, detail, err)
	}

	return report
}

// validateRulesFile rejects malformed patterns that loading would only
// log and skip.
func validateRulesFile(path string) error {
	rules, err := classifier.LoadRulesFile(path)
	if err != nil {
		return err
	}
	var errs []error
	for _, r := range rules {
		if err := classifier.ValidateRule(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func tableSummary(t compliance.Tables) string {
	return fmt.Sprintf("%d geo restrictions, %d residency policies, %d sector modes",
		len(t.GeoRestrictions), len(t.ResidencyPolicies), len(t.SectorModes))
}
