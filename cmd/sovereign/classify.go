package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/sovereign/pkg/classifier"
	"mercator-hq/sovereign/pkg/cli"
	"mercator-hq/sovereign/pkg/governance"
)

var classifyFlags struct {
	file     string
	category string
	dataType string
	actor    string
	format   string
}

var classifyCmd = &cobra.Command{
	Use:   "classify [text]",
	Short: "Classify text",
	Long: `Classify text with the configured rules and print the level, category,
confidence, matched rules and handling recommendations.

Input is read from the argument, from --file, or from stdin when neither is
given. Every classification is written to the audit trail.

Examples:
  # Classify an argument
  sovereign classify "SSN 123-45-6789"

  # Classify a file as JSON
  sovereign classify --file report.txt --format json

  # Classify stdin with a fallback category
  cat notes.txt | sovereign classify --category technical`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().StringVarP(&classifyFlags.file, "file", "f", "", "read input from file")
	classifyCmd.Flags().StringVar(&classifyFlags.category, "category", "", "category reported when no rule matches")
	classifyCmd.Flags().StringVar(&classifyFlags.dataType, "data-type", "", "declared data type")
	classifyCmd.Flags().StringVar(&classifyFlags.actor, "actor", "", "actor recorded in the audit trail")
	classifyCmd.Flags().StringVar(&classifyFlags.format, "format", "text", "output format: text, json, csv")
}

func runClassify(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(classifyFlags.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	hints := classifier.Hints{DataType: classifyFlags.dataType}
	if classifyFlags.category != "" {
		c, err := governance.ParseCategory(classifyFlags.category)
		if err != nil {
			return err
		}
		hints.Category = c
	}

	text, err := readInput(cmd.InOrStdin(), args, classifyFlags.file)
	if err != nil {
		return cli.NewCommandError("classify", err)
	}

	return withSystem(func(ctx context.Context, sys *system) error {
		result, err := sys.engine.Classify(ctx, text, hints, classifyFlags.actor)
		if err != nil {
			return cli.NewCommandError("classify", err)
		}
		return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), classifyOutput{result})
	})
}

// readInput returns the single argument, the named file, or all of stdin.
func readInput(stdin io.Reader, args []string, file string) (string, error) {
	switch {
	case len(args) > 0 && file != "":
		return "", fmt.Errorf("pass either text or --file, not both")
	case len(args) > 0:
		return args[0], nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", file, err)
		}
		return string(data), nil
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
}

// classifyOutput renders a classification result as field/value rows.
type classifyOutput struct {
	*classifier.Result
}

func (o classifyOutput) Header() []string {
	return []string{"field", "value"}
}

func (o classifyOutput) Rows() [][]string {
	return [][]string{
		{"classification", string(o.Classification)},
		{"category", string(o.Category)},
		{"confidence", strconv.FormatFloat(o.Confidence, 'f', 2, 64)},
		{"matched_rules", strings.Join(o.MatchedRules, ",")},
		{"matched_keywords", strings.Join(o.MatchedKeywords, ",")},
		{"recommendations", strings.Join(o.Recommendations, "; ")},
	}
}
