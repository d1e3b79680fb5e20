package featurescmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zenGate-Global/freightdesk/platform/go/features"
)

// Command groups plan and feature matrix helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "features",
		Short: "Inspect the subscription tier feature matrix",
	}

	cmd.AddCommand(matrixCommand())
	cmd.AddCommand(checkCommand())
	return cmd
}

func matrixCommand() *cobra.Command {
	var output string

	c := &cobra.Command{
		Use:   "matrix",
		Short: "Print which tier enables each feature",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch output {
			case "table":
				return writeMatrixTable(cmd.OutOrStdout())
			case "yaml":
				return yaml.NewEncoder(cmd.OutOrStdout()).Encode(matrixDocument())
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(matrixDocument())
			default:
				return fmt.Errorf("unsupported output %q (use table, yaml or json)", output)
			}
		},
	}

	c.Flags().StringVarP(&output, "output", "o", "table", "output format (table|yaml|json)")
	return c
}

func checkCommand() *cobra.Command {
	var (
		tier  string
		names []string
	)

	c := &cobra.Command{
		Use:     "check",
		Short:   "Run the feature gate for a tier",
		Example: "  freightdesk features check --tier starter --feature live_tracking --feature invoicing",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, ok := features.ParseTier(tier)
			if !ok {
				return fmt.Errorf("unknown tier %q", tier)
			}
			fs := make([]features.Feature, 0, len(names))
			for _, n := range names {
				f := features.Feature(n)
				if !features.IsKnown(f) {
					return fmt.Errorf("unknown feature %q", n)
				}
				fs = append(fs, f)
			}

			decision := features.Gate(features.For(parsed), fs...)
			out := cmd.OutOrStdout()
			if decision.Allowed {
				fmt.Fprintf(out, "allowed: %s enables all requested features\n", parsed)
				return nil
			}
			fmt.Fprintf(out, "denied: %s\n", decision.Upgrade.Message)
			for _, f := range decision.Upgrade.Missing {
				fmt.Fprintf(out, "  missing %s (from %s)\n", f, features.MinimumTierForFeature(f))
			}
			return nil
		},
	}

	c.Flags().StringVar(&tier, "tier", string(features.DefaultTier), "tier to evaluate")
	c.Flags().StringSliceVar(&names, "feature", nil, "feature to check (repeatable)")
	_ = c.MarkFlagRequired("feature")

	return c
}

type matrixRow struct {
	Feature  features.Feature  `json:"feature" yaml:"feature"`
	Name     string            `json:"name" yaml:"name"`
	Category features.Category `json:"category" yaml:"category"`
	MinTier  features.Tier     `json:"minTier" yaml:"minTier"`
}

func matrixDocument() []matrixRow {
	all := features.AllFeatures()
	rows := make([]matrixRow, 0, len(all))
	for _, f := range all {
		info, _ := features.FeatureInfoFor(f)
		rows = append(rows, matrixRow{
			Feature:  f,
			Name:     info.Name,
			Category: info.Category,
			MinTier:  features.MinimumTierForFeature(f),
		})
	}
	return rows
}

func writeMatrixTable(out io.Writer) error {
	tiers := features.Tiers()

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprint(tw, "FEATURE")
	for _, t := range tiers {
		fmt.Fprintf(tw, "\t%s", t)
	}
	fmt.Fprintln(tw)

	for _, f := range features.AllFeatures() {
		fmt.Fprint(tw, f)
		for _, t := range tiers {
			mark := "-"
			if features.HasFeature(t, f) {
				mark = "x"
			}
			fmt.Fprintf(tw, "\t%s", mark)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
