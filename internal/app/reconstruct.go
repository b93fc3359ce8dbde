package app

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/hourwatch/internal/output"
	"github.com/blackwell-systems/hourwatch/internal/pipeline"
	"github.com/blackwell-systems/hourwatch/internal/timeline"
)

var (
	reconstructInputs inputFlags
	reconstructOut    string
)

var reconstructCmd = &cobra.Command{
	Use:   "reconstruct",
	Short: "Run the pipeline and write the output artifacts",
	Long: `Detect sessions from the system event log, assign commits, generate
synthetic sessions for uncovered commit days, categorize, resolve calendar
conflicts and compute totals. The result is written as JSON files to the
output directory; identical inputs produce identical files.

Examples:
  hourwatch reconstruct
  hourwatch reconstruct --events events.csv --commits ./commits --out ./out
  hourwatch reconstruct --calendar calendar.yaml --target 510 --json`,
	RunE: runReconstruct,
}

func init() {
	reconstructInputs.register(reconstructCmd)
	reconstructCmd.Flags().StringVar(&reconstructOut, "out", "", "Output directory (overrides inputs.output_dir)")
	rootCmd.AddCommand(reconstructCmd)
}

// reconstructOutput is the JSON form of the reconstruct summary.
type reconstructOutput struct {
	Artifacts []string        `json:"artifacts"`
	Totals    timeline.Totals `json:"totals"`
	Notes     pipeline.Notes  `json:"processing_notes"`
}

func runReconstruct(cmd *cobra.Command, args []string) error {
	cfg, res, err := reconstruct(cmd, &reconstructInputs)
	if err != nil {
		return err
	}

	dir := cfg.Inputs.OutputDir
	if reconstructOut != "" {
		dir = reconstructOut
	}
	paths, err := pipeline.WriteArtifacts(dir, res)
	if err != nil {
		return fmt.Errorf("writing artifacts: %w", err)
	}

	out := cmd.OutOrStdout()
	if flagJSON {
		return writeJSON(out, reconstructOutput{Artifacts: paths, Totals: res.Totals, Notes: res.Notes})
	}

	renderSummary(out, res)
	fmt.Fprintln(out)
	for _, p := range paths {
		fmt.Fprintf(out, " %s %s\n", output.StyleMuted.Render("wrote"), p)
	}
	return nil
}

// renderSummary prints the headline numbers of a run.
func renderSummary(w io.Writer, res *pipeline.Result) {
	t := res.Totals
	n := res.Notes

	fmt.Fprintln(w, output.Section("Reconstruction"))
	fmt.Fprintln(w)
	fmt.Fprintln(w, output.KeyValue("Sessions", fmt.Sprintf("%d", t.TotalSessions)))
	fmt.Fprintln(w, output.KeyValue("  synthetic", fmt.Sprintf("%d", n.SyntheticSessions)))
	fmt.Fprintln(w, output.KeyValue("Work hours", output.Hours(t.TotalHours)))
	fmt.Fprintln(w, output.KeyValue("Eligible hours", output.Hours(t.EligibleHours)))
	fmt.Fprintln(w, output.KeyValue("Gap to target", output.Hours(t.Gap)))
	fmt.Fprintln(w, " "+output.ProgressBar(t.EligibleHours, t.TargetHours, 30))
	fmt.Fprintln(w)
	fmt.Fprintln(w, output.KeyValue("Unassigned commits", fmt.Sprintf("%d", n.UnassignedCommits)))
	fmt.Fprintln(w, output.KeyValue("Conflicts adjusted", fmt.Sprintf("%d", n.ConflictsAdjusted)))
	review := fmt.Sprintf("%d", n.ConflictsForReview)
	if n.ConflictsForReview > 0 {
		review = output.StyleWarning.Render(review)
	}
	fmt.Fprintln(w, output.KeyValue("Needs manual review", review))
	skipped := fmt.Sprintf("%d", n.SkippedRecords)
	if n.SkippedRecords > 0 {
		skipped = output.StyleWarning.Render(skipped)
	}
	fmt.Fprintln(w, output.KeyValue("Skipped records", skipped))
}
