package app

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/hourwatch/internal/config"
	"github.com/blackwell-systems/hourwatch/internal/output"
	"github.com/blackwell-systems/hourwatch/internal/scanner"
)

var (
	exportOut   string
	exportSince string
)

var exportCmd = &cobra.Command{
	Use:   "export [path...]",
	Short: "Write commit logs for local git repositories",
	Long: `Discover git repositories under the given paths (or scan_paths from the
config) and write one <repo>_commits.txt per repository into the commits
directory, in the format the reconstruction reads.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output directory (default: inputs.commits_dir)")
	exportCmd.Flags().StringVar(&exportSince, "since", "", "Only commits after this date (default: cutoff_date)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	paths := args
	if len(paths) == 0 {
		paths = cfg.ScanPaths
	}
	if len(paths) == 0 {
		return fmt.Errorf("no paths given and scan_paths is empty")
	}

	repos, err := scanner.DiscoverRepos(paths)
	if err != nil {
		return fmt.Errorf("discovering repositories: %w", err)
	}

	dir := exportOut
	if dir == "" {
		dir = cfg.Inputs.CommitsDir
	}
	since := exportSince
	if since == "" {
		since = cfg.CutoffDate
	}

	exports, err := scanner.ExportCommits(cmd.Context(), repos, dir, scanner.ExportOptions{
		Since:    since,
		Timezone: cfg.Timezone,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), exports)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, output.Section(fmt.Sprintf("Exported %d repositories", len(exports))))
	tbl := output.NewTable("Repo", "Commits", "File")
	for _, e := range exports {
		if e.Error != "" {
			tbl.AddRow(e.Repo.Name, output.StyleError.Render("failed"), output.StyleMuted.Render(e.Error))
			continue
		}
		tbl.AddRow(e.Repo.Name, strconv.Itoa(e.Commits), e.File)
	}
	tbl.Fprint(out)
	return nil
}
