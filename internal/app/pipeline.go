package app

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/hourwatch/internal/config"
	"github.com/blackwell-systems/hourwatch/internal/pipeline"
)

// inputFlags override the configured input locations and target.
type inputFlags struct {
	events   string
	commits  string
	calendar string
	target   float64
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.events, "events", "", "System events CSV (overrides inputs.events)")
	cmd.Flags().StringVar(&f.commits, "commits", "", "Directory of commit logs (overrides inputs.commits_dir)")
	cmd.Flags().StringVar(&f.calendar, "calendar", "", "Calendar commitments, .json or .yaml (overrides inputs.calendar)")
	cmd.Flags().Float64Var(&f.target, "target", 0, "Target hours (overrides target_hours)")
}

func (f *inputFlags) apply(cfg *config.Config) {
	if f.events != "" {
		cfg.Inputs.Events = f.events
	}
	if f.commits != "" {
		cfg.Inputs.CommitsDir = f.commits
	}
	if f.calendar != "" {
		cfg.Inputs.Calendar = f.calendar
	}
	if f.target > 0 {
		cfg.TargetHours = f.target
	}
}

// reconstruct loads the config, applies flag overrides and runs the
// pipeline on the configured inputs.
func reconstruct(cmd *cobra.Command, flags *inputFlags) (*config.Config, *pipeline.Result, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	flags.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	ctx := cmd.Context()
	in, err := pipeline.Load(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	res, err := pipeline.Run(ctx, cfg, in, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("running pipeline: %w", err)
	}
	return cfg, res, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
