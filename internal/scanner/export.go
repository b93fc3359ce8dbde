package scanner

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
)

// logFormat produces "datetime|timestamp|message|author|hash" lines.
const logFormat = "--pretty=format:%cd|%ct|%s|%an|%H"

// ExportOptions configures ExportCommits.
type ExportOptions struct {
	// Since is passed to git log --since when set (e.g. "2025-01-01").
	Since string

	// Timezone renders commit datetimes. Empty or "Local" uses the process
	// zone, like config.Config.Location.
	Timezone string

	Logger *slog.Logger
}

// FileName is the commit log name written for a repository.
func FileName(r Repo) string {
	return r.Name + "_commits.txt"
}

// ExportCommits writes one commit log per repository into dir. A failing
// repository is recorded in its Export and does not stop the others. The
// result is in repos order.
func ExportCommits(ctx context.Context, repos []Repo, dir string, opts ExportOptions) ([]Export, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return nil, fmt.Errorf("git not found: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	results := make([]Export, len(repos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, repo := range repos {
		g.Go(func() error {
			file := filepath.Join(dir, FileName(repo))
			results[i] = Export{Repo: repo, File: file}

			lines, err := gitLog(gctx, repo.Path, opts)
			if err == nil {
				err = os.WriteFile(file, lines, 0o644)
			}
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Warn("exporting commits failed", "repo", repo.Name, "error", err)
				results[i].Error = err.Error()
				return nil
			}
			results[i].Commits = countLines(lines)
			logger.Debug("exported commits", "repo", repo.Name, "commits", results[i].Commits)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func gitLog(ctx context.Context, repoPath string, opts ExportOptions) ([]byte, error) {
	args := []string{"log", "--all", "--date=format-local:%Y-%m-%d %H:%M:%S", logFormat}
	if opts.Since != "" {
		args = append(args, "--since="+opts.Since)
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = repoPath
	cmd.Env = gitEnv(os.Environ(), opts.Timezone)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("git log: %s", msg)
		}
		return nil, fmt.Errorf("git log: %w", err)
	}
	if len(out) > 0 && out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	return out, nil
}

// gitEnv returns the environment for git with TZ set to timezone. "Local"
// is a Go name unknown to libc, so it leaves the inherited TZ alone.
func gitEnv(environ []string, timezone string) []string {
	switch timezone {
	case "", "Local":
		return environ
	default:
		return append(environ, "TZ="+timezone)
	}
}

func countLines(b []byte) int {
	return bytes.Count(b, []byte{'\n'})
}
