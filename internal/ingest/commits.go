package ingest

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/hourwatch/internal/timeline"
	"github.com/blackwell-systems/hourwatch/internal/timepoint"
)

// maxCommitLine bounds one commit record. Longer lines are skipped.
const maxCommitLine = 1024 * 1024

// commitFileExts are the extensions LoadCommitDir picks up.
var commitFileExts = map[string]bool{".txt": true, ".log": true, ".psv": true}

// CommitOptions configures commit loading.
type CommitOptions struct {
	// Cutoff drops commits before it. Zero keeps everything.
	Cutoff timepoint.TimePoint

	// IdentityMarker is matched case-insensitively against the author to
	// set IsEligible.
	IdentityMarker string

	// Location renders the unix timestamp field when the datetime field
	// does not parse. Nil means time.Local.
	Location *time.Location

	Normalizer *timepoint.Normalizer
	Logger     *slog.Logger
}

// CommitBatch is the result of loading one or more commit files.
type CommitBatch struct {
	Commits []timeline.Commit `json:"commits"`
	Notes   Notes             `json:"notes"`

	// Filtered counts commits dropped by the cutoff.
	Filtered int `json:"filtered"`
}

// RepoNameFromPath derives the repository name from a commit file name:
// the base name without extension and without a trailing "_commits".
func RepoNameFromPath(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.TrimSuffix(name, "_commits")
}

// LoadCommits reads pipe-delimited "datetime|timestamp|message|author|hash"
// records for one repository. A message may itself contain '|'.
func LoadCommits(r io.Reader, repo, source string, opts CommitOptions) (CommitBatch, error) {
	logger := loggerOrDefault(opts.Logger)
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	marker := strings.ToLower(strings.TrimSpace(opts.IdentityMarker))
	batch := CommitBatch{Notes: NewNotes()}

	br := bufio.NewReaderSize(r, 64*1024)
	line := 0
	for {
		raw, tooLong, err := readLine(br, maxCommitLine)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return batch, fmt.Errorf("reading %s: %w", source, err)
		}
		line++
		if tooLong {
			batch.Notes.Skip(logger, source, line, ReasonLineTooLong, raw[:min(len(raw), 80)])
			continue
		}
		text := strings.TrimRight(raw, "\r")
		if strings.TrimSpace(text) == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Split(text, "|")
		if len(fields) < 5 {
			batch.Notes.Skip(logger, source, line, ReasonShortRecord, text)
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(fields[0]), "datetime") {
			continue
		}

		last := len(fields) - 1
		ts, err := commitTime(fields[0], fields[1], opts.Normalizer, loc)
		if err != nil {
			batch.Notes.Skip(logger, source, line, ReasonBadTimestamp, fields[0])
			continue
		}
		if !opts.Cutoff.IsZero() && ts.Before(opts.Cutoff) {
			batch.Filtered++
			batch.Notes.Skip(logger, source, line, ReasonBeforeCutoff, string(ts))
			continue
		}

		author := strings.TrimSpace(fields[last-1])
		batch.Commits = append(batch.Commits, timeline.Commit{
			Timestamp:  ts,
			RepoName:   repo,
			Author:     author,
			Message:    strings.TrimSpace(strings.Join(fields[2:last-1], "|")),
			Hash:       strings.TrimSpace(fields[last]),
			IsEligible: marker != "" && strings.Contains(strings.ToLower(author), marker),
		})
	}
	return batch, nil
}

// readLine returns the next line without its newline. A line longer than
// limit bytes is consumed to its end and reported with tooLong set; only its
// first limit bytes are kept. io.EOF is returned only when no bytes remain.
func readLine(br *bufio.Reader, limit int) (string, bool, error) {
	var buf []byte
	total := 0
	for {
		chunk, err := br.ReadSlice('\n')
		total += len(chunk)
		if room := limit + 1 - len(buf); room > 0 {
			buf = append(buf, chunk[:min(len(chunk), room)]...)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return "", false, err
		}
		if err != nil && total == 0 {
			return "", false, io.EOF
		}
		content := total
		if err == nil {
			content-- // newline
		}
		return string(bytes.TrimSuffix(buf, []byte("\n"))), content > limit, nil
	}
}

// commitTime parses the datetime field and falls back to the unix
// timestamp field rendered in loc.
func commitTime(datetime, unix string, n *timepoint.Normalizer, loc *time.Location) (timepoint.TimePoint, error) {
	ts, err := n.Parse(datetime)
	if err == nil {
		return ts, nil
	}
	secs, convErr := strconv.ParseInt(strings.TrimSpace(unix), 10, 64)
	if convErr != nil || secs <= 0 {
		return "", err
	}
	return timepoint.FromTime(time.Unix(secs, 0).In(loc)), nil
}

// LoadCommitFile opens and loads a single commit file.
func LoadCommitFile(path string, opts CommitOptions) (CommitBatch, error) {
	f, err := os.Open(path)
	if err != nil {
		return CommitBatch{Notes: NewNotes()}, err
	}
	defer func() { _ = f.Close() }()
	return LoadCommits(f, RepoNameFromPath(path), path, opts)
}

// LoadCommitFiles loads the given files concurrently. Each worker fills its
// own slot; the merge is ordered by timestamp, repository and hash, so the
// result does not depend on scheduling. Use a Normalizer that is safe for
// concurrent use (timepoint.Normalizer is).
func LoadCommitFiles(ctx context.Context, paths []string, opts CommitOptions) (CommitBatch, error) {
	parts := make([]CommitBatch, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b, err := LoadCommitFile(path, opts)
			if err != nil {
				return fmt.Errorf("loading commits from %s: %w", path, err)
			}
			parts[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return CommitBatch{Notes: NewNotes()}, err
	}

	merged := CommitBatch{Notes: NewNotes()}
	for _, p := range parts {
		merged.Commits = append(merged.Commits, p.Commits...)
		merged.Notes.Merge(p.Notes)
		merged.Filtered += p.Filtered
	}
	timeline.SortCommits(merged.Commits)
	return merged, nil
}

// LoadCommitDir loads every commit file in dir, one file per repository.
// A missing directory yields an empty batch.
func LoadCommitDir(ctx context.Context, dir string, opts CommitOptions) (CommitBatch, error) {
	paths, err := CommitFiles(dir)
	if err != nil {
		return CommitBatch{Notes: NewNotes()}, err
	}
	return LoadCommitFiles(ctx, paths, opts)
}

// CommitFiles lists commit files in dir sorted by name.
func CommitFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !commitFileExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
