package scanner

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DiscoverRepos looks one level below each path for directories that
// contain a .git entry. A path that is itself a repository is included as
// well. Missing paths are skipped.
func DiscoverRepos(paths []string) ([]Repo, error) {
	var repos []Repo
	seen := make(map[string]bool)

	add := func(dir, name string) {
		abs, err := filepath.Abs(dir)
		if err != nil {
			abs = dir
		}
		if seen[abs] {
			return
		}
		seen[abs] = true
		repos = append(repos, Repo{Path: abs, Name: name})
	}

	for _, root := range paths {
		if isRepo(root) {
			add(root, filepath.Base(filepath.Clean(root)))
			continue
		}

		entries, err := os.ReadDir(root)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}

		for _, entry := range entries {
			if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			dir := filepath.Join(root, entry.Name())
			if isRepo(dir) {
				add(dir, entry.Name())
			}
		}
	}

	sort.Slice(repos, func(i, j int) bool {
		return strings.ToLower(repos[i].Name) < strings.ToLower(repos[j].Name)
	})
	return repos, nil
}

// isRepo reports whether dir has a .git directory or a .git file (worktrees
// and submodules use a file).
func isRepo(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}
