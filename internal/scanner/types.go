// Package scanner finds git repositories and exports their history in the
// pipe-delimited commit log format the ingest package reads.
package scanner

// Repo is a discovered git repository.
type Repo struct {
	// Path is the absolute filesystem path to the repository root.
	Path string `json:"path"`

	// Name is the directory name. It becomes the repository name of the
	// exported commits.
	Name string `json:"name"`
}

// Export describes one written commit log.
type Export struct {
	Repo    Repo   `json:"repo"`
	File    string `json:"file"`
	Commits int    `json:"commits"`
	Error   string `json:"error,omitempty"`
}
