// Package domain contains pure, dependency-free domain models and types
// for the AI-assistance detection pipeline.
package domain

// Commit is a single commit belonging to a change record.
// Co-author trailers are carried both parsed (CoAuthors) and inline in the
// message body, since upstream normalization is not guaranteed to strip them.
type Commit struct {
	// SHA identifies the commit. It may be empty for synthetic records.
	SHA string `json:"sha,omitempty"`

	// Message is the full commit message, including any trailer lines.
	Message string `json:"message"`

	// CoAuthors holds parsed Co-Authored-By trailer values in
	// "Name <email>" form.
	CoAuthors []string `json:"co_authors,omitempty"`
}

// Review is one review entry on a change record.
type Review struct {
	// Author is the reviewer's account login.
	Author string `json:"author"`

	// Body is the review comment text.
	Body string `json:"body,omitempty"`
}

// ChangeRecord is the unit of analysis: one pull request together with its
// commits, reviews, and changed-file list. Records arrive already normalized
// from the ingestion layer and are treated as immutable once detectors run.
type ChangeRecord struct {
	// ID uniquely identifies this change record.
	ID string `json:"id"`

	// Title is the pull request title.
	Title string `json:"title"`

	// Description is the pull request body text.
	Description string `json:"description,omitempty"`

	// Commits lists the record's commits in order.
	Commits []Commit `json:"commits,omitempty"`

	// Reviews lists the record's review entries in order.
	Reviews []Review `json:"reviews,omitempty"`

	// ChangedFiles lists the paths touched by this change.
	ChangedFiles []string `json:"changed_files,omitempty"`

	// Languages maps repository languages to byte counts, as reported by
	// the repository metadata collaborator.
	Languages map[string]int64 `json:"languages,omitempty"`
}

// HasText reports whether the record carries any prose for text-based
// detectors to scan.
func (r ChangeRecord) HasText() bool {
	if r.Title != "" || r.Description != "" {
		return true
	}
	for _, c := range r.Commits {
		if c.Message != "" {
			return true
		}
	}
	return false
}
