package testutils

import (
	"fmt"

	"github.com/yanchuk/tformance-sub010/internal/domain"
)

// PlainRecord returns a change record with no AI-assistance markers: a human
// commit, a human review, and ordinary file paths.
func PlainRecord(id string) domain.ChangeRecord {
	return domain.ChangeRecord{
		ID:          id,
		Title:       "Fix pagination offset in repository listing",
		Description: "The offset was computed from the page size before clamping.",
		Commits: []domain.Commit{
			{SHA: "a1b2c3d", Message: "Fix pagination offset in repository listing"},
		},
		Reviews: []domain.Review{
			{Author: "octocat", Body: "LGTM, nice catch."},
		},
		ChangedFiles: []string{"internal/repo/listing.go", "internal/repo/listing_test.go"},
	}
}

// AssistedRecord returns a change record whose commit trailer names an AI
// co-author, the strongest deterministic marker the detectors look for. The
// trailer lives in CoAuthors only, the way the ingestion layer normalizes
// records, so it trips the commit detector without also tripping the
// pattern detector on message prose.
func AssistedRecord(id string) domain.ChangeRecord {
	record := PlainRecord(id)
	record.Commits = []domain.Commit{
		{
			SHA:       "d4e5f6a",
			Message:   "Add retry handling to webhook dispatcher",
			CoAuthors: []string{"Claude <noreply@anthropic.com>"},
		},
	}
	return record
}

// PlainRecords returns n unmarked records with sequential IDs.
func PlainRecords(n int) []domain.ChangeRecord {
	records := make([]domain.ChangeRecord, 0, n)
	for i := range n {
		records = append(records, PlainRecord(fmt.Sprintf("rec-%03d", i+1)))
	}
	return records
}

// RecordIDs extracts the IDs from a record slice in order.
func RecordIDs(records []domain.ChangeRecord) []string {
	ids := make([]string, 0, len(records))
	for _, record := range records {
		ids = append(ids, record.ID)
	}
	return ids
}
