package models

import "time"

// CommitUnit is one atomic remote write: a single commit dated on TargetDate.
type CommitUnit struct {
	TargetDate             time.Time `json:"target_date"`
	SequenceIndexWithinDay int       `json:"sequence_index_within_day"`
	Message                string    `json:"message"`
	// Position is the 1-based index of the unit in the whole job stream.
	Position int `json:"position"`
	Total    int `json:"total"`
}

// CommitAuthor identifies who authors and commits generated objects.
type CommitAuthor struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
