package models

import (
	"cmp"
	"fmt"
	"strings"
	"time"
)

// JobKey identifies a resumable job
type JobKey struct {
	OwnerLogin     string `json:"owner_login"`
	RepositoryName string `json:"repository_name"`
	YearKey        string `json:"year_key"`
}

// String returns owner/repository/year. GitHub names cannot contain '/',
// so distinct keys never share a string.
func (k JobKey) String() string {
	return k.OwnerLogin + "/" + k.RepositoryName + "/" + k.YearKey
}

// Compare orders keys by owner, repository, then year.
func (k JobKey) Compare(other JobKey) int {
	return cmp.Or(
		strings.Compare(k.OwnerLogin, other.OwnerLogin),
		strings.Compare(k.RepositoryName, other.RepositoryName),
		strings.Compare(k.YearKey, other.YearKey),
	)
}

// Job is the persisted checkpoint of a run
type Job struct {
	OwnerLogin     string    `json:"owner_login"`
	RepositoryName string    `json:"repository_name"`
	YearKey        string    `json:"year_key"`
	TotalUnits     int       `json:"total_units"`
	CompletedUnits int       `json:"completed_units"`
	TipSHA         string    `json:"tip_sha,omitempty"`
	LastError      string    `json:"last_error,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Key returns the job key of the checkpoint.
func (j *Job) Key() JobKey {
	return JobKey{
		OwnerLogin:     j.OwnerLogin,
		RepositoryName: j.RepositoryName,
		YearKey:        j.YearKey,
	}
}

// Validate reports whether completed and total units are consistent.
func (j *Job) Validate() error {
	if j.OwnerLogin == "" || j.RepositoryName == "" || j.YearKey == "" {
		return fmt.Errorf("job key is incomplete: %q", j.Key().String())
	}
	if j.TotalUnits < 0 || j.CompletedUnits < 0 || j.CompletedUnits > j.TotalUnits {
		return fmt.Errorf("invalid job counts: completed %d of %d", j.CompletedUnits, j.TotalUnits)
	}
	return nil
}
