package models

// JobRequest is everything a caller supplies to start or resume a job.
type JobRequest struct {
	Owner      string          `json:"owner"`
	Token      string          `json:"-"`
	Repository string          `json:"repository"`
	Year       string          `json:"year"`
	Cells      []IntensityCell `json:"cells"`
	Messages   []string        `json:"messages,omitempty"`
	RateLimit  int             `json:"rate_limit"`
	BatchSize  int             `json:"batch_size"`
}

// Key returns the job key the request resolves to.
func (r *JobRequest) Key() JobKey {
	return JobKey{
		OwnerLogin:     r.Owner,
		RepositoryName: r.Repository,
		YearKey:        r.Year,
	}
}
