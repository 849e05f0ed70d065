package api

import (
	"time"

	"github.com/Kamar-Folarin/commit-painter/internal/models"
	"github.com/Kamar-Folarin/commit-painter/pkg/utils"
)

// JobRequest starts or resumes a painting job
// @Description An intensity map to paint onto a repository
// @swagger:model JobRequest
type JobRequest struct {
	// Login of the repository owner
	// @example octocat
	Owner string `json:"owner" binding:"required" example:"octocat"`
	// Repository to paint, created when missing
	// @example contributions
	Repository string `json:"repository" binding:"required" example:"contributions"`
	// Year the map belongs to
	// @example 2024
	Year string `json:"year" binding:"required" example:"2024"`
	// Painted days; levels run from 0 to 4
	Cells []utils.CellSpec `json:"cells" binding:"required"`
	// Commit messages to choose from; blank entries are dropped
	Messages []string `json:"messages,omitempty"`
	// Commits per minute, clamped to 1..1000
	// @example 100
	RateLimit int `json:"rate_limit,omitempty" example:"100"`
	// Commits per batch, clamped to 1..100
	// @example 10
	BatchSize int `json:"batch_size,omitempty" example:"10"`
}

// toModel converts the request into a scheduler request. token may be empty.
func (r *JobRequest) toModel(token string) (*models.JobRequest, error) {
	year, err := utils.ParseYear(r.Year)
	if err != nil {
		return nil, err
	}
	cells, err := utils.BuildCells(r.Cells, year)
	if err != nil {
		return nil, err
	}
	return &models.JobRequest{
		Owner:      r.Owner,
		Token:      token,
		Repository: r.Repository,
		Year:       r.Year,
		Cells:      cells,
		Messages:   r.Messages,
		RateLimit:  r.RateLimit,
		BatchSize:  r.BatchSize,
	}, nil
}

// JobAccepted is returned when a job has been queued
// @Description Key of a job that is now running in the background
// @swagger:model JobAccepted
type JobAccepted struct {
	// Key of the job
	JobKey models.JobKey `json:"job_key"`
	// Storage key of the job
	// @example octocat/contributions/2024
	ID string `json:"id" example:"octocat/contributions/2024"`
	// URL to poll for status
	// @example /api/v1/jobs/octocat/contributions/2024
	StatusURL string `json:"status_url" example:"/api/v1/jobs/octocat/contributions/2024"`
}

// Checkpoint is a persisted job checkpoint
// @Description Progress recorded for a resumable job
// @swagger:model Checkpoint
type Checkpoint struct {
	// @example octocat
	Owner string `json:"owner" example:"octocat"`
	// @example contributions
	Repository string `json:"repository" example:"contributions"`
	// @example 2024
	Year string `json:"year" example:"2024"`
	// @example 1200
	TotalUnits int `json:"total_units" example:"1200"`
	// @example 480
	CompletedUnits int `json:"completed_units" example:"480"`
	// @example 40
	PercentComplete int `json:"percent_complete" example:"40"`
	// Branch tip the completed commits end at
	TipSHA string `json:"tip_sha,omitempty"`
	// Error that stopped the last run, if any
	LastError string    `json:"last_error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newCheckpoint(job *models.Job) Checkpoint {
	cp := Checkpoint{
		Owner:          job.OwnerLogin,
		Repository:     job.RepositoryName,
		Year:           job.YearKey,
		TotalUnits:     job.TotalUnits,
		CompletedUnits: job.CompletedUnits,
		TipSHA:         job.TipSHA,
		LastError:      job.LastError,
		UpdatedAt:      job.UpdatedAt,
	}
	if job.TotalUnits > 0 {
		cp.PercentComplete = job.CompletedUnits * 100 / job.TotalUnits
	}
	return cp
}

// CheckpointListResponse lists stored checkpoints
// @Description All resumable jobs
// @swagger:model CheckpointListResponse
type CheckpointListResponse struct {
	Data []Checkpoint `json:"data"`
	// @example 1
	Total int `json:"total" example:"1"`
}

// ErrorResponse represents an API error
// @Description Error response from the API
// @swagger:model ErrorResponse
type ErrorResponse struct {
	// Error message
	// @example owner is required
	Error string `json:"error" example:"owner is required"`
	// Error type
	// @example INVALID_INPUT
	Type string `json:"type,omitempty" example:"INVALID_INPUT"`
}
