package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/commit-painter/internal/errors"
	"github.com/Kamar-Folarin/commit-painter/internal/models"
	"github.com/Kamar-Folarin/commit-painter/internal/service"
)

type Handler struct {
	jobService service.JobService
	logger     *logrus.Logger
}

func NewHandler(jobService service.JobService, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		jobService: jobService,
		logger:     logger,
	}
}

// StartJob godoc
// @Summary Start a painting job
// @Description Validates the map and starts creating commits in the background
// @Tags jobs
// @Accept json
// @Produce json
// @Param request body JobRequest true "Job request"
// @Success 202 {object} JobAccepted
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /jobs [post]
func (h *Handler) StartJob(c *gin.Context) {
	h.launch(c, h.jobService.StartJob)
}

// ResumeJob godoc
// @Summary Resume a painting job
// @Description Continues a job from its checkpoint
// @Tags jobs
// @Accept json
// @Produce json
// @Param request body JobRequest true "Job request, identical to the one that was interrupted"
// @Success 202 {object} JobAccepted
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /jobs/resume [post]
func (h *Handler) ResumeJob(c *gin.Context) {
	h.launch(c, h.jobService.ResumeJob)
}

type launchFunc func(ctx context.Context, req *models.JobRequest) (models.JobKey, error)

func (h *Handler) launch(c *gin.Context, launch launchFunc) {
	var body JobRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondWithError(c, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	req, err := body.toModel(bearerToken(c))
	if err != nil {
		respondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	key, err := launch(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, "Failed to start job", err)
		return
	}

	respondWithJSON(c, http.StatusAccepted, JobAccepted{
		JobKey:    key,
		ID:        key.String(),
		StatusURL: fmt.Sprintf("/api/v1/jobs/%s/%s/%s", key.OwnerLogin, key.RepositoryName, key.YearKey),
	})
}

// GetJobStatus godoc
// @Summary Get job status
// @Description Live state, last progress event, result and checkpoint of a job
// @Tags jobs
// @Produce json
// @Param owner path string true "Repository owner"
// @Param repo path string true "Repository name"
// @Param year path string true "Year"
// @Success 200 {object} models.JobStatus
// @Failure 404 {object} ErrorResponse
// @Router /jobs/{owner}/{repo}/{year} [get]
func (h *Handler) GetJobStatus(c *gin.Context) {
	status, err := h.jobService.GetStatus(c.Request.Context(), jobKey(c))
	if err != nil {
		h.handleError(c, "Failed to get job status", err)
		return
	}
	respondWithJSON(c, http.StatusOK, status)
}

// DiscardCheckpoint godoc
// @Summary Discard a checkpoint
// @Description Deletes the checkpoint so the next start begins from the first commit
// @Tags jobs
// @Param owner path string true "Repository owner"
// @Param repo path string true "Repository name"
// @Param year path string true "Year"
// @Success 204 "No Content"
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /jobs/{owner}/{repo}/{year} [delete]
func (h *Handler) DiscardCheckpoint(c *gin.Context) {
	if err := h.jobService.DiscardCheckpoint(c.Request.Context(), jobKey(c)); err != nil {
		h.handleError(c, "Failed to discard checkpoint", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CancelJob godoc
// @Summary Cancel a running job
// @Description Stops the job after its current commit; the checkpoint is kept
// @Tags jobs
// @Produce json
// @Param owner path string true "Repository owner"
// @Param repo path string true "Repository name"
// @Param year path string true "Year"
// @Success 202 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /jobs/{owner}/{repo}/{year}/cancel [post]
func (h *Handler) CancelJob(c *gin.Context) {
	if err := h.jobService.CancelJob(jobKey(c)); err != nil {
		h.handleError(c, "Failed to cancel job", err)
		return
	}
	respondWithJSON(c, http.StatusAccepted, map[string]string{"status": "cancelling"})
}

// ListCheckpoints godoc
// @Summary List checkpoints
// @Description Every job that can be resumed
// @Tags checkpoints
// @Produce json
// @Success 200 {object} CheckpointListResponse
// @Failure 500 {object} ErrorResponse
// @Router /checkpoints [get]
func (h *Handler) ListCheckpoints(c *gin.Context) {
	jobs, err := h.jobService.ListCheckpoints(c.Request.Context())
	if err != nil {
		h.handleError(c, "Failed to list checkpoints", err)
		return
	}

	resp := CheckpointListResponse{Data: make([]Checkpoint, 0, len(jobs)), Total: len(jobs)}
	for _, job := range jobs {
		resp.Data = append(resp.Data, newCheckpoint(job))
	}
	respondWithJSON(c, http.StatusOK, resp)
}

// Health reports that the server is up
func (h *Handler) Health(c *gin.Context) {
	respondWithJSON(c, http.StatusOK, map[string]string{"status": "ok"})
}

// handleError maps application errors to HTTP status codes
func (h *Handler) handleError(c *gin.Context, message string, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.IsJobInProgress(err), errors.IsConflict(err):
		code = http.StatusConflict
	case errors.IsInvalidInput(err):
		code = http.StatusBadRequest
	case errors.IsUnauthorized(err):
		code = http.StatusUnauthorized
	case errors.IsNotFound(err):
		code = http.StatusNotFound
	}

	entry := h.logger.WithError(err).WithField("path", c.FullPath())
	if code == http.StatusInternalServerError {
		entry.Error(message)
		respondWithError(c, code, message)
		return
	}
	entry.Warn(message)
	c.JSON(code, ErrorResponse{Error: err.Error(), Type: errorType(err)})
}

func errorType(err error) string {
	if errors.IsJobInProgress(err) {
		return "JOB_IN_PROGRESS"
	}
	return string(errors.TypeOf(err))
}

func jobKey(c *gin.Context) models.JobKey {
	return models.JobKey{
		OwnerLogin:     c.Param("owner"),
		RepositoryName: c.Param("repo"),
		YearKey:        c.Param("year"),
	}
}

// bearerToken returns the token of an "Authorization: Bearer" header, or "".
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func respondWithJSON(c *gin.Context, code int, payload interface{}) {
	c.JSON(code, payload)
}

func respondWithError(c *gin.Context, code int, message string) {
	respondWithJSON(c, code, ErrorResponse{Error: message})
}
