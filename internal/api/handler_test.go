package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Kamar-Folarin/commit-painter/internal/errors"
	"github.com/Kamar-Folarin/commit-painter/internal/models"
	"github.com/Kamar-Folarin/commit-painter/pkg/utils"
)

// MockJobService is a mock implementation of service.JobService
type MockJobService struct {
	mock.Mock
}

func (m *MockJobService) StartJob(ctx context.Context, req *models.JobRequest) (models.JobKey, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.JobKey), args.Error(1)
}

func (m *MockJobService) ResumeJob(ctx context.Context, req *models.JobRequest) (models.JobKey, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.JobKey), args.Error(1)
}

func (m *MockJobService) GetStatus(ctx context.Context, key models.JobKey) (*models.JobStatus, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.JobStatus), args.Error(1)
}

func (m *MockJobService) ListCheckpoints(ctx context.Context) ([]*models.Job, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Job), args.Error(1)
}

func (m *MockJobService) DiscardCheckpoint(ctx context.Context, key models.JobKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockJobService) CancelJob(key models.JobKey) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockJobService) Wait(ctx context.Context, key models.JobKey) (*models.JobResult, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.JobResult), args.Error(1)
}

func (m *MockJobService) Shutdown(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

var testKey = models.JobKey{OwnerLogin: "octocat", RepositoryName: "art", YearKey: "2024"}

func setupTestHandler(t *testing.T) (*gin.Engine, *MockJobService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mockService := new(MockJobService)
	logger := logrus.New()
	logger.SetOutput(bytes.NewBuffer(nil)) // Discard logs during tests

	router := SetupRouter(NewHandler(mockService, logger), nil)
	return router, mockService
}

func performRequest(router http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func validBody() JobRequest {
	return JobRequest{
		Owner:      "octocat",
		Repository: "art",
		Year:       "2024",
		Cells: []utils.CellSpec{
			{Date: "2024-03-01", Level: 3},
			{Date: "2023-12-31", Level: 4},
		},
		Messages:  []string{"paint"},
		RateLimit: 60,
	}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandler_StartJob(t *testing.T) {
	router, mockService := setupTestHandler(t)

	mockService.On("StartJob", mock.Anything, mock.MatchedBy(func(req *models.JobRequest) bool {
		return req.Owner == "octocat" &&
			req.Token == "secret" &&
			req.RateLimit == 60 &&
			len(req.Cells) == 2 &&
			req.Cells[0].InSelectedYear &&
			!req.Cells[1].InSelectedYear
	})).Return(testKey, nil)

	w := performRequest(router, http.MethodPost, "/api/v1/jobs", validBody(),
		map[string]string{"Authorization": "Bearer secret"})

	require.Equal(t, http.StatusAccepted, w.Code)
	var resp JobAccepted
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, testKey, resp.JobKey)
	assert.Equal(t, "octocat/art/2024", resp.ID)
	assert.Equal(t, "/api/v1/jobs/octocat/art/2024", resp.StatusURL)
	mockService.AssertExpectations(t)
}

func TestHandler_StartJobErrors(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
		wantType   string
	}{
		{"invalid input", errors.NewValidationError("intensity map has no commits to create", nil), http.StatusBadRequest, "INVALID_INPUT"},
		{"missing token", errors.NewUnauthorizedError("a GitHub token is required", nil), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"job running", errors.NewJobInProgressError(testKey.String()), http.StatusConflict, "JOB_IN_PROGRESS"},
		{"internal", errors.NewInternalError("failed to load checkpoint", nil), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, mockService := setupTestHandler(t)
			mockService.On("StartJob", mock.Anything, mock.Anything).Return(models.JobKey{}, tt.serviceErr)

			w := performRequest(router, http.MethodPost, "/api/v1/jobs", validBody(), nil)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantType, decodeError(t, w).Type)
		})
	}
}

func TestHandler_StartJobBadBody(t *testing.T) {
	router, mockService := setupTestHandler(t)

	w := performRequest(router, http.MethodPost, "/api/v1/jobs", map[string]string{"owner": "octocat"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := validBody()
	body.Cells = []utils.CellSpec{{Date: "03/01/2024", Level: 1}}
	w = performRequest(router, http.MethodPost, "/api/v1/jobs", body, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body = validBody()
	body.Cells = []utils.CellSpec{{Date: "2024-03-01", Level: 9}}
	w = performRequest(router, http.MethodPost, "/api/v1/jobs", body, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	mockService.AssertNotCalled(t, "StartJob", mock.Anything, mock.Anything)
}

func TestHandler_ResumeJobNotFound(t *testing.T) {
	router, mockService := setupTestHandler(t)
	mockService.On("ResumeJob", mock.Anything, mock.Anything).
		Return(testKey, errors.NewNotFoundError("no checkpoint", nil))

	w := performRequest(router, http.MethodPost, "/api/v1/jobs/resume", validBody(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, w).Type)
}

func TestHandler_GetJobStatus(t *testing.T) {
	router, mockService := setupTestHandler(t)
	status := &models.JobStatus{
		JobKey:  testKey,
		Running: true,
		State:   models.StateRunning,
		LastEvent: &models.ProgressEvent{
			JobKey:          testKey.String(),
			State:           models.StateRunning,
			PercentComplete: 50,
			UnitsCompleted:  10,
			TotalUnits:      20,
			Message:         "Progress: 10/20 commits (50%)",
			Timestamp:       time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	}
	mockService.On("GetStatus", mock.Anything, testKey).Return(status, nil)

	w := performRequest(router, http.MethodGet, "/api/v1/jobs/octocat/art/2024", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got models.JobStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.True(t, got.Running)
	assert.Equal(t, models.StateRunning, got.State)
	require.NotNil(t, got.LastEvent)
	assert.Equal(t, 50, got.LastEvent.PercentComplete)
}

func TestHandler_GetJobStatusNotFound(t *testing.T) {
	router, mockService := setupTestHandler(t)
	mockService.On("GetStatus", mock.Anything, testKey).Return(nil, errors.NewNotFoundError("no job", nil))

	w := performRequest(router, http.MethodGet, "/api/v1/jobs/octocat/art/2024", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_DiscardCheckpoint(t *testing.T) {
	router, mockService := setupTestHandler(t)
	mockService.On("DiscardCheckpoint", mock.Anything, testKey).Return(nil).Once()

	w := performRequest(router, http.MethodDelete, "/api/v1/jobs/octocat/art/2024", nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	mockService.On("DiscardCheckpoint", mock.Anything, testKey).Return(errors.NewJobInProgressError(testKey.String())).Once()
	w = performRequest(router, http.MethodDelete, "/api/v1/jobs/octocat/art/2024", nil, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	mockService.AssertExpectations(t)
}

func TestHandler_CancelJob(t *testing.T) {
	router, mockService := setupTestHandler(t)
	mockService.On("CancelJob", testKey).Return(nil)

	w := performRequest(router, http.MethodPost, "/api/v1/jobs/octocat/art/2024/cancel", nil, nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	mockService.AssertExpectations(t)
}

func TestHandler_ListCheckpoints(t *testing.T) {
	router, mockService := setupTestHandler(t)
	mockService.On("ListCheckpoints", mock.Anything).Return([]*models.Job{
		{OwnerLogin: "octocat", RepositoryName: "art", YearKey: "2024", TotalUnits: 200, CompletedUnits: 46, LastError: "REMOTE_WRITE: failed"},
	}, nil)

	w := performRequest(router, http.MethodGet, "/api/v1/checkpoints", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp CheckpointListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, 23, resp.Data[0].PercentComplete)
	assert.Equal(t, "REMOTE_WRITE: failed", resp.Data[0].LastError)
}

func TestBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer  abc ", "abc"},
		{"token abc", ""},
		{"", ""},
	}
	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.Header.Set("Authorization", tt.header)
		assert.Equal(t, tt.want, bearerToken(c), tt.header)
	}
}
