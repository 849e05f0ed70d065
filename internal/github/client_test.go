package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestClient(t *testing.T, handler http.HandlerFunc) *GitHubClient {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewGitHubClient("test-token", logger, WithBaseURL(server.URL), WithTimeout(5*time.Second))
}

func TestGitHubClient_GetRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("successful request", func(t *testing.T) {
		client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/repos/test-owner/test-repo", r.URL.Path)
			assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
			assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))

			w.Header().Set("X-RateLimit-Limit", "5000")
			w.Header().Set("X-RateLimit-Remaining", "4999")
			w.Header().Set("X-RateLimit-Reset", "1234567890")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{
				"name": "test-repo",
				"full_name": "test-owner/test-repo",
				"default_branch": "trunk",
				"html_url": "https://github.com/test-owner/test-repo",
				"owner": {"login": "test-owner"}
			}`))
		})

		repo, err := client.GetRepository(ctx, "test-owner", "test-repo")
		require.NoError(t, err)
		assert.Equal(t, "test-repo", repo.Name)
		assert.Equal(t, "trunk", repo.DefaultBranch)
		assert.Equal(t, "test-owner", repo.Owner.Login)

		info := client.RateLimit()
		assert.Equal(t, 5000, info.Limit)
		assert.Equal(t, 4999, info.Remaining)
		assert.Equal(t, time.Unix(1234567890, 0), info.ResetTime)
	})

	t.Run("not found", func(t *testing.T) {
		client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message": "Not Found"}`))
		})

		_, err := client.GetRepository(ctx, "test-owner", "missing")
		require.Error(t, err)
		assert.True(t, IsRepositoryNotFound(err))
	})

	t.Run("invalid input", func(t *testing.T) {
		client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("no request expected")
		})

		_, err := client.GetRepository(ctx, "", "test-repo")
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "owner", validationErr.Field)
	})
}

func TestGitHubClient_RateLimitErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("primary limit exhausted", func(t *testing.T) {
		calls := 0
		client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.Header().Set("X-RateLimit-Limit", "5000")
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", "1234567890")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"message": "API rate limit exceeded"}`))
		})

		_, err := client.GetRepository(ctx, "test-owner", "test-repo")
		require.Error(t, err)
		assert.True(t, IsRateLimitError(err))
		assert.Equal(t, 1, calls, "requests must not be retried")
	})

	t.Run("secondary limit", func(t *testing.T) {
		client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := client.CreateBlob(ctx, "test-owner", "test-repo", []byte("x"))
		var rateErr *RateLimitError
		require.ErrorAs(t, err, &rateErr)
		assert.True(t, rateErr.ResetTime.After(time.Now()))
	})

	t.Run("retry-after does not outlive its response", func(t *testing.T) {
		calls := 0
		client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				w.Header().Set("Retry-After", "600")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Header().Set("X-RateLimit-Limit", "5000")
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", "1234567890")
			w.WriteHeader(http.StatusForbidden)
		})

		_, err := client.GetRepository(ctx, "test-owner", "test-repo")
		require.Error(t, err)

		_, err = client.GetRepository(ctx, "test-owner", "test-repo")
		var rateErr *RateLimitError
		require.ErrorAs(t, err, &rateErr)
		assert.Equal(t, time.Unix(1234567890, 0), rateErr.ResetTime)
		assert.True(t, client.RateLimit().RetryAfter.IsZero())
	})

	t.Run("plain forbidden is not a rate limit", func(t *testing.T) {
		client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"message": "Resource not accessible by integration"}`))
		})

		_, err := client.GetRepository(ctx, "test-owner", "test-repo")
		require.Error(t, err)
		assert.False(t, IsRateLimitError(err))
		assert.True(t, IsPermissionDenied(err))
		assert.Contains(t, err.Error(), "Resource not accessible by integration")
	})
}

func TestGitHubClient_GetRef(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves tip", func(t *testing.T) {
		client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/repos/o/r/git/ref/heads/main", r.URL.Path)
			w.Write([]byte(`{"ref": "refs/heads/main", "object": {"sha": "abc123", "type": "commit"}}`))
		})

		ref, err := client.GetRef(ctx, "o", "r", "main")
		require.NoError(t, err)
		assert.Equal(t, "abc123", ref.Object.SHA)
	})

	for _, status := range []int{http.StatusNotFound, http.StatusConflict} {
		client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			w.Write([]byte(`{"message": "Git Repository is empty."}`))
		})

		_, err := client.GetRef(ctx, "o", "r", "main")
		assert.True(t, IsRefNotFound(err), "status %d", status)
	}
}

func TestGitHubClient_UpdateRef(t *testing.T) {
	ctx := context.Background()

	t.Run("sends non-forcing update", func(t *testing.T) {
		client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPatch, r.Method)
			assert.Equal(t, "/repos/o/r/git/refs/heads/main", r.URL.Path)

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "def456", body["sha"])
			assert.Equal(t, false, body["force"])

			w.Write([]byte(`{"ref": "refs/heads/main", "object": {"sha": "def456"}}`))
		})

		require.NoError(t, client.UpdateRef(ctx, "o", "r", "main", "def456", false))
	})

	t.Run("rejected fast forward", func(t *testing.T) {
		client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"message": "Update is not a fast forward"}`))
		})

		err := client.UpdateRef(ctx, "o", "r", "main", "def456", false)
		var conflict *RefConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "def456", conflict.SHA)
		assert.Equal(t, "Update is not a fast forward", conflict.Message)
	})
}

func TestGitHubClient_ObjectRequests(t *testing.T) {
	ctx := context.Background()

	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		switch r.URL.Path {
		case "/repos/o/r/git/blobs":
			assert.Equal(t, "base64", body["encoding"])
			assert.Equal(t, "aGVsbG8=", body["content"])
			w.Write([]byte(`{"sha": "blob1"}`))
		case "/repos/o/r/git/trees":
			_, hasBase := body["base_tree"]
			assert.False(t, hasBase)
			assert.Equal(t, []interface{}{}, body["tree"])
			w.Write([]byte(`{"sha": "tree1"}`))
		case "/repos/o/r/git/commits":
			assert.Equal(t, []interface{}{}, body["parents"])
			assert.Equal(t, "tree1", body["tree"])
			w.Write([]byte(`{"sha": "commit1"}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	blob, err := client.CreateBlob(ctx, "o", "r", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "blob1", blob)

	tree, err := client.CreateTree(ctx, "o", "r", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "tree1", tree)

	commit, err := client.CreateCommit(ctx, "o", "r", NewCommit{Message: "Initial commit", Tree: tree})
	require.NoError(t, err)
	assert.Equal(t, "commit1", commit)
}

func TestGitHubClient_ContextCancelled(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetCommit(ctx, "o", "r", "abc")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
