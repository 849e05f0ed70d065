package github

import (
	"context"
	"net/http"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kamar-Folarin/commit-painter/internal/github/githubtest"
	apperrors "github.com/Kamar-Folarin/commit-painter/internal/errors"
)

func newTestBootstrapper(t *testing.T) (*Bootstrapper, *githubtest.Server) {
	t.Helper()
	server := githubtest.NewServer("painter")
	t.Cleanup(server.Close)

	logger := logrus.New()
	client := NewGitHubClient("token", logger, WithBaseURL(server.URL))
	return NewBootstrapper(client, logger), server
}

func TestBootstrapper_Ensure(t *testing.T) {
	ctx := context.Background()

	t.Run("existing repository", func(t *testing.T) {
		b, server := newTestBootstrapper(t)
		server.AddRepository("painter", "art", true)
		tip := server.Tip("painter", "art", "main")

		ref, err := b.Ensure(ctx, "painter", "art")
		require.NoError(t, err)
		assert.Equal(t, "main", ref.BranchName)
		assert.Equal(t, tip, ref.TipCommitSHA)
		assert.False(t, ref.Created)
		assert.Equal(t, 0, server.Calls(githubtest.OpCreateRepo))
	})

	t.Run("missing repository is created", func(t *testing.T) {
		b, server := newTestBootstrapper(t)

		ref, err := b.Ensure(ctx, "painter", "art")
		require.NoError(t, err)
		assert.True(t, ref.Created)
		assert.True(t, server.HasRepository("painter", "art"))
		assert.Equal(t, server.Tip("painter", "art", "main"), ref.TipCommitSHA)
		assert.NotEmpty(t, ref.HTMLURL)
	})

	t.Run("empty repository gets an initial commit", func(t *testing.T) {
		b, server := newTestBootstrapper(t)
		server.AddRepository("painter", "art", false)

		ref, err := b.Ensure(ctx, "painter", "art")
		require.NoError(t, err)
		require.NotEmpty(t, ref.TipCommitSHA)
		assert.True(t, ref.Created)

		commit, ok := server.Commit(ref.TipCommitSHA)
		require.True(t, ok)
		assert.Equal(t, initialCommitMessage, commit.Message)
		assert.Empty(t, commit.Parents)
		assert.Equal(t, ref.TipCommitSHA, server.Tip("painter", "art", "main"))
	})

	t.Run("create failure is a setup error", func(t *testing.T) {
		b, server := newTestBootstrapper(t)
		server.FailOn(githubtest.OpCreateRepo, 1, http.StatusForbidden)

		_, err := b.Ensure(ctx, "painter", "art")
		require.Error(t, err)
		assert.True(t, apperrors.IsSetup(err))
		assert.Contains(t, err.Error(), "permission denied")
	})

	t.Run("ref lookup failure is a setup error", func(t *testing.T) {
		b, server := newTestBootstrapper(t)
		server.AddRepository("painter", "art", true)
		server.FailOn(githubtest.OpGetRef, 1, http.StatusInternalServerError)

		_, err := b.Ensure(ctx, "painter", "art")
		require.Error(t, err)
		assert.True(t, apperrors.IsSetup(err))
	})
}
