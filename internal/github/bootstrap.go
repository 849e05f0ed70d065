package github

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	apperrors "github.com/Kamar-Folarin/commit-painter/internal/errors"
	"github.com/Kamar-Folarin/commit-painter/internal/models"
)

const initialCommitMessage = "Initial commit"

// Bootstrapper makes sure a repository and its default branch exist
type Bootstrapper struct {
	api    RepositoryAPI
	logger *logrus.Logger
}

// NewBootstrapper creates a new repository bootstrapper
func NewBootstrapper(api RepositoryAPI, logger *logrus.Logger) *Bootstrapper {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Bootstrapper{api: api, logger: logger}
}

// Ensure returns the default branch of owner/name and its tip, creating the
// repository or an initial commit when either is missing. Failures are SetupErrors.
func (b *Bootstrapper) Ensure(ctx context.Context, owner, name string) (*models.RepositoryRef, error) {
	logger := b.logger.WithFields(logrus.Fields{
		"owner":      owner,
		"repository": name,
	})

	created := false
	repo, err := b.api.GetRepository(ctx, owner, name)
	if err != nil {
		if !IsRepositoryNotFound(err) {
			logger.WithError(err).Error("Repository access error")
			return nil, setupError("repository access error", err)
		}

		logger.Info("Repository not found, creating it")
		repo, err = b.api.CreateRepository(ctx, name)
		if err != nil {
			logger.WithError(err).Error("Failed to create repository")
			return nil, setupError("failed to create repository", err)
		}
		created = true
	}

	if repo.DefaultBranch == "" {
		repo, err = b.api.GetRepository(ctx, owner, name)
		if err != nil {
			return nil, setupError("failed to get repository information", err)
		}
	}
	branch := repo.DefaultBranch
	if branch == "" {
		branch = "main"
	}

	ref := &models.RepositoryRef{
		Owner:      owner,
		Name:       name,
		BranchName: branch,
		HTMLURL:    repo.HTMLURL,
		Created:    created,
	}
	if ref.HTMLURL == "" {
		ref.HTMLURL = fmt.Sprintf("https://github.com/%s/%s", owner, name)
	}

	tip, err := b.api.GetRef(ctx, owner, name, branch)
	switch {
	case err == nil:
		ref.TipCommitSHA = tip.Object.SHA
		logger.WithFields(logrus.Fields{
			"branch": branch,
			"tip":    shortSHA(ref.TipCommitSHA),
		}).Info("Resolved branch tip")
		return ref, nil
	case IsRefNotFound(err):
		logger.WithField("branch", branch).Info("Branch not found, initializing repository")
	default:
		logger.WithError(err).Error("Failed to get repository reference")
		return nil, setupError("failed to get repository reference", err)
	}

	sha, err := b.initializeBranch(ctx, owner, name, branch)
	if err != nil {
		logger.WithError(err).Error("Repository initialization error")
		return nil, setupError("failed to initialize repository", err)
	}
	ref.TipCommitSHA = sha
	ref.Created = true

	logger.WithField("tip", shortSHA(sha)).Info("Initialized repository")
	return ref, nil
}

// initializeBranch creates an empty tree, a parentless commit on it, and the branch ref.
func (b *Bootstrapper) initializeBranch(ctx context.Context, owner, name, branch string) (string, error) {
	tree, err := b.api.CreateTree(ctx, owner, name, "", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create empty tree: %w", err)
	}

	sha, err := b.api.CreateCommit(ctx, owner, name, NewCommit{
		Message: initialCommitMessage,
		Tree:    tree,
		Parents: []string{},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create initial commit: %w", err)
	}

	if err := b.api.CreateRef(ctx, owner, name, branch, sha); err != nil {
		return "", fmt.Errorf("failed to create branch reference: %w", err)
	}
	return sha, nil
}

func setupError(message string, err error) error {
	if IsPermissionDenied(err) {
		return apperrors.NewSetupError(message+": permission denied", err)
	}
	return apperrors.NewSetupError(message, err)
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
