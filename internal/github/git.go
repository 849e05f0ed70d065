package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
)

func repoPath(owner, name string) string {
	return fmt.Sprintf("/repos/%s/%s", url.PathEscape(owner), url.PathEscape(name))
}

func validateRepo(owner, name string) error {
	if owner == "" {
		return NewValidationError("owner", "cannot be empty")
	}
	if name == "" {
		return NewValidationError("name", "cannot be empty")
	}
	return nil
}

// GetRepository gets repository information from GitHub
func (c *GitHubClient) GetRepository(ctx context.Context, owner, name string) (*Repository, error) {
	if err := validateRepo(owner, name); err != nil {
		return nil, err
	}

	var repo Repository
	if err := c.doRequest(ctx, http.MethodGet, repoPath(owner, name), nil, &repo); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, NewRepositoryNotFoundError(owner, name)
		}
		return nil, err
	}
	return &repo, nil
}

// CreateRepository creates an auto-initialized repository owned by the authenticated user
func (c *GitHubClient) CreateRepository(ctx context.Context, name string) (*Repository, error) {
	if name == "" {
		return nil, NewValidationError("name", "cannot be empty")
	}

	var repo Repository
	body := createRepositoryRequest{Name: name, AutoInit: true}
	if err := c.doRequest(ctx, http.MethodPost, "/user/repos", body, &repo); err != nil {
		return nil, err
	}
	return &repo, nil
}

// GetRef resolves refs/heads/<branch>. A missing ref, or an empty repository, yields RefNotFoundError.
func (c *GitHubClient) GetRef(ctx context.Context, owner, name, branch string) (*Reference, error) {
	if err := validateRepo(owner, name); err != nil {
		return nil, err
	}
	if branch == "" {
		return nil, NewValidationError("branch", "cannot be empty")
	}

	var ref Reference
	path := fmt.Sprintf("%s/git/ref/heads/%s", repoPath(owner, name), branch)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &ref); err != nil {
		if isStatus(err, http.StatusNotFound, http.StatusConflict) {
			return nil, &RefNotFoundError{Ref: "heads/" + branch}
		}
		return nil, err
	}
	return &ref, nil
}

// CreateRef creates refs/heads/<branch> pointing at sha
func (c *GitHubClient) CreateRef(ctx context.Context, owner, name, branch, sha string) error {
	if err := validateRepo(owner, name); err != nil {
		return err
	}
	body := createRefRequest{Ref: "refs/heads/" + branch, SHA: sha}
	return c.doRequest(ctx, http.MethodPost, repoPath(owner, name)+"/git/refs", body, nil)
}

// UpdateRef moves refs/heads/<branch> to sha. With force=false a non fast-forward
// update is rejected and reported as RefConflictError.
func (c *GitHubClient) UpdateRef(ctx context.Context, owner, name, branch, sha string, force bool) error {
	if err := validateRepo(owner, name); err != nil {
		return err
	}
	if sha == "" {
		return NewValidationError("sha", "cannot be empty")
	}

	path := fmt.Sprintf("%s/git/refs/heads/%s", repoPath(owner, name), branch)
	err := c.doRequest(ctx, http.MethodPatch, path, updateRefRequest{SHA: sha, Force: force}, nil)
	if err != nil && isStatus(err, http.StatusUnprocessableEntity, http.StatusConflict) {
		var message string
		if ghErr, ok := err.(*GitHubError); ok {
			message = ghErr.Message
		}
		return &RefConflictError{Ref: "heads/" + branch, SHA: sha, Message: message}
	}
	return err
}

// GetCommit fetches a commit object
func (c *GitHubClient) GetCommit(ctx context.Context, owner, name, sha string) (*GitCommit, error) {
	if err := validateRepo(owner, name); err != nil {
		return nil, err
	}
	if sha == "" {
		return nil, NewValidationError("sha", "cannot be empty")
	}

	var commit GitCommit
	if err := c.doRequest(ctx, http.MethodGet, repoPath(owner, name)+"/git/commits/"+sha, nil, &commit); err != nil {
		return nil, err
	}
	return &commit, nil
}

// CreateBlob uploads content as a base64 blob and returns its SHA
func (c *GitHubClient) CreateBlob(ctx context.Context, owner, name string, content []byte) (string, error) {
	if err := validateRepo(owner, name); err != nil {
		return "", err
	}

	var blob objectResponse
	body := createBlobRequest{
		Content:  base64.StdEncoding.EncodeToString(content),
		Encoding: "base64",
	}
	if err := c.doRequest(ctx, http.MethodPost, repoPath(owner, name)+"/git/blobs", body, &blob); err != nil {
		return "", err
	}
	return blob.SHA, nil
}

// CreateTree creates a tree, layered on baseTree when it is non-empty
func (c *GitHubClient) CreateTree(ctx context.Context, owner, name, baseTree string, entries []TreeEntry) (string, error) {
	if err := validateRepo(owner, name); err != nil {
		return "", err
	}
	if entries == nil {
		entries = []TreeEntry{}
	}

	var tree objectResponse
	body := createTreeRequest{BaseTree: baseTree, Tree: entries}
	if err := c.doRequest(ctx, http.MethodPost, repoPath(owner, name)+"/git/trees", body, &tree); err != nil {
		return "", err
	}
	return tree.SHA, nil
}

// CreateCommit creates a commit object and returns its SHA
func (c *GitHubClient) CreateCommit(ctx context.Context, owner, name string, commit NewCommit) (string, error) {
	if err := validateRepo(owner, name); err != nil {
		return "", err
	}
	if commit.Parents == nil {
		commit.Parents = []string{}
	}

	var created objectResponse
	if err := c.doRequest(ctx, http.MethodPost, repoPath(owner, name)+"/git/commits", commit, &created); err != nil {
		return "", err
	}
	return created.SHA, nil
}
