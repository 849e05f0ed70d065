package github

import "context"

// RepositoryAPI is the part of the GitHub API the bootstrapper needs
type RepositoryAPI interface {
	GetRepository(ctx context.Context, owner, name string) (*Repository, error)
	CreateRepository(ctx context.Context, name string) (*Repository, error)
	GetRef(ctx context.Context, owner, name, branch string) (*Reference, error)
	CreateRef(ctx context.Context, owner, name, branch, sha string) error
	CreateTree(ctx context.Context, owner, name, baseTree string, entries []TreeEntry) (string, error)
	CreateCommit(ctx context.Context, owner, name string, commit NewCommit) (string, error)
}

// ObjectAPI is the part of the Git data API the object builder needs
type ObjectAPI interface {
	GetCommit(ctx context.Context, owner, name, sha string) (*GitCommit, error)
	CreateBlob(ctx context.Context, owner, name string, content []byte) (string, error)
	CreateTree(ctx context.Context, owner, name, baseTree string, entries []TreeEntry) (string, error)
	CreateCommit(ctx context.Context, owner, name string, commit NewCommit) (string, error)
}

// RefAPI moves branch references
type RefAPI interface {
	UpdateRef(ctx context.Context, owner, name, branch, sha string, force bool) error
}

// GitDataAPI is everything a painting run needs from GitHub
type GitDataAPI interface {
	RepositoryAPI
	ObjectAPI
	RefAPI
}

var _ GitDataAPI = (*GitHubClient)(nil)
