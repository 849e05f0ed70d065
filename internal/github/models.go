package github

import "time"

// Repository is the subset of repository metadata the painter needs
type Repository struct {
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	DefaultBranch string `json:"default_branch"`
	HTMLURL       string `json:"html_url"`
	Private       bool   `json:"private"`
	Owner         struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// Reference is a Git reference such as refs/heads/main
type Reference struct {
	Ref    string `json:"ref"`
	Object struct {
		SHA  string `json:"sha"`
		Type string `json:"type"`
	} `json:"object"`
}

// GitCommit is a commit object from the Git data API
type GitCommit struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
	Tree    struct {
		SHA string `json:"sha"`
	} `json:"tree"`
	Parents []struct {
		SHA string `json:"sha"`
	} `json:"parents"`
}

// Signature is a commit author or committer
type Signature struct {
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Date  time.Time `json:"date"`
}

// TreeEntry is one entry of a tree creation request
type TreeEntry struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
}

// NewCommit is the payload for creating a commit object
type NewCommit struct {
	Message   string     `json:"message"`
	Tree      string     `json:"tree"`
	Parents   []string   `json:"parents"`
	Author    *Signature `json:"author,omitempty"`
	Committer *Signature `json:"committer,omitempty"`
}

type objectResponse struct {
	SHA string `json:"sha"`
}

type createRepositoryRequest struct {
	Name     string `json:"name"`
	AutoInit bool   `json:"auto_init"`
	Private  bool   `json:"private"`
}

type createBlobRequest struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type createTreeRequest struct {
	BaseTree string      `json:"base_tree,omitempty"`
	Tree     []TreeEntry `json:"tree"`
}

type createRefRequest struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

type updateRefRequest struct {
	SHA   string `json:"sha"`
	Force bool   `json:"force"`
}
