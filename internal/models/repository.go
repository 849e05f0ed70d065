package models

// RepositoryRef is the branch a job writes to and its current tip.
type RepositoryRef struct {
	Owner        string `json:"owner"`
	Name         string `json:"name"`
	BranchName   string `json:"branch_name"`
	TipCommitSHA string `json:"tip_commit_sha"`
	HTMLURL      string `json:"html_url"`
	// Created is set when the repository or its initial commit had to be created.
	Created bool `json:"created"`
}
