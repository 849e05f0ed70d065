package config

import "time"

// GitHubConfig holds GitHub-specific configuration
type GitHubConfig struct {
	Token       string
	APIBaseURL  string
	Timeout     time.Duration
	AuthorName  string
	AuthorEmail string
}

// DefaultGitHubConfig returns the default GitHub configuration
func DefaultGitHubConfig() *GitHubConfig {
	return &GitHubConfig{
		APIBaseURL: "https://api.github.com",
		Timeout:    120 * time.Second,
	}
}

func loadGitHubConfig() (*GitHubConfig, error) {
	cfg := DefaultGitHubConfig()
	timeout, err := getEnvSeconds("GITHUB_TIMEOUT_SECONDS", cfg.Timeout)
	if err != nil {
		return nil, err
	}
	cfg.Token = getEnv("GITHUB_TOKEN", "")
	cfg.APIBaseURL = getEnv("GITHUB_API_URL", cfg.APIBaseURL)
	cfg.Timeout = timeout
	cfg.AuthorName = getEnv("AUTHOR_NAME", "")
	cfg.AuthorEmail = getEnv("AUTHOR_EMAIL", "")
	return cfg, nil
}
