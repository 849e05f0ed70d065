package utils

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Kamar-Folarin/commit-painter/internal/models"
)

// ParseGitHubURL extracts owner and repository from a github.com URL.
func ParseGitHubURL(repoURL string) (owner, repo string, err error) {
	u, err := url.Parse(repoURL)
	if err != nil {
		return "", "", err
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GitHub repository URL")
	}

	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}

// ParseRepository accepts "owner/repo" or a repository URL.
func ParseRepository(arg string) (owner, repo string, err error) {
	if strings.Contains(arg, "://") {
		return ParseGitHubURL(arg)
	}
	parts := strings.Split(strings.Trim(arg, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repository must be owner/name or a URL, got %q", arg)
	}
	return parts[0], parts[1], nil
}

// ParseDate parses a YYYY-MM-DD calendar date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(models.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return d, nil
}

// ParseYear validates a four-digit year key.
func ParseYear(year string) (int, error) {
	y, err := strconv.Atoi(year)
	if err != nil || y < 1970 || y > 9999 {
		return 0, fmt.Errorf("invalid year %q", year)
	}
	return y, nil
}
