package github

import (
	"strings"
	"time"
)

// Issue represents a GitHub issue.
type Issue struct {
	Number    int
	Title     string
	Body      string
	State     string
	Author    string
	Labels    []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Text returns the document text used for embedding: the title, followed
// by the body when there is one.
func (i Issue) Text() string {
	title := strings.TrimSpace(i.Title)
	body := strings.TrimSpace(i.Body)
	if body == "" {
		return title
	}
	if title == "" {
		return body
	}
	return title + "\n\n" + body
}

// Texts returns the Text of every issue, in order.
func Texts(issues []Issue) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.Text()
	}
	return out
}

// ParseRepo splits an "owner/repo" reference.
func ParseRepo(ref string) (owner, repo string, ok bool) {
	owner, repo, ok = strings.Cut(strings.TrimSpace(ref), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", false
	}
	return owner, repo, true
}
