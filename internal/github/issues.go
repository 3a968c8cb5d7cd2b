package github

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gogithub "github.com/google/go-github/v60/github"
)

// ListOptions selects the issues ListIssueTexts returns.
type ListOptions struct {
	// State is "open", "closed" or "all". Empty means "open".
	State string
	// Labels restricts results to issues carrying all of these labels.
	Labels []string
	// Since restricts results to issues updated at or after this time.
	Since time.Time
	// Limit stops after this many issues. Zero means no limit.
	Limit int
}

// backoff is the wait before retrying a server error; tests shorten it.
var backoff = BackoffDuration

// ListIssueTexts pages through a repository's issues, oldest first, and
// returns them as corpus documents. Pull requests are skipped. Rate limit
// responses are waited out and server errors retried with backoff.
func ListIssueTexts(ctx context.Context, client *gogithub.Client, owner, repo string, opts ListOptions, logger *slog.Logger) ([]Issue, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("repo", owner+"/"+repo)

	state := opts.State
	if state == "" {
		state = "open"
	}
	listOpts := &gogithub.IssueListByRepoOptions{
		State:     state,
		Labels:    opts.Labels,
		Since:     opts.Since,
		Sort:      "created",
		Direction: "asc",
		ListOptions: gogithub.ListOptions{
			PerPage: 100,
		},
	}

	var issues []Issue
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		batch, resp, err := fetchPage(ctx, client, owner, repo, listOpts, logger)
		if err != nil {
			return nil, fmt.Errorf("fetching issues page %d: %w", page, err)
		}

		for _, gh := range batch {
			if gh.IsPullRequest() {
				continue
			}
			issues = append(issues, convertIssue(gh))
			if opts.Limit > 0 && len(issues) >= opts.Limit {
				return issues, nil
			}
		}
		logger.Debug("fetched issues page", "page", page, "total", len(issues))

		if resp == nil || resp.NextPage == 0 {
			break
		}
		listOpts.Page = resp.NextPage

		if q := readQuota(resp.Response); q.low() {
			wait := q.untilReset(time.Now())
			logger.Warn("rate limit nearly exhausted, pausing", "remaining", q.remaining, "wait", wait)
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
		}
	}

	logger.Info("listed issues", "count", len(issues))
	return issues, nil
}

func fetchPage(ctx context.Context, client *gogithub.Client, owner, repo string, opts *gogithub.IssueListByRepoOptions, logger *slog.Logger) ([]*gogithub.Issue, *gogithub.Response, error) {
	for attempt := 0; ; attempt++ {
		issues, resp, err := client.Issues.ListByRepo(ctx, owner, repo, opts)
		if err == nil {
			return issues, resp, nil
		}
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		if attempt >= maxRetries {
			return nil, resp, err
		}

		httpResp := responseOf(resp)
		wait, ok := retryDelay(httpResp, attempt, time.Now())
		if !ok {
			return nil, resp, err
		}
		logger.Warn("retrying issues page", "status", httpResp.StatusCode, "attempt", attempt+1, "wait", wait)
		if err := sleep(ctx, wait); err != nil {
			return nil, nil, err
		}
	}
}

func convertIssue(gh *gogithub.Issue) Issue {
	issue := Issue{
		Number: gh.GetNumber(),
		Title:  gh.GetTitle(),
		Body:   gh.GetBody(),
		State:  gh.GetState(),
	}

	if gh.User != nil {
		issue.Author = gh.User.GetLogin()
	}

	for _, label := range gh.Labels {
		issue.Labels = append(issue.Labels, label.GetName())
	}

	if gh.CreatedAt != nil {
		issue.CreatedAt = gh.CreatedAt.Time
	}
	if gh.UpdatedAt != nil {
		issue.UpdatedAt = gh.UpdatedAt.Time
	}

	return issue
}
