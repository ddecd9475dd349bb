// Package events defines the closed set of GitHub webhook event kinds the
// gateway recognizes.
package events

import (
	"errors"
	"fmt"
)

// Kind is a webhook event kind. Its value is the wire string GitHub sends in
// the X-GitHub-Event header.
type Kind string

const (
	WildCard                 Kind = "*"
	CommitComment            Kind = "commit_comment"
	Create                   Kind = "create"
	Delete                   Kind = "delete"
	Deployment               Kind = "deployment"
	DeploymentStatus         Kind = "deployment_status"
	Fork                     Kind = "fork"
	Gollum                   Kind = "gollum"
	IssueComment             Kind = "issue_comment"
	Issues                   Kind = "issues"
	Label                    Kind = "label"
	Member                   Kind = "member"
	Membership               Kind = "membership"
	Milestone                Kind = "milestone"
	Organization             Kind = "organization"
	PageBuild                Kind = "page_build"
	ProjectCard              Kind = "project_card"
	ProjectColumn            Kind = "project_column"
	Project                  Kind = "project"
	Public                   Kind = "public"
	PullRequestReviewComment Kind = "pull_request_review_comment"
	PullRequestReview        Kind = "pull_request_review"
	PullRequest              Kind = "pull_request"
	Push                     Kind = "push"
	Repository               Kind = "repository"
	Release                  Kind = "release"
	Status                   Kind = "status"
	Team                     Kind = "team"
	TeamAdd                  Kind = "team_add"
	Watch                    Kind = "watch"
)

// ErrUnknownKind is returned by Parse for any string outside the closed set.
var ErrUnknownKind = errors.New("unknown event kind")

var all = []Kind{
	WildCard,
	CommitComment,
	Create,
	Delete,
	Deployment,
	DeploymentStatus,
	Fork,
	Gollum,
	IssueComment,
	Issues,
	Label,
	Member,
	Membership,
	Milestone,
	Organization,
	PageBuild,
	ProjectCard,
	ProjectColumn,
	Project,
	Public,
	PullRequestReviewComment,
	PullRequestReview,
	PullRequest,
	Push,
	Repository,
	Release,
	Status,
	Team,
	TeamAdd,
	Watch,
}

var known = func() map[string]Kind {
	m := make(map[string]Kind, len(all))
	for _, k := range all {
		m[string(k)] = k
	}
	return m
}()

// Parse classifies a wire string. Matching is exact and case-sensitive; an
// empty or unrecognized string is an error and never falls back to WildCard.
func Parse(s string) (Kind, error) {
	k, ok := known[s]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// All returns every recognized kind in declaration order.
func All() []Kind {
	out := make([]Kind, len(all))
	copy(out, all)
	return out
}

// String returns the wire string.
func (k Kind) String() string {
	return string(k)
}

// Valid reports whether k is one of the recognized kinds.
func (k Kind) Valid() bool {
	_, ok := known[string(k)]
	return ok
}
