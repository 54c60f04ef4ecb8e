// Package jira implements the tracker capability plus the issue CRUD
// wrappers exposed as MCP tools, over the Jira Cloud REST v2 API.
package jira

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/pmbridge/pmbridge/internal/atlassian"
	"github.com/pmbridge/pmbridge/internal/linkage"
)

const issueFields = "summary,status,assignee,labels,duedate,updated"

// Issue is the summary view of a Jira issue returned by the wrappers.
type Issue struct {
	Key            string   `json:"key"`
	URL            string   `json:"url"`
	Summary        string   `json:"summary"`
	Status         string   `json:"status"`
	StatusCategory string   `json:"status_category,omitempty"`
	Assignee       string   `json:"assignee,omitempty"`
	Labels         []string `json:"labels,omitempty"`
	DueDate        string   `json:"due_date,omitempty"`
	Updated        string   `json:"updated,omitempty"`
}

// Client talks to one Jira Cloud site.
type Client struct {
	api     *atlassian.Client
	baseURL string
}

// Verify the client satisfies the linkage tracker capability.
var _ linkage.Tracker = (*Client)(nil)

// New returns a Client for the given site.
func New(baseURL, email, token string) *Client {
	return &Client{
		api:     atlassian.New(baseURL, email, token),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// issuePayload mirrors the fields subset of the REST issue resource.
type issuePayload struct {
	Key    string `json:"key"`
	Fields struct {
		Summary string `json:"summary"`
		Status  struct {
			Name           string `json:"name"`
			StatusCategory struct {
				Name string `json:"name"`
			} `json:"statusCategory"`
		} `json:"status"`
		Assignee *struct {
			DisplayName  string `json:"displayName"`
			EmailAddress string `json:"emailAddress"`
		} `json:"assignee"`
		Labels  []string `json:"labels"`
		DueDate string   `json:"duedate"`
		Updated string   `json:"updated"`
	} `json:"fields"`
}

func (c *Client) issue(ctx context.Context, issueKey string) (issuePayload, error) {
	var payload issuePayload
	query := url.Values{"fields": {issueFields}}
	err := c.api.Do(ctx, http.MethodGet, "/rest/api/2/issue/"+url.PathEscape(issueKey), query, nil, &payload)
	if err != nil {
		return issuePayload{}, mapIssueError(err, issueKey)
	}
	return payload, nil
}

// GetIssue fetches one issue by key.
func (c *Client) GetIssue(ctx context.Context, issueKey string) (Issue, error) {
	payload, err := c.issue(ctx, issueKey)
	if err != nil {
		return Issue{}, err
	}
	return c.toIssue(payload), nil
}

// IssueLabels returns the issue's current label set.
func (c *Client) IssueLabels(ctx context.Context, issueKey string) ([]string, error) {
	payload, err := c.issue(ctx, issueKey)
	if err != nil {
		return nil, err
	}
	return payload.Fields.Labels, nil
}

// SetIssueLabels replaces the issue's label set.
func (c *Client) SetIssueLabels(ctx context.Context, issueKey string, labels []string) error {
	if labels == nil {
		labels = []string{}
	}
	body := map[string]any{"fields": map[string]any{"labels": labels}}
	err := c.api.Do(ctx, http.MethodPut, "/rest/api/2/issue/"+url.PathEscape(issueKey), nil, body, nil)
	return mapIssueError(err, issueKey)
}

// SearchFilter narrows a JQL issue search. Zero values are omitted.
type SearchFilter struct {
	ProjectKey     string
	StatusCategory string
	Assignee       string
	Label          string
	TextQuery      string
	MaxResults     int
}

// SearchIssues lists issues matching the filter, most recently updated
// first. All user-supplied values are escaped before interpolation into
// the JQL string.
func (c *Client) SearchIssues(ctx context.Context, filter SearchFilter) ([]Issue, error) {
	maxResults := filter.MaxResults
	if maxResults <= 0 || maxResults > 500 {
		maxResults = 50
	}
	query := url.Values{
		"jql":        {buildJQL(filter)},
		"maxResults": {strconv.Itoa(maxResults)},
		"fields":     {issueFields},
	}
	var result struct {
		Issues []issuePayload `json:"issues"`
	}
	if err := c.api.Do(ctx, http.MethodGet, "/rest/api/2/search", query, nil, &result); err != nil {
		return nil, errors.Wrap(err, "searching issues")
	}
	issues := make([]Issue, 0, len(result.Issues))
	for _, payload := range result.Issues {
		issues = append(issues, c.toIssue(payload))
	}
	return issues, nil
}

// CreateIssueInput describes a new issue.
type CreateIssueInput struct {
	ProjectKey  string
	Summary     string
	Description string
	IssueType   string
	Assignee    string
	DueDate     string
	Labels      []string
}

// CreateIssue creates an issue and returns its summary view.
func (c *Client) CreateIssue(ctx context.Context, input CreateIssueInput) (Issue, error) {
	issueType := input.IssueType
	if issueType == "" {
		issueType = "Task"
	}
	fields := map[string]any{
		"project":   map[string]string{"key": input.ProjectKey},
		"summary":   input.Summary,
		"issuetype": map[string]string{"name": issueType},
	}
	if input.Description != "" {
		fields["description"] = input.Description
	}
	if input.Assignee != "" {
		fields["assignee"] = map[string]string{"id": input.Assignee}
	}
	if input.DueDate != "" {
		fields["duedate"] = input.DueDate
	}
	if len(input.Labels) > 0 {
		fields["labels"] = input.Labels
	}
	var created struct {
		Key string `json:"key"`
	}
	if err := c.api.Do(ctx, http.MethodPost, "/rest/api/2/issue", nil, map[string]any{"fields": fields}, &created); err != nil {
		return Issue{}, errors.Wrap(err, "creating issue")
	}
	return c.GetIssue(ctx, created.Key)
}

// UpdateIssueInput carries the fields of an issue update. Zero values
// are left untouched; Labels replaces the whole set when non-nil.
type UpdateIssueInput struct {
	Summary     string
	Description string
	Assignee    string
	DueDate     string
	Status      string
	Labels      []string
}

// UpdateIssue patches the given fields and, when Status is set, walks
// the issue through the matching workflow transition. The transition
// name is matched case-insensitively against the transitions currently
// available on the issue.
func (c *Client) UpdateIssue(ctx context.Context, issueKey string, input UpdateIssueInput) (Issue, error) {
	fields := map[string]any{}
	if input.Summary != "" {
		fields["summary"] = input.Summary
	}
	if input.Description != "" {
		fields["description"] = input.Description
	}
	if input.Assignee != "" {
		fields["assignee"] = map[string]string{"id": input.Assignee}
	}
	if input.DueDate != "" {
		fields["duedate"] = input.DueDate
	}
	if input.Labels != nil {
		fields["labels"] = input.Labels
	}
	if len(fields) > 0 {
		body := map[string]any{"fields": fields}
		if err := c.api.Do(ctx, http.MethodPut, "/rest/api/2/issue/"+url.PathEscape(issueKey), nil, body, nil); err != nil {
			return Issue{}, mapIssueError(err, issueKey)
		}
	}
	if input.Status != "" {
		if err := c.transitionIssue(ctx, issueKey, input.Status); err != nil {
			return Issue{}, err
		}
	}
	return c.GetIssue(ctx, issueKey)
}

func (c *Client) transitionIssue(ctx context.Context, issueKey, status string) error {
	path := "/rest/api/2/issue/" + url.PathEscape(issueKey) + "/transitions"
	var available struct {
		Transitions []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"transitions"`
	}
	if err := c.api.Do(ctx, http.MethodGet, path, nil, nil, &available); err != nil {
		return mapIssueError(err, issueKey)
	}
	for _, t := range available.Transitions {
		if strings.EqualFold(t.Name, status) {
			body := map[string]any{"transition": map[string]string{"id": t.ID}}
			return mapIssueError(c.api.Do(ctx, http.MethodPost, path, nil, body, nil), issueKey)
		}
	}
	return errors.Errorf("no transition to status %q available on issue %s", status, issueKey)
}

// AddComment appends a comment to the issue.
func (c *Client) AddComment(ctx context.Context, issueKey, body string) error {
	err := c.api.Do(ctx, http.MethodPost, "/rest/api/2/issue/"+url.PathEscape(issueKey)+"/comment", nil, map[string]string{"body": body}, nil)
	return mapIssueError(err, issueKey)
}

func (c *Client) toIssue(payload issuePayload) Issue {
	issue := Issue{
		Key:            payload.Key,
		URL:            c.baseURL + "/browse/" + payload.Key,
		Summary:        payload.Fields.Summary,
		Status:         payload.Fields.Status.Name,
		StatusCategory: payload.Fields.Status.StatusCategory.Name,
		Labels:         payload.Fields.Labels,
		DueDate:        payload.Fields.DueDate,
		Updated:        payload.Fields.Updated,
	}
	if a := payload.Fields.Assignee; a != nil {
		issue.Assignee = a.DisplayName
		if issue.Assignee == "" {
			issue.Assignee = a.EmailAddress
		}
	}
	return issue
}

func buildJQL(filter SearchFilter) string {
	var conditions []string
	add := func(field, value string) {
		conditions = append(conditions, fmt.Sprintf(`%s = "%s"`, field, atlassian.EscapeQueryValue(value)))
	}
	if filter.ProjectKey != "" {
		add("project", filter.ProjectKey)
	}
	if filter.StatusCategory != "" {
		add("statusCategory", filter.StatusCategory)
	}
	if filter.Assignee != "" {
		add("assignee", filter.Assignee)
	}
	if filter.Label != "" {
		add("labels", filter.Label)
	}
	if filter.TextQuery != "" {
		conditions = append(conditions, fmt.Sprintf(`text ~ "%s"`, atlassian.EscapeQueryValue(filter.TextQuery)))
	}
	if len(conditions) == 0 {
		return "ORDER BY updated DESC"
	}
	return strings.Join(conditions, " AND ") + " ORDER BY updated DESC"
}

// mapIssueError wraps transport errors into the linkage taxonomy so
// callers never see raw HTTP status.
func mapIssueError(err error, issueKey string) error {
	if err == nil {
		return nil
	}
	switch atlassian.StatusOf(err) {
	case http.StatusNotFound:
		return errors.Wrapf(linkage.ErrIssueNotFound, "issue %s", issueKey)
	case http.StatusConflict:
		return errors.Wrapf(linkage.ErrConflict, "issue %s", issueKey)
	default:
		// 5xx, throttling exhaustion, and network failures all mean the
		// same thing to callers: the tracker cannot serve this issue now.
		return errors.Wrapf(linkage.ErrTrackerUnavailable, "issue %s: %s", issueKey, err)
	}
}
