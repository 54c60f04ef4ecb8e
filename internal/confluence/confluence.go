// Package confluence implements the wiki page search and fetch wrappers
// over the Confluence Cloud REST API.
package confluence

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/pmbridge/pmbridge/internal/atlassian"
)

// Page is the summary view of a Confluence page.
type Page struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	SpaceKey string `json:"space_key,omitempty"`
	URL      string `json:"url,omitempty"`
	Excerpt  string `json:"excerpt,omitempty"`
	Body     string `json:"body,omitempty"`
}

// ErrPageNotFound is returned for unknown page identifiers.
var ErrPageNotFound = errors.New("page not found")

// Client talks to one Confluence Cloud site.
type Client struct {
	api     *atlassian.Client
	baseURL string
}

// New returns a Client for the given site.
func New(baseURL, email, token string) *Client {
	return &Client{
		api:     atlassian.New(baseURL, email, token),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// SearchPages runs a CQL text search, optionally scoped to one space.
// User-supplied values are escaped before interpolation into the CQL.
func (c *Client) SearchPages(ctx context.Context, query, spaceKey string, limit int) ([]Page, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	cqlParts := []string{fmt.Sprintf(`text ~ "%s"`, atlassian.EscapeQueryValue(query))}
	if spaceKey != "" {
		cqlParts = append(cqlParts, fmt.Sprintf(`space = "%s"`, atlassian.EscapeQueryValue(spaceKey)))
	}
	cqlParts = append(cqlParts, "type = page")

	params := url.Values{
		"cql":   {strings.Join(cqlParts, " AND ")},
		"limit": {strconv.Itoa(limit)},
	}
	var result struct {
		Results []struct {
			Content struct {
				ID    string `json:"id"`
				Title string `json:"title"`
				Space struct {
					Key string `json:"key"`
				} `json:"space"`
			} `json:"content"`
			Excerpt string `json:"excerpt"`
			URL     string `json:"url"`
		} `json:"results"`
	}
	if err := c.api.Do(ctx, http.MethodGet, "/rest/api/search", params, nil, &result); err != nil {
		return nil, errors.Wrap(err, "searching pages")
	}

	pages := make([]Page, 0, len(result.Results))
	for _, r := range result.Results {
		pages = append(pages, Page{
			ID:       r.Content.ID,
			Title:    r.Content.Title,
			SpaceKey: r.Content.Space.Key,
			URL:      c.baseURL + r.URL,
			Excerpt:  stripTags(r.Excerpt),
		})
	}
	return pages, nil
}

// GetPage fetches one page with its body rendered to plain text.
func (c *Client) GetPage(ctx context.Context, pageID string) (Page, error) {
	params := url.Values{"expand": {"body.storage,space"}}
	var result struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Space struct {
			Key string `json:"key"`
		} `json:"space"`
		Body struct {
			Storage struct {
				Value string `json:"value"`
			} `json:"storage"`
		} `json:"body"`
		Links struct {
			WebUI string `json:"webui"`
		} `json:"_links"`
	}
	err := c.api.Do(ctx, http.MethodGet, "/rest/api/content/"+url.PathEscape(pageID), params, nil, &result)
	if err != nil {
		if atlassian.StatusOf(err) == http.StatusNotFound {
			return Page{}, errors.Wrapf(ErrPageNotFound, "page %s", pageID)
		}
		return Page{}, errors.Wrapf(err, "fetching page %s", pageID)
	}
	return Page{
		ID:       result.ID,
		Title:    result.Title,
		SpaceKey: result.Space.Key,
		URL:      c.baseURL + result.Links.WebUI,
		Body:     stripTags(result.Body.Storage.Value),
	}, nil
}

// CreatePage creates a page in the given space, optionally under a
// parent page. The body is plain text; newlines become line breaks in
// the stored storage-format markup.
func (c *Client) CreatePage(ctx context.Context, spaceKey, title, body, parentPageID string) (Page, error) {
	payload := map[string]any{
		"type":  "page",
		"title": title,
		"space": map[string]string{"key": spaceKey},
		"body": map[string]any{
			"storage": map[string]string{
				"value":          textToStorage(body),
				"representation": "storage",
			},
		},
	}
	if parentPageID != "" {
		payload["ancestors"] = []map[string]string{{"id": parentPageID}}
	}

	var result struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Space struct {
			Key string `json:"key"`
		} `json:"space"`
		Links struct {
			WebUI string `json:"webui"`
		} `json:"_links"`
	}
	if err := c.api.Do(ctx, http.MethodPost, "/rest/api/content", nil, payload, &result); err != nil {
		return Page{}, errors.Wrapf(err, "creating page %q in space %s", title, spaceKey)
	}
	return Page{
		ID:       result.ID,
		Title:    result.Title,
		SpaceKey: result.Space.Key,
		URL:      c.baseURL + result.Links.WebUI,
	}, nil
}

// textToStorage escapes plain text into minimal storage-format markup.
// Full rich-text conversion is out of scope; line structure survives.
func textToStorage(text string) string {
	escaper := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return strings.ReplaceAll(escaper.Replace(text), "\n", "<br/>")
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// stripTags reduces Confluence storage-format markup to readable text.
// Block boundaries become newlines; everything else is dropped.
func stripTags(html string) string {
	if html == "" {
		return ""
	}
	for _, boundary := range []string{"</p>", "</li>", "<br/>", "<br />", "</h1>", "</h2>", "</h3>", "</tr>"} {
		html = strings.ReplaceAll(html, boundary, "\n")
	}
	text := tagPattern.ReplaceAllString(html, "")
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
