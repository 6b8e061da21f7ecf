package calendar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// describeHTTPError enriches a failed CalDAV call. Misconfigured endpoints
// and rejected credentials often answer with an HTML login or error page
// rather than a DAV response; probing the endpoint and surfacing the page
// title turns that into an actionable message for the enrollment dialog.
func (c *Client) describeHTTPError(ctx context.Context, creds Credentials, err error) error {
	title := c.probeHTMLTitle(ctx, creds)
	if title == "" {
		return err
	}
	return fmt.Errorf("%w (server answered with an HTML page: %q)", err, title)
}

// probeHTMLTitle fetches the endpoint once and returns the page <title>
// when the response is HTML, empty string otherwise.
func (c *Client) probeHTMLTitle(ctx context.Context, creds Credentials) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, creds.URL, nil)
	if err != nil {
		return ""
	}
	req.SetBasicAuth(creds.Username, creds.Password)

	resp, err := (&http.Client{Timeout: c.timeout}).Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
