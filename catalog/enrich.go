// Copyright 2026 The Prasat Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// PageMetadata holds the fields extracted from a destination's source page.
type PageMetadata struct {
	Title       string
	Description string
}

// asReader converts an HTTP response body to an io.Reader with the correct charset.
func asReader(resp *http.Response) (io.Reader, error) {
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	media := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(media), "text/html") {
		return nil, fmt.Errorf("media type is %s", media)
	}

	return charset.NewReader(resp.Body, media)
}

func nodeText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		tmp := strings.TrimSpace(n.Data)
		if len(tmp) > 0 {
			if sb.Len() != 0 {
				sb.WriteByte(' ')
			}

			sb.WriteString(tmp)
		}

		return
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		nodeText(child, sb)
	}
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}

	return ""
}

func extractMetadata(n *html.Node, meta *PageMetadata) {
	if n.Type == html.ElementNode {
		switch {
		case strings.EqualFold(n.Data, "title") && meta.Title == "":
			sb := strings.Builder{}
			nodeText(n, &sb)
			meta.Title = sb.String()
		case strings.EqualFold(n.Data, "meta"):
			name := attr(n, "name")
			if (strings.EqualFold(name, "description") || strings.EqualFold(attr(n, "property"), "og:description")) &&
				meta.Description == "" {
				meta.Description = strings.TrimSpace(attr(n, "content"))
			}
		case strings.EqualFold(n.Data, "body"):
			// metadata lives in head; no need to descend further
			return
		}
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		extractMetadata(child, meta)
	}
}

// FetchPageMetadata downloads a destination's source page and extracts its
// title and description, used to backfill seeds that lack a name or summary.
func FetchPageMetadata(ctx context.Context, client *http.Client, pageURL string) (*PageMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building metadata request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching source page: %w", err)
	}

	defer resp.Body.Close()

	r, err := asReader(resp)
	if err != nil {
		return nil, err
	}

	n, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing body as HTML: %w", err)
	}

	meta := &PageMetadata{}
	extractMetadata(n, meta)

	if meta.Title == "" && meta.Description == "" {
		return nil, fmt.Errorf("no usable metadata at %s", pageURL)
	}

	return meta, nil
}
