package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Atom feed structures for the arXiv API.

type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID         string         `xml:"id"`
	Title      string         `xml:"title"`
	Summary    string         `xml:"summary"`
	Authors    []atomAuthor   `xml:"author"`
	Categories []atomCategory `xml:"category"`
	Primary    atomCategory   `xml:"primary_category"`
	Links      []atomLink     `xml:"link"`
	Published  string         `xml:"published"`
	Updated    string         `xml:"updated"`
	Comment    string         `xml:"comment"`
	JournalRef string         `xml:"journal_ref"`
	DOI        string         `xml:"doi"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
}

func (c *Client) getFeed(ctx context.Context, url string) (*atomFeed, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("parse xml: %w", err)
	}
	return &feed, nil
}

// parseEntry converts an atom entry to a Paper.
func parseEntry(entry atomEntry) Paper {
	// Extract ID from the URL (e.g., http://arxiv.org/abs/2301.00001v1 -> 2301.00001)
	paperID := ""
	if idx := strings.LastIndex(entry.ID, "/abs/"); idx >= 0 {
		paperID = entry.ID[idx+5:]
		// Remove version suffix
		if vIdx := strings.LastIndex(paperID, "v"); vIdx > 0 {
			paperID = paperID[:vIdx]
		}
	}

	var authors []string
	for _, a := range entry.Authors {
		authors = append(authors, a.Name)
	}

	var categories []string
	for _, c := range entry.Categories {
		categories = append(categories, c.Term)
	}

	primary := entry.Primary.Term
	if primary == "" && len(categories) > 0 {
		primary = categories[0]
	}

	pdfURL := ""
	for _, l := range entry.Links {
		if l.Title == "pdf" {
			pdfURL = l.Href
			break
		}
	}
	if pdfURL == "" && paperID != "" {
		pdfURL = "https://arxiv.org/pdf/" + paperID + ".pdf"
	}

	p := Paper{
		ID:              paperID,
		Title:           collapseSpace(entry.Title),
		Abstract:        strings.TrimSpace(entry.Summary),
		Authors:         authors,
		PDFURL:          pdfURL,
		PrimaryCategory: primary,
		Categories:      categories,
		Comments:        entry.Comment,
		JournalRef:      entry.JournalRef,
		DOI:             entry.DOI,
	}

	p.Published, _ = time.Parse(time.RFC3339, entry.Published)
	p.Updated, _ = time.Parse(time.RFC3339, entry.Updated)

	return p
}

// collapseSpace trims and joins the line-wrapped titles the arXiv feed emits.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
