package arxiv

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Paper is a normalized arXiv paper record. It is immutable once fetched.
type Paper struct {
	// ID is the arXiv identifier without version suffix
	// (e.g., "2301.00001" or "hep-th/9901001")
	ID string

	// Title of the paper
	Title string

	// Authors in submission order
	Authors []string

	// Abstract text
	Abstract string

	// PDFURL is the document download URL
	PDFURL string

	// Published is when the paper was first submitted
	Published time.Time

	// Updated is when the paper was last updated
	Updated time.Time

	// PrimaryCategory is the first listed category
	PrimaryCategory string

	// Categories lists all arXiv categories
	Categories []string

	// Comments from the submitter (e.g., "10 pages, 3 figures")
	Comments string

	// JournalRef is the journal reference if published
	JournalRef string

	// DOI is the Digital Object Identifier if available
	DOI string
}

// AuthorList returns the authors joined as a single display string.
func (p *Paper) AuthorList() string {
	return strings.Join(p.Authors, ", ")
}

// CategoryList returns the categories joined as a single display string.
func (p *Paper) CategoryList() string {
	return strings.Join(p.Categories, ", ")
}

// AbstractURL returns the arXiv abstract page URL.
func (p *Paper) AbstractURL() string {
	return "https://arxiv.org/abs/" + p.ID
}

// FileStem returns the deterministic base name used for files derived from
// this paper: the title truncated to 20 characters plus the publish date.
// Truncation counts runes, not bytes, so multi-byte titles stay intact.
func (p *Paper) FileStem() string {
	return sanitizeName(TruncateRunes(p.Title, 20)) + "_" + p.Published.Format("20060102")
}

// TruncateRunes returns at most n leading runes of s.
func TruncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// sanitizeName replaces characters that are unsafe in file names.
func sanitizeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}
