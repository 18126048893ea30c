package models

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Field limits, in characters, applied after trimming and sanitization.
const (
	MaxTitleLen   = 120
	MaxAuthorLen  = 60
	MaxTagLen     = 30
	MaxSummaryLen = 300
	MaxBodyLen    = 5000
	MaxImageLen   = 750000
)

const DefaultTag = "general"

type Post struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Date    string `json:"date"`
	Author  string `json:"author"`
	Tag     string `json:"tag"`
	Summary string `json:"summary"`
	Body    string `json:"body,omitempty"`
	Image   string `json:"image,omitempty"`
}

// PostInput is the raw create payload before normalization.
type PostInput struct {
	Title   string `json:"title"`
	Author  string `json:"author"`
	Summary string `json:"summary"`
	Tag     string `json:"tag"`
	Body    string `json:"body"`
	Date    string `json:"date"`
	Image   string `json:"image"`
}

type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return "Missing field: " + e.Field
}

var (
	scriptRe  = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	handlerRe = regexp.MustCompile(`(?i)on\w+="[^"]*"`)
)

// Sanitize strips <script> blocks and inline on*="..." handler
// attributes. It is a denylist and known to be bypassable; the posts
// document is only ever rendered by the site's own frontend.
func Sanitize(s string) string {
	s = scriptRe.ReplaceAllString(s, "")
	s = handlerRe.ReplaceAllString(s, "")
	return s
}

// NewPost validates and normalizes a create payload into a Post with a
// freshly generated id. Fields go through trim, sanitize, then
// truncate, in that order. A missing required field yields a
// *MissingFieldError.
func NewPost(in PostInput) (Post, error) {
	required := []struct {
		name, value string
	}{
		{"title", in.Title},
		{"author", in.Author},
		{"summary", in.Summary},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return Post{}, &MissingFieldError{Field: f.name}
		}
	}

	p := Post{
		ID:      NewPostID(),
		Title:   truncate(Sanitize(strings.TrimSpace(in.Title)), MaxTitleLen),
		Date:    in.Date,
		Author:  truncate(Sanitize(strings.TrimSpace(in.Author)), MaxAuthorLen),
		Tag:     truncate(Sanitize(strings.TrimSpace(in.Tag)), MaxTagLen),
		Summary: truncate(Sanitize(strings.TrimSpace(in.Summary)), MaxSummaryLen),
	}
	if p.Date == "" {
		p.Date = time.Now().UTC().Format(time.RFC3339)
	}
	if p.Tag == "" {
		p.Tag = DefaultTag
	}
	if in.Body != "" {
		p.Body = truncate(Sanitize(strings.TrimSpace(in.Body)), MaxBodyLen)
	}
	// Only data URIs with an image MIME type are kept; anything else is
	// dropped silently rather than rejected.
	if strings.HasPrefix(in.Image, "data:image/") {
		p.Image = truncate(in.Image, MaxImageLen)
	}
	return p, nil
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewPostID returns the creation timestamp in base36 plus a random
// 6-character base36 suffix, e.g. "lx2m9kfq-4g7a1z". Uniqueness rests
// on generation randomness; there is no check against existing posts.
func NewPostID() string {
	var sb strings.Builder
	sb.WriteString(strconv.FormatInt(time.Now().UnixMilli(), 36))
	sb.WriteByte('-')
	for i := 0; i < 6; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(base36))))
		if err != nil {
			// crypto/rand failing means the platform is broken; fall
			// back to a time-derived index rather than panicking.
			n = big.NewInt(time.Now().UnixNano() % int64(len(base36)))
		}
		sb.WriteByte(base36[n.Int64()])
	}
	return sb.String()
}

// Key identifies a post for deletion responses: the id when one is
// set, otherwise "<title>@<date>".
func (p Post) Key() string {
	if p.ID != "" {
		return p.ID
	}
	return fmt.Sprintf("%s@%s", p.Title, p.Date)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
