package models_test

import (
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rfaulkner7/semaj/internal/models"
)

func validInput() models.PostInput {
	return models.PostInput{
		Title:   "Hi",
		Author:  "A",
		Summary: "s",
	}
}

func TestNewPost_RequiredFields(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		alter func(*models.PostInput)
		field string
	}{
		{"missing title", func(in *models.PostInput) { in.Title = "" }, "title"},
		{"missing author", func(in *models.PostInput) { in.Author = "" }, "author"},
		{"missing summary", func(in *models.PostInput) { in.Summary = "" }, "summary"},
		{"whitespace title", func(in *models.PostInput) { in.Title = "   \t" }, "title"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			in := validInput()
			tc.alter(&in)
			_, err := models.NewPost(in)
			var missing *models.MissingFieldError
			require.ErrorAs(t, err, &missing)
			require.Equal(t, tc.field, missing.Field)
			require.Equal(t, "Missing field: "+tc.field, err.Error())
		})
	}
}

func TestNewPost_Defaults(t *testing.T) {
	t.Parallel()

	before := time.Now().UTC()
	p, err := models.NewPost(validInput())
	require.NoError(t, err)

	require.NotEmpty(t, p.ID)
	require.Equal(t, models.DefaultTag, p.Tag)

	created, err := time.Parse(time.RFC3339, p.Date)
	require.NoError(t, err)
	require.False(t, created.Before(before.Truncate(time.Second)))
	require.False(t, created.After(time.Now().UTC().Add(time.Second)))
}

func TestNewPost_KeepsProvidedDate(t *testing.T) {
	t.Parallel()

	in := validInput()
	in.Date = "2024-01-01T00:00:00Z"
	p, err := models.NewPost(in)
	require.NoError(t, err)
	require.Equal(t, "2024-01-01T00:00:00Z", p.Date)
}

func TestNewPost_Sanitizes(t *testing.T) {
	t.Parallel()

	in := validInput()
	in.Title = `Hello <script>alert(1)</script>world`
	in.Summary = `<SCRIPT type="text/javascript">
		steal()
	</ScRiPt>clean`
	in.Body = `<div onclick="evil()" onmouseover="more()">text</div>`
	p, err := models.NewPost(in)
	require.NoError(t, err)

	require.Equal(t, "Hello world", p.Title)
	require.Equal(t, "clean", p.Summary)
	require.NotContains(t, strings.ToLower(p.Body), "<script")
	require.NotRegexp(t, `(?i)on\w+="`, p.Body)
	require.Contains(t, p.Body, "text")
}

func TestNewPost_Truncates(t *testing.T) {
	t.Parallel()

	in := validInput()
	in.Title = strings.Repeat("t", 500)
	in.Author = strings.Repeat("a", 500)
	in.Tag = strings.Repeat("g", 500)
	in.Summary = strings.Repeat("s", 500)
	in.Body = strings.Repeat("b", 6000)
	p, err := models.NewPost(in)
	require.NoError(t, err)

	require.Len(t, p.Title, models.MaxTitleLen)
	require.Len(t, p.Author, models.MaxAuthorLen)
	require.Len(t, p.Tag, models.MaxTagLen)
	require.Len(t, p.Summary, models.MaxSummaryLen)
	require.Len(t, p.Body, models.MaxBodyLen)
}

func TestNewPost_ImageAcceptance(t *testing.T) {
	t.Parallel()

	in := validInput()
	in.Image = "notadata:uri"
	p, err := models.NewPost(in)
	require.NoError(t, err)
	require.Empty(t, p.Image, "non data:image/ value should be dropped")

	in.Image = "data:image/png;base64,iVBORw0KGgo="
	p, err = models.NewPost(in)
	require.NoError(t, err)
	require.Equal(t, in.Image, p.Image)
}

func TestNewPostID_Format(t *testing.T) {
	t.Parallel()

	idRe := regexp.MustCompile(`^[0-9a-z]+-[0-9a-z]{6}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id := models.NewPostID()
		require.Regexp(t, idRe, id)
		require.False(t, seen[id], "generated a duplicate id: %s", id)
		seen[id] = true
	}
}

func TestNewPost_DistinctIDs(t *testing.T) {
	t.Parallel()

	a, err := models.NewPost(validInput())
	require.NoError(t, err)
	b, err := models.NewPost(validInput())
	require.NoError(t, err)
	require.NotEqual(t, a.ID, b.ID, "repeated creates must produce distinct records")
}

func TestPostKey(t *testing.T) {
	t.Parallel()

	p := models.Post{ID: "x1", Title: "T", Date: "2024-01-01"}
	require.Equal(t, "x1", p.Key())

	p.ID = ""
	require.Equal(t, "T@2024-01-01", p.Key())
}

func TestSanitize_MissingError(t *testing.T) {
	t.Parallel()

	_, err := models.NewPost(models.PostInput{})
	require.Error(t, err)
	require.True(t, errors.As(err, new(*models.MissingFieldError)))
}
