package newsroom

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"newsdesk/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShareURL(t *testing.T) {
	post := model.Post{Title: "Hello", Slug: "hello-world"}
	got := ShareURL("https://example.com", post)

	assert.Contains(t, got, "url=https%3A%2F%2Fexample.com%2Fnews%2Fhello-world")
	assert.Contains(t, got, "title=Hello")
	assert.Contains(t, got, "summary=")
	assert.Equal(t,
		"https://www.linkedin.com/sharing/share-offsite/?url=https%3A%2F%2Fexample.com%2Fnews%2Fhello-world&title=Hello&summary=",
		got)
}

func TestShareURL_EncodesTitleAndSummary(t *testing.T) {
	post := model.Post{
		Title:           "KMU & Partner: 100% Einsatz",
		Slug:            "kmu-partner",
		MetaDescription: "Grüezi mitenand",
	}
	got := ShareURL("https://kmu-verein.ch/", post)

	parsed, err := url.Parse(got)
	require.NoError(t, err)
	q := parsed.Query()
	assert.Equal(t, "https://kmu-verein.ch/news/kmu-partner", q.Get("url"))
	assert.Equal(t, post.Title, q.Get("title"))
	assert.Equal(t, post.MetaDescription, q.Get("summary"))
	assert.NotContains(t, got, "+", "spaces are encoded as %20")
}

func TestFormatDate(t *testing.T) {
	ts, err := time.Parse(time.RFC3339, "2024-03-05T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, "5. März 2024", FormatDate(ts))

	assert.Equal(t, "31. Dezember 1999", FormatDate(time.Date(1999, 12, 31, 23, 0, 0, 0, time.UTC)))
}

func TestImageSource(t *testing.T) {
	assert.Equal(t, "https://example.com/a.png", ImageSource("https://example.com/a.png", nil))
	assert.Equal(t, PlaceholderImage, ImageSource("", nil))
	assert.Equal(t, PlaceholderImage, ImageSource("https://example.com/a.png", errors.New("404")))
}
