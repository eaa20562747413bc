package newsroom

import (
	"net/url"
	"strings"

	"newsdesk/internal/model"
)

const linkedInShareEndpoint = "https://www.linkedin.com/sharing/share-offsite/"

// PublicURL is the absolute link to a post on the public site.
func PublicURL(origin, slug string) string {
	return strings.TrimRight(origin, "/") + PublicPath(slug)
}

// ShareURL builds the LinkedIn share-offsite link for post. The summary is
// the meta description, empty when the post has none.
func ShareURL(origin string, post model.Post) string {
	return linkedInShareEndpoint +
		"?url=" + encodeComponent(PublicURL(origin, post.Slug)) +
		"&title=" + encodeComponent(post.Title) +
		"&summary=" + encodeComponent(post.MetaDescription)
}

// encodeComponent escapes s for a query value, spaces as %20.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
