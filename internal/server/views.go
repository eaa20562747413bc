package web

import (
	"html/template"
	"time"

	"newsdesk/internal/model"
	"newsdesk/internal/newsroom"
)

// PostRow is a post shaped for the admin table.
type PostRow struct {
	ID       string
	Title    string
	Slug     string
	Date     time.Time
	Keywords string
	ImageURL string
}

// NewPostRow creates a row from a post. Drafts show their creation date and
// posts without keywords show "-".
func NewPostRow(p model.Post) PostRow {
	keywords := p.MetaKeywords
	if keywords == "" {
		keywords = "-"
	}
	return PostRow{
		ID:       p.ID,
		Title:    p.Title,
		Slug:     p.Slug,
		Date:     p.DisplayDate(),
		Keywords: keywords,
		ImageURL: p.ImageURL,
	}
}

type listPage struct {
	Title           string
	User            string
	Rows            []PostRow
	Query           string
	Total           int
	Loaded          bool
	PermissionError bool
	EmptyText       string
	Flashes         []newsroom.Notification
	ImportEnabled   bool
	ShareWidth      int
	ShareHeight     int
	CSRF            string
}

func newListPage(user string, st newsroom.State, flashes []newsroom.Notification, importEnabled bool) listPage {
	rows := make([]PostRow, len(st.Posts))
	for i, p := range st.Posts {
		rows[i] = NewPostRow(p)
	}

	return listPage{
		Title:           "Alle Medienmitteilungen",
		User:            user,
		Rows:            rows,
		Query:           st.Query,
		Total:           st.Total,
		Loaded:          st.Loaded,
		PermissionError: st.PermissionError,
		EmptyText:       newsroom.EmptyText(st.Query),
		Flashes:         flashes,
		ImportEnabled:   importEnabled,
		ShareWidth:      newsroom.ShareWindowWidth,
		ShareHeight:     newsroom.ShareWindowHeight,
	}
}

type confirmPage struct {
	Title   string
	Prompt  string
	PostID  string
	Subject string
	Query   string
	CSRF    string
	Flashes []newsroom.Notification
}

type viewPage struct {
	Title    string
	Date     time.Time
	ImageURL string
	Content  template.HTML
	Flashes  []newsroom.Notification
}
