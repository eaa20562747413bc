package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"newsdesk/internal/newsroom"
)

// terminal plays the admin screen's collaborators on a console: it prints
// notifications, navigation targets and share links and asks for
// confirmation on stdin.
type terminal struct {
	out    io.Writer
	in     *bufio.Reader
	origin string
}

func newTerminal(in io.Reader, out io.Writer, origin string) *terminal {
	return &terminal{out: out, in: bufio.NewReader(in), origin: origin}
}

func (t *terminal) Notify(n newsroom.Notification) {
	fmt.Fprintf(t.out, "%s: %s\n", n.Title, n.Description)
}

func (t *terminal) Navigate(path string) {
	fmt.Fprintf(t.out, "-> %s%s\n", t.origin, path)
}

func (t *terminal) Origin() string { return t.origin }

func (t *terminal) Open(url string, _, _ int) {
	fmt.Fprintln(t.out, url)
}

// Confirm accepts "j", "ja", "y" and "yes"; anything else, including EOF,
// declines.
func (t *terminal) Confirm(_ context.Context, message string) bool {
	fmt.Fprintf(t.out, "%s [j/N] ", message)
	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(t.out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "j", "ja", "y", "yes":
		return true
	}
	return false
}

// printPosts writes the filtered list as a table.
func printPosts(w io.Writer, st newsroom.State, loc *time.Location) {
	if len(st.Posts) == 0 {
		fmt.Fprintln(w, newsroom.EmptyText(st.Query))
		if st.PermissionError {
			fmt.Fprintln(w, newsroom.MsgPermissionHint)
		}
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITEL\tVERÖFFENTLICHT\tTAGS")
	for _, p := range st.Posts {
		keywords := p.MetaKeywords
		if keywords == "" {
			keywords = "-"
		}
		date := newsroom.FormatDate(p.DisplayDate().In(loc))
		if !p.Published() {
			date += " (Entwurf)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Title, date, keywords)
	}
	tw.Flush()
	fmt.Fprintf(w, "%d von %d\n", len(st.Posts), st.Total)
}
