package newsroom

import (
	"fmt"
	"time"
)

// PlaceholderImage replaces post images that are missing or fail to load.
const PlaceholderImage = "https://placehold.co/100x60?text=Kein+Bild"

var germanMonths = [...]string{
	"Januar", "Februar", "März", "April", "Mai", "Juni",
	"Juli", "August", "September", "Oktober", "November", "Dezember",
}

// FormatDate renders t as a Swiss German long date, e.g. "5. März 2024".
// t is formatted in its own location.
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d. %s %d", t.Day(), germanMonths[t.Month()-1], t.Year())
}

// ImageSource returns the image to display for imageURL given the outcome of
// loading it.
func ImageSource(imageURL string, loadErr error) string {
	if imageURL == "" || loadErr != nil {
		return PlaceholderImage
	}
	return imageURL
}
