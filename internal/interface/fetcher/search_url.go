package fetcher

import (
	"net/url"
	"strings"
)

// BuildSearchURL fills the {origin}, {destination} and {date} placeholders of a template
func BuildSearchURL(template, origin, destination, date string) string {
	return strings.NewReplacer(
		"{origin}", url.QueryEscape(strings.ToLower(origin)),
		"{destination}", url.QueryEscape(strings.ToLower(destination)),
		"{date}", url.QueryEscape(date),
	).Replace(template)
}
