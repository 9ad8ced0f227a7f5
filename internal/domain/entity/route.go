package entity

// Route is one origin/destination pair to crawl
type Route struct {
	Origin      string `csv:"origin"`
	Destination string `csv:"destination"`
}
