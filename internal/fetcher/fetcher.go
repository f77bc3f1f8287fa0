// Package fetcher downloads trading reports over HTTP.
package fetcher

import (
	"context"
	"net/url"
	"path"
)

// Report is a downloaded document.
type Report struct {
	URL         string
	Name        string
	ContentType string
	Body        []byte
}

// Fetcher defines the interface for downloading remote reports.
type Fetcher interface {
	// Fetch downloads the URL and returns its body and content type.
	Fetch(ctx context.Context, url string) (*Report, error)
}

// reportName derives a file name for the upload log from the URL path.
func reportName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "report.html"
	}
	return path.Base(u.Path)
}
