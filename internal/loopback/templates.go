package loopback

import (
	_ "embed"
	"html/template"
)

//go:embed templates/status.html
var statusPageTemplateHTML string

var statusPageTemplate = template.Must(template.New("status").Parse(statusPageTemplateHTML))

// StatusPageData represents the data for the sign-in status page
type StatusPageData struct {
	Title       string
	ORCID       string
	DisplayName string
	Message     string
	MessageType string // "success", "error" or "pending"
}
