// Package web embeds the simulator's HTML templates and static assets.
package web

import "embed"

// Templates holds layout.html and the page templates.
//
//go:embed templates/*.html
var Templates embed.FS

// Static holds CSS and other assets served under /static/.
//
//go:embed static
var Static embed.FS
