// Package web provides the embedded HTML templates and stylesheet.
package web

import "embed"

//go:embed templates static
var Assets embed.FS
