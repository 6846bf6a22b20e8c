// Package assets embeds the upload page served by the web server.
// index.html is generated from index.html.tpl by cmd/minify.
package assets

import _ "embed"

//go:embed index.html
var Index []byte

//go:embed favicon.svg
var Favicon []byte
