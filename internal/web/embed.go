// Package web embeds the browser UI served at the site root.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static/*.html static/*.css static/*.js
var StaticFS embed.FS

// Static returns the UI assets rooted at the static directory.
func Static() fs.FS {
	sub, err := fs.Sub(StaticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
