// Package web holds the HTML templates and static assets compiled into the binary.
package web

import (
	"embed"
	"io/fs"
)

//go:embed views public
var files embed.FS

// Views returns the template tree rooted at views/.
func Views() fs.FS {
	return mustSub("views")
}

// Public returns the static asset tree rooted at public/.
func Public() fs.FS {
	return mustSub("public")
}

func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(files, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
