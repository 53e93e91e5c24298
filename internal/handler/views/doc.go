// Package views holds the server's HTML pages. The *_templ.go files are
// generated from the .templ sources by `templ generate`.
package views
