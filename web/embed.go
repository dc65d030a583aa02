// Package web holds the month page, the print summary and their assets,
// embedded into the server binary.
package web

import "embed"

// TemplatesFS embeds the month and print page templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds the page script and stylesheet.
//
//go:embed static/*
var StaticFS embed.FS
