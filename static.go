// Package dashboard embeds the browser front end served by cmd/dashboard.
package dashboard

import "embed"

//go:embed static/*
var StaticFiles embed.FS
