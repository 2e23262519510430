// Package prompts holds the dotprompt files shared by every model provider
package prompts

import "embed"

// Highlights extracts notable points from a batch of "@account: text" posts
const Highlights = "highlights"

//go:embed *.prompt
var FS embed.FS
