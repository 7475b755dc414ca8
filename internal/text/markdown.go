package text

import "regexp"

var (
	editLinkRe = regexp.MustCompile(`(?mi)^\[edit[^\]]*\]\([^\)]+\)\s*$`)
	// "## Table of Contents" or "## Contents" followed by at least one anchor-only list item
	tocRe = regexp.MustCompile(`(?mi)^#{1,3}[ \t]+(?:table of )?contents[ \t]*\n(?:[ \t]*\n)*(?:[ \t]*[-*][ \t]+\[[^\]\n]*\]\(#[^)\n]*\)[ \t]*(?:\n|$))+`)
)

// CleanMarkdownNoise strips documentation boilerplate that carries no knowledge:
// "edit this page" links and generated tables of contents.
func CleanMarkdownNoise(text string) string {
	text = editLinkRe.ReplaceAllString(text, "")
	return tocRe.ReplaceAllString(text, "")
}
