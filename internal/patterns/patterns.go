// internal/patterns/patterns.go

// Package patterns extracts a best-effort demo link and preview image from
// README text. The heuristics are deliberately simple: only the first 100
// lines are scanned and only the first match per rule is taken. Consumers of
// the cached data expect this exact behavior, imprecision included, so do not
// "improve" the matching here.
package patterns

import (
	"fmt"
	"regexp"
	"strings"
)

const rawContentHost = "https://raw.githubusercontent.com"

// maxScanLines bounds work on pathological READMEs.
const maxScanLines = 100

var (
	demoRe     = regexp.MustCompile(`(?i)demo`)
	urlRe      = regexp.MustCompile(`(?i)https?://[^\s)]+`)
	imageExtRe = regexp.MustCompile(`(?i)\.(?:png|jpg|jpeg|gif|webp|svg|ico)(?:\?|$)`)

	// Image patterns in priority order: markdown with an explicit image
	// extension, any markdown image, then HTML img tags.
	markdownImageExtRe = regexp.MustCompile(`(?i)!\[.*?\]\(([^)]+\.(?:png|jpg|jpeg|gif|webp|svg))\)`)
	markdownImageRe    = regexp.MustCompile(`(?i)!\[.*?\]\(([^)]+)\)`)
	htmlImageRe        = regexp.MustCompile(`(?i)<img[^>]+src=["']([^"']+)["'][^>]*>`)

	leadingRelativeRe = regexp.MustCompile(`^\.?/`)
)

// Result holds whatever the extractor could find. Either field may be nil.
type Result struct {
	DemoLink     *string
	ProjectImage *string
}

// Extract runs both extraction rules over the README content. Empty content
// yields an empty Result.
func Extract(content, owner, repoName string) Result {
	return Result{
		DemoLink:     ExtractDemoLink(content),
		ProjectImage: ExtractProjectImage(content, owner, repoName),
	}
}

// ExtractDemoLink returns the first URL following the first occurrence of the
// word "demo" (case-insensitive), or nil. A URL pointing at an image is
// discarded rather than falling back to a later match.
func ExtractDemoLink(content string) *string {
	if content == "" {
		return nil
	}

	head := firstLines(content, maxScanLines)

	loc := demoRe.FindStringIndex(head)
	if loc == nil {
		return nil
	}

	afterDemo := head[loc[1]:]

	link := urlRe.FindString(afterDemo)
	if link == "" {
		return nil
	}

	if imageExtRe.MatchString(link) {
		return nil
	}

	return &link
}

// ExtractProjectImage returns the first image reference found in the README,
// trying the patterns in priority order rather than document order. Relative
// paths are rewritten against the raw content host; the branch is always
// assumed to be "main".
func ExtractProjectImage(content, owner, repoName string) *string {
	if content == "" {
		return nil
	}

	head := firstLines(content, maxScanLines)

	for _, re := range []*regexp.Regexp{markdownImageExtRe, markdownImageRe, htmlImageRe} {
		m := re.FindStringSubmatch(head)
		if m == nil {
			continue
		}

		image := m[1]
		if !strings.HasPrefix(image, "http") {
			image = leadingRelativeRe.ReplaceAllString(image, "")
			image = fmt.Sprintf("%s/%s/%s/main/%s", rawContentHost, owner, repoName, image)
		}
		return &image
	}

	return nil
}

func firstLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}
