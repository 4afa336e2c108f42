// Package markdown renders page content to HTML and resolves wiki links.
//
// Wiki links use the syntax #page-slug. Known slugs become regular links
// to the page; unknown slugs render as red spans so authors can spot
// pages that do not exist yet.
package markdown

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"lorebook/internal/domain/models/wiki"
)

// wikiLinkRE matches #slug references. Go's regexp has no lookbehind, so
// the leading non-word character (or start of input) is captured and
// re-emitted on replacement; "foo#bar" is not a wiki link.
var wikiLinkRE = regexp.MustCompile(`(^|[^0-9A-Za-z_])#([a-z0-9]+(?:-[a-z0-9]+)*)`)

// PageResolver looks up pages for a set of slugs.
type PageResolver interface {
	GetBySlugs(ctx context.Context, slugs []string) ([]wiki.Page, error)
}

// Service converts markdown page content to HTML.
type Service struct {
	pages  PageResolver
	md     goldmark.Markdown
	logger *slog.Logger
}

// NewService creates a markdown rendering service. The goldmark instance
// is built once and shared; parsing creates per-call state so it is safe
// for concurrent use.
func NewService(pages PageResolver, logger *slog.Logger) *Service {
	return &Service{
		pages: pages,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			// Raw HTML must pass through for the red-link spans injected
			// before rendering. Page content is team-authored.
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
		logger: logger,
	}
}

// Rendered is the output of one Render call.
type Rendered struct {
	HTML string

	// LinkedPageIDs are the IDs of pages referenced by resolved wiki
	// links, in order of first appearance. Callers persist these as the
	// page's outgoing links.
	LinkedPageIDs []string
}

// Render resolves wiki links in content and renders it to HTML.
func (s *Service) Render(ctx context.Context, content string) (*Rendered, error) {
	resolved, linkedIDs, err := s.resolveWikiLinks(ctx, content)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := s.md.Convert([]byte(resolved), &buf); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	return &Rendered{HTML: buf.String(), LinkedPageIDs: linkedIDs}, nil
}

// ExtractSlugs returns the unique wiki link slugs in content, in order
// of first appearance.
func ExtractSlugs(content string) []string {
	var slugs []string
	seen := make(map[string]struct{})
	for _, m := range wikiLinkRE.FindAllStringSubmatch(content, -1) {
		slug := m[2]
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}
		slugs = append(slugs, slug)
	}
	return slugs
}

// resolveWikiLinks replaces #slug references with markdown links for
// known pages and red spans for unknown ones.
func (s *Service) resolveWikiLinks(ctx context.Context, content string) (string, []string, error) {
	slugs := ExtractSlugs(content)
	if len(slugs) == 0 {
		return content, nil, nil
	}

	pages, err := s.pages.GetBySlugs(ctx, slugs)
	if err != nil {
		return "", nil, fmt.Errorf("resolve wiki links: %w", err)
	}
	bySlug := make(map[string]*wiki.Page, len(pages))
	for i := range pages {
		bySlug[pages[i].Slug] = &pages[i]
	}

	var linkedIDs []string
	linked := make(map[string]struct{})
	out := wikiLinkRE.ReplaceAllStringFunc(content, func(match string) string {
		prefix, slug, ok := strings.Cut(match, "#")
		if !ok {
			return match
		}
		page, found := bySlug[slug]
		if !found {
			return prefix + fmt.Sprintf(`<span class="wiki-link-missing" title="Page not found">#%s</span>`, slug)
		}
		if _, dup := linked[page.ID]; !dup {
			linked[page.ID] = struct{}{}
			linkedIDs = append(linkedIDs, page.ID)
		}
		return prefix + fmt.Sprintf("[%s](/pages/%s)", page.Title, page.Slug)
	})

	return out, linkedIDs, nil
}
