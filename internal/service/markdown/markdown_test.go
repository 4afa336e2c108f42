package markdown

import (
	"context"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"testing"

	"lorebook/internal/domain/models/wiki"
)

type fakeResolver struct {
	pages map[string]wiki.Page // slug -> page
}

func (f fakeResolver) GetBySlugs(ctx context.Context, slugs []string) ([]wiki.Page, error) {
	var out []wiki.Page
	for _, slug := range slugs {
		if p, ok := f.pages[slug]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func newTestService(pages map[string]wiki.Page) *Service {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewService(fakeResolver{pages: pages}, logger)
}

func TestExtractSlugs(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"single link", "see #runbook for details", []string{"runbook"}},
		{"link at start", "#runbook is the place", []string{"runbook"}},
		{"hyphenated slug", "see #on-call-guide", []string{"on-call-guide"}},
		{"word boundary rejected", "foo#bar is not a link", nil},
		{"duplicates collapsed", "#a then #b then #a", []string{"a", "b"}},
		{"uppercase not a slug", "#Runbook", nil},
		{"no links", "plain text only", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractSlugs(tt.content)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractSlugs(%q) = %v, want %v", tt.content, got, tt.want)
			}
		})
	}
}

func TestRender_ResolvesKnownLinks(t *testing.T) {
	svc := newTestService(map[string]wiki.Page{
		"runbook": {ID: "p1", Slug: "runbook", Title: "Incident Runbook"},
	})

	out, err := svc.Render(context.Background(), "see #runbook first")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(out.HTML, `<a href="/pages/runbook">Incident Runbook</a>`) {
		t.Errorf("expected resolved link in output, got %q", out.HTML)
	}
	if !reflect.DeepEqual(out.LinkedPageIDs, []string{"p1"}) {
		t.Errorf("expected linked page IDs [p1], got %v", out.LinkedPageIDs)
	}
}

func TestRender_UnknownSlugIsRedLink(t *testing.T) {
	svc := newTestService(nil)

	out, err := svc.Render(context.Background(), "see #missing-page")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(out.HTML, `class="wiki-link-missing"`) {
		t.Errorf("expected red-link span, got %q", out.HTML)
	}
	if !strings.Contains(out.HTML, "#missing-page") {
		t.Errorf("expected original slug preserved in span, got %q", out.HTML)
	}
	if len(out.LinkedPageIDs) != 0 {
		t.Errorf("unknown slugs must not produce linked IDs, got %v", out.LinkedPageIDs)
	}
}

func TestRender_RepeatedLinkCountedOnce(t *testing.T) {
	svc := newTestService(map[string]wiki.Page{
		"runbook": {ID: "p1", Slug: "runbook", Title: "Runbook"},
	})

	out, err := svc.Render(context.Background(), "#runbook and again #runbook")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !reflect.DeepEqual(out.LinkedPageIDs, []string{"p1"}) {
		t.Errorf("expected one linked ID, got %v", out.LinkedPageIDs)
	}
	if got := strings.Count(out.HTML, `<a href="/pages/runbook">`); got != 2 {
		t.Errorf("expected both occurrences rendered as links, got %d", got)
	}
}

func TestRender_GFMAndHeadingIDs(t *testing.T) {
	svc := newTestService(nil)

	content := "# On Call\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\n~~done~~\n"
	out, err := svc.Render(context.Background(), content)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(out.HTML, `<h1 id="on-call">On Call</h1>`) {
		t.Errorf("expected heading with generated id, got %q", out.HTML)
	}
	if !strings.Contains(out.HTML, "<table>") {
		t.Errorf("expected GFM table rendering, got %q", out.HTML)
	}
	if !strings.Contains(out.HTML, "<del>done</del>") {
		t.Errorf("expected strikethrough rendering, got %q", out.HTML)
	}
}

func TestRender_NoLinksSkipsResolution(t *testing.T) {
	svc := newTestService(nil)

	out, err := svc.Render(context.Background(), "just *text*")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(out.HTML, "<em>text</em>") {
		t.Errorf("expected emphasis rendering, got %q", out.HTML)
	}
}
