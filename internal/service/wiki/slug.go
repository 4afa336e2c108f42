package wiki

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	wikiRepo "lorebook/internal/domain/repositories/wiki"
)

var (
	slugInvalidRE  = regexp.MustCompile(`[^a-z0-9]+`)
	slugCollapseRE = regexp.MustCompile(`-{2,}`)
)

// Slugify converts a title to slug form: lowercase, alphanumerics and
// single hyphens only.
func Slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = slugInvalidRE.ReplaceAllString(slug, "-")
	slug = slugCollapseRE.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// uniqueSlug derives a slug from title and suffixes -2, -3, ... until it
// is free. excludePageID skips the page being renamed so it can keep its
// own slug.
func uniqueSlug(ctx context.Context, pages wikiRepo.PageRepository, title, excludePageID string) (string, error) {
	base := Slugify(title)
	if base == "" {
		base = "untitled"
	}

	slug := base
	for n := 2; ; n++ {
		taken, err := pages.SlugExists(ctx, slug, excludePageID)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", slug, err)
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}
}
