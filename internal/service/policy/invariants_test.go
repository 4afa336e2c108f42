package policy

import (
	"testing"

	"lorebook/internal/domain/models/wiki"
)

func visptr(v wiki.Visibility) *wiki.Visibility {
	return &v
}

func TestValidateVisibilityEditability(t *testing.T) {
	tests := []struct {
		name         string
		visibility   wiki.Visibility
		editability  wiki.Editability
		directoryVis *wiki.Visibility
		wantKind     InvariantKind
	}{
		{"public page in public dir", wiki.VisibilityPublic, wiki.EditabilityRestricted, visptr(wiki.VisibilityPublic), ""},
		{"public page in private dir", wiki.VisibilityPublic, wiki.EditabilityRestricted, visptr(wiki.VisibilityPrivate), OpennessViolation},
		{"public page in internal dir", wiki.VisibilityPublic, wiki.EditabilityRestricted, visptr(wiki.VisibilityInternal), OpennessViolation},
		{"internal page in private dir", wiki.VisibilityInternal, wiki.EditabilityRestricted, visptr(wiki.VisibilityPrivate), OpennessViolation},
		{"internal page in public dir", wiki.VisibilityInternal, wiki.EditabilityRestricted, visptr(wiki.VisibilityPublic), ""},
		{"private page in private dir", wiki.VisibilityPrivate, wiki.EditabilityRestricted, visptr(wiki.VisibilityPrivate), ""},
		{"private page in public dir", wiki.VisibilityPrivate, wiki.EditabilityRestricted, visptr(wiki.VisibilityPublic), ""},
		{"equal visibility internal", wiki.VisibilityInternal, wiki.EditabilityRestricted, visptr(wiki.VisibilityInternal), ""},
		{"root page skips openness check", wiki.VisibilityPublic, wiki.EditabilityRestricted, nil, ""},
		{"internal editability on private page", wiki.VisibilityPrivate, wiki.EditabilityInternal, visptr(wiki.VisibilityPrivate), EditabilityVisibilityViolation},
		{"internal editability on private root page", wiki.VisibilityPrivate, wiki.EditabilityInternal, nil, EditabilityVisibilityViolation},
		{"internal editability on internal page", wiki.VisibilityInternal, wiki.EditabilityInternal, visptr(wiki.VisibilityInternal), ""},
		{"internal editability on public page", wiki.VisibilityPublic, wiki.EditabilityInternal, visptr(wiki.VisibilityPublic), ""},
		// Openness is checked first, so it wins for this combination
		{"open page with internal editability in private dir", wiki.VisibilityPublic, wiki.EditabilityInternal, visptr(wiki.VisibilityPrivate), OpennessViolation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVisibilityEditability(tt.visibility, tt.editability, tt.directoryVis)
			if tt.wantKind == "" {
				if err != nil {
					t.Fatalf("expected ok, got %v (kind %s)", err, err.Kind)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected %s violation, got ok", tt.wantKind)
			}
			if err.Kind != tt.wantKind {
				t.Errorf("expected kind %s, got %s", tt.wantKind, err.Kind)
			}
			if err.Error() == "" {
				t.Error("invariant error should carry an actionable message")
			}
		})
	}
}
