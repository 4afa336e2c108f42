package wiki

import (
	"time"
)

// Directory is a node in the wiki hierarchy. Directories organize pages
// into a tree; the root directory has ParentID nil and Path "".
type Directory struct {
	ID          string      `json:"id" db:"id"`
	ParentID    *string     `json:"parent_id" db:"parent_id"` // NULL = root
	Path        string      `json:"path" db:"path"`           // full path from root, e.g. "engineering/devops"
	Title       string      `json:"title" db:"title"`
	Description string      `json:"description,omitempty" db:"description"` // markdown shown on the directory page
	OwnerID     *string     `json:"owner_id,omitempty" db:"owner_id"`
	Visibility  Visibility  `json:"visibility" db:"visibility"`
	Editability Editability `json:"editability" db:"editability"`
	CreatedBy   *string     `json:"created_by,omitempty" db:"created_by"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// IsRoot reports whether this is the single root directory.
func (d *Directory) IsRoot() bool {
	return d.ParentID == nil
}

// DirectoryRevision is a snapshot of a directory's metadata at a point in time.
type DirectoryRevision struct {
	ID             string      `json:"id" db:"id"`
	DirectoryID    string      `json:"directory_id" db:"directory_id"`
	Title          string      `json:"title" db:"title"`
	Description    string      `json:"description" db:"description"`
	Visibility     Visibility  `json:"visibility" db:"visibility"`
	Editability    Editability `json:"editability" db:"editability"`
	ChangeMessage  string      `json:"change_message" db:"change_message"`
	RevisionNumber int         `json:"revision_number" db:"revision_number"`
	CreatedBy      *string     `json:"created_by,omitempty" db:"created_by"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
}
