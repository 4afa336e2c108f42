package wiki

import (
	"time"
)

// Page is a wiki page with markdown content, attached to at most one
// directory. A nil DirectoryID means the page lives at the root.
type Page struct {
	ID            string      `json:"id" db:"id"`
	Slug          string      `json:"slug" db:"slug"`
	Title         string      `json:"title" db:"title"`
	Content       string      `json:"content" db:"content"`
	DirectoryID   *string     `json:"directory_id" db:"directory_id"`
	OwnerID       *string     `json:"owner_id,omitempty" db:"owner_id"`
	Visibility    Visibility  `json:"visibility" db:"visibility"`
	Editability   Editability `json:"editability" db:"editability"`
	ChangeMessage string      `json:"change_message,omitempty" db:"change_message"`
	CreatedBy     *string     `json:"created_by,omitempty" db:"created_by"`
	UpdatedBy     *string     `json:"updated_by,omitempty" db:"updated_by"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"`
}

// PageRevision is a content snapshot written on every page save.
type PageRevision struct {
	ID             string      `json:"id" db:"id"`
	PageID         string      `json:"page_id" db:"page_id"`
	Title          string      `json:"title" db:"title"`
	Content        string      `json:"content" db:"content"`
	Visibility     Visibility  `json:"visibility" db:"visibility"`
	Editability    Editability `json:"editability" db:"editability"`
	ChangeMessage  string      `json:"change_message" db:"change_message"`
	RevisionNumber int         `json:"revision_number" db:"revision_number"`
	CreatedBy      *string     `json:"created_by,omitempty" db:"created_by"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
}

// PageLink records a #slug wiki link between two pages, rebuilt on save.
type PageLink struct {
	FromPageID string `json:"from_page_id" db:"from_page_id"`
	ToPageID   string `json:"to_page_id" db:"to_page_id"`
}

// SearchResult is a page hit from full-text search with a ranked snippet.
type SearchResult struct {
	Page    Page    `json:"page"`
	Snippet string  `json:"snippet"`
	Rank    float32 `json:"rank"`
}
