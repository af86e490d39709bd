package models

import "time"

// Tutor represents an instructor in the marketplace directory. The directory
// itself is owned by a separate service; scheduling only reads it.
type Tutor struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	FullName  string    `db:"full_name" json:"full_name"`
	Headline  *string   `db:"headline" json:"headline,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TutorFilter captures filtering options for listing tutors.
type TutorFilter struct {
	SubjectID string
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
