package domain

import "time"

type Group struct {
	ID          string
	Name        string
	Description string
	Icon        string
	Link        string
	Platform    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// GroupFilter narrows a group listing. Empty fields match everything.
type GroupFilter struct {
	Platform string
	Query    string
}
