// Package models defines the domain types for wikimeta.
package models

import "time"

// State is the lifecycle state of a wiki page.
type State string

// Lifecycle states. The string values are persisted as-is.
const (
	StatePlanned    State = "planned"
	StateNiceToHave State = "nice to have"
	StateCurrent    State = "current"
	StateObsolete   State = "obsolete"
)

// States lists every lifecycle state in display order.
var States = []State{StatePlanned, StateNiceToHave, StateCurrent, StateObsolete}

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	for _, known := range States {
		if s == known {
			return true
		}
	}
	return false
}

// Filter wildcards accepted by the listing.
const (
	StateAllActive = "all (non-obsolete)"
	OwnerAll       = "all"
)

// MetaRecord is one row of the wikimeta table.
type MetaRecord struct {
	Name     string    `json:"name"`
	Owner    string    `json:"owner"`
	State    State     `json:"state"`
	Priority int       `json:"priority"`
	Time     time.Time `json:"time"`
	Author   string    `json:"author"`
	Current  bool      `json:"current"`
}

// Decoration carries display-only annotations computed by the listing.
// It is never persisted.
type Decoration struct {
	Raisable     bool `json:"raisable"`
	PrevPriority int  `json:"prev_priority,omitempty"`
	Lowerable    bool `json:"lowerable"`
	NextPriority int  `json:"next_priority,omitempty"`
}

// DecoratedPage is a listing entry: the metadata record plus page data.
type DecoratedPage struct {
	Meta         MetaRecord `json:"meta"`
	Tags         []string   `json:"tags"`
	HTML         string     `json:"html"`
	LastModified string     `json:"last_modified"`
	Decoration
}

// PageMetadata is a lightweight description of a page file in the vault.
type PageMetadata struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
