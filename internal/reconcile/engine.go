// Package reconcile classifies freshly built records against an existing
// record set and applies one of three merge policies to the result. It is
// pure in-memory logic; persistence belongs to the caller.
package reconcile

import (
	"github.com/contactdesk/contactdesk/internal/contact"
)

// Cause identifies which key collision made a candidate a duplicate.
type Cause string

const (
	CauseID    Cause = "ID"
	CauseSiret Cause = "SIRET"
	CausePhone Cause = "Phone"
)

// Match pairs a duplicate candidate with its collision cause.
type Match struct {
	Contact *contact.Contact `json:"contact"`
	Cause   Cause            `json:"cause"`
}

// Result partitions a candidate batch: every candidate lands in exactly one
// of Duplicates or Unique, in input order.
type Result struct {
	Duplicates []Match            `json:"duplicates"`
	Unique     []*contact.Contact `json:"unique"`
}

// keyIndex holds the membership sets duplicates are detected against.
type keyIndex struct {
	ids    map[string]bool
	phones map[string]bool // phone ∪ mobile
	sirets map[string]bool
}

func indexOf(existing []*contact.Contact) *keyIndex {
	idx := &keyIndex{
		ids:    make(map[string]bool, len(existing)),
		phones: make(map[string]bool, len(existing)),
		sirets: make(map[string]bool, len(existing)),
	}
	for _, c := range existing {
		idx.add(c)
	}
	return idx
}

func (idx *keyIndex) add(c *contact.Contact) {
	if c.UniqueID != "" {
		idx.ids[c.UniqueID] = true
	}
	if c.Phone != "" {
		idx.phones[c.Phone] = true
	}
	if c.Mobile != "" {
		idx.phones[c.Mobile] = true
	}
	if c.Siret != "" {
		idx.sirets[c.Siret] = true
	}
}

// classify returns the collision cause for a candidate, or "" when unique.
// Identifier collisions always win the cause label, then siret, then phone.
func (idx *keyIndex) classify(c *contact.Contact) Cause {
	switch {
	case idx.ids[c.UniqueID]:
		return CauseID
	case c.Siret != "" && idx.sirets[c.Siret]:
		return CauseSiret
	case c.Phone != "" && idx.phones[c.Phone]:
		return CausePhone
	case c.Mobile != "" && idx.phones[c.Mobile]:
		return CausePhone
	default:
		return ""
	}
}

// Classify partitions candidates into duplicates and unique records against
// the existing set. Candidates are processed in input order; each unique
// candidate's keys immediately join the membership sets, so later candidates
// are deduplicated against earlier ones in the same batch, not only against
// the pre-existing records.
func Classify(existing, candidates []*contact.Contact) Result {
	idx := indexOf(existing)

	var res Result
	for _, c := range candidates {
		if cause := idx.classify(c); cause != "" {
			res.Duplicates = append(res.Duplicates, Match{Contact: c, Cause: cause})
			continue
		}
		res.Unique = append(res.Unique, c)
		idx.add(c)
	}
	return res
}
