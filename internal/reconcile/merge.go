package reconcile

import (
	"fmt"
	"time"

	"github.com/contactdesk/contactdesk/internal/contact"
)

// Mode selects how a classified batch is folded into the existing set.
type Mode string

const (
	// ModeNewOnly appends only the unique records.
	ModeNewOnly Mode = "new-only"
	// ModeAll appends every candidate, duplicates included.
	ModeAll Mode = "all"
	// ModeUpdate upserts every candidate by identifier. The only mode that
	// can mutate pre-existing records.
	ModeUpdate Mode = "update"
)

// ParseMode validates a mode string from the API surface.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeNewOnly, ModeAll, ModeUpdate:
		return Mode(s), nil
	case "":
		return ModeNewOnly, nil
	default:
		return "", fmt.Errorf("unknown import mode: %q", s)
	}
}

// Merge applies mode to a classified batch and returns the new record set.
// The existing slice is not modified; records reachable from it are mutated
// only under ModeUpdate. Persisting the returned snapshot is the caller's
// responsibility.
func Merge(existing []*contact.Contact, candidates []*contact.Contact, res Result, mode Mode, now time.Time) []*contact.Contact {
	switch mode {
	case ModeAll:
		return append(append([]*contact.Contact{}, existing...), candidates...)

	case ModeUpdate:
		merged := append([]*contact.Contact{}, existing...)
		byID := make(map[string]*contact.Contact, len(existing))
		for _, c := range existing {
			byID[c.UniqueID] = c
		}
		for _, cand := range candidates {
			if target, ok := byID[cand.UniqueID]; ok {
				overlay(target, cand, now)
				continue
			}
			merged = append(merged, cand)
			byID[cand.UniqueID] = cand
		}
		return merged

	default: // ModeNewOnly
		return append(append([]*contact.Contact{}, existing...), res.Unique...)
	}
}

// overlay shallow-merges candidate fields over an existing record: non-empty
// candidate values win, identity and audit fields stay with the existing
// record (a re-imported export must not disturb export bookkeeping), and the
// modification timestamp is refreshed.
func overlay(dst, src *contact.Contact, now time.Time) {
	setStr := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	setStr(&dst.Name, src.Name)
	setStr(&dst.Address, src.Address)
	setStr(&dst.PostalCode, src.PostalCode)
	setStr(&dst.City, src.City)
	setStr(&dst.Phone, src.Phone)
	setStr(&dst.Mobile, src.Mobile)
	setStr(&dst.Phone2, src.Phone2)
	setStr(&dst.Email, src.Email)
	setStr(&dst.Website, src.Website)
	setStr(&dst.Category, src.Category)
	setStr(&dst.Siret, src.Siret)
	setStr(&dst.Siren, src.Siren)
	setStr(&dst.Naf, src.Naf)
	setStr(&dst.Description, src.Description)
	setStr(&dst.APIEffectifCode, src.APIEffectifCode)
	setStr(&dst.APIEffectifLabel, src.APIEffectifLabel)
	setStr(&dst.APINaf, src.APINaf)
	setStr(&dst.APIDateCreation, src.APIDateCreation)
	setStr(&dst.APIDirigeants, src.APIDirigeants)
	setStr(&dst.GeoStatus, src.GeoStatus)
	setStr(&dst.RouteStatus, src.RouteStatus)
	setStr(&dst.SourceFile, src.SourceFile)

	if src.APIEnriched {
		dst.APIEnriched = true
	}
	if src.APIStatus != "" {
		dst.APIStatus = src.APIStatus
	}
	if src.Lat != nil {
		dst.Lat = src.Lat
	}
	if src.Lon != nil {
		dst.Lon = src.Lon
	}
	if src.DistanceMeters != nil {
		dst.DistanceMeters = src.DistanceMeters
	}
	if src.DurationSeconds != nil {
		dst.DurationSeconds = src.DurationSeconds
	}

	dst.Touch(now)
}
