package reconcile

import (
	"testing"

	"github.com/contactdesk/contactdesk/internal/contact"
)

func record(id, phone, mobile, siret string) *contact.Contact {
	return &contact.Contact{UniqueID: id, Phone: phone, Mobile: mobile, Siret: siret}
}

func TestClassify_EmptyStore(t *testing.T) {
	candidates := []*contact.Contact{
		record("A_00001", "0612345678", "", ""),
		record("A_00002", "0698765432", "", ""),
	}

	res := Classify(nil, candidates)

	if len(res.Unique) != 2 || len(res.Duplicates) != 0 {
		t.Fatalf("got %d unique, %d duplicates; want 2, 0", len(res.Unique), len(res.Duplicates))
	}
}

func TestClassify_CauseKinds(t *testing.T) {
	existing := []*contact.Contact{
		record("A_00001", "0611111111", "0622222222", "11111111111111"),
	}

	tests := []struct {
		name      string
		candidate *contact.Contact
		want      Cause
	}{
		{"id collision", record("A_00001", "", "", ""), CauseID},
		{"siret collision", record("B_00001", "", "", "11111111111111"), CauseSiret},
		{"phone collision", record("B_00002", "0611111111", "", ""), CausePhone},
		{"phone against existing mobile", record("B_00003", "0622222222", "", ""), CausePhone},
		{"mobile against existing phone", record("B_00004", "", "0611111111", ""), CausePhone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Classify(existing, []*contact.Contact{tt.candidate})
			if len(res.Duplicates) != 1 {
				t.Fatalf("expected a duplicate, got %d unique", len(res.Unique))
			}
			if got := res.Duplicates[0].Cause; got != tt.want {
				t.Errorf("cause = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassify_CausePrecedence(t *testing.T) {
	existing := []*contact.Contact{
		record("A_00001", "0611111111", "", "11111111111111"),
	}
	// Collides on id, siret and phone at once: the id cause must win.
	candidate := record("A_00001", "0611111111", "", "11111111111111")

	res := Classify(existing, []*contact.Contact{candidate})

	if len(res.Duplicates) != 1 {
		t.Fatal("expected a duplicate")
	}
	if res.Duplicates[0].Cause != CauseID {
		t.Errorf("cause = %q, want %q", res.Duplicates[0].Cause, CauseID)
	}

	// Without the id collision, siret outranks phone.
	candidate = record("B_00001", "0611111111", "", "11111111111111")
	res = Classify(existing, []*contact.Contact{candidate})
	if res.Duplicates[0].Cause != CauseSiret {
		t.Errorf("cause = %q, want %q", res.Duplicates[0].Cause, CauseSiret)
	}
}

func TestClassify_IntraBatchDedup(t *testing.T) {
	// Two candidates share a phone number and the store is empty: the
	// second must still be caught, against the first.
	candidates := []*contact.Contact{
		record("A_00001", "0612345678", "", ""),
		record("A_00002", "0612345678", "", ""),
	}

	res := Classify(nil, candidates)

	if len(res.Unique) != 1 {
		t.Fatalf("got %d unique, want 1", len(res.Unique))
	}
	if len(res.Duplicates) != 1 {
		t.Fatalf("got %d duplicates, want 1", len(res.Duplicates))
	}
	if res.Duplicates[0].Cause != CausePhone {
		t.Errorf("cause = %q, want %q", res.Duplicates[0].Cause, CausePhone)
	}
	if res.Duplicates[0].Contact.UniqueID != "A_00002" {
		t.Error("the later candidate should be the duplicate")
	}
}

func TestClassify_DisjointPartition(t *testing.T) {
	existing := []*contact.Contact{
		record("A_00001", "0611111111", "", ""),
	}
	candidates := []*contact.Contact{
		record("A_00001", "", "", ""),
		record("B_00001", "0622222222", "", ""),
		record("B_00002", "0622222222", "", ""),
		record("B_00003", "", "", "22222222222222"),
	}

	res := Classify(existing, candidates)

	if got := len(res.Unique) + len(res.Duplicates); got != len(candidates) {
		t.Fatalf("partition covers %d records, want %d", got, len(candidates))
	}

	seen := make(map[string]int)
	for _, c := range res.Unique {
		seen[c.UniqueID]++
	}
	for _, m := range res.Duplicates {
		seen[m.Contact.UniqueID]++
	}
	for _, c := range candidates {
		if seen[c.UniqueID] != 1 {
			t.Errorf("candidate %s appears %d times in partition", c.UniqueID, seen[c.UniqueID])
		}
	}
}

func TestClassify_BlankKeysNeverCollide(t *testing.T) {
	existing := []*contact.Contact{
		record("A_00001", "", "", ""),
	}
	candidates := []*contact.Contact{
		record("B_00001", "", "", ""),
		record("B_00002", "", "", ""),
	}

	res := Classify(existing, candidates)

	if len(res.Duplicates) != 0 {
		t.Errorf("records without phones or siret must not collide, got %d duplicates", len(res.Duplicates))
	}
}
