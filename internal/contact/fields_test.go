package contact

import "testing"

func TestResolveHeaders_Basic(t *testing.T) {
	headers := []string{"Nom", "Tel", "CP", "Ville"}

	mapping := ResolveHeaders(headers)

	want := map[Field]string{
		FieldName:       "Nom",
		FieldPhone:      "Tel",
		FieldPostalCode: "CP",
		FieldCity:       "Ville",
	}
	for field, header := range want {
		if mapping[field] != header {
			t.Errorf("field %s mapped to %q, want %q", field, mapping[field], header)
		}
	}
}

func TestResolveHeaders_UnmatchedFieldsAbsent(t *testing.T) {
	mapping := ResolveHeaders([]string{"Nom"})

	if _, ok := mapping[FieldSiret]; ok {
		t.Error("siret should be absent when no header matches")
	}
	if len(mapping) != 1 {
		t.Errorf("expected 1 mapped field, got %d", len(mapping))
	}
}

func TestResolveHeaders_HeaderClaimedOnce(t *testing.T) {
	// "Effectif (code)" contains "effectif"; the code field resolves first
	// and claims it, leaving the bare "Effectif" header for the label field.
	mapping := ResolveHeaders([]string{"Effectif (code)", "Effectif"})

	if got := mapping[FieldEffectifCode]; got != "Effectif (code)" {
		t.Errorf("effectifCode mapped to %q", got)
	}
	if got := mapping[FieldEffectifLabel]; got != "Effectif" {
		t.Errorf("effectifLabel mapped to %q", got)
	}
}

func TestResolveHeaders_PhoneVariants(t *testing.T) {
	mapping := ResolveHeaders([]string{"Téléphone", "Téléphone 2", "Mobile"})

	if got := mapping[FieldPhone]; got != "Téléphone" {
		t.Errorf("phone mapped to %q", got)
	}
	if got := mapping[FieldPhone2]; got != "Téléphone 2" {
		t.Errorf("phone2 mapped to %q", got)
	}
	if got := mapping[FieldMobile]; got != "Mobile" {
		t.Errorf("mobile mapped to %q", got)
	}
}

func TestResolveHeaders_CaseAndWhitespace(t *testing.T) {
	mapping := ResolveHeaders([]string{"  NOM  ", "EMAIL"})

	if got := mapping[FieldName]; got != "  NOM  " {
		t.Errorf("name mapped to %q, want original header preserved", got)
	}
	if got := mapping[FieldEmail]; got != "EMAIL" {
		t.Errorf("email mapped to %q", got)
	}
}

func TestResolveHeaders_ExportRoundTrip(t *testing.T) {
	// Headers produced by the exporter must resolve back to their fields so
	// a re-imported export keeps its identifiers and provenance.
	headers := []string{
		"ID Fiche", "Nom", "Adresse", "Code Postal", "Ville", "Téléphone",
		"Mobile", "Email", "Catégorie", "SIRET", "SIREN", "Code NAF",
		"Effectif (code)", "Effectif", "Dirigeants", "Date Création Ent.",
		"Latitude", "Longitude", "Date Import", "Dernier Export", "Nb Exports", "Source",
	}

	mapping := ResolveHeaders(headers)

	want := map[Field]string{
		FieldUniqueID:      "ID Fiche",
		FieldName:          "Nom",
		FieldAddress:       "Adresse",
		FieldPostalCode:    "Code Postal",
		FieldCity:          "Ville",
		FieldPhone:         "Téléphone",
		FieldMobile:        "Mobile",
		FieldEmail:         "Email",
		FieldCategory:      "Catégorie",
		FieldSiret:         "SIRET",
		FieldSiren:         "SIREN",
		FieldNaf:           "Code NAF",
		FieldEffectifCode:  "Effectif (code)",
		FieldEffectifLabel: "Effectif",
		FieldDirigeants:    "Dirigeants",
		FieldDateCreation:  "Date Création Ent.",
		FieldLat:           "Latitude",
		FieldLon:           "Longitude",
		FieldDateImport:    "Date Import",
		FieldLastExport:    "Dernier Export",
		FieldExportCount:   "Nb Exports",
		FieldSource:        "Source",
	}
	for field, header := range want {
		if mapping[field] != header {
			t.Errorf("field %s mapped to %q, want %q", field, mapping[field], header)
		}
	}
}
