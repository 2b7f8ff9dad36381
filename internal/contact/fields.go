package contact

import "strings"

// Field names a canonical record field that spreadsheet columns can map to.
type Field string

const (
	FieldUniqueID      Field = "uniqueId"
	FieldName          Field = "name"
	FieldAddress       Field = "address"
	FieldPostalCode    Field = "postalCode"
	FieldCity          Field = "city"
	FieldPhone2        Field = "phone2"
	FieldPhone         Field = "phone"
	FieldMobile        Field = "mobile"
	FieldEmail         Field = "email"
	FieldWebsite       Field = "website"
	FieldCategory      Field = "category"
	FieldSiret         Field = "siret"
	FieldSiren         Field = "siren"
	FieldNaf           Field = "naf"
	FieldDescription   Field = "description"
	FieldEffectifCode  Field = "effectifCode"
	FieldEffectifLabel Field = "effectifLabel"
	FieldDirigeants    Field = "dirigeants"
	FieldDateCreation  Field = "dateCreation"
	FieldLat           Field = "lat"
	FieldLon           Field = "lon"
	FieldDateImport    Field = "dateImport"
	FieldLastExport    Field = "lastExport"
	FieldExportCount   Field = "exportCount"
	FieldSource        Field = "source"
)

// Mapping assigns a source column header to each canonical field it covers.
// Fields without a matched column are simply absent.
type Mapping map[Field]string

// fieldSynonyms lists, per canonical field, the header phrases that identify
// its column. Matching is case-insensitive on trimmed values; a header
// matches a synonym when it equals it or contains it as a substring.
//
// Resolution order matters twice over: synonyms within a field are tried by
// priority, and fields are resolved in the order below so that the more
// specific field claims a shared header first (phone2 before phone,
// effectifCode before effectifLabel). A header claimed by an earlier field
// is never reused.
var fieldSynonyms = []struct {
	field    Field
	synonyms []string
}{
	{FieldUniqueID, []string{"id fiche", "idfiche", "identifiant", "unique id", "uniqueid"}},
	{FieldName, []string{"nom", "raison sociale", "societe", "société", "enseigne", "name"}},
	{FieldAddress, []string{"adresse", "address", "voie", "rue"}},
	{FieldPostalCode, []string{"code postal", "code_postal", "cp", "postal"}},
	{FieldCity, []string{"ville", "commune", "city"}},
	{FieldPhone2, []string{"téléphone 2", "telephone 2", "tel 2", "tel2", "autre téléphone", "autre telephone"}},
	{FieldPhone, []string{"téléphone", "telephone", "tel", "tél", "phone", "fixe"}},
	{FieldMobile, []string{"mobile", "portable", "gsm"}},
	{FieldEmail, []string{"email", "e-mail", "mail", "courriel"}},
	{FieldWebsite, []string{"site web", "site internet", "web", "www", "url"}},
	{FieldCategory, []string{"catégorie", "categorie", "activité", "activite", "secteur", "category"}},
	{FieldSiret, []string{"siret"}},
	{FieldSiren, []string{"siren"}},
	{FieldNaf, []string{"code naf", "naf", "code ape", "ape"}},
	{FieldDescription, []string{"description", "commentaire", "notes"}},
	{FieldEffectifCode, []string{"effectif (code)", "code effectif", "tranche effectif", "tranche"}},
	{FieldEffectifLabel, []string{"effectif", "salariés", "salaries"}},
	{FieldDirigeants, []string{"dirigeants", "dirigeant", "gérant", "gerant"}},
	{FieldDateCreation, []string{"date création ent.", "date création", "date creation", "création", "creation"}},
	{FieldLat, []string{"latitude", "lat"}},
	{FieldLon, []string{"longitude", "lon", "lng"}},
	{FieldDateImport, []string{"date import", "importé le", "importe le"}},
	{FieldLastExport, []string{"dernier export", "last export"}},
	{FieldExportCount, []string{"nb exports", "nombre exports"}},
	{FieldSource, []string{"source", "fichier"}},
}

// ResolveHeaders maps spreadsheet column headers onto canonical fields using
// the synonym table. The result is a suggestion: callers may override any
// entry before building records. Unmatched fields are absent, never an error.
func ResolveHeaders(headers []string) Mapping {
	mapping := make(Mapping)
	claimed := make(map[string]bool)

	for _, fs := range fieldSynonyms {
		header, ok := matchHeader(headers, fs.synonyms, claimed)
		if !ok {
			continue
		}
		mapping[fs.field] = header
		claimed[header] = true
	}

	return mapping
}

// matchHeader scans headers in original order for each synonym in priority
// order and returns the first unclaimed header that matches.
func matchHeader(headers, synonyms []string, claimed map[string]bool) (string, bool) {
	for _, syn := range synonyms {
		syn = strings.ToLower(strings.TrimSpace(syn))
		for _, header := range headers {
			if claimed[header] {
				continue
			}
			h := strings.ToLower(strings.TrimSpace(header))
			if h == syn || strings.Contains(h, syn) {
				return header, true
			}
		}
	}
	return "", false
}
