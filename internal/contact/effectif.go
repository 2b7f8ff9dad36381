package contact

import "strings"

// EffectifLabels maps each recognized headcount bracket code to its display
// label. The codes follow the INSEE tranche d'effectif nomenclature.
var EffectifLabels = map[string]string{
	"00": "0 salarié",
	"01": "1 ou 2 salariés",
	"02": "3 à 5 salariés",
	"03": "6 à 9 salariés",
	"11": "10 à 19 salariés",
	"12": "20 à 49 salariés",
	"21": "50 à 99 salariés",
	"22": "100 à 199 salariés",
	"31": "200 à 249 salariés",
	"32": "250 à 499 salariés",
	"41": "500 à 999 salariés",
	"42": "1 000 à 1 999 salariés",
}

// effectifInferenceRules are the label substring tests used when a row has a
// free-text headcount label but no bracket code. Tests run in order; the
// first whose substrings all appear (and none of its exclusions do) wins.
//
// Known-brittle on purpose: a label containing "120" wrongly matches the
// 1–2 rule. The behavior is preserved for compatibility with existing data;
// changing it is a product decision, not a code fix.
var effectifInferenceRules = []struct {
	code     string
	contains []string
	excludes []string
}{
	{"01", []string{"1", "2"}, []string{"10"}},
	{"02", []string{"3", "5"}, nil},
	{"03", []string{"6", "9"}, nil},
	{"11", []string{"10", "19"}, nil},
	{"12", []string{"20", "49"}, nil},
	{"21", []string{"50", "99"}, nil},
}

// InferEffectif resolves the headcount bracket (code, label) for a row.
//
// An explicit code wins: it is uppercased, trimmed, and paired with its
// label when recognized (an unrecognized code is kept as-is with the raw
// label). Otherwise the free-text label, if any, is matched against the
// inference rules. No match leaves both values empty.
func InferEffectif(rawCode, rawLabel string) (code, label string) {
	if c := strings.ToUpper(strings.TrimSpace(rawCode)); c != "" {
		if l, ok := EffectifLabels[c]; ok {
			return c, l
		}
		return c, strings.TrimSpace(rawLabel)
	}

	l := strings.ToLower(strings.TrimSpace(rawLabel))
	if l == "" {
		return "", ""
	}

	for _, rule := range effectifInferenceRules {
		if matchesRule(l, rule.contains, rule.excludes) {
			return rule.code, EffectifLabels[rule.code]
		}
	}
	return "", ""
}

func matchesRule(label string, contains, excludes []string) bool {
	for _, sub := range contains {
		if !strings.Contains(label, sub) {
			return false
		}
	}
	for _, sub := range excludes {
		if strings.Contains(label, sub) {
			return false
		}
	}
	return true
}
