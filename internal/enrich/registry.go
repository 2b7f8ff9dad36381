package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/contactdesk/contactdesk/internal/contact"
)

// RegistryProvider looks a company up in the public registry by name and
// postal code (or directly by siret when the record has one) and copies the
// legal identifiers and headcount data onto the record.
type RegistryProvider struct {
	BaseURL string
	client  *http.Client
}

// NewRegistryProvider creates a registry client against baseURL.
func NewRegistryProvider(baseURL string, timeout time.Duration) *RegistryProvider {
	return &RegistryProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  newHTTPClient(timeout),
	}
}

func (p *RegistryProvider) Kind() Kind { return KindRegistry }

// Skip passes over records that are already enriched (including re-imported
// exports flagged "imported") or carry nothing to search by.
func (p *RegistryProvider) Skip(c *contact.Contact) bool {
	if c.APIEnriched {
		return true
	}
	return c.Name == "" && c.Siret == ""
}

// registry response shapes, reduced to the fields the record needs.
type registryResponse struct {
	Results []registryResult `json:"results"`
}

type registryResult struct {
	Siren      string `json:"siren"`
	NomComplet string `json:"nom_complet"`
	Siege      struct {
		Siret              string `json:"siret"`
		ActivitePrincipale string `json:"activite_principale"`
	} `json:"siege"`
	TrancheEffectif string `json:"tranche_effectif_salarie"`
	DateCreation    string `json:"date_creation"`
	Dirigeants      []struct {
		Nom     string `json:"nom"`
		Prenoms string `json:"prenoms"`
		Qualite string `json:"qualite"`
	} `json:"dirigeants"`
}

func (p *RegistryProvider) Enrich(ctx context.Context, c *contact.Contact) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	q := url.Values{}
	if c.Siret != "" {
		q.Set("q", c.Siret)
	} else {
		q.Set("q", c.Name)
		if c.PostalCode != "" {
			q.Set("code_postal", c.PostalCode)
		}
	}
	q.Set("per_page", "1")

	var resp registryResponse
	if err := p.getJSON(ctx, p.BaseURL+"/search?"+q.Encode(), &resp); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		c.APIEnriched = true
		c.APIStatus = contact.StatusError
		return true, nil
	}

	if len(resp.Results) == 0 {
		c.APIEnriched = true
		c.APIStatus = contact.StatusNotFound
		return true, nil
	}

	r := resp.Results[0]
	if r.Siren == "" && r.Siege.Siret == "" {
		c.APIEnriched = true
		c.APIStatus = contact.StatusNoData
		return true, nil
	}

	if c.Siret == "" {
		c.Siret = r.Siege.Siret
	}
	if c.Siren == "" {
		c.Siren = r.Siren
	}
	c.APINaf = r.Siege.ActivitePrincipale
	c.APIDateCreation = r.DateCreation
	c.APIDirigeants = formatDirigeants(r)
	c.APIEffectifCode, c.APIEffectifLabel = contact.InferEffectif(r.TrancheEffectif, "")
	c.APIEnriched = true
	c.APIStatus = contact.StatusSuccess
	return true, nil
}

func formatDirigeants(r registryResult) string {
	parts := make([]string, 0, len(r.Dirigeants))
	for _, d := range r.Dirigeants {
		name := strings.TrimSpace(d.Prenoms + " " + d.Nom)
		if d.Qualite != "" {
			name += " (" + d.Qualite + ")"
		}
		if name != "" {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, ", ")
}

func (p *RegistryProvider) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("registry returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
