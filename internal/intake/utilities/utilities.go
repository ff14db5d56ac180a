// Package utilities serves the fixed option lists of the intake form.
package utilities

import (
	"strings"

	"solarintake/internal/intake/models"
)

// companies lists distributors with Rio Grande do Sul first.
var companies = []string{
	"CEEE Equatorial (RS)",
	"RGE - Rio Grande Energia (RS)",
	"RGE Sul (RS)",
	"Coprel (RS)",
	"Certel (RS)",
	"Certaja (RS)",
	"Ceriluz (RS)",
	"Cerisul (RS)",
	"Celetro (RS)",
	"Cooperluz (RS)",
	"Creral (RS)",
	"Creluz (RS)",
	"Cerfox (RS)",
	"Demei (Ijuí - RS)",
	"Hidropan (Panambi - RS)",
	"Eletrocar (Carazinho - RS)",
	"Muxfeldt / Muxenergia (RS)",
	"Nova Palma Energia (RS)",

	"CPFL Paulista (SP)",
	"CPFL Piratininga (SP)",
	"CPFL Santa Cruz",
	"Enel Distribuição SP",
	"Enel Distribuição RJ",
	"Enel Distribuição CE",
	"Enel Distribuição GO",
	"Cemig (MG)",
	"Copel (PR)",
	"Celesc (SC)",
	"Light (RJ)",
	"Neoenergia Coelba (BA)",
	"Neoenergia Pernambuco (PE)",
	"Neoenergia Cosern (RN)",
	"Neoenergia Elektro (SP/MS)",
	"Energisa (Vários Estados)",
	"Equatorial (MA, PA, PI, AL)",
	"EDP (ES, SP)",
	"Roraima Energia",
	"Amazonas Energia",
}

// Companies returns a copy of the full list.
func Companies() []string {
	out := make([]string, len(companies))
	copy(out, companies)
	return out
}

// Suggest filters the list by case-insensitive substring, keeping order.
func Suggest(q string) []string {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return Companies()
	}
	out := make([]string, 0, 8)
	for _, c := range companies {
		if strings.Contains(strings.ToLower(c), q) {
			out = append(out, c)
		}
	}
	return out
}

// Options are the closed choice lists of the form.
type Options struct {
	Breakers        []string `json:"breakers"`
	Voltages        []string `json:"voltages"`
	ConnectionTypes []string `json:"connection_types"`
	ClientStatuses  []string `json:"client_statuses"`
	IDDocTypes      []string `json:"id_doc_types"`
	ProjectStatuses []string `json:"project_statuses"`
	ReferencePoints []string `json:"reference_points"`
}

func FormOptions() Options {
	return Options{
		Breakers: []string{"30A", "40A", "50A", "63A", "70A", "80A", "100A", "125A", "150A", "200A"},
		Voltages: []string{"127V", "220V", "380V"},
		ConnectionTypes: []string{
			models.PhaseSingle.Label(),
			models.PhaseSplit.Label(),
			models.PhaseThree.Label(),
		},
		ClientStatuses: []string{
			string(models.StatusLead),
			string(models.StatusProposalSent),
			string(models.StatusClosed),
			string(models.StatusActive),
			string(models.StatusInactive),
		},
		IDDocTypes: []string{models.DocTypeRG, models.DocTypeCIN, models.DocTypeRP},
		ProjectStatuses: []string{
			models.DefaultProjectStatus,
			"Lead / Contato Inicial",
			"Vistoria Técnica Agendada",
			"Em Análise de Viabilidade",
			"Proposta Gerada",
			"Aguardando Assinatura",
			"Projeto em Execução",
		},
		ReferencePoints: []string{
			"Próximo à escola municipal",
			"Frente ao mercado principal",
			"Ao lado do posto de saúde",
			"Esquina com rua principal",
			"Condomínio Fechado",
		},
	}
}
