package proposal

import (
	"context"
	"fmt"
	"strconv"

	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash"

// modelsAPI is the slice of *genai.Models used here.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GenAIGenerator asks a Gemini model for the proposal.
type GenAIGenerator struct {
	models modelsAPI
	model  string
}

// NewGenAIGenerator returns nil without an API key so the service falls back.
func NewGenAIGenerator(ctx context.Context, apiKey, model string) (*GenAIGenerator, error) {
	if apiKey == "" {
		return nil, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &GenAIGenerator{models: client.Models, model: model}, nil
}

func (g *GenAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(Prompt(req)), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}

// Prompt renders the Portuguese proposal brief.
func Prompt(req Request) string {
	return "Atue como um engenheiro especialista em energia solar da empresa 'SolarTekPro'.\n" +
		"Gere um texto de proposta comercial persuasivo e técnico para o cliente " + req.ClientName + ".\n\n" +
		"Dados do cliente:\n" +
		"- Consumo médio mensal: " + strconv.FormatFloat(req.Consumption, 'f', -1, 64) + " kWh\n" +
		"- Cidade: " + req.City + "\n\n" +
		"A proposta deve incluir:\n" +
		"1. Uma saudação profissional.\n" +
		"2. Estimativa aproximada do tamanho do sistema necessário (em kWp) baseada no consumo (considere irradiação média do Brasil).\n" +
		"3. Estimativa de economia anual em Reais (R$) (use tarifa média de R$ 0,90/kWh).\n" +
		"4. Impacto ambiental positivo (CO2 evitado).\n" +
		"5. Um convite para fechar negócio.\n\n" +
		"Mantenha o tom profissional, moderno e focado em economia e sustentabilidade.\n" +
		"Formate a resposta em Markdown."
}
