package proposal

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"solarintake/internal/intake/models"
)

func TestRequestFromSnapshotDefaults(t *testing.T) {
	s := models.NewSnapshot()
	s.Installation.Consumption = "abc"

	req := RequestFromSnapshot(s)
	assert.Equal(t, Request{ClientName: "Cliente", Consumption: 0, City: "Não informada"}, req)
}

func TestRequestFromSnapshot(t *testing.T) {
	s := models.NewSnapshot()
	s.Personal.Name = " Ana Souza "
	s.Address.City = "Porto Alegre"

	req := RequestFromSnapshot(s)
	assert.Equal(t, Request{ClientName: "Ana Souza", Consumption: 350, City: "Porto Alegre"}, req)
}

func TestRequestFromSnapshotRejectsNonFiniteConsumption(t *testing.T) {
	for _, raw := range []string{"NaN", "Inf", "-Infinity"} {
		t.Run(raw, func(t *testing.T) {
			s := models.NewSnapshot()
			s.Personal.Name = "Ana"
			s.Installation.Consumption = raw

			req := RequestFromSnapshot(s)
			assert.Zero(t, req.Consumption)

			_, err := json.Marshal(req)
			require.NoError(t, err)
		})
	}
}

type stubGenerator struct {
	text string
	err  error
	got  Request
}

func (s *stubGenerator) Generate(_ context.Context, req Request) (string, error) {
	s.got = req
	return s.text, s.err
}

func TestServiceFallbacks(t *testing.T) {
	ctx := context.Background()
	req := Request{ClientName: "Ana", Consumption: 420, City: "Recife"}

	assert.Equal(t, FallbackNotConfigured, NewService(nil, nil).Generate(ctx, req))
	assert.Equal(t, FallbackFailed, NewService(&stubGenerator{err: errors.New("quota")}, nil).Generate(ctx, req))
	assert.Equal(t, FallbackEmpty, NewService(&stubGenerator{text: "  "}, nil).Generate(ctx, req))

	gen := &stubGenerator{text: "# Proposta"}
	assert.Equal(t, "# Proposta", NewService(gen, nil).Generate(ctx, req))
	assert.Equal(t, req, gen.got)
}

type fakeModels struct {
	model  string
	prompt string
	resp   *genai.GenerateContentResponse
	err    error
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	return f.resp, f.err
}

func TestGenAIGenerator(t *testing.T) {
	fake := &fakeModels{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText("Proposta para Ana", genai.RoleModel)}},
	}}
	gen := &GenAIGenerator{models: fake, model: DefaultModel}

	text, err := gen.Generate(context.Background(), Request{ClientName: "Ana", Consumption: 350, City: "Recife"})
	require.NoError(t, err)
	assert.Equal(t, "Proposta para Ana", text)
	assert.Equal(t, "gemini-2.5-flash", fake.model)
	assert.Contains(t, fake.prompt, "cliente Ana")
	assert.Contains(t, fake.prompt, "350 kWh")
	assert.Contains(t, fake.prompt, "Cidade: Recife")
}

func TestGenAIGeneratorError(t *testing.T) {
	gen := &GenAIGenerator{models: &fakeModels{err: errors.New("unavailable")}, model: DefaultModel}
	_, err := gen.Generate(context.Background(), Request{})
	assert.ErrorContains(t, err, "unavailable")
}

func TestNewGenAIGeneratorWithoutKey(t *testing.T) {
	gen, err := NewGenAIGenerator(context.Background(), "", "")
	require.NoError(t, err)
	assert.Nil(t, gen)
}
