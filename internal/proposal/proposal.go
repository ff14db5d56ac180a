// Package proposal produces the commercial proposal text for a finalized
// intake. The text is opaque to the rest of the service.
package proposal

import (
	"context"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"solarintake/internal/intake/models"
)

const (
	DefaultClientName = "Cliente"
	DefaultCity       = "Não informada"

	FallbackNotConfigured = "Erro: API Key não configurada. Adicione sua chave da API do Google Gemini."
	FallbackEmpty         = "Não foi possível gerar a proposta no momento."
	FallbackFailed        = "Erro ao conectar com a IA. Verifique sua conexão ou chave de API."
)

// Request carries the only three values a generator may see.
type Request struct {
	ClientName  string  `json:"client_name"`
	Consumption float64 `json:"consumption"`
	City        string  `json:"city"`
}

// RequestFromSnapshot applies the defaults for missing values.
func RequestFromSnapshot(s models.Snapshot) Request {
	req := Request{
		ClientName: strings.TrimSpace(s.Personal.Name),
		City:       strings.TrimSpace(s.Address.City),
	}
	if req.ClientName == "" {
		req.ClientName = DefaultClientName
	}
	if req.City == "" {
		req.City = DefaultCity
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s.Installation.Consumption), 64)
	if err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		req.Consumption = v
	}
	return req
}

// Generator is an external text generator.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Service never fails: generator errors and empty answers become fallback
// text.
type Service struct {
	gen    Generator
	logger *slog.Logger
}

func NewService(gen Generator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{gen: gen, logger: logger}
}

func (s *Service) Generate(ctx context.Context, req Request) string {
	if s.gen == nil {
		return FallbackNotConfigured
	}
	text, err := s.gen.Generate(ctx, req)
	if err != nil {
		s.logger.ErrorContext(ctx, "proposal generation failed", "error", err)
		return FallbackFailed
	}
	if strings.TrimSpace(text) == "" {
		return FallbackEmpty
	}
	return text
}
