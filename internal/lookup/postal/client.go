package postal

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"solarintake/internal/intake/models"
	"solarintake/internal/lookup/providers"
)

// ProviderID names the ViaCEP-compatible upstream in errors and metrics.
const ProviderID = "viacep"

// ViaCEPClient queries a ViaCEP-compatible service:
// GET {base}/ws/{code}/json/.
type ViaCEPClient struct {
	baseURL   string
	userAgent string
	http      providers.HTTPDoer
}

func NewViaCEPClient(baseURL, userAgent string, timeout time.Duration) *ViaCEPClient {
	return &ViaCEPClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		http:      providers.NewHTTPClient(timeout),
	}
}

// WithHTTPClient swaps the transport, mainly for httptest servers.
func (c *ViaCEPClient) WithHTTPClient(doer providers.HTTPDoer) *ViaCEPClient {
	c.http = doer
	return c
}

// Lookup fetches the address for an 8-digit code.
func (c *ViaCEPClient) Lookup(ctx context.Context, code string) (*models.AddressFragment, error) {
	status, body, err := providers.Get(ctx, c.http, ProviderID, c.baseURL+"/ws/"+code+"/json/", c.userAgent)
	if err != nil {
		return nil, err
	}
	return parseViaCEPResponse(status, body)
}

type viaCEPResponse struct {
	Street       string   `json:"logradouro"`
	Neighborhood string   `json:"bairro"`
	City         string   `json:"localidade"`
	Region       string   `json:"uf"`
	Erro         flexBool `json:"erro"`
}

// flexBool accepts true and "true"; ViaCEP has shipped both.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	*b = flexBool(strings.Trim(string(data), `"`) == "true")
	return nil
}

func parseViaCEPResponse(status int, body []byte) (*models.AddressFragment, error) {
	if status != http.StatusOK {
		return nil, providers.ClassifyStatus(ProviderID, status)
	}
	var resp viaCEPResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, providers.NewProviderError(providers.ErrorBadData, ProviderID, "decode response", err)
	}
	if resp.Erro {
		return nil, providers.NewProviderError(providers.ErrorNotFound, ProviderID, "postal code not found", nil)
	}
	return &models.AddressFragment{
		Street:       resp.Street,
		Neighborhood: resp.Neighborhood,
		City:         resp.City,
		Region:       resp.Region,
	}, nil
}
