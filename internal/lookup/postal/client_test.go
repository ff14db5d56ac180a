package postal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solarintake/internal/intake/models"
	"solarintake/internal/lookup/providers"
)

func TestParseViaCEPResponse(t *testing.T) {
	t.Run("parses a hit", func(t *testing.T) {
		body := []byte(`{
			"cep": "90010-000",
			"logradouro": "Rua dos Andradas",
			"bairro": "Centro Histórico",
			"localidade": "Porto Alegre",
			"uf": "RS"
		}`)
		frag, err := parseViaCEPResponse(http.StatusOK, body)
		require.NoError(t, err)
		assert.Equal(t, models.AddressFragment{
			Street: "Rua dos Andradas", Neighborhood: "Centro Histórico", City: "Porto Alegre", Region: "RS",
		}, *frag)
	})

	t.Run("erro as boolean is not found", func(t *testing.T) {
		_, err := parseViaCEPResponse(http.StatusOK, []byte(`{"erro": true}`))
		assert.Equal(t, providers.ErrorNotFound, providers.GetCategory(err))
	})

	t.Run("erro as string is not found", func(t *testing.T) {
		_, err := parseViaCEPResponse(http.StatusOK, []byte(`{"erro": "true"}`))
		assert.True(t, providers.IsNotFound(err))
	})

	t.Run("malformed json is bad data", func(t *testing.T) {
		_, err := parseViaCEPResponse(http.StatusOK, []byte(`{not json`))
		assert.Equal(t, providers.ErrorBadData, providers.GetCategory(err))
	})

	t.Run("400 is not found", func(t *testing.T) {
		_, err := parseViaCEPResponse(http.StatusBadRequest, nil)
		assert.True(t, providers.IsNotFound(err))
	})

	t.Run("502 is an outage", func(t *testing.T) {
		_, err := parseViaCEPResponse(http.StatusBadGateway, nil)
		assert.Equal(t, providers.ErrorProviderOutage, providers.GetCategory(err))
	})
}

func TestViaCEPClientLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ws/01310100/json/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"logradouro":"Avenida Paulista","bairro":"Bela Vista","localidade":"São Paulo","uf":"SP"}`))
	}))
	defer srv.Close()

	client := NewViaCEPClient(srv.URL+"/", "solarintake-test", time.Second)
	frag, err := client.Lookup(context.Background(), "01310100")
	require.NoError(t, err)
	assert.Equal(t, "Avenida Paulista", frag.Street)
	assert.Equal(t, "SP", frag.Region)
}

func TestViaCEPClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewViaCEPClient(url, "", time.Second).Lookup(context.Background(), "01310100")
	require.Error(t, err)
	assert.True(t, providers.IsTransport(err))
}
