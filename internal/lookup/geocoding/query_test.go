package geocoding

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"solarintake/internal/intake/models"
)

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name   string
		addr   models.Address
		want   string
		wantOK bool
	}{
		{
			name:   "full address in fixed order",
			addr:   models.Address{Street: "Rua dos Andradas", Number: "1234", Neighborhood: "Centro", City: "Porto Alegre", Region: "RS"},
			want:   "1234, Rua dos Andradas, Centro, Porto Alegre, RS, Brazil",
			wantOK: true,
		},
		{
			name:   "city and region suffice",
			addr:   models.Address{City: "Porto Alegre", Region: "RS"},
			want:   "Porto Alegre, RS, Brazil",
			wantOK: true,
		},
		{
			name:   "single component is insufficient",
			addr:   models.Address{City: "Porto Alegre"},
			wantOK: false,
		},
		{
			name:   "single component with complete postal code uses components",
			addr:   models.Address{City: "Porto Alegre", PostalCode: "90010-000"},
			want:   "Porto Alegre, Brazil",
			wantOK: true,
		},
		{
			name:   "postal code only",
			addr:   models.Address{PostalCode: "90010-000"},
			want:   "90010-000, Brazil",
			wantOK: true,
		},
		{
			name:   "partial postal code only",
			addr:   models.Address{PostalCode: "90010-00"},
			wantOK: false,
		},
		{
			name:   "whitespace components are absent",
			addr:   models.Address{Street: "  ", City: "Porto Alegre"},
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, ok := BuildQuery(tt.addr, "Brazil")
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, q.Text)
		})
	}
}

func TestBuildQueryDefaultsQualifier(t *testing.T) {
	q, ok := BuildQuery(models.Address{City: "Recife", Region: "PE"}, "")
	assert.True(t, ok)
	assert.Equal(t, "Recife, PE, Brazil", q.Text)
	assert.Equal(t, 2, q.Components)
	assert.True(t, Sufficient(models.Address{City: "Recife", Region: "PE"}))
}
