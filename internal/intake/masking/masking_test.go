package masking

import (
	"testing"

	"github.com/jaswdr/faker"
	"github.com/stretchr/testify/assert"

	"solarintake/internal/intake/models"
)

func TestMask(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		in   string
		want string
	}{
		{"cpf complete", NationalID, "12345678901", "123.456.789-01"},
		{"cpf partial", NationalID, "1234", "123.4"},
		{"cpf three digits has no trailing dot", NationalID, "123", "123"},
		{"cpf nine digits has no dash", NationalID, "123456789", "123.456.789"},
		{"cnpj complete", NationalID, "12345678000195", "12.345.678/0001-95"},
		{"cnpj twelve digits", NationalID, "123456780001", "12.345.678/0001"},
		{"national id truncates", NationalID, "1234567800019599", "12.345.678/0001-95"},
		{"national id strips punctuation", NationalID, "123.456.789-01", "123.456.789-01"},
		{"mobile phone", Phone, "11987654321", "(11) 98765-4321"},
		{"landline", Phone, "1133334444", "(11) 3333-4444"},
		{"phone two digits", Phone, "11", "11"},
		{"phone three digits", Phone, "119", "(11) 9"},
		{"phone partial", Phone, "1198765", "(11) 9876-5"},
		{"date", Date, "31121990", "31/12/1990"},
		{"date partial", Date, "311", "31/1"},
		{"date truncates", Date, "3112199012", "31/12/1990"},
		{"rg with check letter", SecondaryID, "12345678x", "12.345.678-X"},
		{"rg digits", SecondaryID, "123456789", "12.345.678-9"},
		{"rg drops early letter", SecondaryID, "12x345", "12.345"},
		{"postal code", PostalCode, "90010000", "90010-000"},
		{"postal code partial", PostalCode, "90010", "90010"},
		{"postal code six digits", PostalCode, "900100", "90010-0"},
		{"email lowercases", Email, "Ana.Silva@Example.COM", "ana.silva@example.com"},
		{"upper", Upper, "ab-123", "AB-123"},
		{"none passes through", None, " Rua A ", " Rua A "},
		{"empty", PostalCode, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Mask(tt.kind, tt.in))
		})
	}
}

func TestMaskIsIdempotent(t *testing.T) {
	fake := faker.New()
	kinds := []Kind{None, NationalID, Phone, Date, SecondaryID, PostalCode, Email, Upper}

	inputs := []string{"", "x", "1", "12x", "(11) 9", "12.345.678-X"}
	for i := 0; i < 200; i++ {
		inputs = append(inputs,
			fake.Numerify("##############"),
			fake.Numerify("#########")+"x",
			fake.Bothify("??##-##?#.##"),
			fake.Phone().Number(),
			fake.Internet().Email(),
			fake.Lorem().Word(),
		)
	}

	for _, kind := range kinds {
		for _, in := range inputs {
			once := Mask(kind, in)
			assert.Equal(t, once, Mask(kind, once), "kind %s input %q", kind, in)
		}
	}
}

func TestForField(t *testing.T) {
	assert.Equal(t, NationalID, ForField(models.FieldNationalID, ""))
	assert.Equal(t, PostalCode, ForField(models.FieldPostalCode, ""))
	assert.Equal(t, Date, ForField(models.FieldBirthDate, ""))
	assert.Equal(t, NationalID, ForField(models.FieldIDDocNumber, models.DocTypeCIN))
	assert.Equal(t, SecondaryID, ForField(models.FieldIDDocNumber, models.DocTypeRG))
	assert.Equal(t, Upper, ForField(models.FieldIDDocNumber, models.DocTypeRP))
	assert.Equal(t, None, ForField(models.FieldStreet, ""))
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind("postal_code")
	assert.True(t, ok)
	assert.Equal(t, PostalCode, k)

	_, ok = ParseKind("zip")
	assert.False(t, ok)
}

func TestCountDigits(t *testing.T) {
	assert.Equal(t, 8, CountDigits("90010-000"))
	assert.Equal(t, 0, CountDigits("Rua A"))
}
