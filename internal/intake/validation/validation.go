// Package validation checks an intake snapshot. Only the client name is
// required; every other rule applies to non-empty values only.
package validation

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"solarintake/internal/intake/masking"
	"solarintake/internal/intake/models"
)

// ErrorKind classifies a field-local failure.
type ErrorKind string

const (
	Required      ErrorKind = "required"
	InvalidFormat ErrorKind = "invalid_format"
	Incomplete    ErrorKind = "incomplete"
	InvalidDate   ErrorKind = "invalid_date"
	NotNumeric    ErrorKind = "not_numeric"

	// Lookup outcomes reported on the postal code field.
	NotFound          ErrorKind = "not_found"
	LookupUnavailable ErrorKind = "lookup_unavailable"
)

// Message is the user-facing Portuguese text for k.
func (k ErrorKind) Message() string {
	switch k {
	case Required:
		return "Campo obrigatório."
	case InvalidFormat:
		return "Formato inválido."
	case Incomplete:
		return "Valor incompleto."
	case InvalidDate:
		return "Data inválida."
	case NotNumeric:
		return "Valor inválido."
	case NotFound:
		return "CEP não encontrado."
	case LookupUnavailable:
		return "Serviço de CEP indisponível."
	}
	return string(k)
}

// Result maps failing fields to their error kind. An empty Result is valid.
type Result map[models.FieldName]ErrorKind

func (r Result) Valid() bool { return len(r) == 0 }

// Fields returns the failing field names in a stable order.
func (r Result) Fields() []models.FieldName {
	out := make([]models.FieldName, 0, len(r))
	for f := range r {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Validate applies every field rule to s. It never mutates s.
func Validate(s models.Snapshot) Result {
	r := Result{}

	if strings.TrimSpace(s.Personal.Name) == "" {
		r[models.FieldClientName] = Required
	}
	if e := s.Personal.Email; e != "" && !emailPattern.MatchString(e) {
		r[models.FieldEmail] = InvalidFormat
	}
	if id := s.Personal.NationalID; id != "" {
		if n := masking.CountDigits(id); n != 11 && n != 14 {
			r[models.FieldNationalID] = Incomplete
		}
	}
	if p := s.Personal.Phone; p != "" && masking.CountDigits(p) < 10 {
		r[models.FieldPhone] = Incomplete
	}
	if d := s.Personal.BirthDate; d != "" && len(d) != 10 {
		r[models.FieldBirthDate] = InvalidDate
	}
	if pc := s.Address.PostalCode; pc != "" && masking.CountDigits(pc) != 8 {
		r[models.FieldPostalCode] = Incomplete
	}
	if c := s.Installation.Consumption; c != "" && !IsNumeric(c) {
		r[models.FieldConsumption] = NotNumeric
	}
	if p := s.Installation.InstalledPower; p != "" && !IsNumeric(p) {
		r[models.FieldInstalledKW] = NotNumeric
	}
	return r
}

// IsNumeric reports whether s parses as a finite decimal number once
// trimmed. Blank strings count as numeric zero; NaN and infinities do not
// count.
func IsNumeric(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	v, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsNaN(v) && !math.IsInf(v, 0)
}
