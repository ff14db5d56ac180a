// Package masking normalizes raw keystrokes into display formats. Every mask
// is pure, total, and idempotent: Mask(k, Mask(k, s)) == Mask(k, s).
package masking

import (
	"strings"

	"solarintake/internal/intake/models"
)

// Kind selects a mask.
type Kind int

const (
	None Kind = iota
	NationalID
	Phone
	Date
	SecondaryID
	PostalCode
	Email
	Upper
)

func (k Kind) String() string {
	switch k {
	case NationalID:
		return "national_id"
	case Phone:
		return "phone"
	case Date:
		return "date"
	case SecondaryID:
		return "secondary_id"
	case PostalCode:
		return "postal_code"
	case Email:
		return "email"
	case Upper:
		return "upper"
	}
	return "none"
}

// ParseKind maps a wire name back to a Kind.
func ParseKind(s string) (Kind, bool) {
	for k := None; k <= Upper; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return None, false
}

// ForField picks the mask for an edit. The ID document number follows the
// selected document type.
func ForField(f models.FieldName, docType string) Kind {
	switch f {
	case models.FieldNationalID:
		return NationalID
	case models.FieldPhone:
		return Phone
	case models.FieldBirthDate:
		return Date
	case models.FieldEmail:
		return Email
	case models.FieldPostalCode:
		return PostalCode
	case models.FieldIDDocNumber:
		switch docType {
		case models.DocTypeCIN:
			return NationalID
		case models.DocTypeRG:
			return SecondaryID
		default:
			return Upper
		}
	}
	return None
}

// Mask formats raw according to kind.
func Mask(kind Kind, raw string) string {
	switch kind {
	case NationalID:
		return maskNationalID(raw)
	case Phone:
		return maskPhone(raw)
	case Date:
		return punctuate(Digits(raw, 8), map[int]byte{2: '/', 4: '/'})
	case SecondaryID:
		return maskSecondaryID(raw)
	case PostalCode:
		return punctuate(Digits(raw, 8), map[int]byte{5: '-'})
	case Email:
		return strings.ToLower(raw)
	case Upper:
		return strings.ToUpper(raw)
	}
	return raw
}

// Digits strips everything but ASCII digits and truncates to max (max <= 0
// keeps all).
func Digits(raw string, max int) string {
	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c < '0' || c > '9' {
			continue
		}
		if max > 0 && b.Len() == max {
			break
		}
		b.WriteByte(c)
	}
	return b.String()
}

// CountDigits returns the number of ASCII digits in s.
func CountDigits(s string) int {
	return len(Digits(s, 0))
}

var (
	cpfSeparators  = map[int]byte{3: '.', 6: '.', 9: '-'}
	cnpjSeparators = map[int]byte{2: '.', 5: '.', 8: '/', 12: '-'}
	rgSeparators   = map[int]byte{2: '.', 5: '.', 8: '-'}
)

func maskNationalID(raw string) string {
	d := Digits(raw, 14)
	if len(d) > 11 {
		return punctuate(d, cnpjSeparators)
	}
	return punctuate(d, cpfSeparators)
}

func maskPhone(raw string) string {
	d := Digits(raw, 11)
	if len(d) <= 2 {
		return d
	}
	dash := 4
	if len(d) > 10 {
		dash = 5
	}
	return "(" + d[:2] + ") " + punctuate(d[2:], map[int]byte{dash: '-'})
}

// maskSecondaryID keeps digits and accepts a check letter X only as the 9th
// character.
func maskSecondaryID(raw string) string {
	var b strings.Builder
	for i := 0; i < len(raw) && b.Len() < 9; i++ {
		c := raw[i]
		switch {
		case c >= '0' && c <= '9':
			b.WriteByte(c)
		case (c == 'x' || c == 'X') && b.Len() == 8:
			b.WriteByte('X')
		}
	}
	return punctuate(b.String(), rgSeparators)
}

// punctuate inserts seps[i] before position i of s, only when s has a
// character at i.
func punctuate(s string, seps map[int]byte) string {
	var b strings.Builder
	b.Grow(len(s) + len(seps))
	for i := 0; i < len(s); i++ {
		if sep, ok := seps[i]; ok {
			b.WriteByte(sep)
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
