// Package models holds the intake session snapshot and the value types that
// flow between the masking, validation, power, and lookup stages.
package models

import (
	"strings"
	"time"
)

// FieldName identifies one editable intake field. The string form is the wire
// name used by the HTTP API.
type FieldName string

const (
	FieldClientName    FieldName = "name"
	FieldClientStatus  FieldName = "client_status"
	FieldEmail         FieldName = "email"
	FieldPhone         FieldName = "phone"
	FieldNationalID    FieldName = "national_id"
	FieldBirthDate     FieldName = "birth_date"
	FieldIDDocType     FieldName = "id_doc_type"
	FieldIDDocNumber   FieldName = "id_doc_number"
	FieldPostalCode    FieldName = "postal_code"
	FieldStreet        FieldName = "street"
	FieldNumber        FieldName = "number"
	FieldNeighborhood  FieldName = "neighborhood"
	FieldCity          FieldName = "city"
	FieldRegion        FieldName = "region"
	FieldReference     FieldName = "reference_point"
	FieldConsumerUnit  FieldName = "consumer_unit"
	FieldUtility       FieldName = "utility_company"
	FieldMainBreaker   FieldName = "main_breaker"
	FieldInstalledKW   FieldName = "installed_power"
	FieldConsumption   FieldName = "consumption"
	FieldConnection    FieldName = "connection_type"
	FieldVoltage       FieldName = "voltage"
	FieldProjectStatus FieldName = "project_status"
)

var editable = map[FieldName]struct{}{
	FieldClientName: {}, FieldClientStatus: {}, FieldEmail: {}, FieldPhone: {},
	FieldNationalID: {}, FieldBirthDate: {}, FieldIDDocType: {}, FieldIDDocNumber: {},
	FieldPostalCode: {}, FieldStreet: {}, FieldNumber: {}, FieldNeighborhood: {},
	FieldCity: {}, FieldRegion: {}, FieldReference: {}, FieldConsumerUnit: {},
	FieldUtility: {}, FieldMainBreaker: {}, FieldInstalledKW: {}, FieldConsumption: {},
	FieldConnection: {}, FieldVoltage: {}, FieldProjectStatus: {},
}

// IsValid reports whether f names a field a client may edit. Available power
// is derived and deliberately absent.
func (f FieldName) IsValid() bool {
	_, ok := editable[f]
	return ok
}

// IsAddressField reports whether an edit to f can change the geocoding query.
func (f FieldName) IsAddressField() bool {
	switch f {
	case FieldStreet, FieldNumber, FieldNeighborhood, FieldCity, FieldRegion, FieldPostalCode:
		return true
	}
	return false
}

// IsPowerInput reports whether f feeds available power derivation.
func (f FieldName) IsPowerInput() bool {
	return f == FieldVoltage || f == FieldMainBreaker || f == FieldConnection
}

// RawFieldEdit is one user keystroke-level change.
type RawFieldEdit struct {
	Field     FieldName `json:"field"`
	Value     string    `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// PhaseType is the electrical connection type.
type PhaseType string

const (
	PhaseSingle PhaseType = "single"
	PhaseSplit  PhaseType = "split"
	PhaseThree  PhaseType = "three"
)

// ParsePhase accepts the canonical values and their Portuguese labels.
func ParsePhase(s string) (PhaseType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single", "single-phase", "monofásico", "monofasico":
		return PhaseSingle, true
	case "split", "split-phase", "bifásico", "bifasico":
		return PhaseSplit, true
	case "three", "three-phase", "trifásico", "trifasico":
		return PhaseThree, true
	}
	return "", false
}

// Label returns the Portuguese display label.
func (p PhaseType) Label() string {
	switch p {
	case PhaseSingle:
		return "Monofásico"
	case PhaseThree:
		return "Trifásico"
	default:
		return "Bifásico"
	}
}

// ClientStatus values come from the sales pipeline.
type ClientStatus string

const (
	StatusLead         ClientStatus = "Lead"
	StatusProposalSent ClientStatus = "Proposta Enviada"
	StatusClosed       ClientStatus = "Fechado"
	StatusActive       ClientStatus = "Cliente Ativo"
	StatusInactive     ClientStatus = "Inativo"
)

// ID document types. CIN reuses the national ID mask, RG the secondary ID mask.
const (
	DocTypeRG  = "RG"
	DocTypeCIN = "CIN"
	DocTypeRP  = "RP"
)

const (
	DefaultConsumption   = "350"
	DefaultVoltage       = "220V"
	DefaultProjectStatus = "Em Análise"
)

// Address is owned by the session snapshot. Postal lookups overwrite Street,
// Neighborhood, City, and Region in one step.
type Address struct {
	Street       string `json:"street"`
	Number       string `json:"number"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	Region       string `json:"region"`
	PostalCode   string `json:"postal_code"`
}

// AddressFragment is what a postal lookup returns.
type AddressFragment struct {
	Street       string `json:"street"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	Region       string `json:"region"`
}

// Apply overwrites the lookup-owned fields of a.
func (f AddressFragment) Apply(a *Address) {
	a.Street = f.Street
	a.Neighborhood = f.Neighborhood
	a.City = f.City
	a.Region = f.Region
}

// ElectricalProfile carries the power inputs. AvailablePowerKW is derived and
// only written by the power stage.
type ElectricalProfile struct {
	Voltage          string    `json:"voltage"`
	Breaker          string    `json:"main_breaker"`
	Phase            PhaseType `json:"connection_type"`
	AvailablePowerKW string    `json:"available_power"`
}

// Personal groups client identity fields.
type Personal struct {
	Name         string       `json:"name"`
	ClientStatus ClientStatus `json:"client_status"`
	Email        string       `json:"email"`
	Phone        string       `json:"phone"`
	NationalID   string       `json:"national_id"`
	BirthDate    string       `json:"birth_date"`
	IDDocType    string       `json:"id_doc_type"`
	IDDocNumber  string       `json:"id_doc_number"`
}

// Installation groups utility and project fields.
type Installation struct {
	ReferencePoint string `json:"reference_point"`
	ConsumerUnit   string `json:"consumer_unit"`
	UtilityCompany string `json:"utility_company"`
	InstalledPower string `json:"installed_power"`
	Consumption    string `json:"consumption"`
	ProjectStatus  string `json:"project_status"`
}

// Snapshot is the full intake form state of one session.
type Snapshot struct {
	Personal     Personal          `json:"personal"`
	Address      Address           `json:"address"`
	Installation Installation      `json:"installation"`
	Electrical   ElectricalProfile `json:"electrical"`
}

// NewSnapshot returns a snapshot with the form defaults applied.
func NewSnapshot() Snapshot {
	return Snapshot{
		Personal: Personal{
			ClientStatus: StatusLead,
			IDDocType:    DocTypeRG,
		},
		Installation: Installation{
			Consumption:   DefaultConsumption,
			ProjectStatus: DefaultProjectStatus,
		},
		Electrical: ElectricalProfile{
			Voltage: DefaultVoltage,
			Phase:   PhaseSplit,
		},
	}
}

// Get returns the current value of f.
func (s *Snapshot) Get(f FieldName) string {
	switch f {
	case FieldClientName:
		return s.Personal.Name
	case FieldClientStatus:
		return string(s.Personal.ClientStatus)
	case FieldEmail:
		return s.Personal.Email
	case FieldPhone:
		return s.Personal.Phone
	case FieldNationalID:
		return s.Personal.NationalID
	case FieldBirthDate:
		return s.Personal.BirthDate
	case FieldIDDocType:
		return s.Personal.IDDocType
	case FieldIDDocNumber:
		return s.Personal.IDDocNumber
	case FieldPostalCode:
		return s.Address.PostalCode
	case FieldStreet:
		return s.Address.Street
	case FieldNumber:
		return s.Address.Number
	case FieldNeighborhood:
		return s.Address.Neighborhood
	case FieldCity:
		return s.Address.City
	case FieldRegion:
		return s.Address.Region
	case FieldReference:
		return s.Installation.ReferencePoint
	case FieldConsumerUnit:
		return s.Installation.ConsumerUnit
	case FieldUtility:
		return s.Installation.UtilityCompany
	case FieldMainBreaker:
		return s.Electrical.Breaker
	case FieldInstalledKW:
		return s.Installation.InstalledPower
	case FieldConsumption:
		return s.Installation.Consumption
	case FieldConnection:
		return string(s.Electrical.Phase)
	case FieldVoltage:
		return s.Electrical.Voltage
	case FieldProjectStatus:
		return s.Installation.ProjectStatus
	}
	return ""
}

// Set stores an already-masked value. Unknown fields are ignored; callers
// check FieldName.IsValid first.
func (s *Snapshot) Set(f FieldName, v string) {
	switch f {
	case FieldClientName:
		s.Personal.Name = v
	case FieldClientStatus:
		s.Personal.ClientStatus = ClientStatus(v)
	case FieldEmail:
		s.Personal.Email = v
	case FieldPhone:
		s.Personal.Phone = v
	case FieldNationalID:
		s.Personal.NationalID = v
	case FieldBirthDate:
		s.Personal.BirthDate = v
	case FieldIDDocType:
		s.Personal.IDDocType = v
	case FieldIDDocNumber:
		s.Personal.IDDocNumber = v
	case FieldPostalCode:
		s.Address.PostalCode = v
	case FieldStreet:
		s.Address.Street = v
	case FieldNumber:
		s.Address.Number = v
	case FieldNeighborhood:
		s.Address.Neighborhood = v
	case FieldCity:
		s.Address.City = v
	case FieldRegion:
		s.Address.Region = v
	case FieldReference:
		s.Installation.ReferencePoint = v
	case FieldConsumerUnit:
		s.Installation.ConsumerUnit = v
	case FieldUtility:
		s.Installation.UtilityCompany = v
	case FieldMainBreaker:
		s.Electrical.Breaker = v
	case FieldInstalledKW:
		s.Installation.InstalledPower = v
	case FieldConsumption:
		s.Installation.Consumption = v
	case FieldConnection:
		if p, ok := ParsePhase(v); ok {
			s.Electrical.Phase = p
		}
	case FieldVoltage:
		s.Electrical.Voltage = v
	case FieldProjectStatus:
		s.Installation.ProjectStatus = v
	}
}

// ExistingClient is a previously saved client used to prefill a session.
type ExistingClient struct {
	Name                string       `json:"name"`
	Email               string       `json:"email"`
	Phone               string       `json:"phone"`
	AvgConsumption      float64      `json:"avg_consumption"`
	Status              ClientStatus `json:"status"`
	InstallationAddress string       `json:"installation_address"`
	City                string       `json:"city"`
	State               string       `json:"state"`
	PostalCode          string       `json:"postal_code"`
	ConnectionType      string       `json:"connection_type"`
}

// SplitStreetNumber splits "Street, Number" on the first comma.
func SplitStreetNumber(addr string) (street, number string) {
	parts := strings.Split(addr, ",")
	street = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		number = strings.TrimSpace(parts[1])
	}
	return street, number
}
