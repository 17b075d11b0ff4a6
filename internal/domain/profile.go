package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ProfileSchemaVersion versiona el conjunto cerrado de campos del perfil.
const ProfileSchemaVersion = 1

// Profile es el snapshot fiscal de la sesión. Los punteros distinguen "ausente" de cero.
// Los campos desconocidos viven en Extensions y nunca alimentan al scoring.
type Profile struct {
	SchemaVersion           int            `json:"schema_version"`
	TaxYear                 *int           `json:"tax_year,omitempty"`
	FilingStatus            *string        `json:"filing_status,omitempty"`
	Wages                   *float64       `json:"wages,omitempty"`
	SelfEmploymentIncome    *float64       `json:"self_employment_income,omitempty"`
	InvestmentIncome        *float64       `json:"investment_income,omitempty"`
	RentalIncome            *float64       `json:"rental_income,omitempty"`
	ForeignIncome           *float64       `json:"foreign_income,omitempty"`
	PassiveLossBalance      *float64       `json:"passive_loss_balance,omitempty"`
	RetirementContributions *float64       `json:"retirement_contributions,omitempty"`
	Dependents              *int           `json:"dependents,omitempty"`
	Jurisdictions           []string       `json:"jurisdictions,omitempty"`
	HasDigitalAssets        *bool          `json:"has_digital_assets,omitempty"`
	Extensions              map[string]any `json:"extensions,omitempty"`
}

// Rango aceptado para tax_year.
const (
	minTaxYear = 1900
	maxTaxYear = 9999
)

// coreFieldCount es la cantidad de campos que cuentan para la completitud.
const coreFieldCount = 10

// Num devuelve el valor o cero si está ausente.
func Num(v *float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0
	}
	return *v
}

// AggregateIncome suma salarios, autónomo, inversiones y alquileres.
func (p Profile) AggregateIncome() float64 {
	return Num(p.Wages) + Num(p.SelfEmploymentIncome) + Num(p.InvestmentIncome) + Num(p.RentalIncome)
}

// DigitalAssets indica si hay transacciones con activos digitales declaradas.
func (p Profile) DigitalAssets() bool {
	return p.HasDigitalAssets != nil && *p.HasDigitalAssets
}

// Year devuelve el año fiscal o 0 si no fue informado.
func (p Profile) Year() int {
	if p.TaxYear == nil {
		return 0
	}
	return *p.TaxYear
}

// Completeness devuelve la fracción de campos núcleo presentes, en [0,1].
func (p Profile) Completeness() float64 {
	present := 0
	if p.TaxYear != nil {
		present++
	}
	if p.FilingStatus != nil && strings.TrimSpace(*p.FilingStatus) != "" {
		present++
	}
	for _, v := range []*float64{p.Wages, p.SelfEmploymentIncome, p.InvestmentIncome, p.RentalIncome, p.ForeignIncome} {
		if v != nil {
			present++
		}
	}
	if p.Dependents != nil {
		present++
	}
	if len(p.Jurisdictions) > 0 {
		present++
	}
	if p.HasDigitalAssets != nil {
		present++
	}
	c := float64(present) / coreFieldCount
	if c > 1 {
		c = 1
	}
	return c
}

// HasComplexScenario marca escenarios que requieren más de un cálculo lineal.
func (p Profile) HasComplexScenario() bool {
	return Num(p.SelfEmploymentIncome) > 0 ||
		Num(p.RentalIncome) > 0 ||
		Num(p.ForeignIncome) != 0 ||
		Num(p.PassiveLossBalance) < 0 ||
		p.DigitalAssets() ||
		len(p.Jurisdictions) > 1
}

// Merge aplica un parche sin borrar campos: los escalares presentes pisan, las
// jurisdicciones se unen y las extensiones se combinan por clave.
func (p Profile) Merge(patch Profile) Profile {
	out := p.Clone()
	out.SchemaVersion = ProfileSchemaVersion
	if patch.TaxYear != nil {
		out.TaxYear = intPtr(*patch.TaxYear)
	}
	if patch.FilingStatus != nil {
		out.FilingStatus = strPtr(*patch.FilingStatus)
	}
	mergeNum(&out.Wages, patch.Wages)
	mergeNum(&out.SelfEmploymentIncome, patch.SelfEmploymentIncome)
	mergeNum(&out.InvestmentIncome, patch.InvestmentIncome)
	mergeNum(&out.RentalIncome, patch.RentalIncome)
	mergeNum(&out.ForeignIncome, patch.ForeignIncome)
	mergeNum(&out.PassiveLossBalance, patch.PassiveLossBalance)
	mergeNum(&out.RetirementContributions, patch.RetirementContributions)
	if patch.Dependents != nil {
		out.Dependents = intPtr(*patch.Dependents)
	}
	if patch.HasDigitalAssets != nil {
		out.HasDigitalAssets = boolPtr(*patch.HasDigitalAssets)
	}
	out.Jurisdictions = unionJurisdictions(out.Jurisdictions, patch.Jurisdictions)
	if len(patch.Extensions) > 0 {
		if out.Extensions == nil {
			out.Extensions = make(map[string]any, len(patch.Extensions))
		}
		maps.Copy(out.Extensions, patch.Extensions)
	}
	return out
}

// Clone hace una copia profunda de los campos tipados.
func (p Profile) Clone() Profile {
	out := Profile{SchemaVersion: p.SchemaVersion}
	if p.TaxYear != nil {
		out.TaxYear = intPtr(*p.TaxYear)
	}
	if p.FilingStatus != nil {
		out.FilingStatus = strPtr(*p.FilingStatus)
	}
	out.Wages = cloneNum(p.Wages)
	out.SelfEmploymentIncome = cloneNum(p.SelfEmploymentIncome)
	out.InvestmentIncome = cloneNum(p.InvestmentIncome)
	out.RentalIncome = cloneNum(p.RentalIncome)
	out.ForeignIncome = cloneNum(p.ForeignIncome)
	out.PassiveLossBalance = cloneNum(p.PassiveLossBalance)
	out.RetirementContributions = cloneNum(p.RetirementContributions)
	if p.Dependents != nil {
		out.Dependents = intPtr(*p.Dependents)
	}
	if p.HasDigitalAssets != nil {
		out.HasDigitalAssets = boolPtr(*p.HasDigitalAssets)
	}
	if p.Jurisdictions != nil {
		out.Jurisdictions = append([]string(nil), p.Jurisdictions...)
	}
	if p.Extensions != nil {
		out.Extensions = maps.Clone(p.Extensions)
	}
	return out
}

// ParseProfileFields convierte el mapa libre del request en un parche tipado.
// Un tipo inválido en un campo conocido es error de input; las claves desconocidas van a Extensions.
func ParseProfileFields(fields map[string]any) (Profile, error) {
	patch := Profile{SchemaVersion: ProfileSchemaVersion}
	for rawKey, value := range fields {
		key := strings.ToLower(strings.TrimSpace(rawKey))
		if key == "" || value == nil {
			continue
		}
		var err error
		switch key {
		case "tax_year":
			patch.TaxYear, err = toInt(value)
			if err == nil && (*patch.TaxYear < minTaxYear || *patch.TaxYear > maxTaxYear) {
				err = fmt.Errorf("tax year out of range")
			}
		case "filing_status":
			var s string
			s, err = toString(value)
			if err == nil {
				patch.FilingStatus = strPtr(strings.ToLower(s))
			}
		case "wages":
			patch.Wages, err = toFloat(value)
		case "self_employment_income":
			patch.SelfEmploymentIncome, err = toFloat(value)
		case "investment_income":
			patch.InvestmentIncome, err = toFloat(value)
		case "rental_income":
			patch.RentalIncome, err = toFloat(value)
		case "foreign_income":
			patch.ForeignIncome, err = toFloat(value)
		case "passive_loss_balance":
			patch.PassiveLossBalance, err = toFloat(value)
		case "retirement_contributions":
			patch.RetirementContributions, err = toFloat(value)
		case "dependents":
			patch.Dependents, err = toInt(value)
			if err == nil && *patch.Dependents < 0 {
				err = fmt.Errorf("negative value")
			}
		case "jurisdictions":
			patch.Jurisdictions, err = toJurisdictions(value)
		case "has_digital_assets":
			patch.HasDigitalAssets, err = toBool(value)
		default:
			if patch.Extensions == nil {
				patch.Extensions = make(map[string]any)
			}
			patch.Extensions[key] = value
		}
		if err != nil {
			return Profile{}, fmt.Errorf("%w: %s: %v", ErrInvalidProfileField, key, err)
		}
	}
	return patch, nil
}

func toFloat(v any) (*float64, error) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return nil, err
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(t), ",", ""), 64)
		if err != nil {
			return nil, fmt.Errorf("not a number")
		}
		f = parsed
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("not a finite number")
	}
	return &f, nil
}

func toInt(v any) (*int, error) {
	f, err := toFloat(v)
	if err != nil {
		return nil, err
	}
	if *f != math.Trunc(*f) {
		return nil, fmt.Errorf("not an integer")
	}
	if math.Abs(*f) > math.MaxInt32 {
		return nil, fmt.Errorf("out of range")
	}
	i := int(*f)
	return &i, nil
}

func toBool(v any) (*bool, error) {
	switch t := v.(type) {
	case bool:
		return &t, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return nil, fmt.Errorf("not a boolean")
		}
		return &b, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

func toString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("unsupported type %T", v)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty string")
	}
	return s, nil
}

func toJurisdictions(v any) ([]string, error) {
	var raw []string
	switch t := v.(type) {
	case string:
		raw = strings.Split(t, ",")
	case []string:
		raw = t
	case []any:
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("unsupported element type %T", item)
			}
			raw = append(raw, s)
		}
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
	return unionJurisdictions(nil, raw), nil
}

func unionJurisdictions(base, extra []string) []string {
	if len(extra) == 0 {
		return base
	}
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, j := range append(append([]string(nil), base...), extra...) {
		j = strings.ToUpper(strings.TrimSpace(j))
		if j == "" {
			continue
		}
		if _, ok := seen[j]; ok {
			continue
		}
		seen[j] = struct{}{}
		out = append(out, j)
	}
	sort.Strings(out)
	return out
}

func mergeNum(dst **float64, src *float64) {
	if src != nil {
		*dst = cloneNum(src)
	}
}

func cloneNum(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }
