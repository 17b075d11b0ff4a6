package service

import (
	"math"

	"tax-advisor/internal/domain"
)

// StrategyCatalog genera las estrategias candidatas para un perfil.
type StrategyCatalog interface {
	Candidates(profile domain.Profile) []domain.Strategy
}

// RuleCatalog es el catálogo basado en reglas. Los ahorros son estimaciones gruesas:
// el cálculo fiscal exacto vive fuera de este servicio.
type RuleCatalog struct{}

// DefaultStrategyCatalog permite uso directo sin instanciar.
var DefaultStrategyCatalog = RuleCatalog{}

const (
	assumedMarginalRate   = 0.22
	retirementDeferralCap = 23000.0
	hsaFamilyCap          = 8300.0
	capitalLossOffsetCap  = 3000.0
)

// Candidates recorre las reglas en orden fijo; el orden de salida es estable.
func (RuleCatalog) Candidates(p domain.Profile) []domain.Strategy {
	wages := domain.Num(p.Wages)
	se := domain.Num(p.SelfEmploymentIncome)
	inv := domain.Num(p.InvestmentIncome)
	rental := domain.Num(p.RentalIncome)
	foreign := domain.Num(p.ForeignIncome)
	earned := wages + se

	var out []domain.Strategy

	if earned > 0 {
		room := math.Max(0, retirementDeferralCap-domain.Num(p.RetirementContributions))
		deferral := math.Min(room, earned*0.15)
		if deferral > 0 {
			out = append(out, domain.Strategy{
				ID:               "retirement_deferral",
				Category:         "retirement",
				Title:            "Increase pre-tax retirement contributions",
				EstimatedSavings: savings(deferral * assumedMarginalRate),
				RiskContribution: 5,
				Narrative: "Raise your 401(k) or solo 401(k) elective deferral toward the annual limit. " +
					"Adjust payroll elections before the final pay period of the year.",
			})
		}
		out = append(out, domain.Strategy{
			ID:               "hsa_contribution",
			Category:         "health",
			Title:            "Fund a health savings account",
			EstimatedSavings: savings(math.Min(hsaFamilyCap, earned*0.05) * assumedMarginalRate),
			RiskContribution: 5,
			Narrative: "If you are covered by a high-deductible health plan, contribute to an HSA through payroll " +
				"to skip FICA as well as income tax. Keep receipts for qualified expenses.",
		})
	}

	if se > 0 {
		out = append(out, domain.Strategy{
			ID:               "home_office",
			Category:         "business_deduction",
			Title:            "Claim the home office deduction",
			EstimatedSavings: savings(math.Min(se*0.05, 1500) * 0.30),
			RiskContribution: 25,
			Narrative: "Measure the space used regularly and exclusively for business. Choose between the simplified " +
				"method and actual expenses, and document the exclusive-use test with photos and a floor plan.",
		})
	}
	if se >= 60000 {
		out = append(out, domain.Strategy{
			ID:               "s_corp_election",
			Category:         "entity_change",
			Title:            "Elect S corporation status",
			EstimatedSavings: savings((se - reasonableSalary(se)) * 0.153 * 0.9),
			RiskContribution: 15,
			Narrative: "Form or convert to an entity eligible for S status, file Form 2553 within the election window, " +
				"set a defensible reasonable salary and run payroll; remaining profit flows through without self-employment tax.",
		})
	}

	if inv > 0 {
		out = append(out, domain.Strategy{
			ID:               "tax_loss_harvesting",
			Category:         "investment",
			Title:            "Harvest unrealized investment losses",
			EstimatedSavings: savings(math.Min(capitalLossOffsetCap, inv*0.10) * 0.24),
			RiskContribution: 10,
			Narrative: "Sell positions trading below basis to offset realized gains and up to the annual ordinary-income " +
				"limit, then avoid repurchasing substantially identical securities for 30 days.",
		})
	}

	if wages > 0 && wages < 150000 {
		out = append(out, domain.Strategy{
			ID:               "roth_conversion",
			Category:         "timing",
			Title:            "Convert part of a traditional IRA to Roth",
			EstimatedSavings: savings(wages * 0.01),
			RiskContribution: 10,
			Narrative: "Convert an amount that fills your current bracket without spilling into the next one, " +
				"and pay the resulting tax from non-retirement funds.",
		})
	}

	if rental > 0 {
		out = append(out, domain.Strategy{
			ID:               "cost_segregation",
			Category:         "multi_step",
			Title:            "Commission a cost segregation study",
			EstimatedSavings: savings(rental * 0.08),
			RiskContribution: 30,
			Narrative: "Engage an engineering firm to reclassify building components into shorter recovery periods, " +
				"then file Form 3115 if the property was placed in service in a prior year.",
		})
	}

	if p.DigitalAssets() {
		out = append(out, domain.Strategy{
			ID:               "digital_asset_lot_selection",
			Category:         "digital_assets",
			Title:            "Use specific identification for digital asset lots",
			EstimatedSavings: 500,
			RiskContribution: 20,
			Narrative: "Identify the specific lots sold at the time of each disposal, keep exchange records that support " +
				"the identification, and reconcile them with broker-issued forms.",
		})
	}

	if foreign != 0 {
		out = append(out, domain.Strategy{
			ID:               "foreign_tax_credit",
			Category:         "international",
			Title:            "Claim the foreign tax credit",
			EstimatedSavings: savings(math.Abs(foreign) * 0.15),
			RiskContribution: 20,
			Narrative: "Compare the foreign tax credit with the foreign earned income exclusion, file Form 1116 by income " +
				"category and keep proof of foreign taxes paid.",
		})
	}

	if wages >= 100000 {
		out = append(out, domain.Strategy{
			ID:               "charitable_bunching",
			Category:         "timing",
			Title:            "Bunch charitable gifts into one year",
			EstimatedSavings: savings(wages * 0.01),
			RiskContribution: 5,
			Narrative: "Concentrate two or more years of giving into a donor-advised fund in a single year so itemized " +
				"deductions exceed the standard deduction, then take the standard deduction in the off years.",
		})
	}

	return out
}

func reasonableSalary(se float64) float64 {
	return math.Max(40000, se*0.5)
}

// savings redondea a unidades enteras y nunca devuelve negativos.
func savings(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return math.Round(v)
}
