package model

import "time"

// Interest is the financial interest registration of a legislator
type Interest struct {
	ID           int64
	LegislatorID int64
	InterestFields
	SourceURL string
	UpdatedAt time.Time
}

// InterestFields holds the free-text answers of the registration form
type InterestFields struct {
	BoardPositions           string
	PaidWork                 string
	BusinessActivities       string
	FinancialSupport         string
	Gifts                    string
	Trips                    string
	DebtForgiveness          string
	RealEstate               string
	CompanyOwnership         string
	FormerEmployerAgreements string
	FutureEmployerAgreements string
	OtherPositions           string
}

// Filled returns the number of non-empty answers
func (f InterestFields) Filled() int {
	n := 0
	for _, v := range f.Values() {
		if v != "" {
			n++
		}
	}
	return n
}

// Values returns the answers in form order
func (f InterestFields) Values() []string {
	return []string{
		f.BoardPositions,
		f.PaidWork,
		f.BusinessActivities,
		f.FinancialSupport,
		f.Gifts,
		f.Trips,
		f.DebtForgiveness,
		f.RealEstate,
		f.CompanyOwnership,
		f.FormerEmployerAgreements,
		f.FutureEmployerAgreements,
		f.OtherPositions,
	}
}

// InterestMeta represents a hagsmunir document
type InterestMeta struct {
	LegislatorSourceID int
	InterestFields
}
