package domain

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/gosimple/slug"
)

const DefaultCurrency = "EUR"

// InsurerKey is the normalised, index-backed form of an insurer name.
func InsurerKey(insurer string) string {
	return slug.Make(strings.TrimSpace(insurer))
}

// NormalizeCurrency upper-cases an ISO 4217 code, defaulting to EUR.
func NormalizeCurrency(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		return DefaultCurrency, nil
	}
	if len(code) != 3 {
		return "", ErrInvalidCurrency
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", ErrInvalidCurrency
		}
	}
	return code, nil
}

// Validate checks the invariants every stored offer must satisfy.
func (o *Offer) Validate() error {
	if strings.TrimSpace(o.Insurer) == "" || o.InsurerKey == "" {
		return ErrInvalidInsurer
	}
	if strings.TrimSpace(o.SubjectRef) == "" {
		return ErrInvalidSubjectRef
	}
	if o.Coverage == nil {
		return ErrInvalidCoverage
	}
	if _, err := NormalizeCurrency(o.Currency); err != nil {
		return err
	}
	if negative(o.InsuredAmount) || negative(o.PremiumTotal) {
		return ErrInvalidAmount
	}
	if o.PeriodFrom != nil && o.PeriodTo != nil && o.PeriodFrom.After(*o.PeriodTo) {
		return ErrInvalidPeriod
	}
	return nil
}

func negative(v *float64) bool {
	return v != nil && *v < 0
}

// Apply returns a copy of o with patch applied and reports whether any
// stored field differs. The caller sets UpdatedAt.
func (o Offer) Apply(patch OfferPatch) (Offer, bool, error) {
	next := o
	if patch.Insurer != nil {
		next.Insurer = strings.TrimSpace(*patch.Insurer)
		next.InsurerKey = InsurerKey(next.Insurer)
	}
	if patch.InsuredEntity != nil {
		next.InsuredEntity = patch.InsuredEntity
	}
	if patch.LegacyInquiryID != nil {
		next.LegacyInquiryID = patch.LegacyInquiryID
	}
	if patch.InsuredAmount != nil {
		next.InsuredAmount = patch.InsuredAmount
	}
	if patch.Currency != nil {
		code, err := NormalizeCurrency(*patch.Currency)
		if err != nil {
			return o, false, err
		}
		next.Currency = code
	}
	if patch.PremiumTotal != nil {
		next.PremiumTotal = patch.PremiumTotal
	}
	if patch.PremiumBreakdown != nil {
		next.PremiumBreakdown = patch.PremiumBreakdown
	}
	if patch.Territory != nil {
		next.Territory = patch.Territory
	}
	if patch.PeriodFrom != nil {
		next.PeriodFrom = patch.PeriodFrom
	}
	if patch.PeriodTo != nil {
		next.PeriodTo = patch.PeriodTo
	}
	if patch.Coverage != nil {
		next.Coverage = o.Coverage.Merge(patch.Coverage)
	}
	if patch.RawText != nil {
		next.RawText = patch.RawText
	}

	if err := next.Validate(); err != nil {
		return o, false, err
	}
	return next, !sameOffer(o, next), nil
}

// sameOffer compares the encoded documents. Stored JSON numbers scan as
// json.Number while decoded patches carry float64, so DeepEqual is not enough.
func sameOffer(a, b Offer) bool {
	left, err := json.Marshal(a)
	if err != nil {
		return reflect.DeepEqual(a, b)
	}
	right, err := json.Marshal(b)
	if err != nil {
		return reflect.DeepEqual(a, b)
	}
	return bytes.Equal(left, right)
}
