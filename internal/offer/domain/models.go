package domain

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Offer is one insurer's quote extracted from an uploaded document.
type Offer struct {
	ID               snowflake.ID      `json:"id"`
	JobID            string            `json:"job_id"`
	OrgID            snowflake.ID      `json:"org_id"`
	Insurer          string            `json:"insurer"`
	InsurerKey       string            `json:"insurer_key"`
	SubjectRef       string            `json:"subject_ref"`
	InsuredEntity    *string           `json:"insured_entity,omitempty"`
	LegacyInquiryID  *string           `json:"legacy_inquiry_id,omitempty"`
	InsuredAmount    *float64          `json:"insured_amount,omitempty"`
	Currency         string            `json:"currency"`
	PremiumTotal     *float64          `json:"premium_total,omitempty"`
	PremiumBreakdown datatypes.JSONMap `json:"premium_breakdown,omitempty"`
	Territory        *string           `json:"territory,omitempty"`
	PeriodFrom       *time.Time        `json:"period_from,omitempty"`
	PeriodTo         *time.Time        `json:"period_to,omitempty"`
	Coverage         Coverage          `json:"coverage"`
	RawText          *string           `json:"raw_text,omitempty"`
	ProductLine      string            `json:"product_line"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Coverage is the open-ended document of policy terms attached to an offer.
// Keys vary by product line and are not interpreted by the store.
type Coverage map[string]any

func (c Coverage) Value() (driver.Value, error) {
	return datatypes.JSONMap(c).Value()
}

func (c *Coverage) Scan(value any) error {
	var m datatypes.JSONMap
	if err := m.Scan(value); err != nil {
		return err
	}
	*c = Coverage(m)
	return nil
}

// GormDataType lets gorm map the column the same way as datatypes.JSONMap.
func (Coverage) GormDataType() string {
	return datatypes.JSONMap(nil).GormDataType()
}

func (Coverage) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	return datatypes.JSONMap(nil).GormDBDataType(db, field)
}

// Bool returns the boolean stored under key.
func (c Coverage) Bool(key string) (bool, bool) {
	v, ok := c[key].(bool)
	return v, ok
}

// String returns the string stored under key.
func (c Coverage) String(key string) (string, bool) {
	v, ok := c[key].(string)
	return v, ok
}

// Number returns the numeric value stored under key.
func (c Coverage) Number(key string) (float64, bool) {
	switch v := c[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Merge applies patch key by key. A nil value removes the key.
func (c Coverage) Merge(patch map[string]any) Coverage {
	out := make(Coverage, len(c)+len(patch))
	for k, v := range c {
		out[k] = v
	}
	for k, v := range patch {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}
