package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	offerdomain "github.com/smallbiznis/quoteshare/internal/offer/domain"
	"gorm.io/datatypes"
)

// ShareLink grants counted access to one job's offers to whoever holds Token.
type ShareLink struct {
	Token            string            `gorm:"column:token" json:"token"`
	JobID            string            `gorm:"column:job_id" json:"job_id"`
	OrgID            snowflake.ID      `gorm:"column:org_id" json:"org_id"`
	ProductLine      string            `gorm:"column:product_line" json:"product_line"`
	ViewsCount       int64             `gorm:"column:views_count" json:"views_count"`
	EditCount        int64             `gorm:"column:edit_count" json:"edit_count"`
	LastViewedAt     *time.Time        `gorm:"column:last_viewed_at" json:"last_viewed_at,omitempty"`
	LastEditedAt     *time.Time        `gorm:"column:last_edited_at" json:"last_edited_at,omitempty"`
	PayloadUpdatedAt *time.Time        `gorm:"column:payload_updated_at" json:"payload_updated_at,omitempty"`
	ViewPrefs        datatypes.JSONMap `gorm:"column:view_prefs" json:"view_prefs"`
	ExpiresAt        *time.Time        `gorm:"column:expires_at" json:"expires_at,omitempty"`
	RevokedAt        *time.Time        `gorm:"column:revoked_at" json:"revoked_at,omitempty"`
	CreatedAt        time.Time         `gorm:"column:created_at" json:"created_at"`
}

// Usable reports whether the link may still be resolved at now.
func (l ShareLink) Usable(now time.Time) bool {
	if l.RevokedAt != nil {
		return false
	}
	if l.ExpiresAt != nil && !now.Before(*l.ExpiresAt) {
		return false
	}
	return true
}

// ShareLinkView is what a token holder sees.
type ShareLinkView struct {
	Link      ShareLink           `json:"link"`
	Offers    []offerdomain.Offer `json:"offers"`
	ViewPrefs map[string]any      `json:"view_prefs"`
}
