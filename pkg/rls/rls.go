package rls

import (
	"strconv"

	"github.com/smallbiznis/quoteshare/pkg/db"
	"gorm.io/gorm"
)

// set_config accepts bind parameters where SET LOCAL does not.
const setTenantSQL = "SELECT set_config('app.current_org_id', ?, true)"

// WithTenant pins the transaction to orgID so row level security policies
// apply. Dialects without RLS support are left untouched.
func WithTenant(tx *gorm.DB, orgID int64) error {
	if !db.IsPostgres(tx) {
		return nil
	}
	return pinTenant(tx, orgID).Error
}

func pinTenant(tx *gorm.DB, orgID int64) *gorm.DB {
	return tx.Exec(setTenantSQL, strconv.FormatInt(orgID, 10))
}
