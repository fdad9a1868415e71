package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Job is one ingestion unit: a single upload extracted for one subject.
// Jobs are immutable once created.
type Job struct {
	ID          string       `json:"id"`
	OrgID       snowflake.ID `json:"org_id"`
	SubjectRef  string       `json:"subject_ref"`
	ProductLine string       `json:"product_line"`
	CreatedAt   time.Time    `json:"created_at"`
}
