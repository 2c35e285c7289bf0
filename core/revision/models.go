// Package revision stores processed plan results per (school, date, upstream
// revision timestamp). Each unit is stamped with the engine version that
// produced it so stored plans can be recomputed after engine changes.
package revision

import (
	"encoding/json"
	"time"

	"github.com/vplan-fr/vplan/core/plan"
)

// Revision is one stored processing result.
type Revision struct {
	ID               string          `json:"id"`
	SchoolNumber     string          `json:"school_number"`
	Date             plan.Date       `json:"date"`
	Revision         time.Time       `json:"revision"` // upstream plan timestamp, UTC
	ProcessorVersion int             `json:"processor_version"`
	Payload          json.RawMessage `json:"payload"`
	CreatedAt        time.Time       `json:"created_at"` // UTC
}

// Result deserializes the stored processing result.
func (r Revision) Result() (*plan.Result, error) {
	var out plan.Result
	if err := json.Unmarshal(r.Payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IsCurrent reports whether the stored payload was produced by the running
// engine version.
func (r Revision) IsCurrent() bool {
	return r.ProcessorVersion == plan.Version
}
