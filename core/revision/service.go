package revision

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/vplan-fr/vplan/core/plan"
)

var (
	// errors
	ErrNotFound = errors.New("plan revision not found")
)

type (
	Repository interface {
		SaveRevision(rev Revision) (Revision, error)
		GetRevision(schoolNumber string, date plan.Date, revision time.Time) (Revision, error)
		// GetLatestRevision returns the revision with the newest upstream
		// timestamp for the given day.
		GetLatestRevision(schoolNumber string, date plan.Date) (Revision, error)
		QueryRevisionTimestamps(schoolNumber string, date plan.Date) ([]time.Time, error)
		QueryDates(schoolNumber string) ([]plan.Date, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Store serializes a processing result and persists it under its school, date
// and upstream revision timestamp.
func (svc *Service) Store(schoolNumber string, result *plan.Result) (Revision, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return Revision{}, err
	}
	return svc.repo.SaveRevision(Revision{
		SchoolNumber:     schoolNumber,
		Date:             result.Date,
		Revision:         result.Timestamp.UTC(),
		ProcessorVersion: plan.Version,
		Payload:          payload,
		CreatedAt:        time.Now().UTC(),
	})
}

func (svc *Service) Get(schoolNumber string, date plan.Date, revision time.Time) (Revision, error) {
	return svc.repo.GetRevision(schoolNumber, date, revision.UTC())
}

func (svc *Service) GetLatest(schoolNumber string, date plan.Date) (Revision, error) {
	return svc.repo.GetLatestRevision(schoolNumber, date)
}

func (svc *Service) Timestamps(schoolNumber string, date plan.Date) ([]time.Time, error) {
	return svc.repo.QueryRevisionTimestamps(schoolNumber, date)
}

func (svc *Service) Dates(schoolNumber string) ([]plan.Date, error) {
	return svc.repo.QueryDates(schoolNumber)
}

// NeedsReprocess reports whether the stored unit is missing or was produced
// by an older engine version.
func (svc *Service) NeedsReprocess(schoolNumber string, date plan.Date, revision time.Time) (bool, error) {
	rev, err := svc.repo.GetRevision(schoolNumber, date, revision.UTC())
	if err == ErrNotFound {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return !rev.IsCurrent(), nil
}
