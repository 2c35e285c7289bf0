package teacher

import (
	"errors"
	"time"
)

var (
	// errors
	ErrNotFound = errors.New("teacher directory not found")
)

type (
	Repository interface {
		GetDirectory(schoolNumber string) (Directory, error)
		SaveDirectory(schoolNumber string, directory Directory) error
	}

	Service struct {
		repo   Repository
		maxAge time.Duration
	}
)

func NewService(repo Repository, maxAge time.Duration) *Service {
	return &Service{repo: repo, maxAge: maxAge}
}

func (svc *Service) Directory(schoolNumber string) (Directory, error) {
	return svc.repo.GetDirectory(schoolNumber)
}

// NeedsRefresh reports whether the school's directory is missing or older
// than the configured maximum age.
func (svc *Service) NeedsRefresh(schoolNumber string, now time.Time) (bool, error) {
	directory, err := svc.repo.GetDirectory(schoolNumber)
	if err == ErrNotFound {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return directory.IsStale(now, svc.maxAge), nil
}

// RecordObservations folds freshly observed teachers into the school's
// directory and persists the result. A missing directory is created.
func (svc *Service) RecordObservations(schoolNumber string, observed []Teacher, now time.Time) (Directory, error) {
	directory, err := svc.repo.GetDirectory(schoolNumber)
	if err != nil && err != ErrNotFound {
		return Directory{}, err
	}
	directory = directory.MergeObservations(observed, now)
	if err := svc.repo.SaveDirectory(schoolNumber, directory); err != nil {
		return Directory{}, err
	}
	return directory, nil
}
