package school

import (
	"errors"
	"time"

	"github.com/vplan-fr/vplan/core"
)

var (
	// errors
	ErrNotFound     = errors.New("school not found")
	ErrNumberExists = errors.New("a school with this number already exists")
)

type (
	Repository interface {
		CheckNumberUniqueness(number string) error
		CreateSchool(school School) (School, error)
		QueryAllSchools() ([]School, error)
		GetSchoolByNumber(number string) (School, error)
		UpdateSchool(school School, isActive *bool) (School, error)
		DeleteSchoolsByID(ids ...int) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkUniqueness(number string) error {
	if err := svc.repo.CheckNumberUniqueness(number); err != nil {
		if err == ErrNumberExists {
			return core.NewValidationError(err, core.FieldError{Field: "number", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ns NewSchool) (School, error) {
	now := time.Now().UTC()
	sch := School{
		Number:    ns.Number,
		Name:      ns.Name,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := sch.SetPassword(ns.Password); err != nil {
		return School{}, err
	}
	return svc.repo.CreateSchool(sch)
}

func (svc *Service) QueryAll() ([]School, error) {
	return svc.repo.QueryAllSchools()
}

func (svc *Service) GetByNumber(number string) (School, error) {
	return svc.repo.GetSchoolByNumber(core.CleanString(number))
}

// SetActive toggles a school's ability to authenticate.
func (svc *Service) SetActive(number string, active bool) (School, error) {
	sch, err := svc.GetByNumber(number)
	if err != nil {
		return School{}, err
	}
	sch.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSchool(sch, &active)
}

func (svc *Service) Delete(ids ...int) error {
	return svc.repo.DeleteSchoolsByID(ids...)
}
