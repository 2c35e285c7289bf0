package school

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vplan-fr/vplan/core"
)

// School is one registered school: the upstream numeric identifier plus the
// credential its frontend users authenticate with.
type School struct {
	ID           int       `json:"id"`
	Number       string    `json:"number"`
	Name         string    `json:"name"`
	IsActive     bool      `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (s *School) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.PasswordHash = hash
	return nil
}

func (s *School) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(s.PasswordHash, []byte(pwd))
}

// NewSchool contains information needed to register a new School.
type NewSchool struct {
	Number          string `json:"number" validate:"required,schoolnumber"`
	Name            string `json:"name" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (ns *NewSchool) Validate(svc *Service) error {
	ns.Number = core.CleanString(ns.Number)
	ns.Name = core.CleanString(ns.Name)

	if err := core.Validate.Struct(ns); err != nil {
		return err
	}
	return svc.checkUniqueness(ns.Number)
}
