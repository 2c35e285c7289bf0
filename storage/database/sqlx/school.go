package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/vplan-fr/vplan/core"
	"github.com/vplan-fr/vplan/core/school"
)

type schoolRow struct {
	ID           int       `db:"id"`
	Number       string    `db:"number"`
	Name         string    `db:"name"`
	IsActive     bool      `db:"is_active"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r schoolRow) model() school.School {
	return school.School{
		ID:           r.ID,
		Number:       r.Number,
		Name:         r.Name,
		IsActive:     r.IsActive,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sqlx.DB) *schoolRepository {
	return &schoolRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to school.ErrNotFound
func trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return school.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *schoolRepository) CheckNumberUniqueness(number string) error {
	var exists bool
	err := repo.db.Get(&exists, "SELECT EXISTS (SELECT 1 FROM school WHERE number = $1)", number)
	if err != nil {
		return errors.Wrap(err, "checking school uniqueness")
	}
	if exists {
		return school.ErrNumberExists
	}
	return nil
}

func (repo *schoolRepository) CreateSchool(sch school.School) (school.School, error) {
	const q = `
		INSERT INTO school (number, name, is_active, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := repo.db.Get(
		&sch.ID, q,
		sch.Number, sch.Name, sch.IsActive, sch.PasswordHash, sch.CreatedAt.UTC(), sch.UpdatedAt.UTC(),
	)
	if err != nil {
		return school.School{}, errors.Wrap(err, "inserting school")
	}
	return sch, nil
}

var schoolOrdering = core.DBOrdering{Field: "number", Ascending: true}

func (repo *schoolRepository) QueryAllSchools() ([]school.School, error) {
	var rows []schoolRow
	if err := repo.db.Select(&rows, "SELECT * FROM school ORDER BY "+schoolOrdering.String()); err != nil {
		return nil, errors.Wrap(err, "querying schools")
	}
	out := make([]school.School, len(rows))
	for i, r := range rows {
		out[i] = r.model()
	}
	return out, nil
}

func (repo *schoolRepository) GetSchoolByNumber(number string) (school.School, error) {
	var row schoolRow
	if err := repo.db.Get(&row, "SELECT * FROM school WHERE number = $1", number); err != nil {
		return school.School{}, trapNoRowsErr(err, "getting school")
	}
	return row.model(), nil
}

func (repo *schoolRepository) UpdateSchool(sch school.School, isActive *bool) (school.School, error) {
	const q = `
		UPDATE school
		SET name = $2, password_hash = $3, is_active = COALESCE($4, is_active), updated_at = $5
		WHERE number = $1
		RETURNING *`
	var row schoolRow
	var active sql.NullBool
	if isActive != nil {
		active = sql.NullBool{Bool: *isActive, Valid: true}
	}
	err := repo.db.Get(&row, q, sch.Number, sch.Name, sch.PasswordHash, active, sch.UpdatedAt.UTC())
	if err != nil {
		return school.School{}, trapNoRowsErr(err, "updating school")
	}
	return row.model(), nil
}

func (repo *schoolRepository) DeleteSchoolsByID(ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In("DELETE FROM school WHERE id IN (?)", ids)
	if err != nil {
		return errors.Wrap(err, "deleting schools")
	}
	if _, err = repo.db.Exec(repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting schools")
	}
	return nil
}
