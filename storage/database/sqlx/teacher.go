package sqlxrepos

import (
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/vplan-fr/vplan/core/teacher"
)

type teacherDirectoryRow struct {
	SchoolNumber string          `db:"school_number"`
	Payload      json.RawMessage `db:"payload"`
	UpdatedAt    sql.NullTime    `db:"updated_at"`
}

type teacherRepository struct {
	db *sqlx.DB
}

var _ teacher.Repository = (*teacherRepository)(nil) // interface compliance check

func NewTeacherRepository(db *sqlx.DB) *teacherRepository {
	return &teacherRepository{db: db}
}

func (repo *teacherRepository) GetDirectory(schoolNumber string) (teacher.Directory, error) {
	var row teacherDirectoryRow
	err := repo.db.Get(&row, "SELECT * FROM teacher_directory WHERE school_number = $1", schoolNumber)
	if err != nil {
		if err == sql.ErrNoRows {
			return teacher.Directory{}, teacher.ErrNotFound
		}
		return teacher.Directory{}, errors.Wrap(err, "getting teacher directory")
	}
	var directory teacher.Directory
	if err = json.Unmarshal(row.Payload, &directory); err != nil {
		return teacher.Directory{}, errors.Wrap(err, "decoding teacher directory")
	}
	return directory, nil
}

func (repo *teacherRepository) SaveDirectory(schoolNumber string, directory teacher.Directory) error {
	payload, err := json.Marshal(directory)
	if err != nil {
		return errors.Wrap(err, "encoding teacher directory")
	}
	const q = `
		INSERT INTO teacher_directory (school_number, payload, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (school_number) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`
	if _, err = repo.db.Exec(q, schoolNumber, payload, directory.UpdatedAt.UTC()); err != nil {
		return errors.Wrap(err, "saving teacher directory")
	}
	return nil
}
