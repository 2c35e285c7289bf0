package sqlxrepos

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/vplan-fr/vplan/core"
	"github.com/vplan-fr/vplan/core/plan"
	"github.com/vplan-fr/vplan/core/revision"
)

type revisionRow struct {
	ID               string          `db:"id"`
	SchoolNumber     string          `db:"school_number"`
	PlanDate         time.Time       `db:"plan_date"`
	Revision         time.Time       `db:"revision"`
	ProcessorVersion int             `db:"processor_version"`
	Payload          json.RawMessage `db:"payload"`
	CreatedAt        time.Time       `db:"created_at"`
}

func (r revisionRow) model() revision.Revision {
	return revision.Revision{
		ID:               r.ID,
		SchoolNumber:     r.SchoolNumber,
		Date:             plan.DateOf(r.PlanDate),
		Revision:         r.Revision.UTC(),
		ProcessorVersion: r.ProcessorVersion,
		Payload:          r.Payload,
		CreatedAt:        r.CreatedAt,
	}
}

type revisionRepository struct {
	db *sqlx.DB
}

var _ revision.Repository = (*revisionRepository)(nil) // interface compliance check

func NewRevisionRepository(db *sqlx.DB) *revisionRepository {
	return &revisionRepository{db: db}
}

func trapRevisionNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return revision.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// SaveRevision upserts the processing result for its (school, date, revision)
// key so reprocessing with a newer engine replaces the stored payload.
func (repo *revisionRepository) SaveRevision(rev revision.Revision) (revision.Revision, error) {
	if rev.ID == "" {
		rev.ID = uuid.New().String()
	}
	const q = `
		INSERT INTO plan_revision (id, school_number, plan_date, revision, processor_version, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (school_number, plan_date, revision)
		DO UPDATE SET processor_version = EXCLUDED.processor_version, payload = EXCLUDED.payload
		RETURNING id`
	err := repo.db.Get(
		&rev.ID, q,
		rev.ID, rev.SchoolNumber, rev.Date.Time(), rev.Revision.UTC(),
		rev.ProcessorVersion, rev.Payload, rev.CreatedAt.UTC(),
	)
	if err != nil {
		return revision.Revision{}, errors.Wrap(err, "saving plan revision")
	}
	return rev, nil
}

func (repo *revisionRepository) GetRevision(schoolNumber string, date plan.Date, rev time.Time) (revision.Revision, error) {
	const q = `
		SELECT * FROM plan_revision
		WHERE school_number = $1 AND plan_date = $2 AND revision = $3`
	var row revisionRow
	if err := repo.db.Get(&row, q, schoolNumber, date.Time(), rev.UTC()); err != nil {
		return revision.Revision{}, trapRevisionNoRowsErr(err, "getting plan revision")
	}
	return row.model(), nil
}

var latestFirst = core.DBOrdering{Field: "revision"}

func (repo *revisionRepository) GetLatestRevision(schoolNumber string, date plan.Date) (revision.Revision, error) {
	q := `
		SELECT * FROM plan_revision
		WHERE school_number = $1 AND plan_date = $2
		ORDER BY ` + latestFirst.String() + `
		LIMIT 1`
	var row revisionRow
	if err := repo.db.Get(&row, q, schoolNumber, date.Time()); err != nil {
		return revision.Revision{}, trapRevisionNoRowsErr(err, "getting latest plan revision")
	}
	return row.model(), nil
}

func (repo *revisionRepository) QueryRevisionTimestamps(schoolNumber string, date plan.Date) ([]time.Time, error) {
	const q = `
		SELECT revision FROM plan_revision
		WHERE school_number = $1 AND plan_date = $2
		ORDER BY revision`
	var stamps []time.Time
	if err := repo.db.Select(&stamps, q, schoolNumber, date.Time()); err != nil {
		return nil, errors.Wrap(err, "querying plan revisions")
	}
	for i := range stamps {
		stamps[i] = stamps[i].UTC()
	}
	return stamps, nil
}

func (repo *revisionRepository) QueryDates(schoolNumber string) ([]plan.Date, error) {
	const q = `
		SELECT DISTINCT plan_date FROM plan_revision
		WHERE school_number = $1
		ORDER BY plan_date`
	var days []time.Time
	if err := repo.db.Select(&days, q, schoolNumber); err != nil {
		return nil, errors.Wrap(err, "querying plan dates")
	}
	dates := make([]plan.Date, len(days))
	for i, d := range days {
		dates[i] = plan.DateOf(d)
	}
	return dates, nil
}
