package inmemdb

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vplan-fr/vplan/core/plan"
	"github.com/vplan-fr/vplan/core/revision"
)

type revisionRepository struct {
	db *revisionTable
}

func NewRevisionRepository(db *DB) revision.Repository {
	return &revisionRepository{db: db.revision}
}

func (repo *revisionRepository) query(schoolNumber string, date plan.Date) []revision.Revision {
	revs := make([]revision.Revision, 0, len(repo.db.table))
	for _, rev := range repo.db.table {
		if rev.SchoolNumber == schoolNumber && rev.Date == date {
			revs = append(revs, *rev)
		}
	}
	sort.Slice(revs, func(i, j int) bool { return revs[i].Revision.Before(revs[j].Revision) })
	return revs
}

func (repo *revisionRepository) SaveRevision(rev revision.Revision) (revision.Revision, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for id, existing := range repo.db.table {
		if existing.SchoolNumber == rev.SchoolNumber && existing.Date == rev.Date && existing.Revision.Equal(rev.Revision) {
			rev.ID = id
			repo.db.table[id] = &rev
			return rev, nil
		}
	}
	if rev.ID == "" {
		rev.ID = uuid.New().String()
	}
	repo.db.table[rev.ID] = &rev
	return rev, nil
}

func (repo *revisionRepository) GetRevision(schoolNumber string, date plan.Date, stamp time.Time) (revision.Revision, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, rev := range repo.db.table {
		if rev.SchoolNumber == schoolNumber && rev.Date == date && rev.Revision.Equal(stamp) {
			return *rev, nil
		}
	}
	return revision.Revision{}, revision.ErrNotFound
}

func (repo *revisionRepository) GetLatestRevision(schoolNumber string, date plan.Date) (revision.Revision, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	revs := repo.query(schoolNumber, date)
	if len(revs) == 0 {
		return revision.Revision{}, revision.ErrNotFound
	}
	return revs[len(revs)-1], nil
}

func (repo *revisionRepository) QueryRevisionTimestamps(schoolNumber string, date plan.Date) ([]time.Time, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	revs := repo.query(schoolNumber, date)
	stamps := make([]time.Time, len(revs))
	for i, rev := range revs {
		stamps[i] = rev.Revision
	}
	return stamps, nil
}

func (repo *revisionRepository) QueryDates(schoolNumber string) ([]plan.Date, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	seen := make(map[plan.Date]bool)
	for _, rev := range repo.db.table {
		if rev.SchoolNumber == schoolNumber {
			seen[rev.Date] = true
		}
	}
	dates := make([]plan.Date, 0, len(seen))
	for date := range seen {
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}
