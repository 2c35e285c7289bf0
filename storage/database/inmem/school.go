package inmemdb

import (
	"sort"

	"github.com/vplan-fr/vplan/core/school"
)

var pkCount int

type schoolRepository struct {
	db *schoolTable
}

func NewSchoolRepository(db *DB) school.Repository {
	return &schoolRepository{db: db.school}
}

func (repo *schoolRepository) query() []school.School {
	schools := make([]school.School, 0, len(repo.db.table))
	for _, s := range repo.db.table {
		schools = append(schools, *s)
	}
	sort.Slice(schools, func(i, j int) bool { return schools[i].Number < schools[j].Number })
	return schools
}

func (repo *schoolRepository) CheckNumberUniqueness(number string) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, sch := range repo.db.table {
		if sch.Number == number {
			return school.ErrNumberExists
		}
	}
	return nil
}

func (repo *schoolRepository) CreateSchool(sch school.School) (school.School, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	pkCount++
	sch.ID = pkCount
	repo.db.table[sch.ID] = &sch
	return sch, nil
}

func (repo *schoolRepository) QueryAllSchools() ([]school.School, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.query(), nil
}

func (repo *schoolRepository) GetSchoolByNumber(number string) (school.School, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, sch := range repo.db.table {
		if sch.Number == number {
			return *sch, nil
		}
	}
	return school.School{}, school.ErrNotFound
}

func (repo *schoolRepository) UpdateSchool(sch school.School, isActive *bool) (school.School, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var orig *school.School
	for _, s := range repo.db.table {
		if s.Number == sch.Number {
			orig = s
			break
		}
	}
	if orig == nil {
		return school.School{}, school.ErrNotFound
	}
	// only save set fields
	if sch.PasswordHash != nil {
		orig.PasswordHash = sch.PasswordHash
	}
	if isActive != nil {
		orig.IsActive = *isActive
	}
	orig.Name = sch.Name
	orig.UpdatedAt = sch.UpdatedAt
	return *orig, nil
}

func (repo *schoolRepository) DeleteSchoolsByID(ids ...int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
