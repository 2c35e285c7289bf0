package inmemdb

import (
	"github.com/vplan-fr/vplan/core/teacher"
)

type teacherRepository struct {
	db *directoryTable
}

func NewTeacherRepository(db *DB) teacher.Repository {
	return &teacherRepository{db: db.directory}
}

func (repo *teacherRepository) GetDirectory(schoolNumber string) (teacher.Directory, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if directory, ok := repo.db.table[schoolNumber]; ok {
		return directory, nil
	}
	return teacher.Directory{}, teacher.ErrNotFound
}

func (repo *teacherRepository) SaveDirectory(schoolNumber string, directory teacher.Directory) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.table[schoolNumber] = directory
	return nil
}
