// Package inmemdb provides map-backed repository implementations used by
// tests and local development runs.
package inmemdb

import (
	"sync"

	"github.com/vplan-fr/vplan/core/revision"
	"github.com/vplan-fr/vplan/core/school"
	"github.com/vplan-fr/vplan/core/teacher"
)

type DB struct {
	school    *schoolTable
	directory *directoryTable
	revision  *revisionTable
}

func NewDB() *DB {
	return &DB{
		school:    &schoolTable{table: make(map[int]*school.School)},
		directory: &directoryTable{table: make(map[string]teacher.Directory)},
		revision:  &revisionTable{table: make(map[string]*revision.Revision)},
	}
}

type schoolTable struct {
	mutex sync.RWMutex
	table map[int]*school.School
}

type directoryTable struct {
	mutex sync.RWMutex
	table map[string]teacher.Directory // keyed by school number
}

type revisionTable struct {
	mutex sync.RWMutex
	table map[string]*revision.Revision // keyed by revision ID
}
