package testutil

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/vplan-fr/vplan/core/school"
)

// CreateSchool registers a school directly via the repository.
func CreateSchool(
	t *testing.T,
	repo school.Repository,
	number, name, pwd string,
	isActive bool,
	createdAt ...time.Time,
) school.School {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	sch := school.School{
		Number:    number,
		Name:      name,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := sch.SetPassword(pwd); err != nil {
			t.Fatalf("CreateSchool() failed: %v", err)
		}
	}
	sch, err := repo.CreateSchool(sch)
	if err != nil {
		t.Fatalf("CreateSchool() failed: %v", err)
	}
	return sch
}

// JSONDiff renders a unified diff of two values' JSON form for test failures.
func JSONDiff(t *testing.T, got, want interface{}) string {
	gotJSON, err := json.MarshalIndent(got, "", "  ")
	if err != nil {
		t.Fatalf("JSONDiff() failed: %v", err)
	}
	wantJSON, err := json.MarshalIndent(want, "", "  ")
	if err != nil {
		t.Fatalf("JSONDiff() failed: %v", err)
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(gotJSON)),
		B:        difflib.SplitLines(string(wantJSON)),
		FromFile: "got",
		ToFile:   "want",
		Context:  2,
	})
	if err != nil {
		t.Fatalf("JSONDiff() failed: %v", err)
	}
	return diff
}
