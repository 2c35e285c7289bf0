package teacher

import (
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/vplan-fr/vplan/core/plan"
)

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func TestFromClasses(t *testing.T) {
	seen := time.Date(2023, time.June, 7, 0, 0, 0, 0, time.UTC)
	classes := map[string]Class{
		"101": {Number: "101", Subject: "MA KL", Teacher: "Mus", Forms: []string{"6/2"}},
		"102": {Number: "102", Subject: "ETH", Teacher: "Sch Wei", Forms: []string{"6/2"}},
	}

	got := FromClasses(classes, seen)
	sort.Slice(got, func(i, j int) bool { return got[i].Abbreviation < got[j].Abbreviation })
	if len(got) != 3 {
		t.Fatalf("got %d sightings; expected 3", len(got))
	}
	if got[0].Abbreviation != "Mus" || !reflect.DeepEqual(got[0].Subjects, []string{"MA"}) {
		t.Errorf("organizational subjects must be dropped: %+v", got[0])
	}
	if got[1].Abbreviation != "Sch" || got[2].Abbreviation != "Wei" {
		t.Errorf("multi-teacher classes must yield one sighting each: %+v", got)
	}
}

func TestExtractFromRecords(t *testing.T) {
	seen := time.Date(2023, time.June, 7, 0, 0, 0, 0, time.UTC)
	classes := map[string]Class{
		"101": {Number: "101", Subject: "MA", Teacher: "Mus", Forms: []string{"6/1", "6/2"}},
		"102": {Number: "102", Subject: "ETH", Teacher: "Sch", Forms: []string{"6/2"}},
	}

	records := plan.Lessons{
		{
			OriginPlanType: plan.PlanTypeForms,
			Periods:        []int{1},
			Forms:          plan.OptStringsFrom("6/2"),
			Teachers:       plan.OptStringsFrom("Ver"),
			Annotation: plan.Annotation{Paragraphs: []plan.Paragraph{{
				Messages: []plan.Message{{
					Raw:  []string{"für MA Frau Musterfrau"},
					Fact: plan.InsteadOfCourse{Course: "MA", Teachers: []string{"Frau Musterfrau"}},
				}},
			}}},
		},
	}

	got := ExtractFromRecords(records, classes, seen, nopLogger{})

	if _, ok := got["Ver"]; !ok {
		t.Error("directly named abbreviation missing")
	}
	mus, ok := got["Mus"]
	if !ok {
		t.Fatalf("surname not resolved against class list: %v", got)
	}
	if mus.Surname.String != "Frau Musterfrau" {
		t.Errorf("surname = %q", mus.Surname.String)
	}
}

func TestExtractSkipsBareSurnames(t *testing.T) {
	records := plan.Lessons{
		{
			OriginPlanType: plan.PlanTypeForms,
			Forms:          plan.OptStringsFrom("6/2"),
			Annotation: plan.Annotation{Paragraphs: []plan.Paragraph{{
				Messages: []plan.Message{{
					Raw:  []string{"MA Musterfrau fällt aus"},
					Fact: plan.Cancelled{Course: "MA", Teachers: []string{"Musterfrau"}},
				}},
			}}},
		},
	}

	got := ExtractFromRecords(records, nil, time.Time{}, nopLogger{})
	if len(got) != 0 {
		t.Errorf("one-word surnames must not resolve: %v", got)
	}
}

func TestExtractNarrowsByClassNumber(t *testing.T) {
	seen := time.Date(2023, time.June, 7, 0, 0, 0, 0, time.UTC)
	classes := map[string]Class{
		"201": {Number: "201", Subject: "EN", Teacher: "Mus", Forms: []string{"6/2"}},
		"202": {Number: "202", Subject: "EN", Teacher: "Wei", Forms: []string{"6/2"}},
	}

	record := plan.LessonRecord{
		OriginPlanType: plan.PlanTypeForms,
		Forms:          plan.OptStringsFrom("6/2"),
		ClassNumber:    null.StringFrom("202"),
		Annotation: plan.Annotation{Paragraphs: []plan.Paragraph{{
			Messages: []plan.Message{{
				Raw:  []string{"EN Herr Weise fällt aus"},
				Fact: plan.Cancelled{Course: "EN", Teachers: []string{"Herr Weise"}},
			}},
		}}},
	}

	got := ExtractFromRecords(plan.Lessons{record}, classes, seen, nopLogger{})
	if _, ok := got["Wei"]; !ok {
		t.Fatalf("class number must disambiguate: %v", got)
	}
	if _, ok := got["Mus"]; ok {
		t.Error("wrong class resolved")
	}
}
