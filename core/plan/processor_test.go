package plan

import (
	"reflect"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"
)

func TestParseAbsentElement(t *testing.T) {
	tests := []struct {
		in   string
		want AbsentEntry
	}{
		{"1302 (1-2,7-10)", AbsentEntry{Value: "1302", Periods: []int{1, 2, 7, 8, 9, 10}}},
		{"Frau Musterfrau", AbsentEntry{Value: "Frau Musterfrau"}},
		{"Meier (3)", AbsentEntry{Value: "Meier", Periods: []int{3}}},
		{"1306 (1-2,4,6)", AbsentEntry{Value: "1306", Periods: []int{1, 2, 4, 6}}},
	}
	for _, tt := range tests {
		got, err := ParseAbsentElement(tt.in)
		if err != nil {
			t.Errorf("ParseAbsentElement(%q): %v", tt.in, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseAbsentElement(%q) = %+v; expected %+v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseAbsentElement(""); err == nil {
		t.Error("expected error for empty entry")
	}
}

func testSchedule() DaySchedule {
	return DaySchedule{
		Date:      NewDate(2023, time.June, 7),
		Timestamp: time.Date(2023, time.June, 7, 6, 30, 0, 0, time.UTC),
		Week:      1,
		Records: Lessons{
			takingRecord(func(r *LessonRecord) {
				r.OriginID = null.IntFrom(1)
				r.Periods = []int{1}
				r.Forms = OptStringsFrom("6/2")
				r.Teachers = OptStringsFrom("Sch")
				r.Rooms = OptStringsFrom("204")
				r.TeacherChanged = true
			}),
			notTakingRecord(func(r *LessonRecord) {
				r.OriginID = null.IntFrom(1)
				r.IsScheduled = true
				r.Periods = []int{1}
				r.Forms = OptStringsFrom("6/2")
				r.Teachers = OptStringsFrom("Mül")
				r.Rooms = OptStringsFrom("204")
			}),
		},
		AdditionalInfo: []string{"Sportfest am Freitag", ""},
		FormDefaultTimes: map[string]DefaultTimes{
			"6/2": {
				1: {clock(7, 30), clock(8, 15)},
				2: {clock(8, 15), clock(9, 0)},
			},
		},
	}
}

func TestProcessorProcess(t *testing.T) {
	p := NewProcessor(nopLogger{}, map[string]string{"Frau Musterfrau": "Mus"}, []string{"101", "204"})

	subs := &Substitutions{
		AbsentTeachers: []AbsentEntry{{Value: "Frau Musterfrau", Periods: []int{1, 2}}},
		AbsentRooms:    []AbsentEntry{{Value: "101", Periods: []int{1}}},
	}

	result, err := p.Process(testSchedule(), subs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.WeekLetter != "A" {
		t.Errorf("week = %q; expected A", result.WeekLetter)
	}
	if !reflect.DeepEqual(result.AdditionalInfo, []string{"Sportfest am Freitag"}) {
		t.Errorf("additional info = %v", result.AdditionalInfo)
	}

	group, ok := result.Views[PlanTypeForms]["6/2"]
	if !ok || len(group) != 1 {
		t.Fatalf("unexpected forms view: %+v", result.Views[PlanTypeForms])
	}
	lesson := group[0]
	if !lesson.TeacherChanged || !lesson.ScheduledTeachers.Contains("Mül") || !lesson.CurrentTeachers.Contains("Sch") {
		t.Errorf("reconciliation lost data: %+v", lesson)
	}
	if !lesson.Begin.Valid || lesson.Begin.Time.Hour() != 7 || lesson.Begin.Time.Minute() != 30 {
		t.Errorf("default times not filled in: %+v", lesson.Begin)
	}

	// the absent teacher's internal records stay out of the teachers view
	if _, ok := result.Views[PlanTypeTeachers]["Mus"]; ok {
		t.Error("internal records must not appear in the teachers view")
	}

	if !reflect.DeepEqual(result.UsedRoomsByPeriod[1], []string{"204"}) {
		t.Errorf("used rooms = %v", result.UsedRoomsByPeriod[1])
	}
	if !reflect.DeepEqual(result.FreeRoomsByPeriod[1], []string{"101"}) {
		t.Errorf("free rooms = %v", result.FreeRoomsByPeriod[1])
	}

	if result.Statistics.Count != 1 {
		t.Errorf("count = %d; expected 1", result.Statistics.Count)
	}
	if result.Statistics.Cancelled != 0 {
		t.Errorf("cancelled = %d; expected 0", result.Statistics.Cancelled)
	}
}

func TestProcessorWithoutSubstitutions(t *testing.T) {
	p := NewProcessor(nopLogger{}, nil, nil)

	result, err := p.Process(testSchedule(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Views[PlanTypeForms]) == 0 {
		t.Error("expected a forms view")
	}
}

func TestBlockConfigForSchedule(t *testing.T) {
	blocks := blockConfigForSchedule(testSchedule())
	if blocks.IsTrivial() {
		t.Fatal("expected an inferred block configuration")
	}
	if got := blocks.BlockOfPeriod(2); got != 1 {
		t.Errorf("period 2 in block %d; expected 1", got)
	}
}
