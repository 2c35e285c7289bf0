package plan

import (
	"reflect"
	"testing"

	"github.com/volatiletech/null/v8"
)

func pairedBlocks() BlockConfig {
	return NewBlockConfig(map[int][]int{1: {1, 2}, 2: {3, 4}})
}

func singlePeriodRecord(period int, customize func(*LessonRecord)) LessonRecord {
	r := LessonRecord{
		OriginPlanType: PlanTypeForms,
		Periods:        []int{period},
		Course:         null.StringFrom("MA"),
		Forms:          OptStringsFrom("6/2"),
		Teachers:       OptStringsFrom("Mus"),
		Rooms:          OptStringsFrom("204"),
		TakesPlace:     null.BoolFrom(true),
	}
	if customize != nil {
		customize(&r)
	}
	return r
}

func TestGroupBlocksMergesAdjacentPeriods(t *testing.T) {
	records := Lessons{
		singlePeriodRecord(1, nil),
		singlePeriodRecord(2, nil),
	}

	out := GroupBlocks(records, PlanTypeForms, pairedBlocks())
	if len(out) != 1 {
		t.Fatalf("got %d records; expected 1", len(out))
	}
	if !reflect.DeepEqual(out[0].Periods, []int{1, 2}) {
		t.Errorf("periods = %v", out[0].Periods)
	}
}

// Records with differing course never merge, regardless of anything else.
func TestGroupBlocksDifferentCourseNeverMerges(t *testing.T) {
	records := Lessons{
		singlePeriodRecord(1, nil),
		singlePeriodRecord(2, func(r *LessonRecord) { r.Course = null.StringFrom("EN") }),
	}

	out := GroupBlocks(records, PlanTypeForms, pairedBlocks())
	if len(out) != 2 {
		t.Fatalf("got %d records; expected 2", len(out))
	}
}

func TestGroupBlocksRespectsBlockBoundaries(t *testing.T) {
	// periods 2 and 3 are adjacent but belong to different blocks
	records := Lessons{
		singlePeriodRecord(2, nil),
		singlePeriodRecord(3, nil),
	}

	out := GroupBlocks(records, PlanTypeForms, pairedBlocks())
	if len(out) != 2 {
		t.Fatalf("got %d records; expected 2", len(out))
	}
}

func TestGroupBlocksRequiresGroupableAnnotations(t *testing.T) {
	records := Lessons{
		singlePeriodRecord(1, func(r *LessonRecord) {
			r.Annotation = mustParseInfo(t, "MA Frau Musterfrau verlegt nach St.5")
		}),
		singlePeriodRecord(2, func(r *LessonRecord) {
			r.Annotation = mustParseInfo(t, "EN Frau Musterfrau verlegt nach St.5")
		}),
	}

	out := GroupBlocks(records, PlanTypeForms, pairedBlocks())
	if len(out) != 2 {
		t.Fatalf("incompatible annotations must not merge; got %d records", len(out))
	}

	records[1].Annotation = mustParseInfo(t, "MA Frau Musterfrau verlegt nach St.6")
	out = GroupBlocks(records, PlanTypeForms, pairedBlocks())
	if len(out) != 1 {
		t.Fatalf("groupable annotations must merge; got %d records", len(out))
	}
	fact := out[0].Annotation.Paragraphs[0].Messages[0].Fact.(MovedTo)
	if !reflect.DeepEqual(fact.Periods, []int{5, 6}) {
		t.Errorf("merged fact periods = %v", fact.Periods)
	}
}

func TestGroupBlocksUnionsViewedEntity(t *testing.T) {
	records := Lessons{
		singlePeriodRecord(1, func(r *LessonRecord) { r.Forms = OptStringsFrom("6/1") }),
		singlePeriodRecord(2, func(r *LessonRecord) { r.Forms = OptStringsFrom("6/2") }),
	}

	out := GroupBlocks(records, PlanTypeForms, pairedBlocks())
	if len(out) != 1 {
		t.Fatalf("got %d records; expected 1", len(out))
	}
	if !reflect.DeepEqual(out[0].Forms.Values, []string{"6/1", "6/2"}) {
		t.Errorf("forms = %v", out[0].Forms.Values)
	}
}

func TestGroupBlocksIndeterminateTakesPlace(t *testing.T) {
	records := Lessons{
		singlePeriodRecord(1, nil),
		singlePeriodRecord(2, func(r *LessonRecord) { r.TakesPlace = null.Bool{} }),
	}

	out := GroupBlocks(records, PlanTypeForms, pairedBlocks())
	if len(out) != 1 {
		t.Fatalf("got %d records; expected 1", len(out))
	}
	if out[0].TakesPlace.Valid {
		t.Error("disagreeing tri-state must become indeterminate")
	}
}

func TestGroupBlocksDifferentNonViewedAttribute(t *testing.T) {
	records := Lessons{
		singlePeriodRecord(1, nil),
		singlePeriodRecord(2, func(r *LessonRecord) { r.Rooms = OptStringsFrom("105") }),
	}

	out := GroupBlocks(records, PlanTypeForms, pairedBlocks())
	if len(out) != 2 {
		t.Fatalf("differing rooms must not merge in the forms view; got %d", len(out))
	}
}

func TestEntityViewsSorting(t *testing.T) {
	wide := PlanLesson{Periods: []int{1, 2}, CurrentForms: OptStringsFrom("6/2")}
	single := PlanLesson{Periods: []int{1}, CurrentForms: OptStringsFrom("6/2")}
	later := PlanLesson{Periods: []int{3}, CurrentForms: OptStringsFrom("6/2")}
	other := PlanLesson{Periods: []int{2}, CurrentForms: OptStringsFrom("7/1")}

	views := EntityViews([]PlanLesson{later, single, wide, other}, PlanTypeForms)

	group, ok := views["6/2"]
	if !ok || len(group) != 3 {
		t.Fatalf("unexpected group: %+v", views)
	}
	if !reflect.DeepEqual(group[0].Periods, []int{1, 2}) {
		t.Errorf("wider blocks sort first; got %v", group[0].Periods)
	}
	if !reflect.DeepEqual(group[1].Periods, []int{1}) || !reflect.DeepEqual(group[2].Periods, []int{3}) {
		t.Errorf("unexpected order: %v, %v", group[1].Periods, group[2].Periods)
	}
	if len(views["7/1"]) != 1 {
		t.Errorf("expected a 7/1 group")
	}
}

func TestEntityViewsSortsPeriodlessLast(t *testing.T) {
	noPeriods := PlanLesson{CurrentForms: OptStringsFrom("6/2")}
	timed := PlanLesson{Periods: []int{3}, CurrentForms: OptStringsFrom("6/2")}

	views := EntityViews([]PlanLesson{noPeriods, timed}, PlanTypeForms)

	group := views["6/2"]
	if len(group) != 2 {
		t.Fatalf("unexpected group: %+v", views)
	}
	if !reflect.DeepEqual(group[0].Periods, []int{3}) {
		t.Errorf("period-less lessons sort last; got %v first", group[0].Periods)
	}
	if len(group[1].Periods) != 0 {
		t.Errorf("unexpected order: %v", group[1].Periods)
	}
}

func TestEntityViewsUsesBothSides(t *testing.T) {
	l := PlanLesson{
		Periods:        []int{1},
		ScheduledForms: OptStringsFrom("6/1"),
		CurrentForms:   OptStringsFrom("6/2"),
	}

	views := EntityViews([]PlanLesson{l}, PlanTypeForms)
	if len(views["6/1"]) != 1 || len(views["6/2"]) != 1 {
		t.Errorf("lesson must appear under both forms: %+v", views)
	}
}
