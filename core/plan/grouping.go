package plan

import (
	"sort"

	"github.com/volatiletech/null/v8"
)

// mergeLookback bounds how far back the greedy block merge searches for a
// partner. Together with the pre-sort it keeps grouping deterministic and
// linear instead of globally optimal.
const mergeLookback = 3

// groupComparator defines the total sort order driving the greedy block
// merge for one plan type. Records that may merge become adjacent under this
// order: the viewed entity's value and the periods come last so candidates
// differing only in those sort next to each other.
type groupComparator struct {
	planType PlanType
}

func (c groupComparator) key(r LessonRecord) string {
	other1, other2 := c.otherAttributes(r)
	return takesPlaceKey(r.TakesPlace) + "\x1c" +
		nullStringKey(r.Course) + "\x1c" +
		other1.Key() + "\x1c" +
		other2.Key() + "\x1c" +
		r.Annotation.CanonicalKey() + "\x1c" +
		r.EntityValues(c.planType).Key() + "\x1c" +
		r.periodsKey()
}

// otherAttributes returns the two entity attributes not grouped by.
func (c groupComparator) otherAttributes(r LessonRecord) (OptStrings, OptStrings) {
	switch c.planType {
	case PlanTypeForms:
		return r.Teachers, r.Rooms
	case PlanTypeTeachers:
		return r.Forms, r.Rooms
	default:
		return r.Forms, r.Teachers
	}
}

// GroupBlocks merges single-period records into multi-period block records
// where structure, annotations and the block configuration allow. The input
// is left untouched; merged records are fresh values.
func GroupBlocks(records Lessons, planType PlanType, blocks BlockConfig) Lessons {
	cmp := groupComparator{planType: planType}

	sorted := append(Lessons(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return cmp.key(sorted[i]) < cmp.key(sorted[j])
	})

	var out Lessons
	for _, r := range sorted {
		merged := false
		for back := 1; back <= mergeLookback && back <= len(out); back++ {
			i := len(out) - back
			if m, ok := mergeRecords(out[i], r, planType, blocks); ok {
				out[i] = m
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, r)
		}
	}
	return out
}

// mergeRecords merges b into a if every merge condition holds: same course,
// compatible takes_place, equal non-viewed attributes, groupable annotations
// and all periods within one block.
func mergeRecords(a, b LessonRecord, planType PlanType, blocks BlockConfig) (LessonRecord, bool) {
	if !nullStringEqual(a.Course, b.Course) {
		return LessonRecord{}, false
	}
	if a.TakesPlace.Valid && b.TakesPlace.Valid && a.TakesPlace.Bool != b.TakesPlace.Bool {
		return LessonRecord{}, false
	}
	if a.IsInternal != b.IsInternal || a.IsScheduled != b.IsScheduled {
		return LessonRecord{}, false
	}

	cmp := groupComparator{planType: planType}
	a1, a2 := cmp.otherAttributes(a)
	b1, b2 := cmp.otherAttributes(b)
	if !a1.Equal(b1) || !a2.Equal(b2) {
		return LessonRecord{}, false
	}

	if !a.Annotation.GroupableWith(b.Annotation) {
		return LessonRecord{}, false
	}

	periods := uniqueSortedInts(append(append([]int(nil), a.Periods...), b.Periods...))
	if !singleBlock(periods, blocks) {
		return LessonRecord{}, false
	}

	merged := a
	merged.Periods = periods
	merged.Annotation = MergeAnnotations(a.Annotation, b.Annotation)
	merged = merged.withEntityValues(planType,
		a.EntityValues(planType).Union(b.EntityValues(planType)))
	merged.Begin = minValidTime(a.Begin, b.Begin)
	merged.End = maxValidTime(a.End, b.End)

	// a disagreement on the tri-state is not guessed away
	if a.TakesPlace.Valid != b.TakesPlace.Valid {
		merged.TakesPlace = null.Bool{}
	}
	if !a.OriginID.Valid || !b.OriginID.Valid || a.OriginID.Int != b.OriginID.Int {
		merged.OriginID = null.Int{}
	}
	merged.SubjectChanged = a.SubjectChanged || b.SubjectChanged
	merged.TeacherChanged = a.TeacherChanged || b.TeacherChanged
	merged.RoomChanged = a.RoomChanged || b.RoomChanged
	merged.FormsChanged = a.FormsChanged || b.FormsChanged
	return merged, true
}

func singleBlock(periods []int, blocks BlockConfig) bool {
	seen := make(map[int]bool)
	for _, p := range periods {
		seen[blocks.BlockOfPeriod(p)] = true
	}
	return len(seen) <= 1
}

// EntityViews groups reconciled lessons by the viewed entity's values; a
// lesson naming several entities (a two-form course, say) appears under each.
// Within one entity, wider blocks sort before their constituent singles at
// the same starting period.
func EntityViews(lessons []PlanLesson, planType PlanType) map[string][]PlanLesson {
	out := make(map[string][]PlanLesson)
	for _, l := range lessons {
		for _, value := range l.entityValues(planType).Values {
			out[value] = append(out[value], l)
		}
	}
	for value, group := range out {
		sortPlanLessons(group)
		out[value] = group
	}
	return out
}

func (l PlanLesson) entityValues(planType PlanType) OptStrings {
	switch planType {
	case PlanTypeForms:
		return l.ScheduledForms.Union(l.CurrentForms)
	case PlanTypeTeachers:
		return l.ScheduledTeachers.Union(l.CurrentTeachers)
	default:
		return l.ScheduledRooms.Union(l.CurrentRooms)
	}
}

func sortPlanLessons(lessons []PlanLesson) {
	sort.SliceStable(lessons, func(i, j int) bool {
		a, b := lessons[i], lessons[j]
		am, bm := minInts(a.Periods), minInts(b.Periods)
		if am != bm {
			return am < bm
		}
		return len(a.Periods) > len(b.Periods)
	})
}

func takesPlaceKey(b null.Bool) string {
	switch {
	case !b.Valid:
		return "0"
	case !b.Bool:
		return "1"
	default:
		return "2"
	}
}

func nullStringKey(s null.String) string {
	if !s.Valid {
		return "\x00"
	}
	return s.String
}

func minValidTime(a, b null.Time) null.Time {
	switch {
	case !a.Valid:
		return b
	case !b.Valid:
		return a
	case b.Time.Before(a.Time):
		return b
	}
	return a
}

func maxValidTime(a, b null.Time) null.Time {
	switch {
	case !a.Valid:
		return b
	case !b.Valid:
		return a
	case b.Time.After(a.Time):
		return b
	}
	return a
}
