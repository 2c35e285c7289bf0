package plan

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/vplan-fr/vplan/core"
)

// PlanLesson is the unified, display-ready record combining the current and
// scheduled side of one lesson occurrence. It is constructed fresh per
// reconciliation pass and never mutated afterwards.
type PlanLesson struct {
	Periods []int     `json:"periods"`
	Begin   null.Time `json:"begin"`
	End     null.Time `json:"end"`

	ScheduledForms    OptStrings  `json:"scheduled_forms"`
	ScheduledTeachers OptStrings  `json:"scheduled_teachers"`
	ScheduledRooms    OptStrings  `json:"scheduled_rooms"`
	ScheduledCourse   null.String `json:"scheduled_course"`

	CurrentForms    OptStrings  `json:"current_forms"`
	CurrentTeachers OptStrings  `json:"current_teachers"`
	CurrentRooms    OptStrings  `json:"current_rooms"`
	CurrentCourse   null.String `json:"current_course"`

	ClassNumber null.String `json:"class_number"`
	ClassGroup  null.String `json:"class_group"`

	SubjectChanged bool `json:"subject_changed"`
	TeacherChanged bool `json:"teacher_changed"`
	RoomChanged    bool `json:"room_changed"`
	FormsChanged   bool `json:"forms_changed"`

	TakesPlace  null.Bool `json:"takes_place"`
	IsUnplanned bool      `json:"is_unplanned"`
	IsInternal  bool      `json:"is_internal"`

	Annotation Annotation `json:"info"`
}

// RecordPair is one current/scheduled pairing produced by PairRecords.
// Either side may be nil, never both.
type RecordPair struct {
	Current   *LessonRecord
	Scheduled *LessonRecord
}

// PairRecords pairs "takes place" records with their "does not take place"
// counterparts among records sharing one exact period set. The strategy, in
// order: exact origin-id match, flag-consistency heuristic with the most
// constrained candidates first, then a single-leftover fallback. Records left
// over after all three steps pair against an absent other side. Ambiguous
// resolutions are logged, not raised; upstream data rarely carries reliable
// cross-references between the two plan halves.
func PairRecords(records Lessons, logger core.Logger) []RecordPair {
	var taking, notTaking []*LessonRecord
	for i := range records {
		r := &records[i]
		if r.TakesPlace.Valid && !r.TakesPlace.Bool {
			notTaking = append(notTaking, r)
		} else {
			taking = append(taking, r)
		}
	}

	var pairs []RecordPair
	consumed := make(map[*LessonRecord]bool)

	// step 1: deterministic pairing via upstream lesson ids
	for _, c := range notTaking {
		if !c.OriginID.Valid || consumed[c] {
			continue
		}
		for _, t := range taking {
			if consumed[t] || !t.OriginID.Valid || t.OriginID.Int != c.OriginID.Int {
				continue
			}
			pairs = append(pairs, RecordPair{Current: t, Scheduled: c})
			consumed[t], consumed[c] = true, true
			break
		}
	}

	// step 2: flag-consistency heuristic; try the hardest-to-satisfy
	// candidates first to minimize false pairings
	candidates := append([]*LessonRecord(nil), notTaking...)
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if sa, sb := candidateSpecificity(a), candidateSpecificity(b); sa != sb {
			return sa > sb
		}
		return a.Annotation.CanonicalKey() < b.Annotation.CanonicalKey()
	})

	for _, t := range taking {
		if consumed[t] {
			continue
		}
		var matches []*LessonRecord
		for _, c := range candidates {
			if !consumed[c] && flagsConsistent(t, c) {
				matches = append(matches, c)
			}
		}
		if len(matches) == 0 {
			continue
		}
		if len(matches) > 1 {
			logger.Warn(fmt.Sprintf("plan: %d compatible scheduled candidates for lesson %s, taking the most constrained",
				len(matches), describeRecord(t)))
		}
		pairs = append(pairs, RecordPair{Current: t, Scheduled: matches[0]})
		consumed[t], consumed[matches[0]] = true, true
	}

	remainingTaking := unconsumed(taking, consumed)
	remainingNot := unconsumed(notTaking, consumed)

	// step 3: a single leftover on both sides pairs unconditionally
	if len(remainingNot) == 1 && len(remainingTaking) == 1 {
		logger.Warn(fmt.Sprintf("plan: pairing leftover lessons %s and %s without evidence",
			describeRecord(remainingTaking[0]), describeRecord(remainingNot[0])))
		pairs = append(pairs, RecordPair{Current: remainingTaking[0], Scheduled: remainingNot[0]})
		remainingTaking, remainingNot = nil, nil
	}

	// step 4: leftovers reconcile against an absent other side
	for _, t := range remainingTaking {
		pairs = append(pairs, RecordPair{Current: t})
	}
	for _, c := range remainingNot {
		pairs = append(pairs, RecordPair{Scheduled: c})
	}
	return pairs
}

// candidateSpecificity orders heuristic candidates: more set changed flags
// and more known attribute sets make a candidate harder to satisfy.
func candidateSpecificity(r *LessonRecord) int {
	n := 0
	for _, flag := range []bool{r.SubjectChanged, r.TeacherChanged, r.RoomChanged, r.FormsChanged} {
		if flag {
			n += 2
		}
	}
	for _, s := range []OptStrings{r.Forms, r.Teachers, r.Rooms} {
		if s.Valid {
			n++
		}
	}
	return n
}

// flagsConsistent checks whether the current record's changed flags agree
// with the candidate scheduled record: a changed attribute must differ from
// the candidate's, an unchanged one must still cover it.
func flagsConsistent(current, candidate *LessonRecord) bool {
	attrs := []struct {
		changed    bool
		cur, cand  OptStrings
	}{
		{current.TeacherChanged, current.Teachers, candidate.Teachers},
		{current.RoomChanged, current.Rooms, candidate.Rooms},
		{current.FormsChanged, current.Forms, candidate.Forms},
	}
	for _, a := range attrs {
		covers := a.cur.ContainsAll(a.cand) || (!a.cur.Valid && !a.cand.Valid)
		if a.changed == covers {
			return false
		}
	}

	coursesEqual := nullStringEqual(current.Course, candidate.Course)
	if current.SubjectChanged == coursesEqual {
		return false
	}
	return true
}

// Reconcile combines one current and one scheduled record into a PlanLesson.
// At least one side must be present; the missing side is synthesized as an
// empty placeholder carrying the other side's timing. planValue is the entity
// the resulting lesson will be filed under, used for diagnostics only.
func Reconcile(pair RecordPair, planType PlanType, planValue string) (PlanLesson, error) {
	current, scheduled := pair.Current, pair.Scheduled
	if current == nil && scheduled == nil {
		return PlanLesson{}, errors.New("plan: reconcile needs at least one record")
	}

	if current == nil {
		current = emptySide(scheduled, false)
	}
	if scheduled == nil {
		scheduled = emptySide(current, true)
	}

	out := PlanLesson{
		Periods: uniqueSortedInts(current.Periods),
		Begin:   firstValidTime(current.Begin, scheduled.Begin),
		End:     firstValidTime(current.End, scheduled.End),

		ScheduledForms:    scheduled.Forms,
		ScheduledTeachers: scheduled.Teachers,
		ScheduledRooms:    scheduled.Rooms,
		ScheduledCourse:   scheduled.Course,

		CurrentForms:    current.Forms,
		CurrentTeachers: current.Teachers,
		CurrentRooms:    current.Rooms,
		CurrentCourse:   current.Course,

		ClassNumber: firstValidString(current.ClassNumber, scheduled.ClassNumber),
		ClassGroup:  firstValidString(current.ClassGroup, scheduled.ClassGroup),

		SubjectChanged: current.SubjectChanged,
		TeacherChanged: current.TeacherChanged,
		RoomChanged:    current.RoomChanged,
		FormsChanged:   current.FormsChanged,

		TakesPlace:  current.TakesPlace,
		IsUnplanned: pair.Scheduled == nil && pair.Current != nil,
		IsInternal:  current.IsInternal || scheduled.IsInternal,

		Annotation: Combine(current.Annotation, scheduled.Annotation),
	}
	if len(out.Periods) == 0 {
		out.Periods = uniqueSortedInts(scheduled.Periods)
	}
	if !out.TakesPlace.Valid {
		out.TakesPlace = scheduled.TakesPlace
	}

	if fact, ok := synthesizeChangeFact(current, scheduled, pair.Current != nil, out.TakesPlace, planType); ok {
		out.Annotation = Combine(out.Annotation, annotationForFact(fact, len(out.Annotation.Paragraphs)))
	}
	return out, nil
}

// synthesizeChangeFact derives the "für X" / "X fällt aus" message a viewer
// reads when the scheduled side names a course the current side no longer
// has. The current side's changed flags decide only when a real current
// record from the viewed plan type exists; otherwise the course difference
// is evaluated directly, since foreign-plan records only partially project
// each entity's changed flags.
func synthesizeChangeFact(current, scheduled *LessonRecord, currentPresent bool,
	takesPlace null.Bool, planType PlanType) (Fact, bool) {
	if !scheduled.Course.Valid {
		return nil, false
	}

	var changed bool
	if !currentPresent || current.OriginPlanType != planType {
		changed = !nullStringEqual(current.Course, scheduled.Course)
	} else {
		switch planType {
		case PlanTypeForms:
			changed = current.SubjectChanged
		case PlanTypeTeachers:
			changed = current.TeacherChanged
		default:
			changed = current.RoomChanged
		}
	}
	if !changed {
		return nil, false
	}

	teachers := []string{}
	if scheduled.Teachers.Valid {
		teachers = scheduled.Teachers.Values
	}
	periods := uniqueSortedInts(append(append([]int(nil), current.Periods...), scheduled.Periods...))

	if takesPlace.Valid && !takesPlace.Bool {
		return Cancelled{Course: scheduled.Course.String, Teachers: teachers, Periods: periods}, true
	}
	return InsteadOfCourse{Course: scheduled.Course.String, Teachers: teachers, Periods: periods}, true
}

// annotationForFact wraps a synthesized fact in its own paragraph, rendered
// the way the plan author would have phrased it.
func annotationForFact(fact Fact, index int) Annotation {
	var text string
	switch f := fact.(type) {
	case Cancelled:
		text = strings.TrimSpace(fmt.Sprintf("%s %s fällt aus", f.Course, strings.Join(f.Teachers, ", ")))
	case InsteadOfCourse:
		text = strings.TrimSpace(fmt.Sprintf("für %s %s", f.Course, strings.Join(f.Teachers, ", ")))
	default:
		return Annotation{}
	}
	return Annotation{Paragraphs: []Paragraph{{
		Messages: []Message{{Raw: []string{text}, Fact: fact}},
		Index:    index,
	}}}
}

func emptySide(other *LessonRecord, scheduled bool) *LessonRecord {
	return &LessonRecord{
		OriginPlanType: other.OriginPlanType,
		IsScheduled:    scheduled,
		Periods:        append([]int(nil), other.Periods...),
		Begin:          other.Begin,
		End:            other.End,
	}
}

func describeRecord(r *LessonRecord) string {
	course := "?"
	if r.Course.Valid {
		course = r.Course.String
	}
	return fmt.Sprintf("%s@%v", course, uniqueSortedInts(r.Periods))
}

func firstValidTime(a, b null.Time) null.Time {
	if a.Valid {
		return a
	}
	return b
}

func firstValidString(a, b null.String) null.String {
	if a.Valid {
		return a
	}
	return b
}

func nullStringEqual(a, b null.String) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.String == b.String
}

func unconsumed(records []*LessonRecord, consumed map[*LessonRecord]bool) []*LessonRecord {
	var out []*LessonRecord
	for _, r := range records {
		if !consumed[r] {
			out = append(out, r)
		}
	}
	return out
}
