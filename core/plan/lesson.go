package plan

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/volatiletech/null/v8"
)

// OptStrings is a nullable set of strings. The zero value is "unknown"
// (upstream did not report the attribute); a valid empty set means "none".
// The two states are distinct everywhere: an unknown room set must not be
// treated as "no rooms".
type OptStrings struct {
	Values []string
	Valid  bool
}

// OptStringsFrom builds a known set; values are deduplicated and sorted.
func OptStringsFrom(values ...string) OptStrings {
	return OptStrings{Values: uniqueSortedStrings(values), Valid: true}
}

// UnknownStrings is the explicit "unknown" state.
func UnknownStrings() OptStrings {
	return OptStrings{}
}

func (s OptStrings) IsEmpty() bool {
	return !s.Valid || len(s.Values) == 0
}

func (s OptStrings) Contains(value string) bool {
	if !s.Valid {
		return false
	}
	i := sort.SearchStrings(s.Values, value)
	return i < len(s.Values) && s.Values[i] == value
}

// ContainsAll reports whether s is a superset of other. An unknown side never
// contains anything.
func (s OptStrings) ContainsAll(other OptStrings) bool {
	if !s.Valid || !other.Valid {
		return false
	}
	for _, v := range other.Values {
		if !s.Contains(v) {
			return false
		}
	}
	return true
}

// Union merges two sets. Unknown swallows into the known side; two unknowns
// stay unknown.
func (s OptStrings) Union(other OptStrings) OptStrings {
	switch {
	case !s.Valid:
		return other
	case !other.Valid:
		return s
	}
	return OptStringsFrom(append(append([]string(nil), s.Values...), other.Values...)...)
}

func (s OptStrings) Equal(other OptStrings) bool {
	if s.Valid != other.Valid {
		return false
	}
	if !s.Valid {
		return true
	}
	if len(s.Values) != len(other.Values) {
		return false
	}
	for i := range s.Values {
		if s.Values[i] != other.Values[i] {
			return false
		}
	}
	return true
}

// Key is a stable sort key; the unknown state sorts before any known set.
func (s OptStrings) Key() string {
	if !s.Valid {
		return "\x00"
	}
	out := ""
	for _, v := range s.Values {
		out += v + "\x1f"
	}
	return out
}

func (s OptStrings) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	if s.Values == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.Values)
}

func (s *OptStrings) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = OptStrings{}
		return nil
	}
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*s = OptStringsFrom(values...)
	return nil
}

// LessonRecord is one period-scoped occurrence from a single plan document,
// either the scheduled (template) or the current (after substitutions) side.
// Records are immutable from a consumer's perspective; grouping produces new,
// wider records instead of mutating existing ones.
type LessonRecord struct {
	// identity
	OriginPlanType PlanType
	OriginID       null.Int // links the two sides of one upstream entry
	IsScheduled    bool

	// content; Periods is a singleton before block grouping
	Periods     []int
	Begin       null.Time
	End         null.Time
	Forms       OptStrings
	Teachers    OptStrings
	Rooms       OptStrings
	Course      null.String
	ClassNumber null.String
	ClassGroup  null.String
	Annotation  Annotation

	// structural deltas between the two sides, as flagged upstream
	SubjectChanged bool
	TeacherChanged bool
	RoomChanged    bool
	FormsChanged   bool

	TakesPlace null.Bool

	// IsInternal marks synthetic records derived from absence lists; they
	// never come from upstream plan data.
	IsInternal bool
}

// NormalizePureCancellation applies the upstream convention that a current
// record with takes_place=false whose course equals the scheduled course
// means "no lesson at all": the current course becomes unknown so viewers
// don't render a course that isn't happening.
func (r LessonRecord) NormalizePureCancellation(scheduledCourse null.String) LessonRecord {
	if r.IsScheduled {
		return r
	}
	pure := r.TakesPlace.Valid && !r.TakesPlace.Bool &&
		r.Course.Valid && scheduledCourse.Valid && r.Course.String == scheduledCourse.String
	if pure {
		r.Course = null.String{}
	}
	return r
}

// EntityValues returns the attribute set the given plan type groups by.
func (r LessonRecord) EntityValues(planType PlanType) OptStrings {
	switch planType {
	case PlanTypeForms:
		return r.Forms
	case PlanTypeTeachers:
		return r.Teachers
	default:
		return r.Rooms
	}
}

func (r LessonRecord) withEntityValues(planType PlanType, values OptStrings) LessonRecord {
	switch planType {
	case PlanTypeForms:
		r.Forms = values
	case PlanTypeTeachers:
		r.Teachers = values
	default:
		r.Rooms = values
	}
	return r
}

// ChangedFlag returns the structural delta flag for one attribute kind.
func (r LessonRecord) ChangedFlag(planType PlanType) bool {
	switch planType {
	case PlanTypeForms:
		return r.FormsChanged
	case PlanTypeTeachers:
		return r.TeacherChanged
	default:
		return r.RoomChanged
	}
}

func (r LessonRecord) periodsKey() string {
	return intsKey(r.Periods)
}

// Lessons is a list of LessonRecords with filtering helpers.
type Lessons []LessonRecord

func (ls Lessons) Filter(keep func(LessonRecord) bool) Lessons {
	out := make(Lessons, 0, len(ls))
	for _, l := range ls {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}

// FilterPlanTypeMessages drops annotation messages that only make sense on a
// different plan type's view. Structured facts are phrased for form plans;
// exams and unrecognized text stay everywhere.
func (ls Lessons) FilterPlanTypeMessages(planType PlanType) Lessons {
	out := make(Lessons, len(ls))
	for i, l := range ls {
		l.Annotation = l.Annotation.Filter(func(m Message) bool {
			if !m.IsRecognized() || m.Fact.Kind() == KindExam {
				return true
			}
			return planType == PlanTypeForms
		})
		out[i] = l
	}
	return out
}

func intsKey(vals []int) string {
	sorted := uniqueSortedInts(vals)
	out := ""
	for _, v := range sorted {
		// offset keeps the textual order numeric for negative periods
		out += fmt.Sprintf("%05d|", v+10000)
	}
	return out
}

func uniqueSortedStrings(vals []string) []string {
	seen := make(map[string]bool, len(vals))
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
