package plan

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/volatiletech/null/v8"
)

// PlanType identifies the entity a plan document is organized by.
type PlanType string

const (
	PlanTypeForms    PlanType = "forms"
	PlanTypeTeachers PlanType = "teachers"
	PlanTypeRooms    PlanType = "rooms"
)

func (t PlanType) IsValid() bool {
	switch t {
	case PlanTypeForms, PlanTypeTeachers, PlanTypeRooms:
		return true
	}
	return false
}

// OtherInfoType is the entity type displayed alongside a lesson when viewing
// a plan of this type; form plans show teachers, the others show forms.
func (t PlanType) OtherInfoType() PlanType {
	switch t {
	case PlanTypeForms:
		return PlanTypeTeachers
	default:
		return PlanTypeForms
	}
}

// FactKind discriminates the Fact variants.
type FactKind string

const (
	KindMovedFrom          FactKind = "moved_from"
	KindInsteadOfPeriod    FactKind = "instead_of_period"
	KindMovedTo            FactKind = "moved_to"
	KindHeldAt             FactKind = "held_at"
	KindInsteadOfCourse    FactKind = "instead_of_course"
	KindCancelled          FactKind = "cancelled"
	KindExam               FactKind = "exam"
	KindDoAtLocation       FactKind = "do_at_location"
	KindIndividualRevision FactKind = "individual_revision"
	KindDoIndependent      FactKind = "do_independent"
	KindTasksInLernsax     FactKind = "tasks_in_lernsax"
	KindTasksWereGiven     FactKind = "tasks_were_given"
)

// Fact is one structured extraction from a free-text change note. Facts of
// the same kind whose non-period fields agree may merge their period sets
// when adjacent lessons get grouped into blocks.
type Fact interface {
	Kind() FactKind

	// groupableWith is only called with a Fact of the same kind.
	groupableWith(other Fact) bool
}

// periodFact is implemented by facts carrying a period set that widens when
// lessons merge.
type periodFact interface {
	Fact
	factPeriods() []int
	withPeriods(periods []int) Fact
}

// teacherFact is implemented by facts naming teachers by surname that can be
// resolved to directory abbreviations.
type teacherFact interface {
	Fact
	teacherSurnames() []string
	withResolvedTeachers(abbreviations []string) Fact
}

// MovedFrom: "verlegt von St.N" — the lesson was moved here from other
// periods of the same day.
type MovedFrom struct {
	Periods []int `json:"periods"`
}

func (MovedFrom) Kind() FactKind { return KindMovedFrom }

func (f MovedFrom) groupableWith(other Fact) bool {
	_, ok := other.(MovedFrom)
	return ok
}

func (f MovedFrom) factPeriods() []int { return f.Periods }

func (f MovedFrom) withPeriods(periods []int) Fact {
	f.Periods = periods
	return f
}

// InsteadOfPeriod: "statt Mo (05.06.) St.1-2" — the lesson replaces one that
// was scheduled on another date.
type InsteadOfPeriod struct {
	Date    Date  `json:"date"`
	Periods []int `json:"periods"`
}

func (InsteadOfPeriod) Kind() FactKind { return KindInsteadOfPeriod }

func (f InsteadOfPeriod) groupableWith(other Fact) bool {
	o, ok := other.(InsteadOfPeriod)
	return ok && f.Date == o.Date
}

func (f InsteadOfPeriod) factPeriods() []int { return f.Periods }

func (f InsteadOfPeriod) withPeriods(periods []int) Fact {
	f.Periods = periods
	return f
}

// MovedTo: "MA Frau Musterfrau verlegt nach [Do (08.06.)] St.3-4". A zero
// Date means the target periods are on the same day.
type MovedTo struct {
	Course           string   `json:"course"`
	Teachers         []string `json:"teachers"`
	ResolvedTeachers []string `json:"resolved_teachers,omitempty"`
	Date             Date     `json:"date"`
	Periods          []int    `json:"periods"`
}

func (MovedTo) Kind() FactKind { return KindMovedTo }

func (f MovedTo) groupableWith(other Fact) bool {
	o, ok := other.(MovedTo)
	return ok && f.Course == o.Course && f.Date == o.Date && sameStringSet(f.Teachers, o.Teachers)
}

func (f MovedTo) factPeriods() []int { return f.Periods }

func (f MovedTo) withPeriods(periods []int) Fact {
	f.Periods = periods
	return f
}

func (f MovedTo) teacherSurnames() []string { return f.Teachers }

func (f MovedTo) withResolvedTeachers(abbreviations []string) Fact {
	f.ResolvedTeachers = abbreviations
	return f
}

// HeldAt: "DE Frau Musterfrau gehalten am Mo (05.06.) St.1-2" — the lesson
// was already held on a past date.
type HeldAt struct {
	Course           string   `json:"course"`
	Teachers         []string `json:"teachers"`
	ResolvedTeachers []string `json:"resolved_teachers,omitempty"`
	Date             Date     `json:"date"`
	Periods          []int    `json:"periods"`
}

func (HeldAt) Kind() FactKind { return KindHeldAt }

func (f HeldAt) groupableWith(other Fact) bool {
	o, ok := other.(HeldAt)
	return ok && f.Course == o.Course && f.Date == o.Date && sameStringSet(f.Teachers, o.Teachers)
}

func (f HeldAt) factPeriods() []int { return f.Periods }

func (f HeldAt) withPeriods(periods []int) Fact {
	f.Periods = periods
	return f
}

func (f HeldAt) teacherSurnames() []string { return f.Teachers }

func (f HeldAt) withResolvedTeachers(abbreviations []string) Fact {
	f.ResolvedTeachers = abbreviations
	return f
}

// InsteadOfCourse: "für MA Frau Musterfrau" — this lesson substitutes the
// named course.
type InsteadOfCourse struct {
	Course           string   `json:"course"`
	Teachers         []string `json:"teachers"`
	ResolvedTeachers []string `json:"resolved_teachers,omitempty"`
	Periods          []int    `json:"periods,omitempty"`
}

func (InsteadOfCourse) Kind() FactKind { return KindInsteadOfCourse }

func (f InsteadOfCourse) groupableWith(other Fact) bool {
	o, ok := other.(InsteadOfCourse)
	return ok && f.Course == o.Course && sameStringSet(f.Teachers, o.Teachers)
}

func (f InsteadOfCourse) factPeriods() []int { return f.Periods }

func (f InsteadOfCourse) withPeriods(periods []int) Fact {
	f.Periods = periods
	return f
}

func (f InsteadOfCourse) teacherSurnames() []string { return f.Teachers }

func (f InsteadOfCourse) withResolvedTeachers(abbreviations []string) Fact {
	f.ResolvedTeachers = abbreviations
	return f
}

// Cancelled: "SPO Herr Mustermann fällt aus".
type Cancelled struct {
	Course           string   `json:"course"`
	Teachers         []string `json:"teachers"`
	ResolvedTeachers []string `json:"resolved_teachers,omitempty"`
	Periods          []int    `json:"periods,omitempty"`
}

func (Cancelled) Kind() FactKind { return KindCancelled }

func (f Cancelled) groupableWith(other Fact) bool {
	o, ok := other.(Cancelled)
	return ok && f.Course == o.Course && sameStringSet(f.Teachers, o.Teachers)
}

func (f Cancelled) factPeriods() []int { return f.Periods }

func (f Cancelled) withPeriods(periods []int) Fact {
	f.Periods = periods
	return f
}

func (f Cancelled) teacherSurnames() []string { return f.Teachers }

func (f Cancelled) withResolvedTeachers(abbreviations []string) Fact {
	f.ResolvedTeachers = abbreviations
	return f
}

// Exam: "Prüfung Nachname".
type Exam struct {
	LastName string `json:"last_name"`
}

func (Exam) Kind() FactKind { return KindExam }

func (f Exam) groupableWith(other Fact) bool {
	o, ok := other.(Exam)
	return ok && f == o
}

// DoAtLocation: "bitte in der Bibo bearbeiten".
type DoAtLocation struct {
	Location string `json:"location"`
}

func (DoAtLocation) Kind() FactKind { return KindDoAtLocation }

func (f DoAtLocation) groupableWith(other Fact) bool {
	o, ok := other.(DoAtLocation)
	return ok && f == o
}

// IndividualRevision: "individuelle Nachbearbeitung des aktuellen Stoffes",
// optionally with a location.
type IndividualRevision struct {
	Location null.String `json:"location"`
}

func (IndividualRevision) Kind() FactKind { return KindIndividualRevision }

func (f IndividualRevision) groupableWith(other Fact) bool {
	o, ok := other.(IndividualRevision)
	return ok && f == o
}

// DoIndependent: "selbst. (v)" — students work on their own.
type DoIndependent struct{}

func (DoIndependent) Kind() FactKind { return KindDoIndependent }

func (DoIndependent) groupableWith(other Fact) bool {
	_, ok := other.(DoIndependent)
	return ok
}

// TasksInLernsax: "Aufgaben stehen im LernSax".
type TasksInLernsax struct{}

func (TasksInLernsax) Kind() FactKind { return KindTasksInLernsax }

func (TasksInLernsax) groupableWith(other Fact) bool {
	_, ok := other.(TasksInLernsax)
	return ok
}

// TasksWereGiven: "Aufgaben wurden erteilt".
type TasksWereGiven struct{}

func (TasksWereGiven) Kind() FactKind { return KindTasksWereGiven }

func (TasksWereGiven) groupableWith(other Fact) bool {
	_, ok := other.(TasksWereGiven)
	return ok
}

var (
	_ periodFact  = MovedFrom{}
	_ periodFact  = InsteadOfPeriod{}
	_ periodFact  = MovedTo{}
	_ periodFact  = HeldAt{}
	_ periodFact  = InsteadOfCourse{}
	_ periodFact  = Cancelled{}
	_ teacherFact = MovedTo{}
	_ teacherFact = HeldAt{}
	_ teacherFact = InsteadOfCourse{}
	_ teacherFact = Cancelled{}
)

// MarshalFact serializes a fact with its kind as a "type" discriminator.
// A nil fact serializes as JSON null.
func MarshalFact(f Fact) ([]byte, error) {
	if f == nil {
		return []byte("null"), nil
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]interface{})
	if err = json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	fields["type"] = string(f.Kind())
	return json.Marshal(fields)
}

// Message is one comma-separated fragment of a lesson's info field alongside
// its parsed fact. Fact is nil when no pattern matched; adjacent unrecognized
// fragments of one paragraph get merged, so Raw can hold several fragments.
type Message struct {
	Raw    []string
	Before string
	After  string
	Fact   Fact
	Index  int
}

func (m Message) IsRecognized() bool {
	return m.Fact != nil
}

// Text reassembles the display text of the message.
func (m Message) Text() string {
	return m.Before + strings.Join(m.Raw, ", ") + m.After
}

func (m Message) key() string {
	return strings.Join(m.Raw, "\n")
}

// GroupableWith reports whether two messages may merge their period sets
// when the lessons carrying them get grouped.
func (m Message) GroupableWith(other Message) bool {
	if m.Before != other.Before || m.After != other.After {
		return false
	}
	if m.Fact == nil || other.Fact == nil {
		return m.Fact == nil && other.Fact == nil && m.key() == other.key()
	}
	if m.Fact.Kind() != other.Fact.Kind() {
		return false
	}
	return m.Fact.groupableWith(other.Fact)
}

func (m Message) MarshalJSON() ([]byte, error) {
	parsed, err := MarshalFact(m.Fact)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Text   string          `json:"text"`
		Parsed json.RawMessage `json:"parsed"`
	}{Text: m.Text(), Parsed: parsed})
}

// Paragraph is one ";"-separated segment of an info field.
type Paragraph struct {
	Messages []Message
	Index    int
}

func (p Paragraph) key() string {
	keys := make([]string, len(p.Messages))
	for i, m := range p.Messages {
		keys[i] = m.key()
	}
	return strings.Join(keys, "\x1e")
}

func (p Paragraph) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Messages)
}

// Annotation is the parsed tree of a lesson's free-text info field:
// paragraphs of messages. Order is significant for display but not for
// equality; Canonical gives the order-independent form.
type Annotation struct {
	Paragraphs []Paragraph
}

func (a Annotation) IsZero() bool {
	return len(a.Paragraphs) == 0
}

func (a Annotation) MarshalJSON() ([]byte, error) {
	if a.Paragraphs == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a.Paragraphs)
}

// Canonical returns a copy with messages sorted within each paragraph and
// paragraphs sorted by their message texts. Two annotations describe the same
// information iff their canonical forms have equal keys.
func (a Annotation) Canonical() Annotation {
	paragraphs := make([]Paragraph, len(a.Paragraphs))
	for i, p := range a.Paragraphs {
		messages := append([]Message(nil), p.Messages...)
		sort.SliceStable(messages, func(x, y int) bool {
			return messages[x].key() < messages[y].key()
		})
		paragraphs[i] = Paragraph{Messages: messages, Index: p.Index}
	}
	sort.SliceStable(paragraphs, func(x, y int) bool {
		return paragraphs[x].key() < paragraphs[y].key()
	})
	return Annotation{Paragraphs: paragraphs}
}

// CanonicalKey is a total-order sort key over annotations, stable across the
// display order of paragraphs and messages.
func (a Annotation) CanonicalKey() string {
	c := a.Canonical()
	keys := make([]string, len(c.Paragraphs))
	for i, p := range c.Paragraphs {
		keys[i] = p.key()
	}
	return strings.Join(keys, "\x1d")
}

// SortOriginal restores the display order the info field was written in.
func (a Annotation) SortOriginal() {
	sort.SliceStable(a.Paragraphs, func(x, y int) bool {
		return a.Paragraphs[x].Index < a.Paragraphs[y].Index
	})
	for _, p := range a.Paragraphs {
		messages := p.Messages
		sort.SliceStable(messages, func(x, y int) bool {
			return messages[x].Index < messages[y].Index
		})
	}
}

// GroupableWith reports whether two annotations may be merged: their
// canonical forms must align 1:1 in paragraph and message count with every
// message pair groupable. Any mismatch forbids the merge.
func (a Annotation) GroupableWith(other Annotation) bool {
	ac, oc := a.Canonical(), other.Canonical()
	if len(ac.Paragraphs) != len(oc.Paragraphs) {
		return false
	}
	for i, p := range ac.Paragraphs {
		op := oc.Paragraphs[i]
		if len(p.Messages) != len(op.Messages) {
			return false
		}
		for j, m := range p.Messages {
			if !m.GroupableWith(op.Messages[j]) {
				return false
			}
		}
	}
	return true
}

// MergeAnnotations merges two groupable annotations by unioning the period
// sets of corresponding facts. Callers must check GroupableWith first.
func MergeAnnotations(a, b Annotation) Annotation {
	ac, bc := a.Canonical(), b.Canonical()

	paragraphs := make([]Paragraph, len(ac.Paragraphs))
	for i, p := range ac.Paragraphs {
		messages := make([]Message, len(p.Messages))
		copy(messages, p.Messages)
		for j := range messages {
			pf, ok := messages[j].Fact.(periodFact)
			if !ok {
				continue
			}
			of, ok := bc.Paragraphs[i].Messages[j].Fact.(periodFact)
			if !ok {
				continue
			}
			merged := uniqueSortedInts(append(pf.factPeriods(), of.factPeriods()...))
			messages[j].Fact = pf.withPeriods(merged)
		}
		paragraphs[i] = Paragraph{Messages: messages, Index: p.Index}
	}
	return Annotation{Paragraphs: paragraphs}
}

// ResolveTeachers returns a copy with teacher surnames in facts resolved to
// directory abbreviations where known. Unknown surnames stay as written.
func (a Annotation) ResolveTeachers(abbreviationBySurname map[string]string) Annotation {
	paragraphs := make([]Paragraph, len(a.Paragraphs))
	for i, p := range a.Paragraphs {
		messages := append([]Message(nil), p.Messages...)
		for j := range messages {
			tf, ok := messages[j].Fact.(teacherFact)
			if !ok {
				continue
			}
			surnames := tf.teacherSurnames()
			resolved := make([]string, len(surnames))
			for k, surname := range surnames {
				if abbr, ok := abbreviationBySurname[surname]; ok {
					resolved[k] = abbr
				} else {
					resolved[k] = surname
				}
			}
			messages[j].Fact = tf.withResolvedTeachers(resolved)
		}
		paragraphs[i] = Paragraph{Messages: messages, Index: p.Index}
	}
	return Annotation{Paragraphs: paragraphs}
}

// Filter returns the annotation reduced to messages the predicate keeps;
// paragraphs left empty are dropped.
func (a Annotation) Filter(keep func(Message) bool) Annotation {
	var out Annotation
	for _, p := range a.Paragraphs {
		var kept []Message
		for _, m := range p.Messages {
			if keep(m) {
				kept = append(kept, m)
			}
		}
		if len(kept) > 0 {
			out.Paragraphs = append(out.Paragraphs, Paragraph{Messages: kept, Index: p.Index})
		}
	}
	return out
}

// Combine concatenates the paragraphs of two annotations.
func Combine(a, b Annotation) Annotation {
	if a.IsZero() {
		return b
	}
	if b.IsZero() {
		return a
	}
	paragraphs := make([]Paragraph, 0, len(a.Paragraphs)+len(b.Paragraphs))
	paragraphs = append(paragraphs, a.Paragraphs...)
	paragraphs = append(paragraphs, b.Paragraphs...)
	return Annotation{Paragraphs: paragraphs}
}

func sameStringSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
