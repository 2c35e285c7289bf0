package plan

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/vplan-fr/vplan/core"
)

// DaySchedule is one school day's parsed plan document: every lesson record
// of the day (current and scheduled sides, single-period), the day's
// free-text notices and the default period times per form.
type DaySchedule struct {
	Date             Date
	Timestamp        time.Time
	Week             int
	Records          Lessons
	AdditionalInfo   []string
	FormDefaultTimes map[string]DefaultTimes
}

// WeekLetter maps the upstream week number to the A/B-week letter.
func (s DaySchedule) WeekLetter() string {
	switch s.Week {
	case 1:
		return "A"
	case 2:
		return "B"
	default:
		return "?"
	}
}

// AbsentEntry is one "entity absent for these periods" line of a
// substitution document. No periods means the whole day.
type AbsentEntry struct {
	Value   string
	Periods []int
}

// Substitutions is the optional substitution-plan document listing absent
// teachers, rooms and forms.
type Substitutions struct {
	AbsentTeachers []AbsentEntry
	AbsentRooms    []AbsentEntry
	AbsentForms    []AbsentEntry
}

var absentElementRe = regexp.MustCompile(`^(.+?)(?: \(([0-9, -]+)\))?$`)

// ParseAbsentElement parses the "Name (1-4,6)" notation of substitution-plan
// absence lists.
func ParseAbsentElement(s string) (AbsentEntry, error) {
	m := absentElementRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil || m[1] == "" {
		return AbsentEntry{}, errors.Errorf("plan: invalid absence entry %q", s)
	}
	entry := AbsentEntry{Value: m[1]}
	if m[2] == "" {
		return entry, nil
	}
	for _, part := range strings.Split(m[2], ",") {
		part = strings.TrimSpace(part)
		bounds := strings.SplitN(part, "-", 2)
		begin, err := strconv.Atoi(strings.TrimSpace(bounds[0]))
		if err != nil {
			return AbsentEntry{}, errors.Wrapf(err, "plan: invalid absence periods %q", s)
		}
		end := begin
		if len(bounds) == 2 {
			if end, err = strconv.Atoi(strings.TrimSpace(bounds[1])); err != nil {
				return AbsentEntry{}, errors.Wrapf(err, "plan: invalid absence periods %q", s)
			}
		}
		for p := begin; p <= end; p++ {
			entry.Periods = append(entry.Periods, p)
		}
	}
	entry.Periods = uniqueSortedInts(entry.Periods)
	return entry, nil
}

// Version stamps processed results; stored results carrying an older stamp
// get recomputed from the raw documents.
const Version = 1

// Result is the immutable output of one Process invocation.
type Result struct {
	Date       Date      `json:"date"`
	Timestamp  time.Time `json:"timestamp"`
	WeekLetter string    `json:"week"`

	// Views maps a plan type to its per-entity lesson lists.
	Views map[PlanType]map[string][]PlanLesson `json:"plans"`

	UsedRoomsByPeriod map[int][]string `json:"used_rooms_by_period"`
	FreeRoomsByPeriod map[int][]string `json:"free_rooms_by_period"`
	UsedRoomsByBlock  map[int][]string `json:"used_rooms_by_block"`
	FreeRoomsByBlock  map[int][]string `json:"free_rooms_by_block"`

	Statistics     LessonsStatistics `json:"statistics"`
	AdditionalInfo []string          `json:"additional_info"`
}

// Processor computes one day's plan views. It holds only read-only context
// (teacher directory, room universe); invocations are independent and safe
// to run concurrently from separate goroutines.
type Processor struct {
	logger                core.Logger
	abbreviationBySurname map[string]string
	roomUniverse          []string
}

func NewProcessor(logger core.Logger, abbreviationBySurname map[string]string, roomUniverse []string) *Processor {
	if abbreviationBySurname == nil {
		abbreviationBySurname = map[string]string{}
	}
	return &Processor{
		logger:                logger,
		abbreviationBySurname: abbreviationBySurname,
		roomUniverse:          append([]string(nil), roomUniverse...),
	}
}

// Process runs the full pipeline for one day/revision: absence synthesis,
// time fill-in, block grouping, pairing, reconciliation and view derivation.
// The schedule and substitutions are not modified.
func (p *Processor) Process(schedule DaySchedule, subs *Substitutions) (*Result, error) {
	records := append(Lessons(nil), schedule.Records...)
	if subs != nil {
		records = append(records, p.internalAbsenceRecords(subs)...)
	}
	records = fillInLessonTimes(records, schedule.FormDefaultTimes)

	blocks := blockConfigForSchedule(schedule)

	views := make(map[PlanType]map[string][]PlanLesson, 3)
	for _, planType := range []PlanType{PlanTypeForms, PlanTypeTeachers, PlanTypeRooms} {
		view, err := p.processView(records, planType, blocks)
		if err != nil {
			return nil, errors.Wrapf(err, "plan: processing %s view of %s", planType, schedule.Date)
		}
		views[planType] = view
	}

	used := UsedRoomsByPeriod(records)
	free := FreeRoomsByPeriod(used, p.roomUniverse)

	return &Result{
		Date:       schedule.Date,
		Timestamp:  schedule.Timestamp,
		WeekLetter: schedule.WeekLetter(),

		Views: views,

		UsedRoomsByPeriod: used,
		FreeRoomsByPeriod: free,
		UsedRoomsByBlock:  RoomsByBlock(used, blocks),
		FreeRoomsByBlock:  RoomsByBlock(free, blocks),

		Statistics:     StatisticsFromLessons(records),
		AdditionalInfo: trimTrailingEmpty(schedule.AdditionalInfo),
	}, nil
}

func (p *Processor) processView(records Lessons, planType PlanType, blocks BlockConfig) (map[string][]PlanLesson, error) {
	rs := records.FilterPlanTypeMessages(planType)
	if planType != PlanTypeForms {
		rs = rs.Filter(func(r LessonRecord) bool { return !r.IsInternal })
	}

	grouped := GroupBlocks(rs, planType, blocks)

	// pairing operates within groups sharing the exact period set
	var order []string
	byPeriods := make(map[string]Lessons)
	for _, r := range grouped {
		k := r.periodsKey()
		if _, ok := byPeriods[k]; !ok {
			order = append(order, k)
		}
		byPeriods[k] = append(byPeriods[k], r)
	}
	sort.Strings(order)

	var lessons []PlanLesson
	for _, k := range order {
		for _, pair := range PairRecords(byPeriods[k], p.logger) {
			lesson, err := Reconcile(pair, planType, "")
			if err != nil {
				return nil, err
			}
			lesson.Annotation = lesson.Annotation.ResolveTeachers(p.abbreviationBySurname)
			lessons = append(lessons, lesson)
		}
	}

	p.extrapolateEndTimes(lessons)
	return EntityViews(lessons, planType), nil
}

// internalAbsenceRecords synthesizes lesson records out of the substitution
// plan's absence lists so absent teachers, blocked rooms and absent forms
// show up inside the regular views.
func (p *Processor) internalAbsenceRecords(subs *Substitutions) Lessons {
	var out Lessons

	for _, entry := range subs.AbsentTeachers {
		abbreviation, ok := p.abbreviationBySurname[entry.Value]
		if !ok {
			p.logger.Warn(fmt.Sprintf("plan: could not resolve teacher abbreviation for %q", entry.Value))
			if strings.Contains(entry.Value, " ") {
				continue
			}
			abbreviation = entry.Value
		}
		info := absenceInfo("%s abwesend laut Vertretungsplan", entry.Value, entry.Periods)
		for _, period := range absencePeriods(entry.Periods) {
			out = append(out, internalRecord(period, info, func(r *LessonRecord) {
				r.Teachers = OptStringsFrom(abbreviation)
			}))
		}
	}

	for _, entry := range subs.AbsentRooms {
		info := absenceInfo("Raum %s nicht verfügbar laut Vertretungsplan", entry.Value, entry.Periods)
		for _, period := range absencePeriods(entry.Periods) {
			out = append(out, internalRecord(period, info, func(r *LessonRecord) {
				r.Rooms = OptStringsFrom(entry.Value)
				r.Course = null.StringFrom("Belegt")
			}))
		}
	}

	for _, entry := range subs.AbsentForms {
		info := absenceInfo("Klasse %s abwesend laut Vertretungsplan", entry.Value, entry.Periods)
		for _, period := range absencePeriods(entry.Periods) {
			out = append(out, internalRecord(period, info, func(r *LessonRecord) {
				r.Forms = OptStringsFrom(entry.Value)
			}))
		}
	}

	return out
}

func absenceInfo(format, value string, periods []int) string {
	if len(periods) == 0 {
		value += " den ganzen Tag"
	}
	return fmt.Sprintf(format, value)
}

// absencePeriods defaults a whole-day absence to periods 1 through 10.
func absencePeriods(periods []int) []int {
	if len(periods) > 0 {
		return periods
	}
	out := make([]int, 10)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func internalRecord(period int, info string, customize func(*LessonRecord)) LessonRecord {
	r := LessonRecord{
		OriginPlanType: PlanTypeForms,
		Periods:        []int{period},
		TakesPlace:     null.BoolFrom(true),
		IsInternal:     true,
		Annotation: Annotation{Paragraphs: []Paragraph{{
			Messages: []Message{{Raw: []string{info}}},
		}}},
	}
	customize(&r)
	return r
}

// fillInLessonTimes fills missing begin/end times from the default period
// times of the record's first form.
func fillInLessonTimes(records Lessons, formTimes map[string]DefaultTimes) Lessons {
	out := make(Lessons, len(records))
	for i, r := range records {
		if (!r.Begin.Valid || !r.End.Valid) && r.Forms.Valid && len(r.Forms.Values) > 0 && len(r.Periods) > 0 {
			if times, ok := formTimes[r.Forms.Values[0]]; ok {
				periods := uniqueSortedInts(r.Periods)
				if t, ok := times[periods[0]]; ok && !r.Begin.Valid {
					r.Begin = null.TimeFrom(t.Begin)
				}
				if t, ok := times[periods[len(periods)-1]]; ok && !r.End.Valid {
					r.End = null.TimeFrom(t.End)
				}
			}
		}
		out[i] = r
	}
	return out
}

// blockConfigForSchedule infers the school's block configuration from the
// form with the most complete default-times table; ties go to the
// alphabetically first form so the choice is deterministic.
func blockConfigForSchedule(schedule DaySchedule) BlockConfig {
	var bestForm string
	bestLen := -1

	forms := make([]string, 0, len(schedule.FormDefaultTimes))
	for form := range schedule.FormDefaultTimes {
		forms = append(forms, form)
	}
	sort.Strings(forms)
	for _, form := range forms {
		if l := len(schedule.FormDefaultTimes[form]); l > bestLen {
			bestForm, bestLen = form, l
		}
	}
	if bestLen <= 0 {
		return TrivialBlocks
	}
	return BlockConfigFromDefaultTimes(schedule.FormDefaultTimes[bestForm])
}

// extrapolateEndTimes guesses a missing end time from a preceding block of
// the same width, assuming equal block durations across the day.
func (p *Processor) extrapolateEndTimes(lessons []PlanLesson) {
	for i := range lessons {
		l := &lessons[i]
		if !l.Begin.Valid || l.End.Valid || len(l.Periods) == 0 {
			continue
		}

		var prev *PlanLesson
		for j := range lessons {
			c := &lessons[j]
			if len(c.Periods) != len(l.Periods) || !c.Begin.Valid || !c.End.Valid {
				continue
			}
			if minInts(l.Periods)-maxInts(c.Periods) == 1 {
				prev = c
			}
		}
		if prev == nil {
			continue
		}

		duration := clockOf(prev.End.Time) - clockOf(prev.Begin.Time)
		l.End = null.TimeFrom(l.Begin.Time.Add(duration))
		p.logger.Debug(fmt.Sprintf("plan: extrapolated end time for periods %v (%.0f min block)",
			l.Periods, duration.Minutes()))
	}
}

func trimTrailingEmpty(lines []string) []string {
	out := append([]string(nil), lines...)
	for len(out) > 0 && strings.TrimSpace(out[len(out)-1]) == "" {
		out = out[:len(out)-1]
	}
	return out
}
