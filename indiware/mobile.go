// Package indiware decodes the Indiware Mobil XML plan documents
// ("PlanKl.xml" form plans and "VplanKl.xml" substitution plans) into the
// engine's input structures.
package indiware

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/vplan-fr/vplan/core/plan"
	"github.com/vplan-fr/vplan/core/teacher"
)

// FormPlan is a decoded "PlanKl.xml" document: the day's lesson records plus
// the class metadata needed to resolve teacher surnames.
type FormPlan struct {
	Schedule      plan.DaySchedule
	ClassesByForm map[string]map[string]teacher.Class
	FreeDays      []plan.Date
}

// Classes flattens the per-form class metadata into one lookup table.
func (p *FormPlan) Classes() map[string]teacher.Class {
	out := make(map[string]teacher.Class)
	for _, classes := range p.ClassesByForm {
		for number, class := range classes {
			out[number] = class
		}
	}
	return out
}

type (
	mobileDocument struct {
		XMLName  xml.Name     `xml:"VpMobil"`
		Head     mobileHead   `xml:"Kopf"`
		FreeDays []string     `xml:"FreieTage>ft"`
		Forms    []mobileForm `xml:"Klassen>Kl"`
		Info     []string     `xml:"ZusatzInfo>ZiZeile"`
	}

	mobileHead struct {
		Timestamp string `xml:"zeitstempel"`
		PlanDate  string `xml:"DatumPlan"`
		Week      int    `xml:"woche"`
	}

	mobileForm struct {
		Name    string         `xml:"Kurz"`
		Periods []mobilePeriod `xml:"KlStunden>KlSt"`
		Classes []mobileClass  `xml:"Unterricht>Ue>UeNr"`
		Lessons []mobileLesson `xml:"Pl>Std"`
	}

	mobilePeriod struct {
		Begin  string `xml:"ZeitVon,attr"`
		End    string `xml:"ZeitBis,attr"`
		Number string `xml:",chardata"`
	}

	mobileClass struct {
		Teacher string `xml:"UeLe,attr"`
		Group   string `xml:"UeGr,attr"`
		Subject string `xml:"UeFa,attr"`
		Number  string `xml:",chardata"`
	}

	mobileLesson struct {
		Period      int          `xml:"St"`
		Begin       string       `xml:"Beginn"`
		End         string       `xml:"Ende"`
		Subject     mobileField  `xml:"Fa"`
		Teacher     mobileField  `xml:"Le"`
		Room        mobileField  `xml:"Ra"`
		ClassNumber string       `xml:"Nr"`
		Info        string       `xml:"If"`
	}

	// mobileField is one lesson attribute whose change marker attribute is
	// named after the element (FaAe on Fa, LeAe on Le, RaAe on Ra).
	mobileField struct {
		Value     string `xml:",chardata"`
		SubjectAe string `xml:"FaAe,attr"`
		TeacherAe string `xml:"LeAe,attr"`
		RoomAe    string `xml:"RaAe,attr"`
	}
)

func (f mobileField) changed() bool {
	return f.SubjectAe != "" || f.TeacherAe != "" || f.RoomAe != ""
}

// value returns the field's cleaned content; the upstream placeholders for
// "nothing" become the empty string.
func (f mobileField) value() string {
	v := strings.TrimSpace(f.Value)
	if v == "---" || v == "&nbsp;" {
		return ""
	}
	return v
}

// ParseFormPlan decodes a "PlanKl.xml" document.
func ParseFormPlan(r io.Reader) (*FormPlan, error) {
	var doc mobileDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "indiware: decoding form plan")
	}

	date, err := parsePlanDate(doc.Head.PlanDate)
	if err != nil {
		return nil, err
	}
	timestamp, err := parseTimestamp(doc.Head.Timestamp)
	if err != nil {
		return nil, err
	}

	out := &FormPlan{
		Schedule: plan.DaySchedule{
			Date:             date,
			Timestamp:        timestamp,
			Week:             doc.Head.Week,
			AdditionalInfo:   doc.Info,
			FormDefaultTimes: make(map[string]plan.DefaultTimes),
		},
		ClassesByForm: make(map[string]map[string]teacher.Class),
	}

	for _, ft := range doc.FreeDays {
		d, err := parseFreeDay(ft)
		if err != nil {
			return nil, err
		}
		out.FreeDays = append(out.FreeDays, d)
	}

	for _, form := range doc.Forms {
		times, err := parseDefaultTimes(form.Periods)
		if err != nil {
			return nil, errors.Wrapf(err, "indiware: form %s", form.Name)
		}
		if len(times) > 0 {
			out.Schedule.FormDefaultTimes[form.Name] = times
		}

		classes := make(map[string]teacher.Class, len(form.Classes))
		for _, c := range form.Classes {
			number := strings.TrimSpace(c.Number)
			existing, seen := classes[number]
			forms := []string{form.Name}
			if seen {
				forms = append(existing.Forms, form.Name)
			}
			classes[number] = teacher.Class{
				Number:  number,
				Subject: c.Subject,
				Group:   nullString(c.Group),
				Teacher: c.Teacher,
				Forms:   forms,
			}
		}
		out.ClassesByForm[form.Name] = classes

		for _, lesson := range form.Lessons {
			record, err := lessonRecord(form.Name, lesson, classes, date)
			if err != nil {
				return nil, errors.Wrapf(err, "indiware: form %s period %d", form.Name, lesson.Period)
			}
			out.Schedule.Records = append(out.Schedule.Records, record)
		}
	}
	return out, nil
}

// lessonRecord maps one <Std> row to a lesson record. A row whose subject was
// emptied by a change does not take place; its course falls back to the class
// metadata so cancellations keep naming the scheduled course.
func lessonRecord(form string, l mobileLesson, classes map[string]teacher.Class, date plan.Date) (plan.LessonRecord, error) {
	subject := l.Subject.value()
	takesPlace := !(subject == "" && l.Subject.changed())

	classNumber := strings.TrimSpace(l.ClassNumber)
	var classGroup, classCourse null.String
	if class, ok := classes[classNumber]; ok {
		classGroup = class.Group
		if class.Group.Valid && class.Group.String != "" {
			classCourse = class.Group
		} else if class.Subject != "" {
			classCourse = null.StringFrom(class.Subject)
		}
	}
	// a row emptied by a change keeps naming the scheduled course so
	// cancellations stay readable
	course := nullString(subject)
	if !course.Valid {
		course = classCourse
	}

	record := plan.LessonRecord{
		OriginPlanType: plan.PlanTypeForms,
		Periods:        []int{l.Period},
		Forms:          plan.OptStringsFrom(form),
		Course:         course,
		ClassNumber:    nullString(classNumber),
		ClassGroup:     classGroup,
		TakesPlace:     null.BoolFrom(takesPlace),
		SubjectChanged: l.Subject.changed(),
		TeacherChanged: l.Teacher.changed(),
		RoomChanged:    l.Room.changed(),
	}
	if teachers := strings.Fields(l.Teacher.value()); len(teachers) > 0 {
		record.Teachers = plan.OptStringsFrom(teachers...)
	} else if l.Teacher.changed() {
		record.Teachers = plan.OptStrings{Valid: true}
	}
	if rooms := strings.Fields(l.Room.value()); len(rooms) > 0 {
		record.Rooms = plan.OptStringsFrom(rooms...)
	} else if l.Room.changed() {
		record.Rooms = plan.OptStrings{Valid: true}
	}

	if begin, err := parseClock(l.Begin); err != nil {
		return plan.LessonRecord{}, err
	} else if begin != nil {
		record.Begin = null.TimeFrom(*begin)
	}
	if end, err := parseClock(l.End); err != nil {
		return plan.LessonRecord{}, err
	} else if end != nil {
		record.End = null.TimeFrom(*end)
	}

	if info := strings.TrimSpace(l.Info); info != "" {
		annotation, err := plan.ParseInfo(info, plan.PlanTypeForms, plan.MessageContext{
			LessonDate: date,
			Periods:    record.Periods,
		})
		if err != nil {
			return plan.LessonRecord{}, err
		}
		record.Annotation = annotation
	}

	if subject != "" {
		record = record.NormalizePureCancellation(classCourse)
	}
	return record, nil
}

func parseDefaultTimes(periods []mobilePeriod) (plan.DefaultTimes, error) {
	if len(periods) == 0 {
		return nil, nil
	}
	out := make(plan.DefaultTimes, len(periods))
	for _, p := range periods {
		number, err := strconv.Atoi(strings.TrimSpace(p.Number))
		if err != nil {
			return nil, errors.Wrapf(err, "indiware: invalid period number %q", p.Number)
		}
		begin, err := parseClock(p.Begin)
		if err != nil {
			return nil, err
		}
		end, err := parseClock(p.End)
		if err != nil {
			return nil, err
		}
		if begin == nil || end == nil {
			continue
		}
		out[number] = plan.PeriodTime{Begin: *begin, End: *end}
	}
	return out, nil
}

func parseClock(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return nil, errors.Wrapf(err, "indiware: invalid time %q", s)
	}
	return &t, nil
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse("02.01.2006, 15:04", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "indiware: invalid timestamp %q", s)
	}
	return t, nil
}

var germanMonths = map[string]time.Month{
	"Januar": time.January, "Februar": time.February, "März": time.March,
	"April": time.April, "Mai": time.May, "Juni": time.June,
	"Juli": time.July, "August": time.August, "September": time.September,
	"Oktober": time.October, "November": time.November, "Dezember": time.December,
}

// parsePlanDate parses the verbose plan date, e.g. "Mittwoch, 07. Juni 2023".
func parsePlanDate(s string) (plan.Date, error) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, ", "); i >= 0 {
		s = s[i+2:]
	}
	parts := strings.Fields(s)
	if len(parts) != 3 {
		return plan.Date{}, errors.Errorf("indiware: invalid plan date %q", s)
	}
	day, err := strconv.Atoi(strings.TrimSuffix(parts[0], "."))
	if err != nil {
		return plan.Date{}, errors.Wrapf(err, "indiware: invalid plan date %q", s)
	}
	month, ok := germanMonths[parts[1]]
	if !ok {
		return plan.Date{}, errors.Errorf("indiware: unknown month in plan date %q", s)
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return plan.Date{}, errors.Wrapf(err, "indiware: invalid plan date %q", s)
	}
	return plan.NewDate(year, month, day), nil
}

// parseFreeDay parses the compact "yymmdd" free-day notation.
func parseFreeDay(s string) (plan.Date, error) {
	t, err := time.Parse("060102", strings.TrimSpace(s))
	if err != nil {
		return plan.Date{}, errors.Wrapf(err, "indiware: invalid free day %q", s)
	}
	return plan.DateOf(t), nil
}

func nullString(s string) null.String {
	if s == "" {
		return null.String{}
	}
	return null.StringFrom(s)
}
