package teacher

import (
	"fmt"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/vplan-fr/vplan/core"
	"github.com/vplan-fr/vplan/core/plan"
)

// Class is one course entry of a form's class metadata as the upstream plan
// documents list it: a class number, the subject (possibly with a group name),
// the teaching teacher's abbreviation and the forms attending.
type Class struct {
	Number  string
	Subject string
	Group   null.String
	Teacher string
	Forms   []string
}

// subjects that are organizational slots rather than taught subjects
var excludedSubjects = map[string]struct{}{
	"KL": {}, "AnSt": {}, "FÖ": {}, "WB": {}, "GTA": {}, "EU4": {},
}

// FromClasses harvests teacher sightings from class metadata: every class
// names its teacher's abbreviation and subject.
func FromClasses(classes map[string]Class, seenAt time.Time) []Teacher {
	var out []Teacher
	for _, class := range classes {
		var subjects []string
		for _, s := range strings.Fields(class.Subject) {
			if _, excluded := excludedSubjects[s]; !excluded {
				subjects = append(subjects, s)
			}
		}
		for _, abbreviation := range strings.Fields(class.Teacher) {
			out = append(out, Teacher{
				Abbreviation: abbreviation,
				Subjects:     subjects,
				LastSeen:     seenAt,
			})
		}
	}
	return out
}

// ExtractFromRecords harvests teacher sightings from one day's lesson records:
// the abbreviations the records name directly, plus surname/abbreviation pairs
// recovered by resolving annotation facts ("für MA Frau Musterfrau") against
// the class metadata of the record's forms.
func ExtractFromRecords(records plan.Lessons, classes map[string]Class, seenAt time.Time, logger core.Logger) map[string]Teacher {
	out := make(map[string]Teacher)

	for _, record := range records {
		if record.Teachers.Valid {
			for _, abbreviation := range record.Teachers.Values {
				out[abbreviation] = Teacher{Abbreviation: abbreviation, LastSeen: seenAt}
			}
		}
		if record.IsScheduled {
			continue
		}

		for _, paragraph := range record.Annotation.Paragraphs {
			for _, message := range paragraph.Messages {
				course, surnames, ok := courseTeachers(message.Fact)
				if !ok || len(surnames) == 0 {
					continue
				}
				surname := surnames[0]
				if len(strings.Fields(surname)) < 2 {
					logger.Debug(fmt.Sprintf("teacher: skipping bare surname %q", surname))
					continue
				}

				abbreviation, ok := resolveClassTeacher(course, surname, record, classes)
				if !ok {
					logger.Debug(fmt.Sprintf("teacher: could not resolve class %q for forms %v", course, record.Forms.Values))
					continue
				}
				out[abbreviation] = Teacher{
					Abbreviation: abbreviation,
					Surname:      null.StringFrom(surname),
					LastSeen:     seenAt,
				}
			}
		}
	}
	return out
}

// resolveClassTeacher finds the unique class whose course matches and whose
// form set covers the record's forms, narrowing by class number and then by
// name initial when several teachers remain.
func resolveClassTeacher(course, surname string, record plan.LessonRecord, classes map[string]Class) (string, bool) {
	candidates := filterClasses(classes, func(c Class) bool {
		courseName := c.Subject
		if c.Group.Valid && c.Group.String != "" {
			courseName = c.Group.String
		}
		return course == courseName && formsSubset(record.Forms.Values, c.Forms)
	})
	if len(candidates) == 0 {
		candidates = filterClasses(classes, func(c Class) bool {
			return course == c.Subject && formsSubset(record.Forms.Values, c.Forms)
		})
	}

	if countTeachers(candidates) > 1 && record.ClassNumber.Valid {
		if narrowed := filterClasses(candidates, func(c Class) bool {
			return c.Number == record.ClassNumber.String
		}); len(narrowed) > 0 {
			candidates = narrowed
		}
	}

	if countTeachers(candidates) > 1 {
		name := strings.Fields(surname)[1]
		candidates = filterClasses(candidates, func(c Class) bool {
			return c.Teacher != "" && strings.HasPrefix(name, c.Teacher[:1])
		})
	}

	if countTeachers(candidates) != 1 {
		return "", false
	}
	for _, c := range candidates {
		return c.Teacher, true
	}
	return "", false
}

func courseTeachers(f plan.Fact) (string, []string, bool) {
	switch fact := f.(type) {
	case plan.MovedTo:
		return fact.Course, fact.Teachers, true
	case plan.HeldAt:
		return fact.Course, fact.Teachers, true
	case plan.InsteadOfCourse:
		return fact.Course, fact.Teachers, true
	case plan.Cancelled:
		return fact.Course, fact.Teachers, true
	}
	return "", nil, false
}

func filterClasses(classes map[string]Class, keep func(Class) bool) map[string]Class {
	out := make(map[string]Class)
	for number, c := range classes {
		if keep(c) {
			out[number] = c
		}
	}
	return out
}

func countTeachers(classes map[string]Class) int {
	set := make(map[string]struct{})
	for _, c := range classes {
		set[c.Teacher] = struct{}{}
	}
	return len(set)
}

func formsSubset(forms, within []string) bool {
	for _, f := range forms {
		var found bool
		for _, w := range within {
			if f == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
