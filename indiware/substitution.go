package indiware

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/vplan-fr/vplan/core/plan"
)

type (
	vpDocument struct {
		XMLName xml.Name `xml:"vp"`
		Head    vpHead   `xml:"kopf"`
		Free    []string `xml:"frei>ft"`
	}

	vpHead struct {
		Title          string `xml:"titel"`
		Date           string `xml:"datum"`
		AbsentTeachers string `xml:"abwesendl"`
		AbsentForms    string `xml:"abwesendk"`
		AbsentRooms    string `xml:"abwesendr"`
	}
)

// ParseSubstitutionPlan decodes a "VplanKl.xml" document into the day's
// absence lists.
func ParseSubstitutionPlan(r io.Reader) (*plan.Substitutions, error) {
	var doc vpDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "indiware: decoding substitution plan")
	}

	out := &plan.Substitutions{}
	var err error
	if out.AbsentTeachers, err = parseAbsenceList(doc.Head.AbsentTeachers); err != nil {
		return nil, err
	}
	if out.AbsentForms, err = parseAbsenceList(doc.Head.AbsentForms); err != nil {
		return nil, err
	}
	if out.AbsentRooms, err = parseAbsenceList(doc.Head.AbsentRooms); err != nil {
		return nil, err
	}
	return out, nil
}

func parseAbsenceList(s string) ([]plan.AbsentEntry, error) {
	var out []plan.AbsentEntry
	for _, element := range splitAbsences(s) {
		entry, err := plan.ParseAbsentElement(element)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

// splitAbsences splits a comma-separated absence list while keeping period
// lists like "1302 (1-2,7-10)" intact.
func splitAbsences(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				if element := strings.TrimSpace(s[start:i]); element != "" {
					out = append(out, element)
				}
				start = i + 1
			}
		}
	}
	if element := strings.TrimSpace(s[start:]); element != "" {
		out = append(out, element)
	}
	return out
}
