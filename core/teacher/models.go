package teacher

import (
	"sort"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
)

// Teacher is one entry of a school's teacher directory. Abbreviation is the
// short code the upstream plans use; everything else is optional enrichment
// collected over time.
type Teacher struct {
	Abbreviation string      `json:"abbreviation"`
	FullName     null.String `json:"full_name"`
	Surname      null.String `json:"surname"`
	Info         null.String `json:"info"`
	Subjects     []string    `json:"subjects"`
	ContactLink  null.String `json:"contact_link"`
	ImagePath    null.String `json:"image_path"`
	LastSeen     time.Time   `json:"last_seen"`
}

// Merge combines two observations of the same teacher. t's fields win where
// set; subjects are unioned and the later sighting kept.
func (t Teacher) Merge(other Teacher) Teacher {
	out := Teacher{
		Abbreviation: firstNonEmpty(t.Abbreviation, other.Abbreviation),
		FullName:     firstValid(t.FullName, other.FullName),
		Surname:      firstValid(t.Surname, other.Surname),
		Info:         firstValid(t.Info, other.Info),
		ContactLink:  firstValid(t.ContactLink, other.ContactLink),
		ImagePath:    firstValid(t.ImagePath, other.ImagePath),
		LastSeen:     t.LastSeen,
	}
	if other.LastSeen.After(out.LastSeen) {
		out.LastSeen = other.LastSeen
	}
	out.Subjects = unionStrings(t.Subjects, other.Subjects)
	return out
}

// SurnameNoTitles strips title words like "Dr." from the surname; anything
// containing a "." counts as a title.
func (t Teacher) SurnameNoTitles() string {
	if !t.Surname.Valid {
		return ""
	}
	var kept []string
	for _, part := range strings.Fields(t.Surname.String) {
		if !strings.Contains(part, ".") {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, " ")
}

// Directory is one school's full teacher directory together with the time it
// was last assembled.
type Directory struct {
	Teachers  []Teacher `json:"teachers"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsStale reports whether the directory is older than maxAge at time now.
func (d Directory) IsStale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(d.UpdatedAt) > maxAge
}

// ByAbbreviation indexes the directory by the plan short code.
func (d Directory) ByAbbreviation() map[string]Teacher {
	out := make(map[string]Teacher, len(d.Teachers))
	for _, t := range d.Teachers {
		out[t.Abbreviation] = t
	}
	return out
}

// AbbreviationBySurname maps title-stripped surnames to abbreviations, the
// lookup table the annotation resolver consumes.
func (d Directory) AbbreviationBySurname() map[string]string {
	out := make(map[string]string)
	for _, t := range d.Teachers {
		if surname := t.SurnameNoTitles(); surname != "" {
			out[surname] = t.Abbreviation
		}
	}
	return out
}

// MergeObservations folds a batch of teacher sightings into the directory,
// merging entries sharing an abbreviation. Existing directory fields win over
// newly observed ones.
func (d Directory) MergeObservations(observed []Teacher, now time.Time) Directory {
	byAbbreviation := d.ByAbbreviation()
	for _, t := range observed {
		if t.Abbreviation == "" {
			continue
		}
		if existing, ok := byAbbreviation[t.Abbreviation]; ok {
			byAbbreviation[t.Abbreviation] = existing.Merge(t)
		} else {
			byAbbreviation[t.Abbreviation] = t
		}
	}

	abbreviations := make([]string, 0, len(byAbbreviation))
	for a := range byAbbreviation {
		abbreviations = append(abbreviations, a)
	}
	sort.Strings(abbreviations)

	out := Directory{UpdatedAt: now, Teachers: make([]Teacher, len(abbreviations))}
	for i, a := range abbreviations {
		out.Teachers[i] = byAbbreviation[a]
	}
	return out
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func firstValid(a, b null.String) null.String {
	if a.Valid && a.String != "" {
		return a
	}
	return b
}

func unionStrings(a, b []string) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		set[s] = struct{}{}
	}
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
