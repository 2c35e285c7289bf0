package plan

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
)

// ParseError reports a fragment that matched a pattern but carried malformed
// data, e.g. an impossible date. These surface upstream data corruption and
// abort the revision being processed instead of being swallowed.
type ParseError struct {
	Fragment string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("plan: parsing info fragment %q: %v", e.Fragment, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MessageContext supplies the lesson-level data a fragment alone cannot
// carry: the reference year for two-digit dates and the lesson's own periods
// for facts that default to them.
type MessageContext struct {
	LessonDate Date
	Periods    []int
}

// Pattern fragments of the German substitution-plan phrasing, as emitted by
// the Indiware "Stundenplan24" family of plan generators.
const (
	reTeacherName = `[A-ZÄÖÜ][a-zäöüß]+` +
		`(?: (?:[A-ZÄÖÜ]')?[A-ZÄÖÜ][a-zäöüß]+(?:-[A-ZÄÖÜ][a-zäöüß]+)?\.?)*` +
		`(?: van)?` +
		`(?: (?:[A-ZÄÖÜ]')?[A-ZÄÖÜ][a-zäöüß]+(?:-[A-ZÄÖÜ][a-zäöüß]+)?)`
	reTeacherAbbreviation = `[A-ZÄÖÜ][A-ZÄÖÜa-zäöüß]{2,}`
	reTeacher             = `(?:` + reTeacherName + `)|(?:` + reTeacherAbbreviation + `)`
	reTeachers            = `(?:` + reTeacher + `)(?:, ?(?:` + reTeacher + `))*`
	reCourse              = `[A-Za-z0-9ÄÖÜäöüß/\-_]{2,8}`
	rePeriod              = `St\.(?P<periods>(?P<period_begin>\d{1,2})(?:-(?P<period_end>\d{1,2}))?)`
	reWeekday             = `(?:Mo|Di|Mi|Do|Fr|Sa|So)`
	reDate                = `(?:\d{2}\.\d{2}\.)`
	reLessonSpecifier     = reWeekday + ` \((?P<date>` + reDate + `)\) ` + rePeriod
)

// matcher is one entry of the ordered pattern catalogue. Anchored matchers
// must match at the start of the fragment ("match" semantics); the rest may
// match anywhere ("search" semantics).
type matcher struct {
	name  string
	re    *regexp.Regexp
	build func(groups map[string]string, ctx MessageContext) (Fact, error)
}

// messageMatchers is evaluated in order; the first matching pattern wins.
// The order is part of the parser's contract: more specific phrasings come
// before the generic flags they embed.
var messageMatchers = []matcher{
	{
		name: "substitution",
		re: regexp.MustCompile(`^für (?P<course>` + reCourse + `) (?P<teachers>` + reTeachers + `)`),
		build: func(g map[string]string, ctx MessageContext) (Fact, error) {
			return InsteadOfCourse{
				Course:   g["course"],
				Teachers: splitTeachers(g["teachers"]),
				Periods:  uniqueSortedInts(ctx.Periods),
			}, nil
		},
	},
	{
		name: "moved_from",
		re:   regexp.MustCompile(`^verlegt von ` + rePeriod),
		build: func(g map[string]string, ctx MessageContext) (Fact, error) {
			begin, _ := strconv.Atoi(g["period_begin"])
			return MovedFrom{Periods: []int{begin}}, nil
		},
	},
	{
		name: "instead_of",
		re:   regexp.MustCompile(`^statt ` + reWeekday + ` \((?P<date>` + reDate + `)\) ` + rePeriod),
		build: func(g map[string]string, ctx MessageContext) (Fact, error) {
			date, err := resolveDate(g["date"], ctx.LessonDate.Year)
			if err != nil {
				return nil, err
			}
			return InsteadOfPeriod{Date: date, Periods: expandPeriods(g)}, nil
		},
	},
	{
		name: "held_at",
		re: regexp.MustCompile(`^(?P<course>` + reCourse + `) (?P<teachers>` + reTeachers +
			`) gehalten am ` + reLessonSpecifier),
		build: func(g map[string]string, ctx MessageContext) (Fact, error) {
			date, err := resolveDate(g["date"], ctx.LessonDate.Year)
			if err != nil {
				return nil, err
			}
			return HeldAt{
				Course:   g["course"],
				Teachers: splitTeachers(g["teachers"]),
				Date:     date,
				Periods:  expandPeriods(g),
			}, nil
		},
	},
	{
		name: "moved_to",
		re: regexp.MustCompile(`^(?P<course>` + reCourse + `) (?P<teachers>` + reTeachers +
			`) verlegt nach ` + rePeriod),
		build: func(g map[string]string, ctx MessageContext) (Fact, error) {
			return MovedTo{
				Course:   g["course"],
				Teachers: splitTeachers(g["teachers"]),
				Periods:  expandPeriods(g),
			}, nil
		},
	},
	{
		name: "moved_to_date",
		re: regexp.MustCompile(`^(?P<course>` + reCourse + `) (?P<teachers>` + reTeachers +
			`) verlegt nach ` + reLessonSpecifier),
		build: func(g map[string]string, ctx MessageContext) (Fact, error) {
			date, err := resolveDate(g["date"], ctx.LessonDate.Year)
			if err != nil {
				return nil, err
			}
			return MovedTo{
				Course:   g["course"],
				Teachers: splitTeachers(g["teachers"]),
				Date:     date,
				Periods:  expandPeriods(g),
			}, nil
		},
	},
	{
		name: "cancelled",
		re: regexp.MustCompile(`^(?P<course>` + reCourse + `) (?P<teachers>` + reTeachers +
			`) fällt aus`),
		build: func(g map[string]string, ctx MessageContext) (Fact, error) {
			return Cancelled{
				Course:   g["course"],
				Teachers: splitTeachers(g["teachers"]),
				Periods:  uniqueSortedInts(ctx.Periods),
			}, nil
		},
	},
	{
		name: "exam",
		re:   regexp.MustCompile(`Prüfung (?P<last_name>[A-ZÄÖÜ][a-zäöüß]+)`),
		build: func(g map[string]string, ctx MessageContext) (Fact, error) {
			return Exam{LastName: g["last_name"]}, nil
		},
	},
	{
		name: "do_where",
		re:   regexp.MustCompile(`bitte(?P<where>(?: [\p{L}\p{N}_]+)+) bearbeiten`),
		build: func(g map[string]string, ctx MessageContext) (Fact, error) {
			return DoAtLocation{Location: strings.TrimSpace(g["where"])}, nil
		},
	},
	{
		name: "individual_revision",
		re:   regexp.MustCompile(`individuelle Nachbearbeitung des aktuellen Stoffes (?P<location>in der Bibo)?`),
		build: func(g map[string]string, ctx MessageContext) (Fact, error) {
			return IndividualRevision{Location: null.NewString(g["location"], g["location"] != "")}, nil
		},
	},
	{
		name: "independent",
		re:   regexp.MustCompile(`selbst\. \(.\)`),
		build: func(g map[string]string, ctx MessageContext) (Fact, error) {
			return DoIndependent{}, nil
		},
	},
	{
		name: "tasks_in_lernsax",
		re:   regexp.MustCompile(`Aufgaben stehen im LernSax`),
		build: func(g map[string]string, ctx MessageContext) (Fact, error) {
			return TasksInLernsax{}, nil
		},
	},
	{
		name: "tasks_were_given",
		re:   regexp.MustCompile(`Aufgaben wurden erteilt`),
		build: func(g map[string]string, ctx MessageContext) (Fact, error) {
			return TasksWereGiven{}, nil
		},
	},
}

var (
	slashSpaceRe = regexp.MustCompile(`(\w)/ `)
	backtickRe   = regexp.MustCompile("\\b[´`]\\b")
)

// normalizeFragment cleans up the quirks plan authors type: spaces after
// slashes ("G/ R/ W") and stray accent characters used as apostrophes.
func normalizeFragment(s string) string {
	s = strings.TrimSpace(s)
	s = slashSpaceRe.ReplaceAllString(s, "$1/")
	s = backtickRe.ReplaceAllString(s, "'")
	return s
}

// ParseMessage parses one comma-separated fragment of an info field into a
// Message. Unrecognized fragments yield a Message with a nil Fact. Structured
// parsing only applies to form plans; other plan types carry the fragment
// verbatim.
func ParseMessage(fragment string, planType PlanType, ctx MessageContext) (Message, error) {
	fragment = normalizeFragment(fragment)

	if planType != PlanTypeForms {
		return Message{Raw: []string{fragment}}, nil
	}

	for _, m := range messageMatchers {
		loc := m.re.FindStringSubmatchIndex(fragment)
		if loc == nil {
			continue
		}
		fact, err := m.build(submatchGroups(m.re, fragment, loc), ctx)
		if err != nil {
			return Message{}, &ParseError{Fragment: fragment, Err: err}
		}
		return Message{
			Raw:    []string{fragment[loc[0]:loc[1]]},
			Before: fragment[:loc[0]],
			After:  fragment[loc[1]:],
			Fact:   fact,
		}, nil
	}
	return Message{Raw: []string{fragment}}, nil
}

// ParseInfo parses a whole info field: ";" separates paragraphs, "," messages
// within one. Adjacent unrecognized messages of a paragraph are merged so
// free prose containing commas stays one message.
func ParseInfo(info string, planType PlanType, ctx MessageContext) (Annotation, error) {
	if strings.TrimSpace(info) == "" {
		return Annotation{}, nil
	}

	var out Annotation
	for i, rawParagraph := range strings.Split(info, ";") {
		var messages []Message
		for j, rawMessage := range strings.Split(rawParagraph, ",") {
			msg, err := ParseMessage(rawMessage, planType, ctx)
			if err != nil {
				return Annotation{}, err
			}
			msg.Index = j

			canMerge := len(messages) > 0 &&
				!messages[len(messages)-1].IsRecognized() &&
				!msg.IsRecognized()
			if canMerge {
				last := &messages[len(messages)-1]
				last.Raw = append(last.Raw, msg.Raw...)
			} else {
				messages = append(messages, msg)
			}
		}
		out.Paragraphs = append(out.Paragraphs, Paragraph{Messages: messages, Index: i})
	}
	return out, nil
}

func submatchGroups(re *regexp.Regexp, s string, loc []int) map[string]string {
	groups := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if name == "" || loc[2*i] < 0 {
			continue
		}
		groups[name] = s[loc[2*i]:loc[2*i+1]]
	}
	return groups
}

func splitTeachers(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// expandPeriods turns the matched "St.N" or "St.N-M" groups into the
// inclusive period range.
func expandPeriods(groups map[string]string) []int {
	begin, _ := strconv.Atoi(groups["period_begin"])
	end := begin
	if e, ok := groups["period_end"]; ok && e != "" {
		end, _ = strconv.Atoi(e)
	}
	periods := make([]int, 0, end-begin+1)
	for p := begin; p <= end; p++ {
		periods = append(periods, p)
	}
	return periods
}

// resolveDate combines a "DD.MM." plan date with the reference year.
func resolveDate(fragment string, year int) (Date, error) {
	t, err := time.Parse("02.01.2006", fmt.Sprintf("%s%d", fragment, year))
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}
