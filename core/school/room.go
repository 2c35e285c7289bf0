package school

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

// Room is the structured form of a compact room identifier like "2104b":
// house 2, floor 1, room 04, appendix "b". Rooms named by word ("Aula") keep
// the whole name in House with no floor.
type Room struct {
	House    string   `json:"house"`
	Floor    null.Int `json:"floor"`
	Number   null.Int `json:"room_nr"`
	Appendix string   `json:"appendix"`
}

// Short renders the compact identifier back.
func (r Room) Short() string {
	if !r.Floor.Valid {
		s := r.House
		if r.Number.Valid && r.Number.Int != 0 {
			s += strconv.Itoa(r.Number.Int)
		}
		return s + r.Appendix
	}
	floor := r.Floor.Int
	if floor < 0 {
		return fmt.Sprintf("-%s%d%02d%s", r.House, -floor, r.Number.Int, r.Appendix)
	}
	if floor == 0 {
		return fmt.Sprintf("%s%02d%s", r.House, r.Number.Int, r.Appendix)
	}
	return fmt.Sprintf("%s%d%02d%s", r.House, floor, r.Number.Int, r.Appendix)
}

// RoomParser turns a school-specific room string into its structured form.
type RoomParser func(string) (Room, error)

// roomParsers maps school numbers to their room notation. Schools without an
// entry expose raw identifiers only.
var roomParsers = map[string]RoomParser{
	"10001329": ParseRoomOstwald,
}

func RoomParserFor(schoolNumber string) (RoomParser, bool) {
	p, ok := roomParsers[schoolNumber]
	return p, ok
}

// ParseRoomOstwald parses the Ostwald room notation: "Aula", "SH", "TH1",
// "12", "110", "2110", "-2113", "2104b".
func ParseRoomOstwald(s string) (Room, error) {
	if s == "" {
		return Room{}, errors.New("school: empty room string")
	}

	if strings.HasPrefix(s, "TH") {
		rest := strings.TrimPrefix(s, "TH")
		nr, err := strconv.Atoi(rest)
		if err != nil {
			return Room{}, errors.Wrapf(err, "school: invalid room string %q", s)
		}
		return Room{House: "TH", Number: null.IntFrom(nr)}, nil
	}

	if unicode.IsLetter(rune(s[0])) {
		return Room{House: s}, nil
	}

	digits := s
	negative := false
	if digits[0] == '-' {
		negative = true
		digits = digits[1:]
	}

	var appendix string
	if len(digits) > 0 && unicode.IsLetter(rune(digits[len(digits)-1])) {
		appendix = digits[len(digits)-1:]
		digits = digits[:len(digits)-1]
	}

	switch {
	case len(digits) >= 1 && len(digits) <= 2:
		if negative {
			return Room{}, errors.Errorf("school: invalid room string %q: floor cannot be omitted if negative", s)
		}
		nr, err := strconv.Atoi(digits)
		if err != nil {
			return Room{}, errors.Wrapf(err, "school: invalid room string %q", s)
		}
		return Room{House: "0", Floor: null.IntFrom(0), Number: null.IntFrom(nr), Appendix: appendix}, nil

	case len(digits) == 3:
		if negative {
			return Room{}, errors.Errorf("school: invalid room string %q: floor cannot be omitted if negative", s)
		}
		nr, err := strconv.Atoi(digits[1:])
		if err != nil {
			return Room{}, errors.Wrapf(err, "school: invalid room string %q", s)
		}
		return Room{House: digits[:1], Floor: null.IntFrom(0), Number: null.IntFrom(nr), Appendix: appendix}, nil

	case len(digits) == 4:
		floor, err := strconv.Atoi(digits[1:2])
		if err != nil {
			return Room{}, errors.Wrapf(err, "school: invalid room string %q", s)
		}
		if negative {
			floor = -floor
		}
		nr, err := strconv.Atoi(digits[2:])
		if err != nil {
			return Room{}, errors.Wrapf(err, "school: invalid room string %q", s)
		}
		return Room{House: digits[:1], Floor: null.IntFrom(floor), Number: null.IntFrom(nr), Appendix: appendix}, nil
	}

	return Room{}, errors.Errorf("school: invalid room string %q", s)
}
