package plan

// LessonsStatistics aggregates change counts over one day's current-side
// records. "Just changed" means altered but still taking place.
type LessonsStatistics struct {
	Count int `json:"count"`

	Changed int `json:"changed"`

	Cancelled   int `json:"cancelled"`
	JustChanged int `json:"just_changed"`

	JustChangedChangedSubject int `json:"just_changed_changed_subject"`
	JustChangedChangedTeacher int `json:"just_changed_changed_teacher"`
	JustChangedChangedRoom    int `json:"just_changed_changed_room"`

	JustChangedNoTeacher int `json:"just_changed_no_teacher"`
	JustChangedNoSubject int `json:"just_changed_no_subject"`
	JustChangedNoRoom    int `json:"just_changed_no_room"`

	AbsentTeachers int `json:"absent_teachers"`
}

// StatisticsFromLessons computes the day's statistics. A teacher counts as
// absent only if none of their lessons takes place.
func StatisticsFromLessons(records Lessons) LessonsStatistics {
	var out LessonsStatistics

	teacherPresent := make(map[string]bool)

	for _, r := range records {
		if r.IsInternal {
			continue
		}

		takesPlace := !r.TakesPlace.Valid || r.TakesPlace.Bool
		if r.Teachers.Valid {
			for _, teacher := range r.Teachers.Values {
				teacherPresent[teacher] = teacherPresent[teacher] || takesPlace
			}
		}

		if r.IsScheduled {
			continue
		}

		out.Count++

		anyFlag := r.TeacherChanged || r.RoomChanged || r.SubjectChanged
		if !takesPlace || anyFlag {
			out.Changed++
		}
		if anyFlag {
			out.JustChanged++
		}

		if !takesPlace {
			out.Cancelled++
			continue
		}
		out.JustChangedChangedSubject += boolToInt(r.SubjectChanged)
		out.JustChangedChangedTeacher += boolToInt(r.TeacherChanged)
		out.JustChangedChangedRoom += boolToInt(r.RoomChanged)

		out.JustChangedNoTeacher += boolToInt(r.Teachers.IsEmpty())
		out.JustChangedNoSubject += boolToInt(!r.Course.Valid)
		out.JustChangedNoRoom += boolToInt(r.Rooms.IsEmpty())
	}

	for _, present := range teacherPresent {
		if !present {
			out.AbsentTeachers++
		}
	}
	return out
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
