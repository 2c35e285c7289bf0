package plan

// UsedRoomsByPeriod collects, per period, the rooms occupied by non-internal
// lessons that take place. Records must still be single-period (pre-merge).
func UsedRoomsByPeriod(records Lessons) map[int][]string {
	used := make(map[int]map[string]bool)
	for _, r := range records {
		if r.IsInternal {
			continue
		}
		if r.TakesPlace.Valid && !r.TakesPlace.Bool {
			continue
		}
		if !r.Rooms.Valid || len(r.Rooms.Values) == 0 {
			continue
		}
		for _, p := range r.Periods {
			if used[p] == nil {
				used[p] = make(map[string]bool)
			}
			for _, room := range r.Rooms.Values {
				used[p][room] = true
			}
		}
	}
	return setMapToSlices(used)
}

// RoomUniverse collects every room the day's records mention, either side.
// It is the fallback room universe when a school has no curated room list.
func RoomUniverse(records Lessons) []string {
	var rooms []string
	for _, r := range records {
		if r.IsInternal || !r.Rooms.Valid {
			continue
		}
		rooms = append(rooms, r.Rooms.Values...)
	}
	return uniqueSortedStrings(rooms)
}

// FreeRoomsByPeriod complements the used rooms against the school's room
// universe, for the periods that have any usage data.
func FreeRoomsByPeriod(usedByPeriod map[int][]string, allRooms []string) map[int][]string {
	out := make(map[int][]string, len(usedByPeriod))
	for period, used := range usedByPeriod {
		usedSet := make(map[string]bool, len(used))
		for _, room := range used {
			usedSet[room] = true
		}
		var free []string
		for _, room := range uniqueSortedStrings(allRooms) {
			if !usedSet[room] {
				free = append(free, room)
			}
		}
		out[period] = free
	}
	return out
}

// RoomsByBlock folds a per-period room map into a per-block one: a room
// counts for a block only if it appears in every period of that block.
func RoomsByBlock(byPeriod map[int][]string, blocks BlockConfig) map[int][]string {
	counts := make(map[int]int)
	roomHits := make(map[int]map[string]int)
	for period, rooms := range byPeriod {
		block := blocks.BlockOfPeriod(period)
		counts[block]++
		if roomHits[block] == nil {
			roomHits[block] = make(map[string]int)
		}
		for _, room := range rooms {
			roomHits[block][room]++
		}
	}

	out := make(map[int][]string, len(counts))
	for block, hits := range roomHits {
		inAll := make(map[string]bool)
		for room, n := range hits {
			if n == counts[block] {
				inAll[room] = true
			}
		}
		out[block] = setToSlice(inAll)
	}
	return out
}

func setMapToSlices(m map[int]map[string]bool) map[int][]string {
	out := make(map[int][]string, len(m))
	for k, set := range m {
		out[k] = setToSlice(set)
	}
	return out
}

func setToSlice(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	return uniqueSortedStrings(out)
}
