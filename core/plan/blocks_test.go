package plan

import (
	"reflect"
	"testing"
	"time"
)

func clock(h, m int) time.Time {
	return time.Date(0, time.January, 1, h, m, 0, 0, time.UTC)
}

func TestTrivialBlockConfig(t *testing.T) {
	empty := TrivialBlocks

	periodsTests := []struct {
		block int
		want  []int
	}{
		{0, []int{0}},
		{5, []int{5}},
		{-1, []int{-1}},
	}
	for _, tt := range periodsTests {
		if got := empty.PeriodsOfBlock(tt.block); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("PeriodsOfBlock(%d) = %v; expected %v", tt.block, got, tt.want)
		}
	}

	blockTests := []struct {
		period int
		want   int
	}{
		{0, 0},
		{2, 2},
		{-2, -2},
	}
	for _, tt := range blockTests {
		if got := empty.BlockOfPeriod(tt.period); got != tt.want {
			t.Errorf("BlockOfPeriod(%d) = %d; expected %d", tt.period, got, tt.want)
		}
	}

	if got := empty.LabelPeriods([]int{0}); got != "Stunde 0" {
		t.Errorf("label = %q; expected %q", got, "Stunde 0")
	}
	if got := empty.LabelPeriods([]int{0, 1, 2, 3}); got != "Stunden 0-3" {
		t.Errorf("label = %q; expected %q", got, "Stunden 0-3")
	}
}

func TestBlockConfigOutOfBounds(t *testing.T) {
	cfg := NewBlockConfig(map[int][]int{1: {1, 2}, 2: {3, 4}})

	periodsTests := []struct {
		block int
		want  []int
	}{
		{1, []int{1, 2}},
		{2, []int{3, 4}},
		{0, []int{0}},
		{-1, []int{-1}},
		{3, []int{5}},
		{4, []int{6}},
	}
	for _, tt := range periodsTests {
		if got := cfg.PeriodsOfBlock(tt.block); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("PeriodsOfBlock(%d) = %v; expected %v", tt.block, got, tt.want)
		}
	}

	blockTests := []struct {
		period int
		want   int
	}{
		{1, 1},
		{2, 1},
		{3, 2},
		{4, 2},
		{-1, -1},
		{0, 0},
		{5, 3},
		{6, 4},
	}
	for _, tt := range blockTests {
		if got := cfg.BlockOfPeriod(tt.period); got != tt.want {
			t.Errorf("BlockOfPeriod(%d) = %d; expected %d", tt.period, got, tt.want)
		}
	}
}

func TestBlockConfigLabels(t *testing.T) {
	cfg := NewBlockConfig(map[int][]int{1: {1, 2}, 2: {3, 4}})

	tests := []struct {
		name    string
		periods []int
		want    string
	}{
		{"whole block", []int{1, 2}, "Block 1"},
		{"second block", []int{3, 4}, "Block 2"},
		{"partial blocks", []int{1, 3}, "Stunden 1,3"},
		{"run past config", []int{1, 2, 3, 4, 5}, "Stunden 1-5"},
		{"run with gap", []int{1, 2, 3, 4, 6}, "Stunden 1-4,6"},
		{"single period", []int{0}, "Stunde 0"},
		{"both blocks", []int{1, 2, 3, 4}, "Blöcke 1,2"},
		{"unordered input", []int{2, 1}, "Block 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.LabelPeriods(tt.periods); got != tt.want {
				t.Errorf("LabelPeriods(%v) = %q; expected %q", tt.periods, got, tt.want)
			}
		})
	}
}

func TestBlockConfigAbstractBlocks(t *testing.T) {
	// a single-period block forces period labels everywhere
	cfg := NewBlockConfig(map[int][]int{1: {1, 2}, 2: {3}})

	if got := cfg.LabelPeriods([]int{1, 2}); got != "Stunden 1,2" {
		t.Errorf("label = %q; expected %q", got, "Stunden 1,2")
	}
}

func TestBlockConfigFromDefaultTimes(t *testing.T) {
	tests := []struct {
		name  string
		times DefaultTimes
		want  BlockConfig
	}{
		{
			name:  "empty",
			times: DefaultTimes{},
			want:  TrivialBlocks,
		},
		{
			name: "adjacent periods form blocks",
			times: DefaultTimes{
				1: {clock(7, 30), clock(8, 15)},
				2: {clock(8, 15), clock(9, 0)},
				3: {clock(9, 20), clock(10, 5)},
				4: {clock(10, 5), clock(10, 50)},
			},
			want: NewBlockConfig(map[int][]int{1: {1, 2}, 2: {3, 4}}),
		},
		{
			name: "short gap merges leftover singles",
			times: DefaultTimes{
				1: {clock(7, 30), clock(8, 15)},
				2: {clock(8, 20), clock(9, 5)},
			},
			want: NewBlockConfig(map[int][]int{1: {1, 2}}),
		},
		{
			name: "long gap keeps singles apart",
			times: DefaultTimes{
				1: {clock(7, 30), clock(8, 15)},
				2: {clock(8, 45), clock(9, 30)},
			},
			want: NewBlockConfig(map[int][]int{1: {1}, 2: {2}}),
		},
		{
			name: "non-contiguous periods",
			times: DefaultTimes{
				1: {clock(7, 30), clock(8, 15)},
				3: {clock(9, 20), clock(10, 5)},
			},
			want: TrivialBlocks,
		},
		{
			name: "oversized block",
			times: DefaultTimes{
				1: {clock(7, 30), clock(8, 15)},
				2: {clock(8, 15), clock(9, 0)},
				3: {clock(9, 0), clock(9, 45)},
			},
			want: TrivialBlocks,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BlockConfigFromDefaultTimes(tt.times); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %+v; expected %+v", got, tt.want)
			}
		})
	}
}
