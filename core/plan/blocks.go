package plan

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// PeriodTime is the default begin/end clock time of one period.
// Only the clock part of the time.Time values is meaningful.
type PeriodTime struct {
	Begin time.Time
	End   time.Time
}

// DefaultTimes maps a period number to its default begin/end times.
type DefaultTimes map[int]PeriodTime

// BlockConfig represents how a school organizes its periods into blocks.
// Blocks are relevant for grouping lessons, as only lessons belonging to the
// same block can get grouped. Usually a block consists of exactly two periods.
// Some schools mix blocks and single periods; if a school has such abstract
// blocks, labelling always falls back to "Stunde X".
type BlockConfig struct {
	// blocks maps a logical block number to the ordered periods it contains.
	// when empty, the schedule is assumed to consist of single periods.
	blocks map[int][]int
}

// TrivialBlocks is the configuration where one period == one block.
var TrivialBlocks = BlockConfig{}

func NewBlockConfig(blocks map[int][]int) BlockConfig {
	if len(blocks) == 0 {
		return TrivialBlocks
	}
	cp := make(map[int][]int, len(blocks))
	for b, periods := range blocks {
		cp[b] = append([]int(nil), periods...)
	}
	return BlockConfig{blocks: cp}
}

func (c BlockConfig) IsTrivial() bool {
	return len(c.blocks) == 0
}

func (c BlockConfig) minBlock() int {
	min := 0
	first := true
	for b := range c.blocks {
		if first || b < min {
			min = b
			first = false
		}
	}
	return min
}

func (c BlockConfig) maxBlock() int {
	max := 0
	first := true
	for b := range c.blocks {
		if first || b > max {
			max = b
			first = false
		}
	}
	return max
}

// BlockOfPeriod returns the block the given period belongs to. Periods outside
// any configured block are assigned synthetic blocks by linear extrapolation
// from the nearest configured block; many schools just don't report their
// periods properly and this keeps the mapping total and strictly increasing.
func (c BlockConfig) BlockOfPeriod(period int) int {
	for block, periods := range c.blocks {
		for _, p := range periods {
			if p == period {
				return block
			}
		}
	}

	maxBlock := c.maxBlock()
	minBlock := c.minBlock()
	maxPeriod := maxInts(c.PeriodsOfBlock(maxBlock))
	minPeriod := minInts(c.PeriodsOfBlock(minBlock))

	if period > minPeriod {
		return maxBlock + (period - maxPeriod)
	}
	return minBlock - (minPeriod - period)
}

// PeriodsOfBlock returns the periods contained in the given block,
// extrapolating single-period blocks outside the configured range.
func (c BlockConfig) PeriodsOfBlock(block int) []int {
	if len(c.blocks) == 0 {
		return []int{block}
	}
	if periods, ok := c.blocks[block]; ok {
		return append([]int(nil), periods...)
	}

	maxBlock := c.maxBlock()
	minBlock := c.minBlock()

	if block < minBlock {
		minPeriod := minInts(c.blocks[minBlock])
		return []int{block - minBlock + minPeriod}
	}
	maxPeriod := maxInts(c.blocks[maxBlock])
	return []int{block - maxBlock + maxPeriod}
}

func (c BlockConfig) hasAbstractBlocks() bool {
	for _, periods := range c.blocks {
		if len(periods) == 1 {
			return true
		}
	}
	return false
}

// LabelPeriods produces the human label for a set of periods, choosing between
// period-based ("Stunde(n) ...") and block-based ("Block/Blöcke ...") forms.
// Block form is only used if the periods exactly cover whole blocks and the
// configuration has no abstract (single-period) blocks involved.
func (c BlockConfig) LabelPeriods(periods []int) string {
	ps := uniqueSortedInts(periods)
	if len(ps) == 0 {
		return ""
	}

	if len(c.blocks) == 0 || c.hasAbstractBlocks() {
		return labelPeriods(ps)
	}

	for _, p := range ps {
		if len(c.PeriodsOfBlock(c.BlockOfPeriod(p))) == 1 {
			return labelPeriods(ps)
		}
	}

	// work out whether we can display as "Block X" or "Stunde X"
	inSet := make(map[int]bool, len(ps))
	for _, p := range ps {
		inSet[p] = true
	}
	for _, p := range ps {
		for _, bp := range c.PeriodsOfBlock(c.BlockOfPeriod(p)) {
			if !inSet[bp] {
				return labelPeriods(ps)
			}
		}
	}
	return c.labelBlocks(ps)
}

func labelPeriods(periods []int) string {
	out := sequenceLabels(periods)
	if len(periods) == 1 {
		return "Stunde " + out[0]
	}
	return "Stunden " + strings.Join(out, ",")
}

func (c BlockConfig) labelBlocks(periods []int) string {
	blockSet := make(map[int]bool)
	for _, p := range periods {
		blockSet[c.BlockOfPeriod(p)] = true
	}
	blocks := make([]int, 0, len(blockSet))
	for b := range blockSet {
		blocks = append(blocks, b)
	}
	sort.Ints(blocks)

	out := sequenceLabels(blocks)
	if len(blocks) == 1 {
		return "Block " + out[0]
	}
	return "Blöcke " + strings.Join(out, ",")
}

// sequenceLabels collapses runs of consecutive integers: [1 2 3] -> "1-3",
// [1 2] -> "1,2", [4] -> "4".
func sequenceLabels(sorted []int) []string {
	out := make([]string, 0)
	for _, seq := range increasingSequences(sorted) {
		switch len(seq) {
		case 1:
			out = append(out, fmt.Sprintf("%d", seq[0]))
		case 2:
			out = append(out, fmt.Sprintf("%d,%d", seq[0], seq[1]))
		default:
			out = append(out, fmt.Sprintf("%d-%d", seq[0], seq[len(seq)-1]))
		}
	}
	return out
}

func increasingSequences(sorted []int) [][]int {
	seqs := make([][]int, 0)
	var cur []int
	for i, v := range sorted {
		if i > 0 && v == sorted[i-1]+1 {
			cur = append(cur, v)
		} else {
			if cur != nil {
				seqs = append(seqs, cur)
			}
			cur = []int{v}
		}
	}
	if cur != nil {
		seqs = append(seqs, cur)
	}
	return seqs
}

// BlockConfigFromDefaultTimes infers a block configuration from the default
// period times of a form: periods whose end time equals the next period's
// start time join a block; consecutive leftover single periods separated by at
// most 5 minutes (lunch-adjacent blocks at some schools) are then merged. If
// the input periods are non-contiguous or any inferred block exceeds two
// periods, the trivial configuration is returned instead of guessing.
func BlockConfigFromDefaultTimes(times DefaultTimes) BlockConfig {
	if len(times) == 0 {
		return TrivialBlocks
	}

	periods := make([]int, 0, len(times))
	for p := range times {
		periods = append(periods, p)
	}
	sort.Ints(periods)
	for i := 1; i < len(periods); i++ {
		if periods[i] != periods[i-1]+1 {
			return TrivialBlocks
		}
	}

	var blocks [][]int
	var lastPeriodEnd time.Time
	haveLastEnd := false
	for _, p := range periods {
		t := times[p]
		if haveLastEnd && sameClock(lastPeriodEnd, t.Begin) {
			blocks[len(blocks)-1] = append(blocks[len(blocks)-1], p)
		} else {
			blocks = append(blocks, []int{p})
		}
		lastPeriodEnd = t.End
		haveLastEnd = true
	}

	var merged [][]int
	var lastBlockEnd time.Time
	haveBlockEnd := false
	for _, blockPeriods := range blocks {
		last := times[blockPeriods[len(blockPeriods)-1]]

		if len(blockPeriods) == 1 && haveBlockEnd && clockSub(last.Begin, lastBlockEnd) <= 5*time.Minute {
			merged[len(merged)-1] = append(merged[len(merged)-1], blockPeriods...)
		} else {
			merged = append(merged, blockPeriods)
		}

		if len(blockPeriods) == 1 {
			lastBlockEnd = last.End
			haveBlockEnd = true
		} else {
			haveBlockEnd = false
		}
	}

	for _, block := range merged {
		if len(block) > 2 {
			// assume something went wrong
			return TrivialBlocks
		}
	}

	out := make(map[int][]int, len(merged))
	for i, block := range merged {
		out[i+1] = block
	}
	return NewBlockConfig(out)
}

func sameClock(a, b time.Time) bool {
	return clockOf(a) == clockOf(b)
}

func clockSub(a, b time.Time) time.Duration {
	return clockOf(a) - clockOf(b)
}

func clockOf(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second
}

// minInts treats an empty slice as the maximum int so period-less values
// sort after everything with a period.
func minInts(vals []int) int {
	if len(vals) == 0 {
		return int(^uint(0) >> 1)
	}
	min := vals[0]
	for _, v := range vals[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

func maxInts(vals []int) int {
	max := vals[0]
	for _, v := range vals[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

func uniqueSortedInts(vals []int) []int {
	seen := make(map[int]bool, len(vals))
	out := make([]int, 0, len(vals))
	for _, v := range vals {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}
