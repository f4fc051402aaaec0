// Package partition assigns enumerated tests to shards.
//
// Every strategy is a pure function of the ordered test list and the shard
// count: the same suite with the same count always yields the same shards,
// and the union of all shards is exactly the input with no duplicates.
package partition

import (
	"container/heap"
	"fmt"
	"strings"

	tserrors "github.com/AndreyAkinshin/testshard/internal/errors"
	"github.com/AndreyAkinshin/testshard/internal/model"
)

// Strategy selects how tests are spread across shards.
type Strategy string

const (
	// RoundRobin sends the test at position i to shard i mod N.
	RoundRobin Strategy = "round-robin"
	// CostWeighted assigns each test, in enumeration order, to the least
	// loaded shard. Ties go to the lowest shard index.
	CostWeighted Strategy = "cost"
	// ByModule keeps tests of one module together and assigns whole modules
	// to the least loaded shard.
	ByModule Strategy = "module"
)

// Strategies lists the supported strategies.
var Strategies = []Strategy{RoundRobin, CostWeighted, ByModule}

// ParseStrategy converts a flag value into a Strategy.
// An empty string selects RoundRobin.
func ParseStrategy(s string) (Strategy, error) {
	if s == "" {
		return RoundRobin, nil
	}
	for _, st := range Strategies {
		if string(st) == strings.ToLower(s) {
			return st, nil
		}
	}
	names := make([]string, len(Strategies))
	for i, st := range Strategies {
		names[i] = string(st)
	}
	return "", tserrors.InvalidShardSpecf("unknown partition strategy %q (valid: %s)", s, strings.Join(names, ", "))
}

// ValidateSpec checks a (shardIndex, shardCount) pair.
func ValidateSpec(shardIndex, shardCount int) error {
	if shardCount <= 0 {
		return tserrors.InvalidShardSpecf("shard count must be positive, got %d", shardCount)
	}
	if shardIndex < 0 || shardIndex >= shardCount {
		return tserrors.InvalidShardSpecf("shard index %d out of range [0, %d)", shardIndex, shardCount)
	}
	return nil
}

// Partition returns the shard with the given index.
func Partition(tests []model.TestCase, shardIndex, shardCount int, strategy Strategy) (model.Shard, error) {
	if err := ValidateSpec(shardIndex, shardCount); err != nil {
		return model.Shard{}, err
	}
	shards, err := PartitionAll(tests, shardCount, strategy)
	if err != nil {
		return model.Shard{}, err
	}
	return shards[shardIndex], nil
}

// PartitionAll returns every shard, indexed 0..shardCount-1. Within a shard,
// tests keep their enumeration order.
func PartitionAll(tests []model.TestCase, shardCount int, strategy Strategy) ([]model.Shard, error) {
	if shardCount <= 0 {
		return nil, tserrors.InvalidShardSpecf("shard count must be positive, got %d", shardCount)
	}

	var assignment []int
	switch strategy {
	case RoundRobin, "":
		assignment = assignRoundRobin(len(tests), shardCount)
	case CostWeighted:
		assignment = assignLeastLoaded(tests, shardCount)
	case ByModule:
		assignment = assignByModule(tests, shardCount)
	default:
		return nil, tserrors.InvalidShardSpecf("unknown partition strategy %q", strategy)
	}

	shards := make([]model.Shard, shardCount)
	for i := range shards {
		shards[i] = model.Shard{Index: i, Count: shardCount, Tests: []model.TestCase{}}
	}
	for pos, idx := range assignment {
		tc := tests[pos]
		shards[idx].Tests = append(shards[idx].Tests, tc)
		shards[idx].Cost += tc.EffectiveCost()
	}
	return shards, nil
}

func assignRoundRobin(n, shardCount int) []int {
	assignment := make([]int, n)
	for i := range assignment {
		assignment[i] = i % shardCount
	}
	return assignment
}

func assignLeastLoaded(tests []model.TestCase, shardCount int) []int {
	loads := newLoadHeap(shardCount)
	assignment := make([]int, len(tests))
	for i, tc := range tests {
		assignment[i] = loads.place(tc.EffectiveCost())
	}
	return assignment
}

func assignByModule(tests []model.TestCase, shardCount int) []int {
	type group struct {
		cost    float64
		members []int
	}
	var order []string
	groups := make(map[string]*group)
	for i, tc := range tests {
		g, ok := groups[tc.Module]
		if !ok {
			g = &group{}
			groups[tc.Module] = g
			order = append(order, tc.Module)
		}
		g.cost += tc.EffectiveCost()
		g.members = append(g.members, i)
	}

	loads := newLoadHeap(shardCount)
	assignment := make([]int, len(tests))
	for _, module := range order {
		g := groups[module]
		idx := loads.place(g.cost)
		for _, pos := range g.members {
			assignment[pos] = idx
		}
	}
	return assignment
}

// CheckCoverage verifies that shards are an exact partition of tests.
func CheckCoverage(tests []model.TestCase, shards []model.Shard) error {
	want := make(map[string]int, len(tests))
	for _, tc := range tests {
		want[tc.ID]++
	}
	seen := make(map[string]int, len(tests))
	total := 0
	for _, s := range shards {
		for _, tc := range s.Tests {
			if _, ok := want[tc.ID]; !ok {
				return fmt.Errorf("shard %d contains unknown test %q", s.Index, tc.ID)
			}
			if prev, dup := seen[tc.ID]; dup {
				return fmt.Errorf("test %q assigned to shards %d and %d", tc.ID, prev, s.Index)
			}
			seen[tc.ID] = s.Index
			total++
		}
	}
	if total != len(tests) {
		return fmt.Errorf("shards hold %d tests, suite has %d", total, len(tests))
	}
	return nil
}

// shardLoad is a heap entry ordered by (load, index).
type shardLoad struct {
	index int
	load  float64
}

type loadHeap []shardLoad

func newLoadHeap(n int) *loadHeap {
	h := make(loadHeap, n)
	for i := range h {
		h[i] = shardLoad{index: i}
	}
	heap.Init(&h)
	return &h
}

// place adds cost to the least loaded shard and returns its index.
func (h *loadHeap) place(cost float64) int {
	top := &(*h)[0]
	top.load += cost
	idx := top.index
	heap.Fix(h, 0)
	return idx
}

func (h loadHeap) Len() int { return len(h) }
func (h loadHeap) Less(i, j int) bool {
	if h[i].load != h[j].load {
		return h[i].load < h[j].load
	}
	return h[i].index < h[j].index
}
func (h loadHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *loadHeap) Push(x any)  { *h = append(*h, x.(shardLoad)) }
func (h *loadHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
