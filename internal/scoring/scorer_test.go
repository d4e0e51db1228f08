package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucketScore(t *testing.T) {
	tests := []struct {
		name     string
		count    int
		expected int
	}{
		{"zero results", 0, 0},
		{"one result", 1, 2},
		{"two results", 2, 2},
		{"three results", 3, 3},
		{"five results", 5, 3},
		{"six results", 6, 4},
		{"eight results", 8, 4},
		{"nine results", 9, 5},
		{"many results", 40, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, bucketScore(tt.count))
		})
	}
}

func TestScoreTopLevelDefault(t *testing.T) {
	ps := NewPatternScorer()
	assert.Equal(t, DefaultTopLevelScore, ps.Score("a"))
	assert.Equal(t, DefaultTopLevelScore, ps.Score("z"))
}

func TestScoreTopLevelObservedOverrides(t *testing.T) {
	ps := NewPatternScorer()
	ps.Update("q", 0)
	assert.Equal(t, 0, ps.Score("q"), "an observed score wins even at length 1")
}

func TestScoreObservedVerbatim(t *testing.T) {
	ps := NewPatternScorer()
	ps.Update("ma", 7)
	assert.Equal(t, 4, ps.Score("ma"))
}

func TestScoreInheritedFromParentWithDecay(t *testing.T) {
	ps := NewPatternScorer()
	ps.Update("ma", 9) // observed 5
	assert.Equal(t, 4, ps.Score("mar"), "child inherits parent score minus one")

	ps.Update("xy", 0) // observed 0
	assert.Equal(t, 0, ps.Score("xyz"), "inheritance never goes below zero")
}

func TestScoreLengthDefault(t *testing.T) {
	ps := NewPatternScorer()
	// no observation anywhere on the ancestry
	assert.Equal(t, 2, ps.Score("ab"))
	assert.Equal(t, 1, ps.Score("abc"))
	assert.Equal(t, 1, ps.Score("abcd"))
	assert.Equal(t, 1, ps.Score("abcdef"))
}

func TestUpdateNudgesObservedParentUp(t *testing.T) {
	ps := NewPatternScorer()
	ps.Update("da", 1) // parent observed at 2
	ps.Update("dan", 4)
	s, ok := ps.Observed("da")
	assert.True(t, ok)
	assert.Equal(t, 3, s, "productive child nudges parent up by one")
}

func TestUpdateNudgeCapsAtMax(t *testing.T) {
	ps := NewPatternScorer()
	ps.Update("jo", 20) // observed 5
	ps.Update("joh", 3)
	s, _ := ps.Observed("jo")
	assert.Equal(t, MaxScore, s)
}

func TestUpdateDoesNotNudgeUnobservedParent(t *testing.T) {
	ps := NewPatternScorer()
	ps.Update("ann", 5)
	_, ok := ps.Observed("an")
	assert.False(t, ok, "a child must not manufacture a parent observation")
}

func TestUpdateEmptyChildDoesNotNudge(t *testing.T) {
	ps := NewPatternScorer()
	ps.Update("be", 4) // observed 3
	ps.Update("bex", 0)
	s, _ := ps.Observed("be")
	assert.Equal(t, 3, s, "an empty child must not move the parent")
}

func TestScorerReset(t *testing.T) {
	ps := NewPatternScorer()
	ps.Update("ma", 9)
	ps.Reset()
	_, ok := ps.Observed("ma")
	assert.False(t, ok)
	assert.Equal(t, DefaultTopLevelScore, ps.Score("m"))
}

func TestFlatStrategy(t *testing.T) {
	f := Flat(3)
	assert.Equal(t, 3, f.Score("a"))
	assert.Equal(t, 3, f.Score("abcdef"))
}
