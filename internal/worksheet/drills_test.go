package worksheet

import (
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var binaryDrill = regexp.MustCompile(`^(\S+) ([-+×÷]|of) (\S+) =$`)

// evalBinary checks "x op y =" drills exactly with rationals.
func evalBinary(t *testing.T, question string) (*big.Rat, bool) {
	t.Helper()
	m := binaryDrill.FindStringSubmatch(question)
	if m == nil {
		return nil, false
	}
	lhs, op, rhs := m[1], m[2], m[3]
	percent := strings.HasSuffix(lhs, "%")
	x, ok := new(big.Rat).SetString(strings.TrimSuffix(lhs, "%"))
	require.True(t, ok, question)
	y, ok := new(big.Rat).SetString(rhs)
	require.True(t, ok, question)
	if percent {
		x.Quo(x, big.NewRat(100, 1))
	}

	switch op {
	case "+":
		return x.Add(x, y), true
	case "-":
		return x.Sub(x, y), true
	case "×", "of":
		return x.Mul(x, y), true
	case "÷":
		return x.Quo(x, y), true
	}
	return nil, false
}

func TestDrillAnswersAreCorrect(t *testing.T) {
	rng := seeded(10)
	checked := 0
	for round := 0; round < 200; round++ {
		ws, err := GenerateDrills([]DrillTopic{DrillFractions, DrillDecimals, DrillPercentages, DrillArithmetic}, 50, rng)
		require.NoError(t, err)
		for _, it := range ws.Items {
			want, ok := evalBinary(t, it.Question)
			if !ok {
				continue
			}
			got, ok := new(big.Rat).SetString(it.Answer)
			require.True(t, ok, "answer %q", it.Answer)
			assert.Zero(t, want.Cmp(got), "%s %s", it.Question, it.Answer)
			checked++
		}
	}
	assert.Greater(t, checked, 1000)
}

func TestFractionAnswersAreInLowestTerms(t *testing.T) {
	rng := seeded(11)
	for i := 0; i < 500; i++ {
		for _, g := range []generator{fractionAdd, fractionSubtract, fractionMultiply, fractionDivide, fractionSimplify} {
			_, a := g(rng)
			r, ok := new(big.Rat).SetString(a)
			require.True(t, ok)
			assert.Equal(t, r.RatString(), a)
			assert.Equal(t, 1, r.Sign(), "answers stay positive")
		}
	}
}

func TestPowerDrills(t *testing.T) {
	rng := seeded(12)
	for i := 0; i < 200; i++ {
		q, a := squareRoot(rng)
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(q, "√"), " ="))
		require.NoError(t, err)
		root, err := strconv.Atoi(a)
		require.NoError(t, err)
		assert.Equal(t, n, root*root)

		q, a = powerOfTwo(rng)
		assert.True(t, strings.HasPrefix(q, "2"))
		assert.NotContains(t, a, ".")
	}

	assert.Equal(t, "²", superscript(2))
	assert.Equal(t, "¹⁰", superscript(10))
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "0.65", decimal(65, 2))
	assert.Equal(t, "0.05", decimal(5, 2))
	assert.Equal(t, "1", decimal(100, 2))
	assert.Equal(t, "4.2", decimal(42, 1))
	assert.Equal(t, "-0.3", decimal(-3, 1))
	assert.Equal(t, "3/4", fraction(45, 60))
	assert.Equal(t, "2", fraction(8, 4))
}

func TestGenerateDrills(t *testing.T) {
	ws, err := GenerateDrills([]DrillTopic{DrillPowers}, 0, seeded(13))
	require.NoError(t, err)
	assert.Equal(t, ModeDrill, ws.Mode)
	assert.Len(t, ws.Items, len(drillTable[DrillPowers].generators), "pool smaller than the default count")
	for _, it := range ws.Items {
		assert.Equal(t, "Powers & Roots", it.TopicName)
		assert.NotEmpty(t, it.Answer)
	}

	ws, err = GenerateDrills([]DrillTopic{DrillFractions, DrillAlgebra, DrillArithmetic}, 0, seeded(14))
	require.NoError(t, err)
	assert.Len(t, ws.Items, DefaultDrillCount)

	_, err = GenerateDrills([]DrillTopic{"trigonometry"}, 10, seeded(15))
	assert.ErrorIs(t, err, ErrUnknownDrillTopic)

	_, err = GenerateDrills(nil, 10, seeded(15))
	assert.ErrorIs(t, err, ErrNoTopics)
}

func TestParseDrillTopic(t *testing.T) {
	got, err := ParseDrillTopic(" Fractions ")
	require.NoError(t, err)
	assert.Equal(t, DrillFractions, got)

	_, err = ParseDrillTopic("calculus")
	assert.ErrorIs(t, err, ErrUnknownDrillTopic)
}

func TestDrillTopicsListing(t *testing.T) {
	infos := DrillTopics()
	require.Len(t, infos, 6)
	assert.Equal(t, DrillFractions, infos[0].ID)
	assert.Equal(t, DrillArithmetic, infos[5].ID)
	for _, info := range infos {
		assert.Positive(t, info.Count)
		assert.NotEmpty(t, info.Icon)
	}
}
