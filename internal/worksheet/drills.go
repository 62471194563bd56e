package worksheet

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
)

// DrillTopic names a family of procedural numeracy questions.
type DrillTopic string

const (
	DrillFractions   DrillTopic = "fractions"
	DrillPowers      DrillTopic = "powers"
	DrillDecimals    DrillTopic = "decimals"
	DrillPercentages DrillTopic = "percentages"
	DrillAlgebra     DrillTopic = "algebra"
	DrillArithmetic  DrillTopic = "arithmetic"
)

var ErrUnknownDrillTopic = errors.New("unknown drill topic")

type generator func(*rand.Rand) (question, answer string)

type drillSet struct {
	Name       string
	Icon       string
	generators []generator
}

// drillOrder is the display order of the drill table.
var drillOrder = []DrillTopic{
	DrillFractions, DrillPowers, DrillDecimals, DrillPercentages, DrillAlgebra, DrillArithmetic,
}

var drillTable = map[DrillTopic]drillSet{
	DrillFractions: {Name: "Fractions", Icon: "➗", generators: []generator{
		fractionOf, fractionAdd, fractionSimplify, fractionMultiply,
		fractionSubtract, fractionDivide, decimalToFraction, mixedToImproper,
	}},
	DrillPowers: {Name: "Powers & Roots", Icon: "²", generators: []generator{
		square, cube, powerOfTwo, decimalSquare, squareRoot, powerOfTen, powerOfOne,
	}},
	DrillDecimals: {Name: "Decimals", Icon: "•", generators: []generator{
		decimalSubtract, decimalTimesWhole, decimalAdd, decimalHalve, decimalTimesDecimal,
	}},
	DrillPercentages: {Name: "Percentages", Icon: "%", generators: []generator{
		percentOf, percentOf, percentOf, percentOf,
	}},
	DrillAlgebra: {Name: "Basic Algebra", Icon: "x", generators: []generator{
		substituteTwoVars, substituteLinear, substituteLinearMinus, substituteHalf, substituteSquare,
	}},
	DrillArithmetic: {Name: "Mental Arithmetic", Icon: "±", generators: []generator{
		timesTable, exactDivision, twoDigitAdd, twoDigitSubtract, timesTable, exactDivision,
	}},
}

// ParseDrillTopic resolves a drill identifier; unknown names are an error.
func ParseDrillTopic(raw string) (DrillTopic, error) {
	t := DrillTopic(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := drillTable[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDrillTopic, raw)
	}
	return t, nil
}

// DrillInfo describes one drill family for menus.
type DrillInfo struct {
	ID    DrillTopic `json:"id"`
	Name  string     `json:"name"`
	Icon  string     `json:"icon"`
	Count int        `json:"drills"`
}

func DrillTopics() []DrillInfo {
	out := make([]DrillInfo, 0, len(drillOrder))
	for _, id := range drillOrder {
		set := drillTable[id]
		out = append(out, DrillInfo{ID: id, Name: set.Name, Icon: set.Icon, Count: len(set.generators)})
	}
	return out
}

// GenerateDrills pools the generators of every selected family, shuffles them and
// runs the first count. count 0 means DefaultDrillCount.
func GenerateDrills(topics []DrillTopic, count int, rng *rand.Rand) (*Worksheet, error) {
	if len(topics) == 0 {
		return nil, ErrNoTopics
	}
	type entry struct {
		set drillSet
		gen generator
	}
	var pool []entry
	for _, t := range topics {
		set, ok := drillTable[t]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownDrillTopic, string(t))
		}
		for _, g := range set.generators {
			pool = append(pool, entry{set: set, gen: g})
		}
	}
	count = ModeDrill.ClampCount(count)

	return newWorksheet(ModeDrill, func(rng *rand.Rand) []Item {
		picked := append([]entry(nil), pool...)
		rng.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
		picked = picked[:min(count, len(picked))]

		items := make([]Item, len(picked))
		for i, e := range picked {
			q, a := e.gen(rng)
			items[i] = Item{TopicName: e.set.Name, TopicIcon: e.set.Icon, Question: q, Answer: a}
		}
		return items
	}, rng), nil
}

// between returns a uniform int in [lo, hi].
func between(rng *rand.Rand, lo, hi int) int {
	return lo + rng.IntN(hi-lo+1)
}

func pick[T any](rng *rand.Rand, xs ...T) T {
	return xs[rng.IntN(len(xs))]
}

func gcd(a, b int) int {
	if a < 0 {
		a = -a
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// fraction formats n/d in lowest terms, or as a whole number.
func fraction(n, d int) string {
	g := gcd(n, d)
	n, d = n/g, d/g
	if d == 1 {
		return strconv.Itoa(n)
	}
	return fmt.Sprintf("%d/%d", n, d)
}

// decimal formats v/10^places without trailing zeros.
func decimal(v, places int) string {
	s := strconv.Itoa(v)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	for len(s) <= places {
		s = "0" + s
	}
	whole, frac := s[:len(s)-places], strings.TrimRight(s[len(s)-places:], "0")
	if frac != "" {
		whole += "." + frac
	}
	if neg {
		whole = "-" + whole
	}
	return whole
}

var superscripts = []rune("⁰¹²³⁴⁵⁶⁷⁸⁹")

func superscript(n int) string {
	var b strings.Builder
	for _, r := range strconv.Itoa(n) {
		b.WriteRune(superscripts[r-'0'])
	}
	return b.String()
}

// properFraction returns a/b with 1 <= a < b.
func properFraction(rng *rand.Rand) (int, int) {
	b := pick(rng, 2, 3, 4, 5, 6, 8, 10, 12)
	return between(rng, 1, b-1), b
}

func fractionOf(rng *rand.Rand) (string, string) {
	a, b := properFraction(rng)
	k := between(rng, 1, 12)
	return fmt.Sprintf("%d/%d of %d =", a, b, b*k), strconv.Itoa(a * k)
}

func fractionAdd(rng *rand.Rand) (string, string) {
	a, b := properFraction(rng)
	c, d := properFraction(rng)
	return fmt.Sprintf("%d/%d + %d/%d =", a, b, c, d), fraction(a*d+c*b, b*d)
}

func fractionSubtract(rng *rand.Rand) (string, string) {
	a, b := properFraction(rng)
	c, d := properFraction(rng)
	if a*d < c*b {
		a, b, c, d = c, d, a, b
	}
	if a*d == c*b {
		c, d = 1, b*2
	}
	return fmt.Sprintf("%d/%d - %d/%d =", a, b, c, d), fraction(a*d-c*b, b*d)
}

func fractionMultiply(rng *rand.Rand) (string, string) {
	a, b := properFraction(rng)
	c, d := properFraction(rng)
	return fmt.Sprintf("%d/%d × %d/%d =", a, b, c, d), fraction(a*c, b*d)
}

func fractionDivide(rng *rand.Rand) (string, string) {
	a, b := properFraction(rng)
	c, d := properFraction(rng)
	return fmt.Sprintf("%d/%d ÷ %d/%d =", a, b, c, d), fraction(a*d, b*c)
}

func fractionSimplify(rng *rand.Rand) (string, string) {
	a, b := properFraction(rng)
	g := gcd(a, b)
	a, b = a/g, b/g
	k := between(rng, 2, 15)
	return fmt.Sprintf("Simplify fully: %d/%d =", a*k, b*k), fraction(a, b)
}

func decimalToFraction(rng *rand.Rand) (string, string) {
	hundredths := pick(rng, 5, 10, 20, 25, 40, 50, 60, 75, 80)
	return fmt.Sprintf("Convert %s to fraction =", decimal(hundredths, 2)), fraction(hundredths, 100)
}

func mixedToImproper(rng *rand.Rand) (string, string) {
	w := between(rng, 1, 5)
	n, d := properFraction(rng)
	g := gcd(n, d)
	n, d = n/g, d/g
	return fmt.Sprintf("%d %d/%d as improper fraction =", w, n, d), fmt.Sprintf("%d/%d", w*d+n, d)
}

func square(rng *rand.Rand) (string, string) {
	n := between(rng, 2, 15)
	return fmt.Sprintf("%d² =", n), strconv.Itoa(n * n)
}

func cube(rng *rand.Rand) (string, string) {
	n := between(rng, 2, 6)
	return fmt.Sprintf("%d³ =", n), strconv.Itoa(n * n * n)
}

func powerOfTwo(rng *rand.Rand) (string, string) {
	n := between(rng, 2, 10)
	return "2" + superscript(n) + " =", strconv.Itoa(1 << n)
}

func powerOfTen(rng *rand.Rand) (string, string) {
	n := between(rng, 2, 6)
	return "10" + superscript(n) + " =", "1" + strings.Repeat("0", n)
}

func powerOfOne(rng *rand.Rand) (string, string) {
	return "1" + superscript(between(rng, 2, 9)) + " =", "1"
}

func decimalSquare(rng *rand.Rand) (string, string) {
	tenths := between(rng, 1, 9)
	return fmt.Sprintf("%s² =", decimal(tenths, 1)), decimal(tenths*tenths, 2)
}

func squareRoot(rng *rand.Rand) (string, string) {
	n := between(rng, 2, 15)
	return fmt.Sprintf("√%d =", n*n), strconv.Itoa(n)
}

func decimalSubtract(rng *rand.Rand) (string, string) {
	a := between(rng, 100, 1500)
	b := between(rng, 10, a-1)
	return fmt.Sprintf("%s - %s =", decimal(a, 2), decimal(b, 2)), decimal(a-b, 2)
}

func decimalAdd(rng *rand.Rand) (string, string) {
	a, b := between(rng, 10, 999), between(rng, 10, 999)
	return fmt.Sprintf("%s + %s =", decimal(a, 2), decimal(b, 2)), decimal(a+b, 2)
}

func decimalTimesWhole(rng *rand.Rand) (string, string) {
	tenths, k := between(rng, 11, 99), between(rng, 2, 9)
	return fmt.Sprintf("%s × %d =", decimal(tenths, 1), k), decimal(tenths*k, 1)
}

func decimalHalve(rng *rand.Rand) (string, string) {
	tenths := 2 * between(rng, 5, 60)
	return fmt.Sprintf("%s ÷ 2 =", decimal(tenths, 1)), decimal(tenths/2, 1)
}

func decimalTimesDecimal(rng *rand.Rand) (string, string) {
	a, b := between(rng, 1, 9), between(rng, 1, 9)
	return fmt.Sprintf("%s × %s =", decimal(a, 1), decimal(b, 1)), decimal(a*b, 2)
}

func percentOf(rng *rand.Rand) (string, string) {
	p := pick(rng, 5, 10, 20, 25, 50, 75)
	step := 100 / gcd(p, 100)
	n := step * between(rng, 1, 200/step+1)
	return fmt.Sprintf("%d%% of %d =", p, n), strconv.Itoa(p * n / 100)
}

func substituteTwoVars(rng *rand.Rand) (string, string) {
	a, b := between(rng, 1, 5), between(rng, 3, 9)
	c := between(rng, 2, 4)
	return fmt.Sprintf("A=%d, B=%d. B²-%dA =", a, b, c), strconv.Itoa(b*b - c*a)
}

func substituteLinear(rng *rand.Rand) (string, string) {
	x, m, k := between(rng, 1, 12), between(rng, 2, 9), between(rng, 1, 20)
	return fmt.Sprintf("x=%d. %dx + %d =", x, m, k), strconv.Itoa(m*x + k)
}

func substituteLinearMinus(rng *rand.Rand) (string, string) {
	y, m, k := between(rng, 1, 12), between(rng, 2, 9), between(rng, 1, 20)
	return fmt.Sprintf("y=%d. %dy - %d =", y, m, k), strconv.Itoa(m*y - k)
}

func substituteHalf(rng *rand.Rand) (string, string) {
	a, k := 2*between(rng, 1, 12), between(rng, 1, 15)
	return fmt.Sprintf("a=%d. a/2 + %d =", a, k), strconv.Itoa(a/2 + k)
}

func substituteSquare(rng *rand.Rand) (string, string) {
	x, k := between(rng, 2, 12), between(rng, 1, 30)
	return fmt.Sprintf("x=%d. x² - %d =", x, k), strconv.Itoa(x*x - k)
}

func timesTable(rng *rand.Rand) (string, string) {
	a, b := between(rng, 11, 25), between(rng, 3, 9)
	return fmt.Sprintf("%d × %d =", a, b), strconv.Itoa(a * b)
}

func exactDivision(rng *rand.Rand) (string, string) {
	d, q := between(rng, 3, 15), between(rng, 3, 15)
	return fmt.Sprintf("%d ÷ %d =", d*q, d), strconv.Itoa(q)
}

func twoDigitAdd(rng *rand.Rand) (string, string) {
	a, b := between(rng, 12, 99), between(rng, 12, 99)
	return fmt.Sprintf("%d + %d =", a, b), strconv.Itoa(a + b)
}

func twoDigitSubtract(rng *rand.Rand) (string, string) {
	a := between(rng, 30, 99)
	b := between(rng, 11, a-1)
	return fmt.Sprintf("%d - %d =", a, b), strconv.Itoa(a - b)
}
