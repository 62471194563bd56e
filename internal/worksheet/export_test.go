package worksheet

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	items := []Item{
		{TopicName: "Fractions", Question: "What is 1/2 + 1/4?", Answer: "3/4", Explanation: "Use a common denominator, 4"},
		{TopicName: "Ratio", Question: `Share "£20" in 1:3`, Answer: "£5, £15"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, items))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"#", "Topic", "Question", "Answer", "Explanation"}, rows[0])
	assert.Equal(t, []string{"1", "Fractions", "What is 1/2 + 1/4?", "3/4", "Use a common denominator, 4"}, rows[1])
	assert.Equal(t, []string{"2", "Ratio", `Share "£20" in 1:3`, "£5, £15", ""}, rows[2])
}

func TestRender(t *testing.T) {
	ws := &Worksheet{
		Mode: ModeStarter,
		Items: []Item{
			{TopicName: "Angles", TopicIcon: "∠", Question: "Angles on a line sum to?", Answer: "180°"},
			{TopicName: "Angles", TopicIcon: "∠", Question: "Angles in a triangle sum to?", Answer: "180°", Explanation: "Always."},
		},
		revealed: make([]bool, 2),
	}
	ws.Toggle(1)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, ws, false))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Starter (2 questions)\n====================="))
	assert.Contains(t, out, " 1. [∠ Angles] Angles on a line sum to?")
	assert.Equal(t, 1, strings.Count(out, "Answer:"), "only the revealed item shows its answer")
	assert.Contains(t, out, "Always.")

	buf.Reset()
	require.NoError(t, Render(&buf, ws, true))
	assert.Equal(t, 2, strings.Count(buf.String(), "Answer: 180°"))
}
