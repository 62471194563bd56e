package worksheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var csvHeader = []string{"#", "Topic", "Question", "Answer", "Explanation"}

// WriteCSV exports items with a numbered header row.
func WriteCSV(w io.Writer, items []Item) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for i, it := range items {
		row := []string{strconv.Itoa(i + 1), it.TopicName, it.Question, it.Answer, it.Explanation}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Render writes a printable plain-text sheet. Answers appear for every item when
// showAnswers is set, otherwise only for items revealed on ws.
func Render(w io.Writer, ws *Worksheet, showAnswers bool) error {
	title := "Worksheet"
	switch ws.Mode {
	case ModeStarter:
		title = "Starter"
	case ModeDrill:
		title = "Numeracy Drills"
	}
	header := fmt.Sprintf("%s (%d questions)", title, len(ws.Items))
	if _, err := fmt.Fprintf(w, "%s\n%s\n", header, strings.Repeat("=", len(header))); err != nil {
		return err
	}

	for i, it := range ws.Items {
		if _, err := fmt.Fprintf(w, "\n%2d. [%s %s] %s\n", i+1, it.TopicIcon, it.TopicName, it.Question); err != nil {
			return err
		}
		if !showAnswers && !ws.Revealed(i) {
			continue
		}
		if _, err := fmt.Fprintf(w, "    Answer: %s\n", it.Answer); err != nil {
			return err
		}
		if it.Explanation != "" {
			if _, err := fmt.Fprintf(w, "    %s\n", it.Explanation); err != nil {
				return err
			}
		}
	}
	return nil
}
