// SPDX-License-Identifier: GPL-3.0-or-later

// Package report renders parsed mails and their verdicts as fixed-width
// console text. Rendering is pure, identical inputs yield identical bytes.
package report

import (
	"fmt"
	"strings"

	"github.com/mailwatch/mailwatch/domain"
)

const width = 80

// RenderMessage renders the header block and body of one mail. The
// classification (or error) block follows separately once the verdict is in.
func RenderMessage(m *domain.ParsedMessage) string {
	b := &strings.Builder{}
	b.WriteString(rule('=') + "\n")
	b.WriteString("NEW EMAIL\n")
	b.WriteString(rule('-') + "\n")
	fmt.Fprintf(b, "From:    %s\n", m.From)
	fmt.Fprintf(b, "To:      %s\n", m.To)
	fmt.Fprintf(b, "Subject: %s\n", m.Subject)
	fmt.Fprintf(b, "Date:    %s\n", m.Date)
	b.WriteString(rule('-') + "\n")
	b.WriteString(m.Body + "\n")

	return b.String()
}

// RenderClassification renders the verdict block that closes a mail report.
func RenderClassification(c *domain.Classification) string {
	b := &strings.Builder{}
	b.WriteString("\n")
	b.WriteString(banner(fmt.Sprintf("VERDICT: %s (confidence %d/100 - %s)", heading(c.Label), c.Confidence, Band(c.Confidence))))
	fmt.Fprintf(b, "Reasoning: %s\n", c.Reasoning)
	writeIndicators(b, "System indicators:", c.SystemIndicators)
	writeIndicators(b, "Human indicators:", c.HumanIndicators)
	b.WriteString("\n" + rule('=') + "\n")

	return b.String()
}

// RenderClassificationError closes a mail report whose classification
// failed. It takes the place of the verdict block.
func RenderClassificationError(err error) string {
	b := &strings.Builder{}
	b.WriteString("\n")
	b.WriteString(banner("CLASSIFICATION UNAVAILABLE"))
	fmt.Fprintf(b, "Error: %s\n", err)
	b.WriteString("\n" + rule('=') + "\n")

	return b.String()
}

// Band maps a confidence value to its display band. Display only, the
// stored confidence stays numeric.
func Band(confidence int) string {
	switch {
	case confidence >= 80:
		return "High"
	case confidence >= 60:
		return "Medium"
	}

	return "Low"
}

func heading(label domain.Label) string {
	return strings.ToUpper(strings.ReplaceAll(string(label), "-", " "))
}

func writeIndicators(b *strings.Builder, title string, indicators []string) {
	if len(indicators) == 0 {
		return
	}

	b.WriteString("\n" + title + "\n")
	for _, indicator := range indicators {
		fmt.Fprintf(b, "  - %s\n", indicator)
	}
}

func banner(text string) string {
	edge := "+" + strings.Repeat("-", width-2) + "+\n"
	b := &strings.Builder{}
	b.WriteString(edge)
	for _, line := range wrap(text, width-4) {
		fmt.Fprintf(b, "| %-*s |\n", width-4, line)
	}
	b.WriteString(edge)

	return b.String()
}

// wrap breaks text into lines of at most limit runes, splitting at spaces
// where one is in reach. The box border stays intact for any text length.
func wrap(text string, limit int) []string {
	runes := []rune(text)

	lines := []string{}
	for len(runes) > limit {
		cut := limit
		for i := limit; i > 0; i-- {
			if runes[i] == ' ' {
				cut = i
				break
			}
		}

		lines = append(lines, string(runes[:cut]))
		runes = runes[cut:]
		if runes[0] == ' ' {
			runes = runes[1:]
		}
	}

	return append(lines, string(runes))
}

func rule(c byte) string {
	return strings.Repeat(string(c), width)
}
