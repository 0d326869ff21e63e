package query

import (
	"fmt"
	"strings"

	"github.com/poiesic/docrag/core"
)

const answerPromptTemplate = `You are an assistant answering questions about government financial documents.

Answer the question using ONLY the numbered sources below. Cite the sources you use by number, for example [1] or [2][3].
If the sources do not contain the answer, say that the documents do not contain enough information. Do not guess.
Quote dollar amounts, fiscal years and bill numbers exactly as they appear in the sources.

Sources:
%s
Question: %s

Answer:`

// buildPrompt renders the grounded prompt for question over matches.
// Sources are numbered from 1 in match order.
func buildPrompt(question string, matches []core.Match) string {
	var sb strings.Builder
	for i, match := range matches {
		fmt.Fprintf(&sb, "[%d]", i+1)
		if name := sourceName(match.Record); name != "" {
			fmt.Fprintf(&sb, " (%s)", name)
		}
		sb.WriteString("\n")
		sb.WriteString(sanitize(match.Record.Text))
		sb.WriteString("\n\n")
	}
	return fmt.Sprintf(answerPromptTemplate, sb.String(), sanitize(question))
}

func sourceName(record *core.Record) string {
	if name := record.Metadata[core.MetaFilename]; name != "" {
		return name
	}
	return record.Metadata[core.MetaSource]
}

// sanitize strips NUL bytes, which some model servers reject.
func sanitize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}
