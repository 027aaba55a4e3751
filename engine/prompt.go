package engine

import (
	"fmt"
	"strings"

	"github.com/isamwata/llmcouncil/ranking"
)

// renderEvaluationPrompt builds one round's peer-evaluation prompt. The
// responses appear under that round's presentation order with their shuffled
// labels; the closing instruction block is the wire contract the parser
// depends on, so the sentinel line and item format must stay bit-exact.
func renderEvaluationPrompt(query string, criterion Criterion, presentation []ranking.Label, textByLabel map[ranking.Label]string) string {
	var sb strings.Builder

	sb.WriteString("You are evaluating anonymized responses to a query. You did not write any of them as far as you know; judge them on their merits alone.\n\n")
	sb.WriteString("Query:\n")
	sb.WriteString(query)
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "Evaluation criterion: %s (%s)\n%s\n\n", criterion.Name, criterion.Focus, criterion.Description)

	sb.WriteString("Responses:\n\n")
	for i, canonical := range presentation {
		fmt.Fprintf(&sb, "%s:\n%s\n\n", ranking.LabelFor(i), textByLabel[canonical])
	}

	sb.WriteString("Rank every response from best to worst under this criterion. You may explain your reasoning first.\n")
	sb.WriteString("Your reply must end with the literal line:\n")
	sb.WriteString(ranking.Sentinel + "\n")
	sb.WriteString("followed by a numbered list, one ranked item per line, in the exact form \"<n>. Response <Letter>\" with no additional text on that line.\n")

	return sb.String()
}

// renderChairPrompt builds the Stage-3 synthesis prompt. Both stages go in
// verbatim — the full response set under real backend names (anonymity is a
// Stage-2-only property) and every round's raw evaluations.
func renderChairPrompt(query, supportingContext string, responses []ModelResponse, rounds []BootstrapRound) string {
	var sb strings.Builder

	sb.WriteString("You are the chair of a council of models. Several backends answered a query independently, then peer-ranked each other's anonymized answers. Synthesize one final answer from the full deliberation record below. Resolve disagreements on the merits; do not simply concatenate.\n\n")

	if supportingContext != "" {
		sb.WriteString("Retrieved context:\n")
		sb.WriteString(supportingContext)
		sb.WriteString("\n\n")
	}

	sb.WriteString("Query:\n")
	sb.WriteString(query)
	sb.WriteString("\n\n")

	sb.WriteString("Stage 1 — independent responses:\n\n")
	for _, r := range responses {
		fmt.Fprintf(&sb, "[%s]\n%s\n\n", r.BackendID, r.Text)
	}

	if len(rounds) > 0 {
		sb.WriteString("Stage 2 — peer evaluations:\n\n")
		for _, round := range rounds {
			fmt.Fprintf(&sb, "Round %d (criterion: %s):\n", round.Index+1, round.Criterion.Name)
			for _, evaluator := range round.evaluators() {
				fmt.Fprintf(&sb, "Evaluation by %s:\n%s\n\n", evaluator, round.RawReplies[evaluator])
			}
		}
	}

	sb.WriteString("Write the final synthesized answer now.\n")
	return sb.String()
}

// renderCorrectiveNote produces the retry note appended when a synthesis
// candidate is missing required structural markers.
func renderCorrectiveNote(missing []string) string {
	var sb strings.Builder
	sb.WriteString("Your answer is incomplete. It must contain all required section markers. The following are missing:\n")
	for _, m := range missing {
		sb.WriteString("- " + m + "\n")
	}
	sb.WriteString("Rewrite the complete answer, keeping what was already correct and adding the missing sections.\n")
	return sb.String()
}

// renderGapFillPrompt produces the narrowly scoped final call used after the
// retry budget is exhausted: produce only the missing sections, nothing else.
func renderGapFillPrompt(query string, missing []string) string {
	var sb strings.Builder
	sb.WriteString("A synthesized answer to the query below is missing some required sections. Produce ONLY the missing sections listed here, each introduced by its marker, and no other text:\n")
	for _, m := range missing {
		sb.WriteString("- " + m + "\n")
	}
	sb.WriteString("\nQuery:\n")
	sb.WriteString(query)
	sb.WriteString("\n")
	return sb.String()
}
