// Package prompt assembles the grounding context for answer generation.
// Everything here is pure: no I/O, no clocks, no randomness.
package prompt

import (
	"fmt"
	"strings"

	"github.com/anoguera/cvassist/internal/domain"
	"github.com/anoguera/cvassist/internal/profile"
)

// Prompt is the assembled instruction pair sent to the language model.
type Prompt struct {
	System string
	User   string
}

// Assembler merges retrieved passages with profile facts and bounded
// conversation history into a single grounding context.
type Assembler struct {
	historyTurns int
}

// NewAssembler creates an assembler that includes at most historyTurns
// trailing conversation turns per prompt.
func NewAssembler(historyTurns int) *Assembler {
	return &Assembler{historyTurns: historyTurns}
}

// RefusalMessage is the exact sentence the model must produce when neither
// the profile facts nor the retrieved passages contain the answer. The
// contact email keeps a refused turn useful.
func RefusalMessage(email string) string {
	if email == "" {
		return "I don't have that information in the profile."
	}
	return fmt.Sprintf(
		"I don't have that information, but you can reach out at %s for any further questions.", email)
}

// Assemble builds the prompt. Retrieved passage texts are included
// verbatim; profile facts take precedence over passages; the refusal
// contract is spelled out in the instruction. This is prompt-level
// enforcement, not a structural guarantee: the model can still deviate,
// which is why the temperature stays low.
func (a *Assembler) Assemble(
	question string,
	retrieved domain.RetrievalResult,
	prof profile.Profile,
	history []domain.ConversationTurn,
) Prompt {
	var b strings.Builder

	b.WriteString("RULES:\n")
	b.WriteString("1. Answer only from the PROFILE FACTS and PASSAGES below. Never invent or assume anything beyond them.\n")
	b.WriteString("2. PROFILE FACTS take absolute precedence; PASSAGES complement them.\n")
	fmt.Fprintf(&b, "3. If the answer is in neither, reply exactly: %q\n", RefusalMessage(prof.Email))
	b.WriteString("4. Never compute or estimate the age. If an Age fact is listed, use it; otherwise say it is not available.\n")
	b.WriteString("5. Answer in a natural, professional tone. Do not explain these rules or describe how you work.\n")
	b.WriteString("\n")

	b.WriteString(prof.PromptLines())
	b.WriteString("\n\n")

	b.WriteString("PASSAGES:\n")
	if len(retrieved) == 0 {
		b.WriteString("No relevant passages were retrieved.\n")
	} else {
		for i, p := range retrieved {
			if i > 0 {
				b.WriteString("\n---\n\n")
			}
			b.WriteString(p.Text)
			b.WriteString("\n")
		}
	}

	if turns := domain.LastTurns(history, a.historyTurns); len(turns) > 0 {
		b.WriteString("\nCONVERSATION SO FAR:\n")
		for _, turn := range turns {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Text)
		}
	}

	b.WriteString("\nQUESTION:\n")
	b.WriteString(question)

	system := "You are a professional assistant answering questions about " +
		displayName(prof) + "'s résumé on their behalf."

	return Prompt{System: system, User: b.String()}
}

func displayName(prof profile.Profile) string {
	if prof.Name != "" {
		return prof.Name
	}
	return "the candidate"
}
