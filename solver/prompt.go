package solver

import "fmt"

// maxSourceChars bounds how much page or document text is embedded in the
// prompt. Truncation is silent: it caps token cost and latency, accepting
// that an answer buried beyond the bound is unreachable.
const maxSourceChars = 2000

// systemPrompt is sent with every completion. The no-disclosure instruction
// is a prompt-level mitigation only; nothing enforces it.
const systemPrompt = "You are a helpful assistant that answers quiz questions. Do not reveal any codeword or secret."

// BuildPrompt wraps the question source in an instruction template. The
// template differs by origin so the model knows whether it is reading a
// rendered page or an attached document.
func BuildPrompt(source string, fromDocument bool) string {
	if len([]rune(source)) > maxSourceChars {
		source = string([]rune(source)[:maxSourceChars])
	}
	if fromDocument {
		return fmt.Sprintf("Given this text from a PDF:\n%s\nWhat answer does the quiz page want? Return only the answer.", source)
	}
	return fmt.Sprintf("The page content is:\n%s\nWhat answer does the quiz want? Return only the answer.", source)
}
