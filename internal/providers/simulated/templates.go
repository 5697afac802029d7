package simulated

import "strings"

// answerTemplates are matched in order against the lower-cased prompt.
// {llm_id} and {prompt} are substituted before length shaping.
var answerTemplates = []struct {
	keyword string
	text    string
}{
	{"hello", "Hello! I'm LLM {llm_id}, ready to assist you with your questions."},
	{"help", "As LLM {llm_id}, I can help you with various tasks including answering questions, providing information, and assisting with problem-solving."},
	{"weather", "LLM {llm_id} reports: The weather today is sunny with a temperature of 72°F. Perfect conditions for outdoor activities!"},
	{"code", "Here's a Python function from LLM {llm_id}:\n\ndef greet(name):\n    return f'Hello, {name}!'"},
}

const (
	defaultTemplate = "This is a response from LLM {llm_id} providing insights on your query: {prompt}"
	fillerTemplate  = " This response from LLM {llm_id} includes additional details to provide comprehensive assistance."

	promptEchoLimit = 50
)

// baseAnswer renders the template selected by the first keyword found in prompt.
func baseAnswer(modelID, prompt string) string {
	lower := strings.ToLower(strings.TrimSpace(prompt))

	tmpl := defaultTemplate
	for _, t := range answerTemplates {
		if strings.Contains(lower, t.keyword) {
			tmpl = t.text
			break
		}
	}

	return strings.NewReplacer(
		"{llm_id}", modelID,
		"{prompt}", echoPrompt(prompt),
	).Replace(tmpl)
}

func echoPrompt(prompt string) string {
	r := []rune(prompt)
	if len(r) <= promptEchoLimit {
		return prompt
	}
	return string(r[:promptEchoLimit]) + "..."
}

// shapeLength pads with the filler sentence or truncates so the result has
// exactly target runes.
func shapeLength(answer, modelID string, target int) string {
	r := []rune(answer)
	if len(r) > target {
		return string(r[:target])
	}
	if len(r) == target {
		return answer
	}

	filler := []rune(strings.ReplaceAll(fillerTemplate, "{llm_id}", modelID))
	out := make([]rune, 0, target)
	out = append(out, r...)
	for len(out) < target {
		n := min(target-len(out), len(filler))
		out = append(out, filler[:n]...)
	}
	return string(out)
}
