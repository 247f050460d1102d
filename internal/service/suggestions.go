package service

var suggestionPool = [...]string{
	"What is the architectural style of this landmark?",
	"When was this landmark designated?",
	"Who was the architect of this landmark?",
	"What are some similar landmarks in New York City?",
	"What is the historical significance of this landmark?",
}

const suggestionCount = 3

// SuggestedQueries returns the first three follow-up questions of a fixed pool.
// The query and report are accepted for interface stability but not consulted.
func SuggestedQueries(query, report string) []string {
	out := make([]string, suggestionCount)
	copy(out, suggestionPool[:suggestionCount])
	return out
}
