package utils

// EstimateTokens estimates the token count of s as len(s)/4.
// This is a deliberate approximation (1 token ≈ 4 characters of English
// text). Call sites only need a budget estimate; replace this function,
// not its callers, if an exact tokenizer is ever wired in.
func EstimateTokens(s string) int {
	return len(s) / 4
}

// Truncate returns s truncated to maxLen characters, with "..." appended
// if truncated. If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
