package grading

import "strings"

const fence = "```"

// StripCodeFences removes a wrapping ``` fence (with an optional language
// tag such as html) that the service sometimes puts around its output.
// Text without a complete wrapping fence is returned trimmed.
func StripCodeFences(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, fence) {
		return t
	}

	nl := strings.IndexByte(t, '\n')
	if nl < 0 {
		return t
	}
	if tag := strings.TrimSpace(t[len(fence):nl]); strings.ContainsAny(tag, " `") {
		return t
	}

	body := strings.TrimRight(t[nl+1:], " \t\r\n")
	if !strings.HasSuffix(body, fence) {
		return t
	}
	return strings.TrimSpace(strings.TrimSuffix(body, fence))
}
