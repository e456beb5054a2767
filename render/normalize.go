package render

import "strings"

const fence = "```"

// NormalizeCode strips a surrounding markdown code fence from a payload.
//
// If the trimmed payload starts with a fence, its first line (the opening
// fence with any language tag) is dropped, and a trailing fence is cut if the
// remainder ends with one. The result is trimmed again. This is a heuristic:
// fences must sit on their own lines, balance is not checked, and backticks
// anywhere else in the body are left alone.
func NormalizeCode(code string) string {
	code = strings.TrimSpace(code)
	if strings.HasPrefix(code, fence) {
		if _, rest, ok := strings.Cut(code, "\n"); ok {
			code = rest
		}
		if strings.HasSuffix(code, fence) {
			code = code[:strings.LastIndex(code, fence)]
		}
	}
	return strings.TrimSpace(code)
}
