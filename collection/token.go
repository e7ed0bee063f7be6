package collection

import "regexp"

// The download API is only reachable with a token that the upstream web app
// embeds in its bundled JavaScript. The capture stops at the first quote,
// backtick or newline; an empty capture is a valid token.
var tokenPattern = regexp.MustCompile("token=([^\"`\n]*)")

func extractToken(script string) (string, error) {
	matches := tokenPattern.FindStringSubmatch(script)
	if matches == nil {
		return "", ErrTokenNotFound
	}

	return matches[1], nil
}
