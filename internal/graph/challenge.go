package graph

import (
	"regexp"
	"strings"
)

// challengeParamRegex extracts key="value" pairs from a Bearer challenge.
var challengeParamRegex = regexp.MustCompile(`(\w+)="([^"]*)"`)

// parseBearerChallenge parses a WWW-Authenticate header value and returns
// the challenge's error code. Graph attaches a Bearer challenge such as
//
//	Bearer realm="", authorization_uri="https://login.microsoftonline.com/common/oauth2/authorize", error="invalid_token"
//
// to rejected requests. The empty string is returned when the header is
// absent, not a Bearer challenge, or carries no error parameter.
func parseBearerChallenge(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if !strings.EqualFold(parts[0], "Bearer") || len(parts) < 2 {
		return ""
	}

	for _, match := range challengeParamRegex.FindAllStringSubmatch(parts[1], -1) {
		if strings.EqualFold(match[1], "error") {
			return match[2]
		}
	}
	return ""
}
