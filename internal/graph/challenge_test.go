package graph

import "testing"

func TestParseBearerChallenge(t *testing.T) {
	cases := []struct {
		name   string
		header string
		want   string
	}{
		{
			name:   "graph invalid token",
			header: `Bearer realm="", authorization_uri="https://login.microsoftonline.com/common/oauth2/authorize", error="invalid_token"`,
			want:   "invalid_token",
		},
		{
			name:   "no error parameter",
			header: `Bearer realm="https://login.microsoftonline.com"`,
			want:   "",
		},
		{
			name:   "case-insensitive scheme",
			header: `bearer error="insufficient_claims"`,
			want:   "insufficient_claims",
		},
		{
			name:   "non-bearer scheme",
			header: `Basic realm="legacy"`,
			want:   "",
		},
		{
			name:   "empty header",
			header: "",
			want:   "",
		},
		{
			name:   "scheme without parameters",
			header: "Bearer",
			want:   "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := parseBearerChallenge(tc.header); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestAPIError_ChallengeClassification(t *testing.T) {
	// A 403 with an invalid_token challenge still counts as an
	// authentication failure even without a recognized OData code.
	err := &APIError{StatusCode: 403, ChallengeError: "invalid_token"}
	if !err.AuthenticationError() {
		t.Error("expected an invalid_token challenge to classify as authentication failure")
	}

	other := &APIError{StatusCode: 403, ChallengeError: "insufficient_scope"}
	if other.AuthenticationError() {
		t.Error("insufficient_scope must not classify as authentication failure")
	}
}
