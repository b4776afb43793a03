package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsHTML(t *testing.T) {
	testCases := []struct {
		name string
		body string
		want bool
	}{
		{"doctype", "<!DOCTYPE html><html><body>502</body></html>", true},
		{"doctype with leading whitespace", "  \n\t<!doctype html>", true},
		{"html tag", "<html lang=\"en\"><head></head></html>", true},
		{"title only", "Error <title>Bad Gateway</title>", true},
		{"body only", "<body>nginx</body>", true},
		{"uppercase body", "<BODY>oops</BODY>", true},
		{"json object", `{"status":"ok","uptime":12}`, false},
		{"json array", `[{"id":"1"},{"id":"2"}]`, false},
		{"empty", "", false},
		{"plain text", "Service Unavailable", false},
		{"json with body substring", `{"html":"<body>hi</body>"}`, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsHTML(tc.body))
		})
	}
}

func TestIsHTMLDoctypePrefixAlwaysTrue(t *testing.T) {
	suffixes := []string{"", "x", "{}", `{"a":1}`, "<html>", "garbage\x00"}
	for _, suffix := range suffixes {
		assert.True(t, IsHTML("<!DOCTYPE"+suffix), suffix)
		assert.True(t, IsHTML("   <!doctype "+suffix), suffix)
	}
}

func TestIsHTMLMinifiedJSONAlwaysFalse(t *testing.T) {
	bodies := []string{
		`{}`,
		`{"success":true,"data":{"posts":[]}}`,
		`{"error":"Not found","code":404}`,
		`{"nested":{"deep":{"value":[1,2,3]}}}`,
	}
	for _, body := range bodies {
		assert.False(t, IsHTML(body), body)
	}
}
