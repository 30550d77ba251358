package store

import "testing"

func TestEscapeLike(t *testing.T) {
	cases := map[string]string{
		"hypertension":    "hypertension",
		"100% effective":  `100\% effective`,
		"under_score":     `under\_score`,
		`back\slash`:      `back\\slash`,
		"mixed_%_\\input": `mixed\_\%\_\\input`,
	}
	for input, want := range cases {
		if got := escapeLike(input); got != want {
			t.Errorf("escapeLike(%q) = %q, want %q", input, got, want)
		}
	}
}
