package otlpmetrics

import "testing"

func TestUnitWordToUCUM(t *testing.T) {
	cases := []struct {
		word      string
		isCounter bool
		want      string
	}{
		{"seconds", true, "s"},
		{"meters_per_second", false, "m/s"},
		{"percent", false, "%"},
		{"requests_total", true, "{requests}"},
		{"bytes", false, "By"},
	}

	for _, c := range cases {
		got := UnitWordToUCUM(c.word, c.isCounter)
		if got != c.want {
			t.Errorf("UnitWordToUCUM(%q, %v) = %q, want %q", c.word, c.isCounter, got, c.want)
		}
	}
}

func TestWordUnitFromName(t *testing.T) {
	cases := []struct {
		name      string
		isCounter bool
		want      string
	}{
		{"http_request_duration_seconds", false, "seconds"},
		{"http_requests_total", true, "requests_total"},
		{"queue_depth", false, ""},
	}

	for _, c := range cases {
		got := wordUnitFromName(c.name, c.isCounter)
		if got != c.want {
			t.Errorf("wordUnitFromName(%q, %v) = %q, want %q", c.name, c.isCounter, got, c.want)
		}
	}
}

func TestSanitizeName(t *testing.T) {
	if got := sanitizeName("http_request_duration_seconds", "seconds"); got != "http_request_duration_" {
		t.Errorf("sanitizeName = %q", got)
	}
	if got := sanitizeName("queue_depth", ""); got != "queue_depth" {
		t.Errorf("sanitizeName with empty unit = %q", got)
	}
}
