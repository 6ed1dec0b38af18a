package flow

import "testing"

func TestMatchOption(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"1️⃣", "1"},
		{"OPCION 1", "1"},
		{"ELIJO 1", "1"},
		{"UNO", "1"},
		{"PRIMERO", "1"},
		{"1", "1"},
		{"2", "2"},
		{"DOS", "2"},
		{"SEGUNDO", "2"},
		{"3️⃣", "3"},
		{"TRES", "3"},
		{"QUIERO LA OPCION 3", "3"},
	}

	for _, tc := range cases {
		got, ok := MatchOption(Normalize(tc.input))
		if !ok || got != tc.want {
			t.Fatalf("MatchOption(%q) = %q ok=%v, want %q", tc.input, got, ok, tc.want)
		}
	}
}

func TestMatchOption_NoMatch(t *testing.T) {
	for _, input := range []string{"", "CUATRO", "4", "OPCION", "HOLA"} {
		if got, ok := MatchOption(input); ok {
			t.Fatalf("MatchOption(%q) unexpectedly matched %q", input, got)
		}
	}
}

func TestMatchService(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"acompañamiento legal", "legal"},
		{"LEGAL", "legal"},
		{"Diseño Web", "web"},
		{"web", "web"},
		{"marketing digital", "marketing"},
		{"MARKETING", "marketing"},
		{"identidad de marca", "branding"},
		{"branding", "branding"},
	}

	for _, tc := range cases {
		got, ok := MatchService(Normalize(tc.input))
		if !ok || got != tc.want {
			t.Fatalf("MatchService(%q) = %q ok=%v, want %q", tc.input, got, ok, tc.want)
		}
	}

	if _, ok := MatchService("CONTABILIDAD"); ok {
		t.Fatalf("unexpected match for unknown service")
	}
}

func TestPitchFor_CoversEveryServiceKey(t *testing.T) {
	for phrase, key := range serviceKeys {
		pitch, ok := PitchFor(key)
		if !ok {
			t.Fatalf("missing pitch for service %q (phrase %q)", key, phrase)
		}
		if pitch.Title == "" || pitch.Body == "" {
			t.Fatalf("incomplete pitch for service %q", key)
		}
	}
}
