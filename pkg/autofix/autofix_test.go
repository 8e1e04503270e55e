package autofix

import "testing"

func TestFixer_DefaultRules(t *testing.T) {
	f, err := NewFixer(nil)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"collapse_spaces", "Lungs  are   clear.", "Lungs are clear."},
		{"space_before_punct", "No effusion .", "No effusion."},
		{"doubled_period", "Normal study..", "Normal study."},
		{"trailing_whitespace", "Normal.  ", "Normal."},
	}
	for _, c := range cases {
		got, changed := f.Apply(c.in)
		if got != c.want {
			t.Errorf("%s: Apply(%q) = %q, want %q", c.name, c.in, got, c.want)
		}
		if changed == 0 {
			t.Errorf("%s: expected at least one rule to report a change", c.name)
		}
	}
}

func TestFixer_CleanTextIsUntouched(t *testing.T) {
	f, _ := NewFixer(nil)
	in := "FINDINGS: Lungs are clear.\n\nIMPRESSION: Normal."
	got, changed := f.Apply(in)
	if got != in || changed != 0 {
		t.Fatalf("clean text changed: %q (changed=%d)", got, changed)
	}
}

func TestFixer_UserSubstitutions(t *testing.T) {
	f, err := NewFixer(map[string]string{"xray": "radiograph"})
	if err != nil {
		t.Fatal(err)
	}

	got, changed := f.Apply("The Xray shows no fracture.")
	if got != "The radiograph shows no fracture." {
		t.Fatalf("got %q", got)
	}
	if changed != 1 {
		t.Fatalf("changed = %d, want 1", changed)
	}

	// Word boundaries: no substitution inside larger words.
	got, _ = f.Apply("xrays")
	if got != "xrays" {
		t.Fatalf("substitution leaked into larger word: %q", got)
	}
}

func TestFixer_OverlappingSubstitutionsAreDeterministic(t *testing.T) {
	subs := map[string]string{
		"chest xray": "chest radiograph",
		"xray":       "radiograph",
	}

	var first string
	for i := 0; i < 20; i++ {
		f, err := NewFixer(subs)
		if err != nil {
			t.Fatal(err)
		}
		got, _ := f.Apply("Prior chest xray reviewed. The xray is normal.")
		if i == 0 {
			first = got
			continue
		}
		if got != first {
			t.Fatalf("run %d produced %q, earlier runs produced %q", i, got, first)
		}
	}

	// Keys sort lexically, so "chest xray" rewrites before "xray" can.
	want := "Prior chest radiograph reviewed. The radiograph is normal."
	if first != want {
		t.Fatalf("got %q, want %q", first, want)
	}
}

func TestFixer_EmptySubstitutionKeyIgnored(t *testing.T) {
	f, err := NewFixer(map[string]string{"": "x"})
	if err != nil {
		t.Fatal(err)
	}
	got, changed := f.Apply("unchanged")
	if got != "unchanged" || changed != 0 {
		t.Fatalf("empty key must be ignored: %q (%d)", got, changed)
	}
}
