package testdata

import "testing"

func TestLoadCorpus(t *testing.T) {
	entries, err := LoadCorpus()
	if err != nil {
		t.Fatalf("LoadCorpus() error: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("corpus is empty")
	}

	for i, e := range entries {
		if e.Subject == "" {
			t.Errorf("entry[%d] has empty subject", i)
		}
		if e.ExpectedCategory == "" {
			t.Errorf("entry[%d] has empty expected_category", i)
		}
	}
}

func TestCorpusCoverage(t *testing.T) {
	entries, err := LoadCorpus()
	if err != nil {
		t.Fatalf("LoadCorpus() error: %v", err)
	}

	seen := map[string]bool{
		"Development": false, "Meeting": false, "Training": false,
		"Vacation": false, "Other": false,
	}
	for _, e := range entries {
		if _, ok := seen[e.ExpectedCategory]; !ok {
			t.Errorf("unexpected category %q for %q", e.ExpectedCategory, e.Subject)
			continue
		}
		seen[e.ExpectedCategory] = true
	}
	for cat, ok := range seen {
		if !ok {
			t.Errorf("no corpus entry for %s", cat)
		}
	}
}
