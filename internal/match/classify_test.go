package match

import "testing"

func TestClassify(t *testing.T) {
	c, err := NewClassifier()
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}

	cases := []struct {
		name   string
		domain string
		found  bool
	}{
		{"cardiology", "cardiac", true},
		{"cardiac surgery", "cardiac", true},
		{"cardiovascular disease", "cardiac", true},
		{"orthopedic surgery", "orthopedic", true},
		{"orthopaedics", "orthopedic", true},
		{"neurology", "neurologic", true},
		{"hematology / oncology", "oncologic", true},
		{"psychiatry", "psychiatric", true},
		{"family medicine", "", false},
		{"hospitalist", "", false},
	}

	for _, tc := range cases {
		domain, found := c.Classify(Normalize(tc.name))
		if found != tc.found || domain != tc.domain {
			t.Errorf("Classify(%q) = (%q, %v), want (%q, %v)", tc.name, domain, found, tc.domain, tc.found)
		}
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	c := NewClassifierWith([]DomainEntry{
		{Tag: "cardiac", Keywords: []string{"cardiol"}},
		{Tag: "pediatric", Keywords: []string{"pediatric"}},
	})

	domain, found := c.Classify("pediatric cardiology")
	if !found || domain != "cardiac" {
		t.Fatalf("expected first table entry to win, got (%q, %v)", domain, found)
	}
}
