package keepa

import "testing"

func TestIsValidProductCode(t *testing.T) {
	cases := map[string]bool{
		"B08N5WRWNW": true,
		"b08n5wrwnw": true,
		"short":      false,
		"B08N5WRWNW1": false,
		"B08N5WR-NW": false,
	}
	for code, want := range cases {
		if got := isValidProductCode(code); got != want {
			t.Errorf("isValidProductCode(%q) = %v, want %v", code, got, want)
		}
	}
}

func TestNormalizeFlatRating(t *testing.T) {
	if got := normalizeFlatRating(45); got != 4.5 {
		t.Errorf("normalizeFlatRating(45) = %v, want 4.5", got)
	}
	if got := normalizeFlatRating(0); got != 0 {
		t.Errorf("normalizeFlatRating(0) = %v, want 0", got)
	}
}

func TestHostnameFallsBackToUS(t *testing.T) {
	if got := Hostname(Domain(999)); got != "www.amazon.com" {
		t.Errorf("Hostname(unknown) = %q, want US fallback", got)
	}
	if got := Hostname(DomainDE); got != "www.amazon.de" {
		t.Errorf("Hostname(DE) = %q, want www.amazon.de", got)
	}
}

func TestProductURL(t *testing.T) {
	got := ProductURL(DomainUK, "B08N5WRWNW")
	want := "https://www.amazon.co.uk/dp/B08N5WRWNW"
	if got != want {
		t.Errorf("ProductURL = %q, want %q", got, want)
	}
}
