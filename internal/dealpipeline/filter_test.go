package dealpipeline

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dealWith(title string, rating float64, price, discount int64) *NormalizedDeal {
	return &NormalizedDeal{
		Title:           title,
		Rating:          rating,
		CurrentPrice:    decimal.NewFromInt(price),
		DiscountPercent: decimal.NewFromInt(discount),
	}
}

func TestIsSpam(t *testing.T) {
	cases := []struct {
		name string
		deal *NormalizedDeal
		want bool
	}{
		{"clean deal survives", dealWith("Logitech MX Keys Keyboard", 4.5, 80, 20), false},
		{"empty title is spam", dealWith("", 4.5, 80, 20), true},
		{"low rating is spam", dealWith("Keychron K2 Keyboard", 3.0, 80, 20), true},
		{"unrated product is spam", dealWith("Keychron K2 Keyboard", 0, 80, 20), true},
		{"below price floor is spam", dealWith("Keychron K2 Keyboard", 4.5, 5, 20), true},
		{"excessive discount is spam", dealWith("Keychron K2 Keyboard", 4.5, 80, 85), true},
		{"dropship phrase is spam", dealWith("Keychron K2 Keyboard dropship", 4.5, 80, 20), true},
		{"fast shipping phrase is spam", dealWith("Keychron K2 Keyboard, fast shipping", 4.5, 80, 20), true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := IsSpam(c.deal); got != c.want {
				t.Errorf("IsSpam(%q) = %v, want %v", c.deal.Title, got, c.want)
			}
		})
	}
}

func TestIsKeyboard(t *testing.T) {
	cases := []struct {
		title string
		want  bool
	}{
		{"Logitech MX Keys Mechanical Keyboard", true},
		{"Cherry MX Board 3.0", true},
		{"Corsair Gaming Mouse", true}, // brand whitelist catches this even though it's a mouse
		{"USB-C Charging Cable", false},
		{"Tastatur mit Nummernblock", true},
		{"Clavier AZERTY sans fil", true},
	}

	for _, c := range cases {
		d := &NormalizedDeal{Title: c.title}
		if got := IsKeyboard(d); got != c.want {
			t.Errorf("IsKeyboard(%q) = %v, want %v", c.title, got, c.want)
		}
	}
}

func TestLayoutPrefersExplicitTitleSignal(t *testing.T) {
	d := &NormalizedDeal{Title: "Keychron K2 QWERTZ Layout", Domain: 4} // FR domain, but title says QWERTZ
	if got := Layout(d); got != "QWERTZ" {
		t.Errorf("Layout() = %q, want QWERTZ", got)
	}
}

func TestLayoutFallsBackToMarketDefault(t *testing.T) {
	cases := []struct {
		domain int
		want   string
	}{
		{3, "QWERTZ"},    // DE
		{4, "AZERTY"},    // FR
		{8, "QWERTY-IT"}, // IT
		{9, ""},          // ES has no declared default
	}
	for _, c := range cases {
		d := &NormalizedDeal{Title: "Generic Mechanical Keyboard", Domain: c.domain}
		if got := Layout(d); got != c.want {
			t.Errorf("Layout() domain=%d = %q, want %q", c.domain, got, c.want)
		}
	}
}
