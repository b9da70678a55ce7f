package dealpipeline

import "strings"

const (
	minRating      = 3.5
	minPrice       = 10
	maxDiscountPct = 80
)

var spamTitlePhrases = []string{"dropship", "fast shipping"}

// IsSpam reports whether a normalized deal should be dropped outright,
// independent of the keyboard-domain predicate below.
func IsSpam(d *NormalizedDeal) bool {
	if strings.TrimSpace(d.Title) == "" {
		return true
	}
	if d.Rating < minRating {
		return true
	}
	if d.CurrentPrice.InexactFloat64() < minPrice {
		return true
	}
	if d.DiscountPercent.InexactFloat64() > maxDiscountPct {
		return true
	}
	lower := strings.ToLower(d.Title)
	for _, phrase := range spamTitlePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

var keyboardKeywords = []string{
	"tastatur", "keyboard", "clavier", "teclado", "tastiera",
	"qwertz", "azerty", "mechanisch", "mechanical", "keychron", "ducky",
}

var keyboardBrandWhitelist = []string{
	"logitech", "cherry", "corsair", "razer", "keychron", "ducky", "steelseries",
}

// IsKeyboard reports whether a deal belongs to the keyboard domain
// this pipeline tracks, by title keyword or brand whitelist.
func IsKeyboard(d *NormalizedDeal) bool {
	lower := strings.ToLower(d.Title)
	for _, kw := range keyboardKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	for _, brand := range keyboardBrandWhitelist {
		if strings.Contains(lower, brand) {
			return true
		}
	}
	return false
}

// marketDefaultLayout maps a marketplace domain id to its inferred
// keyboard layout when the title carries no explicit layout signal.
var marketDefaultLayout = map[int]string{
	3: "QWERTZ",  // DE
	4: "AZERTY",  // FR
	8: "QWERTY-IT", // IT
}

// Layout determines the keyboard layout annotation for a deal: an
// explicit signal in the title wins, otherwise it is inferred from the
// marketplace domain, otherwise left blank.
func Layout(d *NormalizedDeal) string {
	upper := strings.ToUpper(d.Title)
	for _, signal := range []string{"QWERTZ", "AZERTY", "QWERTY-IT"} {
		if strings.Contains(upper, signal) {
			return signal
		}
	}
	return marketDefaultLayout[d.Domain]
}
