package services

import (
	"strings"

	"etalase/internal/models"
)

// categorySynonyms maps a catalog category to search keywords that should
// find its products even when no product field contains them.
var categorySynonyms = map[string][]string{
	"Laptops":            {"laptop", "notebook", "macbook", "asus", "dell", "lenovo", "acer"},
	"Smartphones":        {"hp", "handphone", "smartphone", "ponsel", "xiaomi", "samsung", "android"},
	"Audio":              {"headset", "earphone", "headphone", "buds", "audio", "sony", "anker", "logitech"},
	"Accessories":        {"charger", "usb", "mouse", "keyboard", "cable", "accessory", "logitech", "anker"},
	"Gaming Consoles":    {"console", "game", "ps", "nintendo", "playstation", "switch"},
	"Wearables":          {"jam", "smartwatch", "gelang", "wearable", "watch", "band", "xiaomi"},
	"Tablets":            {"tablet", "ipad"},
	"Monitors":           {"monitor", "display", "layar"},
	"Televisions":        {"tv", "televisi", "oled", "smart tv", "lg", "samsung"},
	"Gaming Peripherals": {"mouse", "keyboard", "keychron", "razer", "gaming"},
}

// MatchesQuery reports whether p matches every whitespace-separated token of
// query. A token matches when it is a substring of the name, brand or
// description, or when it overlaps a synonym of the product's category in
// either direction. An empty query matches everything.
func MatchesQuery(p models.Product, query string) bool {
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return true
	}
	name := strings.ToLower(p.Name)
	brand := strings.ToLower(p.Brand)
	desc := strings.ToLower(p.Description)
	synonyms := categorySynonyms[p.Category]

	for _, tok := range tokens {
		if strings.Contains(name, tok) || strings.Contains(brand, tok) || strings.Contains(desc, tok) {
			continue
		}
		if !matchesSynonym(tok, synonyms) {
			return false
		}
	}
	return true
}

func matchesSynonym(token string, synonyms []string) bool {
	for _, syn := range synonyms {
		if strings.Contains(token, syn) || strings.Contains(syn, token) {
			return true
		}
	}
	return false
}
