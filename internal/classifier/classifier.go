// Package classifier decides whether an article title is tech-relevant.
//
// It applies three ordered keyword tiers:
//  1. always-exclude patterns (substring) — promo/deal content, cannot be
//     overridden by later tiers
//  2. whitelist terms (word-boundary) — any hit includes the article
//  3. blacklist terms (substring) — any hit excludes the article
//
// Titles matching no tier are included. Tier order is load-bearing: the
// whitelist overrides the blacklist but never the always-exclude tier.
package classifier

import (
	"regexp"
	"strings"
)

// Tier 1: never legitimate tech news, regardless of other keywords.
var alwaysExcludePatterns = []string{
	// Coupons & promo codes
	"promo code", "promo codes", "coupon", "coupon code", "coupon codes",
	"discount code", "discount codes", "voucher",
	// Deals & sales
	"% off", "percent off", "half off", "save $",
	"best deals", "top deals", "deal alert", "sale alert", "flash sale",
	// Shopping events
	"black friday", "cyber monday", "prime day",
	// Gift content
	"gift guide", "gift ideas", "gift card",
}

// Tier 2: tech terms, matched with \b word boundaries so short tokens
// like "ai" or "ev" do not match inside unrelated words ("said", "never").
var whitelistKeywords = []string{
	// AI & ML
	"ai", "artificial intelligence", "machine learning", "llm", "gpt", "claude", "gemini", "chatgpt",
	"deepseek", "openai", "anthropic", "neural network", "deep learning",
	// Startups & business
	"startup", "funding", "venture", "ipo", "acquisition", "series a", "series b", "series c",
	"unicorn", "valuation",
	// Big tech
	"apple", "google", "microsoft", "amazon", "meta", "nvidia", "tesla", "samsung", "intel", "amd",
	"qualcomm", "tsmc", "ibm", "oracle", "salesforce", "adobe", "netflix", "spotify",
	// Products
	"iphone", "android", "mac", "macbook", "windows", "linux", "ipad", "pixel", "galaxy",
	"airpods", "vision pro", "quest",
	// Hardware
	"chip", "semiconductor", "processor", "gpu", "cpu", "memory", "ram", "ssd", "hardware",
	// Robotics & autonomous
	"robot", "robotics", "autonomous", "self-driving", "waymo", "cruise", "autopilot",
	// Crypto & blockchain
	"crypto", "blockchain", "bitcoin", "ethereum", "web3", "nft", "defi",
	// Security
	"cybersecurity", "hack", "breach", "privacy", "security", "ransomware", "malware", "phishing",
	// Software & development
	"software", "coding", "developer", "api", "programming", "open source", "github",
	// Cloud & infrastructure
	"cloud", "data center", "server", "aws", "azure", "kubernetes", "docker",
	// XR
	"vr", "ar", "metaverse", "headset", "mixed reality", "augmented reality", "virtual reality",
	// Telecom
	"5g", "wi-fi", "wifi", "network", "telecom", "broadband",
	// EV & energy
	"electric vehicle", "ev", "battery", "charging", "renewable", "solar",
	// Space
	"drone", "satellite", "spacex", "rocket", "nasa", "space",
	// Gaming tech
	"playstation", "xbox", "nintendo", "steam", "gaming pc", "rtx", "geforce",
}

// Tier 3: non-tech terms, matched as plain substrings. These are longer
// phrases, so substring matching is precise enough and cheaper.
var blacklistKeywords = []string{
	// Food & lifestyle
	"food", "recipe", "cooking", "diet", "fitness", "workout", "muscle", "nutrition",
	"weight loss", "meal prep",
	// Gift & holiday
	"valentine", "holiday gift", "christmas gift", "best gifts",
	"birthday gift",
	// Fashion & beauty
	"fashion", "beauty", "skincare", "makeup", "cosmetic", "hairstyle", "outfit",
	"fashion week", "runway",
	// Astrology
	"horoscope", "zodiac", "astrology", "tarot",
	// Entertainment reviews
	"movie review", "tv review", "show review", "album review",
	"book review", "concert review", "film review",
	// Travel
	"travel guide", "vacation", "hotel review", "destination", "resort", "tourism",
	// Relationships
	"relationship advice", "dating tips", "love life", "marriage advice",
	// Sports
	"sports score", "game recap", "playoff", "championship", "tournament",
	"super bowl", "world cup", "olympics",
	// Celebrity & gossip
	"celebrity", "gossip", "scandal", "red carpet", "paparazzi",
	// Weather
	"weather forecast",
	// Affiliate / spam
	"affiliate",
}

// whitelistPatterns holds the pre-compiled word-boundary regexes.
var whitelistPatterns = compileWordPatterns(whitelistKeywords)

func compileWordPatterns(keywords []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(keywords))
	for _, kw := range keywords {
		patterns = append(patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(kw)+`\b`))
	}
	return patterns
}

// ShouldInclude returns the tech-relevance verdict for a title. It is
// deterministic and does no I/O. Empty titles fall through to the
// default include; callers guard against missing titles upstream.
func ShouldInclude(title string) bool {
	lower := strings.ToLower(title)

	for _, pattern := range alwaysExcludePatterns {
		if strings.Contains(lower, pattern) {
			return false
		}
	}

	for _, re := range whitelistPatterns {
		if re.MatchString(title) {
			return true
		}
	}

	for _, kw := range blacklistKeywords {
		if strings.Contains(lower, kw) {
			return false
		}
	}

	return true
}
