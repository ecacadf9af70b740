package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldInclude_AlwaysExcludeBeatsWhitelist(t *testing.T) {
	// "50% off" is a mandatory exclusion even though "laptops"/"AI" lean tech.
	assert.False(t, ShouldInclude("50% off laptops this weekend"))
	assert.False(t, ShouldInclude("AI laptop deal: 50% off"))
	assert.False(t, ShouldInclude("Best Black Friday GPU deals from Nvidia"))
	assert.False(t, ShouldInclude("Gift guide: the iPhone accessories we love"))
}

func TestShouldInclude_WhitelistBeatsBlacklist(t *testing.T) {
	assert.True(t, ShouldInclude("OpenAI announces new model"))
	// "fashion" is blacklisted, but the word-boundary "AI" hit wins because
	// the whitelist tier runs first.
	assert.True(t, ShouldInclude("Apple unveils fashion-forward AI wearable"))
	assert.True(t, ShouldInclude("Samsung's food delivery robot hits the streets"))
}

func TestShouldInclude_WordBoundary(t *testing.T) {
	// "ai" must not match inside "said"; "ev" must not match inside "never".
	assert.False(t, ShouldInclude("Everything you said about horoscopes"))
	assert.True(t, ShouldInclude("Google's AI push"))
	assert.True(t, ShouldInclude("Why EV sales doubled this year"))
	assert.False(t, ShouldInclude("Seven ways to never miss a workout"))
}

func TestShouldInclude_Blacklist(t *testing.T) {
	assert.False(t, ShouldInclude("The best recipe for slow-cooked ribs"))
	assert.False(t, ShouldInclude("Your weekly horoscope is here"))
	assert.False(t, ShouldInclude("Movie review: a quiet summer"))
	assert.False(t, ShouldInclude("Celebrity gossip roundup"))
}

func TestShouldInclude_DefaultInclude(t *testing.T) {
	assert.True(t, ShouldInclude("Markets open higher after quiet week"))
	assert.True(t, ShouldInclude(""))
	assert.True(t, ShouldInclude("   "))
}

func TestShouldInclude_CaseInsensitive(t *testing.T) {
	assert.False(t, ShouldInclude("PROMO CODE inside"))
	assert.True(t, ShouldInclude("nvidia ships new chips"))
	assert.False(t, ShouldInclude("FASHION week highlights"))
}
