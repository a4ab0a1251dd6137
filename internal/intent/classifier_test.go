// internal/intent/classifier_test.go
package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"devpulse-search/internal/models"
)

// ==========================================
// Classification
// ==========================================

func TestClassify_PriceCheck(t *testing.T) {
	c := NewClassifier()

	it := c.Classify("bitcoin price today")

	assert.Equal(t, models.IntentPriceCheck, it.Type)
	assert.InDelta(t, 0.9, it.Confidence, 0.05)
	assert.True(t, it.TimeSensitive)
	assert.Contains(t, it.Entities["cryptocurrencies"], "bitcoin")
	assert.Equal(t, []string{"crypto"}, it.ExplicitSources)
}

func TestClassify_Tutorial(t *testing.T) {
	c := NewClassifier()

	it := c.Classify("python tutorials")

	assert.Equal(t, models.IntentTutorial, it.Type)
	assert.Empty(t, it.ExplicitSources)
	assert.Contains(t, it.Entities["languages"], "python")
	assert.Equal(t, []string{"python", "tutorials"}, it.Keywords)
}

func TestClassify_ExplicitSource(t *testing.T) {
	c := NewClassifier()

	it := c.Classify("best mechanical keyboards thread on reddit")

	assert.Contains(t, it.ExplicitSources, "reddit")
}

func TestClassify_Unknown(t *testing.T) {
	c := NewClassifier()

	it := c.Classify("xylophone")

	assert.Equal(t, models.IntentUnknown, it.Type)
	assert.Less(t, it.Confidence, LowConfidenceThreshold)
}

func TestClassify_TieBreakPrefersSpecificIntent(t *testing.T) {
	c := NewClassifier()

	// "tutorial" and "repo" each match one pattern; tutorial is more specific.
	it := c.Classify("rust tutorial repo")

	assert.Equal(t, models.IntentTutorial, it.Type)
}

func TestClassify_MultiWordEntity(t *testing.T) {
	c := NewClassifier()

	it := c.Classify("machine learning discussion")

	assert.Contains(t, it.Entities["topics"], "machine learning")
	assert.Equal(t, models.IntentDiscussion, it.Type)
}

func TestClassify_KeywordsDropStopWords(t *testing.T) {
	c := NewClassifier()

	it := c.Classify("find me the best rust libraries for parsing")

	assert.NotContains(t, it.Keywords, "find")
	assert.NotContains(t, it.Keywords, "the")
	assert.NotContains(t, it.Keywords, "me")
	assert.Contains(t, it.Keywords, "rust")
	assert.Contains(t, it.Keywords, "parsing")
}

func TestClassify_NotTimeSensitive(t *testing.T) {
	c := NewClassifier()

	it := c.Classify("django orm documentation")

	assert.False(t, it.TimeSensitive)
	assert.Equal(t, models.IntentDocumentation, it.Type)
}

// ==========================================
// Source resolution
// ==========================================

func TestResolveSources_ExplicitIsExclusive(t *testing.T) {
	it := models.Intent{
		Type:            models.IntentDiscussion,
		Confidence:      0.8,
		ExplicitSources: []string{"reddit"},
	}

	assert.Equal(t, []string{"reddit"}, ResolveSources(it))
}

func TestResolveSources_IntentDerived(t *testing.T) {
	it := models.Intent{Type: models.IntentTutorial, Confidence: 0.5}

	assert.Equal(t, []string{"github", "devto"}, ResolveSources(it))
}

func TestResolveSources_LowConfidenceGoesBroad(t *testing.T) {
	it := models.Intent{Type: models.IntentUnknown, Confidence: 0.1}

	assert.ElementsMatch(t, BroadSources, ResolveSources(it))
}

func TestResolveSources_UnknownButConfidentStaysNarrow(t *testing.T) {
	it := models.Intent{Type: models.IntentUnknown, Confidence: 0.5}

	assert.Equal(t, []string{"github", "devto", "hackernews"}, ResolveSources(it))
}

func TestResolveSources_EntityPullsMarketSource(t *testing.T) {
	it := models.Intent{
		Type:       models.IntentNews,
		Confidence: 0.6,
		Entities:   map[string][]string{"cryptocurrencies": {"ethereum"}},
	}

	sources := ResolveSources(it)
	assert.Equal(t, "crypto", sources[0])
	assert.Contains(t, sources, "hackernews")
}
