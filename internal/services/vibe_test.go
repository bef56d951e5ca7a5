package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeVibe(t *testing.T) {
	assert.Equal(t, "Happy", NormalizeVibe("happy"))
	assert.Equal(t, "Dramatic", NormalizeVibe("DRAMATIC"))
	assert.Equal(t, "cool", NormalizeVibe("Cool"))
	assert.Equal(t, "Happy", NormalizeVibe("melancholic"))
	assert.Equal(t, "Happy", NormalizeVibe(""))
}

func TestNormalizeAgeGroup(t *testing.T) {
	assert.Equal(t, "teens", NormalizeAgeGroup("Teens"))
	assert.Equal(t, "young-adults", NormalizeAgeGroup("young-adults"))
	assert.Equal(t, "general", NormalizeAgeGroup("everyone"))
	assert.Equal(t, "general", NormalizeAgeGroup(""))
}

func TestExtractJSON(t *testing.T) {
	fenced := "```json\n{\"overall_score\": 72}\n```"
	assert.Equal(t, `{"overall_score": 72}`, extractJSON(fenced))

	plain := `{"a": 1}`
	assert.Equal(t, plain, extractJSON(plain))

	chatty := `Sure! Here you go: {"a": {"b": 2}} hope that helps`
	assert.Equal(t, `{"a": {"b": 2}}`, extractJSON(chatty))
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, isRateLimited(errors.New("googleapi: Error 429: quota exceeded")))
	assert.True(t, isRateLimited(errors.New("RESOURCE_EXHAUSTED")))
	assert.False(t, isRateLimited(errors.New("connection refused")))
	assert.False(t, isRateLimited(nil))
}

func TestVibeRetryDelayGrows(t *testing.T) {
	d1 := vibeRetryDelay(1)
	d3 := vibeRetryDelay(3)
	assert.GreaterOrEqual(t, d3.Seconds(), d1.Seconds())
	assert.GreaterOrEqual(t, d1.Seconds(), 2.0)
}
