package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"12", 12},
		{"7.5", 7.5},
		{"0", 0},
		{"1:30", 90},
		{"0:05", 5},
		{"2:07.5", 127.5},
		{" 10 ", 10},
	}

	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		require.NoError(t, err, "input %q", tt.in)
		assert.InDelta(t, tt.want, got, 0.0001, "input %q", tt.in)
	}
}

func TestParseDurationRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "abc", "-5", "1:-30", "-1:30", "1:2:3:"} {
		_, err := ParseDuration(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestInferTypeFromImageExtension(t *testing.T) {
	tests := []struct {
		name string
		item TimelineItem
		want ItemType
	}{
		{"jpg name", TimelineItem{Name: "sunset.jpg"}, ItemTypeImage},
		{"jpeg url", TimelineItem{URL: "/assets/images/photo.JPEG"}, ItemTypeImage},
		{"png name", TimelineItem{Name: "logo.png"}, ItemTypeImage},
		{"text content", TimelineItem{Text: "Chapter One"}, ItemTypeText},
		{"clip url", TimelineItem{ClipURL: "/api/v1/process/clips/abc.mp4"}, ItemTypeClip},
		{"explicit type wins", TimelineItem{Type: ItemTypeText, Name: "card.png"}, ItemTypeText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.item.InferType()
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInferTypeUnresolvable(t *testing.T) {
	item := TimelineItem{Name: "mystery", Text: "   "}
	_, ok := item.InferType()
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	valid := []TimelineItem{
		{Type: ItemTypeClip, ClipFilename: "clip.mp4"},
		{Type: ItemTypeClip, ClipURL: "/api/v1/process/clips/clip.mp4"},
		{Type: ItemTypeImage, URL: "/assets/images/a.png"},
		{Type: ItemTypeText, Text: ""},
	}
	for i, item := range valid {
		assert.NoError(t, item.Validate(), "item %d", i)
	}

	invalid := []TimelineItem{
		{Type: ItemTypeClip},
		{Type: ItemTypeImage},
		{Type: "gif", Name: "a.gif"},
	}
	for i, item := range invalid {
		assert.Error(t, item.Validate(), "item %d", i)
	}
}

func TestJobStatuses(t *testing.T) {
	statuses := []JobStatus{
		JobStatusPending,
		JobStatusRunning,
		JobStatusCompleted,
		JobStatusFailed,
	}

	for _, status := range statuses {
		assert.NotEmpty(t, status)
	}
}
