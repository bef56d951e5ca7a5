package analyze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeSpansOverlap(t *testing.T) {
	spans := timeSpans(30)
	require.NotEmpty(t, spans)

	assert.Equal(t, 0.0, spans[0].start)
	assert.Equal(t, 8.0, spans[0].end)

	// Consecutive chunks overlap by one second.
	assert.Equal(t, 7.0, spans[1].start)

	// Coverage runs to the end of the video.
	assert.Equal(t, 30.0, spans[len(spans)-1].end)

	for _, sp := range spans {
		assert.GreaterOrEqual(t, sp.end-sp.start, minChunkLength)
		assert.LessOrEqual(t, sp.end-sp.start, chunkDuration+minChunkLength)
	}
}

func TestTimeSpansShortVideo(t *testing.T) {
	spans := timeSpans(2)
	require.Len(t, spans, 1)
	assert.Equal(t, 0.0, spans[0].start)
	assert.Equal(t, 2.0, spans[0].end)
}

func TestTimeSpansExactFit(t *testing.T) {
	spans := timeSpans(8)
	require.Len(t, spans, 1)
	assert.Equal(t, 8.0, spans[0].end)
}

func TestSpansFromBreaks(t *testing.T) {
	spans := spansFromBreaks([]float64{5.2, 11.9, 20.0}, 28)
	require.Len(t, spans, 4)

	assert.Equal(t, span{0, 5.2}, spans[0])
	assert.Equal(t, span{5.2, 11.9}, spans[1])
	assert.Equal(t, span{11.9, 20.0}, spans[2])
	assert.Equal(t, span{20.0, 28}, spans[3])
}

func TestSpansFromBreaksMergesShortFragments(t *testing.T) {
	// The break at 6.0 creates a 1-second fragment that merges backwards.
	spans := spansFromBreaks([]float64{5.0, 6.0}, 15)
	require.Len(t, spans, 2)
	assert.Equal(t, span{0, 6.0}, spans[0])
	assert.Equal(t, span{6.0, 15}, spans[1])
}

func TestSpansFromBreaksIgnoresOutOfRange(t *testing.T) {
	spans := spansFromBreaks([]float64{0, 50}, 10)
	require.Len(t, spans, 1)
	assert.Equal(t, span{0, 10}, spans[0])
}

func TestSplitLongSpans(t *testing.T) {
	spans := splitLongSpans([]span{{0, 25}}, maxChunkLength)
	require.Len(t, spans, 3)

	assert.Equal(t, 0.0, spans[0].start)
	assert.Equal(t, 25.0, spans[2].end)

	for _, sp := range spans {
		assert.LessOrEqual(t, sp.end-sp.start, maxChunkLength)
	}

	// Pieces tile the original span with no gaps.
	assert.InDelta(t, spans[0].end, spans[1].start, 0.0001)
	assert.InDelta(t, spans[1].end, spans[2].start, 0.0001)
}

func TestSplitLongSpansLeavesShortOnes(t *testing.T) {
	in := []span{{0, 4}, {4, 9}}
	out := splitLongSpans(in, maxChunkLength)
	assert.Equal(t, in, out)
}
