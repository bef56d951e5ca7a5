package render

import "github.com/shivaacodes/clipcraft-hackgen/internal/models"

// ComputeRegions walks the segments in order, accumulating elapsed time.
// Clip segments produce mute regions, where the BGM ducks so the clip's own
// audio stays audible; synthesized segments produce play regions where the
// music runs at full volume.
func ComputeRegions(segments []models.RenderableSegment) (mute, play []models.Region) {
	cursor := 0.0
	for _, seg := range segments {
		region := models.Region{Start: cursor, End: cursor + seg.Duration}
		if seg.FromClip {
			mute = append(mute, region)
		} else {
			play = append(play, region)
		}
		cursor = region.End
	}
	return mute, play
}
