package render

import (
	"image/color"
	"strings"

	"github.com/swdee/go-posewatch/activity"
)

var (
	Black  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 50, A: 255}
	Red    = color.RGBA{R: 230, G: 30, B: 30, A: 255}
	Green  = color.RGBA{R: 40, G: 180, B: 60, A: 255}
	Grey   = color.RGBA{R: 60, G: 60, B: 60, A: 255}

	// posePalette are the colors used for the skeleton
	posePalette = []color.RGBA{
		{R: 255, G: 128, B: 0, A: 255},
		{R: 255, G: 153, B: 51, A: 255},
		{R: 255, G: 178, B: 102, A: 255},
		{R: 230, G: 230, B: 0, A: 255},
		{R: 255, G: 153, B: 255, A: 255},
		{R: 153, G: 204, B: 255, A: 255},
		{R: 255, G: 102, B: 255, A: 255},
		{R: 255, G: 51, B: 255, A: 255},
		{R: 102, G: 178, B: 255, A: 255},
		{R: 51, G: 153, B: 255, A: 255},
		{R: 255, G: 153, B: 153, A: 255},
		{R: 255, G: 102, B: 102, A: 255},
		{R: 255, G: 51, B: 51, A: 255},
		{R: 153, G: 255, B: 153, A: 255},
		{R: 102, G: 255, B: 102, A: 255},
		{R: 51, G: 255, B: 51, A: 255},
		{R: 0, G: 255, B: 0, A: 255},
	}

	// keyPointColors are the joint colors, one per COCO keypoint
	keyPointColors = []color.RGBA{
		posePalette[16], posePalette[16], posePalette[16], posePalette[16], posePalette[16],
		posePalette[9], posePalette[9], posePalette[9], posePalette[9], posePalette[9],
		posePalette[9], posePalette[0], posePalette[0], posePalette[0], posePalette[0],
		posePalette[0], posePalette[0],
	}

	// limbColors are the colors of the lines between joints, one per
	// skeleton limb
	limbColors = []color.RGBA{
		posePalette[0], posePalette[0], posePalette[0], posePalette[0], posePalette[7],
		posePalette[7], posePalette[7], posePalette[9], posePalette[9], posePalette[9],
		posePalette[9], posePalette[9], posePalette[16], posePalette[16], posePalette[16],
		posePalette[16], posePalette[16], posePalette[16], posePalette[16],
	}
)

// StatusColor returns the banner background for the status text, falls are
// shown in red
func StatusColor(status string) color.RGBA {

	switch {
	case strings.Contains(status, activity.Falling):
		return Red
	case strings.Contains(status, activity.Sitting):
		return Yellow
	case strings.Contains(status, activity.Standing):
		return Green
	default:
		return Grey
	}
}
