// Package anim converts keyframe tracks between absolute node transforms keyed
// by time and bind-relative channels keyed by frame.
package anim

import gomath "math"

// DefaultFPS is the frame rate assumed when keys fit no candidate better.
const DefaultFPS = 30

// alternateFPS are tried after DefaultFPS, in this order.
var alternateFPS = []int{20, 25, 35}

// EstimateFPS returns the candidate frame rate that puts times closest to
// whole frames. A candidate replaces the current choice only when it fits
// strictly better, so ties keep the earlier candidate.
func EstimateFPS(times []float64) int {
	best := DefaultFPS
	bestErr := misalignment(times, best)
	for _, fps := range alternateFPS {
		if e := misalignment(times, fps); e < bestErr {
			best, bestErr = fps, e
		}
	}
	return best
}

func misalignment(times []float64, fps int) float64 {
	var sum float64
	for _, t := range times {
		x := t * float64(fps)
		sum += gomath.Abs(gomath.Round(x) - x)
	}
	return sum
}

// Frame converts a time in seconds to a frame number. Frame 1 is time 0.
func Frame(t float64, fps int) int {
	return 1 + int(gomath.Round(t*float64(fps)))
}

// Time converts a frame number back to seconds.
func Time(frame, fps int) float64 {
	return float64(frame-1) / float64(fps)
}
