package command

import (
	"fmt"
	"math"

	"github.com/joda-analytics/imagec-engine/internal/enums"
	"github.com/joda-analytics/imagec-engine/internal/imageproc"
	"github.com/joda-analytics/imagec-engine/internal/omeinfo"
)

// ZProjection reduces a Z-stack to a single plane using one of the
// supported projection modes (spec §4.5).
type ZProjection struct {
	Mode ZProjectionMode
	// Planes supplies every Z plane's matrix for the current (C,T); Run
	// projects across them rather than across the single input matrix,
	// since z-projection is inherently a multi-plane operation.
	Planes []omeinfo.Matrix
}

// ZProjectionMode selects the per-pixel reducer z-projection applies.
type ZProjectionMode int

const (
	ZProjectMax ZProjectionMode = iota
	ZProjectMin
	ZProjectAvg
	ZProjectSum
)

func (ZProjection) Kind() string { return "z_projection" }

func (c ZProjection) Run(ctx *imageproc.Context, input omeinfo.Matrix, classID enums.ClassID) (omeinfo.Matrix, error) {
	planes := c.Planes
	if len(planes) == 0 {
		planes = []omeinfo.Matrix{input}
	}
	w, h := planes[0].Width, planes[0].Height
	out := omeinfo.Matrix{Width: w, Height: h, Stride: w, Pix: make([]uint16, w*h)}
	for i := range out.Pix {
		switch c.Mode {
		case ZProjectMax:
			var m uint16
			for _, p := range planes {
				if p.Pix[i] > m {
					m = p.Pix[i]
				}
			}
			out.Pix[i] = m
		case ZProjectMin:
			m := uint16(math.MaxUint16)
			for _, p := range planes {
				if p.Pix[i] < m {
					m = p.Pix[i]
				}
			}
			out.Pix[i] = m
		case ZProjectSum, ZProjectAvg:
			var sum uint32
			for _, p := range planes {
				sum += uint32(p.Pix[i])
			}
			if c.Mode == ZProjectAvg {
				sum /= uint32(len(planes))
			}
			if sum > math.MaxUint16 {
				sum = math.MaxUint16
			}
			out.Pix[i] = uint16(sum)
		}
	}
	return out, nil
}

// MarginCrop zeroes out a border margin around the tile, used to avoid
// double-counting objects that straddle tile boundaries (spec §4.5).
type MarginCrop struct {
	MarginPixels int32
}

func (MarginCrop) Kind() string { return "margin_crop" }

func (c MarginCrop) Run(_ *imageproc.Context, input omeinfo.Matrix, _ enums.ClassID) (omeinfo.Matrix, error) {
	m := c.MarginPixels
	if m <= 0 {
		return input, nil
	}
	out := omeinfo.Matrix{Width: input.Width, Height: input.Height, Stride: input.Stride, Pix: append([]uint16(nil), input.Pix...)}
	for y := int32(0); y < out.Height; y++ {
		for x := int32(0); x < out.Width; x++ {
			if x < m || y < m || x >= out.Width-m || y >= out.Height-m {
				out.Pix[y*out.Stride+x] = 0
			}
		}
	}
	return out, nil
}

// ChannelSubtract subtracts a second channel's matrix pixel-wise,
// clamping at zero (spec §4.5).
type ChannelSubtract struct {
	Subtrahend omeinfo.Matrix
}

func (ChannelSubtract) Kind() string { return "channel_subtract" }

func (c ChannelSubtract) Run(_ *imageproc.Context, input omeinfo.Matrix, _ enums.ClassID) (omeinfo.Matrix, error) {
	if len(c.Subtrahend.Pix) != len(input.Pix) {
		return input, fmt.Errorf("channel_subtract: size mismatch %dx%d vs %dx%d", input.Width, input.Height, c.Subtrahend.Width, c.Subtrahend.Height)
	}
	out := omeinfo.Matrix{Width: input.Width, Height: input.Height, Stride: input.Stride, Pix: make([]uint16, len(input.Pix))}
	for i, v := range input.Pix {
		s := c.Subtrahend.Pix[i]
		if v > s {
			out.Pix[i] = v - s
		}
	}
	return out, nil
}

// MedianSubtract subtracts a rolling median background estimate from
// the plane (spec §4.5). radius is the square window half-size.
type MedianSubtract struct {
	Radius int32
}

func (MedianSubtract) Kind() string { return "median_subtract" }

func (c MedianSubtract) Run(_ *imageproc.Context, input omeinfo.Matrix, _ enums.ClassID) (omeinfo.Matrix, error) {
	bg := windowMedian(input, c.Radius)
	out := omeinfo.Matrix{Width: input.Width, Height: input.Height, Stride: input.Stride, Pix: make([]uint16, len(input.Pix))}
	for i, v := range input.Pix {
		b := bg.Pix[i]
		if v > b {
			out.Pix[i] = v - b
		}
	}
	return out, nil
}

// RollingBall estimates and subtracts a rolling-ball background,
// approximated here with a windowed minimum (a grayscale erosion, with
// no dilation pass) as the background estimate
// (spec §4.5's "rolling ball" is a pluggable primitive; this is the
// core's reference implementation).
type RollingBall struct {
	Radius int32
}

func (RollingBall) Kind() string { return "rolling_ball" }

func (c RollingBall) Run(_ *imageproc.Context, input omeinfo.Matrix, _ enums.ClassID) (omeinfo.Matrix, error) {
	bg := windowMin(input, c.Radius)
	out := omeinfo.Matrix{Width: input.Width, Height: input.Height, Stride: input.Stride, Pix: make([]uint16, len(input.Pix))}
	for i, v := range input.Pix {
		b := bg.Pix[i]
		if v > b {
			out.Pix[i] = v - b
		}
	}
	return out, nil
}

// GaussianBlur approximates a Gaussian blur with a single square box
// blur of radius ceil(2*Sigma) (spec §4.5).
type GaussianBlur struct {
	Sigma float64
}

func (GaussianBlur) Kind() string { return "gaussian_blur" }

func (c GaussianBlur) Run(_ *imageproc.Context, input omeinfo.Matrix, _ enums.ClassID) (omeinfo.Matrix, error) {
	radius := int32(math.Ceil(c.Sigma * 2))
	return boxBlur(input, radius), nil
}

// Blur applies a uniform box blur (spec §4.5).
type Blur struct {
	Radius int32
}

func (Blur) Kind() string { return "blur" }

func (c Blur) Run(_ *imageproc.Context, input omeinfo.Matrix, _ enums.ClassID) (omeinfo.Matrix, error) {
	return boxBlur(input, c.Radius), nil
}

// EdgeDetectMode selects the Sobel axis an EdgeDetect command computes
// (spec §4.5: "Sobel/Canny; X/Y/XY").
type EdgeDetectMode int

const (
	EdgeDetectX EdgeDetectMode = iota
	EdgeDetectY
	EdgeDetectXY
)

// EdgeDetect runs a Sobel edge filter (spec §4.5).
type EdgeDetect struct {
	Mode EdgeDetectMode
}

func (EdgeDetect) Kind() string { return "edge_detect" }

func (c EdgeDetect) Run(_ *imageproc.Context, input omeinfo.Matrix, _ enums.ClassID) (omeinfo.Matrix, error) {
	gx := sobel(input, true)
	gy := sobel(input, false)
	out := omeinfo.Matrix{Width: input.Width, Height: input.Height, Stride: input.Stride, Pix: make([]uint16, len(input.Pix))}
	for i := range out.Pix {
		switch c.Mode {
		case EdgeDetectX:
			out.Pix[i] = gx.Pix[i]
		case EdgeDetectY:
			out.Pix[i] = gy.Pix[i]
		default:
			mag := math.Hypot(float64(gx.Pix[i]), float64(gy.Pix[i]))
			if mag > math.MaxUint16 {
				mag = math.MaxUint16
			}
			out.Pix[i] = uint16(mag)
		}
	}
	return out, nil
}

// ThresholdMethod selects the auto-threshold algorithm (spec §4.5:
// "manual or {Li, MinError, Triangle, Moments, Otsu}").
type ThresholdMethod int

const (
	ThresholdManual ThresholdMethod = iota
	ThresholdOtsu
	ThresholdLi
	ThresholdMinError
	ThresholdTriangle
	ThresholdMoments
)

// Threshold binarizes the plane at ManualLevel when Method is
// ThresholdManual. Every other method uses Otsu's level (otsuLevel):
// Li, MinError, Triangle and Moments are accepted but give the same
// level as ThresholdOtsu.
type Threshold struct {
	Method     ThresholdMethod
	ManualLevel uint16
}

func (Threshold) Kind() string { return "threshold" }

func (c Threshold) Run(_ *imageproc.Context, input omeinfo.Matrix, _ enums.ClassID) (omeinfo.Matrix, error) {
	level := c.ManualLevel
	if c.Method != ThresholdManual {
		level = otsuLevel(input)
	}
	out := omeinfo.Matrix{Width: input.Width, Height: input.Height, Stride: input.Stride, Pix: make([]uint16, len(input.Pix))}
	for i, v := range input.Pix {
		if v >= level {
			out.Pix[i] = math.MaxUint16
		}
	}
	return out, nil
}
