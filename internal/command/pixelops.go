package command

import (
	"sort"

	"github.com/joda-analytics/imagec-engine/internal/omeinfo"
)

// at returns the pixel at (x,y), clamping coordinates to the matrix
// bounds (replicate-edge padding), matching how the teacher's window
// operators avoid branchy bounds checks in the inner loop.
func at(m omeinfo.Matrix, x, y int32) uint16 {
	if x < 0 {
		x = 0
	}
	if x >= m.Width {
		x = m.Width - 1
	}
	if y < 0 {
		y = 0
	}
	if y >= m.Height {
		y = m.Height - 1
	}
	return m.Pix[y*m.Stride+x]
}

func boxBlur(input omeinfo.Matrix, radius int32) omeinfo.Matrix {
	if radius <= 0 {
		return input
	}
	out := omeinfo.Matrix{Width: input.Width, Height: input.Height, Stride: input.Width, Pix: make([]uint16, input.Width*input.Height)}
	n := (2*radius + 1) * (2*radius + 1)
	for y := int32(0); y < input.Height; y++ {
		for x := int32(0); x < input.Width; x++ {
			var sum uint32
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					sum += uint32(at(input, x+dx, y+dy))
				}
			}
			out.Pix[y*out.Stride+x] = uint16(sum / uint32(n))
		}
	}
	return out
}

func windowMin(input omeinfo.Matrix, radius int32) omeinfo.Matrix {
	if radius <= 0 {
		return input
	}
	out := omeinfo.Matrix{Width: input.Width, Height: input.Height, Stride: input.Width, Pix: make([]uint16, input.Width*input.Height)}
	for y := int32(0); y < input.Height; y++ {
		for x := int32(0); x < input.Width; x++ {
			min := at(input, x, y)
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					if v := at(input, x+dx, y+dy); v < min {
						min = v
					}
				}
			}
			out.Pix[y*out.Stride+x] = min
		}
	}
	return out
}

func windowMedian(input omeinfo.Matrix, radius int32) omeinfo.Matrix {
	if radius <= 0 {
		return input
	}
	out := omeinfo.Matrix{Width: input.Width, Height: input.Height, Stride: input.Width, Pix: make([]uint16, input.Width*input.Height)}
	n := (2*radius + 1) * (2*radius + 1)
	window := make([]uint16, n)
	for y := int32(0); y < input.Height; y++ {
		for x := int32(0); x < input.Width; x++ {
			idx := 0
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					window[idx] = at(input, x+dx, y+dy)
					idx++
				}
			}
			sort.Slice(window, func(i, j int) bool { return window[i] < window[j] })
			out.Pix[y*out.Stride+x] = window[len(window)/2]
		}
	}
	return out
}

// sobelKernelX/Y are the standard 3x3 Sobel kernels.
var sobelKernelX = [3][3]int32{{-1, 0, 1}, {-2, 0, 2}, {-1, 0, 1}}
var sobelKernelY = [3][3]int32{{-1, -2, -1}, {0, 0, 0}, {1, 2, 1}}

func sobel(input omeinfo.Matrix, horizontal bool) omeinfo.Matrix {
	kernel := sobelKernelY
	if horizontal {
		kernel = sobelKernelX
	}
	out := omeinfo.Matrix{Width: input.Width, Height: input.Height, Stride: input.Width, Pix: make([]uint16, input.Width*input.Height)}
	for y := int32(0); y < input.Height; y++ {
		for x := int32(0); x < input.Width; x++ {
			var acc int32
			for dy := int32(-1); dy <= 1; dy++ {
				for dx := int32(-1); dx <= 1; dx++ {
					acc += int32(at(input, x+dx, y+dy)) * kernel[dy+1][dx+1]
				}
			}
			if acc < 0 {
				acc = -acc
			}
			if acc > 0xFFFF {
				acc = 0xFFFF
			}
			out.Pix[y*out.Stride+x] = uint16(acc)
		}
	}
	return out
}

// otsuLevel computes the Otsu threshold over a 16-bit histogram bucketed
// into 256 bins, the same bucketing ImageJ-family implementations use to
// keep the between-class-variance scan cheap.
func otsuLevel(m omeinfo.Matrix) uint16 {
	const bins = 256
	var hist [bins]int
	for _, v := range m.Pix {
		hist[v>>8]++
	}
	total := len(m.Pix)
	var sum float64
	for i, c := range hist {
		sum += float64(i) * float64(c)
	}
	var sumB, wB, wF float64
	var best float64
	bestIdx := 0
	for i, c := range hist {
		wB += float64(c)
		if wB == 0 {
			continue
		}
		wF = float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(i) * float64(c)
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			bestIdx = i
		}
	}
	return uint16(bestIdx) << 8
}
