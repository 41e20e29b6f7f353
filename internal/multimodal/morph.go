package multimodal

import (
	"image"
	"image/color"
)

// inkThreshold 低于该亮度的像素视为墨迹
const inkThreshold = 128

// binaryMask 宽高与位图，true 表示前景
type binaryMask struct {
	W, H int
	Bits []bool
}

func newBinaryMask(w, h int) *binaryMask {
	return &binaryMask{W: w, H: h, Bits: make([]bool, w*h)}
}

func (m *binaryMask) at(x, y int) bool {
	return m.Bits[y*m.W+x]
}

func (m *binaryMask) set(x, y int, v bool) {
	m.Bits[y*m.W+x] = v
}

// thresholdInk 将图像二值化为墨迹掩码
func thresholdInk(img image.Image) *binaryMask {
	bounds := img.Bounds()
	mask := newBinaryMask(bounds.Dx(), bounds.Dy())
	for y := 0; y < mask.H; y++ {
		for x := 0; x < mask.W; x++ {
			g := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			if g.Y < inkThreshold {
				mask.set(x, y, true)
			}
		}
	}
	return mask
}

// openHorizontal 水平方向开运算（先腐蚀后膨胀），只保留长横线
func openHorizontal(mask *binaryMask, length int) *binaryMask {
	return dilateHorizontal(erodeHorizontal(mask, length), length)
}

// openVertical 垂直方向开运算，只保留长竖线
func openVertical(mask *binaryMask, length int) *binaryMask {
	return dilateVertical(erodeVertical(mask, length), length)
}

// erodeHorizontal 每行用长度为 length 的窗口腐蚀
// 利用滑动窗口内前景计数，整体 O(W*H)
func erodeHorizontal(mask *binaryMask, length int) *binaryMask {
	out := newBinaryMask(mask.W, mask.H)
	half := length / 2
	for y := 0; y < mask.H; y++ {
		count := 0
		for x := 0; x < mask.W+half; x++ {
			if x < mask.W && mask.at(x, y) {
				count++
			}
			if left := x - length; left >= 0 && mask.at(left, y) {
				count--
			}
			center := x - half
			if center >= 0 && center < mask.W {
				window := min(x+1, mask.W) - max(x-length+1, 0)
				out.set(center, y, count == window && window == length)
			}
		}
	}
	return out
}

// dilateHorizontal 每行用长度为 length 的窗口膨胀
func dilateHorizontal(mask *binaryMask, length int) *binaryMask {
	out := newBinaryMask(mask.W, mask.H)
	half := length / 2
	for y := 0; y < mask.H; y++ {
		count := 0
		for x := 0; x < mask.W+half; x++ {
			if x < mask.W && mask.at(x, y) {
				count++
			}
			if left := x - length; left >= 0 && mask.at(left, y) {
				count--
			}
			center := x - half
			if center >= 0 && center < mask.W {
				out.set(center, y, count > 0)
			}
		}
	}
	return out
}

// erodeVertical 每列用长度为 length 的窗口腐蚀
func erodeVertical(mask *binaryMask, length int) *binaryMask {
	out := newBinaryMask(mask.W, mask.H)
	half := length / 2
	for x := 0; x < mask.W; x++ {
		count := 0
		for y := 0; y < mask.H+half; y++ {
			if y < mask.H && mask.at(x, y) {
				count++
			}
			if top := y - length; top >= 0 && mask.at(x, top) {
				count--
			}
			center := y - half
			if center >= 0 && center < mask.H {
				window := min(y+1, mask.H) - max(y-length+1, 0)
				out.set(x, center, count == window && window == length)
			}
		}
	}
	return out
}

// dilateVertical 每列用长度为 length 的窗口膨胀
func dilateVertical(mask *binaryMask, length int) *binaryMask {
	out := newBinaryMask(mask.W, mask.H)
	half := length / 2
	for x := 0; x < mask.W; x++ {
		count := 0
		for y := 0; y < mask.H+half; y++ {
			if y < mask.H && mask.at(x, y) {
				count++
			}
			if top := y - length; top >= 0 && mask.at(x, top) {
				count--
			}
			center := y - half
			if center >= 0 && center < mask.H {
				out.set(x, center, count > 0)
			}
		}
	}
	return out
}

// union 两掩码按位或
func union(a, b *binaryMask) *binaryMask {
	out := newBinaryMask(a.W, a.H)
	for i := range out.Bits {
		out.Bits[i] = a.Bits[i] || b.Bits[i]
	}
	return out
}

// connectedComponents 8 连通分量的外接矩形，过滤小于 minArea 的区域
func connectedComponents(mask *binaryMask, minArea int) []image.Rectangle {
	visited := make([]bool, len(mask.Bits))
	var regions []image.Rectangle

	var queue []int
	for start := range mask.Bits {
		if !mask.Bits[start] || visited[start] {
			continue
		}

		minX, minY := mask.W, mask.H
		maxX, maxY := 0, 0
		area := 0

		queue = queue[:0]
		queue = append(queue, start)
		visited[start] = true
		for len(queue) > 0 {
			idx := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			x, y := idx%mask.W, idx/mask.W

			area++
			minX = min(minX, x)
			minY = min(minY, y)
			maxX = max(maxX, x)
			maxY = max(maxY, y)

			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= mask.W || ny >= mask.H {
						continue
					}
					nidx := ny*mask.W + nx
					if mask.Bits[nidx] && !visited[nidx] {
						visited[nidx] = true
						queue = append(queue, nidx)
					}
				}
			}
		}

		rect := image.Rect(minX, minY, maxX+1, maxY+1)
		if rect.Dx()*rect.Dy() > minArea && area > 0 {
			regions = append(regions, rect)
		}
	}
	return regions
}
