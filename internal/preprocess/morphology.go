package preprocess

// Morphological operators on binary maps with rectangular structuring
// elements. Kernel dimensions are width×height; a 25×1 kernel bridges
// horizontal gaps, a 1×25 kernel vertical ones.

// Erode keeps a pixel only when the whole kernel neighborhood is foreground.
func Erode(b *BinaryMap, kw, kh int) *BinaryMap {
	if kw < 1 {
		kw = 1
	}
	if kh < 1 {
		kh = 1
	}
	out := NewBinaryMap(b.Width, b.Height)
	hx, hy := kw/2, kh/2
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			keep := true
			for dy := -hy; dy <= kh-1-hy && keep; dy++ {
				for dx := -hx; dx <= kw-1-hx; dx++ {
					if !b.At(x+dx, y+dy) {
						keep = false
						break
					}
				}
			}
			out.Bits[y*b.Width+x] = keep
		}
	}
	return out
}

// Dilate sets a pixel when any kernel neighbor is foreground.
func Dilate(b *BinaryMap, kw, kh int) *BinaryMap {
	if kw < 1 {
		kw = 1
	}
	if kh < 1 {
		kh = 1
	}
	out := NewBinaryMap(b.Width, b.Height)
	hx, hy := kw/2, kh/2
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			hit := false
			for dy := -hy; dy <= kh-1-hy && !hit; dy++ {
				for dx := -hx; dx <= kw-1-hx; dx++ {
					if b.At(x+dx, y+dy) {
						hit = true
						break
					}
				}
			}
			out.Bits[y*b.Width+x] = hit
		}
	}
	return out
}

// Open removes speckle smaller than the kernel: erosion then dilation.
func Open(b *BinaryMap, kw, kh int) *BinaryMap {
	return Dilate(Erode(b, kw, kh), kw, kh)
}

// Close bridges gaps smaller than the kernel: dilation then erosion.
func Close(b *BinaryMap, kw, kh int) *BinaryMap {
	return Erode(Dilate(b, kw, kh), kw, kh)
}
