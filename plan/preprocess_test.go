package plan

import (
	"image"
	"image/color"
	"image/draw"
	"testing"
)

func grayImage(width, height int, value uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = value
	}
	return img
}

// ---------------------------------------------------------------------------
// otsuLevel
// ---------------------------------------------------------------------------

func TestOtsuLevel_Bimodal(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 100, 100))
	for i := range img.Pix {
		if i%2 == 0 {
			img.Pix[i] = 30
		} else {
			img.Pix[i] = 220
		}
	}

	level := otsuLevel(img)
	if level < 30 || level > 220 {
		t.Errorf("level = %d, want between the two modes", level)
	}
}

func TestOtsuLevel_UniformImage(t *testing.T) {
	// No two-class split exists; the level must leave the mask empty
	// rather than marking everything foreground.
	level := otsuLevel(grayImage(50, 50, 0))
	if level != 255 {
		t.Errorf("level = %d, want 255 for uniform image", level)
	}
}

// ---------------------------------------------------------------------------
// Preprocess
// ---------------------------------------------------------------------------

func TestPreprocess_BlankImage(t *testing.T) {
	white := image.NewRGBA(image.Rect(0, 0, 200, 200))
	draw.Draw(white, white.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	mask := Preprocess(white, DefaultDetectionConfig())
	if got := mask.Count(); got != 0 {
		t.Errorf("foreground pixels = %d, want 0 for blank image", got)
	}
}

func TestPreprocess_PolarityNormalization(t *testing.T) {
	light := image.NewRGBA(image.Rect(0, 0, 200, 200))
	draw.Draw(light, light.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(light, image.Rect(50, 50, 150, 150), image.NewUniform(color.Black), image.Point{}, draw.Src)

	dark := image.NewRGBA(image.Rect(0, 0, 200, 200))
	draw.Draw(dark, dark.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	draw.Draw(dark, image.Rect(50, 50, 150, 150), image.NewUniform(color.White), image.Point{}, draw.Src)

	cfg := DefaultDetectionConfig()
	lightMask := Preprocess(light, cfg)
	darkMask := Preprocess(dark, cfg)

	if lightMask.Count() == 0 || darkMask.Count() == 0 {
		t.Fatalf("counts = %d, %d, want foreground in both polarities",
			lightMask.Count(), darkMask.Count())
	}

	// Both polarities describe the same scene; the masks should be
	// nearly identical.
	diff := 0
	for i := range lightMask.Pix {
		if lightMask.Pix[i] != darkMask.Pix[i] {
			diff++
		}
	}
	if diff > 400 {
		t.Errorf("masks differ by %d pixels, want near-identical", diff)
	}

	// Foreground should sit inside the drawn region, not outside it.
	if lightMask.At(100, 100) != true {
		t.Error("center of drawn region not foreground")
	}
	if lightMask.At(10, 10) {
		t.Error("background corner marked foreground")
	}
}

func TestPreprocess_ClosesBrokenStroke(t *testing.T) {
	// A wall stroke with a one-pixel gap; morphological close bridges it
	// so the region stays one component.
	img := image.NewRGBA(image.Rect(0, 0, 120, 120))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(20, 20, 60, 100), image.NewUniform(color.Black), image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(61, 20, 100, 100), image.NewUniform(color.Black), image.Point{}, draw.Src)

	mask := Preprocess(img, DefaultDetectionConfig())
	contours := TraceContours(mask)

	outer := 0
	for _, c := range contours {
		if !c.Hole {
			outer++
		}
	}
	if outer != 1 {
		t.Errorf("components = %d, want 1 after closing the gap", outer)
	}
}

func TestPreprocess_RemovesSpeckle(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(30, 30, 130, 130), image.NewUniform(color.Black), image.Point{}, draw.Src)
	img.Set(180, 180, color.Black) // isolated noise pixel

	mask := Preprocess(img, DefaultDetectionConfig())
	if mask.At(180, 180) {
		t.Error("isolated speckle survived morphological open")
	}
	if !mask.At(80, 80) {
		t.Error("main region eroded away")
	}
}

// ---------------------------------------------------------------------------
// BinaryMask
// ---------------------------------------------------------------------------

func TestBinaryMask_OutOfBounds(t *testing.T) {
	m := NewBinaryMask(10, 10)
	m.Set(5, 5, true)

	if m.At(-1, 0) || m.At(0, -1) || m.At(10, 0) || m.At(0, 10) {
		t.Error("out-of-bounds At() should be background")
	}
	m.Set(-1, -1, true) // must not panic
	if got := m.Count(); got != 1 {
		t.Errorf("Count = %d, want 1", got)
	}
}
