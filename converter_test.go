// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pbr

import (
	"context"
	"errors"
	"math"
	"testing"
)

// channelTolerance is the largest per-channel difference allowed between
// the CPU and accelerated paths.
const channelTolerance = 1.0 / 255

func cpuSet() *ConverterSet {
	return NewConverterSet(NewExecutor(NewCapability(nil), nil), DefaultSettings())
}

func TestConvertersPreserveDimensions(t *testing.T) {
	cs := cpuSet()
	sizes := []struct{ w, h int }{{1, 1}, {3, 2}, {9, 17}}

	for _, kind := range AllMapKinds() {
		for _, sz := range sizes {
			base := gradientRaster(sz.w, sz.h)
			got, err := cs.Get(kind).ConvertCPU(base)
			if err != nil {
				t.Fatalf("%s %dx%d: ConvertCPU() error = %v", kind, sz.w, sz.h, err)
			}
			if got == base {
				t.Errorf("%s: ConvertCPU returned its input", kind)
			}
			if got.Width() != sz.w || got.Height() != sz.h {
				t.Errorf("%s: size %dx%d, want %dx%d", kind, got.Width(), got.Height(), sz.w, sz.h)
			}
		}
	}
}

func TestConverterKinds(t *testing.T) {
	cs := cpuSet()
	for _, kind := range AllMapKinds() {
		if got := cs.Get(kind).Kind(); got != kind {
			t.Errorf("Get(%s).Kind() = %s", kind, got)
		}
	}
	if cs.Get(mapKindCount) != nil {
		t.Error("Get(unknown) should be nil")
	}
}

func TestUniformGrayHeightAndAO(t *testing.T) {
	for _, v := range []float64{0, 0.25, 0.5, 0.8, 1} {
		base := uniformRaster(4, 3, Gray(v))

		h, err := (&HeightConverter{}).ConvertCPU(base)
		if err != nil {
			t.Fatal(err)
		}
		ao, err := (&AOConverter{}).ConvertCPU(base)
		if err != nil {
			t.Fatal(err)
		}
		assertRastersClose(t, "height", h, uniformRaster(4, 3, Gray(v)), 1e-6)
		assertRastersClose(t, "ao", ao, uniformRaster(4, 3, Gray(1-v)), 1e-6)
	}
}

func TestCheckerHeightAndAO(t *testing.T) {
	base := NewRaster(2, 2)
	base.Set(0, 0, White)
	base.Set(1, 0, Black)
	base.Set(0, 1, White)
	base.Set(1, 1, Black)

	h, err := (&HeightConverter{}).ConvertCPU(base)
	if err != nil {
		t.Fatal(err)
	}
	ao, err := (&AOConverter{}).ConvertCPU(base)
	if err != nil {
		t.Fatal(err)
	}

	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			want := base.At(x, y).R
			hp, ap := h.At(x, y), ao.At(x, y)
			if !near(hp.R, want) || !near(hp.G, want) || !near(hp.B, want) {
				t.Errorf("height(%d, %d) = %+v, want gray %v", x, y, hp, want)
			}
			if !near(ap.R, 1-hp.R) || !near(ap.G, 1-hp.G) || !near(ap.B, 1-hp.B) {
				t.Errorf("ao(%d, %d) = %+v, want inverse of %+v", x, y, ap, hp)
			}
		}
	}
}

func near(a, b float64) bool {
	return math.Abs(a-b) <= 1e-6
}

func TestHeightKeepsAlpha(t *testing.T) {
	base := uniformRaster(2, 2, RGBA{R: 0.2, G: 0.4, B: 0.6, A: 0.5})
	h, err := (&HeightConverter{}).ConvertCPU(base)
	if err != nil {
		t.Fatal(err)
	}
	if a := h.At(1, 1).A; a != 0.5 {
		t.Errorf("height alpha = %v, want 0.5", a)
	}

	ao, err := (&AOConverter{}).ConvertCPU(base)
	if err != nil {
		t.Fatal(err)
	}
	if a := ao.At(1, 1).A; a != 1 {
		t.Errorf("ao alpha = %v, want 1", a)
	}
}

func TestSinglePixelNeighborhoods(t *testing.T) {
	base := uniformRaster(1, 1, RGB(0.7, 0.3, 0.1))

	r, err := (&RoughnessConverter{}).ConvertCPU(base)
	if err != nil {
		t.Fatalf("roughness: %v", err)
	}
	if got := r.At(0, 0); got != Gray(0) {
		t.Errorf("roughness = %+v, want black", got)
	}

	n, err := (&NormalConverter{}).ConvertCPU(base)
	if err != nil {
		t.Fatalf("normal: %v", err)
	}
	if got := n.At(0, 0); got != RGB(0.5, 0.5, 1) {
		t.Errorf("normal = %+v, want (0.5, 0.5, 1)", got)
	}
}

func TestNormalFlatAndSlope(t *testing.T) {
	flat, err := (&NormalConverter{}).ConvertCPU(uniformRaster(5, 5, Gray(0.4)))
	if err != nil {
		t.Fatal(err)
	}
	assertRastersClose(t, "flat normal", flat, uniformRaster(5, 5, RGB(0.5, 0.5, 1)), 1e-6)

	// Brightness rising to the right tilts normals towards -x.
	ramp := NewRaster(5, 1)
	for x := 0; x < 5; x++ {
		ramp.Set(x, 0, Gray(float64(x)/4))
	}
	n, err := (&NormalConverter{}).ConvertCPU(ramp)
	if err != nil {
		t.Fatal(err)
	}
	if got := n.At(2, 0); got.R >= 0.5 || got.G != 0.5 {
		t.Errorf("ramp normal = %+v, want R < 0.5 and G = 0.5", got)
	}
}

func TestNormalLegacyStrengthSaturates(t *testing.T) {
	c := &NormalConverter{Strength: LegacyNormalStrength}
	n, err := c.ConvertCPU(uniformRaster(2, 2, Gray(0.5)))
	if err != nil {
		t.Fatal(err)
	}
	// (0, 0, 1) * 5 remaps to (0.5, 0.5, 3) and clamps to (0.5, 0.5, 1).
	if got := n.At(0, 0); got != RGB(0.5, 0.5, 1) {
		t.Errorf("legacy flat normal = %+v, want (0.5, 0.5, 1)", got)
	}
}

func TestGlossinessInvertsRoughness(t *testing.T) {
	base := gradientRaster(7, 5)

	rough, err := (&RoughnessConverter{}).ConvertCPU(base)
	if err != nil {
		t.Fatal(err)
	}
	gloss, err := (&GlossinessConverter{}).ConvertCPU(base)
	if err != nil {
		t.Fatal(err)
	}

	for y := 0; y < base.Height(); y++ {
		for x := 0; x < base.Width(); x++ {
			want := float32(clamp01(1 - rough.At(x, y).Grayscale()))
			i := (y*base.Width() + x) * Channels
			if got := gloss.Pix()[i]; got != want {
				t.Fatalf("glossiness(%d, %d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestGlossinessContrastMode(t *testing.T) {
	base := NewRaster(3, 1)
	base.Set(0, 0, Gray(0.2))
	base.Set(1, 0, Gray(0.9))
	base.Set(2, 0, Gray(0.5))

	g, err := (&GlossinessConverter{Mode: GlossinessContrast}).ConvertCPU(base)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{1 - 0.7, 1 - 0.4, 1} // the last pixel clamps to itself
	for x, w := range want {
		if got := g.At(x, 0).R; !near(got, w) {
			t.Errorf("contrast glossiness(%d) = %v, want %v", x, got, w)
		}
	}
}

func TestMetallicAndSpecular(t *testing.T) {
	tests := []struct {
		name     string
		in       RGBA
		metallic float64
		specular RGBA
	}{
		{"white", White, 1, White},
		{"black", Black, 0, Black},
		{"pure red", RGB(1, 0, 0), 0, RGB(0.799, 0, 0)},
		{"gray", Gray(0.5), 0.5, Gray(0.5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := uniformRaster(1, 1, tt.in)
			m, err := (&MetallicConverter{}).ConvertCPU(base)
			if err != nil {
				t.Fatal(err)
			}
			s, err := (&SpecularConverter{}).ConvertCPU(base)
			if err != nil {
				t.Fatal(err)
			}
			assertRastersClose(t, "metallic", m, uniformRaster(1, 1, Gray(tt.metallic)), 1e-6)
			assertRastersClose(t, "specular", s, uniformRaster(1, 1, tt.specular), 1e-6)
		})
	}
}

func TestDiffuseUsesLinearLuminance(t *testing.T) {
	d, err := (&DiffuseConverter{}).ConvertCPU(uniformRaster(1, 1, RGB(0, 1, 0)))
	if err != nil {
		t.Fatal(err)
	}
	if got := d.At(0, 0).R; !near(got, 0.7152) {
		t.Errorf("diffuse(green) = %v, want 0.7152", got)
	}
}

func TestAcceleratedMatchesCPU(t *testing.T) {
	for _, bottomUp := range []bool{false, true} {
		tile := NewTileAccelerator(4)
		tile.BottomUp = bottomUp
		if err := tile.Init(); err != nil {
			t.Fatal(err)
		}
		t.Cleanup(tile.Close)

		base := gradientRaster(19, 13)
		for _, mode := range []GlossinessMode{GlossinessInverseRoughness, GlossinessContrast} {
			s := DefaultSettings()
			s.Glossiness = mode
			cs := NewConverterSet(NewExecutor(enabled(), tile), s)

			for _, kind := range AllMapKinds() {
				conv := cs.Get(kind)
				want, err := conv.ConvertCPU(base)
				if err != nil {
					t.Fatalf("%s: ConvertCPU() error = %v", kind, err)
				}
				r := waitResult(t, conv.ConvertAccelerated(context.Background(), base))
				if r.Err != nil {
					t.Fatalf("%s: ConvertAccelerated() error = %v", kind, r.Err)
				}
				name := kind.String()
				if bottomUp {
					name += " bottom-up"
				}
				assertRastersClose(t, name, r.Raster, want, channelTolerance)
			}
		}
	}
}

func TestAcceleratedFallback(t *testing.T) {
	base := gradientRaster(6, 4)
	want, err := (&AOConverter{}).ConvertCPU(base)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name         string
		mock         *mockAccelerator
		capability   *Capability
		wantDispatch int
	}{
		{
			name:         "kernel init failure",
			mock:         &mockAccelerator{fail: map[Kernel]error{KernelAO: ErrKernelInitializationFailed}},
			capability:   enabled(),
			wantDispatch: 1,
		},
		{
			name:         "fallback after dispatch",
			mock:         &mockAccelerator{fail: map[Kernel]error{KernelAO: ErrFallbackToCPU}},
			capability:   enabled(),
			wantDispatch: 1,
		},
		{
			name:         "unsupported kernel",
			mock:         &mockAccelerator{unsupported: map[Kernel]bool{KernelAO: true}},
			capability:   enabled(),
			wantDispatch: 0,
		},
		{
			name:         "no capability",
			mock:         &mockAccelerator{},
			capability:   NewCapability(nil),
			wantDispatch: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &AOConverter{Exec: NewExecutor(tt.capability, tt.mock)}
			r := waitResult(t, c.ConvertAccelerated(context.Background(), base))
			if r.Err != nil {
				t.Fatalf("ConvertAccelerated() error = %v, want CPU fallback", r.Err)
			}
			assertRastersClose(t, "ao", r.Raster, want, 0)
			if got := tt.mock.dispatches(KernelAO); got != tt.wantDispatch {
				t.Errorf("dispatches = %d, want %d", got, tt.wantDispatch)
			}
		})
	}
}

func TestAccelerationSwitchedOff(t *testing.T) {
	mock := &mockAccelerator{}
	c := enabled()
	c.SetAcceleration(false)

	cs := NewConverterSet(NewExecutor(c, mock), DefaultSettings())
	for _, kind := range AllMapKinds() {
		r := waitResult(t, cs.Get(kind).ConvertAccelerated(context.Background(), gradientRaster(3, 3)))
		if r.Err != nil {
			t.Fatalf("%s: %v", kind, r.Err)
		}
	}
	if n := mock.totalDispatches(); n != 0 {
		t.Errorf("dispatches = %d with acceleration off, want 0", n)
	}
}

func TestAcceleratedReadbackFailure(t *testing.T) {
	mock := &mockAccelerator{fail: map[Kernel]error{KernelMetallic: ErrReadbackFailed}}
	c := &MetallicConverter{Exec: NewExecutor(enabled(), mock)}

	r := waitResult(t, c.ConvertAccelerated(context.Background(), gradientRaster(4, 4)))
	if !errors.Is(r.Err, ErrReadbackFailed) {
		t.Fatalf("error = %v, want ErrReadbackFailed", r.Err)
	}
	if r.Raster != nil {
		t.Error("failed conversion returned a raster")
	}
	var ce *ConversionError
	if !errors.As(r.Err, &ce) || ce.Kind != Metallic {
		t.Errorf("error = %v, want ConversionError for metallic", r.Err)
	}
}

func TestAcceleratedSizeMismatch(t *testing.T) {
	mock := &mockAccelerator{resize: true}
	c := &HeightConverter{Exec: NewExecutor(enabled(), mock)}

	r := waitResult(t, c.ConvertAccelerated(context.Background(), gradientRaster(4, 4)))
	if !errors.Is(r.Err, ErrReadbackFailed) {
		t.Errorf("error = %v, want ErrReadbackFailed", r.Err)
	}
}

func TestCompositeDependencyFailure(t *testing.T) {
	tests := []struct {
		name      string
		kind      MapKind
		failing   Kernel
		dependent Kernel
	}{
		{"normal after height", Normal, KernelHeight, KernelNormal},
		{"glossiness after roughness", Glossiness, KernelRoughness, KernelGlossiness},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockAccelerator{fail: map[Kernel]error{tt.failing: ErrReadbackFailed}}
			cs := NewConverterSet(NewExecutor(enabled(), mock), DefaultSettings())

			r := waitResult(t, cs.Get(tt.kind).ConvertAccelerated(context.Background(), gradientRaster(5, 5)))
			if !errors.Is(r.Err, ErrDependencyFailed) {
				t.Fatalf("error = %v, want ErrDependencyFailed", r.Err)
			}
			if !errors.Is(r.Err, ErrReadbackFailed) {
				t.Errorf("error = %v, should keep the dependency's cause", r.Err)
			}
			var ce *ConversionError
			if !errors.As(r.Err, &ce) || ce.Kind != tt.kind {
				t.Errorf("error = %v, want ConversionError for %s", r.Err, tt.kind)
			}
			if n := mock.dispatches(tt.dependent); n != 0 {
				t.Errorf("%s dispatched %d times after its dependency failed", tt.dependent, n)
			}
		})
	}
}

func TestCompositeAwaitsDependency(t *testing.T) {
	mock := &mockAccelerator{}
	cs := NewConverterSet(NewExecutor(enabled(), mock), DefaultSettings())
	base := gradientRaster(6, 6)

	r := waitResult(t, cs.Get(Normal).ConvertAccelerated(context.Background(), base))
	if r.Err != nil {
		t.Fatal(r.Err)
	}
	if mock.dispatches(KernelHeight) != 1 || mock.dispatches(KernelNormal) != 1 {
		t.Errorf("dispatches height=%d normal=%d, want 1 each",
			mock.dispatches(KernelHeight), mock.dispatches(KernelNormal))
	}
	want, err := cs.Get(Normal).ConvertCPU(base)
	if err != nil {
		t.Fatal(err)
	}
	assertRastersClose(t, "normal", r.Raster, want, channelTolerance)
}

func TestConvertInvalidRaster(t *testing.T) {
	cs := NewConverterSet(NewExecutor(enabled(), &mockAccelerator{}), DefaultSettings())
	bad := []*Raster{nil, NewRaster(0, 0), {width: 2, height: 2, pix: make([]float32, 3)}}

	for _, kind := range AllMapKinds() {
		for _, r := range bad {
			if _, err := cs.Get(kind).ConvertCPU(r); !errors.Is(err, ErrInvalidRaster) {
				t.Errorf("%s: ConvertCPU() error = %v, want ErrInvalidRaster", kind, err)
			}
			res := waitResult(t, cs.Get(kind).ConvertAccelerated(context.Background(), r))
			if !errors.Is(res.Err, ErrInvalidRaster) {
				t.Errorf("%s: ConvertAccelerated() error = %v, want ErrInvalidRaster", kind, res.Err)
			}
		}
	}
}

func TestNilExecutorUsesDefault(t *testing.T) {
	var e *Executor
	if e.Capability() != DefaultCapability() {
		t.Error("nil executor should use the default capability")
	}
	if NewExecutor(nil, nil).Capability() != DefaultCapability() {
		t.Error("NewExecutor(nil, nil) should use the default capability")
	}
}

func BenchmarkConvertCPU(b *testing.B) {
	base := gradientRaster(256, 256)
	cs := cpuSet()
	for _, kind := range AllMapKinds() {
		b.Run(kind.String(), func(b *testing.B) {
			conv := cs.Get(kind)
			for b.Loop() {
				if _, err := conv.ConvertCPU(base); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkConvertTiles(b *testing.B) {
	tile := NewTileAccelerator(0)
	if err := tile.Init(); err != nil {
		b.Fatal(err)
	}
	defer tile.Close()

	base := gradientRaster(256, 256)
	cs := NewConverterSet(NewExecutor(enabled(), tile), DefaultSettings())
	for _, kind := range AllMapKinds() {
		b.Run(kind.String(), func(b *testing.B) {
			conv := cs.Get(kind)
			for b.Loop() {
				if r := <-conv.ConvertAccelerated(context.Background(), base); r.Err != nil {
					b.Fatal(r.Err)
				}
			}
		})
	}
}
