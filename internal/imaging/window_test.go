package imaging

import "testing"

func TestPresetBounds(t *testing.T) {
	cases := []struct {
		preset Preset
		min    int
		max    int
	}{
		{PresetLung, -1150, 350},
		{PresetBone, -450, 1050},
		{PresetSoft, -162, 272},
	}
	for _, tc := range cases {
		t.Run(tc.preset.Name, func(t *testing.T) {
			min, max := tc.preset.Bounds()
			if min != tc.min || max != tc.max {
				t.Fatalf("Bounds() = (%d, %d), want (%d, %d)", min, max, tc.min, tc.max)
			}
		})
	}
}

func TestPresetApply(t *testing.T) {
	hu := []float64{-2000, -1150, -400, 350, 1000}
	got := PresetLung.Apply(hu)

	// Below the window clips to 0, above to 255, the level sits mid-window.
	want := []uint8{0, 0, 127, 255, 255}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Apply[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestPresetApplySoftOddWidth(t *testing.T) {
	// The soft window is 435 wide; integer halving on both sides gives
	// the interval [-162, 272], so rescaling spans 434.
	got := PresetSoft.Apply([]float64{-162, 55, 272, 273})

	want := []uint8{0, 127, 255, 255}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Apply[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestPresetApplyDoesNotModifyInput(t *testing.T) {
	hu := []float64{-924, 100}
	_ = PresetBone.Apply(hu)
	if hu[0] != -924 || hu[1] != 100 {
		t.Fatalf("input modified: %v", hu)
	}
}

func TestPresetsIndependent(t *testing.T) {
	hu := []float64{-924, -100, 55, 300}

	lungFirst := PresetLung.Apply(hu)
	boneFirst := PresetBone.Apply(hu)

	// Order of application cannot matter; each preset reads the same HU data.
	boneSecond := PresetBone.Apply(hu)
	lungSecond := PresetLung.Apply(hu)

	for i := range hu {
		if lungFirst[i] != lungSecond[i] {
			t.Errorf("lung preset not stable at %d: %d vs %d", i, lungFirst[i], lungSecond[i])
		}
		if boneFirst[i] != boneSecond[i] {
			t.Errorf("bone preset not stable at %d: %d vs %d", i, boneFirst[i], boneSecond[i])
		}
	}
}

func TestHounsfieldConversion(t *testing.T) {
	// Typical CT calibration: slope 1, intercept -1024.
	raw := 100.0
	hu := raw*1 + -1024
	if hu != -924 {
		t.Fatalf("HU = %f, want -924", hu)
	}

	got := PresetLung.Apply([]float64{hu})
	// (-924 - (-1150)) / 1500 * 255 = 38.42, truncated.
	if got[0] != 38 {
		t.Fatalf("windowed value = %d, want 38", got[0])
	}
}
