package light

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		input   string
		want    Color
		wantErr bool
	}{
		{input: "123456", want: Color{R: 0x12, G: 0x34, B: 0x56}},
		{input: "#ff8000", want: Color{R: 255, G: 128}},
		{input: " 00FF00\n", want: Color{G: 255}},
		{input: "FF000080", want: Color{R: 255}},
		{input: "FF0000", want: Color{R: 255}},
		{input: "", wantErr: true},
		{input: "#FFF", wantErr: true},
		{input: "FF00000", wantErr: true},
		{input: "GG0000", wantErr: true},
		{input: "FF0000ZZ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseHexColor(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidColor)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestColorHex(t *testing.T) {
	assert.Equal(t, "123456", Color{R: 18, G: 52, B: 86}.Hex())
	assert.Equal(t, "FFFFFF", White.Hex())
	assert.Equal(t, "000A00", Color{G: 10}.Hex())
}

func TestScaleToDevice(t *testing.T) {
	tests := []struct {
		b     uint8
		scale int
		want  int
	}{
		{b: 0, scale: 100, want: 0},
		{b: 1, scale: 100, want: 0},
		{b: 254, scale: 100, want: 99},
		{b: 255, scale: 100, want: 100},
		{b: 255, scale: 255, want: 255},
		{b: 128, scale: 255, want: 128},
		{b: 255, scale: 1, want: 1},
		{b: 254, scale: 1, want: 0},
	}
	for _, tt := range tests {
		if got := scaleToDevice(tt.b, tt.scale); got != tt.want {
			t.Errorf("scaleToDevice(%d, %d) = %d, want %d", tt.b, tt.scale, got, tt.want)
		}
	}
}

func TestScaleFromDevice_RoundTripsFullScale(t *testing.T) {
	for _, scale := range []int{1, 10, 100, 255, 1000} {
		out := scaleToDevice(MaxBrightness, scale)
		assert.Equal(t, scale, out, "scale %d", scale)
		assert.Equal(t, uint8(MaxBrightness), scaleFromDevice(float64(out), scale), "scale %d", scale)
	}
}

func TestEffectCatalog(t *testing.T) {
	c := NewEffectCatalog([]string{"solid", "rainbow", "solid"})

	assert.Equal(t, 3, c.Len())

	i, ok := c.Index("solid")
	assert.True(t, ok)
	assert.Equal(t, 0, i)

	_, ok = c.Index("strobe")
	assert.False(t, ok)

	name, err := c.Name(1)
	require.NoError(t, err)
	assert.Equal(t, "rainbow", name)

	_, err = c.Name(3)
	assert.ErrorIs(t, err, ErrEffectOutOfRange)

	names := c.Names()
	names[0] = "mutated"
	n0, _ := c.Name(0)
	assert.Equal(t, "solid", n0)
}

func TestDefaultEffectsIndices(t *testing.T) {
	c := NewEffectCatalog(DefaultEffects)
	require.Equal(t, 12, c.Len())

	for want, name := range DefaultEffects {
		got, ok := c.Index(name)
		require.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
}

func TestChannelString(t *testing.T) {
	assert.Equal(t, "power", ChannelPower.String())
	assert.Equal(t, "effect", ChannelEffect.String())
	assert.Equal(t, "channel(7)", Channel(7).String())
}

func TestFeaturesHas(t *testing.T) {
	f := SupportBrightness | SupportEffect
	assert.True(t, f.Has(SupportBrightness))
	assert.True(t, f.Has(SupportBrightness|SupportEffect))
	assert.False(t, f.Has(SupportColor))
}
