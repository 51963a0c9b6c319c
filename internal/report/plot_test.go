package report

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulsecli/internal/analysis"
)

func TestRenderPNG(t *testing.T) {
	result := analyzedResult(t)

	data, err := RenderPNG(result, "Chn 1 Current")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, plotWidth, img.Bounds().Dx())
	assert.Equal(t, plotHeight, img.Bounds().Dy())
}

func TestRenderPNG_DefaultChannel(t *testing.T) {
	result := analyzedResult(t)

	data, err := RenderPNG(result, "")
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestRenderPNG_UnknownChannel(t *testing.T) {
	result := analyzedResult(t)

	_, err := RenderPNG(result, "Chn 7 Current")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Chn 7 Current")
}

func TestRenderPNG_NoChannels(t *testing.T) {
	_, err := RenderPNG(&analysis.Result{}, "")
	require.Error(t, err)
}

func TestFindChannel(t *testing.T) {
	result := analyzedResult(t)

	ch, err := findChannel(result, "Chn 1 Current")
	require.NoError(t, err)
	assert.Equal(t, "Chn 1 Current", ch.Channel)
}
