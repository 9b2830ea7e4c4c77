package ocr

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPayloadJoinsInEmissionOrder(t *testing.T) {
	r := Result{
		{Text: "second line", Confidence: 0.2, Bounds: image.Rect(0, 40, 80, 60)},
		{Text: "first line", Confidence: 0.99, Bounds: image.Rect(0, 0, 80, 20)},
		{Text: "", Confidence: 0.01},
	}
	assert.Equal(t, "second line\nfirst line\n", r.Payload())
	assert.Equal(t, []string{"second line", "first line", ""}, r.Texts())
}

func TestPayloadEmpty(t *testing.T) {
	assert.Equal(t, "", Result{}.Payload())
	assert.Equal(t, "", Result(nil).Payload())
}

func TestSortReadingOrder(t *testing.T) {
	r := Result{
		{Text: "C", Bounds: image.Rect(0, 100, 50, 120)},
		{Text: "B", Bounds: image.Rect(200, 2, 260, 22)},
		{Text: "A", Bounds: image.Rect(10, 0, 60, 20)},
	}
	sorted := r.SortReadingOrder()

	assert.Equal(t, "A\nB\nC", sorted.Payload())
	assert.Equal(t, "C", r[0].Text, "the original order is left untouched")
}

func TestSameLine(t *testing.T) {
	tests := []struct {
		name string
		a, b image.Rectangle
		want bool
	}{
		{"identical rows", image.Rect(0, 0, 10, 20), image.Rect(20, 0, 30, 20), true},
		{"slight offset", image.Rect(0, 0, 10, 20), image.Rect(20, 6, 30, 26), true},
		{"stacked", image.Rect(0, 0, 10, 20), image.Rect(0, 20, 10, 40), false},
		{"empty box", image.Rectangle{}, image.Rect(0, 0, 10, 10), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sameLine(tt.a, tt.b))
		})
	}
}
