package target

import (
	"testing"

	"github.com/SlpAus/daily-guess-backend/internal/catalog/catalogtest"
	"github.com/stretchr/testify/assert"
)

func TestRecencyWeight(t *testing.T) {
	assert.Equal(t, 1.0, RecencyWeight(0, false))
	assert.Equal(t, 0.05, RecencyWeight(0, true))
	assert.Equal(t, 0.05, RecencyWeight(-3, true))
	assert.InDelta(t, 0.1, RecencyWeight(1, true), 1e-9)
	assert.InDelta(t, 0.5, RecencyWeight(5, true), 1e-9)
	assert.Equal(t, 1.0, RecencyWeight(10, true))
	assert.Equal(t, 1.0, RecencyWeight(400, true))
}

func TestPickWeighted(t *testing.T) {
	weights := []float64{0.5, 1, 0.25}
	assert.Equal(t, 0, PickWeighted(weights, 0))
	assert.Equal(t, 0, PickWeighted(weights, 0.5))
	assert.Equal(t, 1, PickWeighted(weights, 0.6))
	assert.Equal(t, 2, PickWeighted(weights, 1.7))
	// 浮点误差导致遍历结束仍有剩余时返回最后一个
	assert.Equal(t, 2, PickWeighted(weights, 5))
	assert.Equal(t, -1, PickWeighted(nil, 0))
}

func TestWeightingFavoursStaleEntities(t *testing.T) {
	weights := []float64{
		RecencyWeight(1, true),
		RecencyWeight(5, true),
		RecencyWeight(0, false),
	}
	total := TotalWeight(weights)
	random := NewSeededRandom(7)

	counts := make([]int, len(weights))
	for i := 0; i < 10000; i++ {
		counts[PickWeighted(weights, random()*total)]++
	}
	assert.Less(t, counts[0], counts[1])
	assert.Less(t, counts[1], counts[2])
	assert.InDelta(t, 10000*weights[2]/total, counts[2], 300)
}

func TestParseRef(t *testing.T) {
	assert.Equal(t, IDRef(12), ParseRef("12"))
	assert.Equal(t, Ref{Name: "012"}, ParseRef("012"))
	assert.Equal(t, Ref{Name: "-3"}, ParseRef("-3"))
	assert.Equal(t, Ref{Name: "Chloé"}, ParseRef("Chloé"))
}

func TestRefMarshalJSON(t *testing.T) {
	b, err := IDRef(7).MarshalJSON()
	assert.NoError(t, err)
	assert.JSONEq(t, `{"id":7}`, string(b))

	b, err = Ref{Name: "Chloé"}.MarshalJSON()
	assert.NoError(t, err)
	assert.JSONEq(t, `{"name":"Chloé"}`, string(b))
}

func TestResolve(t *testing.T) {
	c := catalogtest.Sample()

	e, ok := Resolve(c, IDRef(2))
	assert.True(t, ok)
	assert.Equal(t, "Bastien", e.Name)

	e, ok = Resolve(c, Ref{Name: "chloe"})
	assert.True(t, ok)
	assert.Equal(t, 3, e.ID)

	e, ok = Resolve(c, Ref{Name: "QXVyw6lsaWVu"}) // base64("Aurélien")
	assert.True(t, ok)
	assert.Equal(t, 1, e.ID)

	_, ok = Resolve(c, Ref{Name: "Inconnu"})
	assert.False(t, ok)
	_, ok = Resolve(c, IDRef(99))
	assert.False(t, ok)
	_, ok = Resolve(c, Ref{})
	assert.False(t, ok)
}
