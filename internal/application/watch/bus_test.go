package watch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-x-monitor/internal/core/model"
)

func TestBusPreservesOrder(t *testing.T) {
	bus := NewBus()
	bus.Send(model.InfoMsg{Text: "one"})
	bus.Send(model.ErrorMsg{Text: "two"})
	bus.Send(model.InfoMsg{Text: "three"})

	msgs := bus.Drain()
	require.Len(t, msgs, 3)
	assert.Equal(t, model.InfoMsg{Text: "one"}, msgs[0])
	assert.Equal(t, model.ErrorMsg{Text: "two"}, msgs[1])
	assert.Equal(t, model.InfoMsg{Text: "three"}, msgs[2])

	assert.Empty(t, bus.Drain())
}

func TestDrainDoesNotBlockWhenEmpty(t *testing.T) {
	bus := NewBus()
	assert.Empty(t, bus.Drain())
}
