package resampler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFOPushPop(t *testing.T) {
	fifo := NewFIFO(8)

	fifo.Push([]int16{1, 2, 3, 4})
	require.Equal(t, 4, fifo.Fill())

	out := make([]int16, 4)
	n := fifo.Pop(out)
	assert.Equal(t, 4, n)
	assert.Equal(t, []int16{1, 2, 3, 4}, out)
	assert.Equal(t, 0, fifo.Fill())
}

func TestFIFOUnderrunFillsSilence(t *testing.T) {
	fifo := NewFIFO(8)
	fifo.Push([]int16{5, 6})

	out := make([]int16, 4)
	n := fifo.Pop(out)

	assert.Equal(t, 2, n)
	assert.Equal(t, []int16{5, 6, 0, 0}, out)
}

// stride scenarios from the spec's resampler test: base ratio 1.0, FIFO at
// 50% full yields stride 1.0; full yields a stride slightly above 1 (the
// worker skips ahead to drain); empty yields a stride slightly below 1 (the
// worker holds back to let the FIFO refill).
func TestWorkerStrideAdaptsToFillLevel(t *testing.T) {
	fifo := NewFIFO(1000)
	w := NewWorker(nil, fifo, 1.0)

	fifo.Push(make([]int16, 500))
	assert.InDelta(t, 1.0, w.stride(), 1e-9)

	for fifo.Fill() < fifo.Capacity() {
		fifo.Push([]int16{0})
	}
	assert.InDelta(t, 1.0/(1-deviation), w.stride(), 1e-9)

	out := make([]int16, fifo.Capacity())
	fifo.Pop(out)
	assert.InDelta(t, 1.0/(1+deviation), w.stride(), 1e-9)
}

func TestWorkerRunFeedsFIFOUntilStopped(t *testing.T) {
	src := make(chan []int16, 4)
	src <- []int16{10, -10, 20, -20}
	fifo := NewFIFO(4096)
	w := NewWorker(src, fifo, 1.0)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		w.Run(stop)
		close(done)
	}()

	for fifo.Fill() == 0 {
	}
	close(stop)
	<-done

	assert.True(t, w.Stopped())
	assert.Greater(t, fifo.Fill(), 0)
}

func TestWorkerRunStopsWhenSourceCloses(t *testing.T) {
	src := make(chan []int16, 4)
	src <- []int16{1, -1}
	close(src)
	fifo := NewFIFO(64)
	w := NewWorker(src, fifo, 1.0)

	done := make(chan struct{})
	go func() {
		w.Run(make(chan struct{}))
		close(done)
	}()

	<-done
	assert.True(t, w.Stopped())
}
