package core

import "github.com/spaghettifunk/fractal/engine/containers"

const frameAvgCount = 30

// Metrics keeps a rolling frame-time average and a once-per-second FPS
// figure. One instance belongs to the run loop; it is not safe for
// concurrent use and does not need to be.
type Metrics struct {
	msTimes       *containers.RingQueue[float64]
	msSum         float64
	frames        int32
	accumulatedMS float64
	fps           float64
}

func NewMetrics() *Metrics {
	return &Metrics{
		msTimes: containers.NewRingQueue[float64](frameAvgCount),
	}
}

// Update records one frame of frameElapsedTime seconds.
func (m *Metrics) Update(frameElapsedTime float64) {
	frameMS := frameElapsedTime * 1000.0

	if m.msTimes.IsFull() {
		oldest, _ := m.msTimes.Dequeue()
		m.msSum -= oldest
	}
	m.msTimes.Enqueue(frameMS)
	m.msSum += frameMS

	m.accumulatedMS += frameMS
	if m.accumulatedMS > 1000 {
		m.fps = float64(m.frames)
		m.accumulatedMS -= 1000
		m.frames = 0
	}
	m.frames++
}

func (m *Metrics) FPS() float64 {
	return m.fps
}

// FrameTime returns the rolling average frame time in milliseconds over the
// last frameAvgCount frames.
func (m *Metrics) FrameTime() float64 {
	if m.msTimes.IsEmpty() {
		return 0
	}
	return m.msSum / float64(m.msTimes.Len())
}
