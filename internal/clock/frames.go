package clock

import (
	"sync"
	"time"
)

// DefaultFrameRate matches a typical display refresh rate.
const DefaultFrameRate = 60

// FrameHandler receives one time sample per frame.
type FrameHandler func(now time.Time)

// FrameSource produces a sample of the current time on every frame and hands
// it to each registered handler in registration order.
type FrameSource struct {
	clk  Clock
	loop *Loop

	mu       sync.RWMutex
	handlers []FrameHandler
	frames   uint64
}

// NewFrameSource creates a stopped frame source running at fps frames per second.
func NewFrameSource(clk Clock, fps int) *FrameSource {
	if fps <= 0 {
		fps = DefaultFrameRate
	}
	fs := &FrameSource{clk: clk}
	fs.loop = NewLoop(clk, time.Second/time.Duration(fps), fs.dispatch)
	return fs
}

// OnFrame registers a handler. Handlers registered while running receive the next frame.
func (fs *FrameSource) OnFrame(h FrameHandler) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.handlers = append(fs.handlers, h)
}

// Start begins producing frames. Calling Start on a running source restarts it
// without leaving a second callback chain behind.
func (fs *FrameSource) Start() {
	fs.loop.Start()
}

// Stop halts frame production. It reports whether the source was running.
func (fs *FrameSource) Stop() bool {
	return fs.loop.Stop()
}

// Running reports whether frames are being produced.
func (fs *FrameSource) Running() bool {
	return fs.loop.Running()
}

// FrameInterval is the nominal time between frames.
func (fs *FrameSource) FrameInterval() time.Duration {
	return fs.loop.Interval()
}

// Frames returns the number of frames dispatched since creation.
func (fs *FrameSource) Frames() uint64 {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.frames
}

func (fs *FrameSource) dispatch(now time.Time) {
	fs.mu.Lock()
	fs.frames++
	handlers := make([]FrameHandler, len(fs.handlers))
	copy(handlers, fs.handlers)
	fs.mu.Unlock()

	for _, h := range handlers {
		h(now)
	}
}
