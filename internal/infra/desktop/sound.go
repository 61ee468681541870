package desktop

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/gen2brain/malgo"
)

// DefaultVolume is the playback gain applied to every clip.
const DefaultVolume = 0.5

// SoundConfig selects the chime. An empty File uses the built-in chime.
type SoundConfig struct {
	File   string
	Volume float64
}

// audioOutput plays mono PCM16 bytes and blocks until playback ends.
type audioOutput interface {
	Play(ctx context.Context, pcm []byte, sampleRate int) error
	Close()
}

// SoundPlayer plays the notification chime without blocking the caller.
// Each Play starts from the first sample and interrupts a playback in progress.
type SoundPlayer struct {
	cfg    SoundConfig
	logger *slog.Logger

	load    sync.Once
	pcm     []byte
	rate    int
	out     audioOutput
	loadErr error

	newOutput func() (audioOutput, error)
	beep      func() error

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSoundPlayer creates a SoundPlayer. The clip and the audio device are
// initialised on the first Play.
func NewSoundPlayer(cfg SoundConfig, logger *slog.Logger) *SoundPlayer {
	if cfg.Volume <= 0 {
		cfg.Volume = DefaultVolume
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SoundPlayer{
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "sound")),
		newOutput: newMalgoOutput,
		beep: func() error {
			return beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration)
		},
	}
}

func (p *SoundPlayer) init() {
	c := synthChime()
	if p.cfg.File != "" {
		loaded, err := loadClip(p.cfg.File)
		if err != nil {
			p.logger.Warn("failed to load sound file, using built-in chime",
				slog.String("file", p.cfg.File),
				slog.Any("error", err))
		} else {
			c = loaded
		}
	}
	p.pcm = c.pcm(p.cfg.Volume)
	p.rate = c.sampleRate

	out, err := p.newOutput()
	if err != nil {
		p.loadErr = err
		p.logger.Warn("audio device unavailable, falling back to terminal beep", slog.Any("error", err))
		return
	}
	p.out = out
}

// Play starts the chime in the background and returns immediately.
// Errors are logged and counted by the playback goroutine.
func (p *SoundPlayer) Play(_ context.Context) error {
	p.load.Do(p.init)

	// Playback outlives the poll tick that triggered it, so it gets its own
	// context bounded by the clip length.
	limit := time.Duration(len(p.pcm)/2)*time.Second/time.Duration(max(p.rate, 1)) + 2*time.Second
	ctx, cancel := context.WithTimeout(context.Background(), limit)

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.cancel = cancel
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()
		p.playOnce(ctx)
	}()
	return nil
}

func (p *SoundPlayer) playOnce(ctx context.Context) {
	if p.out == nil {
		p.fallback(p.loadErr)
		return
	}
	err := p.out.Play(ctx, p.pcm, p.rate)
	switch {
	case err == nil:
		soundPlaysTotal.WithLabelValues("played").Inc()
	case ctx.Err() != nil:
		// interrupted by a newer Play or Close
	default:
		p.fallback(err)
	}
}

func (p *SoundPlayer) fallback(cause error) {
	if err := p.beep(); err != nil {
		soundPlaysTotal.WithLabelValues("failed").Inc()
		p.logger.Warn("failed to play notification sound",
			slog.Any("cause", cause),
			slog.Any("error", err))
		return
	}
	soundPlaysTotal.WithLabelValues("fallback").Inc()
}

// Close stops any playback and releases the audio device.
func (p *SoundPlayer) Close() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()
	p.wg.Wait()

	if p.out != nil {
		p.out.Close()
	}
}

// malgoOutput plays through the default device via miniaudio.
type malgoOutput struct {
	ctx *malgo.AllocatedContext
	mu  sync.Mutex
}

func newMalgoOutput() (audioOutput, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	return &malgoOutput{ctx: ctx}, nil
}

func (o *malgoOutput) Play(ctx context.Context, pcm []byte, sampleRate int) error {
	if len(pcm) == 0 {
		return nil
	}

	// One device at a time; a newer Play has already cancelled this ctx.
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ctx == nil {
		return fmt.Errorf("audio context closed")
	}

	pos := 0
	done := make(chan struct{}, 1)

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = 1
	cfg.SampleRate = uint32(sampleRate)

	callbacks := malgo.DeviceCallbacks{
		Data: func(output, _ []byte, frameCount uint32) {
			need := int(frameCount) * 2
			n := copy(output[:need], pcm[min(pos, len(pcm)):])
			clear(output[n:need])
			pos += n
			if pos >= len(pcm) {
				select {
				case done <- struct{}{}:
				default:
				}
			}
		},
	}

	device, err := malgo.InitDevice(o.ctx.Context, cfg, callbacks)
	if err != nil {
		return fmt.Errorf("init playback device: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("start playback device: %w", err)
	}
	defer func() { _ = device.Stop() }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (o *malgoOutput) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ctx != nil {
		_ = o.ctx.Uninit()
		o.ctx.Free()
		o.ctx = nil
	}
}
