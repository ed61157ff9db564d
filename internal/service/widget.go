package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/randstring/randstring-go/internal/clipboard"
	"github.com/randstring/randstring-go/internal/crypto"
	"github.com/randstring/randstring-go/internal/model"
)

const (
	MinLength          = 4
	MaxLength          = 50
	DefaultLength      = 12
	DefaultHistorySize = 5
	DefaultAutoPeriod  = 2 * time.Second

	// NoSelectionMessage is displayed instead of a value when no class is enabled.
	NoSelectionMessage = "Please select at least one character type"
)

var (
	ErrLengthOutOfRange = errors.New(fmt.Sprintf("length must be between %d and %d", MinLength, MaxLength))
	ErrNotCopyable      = errors.New("nothing to copy")
	ErrHistoryIndex     = errors.New("history index out of range")
	ErrGeneratorClosed  = errors.New("generator closed")
)

// DefaultClasses are enabled on a fresh generator.
func DefaultClasses() []crypto.CharacterClass {
	return []crypto.CharacterClass{crypto.Uppercase, crypto.Lowercase, crypto.Numbers}
}

// GeneratorOptions configures a Generator. Zero fields take defaults.
type GeneratorOptions struct {
	Length      int
	Classes     []crypto.CharacterClass
	HistorySize int
	AutoPeriod  time.Duration
	Picker      crypto.IndexPicker
	Clipboard   clipboard.Clipboard
	Logger      *zerolog.Logger
	Now         func() time.Time
}

// DefaultGeneratorOptions returns length 12 with uppercase, lowercase and numbers enabled.
func DefaultGeneratorOptions() GeneratorOptions {
	return GeneratorOptions{
		Length:      DefaultLength,
		Classes:     DefaultClasses(),
		HistorySize: DefaultHistorySize,
		AutoPeriod:  DefaultAutoPeriod,
	}
}

// Generator owns the state of one random string widget: length, enabled
// classes, displayed value, history and the auto-generate timer. Every
// trigger runs to completion under a single lock.
//
// Listeners run on the goroutine that caused the change, which can be the
// auto-generate ticker; they must not call back into the Generator.
type Generator struct {
	mu sync.Mutex

	picker crypto.IndexPicker
	clip   clipboard.Clipboard
	logger zerolog.Logger
	now    func() time.Time

	length      int
	classes     crypto.ClassSet
	value       string
	history     *History
	generation  uint64
	generatedAt time.Time

	autoPeriod time.Duration
	auto       *autoTicker

	listeners    map[uint64]func(model.Snapshot)
	nextListener uint64

	closed bool
	done   chan struct{}
}

// NewGenerator builds a Generator and fires the initial generation so a value
// is present before any user action.
func NewGenerator(opts GeneratorOptions) (*Generator, error) {
	if opts.Length == 0 {
		opts.Length = DefaultLength
	}
	if opts.Length < MinLength || opts.Length > MaxLength {
		return nil, errors.Wrapf(ErrLengthOutOfRange, "got %d", opts.Length)
	}
	if opts.Classes == nil {
		opts.Classes = DefaultClasses()
	}
	if opts.AutoPeriod <= 0 {
		opts.AutoPeriod = DefaultAutoPeriod
	}
	if opts.Picker == nil {
		opts.Picker = crypto.NewMathPicker()
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.NewMemory(clipboard.DefaultResetAfter)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	g := &Generator{
		picker:     opts.Picker,
		clip:       opts.Clipboard,
		logger:     logger,
		now:        opts.Now,
		length:     opts.Length,
		classes:    crypto.NewClassSet(opts.Classes...),
		history:    NewHistory(opts.HistorySize),
		autoPeriod: opts.AutoPeriod,
		listeners:  make(map[uint64]func(model.Snapshot)),
		done:       make(chan struct{}),
	}

	if r, ok := opts.Clipboard.(interface{ OnReset(func()) }); ok {
		r.OnReset(g.notifyCurrent)
	}

	g.mu.Lock()
	g.generateLocked()
	g.mu.Unlock()

	return g, nil
}

// Generate rebuilds the alphabet and samples a new value. With no class
// enabled the value becomes NoSelectionMessage and history is untouched.
func (g *Generator) Generate() model.Snapshot {
	g.mu.Lock()
	if !g.closed {
		g.generateLocked()
	}
	snap := g.snapshotLocked()
	listeners := g.listenersLocked()
	g.mu.Unlock()

	notify(listeners, snap)
	return snap
}

func (g *Generator) generateLocked() {
	g.generation++
	g.generatedAt = g.now()

	alphabet := crypto.BuildAlphabet(g.classes)
	if alphabet == "" {
		g.value = NoSelectionMessage
		return
	}

	g.value = crypto.Sample(g.picker, alphabet, g.length)
	g.history.Push(g.value)
}

// SetLength changes the output length and regenerates.
func (g *Generator) SetLength(length int) (model.Snapshot, error) {
	if length < MinLength || length > MaxLength {
		return model.Snapshot{}, errors.Wrapf(ErrLengthOutOfRange, "got %d", length)
	}

	return g.mutate(func() {
		g.length = length
	})
}

// SetClass enables or disables a character class and regenerates.
func (g *Generator) SetClass(class crypto.CharacterClass, enabled bool) (model.Snapshot, error) {
	if class.Chars() == "" {
		return model.Snapshot{}, errors.Wrapf(crypto.ErrUnknownClass, "class %d", int(class))
	}

	return g.mutate(func() {
		if enabled {
			g.classes.Add(class)
		} else {
			g.classes.Remove(class)
		}
	})
}

func (g *Generator) mutate(apply func()) (model.Snapshot, error) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return model.Snapshot{}, ErrGeneratorClosed
	}
	apply()
	g.generateLocked()
	snap := g.snapshotLocked()
	listeners := g.listenersLocked()
	g.mu.Unlock()

	notify(listeners, snap)
	return snap, nil
}

// SetAutoGenerate starts or stops periodic regeneration. Manual triggers and
// config edits do not reschedule the ticker. Disabling waits until the ticker
// goroutine has exited, so no tick fires afterwards.
func (g *Generator) SetAutoGenerate(enabled bool) (model.Snapshot, error) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return model.Snapshot{}, ErrGeneratorClosed
	}

	var stopped *autoTicker
	switch {
	case enabled && g.auto == nil:
		g.auto = startAutoTicker(g.autoPeriod, g.tick)
		g.logger.Debug().Dur("period", g.autoPeriod).Msg("auto.generate.enabled")
	case !enabled && g.auto != nil:
		stopped = g.auto
		g.auto = nil
		g.logger.Debug().Msg("auto.generate.disabled")
	}
	snap := g.snapshotLocked()
	listeners := g.listenersLocked()
	g.mu.Unlock()

	if stopped != nil {
		stopped.stop()
	}
	notify(listeners, snap)
	return snap, nil
}

func (g *Generator) tick(t *autoTicker) {
	g.mu.Lock()
	if g.closed || g.auto != t {
		g.mu.Unlock()
		return
	}
	g.generateLocked()
	snap := g.snapshotLocked()
	listeners := g.listenersLocked()
	g.mu.Unlock()

	notify(listeners, snap)
}

// Copy sends the displayed value to the clipboard.
func (g *Generator) Copy() (model.CopyResponse, error) {
	g.mu.Lock()
	value := g.value
	closed := g.closed
	g.mu.Unlock()

	if closed {
		return model.CopyResponse{}, ErrGeneratorClosed
	}
	if !isCopyable(value) {
		return model.CopyResponse{}, ErrNotCopyable
	}
	return g.copy(value), nil
}

// CopyHistory sends the i-th most recent history entry to the clipboard.
func (g *Generator) CopyHistory(i int) (model.CopyResponse, error) {
	g.mu.Lock()
	value, ok := g.history.At(i)
	closed := g.closed
	g.mu.Unlock()

	if closed {
		return model.CopyResponse{}, ErrGeneratorClosed
	}
	if !ok {
		return model.CopyResponse{}, errors.Wrapf(ErrHistoryIndex, "index %d", i)
	}
	return g.copy(value), nil
}

func (g *Generator) copy(value string) model.CopyResponse {
	copied := g.clip.Copy(value)
	g.notifyCurrent()
	return model.CopyResponse{Copied: copied, Value: value}
}

// Snapshot returns a copy of the current state.
func (g *Generator) Snapshot() model.Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

func (g *Generator) snapshotLocked() model.Snapshot {
	classes := make([]model.ClassState, 0, len(crypto.AllClasses))
	for _, c := range crypto.AllClasses {
		classes = append(classes, model.ClassState{
			Name:    c.String(),
			Label:   c.Label(),
			Enabled: g.classes.Contains(c),
		})
	}

	return model.Snapshot{
		Value:        g.value,
		Copyable:     isCopyable(g.value),
		Length:       g.length,
		MinLength:    MinLength,
		MaxLength:    MaxLength,
		Classes:      classes,
		History:      g.history.Entries(),
		AutoGenerate: g.auto != nil,
		Copied:       g.clip.Copied(),
		Generation:   g.generation,
		GeneratedAt:  g.generatedAt,
	}
}

// Subscribe registers fn to receive a snapshot after every state change.
// The returned func removes it.
func (g *Generator) Subscribe(fn func(model.Snapshot)) func() {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.nextListener
	g.nextListener++
	g.listeners[id] = fn

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.listeners, id)
	}
}

func (g *Generator) listenersLocked() []func(model.Snapshot) {
	out := make([]func(model.Snapshot), 0, len(g.listeners))
	for _, fn := range g.listeners {
		out = append(out, fn)
	}
	return out
}

func (g *Generator) notifyCurrent() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	snap := g.snapshotLocked()
	listeners := g.listenersLocked()
	g.mu.Unlock()

	notify(listeners, snap)
}

func notify(listeners []func(model.Snapshot), snap model.Snapshot) {
	for _, fn := range listeners {
		fn(snap)
	}
}

// Closed reports whether Close has been called.
func (g *Generator) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// Done is closed once the generator is closed.
func (g *Generator) Done() <-chan struct{} {
	return g.done
}

// Close stops the auto-generate ticker and the clipboard timer and drops all
// listeners. It is safe to call more than once.
func (g *Generator) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	close(g.done)
	stopped := g.auto
	g.auto = nil
	clear(g.listeners)
	g.mu.Unlock()

	if stopped != nil {
		stopped.stop()
	}
	g.clip.Close()
	g.logger.Debug().Msg("generator.closed")
}

func isCopyable(value string) bool {
	return value != "" && value != NoSelectionMessage
}
