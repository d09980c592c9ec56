package vm

import (
	"sort"

	"github.com/samber/lo"
)

// Pixel is a single lit framebuffer cell.
type Pixel struct {
	X, Y int
}

// Framebuffer holds the off-screen buffer plotted into by PLOT and the
// on-screen image BUFR copies it into. Keeping them as separate sets
// lets callers diff the two for incremental redraw.
type Framebuffer struct {
	buffer map[Pixel]struct{}
	screen map[Pixel]struct{}
}

func newFramebuffer() *Framebuffer {
	return &Framebuffer{
		buffer: make(map[Pixel]struct{}),
		screen: make(map[Pixel]struct{}),
	}
}

// Plot sets or clears a buffer pixel. value must already be validated as
// 0 or 1 by the caller.
func (f *Framebuffer) Plot(x, y, value int) {
	p := Pixel{X: x, Y: y}
	if value == 1 {
		f.buffer[p] = struct{}{}
	} else {
		delete(f.buffer, p)
	}
}

// commit copies the pending buffer onto the visible screen, the
// operation that actually makes plotted pixels visible.
func (f *Framebuffer) commit() {
	f.screen = make(map[Pixel]struct{}, len(f.buffer))
	for p := range f.buffer {
		f.screen[p] = struct{}{}
	}
}

// Move commits the buffer to the screen, then clears the buffer so the
// next frame starts empty.
func (f *Framebuffer) Move() {
	f.commit()
	f.buffer = make(map[Pixel]struct{})
}

// Update commits the buffer to the screen but leaves the buffer intact,
// so further PLOTs accumulate on top of what is already pending.
func (f *Framebuffer) Update() {
	f.commit()
}

// Screen returns the currently visible lit pixels, sorted for
// deterministic output.
func (f *Framebuffer) Screen() []Pixel {
	pixels := lo.Keys(f.screen)
	sort.Slice(pixels, func(i, j int) bool {
		if pixels[i].Y != pixels[j].Y {
			return pixels[i].Y < pixels[j].Y
		}
		return pixels[i].X < pixels[j].X
	})
	return pixels
}

// CallFrame is one saved return address on the call stack.
type CallFrame struct {
	ReturnPC int
}

// VM is the full Xenon machine state: registers, memory, call stack and
// framebuffer.
type VM struct {
	A, D int
	PC   int

	Memory [MemorySize]int
	Stack  []CallFrame

	FB *Framebuffer

	Halted bool
	Steps  int
}

// New returns a freshly reset VM.
func New() *VM {
	return &VM{FB: newFramebuffer()}
}

// Reset clears all registers, memory, the call stack and the
// framebuffer, leaving the VM ready to load a new program.
func (v *VM) Reset() {
	v.A, v.D, v.PC = 0, 0, 0
	v.Memory = [MemorySize]int{}
	v.Stack = nil
	v.FB = newFramebuffer()
	v.Halted = false
	v.Steps = 0
}
