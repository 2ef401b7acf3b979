package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/flightbook/flightlog/internal/listview"
)

// Bridge forwards list view callbacks (loading indicator, alerts, view
// changes) into the running Bubble Tea program. Messages sent before the
// program starts are queued; after the program exits they are dropped.
type Bridge struct {
	mu      sync.Mutex
	program *tea.Program
	pending []tea.Msg
	closed  bool
}

var (
	_ listview.Indicator = (*Bridge)(nil)
	_ listview.Notifier  = (*Bridge)(nil)
)

// NewBridge returns an unattached bridge.
func NewBridge() *Bridge {
	return &Bridge{}
}

// Show implements listview.Indicator.
func (b *Bridge) Show(message string) {
	b.send(indicatorMsg{visible: true, text: message})
}

// Dismiss implements listview.Indicator.
func (b *Bridge) Dismiss() {
	b.send(indicatorMsg{})
}

// Alert implements listview.Notifier.
func (b *Bridge) Alert(title, message string) {
	b.send(alertMsg{title: title, message: message})
}

// ExportIndicator returns the overlay used while an export runs. It is
// tracked apart from the list's loading overlay, so a load finishing during
// an export does not hide it.
func (b *Bridge) ExportIndicator() listview.Indicator {
	return exportIndicator{b}
}

type exportIndicator struct{ b *Bridge }

func (e exportIndicator) Show(message string) {
	e.b.send(indicatorMsg{export: true, visible: true, text: message})
}

func (e exportIndicator) Dismiss() {
	e.b.send(indicatorMsg{export: true})
}

// View forwards a list view change.
func (b *Bridge) View(v listview.View) {
	b.send(viewMsg(v))
}

// attach delivers queued messages in order, then routes later messages
// straight to p. p.Send blocks until the program loop runs, so attach is
// called on its own goroutine.
func (b *Bridge) attach(p *tea.Program) {
	for {
		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			return
		}
		pending := b.pending
		b.pending = nil
		if len(pending) == 0 {
			b.program = p
			b.mu.Unlock()
			return
		}
		b.mu.Unlock()
		for _, msg := range pending {
			p.Send(msg)
		}
	}
}

func (b *Bridge) detach() {
	b.mu.Lock()
	b.program = nil
	b.closed = true
	b.mu.Unlock()
}

func (b *Bridge) send(msg tea.Msg) {
	b.mu.Lock()
	p := b.program
	if p == nil {
		if !b.closed {
			b.pending = append(b.pending, msg)
		}
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()
	p.Send(msg)
}
