package main

import (
	"errors"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/ballbeam/pkg/display"
	"github.com/itohio/ballbeam/pkg/monitor"
	"github.com/itohio/ballbeam/pkg/protocol"
)

// controlPanel holds the PID labels and the operator controls under the plot.
type controlPanel struct {
	window  fyne.Window
	monitor *monitor.Monitor

	kpLabel  *widget.Label
	kiLabel  *widget.Label
	kdLabel  *widget.Label
	refLabel *widget.Label

	refEntry   *widget.Entry
	sendBtn    *widget.Button
	clearBtn   *widget.Button
	restartBtn *widget.Button
}

func newControlPanel(window fyne.Window) *controlPanel {
	p := &controlPanel{
		window:   window,
		kpLabel:  widget.NewLabel("Kp: N/A"),
		kiLabel:  widget.NewLabel("Ki: N/A"),
		kdLabel:  widget.NewLabel("Kd: N/A"),
		refLabel: widget.NewLabel("Ref: N/A"),
		refEntry: widget.NewEntry(),
	}
	p.refEntry.SetPlaceHolder("Reference")
	p.refEntry.OnSubmitted = func(string) { p.handleSend() }

	p.sendBtn = widget.NewButtonWithIcon("Send", theme.MailSendIcon(), p.handleSend)
	p.clearBtn = widget.NewButtonWithIcon("Clear", theme.ContentClearIcon(), p.handleClear)
	p.restartBtn = widget.NewButtonWithIcon("Restart Autotune", theme.ViewRefreshIcon(), p.handleRestart)

	// Controls are enabled once a monitor is bound
	p.sendBtn.Disable()
	p.clearBtn.Disable()
	p.restartBtn.Disable()
	return p
}

func (p *controlPanel) bind(m *monitor.Monitor) {
	p.monitor = m
	p.sendBtn.Enable()
	p.clearBtn.Enable()
	p.restartBtn.Enable()
}

// container lays out gains on the left and reference controls on the right.
func (p *controlPanel) container() fyne.CanvasObject {
	gains := container.NewHBox(p.kpLabel, p.kiLabel, p.kdLabel)

	entry := container.NewGridWrap(fyne.NewSize(140, p.refEntry.MinSize().Height), p.refEntry)
	reference := container.NewHBox(p.refLabel, entry, p.sendBtn)

	return container.NewVBox(
		widget.NewSeparator(),
		container.NewBorder(
			nil, // top
			nil, // bottom
			gains,
			container.NewHBox(p.clearBtn, p.restartBtn), // right
			container.NewCenter(reference),
		),
	)
}

// render applies a frame's labels. Must run on the Fyne thread.
func (p *controlPanel) render(f display.Frame) {
	p.kpLabel.SetText(f.KpLabel)
	p.kiLabel.SetText(f.KiLabel)
	p.kdLabel.SetText(f.KdLabel)

	importance := widget.MediumImportance
	if f.RefError {
		importance = widget.DangerImportance
	}
	if p.refLabel.Importance != importance {
		p.refLabel.Importance = importance
		p.refLabel.Refresh()
	}
	p.refLabel.SetText(f.RefLabel)
}

// handleSend queues a reference change on the monitor goroutine. Invalid input
// is reported through the reference label; transport failures open a dialog.
func (p *controlPanel) handleSend() {
	text := p.refEntry.Text
	p.run(func(m *monitor.Monitor) error {
		err := m.SetReference(text)
		if errors.Is(err, protocol.ErrInvalidReference) {
			return nil
		}
		return err
	})
}

func (p *controlPanel) handleClear() {
	p.run(func(m *monitor.Monitor) error {
		m.Clear()
		return nil
	})
}

func (p *controlPanel) handleRestart() {
	p.run(func(m *monitor.Monitor) error {
		return m.RestartAutotune()
	})
}

// run executes fn between poll ticks and shows its error, if any.
func (p *controlPanel) run(fn func(m *monitor.Monitor) error) {
	m := p.monitor
	if m == nil {
		return
	}

	err := m.Do(func() {
		if err := fn(m); err != nil {
			fyne.Do(func() {
				dialog.ShowError(err, p.window)
			})
		}
	})
	if err != nil {
		dialog.ShowError(fmt.Errorf("monitor is not running: %w", err), p.window)
	}
}
