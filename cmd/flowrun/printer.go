package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/dukex/flowrun/pkg/events"
	"github.com/dukex/flowrun/pkg/models"
)

// printer renders run events as one line each.
type printer struct {
	out     io.Writer
	verbose bool

	ok    *color.Color
	fail  *color.Color
	info  *color.Color
	faint *color.Color
}

func newPrinter(out io.Writer, colored, verbose bool) *printer {
	p := &printer{
		out:     out,
		verbose: verbose,
		ok:      color.New(color.FgGreen, color.Bold),
		fail:    color.New(color.FgRed, color.Bold),
		info:    color.New(color.FgCyan),
		faint:   color.New(color.Faint),
	}

	for _, c := range []*color.Color{p.ok, p.fail, p.info, p.faint} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return p
}

func (p *printer) Print(event events.Event) {
	switch data := event.Data.(type) {
	case events.ExecutionStarted:
		fmt.Fprintf(p.out, "%s %s (%s)\n", p.info.Sprint("▶ run"), data.ExecutionID, data.Mode)

	case events.NodeExecutionBefore:
		fmt.Fprintf(p.out, "  %s %s\n", p.faint.Sprint("…"), data.NodeName)

	case events.NodeExecutionAfter:
		if data.Error != nil {
			fmt.Fprintf(p.out, "  %s %s: %s\n", p.fail.Sprint("✗"), data.NodeName, data.Error.Message)

			return
		}

		fmt.Fprintf(p.out, "  %s %s\n", p.ok.Sprint("✓"), data.NodeName)

		if p.verbose {
			p.printOutput(data.Data)
		}

	case events.ExecutionFinished:
		status := p.ok
		if data.Status != models.ExecutionStatusCompleted {
			status = p.fail
		}

		fmt.Fprintf(p.out, "%s %s\n", status.Sprint("■ "+string(data.Status)), data.ExecutionID)

	case events.ExecutionError:
		fmt.Fprintf(p.out, "%s %s\n", p.fail.Sprint("■ error"), data.Error)
	}
}

func (p *printer) printOutput(output models.NodeOutput) {
	encoded, err := json.MarshalIndent(output, "    ", "  ")
	if err != nil {
		return
	}

	fmt.Fprintf(p.out, "    %s\n", p.faint.Sprint(string(encoded)))
}
