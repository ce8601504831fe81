package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Outcome is the result of one step reported to the user
type Outcome int

const (
	OutcomeChanged Outcome = iota
	OutcomeUnchanged
	OutcomeDeferred
	OutcomeFailed
)

// Status prints one line per outcome with a colored marker
type Status struct {
	w       io.Writer
	noColor bool
}

// NewStatus creates a status printer writing to w
func NewStatus(w io.Writer, noColor bool) *Status {
	return &Status{w: w, noColor: noColor}
}

func (s *Status) painter(o Outcome) (*color.Color, string) {
	var c *color.Color
	var mark string
	switch o {
	case OutcomeChanged:
		c, mark = color.New(color.FgGreen, color.Bold), "✓"
	case OutcomeUnchanged:
		c, mark = color.New(color.FgHiBlack), "·"
	case OutcomeDeferred:
		c, mark = color.New(color.FgYellow, color.Bold), "…"
	default:
		c, mark = color.New(color.FgRed, color.Bold), "✗"
	}
	if s.noColor {
		c.DisableColor()
	}
	return c, mark
}

// Line prints a status line
func (s *Status) Line(o Outcome, format string, args ...interface{}) {
	c, mark := s.painter(o)
	c.Fprint(s.w, mark)
	fmt.Fprintf(s.w, " %s\n", fmt.Sprintf(format, args...))
}

// Detail prints an indented continuation line
func (s *Status) Detail(format string, args ...interface{}) {
	gray := color.New(color.FgHiBlack)
	if s.noColor {
		gray.DisableColor()
	}
	gray.Fprintf(s.w, "    %s\n", fmt.Sprintf(format, args...))
}
