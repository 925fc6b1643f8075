package report

import "github.com/fatih/color"

// Colorizer styles terminal output. Each instance decides on its own
// whether to emit escape codes; the library's global switch is not used.
type Colorizer struct {
	success *color.Color
	failure *color.Color
	warning *color.Color
	info    *color.Color
	bold    *color.Color
}

// NewColorizer returns a Colorizer that emits color only when enabled.
func NewColorizer(enabled bool) *Colorizer {
	c := &Colorizer{
		success: color.New(color.FgGreen, color.Bold),
		failure: color.New(color.FgRed, color.Bold),
		warning: color.New(color.FgYellow),
		info:    color.New(color.FgHiBlack),
		bold:    color.New(color.FgWhite, color.Bold),
	}
	for _, cc := range []*color.Color{c.success, c.failure, c.warning, c.info, c.bold} {
		if enabled {
			cc.EnableColor()
		} else {
			cc.DisableColor()
		}
	}
	return c
}

func (c *Colorizer) Success(s string) string { return c.success.Sprint(s) }
func (c *Colorizer) Failure(s string) string { return c.failure.Sprint(s) }
func (c *Colorizer) Warning(s string) string { return c.warning.Sprint(s) }
func (c *Colorizer) Info(s string) string    { return c.info.Sprint(s) }
func (c *Colorizer) Bold(s string) string    { return c.bold.Sprint(s) }

// Symbol returns the colored marker for a status.
func (c *Colorizer) Symbol(s Status) string {
	switch s {
	case Matching:
		return c.Success("✓")
	case Differences:
		return c.Failure("⚠")
	case SourceNotFound:
		return c.Warning("?")
	case Errored:
		return c.Failure("✗")
	default:
		return c.Info("·")
	}
}

// Status renders a status word in its color.
func (c *Colorizer) Status(s Status) string {
	switch s {
	case Matching:
		return c.Success(string(s))
	case Differences, Errored:
		return c.Failure(string(s))
	case SourceNotFound:
		return c.Warning(string(s))
	default:
		return string(s)
	}
}
