package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-autotune/dsp/effects/autotune"
	"github.com/cwbudde/algo-autotune/dsp/effects/pitch"
	"github.com/cwbudde/algo-autotune/dsp/pitchdetect"
	"github.com/cwbudde/algo-autotune/dsp/window"
)

var errCommand = errors.New("unknown command")

type commandKind int

const (
	cmdNone commandKind = iota
	cmdNote
	cmdRelease
	cmdSet
	cmdStatus
	cmdHelp
	cmdQuit
)

// command is one parsed console line.
type command struct {
	kind  commandKind
	note  int
	param autotune.ParamID
	value float64
}

const consoleHelp = `commands:
  A4 | C#3 | 57      set the target note
  off                release the note (hold the current ratio)
  set <name> <value> change a parameter, also <name>=<value>
  status             print the latest analysis
  help               this text
  quit               stop`

// parseCommand parses one console line. Blank lines and # comments are
// cmdNone.
func parseCommand(line string) (command, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return command{kind: cmdNone}, nil
	}

	fields := strings.Fields(line)
	word := strings.ToLower(fields[0])

	switch word {
	case "off", "release":
		return command{kind: cmdRelease}, nil
	case "status", "?":
		return command{kind: cmdStatus}, nil
	case "help", "h":
		return command{kind: cmdHelp}, nil
	case "quit", "q", "exit":
		return command{kind: cmdQuit}, nil
	case "set":
		if len(fields) != 3 {
			return command{}, fmt.Errorf("%w: usage: set <name> <value>", errCommand)
		}

		return parseSet(fields[1], fields[2])
	}

	if name, value, ok := strings.Cut(line, "="); ok {
		return parseSet(name, value)
	}

	if len(fields) == 1 {
		if note, err := pitchdetect.ParseNoteName(fields[0]); err == nil {
			return command{kind: cmdNote, note: note}, nil
		}
	}

	return command{}, fmt.Errorf("%w: %q", errCommand, line)
}

func parseSet(name, raw string) (command, error) {
	id, err := autotune.ParseParamID(name)
	if err != nil {
		return command{}, err
	}

	raw = strings.TrimSpace(raw)

	if id == autotune.ParamWindowType {
		if t, err := window.ParseType(raw); err == nil {
			return command{kind: cmdSet, param: id, value: float64(t)}, nil
		}
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return command{}, fmt.Errorf("%w: %s: %v", autotune.ErrInvalidValue, id, err)
	}

	return command{kind: cmdSet, param: id, value: v}, nil
}

// console applies commands read line by line to an engine.
type console struct {
	engine *autotune.Engine
	out    io.Writer
	log    *logrus.Entry
}

// run reads commands until quit or end of input. Bad lines are reported and
// skipped. It returns nil on quit or EOF.
func (c *console) run(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		cmd, err := parseCommand(scanner.Text())
		if err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
			continue
		}

		if cmd.kind == cmdQuit {
			return nil
		}

		if err := c.apply(cmd); err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
	}

	return scanner.Err()
}

func (c *console) apply(cmd command) error {
	switch cmd.kind {
	case cmdNote:
		if err := c.engine.Notes().NoteOn(cmd.note); err != nil {
			return err
		}

		c.log.WithFields(logrus.Fields{
			"function": "apply",
			"note":     pitchdetect.NoteName(cmd.note),
		}).Debug("Target note set")
	case cmdRelease:
		c.engine.Notes().Release()
	case cmdSet:
		if err := c.engine.SetParameter(cmd.param, cmd.value); err != nil {
			return err
		}

		v, err := c.engine.Parameter(cmd.param)
		if err != nil {
			return err
		}

		fmt.Fprintf(c.out, "%s = %g\n", cmd.param, v)
	case cmdStatus:
		fmt.Fprintln(c.out, formatSnapshot(c.engine.Snapshot()))
	case cmdHelp:
		fmt.Fprintln(c.out, consoleHelp)
	}

	return nil
}

// formatSnapshot renders telemetry as one line.
func formatSnapshot(s autotune.Snapshot) string {
	voice, target := "-", "-"
	if s.Voice != pitchdetect.NoNote {
		voice = pitchdetect.NoteName(s.Voice)
	}

	if s.Target != pitchdetect.NoNote {
		target = pitchdetect.NoteName(s.Target)
	}

	return fmt.Sprintf("%7.2f Hz  p=%.2f  voice=%-4s target=%-4s ratio=%.4f (%+.2f st)  blocks=%d",
		s.Frequency, s.Probability, voice, target, s.Ratio, pitch.RatioSemitones(s.Ratio), s.Blocks)
}
