// Package deck parses module deck files: a SPICE-like card format
// describing the module nameplate, diode parameters, operating condition
// and run options.
package deck

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"pv-curve/pkg/pv"
)

// Sweep requests comparative curves over an irradiance range.
type Sweep struct {
	Start float64
	Stop  float64
	Step  float64
}

// Options holds run options recognized by the kernel.
type Options struct {
	Points    int
	Calibrate bool
}

// Deck is one parsed module deck.
type Deck struct {
	Title     string
	Spec      pv.ModuleSpec
	Params    pv.DiodeParams
	Condition pv.Condition
	Sweep     *Sweep
	Options   Options
}

var unitMap = map[string]float64{
	"T":   1e12,  // tera
	"G":   1e9,   // giga
	"meg": 1e6,   // mega
	"K":   1e3,   // kilo
	"k":   1e3,   // kilo
	"m":   1e-3,  // milli
	"u":   1e-6,  // micro
	"n":   1e-9,  // nano
	"p":   1e-12, // pico
	"f":   1e-15, // femto
}

var valuePattern = regexp.MustCompile(`^([+-]?[0-9]*\.?[0-9]+(?:[eE][+-]?[0-9]+)?)(meg|[TGKkmunpf])?$`)

// ParseValue parses a numeric field with an optional SPICE unit suffix
// (1k -> 1000, 200m -> 0.2).
func ParseValue(s string) (float64, error) {
	matches := valuePattern.FindStringSubmatch(strings.TrimSpace(s))
	if matches == nil {
		return 0, fmt.Errorf("invalid value %q", s)
	}
	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q: %v", s, err)
	}
	if matches[2] != "" {
		value *= unitMap[matches[2]]
	}
	return value, nil
}

// Parse reads a module deck. The first non-blank, non-comment line is the
// title; cards start with a dot; '*' lines are comments. Cards omitted
// from the deck keep the reference-module defaults.
func Parse(input string) (*Deck, error) {
	d := &Deck{
		Spec:      pv.DefaultModuleSpec(),
		Params:    pv.DefaultDiodeParams(),
		Condition: pv.DefaultCondition(),
		Options:   Options{Points: 140},
	}

	scanner := bufio.NewScanner(strings.NewReader(input))
	haveTitle := false
	lineNo := 0
	ended := false
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "*") {
			continue
		}
		if ended {
			return nil, fmt.Errorf("line %d: content after .end", lineNo)
		}
		if !haveTitle && !strings.HasPrefix(line, ".") {
			d.Title = line
			haveTitle = true
			continue
		}

		fields := strings.Fields(line)
		card := strings.ToLower(fields[0])
		var err error
		switch card {
		case ".module":
			err = d.parseModule(fields[1:])
		case ".params":
			err = d.parseParams(fields[1:])
		case ".condition":
			err = d.parseCondition(fields[1:])
		case ".sweep":
			err = d.parseSweep(fields[1:])
		case ".options":
			err = d.parseOptions(fields[1:])
		case ".end":
			ended = true
		default:
			err = fmt.Errorf("unknown card %q", fields[0])
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %v", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading deck: %v", err)
	}

	if err := d.Spec.Validate(); err != nil {
		return nil, err
	}
	if err := d.Params.Validate(); err != nil {
		return nil, err
	}
	if err := d.Condition.Validate(); err != nil {
		return nil, err
	}
	d.Options.Points = pv.ClampResolution(d.Options.Points)
	return d, nil
}

func (d *Deck) parseModule(fields []string) error {
	return eachPair(fields, func(key string, raw string) error {
		if key == "ns" {
			ns, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("invalid ns %q: %v", raw, err)
			}
			d.Spec.CellsSeries = ns
			return nil
		}
		value, err := ParseValue(raw)
		if err != nil {
			return err
		}
		switch key {
		case "vocref":
			d.Spec.VocRef = value
		case "iscref":
			d.Spec.IscRef = value
		case "vmppref":
			d.Spec.VmppRef = value
		case "imppref":
			d.Spec.ImppRef = value
		case "area":
			d.Spec.Area = value
		case "alpha":
			d.Spec.AlphaIsc = value
		case "beta":
			d.Spec.BetaVoc = value
		default:
			return fmt.Errorf("unknown .module key %q", key)
		}
		return nil
	})
}

func (d *Deck) parseParams(fields []string) error {
	return eachPair(fields, func(key string, raw string) error {
		value, err := ParseValue(raw)
		if err != nil {
			return err
		}
		switch key {
		case "n":
			d.Params.N = value
		case "rs":
			d.Params.Rs = value
		case "rsh":
			d.Params.Rsh = value
		default:
			return fmt.Errorf("unknown .params key %q", key)
		}
		return nil
	})
}

func (d *Deck) parseCondition(fields []string) error {
	return eachPair(fields, func(key string, raw string) error {
		value, err := ParseValue(raw)
		if err != nil {
			return err
		}
		switch key {
		case "g":
			d.Condition.Irradiance = value
		case "t":
			d.Condition.Temperature = value
		default:
			return fmt.Errorf("unknown .condition key %q", key)
		}
		return nil
	})
}

// .sweep g <start> <stop> <step>
func (d *Deck) parseSweep(fields []string) error {
	if len(fields) != 4 {
		return fmt.Errorf(".sweep requires: g <start> <stop> <step>")
	}
	if strings.ToLower(fields[0]) != "g" {
		return fmt.Errorf("unsupported sweep variable %q", fields[0])
	}
	start, err := ParseValue(fields[1])
	if err != nil {
		return err
	}
	stop, err := ParseValue(fields[2])
	if err != nil {
		return err
	}
	step, err := ParseValue(fields[3])
	if err != nil {
		return err
	}
	if start <= 0 || stop < start || step <= 0 {
		return fmt.Errorf("invalid sweep range %g..%g step %g", start, stop, step)
	}
	d.Sweep = &Sweep{Start: start, Stop: stop, Step: step}
	return nil
}

func (d *Deck) parseOptions(fields []string) error {
	return eachPair(fields, func(key string, raw string) error {
		switch key {
		case "points":
			points, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("invalid points %q: %v", raw, err)
			}
			d.Options.Points = points
		case "calibrate":
			switch strings.ToLower(raw) {
			case "on", "true", "1":
				d.Options.Calibrate = true
			case "off", "false", "0":
				d.Options.Calibrate = false
			default:
				return fmt.Errorf("invalid calibrate %q", raw)
			}
		default:
			return fmt.Errorf("unknown .options key %q", key)
		}
		return nil
	})
}

// Levels expands the sweep into its irradiance levels, inclusive of stop.
func (s *Sweep) Levels() []float64 {
	var levels []float64
	for g := s.Start; g <= s.Stop+s.Step*1e-9; g += s.Step {
		levels = append(levels, g)
	}
	return levels
}

func eachPair(fields []string, apply func(key, value string) error) error {
	for _, field := range fields {
		key, value, found := strings.Cut(field, "=")
		if !found {
			return fmt.Errorf("expected key=value, got %q", field)
		}
		if err := apply(strings.ToLower(key), value); err != nil {
			return err
		}
	}
	return nil
}
