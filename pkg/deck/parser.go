package deck

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/edp1096/anysim/internal/consts"
	"github.com/edp1096/anysim/pkg/array"
	"github.com/edp1096/anysim/pkg/diffusion"
	"github.com/edp1096/anysim/pkg/state"
)

// Deck is a parsed simulation deck.
type Deck struct {
	Title      string
	Options    diffusion.Options
	Diffusion  diffusion.Coefficient
	Absorption diffusion.Coefficient
	Sources    []PointSource
	Outputs    []string // Names requested by .print: intensity, flux0, flux1, ...

	periodicAxes      []int
	diffusionRegions  []region
	absorptionRegions []region
	termination       struct {
		tol     float64
		maxIter int
		fixed   int
		timeout time.Duration
	}
}

// PointSource injects Value into the intensity at Index (ROI coordinates,
// time index last when a time axis is present).
type PointSource struct {
	Index []int
	Value float64
}

// region assigns values to a box of the ROI; a nil box covers everything.
type region struct {
	values []float64
	lo, hi []int // Inclusive lower, exclusive upper bound per axis
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

var (
	valueRe = regexp.MustCompile(`^([-+]?\d*\.?\d+(?:[eE][-+]?\d+)?)(meg|[TGKkmunpf])?$`)
	spaceRe = regexp.MustCompile(`\s+`)
)

func Parse(input string) (*Deck, error) {
	scanner := bufio.NewScanner(strings.NewReader(input))
	d := &Deck{}

	// Title or comment
	if scanner.Scan() {
		d.Title = strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "*"))
	}

	var currentLine string
	lineNo := 1
	startNo := 0

	flush := func() error {
		if currentLine == "" {
			return nil
		}
		if err := parseLine(d, currentLine); err != nil {
			return fmt.Errorf("line %d: %w", startNo, err)
		}
		currentLine = ""
		return nil
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		// Inline comment
		if idx := strings.Index(line, "*"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if len(line) == 0 {
			continue
		}

		// Continuation
		if strings.HasPrefix(line, "+") {
			if currentLine == "" {
				return nil, fmt.Errorf("line %d: continuation without a command", lineNo)
			}
			currentLine += " " + strings.TrimSpace(strings.TrimPrefix(line, "+"))
			continue
		}

		if err := flush(); err != nil {
			return nil, err
		}
		currentLine = line
		startNo = lineNo
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}

	if err := d.finish(); err != nil {
		return nil, err
	}
	return d, nil
}

func parseLine(d *Deck, line string) error {
	line = spaceRe.ReplaceAllString(line, " ")
	if !strings.HasPrefix(line, ".") {
		return fmt.Errorf("expected a dot command, got %q", line)
	}
	return parseDotOperator(d, line)
}

func parseDotOperator(d *Deck, line string) error {
	var err error

	fields := strings.Fields(line)
	args := fields[1:]

	switch strings.ToLower(fields[0]) {
	case ".grid":
		if len(args) == 0 {
			return fmt.Errorf("insufficient grid parameters, need at least one axis size")
		}
		d.Options.Shape, err = parseInts(args)
		if err != nil {
			return fmt.Errorf("invalid grid size: %v", err)
		}

	case ".pixel":
		d.Options.PixelSize, err = parseValues(args)
		if err != nil {
			return fmt.Errorf("invalid pixel size: %v", err)
		}

	case ".boundary":
		d.Options.Boundaries, err = parseInts(args)
		if err != nil {
			return fmt.Errorf("invalid boundary width: %v", err)
		}

	case ".periodic":
		axes, err := parseInts(args)
		if err != nil {
			return fmt.Errorf("invalid periodic axis: %v", err)
		}
		d.periodicAxes = append(d.periodicAxes, axes...)

	case ".time":
		if len(args) < 2 {
			return fmt.Errorf("insufficient time parameters, need steps and step size")
		}
		d.Options.TimeSteps, err = strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid time steps: %v", err)
		}
		d.Options.TimeStep, err = ParseValue(args[1])
		if err != nil {
			return fmt.Errorf("invalid time step: %v", err)
		}

	case ".diffusion":
		if len(args) < 2 {
			return fmt.Errorf("insufficient diffusion parameters, need type and values")
		}
		pt, err := diffusion.ParsePotentialType(args[0])
		if err != nil {
			return err
		}
		if len(d.diffusionRegions) > 0 && pt != d.Options.PotentialType {
			return fmt.Errorf("diffusion type %v conflicts with earlier %v", pt, d.Options.PotentialType)
		}
		d.Options.PotentialType = pt
		r, err := parseRegion(args[1:])
		if err != nil {
			return fmt.Errorf("invalid diffusion: %v", err)
		}
		d.diffusionRegions = append(d.diffusionRegions, r)

	case ".absorption":
		r, err := parseRegion(args)
		if err != nil {
			return fmt.Errorf("invalid absorption: %v", err)
		}
		if len(r.values) != 1 {
			return fmt.Errorf("invalid absorption: need exactly one value")
		}
		d.absorptionRegions = append(d.absorptionRegions, r)

	case ".source":
		if len(args) < 2 {
			return fmt.Errorf("insufficient source parameters, need value and position")
		}
		var s PointSource
		s.Value, err = ParseValue(args[0])
		if err != nil {
			return fmt.Errorf("invalid source value: %v", err)
		}
		s.Index, err = parseInts(args[1:])
		if err != nil {
			return fmt.Errorf("invalid source position: %v", err)
		}
		d.Sources = append(d.Sources, s)

	case ".termination":
		if err := parseTermination(d, args); err != nil {
			return err
		}

	case ".callback":
		params, err := parseParams(args)
		if err != nil {
			return err
		}
		for key, val := range params {
			switch key {
			case "every":
				d.Options.CallbackInterval, err = strconv.Atoi(val)
				if err != nil {
					return fmt.Errorf("invalid callback interval: %v", err)
				}
			default:
				return fmt.Errorf("unknown callback parameter: %s", key)
			}
		}

	case ".options":
		if err := parseOptions(d, args); err != nil {
			return err
		}

	case ".print":
		for _, name := range args {
			name = strings.ToLower(name)
			if name != "intensity" && !strings.HasPrefix(name, "flux") {
				return fmt.Errorf("unknown output: %s", name)
			}
			d.Outputs = append(d.Outputs, name)
		}

	case ".end":

	default:
		return fmt.Errorf("unsupported command: %s", fields[0])
	}

	return nil
}

func parseTermination(d *Deck, args []string) error {
	if len(args) >= 2 && strings.ToLower(args[0]) == "fixed" {
		k, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid iteration count: %v", err)
		}
		d.termination.fixed = k
		args = args[2:]
	}

	params, err := parseParams(args)
	if err != nil {
		return err
	}
	for key, val := range params {
		switch key {
		case "tol":
			d.termination.tol, err = ParseValue(val)
		case "maxiter":
			d.termination.maxIter, err = strconv.Atoi(val)
		case "every":
			d.Options.TerminationInterval, err = strconv.Atoi(val)
		case "timeout":
			d.termination.timeout, err = time.ParseDuration(val)
		default:
			return fmt.Errorf("unknown termination parameter: %s", key)
		}
		if err != nil {
			return fmt.Errorf("invalid %s: %v", key, err)
		}
	}
	return nil
}

func parseOptions(d *Deck, args []string) error {
	for _, arg := range args {
		key, val, _ := strings.Cut(arg, "=")
		var err error
		switch strings.ToLower(key) {
		case "alpha":
			d.Options.Alpha, err = ParseValue(val)
		case "vmax":
			d.Options.VMax, err = ParseValue(val)
		case "precision":
			d.Options.Precision, err = array.ParsePrecision(val)
		case "gpu":
			d.Options.GPUEnabled = true
		case "forward":
			d.Options.ForwardOperator = true
		default:
			return fmt.Errorf("unknown option: %s", key)
		}
		if err != nil {
			return fmt.Errorf("invalid %s: %v", key, err)
		}
	}
	return nil
}

// parseRegion reads "<values...> [box lo:hi ...]".
func parseRegion(args []string) (region, error) {
	var r region
	i := 0
	for ; i < len(args) && strings.ToLower(args[i]) != "box"; i++ {
		v, err := ParseValue(args[i])
		if err != nil {
			return r, err
		}
		r.values = append(r.values, v)
	}
	if len(r.values) == 0 {
		return r, fmt.Errorf("no values")
	}
	if i == len(args) {
		return r, nil
	}

	for _, bound := range args[i+1:] {
		loStr, hiStr, ok := strings.Cut(bound, ":")
		if !ok {
			return r, fmt.Errorf("invalid box bound %q, want lo:hi", bound)
		}
		lo, err := strconv.Atoi(loStr)
		if err != nil {
			return r, fmt.Errorf("invalid box bound %q: %v", bound, err)
		}
		hi, err := strconv.Atoi(hiStr)
		if err != nil {
			return r, fmt.Errorf("invalid box bound %q: %v", bound, err)
		}
		if lo < 0 || hi <= lo {
			return r, fmt.Errorf("empty box bound %q", bound)
		}
		r.lo = append(r.lo, lo)
		r.hi = append(r.hi, hi)
	}
	if r.lo == nil {
		return r, fmt.Errorf("box without bounds")
	}
	return r, nil
}

func parseParams(args []string) (map[string]string, error) {
	params := make(map[string]string, len(args))
	for _, arg := range args {
		key, val, ok := strings.Cut(arg, "=")
		if !ok || val == "" {
			return nil, fmt.Errorf("invalid parameter %q, want key=value", arg)
		}
		params[strings.ToLower(key)] = val
	}
	return params, nil
}

func parseInts(args []string) ([]int, error) {
	out := make([]int, len(args))
	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func parseValues(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := ParseValue(a)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ParseValue parses a number with an optional SI suffix, e.g. "2.5u".
func ParseValue(val string) (float64, error) {
	matches := valueRe.FindStringSubmatch(strings.TrimSpace(val))
	if matches == nil {
		return 0, fmt.Errorf("invalid value format: %s", val)
	}

	num, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, err
	}

	// factor
	if matches[2] != "" {
		multiplier, ok := unitMap[matches[2]]
		if !ok {
			return 0, fmt.Errorf("unknown unit suffix %q in %s", matches[2], val)
		}
		num *= multiplier
	}
	return num, nil
}

// terminationPredicate combines the .termination settings.
func (d *Deck) terminationPredicate() state.Predicate {
	var preds state.AnyOf
	if d.termination.fixed > 0 {
		preds = append(preds, state.FixedIterations(d.termination.fixed))
	}
	if d.termination.tol > 0 || d.termination.maxIter > 0 {
		p := state.RelativeResidual{Tolerance: d.termination.tol, MaxIterations: d.termination.maxIter}
		if p.MaxIterations == 0 {
			p.MaxIterations = consts.DEFAULT_MAXITER
		}
		preds = append(preds, p)
	}
	if d.termination.timeout > 0 {
		preds = append(preds, state.Timeout(d.termination.timeout))
	}
	switch len(preds) {
	case 0:
		return nil
	case 1:
		return preds[0]
	default:
		return preds
	}
}
