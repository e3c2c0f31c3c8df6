package transform

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// pathCommand is one SVG path command with its flattened arguments.
type pathCommand struct {
	op   byte
	args []float64
}

// argCount is the number of arguments per repetition of each command.
var argCount = map[byte]int{
	'M': 2, 'L': 2, 'H': 1, 'V': 1, 'C': 6, 'S': 4, 'Q': 4, 'T': 2, 'A': 7, 'Z': 0,
}

// parsePath tokenizes SVG path data. Implicit command repetition is
// expanded so each pathCommand carries exactly one argument group.
func parsePath(d string) ([]pathCommand, error) {
	var cmds []pathCommand
	var op byte
	pos := 0

	for {
		pos = skipPathSeparators(d, pos)
		if pos >= len(d) {
			break
		}

		c := d[pos]
		if isPathCommand(c) {
			op = c
			pos++
			if upper(op) == 'Z' {
				cmds = append(cmds, pathCommand{op: op})
				continue
			}
		} else if op == 0 {
			return nil, fmt.Errorf("path data must start with a command, found %q", c)
		} else if upper(op) == 'Z' {
			return nil, fmt.Errorf("unexpected number after close path at offset %d", pos)
		}

		n := argCount[upper(op)]
		args := make([]float64, 0, n)
		for i := 0; i < n; i++ {
			pos = skipPathSeparators(d, pos)
			var v float64
			var err error
			if upper(op) == 'A' && (i == 3 || i == 4) {
				v, pos, err = readFlag(d, pos)
			} else {
				v, pos, err = readNumber(d, pos)
			}
			if err != nil {
				return nil, fmt.Errorf("command %c: %w", op, err)
			}
			args = append(args, v)
		}
		cmds = append(cmds, pathCommand{op: op, args: args})

		// A moveto followed by extra pairs continues as lineto.
		if op == 'M' {
			op = 'L'
		} else if op == 'm' {
			op = 'l'
		}
	}
	return cmds, nil
}

func isPathCommand(c byte) bool {
	_, ok := argCount[upper(c)]
	return ok && ((c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z'))
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

func skipPathSeparators(d string, pos int) int {
	for pos < len(d) {
		switch d[pos] {
		case ' ', '\t', '\n', '\r', ',':
			pos++
		default:
			return pos
		}
	}
	return pos
}

func readFlag(d string, pos int) (float64, int, error) {
	if pos < len(d) && (d[pos] == '0' || d[pos] == '1') {
		return float64(d[pos] - '0'), pos + 1, nil
	}
	return 0, pos, fmt.Errorf("expected arc flag at offset %d", pos)
}

// readNumber scans one SVG number. "1.5.5" is two numbers and "1-2" is
// two numbers, as the path grammar allows.
func readNumber(d string, pos int) (float64, int, error) {
	start := pos
	if pos < len(d) && (d[pos] == '+' || d[pos] == '-') {
		pos++
	}
	digits, dot := 0, false
	for pos < len(d) {
		c := d[pos]
		if c >= '0' && c <= '9' {
			digits++
			pos++
		} else if c == '.' && !dot {
			dot = true
			pos++
		} else {
			break
		}
	}
	if digits == 0 {
		return 0, start, fmt.Errorf("expected number at offset %d", start)
	}
	if pos < len(d) && (d[pos] == 'e' || d[pos] == 'E') {
		exp := pos + 1
		if exp < len(d) && (d[exp] == '+' || d[exp] == '-') {
			exp++
		}
		if exp < len(d) && d[exp] >= '0' && d[exp] <= '9' {
			pos = exp
			for pos < len(d) && d[pos] >= '0' && d[pos] <= '9' {
				pos++
			}
		}
	}
	v, err := strconv.ParseFloat(d[start:pos], 64)
	if err != nil {
		return 0, start, err
	}
	return v, pos, nil
}

// glyphTransform maps SVG user space into font units: shift by the
// viewBox origin, scale, and flip y around the ascent line.
type glyphTransform struct {
	minX, minY float64
	scale      float64
	ascent     float64
}

func (t glyphTransform) x(v float64) float64  { return (v - t.minX) * t.scale }
func (t glyphTransform) y(v float64) float64  { return t.ascent - (v-t.minY)*t.scale }
func (t glyphTransform) dx(v float64) float64 { return v * t.scale }
func (t glyphTransform) dy(v float64) float64 { return -v * t.scale }

// transformPath rewrites path data into font units.
func transformPath(d string, t glyphTransform) (string, error) {
	cmds, err := parsePath(d)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, c := range cmds {
		relative := c.op >= 'a' && c.op <= 'z'
		px, py := t.x, t.y
		if relative {
			px, py = t.dx, t.dy
		}

		out := make([]float64, len(c.args))
		switch upper(c.op) {
		case 'H':
			out[0] = px(c.args[0])
		case 'V':
			out[0] = py(c.args[0])
		case 'A':
			out[0] = c.args[0] * t.scale
			out[1] = c.args[1] * t.scale
			out[2] = -c.args[2]
			out[3] = c.args[3]
			out[4] = 1 - c.args[4] // the y flip reverses sweep direction
			out[5] = px(c.args[5])
			out[6] = py(c.args[6])
		default:
			for i := 0; i+1 < len(c.args); i += 2 {
				out[i] = px(c.args[i])
				out[i+1] = py(c.args[i+1])
			}
		}

		sb.WriteByte(c.op)
		for i, v := range out {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(formatCoord(v))
		}
	}
	return sb.String(), nil
}

func formatCoord(v float64) string {
	r := math.Round(v*100) / 100
	if r == 0 {
		r = 0 // normalise -0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}
