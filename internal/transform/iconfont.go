package transform

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	buildErrors "github.com/maxkimambo/sitepipe/internal/errors"
)

// IconFontOptions configures font synthesis.
type IconFontOptions struct {
	Name           string
	StartCodepoint int
	EmSize         int
}

// Glyph is one icon in the generated font.
type Glyph struct {
	Name      string `json:"name"`
	Codepoint int    `json:"codepoint"`
	Unicode   string `json:"unicode"`
	Source    string `json:"source"`

	advance int
	path    string
}

// IconFont is the result of synthesizing a font from SVG icons.
type IconFont struct {
	Options IconFontOptions
	Glyphs  []Glyph
}

// BuildIconFont reads every *.svg in srcDir (in file-name order), assigns
// consecutive code points and writes <name>.svg, <name>.css and
// glyphs.json into dstDir.
func BuildIconFont(srcDir, dstDir string, opts IconFontOptions) (*IconFont, error) {
	files, err := Glob(srcDir, "*.svg")
	if err != nil {
		return nil, buildErrors.NewSourceReadError(srcDir, "iconfont", err)
	}
	if len(files) == 0 {
		return nil, buildErrors.NewSourceNotFoundError(filepath.Join(srcDir, "*.svg"), "iconfont")
	}

	font := &IconFont{Options: opts}
	seen := make(map[string]string)
	for i, rel := range files {
		src := filepath.Join(srcDir, filepath.FromSlash(rel))
		data, err := readSource(src, "iconfont")
		if err != nil {
			return nil, err
		}
		name := glyphName(rel)
		if prev, ok := seen[name]; ok {
			return nil, buildErrors.NewTransformFailedError("iconfont", src,
				fmt.Errorf("glyph name %q is also produced by %s", name, prev))
		}
		seen[name] = rel

		g, err := parseGlyph(data, opts.EmSize)
		if err != nil {
			return nil, buildErrors.NewTransformFailedError("iconfont", src, err)
		}
		cp := opts.StartCodepoint + i
		g.Name = name
		g.Codepoint = cp
		g.Unicode = fmt.Sprintf("%04x", cp)
		g.Source = rel
		font.Glyphs = append(font.Glyphs, g)
	}

	svgFont, err := font.SVG()
	if err != nil {
		return nil, buildErrors.NewTransformFailedError("iconfont", srcDir, err)
	}
	manifest, err := json.MarshalIndent(font.Glyphs, "", "  ")
	if err != nil {
		return nil, buildErrors.NewTransformFailedError("iconfont", srcDir, err)
	}

	outputs := map[string][]byte{
		opts.Name + ".svg": svgFont,
		opts.Name + ".css": []byte(font.CSS()),
		"glyphs.json":      manifest,
	}
	for file, data := range outputs {
		if err := writeOutput(filepath.Join(dstDir, file), data, "iconfont"); err != nil {
			return nil, err
		}
	}
	return font, nil
}

// glyphName derives a CSS-safe class suffix from an icon file name.
func glyphName(rel string) string {
	base := strings.TrimSuffix(path.Base(rel), path.Ext(rel))
	var sb strings.Builder
	for _, r := range strings.ToLower(base) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
		default:
			sb.WriteByte('-')
		}
	}
	return strings.Trim(sb.String(), "-")
}

// parseGlyph extracts the outline of an SVG icon in font units.
func parseGlyph(data []byte, em int) (Glyph, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false

	var viewBox [4]float64
	haveViewBox := false
	var paths []string

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Glyph{}, fmt.Errorf("parse svg: %w", err)
		}
		el, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		attrs := attrMap(el.Attr)

		switch el.Name.Local {
		case "svg":
			if vb, ok := attrs["viewBox"]; ok {
				viewBox, err = parseViewBox(vb)
				if err != nil {
					return Glyph{}, err
				}
				haveViewBox = true
			} else {
				w, errW := parseLength(attrs["width"])
				h, errH := parseLength(attrs["height"])
				if errW == nil && errH == nil {
					viewBox = [4]float64{0, 0, w, h}
					haveViewBox = true
				}
			}
		case "path":
			if d := strings.TrimSpace(attrs["d"]); d != "" {
				paths = append(paths, d)
			}
		case "polygon", "polyline":
			if d := pointsToPath(attrs["points"], el.Name.Local == "polygon"); d != "" {
				paths = append(paths, d)
			}
		case "rect":
			if d := rectToPath(attrs); d != "" {
				paths = append(paths, d)
			}
		}
	}

	if !haveViewBox || viewBox[2] <= 0 || viewBox[3] <= 0 {
		return Glyph{}, fmt.Errorf("svg needs a viewBox or width and height")
	}
	if len(paths) == 0 {
		return Glyph{}, fmt.Errorf("svg contains no drawable paths")
	}

	t := glyphTransform{
		minX:   viewBox[0],
		minY:   viewBox[1],
		scale:  float64(em) / viewBox[3],
		ascent: float64(em),
	}

	var d strings.Builder
	for _, p := range paths {
		out, err := transformPath(p, t)
		if err != nil {
			return Glyph{}, err
		}
		d.WriteString(out)
	}

	return Glyph{
		advance: int(math.Round(viewBox[2] * t.scale)),
		path:    d.String(),
	}, nil
}

func attrMap(attrs []xml.Attr) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[a.Name.Local] = a.Value
	}
	return m
}

func parseViewBox(s string) ([4]float64, error) {
	var vb [4]float64
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' || r == '\t' || r == '\n' })
	if len(fields) != 4 {
		return vb, fmt.Errorf("invalid viewBox %q", s)
	}
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return vb, fmt.Errorf("invalid viewBox %q: %w", s, err)
		}
		vb[i] = v
	}
	return vb, nil
}

func parseLength(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "px"), 64)
}

func pointsToPath(points string, closed bool) string {
	fields := strings.FieldsFunc(points, func(r rune) bool { return r == ' ' || r == ',' || r == '\t' || r == '\n' })
	if len(fields) < 4 || len(fields)%2 != 0 {
		return ""
	}
	var sb strings.Builder
	for i := 0; i < len(fields); i += 2 {
		if i == 0 {
			sb.WriteString("M")
		} else {
			sb.WriteString("L")
		}
		sb.WriteString(fields[i] + " " + fields[i+1])
	}
	if closed {
		sb.WriteString("Z")
	}
	return sb.String()
}

func rectToPath(attrs map[string]string) string {
	num := func(k string) float64 {
		v, _ := parseLength(attrs[k])
		return v
	}
	w, h := num("width"), num("height")
	if w <= 0 || h <= 0 {
		return ""
	}
	x, y := num("x"), num("y")
	return fmt.Sprintf("M%g %gH%gV%gH%gZ", x, y, x+w, y+h, x)
}

type svgFontDoc struct {
	XMLName xml.Name    `xml:"svg"`
	Xmlns   string      `xml:"xmlns,attr"`
	Font    svgFontElem `xml:"defs>font"`
}

type svgFontElem struct {
	ID      string         `xml:"id,attr"`
	Advance int            `xml:"horiz-adv-x,attr"`
	Face    svgFontFace    `xml:"font-face"`
	Missing svgGlyphElem   `xml:"missing-glyph"`
	Glyphs  []svgGlyphElem `xml:"glyph"`
}

type svgFontFace struct {
	Family     string `xml:"font-family,attr"`
	UnitsPerEm int    `xml:"units-per-em,attr"`
	Ascent     int    `xml:"ascent,attr"`
	Descent    int    `xml:"descent,attr"`
}

type svgGlyphElem struct {
	Name    string `xml:"glyph-name,attr,omitempty"`
	Unicode string `xml:"unicode,attr,omitempty"`
	Advance int    `xml:"horiz-adv-x,attr"`
	D       string `xml:"d,attr,omitempty"`
}

// SVG renders the font as an SVG font document.
func (f *IconFont) SVG() ([]byte, error) {
	em := f.Options.EmSize
	doc := svgFontDoc{
		Xmlns: "http://www.w3.org/2000/svg",
		Font: svgFontElem{
			ID:      f.Options.Name,
			Advance: em,
			Face: svgFontFace{
				Family:     f.Options.Name,
				UnitsPerEm: em,
				Ascent:     em,
				Descent:    0,
			},
			Missing: svgGlyphElem{Advance: 0},
		},
	}
	for _, g := range f.Glyphs {
		doc.Font.Glyphs = append(doc.Font.Glyphs, svgGlyphElem{
			Name:    g.Name,
			Unicode: string(rune(g.Codepoint)),
			Advance: g.advance,
			D:       g.path,
		})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// CSS renders the @font-face rule and one class per glyph.
func (f *IconFont) CSS() string {
	name := f.Options.Name
	var sb strings.Builder
	fmt.Fprintf(&sb, "@font-face {\n  font-family: %q;\n  src: url(\"%s.svg#%s\") format(\"svg\");\n  font-weight: normal;\n  font-style: normal;\n}\n\n", name, name, name)
	fmt.Fprintf(&sb, "[class^=\"icon-\"]:before,\n[class*=\" icon-\"]:before {\n  font-family: %q;\n  font-style: normal;\n  font-weight: normal;\n  line-height: 1;\n  -webkit-font-smoothing: antialiased;\n}\n", name)
	for _, g := range f.Glyphs {
		fmt.Fprintf(&sb, "\n.icon-%s:before { content: \"\\%s\"; }", g.Name, g.Unicode)
	}
	sb.WriteByte('\n')
	return sb.String()
}
