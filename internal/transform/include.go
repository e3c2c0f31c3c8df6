package transform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	buildErrors "github.com/maxkimambo/sitepipe/internal/errors"
)

const includeDirective = "@@include("

// Includer resolves @@include('path'[, {vars}]) directives. Paths are
// relative to the including file. Included files may use @@name
// placeholders that are filled from the vars object, and may include
// further files. Markdown includes (.md) are rendered to HTML.
type Includer struct {
	md goldmark.Markdown
}

// NewIncluder returns an Includer with GitHub-flavoured markdown enabled.
func NewIncluder() *Includer {
	return &Includer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
}

// File processes the file at path and returns the expanded content.
func (in *Includer) File(path string) ([]byte, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, buildErrors.NewSourceReadError(path, "html", err)
	}
	data, err := readSource(abs, "html")
	if err != nil {
		return nil, err
	}
	return in.expand(data, abs, nil, []string{abs})
}

// Bytes expands directives in data as if it were the file at path.
func (in *Includer) Bytes(data []byte, path string) ([]byte, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, buildErrors.NewSourceReadError(path, "html", err)
	}
	return in.expand(data, abs, nil, []string{abs})
}

func (in *Includer) expand(data []byte, path string, vars map[string]interface{}, chain []string) ([]byte, error) {
	src := string(data)
	var out strings.Builder

	for {
		idx := strings.Index(src, includeDirective)
		if idx < 0 {
			out.WriteString(src)
			break
		}
		out.WriteString(src[:idx])

		target, childVars, consumed, err := parseDirective(src[idx+len(includeDirective):])
		if err != nil {
			return nil, buildErrors.NewTransformFailedError("include", path, err)
		}
		src = src[idx+len(includeDirective)+consumed:]

		resolved := filepath.Join(filepath.Dir(path), filepath.FromSlash(target))
		for _, seen := range chain {
			if seen == resolved {
				return nil, buildErrors.NewIncludeCycleError(append(append([]string{}, chain...), resolved))
			}
		}

		included, err := os.ReadFile(resolved)
		if err != nil {
			return nil, buildErrors.NewSourceReadError(resolved, "html", err).
				WithContext("included_from", path)
		}

		merged := mergeVars(vars, childVars)
		included = substitute(included, merged)

		expanded, err := in.expand(included, resolved, merged, append(chain, resolved))
		if err != nil {
			return nil, err
		}

		if strings.EqualFold(filepath.Ext(resolved), ".md") {
			var buf bytes.Buffer
			if err := in.md.Convert(expanded, &buf); err != nil {
				return nil, buildErrors.NewTransformFailedError("markdown", resolved, err)
			}
			expanded = buf.Bytes()
		}
		out.Write(expanded)
	}

	return []byte(out.String()), nil
}

// parseDirective reads "'path'[, {json}])" and reports how many bytes it
// consumed, including the closing parenthesis.
func parseDirective(s string) (string, map[string]interface{}, int, error) {
	pos := skipSpace(s, 0)
	if pos >= len(s) || (s[pos] != '\'' && s[pos] != '"') {
		return "", nil, 0, fmt.Errorf("include path must be quoted")
	}
	quote := s[pos]
	end := strings.IndexByte(s[pos+1:], quote)
	if end < 0 {
		return "", nil, 0, fmt.Errorf("unterminated include path")
	}
	target := s[pos+1 : pos+1+end]
	if target == "" {
		return "", nil, 0, fmt.Errorf("empty include path")
	}
	pos = skipSpace(s, pos+end+2)

	var vars map[string]interface{}
	if pos < len(s) && s[pos] == ',' {
		pos = skipSpace(s, pos+1)
		dec := json.NewDecoder(strings.NewReader(s[pos:]))
		if err := dec.Decode(&vars); err != nil {
			return "", nil, 0, fmt.Errorf("include variables for %s: %w", target, err)
		}
		pos = skipSpace(s, pos+int(dec.InputOffset()))
	}

	if pos >= len(s) || s[pos] != ')' {
		return "", nil, 0, fmt.Errorf("include directive for %s is missing ')'", target)
	}
	return target, vars, pos + 1, nil
}

func skipSpace(s string, pos int) int {
	for pos < len(s) && (s[pos] == ' ' || s[pos] == '\t' || s[pos] == '\n' || s[pos] == '\r') {
		pos++
	}
	return pos
}

func mergeVars(parent, child map[string]interface{}) map[string]interface{} {
	if len(parent) == 0 {
		return child
	}
	merged := make(map[string]interface{}, len(parent)+len(child))
	for k, v := range parent {
		merged[k] = v
	}
	for k, v := range child {
		merged[k] = v
	}
	return merged
}

// substitute replaces @@name with vars[name]. A name runs to the first
// character that cannot be part of an identifier, so @@title never
// touches @@titleText. Unknown names and @@include are left as they are.
func substitute(data []byte, vars map[string]interface{}) []byte {
	if len(vars) == 0 {
		return data
	}

	src := string(data)
	var out strings.Builder
	for {
		idx := strings.Index(src, "@@")
		if idx < 0 {
			out.WriteString(src)
			break
		}
		out.WriteString(src[:idx])

		end := idx + 2
		for end < len(src) && isIdentByte(src[end]) {
			end++
		}
		name := src[idx+2 : end]
		value, ok := vars[name]
		if name == "" || name == "include" || !ok {
			out.WriteString(src[idx:end])
		} else {
			out.WriteString(formatVar(value))
		}
		src = src[end:]
	}
	return []byte(out.String())
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func formatVar(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	case float64, bool:
		return fmt.Sprint(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

// BuildHTML expands every top-level *.html page in srcDir into dstDir.
// Files whose names start with an underscore are partials and are only
// reachable through includes.
func BuildHTML(srcDir, dstDir string) (int, error) {
	in := NewIncluder()
	pages, err := Glob(srcDir, "*.html", "_*")
	if err != nil {
		return 0, buildErrors.NewSourceReadError(srcDir, "html", err)
	}
	for _, page := range pages {
		out, err := in.File(filepath.Join(srcDir, page))
		if err != nil {
			return 0, err
		}
		if err := writeOutput(filepath.Join(dstDir, page), out, "html"); err != nil {
			return 0, err
		}
	}
	return len(pages), nil
}
