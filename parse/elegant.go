package parse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tomerten/latticeconstructor/lattice"
)

// Elegant parses an Elegant lattice file (.lte). Element families are
// converted to MAD-X names; the element order comes from expanding the
// LINE selected by the USE command, falling back to the last-defined
// line when no USE is present.
func Elegant(src string) (*Result, error) {
	stmts, rpnVars := elegantStatements(src)

	defs := lattice.Defs{}
	lines := map[string][]lineItem{}
	var lineOrder []string
	useName := ""

	for _, stmt := range stmts {
		upper := strings.ToUpper(stmt)
		if keyword(upper) == "USE" {
			fields := splitTop(stmt, ',')
			if len(fields) >= 2 {
				useName = strings.ToUpper(strings.Trim(fields[1], `" `))
			}
			continue
		}
		if keyword(upper) == "RETURN" {
			break
		}

		name, body, ok := cutNameBody(stmt)
		if !ok {
			// directives like %RPN or run-control commands
			continue
		}
		name = strings.ToUpper(name)

		if isLineDef(body) {
			items, err := elegantLineBody(body)
			if err != nil {
				return nil, fmt.Errorf("line %s: %w", name, err)
			}
			lines[name] = items
			lineOrder = append(lineOrder, name)
			continue
		}

		def, err := elegantDefinition(name, body, rpnVars)
		if err != nil {
			return nil, err
		}
		defs[name] = def
	}

	res := &Result{Defs: defs}

	root := useName
	if root == "" && len(lineOrder) > 0 {
		root = lineOrder[len(lineOrder)-1]
	}
	if root != "" {
		if _, ok := lines[root]; !ok && useName != "" {
			return nil, fmt.Errorf("use target %s: no such line", useName)
		}
		order, err := flattenLines(lines, root)
		if err != nil {
			return nil, err
		}
		res.Order = order
		res.Name = root
	}

	return res, nil
}

// elegantStatements splits the source into logical statements:
// comments stripped, continuation lines (trailing &) joined. RPN
// store lines ("% <value> sto <name>") are collected separately as
// named values.
func elegantStatements(src string) ([]string, map[string]string) {
	rpnVars := map[string]string{}
	var stmts []string
	var pending string

	for _, raw := range strings.Split(src, "\n") {
		line := strings.TrimSpace(stripLineComment(raw, "!"))
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "%") {
			// RPN store: % 0.49 sto K1QF
			body := strings.TrimSpace(line[1:])
			if val, name, found := strings.Cut(body, " sto "); found {
				rpnVars[strings.TrimSpace(name)] = strings.TrimSpace(val)
			}
			continue
		}
		if strings.HasSuffix(line, "&") {
			pending += strings.TrimSuffix(line, "&") + " "
			continue
		}
		stmts = append(stmts, strings.TrimSpace(pending+line))
		pending = ""
	}
	if strings.TrimSpace(pending) != "" {
		stmts = append(stmts, strings.TrimSpace(pending))
	}
	return stmts, rpnVars
}

// isLineDef reports whether a definition body is a LINE definition.
func isLineDef(body string) bool {
	upper := strings.ToUpper(body)
	return strings.HasPrefix(upper, "LINE")
}

func elegantLineBody(body string) ([]lineItem, error) {
	_, after, found := strings.Cut(body, "=")
	if !found {
		return nil, fmt.Errorf("missing = in line definition")
	}
	inner := strings.TrimSpace(after)
	if !strings.HasPrefix(inner, "(") || !strings.HasSuffix(inner, ")") {
		return nil, fmt.Errorf("line body %q not parenthesised", inner)
	}
	return parseLineItems(inner[1 : len(inner)-1])
}

// elegantDefinition parses "TYPE, K=V, ..." into a Definition. Values
// are numbers where possible; quoted values naming an RPN-stored
// variable resolve to that variable's numeric value; TRUE/FALSE become
// bools; everything else stays a string.
func elegantDefinition(name, body string, rpnVars map[string]string) (lattice.Definition, error) {
	fields := splitTop(body, ',')
	def := lattice.Definition{
		Name:   name,
		Family: lattice.CanonicalFamily(strings.ToUpper(strings.TrimSpace(fields[0]))),
		Attrs:  map[string]any{},
	}

	for _, field := range fields[1:] {
		k, v, found := strings.Cut(field, "=")
		if !found {
			return def, fmt.Errorf("element %s: bad attribute %q", name, field)
		}
		key := strings.ToUpper(strings.TrimSpace(k))
		val := elegantValue(strings.TrimSpace(v), rpnVars)
		if key == "L" {
			f, ok := val.(float64)
			if !ok {
				return def, fmt.Errorf("element %s: non-numeric length %q", name, v)
			}
			def.L = f
			continue
		}
		def.Attrs[key] = val
	}
	return def, nil
}

func elegantValue(v string, rpnVars map[string]string) any {
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	if strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) && len(v) >= 2 {
		inner := v[1 : len(v)-1]
		if stored, ok := rpnVars[inner]; ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(stored), 64); err == nil {
				return f
			}
		}
		return inner
	}
	switch strings.ToUpper(v) {
	case "TRUE":
		return true
	case "FALSE":
		return false
	}
	if stored, ok := rpnVars[v]; ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(stored), 64); err == nil {
			return f
		}
	}
	return v
}
