package parse

import (
	"fmt"
	"strings"

	"github.com/tomerten/latticeconstructor/lattice"
)

// MADX parses a MAD-X input file. Both description styles are
// understood: LINE definitions (expanded like Elegant lines) and
// SEQUENCE blocks (which carry explicit at= centre positions).
// Variable assignments and arithmetic attribute expressions are
// evaluated; MAD-X commands other than USE are skipped.
func MADX(src string) (*Result, error) {
	stmts := madxStatements(src)

	defs := lattice.Defs{}
	vars := map[string]float64{}
	lines := map[string][]lineItem{}
	var lineOrder []string

	var placements []Placement
	seqName := ""
	useName := ""
	inSequence := false

	for _, stmt := range stmts {
		upper := strings.ToUpper(stmt)

		if inSequence {
			if keyword(upper) == "ENDSEQUENCE" {
				inSequence = false
				continue
			}
			p, def, err := madxSeqElement(stmt, vars, defs)
			if err != nil {
				return nil, fmt.Errorf("sequence %s: %w", seqName, err)
			}
			if def != nil {
				defs[def.Name] = *def
			}
			placements = append(placements, p)
			continue
		}

		switch keyword(upper) {
		case "USE":
			useName = madxUseTarget(stmt)
			continue
		case "RETURN", "STOP":
			return madxResult(defs, lines, lineOrder, placements, seqName, useName)
		}

		if name, body, ok := cutNameBody(stmt); ok {
			name = strings.ToUpper(name)
			switch {
			case isLineDef(body):
				items, err := elegantLineBody(body)
				if err != nil {
					return nil, fmt.Errorf("line %s: %w", name, err)
				}
				lines[name] = items
				lineOrder = append(lineOrder, name)
			case keyword(strings.ToUpper(body)) == "SEQUENCE":
				if seqName != "" {
					return nil, fmt.Errorf("sequence %s: multiple sequences not supported", name)
				}
				seqName = name
				inSequence = true
			default:
				def, err := madxDefinition(name, body, vars, defs)
				if err != nil {
					return nil, err
				}
				defs[name] = def
			}
			continue
		}

		if name, expr, ok := madxAssignment(stmt); ok {
			v, err := evalExpr(expr, vars)
			if err != nil {
				return nil, fmt.Errorf("assignment %s: %w", name, err)
			}
			vars[strings.ToUpper(name)] = v
			continue
		}

		// remaining commands (BEAM, TWISS, TITLE, ...) are ignored
	}

	return madxResult(defs, lines, lineOrder, placements, seqName, useName)
}

// madxStatements strips comments and splits the source on semicolons.
func madxStatements(src string) []string {
	// block comments first, then line comments per line
	for {
		open := strings.Index(src, "/*")
		if open < 0 {
			break
		}
		close := strings.Index(src[open:], "*/")
		if close < 0 {
			src = src[:open]
			break
		}
		src = src[:open] + " " + src[open+close+2:]
	}

	var clean strings.Builder
	for _, line := range strings.Split(src, "\n") {
		clean.WriteString(stripLineComment(line, "!", "//"))
		clean.WriteByte('\n')
	}

	var stmts []string
	for _, s := range splitTop(clean.String(), ';') {
		s = strings.Join(strings.Fields(s), " ")
		if s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}

// madxAssignment matches "name = expr", "name := expr" and the
// CONST/REAL prefixed forms.
func madxAssignment(stmt string) (name, expr string, ok bool) {
	s := stmt
	upper := strings.ToUpper(s)
	for _, prefix := range []string{"CONST ", "REAL ", "INT "} {
		if strings.HasPrefix(upper, prefix) {
			s = strings.TrimSpace(s[len(prefix):])
			break
		}
	}
	lhs, rhs, found := strings.Cut(s, "=")
	if !found {
		return "", "", false
	}
	lhs = strings.TrimSuffix(strings.TrimSpace(lhs), ":")
	lhs = strings.TrimSpace(lhs)
	if lhs == "" || strings.ContainsAny(lhs, " ,()") {
		return "", "", false
	}
	return lhs, strings.TrimSpace(rhs), true
}

func madxUseTarget(stmt string) string {
	for _, field := range splitTop(stmt, ',')[1:] {
		k, v, found := strings.Cut(field, "=")
		if !found {
			return strings.ToUpper(strings.TrimSpace(field))
		}
		switch strings.ToUpper(strings.TrimSpace(k)) {
		case "SEQUENCE", "PERIOD":
			return strings.ToUpper(strings.TrimSpace(v))
		}
	}
	return ""
}

// madxDefinition parses "type, attr=expr, attr:=expr, flag, ...".
// The type may itself be a previously defined element (class
// instantiation); the parent's family, length and attributes are
// inherited.
func madxDefinition(name, body string, vars map[string]float64, defs lattice.Defs) (lattice.Definition, error) {
	fields := splitTop(body, ',')
	typeName := strings.ToUpper(strings.TrimSpace(fields[0]))

	def := lattice.Definition{
		Name:   name,
		Family: lattice.CanonicalFamily(typeName),
		Attrs:  map[string]any{},
	}
	if parent, ok := defs[typeName]; ok {
		def.Family = parent.Family
		def.L = parent.L
		for k, v := range parent.Attrs {
			def.Attrs[k] = v
		}
	}

	for _, field := range fields[1:] {
		k, v, found := strings.Cut(field, "=")
		if !found {
			// bare flag attribute
			def.Attrs[strings.ToUpper(strings.TrimSpace(field))] = true
			continue
		}
		key := strings.ToUpper(strings.TrimSuffix(strings.TrimSpace(k), ":"))
		key = strings.TrimSpace(key)
		val, err := madxValue(strings.TrimSpace(v), vars)
		if err != nil {
			return def, fmt.Errorf("element %s, attribute %s: %w", name, key, err)
		}
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

// madxValue evaluates an attribute value: quoted strings stay
// strings, TRUE/FALSE become bools, everything else is an arithmetic
// expression. Bare words that resolve to nothing (apertype=circle)
// fall back to strings.
func madxValue(v string, vars map[string]float64) (any, error) {
	if strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) && len(v) >= 2 {
		return v[1 : len(v)-1], nil
	}
	switch strings.ToUpper(v) {
	case "TRUE":
		return true, nil
	case "FALSE":
		return false, nil
	}
	f, err := evalExpr(v, vars)
	if err != nil {
		if isBareWord(v) {
			return v, nil
		}
		return nil, err
	}
	return f, nil
}

func isBareWord(v string) bool {
	for i, r := range v {
		if i == 0 && !isIdentStart(r) {
			return false
		}
		if !isIdentPart(r) {
			return false
		}
	}
	return v != ""
}

// madxSeqElement parses one statement inside a SEQUENCE block:
// "name, at=expr" or the inline-definition form
// "name: class, at=expr, ...".
func madxSeqElement(stmt string, vars map[string]float64, defs lattice.Defs) (Placement, *lattice.Definition, error) {
	var def *lattice.Definition

	rest := stmt
	elemName := ""
	if name, body, ok := cutNameBody(stmt); ok {
		d, err := madxDefinition(strings.ToUpper(name), body, vars, defs)
		if err != nil {
			return Placement{}, nil, err
		}
		def = &d
		elemName = strings.ToUpper(name)
		rest = body
	}

	fields := splitTop(rest, ',')
	if elemName == "" {
		elemName = strings.ToUpper(strings.TrimSpace(fields[0]))
	}

	at := 0.0
	atSeen := false
	for _, field := range fields[1:] {
		k, v, found := strings.Cut(field, "=")
		if !found {
			continue
		}
		if strings.ToUpper(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(k), ":"))) == "AT" {
			val, err := evalExpr(strings.TrimSpace(v), vars)
			if err != nil {
				return Placement{}, nil, fmt.Errorf("element %s: %w", elemName, err)
			}
			at = val
			atSeen = true
		}
	}
	if !atSeen {
		return Placement{}, nil, fmt.Errorf("element %s: missing at= position", elemName)
	}

	if def != nil {
		// placement attrs (AT) do not belong in the definition
		delete(def.Attrs, "AT")
	}
	return Placement{Name: elemName, At: at}, def, nil
}

// madxResult assembles the final Result. A sequence wins over lines;
// among lines, the USE target wins and the last-defined line is the
// fallback root.
func madxResult(defs lattice.Defs, lines map[string][]lineItem, lineOrder []string, placements []Placement, seqName, useName string) (*Result, error) {
	res := &Result{Defs: defs}

	if seqName != "" {
		res.Name = seqName
		res.Placements = placements
		res.Order = make([]string, len(placements))
		for i, p := range placements {
			res.Order[i] = p.Name
		}
		return res, nil
	}

	root := useName
	if root == "" && len(lineOrder) > 0 {
		root = lineOrder[len(lineOrder)-1]
	}
	if root != "" {
		if _, ok := lines[root]; !ok && useName != "" {
			return nil, fmt.Errorf("use target %s: no such line or sequence", useName)
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
