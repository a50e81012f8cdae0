package parse

import (
	"fmt"
	"strconv"
	"strings"
)

// splitTop splits s on sep at paren depth zero, outside quoted
// strings. Empty fields are dropped.
func splitTop(s string, sep byte) []string {
	var out []string
	depth := 0
	inQuote := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == sep && depth == 0:
			if f := strings.TrimSpace(s[start:i]); f != "" {
				out = append(out, f)
			}
			start = i + 1
		}
	}
	if f := strings.TrimSpace(s[start:]); f != "" {
		out = append(out, f)
	}
	return out
}

// stripLineComment cuts line at the first marker occurring outside a
// quoted string.
func stripLineComment(line string, markers ...string) string {
	inQuote := false
	for i := 0; i < len(line); i++ {
		if line[i] == '"' {
			inQuote = !inQuote
			continue
		}
		if inQuote {
			continue
		}
		for _, m := range markers {
			if strings.HasPrefix(line[i:], m) {
				return line[:i]
			}
		}
	}
	return line
}

// cutNameBody splits a definition statement "name : body" at the first
// top-level colon. MAD-X deferred assignments use ":=", which must not
// be treated as a definition colon.
func cutNameBody(stmt string) (name, body string, ok bool) {
	inQuote := false
	for i := 0; i < len(stmt); i++ {
		c := stmt[i]
		if c == '"' {
			inQuote = !inQuote
			continue
		}
		if inQuote {
			continue
		}
		if c == ':' {
			if i+1 < len(stmt) && stmt[i+1] == '=' {
				return "", "", false
			}
			return strings.TrimSpace(stmt[:i]), strings.TrimSpace(stmt[i+1:]), true
		}
		if c == '=' || c == ',' {
			// an assignment or bare command before any colon
			return "", "", false
		}
	}
	return "", "", false
}

// keyword returns the leading word of a statement, cut at the first
// delimiter. Callers pass upper-cased input.
func keyword(stmt string) string {
	for i := 0; i < len(stmt); i++ {
		switch stmt[i] {
		case ',', ':', '=', ' ', '\t':
			return stmt[:i]
		}
	}
	return stmt
}

// lineItem is one entry of a LINE definition: an element or sub-line
// reference with an optional repeat count and reversal flag.
type lineItem struct {
	name    string
	repeat  int
	reverse bool
}

// parseLineItems parses the comma-separated items of a LINE body
// without the surrounding parentheses. Items have the form
// [-][N*]name.
func parseLineItems(body string) ([]lineItem, error) {
	var items []lineItem
	for _, raw := range splitTop(body, ',') {
		it := lineItem{repeat: 1}
		s := strings.TrimSpace(raw)
		if strings.HasPrefix(s, "-") {
			it.reverse = true
			s = strings.TrimSpace(s[1:])
		}
		if pre, rest, found := strings.Cut(s, "*"); found {
			n, err := strconv.Atoi(strings.TrimSpace(pre))
			if err != nil || n < 1 {
				return nil, fmt.Errorf("bad repeat count in line item %q", raw)
			}
			it.repeat = n
			s = strings.TrimSpace(rest)
		}
		if s == "" || strings.ContainsAny(s, "() ") {
			return nil, fmt.Errorf("bad line item %q", raw)
		}
		it.name = strings.ToUpper(s)
		items = append(items, it)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("empty line definition")
	}
	return items, nil
}

// flattenLines expands nested sub-line references into a flat element
// list, starting from root. Reversed items play their expansion
// backwards; repeated items expand repeat times.
func flattenLines(lines map[string][]lineItem, root string) ([]string, error) {
	var walk func(name string, depth int) ([]string, error)
	walk = func(name string, depth int) ([]string, error) {
		if depth > 64 {
			return nil, fmt.Errorf("line %s: nesting too deep (cycle?)", name)
		}
		items, ok := lines[name]
		if !ok {
			return []string{name}, nil
		}
		var out []string
		for _, it := range items {
			sub, err := walk(it.name, depth+1)
			if err != nil {
				return nil, err
			}
			if it.reverse {
				rev := make([]string, len(sub))
				for i, s := range sub {
					rev[len(sub)-1-i] = s
				}
				sub = rev
			}
			for i := 0; i < it.repeat; i++ {
				out = append(out, sub...)
			}
		}
		return out, nil
	}
	return walk(strings.ToUpper(root), 0)
}
