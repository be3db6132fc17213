package nexus

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/evolbioinfo/gotree/io/newick"
	"github.com/evolbioinfo/gotree/tree"
)

// NamedTree is one `tree <name> = <newick>;` statement.
type NamedTree struct {
	Name   string
	Newick string // without the trailing ';'
}

// TreeSet is the content of the trees blocks of a Nexus file.
type TreeSet struct {
	Translate map[string]string
	Trees     []NamedTree
}

// ErrNoTrees is returned by Last on an empty set.
var ErrNoTrees = errors.New("nexus: no trees")

// ReadTrees collects the translate table and tree statements of every
// `begin trees;` block in r. Bracket comments such as MrBayes' [&U] and
// [ID: ...] are dropped.
func ReadTrees(r io.Reader) (*TreeSet, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	text, err := stripComments(string(raw))
	if err != nil {
		return nil, err
	}

	ts := &TreeSet{Translate: map[string]string{}}
	inTrees := false
	for _, stmt := range splitStatements(text) {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		word, rest := firstWord(stmt)
		if strings.EqualFold(word, Header) {
			word, rest = firstWord(rest)
		}
		switch strings.ToLower(word) {
		case "begin":
			block, _ := firstWord(rest)
			inTrees = strings.EqualFold(block, "trees")
		case "end", "endblock":
			inTrees = false
		case "translate":
			if inTrees {
				if err := ts.addTranslations(rest); err != nil {
					return nil, err
				}
			}
		case "tree", "utree":
			if inTrees {
				nt, err := parseTreeStatement(rest)
				if err != nil {
					return nil, err
				}
				ts.Trees = append(ts.Trees, nt)
			}
		}
	}
	return ts, nil
}

// Last returns the final tree statement, i.e. the latest MCMC sample.
func (ts *TreeSet) Last() (NamedTree, error) {
	if ts == nil || len(ts.Trees) == 0 {
		return NamedTree{}, ErrNoTrees
	}
	return ts.Trees[len(ts.Trees)-1], nil
}

// Label maps a tip name through the translate table.
func (ts *TreeSet) Label(name string) string {
	if l, ok := ts.Translate[name]; ok {
		return l
	}
	return name
}

// Parse builds the tree for nt and renames its tips through the translate
// table.
func (ts *TreeSet) Parse(nt NamedTree) (*tree.Tree, error) {
	t, err := newick.NewParser(strings.NewReader(plainLengths(nt.Newick) + ";")).Parse()
	if err != nil {
		return nil, fmt.Errorf("nexus: tree %s: %w", nt.Name, err)
	}
	for _, tip := range t.Tips() {
		tip.SetName(ts.Label(tip.Name()))
	}
	return t, nil
}

var lengthRe = regexp.MustCompile(`:\s*([-+]?[0-9]*\.?[0-9]+(?:[eE][-+]?[0-9]+)?)`)

// plainLengths rewrites branch lengths such as MrBayes' 1.000000e-01 in
// plain decimal notation.
func plainLengths(nwk string) string {
	return lengthRe.ReplaceAllStringFunc(nwk, func(m string) string {
		v, err := strconv.ParseFloat(strings.TrimSpace(m[1:]), 64)
		if err != nil {
			return m
		}
		return ":" + strconv.FormatFloat(v, 'f', -1, 64)
	})
}

func (ts *TreeSet) addTranslations(body string) error {
	for _, entry := range splitTopLevel(body, ',') {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		key, label := firstWord(entry)
		label = strings.TrimSpace(label)
		if key == "" || label == "" {
			return fmt.Errorf("nexus: malformed translate entry %q", entry)
		}
		ts.Translate[key] = unquote(label)
	}
	return nil
}

func parseTreeStatement(body string) (NamedTree, error) {
	eq := strings.IndexByte(body, '=')
	if eq < 0 {
		return NamedTree{}, fmt.Errorf("nexus: tree statement without '=': %q", truncate(body, 40))
	}
	name := strings.TrimSpace(body[:eq])
	name = strings.TrimSpace(strings.TrimPrefix(name, "*"))
	nwk := strings.TrimSpace(body[eq+1:])
	if nwk == "" {
		return NamedTree{}, fmt.Errorf("nexus: tree %s has no newick string", name)
	}
	return NamedTree{Name: unquote(name), Newick: nwk}, nil
}

// stripComments removes [...] comments, which may nest, outside quotes.
func stripComments(s string) (string, error) {
	var b strings.Builder
	b.Grow(len(s))
	depth := 0
	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case depth > 0:
			if c == '[' {
				depth++
			} else if c == ']' {
				depth--
			}
		case inQuote:
			b.WriteByte(c)
			if c == '\'' {
				if i+1 < len(s) && s[i+1] == '\'' {
					b.WriteByte('\'')
					i++
				} else {
					inQuote = false
				}
			}
		case c == '[':
			depth = 1
		case c == '\'':
			inQuote = true
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	if depth > 0 {
		return "", errors.New("nexus: unterminated comment")
	}
	return b.String(), nil
}

func splitStatements(s string) []string { return splitTopLevel(s, ';') }

// splitTopLevel splits s at sep, ignoring separators inside single quotes.
func splitTopLevel(s string, sep byte) []string {
	var out []string
	start := 0
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\'':
			inQuote = !inQuote
		case c == sep && !inQuote:
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

func firstWord(s string) (word, rest string) {
	s = strings.TrimSpace(s)
	i := strings.IndexAny(s, " \t\r\n")
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i+1:]
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
