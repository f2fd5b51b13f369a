// Package complete offers cursor-position completion hints over partial,
// possibly-invalid SQL text: the clause the cursor sits in, the tables
// already in scope, and the columns those tables expose. It is a
// best-effort tokenizer over raw text, not a second analyzer — spec.md
// keeps completion rules external to the analyzer itself, and
// original_source's own completion.rs hand-rolls this same lightweight
// scanning rather than reusing its full SQL parser, for the same reason:
// completion has to tolerate input a real parser would reject outright.
package complete

import (
	"strings"
	"unicode"

	"github.com/pondpilot/flowscope/model"
	"github.com/pondpilot/flowscope/schema"
)

// Clause identifies which part of a statement the cursor is positioned in.
type Clause string

const (
	ClauseUnknown Clause = "unknown"
	ClauseSelect  Clause = "select"
	ClauseFrom    Clause = "from"
	ClauseJoin    Clause = "join"
	ClauseOn      Clause = "on"
	ClauseWhere   Clause = "where"
	ClauseGroupBy Clause = "group_by"
	ClauseHaving  Clause = "having"
	ClauseOrderBy Clause = "order_by"
)

var clauseKeywords = map[string]struct {
	clause  Clause
	needsBy bool
}{
	"SELECT": {ClauseSelect, false},
	"FROM":   {ClauseFrom, false},
	"JOIN":   {ClauseJoin, false},
	"ON":     {ClauseOn, false},
	"WHERE":  {ClauseWhere, false},
	"HAVING": {ClauseHaving, false},
	"GROUP":  {ClauseGroupBy, true},
	"ORDER":  {ClauseOrderBy, true},
}

// clauseKeywordHints mirrors original_source's per-clause keyword lists,
// trimmed to the subset relevant once a table/column list is already on
// offer (the full GLOBAL_KEYWORDS/OPERATOR_HINTS/AGGREGATE_HINTS/
// SNIPPET_HINTS tables are the Rust version's much larger IDE-facing
// surface; this package only needs enough to tell the caller what to
// type next).
var clauseKeywordHints = map[Clause][]string{
	ClauseSelect:  {"DISTINCT", "CASE", "AS"},
	ClauseFrom:    {"JOIN", "LEFT", "RIGHT", "INNER", "FULL", "CROSS", "AS"},
	ClauseJoin:    {"ON", "USING"},
	ClauseOn:      {"AND", "OR"},
	ClauseWhere:   {"AND", "OR", "NOT", "IN", "LIKE", "IS NULL", "BETWEEN"},
	ClauseHaving:  {"AND", "OR"},
	ClauseGroupBy: {"HAVING"},
	ClauseOrderBy: {"ASC", "DESC"},
}

// TokenKind classifies one scanned token.
type TokenKind string

const (
	TokenIdentifier TokenKind = "identifier"
	TokenKeyword    TokenKind = "keyword"
	TokenSymbol     TokenKind = "symbol"
	TokenOther      TokenKind = "other"
)

// Token is one lexical unit produced by tokenize.
type Token struct {
	Text  string
	Kind  TokenKind
	Start int
	End   int
}

// TableRef is one FROM/JOIN entry found before the cursor.
type TableRef struct {
	Name      string
	Alias     string
	Canonical string
	Resolved  bool
}

// ItemKind classifies one suggestion.
type ItemKind string

const (
	ItemTable   ItemKind = "table"
	ItemColumn  ItemKind = "column"
	ItemKeyword ItemKind = "keyword"
)

// Item is one completion suggestion.
type Item struct {
	Label      string
	InsertText string
	Kind       ItemKind
	Detail     string
}

// Request is the input to Complete.
type Request struct {
	SQL          string
	CursorOffset int
	Schema       *model.SchemaMetadata
}

// Result is the cursor's completion context plus ranked suggestions.
type Result struct {
	Clause          Clause
	Token           *Token
	TablesInScope   []TableRef
	Items           []Item
}

// Complete scans req.SQL up to req.CursorOffset and returns the
// completion context and suggestions for that position.
func Complete(req Request) Result {
	offset := req.CursorOffset
	if offset < 0 {
		offset = 0
	}
	if offset > len(req.SQL) {
		offset = len(req.SQL)
	}

	tokens := tokenize(req.SQL)
	clause := detectClause(tokens, offset)
	current := tokenAt(tokens, offset)

	registry := schema.New(req.Schema)
	tables := parseTables(tokens, offset, registry)
	columns := resolveColumns(tables, registry)

	items := buildItems(clause, tables, columns)

	return Result{
		Clause:        clause,
		Token:         current,
		TablesInScope: tables,
		Items:         items,
	}
}

func isIdentChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// tokenize is a minimal hand-rolled scanner: identifiers/keywords,
// dotted-qualifier periods, and punctuation as individual symbol tokens.
// It never errors — malformed or partial input just produces whatever
// tokens it can, which is the point of scanning instead of parsing.
func tokenize(sql string) []Token {
	var tokens []Token
	runes := []rune(sql)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case isIdentChar(r) && !unicode.IsDigit(r):
			start := i
			for i < len(runes) && isIdentChar(runes[i]) {
				i++
			}
			text := string(runes[start:i])
			kind := TokenIdentifier
			if _, ok := clauseKeywords[strings.ToUpper(text)]; ok {
				kind = TokenKeyword
			} else if isReservedWord(text) {
				kind = TokenKeyword
			}
			tokens = append(tokens, Token{Text: text, Kind: kind, Start: start, End: i})
		case r == '\'' || r == '"' || r == '`':
			quote := r
			start := i
			i++
			for i < len(runes) && runes[i] != quote {
				i++
			}
			if i < len(runes) {
				i++
			}
			kind := TokenOther
			if quote != '\'' {
				kind = TokenIdentifier
			}
			tokens = append(tokens, Token{Text: string(runes[start:i]), Kind: kind, Start: start, End: i})
		default:
			start := i
			i++
			tokens = append(tokens, Token{Text: string(runes[start:i]), Kind: TokenSymbol, Start: start, End: i})
		}
	}
	return tokens
}

var reservedWords = map[string]bool{
	"AND": true, "OR": true, "NOT": true, "IN": true, "LIKE": true, "IS": true,
	"NULL": true, "AS": true, "DISTINCT": true, "BETWEEN": true, "LEFT": true,
	"RIGHT": true, "INNER": true, "FULL": true, "CROSS": true, "OUTER": true,
	"USING": true, "UNION": true, "LIMIT": true, "OFFSET": true, "BY": true,
	"ASC": true, "DESC": true, "CASE": true, "WHEN": true, "THEN": true, "ELSE": true, "END": true,
}

func isReservedWord(word string) bool {
	return reservedWords[strings.ToUpper(word)]
}

func tokenAt(tokens []Token, offset int) *Token {
	for i := len(tokens) - 1; i >= 0; i-- {
		t := tokens[i]
		if offset >= t.Start && offset <= t.End && t.Kind == TokenIdentifier {
			return &t
		}
	}
	return nil
}

// detectClause walks tokens up to offset tracking the most recent clause
// keyword, the same left-to-right "last keyword wins" approach
// original_source's detect_clause uses.
func detectClause(tokens []Token, offset int) Clause {
	clause := ClauseUnknown
	for i, t := range tokens {
		if t.Start > offset {
			break
		}
		if t.Kind != TokenKeyword {
			continue
		}
		info, ok := clauseKeywords[strings.ToUpper(t.Text)]
		if !ok {
			continue
		}
		if info.needsBy {
			if i+1 < len(tokens) && strings.EqualFold(tokens[i+1].Text, "BY") {
				clause = info.clause
			}
			continue
		}
		clause = info.clause
	}
	return clause
}

// parseTables scans FROM/JOIN/UPDATE/INTO clauses up to offset for
// `name [AS] alias` entries, comma-separated under FROM.
func parseTables(tokens []Token, offset int, registry *schema.Registry) []TableRef {
	var tables []TableRef
	inFromClause := false
	expectingTable := false

	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if t.Start > offset {
			break
		}

		if t.Kind == TokenKeyword {
			switch strings.ToUpper(t.Text) {
			case "FROM":
				inFromClause = true
				expectingTable = true
				continue
			case "JOIN", "UPDATE", "INTO":
				expectingTable = true
				continue
			case "WHERE", "GROUP", "ORDER", "HAVING", "LIMIT":
				inFromClause = false
				expectingTable = false
			}
		}

		if inFromClause && t.Kind == TokenSymbol && t.Text == "," {
			expectingTable = true
			continue
		}

		if !expectingTable || t.Kind != TokenIdentifier {
			continue
		}

		name, alias, consumed := parseTableNameAndAlias(tokens, i)
		if name != "" {
			parts := schema.ParseQualifiedName(name)
			canonical := registry.CanonicalizeTableReference(parts)
			resolved := registry.Resolve(parts) != nil
			tables = append(tables, TableRef{Name: name, Alias: alias, Canonical: canonical, Resolved: resolved})
		}
		i = consumed - 1
		expectingTable = false
	}

	return tables
}

func parseTableNameAndAlias(tokens []Token, start int) (name, alias string, next int) {
	var parts []string
	i := start
	for i < len(tokens) && tokens[i].Kind == TokenIdentifier {
		parts = append(parts, tokens[i].Text)
		i++
		if i < len(tokens) && tokens[i].Kind == TokenSymbol && tokens[i].Text == "." {
			i++
			continue
		}
		break
	}
	if len(parts) == 0 {
		return "", "", start + 1
	}
	name = strings.Join(parts, ".")

	if i < len(tokens) && tokens[i].Kind == TokenKeyword && strings.EqualFold(tokens[i].Text, "AS") {
		i++
	}
	if i < len(tokens) && tokens[i].Kind == TokenIdentifier {
		alias = tokens[i].Text
		i++
	}
	return name, alias, i
}

type scopedColumn struct {
	model.ColumnSchema
	tableLabel string
	ambiguous  bool
}

func resolveColumns(tables []TableRef, registry *schema.Registry) []scopedColumn {
	counts := map[string]int{}
	var entries []*schema.Entry
	for _, t := range tables {
		if !t.Resolved {
			entries = append(entries, nil)
			continue
		}
		e := registry.Resolve(schema.ParseQualifiedName(t.Name))
		entries = append(entries, e)
		if e == nil {
			continue
		}
		for _, c := range e.Columns {
			counts[registry.NormalizeIdentifier(c.Name)]++
		}
	}

	var columns []scopedColumn
	for i, t := range tables {
		e := entries[i]
		if e == nil {
			continue
		}
		label := t.Alias
		if label == "" {
			label = t.Name
		}
		for _, c := range e.Columns {
			ambiguous := counts[registry.NormalizeIdentifier(c.Name)] > 1
			columns = append(columns, scopedColumn{ColumnSchema: c, tableLabel: label, ambiguous: ambiguous})
		}
	}
	return columns
}

func buildItems(clause Clause, tables []TableRef, columns []scopedColumn) []Item {
	var items []Item
	seen := map[string]bool{}
	add := func(item Item) {
		key := string(item.Kind) + ":" + item.Label
		if seen[key] {
			return
		}
		seen[key] = true
		items = append(items, item)
	}

	for _, c := range columns {
		label := c.Name
		if c.ambiguous {
			label = c.tableLabel + "." + c.Name
		}
		detail := ""
		if c.DataType != nil {
			detail = *c.DataType
		}
		add(Item{Label: label, InsertText: label, Kind: ItemColumn, Detail: detail})
	}

	for _, t := range tables {
		label := t.Name
		if t.Alias != "" {
			label = t.Alias
		}
		add(Item{Label: label, InsertText: label, Kind: ItemTable, Detail: t.Canonical})
	}

	for _, kw := range clauseKeywordHints[clause] {
		add(Item{Label: kw, InsertText: kw, Kind: ItemKeyword})
	}

	return items
}
