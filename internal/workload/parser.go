package workload

import (
	"fmt"
	"strings"
	"unicode"

	"indexadvisor/internal/schema"
)

// reservedWords never qualify as column references, wherever they
// appear inside a WHERE/SET clause.
var reservedWords = map[string]struct{}{
	"and": {}, "or": {}, "not": {}, "in": {}, "like": {}, "ilike": {},
	"between": {}, "is": {}, "null": {}, "exists": {}, "any": {}, "all": {},
	"asc": {}, "desc": {}, "as": {}, "true": {}, "false": {}, "distinct": {},
	"limit": {}, "offset": {}, "on": {}, "join": {}, "inner": {}, "left": {},
	"right": {}, "outer": {}, "cross": {}, "union": {}, "having": {},
}

// Parser turns a single SQL statement's text into schema.QueryAttrs,
// qualifying bare column references against the schema's known
// tables rather than a catalog.
type Parser struct {
	tables map[string]*schema.Table
}

func NewParser(tables map[string]*schema.Table) *Parser {
	return &Parser{tables: tables}
}

// Parse classifies text's tokens by clause and returns the resulting
// query. Only an empty statement returns an error (a plain error, not
// a classified one); callers should log and skip it rather than abort
// the run.
func (p *Parser) Parse(id int, text string) (*schema.Query, error) {
	toks := tokenize(text)
	if len(toks) == 0 {
		return nil, fmt.Errorf("empty statement")
	}

	aliases, clauses := classify(toks)
	attrs := p.qualifyClauses(aliases, clauses)
	return schema.NewQuery(id, text, attrs), nil
}

// classify performs a single left-to-right scan over toks, resolving
// the FROM/UPDATE table aliases in scope and splitting every other
// token into a clause span tagged with the clause it was found in.
// Column qualification happens later, in qualifyClauses, so this
// stage can be replaced (a real grammar-aware tokenizer, say) without
// touching how clause spans are turned into indexable columns.
func classify(toks []string) (map[string]string, []clause) {
	aliases := make(map[string]string) // alias/name -> table name
	var clauses []clause

	state := clauseNone
	var pendingFromIdent string

	flushFromIdent := func() {
		if pendingFromIdent == "" {
			return
		}
		registerAlias(aliases, pendingFromIdent, "")
		pendingFromIdent = ""
	}

	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		lower := strings.ToLower(tok)

		switch lower {
		case "select":
			flushFromIdent()
			state = clauseSelect
			continue
		case "from":
			flushFromIdent()
			state = clauseFrom
			continue
		case "update":
			flushFromIdent()
			state = clauseUpdateTarget
			continue
		case "where":
			flushFromIdent()
			state = clauseWhere
			continue
		case "set":
			flushFromIdent()
			state = clauseSet
			continue
		case "group":
			if peek(toks, i+1) == "by" {
				i++
				flushFromIdent()
				state = clauseGroupBy
			}
			continue
		case "order":
			if peek(toks, i+1) == "by" {
				i++
				flushFromIdent()
				state = clauseOrderBy
			}
			continue
		case "having", "limit", "offset", ";":
			flushFromIdent()
			state = clauseNone
			continue
		case ",":
			continue
		}

		if isPunct(tok) {
			continue
		}

		switch state {
		case clauseFrom:
			// "table" or "table alias" or "table AS alias"; a following
			// bare identifier (not a keyword) is an alias.
			if pendingFromIdent == "" {
				pendingFromIdent = tok
			} else {
				registerAlias(aliases, pendingFromIdent, tok)
				pendingFromIdent = ""
			}
		case clauseUpdateTarget:
			registerAlias(aliases, tok, "")
			state = clauseNone
		case clauseSelect, clauseGroupBy, clauseOrderBy, clauseWhere, clauseSet:
			clauses = append(clauses, clause{kind: state, text: tok})
		}
	}
	flushFromIdent()
	return aliases, clauses
}

// qualifyClauses resolves each clause span's token against aliases and
// the known schema, applying the exclusion rules specific to the
// clause it came from (literals never qualify; WHERE/SET also reject
// reserved words and operators; ORDER BY rejects reserved words for
// its ASC/DESC keywords).
func (p *Parser) qualifyClauses(aliases map[string]string, clauses []clause) schema.QueryAttrs {
	var attrs schema.QueryAttrs
	for _, c := range clauses {
		lower := strings.ToLower(c.text)
		switch c.kind {
		case clauseSelect:
			if isLiteral(c.text) {
				continue
			}
			if ref, ok := qualify(aliases, p.tables, c.text); ok {
				attrs.Selects = append(attrs.Selects, ref)
			}
		case clauseGroupBy:
			if isLiteral(c.text) {
				continue
			}
			if ref, ok := qualify(aliases, p.tables, c.text); ok {
				attrs.Groups = append(attrs.Groups, ref)
			}
		case clauseOrderBy:
			if isLiteral(c.text) || isReserved(lower) {
				continue
			}
			if ref, ok := qualify(aliases, p.tables, c.text); ok {
				attrs.Orders = append(attrs.Orders, ref)
			}
		case clauseWhere:
			if isLiteral(c.text) || isReserved(lower) || isOperator(c.text) {
				continue
			}
			if ref, ok := qualify(aliases, p.tables, c.text); ok {
				attrs.Filters = append(attrs.Filters, ref)
			}
		case clauseSet:
			if isLiteral(c.text) || isReserved(lower) || isOperator(c.text) {
				continue
			}
			if ref, ok := qualify(aliases, p.tables, c.text); ok {
				attrs.Sets = append(attrs.Sets, ref)
			}
		}
	}
	return attrs
}

func registerAlias(aliases map[string]string, name, alias string) {
	name = strings.Trim(name, `"`)
	if alias == "" {
		aliases[name] = name
		return
	}
	alias = strings.Trim(alias, `"`)
	aliases[alias] = name
}

// qualify resolves a possibly-unqualified column token against the
// statement's table aliases and, failing an exact alias match, falls
// back to scanning every joined table's schema for a match.
func qualify(aliases map[string]string, tables map[string]*schema.Table, tok string) (schema.ColumnRef, bool) {
	tok = strings.Trim(stripOrdering(tok), `"`)
	if tok == "" || tok == "*" {
		return schema.ColumnRef{}, false
	}

	if dot := strings.IndexByte(tok, '.'); dot >= 0 {
		aliasPart := tok[:dot]
		colPart := tok[dot+1:]
		if table, ok := aliases[aliasPart]; ok {
			return schema.ColumnRef{Table: table, Column: colPart}, true
		}
		return schema.ColumnRef{Table: aliasPart, Column: colPart}, true
	}

	for _, table := range aliases {
		t, ok := tables[table]
		if !ok {
			continue
		}
		if _, ok := t.Columns[tok]; ok {
			return schema.ColumnRef{Table: table, Column: tok}, true
		}
	}
	return schema.ColumnRef{}, false
}

func stripOrdering(tok string) string {
	lower := strings.ToLower(tok)
	switch {
	case strings.HasSuffix(lower, " desc"):
		return tok[:len(tok)-5]
	case strings.HasSuffix(lower, " asc"):
		return tok[:len(tok)-4]
	default:
		return tok
	}
}

func isReserved(lower string) bool {
	_, ok := reservedWords[lower]
	return ok
}

func isLiteral(tok string) bool {
	if tok == "" {
		return false
	}
	r := rune(tok[0])
	if r == '\'' || r == '$' || r == '?' {
		return true
	}
	return unicode.IsDigit(r)
}

func isOperator(tok string) bool {
	switch tok {
	case "=", "<", ">", "<=", ">=", "<>", "!=", "+", "-", "*", "/", "||":
		return true
	}
	return false
}

func isPunct(tok string) bool {
	switch tok {
	case "(", ")", ";", ",":
		return true
	}
	return false
}

func peek(toks []string, i int) string {
	if i < 0 || i >= len(toks) {
		return ""
	}
	return strings.ToLower(toks[i])
}

// tokenize splits a statement into whitespace-delimited words,
// single-character punctuation, and quoted literals/identifiers kept
// whole. It is not a full SQL lexer: it assumes well-formed input.
func tokenize(s string) []string {
	var toks []string
	runes := []rune(s)
	n := len(runes)

	for i := 0; i < n; {
		c := runes[i]
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '\'' || c == '"':
			quote := c
			j := i + 1
			for j < n {
				if runes[j] == quote {
					if j+1 < n && runes[j+1] == quote {
						j += 2
						continue
					}
					break
				}
				j++
			}
			end := j + 1
			if end > n {
				end = n
			}
			toks = append(toks, string(runes[i:end]))
			i = end
		case c == ',' || c == '(' || c == ')' || c == ';':
			toks = append(toks, string(c))
			i++
		case isOperatorRune(c):
			j := i
			for j < n && isOperatorRune(runes[j]) {
				j++
			}
			toks = append(toks, string(runes[i:j]))
			i = j
		default:
			j := i
			for j < n && !unicode.IsSpace(runes[j]) && runes[j] != ',' && runes[j] != '(' &&
				runes[j] != ')' && runes[j] != ';' && !isOperatorRune(runes[j]) {
				j++
			}
			toks = append(toks, string(runes[i:j]))
			i = j
		}
	}
	return toks
}

func isOperatorRune(r rune) bool {
	switch r {
	case '=', '<', '>', '!', '+', '-', '/', '|':
		return true
	}
	return false
}
