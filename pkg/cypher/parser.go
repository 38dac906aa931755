package cypher

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wyrmgraph/wyrm/pkg/token"
)

// ParserError reports a syntax error with its source position. It carries no
// wire code itself: Execute turns it into an ExecError of KindSyntaxError,
// whose code is SyntaxErrorCode (spec.md §4.2/§7).
type ParserError struct {
	Pos  int
	Line int
	Col  int
	Msg  string
}

const SyntaxErrorCode = "Neo.ClientError.Statement.SyntaxError"

func (e *ParserError) Error() string {
	return fmt.Sprintf("syntax error at line %d, col %d: %s", e.Line, e.Col, e.Msg)
}

// Parse lexes and parses src into a Query. It is a pure function of src: no
// shared state survives between calls, matching the teacher's discipline
// (nornicdb's Parser doc comments) now actually enforced by a real grammar.
func Parse(src string) (*Query, error) {
	toks, err := token.Lex(src)
	if err != nil {
		if lexErr, ok := err.(*token.Error); ok {
			return nil, &ParserError{Pos: lexErr.Pos, Line: lexErr.Line, Col: lexErr.Col, Msg: lexErr.Msg}
		}
		return nil, &ParserError{Msg: err.Error()}
	}
	p := &parser{toks: toks}
	q, err := p.parseQuery()
	if err != nil {
		return nil, err
	}
	if !p.at(token.EOF) {
		return nil, p.errf("unexpected token %q after end of query", p.cur().Literal)
	}
	return q, nil
}

type parser struct {
	toks []token.Token
	pos  int
}

func (p *parser) cur() token.Token  { return p.toks[p.pos] }
func (p *parser) at(k token.Kind) bool { return p.cur().Kind == k }

func (p *parser) advance() token.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expect(k token.Kind) (token.Token, error) {
	if !p.at(k) {
		return token.Token{}, p.errf("expected %s but found %q", k, p.cur().Literal)
	}
	return p.advance(), nil
}

func (p *parser) errf(format string, args ...interface{}) error {
	t := p.cur()
	return &ParserError{Pos: t.Pos, Line: t.Line, Col: t.Col, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseQuery() (*Query, error) {
	q := &Query{}
	for !p.at(token.EOF) {
		if p.at(token.SEMICOLON) {
			p.advance()
			continue
		}
		clause, err := p.parseClause()
		if err != nil {
			return nil, err
		}
		q.Clauses = append(q.Clauses, clause)
	}
	if len(q.Clauses) == 0 {
		return nil, p.errf("empty query")
	}
	return q, nil
}

func (p *parser) parseClause() (Clause, error) {
	switch p.cur().Kind {
	case token.MATCH:
		return p.parseMatch(false)
	case token.OPTIONAL:
		p.advance()
		if _, err := p.expect(token.MATCH); err != nil {
			return nil, err
		}
		return p.parseMatch(true)
	case token.CREATE:
		return p.parseCreate()
	case token.MERGE:
		return p.parseMerge()
	case token.RETURN:
		return p.parseReturn()
	default:
		return nil, p.errf("expected MATCH, OPTIONAL MATCH, CREATE, MERGE, or RETURN, found %q", p.cur().Literal)
	}
}

func (p *parser) parseMatch(optional bool) (Clause, error) {
	p.advance() // MATCH
	pattern, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	clause := &MatchClause{Optional: optional, Pattern: pattern}
	if p.at(token.WHERE) {
		p.advance()
		where, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		clause.Where = where
	}
	return clause, nil
}

func (p *parser) parseCreate() (Clause, error) {
	p.advance() // CREATE
	pattern, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	return &CreateClause{Pattern: pattern}, nil
}

func (p *parser) parseMerge() (Clause, error) {
	p.advance() // MERGE
	pattern, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	return &MergeClause{Pattern: pattern}, nil
}

func (p *parser) parseReturn() (Clause, error) {
	p.advance() // RETURN
	clause := &ReturnClause{}
	if p.at(token.DISTINCT) {
		p.advance()
		clause.Distinct = true
	}
	for {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		item := ReturnItem{Expr: expr}
		if p.at(token.AS) {
			p.advance()
			name, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			item.Alias = name.Literal
		}
		clause.Items = append(clause.Items, item)
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	return clause, nil
}

// parsePattern := PatternElement ( Relationship PatternElement )*
func (p *parser) parsePattern() (Pattern, error) {
	var pat Pattern
	first, err := p.parsePatternElement()
	if err != nil {
		return pat, err
	}
	pat.Elements = append(pat.Elements, first)
	for p.at(token.DASH) || p.at(token.ARROW_LEFT) {
		rel, err := p.parseRelationship()
		if err != nil {
			return pat, err
		}
		pat.Rels = append(pat.Rels, rel)
		elem, err := p.parsePatternElement()
		if err != nil {
			return pat, err
		}
		pat.Elements = append(pat.Elements, elem)
	}
	return pat, nil
}

// parsePatternElement := '(' [var] (':' Label)* [MapLiteral] ')'
func (p *parser) parsePatternElement() (PatternElement, error) {
	var el PatternElement
	if _, err := p.expect(token.LPAREN); err != nil {
		return el, err
	}
	if p.at(token.IDENT) {
		el.Variable = p.advance().Literal
	}
	for p.at(token.COLON) {
		p.advance()
		label, err := p.expect(token.IDENT)
		if err != nil {
			return el, err
		}
		el.Labels = append(el.Labels, label.Literal)
	}
	if p.at(token.LBRACE) {
		m, err := p.parseMapLiteral()
		if err != nil {
			return el, err
		}
		el.Properties = m
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return el, err
	}
	return el, nil
}

// parseRelationship := ('<-' | '-') '[' [var] (':' Type ('|' Type)*)? [MapLiteral] ']' ('->' | '-')
func (p *parser) parseRelationship() (RelationshipPattern, error) {
	var rel RelationshipPattern
	leftArrow := false
	if p.at(token.ARROW_LEFT) {
		leftArrow = true
		p.advance()
	} else if _, err := p.expect(token.DASH); err != nil {
		return rel, err
	}

	if p.at(token.LBRACKET) {
		p.advance()
		if p.at(token.IDENT) {
			rel.Variable = p.advance().Literal
		}
		if p.at(token.COLON) {
			p.advance()
			typ, err := p.expect(token.IDENT)
			if err != nil {
				return rel, err
			}
			rel.Types = append(rel.Types, typ.Literal)
			for p.at(token.PIPE) {
				p.advance()
				next, err := p.expect(token.IDENT)
				if err != nil {
					return rel, err
				}
				rel.Types = append(rel.Types, next.Literal)
			}
		}
		if p.at(token.LBRACE) {
			m, err := p.parseMapLiteral()
			if err != nil {
				return rel, err
			}
			rel.Properties = m
		}
		if _, err := p.expect(token.RBRACKET); err != nil {
			return rel, err
		}
	}

	rightArrow := false
	if p.at(token.ARROW_TO) {
		rightArrow = true
		p.advance()
	} else if _, err := p.expect(token.DASH); err != nil {
		return rel, err
	}

	switch {
	case leftArrow && !rightArrow:
		rel.Direction = DirLeft
	case rightArrow && !leftArrow:
		rel.Direction = DirRight
	case !leftArrow && !rightArrow:
		rel.Direction = DirEither
	default:
		return rel, p.errf("relationship pattern cannot point both directions")
	}
	return rel, nil
}

func (p *parser) parseMapLiteral() (*MapLiteral, error) {
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	m := &MapLiteral{Entries: map[string]Expression{}}
	if p.at(token.RBRACE) {
		p.advance()
		return m, nil
	}
	for {
		key, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.COLON); err != nil {
			return nil, err
		}
		val, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		m.Keys = append(m.Keys, key.Literal)
		m.Entries[key.Literal] = val
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return m, nil
}

// Expression grammar, precedence low to high:
//   OR < AND < NOT < comparisons < additive < multiplicative < unary < postfix < primary

func (p *parser) parseExpression() (Expression, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (Expression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.at(token.OR) {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expression, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.at(token.AND) {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (Expression, error) {
	if p.at(token.NOT) {
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Op: "NOT", Operand: operand}, nil
	}
	return p.parseComparison()
}

var comparisonKinds = map[token.Kind]string{
	token.EQ: "=", token.NEQ: "<>",
	token.LT: "<", token.GT: ">", token.LTE: "<=", token.GTE: ">=",
}

func (p *parser) parseComparison() (Expression, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if op, ok := comparisonKinds[p.cur().Kind]; ok {
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &BinaryOp{Op: op, Left: left, Right: right}, nil
	}
	if p.at(token.IN) {
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &BinaryOp{Op: "IN", Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *parser) parseAdditive() (Expression, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.at(token.PLUS) || p.at(token.DASH) {
		op := "+"
		if p.at(token.DASH) {
			op = "-"
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.at(token.STAR) || p.at(token.SLASH) || p.at(token.PERCENT) {
		op := map[token.Kind]string{token.STAR: "*", token.SLASH: "/", token.PERCENT: "%"}[p.cur().Kind]
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expression, error) {
	if p.at(token.DASH) {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Op: "-", Operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (Expression, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.at(token.DOT) {
		p.advance()
		prop, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		expr = &PropertyAccess{Base: expr, Property: prop.Literal}
	}
	return expr, nil
}

func (p *parser) parsePrimary() (Expression, error) {
	t := p.cur()
	switch t.Kind {
	case token.INT:
		p.advance()
		n, err := strconv.ParseInt(t.Literal, 10, 64)
		if err != nil {
			return nil, p.errf("invalid integer literal %q", t.Literal)
		}
		return &Literal{Value: n}, nil
	case token.FLOAT:
		p.advance()
		f, err := strconv.ParseFloat(t.Literal, 64)
		if err != nil {
			return nil, p.errf("invalid float literal %q", t.Literal)
		}
		return &Literal{Value: f}, nil
	case token.STRING:
		p.advance()
		return &Literal{Value: t.Literal}, nil
	case token.TRUE:
		p.advance()
		return &Literal{Value: true}, nil
	case token.FALSE:
		p.advance()
		return &Literal{Value: false}, nil
	case token.NULL:
		p.advance()
		return &Literal{Value: nil}, nil
	case token.PARAM:
		p.advance()
		return &Parameter{Name: t.Literal}, nil
	case token.LPAREN:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return expr, nil
	case token.LBRACE:
		return p.parseMapLiteral()
	case token.LBRACKET:
		return p.parseListLiteral()
	case token.IDENT:
		p.advance()
		if p.at(token.LPAREN) {
			return p.parseFunctionCall(t.Literal)
		}
		return &Variable{Name: t.Literal}, nil
	default:
		return nil, p.errf("expected an expression, found %q", t.Literal)
	}
}

func (p *parser) parseListLiteral() (Expression, error) {
	p.advance() // '['
	list := &ListLiteral{}
	if p.at(token.RBRACKET) {
		p.advance()
		return list, nil
	}
	for {
		item, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, item)
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.RBRACKET); err != nil {
		return nil, err
	}
	return list, nil
}

func (p *parser) parseFunctionCall(name string) (Expression, error) {
	p.advance() // '('
	call := &FunctionCall{Name: strings.ToLower(name)}
	if p.at(token.STAR) { // count(*)
		p.advance()
		call.Args = []Expression{&Variable{Name: "*"}}
	} else if !p.at(token.RPAREN) {
		for {
			if p.at(token.DISTINCT) {
				p.advance() // DISTINCT inside aggregate args: parsed, not semantically honored
			}
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
			if p.at(token.COMMA) {
				p.advance()
				continue
			}
			break
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return call, nil
}
