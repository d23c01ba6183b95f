package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leengari/gridsql/internal/parser/ast"
	"github.com/leengari/gridsql/internal/parser/lexer"
)

type Parser struct {
	tokens  []lexer.Token
	curPos  int
	curTok  lexer.Token
	peekTok lexer.Token

	placeholders int // running count of ? seen so far
}

func New(tokens []lexer.Token) *Parser {
	p := &Parser{tokens: tokens, curPos: 0}
	// Read two tokens to set curTok and peekTok
	p.nextToken()
	p.nextToken()
	return p
}

// Parse tokenizes and parses a single SQL statement.
func Parse(sql string) (ast.Statement, error) {
	tokens, err := lexer.Tokenize(sql)
	if err != nil {
		return nil, &ParseError{Msg: err.Error(), Fragment: firstWord(sql), Line: 1, Column: 1}
	}
	return New(tokens).ParseStatement()
}

func firstWord(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func (p *Parser) nextToken() {
	p.curTok = p.peekTok
	if p.curPos < len(p.tokens) {
		p.peekTok = p.tokens[p.curPos]
		p.curPos++
	} else {
		p.peekTok = lexer.Token{Type: lexer.EOF}
	}
}

func (p *Parser) errorf(format string, args ...any) *ParseError {
	return &ParseError{
		Msg:      fmt.Sprintf(format, args...),
		Fragment: p.curTok.Literal,
		Line:     p.curTok.Line,
		Column:   p.curTok.Column,
	}
}

func (p *Parser) ParseStatement() (ast.Statement, error) {
	switch p.curTok.Type {
	case lexer.SELECT:
		return p.parseSelect()
	default:
		return nil, p.errorf("unexpected token, expected SELECT")
	}
}

func (p *Parser) parseSelect() (*ast.SelectStatement, error) {
	stmt := &ast.SelectStatement{}

	// SELECT
	p.nextToken()

	// Projection list
	for {
		field, err := p.parseProjectionItem()
		if err != nil {
			return nil, err
		}
		stmt.Fields = append(stmt.Fields, field)
		if p.curTok.Type != lexer.COMMA {
			break
		}
		p.nextToken()
	}

	// FROM
	if p.curTok.Type != lexer.FROM {
		return nil, p.errorf("expected FROM")
	}
	p.nextToken()

	// Table list (comma-join)
	for {
		if p.curTok.Type != lexer.IDENTIFIER {
			return nil, p.errorf("expected table name")
		}
		stmt.Tables = append(stmt.Tables, &ast.Identifier{
			TokenLiteralValue: p.curTok.Literal,
			Value:             p.curTok.Literal,
		})
		p.nextToken()
		if p.curTok.Type != lexer.COMMA {
			break
		}
		p.nextToken()
	}

	// WHERE (optional)
	if p.curTok.Type == lexer.WHERE {
		p.nextToken()
		expr, err := p.parseConjunction()
		if err != nil {
			return nil, err
		}
		stmt.Where = expr
	}

	// GROUP BY (optional)
	if p.curTok.Type == lexer.GROUP {
		p.nextToken()
		if p.curTok.Type != lexer.BY {
			return nil, p.errorf("expected BY after GROUP")
		}
		p.nextToken()
		for {
			ident, err := p.parseColumnRef()
			if err != nil {
				return nil, err
			}
			stmt.GroupBy = append(stmt.GroupBy, ident)
			if p.curTok.Type != lexer.COMMA {
				break
			}
			p.nextToken()
		}
	}

	// ORDER BY (optional)
	if p.curTok.Type == lexer.ORDER {
		p.nextToken()
		if p.curTok.Type != lexer.BY {
			return nil, p.errorf("expected BY after ORDER")
		}
		p.nextToken()
		for {
			ident, err := p.parseColumnRef()
			if err != nil {
				return nil, err
			}
			item := ast.OrderItem{Column: ident}
			if p.curTok.Type == lexer.ASC {
				p.nextToken()
			} else if p.curTok.Type == lexer.DESC {
				item.Desc = true
				p.nextToken()
			}
			stmt.OrderBy = append(stmt.OrderBy, item)
			if p.curTok.Type != lexer.COMMA {
				break
			}
			p.nextToken()
		}
	}

	// Semicolon (optional)
	if p.curTok.Type == lexer.SEMICOLON {
		p.nextToken()
	}

	if p.curTok.Type != lexer.EOF {
		return nil, p.errorf("unexpected trailing input")
	}

	return stmt, nil
}

// parseProjectionItem handles *, Table.*, column refs, literals and
// function calls in the select list.
func (p *Parser) parseProjectionItem() (ast.Expression, error) {
	if p.curTok.Type == lexer.ASTERISK {
		p.nextToken()
		return &ast.Star{}, nil
	}
	return p.parseAtom()
}

// parseConjunction parses comparisons joined by AND. OR is recognized
// but rejected: predicates are conjunctions only.
func (p *Parser) parseConjunction() (ast.Expression, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}

	for p.curTok.Type == lexer.AND {
		p.nextToken()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &ast.LogicalExpression{Left: left, Operator: "AND", Right: right}
	}

	if p.curTok.Type == lexer.OR {
		return nil, p.errorf("OR is not supported, predicates must be conjunctions")
	}

	return left, nil
}

func (p *Parser) parseComparison() (ast.Expression, error) {
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}

	var op string
	switch p.curTok.Type {
	case lexer.EQUALS:
		op = "="
	case lexer.LT:
		op = "<"
	case lexer.GT:
		op = ">"
	case lexer.LTE:
		op = "<="
	case lexer.GTE:
		op = ">="
	case lexer.NEQ:
		op = "!="
	default:
		return nil, p.errorf("expected comparison operator")
	}
	p.nextToken()

	right, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	return &ast.BinaryExpression{Left: left, Operator: op, Right: right}, nil
}

// parseColumnRef parses a possibly qualified column name.
func (p *Parser) parseColumnRef() (*ast.Identifier, error) {
	if p.curTok.Type != lexer.IDENTIFIER {
		return nil, p.errorf("expected column name")
	}
	ident := &ast.Identifier{TokenLiteralValue: p.curTok.Literal, Value: p.curTok.Literal}
	p.nextToken()

	if p.curTok.Type == lexer.DOT {
		p.nextToken()
		if p.curTok.Type != lexer.IDENTIFIER {
			return nil, p.errorf("expected column name after qualifier")
		}
		ident.Table = ident.Value
		ident.Value = p.curTok.Literal
		ident.TokenLiteralValue = p.curTok.Literal
		p.nextToken()
	}
	return ident, nil
}

func (p *Parser) parseAtom() (ast.Expression, error) {
	switch p.curTok.Type {
	case lexer.IDENTIFIER:
		name := p.curTok.Literal

		// Function call: ident '(' args ')'
		if p.peekTok.Type == lexer.PAREN_OPEN {
			p.nextToken() // onto (
			p.nextToken() // past (
			call := &ast.FunctionCall{Name: strings.ToLower(name)}
			if p.curTok.Type != lexer.PAREN_CLOSE {
				for {
					arg, err := p.parseAtom()
					if err != nil {
						return nil, err
					}
					call.Args = append(call.Args, arg)
					if p.curTok.Type != lexer.COMMA {
						break
					}
					p.nextToken()
				}
			}
			if p.curTok.Type != lexer.PAREN_CLOSE {
				return nil, p.errorf("expected ) to close %s(", name)
			}
			p.nextToken()
			return call, nil
		}

		// Qualified reference: Table.col or Table.*
		if p.peekTok.Type == lexer.DOT {
			p.nextToken() // onto .
			p.nextToken() // past .
			if p.curTok.Type == lexer.ASTERISK {
				p.nextToken()
				return &ast.Star{Table: name}, nil
			}
			if p.curTok.Type != lexer.IDENTIFIER {
				return nil, p.errorf("expected column name after %s.", name)
			}
			col := p.curTok.Literal
			p.nextToken()
			return &ast.Identifier{TokenLiteralValue: col, Table: name, Value: col}, nil
		}

		p.nextToken()
		return &ast.Identifier{TokenLiteralValue: name, Value: name}, nil

	case lexer.STRING:
		val := p.curTok.Literal
		p.nextToken()
		return &ast.Literal{TokenLiteralValue: val, Value: val, Kind: 0}, nil

	case lexer.NUMBER:
		valStr := p.curTok.Literal
		p.nextToken()
		// Try int
		if i, err := strconv.ParseInt(valStr, 10, 64); err == nil {
			return &ast.Literal{TokenLiteralValue: valStr, Value: i, Kind: 1}, nil
		}
		// Try float
		if f, err := strconv.ParseFloat(valStr, 64); err == nil {
			return &ast.Literal{TokenLiteralValue: valStr, Value: f, Kind: 2}, nil
		}
		return nil, p.errorf("invalid number: %s", valStr)

	case lexer.TRUE:
		p.nextToken()
		return &ast.Literal{TokenLiteralValue: "TRUE", Value: true, Kind: 3}, nil

	case lexer.FALSE:
		p.nextToken()
		return &ast.Literal{TokenLiteralValue: "FALSE", Value: false, Kind: 3}, nil

	case lexer.QUESTION:
		idx := p.placeholders
		p.placeholders++
		p.nextToken()
		return &ast.Placeholder{Index: idx}, nil

	default:
		return nil, p.errorf("unexpected token in expression")
	}
}
