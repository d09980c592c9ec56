package compiler

import "github.com/lookbusy1344/xenon-toolchain/lexer"

// Parser is a recursive-descent, precedence-climbing parser over the X#
// token stream: one token of lookahead, an `advance` that steps the
// cursor, and a family of binary-operator helpers stacked by precedence.
type Parser struct {
	tokens []lexer.Token
	index  int
	cur    lexer.Token
}

// Parse builds the AST for a complete token stream.
func Parse(tokens []lexer.Token) (*Statements, *lexer.Error) {
	p := &Parser{tokens: tokens, index: -1}
	p.advance()
	stmts, err := p.statements(lexer.TokenEOF)
	if err != nil {
		return nil, err
	}
	if p.cur.Type != lexer.TokenEOF {
		return nil, lexer.NewError(p.cur.Span.Start, p.cur.Span.End, lexer.ErrInvalidSyntax, "expected end of input")
	}
	return stmts, nil
}

func (p *Parser) advance() {
	p.index++
	if p.index < len(p.tokens) {
		p.cur = p.tokens[p.index]
	}
}

func (p *Parser) expect(t lexer.TokenType, what string) *lexer.Error {
	if p.cur.Type != t {
		return p.syntaxErr("expected " + what)
	}
	p.advance()
	return nil
}

func (p *Parser) syntaxErr(msg string) *lexer.Error {
	return lexer.NewError(p.cur.Span.Start, p.cur.Span.End, lexer.ErrInvalidSyntax, msg)
}

func (p *Parser) skipNewlines() {
	for p.cur.Type == lexer.TokenNewline {
		p.advance()
	}
}

// statements parses a sequence of statements up to (not consuming) `end`.
func (p *Parser) statements(end lexer.TokenType) (*Statements, *lexer.Error) {
	start := p.cur.Span
	var body []Node

	for {
		p.skipNewlines()
		if p.cur.Type == end {
			break
		}
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		body = append(body, stmt)
		if p.cur.Type == end {
			break
		}
		if p.cur.Type != lexer.TokenNewline {
			return nil, p.syntaxErr("expected a newline between statements")
		}
	}

	return &Statements{base: base{lexer.Span{Start: start.Start, End: p.cur.Span.End}}, Body: body}, nil
}

func (p *Parser) statement() (Node, *lexer.Error) {
	if p.cur.Type == lexer.TokenKeyword {
		switch p.cur.Value {
		case "const":
			return p.constDef()
		case "var":
			return p.varDecl()
		case "for":
			return p.forLoop()
		case "while":
			return p.whileLoop()
		case "if":
			return p.ifStatement()
		case "sub":
			return p.subroutineDef()
		}
	}
	return p.expression()
}

func (p *Parser) constDef() (Node, *lexer.Error) {
	start := p.cur.Span
	p.advance()
	if p.cur.Type != lexer.TokenIdentifier {
		return nil, p.syntaxErr("an identifier after 'const'")
	}
	name := p.cur.Value.(string)
	p.advance()
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &ConstDef{base: base{lexer.Span{Start: start.Start, End: expr.Pos().End}}, Name: name, Expr: expr}, nil
}

func (p *Parser) varDecl() (Node, *lexer.Error) {
	start := p.cur.Span
	p.advance()

	if p.cur.Type != lexer.TokenIdentifier {
		return nil, p.syntaxErr("an identifier after 'var'")
	}
	name := p.cur.Value.(string)
	p.advance()

	if err := p.expect(lexer.TokenColon, "':' after variable name"); err != nil {
		return nil, err
	}

	if p.cur.Type != lexer.TokenKeyword || (p.cur.Value != "int" && p.cur.Value != "bool") {
		return nil, p.syntaxErr("'int' or 'bool' after ':'")
	}
	typ := p.cur.Value.(string)
	p.advance()

	var length Node
	if p.cur.Type == lexer.TokenLsq {
		p.advance()
		switch p.cur.Type {
		case lexer.TokenNumber:
			length = &IntLiteral{base{p.cur.Span}, p.cur.Value.(int)}
		case lexer.TokenIdentifier:
			length = &Identifier{base{p.cur.Span}, p.cur.Value.(string)}
		default:
			return nil, p.syntaxErr("a number or constant for the array length")
		}
		p.advance()
		if err := p.expect(lexer.TokenRsq, "']' after array length"); err != nil {
			return nil, err
		}
	}

	var initExpr Node
	end := p.cur.Span
	if p.cur.Type == lexer.TokenAssign {
		p.advance()
		expr, err := p.expression()
		if err != nil {
			return nil, err
		}
		initExpr = expr
		end = expr.Pos()
	} else if length == nil {
		return nil, p.syntaxErr("'=' (a declaration with no array length needs an initializer)")
	}

	return &VarDecl{base: base{lexer.Span{Start: start.Start, End: end.End}}, Name: name, Type: typ, Length: length, Init: initExpr}, nil
}

func (p *Parser) block() (*Statements, *lexer.Error) {
	if err := p.expect(lexer.TokenLbr, "'{'"); err != nil {
		return nil, err
	}
	body, err := p.statements(lexer.TokenRbr)
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.TokenRbr, "'}'"); err != nil {
		return nil, err
	}
	return body, nil
}

func (p *Parser) forLoop() (Node, *lexer.Error) {
	start := p.cur.Span
	p.advance()

	if p.cur.Type == lexer.TokenIdentifier {
		return p.xStyleForLoop(start)
	}
	if p.cur.Type == lexer.TokenLpr {
		return p.cStyleForLoop(start)
	}
	return nil, p.syntaxErr("an identifier or '(' after 'for'")
}

func (p *Parser) xStyleForLoop(start lexer.Span) (Node, *lexer.Error) {
	iter := p.cur.Value.(string)
	p.advance()

	readClause := func(keyword string) (Node, *lexer.Error) {
		if !p.cur.IsKeyword(keyword) {
			return nil, p.syntaxErr("'" + keyword + "'")
		}
		p.advance()
		if err := p.expect(lexer.TokenColon, "':' after '"+keyword+"'"); err != nil {
			return nil, err
		}
		return p.comparison()
	}

	startExpr, err := readClause("start")
	if err != nil {
		return nil, err
	}
	endExpr, err := readClause("end")
	if err != nil {
		return nil, err
	}
	stepExpr, err := readClause("step")
	if err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return &ForLoop{base{lexer.Span{Start: start.Start, End: body.Pos().End}}, iter, startExpr, endExpr, stepExpr, body}, nil
}

func (p *Parser) cStyleForLoop(start lexer.Span) (Node, *lexer.Error) {
	p.advance() // consume '('

	if p.cur.Type != lexer.TokenIdentifier {
		return nil, p.syntaxErr("an identifier after '('")
	}
	iter := p.cur.Value.(string)
	p.advance()

	if err := p.expect(lexer.TokenAssign, "'=' after iterator"); err != nil {
		return nil, err
	}
	startExpr, err := p.comparison()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != lexer.TokenNewline || p.cur.Value != ";" {
		return nil, p.syntaxErr("';' after start value")
	}
	p.advance()

	if p.cur.Type != lexer.TokenIdentifier || p.cur.Value != iter {
		return nil, p.syntaxErr("'" + iter + "'")
	}
	p.advance()

	if p.cur.Type != lexer.TokenLt && p.cur.Type != lexer.TokenLe && p.cur.Type != lexer.TokenGt && p.cur.Type != lexer.TokenGe {
		return nil, p.syntaxErr("'<', '<=', '>', or '>='")
	}
	endOp := p.cur.Type
	p.advance()
	endExpr, err := p.comparison()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != lexer.TokenNewline || p.cur.Value != ";" {
		return nil, p.syntaxErr("';' after end value")
	}
	p.advance()

	if p.cur.Type != lexer.TokenIdentifier || p.cur.Value != iter {
		return nil, p.syntaxErr("'" + iter + "'")
	}
	p.advance()

	if p.cur.Type != lexer.TokenAdd && p.cur.Type != lexer.TokenSub {
		return nil, p.syntaxErr("'+' or '-'")
	}
	stepOp := p.cur.Type
	p.advance()
	if err := p.expect(lexer.TokenAssign, "'='"); err != nil {
		return nil, err
	}
	stepExpr, err := p.comparison()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.TokenRpr, "')' after step value"); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return &CForLoop{base{lexer.Span{Start: start.Start, End: body.Pos().End}}, iter, startExpr, endOp, endExpr, stepOp, stepExpr, body}, nil
}

func (p *Parser) whileLoop() (Node, *lexer.Error) {
	start := p.cur.Span
	p.advance()
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return &WhileLoop{base{lexer.Span{Start: start.Start, End: body.Pos().End}}, cond, body}, nil
}

func (p *Parser) ifStatement() (Node, *lexer.Error) {
	start := p.cur.Span
	p.advance()

	var cases []IfCase
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	cases = append(cases, IfCase{cond, body})
	end := body.Pos()

	save := p.index
	p.skipNewlines()
	for p.cur.IsKeyword("elseif") {
		p.advance()
		cond, err := p.expression()
		if err != nil {
			return nil, err
		}
		body, err := p.block()
		if err != nil {
			return nil, err
		}
		cases = append(cases, IfCase{cond, body})
		end = body.Pos()
		save = p.index
		p.skipNewlines()
	}

	var elseCase *Statements
	if p.cur.IsKeyword("else") {
		p.advance()
		body, err := p.block()
		if err != nil {
			return nil, err
		}
		elseCase = body
		end = body.Pos()
	} else {
		p.index = save
		p.cur = p.tokens[p.index]
	}

	return &IfStatement{base{lexer.Span{Start: start.Start, End: end.End}}, cases, elseCase}, nil
}

func (p *Parser) subroutineDef() (Node, *lexer.Error) {
	start := p.cur.Span
	p.advance()

	if p.cur.Type != lexer.TokenIdentifier {
		return nil, p.syntaxErr("a subroutine name")
	}
	name := p.cur.Value.(string)
	p.advance()

	if err := p.expect(lexer.TokenLpr, "'(' after subroutine name"); err != nil {
		return nil, err
	}
	var params []string
	if p.cur.Type == lexer.TokenIdentifier {
		params = append(params, p.cur.Value.(string))
		p.advance()
		for p.cur.Type == lexer.TokenComma {
			p.advance()
			if p.cur.Type != lexer.TokenIdentifier {
				return nil, p.syntaxErr("a parameter name")
			}
			params = append(params, p.cur.Value.(string))
			p.advance()
		}
	}
	if err := p.expect(lexer.TokenRpr, "')'"); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return &SubroutineDef{base{lexer.Span{Start: start.Start, End: body.Pos().End}}, name, params, body}, nil
}

func (p *Parser) expression() (Node, *lexer.Error) { return p.assignment() }

func (p *Parser) assignment() (Node, *lexer.Error) {
	start := p.cur.Span
	left, err := p.comparison()
	if err != nil {
		return nil, err
	}
	if p.cur.Type == lexer.TokenAssign {
		ident, ok := left.(*Identifier)
		if !ok {
			return nil, lexer.NewError(left.Pos().Start, left.Pos().End, lexer.ErrInvalidSyntax, "expected an identifier before '='")
		}
		p.advance()
		rhs, err := p.expression()
		if err != nil {
			return nil, err
		}
		return &Assignment{base{lexer.Span{Start: start.Start, End: rhs.Pos().End}}, ident, rhs}, nil
	}
	return left, nil
}

func (p *Parser) binaryOp(next func() (Node, *lexer.Error), types ...lexer.TokenType) (Node, *lexer.Error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for matches(p.cur.Type, types) {
		op := p.cur
		p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{base{lexer.Span{Start: left.Pos().Start, End: right.Pos().End}}, left, op, right}
	}
	return left, nil
}

func matches(t lexer.TokenType, types []lexer.TokenType) bool {
	for _, want := range types {
		if t == want {
			return true
		}
	}
	return false
}

func (p *Parser) comparison() (Node, *lexer.Error) {
	return p.binaryOp(p.bitwise, lexer.TokenLt, lexer.TokenLe, lexer.TokenEq, lexer.TokenNe, lexer.TokenGt, lexer.TokenGe)
}

func (p *Parser) bitwise() (Node, *lexer.Error) {
	return p.binaryOp(p.additive, lexer.TokenAnd, lexer.TokenOr, lexer.TokenXor, lexer.TokenLShift, lexer.TokenRShift)
}

func (p *Parser) additive() (Node, *lexer.Error) {
	return p.binaryOp(p.multiplicative, lexer.TokenAdd, lexer.TokenSub)
}

func (p *Parser) multiplicative() (Node, *lexer.Error) {
	return p.binaryOp(p.unary, lexer.TokenMul, lexer.TokenDiv)
}

func (p *Parser) unary() (Node, *lexer.Error) {
	switch p.cur.Type {
	case lexer.TokenAdd, lexer.TokenSub, lexer.TokenNot, lexer.TokenAt, lexer.TokenAbs, lexer.TokenSign:
		op := p.cur
		p.advance()
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		if op.Type == lexer.TokenAt {
			if _, ok := operand.(*Identifier); !ok {
				return nil, lexer.NewError(op.Span.Start, operand.Pos().End, lexer.ErrInvalidSyntax, "expected an identifier after '@'")
			}
		}
		return &UnaryOp{base{lexer.Span{Start: op.Span.Start, End: operand.Pos().End}}, op, operand, false}, nil
	}

	value, err := p.access()
	if err != nil {
		return nil, err
	}
	if p.cur.Type == lexer.TokenInc || p.cur.Type == lexer.TokenDec {
		op := p.cur
		p.advance()
		return &UnaryOp{base{lexer.Span{Start: value.Pos().Start, End: op.Span.End}}, op, value, true}, nil
	}
	return value, nil
}

func (p *Parser) access() (Node, *lexer.Error) {
	value, err := p.call()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != lexer.TokenLsq {
		return value, nil
	}

	switch value.(type) {
	case *ArrayLiteral, *Identifier:
	default:
		return nil, lexer.NewError(value.Pos().Start, value.Pos().End, lexer.ErrInvalidSyntax, "expected an array literal or identifier")
	}

	p.advance()
	index, err := p.comparison()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.TokenRsq, "']' after index"); err != nil {
		return nil, err
	}

	if p.cur.Type == lexer.TokenAssign {
		p.advance()
		rhs, err := p.comparison()
		if err != nil {
			return nil, err
		}
		return &ArraySet{base{lexer.Span{Start: value.Pos().Start, End: rhs.Pos().End}}, value, index, rhs}, nil
	}

	return &ArrayAccess{base{lexer.Span{Start: value.Pos().Start, End: p.tokens[p.index-1].Span.End}}, value, index}, nil
}

func (p *Parser) call() (Node, *lexer.Error) {
	value, err := p.literal()
	if err != nil {
		return nil, err
	}
	ident, ok := value.(*Identifier)
	if !ok || p.cur.Type != lexer.TokenLpr {
		return value, nil
	}

	p.advance()
	var args []Node
	if p.cur.Type != lexer.TokenRpr {
		arg, err := p.expression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		for p.cur.Type == lexer.TokenComma {
			p.advance()
			arg, err := p.expression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
	}
	if err := p.expect(lexer.TokenRpr, "')'"); err != nil {
		return nil, err
	}
	end := p.tokens[p.index-1].Span.End
	return &CallExpression{base{lexer.Span{Start: ident.Pos().Start, End: end}}, ident.Name, args}, nil
}

func (p *Parser) literal() (Node, *lexer.Error) {
	tok := p.cur
	p.advance()

	switch tok.Type {
	case lexer.TokenNumber:
		return &IntLiteral{base{tok.Span}, tok.Value.(int)}, nil
	case lexer.TokenIdentifier:
		return &Identifier{base{tok.Span}, tok.Value.(string)}, nil
	case lexer.TokenLpr:
		expr, err := p.expression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.TokenRpr, "a matching ')'"); err != nil {
			return nil, err
		}
		return expr, nil
	case lexer.TokenLsq:
		var elements []Node
		first, err := p.comparison()
		if err != nil {
			return nil, err
		}
		elements = append(elements, first)
		for p.cur.Type == lexer.TokenComma {
			p.advance()
			elem, err := p.comparison()
			if err != nil {
				return nil, err
			}
			elements = append(elements, elem)
		}
		if err := p.expect(lexer.TokenRsq, "',' or ']' after array elements"); err != nil {
			return nil, err
		}
		end := p.tokens[p.index-1].Span.End
		return &ArrayLiteral{base{lexer.Span{Start: tok.Span.Start, End: end}}, elements}, nil
	}

	return nil, lexer.NewError(tok.Span.Start, tok.Span.End, lexer.ErrInvalidSyntax,
		"expected a number, an identifier, '(' or '[', found "+tok.Type.String()+" instead")
}
