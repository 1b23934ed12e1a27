package parser

import (
	"fmt"
	"strconv"

	"github.com/sandrolain/goreval/pkg/types"
)

// parser implements a Pratt (top-down operator precedence) parser.
type parser struct {
	lexer   *Lexer
	arena   *types.Arena
	current Token
	prev    Token
	depth   int
	opts    CompileOptions
}

// newParser creates a parser over input, allocating nodes in arena.
func newParser(input string, arena *types.Arena, opts CompileOptions) *parser {
	p := &parser{
		lexer: NewLexer(input),
		arena: arena,
		opts:  opts,
	}

	// Read the first token
	p.advance()

	return p
}

// parse parses the entire expression and returns the root AST node.
func (p *parser) parse() (*types.AstExpr, error) {
	if p.current.Type == TokenError {
		return nil, p.lexer.Error()
	}

	if p.current.Type == TokenEOF {
		return nil, p.error(types.ErrEmptyExpression, "Empty expression")
	}

	node, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}

	switch p.current.Type {
	case TokenEOF:
		return node, nil
	case TokenError:
		return nil, p.lexer.Error()
	case TokenRParen, TokenRBracket:
		return nil, p.error(types.ErrUnmatchedDelimiter, fmt.Sprintf("Unmatched %s", p.current.Value))
	default:
		return nil, p.error(types.ErrTrailingInput, fmt.Sprintf("Unexpected token after expression: %s", p.current.Value))
	}
}

// Operator precedence table (binding power). Higher values bind more
// tightly. The 4/6 gap between | and & is preserved verbatim from the
// engine's original table; the numbers are ordering only.
var precedence = map[TokenType]int{
	TokenComma:     1, // list separator; value is rightmost
	TokenSemicolon: 1,
	TokenOrOr:      2, // short-circuit
	TokenAndAnd:    3, // short-circuit
	TokenPipe:      4, // bitwise OR
	TokenAmp:       6, // bitwise AND
	TokenEq:        7,
	TokenNe:        7,
	TokenLt:        7,
	TokenGt:        7,
	TokenLe:        7,
	TokenGe:        7,
	TokenShl:       8,
	TokenShr:       8,
	TokenRol:       8,
	TokenRor:       8,
	TokenPlus:      9,
	TokenMinus:     9,
	TokenStar:      10,
	TokenSlash:     10,
	TokenPercent:   10,
	TokenCaret:     15, // right-assoc exponentiation
	TokenStarStar:  16, // right-assoc exponentiation (synonym)
}

// unaryPrecedence is the binding power of prefix + - ~.
const unaryPrecedence = 14

// binaryOps maps operator tokens to AST operator kinds.
var binaryOps = map[TokenType]types.BinaryOp{
	TokenComma:     types.OpList,
	TokenSemicolon: types.OpList,
	TokenOrOr:      types.OpOr,
	TokenAndAnd:    types.OpAnd,
	TokenPipe:      types.OpBitOr,
	TokenAmp:       types.OpBitAnd,
	TokenEq:        types.OpEq,
	TokenNe:        types.OpNe,
	TokenLt:        types.OpLt,
	TokenGt:        types.OpGt,
	TokenLe:        types.OpLe,
	TokenGe:        types.OpGe,
	TokenShl:       types.OpShl,
	TokenShr:       types.OpShr,
	TokenRol:       types.OpRol,
	TokenRor:       types.OpRor,
	TokenPlus:      types.OpAdd,
	TokenMinus:     types.OpSub,
	TokenStar:      types.OpMul,
	TokenSlash:     types.OpDiv,
	TokenPercent:   types.OpMod,
	TokenCaret:     types.OpPow,
	TokenStarStar:  types.OpPow,
}

// getPrecedence returns the precedence of a token type.
func (p *parser) getPrecedence(tt TokenType) int {
	if prec, ok := precedence[tt]; ok {
		return prec
	}
	return 0
}

// advance moves to the next token.
func (p *parser) advance() {
	p.prev = p.current
	p.current = p.lexer.Next()
}

// error creates a parser error at the current token.
func (p *parser) error(code types.ErrorCode, message string) error {
	return (&types.Error{
		Code:     code,
		Message:  message,
		Position: p.current.Position,
	}).WithToken(p.current.Value)
}

// parseExpression parses an expression with operator precedence.
// rbp is the right binding power (minimum precedence).
func (p *parser) parseExpression(rbp int) (*types.AstExpr, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > p.opts.MaxDepth {
		return nil, p.error(types.ErrTooDeep, "Expression nesting too deep")
	}

	// Parse prefix expression (nud - null denotation)
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}

	// Parse infix expressions while precedence allows (led - left denotation)
	for rbp < p.getPrecedence(p.current.Type) {
		left, err = p.parseInfix(left)
		if err != nil {
			return nil, err
		}
	}

	return left, nil
}

// parsePrefix parses a prefix expression (nud - null denotation).
// These are expressions that don't require a left-hand side.
func (p *parser) parsePrefix() (*types.AstExpr, error) {
	token := p.current

	switch token.Type {
	case TokenNumber:
		return p.parseNumber()
	case TokenIdent:
		return p.parseIdentifier()
	case TokenMinus:
		return p.parseUnary(types.OpNeg)
	case TokenPlus:
		return p.parseUnary(types.OpPos)
	case TokenTilde:
		return p.parseUnary(types.OpBitNot)
	case TokenLParen:
		return p.parseGrouping()
	case TokenEOF:
		return nil, p.error(types.ErrUnexpectedEnd, "Unexpected end of expression")
	case TokenError:
		return nil, p.lexer.Error()
	default:
		return nil, p.error(types.ErrUnexpectedToken, fmt.Sprintf("Unexpected token: %s", token.Type.String()))
	}
}

// parseInfix parses an infix expression (led - left denotation).
func (p *parser) parseInfix(left *types.AstExpr) (*types.AstExpr, error) {
	token := p.current

	op, ok := binaryOps[token.Type]
	if !ok {
		return nil, p.error(types.ErrUnexpectedToken, fmt.Sprintf("Unexpected infix token: %s", token.Type.String()))
	}

	prec := p.getPrecedence(token.Type)
	rbp := prec
	if token.Type == TokenCaret || token.Type == TokenStarStar {
		// Right-associative: the right operand may start another chain of
		// the same operator.
		rbp = prec - 1
	}

	p.advance()
	rhs, err := p.parseExpression(rbp)
	if err != nil {
		return nil, err
	}

	node := p.arena.AllocNode(types.NodeBinary, token.Position)
	node.BinOp = op
	node.Left = left
	node.Right = rhs
	return node, nil
}

// parseNumber parses a number literal.
func (p *parser) parseNumber() (*types.AstExpr, error) {
	val, err := strconv.ParseFloat(p.current.Value, types.RealBits)
	if err != nil {
		return nil, p.error(types.ErrInvalidNumber, fmt.Sprintf("Invalid number: %s", p.current.Value))
	}

	node := p.arena.AllocNode(types.NodeConstant, p.current.Position)
	node.Num = types.Real(val)
	p.advance()
	return node, nil
}

// parseUnary parses a prefix operator application.
func (p *parser) parseUnary(op types.UnaryOp) (*types.AstExpr, error) {
	pos := p.current.Position
	p.advance()

	operand, err := p.parseExpression(unaryPrecedence)
	if err != nil {
		return nil, err
	}

	node := p.arena.AllocNode(types.NodeUnary, pos)
	node.UnOp = op
	node.Left = operand
	return node, nil
}

// parseGrouping parses a parenthesized expression. List separators inside
// the parentheses act as the sequence operator.
func (p *parser) parseGrouping() (*types.AstExpr, error) {
	p.advance() // consume (

	inner, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}

	if p.current.Type != TokenRParen {
		return nil, p.error(types.ErrUnmatchedDelimiter, "Expected )")
	}
	p.advance()
	return inner, nil
}

// parseIdentifier parses an identifier head and its optional postfix
// construct. Postfix constructs bind above all binary operators and apply
// only to identifier heads: call, juxtaposed application, index, attribute.
func (p *parser) parseIdentifier() (*types.AstExpr, error) {
	name := p.current.Value
	pos := p.current.Position
	p.advance()

	switch p.current.Type {
	case TokenLParen:
		return p.parseCall(name, pos)

	case TokenLBracket:
		p.advance() // consume [
		index, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		if p.current.Type != TokenRBracket {
			return nil, p.error(types.ErrBadIndex, "Expected ] after array index")
		}
		p.advance()

		node := p.arena.AllocNode(types.NodeArray, pos)
		node.Name = name
		node.Left = index
		return node, nil

	case TokenDot:
		p.advance() // consume .
		if p.current.Type != TokenIdent {
			return nil, p.error(types.ErrBadAttribute, "Expected field name after .")
		}
		field := p.current.Value
		p.advance()

		node := p.arena.AllocNode(types.NodeAttribute, pos)
		node.Name = name
		node.Field = field
		return node, nil

	case TokenNumber, TokenIdent:
		// Juxtaposed application: `name primary` is sugar for name(primary).
		// Exactly one primary is consumed.
		arg, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		node := p.arena.AllocNode(types.NodeFunction, pos)
		node.Name = name
		args := p.arena.AllocArgs(1)
		args[0] = *arg
		node.Args = args
		return node, nil

	default:
		node := p.arena.AllocNode(types.NodeVariable, pos)
		node.Name = name
		return node, nil
	}
}

// parseCall parses a parenthesized argument list.
// The list separators , and ; both delimit arguments here; a full list
// expression can still be passed by parenthesizing it.
func (p *parser) parseCall(name string, pos int) (*types.AstExpr, error) {
	p.advance() // consume (

	node := p.arena.AllocNode(types.NodeFunction, pos)
	node.Name = name

	if p.current.Type == TokenRParen {
		p.advance()
		return node, nil
	}

	// Argument roots are collected first, then copied into one contiguous
	// arena slice in left-to-right order.
	roots := make([]*types.AstExpr, 0, 8)
	for {
		arg, err := p.parseExpression(p.getPrecedence(TokenComma))
		if err != nil {
			return nil, err
		}
		roots = append(roots, arg)

		if p.current.Type == TokenComma || p.current.Type == TokenSemicolon {
			p.advance()
			continue
		}
		break
	}

	if p.current.Type != TokenRParen {
		return nil, p.error(types.ErrUnmatchedDelimiter, "Expected ) after arguments")
	}
	p.advance()

	args := p.arena.AllocArgs(len(roots))
	for i, r := range roots {
		args[i] = *r
	}
	node.Args = args
	return node, nil
}

// parsePrimary parses exactly one primary: NUMBER, IDENT, or a
// parenthesized expression. Used for juxtaposed application arguments.
func (p *parser) parsePrimary() (*types.AstExpr, error) {
	switch p.current.Type {
	case TokenNumber:
		return p.parseNumber()
	case TokenIdent:
		name := p.current.Value
		pos := p.current.Position
		p.advance()
		node := p.arena.AllocNode(types.NodeVariable, pos)
		node.Name = name
		return node, nil
	case TokenLParen:
		return p.parseGrouping()
	default:
		return nil, p.error(types.ErrUnexpectedToken, fmt.Sprintf("Unexpected token: %s", p.current.Type.String()))
	}
}
