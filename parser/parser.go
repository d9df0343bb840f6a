package parser

import (
	"fmt"
	"strings"
)

// Parser is a recursive-descent parser for the datamodel surface syntax.
type Parser struct {
	lexer *Lexer

	curToken  Token
	peekToken Token

	errors []string

	// doc comments (///) accumulate until the next declaration
	pendingDoc []string
}

// NewParser creates a parser over the given lexer.
func NewParser(lexer *Lexer) *Parser {
	p := &Parser{lexer: lexer}

	// Read two tokens, so curToken and peekToken are both set.
	p.nextToken()
	p.nextToken()

	return p
}

// Parse is a convenience that lexes and parses source in one step.
func Parse(source string) (*Schema, error) {
	p := NewParser(NewLexer(source))
	schema := p.ParseSchema()
	if len(p.errors) > 0 {
		return nil, fmt.Errorf("parsing datamodel: %s", strings.Join(p.errors, "; "))
	}
	return schema, nil
}

// Errors returns parsing errors accumulated so far.
func (p *Parser) Errors() []string {
	return p.errors
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

// ParseSchema parses the whole input and returns the AST.
func (p *Parser) ParseSchema() *Schema {
	schema := &Schema{}

	for p.curToken.Type != EOF {
		switch p.curToken.Type {
		case COMMENT:
			if strings.HasPrefix(p.curToken.Literal, "///") {
				p.pendingDoc = append(p.pendingDoc, strings.TrimSpace(strings.TrimPrefix(p.curToken.Literal, "///")))
			}
		case MODEL:
			if m := p.parseModel(); m != nil {
				schema.Models = append(schema.Models, m)
			}
		case ENUM:
			if e := p.parseEnum(); e != nil {
				schema.Enums = append(schema.Enums, e)
			}
		case DATASOURCE, GENERATOR:
			if b := p.parseConfigBlock(); b != nil {
				schema.Sources = append(schema.Sources, b)
			}
		default:
			p.addError(fmt.Sprintf("unexpected token %s at line %d", p.curToken.Type, p.curToken.Line))
		}
		p.nextToken()
	}

	return schema
}

func (p *Parser) takeDoc() string {
	doc := strings.Join(p.pendingDoc, "\n")
	p.pendingDoc = nil
	return doc
}

func (p *Parser) parseModel() *Model {
	model := &Model{
		Span:          Span{Line: p.curToken.Line, Column: p.curToken.Column},
		Documentation: p.takeDoc(),
	}

	if !p.expectPeek(IDENT) {
		return nil
	}
	model.Name = p.curToken.Literal

	if !p.expectPeek(LBRACE) {
		return nil
	}

	p.nextToken()
	for p.curToken.Type != RBRACE && p.curToken.Type != EOF {
		switch p.curToken.Type {
		case COMMENT:
			if strings.HasPrefix(p.curToken.Literal, "///") {
				p.pendingDoc = append(p.pendingDoc, strings.TrimSpace(strings.TrimPrefix(p.curToken.Literal, "///")))
			}
		case IDENT:
			if f := p.parseField(); f != nil {
				model.Fields = append(model.Fields, f)
			}
		case BLOCKAT:
			if a := p.parseAttribute(); a != nil {
				model.Attributes = append(model.Attributes, a)
			}
		default:
			p.addError(fmt.Sprintf("unexpected token %s in model %s at line %d",
				p.curToken.Type, model.Name, p.curToken.Line))
		}
		p.nextToken()
	}

	if p.curToken.Type != RBRACE {
		p.addError(fmt.Sprintf("expected }, got %s at line %d", p.curToken.Type, p.curToken.Line))
		return nil
	}

	return model
}

func (p *Parser) parseField() *Field {
	field := &Field{
		Name:          p.curToken.Literal,
		Span:          Span{Line: p.curToken.Line, Column: p.curToken.Column},
		Documentation: p.takeDoc(),
	}

	if !p.expectPeek(IDENT) {
		return nil
	}
	field.Type.Name = p.curToken.Literal

	if p.peekToken.Type == LBRACKET {
		p.nextToken()
		if !p.expectPeek(RBRACKET) {
			return nil
		}
		field.Type.List = true
	}

	if p.peekToken.Type == QUESTION {
		p.nextToken()
		field.Type.Optional = true
	}

	for p.peekToken.Type == AT {
		p.nextToken()
		if a := p.parseAttribute(); a != nil {
			field.Attributes = append(field.Attributes, a)
		}
	}

	return field
}

// parseAttribute parses `@name(...)` or `@@name(...)`. The current token is
// the @ or @@ marker.
func (p *Parser) parseAttribute() *Attribute {
	span := Span{Line: p.curToken.Line, Column: p.curToken.Column}

	if !p.expectPeek(IDENT) {
		return nil
	}

	attr := &Attribute{Name: p.curToken.Literal, Span: span}

	// Dotted attribute names (e.g. @db.VarChar) are retained verbatim.
	if p.peekToken.Type == DOT {
		p.nextToken()
		if !p.expectPeek(IDENT) {
			return nil
		}
		attr.Name += "." + p.curToken.Literal
	}

	if p.peekToken.Type == LPAREN {
		p.nextToken()
		attr.Args = p.parseArgumentList()
		if p.curToken.Type != RPAREN {
			p.addError(fmt.Sprintf("expected ), got %s at line %d", p.curToken.Type, p.curToken.Line))
			return nil
		}
	}

	return attr
}

// parseArgumentList parses the arguments of an attribute or function call.
// The current token is the opening parenthesis; on return the current token
// is the closing parenthesis.
func (p *Parser) parseArgumentList() []Arg {
	var args []Arg

	if p.peekToken.Type == RPAREN {
		p.nextToken()
		return args
	}

	p.nextToken()
	args = append(args, p.parseArg())

	for p.peekToken.Type == COMMA {
		p.nextToken()
		p.nextToken()
		args = append(args, p.parseArg())
	}

	if p.peekToken.Type == RPAREN {
		p.nextToken()
	}

	return args
}

func (p *Parser) parseArg() Arg {
	if p.curToken.Type == IDENT && p.peekToken.Type == COLON {
		name := p.curToken.Literal
		p.nextToken()
		p.nextToken()
		return Arg{Name: name, Value: p.parseValue()}
	}
	return Arg{Value: p.parseValue()}
}

func (p *Parser) parseValue() Value {
	switch p.curToken.Type {
	case STRING:
		return &StringValue{Value: p.curToken.Literal}
	case NUMBER:
		return &NumberValue{Raw: p.curToken.Literal}
	case TRUE:
		return &BoolValue{Value: true}
	case FALSE:
		return &BoolValue{Value: false}
	case LBRACKET:
		return p.parseListValue()
	case IDENT:
		if p.peekToken.Type == LPAREN {
			fn := &FunctionValue{Name: p.curToken.Literal}
			p.nextToken()
			for _, a := range p.parseArgumentList() {
				fn.Args = append(fn.Args, a.Value)
			}
			return fn
		}
		return &ConstantValue{Name: p.curToken.Literal}
	default:
		p.addError(fmt.Sprintf("unexpected token in value position: %s at line %d",
			p.curToken.Type, p.curToken.Line))
		return nil
	}
}

func (p *Parser) parseListValue() Value {
	list := &ListValue{}

	if p.peekToken.Type == RBRACKET {
		p.nextToken()
		return list
	}

	p.nextToken()
	list.Elements = append(list.Elements, p.parseValue())

	for p.peekToken.Type == COMMA {
		p.nextToken()
		p.nextToken()
		list.Elements = append(list.Elements, p.parseValue())
	}

	if !p.expectPeek(RBRACKET) {
		return nil
	}

	return list
}

func (p *Parser) parseEnum() *Enum {
	enum := &Enum{
		Span:          Span{Line: p.curToken.Line, Column: p.curToken.Column},
		Documentation: p.takeDoc(),
	}

	if !p.expectPeek(IDENT) {
		return nil
	}
	enum.Name = p.curToken.Literal

	if !p.expectPeek(LBRACE) {
		return nil
	}

	p.nextToken()
	for p.curToken.Type != RBRACE && p.curToken.Type != EOF {
		if p.curToken.Type == IDENT {
			enum.Values = append(enum.Values, p.curToken.Literal)
		}
		p.nextToken()
	}

	return enum
}

func (p *Parser) parseConfigBlock() *ConfigBlock {
	block := &ConfigBlock{
		Kind:       p.curToken.Literal,
		Span:       Span{Line: p.curToken.Line, Column: p.curToken.Column},
		Properties: make(map[string]Value),
	}

	if !p.expectPeek(IDENT) {
		return nil
	}
	block.Name = p.curToken.Literal

	if !p.expectPeek(LBRACE) {
		return nil
	}

	p.nextToken()
	for p.curToken.Type != RBRACE && p.curToken.Type != EOF {
		if p.curToken.Type == IDENT {
			name := p.curToken.Literal
			if !p.expectPeek(EQUALS) {
				break
			}
			p.nextToken()
			block.Properties[name] = p.parseValue()
		}
		p.nextToken()
	}

	return block
}

func (p *Parser) expectPeek(t TokenType) bool {
	if p.peekToken.Type == t {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf("expected next token to be %s, got %s instead at line %d",
		t, p.peekToken.Type, p.peekToken.Line))
	return false
}

func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, msg)
}
