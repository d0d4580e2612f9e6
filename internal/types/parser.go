package types

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
)

// ParseTypeString parses a ground capability type such as "Ord[List[Int]]".
//
// Supported syntax:
//   - Simple types: Int, String, scala.math.Ordering
//   - Applied types: Ord[Int], Map[String, Int]
//   - Nested types: Show[List[Option[Int]]]
//   - The top type: Any
func ParseTypeString(typeStr string) (TypeRef, error) {
	return ParseGenericType(typeStr, nil)
}

// ParseGenericType parses a type expression in which the identifiers listed
// in params denote type variables, e.g. ParseGenericType("Ord[List[T]]", []string{"T"}).
func ParseGenericType(typeStr string, params []string) (TypeRef, error) {
	typeStr = strings.TrimSpace(typeStr)
	if typeStr == "" {
		return nil, fmt.Errorf("empty type string")
	}

	p := &typeParser{input: typeStr, params: params}
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}

	p.skipWhitespace()
	if p.pos < len(p.input) {
		return nil, fmt.Errorf("unexpected characters after type: %q", p.input[p.pos:])
	}

	return typ, nil
}

// MustParse is like ParseGenericType but panics on error.
// Intended for tests and statically known types.
func MustParse(typeStr string, params ...string) TypeRef {
	t, err := ParseGenericType(typeStr, params)
	if err != nil {
		panic(fmt.Sprintf("types.MustParse(%q): %v", typeStr, err))
	}
	return t
}

// typeParser is a recursive descent parser for capability type expressions.
type typeParser struct {
	input  string
	pos    int
	params []string
	depth  int
}

// maxNesting bounds argument nesting so hostile input cannot exhaust the stack.
const maxNesting = 64

func (p *typeParser) parseType() (TypeRef, error) {
	p.skipWhitespace()

	name := p.parseIdent()
	if name == "" {
		if p.pos >= len(p.input) {
			return nil, fmt.Errorf("unexpected end of type expression")
		}
		return nil, fmt.Errorf("expected type name at position %d, got %q", p.pos, string(p.peek()))
	}

	if slices.Contains(p.params, name) {
		if p.match('[') {
			return nil, fmt.Errorf("type variable %s cannot take arguments", name)
		}
		return &TypeVar{Name: name}, nil
	}
	if name == "Any" {
		return Any(), nil
	}

	if p.match('[') {
		p.depth++
		if p.depth > maxNesting {
			return nil, fmt.Errorf("type nesting exceeds %d levels", maxNesting)
		}
		args, err := p.parseTypeArgs()
		p.depth--
		if err != nil {
			return nil, err
		}
		return &NamedType{Name: name, Args: args}, nil
	}

	return &NamedType{Name: name}, nil
}

// parseTypeArgs parses comma-separated type arguments.
// The opening '[' is already consumed.
func (p *typeParser) parseTypeArgs() ([]TypeRef, error) {
	var args []TypeRef

	for {
		p.skipWhitespace()
		if p.peek() == ']' {
			break
		}

		arg, err := p.parseType()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		if !p.match(',') {
			break
		}
	}

	if !p.match(']') {
		return nil, fmt.Errorf("expected ']' in type arguments at position %d", p.pos)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("empty type argument list at position %d", p.pos)
	}

	return args, nil
}

// parseIdent parses a possibly qualified identifier like scala.math.Ordering.
func (p *typeParser) parseIdent() string {
	start := p.pos

	if p.pos < len(p.input) && (unicode.IsLetter(rune(p.input[p.pos])) || p.input[p.pos] == '_') {
		p.pos++
	} else {
		return ""
	}

	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if unicode.IsLetter(rune(ch)) || unicode.IsDigit(rune(ch)) || ch == '_' || ch == '.' {
			p.pos++
		} else {
			break
		}
	}

	return p.input[start:p.pos]
}

func (p *typeParser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *typeParser) match(c byte) bool {
	p.skipWhitespace()
	if p.pos < len(p.input) && p.input[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *typeParser) skipWhitespace() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}
