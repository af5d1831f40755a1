package metadata

import (
	"strconv"
	"strings"
	"unicode"

	"winmdgen/internal/errors"
)

// ParseType parses the textual type notation used by snapshots:
//
//	i32                          primitive
//	*mut T, *const T             pointers
//	[T; 4]                       fixed arrays
//	Windows.Win32.Foundation.RECT named type
//	Ns.List<i32, Ns.Item>        generic instantiation
//
// A bare identifier that is not a primitive becomes Unsupported so that the
// resolver, not the loader, decides to reject it.
func ParseType(text string) (Type, error) {
	p := &typeParser{input: text}
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return nil, p.errorf("unexpected %q", p.input[p.pos:])
	}
	return typ, nil
}

type typeParser struct {
	input string
	pos   int
}

func (p *typeParser) errorf(format string, args ...interface{}) error {
	return errors.Newf("type %q at offset %d: "+format, append([]interface{}{p.input, p.pos}, args...)...)
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) consume(token string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.input[p.pos:], token) {
		p.pos += len(token)
		return true
	}
	return false
}

func (p *typeParser) parseType() (Type, error) {
	switch {
	case p.consume("*mut "):
		elem, err := p.parseType()
		return Pointer{Mutable: true, Elem: elem}, err
	case p.consume("*const "):
		elem, err := p.parseType()
		return Pointer{Elem: elem}, err
	case p.consume("["):
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if !p.consume(";") {
			return nil, p.errorf("expected ';'")
		}
		p.skipSpace()
		start := p.pos
		for p.pos < len(p.input) && unicode.IsDigit(rune(p.input[p.pos])) {
			p.pos++
		}
		length, err := strconv.ParseUint(p.input[start:p.pos], 10, 32)
		if err != nil {
			return nil, p.errorf("bad array length")
		}
		if !p.consume("]") {
			return nil, p.errorf("expected ']'")
		}
		return Array{Elem: elem, Len: uint32(length)}, nil
	}

	path := p.parsePath()
	if path == "" {
		return nil, p.errorf("expected a type")
	}

	var generics []Type
	if p.consume("<") {
		for {
			arg, err := p.parseType()
			if err != nil {
				return nil, err
			}
			generics = append(generics, arg)
			if p.consume(">") {
				break
			}
			if !p.consume(",") {
				return nil, p.errorf("expected ',' or '>'")
			}
		}
	}

	if !strings.Contains(path, ".") {
		if primitive, ok := ParsePrimitive(path); ok && generics == nil {
			return primitive, nil
		}
		return Unsupported{Tag: path}, nil
	}
	return Named{TypeName: splitTypeName(path), Generics: generics}, nil
}

func (p *typeParser) parsePath() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.input) {
		r := rune(p.input[p.pos])
		if r != '.' && r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		p.pos++
	}
	return p.input[start:p.pos]
}
