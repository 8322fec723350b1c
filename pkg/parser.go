package pkg

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// ErrParserUsed is returned by Parse/ParseFile on a parser instance
// that already ran. A parser is single-shot; construct a fresh one per
// document. The error sink is not invoked for this case.
var ErrParserUsed = errors.New("parser already used")

// ErrorFunc receives parse diagnostics. It is called once for the
// first fatal condition before the parse is aborted.
type ErrorFunc func(format string, args ...any)

// keyState tracks where a dictionary is in its key/value alternation:
// awaiting-key (neither flag set), key-active (collecting <key> text)
// or key-ready (valid set, next child becomes the value).
type keyState struct {
	active bool
	valid  bool
	value  string
}

// frame is one stacked in-progress object plus its key pairing state.
type frame struct {
	current Object
	key     keyState
}

// Parser turns the token stream of one XML-plist document into an
// Object tree. It keeps an explicit stack of frames with the
// top-of-stack frame held separately, accumulates character data for
// the open leaf or key, and validates the plist grammar as events
// arrive. A Parser must not be shared between goroutines.
type Parser struct {
	errf     ErrorFunc
	charsets bool
	root     Object
	current  frame
	stack    []frame
	cdata    strings.Builder
	depth    int
	stopped  bool
	stopErr  error
	used     bool
}

// NewParser builds a parser configured by opts. Without options,
// diagnostics are discarded and only the returned error reports
// failures.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		errf:     func(string, ...any) {},
		charsets: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseFile opens path and parses it.
func (p *Parser) ParseFile(path string) (Object, error) {
	if p.used {
		return nil, ErrParserUsed
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening input file: %w", err)
	}
	defer f.Close()
	return p.Parse(f)
}

// Parse consumes the document on r and returns the root object. On any
// error the sink receives a diagnostic, every partially built object is
// released and the returned root is nil.
func (p *Parser) Parse(r io.Reader) (Object, error) {
	if p.used {
		return nil, ErrParserUsed
	}
	p.used = true

	decoder := xml.NewDecoder(r)
	if p.charsets {
		decoder.CharsetReader = charsetReader
	}

	for !p.stopped {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			p.errorf("%v", err)
			break
		}
		switch t := token.(type) {
		case xml.StartElement:
			p.startElement(t.Name.Local, p.depth)
			p.depth++
		case xml.EndElement:
			p.depth--
			p.endElement(t.Name.Local, p.depth)
		case xml.CharData:
			p.characterData(string(t))
		}
	}

	if p.stopped {
		p.cleanup()
		return nil, p.stopErr
	}
	if p.root == nil {
		p.errorf("document contains no root object")
		p.cleanup()
		return nil, p.stopErr
	}
	// Success: keep the root, drop transient state.
	p.current = frame{}
	p.stack = nil
	p.cdata.Reset()
	return p.root, nil
}

// charsetReader transcodes documents that declare a non-UTF-8 encoding.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", charset, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

// errorf reports the first fatal condition to the sink and stops event
// processing. Later events are ignored.
func (p *Parser) errorf(format string, args ...any) {
	if p.stopped {
		return
	}
	p.errf(format, args...)
	p.stopped = true
	p.stopErr = fmt.Errorf(format, args...)
}

// startElement validates the context of an opening tag and dispatches
// to the matching factory.
func (p *Parser) startElement(name string, depth int) {
	if p.stopped {
		return
	}
	if depth == 0 {
		if name != "plist" {
			p.errorf("expected plist root element, got '%s'", name)
		}
		return
	}
	if depth == 1 && p.root != nil {
		p.errorf("unexpected element '%s' after root element", name)
		return
	}

	switch parent := p.current.current.(type) {
	case nil:
		// Awaiting the single child of <plist>.
	case *Dictionary:
		if p.current.key.active {
			p.errorf("unexpected element '%s' inside key", name)
			return
		}
		if name == "key" {
			if p.current.key.valid {
				p.errorf("unexpected key, expected value for key '%s'", p.current.key.value)
				return
			}
			p.current.key.active = true
			p.cdata.Reset()
			return
		}
		if !p.current.key.valid {
			p.errorf("expected key, got '%s'", name)
			return
		}
	case *Array:
	default:
		p.errorf("unexpected element '%s' inside %s", name, parent.Kind())
		return
	}

	p.beginObject(name)
}

// beginObject maps an element name to a fresh object and pushes it.
func (p *Parser) beginObject(name string) {
	switch name {
	case "array":
		p.push(NewArray())
	case "dict":
		p.push(NewDictionary())
	case "string":
		p.cdata.Reset()
		p.push(NewString())
	case "integer":
		p.cdata.Reset()
		p.push(NewInteger())
	case "real":
		p.cdata.Reset()
		p.push(NewReal())
	case "true":
		p.push(NewBoolean(true))
	case "false":
		p.push(NewBoolean(false))
	case "null":
		p.push(NewNull())
	case "data":
		p.cdata.Reset()
		p.push(NewData())
	case "date":
		p.cdata.Reset()
		p.push(NewDate())
	default:
		p.errorf("unexpected element '%s'", name)
	}
}

// endElement finalizes keys, converts leaf payloads and pops.
func (p *Parser) endElement(name string, depth int) {
	if p.stopped {
		return
	}
	switch name {
	case "plist":
		return
	case "key":
		p.current.key.active = false
		p.current.key.valid = true
		p.current.key.value = p.cdata.String()
		p.cdata.Reset()
		return
	case "integer":
		text := strings.TrimSpace(p.cdata.String())
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			p.errorf("invalid integer '%s'", text)
			return
		}
		p.current.current.(*Integer).SetValue(n)
	case "real":
		text := strings.TrimSpace(p.cdata.String())
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			p.errorf("invalid real '%s'", text)
			return
		}
		p.current.current.(*Real).SetValue(f)
	case "string":
		p.current.current.(*String).SetValue(p.cdata.String())
	case "data":
		if err := p.current.current.(*Data).SetBase64Value(p.cdata.String()); err != nil {
			p.errorf("%v", err)
			return
		}
	case "date":
		if err := p.current.current.(*Date).SetStringValue(strings.TrimSpace(p.cdata.String())); err != nil {
			p.errorf("%v", err)
			return
		}
	case "dict":
		if p.current.key.active || p.current.key.valid {
			p.errorf("missing value for key '%s' in dictionary", p.current.key.value)
			return
		}
	}
	p.pop()
}

// characterData accumulates text for the open leaf or active key and
// rejects non-whitespace text anywhere else.
func (p *Parser) characterData(text string) {
	if p.stopped {
		return
	}
	if p.current.key.active {
		p.cdata.WriteString(text)
		return
	}
	switch p.current.current.(type) {
	case *String, *Integer, *Real, *Data, *Date:
		// At depth 1 the root leaf has already closed; its frame stays
		// current, but the text sits directly inside <plist>.
		if p.depth > 1 {
			p.cdata.WriteString(text)
			return
		}
	}
	if strings.TrimSpace(text) != "" {
		p.errorf("unexpected character data '%s'", strings.TrimSpace(text))
	}
}

// push saves the current frame and makes obj current. The first pushed
// object becomes the root.
func (p *Parser) push(obj Object) {
	if p.current.current != nil {
		p.stack = append(p.stack, p.current)
	}
	p.current = frame{current: obj}
	if p.root == nil {
		p.root = obj
	}
}

// pop closes the current object and attaches it to its parent. The
// root's frame stays current until end of parse.
func (p *Parser) pop() {
	if p.current.current == nil && len(p.stack) == 0 {
		p.errorf("stack underflow")
		return
	}
	if p.current.current == p.root {
		p.cdata.Reset()
		return
	}
	popped := p.current.current
	p.current = p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]

	switch parent := p.current.current.(type) {
	case *Array:
		parent.Append(popped)
	case *Dictionary:
		if !p.current.key.valid {
			popped.release()
			p.errorf("value without key in dictionary")
			return
		}
		parent.Set(p.current.key.value, popped)
		p.current.key = keyState{}
	}
	p.cdata.Reset()
}

// cleanup releases everything still owned by the parser after a failed
// parse: the current frame, the stacked frames and the partial root.
// Stacked objects are not yet attached to their parents, so each frame
// is released independently; the root is released last.
func (p *Parser) cleanup() {
	if p.current.current != nil && p.current.current != p.root {
		p.current.current.release()
	}
	p.current = frame{}
	for _, f := range p.stack {
		if f.current != nil && f.current != p.root {
			f.current.release()
		}
	}
	p.stack = nil
	if p.root != nil {
		p.root.release()
		p.root = nil
	}
	p.cdata.Reset()
}
