package pkg

import "io"

// Option configures a Parser before its single parse run.
type Option func(*Parser)

// WithErrorFunc installs sink as the diagnostic callback. It receives
// the first fatal condition before the parse aborts.
func WithErrorFunc(sink ErrorFunc) Option {
	return func(p *Parser) {
		if sink != nil {
			p.errf = sink
		}
	}
}

// WithoutCharsetConversion restricts input to UTF-8; documents that
// declare another encoding fail instead of being transcoded.
func WithoutCharsetConversion() Option {
	return func(p *Parser) {
		p.charsets = false
	}
}

// Parse decodes one document from r with a fresh parser.
func Parse(r io.Reader, opts ...Option) (Object, error) {
	return NewParser(opts...).Parse(r)
}

// ParseFile decodes the document at path with a fresh parser.
func ParseFile(path string, opts ...Option) (Object, error) {
	return NewParser(opts...).ParseFile(path)
}
