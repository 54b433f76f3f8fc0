package nitf

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/beetlebugorg/nitf/internal/tre"
)

// Extension area framing: a space padded tag, then the payload length as
// zero padded decimal digits.
const (
	tagWidth     = 6
	lengthWidth  = 5
	headerWidth  = tagWidth + lengthWidth
	maxTRELength = 99999
)

// Parser parses NITF Tagged Record Extensions.
//
// Create a parser with NewParser or NewParserWithOptions. Parsers hold no
// per-call state and are safe for concurrent use.
type Parser interface {
	// ParseTRE parses one TRE payload (without its tag and length header).
	//
	// A tag with no schema yields an *Unknown; otherwise the result is a
	// *Tree whose fields consume exactly length bytes.
	ParseTRE(tag string, length int, data []byte) (Extension, error)

	// ParseExtensions parses an extension area: TREs framed back to back by
	// their tag and length headers, as found in the NITF UDHD, XHD, UDID and
	// IXSHD fields.
	ParseExtensions(data []byte) ([]Extension, error)

	// Serialize writes the payload of one TRE.
	Serialize(ext Extension) ([]byte, error)

	// SerializeExtensions writes TREs as an extension area, each preceded by
	// its tag and length header.
	SerializeExtensions(exts []Extension) ([]byte, error)

	// KnownTags lists the tags the parser has schemas for.
	KnownTags() []string
}

// NewParser creates a parser with default settings.
//
// Example:
//
//	parser := nitf.NewParser()
//	ext, err := parser.ParseTRE("GRDPSB", 68, payload)
func NewParser() Parser {
	return NewParserWithOptions(DefaultParseOptions())
}

// NewParserWithOptions creates a parser with custom options.
func NewParserWithOptions(opts ParseOptions) Parser {
	if opts.Repository == nil {
		opts.Repository = DefaultRepository()
	}
	return &treParser{opts: opts}
}

type treParser struct {
	opts ParseOptions
}

func (p *treParser) ParseTRE(tag string, length int, data []byte) (Extension, error) {
	return tre.ParseWith(p.opts.Repository, tag, length, data)
}

// ParseExtensions returns the parsed TREs in order. With
// SkipFailedExtensions set, TREs that fail are returned as *Unknown and the
// error is the join of their *ErrExtension failures.
func (p *treParser) ParseExtensions(data []byte) ([]Extension, error) {
	var exts []Extension
	var failed []error

	for off := 0; off < len(data); {
		tag, length, err := readHeader(data, off)
		if err != nil {
			return nil, err
		}
		payload := data[off+headerWidth : off+headerWidth+length]

		ext, err := tre.ParseWith(p.opts.Repository, tag, length, payload)
		if err != nil {
			err = &ErrExtension{Tag: tag, Offset: off, Err: err}
			if !p.opts.SkipFailedExtensions {
				return nil, err
			}
			failed = append(failed, err)
			ext = tre.NewUnknown(tag, payload)
		}
		exts = append(exts, ext)
		off += headerWidth + length
	}

	return exts, errors.Join(failed...)
}

func readHeader(data []byte, off int) (string, int, error) {
	if rest := len(data) - off; rest < headerWidth {
		return "", 0, &ErrExtensionHeader{Offset: off,
			Reason: fmt.Sprintf("%d trailing bytes, header needs %d", rest, headerWidth)}
	}

	rawTag := data[off : off+tagWidth]
	for _, c := range rawTag {
		if c < 0x20 || c > 0x7E {
			return "", 0, &ErrExtensionHeader{Offset: off, Reason: fmt.Sprintf("tag %q is not printable", rawTag)}
		}
	}
	tag := string(bytes.TrimRight(rawTag, " "))
	if tag == "" {
		return "", 0, &ErrExtensionHeader{Offset: off, Reason: "blank tag"}
	}

	length := 0
	for _, c := range data[off+tagWidth : off+headerWidth] {
		if c < '0' || c > '9' {
			return "", 0, &ErrExtensionHeader{Offset: off,
				Reason: fmt.Sprintf("%s: length %q is not a number", tag, data[off+tagWidth:off+headerWidth])}
		}
		length = length*10 + int(c-'0')
	}
	if rest := len(data) - off - headerWidth; length > rest {
		return "", 0, &ErrExtensionHeader{Offset: off,
			Reason: fmt.Sprintf("%s: length %d exceeds the %d bytes left", tag, length, rest)}
	}
	return tag, length, nil
}

func (p *treParser) Serialize(ext Extension) ([]byte, error) {
	return tre.SerializeExtension(ext, p.opts.Repository)
}

func (p *treParser) SerializeExtensions(exts []Extension) ([]byte, error) {
	var buf bytes.Buffer
	for _, ext := range exts {
		off := buf.Len()
		tag := ext.Tag()
		if tag == "" || len(tag) > tagWidth {
			return nil, &ErrExtension{Tag: tag, Offset: off, Err: fmt.Errorf("tag must be 1 to %d characters", tagWidth)}
		}
		payload, err := p.Serialize(ext)
		if err != nil {
			return nil, &ErrExtension{Tag: tag, Offset: off, Err: err}
		}
		if len(payload) > maxTRELength {
			return nil, &ErrExtension{Tag: tag, Offset: off,
				Err: fmt.Errorf("payload of %d bytes exceeds %d", len(payload), maxTRELength)}
		}
		fmt.Fprintf(&buf, "%-*s%0*d", tagWidth, tag, lengthWidth, len(payload))
		buf.Write(payload)
	}
	return buf.Bytes(), nil
}

func (p *treParser) KnownTags() []string {
	return p.opts.Repository.Tags()
}
