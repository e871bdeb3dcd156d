package snapshot

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"sort"

	"golang.org/x/xerrors"
)

// MaxDepth is the deepest nesting Parse accepts
const MaxDepth = 8

var (
	// ErrTagNotAllowed is returned when the root element is not a known tag
	ErrTagNotAllowed = errors.New("tag not allowed")
	// ErrTooDeep is returned when elements nest deeper than MaxDepth
	ErrTooDeep = errors.New("tree too deep")
	// ErrEmpty is returned when the input holds no element at all
	ErrEmpty = errors.New("no root element")
)

// allowed lists the tags accepted from peers
var allowed = map[string]bool{
	"msg":     true,
	"cluster": true,
	"objects": true,
	"node":    true,
	"service": true,
}

// Allowed reports whether tag is accepted by Parse
func Allowed(tag string) bool {
	return allowed[tag]
}

// Serialize renders the tree as a single line of XML. Attributes and children
// are written in sorted order so equal trees serialize identically.
func (n *Node) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	if err := n.encode(enc); err != nil {
		return nil, xerrors.Errorf("serialize %s: %w", n.Tag, err)
	}
	if err := enc.Flush(); err != nil {
		return nil, xerrors.Errorf("serialize %s: %w", n.Tag, err)
	}
	return buf.Bytes(), nil
}

func (n *Node) encode(enc *xml.Encoder) error {
	keys := make([]string, 0, len(n.attrs))
	for k := range n.attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	start := xml.StartElement{Name: xml.Name{Local: n.Tag}}
	for _, k := range keys {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: k}, Value: n.attrs[k]})
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	for _, child := range n.Children() {
		if err := child.encode(enc); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

// Parse reads a tree produced by Serialize. Only the allowed tags are
// accepted: an unknown root is an error, unknown nested elements are skipped
// together with everything below them. Children without a name are dropped.
func Parse(data []byte) (*Node, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return nil, ErrEmpty
		}
		if err != nil {
			return nil, xerrors.Errorf("parse: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if !allowed[t.Name.Local] {
				return nil, xerrors.Errorf("root <%s>: %w", t.Name.Local, ErrTagNotAllowed)
			}
			return parseElement(d, t, 1)
		case xml.CharData:
			if len(bytes.TrimSpace(t)) != 0 {
				return nil, xerrors.New("parse: text before root element")
			}
		}
	}
}

func parseElement(d *xml.Decoder, start xml.StartElement, depth int) (*Node, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}

	n := New(start.Name.Local)
	for _, a := range start.Attr {
		n.Set(a.Name.Local, a.Value)
	}

	for {
		tok, err := d.Token()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, xerrors.Errorf("parse <%s>: %w", n.Tag, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if !allowed[t.Name.Local] {
				if err := d.Skip(); err != nil {
					return nil, xerrors.Errorf("skip <%s>: %w", t.Name.Local, err)
				}
				continue
			}
			child, err := parseElement(d, t, depth+1)
			if err != nil {
				return nil, err
			}
			// nameless children are dropped
			_ = n.AddChild(child)
		case xml.EndElement:
			return n, nil
		}
	}
}
