package store

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ethereum-optimism/infra/op-verbench/types"
)

// StylesheetInstruction links the store to the XSLT used to browse it.
const StylesheetInstruction = `<?xml-stylesheet type="text/xsl" href="style.xsl"?>`

// Document is the on-disk layout of a result store.
type Document struct {
	XMLName xml.Name `xml:"results"`
	Groups  []*Group `xml:"group"`
}

// Group holds all records produced for one repetition of one tagged batch.
type Group struct {
	Repetition int       `xml:"i"`
	Tag        string    `xml:"tags"`
	Records    []*Record `xml:"file"`
}

// Record is the outcome of a single verifier invocation.
type Record struct {
	Name        string  `xml:"name"`
	ReturnCode  int     `xml:"return_code"`
	ElapsedTime float64 `xml:"elapsed_time"`
	Stdout      string  `xml:"stdout"`
	Stderr      string  `xml:"stderr"`
}

// Outcome returns the return code as a verifier outcome.
func (r *Record) Outcome() types.Outcome {
	return types.Outcome(r.ReturnCode)
}

// Find returns the record with the given name, or nil.
func (g *Group) Find(name string) *Record {
	for _, rec := range g.Records {
		if rec.Name == name {
			return rec
		}
	}
	return nil
}

// Decode parses a store document.
func Decode(r io.Reader) (*Document, error) {
	doc := &Document{}
	if err := xml.NewDecoder(r).Decode(doc); err != nil {
		return nil, fmt.Errorf("failed to decode results document: %w", err)
	}
	return doc, nil
}

// Encode serializes the document with the stylesheet instruction in front.
func (d *Document) Encode() ([]byte, error) {
	body, err := xml.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode results document: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString(StylesheetInstruction)
	buf.WriteByte('\n')
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Load reads and parses the store at path. Unlike Open it fails on
// malformed documents; reporting has nothing to fall back to.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open results file %s: %w", path, err)
	}
	defer f.Close()

	doc, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// xmlSafe drops runes that XML 1.0 cannot represent.
func xmlSafe(s string) string {
	if strings.IndexFunc(s, func(r rune) bool { return !isXMLChar(r) }) < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isXMLChar(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isXMLChar(r rune) bool {
	if r == utf8.RuneError {
		return false
	}
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		(r >= 0x10000 && r <= 0x10FFFF)
}
