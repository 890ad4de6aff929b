package jsonld

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/piprate/json-gold/ld"

	"github.com/benkert/gutwerk/domain"
)

// Processor expands and compacts wire documents against the platform's
// fixed vocabulary set. It is safe for concurrent use.
type Processor struct {
	proc   *ld.JsonLdProcessor
	loader ld.DocumentLoader
}

func NewProcessor(loader ld.DocumentLoader) *Processor {
	return &Processor{
		proc:   ld.NewJsonLdProcessor(),
		loader: loader,
	}
}

func (p *Processor) options() *ld.JsonLdOptions {
	opts := ld.NewJsonLdOptions("")
	opts.DocumentLoader = p.loader
	return opts
}

// ParseBody reads a JSON object graph off the wire.
func ParseBody(r io.Reader) (map[string]interface{}, error) {
	var doc map[string]interface{}
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, &ParseError{Err: err}
	}
	return doc, nil
}

// ParseBytes decodes an already-buffered wire document.
func ParseBytes(b []byte) (map[string]interface{}, error) {
	return ParseBody(bytes.NewReader(b))
}

// Expand resolves the document's contexts and returns its node set with
// every property as a full IRI.
func (p *Processor) Expand(doc map[string]interface{}) ([]interface{}, error) {
	nodes, err := p.proc.Expand(doc, p.options())
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return nodes, nil
}

// Compact renders a document against the fixed ordered context list and
// rewrites wire field names to the internal snake_case convention.
func (p *Processor) Compact(doc map[string]interface{}) (map[string]interface{}, error) {
	ctx := map[string]interface{}{"@context": domain.Contexts()}
	compacted, err := p.proc.Compact(doc, ctx, p.options())
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return WireToInternal(compacted), nil
}

// ExpandedType returns the @type IRI of the document's primary node.
func (p *Processor) ExpandedType(doc map[string]interface{}) (string, error) {
	nodes, err := p.Expand(doc)
	if err != nil {
		return "", err
	}
	if len(nodes) == 0 {
		return "", &ParseError{Err: errEmptyGraph}
	}
	node, ok := nodes[0].(map[string]interface{})
	if !ok {
		return "", &ParseError{Err: errEmptyGraph}
	}
	types, ok := node["@type"].([]interface{})
	if !ok || len(types) == 0 {
		return "", &ParseError{Err: errNoType}
	}
	typeIRI, ok := types[0].(string)
	if !ok {
		return "", &ParseError{Err: errNoType}
	}
	return typeIRI, nil
}

// EnsureType verifies that the document's expanded @type matches the
// kind a caller is about to decode it as.
func (p *Processor) EnsureType(doc map[string]interface{}, kind domain.Kind) error {
	actual, err := p.ExpandedType(doc)
	if err != nil {
		return err
	}
	if actual != kind.TypeIRI() {
		return &TypeMismatchError{Expected: kind.TypeIRI(), Actual: actual}
	}
	return nil
}
