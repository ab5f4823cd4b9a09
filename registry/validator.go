package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrValidation wraps every payload that fails its schema.
var ErrValidation = errors.New("cachehook: payload validation failed")

// Validator checks payloads against JSON Schema documents, caching compiled
// schemas by their raw content.
type Validator struct {
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

// NewValidator creates a validator with an empty cache.
func NewValidator() *Validator {
	return &Validator{cache: make(map[string]*jsonschema.Schema)}
}

// Validate checks data against schema. An empty schema always passes.
// data is normalised through JSON first so Go structs and ints validate the
// same way their wire form would.
func (v *Validator) Validate(schema []byte, data any) error {
	if len(bytes.TrimSpace(schema)) == 0 {
		return nil
	}

	compiled, err := v.compile(schema)
	if err != nil {
		return fmt.Errorf("schema compilation error: %w", err)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("%w: marshal payload: %w", ErrValidation, err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: decode payload: %w", ErrValidation, err)
	}

	if err := compiled.Validate(doc); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

func (v *Validator) compile(schema []byte) (*jsonschema.Schema, error) {
	key := string(schema)

	v.mu.RLock()
	cached, ok := v.cache[key]
	v.mu.RUnlock()
	if ok {
		return cached, nil
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schema))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if cached, ok := v.cache[key]; ok {
		return cached, nil
	}

	url := "cachehook://schema/" + strconv.Itoa(len(v.cache))
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	v.cache[key] = compiled
	return compiled, nil
}
