package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"nodal/domain/config"
	"nodal/domain/core/aggregates"
	"nodal/domain/core/entities"
	"nodal/domain/core/validators"
	"nodal/domain/core/valueobjects"
	pkgerrors "nodal/pkg/errors"
)

// Codec converts canvas documents to and from their stored JSON form.
// Decoding always upgrades to the current schema and repairs dangling
// references, so every adapter hands the domain a normalized document.
type Codec struct {
	cfg       *config.DomainConfig
	evolution *SchemaEvolution
	validator *validators.DocumentValidator
}

// NewCodec creates a codec for the given canvas rules
func NewCodec(cfg *config.DomainConfig) *Codec {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &Codec{
		cfg:       cfg,
		evolution: NewDocumentEvolution(),
		validator: validators.NewDocumentValidator(cfg),
	}
}

// Normalize decodes data with the default rules. It is idempotent: feeding
// the encoding of its result back in reports changed == false.
func Normalize(data []byte) (*aggregates.Document, bool, error) {
	return NewCodec(nil).Decode(data)
}

// Decode upgrades and binds a stored document. changed reports whether the
// result differs from what was stored and should be written back. Empty
// input yields a fresh document.
func (c *Codec) Decode(data []byte) (*aggregates.Document, bool, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return aggregates.NewDocument(), true, nil
	}

	var raw RawDocument
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, false, pkgerrors.NewValidationError("malformed canvas document").WithCause(err)
	}
	before, err := json.Marshal(raw)
	if err != nil {
		return nil, false, err
	}

	if v := VersionOf(raw); v > c.evolution.Latest() {
		return nil, false, fmt.Errorf("%w: version %d", pkgerrors.ErrUnsupportedSchema, v)
	}
	if _, err := c.evolution.Upgrade(raw); err != nil {
		return nil, false, fmt.Errorf("upgrade canvas document: %w", err)
	}

	upgraded, err := json.Marshal(raw)
	if err != nil {
		return nil, false, err
	}
	doc := aggregates.NewDocument()
	if err := json.Unmarshal(upgraded, doc); err != nil {
		return nil, false, pkgerrors.NewValidationError("malformed canvas document").WithCause(err)
	}

	c.sanitize(doc)
	c.validator.Repair(doc)

	after, err := c.canonical(doc)
	if err != nil {
		return nil, false, err
	}
	return doc, !bytes.Equal(before, after), nil
}

// Encode writes doc at the current schema version
func (c *Codec) Encode(doc *aggregates.Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("encode canvas document: nil document")
	}
	doc.SchemaVersion = aggregates.CurrentSchemaVersion
	return json.Marshal(doc)
}

// canonical re-encodes doc through generic values so it compares byte for
// byte with the generic encoding of the input.
func (c *Codec) canonical(doc *aggregates.Document) ([]byte, error) {
	data, err := c.Encode(doc)
	if err != nil {
		return nil, err
	}
	var raw RawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return json.Marshal(raw)
}

// sanitize fills values the typed model cannot leave at zero
func (c *Codec) sanitize(doc *aggregates.Document) {
	doc.SchemaVersion = aggregates.CurrentSchemaVersion
	if !doc.Viewport.IsValid() {
		doc.Viewport = valueobjects.DefaultViewport()
	}
	doc.Viewport = doc.Viewport.WithClampedZoom(c.cfg.MinZoom, c.cfg.MaxZoom)
	if !doc.BackgroundTransform.IsValid() {
		doc.BackgroundTransform = valueobjects.DefaultBackgroundTransform()
	}
	if doc.BackgroundImage != nil && doc.BackgroundImage.DataURL == "" {
		doc.BackgroundImage = nil
	}

	if doc.Notes == nil {
		doc.Notes = []*entities.Note{}
	}
	if doc.Zones == nil {
		doc.Zones = []*entities.Zone{}
	}
	if doc.Connections == nil {
		doc.Connections = []*entities.Connection{}
	}

	card := valueobjects.Size{Width: c.cfg.CardWidth, Height: c.cfg.CardHeight}
	for _, n := range doc.Notes {
		if n == nil {
			continue
		}
		if n.Messages == nil {
			n.Messages = []entities.Message{}
		}
		if n.Dimensions.Width <= 0 || n.Dimensions.Height <= 0 {
			n.Dimensions = card
		}
	}
	for _, z := range doc.Zones {
		if z == nil {
			continue
		}
		if z.ManualBounds == (valueobjects.Rect{}) {
			z.ManualBounds = z.Bounds
		}
	}
}
