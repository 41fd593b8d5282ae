// Package artifactschema publishes JSON Schemas for every artifact payload
// kind, so cached artifacts can be inspected and validated by external tools.
package artifactschema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"authorship/internal/artifact"
	"authorship/internal/eda"
	"authorship/internal/features"
	"authorship/internal/labels"
	"authorship/internal/model"
	"authorship/internal/split"
	"authorship/internal/workflow"
)

// payloads maps each kind to a zero value of its payload type.
var payloads = map[artifact.Kind]any{
	artifact.KindProfile:        eda.Profile{},
	artifact.KindPreparedCorpus: workflow.PreparedCorpus{},
	artifact.KindLabels:         labels.Payload{},
	artifact.KindSplit:          split.Split{},
	artifact.KindVocabulary:     features.VocabularyPayload{},
	artifact.KindRanking:        features.Ranking{},
	artifact.KindModel:          model.Artifact{},
	artifact.KindMetrics:        model.Evaluation{},
}

// For returns the payload schema of kind.
func For(kind artifact.Kind) (*jsonschema.Schema, error) {
	payload, ok := payloads[kind]
	if !ok {
		return nil, fmt.Errorf("unknown artifact kind %q", kind)
	}
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(payload)
	schema.Title = string(kind)
	schema.Description = fmt.Sprintf("Payload of a %s artifact envelope.", kind)
	return schema, nil
}

// Envelope returns the schema of the on-disk artifact wrapper.
func Envelope() *jsonschema.Schema {
	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(artifact.Envelope{})
	schema.Title = "artifact-envelope"
	return schema
}

// Marshal renders the schema of kind as indented JSON.
func Marshal(kind artifact.Kind) ([]byte, error) {
	schema, err := For(kind)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(schema, "", "  ")
}

// All renders every kind's schema keyed by kind name.
func All() (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(payloads))
	for _, kind := range artifact.Kinds() {
		data, err := Marshal(kind)
		if err != nil {
			return nil, err
		}
		out[string(kind)] = data
	}
	return out, nil
}
