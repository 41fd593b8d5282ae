package artifactschema_test

import (
	"encoding/json"
	"testing"

	"authorship/internal/artifact"
	"authorship/internal/artifactschema"
)

func properties(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode schema: %v", err)
	}
	props, _ := doc["properties"].(map[string]any)
	return props
}

func TestEveryKindHasSchema(t *testing.T) {
	all, err := artifactschema.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	for _, kind := range artifact.Kinds() {
		if _, ok := all[string(kind)]; !ok {
			t.Fatalf("kind %s has no schema", kind)
		}
	}
}

func TestSchemaProperties(t *testing.T) {
	tests := []struct {
		kind artifact.Kind
		want []string
	}{
		{artifact.KindModel, []string{"architecture", "contract", "classes", "params", "history"}},
		{artifact.KindSplit, []string{"seed", "proportions", "train", "validation", "test"}},
		{artifact.KindMetrics, []string{"architecture", "model_fingerprint", "validation", "test"}},
		{artifact.KindPreparedCorpus, []string{"documents"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			data, err := artifactschema.Marshal(tt.kind)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			props := properties(t, data)
			for _, key := range tt.want {
				if _, ok := props[key]; !ok {
					t.Fatalf("schema for %s lacks property %q", tt.kind, key)
				}
			}
		})
	}
}

func TestUnknownKind(t *testing.T) {
	if _, err := artifactschema.For("nope"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestEnvelopeSchema(t *testing.T) {
	data, err := json.Marshal(artifactschema.Envelope())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	props := properties(t, data)
	for _, key := range []string{"name", "fingerprint", "kind", "payload"} {
		if _, ok := props[key]; !ok {
			t.Fatalf("envelope schema lacks %q", key)
		}
	}
}
