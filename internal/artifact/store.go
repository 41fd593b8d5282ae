package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"authorship/internal/fileutil"
	"authorship/internal/logging"
	"authorship/internal/textutil"
)

// Kind names the payload schema of an artifact.
type Kind string

const (
	KindSplit          Kind = "split-index-list"
	KindVocabulary     Kind = "vocabulary-mapping"
	KindRanking        Kind = "ranking-sequence"
	KindLabels         Kind = "label-bijection"
	KindModel          Kind = "trained-model-bundle"
	KindMetrics        Kind = "metrics-record"
	KindProfile        Kind = "corpus-profile"
	KindPreparedCorpus Kind = "prepared-corpus"
)

// Kinds lists every payload kind in pipeline order.
func Kinds() []Kind {
	return []Kind{KindProfile, KindPreparedCorpus, KindLabels, KindSplit, KindVocabulary, KindRanking, KindModel, KindMetrics}
}

const fileExt = ".json"

// Envelope is the persisted form of an artifact.
type Envelope struct {
	Name        string          `json:"name"`
	Fingerprint string          `json:"fingerprint"`
	Kind        Kind            `json:"kind"`
	CreatedAt   time.Time       `json:"created_at"`
	Payload     json.RawMessage `json:"payload"`
}

// Decode unmarshals the envelope payload into v.
func (e Envelope) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("artifact %s: empty payload", e.Name)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("artifact %s: decode %s payload: %w", e.Name, e.Kind, err)
	}
	return nil
}

// Store reads and writes artifacts beneath a root directory.
type Store struct {
	root   string
	logger *slog.Logger
	statfs statfsFunc
	now    func() time.Time
}

// Open prepares a store rooted at root, creating the directory if needed.
func Open(root string, logger *slog.Logger) (*Store, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("artifact store root is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact root: %w", err)
	}
	return &Store{
		root:   root,
		logger: logging.NewComponentLogger(logger, "artifact"),
		statfs: realStatfs,
		now:    time.Now,
	}, nil
}

// Root returns the store directory.
func (s *Store) Root() string { return s.root }

// Path returns the file location for (name, fingerprint).
func (s *Store) Path(name, fingerprint string) string {
	return filepath.Join(s.root, filepath.FromSlash(textutil.SanitizePath(name)), textutil.SanitizeToken(fingerprint)+fileExt)
}

// Save persists payload under (name, fingerprint). Concurrent writers of the
// same key produce identical content, so the last rename wins harmlessly.
func (s *Store) Save(ctx context.Context, name, fingerprint string, kind Kind, payload any) (Envelope, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(fingerprint) == "" {
		return Envelope{}, errors.New("artifact name and fingerprint are required")
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("artifact %s: encode payload: %w", name, err)
	}
	env := Envelope{
		Name:        name,
		Fingerprint: fingerprint,
		Kind:        kind,
		CreatedAt:   s.now().UTC(),
		Payload:     raw,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return Envelope{}, fmt.Errorf("artifact %s: encode envelope: %w", name, err)
	}
	path := s.Path(name, fingerprint)
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return Envelope{}, fmt.Errorf("artifact %s: %w", name, err)
	}
	s.logger.DebugContext(ctx, "artifact saved",
		logging.String(logging.FieldArtifact, name),
		logging.String(logging.FieldFingerprint, Short(fingerprint)),
		logging.String("kind", string(kind)),
		logging.Int("bytes", len(data)),
	)
	return env, nil
}

// Load returns the artifact stored under (name, fingerprint). A missing file,
// or an envelope whose name or fingerprint differs from the request, reports
// false with a nil error.
func (s *Store) Load(name, fingerprint string) (Envelope, bool, error) {
	path := s.Path(name, fingerprint)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Envelope{}, false, nil
		}
		return Envelope{}, false, fmt.Errorf("artifact %s: read: %w", name, err)
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, false, fmt.Errorf("artifact %s: decode envelope %s: %w", name, path, err)
	}
	if env.Name != name || env.Fingerprint != fingerprint {
		s.logger.Warn("artifact envelope does not match its key",
			logging.String(logging.FieldEventType, "artifact_key_mismatch"),
			logging.String(logging.FieldArtifact, name),
			logging.String("stored_name", env.Name),
			logging.String(logging.FieldFingerprint, Short(fingerprint)),
			logging.String("stored_fingerprint", Short(env.Fingerprint)),
			logging.String(logging.FieldErrorHint, "the entry is treated as missing"),
			logging.String(logging.FieldImpact, "the owning stage must be enabled to regenerate it"),
		)
		return Envelope{}, false, nil
	}
	return env, true, nil
}

// Has reports whether (name, fingerprint) is stored.
func (s *Store) Has(name, fingerprint string) bool {
	info, err := os.Stat(s.Path(name, fingerprint))
	return err == nil && info.Mode().IsRegular()
}

// Check reports whether (name, fingerprint) holds an envelope that Load would
// accept with the given kind. A mismatched key or kind reports false; an
// unreadable or undecodable file is an error.
func (s *Store) Check(name, fingerprint string, kind Kind) (bool, error) {
	env, ok, err := s.Load(name, fingerprint)
	if err != nil || !ok {
		return false, err
	}
	if env.Kind != kind {
		s.logger.Warn("artifact kind does not match its key",
			logging.String(logging.FieldEventType, "artifact_kind_mismatch"),
			logging.String(logging.FieldArtifact, name),
			logging.String("stored_kind", string(env.Kind)),
			logging.String("kind", string(kind)),
			logging.String(logging.FieldErrorHint, "the entry is treated as missing"),
		)
		return false, nil
	}
	return true, nil
}

// SaveJSON stores a typed payload.
func SaveJSON[T any](ctx context.Context, s *Store, name, fingerprint string, kind Kind, payload T) error {
	_, err := s.Save(ctx, name, fingerprint, kind, payload)
	return err
}

// LoadJSON loads and decodes a typed payload, checking its kind.
func LoadJSON[T any](s *Store, name, fingerprint string, kind Kind) (T, bool, error) {
	var out T
	env, ok, err := s.Load(name, fingerprint)
	if err != nil || !ok {
		return out, ok, err
	}
	if env.Kind != kind {
		return out, false, fmt.Errorf("artifact %s: stored kind %s, want %s", name, env.Kind, kind)
	}
	if err := env.Decode(&out); err != nil {
		return out, false, err
	}
	return out, true, nil
}
