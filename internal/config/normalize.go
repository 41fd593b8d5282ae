package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCorpus()
	c.normalizeLogging()
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.ArtifactDir, err = expandPath(strings.TrimSpace(c.Paths.ArtifactDir)); err != nil {
		return fmt.Errorf("paths.artifact_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.LedgerPath, err = expandPath(strings.TrimSpace(c.Paths.LedgerPath)); err != nil {
		return fmt.Errorf("paths.ledger_path: %w", err)
	}
	return nil
}

// normalizeCorpus expands tilde prefixes but leaves glob metacharacters alone;
// relative patterns resolve against the working directory at load time.
func (c *Config) normalizeCorpus() {
	paths := make([]string, 0, len(c.Corpus.Paths))
	for _, p := range c.Corpus.Paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.HasPrefix(p, "~") {
			if expanded, err := expandPath(p); err == nil {
				p = expanded
			}
		}
		paths = append(paths, p)
	}
	c.Corpus.Paths = paths
	c.Corpus.IDColumn = strings.TrimSpace(c.Corpus.IDColumn)
	c.Corpus.TextColumn = strings.TrimSpace(c.Corpus.TextColumn)
	c.Corpus.AuthorColumn = strings.TrimSpace(c.Corpus.AuthorColumn)
	c.Corpus.TitleColumn = strings.TrimSpace(c.Corpus.TitleColumn)
	c.Corpus.ChapterColumn = strings.TrimSpace(c.Corpus.ChapterColumn)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
