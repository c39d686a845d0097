// Package config loads the retention and repository configuration
// consumed by the expiration engine. There is no global configuration
// singleton: every entry point receives an explicit *RetentionConfig /
// *RepoConfig value.
package config

import (
	"fmt"

	"github.com/cuemby/pgbackrest-repo/pkg/label"
	"github.com/cuemby/pgbackrest-repo/pkg/rerrors"
	"gopkg.in/yaml.v3"
)

// FullType selects how full-backup retention is evaluated.
type FullType string

const (
	FullTypeCount FullType = "count"
	FullTypeTime  FullType = "time"
)

// ArchiveType selects which backup kind anchors archive retention.
type ArchiveType string

const (
	ArchiveTypeFull ArchiveType = "full"
	ArchiveTypeDiff ArchiveType = "diff"
	ArchiveTypeIncr ArchiveType = "incr"
)

// RetentionConfig is the full set of options the expiration engine
// recognizes.
type RetentionConfig struct {
	RetentionFullType     FullType    `yaml:"retentionFullType"`
	RetentionFull         int         `yaml:"retentionFull"`
	RetentionDiff         int         `yaml:"retentionDiff"`
	RetentionArchive      int         `yaml:"retentionArchive"`
	RetentionArchiveType  ArchiveType `yaml:"retentionArchiveType"`
	RepoKey               string      `yaml:"repoKey"`
	Set                   string      `yaml:"set"`
	DryRun                bool        `yaml:"dryRun"`
}

// Validate rejects nonsensical retention configuration before expire runs.
func (c *RetentionConfig) Validate() error {
	switch c.RetentionFullType {
	case FullTypeCount, FullTypeTime, "":
	default:
		return rerrors.NewOptionInvalidValueError(
			fmt.Sprintf("'%s' is not a valid retentionFullType", c.RetentionFullType))
	}

	switch c.RetentionArchiveType {
	case ArchiveTypeFull, ArchiveTypeDiff, ArchiveTypeIncr, "":
	default:
		return rerrors.NewOptionInvalidValueError(
			fmt.Sprintf("'%s' is not a valid retentionArchiveType", c.RetentionArchiveType))
	}

	if c.RetentionFull < 0 || c.RetentionDiff < 0 || c.RetentionArchive < 0 {
		return rerrors.NewOptionInvalidValueError("retention counts must not be negative")
	}

	if c.Set != "" {
		if err := label.Validate(c.Set); err != nil {
			return err
		}
	}

	return nil
}

// RepoConfig names one repository's on-disk layout root and the stanza it
// targets.
type RepoConfig struct {
	RepoKey    string `yaml:"repoKey"`
	Stanza     string `yaml:"stanza"`
	BackupPath string `yaml:"backupPath"`
	ArchivePath string `yaml:"archivePath"`
	Cipher     string `yaml:"cipher"`
	Passphrase string `yaml:"passphrase"`
}

// resourceEnvelope mirrors the generic apiVersion/kind/metadata/spec shape
// used to wrap domain configuration.
type resourceEnvelope struct {
	APIVersion string           `yaml:"apiVersion"`
	Kind       string           `yaml:"kind"`
	Metadata   resourceMetadata `yaml:"metadata"`
	Spec       yaml.Node        `yaml:"spec"`
}

type resourceMetadata struct {
	Name string `yaml:"name"`
}

const (
	retentionPolicyKind = "RetentionPolicy"
	repositoryKind      = "Repository"
)

// LoadRetentionConfig parses a "kind: RetentionPolicy" YAML document.
func LoadRetentionConfig(data []byte) (*RetentionConfig, error) {
	var env resourceEnvelope
	if err := yaml.Unmarshal(data, &env); err != nil {
		return nil, rerrors.NewFormatError(fmt.Sprintf("invalid retention policy YAML: %v", err))
	}
	if env.Kind != "" && env.Kind != retentionPolicyKind {
		return nil, rerrors.NewFormatError(fmt.Sprintf("expected kind %s, got %s", retentionPolicyKind, env.Kind))
	}

	var cfg RetentionConfig
	if err := env.Spec.Decode(&cfg); err != nil {
		return nil, rerrors.NewFormatError(fmt.Sprintf("invalid retention policy spec: %v", err))
	}
	if cfg.RepoKey == "" {
		cfg.RepoKey = env.Metadata.Name
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadRepoConfig parses a "kind: Repository" YAML document.
func LoadRepoConfig(data []byte) (*RepoConfig, error) {
	var env resourceEnvelope
	if err := yaml.Unmarshal(data, &env); err != nil {
		return nil, rerrors.NewFormatError(fmt.Sprintf("invalid repository YAML: %v", err))
	}
	if env.Kind != "" && env.Kind != repositoryKind {
		return nil, rerrors.NewFormatError(fmt.Sprintf("expected kind %s, got %s", repositoryKind, env.Kind))
	}

	var cfg RepoConfig
	if err := env.Spec.Decode(&cfg); err != nil {
		return nil, rerrors.NewFormatError(fmt.Sprintf("invalid repository spec: %v", err))
	}
	if cfg.RepoKey == "" {
		cfg.RepoKey = env.Metadata.Name
	}

	return &cfg, nil
}
