package types

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// Config holds backend selection and parameters for Backend.Attach.
type Config struct {
	Backend string `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
	BackendBadger: true,
	BackendMemory: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	return nil
}

// Path encodings.
const (
	// EncodingBare stores "a/b/c"; roots hold the empty string.
	EncodingBare = "bare"
	// EncodingBracketed stores "/a/b/c/"; roots hold "/".
	EncodingBracketed = "bracketed"
)

// Orphan strategies applied to the descendants of a deleted node.
const (
	OrphanDestroy  = "destroy"
	OrphanRootify  = "rootify"
	OrphanAdopt    = "adopt"
	OrphanRestrict = "restrict"
	OrphanNone     = "none"
)

// Cascade modes. Auto picks bulk when the store implements BulkUpdater.
const (
	CascadeAuto = "auto"
	CascadeRow  = "row"
	CascadeBulk = "bulk"
)

// Default segment patterns per key kind.
const (
	IntegerSegmentPattern = `[0-9]+`
	StringSegmentPattern  = `[-A-Za-z0-9_]+`
)

// TreeConfig is the per-model configuration of the tree engine. It is a
// plain value; the engine copies it on construction.
type TreeConfig struct {
	AncestryColumn   string `json:"ancestry_column" yaml:"ancestry_column" mapstructure:"ancestry_column" validate:"required,column"`
	DepthCacheColumn string `json:"depth_cache_column" yaml:"depth_cache_column" mapstructure:"depth_cache_column" validate:"omitempty,column,nefield=AncestryColumn,nefield=IDColumn,nefield=NameColumn"`
	IDColumn         string `json:"id_column" yaml:"id_column" mapstructure:"id_column" validate:"required,column,nefield=AncestryColumn"`
	NameColumn       string `json:"name_column" yaml:"name_column" mapstructure:"name_column" validate:"omitempty,column,nefield=AncestryColumn,nefield=IDColumn"`
	OrphanStrategy   string `json:"orphan_strategy" yaml:"orphan_strategy" mapstructure:"orphan_strategy" validate:"oneof=destroy rootify adopt restrict none"`
	Encoding         string `json:"encoding" yaml:"encoding" mapstructure:"encoding" validate:"oneof=bare bracketed"`
	KeyKind          string `json:"key_kind" yaml:"key_kind" mapstructure:"key_kind" validate:"oneof=integer string"`
	SegmentPattern   string `json:"segment_pattern" yaml:"segment_pattern" mapstructure:"segment_pattern" validate:"omitempty,regexp"`
	Cascade          string `json:"cascade" yaml:"cascade" mapstructure:"cascade" validate:"oneof=auto row bulk"`
}

// DefaultTreeConfig returns the configuration used when no option is set:
// bare integer paths in an "ancestry" column, no depth cache, destroy
// orphans.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		AncestryColumn: "ancestry",
		IDColumn:       "id",
		NameColumn:     "name",
		OrphanStrategy: OrphanDestroy,
		Encoding:       EncodingBare,
		KeyKind:        KeyInteger,
		Cascade:        CascadeAuto,
	}
}

// columnRE restricts column names to plain SQL identifiers.
var columnRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	_ = configValidate.RegisterValidation("column", func(fl validator.FieldLevel) bool {
		return columnRE.MatchString(fl.Field().String())
	})
	_ = configValidate.RegisterValidation("regexp", func(fl validator.FieldLevel) bool {
		_, err := regexp.Compile(fl.Field().String())
		return err == nil
	})
}

// Validate checks every option. Failures wrap ErrConfiguration and name the
// offending option.
func (c TreeConfig) Validate() error {
	err := configValidate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%w: option %s=%q fails %q", ErrConfiguration, fe.Field(), fmt.Sprint(fe.Value()), fe.Tag())
	}
	return fmt.Errorf("%w: %v", ErrConfiguration, err)
}

// Segment returns the effective primary-key token pattern.
func (c TreeConfig) Segment() string {
	if c.SegmentPattern != "" {
		return c.SegmentPattern
	}
	if c.KeyKind == KeyString {
		return StringSegmentPattern
	}
	return IntegerSegmentPattern
}

// Schema returns the column mapping stores use for this model.
func (c TreeConfig) Schema() Schema {
	return Schema{
		IDColumn:    c.IDColumn,
		PathColumn:  c.AncestryColumn,
		DepthColumn: c.DepthCacheColumn,
		NameColumn:  c.NameColumn,
		KeyKind:     c.KeyKind,
	}
}
