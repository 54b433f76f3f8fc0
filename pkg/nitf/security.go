package nitf

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/beetlebugorg/nitf/internal/tre"
)

// SecurityLength is the size of a NITF 2.1 security field block.
const SecurityLength = 167

// securityTag names the security schema. The block is not a TRE and the
// schema is never registered in a repository.
const securityTag = "SECHDR"

//go:embed security.yaml
var securityDescriptor []byte

var securitySchema = sync.OnceValue(func() *Schema {
	schemas, err := tre.LoadSchemas(bytes.NewReader(securityDescriptor))
	if err != nil {
		// The descriptor is embedded at compile time.
		panic(err)
	}
	return schemas[0]
})

// SecurityConfig holds the security fields of a NITF 2.1 header or segment
// subheader. Fill it in and call Build to get validated metadata.
type SecurityConfig struct {
	Classification              string // CLAS: T, S, C, R or U
	ClassificationSystem        string // CLSY
	Codewords                   string // CODE
	ControlAndHandling          string // CTLH
	ReleasingInstructions       string // REL
	DeclassificationType        string // DCTP: DD, DE, GD, GE, O or X
	DeclassificationDate        string // DCDT: CCYYMMDD
	DeclassificationExemption   string // DCXM
	Downgrade                   string // DG: S, C or R
	DowngradeDate               string // DGDT: CCYYMMDD
	ClassificationText          string // CLTX
	ClassificationAuthorityType string // CATP: O, D or M
	ClassificationAuthority     string // CAUT
	ClassificationReason        string // CRSN: A to G
	SecuritySourceDate          string // SRDT: CCYYMMDD
	ControlNumber               string // CTLN
}

// SecurityMetadata is a validated, immutable set of security fields.
type SecurityMetadata struct {
	cfg SecurityConfig
}

type securityField struct {
	name    string
	value   func(*SecurityConfig) *string
	allowed string // space separated codes; empty means free text
	date    bool
}

var securityFields = []securityField{
	{name: "CLAS", value: func(c *SecurityConfig) *string { return &c.Classification }, allowed: "T S C R U"},
	{name: "CLSY", value: func(c *SecurityConfig) *string { return &c.ClassificationSystem }},
	{name: "CODE", value: func(c *SecurityConfig) *string { return &c.Codewords }},
	{name: "CTLH", value: func(c *SecurityConfig) *string { return &c.ControlAndHandling }},
	{name: "REL", value: func(c *SecurityConfig) *string { return &c.ReleasingInstructions }},
	{name: "DCTP", value: func(c *SecurityConfig) *string { return &c.DeclassificationType }, allowed: "DD DE GD GE O X"},
	{name: "DCDT", value: func(c *SecurityConfig) *string { return &c.DeclassificationDate }, date: true},
	{name: "DCXM", value: func(c *SecurityConfig) *string { return &c.DeclassificationExemption }},
	{name: "DG", value: func(c *SecurityConfig) *string { return &c.Downgrade }, allowed: "S C R"},
	{name: "DGDT", value: func(c *SecurityConfig) *string { return &c.DowngradeDate }, date: true},
	{name: "CLTX", value: func(c *SecurityConfig) *string { return &c.ClassificationText }},
	{name: "CATP", value: func(c *SecurityConfig) *string { return &c.ClassificationAuthorityType }, allowed: "O D M"},
	{name: "CAUT", value: func(c *SecurityConfig) *string { return &c.ClassificationAuthority }},
	{name: "CRSN", value: func(c *SecurityConfig) *string { return &c.ClassificationReason }, allowed: "A B C D E F G"},
	{name: "SRDT", value: func(c *SecurityConfig) *string { return &c.SecuritySourceDate }, date: true},
	{name: "CTLN", value: func(c *SecurityConfig) *string { return &c.ControlNumber }},
}

// Build validates the configuration and returns the metadata. Only
// Classification is required; coded fields must hold one of their codes
// and dates must be CCYYMMDD.
func (c SecurityConfig) Build() (SecurityMetadata, error) {
	for _, f := range securityFields {
		v := *f.value(&c)
		switch {
		case f.name == "CLAS" && v == "":
			return SecurityMetadata{}, &ErrSecurity{Field: f.name, Reason: "classification is required"}
		case v == "":
		case f.allowed != "" && !hasCode(f.allowed, v):
			return SecurityMetadata{}, &ErrSecurity{Field: f.name, Value: v, Reason: "want one of " + f.allowed}
		case f.date && !isDate(v):
			return SecurityMetadata{}, &ErrSecurity{Field: f.name, Value: v, Reason: "want CCYYMMDD"}
		}
	}

	m := SecurityMetadata{cfg: c}
	// Catch values that do not fit their fields now rather than at Encode.
	if _, err := tre.Serialize(m.tree(), securitySchema()); err != nil {
		return SecurityMetadata{}, fmt.Errorf("security: %w", err)
	}
	return m, nil
}

func hasCode(codes, v string) bool {
	for _, c := range strings.Fields(codes) {
		if c == v {
			return true
		}
	}
	return false
}

func isDate(v string) bool {
	if len(v) != 8 {
		return false
	}
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return false
		}
	}
	month, day := v[4:6], v[6:8]
	return month >= "01" && month <= "12" && day >= "01" && day <= "31"
}

// ParseSecurity decodes a NITF 2.1 security field block. data must hold at
// least SecurityLength bytes; the rest is ignored.
func ParseSecurity(data []byte) (SecurityMetadata, error) {
	if len(data) > SecurityLength {
		data = data[:SecurityLength]
	}
	ext, err := tre.Parse(securityTag, SecurityLength, data, securitySchema())
	if err != nil {
		return SecurityMetadata{}, fmt.Errorf("security: %w", err)
	}
	tree := ext.(*Tree)

	var c SecurityConfig
	for _, f := range securityFields {
		s, err := tree.Scalar(f.name)
		if err != nil {
			return SecurityMetadata{}, fmt.Errorf("security: %w", err)
		}
		*f.value(&c) = s.Trimmed()
	}
	return c.Build()
}

func (m SecurityMetadata) tree() *Tree {
	entries := make([]Entry, 0, len(securityFields))
	for _, f := range securityFields {
		entries = append(entries, tre.NewText(f.name, *f.value(&m.cfg)))
	}
	return tre.NewTree(securityTag, entries...)
}

// Encode writes the metadata as a SecurityLength byte field block.
func (m SecurityMetadata) Encode() ([]byte, error) {
	return tre.Serialize(m.tree(), securitySchema())
}

// Config returns a copy of the fields.
func (m SecurityMetadata) Config() SecurityConfig {
	return m.cfg
}

// Classification returns the CLAS code.
func (m SecurityMetadata) Classification() string {
	return m.cfg.Classification
}

// IsUnclassified reports whether the classification is U.
func (m SecurityMetadata) IsUnclassified() bool {
	return m.cfg.Classification == "U"
}

func (m SecurityMetadata) String() string {
	var parts []string
	parts = append(parts, m.cfg.Classification)
	if m.cfg.ClassificationSystem != "" {
		parts = append(parts, m.cfg.ClassificationSystem)
	}
	if m.cfg.ControlAndHandling != "" {
		parts = append(parts, m.cfg.ControlAndHandling)
	}
	if m.cfg.ReleasingInstructions != "" {
		parts = append(parts, "REL "+m.cfg.ReleasingInstructions)
	}
	return strings.Join(parts, "//")
}
