package vector

import (
	"fmt"
	"regexp"
)

const (
	// Dimension is the embedding length produced by all-MiniLM-L6-v2.
	Dimension = 384
	// MaxNameLength bounds the name field, in characters.
	MaxNameLength = 100
	// MaxKeywords bounds the number of keywords per record.
	MaxKeywords = 100
	// MaxKeywordLength bounds each keyword, in characters.
	MaxKeywordLength = 100
	// MaxIDLength bounds the generated primary key.
	MaxIDLength = 100
	// MaxIdentifierLength bounds SQL table names.
	MaxIdentifierLength = 255
	// MaxCollectionNameLength leaves room for the "_vec_" shadow table
	// prefix within MaxIdentifierLength.
	MaxCollectionNameLength = MaxIdentifierLength - 5
)

// Field names of the agent schema.
const (
	FieldID        = "pk"
	FieldName      = "name"
	FieldKeywords  = "keywords"
	FieldEmbedding = "embedding"
)

// DataType is the storage type of a schema field.
type DataType string

const (
	VarChar     DataType = "VARCHAR"
	Array       DataType = "ARRAY"
	FloatVector DataType = "FLOAT_VECTOR"
)

// Field describes one column of a collection.
type Field struct {
	Name        string
	Type        DataType
	ElementType DataType // for Array
	Primary     bool
	AutoID      bool
	MaxLength   int // VarChar length or Array element length
	MaxCapacity int // Array capacity
	Dim         int // FloatVector dimension
}

// Schema is the immutable layout of a collection.
type Schema struct {
	Name        string
	Description string
	Fields      []Field
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AgentSchema returns the agent layout for the named collection.
func AgentSchema(name string) *Schema {
	return &Schema{
		Name:        name,
		Description: "Database collection where context of agents will be stored.",
		Fields: []Field{
			{Name: FieldID, Type: VarChar, Primary: true, AutoID: true, MaxLength: MaxIDLength},
			{Name: FieldName, Type: VarChar, MaxLength: MaxNameLength},
			{Name: FieldKeywords, Type: Array, ElementType: VarChar, MaxCapacity: MaxKeywords, MaxLength: MaxKeywordLength},
			{Name: FieldEmbedding, Type: FloatVector, Dim: Dimension},
		},
	}
}

// Field returns the named field.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Dim returns the dimension of the embedding field, or 0 when absent.
func (s *Schema) Dim() int {
	f, ok := s.Field(FieldEmbedding)
	if !ok {
		return 0
	}
	return f.Dim
}

// Validate checks that the schema is usable by the backends in this module.
func (s *Schema) Validate() error {
	if s == nil {
		return fmt.Errorf("vector: schema is nil")
	}
	if err := ValidateCollectionName(s.Name); err != nil {
		return err
	}
	for _, name := range []string{FieldID, FieldName, FieldKeywords, FieldEmbedding} {
		if _, ok := s.Field(name); !ok {
			return NewError(KindValidation, "schema", s.Name, fmt.Errorf("missing field %q", name))
		}
	}
	if s.Dim() <= 0 {
		return NewError(KindValidation, "schema", s.Name, fmt.Errorf("invalid embedding dimension %d", s.Dim()))
	}
	return nil
}

// ValidateCollectionName rejects names that cannot be used as identifiers,
// with or without the shadow table prefix. Collection names are interpolated
// into SQL by the sqlite backend.
func ValidateCollectionName(name string) error {
	if !identifier.MatchString(name) || len(name) > MaxCollectionNameLength {
		return NewError(KindValidation, "collection", name, fmt.Errorf("invalid collection name %q", name))
	}
	return nil
}

// ValidateIdentifier rejects table names that cannot be interpolated into
// SQL.
func ValidateIdentifier(name string) error {
	if !identifier.MatchString(name) || len(name) > MaxIdentifierLength {
		return NewError(KindValidation, "identifier", name, fmt.Errorf("invalid identifier %q", name))
	}
	return nil
}
