// Package schema models the Parquet-family message-type schema used to
// validate and describe records written through the columnar codec.
package schema

// Primitive type tags, stable integers matching the Parquet spec family
// (spec.md §6).
const (
	TypeBoolean             uint32 = 0
	TypeInt32               uint32 = 1
	TypeInt64               uint32 = 2
	TypeInt96               uint32 = 3
	TypeFloat               uint32 = 4
	TypeDouble              uint32 = 5
	TypeBinary              uint32 = 6
	TypeFixedLenByteArray   uint32 = 7
)

// Repetition tags.
const (
	Required uint32 = 0
	Optional uint32 = 1
	Repeated uint32 = 2
)

// Annotation tags, stable integers matching the Parquet spec family.
const (
	AnnotationNone          uint32 = 0xFFFFFFFF
	AnnotationUTF8          uint32 = 0
	AnnotationMap           uint32 = 1
	AnnotationList          uint32 = 2
	AnnotationDecimal       uint32 = 3
	AnnotationDate          uint32 = 4
	AnnotationTimeMillis    uint32 = 5
	AnnotationTimestampMillis uint32 = 6
	AnnotationInterval      uint32 = 7
)

// Field describes one column in a MessageType.
type Field struct {
	ID         int32
	Name       string
	Type       uint32
	Repetition uint32
	// HasAnnotation distinguishes "no annotation" from AnnotationUTF8 (tag
	// 0), since both would otherwise collide on the zero value.
	HasAnnotation bool
	Annotation    uint32
}

func (f Field) IsOptional() bool { return f.Repetition == Optional }
func (f Field) IsRepeated() bool { return f.Repetition == Repeated }
func (f Field) IsRequired() bool { return f.Repetition == Required }

// MessageType is an ordered list of fields plus a version counter. A
// message type may point at a predecessor version for documentation
// purposes; no migration logic is implemented.
type MessageType struct {
	Name        string
	Version     int
	Fields      []Field
	Predecessor *MessageType
}

// FieldByName returns the field with the given name, if any.
func (m *MessageType) FieldByName(name string) (Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// NextVersion returns a copy of m with Version incremented and
// Predecessor set to m, for callers evolving a schema without losing its
// history.
func (m *MessageType) NextVersion(name string, fields []Field) *MessageType {
	return &MessageType{Name: name, Version: m.Version + 1, Fields: fields, Predecessor: m}
}
