package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFieldByName(t *testing.T) {
	t.Parallel()
	msg := &MessageType{
		Name: "person",
		Fields: []Field{
			{Name: "name", Type: TypeBinary, Repetition: Required},
			{Name: "age", Type: TypeInt32, Repetition: Optional},
		},
	}

	f, ok := msg.FieldByName("age")
	require.True(t, ok)
	require.True(t, f.IsOptional())

	_, ok = msg.FieldByName("missing")
	require.False(t, ok)
}

func TestNextVersionKeepsPredecessor(t *testing.T) {
	t.Parallel()
	v1 := &MessageType{Name: "person", Version: 1, Fields: []Field{{Name: "name", Type: TypeBinary}}}
	v2 := v1.NextVersion("person", []Field{{Name: "name", Type: TypeBinary}, {Name: "age", Type: TypeInt32}})

	require.Equal(t, 2, v2.Version)
	require.Same(t, v1, v2.Predecessor)
	require.Len(t, v2.Fields, 2)
}
