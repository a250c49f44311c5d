package event

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func charKey(name Name, peripheral, service, characteristic, instance string) Key {
	return Key{Name: name, Attrs: Attributes{
		Peripheral:     IDOf(peripheral),
		Service:        IDOf(service),
		Characteristic: IDOf(characteristic),
		Instance:       IDOf(instance),
	}}
}

func TestID_zero_is_unset(t *testing.T) {
	var id ID
	_, ok := id.Value()
	require.False(t, ok)
	require.Equal(t, "*", id.String())

	empty := IDOf("")
	require.True(t, empty.IsSet())
	require.NotEqual(t, id, empty)
}

func TestKey_comparable_as_map_key(t *testing.T) {
	m := map[Key]int{}
	m[charKey("read", "P1", "S1", "C1", "0")]++
	m[charKey("read", "P1", "S1", "C1", "0")]++
	m[charKey("read", "P1", "S1", "C1", "1")]++

	require.Len(t, m, 2)
	require.Equal(t, 2, m[charKey("read", "P1", "S1", "C1", "0")])
}

func TestMatch(t *testing.T) {
	candidate := charKey("read", "P1", "S1", "C1", "0")

	tests := []struct {
		name  string
		query Predicate
		want  bool
	}{
		{"empty query matches everything", Match("", Attributes{}), true},
		{"name only", Match("read", Attributes{}), true},
		{"other name", Match("notify", Attributes{}), false},
		{"peripheral prefix", Match("", Attributes{Peripheral: IDOf("P1")}), true},
		{"other peripheral", Match("", Attributes{Peripheral: IDOf("P2")}), false},
		{"full hierarchy", Match("read", candidate.Attrs), true},
		{"sibling instance", Match("read", charKey("read", "P1", "S1", "C1", "1").Attrs), false},
		{"descriptor set on query only", Match("", Attributes{Descriptor: IDOf("D1")}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.query(candidate))
		})
	}
}

func TestLookup_exact(t *testing.T) {
	k := charKey("read", "P1", "S1", "C1", "0")
	l := Exact(k)

	got, ok := l.Key()
	require.True(t, ok)
	require.Equal(t, k, got)
	require.True(t, l.IsExact())
	require.True(t, l.Matches(k))

	// exact lookups do not treat unset fields as wildcards
	prefix := Key{Name: "read", Attrs: Attributes{Peripheral: IDOf("P1")}}
	require.False(t, Exact(prefix).Matches(k))
}

func TestLookup_wildcard(t *testing.T) {
	l := Wildcard("", Attributes{Peripheral: IDOf("P1")})
	_, ok := l.Key()
	require.False(t, ok)
	require.True(t, l.Matches(charKey("read", "P1", "S1", "C1", "0")))
	require.True(t, l.Matches(Key{Name: "connect", Attrs: Attributes{Peripheral: IDOf("P1")}}))
	require.False(t, l.Matches(Key{Name: "connect", Attrs: Attributes{Peripheral: IDOf("P2")}}))
	require.Equal(t, "wildcard:*{peripheral=P1}", l.String())
}

func TestErrorEvent(t *testing.T) {
	cause := errors.New("link lost")
	k := Key{Name: "connect", Attrs: Attributes{Peripheral: IDOf("P1")}}

	ev := ErrorEvent{Key: k, Cause: cause}
	require.True(t, ev.Lookup().IsExact())
	require.ErrorIs(t, ev, cause)
	require.Equal(t, "connect{peripheral=P1} failed: link lost", ev.Error())

	bc := ErrorEvent{Key: Key{Attrs: k.Attrs}, Cause: cause, Broadcast: true}
	require.False(t, bc.Lookup().IsExact())
	require.True(t, bc.Lookup().Matches(k))

	got, ok := AsError(&ev)
	require.True(t, ok)
	require.Equal(t, ev, got)

	_, ok = AsError(bc)
	require.True(t, ok)

	var nilEv *ErrorEvent
	_, ok = AsError(nilEv)
	require.False(t, ok)
}
