package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    IRValue
		expected string
	}{
		{"string", IRString("hello"), `"hello"`},
		{"empty string", IRString(""), `""`},
		{"int", IRInt(42), "42"},
		{"negative int", IRInt(-100), "-100"},
		{"max int64", IRInt(9223372036854775807), "9223372036854775807"},
		{"bool true", IRBool(true), "true"},
		{"bool false", IRBool(false), "false"},
		{"null", IRNull{}, "null"},
		{"empty array", IRArray{}, "[]"},
		{"empty object", IRObject{}, "{}"},
		{"array of ints", IRArray{IRInt(1), IRInt(2), IRInt(3)}, "[1,2,3]"},
		{"simple object", IRObject{"a": IRInt(1)}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalNestedSortedKeys(t *testing.T) {
	obj := IRObject{
		"title": IRString("Basic"),
		"price": IRObject{"currency": IRString("USD"), "cents": IRInt(0)},
		"flags": IRArray{IRBool(true), IRNull{}},
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"flags":[true,null],"price":{"cents":0,"currency":"USD"},"title":"Basic"}`, string(result))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	result, err := MarshalCanonical(IRString("<Kasper & Co>"))
	require.NoError(t, err)
	assert.Equal(t, `"<Kasper & Co>"`, string(result))
}

func TestMarshalCanonicalNFCNormalization(t *testing.T) {
	// "e" + combining acute must serialize like the precomposed form.
	decomposed, err := MarshalCanonical(IRObject{"name": IRString("Cafe\u0301")})
	require.NoError(t, err)
	composed, err := MarshalCanonical(IRObject{"name": IRString("Caf\u00e9")})
	require.NoError(t, err)
	assert.Equal(t, string(composed), string(decomposed))
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"U+2028", "a\u2028b", "\"a\u2028b\""},
		{"U+2029", "a\u2029b", "\"a\u2029b\""},
		{"literal escape text", `the escape is \u2028`, `"the escape is \\u2028"`},
		{"literal and actual", "lit \\u2028 and real \u2028", "\"lit \\\\u2028 and real \u2028\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(IRString(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalIdempotent(t *testing.T) {
	obj := IRObject{
		"b": IRArray{IRInt(1), IRString("x")},
		"a": IRObject{"z": IRBool(false)},
	}

	first, err := MarshalCanonical(obj)
	require.NoError(t, err)

	var decoded IRObject
	require.NoError(t, decoded.UnmarshalJSON(first))

	second, err := MarshalCanonical(decoded)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}
