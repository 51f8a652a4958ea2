package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var allKinds = []DefinitionKind{
	KindClass, KindInterface, KindEnum, KindStruct, KindRecord,
	KindMethod, KindProperty, KindField, KindConstructor, KindDelegate,
	KindEvent, KindEnumMember, KindFunction, KindVariable, KindTypeAlias,
	KindSQLTable, KindSQLView, KindSQLProcedure,
}

func TestDefinitionKind_StringParseRoundTrip(t *testing.T) {
	for _, k := range allKinds {
		name := k.String()
		require.NotEqual(t, "Unknown", name)
		parsed, ok := ParseDefinitionKind(name)
		require.True(t, ok, "parse failed for %s", name)
		require.Equal(t, k, parsed)
	}
}

func TestParseDefinitionKind_CaseInsensitive(t *testing.T) {
	for _, k := range allKinds {
		parsed, ok := ParseDefinitionKind(strings.ToUpper(k.String()))
		require.True(t, ok)
		require.Equal(t, k, parsed)
	}
	parsed, ok := ParseDefinitionKind("enummember")
	require.True(t, ok)
	require.Equal(t, KindEnumMember, parsed)
}

func TestParseDefinitionKind_UnknownName(t *testing.T) {
	_, ok := ParseDefinitionKind("widget")
	require.False(t, ok)
}

func TestIsMethodLike(t *testing.T) {
	require.True(t, KindMethod.IsMethodLike())
	require.True(t, KindConstructor.IsMethodLike())
	require.True(t, KindFunction.IsMethodLike())
	require.False(t, KindProperty.IsMethodLike())
	require.False(t, KindClass.IsMethodLike())
}

func TestCallSite_HasReceiver(t *testing.T) {
	require.True(t, CallSite{MethodName: "GetUser", ReceiverType: "IUserService"}.HasReceiver())
	require.False(t, CallSite{MethodName: "GetUser"}.HasReceiver())
}
