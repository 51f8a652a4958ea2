package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codesift/codesift/internal/types"
)

func TestParseJS_FunctionAndClass(t *testing.T) {
	src := []byte(`
function add(a, b) {
  return a + b;
}

class Widget {
  constructor(name) {
    this.name = name;
  }

  render() {
    return this.name;
  }
}
`)
	res, err := ParseJS(src, types.FileID(1))
	require.NoError(t, err)

	var names []string
	for _, d := range res.Defs {
		names = append(names, d.Name)
	}
	require.Contains(t, names, "add")
	require.Contains(t, names, "Widget")
	require.Contains(t, names, "constructor")
	require.Contains(t, names, "render")

	for _, d := range res.Defs {
		if d.Name == "constructor" {
			require.Equal(t, types.KindConstructor, d.Kind)
			require.Equal(t, "Widget", d.Parent)
		}
		if d.Name == "render" {
			require.Equal(t, types.KindMethod, d.Kind)
			require.Equal(t, "Widget", d.Parent)
		}
	}
}

func TestSupports_IncludesJSExtensions(t *testing.T) {
	p := NewTreeSitterParser()
	require.True(t, p.Supports(".js"))
	require.True(t, p.Supports(".mjs"))
	require.True(t, p.Supports(".jsx"))
	require.True(t, p.Supports(".cs"))
	require.False(t, p.Supports(".py"))
}
