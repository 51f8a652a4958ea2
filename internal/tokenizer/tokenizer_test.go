package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScan_MinLengthAndLowercase(t *testing.T) {
	toks := Scan("Foo bar Ba X order_id OrderID2", 3)
	var words []string
	for _, tk := range toks {
		words = append(words, tk.Text)
	}
	assert.Equal(t, []string{"foo", "bar", "order_id", "orderid2"}, words)
}

func TestScan_NonASCIILetterIsSeparator(t *testing.T) {
	toks := Scan("café bar", 2)
	var words []string
	for _, tk := range toks {
		words = append(words, tk.Text)
	}
	assert.Equal(t, []string{"caf", "bar"}, words)
}

func TestScan_OffsetsAreByteOffsets(t *testing.T) {
	toks := Scan("  order", 3)
	assert.Len(t, toks, 1)
	assert.Equal(t, 2, toks[0].Offset)
}

func TestScanWords_Restartable(t *testing.T) {
	a := ScanWords("order id is", 2)
	b := ScanWords("order id is", 2)
	assert.Equal(t, a, b)
	assert.Equal(t, []string{"order", "id", "is"}, a)
}
