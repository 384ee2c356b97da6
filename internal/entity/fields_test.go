package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

func TestFieldSetAlwaysHasAllKeys(t *testing.T) {
	cases := []FieldSet{
		{},
		{InvoiceNumber: "INV-1"},
		{InvoiceNumber: "A", Date: "B", Seller: "C", Buyer: "D", TotalAmount: "E", Tax: "F"},
	}
	for _, fs := range cases {
		m := fs.AsMap()
		require.Len(t, m, len(constants.AllFields))
		for _, f := range constants.AllFields {
			_, ok := m[string(f)]
			assert.True(t, ok, "missing key %s", f)
		}

		b, err := json.Marshal(fs)
		require.NoError(t, err)
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(b, &decoded))
		require.Len(t, decoded, len(constants.AllFields))
		for k, v := range decoded {
			_, isString := v.(string)
			assert.True(t, isString, "key %s is not a string", k)
		}
	}
}

func TestSetTrimsAndGetReadsBack(t *testing.T) {
	var fs FieldSet
	for _, f := range constants.AllFields {
		fs.Set(f, "  "+string(f)+"\n")
	}
	for _, f := range constants.AllFields {
		assert.Equal(t, string(f), fs.Get(f))
	}
	assert.Equal(t, 6, fs.Matched())
	assert.False(t, fs.IsEmpty())
}

func TestFieldSetFromMapDropsUnknown(t *testing.T) {
	fs := FieldSetFromMap(map[string]string{"seller": " Acme ", "color": "blue"})
	assert.Equal(t, FieldSet{Seller: "Acme"}, fs)
	assert.Equal(t, 1, fs.Matched())
}
