package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"37183050100", 37183050100, false},
		{" 37183050100 ", 37183050100, false},
		{"37183050100.0", 37183050100, false},
		{"3.71830501e+10", 37183050100, false},
		{"3718.5", 0, true},
		{"", 0, true},
		{"tract", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseID(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOptionalFloat(t *testing.T) {
	v, err := ParseOptionalFloat("")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = ParseOptionalFloat("NaN")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = ParseOptionalFloat("-78.64")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.InDelta(t, -78.64, *v, 1e-9)

	_, err = ParseOptionalFloat("north")
	require.Error(t, err)
}

func TestParseFlag(t *testing.T) {
	for _, s := range []string{"1", "1.0", "TRUE", "yes", "Y", "t"} {
		assert.True(t, ParseFlag(s), s)
	}
	for _, s := range []string{"0", "", "no", "false", "2"} {
		assert.False(t, ParseFlag(s), s)
	}
}

func TestNormalizeZIP(t *testing.T) {
	assert.Equal(t, "27601", NormalizeZIP("27601"))
	assert.Equal(t, "27601", NormalizeZIP("27601-1234"))
	assert.Equal(t, "02134", NormalizeZIP("2134"))
	assert.Equal(t, "02134", NormalizeZIP("2134.0"))
	assert.Equal(t, "", NormalizeZIP("Raleigh"))
	assert.Equal(t, "", NormalizeZIP("276011"))
	assert.Equal(t, "", NormalizeZIP(""))
}
