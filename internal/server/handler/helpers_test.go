package handler

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	addr, err := parseAddress("token", "0x765DE816845861e75A25fCA122bb6898B8B1282a")
	require.NoError(t, err)
	assert.Equal(t, "0x765DE816845861e75A25fCA122bb6898B8B1282a", addr.Hex())

	for _, bad := range []string{"", "0x123", "765DE816845861e75A25fCA122bb6898B8B1282a", "0x" + strings.Repeat("zz", 20)} {
		_, err := parseAddress("token", bad)
		assert.Error(t, err, bad)
	}
}

func TestParseAmount(t *testing.T) {
	n, err := parseAmount("amount", " 123456789012345678901234567890 ")
	require.NoError(t, err)
	assert.Equal(t, "123456789012345678901234567890", n.String())

	for _, bad := range []string{"", "0", "-5", "1.5", "0x10"} {
		_, err := parseAmount("amount", bad)
		assert.Error(t, err, bad)
	}
}

func TestParseID(t *testing.T) {
	// Zero is a legitimate on-chain identifier.
	n, err := parseID("campaign_id", "0")
	require.NoError(t, err)
	assert.Zero(t, n.Sign())

	n, err = parseID("project_id", " 12 ")
	require.NoError(t, err)
	assert.Equal(t, "12", n.String())

	for _, bad := range []string{"", "-1", "1.5", "0x10"} {
		_, err := parseID("campaign_id", bad)
		assert.Error(t, err, bad)
	}
}

func TestParseFeeTier(t *testing.T) {
	tier, err := parseFeeTier("")
	require.NoError(t, err)
	assert.Zero(t, tier)

	tier, err = parseFeeTier("3000")
	require.NoError(t, err)
	assert.Equal(t, uint32(3000), tier)

	_, err = parseFeeTier("-1")
	assert.Error(t, err)
}

func TestParseBypassCode(t *testing.T) {
	code, err := parseBypassCode("")
	require.NoError(t, err)
	assert.Equal(t, [32]byte{}, code)

	hex64 := strings.Repeat("ab", 32)
	code, err = parseBypassCode("0x" + hex64)
	require.NoError(t, err)
	assert.Equal(t, byte(0xab), code[0])
	assert.Equal(t, byte(0xab), code[31])

	// Without the prefix too.
	_, err = parseBypassCode(hex64)
	assert.NoError(t, err)

	_, err = parseBypassCode("0xabcd")
	assert.Error(t, err)

	_, err = parseBypassCode("0x" + strings.Repeat("zz", 32))
	assert.Error(t, err)
}

func TestParsePagination(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/conversions", nil)
	limit, offset := parsePagination(r)
	assert.Equal(t, 50, limit)
	assert.Zero(t, offset)

	r = httptest.NewRequest("GET", "/api/conversions?limit=10&offset=20", nil)
	limit, offset = parsePagination(r)
	assert.Equal(t, 10, limit)
	assert.Equal(t, 20, offset)

	r = httptest.NewRequest("GET", "/api/conversions?limit=9999&offset=-1", nil)
	limit, offset = parsePagination(r)
	assert.Equal(t, 500, limit)
	assert.Zero(t, offset)
}
