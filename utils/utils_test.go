package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"081234567890", "6281234567890"},
		{"+62 812-3456-7890", "6281234567890"},
		{"6281234567890", "6281234567890"},
		{"81234567890", "6281234567890"},
	}
	for _, tt := range tests {
		got, err := NormalizePhone(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	for _, bad := range []string{"", "12345", "0212345678", "0812abc4567", "62812"} {
		_, err := NormalizePhone(bad)
		assert.ErrorIs(t, err, ErrInvalidPhone, bad)
	}
}

func TestGenerateOTPCode(t *testing.T) {
	for i := 0; i < 20; i++ {
		code, err := GenerateOTPCode()
		require.NoError(t, err)
		assert.Regexp(t, `^[0-9]{6}$`, code)
	}
}

func TestGenerateUniqueSlug(t *testing.T) {
	existing := map[string]bool{"kopdar-akbar-2025": true, "kopdar-akbar-2025-2": true}
	slug, err := GenerateUniqueSlug("  Kopdar Akbar 2025! ", func(s string) (bool, error) {
		return existing[s], nil
	})
	require.NoError(t, err)
	assert.Equal(t, "kopdar-akbar-2025-3", slug)

	assert.Equal(t, "kegiatan", Slugify("!!!"))

	_, err = GenerateUniqueSlug("x", func(string) (bool, error) { return false, errors.New("db down") })
	assert.EqualError(t, err, "db down")
}
