package utils

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

const otpLength = 6
const maxSlugAttempts = 50

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// GenerateOTPCode returns a zero padded numeric code.
func GenerateOTPCode() (string, error) {
	var b strings.Builder
	for i := 0; i < otpLength; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

func Slugify(s string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "kegiatan"
	}
	return slug
}

// GenerateUniqueSlug slugifies title and appends -2, -3 ... until taken
// reports the slug as free.
func GenerateUniqueSlug(title string, taken func(string) (bool, error)) (string, error) {
	base := Slugify(title)
	slug := base
	for i := 2; i <= maxSlugAttempts+1; i++ {
		exists, err := taken(slug)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
	return "", errors.New("could not find a free slug for " + base)
}
