package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrevoSendEmail(t *testing.T) {
	var got brevoPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key-1", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := NewBrevoService("key-1", "noreply@komunitas.id", "Komunitas", zerolog.Nop())
	s.url = srv.URL

	err := s.SendEmail(context.Background(), "budi@example.com", "", "Pembayaran diterima", "<p>ok</p>")
	require.NoError(t, err)
	assert.Equal(t, "budi", got.To[0]["name"])
	assert.Equal(t, "Pembayaran diterima", got.Subject)
}

func TestBrevoErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	disabled := NewBrevoService("", "", "", zerolog.Nop())
	assert.ErrorIs(t, disabled.SendEmail(context.Background(), "a@b.c", "", "s", "b"), ErrNotConfigured)

	s := NewBrevoService("key", "noreply@komunitas.id", "Komunitas", zerolog.Nop())
	s.url = srv.URL
	assert.Error(t, s.SendEmail(context.Background(), "not-an-email", "", "s", "b"))
	assert.ErrorContains(t, s.SendEmail(context.Background(), "a@b.c", "", "s", "b"), "status 401")
}

func TestSMSSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "tok", r.Header.Get("Authorization"))
		assert.Equal(t, "6281234567890", r.PostForm.Get("target"))
		assert.Equal(t, "kode 123456", r.PostForm.Get("message"))
	}))
	defer srv.Close()

	s := NewSMSService(srv.URL, "tok", zerolog.Nop())
	require.NoError(t, s.SendSMS(context.Background(), "6281234567890", "kode 123456"))

	assert.NoError(t, NewSMSService("", "", zerolog.Nop()).SendSMS(context.Background(), "62812", "x"))
}
