//go:build !integration

package qrcode_test

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vpn-subscription/internal/infra/qrcode"
)

func TestEncoder(t *testing.T) {
	enc := qrcode.NewEncoder(0)

	t.Run("should render a png data uri", func(t *testing.T) {
		uri, err := enc.GenerateBase64Image("https://sub.example/s/0123456789abcdef")
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))

		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/png;base64,"))
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(raw, []byte("\x89PNG")))
	})

	t.Run("should reject blank content", func(t *testing.T) {
		_, err := enc.GenerateBase64Image("  ")
		assert.ErrorIs(t, err, qrcode.ErrEmptyContent)
	})
}
