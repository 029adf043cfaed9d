package badge_test

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-registration/internal/models"
	"ms-registration/internal/registration/badge"
)

func TestPNG(t *testing.T) {
	gen := badge.NewGenerator("test-secret-key")

	data, err := gen.PNG(models.Registration{ID: 42, EventID: 7})
	require.NoError(t, err)
	require.NotEmpty(t, data)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())
}

func TestPayloadRoundTrip(t *testing.T) {
	gen := badge.NewGenerator("test-secret-key")

	payload := gen.Payload(models.Registration{ID: 42, EventID: 7})
	assert.Regexp(t, `^reg:42:7:[0-9a-f]{16}$`, payload)

	regID, eventID, err := gen.Verify(payload)
	require.NoError(t, err)
	assert.Equal(t, int64(42), regID)
	assert.Equal(t, int64(7), eventID)
}

func TestVerify_RejectsTampering(t *testing.T) {
	gen := badge.NewGenerator("test-secret-key")
	other := badge.NewGenerator("another-secret")

	payload := gen.Payload(models.Registration{ID: 42, EventID: 7})

	tests := map[string]string{
		"forged id":      "reg:43:7:" + payload[len(payload)-16:],
		"foreign secret": other.Payload(models.Registration{ID: 42, EventID: 7}),
		"wrong prefix":   "tkt" + payload[3:],
		"truncated":      "reg:42:7",
		"empty":          "",
	}
	for name, p := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := gen.Verify(p)
			assert.ErrorIs(t, err, badge.ErrInvalidPayload)
		})
	}
}
