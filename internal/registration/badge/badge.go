package badge

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"

	"ms-registration/internal/models"
)

// macLen is the number of hex characters of the HMAC kept in a payload.
const macLen = 16

var ErrInvalidPayload = errors.New("invalid badge payload")

// Generator renders check-in badges: a QR code carrying a signed reference
// to one registration.
type Generator struct {
	secret []byte
}

func NewGenerator(secret string) *Generator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &Generator{secret: hashed[:]}
}

// Payload is the text encoded in the QR code: reg:<id>:<event_id>:<mac>.
func (g *Generator) Payload(reg models.Registration) string {
	body := fmt.Sprintf("reg:%d:%d", reg.ID, reg.EventID)
	return body + ":" + g.sign(body)
}

// PNG renders the badge for reg as a 256px PNG.
func (g *Generator) PNG(reg models.Registration) ([]byte, error) {
	return qrcode.Encode(g.Payload(reg), qrcode.Medium, 256)
}

// Verify checks a scanned payload and returns the registration and event ids
// it refers to.
func (g *Generator) Verify(payload string) (registrationID, eventID int64, err error) {
	parts := strings.Split(payload, ":")
	if len(parts) != 4 || parts[0] != "reg" {
		return 0, 0, ErrInvalidPayload
	}

	body := strings.Join(parts[:3], ":")
	if !hmac.Equal([]byte(parts[3]), []byte(g.sign(body))) {
		return 0, 0, ErrInvalidPayload
	}

	registrationID, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, ErrInvalidPayload
	}
	eventID, err = strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0, 0, ErrInvalidPayload
	}
	return registrationID, eventID, nil
}

func (g *Generator) sign(body string) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))[:macLen]
}
