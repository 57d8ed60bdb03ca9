// Package watermark joins the cipher and the codec: it encrypts a message,
// serializes the envelope into the tagged text form and embeds it, and does
// the reverse on extraction.
//
// Encrypted payloads are stored as
//
//	ENCRYPTED:<salt hex>:<ciphertext hex>
//
// and plain payloads as the message itself.
package watermark

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xob0t/GoStego/pkg/cipher"
	"github.com/xob0t/GoStego/pkg/codec"
)

// Tag prefixes an encrypted payload.
const Tag = "ENCRYPTED:"

// MaxMessageLength is the longest message Embed accepts, in characters.
const MaxMessageLength = codec.MaxLength

var (
	ErrEmptyMessage          = errors.New("empty message")
	ErrMessageTooLong        = errors.New("message too long")
	ErrInvalidEnvelopeFormat = errors.New("invalid encrypted watermark format")
	ErrPasswordRequired      = errors.New("watermark is encrypted, password required")
	ErrWrongPassword         = cipher.ErrWrongPassword
	ErrNoValidPayload        = codec.ErrNoValidPayload
	ErrCapacityExceeded      = codec.ErrCapacityExceeded
	ErrUnencodable           = codec.ErrUnencodable
)

// Result is a recovered watermark.
type Result struct {
	Message   string
	Encrypted bool
}

// Info describes what a pixel buffer can hold and what it appears to carry.
type Info struct {
	CapacityBits int  // one bit per pixel
	MaxMessage   int  // longest plain message that fits, capped at MaxMessageLength
	Declared     int  // declared payload length, 0 when there is no valid prefix
	Encrypted    bool // payload carries Tag
}

// HasPayload reports whether the buffer has a readable payload.
func (i Info) HasPayload() bool { return i.Declared > 0 }

// Format serializes env into the string handed to the codec.
func Format(env cipher.Envelope) string {
	if !env.Encrypted {
		return env.Ciphertext
	}
	return Tag + env.Salt + ":" + env.Ciphertext
}

// Parse reverses Format. Text without Tag is a plain envelope.
func Parse(s string) (cipher.Envelope, error) {
	if !strings.HasPrefix(s, Tag) {
		return cipher.Envelope{Ciphertext: s}, nil
	}
	parts := strings.Split(s, ":")
	if len(parts) < 3 {
		return cipher.Envelope{}, fmt.Errorf("%w: %d segments", ErrInvalidEnvelopeFormat, len(parts))
	}
	return cipher.Envelope{
		Salt:       parts[1],
		Ciphertext: parts[2],
		Encrypted:  true,
	}, nil
}

// Embed writes message into pix, encrypting it first when password is not
// blank. Leading and trailing whitespace is trimmed from message before it
// is measured. It returns the envelope that was embedded.
func Embed(pix []byte, message, password string) (cipher.Envelope, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return cipher.Envelope{}, ErrEmptyMessage
	}
	if n := utf8.RuneCountInString(message); n > MaxMessageLength {
		return cipher.Envelope{}, fmt.Errorf("%w: %d characters, limit %d", ErrMessageTooLong, n, MaxMessageLength)
	}

	env, err := cipher.Encrypt(message, password)
	if err != nil {
		return cipher.Envelope{}, fmt.Errorf("encrypt: %w", err)
	}

	payload := Format(env)
	// The extractor rejects prefixes over codec.MaxLength, so a longer
	// tagged payload would never be readable.
	if n := utf8.RuneCountInString(payload); n > codec.MaxLength {
		return cipher.Envelope{}, fmt.Errorf("%w: encrypted payload is %d characters, limit %d",
			ErrMessageTooLong, n, codec.MaxLength)
	}

	if err := codec.Embed(pix, payload); err != nil {
		return cipher.Envelope{}, err
	}
	return env, nil
}

// Extract reads the watermark from pix and decrypts it with password when it
// is encrypted.
func Extract(pix []byte, password string) (Result, error) {
	raw, err := codec.Extract(pix)
	if err != nil {
		return Result{}, err
	}

	env, err := Parse(raw)
	if err != nil {
		return Result{}, err
	}

	if !env.Encrypted {
		if strings.TrimSpace(env.Ciphertext) == "" {
			return Result{}, fmt.Errorf("%w: blank message", ErrNoValidPayload)
		}
		return Result{Message: env.Ciphertext}, nil
	}

	if strings.TrimSpace(password) == "" {
		return Result{Encrypted: true}, ErrPasswordRequired
	}

	msg, err := decrypt(env, password)
	if err != nil {
		return Result{Encrypted: true}, err
	}
	if strings.TrimSpace(msg) == "" {
		return Result{Encrypted: true}, fmt.Errorf("%w: blank message", ErrNoValidPayload)
	}
	return Result{Message: msg, Encrypted: true}, nil
}

// decrypt tries the current keystream first and falls back to the one used
// by the browser tool.
func decrypt(env cipher.Envelope, password string) (string, error) {
	var err error
	for _, mode := range []cipher.KeyMode{cipher.KeyDigest, cipher.KeyHexDigest} {
		c := cipher.Cipher{Keys: mode}
		var msg string
		msg, err = c.Decrypt(env.Ciphertext, password, env.Salt)
		if err == nil {
			return msg, nil
		}
		if !errors.Is(err, cipher.ErrWrongPassword) {
			return "", err
		}
	}
	return "", err
}

// Probe inspects pix without decrypting anything.
func Probe(pix []byte) Info {
	capBits := codec.Capacity(pix)
	info := Info{
		CapacityBits: capBits,
		MaxMessage:   min(max((capBits-codec.LengthBits)/8, 0), MaxMessageLength),
	}

	raw, err := codec.Extract(pix)
	if err != nil {
		return info
	}
	info.Declared = len([]rune(raw))
	info.Encrypted = strings.HasPrefix(raw, Tag)
	return info
}

// Code classifies err into a short stable identifier for callers that cross
// a language boundary. Unrecognized errors are "internal".
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCapacityExceeded):
		return "capacity"
	case errors.Is(err, ErrNoValidPayload):
		return "no_payload"
	case errors.Is(err, ErrInvalidEnvelopeFormat),
		errors.Is(err, cipher.ErrMalformedCiphertext):
		return "format"
	case errors.Is(err, ErrPasswordRequired):
		return "password_required"
	case errors.Is(err, ErrWrongPassword):
		return "wrong_password"
	case errors.Is(err, ErrMessageTooLong),
		errors.Is(err, codec.ErrMessageTooLong):
		return "too_long"
	case errors.Is(err, ErrUnencodable),
		errors.Is(err, cipher.ErrUnencodable):
		return "unencodable"
	case errors.Is(err, ErrEmptyMessage):
		return "empty"
	default:
		return "internal"
	}
}
