// Package codec hides a length-prefixed message in the least-significant bit
// of the red channel of an RGBA pixel buffer.
//
// A pixel buffer is a tightly packed []byte of R, G, B, A samples, four per
// pixel, as produced by image.NRGBA.Pix for a zero-origin image. Each pixel
// carries one payload bit:
//
//	bits 0..15   message length, big-endian
//	bits 16..    message bytes, most significant bit first
package codec

import (
	"errors"
	"fmt"

	"golang.org/x/text/encoding/charmap"
)

const (
	// LengthBits is the width of the length prefix.
	LengthBits = 16
	// MaxLength is the largest declared length Extract accepts.
	MaxLength = 1000
	// MaxProtocolLength is the largest length the prefix can represent.
	MaxProtocolLength = 1<<LengthBits - 1

	samplesPerPixel = 4
	channel         = 0 // red
)

var (
	// ErrCapacityExceeded means the buffer has fewer pixels than payload bits.
	ErrCapacityExceeded = errors.New("payload exceeds image capacity")
	// ErrNoValidPayload means the length prefix is outside [1, MaxLength].
	ErrNoValidPayload = errors.New("no valid payload")
	// ErrMessageTooLong means the message cannot be expressed by the prefix.
	ErrMessageTooLong = errors.New("message too long")
	// ErrUnencodable means the message has a code point above 255.
	ErrUnencodable = errors.New("message has characters outside 0-255")
)

// Capacity returns how many payload bits pix can hold.
func Capacity(pix []byte) int {
	return len(pix) / samplesPerPixel
}

// RequiredBits returns the payload size in bits for an n-byte message.
func RequiredBits(n int) int {
	return LengthBits + 8*n
}

// Embed writes message into pix. Every rune of message must be in 0-255;
// each is stored as one byte.
func Embed(pix []byte, message string) error {
	data, err := charmap.ISO8859_1.NewEncoder().String(message)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnencodable, err)
	}
	return EmbedBytes(pix, []byte(data))
}

// EmbedBytes writes data into pix. pix is left untouched on error.
func EmbedBytes(pix []byte, data []byte) error {
	if len(data) > MaxProtocolLength {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrMessageTooLong, len(data), MaxProtocolLength)
	}

	need := RequiredBits(len(data))
	if have := Capacity(pix); need > have {
		return fmt.Errorf("%w: need %d pixels, have %d", ErrCapacityExceeded, need, have)
	}

	n := len(data)
	bit := 0
	for i := LengthBits - 1; i >= 0; i-- {
		setBit(pix, bit, byte(n>>i)&1)
		bit++
	}
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			setBit(pix, bit, (b>>i)&1)
			bit++
		}
	}
	return nil
}

// DeclaredLength reads the length prefix without validating it.
func DeclaredLength(pix []byte) (int, error) {
	if Capacity(pix) < LengthBits {
		return 0, fmt.Errorf("%w: buffer holds %d pixels", ErrNoValidPayload, Capacity(pix))
	}
	n := 0
	for i := 0; i < LengthBits; i++ {
		n = n<<1 | int(getBit(pix, i))
	}
	return n, nil
}

// ExtractBytes reads the payload stored by EmbedBytes.
func ExtractBytes(pix []byte) ([]byte, error) {
	n, err := DeclaredLength(pix)
	if err != nil {
		return nil, err
	}
	if n < 1 || n > MaxLength {
		return nil, fmt.Errorf("%w: declared length %d", ErrNoValidPayload, n)
	}

	need := RequiredBits(n)
	if have := Capacity(pix); need > have {
		return nil, fmt.Errorf("%w: declared length %d needs %d pixels, have %d",
			ErrCapacityExceeded, n, need, have)
	}

	data := make([]byte, n)
	bit := LengthBits
	for i := range data {
		var b byte
		for j := 0; j < 8; j++ {
			b = b<<1 | getBit(pix, bit)
			bit++
		}
		data[i] = b
	}
	return data, nil
}

// Extract reads the message stored by Embed. Every byte maps back to the
// rune of the same value, so Extract is the exact inverse of Embed.
func Extract(pix []byte) (string, error) {
	data, err := ExtractBytes(pix)
	if err != nil {
		return "", err
	}
	text, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode payload: %w", err)
	}
	return string(text), nil
}

func setBit(pix []byte, i int, bit byte) {
	idx := i*samplesPerPixel + channel
	pix[idx] = pix[idx]&0xFE | bit
}

func getBit(pix []byte, i int) byte {
	return pix[i*samplesPerPixel+channel] & 1
}
