// Package cipher implements the password envelope applied to a watermark
// before it is embedded.
//
// The scheme XORs the message with a keystream derived from
// SHA-256(password + salt) and hex-encodes the result. A fixed marker is
// prepended to the plaintext so a wrong password is detected on decryption.
// It is obfuscation, not authenticated encryption: it does not resist
// known-plaintext attacks.
package cipher

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/sha256-simd"
	"github.com/templexxx/xhex"
	"golang.org/x/text/encoding/charmap"
	"lukechampine.com/frand"
)

const (
	// Marker is prepended to the plaintext before XOR.
	Marker = "||VALID||"
	// SaltSize is the number of random bytes in a salt.
	SaltSize = 16
)

var (
	// ErrWrongPassword means the decrypted text did not start with Marker.
	ErrWrongPassword = errors.New("wrong password")
	// ErrMalformedCiphertext means the ciphertext is not valid hex.
	ErrMalformedCiphertext = errors.New("malformed ciphertext")
	// ErrUnencodable means a KeyHexDigest message has a code point above 255.
	ErrUnencodable = errors.New("message has characters outside 0-255")
)

// KeyMode selects how the keystream is derived from the password digest.
type KeyMode int

const (
	// KeyDigest uses the 32 raw bytes of the SHA-256 digest.
	KeyDigest KeyMode = iota
	// KeyHexDigest uses the 64 ASCII characters of the hex digest, as the
	// browser version of the tool did. The browser XORed character codes, so
	// in this mode text is mapped to bytes as ISO-8859-1 instead of UTF-8.
	KeyHexDigest
)

func (m KeyMode) String() string {
	switch m {
	case KeyDigest:
		return "digest"
	case KeyHexDigest:
		return "hex-digest"
	default:
		return fmt.Sprintf("KeyMode(%d)", int(m))
	}
}

// Envelope is the result of Encrypt.
type Envelope struct {
	Ciphertext string // lowercase hex when Encrypted, the plain message otherwise
	Salt       string // lowercase hex, empty when not Encrypted
	Encrypted  bool
}

// Cipher holds the keystream mode and the randomness source for salts.
// The zero value uses KeyDigest and a CSPRNG.
type Cipher struct {
	Keys KeyMode
	Rand io.Reader
}

var std = &Cipher{}

// HashPassword returns the lowercase hex SHA-256 digest of password.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return encodeHex(sum[:])
}

// GenerateSalt returns length random bytes as lowercase hex.
func GenerateSalt(length int) (string, error) {
	return std.GenerateSalt(length)
}

// Encrypt seals message with password using the default Cipher.
func Encrypt(message, password string) (Envelope, error) {
	return std.Encrypt(message, password)
}

// Decrypt opens a ciphertext produced by Encrypt.
func Decrypt(ciphertextHex, password, salt string) (string, error) {
	return std.Decrypt(ciphertextHex, password, salt)
}

// GenerateSalt returns length random bytes from c.Rand as lowercase hex.
func (c *Cipher) GenerateSalt(length int) (string, error) {
	if length < 0 {
		return "", fmt.Errorf("invalid salt length %d", length)
	}
	r := c.Rand
	if r == nil {
		r = frand.Reader
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	return encodeHex(buf), nil
}

// Encrypt seals message under password. A blank password returns the message
// unchanged with Encrypted false.
func (c *Cipher) Encrypt(message, password string) (Envelope, error) {
	if isBlank(password) {
		return Envelope{Ciphertext: message}, nil
	}

	salt, err := c.GenerateSalt(SaltSize)
	if err != nil {
		return Envelope{}, err
	}

	data, err := c.textBytes(Marker + message)
	if err != nil {
		return Envelope{}, err
	}
	xorKey(data, c.key(password, salt))

	return Envelope{
		Ciphertext: encodeHex(data),
		Salt:       salt,
		Encrypted:  true,
	}, nil
}

// Decrypt reverses Encrypt. A blank salt or password means the input was
// never encrypted and it is returned as is.
func (c *Cipher) Decrypt(ciphertextHex, password, salt string) (string, error) {
	if salt == "" || isBlank(password) {
		return ciphertextHex, nil
	}

	data, err := decodeHex(ciphertextHex)
	if err != nil {
		return "", err
	}
	xorKey(data, c.key(password, salt))

	if !bytes.HasPrefix(data, []byte(Marker)) {
		return "", ErrWrongPassword
	}
	return c.bytesText(data[len(Marker):])
}

func (c *Cipher) textBytes(s string) ([]byte, error) {
	if c.Keys != KeyHexDigest {
		return []byte(s), nil
	}
	data, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnencodable, err)
	}
	return data, nil
}

func (c *Cipher) bytesText(data []byte) (string, error) {
	if c.Keys != KeyHexDigest {
		return string(data), nil
	}
	text, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode plaintext: %w", err)
	}
	return string(text), nil
}

func (c *Cipher) key(password, salt string) []byte {
	if c.Keys == KeyHexDigest {
		return []byte(HashPassword(password + salt))
	}
	sum := sha256.Sum256([]byte(password + salt))
	return sum[:]
}

func xorKey(data, key []byte) {
	for i := range data {
		data[i] ^= key[i%len(key)]
	}
}

func encodeHex(src []byte) string {
	dst := make([]byte, hex.EncodedLen(len(src)))
	xhex.Encode(dst, src)
	return string(dst)
}

func decodeHex(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("%w: odd length %d", ErrMalformedCiphertext, len(s))
	}
	dst := make([]byte, hex.DecodedLen(len(s)))
	if err := xhex.Decode(dst, []byte(s)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	return dst, nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
