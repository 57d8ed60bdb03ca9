package watermark

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xob0t/GoStego/pkg/cipher"
	"github.com/xob0t/GoStego/pkg/codec"
)

func newPixels(n int) []byte {
	pix := make([]byte, n*4)
	for i := range pix {
		pix[i] = byte(i * 13)
	}
	return pix
}

func TestFormatParse(t *testing.T) {
	env := cipher.Envelope{Ciphertext: "deadbeef", Salt: "0011", Encrypted: true}
	s := Format(env)
	assert.Equal(t, "ENCRYPTED:0011:deadbeef", s)

	got, err := Parse(s)
	require.NoError(t, err)
	assert.Equal(t, env, got)

	plain := cipher.Envelope{Ciphertext: "just text: with colons"}
	assert.Equal(t, "just text: with colons", Format(plain))
	got, err = Parse("just text: with colons")
	require.NoError(t, err)
	assert.Equal(t, plain, got)
}

func TestParse_InvalidFormat(t *testing.T) {
	for _, s := range []string{"ENCRYPTED:", "ENCRYPTED:onlysalt"} {
		_, err := Parse(s)
		require.ErrorIs(t, err, ErrInvalidEnvelopeFormat, s)
	}

	// Extra segments are ignored.
	env, err := Parse("ENCRYPTED:aa:bb:cc")
	require.NoError(t, err)
	assert.Equal(t, "aa", env.Salt)
	assert.Equal(t, "bb", env.Ciphertext)
}

func TestRoundTrip_Plain(t *testing.T) {
	pix := newPixels(4096)
	env, err := Embed(pix, "© watermark", "")
	require.NoError(t, err)
	assert.False(t, env.Encrypted)

	res, err := Extract(pix, "")
	require.NoError(t, err)
	assert.Equal(t, Result{Message: "© watermark"}, res)

	// A password on a plain watermark is ignored.
	res, err = Extract(pix, "unused")
	require.NoError(t, err)
	assert.Equal(t, "© watermark", res.Message)
}

func TestRoundTrip_Encrypted(t *testing.T) {
	pix := newPixels(codec.RequiredBits(codec.MaxLength))
	msg := "owner: ☃ studio"

	env, err := Embed(pix, msg, "hunter2")
	require.NoError(t, err)
	require.True(t, env.Encrypted)

	raw, err := codec.Extract(pix)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, Tag+env.Salt+":"))

	res, err := Extract(pix, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, Result{Message: msg, Encrypted: true}, res)

	_, err = Extract(pix, "hunter3")
	require.ErrorIs(t, err, ErrWrongPassword)

	res, err = Extract(pix, "  ")
	require.ErrorIs(t, err, ErrPasswordRequired)
	assert.True(t, res.Encrypted)
}

func TestExtract_LegacyKeystream(t *testing.T) {
	legacy := &cipher.Cipher{Keys: cipher.KeyHexDigest}
	env, err := legacy.Encrypt("made in the browser", "pw")
	require.NoError(t, err)

	pix := newPixels(4096)
	require.NoError(t, codec.Embed(pix, Format(env)))

	res, err := Extract(pix, "pw")
	require.NoError(t, err)
	assert.Equal(t, "made in the browser", res.Message)

	_, err = Extract(pix, "nope")
	require.ErrorIs(t, err, ErrWrongPassword)
}

func TestExtract_BrowserLatin1(t *testing.T) {
	salt := strings.Repeat("c3", cipher.SaltSize)
	sum := sha256.Sum256([]byte("pw" + salt))
	key := hex.EncodeToString(sum[:])
	var ct strings.Builder
	for i, r := range []rune(cipher.Marker + "café") {
		fmt.Fprintf(&ct, "%02x", int(r)^int(key[i%len(key)]))
	}

	pix := newPixels(4096)
	require.NoError(t, codec.Embed(pix, Tag+salt+":"+ct.String()))

	res, err := Extract(pix, "pw")
	require.NoError(t, err)
	assert.Equal(t, Result{Message: "café", Encrypted: true}, res)
}

func TestExtract_MalformedCiphertext(t *testing.T) {
	pix := newPixels(4096)
	require.NoError(t, codec.Embed(pix, "ENCRYPTED:0011:abc"))

	_, err := Extract(pix, "pw")
	require.ErrorIs(t, err, cipher.ErrMalformedCiphertext)
}

func TestExtract_InvalidTag(t *testing.T) {
	pix := newPixels(4096)
	require.NoError(t, codec.Embed(pix, "ENCRYPTED:nosplit"))

	_, err := Extract(pix, "pw")
	require.ErrorIs(t, err, ErrInvalidEnvelopeFormat)
}

func TestExtract_BlankPayload(t *testing.T) {
	pix := newPixels(4096)
	require.NoError(t, codec.Embed(pix, "   "))

	_, err := Extract(pix, "")
	require.ErrorIs(t, err, ErrNoValidPayload)
}

func TestExtract_NoWatermark(t *testing.T) {
	pix := make([]byte, 4096*4)
	_, err := Extract(pix, "")
	require.ErrorIs(t, err, ErrNoValidPayload)
}

func TestEmbed_Validation(t *testing.T) {
	pix := newPixels(codec.RequiredBits(codec.MaxLength))
	orig := bytes.Clone(pix)

	_, err := Embed(pix, " \n", "")
	require.ErrorIs(t, err, ErrEmptyMessage)

	_, err = Embed(pix, strings.Repeat("a", MaxMessageLength+1), "")
	require.ErrorIs(t, err, ErrMessageTooLong)

	// Fits in plain form but not once encrypted and hex encoded.
	_, err = Embed(pix, strings.Repeat("a", 500), "pw")
	require.ErrorIs(t, err, ErrMessageTooLong)

	assert.Equal(t, orig, pix)

	_, err = Embed(pix, strings.Repeat("a", MaxMessageLength), "")
	require.NoError(t, err)
}

func TestEmbed_EncryptedLimit(t *testing.T) {
	// 61 bytes of tag, salt and marker overhead, two hex digits per byte.
	longest := (codec.MaxLength - len(Tag) - 2*cipher.SaltSize - 1 - 2*len(cipher.Marker)) / 2
	pix := newPixels(codec.RequiredBits(codec.MaxLength))

	_, err := Embed(pix, strings.Repeat("b", longest), "pw")
	require.NoError(t, err)
	res, err := Extract(pix, "pw")
	require.NoError(t, err)
	assert.Len(t, res.Message, longest)

	_, err = Embed(pix, strings.Repeat("b", longest+1), "pw")
	require.ErrorIs(t, err, ErrMessageTooLong)
}

func TestEmbed_TrimsMessage(t *testing.T) {
	pix := newPixels(codec.RequiredBits(codec.MaxLength))

	_, err := Embed(pix, "  padded mark\n", "")
	require.NoError(t, err)
	res, err := Extract(pix, "")
	require.NoError(t, err)
	assert.Equal(t, "padded mark", res.Message)

	// Surrounding whitespace does not count against the limit.
	_, err = Embed(pix, " "+strings.Repeat("a", MaxMessageLength)+"\t", "")
	require.NoError(t, err)
}

func TestEmbed_Capacity(t *testing.T) {
	pix := newPixels(codec.RequiredBits(5) - 1)
	orig := bytes.Clone(pix)

	_, err := Embed(pix, "hello", "")
	require.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, orig, pix)
}

func TestEmbed_UnencodablePlain(t *testing.T) {
	_, err := Embed(newPixels(4096), "☃", "")
	require.ErrorIs(t, err, codec.ErrUnencodable)
}

func TestProbe(t *testing.T) {
	empty := make([]byte, 100*4)
	info := Probe(empty)
	assert.Equal(t, 100, info.CapacityBits)
	assert.Equal(t, (100-16)/8, info.MaxMessage)
	assert.False(t, info.HasPayload())

	assert.Equal(t, 0, Probe(make([]byte, 8)).MaxMessage)
	assert.Equal(t, MaxMessageLength, Probe(newPixels(100000)).MaxMessage)

	pix := newPixels(4096)
	_, err := Embed(pix, "hello", "")
	require.NoError(t, err)
	info = Probe(pix)
	assert.Equal(t, 5, info.Declared)
	assert.False(t, info.Encrypted)

	_, err = Embed(pix, "hello", "pw")
	require.NoError(t, err)
	info = Probe(pix)
	assert.True(t, info.HasPayload())
	assert.True(t, info.Encrypted)
}

func TestCode(t *testing.T) {
	pix := newPixels(codec.RequiredBits(codec.MaxLength))
	encrypted := newPixels(4096)
	_, err := Embed(encrypted, "locked", "pw")
	require.NoError(t, err)

	embedErr := func(msg string) error {
		_, err := Embed(pix, msg, "")
		return err
	}
	extractErr := func(pix []byte, pw string) error {
		_, err := Extract(pix, pw)
		return err
	}

	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{embedErr("☃ x"), "unencodable"},
		{embedErr(strings.Repeat("a", MaxMessageLength+1)), "too_long"},
		{embedErr(" "), "empty"},
		{extractErr(make([]byte, 64*4), ""), "no_payload"},
		{extractErr(encrypted, ""), "password_required"},
		{extractErr(encrypted, "nope"), "wrong_password"},
		{fmt.Errorf("wrap: %w", codec.ErrCapacityExceeded), "capacity"},
		{fmt.Errorf("wrap: %w", cipher.ErrMalformedCiphertext), "format"},
		{ErrInvalidEnvelopeFormat, "format"},
		{cipher.ErrUnencodable, "unencodable"},
		{fmt.Errorf("disk on fire"), "internal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Code(tt.err), "%v", tt.err)
	}
}
