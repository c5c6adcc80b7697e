package security

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/pdfcore/core"
)

var testID = []byte("0123456789abcdef")

func trailerWithID() core.Dict {
	return core.Dict{"ID": core.Array{core.String(testID), core.String(testID)}}
}

func buildHandler(t *testing.T, cfg Config) (core.Dict, *Handler) {
	t.Helper()
	cfg.ID = testID
	dict, h, err := NewEncryption(cfg)
	require.NoError(t, err)
	return dict, h
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		algo Algorithm
	}{
		{"R2 RC4 40", Config{Revision: 2, UserPassword: "user", OwnerPassword: "owner", Permissions: -4, EncryptMetadata: true}, AlgorithmRC4},
		{"R3 RC4 128", Config{Revision: 3, KeyBits: 128, UserPassword: "user", OwnerPassword: "owner", Permissions: -3904, EncryptMetadata: true}, AlgorithmRC4},
		{"R3 RC4 56", Config{Revision: 3, KeyBits: 56, UserPassword: "user", OwnerPassword: "owner", Permissions: -4, EncryptMetadata: true}, AlgorithmRC4},
		{"R4 RC4 metadata clear", Config{Revision: 4, UserPassword: "user", OwnerPassword: "owner", Permissions: -4}, AlgorithmRC4},
		{"R4 AES", Config{Revision: 4, AES: true, UserPassword: "user", OwnerPassword: "owner", Permissions: -4, EncryptMetadata: true}, AlgorithmAES128},
		{"R6 AES-256", Config{Revision: 6, UserPassword: "user", OwnerPassword: "owner", Permissions: -3904, EncryptMetadata: true}, AlgorithmAES256},
		{"R6 non-ASCII", Config{Revision: 6, UserPassword: "pässwörd", OwnerPassword: "owner", Permissions: -4, EncryptMetadata: true}, AlgorithmAES256},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dict, built := buildHandler(t, tt.cfg)

			for _, pw := range []string{tt.cfg.UserPassword, tt.cfg.OwnerPassword} {
				h, err := NewHandler(dict, trailerWithID())
				require.NoError(t, err)
				assert.Equal(t, tt.algo, h.StreamAlgorithm())
				assert.Equal(t, tt.algo, h.StringAlgorithm())
				require.NoError(t, h.Authenticate(pw), "password %q", pw)
				assert.Equal(t, built.Key(), h.Key())
			}

			h, err := NewHandler(dict, trailerWithID())
			require.NoError(t, err)
			err = h.Authenticate("wrong")
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrEncryptedPDF)
			assert.Nil(t, h.Key())
		})
	}
}

func TestEmptyUserPassword(t *testing.T) {
	for _, rev := range []int{2, 3, 4, 6} {
		dict, _ := buildHandler(t, Config{Revision: rev, OwnerPassword: "secret", Permissions: -4, EncryptMetadata: true})
		h, err := NewHandler(dict, trailerWithID())
		require.NoError(t, err)
		assert.NoError(t, h.Authenticate(""), "revision %d", rev)
	}
}

func TestStringAndStreamRoundTrip(t *testing.T) {
	ref := core.IndirectRef{Number: 7, Generation: 0}
	plain := []byte("BT /F1 12 Tf (Hello, world) Tj ET")

	for _, cfg := range []Config{
		{Revision: 2, UserPassword: "u"},
		{Revision: 3, KeyBits: 40, UserPassword: "u"},
		{Revision: 4, AES: true, UserPassword: "u"},
		{Revision: 6, UserPassword: "u"},
	} {
		cfg.EncryptMetadata = true
		dict, built := buildHandler(t, cfg)

		enc, err := built.EncryptStream(ref, plain)
		require.NoError(t, err)
		assert.False(t, bytes.Equal(enc, plain))

		h, err := NewHandler(dict, trailerWithID())
		require.NoError(t, err)
		require.NoError(t, h.Authenticate("u"))

		got, err := h.DecryptStream(ref, core.Dict{}, enc)
		require.NoError(t, err)
		assert.Equal(t, plain, got, "revision %d", cfg.Revision)

		encStr, err := built.EncryptString(ref, []byte("title"))
		require.NoError(t, err)
		gotStr, err := h.DecryptString(ref, encStr)
		require.NoError(t, err)
		assert.Equal(t, "title", string(gotStr))

		// a different object number derives a different key
		if cfg.Revision < 5 {
			other, err := h.DecryptStream(core.IndirectRef{Number: 8}, core.Dict{}, enc)
			if err == nil {
				assert.NotEqual(t, plain, other)
			}
		}
	}
}

func TestMetadataExemption(t *testing.T) {
	dict, _ := buildHandler(t, Config{Revision: 4, AES: true, UserPassword: "u"})
	h, err := NewHandler(dict, trailerWithID())
	require.NoError(t, err)
	require.NoError(t, h.Authenticate("u"))
	assert.False(t, h.EncryptMetadata())

	xmp := []byte("<x:xmpmeta/>")
	got, err := h.DecryptStream(core.IndirectRef{Number: 3}, core.Dict{"Type": core.Name("Metadata")}, xmp)
	require.NoError(t, err)
	assert.Equal(t, xmp, got)
}

func TestIdentityCryptFilter(t *testing.T) {
	dict, _ := buildHandler(t, Config{Revision: 4, AES: true, UserPassword: "u", EncryptMetadata: true})
	h, err := NewHandler(dict, trailerWithID())
	require.NoError(t, err)
	require.NoError(t, h.Authenticate("u"))

	raw := []byte("not encrypted")
	got, err := h.DecryptStream(core.IndirectRef{Number: 4}, core.Dict{"Filter": core.Name("Crypt")}, raw)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	_, err = h.DecryptStream(core.IndirectRef{Number: 4}, core.Dict{
		"Filter":      core.Array{core.Name("Crypt")},
		"DecodeParms": core.Array{core.Dict{"Name": core.Name("Missing")}},
	}, raw)
	assert.ErrorIs(t, err, core.ErrEncryptedPDF)
}

func TestPermissions(t *testing.T) {
	p := int32(-3904) // print, modify, copy, annotate... cleared
	dict, _ := buildHandler(t, Config{Revision: 6, UserPassword: "u", Permissions: p, EncryptMetadata: true})
	h, err := NewHandler(dict, trailerWithID())
	require.NoError(t, err)
	require.NoError(t, h.Authenticate("u"))
	perms := h.Permissions()
	assert.Equal(t, p, perms.Raw)

	all := NewPermissions(-4)
	assert.True(t, all.Print)
	assert.True(t, all.Copy)
	assert.True(t, all.PrintHighQuality)

	none := NewPermissions(-3904 &^ (1<<2 | 1<<4))
	assert.False(t, none.Print)
	assert.False(t, none.Copy)
}

func unhex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// TestKnownAnswer checks fixed /O and /U values, computed outside this
// package, against the file key and an encrypted string of object 7.
func TestKnownAnswer(t *testing.T) {
	id := "5b1d6a2c93a0f3d4e8b7c6a5f4e3d2c1"
	tests := []struct {
		name       string
		v, r, bits int
		p          int
		o, u       string
		key        string
		ciphertext string
	}{
		{
			name: "rc4 40-bit R2", v: 1, r: 2, bits: 40, p: -44,
			o:          "94e8094419662a774442fb072e3d9f19e9d130ec09a4d0061e78fe920f7ab62f",
			u:          "00348b8391cedd6b1c4a1528d7e268017a841eb656b2c90b04cfa8435aa8f80c",
			key:        "3c60676e80",
			ciphertext: "944f357ef39e2b5973d34901",
		},
		{
			name: "rc4 128-bit R3", v: 2, r: 3, bits: 128, p: -3904,
			o:          "0ba3835f88f90388e74e54584125ce142be0de24c6b0d37746e075b891756671",
			u:          "52ff0315c04ebef536b6683550b8ee3200000000000000000000000000000000",
			key:        "8b5157ca12b48fc126ea3cf3f192bbdd",
			ciphertext: "b47f8000ced1024c022f2b15",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dict := core.Dict{
				"Filter": core.Name("Standard"),
				"V":      core.Int(tt.v),
				"R":      core.Int(tt.r),
				"Length": core.Int(tt.bits),
				"P":      core.Int(tt.p),
				"O":      core.String(unhex(t, tt.o)),
				"U":      core.String(unhex(t, tt.u)),
			}
			trailer := core.Dict{"ID": core.Array{core.String(unhex(t, id)), core.String(unhex(t, id))}}
			for _, pw := range []string{"user", "owner"} {
				h, err := NewHandler(dict, trailer)
				require.NoError(t, err)
				require.NoError(t, h.Authenticate(pw), "password %q", pw)
				assert.Equal(t, unhex(t, tt.key), h.Key(), "password %q", pw)

				plain, err := h.DecryptString(core.IndirectRef{Number: 7}, unhex(t, tt.ciphertext))
				require.NoError(t, err)
				assert.Equal(t, "known answer", string(plain))
			}

			h, err := NewHandler(dict, trailer)
			require.NoError(t, err)
			assert.Error(t, h.Authenticate("wrong"))
		})
	}
}

func TestNewHandlerRejects(t *testing.T) {
	valid := bytes.Repeat([]byte{1}, 32)
	tests := []struct {
		name string
		dict core.Dict
	}{
		{"public key handler", core.Dict{"Filter": core.Name("Adobe.PubSec"), "V": core.Int(4), "R": core.Int(4)}},
		{"unknown version", core.Dict{"Filter": core.Name("Standard"), "V": core.Int(9), "R": core.Int(4), "O": core.String(valid), "U": core.String(valid)}},
		{"unknown revision", core.Dict{"Filter": core.Name("Standard"), "V": core.Int(2), "R": core.Int(7), "O": core.String(valid), "U": core.String(valid)}},
		{"short O", core.Dict{"Filter": core.Name("Standard"), "V": core.Int(1), "R": core.Int(2), "O": core.String("x"), "U": core.String(valid)}},
		{"unknown crypt method", core.Dict{
			"Filter": core.Name("Standard"), "V": core.Int(4), "R": core.Int(4),
			"O": core.String(valid), "U": core.String(valid),
			"CF":   core.Dict{"X": core.Dict{"CFM": core.Name("Rot13")}},
			"StmF": core.Name("X"),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHandler(tt.dict, trailerWithID())
			require.Error(t, err)
			assert.Equal(t, core.KindEncryptedPDF, core.KindOf(err))
		})
	}
}

func TestObjectKeyLength(t *testing.T) {
	h := &Handler{r: 2, key: []byte{1, 2, 3, 4, 5}}
	assert.Len(t, h.objectKey(AlgorithmRC4, core.IndirectRef{Number: 1}), 10)

	h = &Handler{r: 4, key: bytes.Repeat([]byte{7}, 16)}
	assert.Len(t, h.objectKey(AlgorithmAES128, core.IndirectRef{Number: 1}), 16)
	assert.NotEqual(t,
		h.objectKey(AlgorithmAES128, core.IndirectRef{Number: 1}),
		h.objectKey(AlgorithmRC4, core.IndirectRef{Number: 1}))
}

func TestAESPadding(t *testing.T) {
	key := bytes.Repeat([]byte{9}, 16)
	for _, n := range []int{0, 1, 15, 16, 17, 100} {
		plain := bytes.Repeat([]byte{'a'}, n)
		enc, err := aesEncrypt(key, plain)
		require.NoError(t, err)
		assert.Zero(t, len(enc)%16)
		dec, err := aesDecrypt(key, enc)
		require.NoError(t, err)
		assert.Equal(t, plain, dec)
	}

	_, err := aesDecrypt(key, []byte("short"))
	assert.Error(t, err)
}
