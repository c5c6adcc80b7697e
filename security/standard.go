package security

import (
	"bytes"
	"crypto/md5"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"hash"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/secure/precis"

	"github.com/tsawler/pdfcore/core"
)

var passwordPadding = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

// legacyPassword encodes a password for revisions 2-4, which hash
// single-byte text. Characters outside Latin-1 fall back to UTF-8 bytes.
func legacyPassword(password string) []byte {
	if b, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(password)); err == nil {
		return b
	}
	return []byte(password)
}

// aes256Password prepares a password for revisions 5 and 6 with the
// OpaqueString profile and truncates it to 127 bytes.
func aes256Password(password string) []byte {
	b, err := precis.OpaqueString.Bytes([]byte(password))
	if err != nil {
		b = []byte(password)
	}
	if len(b) > 127 {
		b = b[:127]
	}
	return b
}

func padPassword(pw []byte) []byte {
	padded := make([]byte, 32)
	n := copy(padded, pw)
	copy(padded[n:], passwordPadding)
	return padded
}

// fileKey computes the file key from a (padded) user password: MD5 over the
// password, /O, /P as little-endian, the first /ID element and, for R4 with
// unencrypted metadata, four 0xFF bytes. R3 and later rehash the key 50
// times.
func (h *Handler) fileKey(pw []byte) []byte {
	m := md5.New()
	m.Write(padPassword(pw))
	m.Write(h.o[:32])
	var p [4]byte
	binary.LittleEndian.PutUint32(p[:], uint32(h.p))
	m.Write(p[:])
	m.Write(h.id)
	if h.r >= 4 && !h.encryptMetadata {
		m.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	}
	key := m.Sum(nil)
	if h.r >= 3 {
		for i := 0; i < 50; i++ {
			sum := md5.Sum(key[:h.keyLen])
			key = sum[:]
		}
	}
	return key[:h.keyLen]
}

// userEntry computes the /U value that key must reproduce.
func (h *Handler) userEntry(key []byte) []byte {
	if h.r == 2 {
		out, _ := rc4Crypt(key, passwordPadding)
		return out
	}
	m := md5.New()
	m.Write(passwordPadding)
	m.Write(h.id)
	out := m.Sum(nil)
	for i := 0; i < 20; i++ {
		out, _ = rc4Crypt(xorKey(key, byte(i)), out)
	}
	// the remaining 16 bytes are arbitrary
	return append(out, make([]byte, 16)...)
}

// checkUser validates key against /U. Revision 2 compares all 32 bytes,
// later revisions the first 16.
func (h *Handler) checkUser(key []byte) bool {
	want := h.userEntry(key)
	n := 32
	if h.r >= 3 {
		n = 16
	}
	return bytes.Equal(want[:n], h.u[:n])
}

// ownerKey is the RC4 key derived from the owner password, used to
// encrypt the padded user password into /O.
func (h *Handler) ownerKey(ownerPw []byte) []byte {
	sum := md5.Sum(padPassword(ownerPw))
	key := sum[:]
	if h.r >= 3 {
		for i := 0; i < 50; i++ {
			sum = md5.Sum(key)
			key = sum[:]
		}
	}
	n := 5
	if h.r >= 3 {
		n = h.keyLen
	}
	return key[:n]
}

// recoverUserPassword treats pw as the owner password and decrypts /O
// back into the padded user password.
func (h *Handler) recoverUserPassword(ownerPw []byte) []byte {
	key := h.ownerKey(ownerPw)
	out := append([]byte{}, h.o[:32]...)
	if h.r == 2 {
		out, _ = rc4Crypt(key, out)
		return out
	}
	for i := 19; i >= 0; i-- {
		out, _ = rc4Crypt(xorKey(key, byte(i)), out)
	}
	return out
}

// ownerEntry computes /O from the owner and user passwords.
func (h *Handler) ownerEntry(ownerPw, userPw []byte) []byte {
	key := h.ownerKey(ownerPw)
	out, _ := rc4Crypt(key, padPassword(userPw))
	if h.r >= 3 {
		for i := 1; i <= 19; i++ {
			out, _ = rc4Crypt(xorKey(key, byte(i)), out)
		}
	}
	return out
}

func xorKey(key []byte, b byte) []byte {
	out := make([]byte, len(key))
	for i := range key {
		out[i] = key[i] ^ b
	}
	return out
}

// objectKey derives the key for one object: MD5 of the file key, the low
// three bytes of the object number, the low two bytes of the generation
// and, for AES, "sAlT", truncated to min(n+5, 16). AES-256 uses the file
// key directly.
func (h *Handler) objectKey(algo Algorithm, ref core.IndirectRef) []byte {
	if algo == AlgorithmAES256 || h.r >= 5 {
		return h.key
	}
	m := md5.New()
	m.Write(h.key)
	m.Write([]byte{
		byte(ref.Number), byte(ref.Number >> 8), byte(ref.Number >> 16),
		byte(ref.Generation), byte(ref.Generation >> 8),
	})
	if algo == AlgorithmAES128 {
		m.Write([]byte("sAlT"))
	}
	n := len(h.key) + 5
	if n > 16 {
		n = 16
	}
	return m.Sum(nil)[:n]
}

// authenticateAES256 validates password against /U, then /O, and unwraps
// the file key from /UE or /OE. Returns nil when neither validates.
func (h *Handler) authenticateAES256(password string) []byte {
	pw := aes256Password(password)
	if len(h.u) < 48 || len(h.o) < 48 {
		return nil
	}
	u48 := h.u[:48]
	if bytes.Equal(h.hash(pw, h.u[32:40], nil), h.u[:32]) {
		return unwrapKey(h.hash(pw, h.u[40:48], nil), h.ue)
	}
	if bytes.Equal(h.hash(pw, h.o[32:40], u48), h.o[:32]) {
		return unwrapKey(h.hash(pw, h.o[40:48], u48), h.oe)
	}
	return nil
}

func unwrapKey(kek, wrapped []byte) []byte {
	if len(wrapped) < 32 {
		return nil
	}
	key, err := cbcNoPadding(kek, make([]byte, 16), wrapped[:32], false)
	if err != nil {
		return nil
	}
	return key
}

// hash is SHA-256 for revision 5 and the iterated hardened hash for
// revision 6: at least 64 rounds of AES-128-CBC over 64 repetitions of
// password, hash and extra data, with SHA-256/384/512 chosen by the
// encrypted bytes, until the last byte is at most round-32.
func (h *Handler) hash(pw, salt, extra []byte) []byte {
	sum := sha256.New()
	sum.Write(pw)
	sum.Write(salt)
	sum.Write(extra)
	k := sum.Sum(nil)
	if h.r < 6 {
		return k
	}

	var e []byte
	for round := 0; round < 64 || int(e[len(e)-1]) > round-32; round++ {
		unit := make([]byte, 0, len(pw)+len(k)+len(extra))
		unit = append(unit, pw...)
		unit = append(unit, k...)
		unit = append(unit, extra...)
		k1 := bytes.Repeat(unit, 64)

		var err error
		e, err = cbcNoPadding(k[:16], k[16:32], k1, true)
		if err != nil {
			return nil
		}
		mod := 0
		for _, b := range e[:16] {
			mod += int(b)
		}
		var next hash.Hash
		switch mod % 3 {
		case 0:
			next = sha256.New()
		case 1:
			next = sha512.New384()
		default:
			next = sha512.New()
		}
		next.Write(e)
		k = next.Sum(nil)
	}
	return k[:32]
}
