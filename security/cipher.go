package security

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rc4"

	"github.com/pkg/errors"
)

func rc4Crypt(key, data []byte) ([]byte, error) {
	c, err := rc4.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "rc4")
	}
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out, nil
}

// aesDecrypt decrypts AES-CBC data whose first block is the IV and strips
// PKCS#7 padding. Bad padding is left in place.
func aesDecrypt(key, data []byte) ([]byte, error) {
	if len(data) < aes.BlockSize {
		return nil, errors.Errorf("aes: %d bytes is shorter than the IV", len(data))
	}
	iv, body := data[:aes.BlockSize], data[aes.BlockSize:]
	if len(body) == 0 {
		return []byte{}, nil
	}
	if len(body)%aes.BlockSize != 0 {
		// some writers leave a partial last block; decrypt what is whole
		body = body[:len(body)-len(body)%aes.BlockSize]
		if len(body) == 0 {
			return []byte{}, nil
		}
	}
	out, err := cbcNoPadding(key, iv, body, false)
	if err != nil {
		return nil, err
	}
	return unpad(out), nil
}

// aesEncrypt pads with PKCS#7 and prefixes a random IV.
func aesEncrypt(key, data []byte) ([]byte, error) {
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, errors.Wrap(err, "aes: iv")
	}
	n := aes.BlockSize - len(data)%aes.BlockSize
	padded := append(append([]byte{}, data...), bytes.Repeat([]byte{byte(n)}, n)...)
	out, err := cbcNoPadding(key, iv, padded, true)
	if err != nil {
		return nil, err
	}
	return append(iv, out...), nil
}

func unpad(b []byte) []byte {
	if len(b) == 0 {
		return b
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return b
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return b
		}
	}
	return b[:len(b)-n]
}

// cbcNoPadding runs AES-CBC over block-aligned data.
func cbcNoPadding(key, iv, data []byte, encrypt bool) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "aes")
	}
	if len(data)%aes.BlockSize != 0 {
		return nil, errors.Errorf("aes: %d bytes is not a multiple of the block size", len(data))
	}
	out := make([]byte, len(data))
	if encrypt {
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, data)
	} else {
		cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)
	}
	return out, nil
}

func decryptECB(key, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "aes")
	}
	if len(data) != aes.BlockSize {
		return nil, errors.Errorf("aes: ECB block is %d bytes", len(data))
	}
	out := make([]byte, aes.BlockSize)
	block.Decrypt(out, data)
	return out, nil
}

func encryptECB(key, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "aes")
	}
	out := make([]byte, aes.BlockSize)
	block.Encrypt(out, data)
	return out, nil
}
