package marker

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"

	"github.com/pkg/errors"
)

// AES-128-ECB is what the admin `get encrypt_password` command and the
// magic_start `password=AES:...` form both use (spec §4.10, §4.11). No
// library in the example pack implements raw ECB mode (it is intentionally
// absent from golang.org/x/crypto as an unsafe primitive), so this uses the
// standard library's block cipher directly, padding/unpadding by hand.

func ecbEncrypt(key, plain []byte) []byte {
	block, err := aes.NewCipher(key)
	if err != nil {
		panic(err) // key is fixed-size and validated by the caller
	}
	padded := pkcs7Pad(plain, block.BlockSize())
	out := make([]byte, len(padded))
	bs := block.BlockSize()
	for i := 0; i < len(padded); i += bs {
		block.Encrypt(out[i:i+bs], padded[i:i+bs])
	}
	return out
}

func ecbDecrypt(key, cipherBytes []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	bs := block.BlockSize()
	if len(cipherBytes) == 0 || len(cipherBytes)%bs != 0 {
		return nil, errors.New("ciphertext is not a multiple of the block size")
	}
	out := make([]byte, len(cipherBytes))
	for i := 0; i < len(cipherBytes); i += bs {
		block.Decrypt(out[i:i+bs], cipherBytes[i:i+bs])
	}
	return pkcs7Unpad(out)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty data")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		return nil, errors.New("invalid padding")
	}
	return data[:len(data)-padLen], nil
}

// key128 derives a fixed 16-byte key from an arbitrary-length configured
// secret, the way the original tool's AES(key) sysvar is used directly as
// key material truncated/padded to the cipher's block size.
func key128(secret string) []byte {
	key := make([]byte, 16)
	copy(key, secret)
	return key
}

// EncryptPassword implements `inception get encrypt_password '<plain>'`
// (spec §4.9, §4.10): base64 of AES-128-ECB of the plaintext, prefixed
// "AES:".
func EncryptPassword(plain, key string) string {
	enc := ecbEncrypt(key128(key), []byte(plain))
	return "AES:" + base64.StdEncoding.EncodeToString(enc)
}

// DecryptPassword reverses EncryptPassword's base64+AES-128-ECB encoding.
// The "AES:" prefix is expected to already be stripped by the caller.
func DecryptPassword(cipherBase64, key string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(cipherBase64)
	if err != nil {
		return "", errors.Wrap(err, "decode base64")
	}
	plain, err := ecbDecrypt(key128(key), raw)
	if err != nil {
		return "", errors.Wrap(err, "aes-ecb decrypt")
	}
	return string(plain), nil
}
