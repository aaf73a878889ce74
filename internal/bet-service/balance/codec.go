// Package balance cifra e decifra o saldo da carteira em repouso (AES-256-GCM).
package balance

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

// KeySize é o tamanho exigido da chave (256 bits)
const KeySize = 32

// Scale é a precisão fixa do saldo (centavos)
const Scale = 2

var (
	// ErrIntegrity indica que o par cifrado/nonce não autenticou.
	// Fatal para a operação: nunca tratar como saldo zero.
	ErrIntegrity = errors.New("balance integrity check failed")

	ErrInvalidKey    = errors.New("balance key must be 32 bytes")
	ErrInvalidAmount = errors.New("balance must be non-negative with at most 2 decimal places")
)

// Sealed é o par persistido na carteira. Cifrado e nonce sempre andam juntos.
type Sealed struct {
	Ciphertext string // base64
	Nonce      string // base64
}

// Codec não guarda estado além da chave
type Codec struct {
	aead cipher.AEAD
	rand io.Reader
}

// NewCodec monta o AEAD a partir da chave provisionada no boot
func NewCodec(key []byte) (*Codec, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}
	return &Codec{aead: aead, rand: rand.Reader}, nil
}

// ParseKey aceita a chave em hex (64 chars) ou base64 (padrão ou raw)
func ParseKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidKey
	}
	if b, err := hex.DecodeString(s); err == nil && len(b) == KeySize {
		return b, nil
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if b, err := enc.DecodeString(s); err == nil && len(b) == KeySize {
			return b, nil
		}
	}
	return nil, ErrInvalidKey
}

// Encrypt gera um nonce novo a cada chamada
func (c *Codec) Encrypt(amount decimal.Decimal) (Sealed, error) {
	if amount.IsNegative() || !amount.Equal(amount.Truncate(Scale)) {
		return Sealed{}, ErrInvalidAmount
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return Sealed{}, fmt.Errorf("nonce: %w", err)
	}

	plain := []byte(amount.StringFixed(Scale))
	ct := c.aead.Seal(nil, nonce, plain, nil)

	return Sealed{
		Ciphertext: base64.StdEncoding.EncodeToString(ct),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
	}, nil
}

// Decrypt devolve ErrIntegrity para qualquer par corrompido ou adulterado
func (c *Codec) Decrypt(s Sealed) (decimal.Decimal, error) {
	ct, err := base64.StdEncoding.DecodeString(s.Ciphertext)
	if err != nil {
		return decimal.Zero, ErrIntegrity
	}
	nonce, err := base64.StdEncoding.DecodeString(s.Nonce)
	if err != nil || len(nonce) != c.aead.NonceSize() {
		return decimal.Zero, ErrIntegrity
	}

	plain, err := c.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return decimal.Zero, ErrIntegrity
	}

	amount, err := decimal.NewFromString(string(plain))
	if err != nil || amount.IsNegative() {
		return decimal.Zero, ErrIntegrity
	}
	return amount, nil
}
