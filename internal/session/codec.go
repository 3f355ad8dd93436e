package session

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"league-console/internal/model"
)

const codecInfo = "league-console session v1"

var ErrCorruptSession = errors.New("corrupt session payload")

// Codec turns sessions into bytes for external stores. With a secret the
// payload is sealed with XChaCha20-Poly1305; without one it is plain JSON.
type Codec struct {
	aead cipher.AEAD
}

func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return &Codec{}, nil
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(codecInfo)), key); err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create session cipher: %w", err)
	}

	return &Codec{aead: aead}, nil
}

func (c *Codec) Sealed() bool {
	return c.aead != nil
}

func (c *Codec) Encode(session model.Session) ([]byte, error) {
	raw, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}

	if c.aead == nil {
		return raw, nil
	}

	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(raw)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("session nonce: %w", err)
	}

	return c.aead.Seal(nonce, nonce, raw, nil), nil
}

func (c *Codec) Decode(data []byte) (model.Session, error) {
	raw := data
	if c.aead != nil {
		if len(data) < c.aead.NonceSize() {
			return model.Session{}, ErrCorruptSession
		}
		nonce, sealed := data[:c.aead.NonceSize()], data[c.aead.NonceSize():]
		opened, err := c.aead.Open(nil, nonce, sealed, nil)
		if err != nil {
			return model.Session{}, fmt.Errorf("%w: %w", ErrCorruptSession, err)
		}
		raw = opened
	}

	var session model.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return model.Session{}, fmt.Errorf("%w: %w", ErrCorruptSession, err)
	}

	return session, nil
}
