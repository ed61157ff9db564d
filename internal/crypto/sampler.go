package crypto

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand/v2"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20"
)

// IndexPicker returns a uniformly distributed index in [0, n). n is always > 0.
type IndexPicker interface {
	IntN(n int) int
}

// MathPicker draws from the math/rand/v2 global source. Not suitable for secrets.
type MathPicker struct{}

// NewMathPicker returns the default picker.
func NewMathPicker() MathPicker {
	return MathPicker{}
}

// IntN implements IndexPicker.
func (MathPicker) IntN(n int) int {
	//nolint: gosec // no need to be secure
	return mrand.IntN(n)
}

// StreamPicker draws indexes from a ChaCha20 keystream. It is safe for
// concurrent use.
type StreamPicker struct {
	mu  sync.Mutex
	rnd *mrand.Rand
}

// NewSecurePicker returns a StreamPicker keyed from crypto/rand.
func NewSecurePicker() (*StreamPicker, error) {
	var seed [chacha20.KeySize]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, errors.Wrap(err, "read seed")
	}
	return NewSeededPicker(seed)
}

// NewSeededPicker returns a StreamPicker whose output is fully determined by seed.
func NewSeededPicker(seed [chacha20.KeySize]byte) (*StreamPicker, error) {
	nonce := make([]byte, chacha20.NonceSize)
	cipher, err := chacha20.NewUnauthenticatedCipher(seed[:], nonce)
	if err != nil {
		return nil, errors.Wrap(err, "new chacha20 cipher")
	}
	return &StreamPicker{rnd: mrand.New(&keystreamSource{cipher: cipher})}, nil
}

// IntN implements IndexPicker.
func (p *StreamPicker) IntN(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rnd.IntN(n)
}

type keystreamSource struct {
	cipher *chacha20.Cipher
	buf    [8]byte
}

func (s *keystreamSource) Uint64() uint64 {
	clear(s.buf[:])
	s.cipher.XORKeyStream(s.buf[:], s.buf[:])
	return binary.LittleEndian.Uint64(s.buf[:])
}

// Sample builds a string of exactly length characters, each drawn
// independently and uniformly from alphabet. A non-positive length yields "".
// alphabet must not be empty.
func Sample(picker IndexPicker, alphabet string, length int) string {
	if length <= 0 {
		return ""
	}
	if alphabet == "" {
		panic("crypto: Sample called with empty alphabet")
	}

	var sb strings.Builder
	sb.Grow(length)
	for range length {
		sb.WriteByte(alphabet[picker.IntN(len(alphabet))])
	}
	return sb.String()
}
