package ident

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

// Crockford base32, lowercase. IDs built from it are safe inside channel
// names, which only allow [a-z0-9_-].
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Source supplies the random tail of an ID. Tests inject a seeded one so
// generated IDs are reproducible.
type Source interface {
	Intn(n int) int
}

// Generator mints tournament identifiers. The zero value is not usable; use
// NewGenerator.
type Generator struct {
	src Source
}

// NewGenerator returns a generator. A nil source means crypto/rand.
func NewGenerator(src Source) *Generator {
	return &Generator{src: src}
}

// New mints an identifier with crypto randomness.
func New() string {
	return NewGenerator(nil).New()
}

// New mints a 26-character identifier: a UUIDv7 encoded as base32, so IDs
// sort by creation time and never collide in practice.
func (g *Generator) New() string {
	var u [16]byte

	now := time.Now().UnixMilli()
	u[0] = byte(now >> 40)
	u[1] = byte(now >> 32)
	u[2] = byte(now >> 24)
	u[3] = byte(now >> 16)
	u[4] = byte(now >> 8)
	u[5] = byte(now)

	if g.src != nil {
		for i := 6; i < 16; i++ {
			u[i] = byte(g.src.Intn(256))
		}
	} else if _, err := rand.Read(u[6:]); err != nil {
		panic("ident: " + err.Error())
	}

	u[6] = (u[6] & 0x0f) | 0x70
	u[8] = (u[8] & 0x3f) | 0x80

	return encode(u)
}

// encode packs 128 bits into 26 base32 characters with two leading zero
// bits, so the first character is always 0-7.
func encode(u [16]byte) string {
	var out [26]byte
	var acc uint32
	bits := 2
	n := 0
	for _, b := range u {
		acc = acc<<8 | uint32(b)
		bits += 8
		for bits >= 5 {
			bits -= 5
			out[n] = alphabet[(acc>>uint(bits))&0x1f]
			n++
		}
	}
	return string(out[:])
}

// Validate reports whether id could have come from New.
func Validate(id string) error {
	if len(id) != 26 {
		return fmt.Errorf("identifier must be 26 characters, got %d", len(id))
	}
	if id[0] > '7' {
		return fmt.Errorf("identifier first character must be 0-7, got %c", id[0])
	}
	for i := 0; i < len(id); i++ {
		if strings.IndexByte(alphabet, id[i]) < 0 {
			return fmt.Errorf("invalid character %c at position %d", id[i], i)
		}
	}
	return nil
}
