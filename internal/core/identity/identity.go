// Package identity holds the 32-byte account identities used across the
// marketplace and the deterministic derivation of record addresses.
package identity

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
	"golang.org/x/crypto/blake2b"
)

const Size = 32

var ErrInvalidID = errors.New("invalid identity")

// ID is a public key or a derived record address.
type ID [Size]byte

var Zero ID

func FromBytes(b []byte) (ID, error) {
	var id ID
	if len(b) != Size {
		return id, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidID, Size, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// Parse decodes the base58 text form.
func Parse(s string) (ID, error) {
	if s == "" {
		return Zero, fmt.Errorf("%w: empty string", ErrInvalidID)
	}
	decoded := base58.Decode(s)
	if len(decoded) == 0 {
		return Zero, fmt.Errorf("%w: %q is not base58", ErrInvalidID, s)
	}
	return FromBytes(decoded)
}

func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (id ID) String() string {
	return base58.Encode(id[:])
}

func (id ID) Bytes() []byte {
	return id[:]
}

func (id ID) IsZero() bool {
	return id == Zero
}

func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Value stores the identity in its base58 form.
func (id ID) Value() (driver.Value, error) {
	return id.String(), nil
}

func (id *ID) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		return id.UnmarshalText([]byte(v))
	case []byte:
		return id.UnmarshalText(v)
	case nil:
		*id = Zero
		return nil
	default:
		return fmt.Errorf("%w: cannot scan %T", ErrInvalidID, src)
	}
}

// Derive computes a record address from a domain tag and the identities that
// key the record. The same inputs always produce the same address and
// different tags never collide in practice.
func Derive(tag string, parts ...ID) ID {
	buf := make([]byte, 0, 1+len(tag)+len(parts)*Size)
	buf = append(buf, byte(len(tag)))
	buf = append(buf, tag...)
	for _, p := range parts {
		buf = append(buf, p[:]...)
	}
	return ID(blake2b.Sum256(buf))
}

const (
	TagAssistant  = "assistant"
	TagPermission = "permission"
	TagAccount    = "account"
)

// AssistantAddress is where the profile owned by owner lives.
func AssistantAddress(owner ID) ID {
	return Derive(TagAssistant, owner)
}

func PermissionAddress(assistant, visitor ID) ID {
	return Derive(TagPermission, assistant, visitor)
}

func AccountAddress(holder ID) ID {
	return Derive(TagAccount, holder)
}
