// Package codec implements the persistent byte layouts of assistant profiles
// and permission records.
//
// Every record starts with an 8-byte kind tag (the first eight bytes of
// sha256("account:<Kind>")), followed by the fields in declaration order.
// Integers are little-endian, strings carry a u32 length prefix, optional
// values carry a one-byte presence flag and booleans are a single 0/1 byte.
// The final byte of each record is the address disambiguator, always zero for
// addresses derived by the identity package.
package codec

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	assistantDatamodel "github.com/frahmantamala/chatmate/internal/core/datamodel/assistant"
	permissionDatamodel "github.com/frahmantamala/chatmate/internal/core/datamodel/permission"
	"github.com/frahmantamala/chatmate/internal/core/identity"
)

const (
	HeaderSize = 8

	// MaxProfileSize is header + owner + username(4+32) + fee + earnings + flag + disambiguator.
	MaxProfileSize = HeaderSize + 32 + 4 + assistantDatamodel.MaxUsernameLength + 8 + 8 + 1 + 1
	// MaxPermissionSize is header + assistant + visitor + type + grantedAt +
	// expiresAt(1+8) + active + paidAmount + disambiguator.
	MaxPermissionSize = HeaderSize + 32 + 32 + 1 + 8 + 9 + 1 + 8 + 1
)

var (
	ErrShortBuffer       = errors.New("codec: record truncated")
	ErrWrongKind         = errors.New("codec: record kind mismatch")
	ErrUsernameTooLong   = errors.New("codec: username exceeds maximum length")
	ErrInvalidBool       = errors.New("codec: invalid boolean byte")
	ErrInvalidOption     = errors.New("codec: invalid option tag")
	ErrInvalidPermission = errors.New("codec: invalid permission type")
)

var (
	profileKind    = kindTag("Assistant")
	permissionKind = kindTag("Permission")
)

func kindTag(name string) [HeaderSize]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var tag [HeaderSize]byte
	copy(tag[:], sum[:HeaderSize])
	return tag
}

func ProfileKind() [HeaderSize]byte    { return profileKind }
func PermissionKind() [HeaderSize]byte { return permissionKind }

func EncodeProfile(a *assistantDatamodel.Assistant) ([]byte, error) {
	if len(a.Username) > assistantDatamodel.MaxUsernameLength {
		return nil, ErrUsernameTooLong
	}
	buf := make([]byte, 0, MaxProfileSize)
	buf = append(buf, profileKind[:]...)
	buf = append(buf, a.Owner[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(a.Username)))
	buf = append(buf, a.Username...)
	buf = binary.LittleEndian.AppendUint64(buf, a.AccessFee)
	buf = binary.LittleEndian.AppendUint64(buf, a.TotalEarnings)
	buf = appendBool(buf, a.IsAccessRestricted)
	buf = append(buf, 0)
	return buf, nil
}

// DecodeProfile restores a profile. The address is not part of the layout and
// is recomputed from the owner.
func DecodeProfile(data []byte) (*assistantDatamodel.Assistant, error) {
	r := reader{buf: data}
	if err := r.kind(profileKind); err != nil {
		return nil, err
	}
	a := &assistantDatamodel.Assistant{}
	var err error
	if a.Owner, err = r.id(); err != nil {
		return nil, err
	}
	if a.Username, err = r.str(assistantDatamodel.MaxUsernameLength); err != nil {
		return nil, err
	}
	if a.AccessFee, err = r.u64(); err != nil {
		return nil, err
	}
	if a.TotalEarnings, err = r.u64(); err != nil {
		return nil, err
	}
	if a.IsAccessRestricted, err = r.boolean(); err != nil {
		return nil, err
	}
	if _, err = r.u8(); err != nil {
		return nil, err
	}
	a.Address = identity.AssistantAddress(a.Owner)
	return a, nil
}

func EncodePermission(p *permissionDatamodel.Permission) ([]byte, error) {
	if !p.PermissionType.Valid() {
		return nil, ErrInvalidPermission
	}
	buf := make([]byte, 0, MaxPermissionSize)
	buf = append(buf, permissionKind[:]...)
	buf = append(buf, p.Assistant[:]...)
	buf = append(buf, p.Visitor[:]...)
	buf = append(buf, byte(p.PermissionType))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(p.GrantedAt))
	if p.ExpiresAt == nil {
		buf = append(buf, 0)
	} else {
		buf = append(buf, 1)
		buf = binary.LittleEndian.AppendUint64(buf, uint64(*p.ExpiresAt))
	}
	buf = appendBool(buf, p.IsActive)
	buf = binary.LittleEndian.AppendUint64(buf, p.PaidAmount)
	buf = append(buf, 0)
	return buf, nil
}

func DecodePermission(data []byte) (*permissionDatamodel.Permission, error) {
	r := reader{buf: data}
	if err := r.kind(permissionKind); err != nil {
		return nil, err
	}
	p := &permissionDatamodel.Permission{}
	var err error
	if p.Assistant, err = r.id(); err != nil {
		return nil, err
	}
	if p.Visitor, err = r.id(); err != nil {
		return nil, err
	}
	t, err := r.u8()
	if err != nil {
		return nil, err
	}
	p.PermissionType = permissionDatamodel.Type(t)
	if !p.PermissionType.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPermission, t)
	}
	grantedAt, err := r.u64()
	if err != nil {
		return nil, err
	}
	p.GrantedAt = int64(grantedAt)
	present, err := r.u8()
	if err != nil {
		return nil, err
	}
	switch present {
	case 0:
	case 1:
		v, err := r.u64()
		if err != nil {
			return nil, err
		}
		expiresAt := int64(v)
		p.ExpiresAt = &expiresAt
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidOption, present)
	}
	if p.IsActive, err = r.boolean(); err != nil {
		return nil, err
	}
	if p.PaidAmount, err = r.u64(); err != nil {
		return nil, err
	}
	if _, err = r.u8(); err != nil {
		return nil, err
	}
	return p, nil
}

func appendBool(buf []byte, v bool) []byte {
	if v {
		return append(buf, 1)
	}
	return append(buf, 0)
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) take(n int) ([]byte, error) {
	if len(r.buf)-r.off < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d", ErrShortBuffer, n, r.off)
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) kind(want [HeaderSize]byte) error {
	b, err := r.take(HeaderSize)
	if err != nil {
		return err
	}
	if [HeaderSize]byte(b) != want {
		return ErrWrongKind
	}
	return nil
}

func (r *reader) id() (identity.ID, error) {
	b, err := r.take(identity.Size)
	if err != nil {
		return identity.Zero, err
	}
	return identity.ID(b), nil
}

func (r *reader) u8() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) boolean() (bool, error) {
	b, err := r.u8()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, fmt.Errorf("%w: %d", ErrInvalidBool, b)
}

func (r *reader) u64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *reader) str(max int) (string, error) {
	b, err := r.take(4)
	if err != nil {
		return "", err
	}
	n := binary.LittleEndian.Uint32(b)
	if int(n) > max {
		return "", ErrUsernameTooLong
	}
	s, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(s), nil
}
