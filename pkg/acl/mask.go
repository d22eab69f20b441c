package acl

import (
	"fmt"
	"strings"
)

// Standard permission bits.
const (
	MaskView     int32 = 1 << 0
	MaskCreate   int32 = 1 << 1
	MaskEdit     int32 = 1 << 2
	MaskDelete   int32 = 1 << 3
	MaskUndelete int32 = 1 << 4
	MaskOperator int32 = 1 << 5
	MaskMaster   int32 = 1 << 6
	MaskOwner    int32 = 1 << 7
	MaskIDDQD    int32 = 1<<30 - 1
)

const (
	codeView     = 'V'
	codeCreate   = 'C'
	codeEdit     = 'E'
	codeDelete   = 'D'
	codeUndelete = 'U'
	codeOperator = 'O'
	codeMaster   = 'M'
	codeOwner    = 'N'

	offStyle = '.'
	onStyle  = '*'
)

var maskNames = map[string]int32{
	"VIEW":     MaskView,
	"CREATE":   MaskCreate,
	"EDIT":     MaskEdit,
	"DELETE":   MaskDelete,
	"UNDELETE": MaskUndelete,
	"OPERATOR": MaskOperator,
	"MASTER":   MaskMaster,
	"OWNER":    MaskOwner,
	"IDDQD":    MaskIDDQD,
}

var maskCodes = map[int32]byte{
	MaskView:     codeView,
	MaskCreate:   codeCreate,
	MaskEdit:     codeEdit,
	MaskDelete:   codeDelete,
	MaskUndelete: codeUndelete,
	MaskOperator: codeOperator,
	MaskMaster:   codeMaster,
	MaskOwner:    codeOwner,
}

// ParseMask resolves a permission name such as "EDIT" (case-insensitive).
func ParseMask(name string) (int32, error) {
	m, ok := maskNames[strings.ToUpper(name)]
	if !ok {
		return 0, fmt.Errorf("unknown permission %q", name)
	}
	return m, nil
}

// MaskBuilder composes permission masks.
type MaskBuilder struct {
	mask int32
}

func NewMaskBuilder(mask int32) *MaskBuilder {
	return &MaskBuilder{mask: mask}
}

func (b *MaskBuilder) Add(mask int32) *MaskBuilder {
	b.mask |= mask
	return b
}

func (b *MaskBuilder) Remove(mask int32) *MaskBuilder {
	b.mask &^= mask
	return b
}

func (b *MaskBuilder) Get() int32 { return b.mask }

func (b *MaskBuilder) Reset() *MaskBuilder {
	b.mask = 0
	return b
}

// Pattern renders the mask as 32 characters, most significant bit first,
// using the permission code for known bits and '*' for others.
func (b *MaskBuilder) Pattern() string {
	var sb strings.Builder
	for i := 31; i >= 0; i-- {
		bit := int32(1) << uint(i)
		if b.mask&bit == 0 {
			sb.WriteByte(offStyle)
			continue
		}
		if code, ok := maskCodes[bit]; ok {
			sb.WriteByte(code)
		} else {
			sb.WriteByte(onStyle)
		}
	}
	return sb.String()
}
