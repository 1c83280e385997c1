package vm

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// EOF magic, version and section-kind markers (EIP-3540).
const (
	EOFMagic0  byte = 0xEF
	EOFMagic1  byte = 0x00
	EOFVersion byte = 0x01

	EOFSectionType      byte = 0x01
	EOFSectionCode      byte = 0x02
	EOFSectionContainer byte = 0x03
	EOFSectionData      byte = 0xFF
	EOFHeaderTerminator byte = 0x00
)

const (
	eofTypeSectionEntrySize = 4
	eofNonReturning         = 0x80
	eofMaxStackHeight       = 0x03FF
)

// EOFFunctionStackLimit bounds CALLF nesting depth (§4.6), separate from
// and in addition to the overall CallStackLimit message-call depth.
const EOFFunctionStackLimit = 1024

// Errors from §4.3's numbered rule list, each a distinct tag so a caller
// can match on the exact failure the way the source's EOF validator does.
var (
	ErrEOFTooShort            = errors.New("eof: container too short")
	ErrEOFInvalidMagic        = errors.New("eof: invalid magic bytes")
	ErrEOFInvalidVersion      = errors.New("eof: invalid version")
	ErrEOFMissingTypeSection  = errors.New("eof: missing type section")
	ErrEOFMissingCodeSection  = errors.New("eof: missing code section")
	ErrEOFMissingTerminator   = errors.New("eof: missing header terminator")
	ErrEOFTypeSizeMismatch    = errors.New("eof: type section size does not match code section count")
	ErrEOFZeroTypeSize        = errors.New("eof: type section size is zero")
	ErrEOFZeroCodeSize        = errors.New("eof: code section size is zero")
	ErrEOFInvalidSectionOrder = errors.New("eof: invalid section order")
	ErrEOFDuplicateSection    = errors.New("eof: duplicate section")
	ErrEOFTrailingBytes       = errors.New("eof: trailing bytes after declared sections")
	ErrEOFInvalidFirstCode    = errors.New("eof: first code section must have 0 inputs and 0x80 outputs")
	ErrEOFZeroCodeSections    = errors.New("eof: zero code sections")
	ErrEOFBodyTruncated       = errors.New("eof: body truncated")
	ErrEOFTypeSizeNotDivisible = errors.New("eof: type_size not divisible by 4")
	ErrEOFNoCodeSections      = errors.New("eof: no code sections")
	ErrEOFInvalidTypesSection = errors.New("eof: invalid types section")

	ErrEOFUnknownOpcode                  = errors.New("eof: unknown opcode")
	ErrEOFOpcodeDisabled                 = errors.New("eof: opcode disabled in EOF")
	ErrEOFMissingImmediateBytes          = errors.New("eof: missing immediate bytes")
	ErrEOFStackUnderflow                 = errors.New("eof: stack underflow")
	ErrEOFJumpUnderflow                  = errors.New("eof: jump target underflows code section")
	ErrEOFJumpOverflow                   = errors.New("eof: jump target overflows code section")
	ErrEOFBackwardJumpBiggestNumMismatch = errors.New("eof: backward jump stack height mismatch")
	ErrEOFInstructionNotForwardAccessed  = errors.New("eof: instruction not forward accessed")
	ErrEOFLastInstructionNotTerminating  = errors.New("eof: last instruction not terminating")
	ErrEOFMaxStackMismatch               = errors.New("eof: declared max_stack_height does not match computed height")
	ErrEOFCodeSectionNotAccessed         = errors.New("eof: code section not accessed")

	ErrEOFInvalidJumpTarget  = errors.New("eof: jump target not an instruction boundary")
	ErrEOFInvalidCALLFTarget = errors.New("eof: CALLF target section out of range")
	ErrEOFInvalidJUMPFTarget = errors.New("eof: JUMPF target section out of range")
	ErrEOFStackOverflow      = errors.New("eof: stack height exceeds maximum")
	ErrEOFFallsOffEnd        = errors.New("eof: code falls off the end of the section")
	ErrEOFUnreachableCode    = errors.New("eof: unreachable instruction")
	ErrEOFEmptyCodeSection   = errors.New("eof: empty code section")
)

// TypeSection is one entry of the EOF types table (§3 Eof).
type TypeSection struct {
	Inputs         uint8
	Outputs        uint8
	MaxStackHeight uint16
}

// EOFContainer is a parsed EIP-3540 EOF v1 container (§3 Eof, §6
// "Bytecode").
type EOFContainer struct {
	Version           byte
	TypeSections      []TypeSection
	CodeSections      [][]byte
	ContainerSections [][]byte
	DataSection       []byte
}

// IsEOF reports whether code begins with the EOF magic bytes 0xEF00.
func IsEOF(code []byte) bool {
	return len(code) >= 2 && code[0] == EOFMagic0 && code[1] == EOFMagic1
}

// ParseEOF decodes an EOF v1 container's header and body (§6 wire format).
// It performs only structural/framing checks; semantic validation (§4.3
// rules 2-6) is ValidateEOF's job, and the two are kept separate so a
// decoder can be reused by a disassembler that does not want to run the
// full stack-height analysis.
func ParseEOF(code []byte) (*EOFContainer, error) {
	if len(code) < 3 {
		return nil, ErrEOFTooShort
	}
	if code[0] != EOFMagic0 || code[1] != EOFMagic1 {
		return nil, ErrEOFInvalidMagic
	}
	if code[2] != EOFVersion {
		return nil, ErrEOFInvalidVersion
	}

	pos := 3
	var (
		typeSize       uint16
		codeSizes      []uint16
		containerSizes []uint32
		dataSize       uint16
	)
	var hasType, hasCode, hasContainer, hasData bool

	for {
		if pos >= len(code) {
			return nil, ErrEOFMissingTerminator
		}
		kind := code[pos]
		pos++
		if kind == EOFHeaderTerminator {
			break
		}
		switch kind {
		case EOFSectionType:
			if hasType {
				return nil, ErrEOFDuplicateSection
			}
			if hasCode || hasContainer || hasData {
				return nil, ErrEOFInvalidSectionOrder
			}
			if pos+2 > len(code) {
				return nil, ErrEOFTooShort
			}
			typeSize = binary.BigEndian.Uint16(code[pos : pos+2])
			pos += 2
			if typeSize == 0 {
				return nil, ErrEOFZeroTypeSize
			}
			hasType = true

		case EOFSectionCode:
			if hasCode {
				return nil, ErrEOFDuplicateSection
			}
			if !hasType {
				return nil, ErrEOFMissingTypeSection
			}
			if hasContainer || hasData {
				return nil, ErrEOFInvalidSectionOrder
			}
			if pos+2 > len(code) {
				return nil, ErrEOFTooShort
			}
			numCode := binary.BigEndian.Uint16(code[pos : pos+2])
			pos += 2
			if numCode == 0 {
				return nil, ErrEOFZeroCodeSections
			}
			codeSizes = make([]uint16, numCode)
			for i := range codeSizes {
				if pos+2 > len(code) {
					return nil, ErrEOFTooShort
				}
				codeSizes[i] = binary.BigEndian.Uint16(code[pos : pos+2])
				pos += 2
				if codeSizes[i] == 0 {
					return nil, ErrEOFZeroCodeSize
				}
			}
			hasCode = true

		case EOFSectionContainer:
			if hasContainer {
				return nil, ErrEOFDuplicateSection
			}
			if !hasCode {
				return nil, ErrEOFMissingCodeSection
			}
			if hasData {
				return nil, ErrEOFInvalidSectionOrder
			}
			if pos+2 > len(code) {
				return nil, ErrEOFTooShort
			}
			numContainer := binary.BigEndian.Uint16(code[pos : pos+2])
			pos += 2
			containerSizes = make([]uint32, numContainer)
			for i := range containerSizes {
				if pos+4 > len(code) {
					return nil, ErrEOFTooShort
				}
				containerSizes[i] = binary.BigEndian.Uint32(code[pos : pos+4])
				pos += 4
			}
			hasContainer = true

		case EOFSectionData:
			if hasData {
				return nil, ErrEOFDuplicateSection
			}
			if !hasCode {
				return nil, ErrEOFMissingCodeSection
			}
			if pos+2 > len(code) {
				return nil, ErrEOFTooShort
			}
			dataSize = binary.BigEndian.Uint16(code[pos : pos+2])
			pos += 2
			hasData = true

		default:
			return nil, errors.Wrapf(ErrEOFInvalidSectionOrder, "unknown section kind 0x%02x", kind)
		}
	}

	if !hasType {
		return nil, ErrEOFMissingTypeSection
	}
	if !hasCode {
		return nil, ErrEOFMissingCodeSection
	}
	if typeSize%eofTypeSectionEntrySize != 0 {
		return nil, ErrEOFTypeSizeNotDivisible
	}
	numTypes := int(typeSize / eofTypeSectionEntrySize)
	if numTypes != len(codeSizes) {
		return nil, ErrEOFTypeSizeMismatch
	}

	container := &EOFContainer{Version: EOFVersion}
	container.TypeSections = make([]TypeSection, numTypes)
	for i := 0; i < numTypes; i++ {
		if pos+4 > len(code) {
			return nil, ErrEOFBodyTruncated
		}
		container.TypeSections[i] = TypeSection{
			Inputs:         code[pos],
			Outputs:        code[pos+1],
			MaxStackHeight: binary.BigEndian.Uint16(code[pos+2 : pos+4]),
		}
		pos += 4
	}

	container.CodeSections = make([][]byte, len(codeSizes))
	for i, size := range codeSizes {
		end := pos + int(size)
		if end > len(code) {
			return nil, ErrEOFBodyTruncated
		}
		container.CodeSections[i] = append([]byte(nil), code[pos:end]...)
		pos = end
	}

	if hasContainer {
		container.ContainerSections = make([][]byte, len(containerSizes))
		for i, size := range containerSizes {
			end := pos + int(size)
			if end > len(code) {
				return nil, ErrEOFBodyTruncated
			}
			container.ContainerSections[i] = append([]byte(nil), code[pos:end]...)
			pos = end
		}
	}

	if hasData {
		end := pos + int(dataSize)
		if end > len(code) {
			return nil, ErrEOFBodyTruncated
		}
		container.DataSection = append([]byte(nil), code[pos:end]...)
		pos = end
	}

	if pos != len(code) {
		return nil, ErrEOFTrailingBytes
	}
	return container, nil
}

// SerializeEOF re-encodes a container to its canonical byte form. Parsing a
// valid container and re-serializing it is a bijection (§8 "Round-trip
// laws").
func SerializeEOF(c *EOFContainer) []byte {
	numCode := len(c.CodeSections)
	numContainer := len(c.ContainerSections)

	buf := make([]byte, 0, 64)
	buf = append(buf, EOFMagic0, EOFMagic1, c.Version)

	buf = append(buf, EOFSectionType)
	buf = binary.BigEndian.AppendUint16(buf, uint16(numCode*eofTypeSectionEntrySize))

	buf = append(buf, EOFSectionCode)
	buf = binary.BigEndian.AppendUint16(buf, uint16(numCode))
	for _, cs := range c.CodeSections {
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(cs)))
	}

	if numContainer > 0 {
		buf = append(buf, EOFSectionContainer)
		buf = binary.BigEndian.AppendUint16(buf, uint16(numContainer))
		for _, cs := range c.ContainerSections {
			buf = binary.BigEndian.AppendUint32(buf, uint32(len(cs)))
		}
	}

	buf = append(buf, EOFSectionData)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(c.DataSection)))
	buf = append(buf, EOFHeaderTerminator)

	for _, ts := range c.TypeSections {
		buf = append(buf, ts.Inputs, ts.Outputs)
		buf = binary.BigEndian.AppendUint16(buf, ts.MaxStackHeight)
	}
	for _, cs := range c.CodeSections {
		buf = append(buf, cs...)
	}
	for _, cs := range c.ContainerSections {
		buf = append(buf, cs...)
	}
	buf = append(buf, c.DataSection...)
	return buf
}
