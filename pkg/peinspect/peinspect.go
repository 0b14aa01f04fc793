// Package peinspect determines the CPU architecture a PE (Portable Executable)
// image was built for by reading a handful of fixed header fields. The image
// is never loaded or executed.
//
// The walk is: DOS magic at offset 0, the e_lfanew pointer at 0x3C, the PE
// signature at that pointer, the 20-byte COFF file header, and finally the
// optional header magic. Any read failure after the file has been opened,
// truncation included, is reported as a failure.KindFormat error so that it
// can never be mistaken for a valid image of unknown architecture.
package peinspect

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"smoketest/pkg/failure"
)

const origin = "peinspect"

const (
	// DOSMagic is "MZ" read as a little-endian uint16.
	DOSMagic uint16 = 0x5A4D
	// PESignature is "PE\0\0" read as a little-endian uint32.
	PESignature uint32 = 0x00004550
	// MagicPE32 marks a 32-bit optional header.
	MagicPE32 uint16 = 0x10B
	// MagicPE32Plus marks a 64-bit optional header.
	MagicPE32Plus uint16 = 0x20B
	// Characteristic32BitMachine is IMAGE_FILE_32BIT_MACHINE.
	Characteristic32BitMachine uint16 = 0x100

	// lfanewSkip is relative to the position right after the DOS magic,
	// landing on the e_lfanew field at absolute offset 0x3C.
	lfanewSkip = 0x3A

	coffWords             = 10
	coffSizeOfOptionalIdx = 8
	coffCharacteristicIdx = 9
)

// Architecture is the CPU target of an image.
type Architecture int

const (
	Unknown Architecture = iota
	X86
	X64
	AnyCPU
)

var architectureNames = map[Architecture]string{
	Unknown: "Unknown",
	X86:     "x86",
	X64:     "x64",
	AnyCPU:  "AnyCpu",
}

func (a Architecture) String() string {
	if name, ok := architectureNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Architecture(%d)", int(a))
}

// ParseArchitecture accepts the names produced by String, case-insensitively,
// plus "any cpu" and "amd64"/"386" aliases.
func ParseArchitecture(s string) (Architecture, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unknown":
		return Unknown, nil
	case "x86", "386", "i386":
		return X86, nil
	case "x64", "amd64", "x86_64":
		return X64, nil
	case "anycpu", "any cpu", "any":
		return AnyCPU, nil
	}
	return Unknown, fmt.Errorf("unknown architecture %q (want one of Unknown, x86, x64, AnyCpu)", s)
}

// Record holds the fields read from one image.
type Record struct {
	MagicValid           bool
	PESignatureValid     bool
	PEHeaderOffset       uint32
	Machine              uint16
	NumberOfSections     uint16
	SizeOfOptionalHeader uint16
	Characteristics      uint16
	OptionalHeaderMagic  uint16
	Architecture         Architecture
}

// Inspect parses the headers available through r. The returned record is never
// nil; on error it holds whatever was read before the failure.
func Inspect(r io.ReadSeeker) (*Record, error) {
	rec := &Record{}

	var magic uint16
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return rec, failure.Format(origin, err, "reading DOS header")
	}
	if magic != DOSMagic {
		return rec, failure.Format(origin, nil, "not an executable image: DOS magic is 0x%04X, want 0x%04X", magic, DOSMagic)
	}
	rec.MagicValid = true

	if _, err := r.Seek(lfanewSkip, io.SeekCurrent); err != nil {
		return rec, failure.Format(origin, err, "seeking to PE header pointer")
	}
	if err := binary.Read(r, binary.LittleEndian, &rec.PEHeaderOffset); err != nil {
		return rec, failure.Format(origin, err, "reading PE header pointer")
	}
	if _, err := r.Seek(int64(rec.PEHeaderOffset), io.SeekStart); err != nil {
		return rec, failure.Format(origin, err, "seeking to PE header at 0x%X", rec.PEHeaderOffset)
	}

	var signature uint32
	if err := binary.Read(r, binary.LittleEndian, &signature); err != nil {
		return rec, failure.Format(origin, err, "reading PE signature at 0x%X", rec.PEHeaderOffset)
	}
	if signature != PESignature {
		return rec, failure.Format(origin, nil, "not a PE image: signature is 0x%08X, want 0x%08X", signature, PESignature)
	}
	rec.PESignatureValid = true

	var coff [coffWords]uint16
	if err := binary.Read(r, binary.LittleEndian, &coff); err != nil {
		return rec, failure.Format(origin, err, "reading COFF file header")
	}
	rec.Machine = coff[0]
	rec.NumberOfSections = coff[1]
	rec.SizeOfOptionalHeader = coff[coffSizeOfOptionalIdx]
	rec.Characteristics = coff[coffCharacteristicIdx]

	if rec.SizeOfOptionalHeader > 0 {
		if err := binary.Read(r, binary.LittleEndian, &rec.OptionalHeaderMagic); err != nil {
			return rec, failure.Format(origin, err, "reading optional header magic")
		}
	}

	rec.Architecture = Classify(rec.SizeOfOptionalHeader, rec.OptionalHeaderMagic, rec.Characteristics)
	return rec, nil
}

// InspectFile opens path and inspects it. A path that cannot be opened is a
// configuration error; everything after that follows Inspect.
func InspectFile(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return &Record{}, failure.Wrap(failure.KindConfiguration, origin, err, "cannot open image")
	}
	defer f.Close()

	return Inspect(f)
}

// Classify maps the optional header magic and COFF characteristics to an
// architecture.
func Classify(sizeOfOptionalHeader, optionalMagic, characteristics uint16) Architecture {
	if sizeOfOptionalHeader == 0 {
		return Unknown
	}
	switch optionalMagic {
	case MagicPE32Plus:
		return X64
	case MagicPE32:
		if characteristics&Characteristic32BitMachine == 0 {
			return AnyCPU
		}
		return X86
	default:
		return Unknown
	}
}
