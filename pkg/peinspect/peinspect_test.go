package peinspect_test

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"smoketest/pkg/failure"
	"smoketest/pkg/peinspect"
)

const peOffset = 0x80

type image struct {
	dosMagic        uint16
	signature       uint32
	sections        uint16
	sizeOfOptional  uint16
	characteristics uint16
	optionalMagic   uint16
}

func validImage() image {
	return image{
		dosMagic:        peinspect.DOSMagic,
		signature:       peinspect.PESignature,
		sections:        3,
		sizeOfOptional:  0xE0,
		characteristics: 0x0102,
		optionalMagic:   peinspect.MagicPE32,
	}
}

func (img image) bytes() []byte {
	buf := make([]byte, peOffset+4+20+2)
	binary.LittleEndian.PutUint16(buf[0:], img.dosMagic)
	binary.LittleEndian.PutUint32(buf[0x3C:], peOffset)

	binary.LittleEndian.PutUint32(buf[peOffset:], img.signature)
	coff := buf[peOffset+4:]
	binary.LittleEndian.PutUint16(coff[0:], 0x014C)
	binary.LittleEndian.PutUint16(coff[2:], img.sections)
	binary.LittleEndian.PutUint16(coff[16:], img.sizeOfOptional)
	binary.LittleEndian.PutUint16(coff[18:], img.characteristics)
	binary.LittleEndian.PutUint16(buf[peOffset+24:], img.optionalMagic)
	return buf
}

func inspect(data []byte) (*peinspect.Record, error) {
	return peinspect.Inspect(bytes.NewReader(data))
}

var _ = Describe("Inspect", func() {
	It("classifies PE32+ as x64", func() {
		img := validImage()
		img.optionalMagic = peinspect.MagicPE32Plus

		rec, err := inspect(img.bytes())
		Expect(err).ToNot(HaveOccurred())
		Expect(rec.Architecture).To(Equal(peinspect.X64))
		Expect(rec.MagicValid).To(BeTrue())
		Expect(rec.PESignatureValid).To(BeTrue())
		Expect(rec.PEHeaderOffset).To(Equal(uint32(peOffset)))
		Expect(rec.NumberOfSections).To(Equal(uint16(3)))
		Expect(rec.Machine).To(Equal(uint16(0x014C)))
		Expect(rec.OptionalHeaderMagic).To(Equal(peinspect.MagicPE32Plus))
	})

	It("classifies PE32 with the 32-bit machine flag as x86", func() {
		rec, err := inspect(validImage().bytes())
		Expect(err).ToNot(HaveOccurred())
		Expect(rec.Architecture).To(Equal(peinspect.X86))
	})

	It("classifies PE32 without the 32-bit machine flag as AnyCpu", func() {
		img := validImage()
		img.characteristics = 0x0002

		rec, err := inspect(img.bytes())
		Expect(err).ToNot(HaveOccurred())
		Expect(rec.Architecture).To(Equal(peinspect.AnyCPU))
	})

	It("reports Unknown for an unrecognized optional header magic", func() {
		img := validImage()
		img.optionalMagic = 0x107

		rec, err := inspect(img.bytes())
		Expect(err).ToNot(HaveOccurred())
		Expect(rec.Architecture).To(Equal(peinspect.Unknown))
	})

	It("reports Unknown without reading the magic when there is no optional header", func() {
		img := validImage()
		img.sizeOfOptional = 0
		data := img.bytes()

		rec, err := inspect(data[:len(data)-2])
		Expect(err).ToNot(HaveOccurred())
		Expect(rec.Architecture).To(Equal(peinspect.Unknown))
		Expect(rec.OptionalHeaderMagic).To(BeZero())
	})

	Context("format errors", func() {
		It("rejects a missing DOS magic", func() {
			img := validImage()
			img.dosMagic = 0x457F

			rec, err := inspect(img.bytes())
			Expect(failure.IsFormat(err)).To(BeTrue())
			Expect(rec.MagicValid).To(BeFalse())
			Expect(rec.Architecture).To(Equal(peinspect.Unknown))
		})

		It("rejects a wrong PE signature", func() {
			img := validImage()
			img.signature = 0x0000454E

			rec, err := inspect(img.bytes())
			Expect(failure.IsFormat(err)).To(BeTrue())
			Expect(rec.MagicValid).To(BeTrue())
			Expect(rec.PESignatureValid).To(BeFalse())
		})

		It("rejects an empty input", func() {
			_, err := inspect(nil)
			Expect(failure.IsFormat(err)).To(BeTrue())
		})

		DescribeTable("treats truncation at every stage as a format error",
			func(length int) {
				data := validImage().bytes()
				_, err := inspect(data[:length])
				Expect(failure.IsFormat(err)).To(BeTrue())
				Expect(failure.OriginOf(err)).To(Equal("peinspect"))
			},
			Entry("inside the DOS magic", 1),
			Entry("before the e_lfanew pointer", 0x3C),
			Entry("inside the e_lfanew pointer", 0x3E),
			Entry("before the PE signature", peOffset),
			Entry("inside the COFF header", peOffset+10),
			Entry("before the optional header magic", peOffset+24),
		)
	})
})

var _ = Describe("InspectFile", func() {
	It("reads an image from disk", func() {
		path := filepath.Join(GinkgoT().TempDir(), "app.exe")
		img := validImage()
		img.optionalMagic = peinspect.MagicPE32Plus
		Expect(os.WriteFile(path, img.bytes(), 0o644)).To(Succeed())

		rec, err := peinspect.InspectFile(path)
		Expect(err).ToNot(HaveOccurred())
		Expect(rec.Architecture).To(Equal(peinspect.X64))
	})

	It("reports an unopenable path as a configuration error", func() {
		_, err := peinspect.InspectFile(filepath.Join(GinkgoT().TempDir(), "missing.exe"))
		Expect(failure.IsConfiguration(err)).To(BeTrue())
	})
})

var _ = Describe("Architecture names", func() {
	DescribeTable("round-trip through ParseArchitecture",
		func(arch peinspect.Architecture) {
			parsed, err := peinspect.ParseArchitecture(arch.String())
			Expect(err).ToNot(HaveOccurred())
			Expect(parsed).To(Equal(arch))
		},
		Entry("Unknown", peinspect.Unknown),
		Entry("x86", peinspect.X86),
		Entry("x64", peinspect.X64),
		Entry("AnyCpu", peinspect.AnyCPU),
	)

	It("rejects unknown names", func() {
		_, err := peinspect.ParseArchitecture("arm64")
		Expect(err).To(HaveOccurred())
	})
})
