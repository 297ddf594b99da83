package sched

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Tag", func() {
	It("should survive an encode/decode round trip", func() {
		tag := Tag{Dir: DirWrite, Slot: 13, Line: 4095}

		Expect(DecodeTag(tag.Encode())).To(Equal(tag))
	})

	It("should keep the two directions apart", func() {
		read := Tag{Dir: DirRead, Slot: 1, Line: 2}
		write := Tag{Dir: DirWrite, Slot: 1, Line: 2}

		Expect(read.Encode()).NotTo(Equal(write.Encode()))
	})

	It("should encode the extremes of the field widths", func() {
		tag := Tag{Dir: DirRead, Slot: tagMaxSlot, Line: tagMaxLine}

		Expect(DecodeTag(tag.Encode())).To(Equal(tag))
	})

	It("should panic on a slot outside the field", func() {
		tag := Tag{Dir: DirRead, Slot: tagMaxSlot + 1}

		Expect(func() { tag.Encode() }).To(Panic())
	})

	It("should panic on a line outside the field", func() {
		tag := Tag{Dir: DirRead, Line: tagMaxLine + 1}

		Expect(func() { tag.Encode() }).To(Panic())
	})
})
