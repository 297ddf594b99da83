package staging_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/batchsim/staging"
)

var _ = Describe("InputBuffer", func() {
	var b *staging.InputBuffer

	line := func(fill byte) []byte {
		data := make([]byte, 8)
		for i := range data {
			data[i] = fill
		}

		return data
	}

	fillAll := func() {
		for i := 0; i < b.NumLines(); i++ {
			b.MarkRequested()
			b.Fill(i, line(byte(i)))
		}
	}

	BeforeEach(func() {
		b = staging.NewInputBuffer("InBuf", 4, 8, 4)
	})

	It("should start empty and ready to request", func() {
		Expect(b.Empty()).To(BeTrue())
		Expect(b.Full()).To(BeFalse())
		Expect(b.RequestValid()).To(BeTrue())
		Expect(b.NextRequestLine()).To(Equal(0))
	})

	It("should allow only one request in flight", func() {
		b.MarkRequested()

		Expect(b.RequestValid()).To(BeFalse())

		b.Fill(0, line(1))

		Expect(b.RequestValid()).To(BeTrue())
		Expect(b.NextRequestLine()).To(Equal(1))
	})

	It("should become full after the last fill", func() {
		fillAll()

		Expect(b.Full()).To(BeTrue())
		Expect(b.Empty()).To(BeFalse())
		Expect(b.RequestValid()).To(BeFalse())
	})

	It("should pulse start exactly once per fill cycle", func() {
		fillAll()

		Expect(b.TakeStartPulse()).To(BeTrue())
		Expect(b.TakeStartPulse()).To(BeFalse())
	})

	It("should not pulse start before the buffer is full", func() {
		b.MarkRequested()
		b.Fill(0, line(1))

		Expect(b.TakeStartPulse()).To(BeFalse())
	})

	It("should split lines into read-port words", func() {
		b.MarkRequested()
		b.Fill(0, []byte{0, 1, 2, 3, 4, 5, 6, 7})

		Expect(b.Read(0)).To(Equal([]byte{0, 1, 2, 3}))
		Expect(b.Read(1)).To(Equal([]byte{4, 5, 6, 7}))
	})

	It("should hand off a stable copy of the full batch", func() {
		fillAll()

		lines := b.Lines()
		lines[0][0] = 0xFF

		Expect(b.Read(0)[0]).To(Equal(byte(0)))
		Expect(lines).To(HaveLen(4))
		Expect(lines[3]).To(Equal(line(3)))
	})

	It("should refill after a drain", func() {
		fillAll()
		b.Drain()

		Expect(b.Empty()).To(BeTrue())
		Expect(b.RequestValid()).To(BeTrue())
		Expect(b.NextRequestLine()).To(Equal(0))
		Expect(b.TakeStartPulse()).To(BeFalse())

		fillAll()

		Expect(b.TakeStartPulse()).To(BeTrue())
	})

	It("should panic on a double fill of one line", func() {
		b.MarkRequested()
		b.Fill(0, line(1))

		Expect(func() { b.Fill(0, line(2)) }).To(Panic())
	})

	It("should panic on a fill of the wrong width", func() {
		b.MarkRequested()

		Expect(func() { b.Fill(0, []byte{1, 2}) }).To(Panic())
	})

	It("should panic when the batch is handed off incomplete", func() {
		b.MarkRequested()
		b.Fill(0, line(1))

		Expect(func() { b.Lines() }).To(Panic())
	})

	It("should panic on a drain before full", func() {
		Expect(func() { b.Drain() }).To(Panic())
	})

	It("should panic on a read while empty", func() {
		Expect(func() { b.Read(0) }).To(Panic())
	})

	It("should panic when the widths do not divide", func() {
		Expect(func() {
			staging.NewInputBuffer("Bad", 4, 8, 3)
		}).To(Panic())
	})
})
