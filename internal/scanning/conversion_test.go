package scanning

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/otiai10/gosseract/v2"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	return img
}

var _ = Describe("conversion", func() {
	Describe("toPNG", func() {
		var (
			input       []byte
			contentType string
			output      []byte
			err         error
		)

		JustBeforeEach(func() {
			output, err = toPNG(input, contentType)
		})

		When("the input is already PNG", func() {
			BeforeEach(func() {
				var buf bytes.Buffer
				Expect(png.Encode(&buf, testImage(4, 4))).To(Succeed())
				input = buf.Bytes()
				contentType = "image/png"
			})

			It("should pass it through", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(output).To(Equal(input))
			})
		})

		When("the input is JPEG", func() {
			BeforeEach(func() {
				var buf bytes.Buffer
				Expect(jpeg.Encode(&buf, testImage(8, 6), nil)).To(Succeed())
				input = buf.Bytes()
				contentType = "image/jpeg; charset=binary"
			})

			It("should convert it to PNG", func() {
				Expect(err).NotTo(HaveOccurred())
				img, err := png.Decode(bytes.NewReader(output))
				Expect(err).NotTo(HaveOccurred())
				Expect(img.Bounds().Dx()).To(Equal(8))
				Expect(img.Bounds().Dy()).To(Equal(6))
			})
		})

		When("the input is not an image", func() {
			BeforeEach(func() {
				input = []byte("not an image")
				contentType = "image/jpeg"
			})

			It("returns an error", func() {
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("isHEICFormat", func() {
		It("should recognize the ftyp brand", func() {
			data := append([]byte{0, 0, 0, 24}, []byte("ftypheic0000")...)
			Expect(isHEICFormat(data)).To(BeTrue())
		})

		It("should reject other data", func() {
			Expect(isHEICFormat([]byte("\x89PNG\r\n\x1a\n0000"))).To(BeFalse())
			Expect(isHEICFormat([]byte("short"))).To(BeFalse())
		})
	})

	Describe("normalizeMIME", func() {
		It("should default to JPEG", func() {
			Expect(normalizeMIME("")).To(Equal("image/jpeg"))
		})

		It("should drop parameters and case", func() {
			Expect(normalizeMIME(" Image/PNG; q=1")).To(Equal("image/png"))
		})
	})

	Describe("prepareForOCR", func() {
		It("should upscale small images", func() {
			out := prepareForOCR(testImage(30, 60))
			Expect(out.Bounds().Dy()).To(Equal(minOCRHeight))
			Expect(out.Bounds().Dx()).To(Equal(600))
		})

		It("should keep large images", func() {
			out := prepareForOCR(testImage(10, minOCRHeight+10))
			Expect(out.Bounds().Dy()).To(Equal(minOCRHeight + 10))
		})
	})

	Describe("boxesToFragments", func() {
		It("should measure position from the bottom edge", func() {
			fragments := boxesToFragments([]gosseract.BoundingBox{
				{Box: image.Rect(0, 0, 100, 20), Word: "Cafe\n"},
				{Box: image.Rect(0, 75, 100, 95), Word: "總計 130"},
				{Box: image.Rect(0, 50, 100, 60), Word: " "},
			}, 100)

			Expect(fragments).To(HaveLen(2))
			Expect(fragments[0].Text).To(Equal("Cafe"))
			Expect(fragments[0].Y).To(BeNumerically("~", 1.0))
			Expect(fragments[1].Y).To(BeNumerically("~", 0.25))
		})
	})

	Describe("NewTesseract", func() {
		It("should default to Traditional Chinese and English", func() {
			Expect(NewTesseract().Languages()).To(Equal([]string{"chi_tra", "eng"}))
		})

		It("should keep the given languages", func() {
			Expect(NewTesseract("jpn", " ").Languages()).To(Equal([]string{"jpn"}))
		})
	})
})
