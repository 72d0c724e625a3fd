package extraction

import (
	"time"

	"cloud.google.com/go/civil"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ExtractDate", func() {
	var (
		text string
		date *civil.Date
	)

	JustBeforeEach(func() {
		date = ExtractDate(text)
	})

	When("the date is year first", func() {
		BeforeEach(func() {
			text = "交易時間 2025/12/17 14:32"
		})

		It("should parse year, month and day", func() {
			Expect(date).NotTo(BeNil())
			Expect(*date).To(Equal(civil.Date{Year: 2025, Month: time.December, Day: 17}))
		})
	})

	When("a year first date has day and month swapped", func() {
		BeforeEach(func() {
			text = "2025-17-12"
		})

		It("should swap them back", func() {
			Expect(date).NotTo(BeNil())
			Expect(date.String()).To(Equal("2025-12-17"))
		})
	})

	When("the date uses the Minguo calendar", func() {
		BeforeEach(func() {
			text = "114/12/17"
		})

		It("should add the Minguo offset", func() {
			Expect(date).NotTo(BeNil())
			Expect(date.String()).To(Equal("2025-12-17"))
		})
	})

	When("the date is month first", func() {
		BeforeEach(func() {
			text = "12/17/2025"
		})

		It("should read it as month, day, year", func() {
			Expect(date).NotTo(BeNil())
			Expect(date.String()).To(Equal("2025-12-17"))
		})
	})

	When("the month slot of a month first date is out of range", func() {
		BeforeEach(func() {
			text = "17/12/2025"
		})

		It("should not find a date", func() {
			Expect(date).To(BeNil())
		})
	})

	When("the date is written with CJK markers", func() {
		BeforeEach(func() {
			text = "開立日期 2025年3月5日"
		})

		It("should parse it", func() {
			Expect(date).NotTo(BeNil())
			Expect(date.String()).To(Equal("2025-03-05"))
		})
	})

	When("the CJK date carries a Minguo year", func() {
		BeforeEach(func() {
			text = "114年12月17日"
		})

		It("should add the Minguo offset", func() {
			Expect(date).NotTo(BeNil())
			Expect(date.String()).To(Equal("2025-12-17"))
		})
	})

	When("the digits are fullwidth", func() {
		BeforeEach(func() {
			text = "２０２５／１２／１７"
		})

		It("should fold them before matching", func() {
			Expect(date).NotTo(BeNil())
			Expect(date.String()).To(Equal("2025-12-17"))
		})
	})

	When("the first candidate is not a real date", func() {
		BeforeEach(func() {
			text = "2025/02/30\n12/17/2025"
		})

		It("should fall through to the next pattern", func() {
			Expect(date).NotTo(BeNil())
			Expect(date.String()).To(Equal("2025-12-17"))
		})
	})

	When("the only candidate is invalid", func() {
		BeforeEach(func() {
			text = "2025/02/30"
		})

		It("should not find a date", func() {
			Expect(date).To(BeNil())
		})
	})

	When("there is no date", func() {
		BeforeEach(func() {
			text = "7-ELEVEN\n總計: 120"
		})

		It("should not find a date", func() {
			Expect(date).To(BeNil())
		})
	})
})

var _ = Describe("calendar helpers", func() {
	Describe("MinguoYear", func() {
		It("should offset years below 200", func() {
			Expect(MinguoYear(114)).To(Equal(2025))
			Expect(MinguoYear(199)).To(Equal(2110))
		})

		It("should leave other years alone", func() {
			Expect(MinguoYear(200)).To(Equal(200))
			Expect(MinguoYear(2025)).To(Equal(2025))
		})
	})

	Describe("SwapMonthDay", func() {
		It("should swap when the month is above 12", func() {
			m, d := SwapMonthDay(17, 12)
			Expect(m).To(Equal(12))
			Expect(d).To(Equal(17))
		})

		It("should keep a valid month", func() {
			m, d := SwapMonthDay(5, 20)
			Expect(m).To(Equal(5))
			Expect(d).To(Equal(20))
		})
	})

	Describe("ValidDate", func() {
		It("should accept a leap day in a leap year", func() {
			_, ok := ValidDate(2024, 2, 29)
			Expect(ok).To(BeTrue())
		})

		It("should reject a leap day in a common year", func() {
			_, ok := ValidDate(2025, 2, 29)
			Expect(ok).To(BeFalse())
		})

		It("should reject a month above 12", func() {
			_, ok := ValidDate(2025, 13, 1)
			Expect(ok).To(BeFalse())
		})
	})
})
