package extraction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("Parse", func() {
	var (
		fragments []Fragment
		opts      []Option
		result    Result
	)

	BeforeEach(func() {
		opts = nil
	})

	JustBeforeEach(func() {
		result = Parse(fragments, opts...)
	})

	When("there are no fragments", func() {
		BeforeEach(func() {
			fragments = nil
		})

		It("should leave every optional field absent", func() {
			Expect(result.Date).To(BeNil())
			Expect(result.TotalAmount.Valid).To(BeFalse())
			Expect(result.MerchantName).To(BeNil())
			Expect(result.InvoiceNumber).To(BeNil())
			Expect(result.SellerTaxID).To(BeNil())
			Expect(result.Empty()).To(BeTrue())
		})

		It("should keep empty raw text and the default currency", func() {
			Expect(result.RawText).To(BeEmpty())
			Expect(result.CurrencyCode).To(Equal("TWD"))
			Expect(result.Items).NotTo(BeNil())
			Expect(result.Items).To(BeEmpty())
		})
	})

	When("a Taiwanese e-invoice is recognized out of order", func() {
		BeforeEach(func() {
			fragments = []Fragment{
				{Text: "總計: NT$130", Y: 0.30},
				{Text: "統一編號:12345678", Y: 0.90},
				{Text: "2x Latte @ NT$65.00", Y: 0.50},
				{Text: "7-ELEVEN 統一超商", Y: 0.95},
				{Text: "日期 114/12/17", Y: 0.80},
				{Text: "電子發票 AB-12345678", Y: 0.85},
			}
		})

		It("should keep the ordered text verbatim", func() {
			Expect(result.RawText).To(Equal("7-ELEVEN 統一超商\n統一編號:12345678\n電子發票 AB-12345678\n日期 114/12/17\n2x Latte @ NT$65.00\n總計: NT$130"))
		})

		It("should extract the merchant", func() {
			Expect(result.MerchantName).NotTo(BeNil())
			Expect(*result.MerchantName).To(Equal("7-ELEVEN 統一超商"))
		})

		It("should convert the Minguo date", func() {
			Expect(result.Date).NotTo(BeNil())
			Expect(result.Date.String()).To(Equal("2025-12-17"))
		})

		It("should extract the labelled total", func() {
			Expect(result.TotalAmount.Valid).To(BeTrue())
			Expect(result.TotalAmount.Decimal.Equal(decimal.NewFromInt(130))).To(BeTrue())
		})

		It("should extract the invoice metadata", func() {
			Expect(*result.InvoiceNumber).To(Equal("AB-12345678"))
			Expect(*result.SellerTaxID).To(Equal("12345678"))
		})

		It("should extract the line items", func() {
			Expect(result.Items).To(HaveLen(1))
			Expect(result.Items[0].Name).To(Equal("Latte"))
			Expect(result.Items[0].Quantity).To(Equal(2))
		})

		It("should detect the currency", func() {
			Expect(result.CurrencyCode).To(Equal("TWD"))
		})
	})

	When("the receipt is itemized and names no currency", func() {
		BeforeEach(func() {
			fragments = []Fragment{
				{Text: "Metro Line", Y: 0.9},
				{Text: "Fare 35", Y: 0.8},
				{Text: "Card 4821", Y: 0.7},
			}
			opts = []Option{WithKind(KindItemized), WithCurrency("usd")}
		})

		It("should pick the smallest figure", func() {
			Expect(result.TotalAmount.Valid).To(BeTrue())
			Expect(result.TotalAmount.Decimal.Equal(decimal.NewFromInt(35))).To(BeTrue())
		})

		It("should use the caller's currency", func() {
			Expect(result.CurrencyCode).To(Equal("USD"))
		})
	})
})

var _ = Describe("ParseText", func() {
	It("should extract a labelled total from joined text", func() {
		result := ParseText("總計: $1,234.56")
		Expect(result.TotalAmount.Valid).To(BeTrue())
		Expect(result.TotalAmount.Decimal.Equal(decimal.RequireFromString("1234.56"))).To(BeTrue())
		Expect(result.MerchantName).To(BeNil())
		Expect(result.RawText).To(Equal("總計: $1,234.56"))
	})

	It("should never pick a tax ID line as the merchant", func() {
		result := ParseText("統一編號12345678\n全家便利商店")
		Expect(*result.MerchantName).To(Equal("全家便利商店"))
	})

	It("should short-circuit on blank text", func() {
		result := ParseText("   \n ")
		Expect(result.Empty()).To(BeTrue())
		Expect(result.RawText).To(Equal("   \n "))
	})
})
