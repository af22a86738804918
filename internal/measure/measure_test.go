package measure

import (
	"time"

	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = ginkgo.Describe("monthWindow", func() {
	var (
		input time.Time
		from  time.Time
		to    time.Time
	)

	ginkgo.JustBeforeEach(func() {
		from, to = monthWindow(input)
	})

	ginkgo.When("given a time in the middle of a month", func() {
		ginkgo.BeforeEach(func() {
			input = time.Date(2024, 8, 15, 10, 30, 0, 0, time.UTC)
		})

		ginkgo.It("starts at the first instant of the month", func() {
			Expect(from).To(Equal(time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)))
		})

		ginkgo.It("ends at the last instant of the month", func() {
			Expect(to).To(Equal(time.Date(2024, 8, 31, 23, 59, 59, 999999999, time.UTC)))
		})

		ginkgo.It("contains the last instant of the month", func() {
			last := time.Date(2024, 8, 31, 23, 59, 59, 999999999, time.UTC)
			Expect(last.Before(from) || last.After(to)).To(BeFalse())
		})

		ginkgo.It("excludes the first instant of the next month", func() {
			next := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
			Expect(next.After(to)).To(BeTrue())
		})
	})

	ginkgo.When("given a time in December", func() {
		ginkgo.BeforeEach(func() {
			input = time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)
		})

		ginkgo.It("rolls the window end into the same year", func() {
			Expect(to.Year()).To(Equal(2024))
			Expect(to.Month()).To(Equal(time.December))
		})
	})

	ginkgo.When("given a time in February of a leap year", func() {
		ginkgo.BeforeEach(func() {
			input = time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
		})

		ginkgo.It("ends on the 29th", func() {
			Expect(to.Day()).To(Equal(29))
		})
	})
})

var _ = ginkgo.Describe("ParseMeasureType", func() {
	ginkgo.It("accepts WATER and GAS", func() {
		for _, s := range []string{"WATER", "GAS"} {
			parsed, err := ParseMeasureType(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(parsed)).To(Equal(s))
		}
	})

	ginkgo.It("is case-insensitive", func() {
		parsed, err := ParseMeasureType("water")
		Expect(err).NotTo(HaveOccurred())
		Expect(parsed).To(Equal(TypeWater))

		parsed, err = ParseMeasureType("Gas")
		Expect(err).NotTo(HaveOccurred())
		Expect(parsed).To(Equal(TypeGas))
	})

	ginkgo.It("rejects unknown types", func() {
		_, err := ParseMeasureType("ELECTRIC")
		Expect(err).To(HaveOccurred())
	})

	ginkgo.It("rejects the empty string", func() {
		_, err := ParseMeasureType("")
		Expect(err).To(HaveOccurred())
	})
})
