package sqlite_test

import (
	"context"
	"sync"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/quarrylabs/quarry/pkg/chunk"
	"github.com/quarrylabs/quarry/pkg/chunkstore/sqlite"
)

func TestSQLiteChunkStore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "SQLite ChunkStore Suite")
}

var _ = Describe("Driver", func() {
	var (
		driver *sqlite.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		var err error
		driver, err = sqlite.NewDriver(":memory:")
		Expect(err).NotTo(HaveOccurred())
		ctx = context.Background()
	})

	AfterEach(func() {
		Expect(driver.Close()).To(Succeed())
	})

	It("requires a database path", func() {
		_, err := sqlite.NewDriver("")
		Expect(err).To(HaveOccurred())
	})

	It("starts empty", func() {
		count, err := driver.Count(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(BeZero())
	})

	It("appends and returns chunks in insertion order", func() {
		batch := []chunk.Chunk{
			{DocID: "d1", Page: 1, Paragraph: 1, Text: "alpha"},
			{DocID: "d1", Page: 1, Paragraph: 2, Text: "beta"},
		}
		Expect(driver.Append(ctx, batch)).To(Succeed())
		Expect(driver.Append(ctx, []chunk.Chunk{
			{DocID: "d2", Page: 2, Paragraph: 1, Text: "gamma"},
		})).To(Succeed())

		all, err := driver.All(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(HaveLen(3))
		Expect(all[0].Text).To(Equal("alpha"))
		Expect(all[1].Text).To(Equal("beta"))
		Expect(all[2].Text).To(Equal("gamma"))
	})

	It("treats an empty batch as a no-op", func() {
		Expect(driver.Append(ctx, nil)).To(Succeed())

		count, err := driver.Count(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(BeZero())
	})

	It("shares one in-memory database across concurrent callers", func() {
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(n int) {
				defer GinkgoRecover()
				defer wg.Done()
				err := driver.Append(ctx, []chunk.Chunk{
					{DocID: "d1", Page: 1, Paragraph: n + 1, Text: "chunk"},
				})
				Expect(err).NotTo(HaveOccurred())
			}(i)
		}
		wg.Wait()

		count, err := driver.Count(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(8))
	})

	It("stores duplicate provenance as separate rows", func() {
		c := chunk.Chunk{DocID: "d1", Page: 1, Paragraph: 1, Text: "v1"}
		updated := c
		updated.Text = "v2"

		Expect(driver.Append(ctx, []chunk.Chunk{c})).To(Succeed())
		Expect(driver.Append(ctx, []chunk.Chunk{updated})).To(Succeed())

		count, err := driver.Count(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(2))
	})
})
