package sqlitevec_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/quarrylabs/quarry/pkg/vector"
	"github.com/quarrylabs/quarry/pkg/vector/sqlitevec"
)

func TestSQLiteVec(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "SQLiteVec Suite")
}

var _ = Describe("SQLiteVecDriver", func() {
	var (
		logger *zap.Logger
		ctx    context.Context
	)

	BeforeEach(func() {
		logger = zap.NewNop()
		ctx = context.Background()
	})

	newDriver := func() *sqlitevec.SQLiteVecDriver {
		driver, err := sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{
			DBPath:     ":memory:",
			Dimensions: 4,
		}, logger)
		Expect(err).NotTo(HaveOccurred())
		return driver
	}

	doc := func(id string, emb []float32) vector.Document {
		return vector.Document{
			ID:        id,
			Text:      "text for " + id,
			Embedding: emb,
			Meta:      vector.Metadata{DocID: "doc.pdf", Page: 1, Paragraph: 1},
		}
	}

	Describe("NewSQLiteVecDriver", func() {
		It("should return an error when DBPath is empty", func() {
			_, err := sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{DBPath: ""}, logger)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("database path is required"))
		})

		It("should error when dimension not specified", func() {
			_, err := sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{
				DBPath: ":memory:",
			}, logger)
			Expect(err).To(HaveOccurred())
		})

		It("should create a driver with an in-memory database", func() {
			driver := newDriver()
			Expect(driver.Close()).To(Succeed())
		})
	})

	Describe("Interface compliance", func() {
		It("should implement vector.Driver interface", func() {
			var _ vector.Driver = (*sqlitevec.SQLiteVecDriver)(nil)
		})
	})

	Describe("Upsert", func() {
		var driver *sqlitevec.SQLiteVecDriver

		BeforeEach(func() {
			driver = newDriver()
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		It("should do nothing when given empty docs", func() {
			Expect(driver.Upsert(ctx, nil)).To(Succeed())
		})

		It("should store a document with metadata and text", func() {
			d := vector.Document{
				ID:        "d1:p1:c1",
				Text:      "The quick brown fox",
				Embedding: []float32{0.1, 0.2, 0.3, 0.4},
				Meta:      vector.Metadata{DocID: "d1", Page: 1, Paragraph: 1},
			}
			Expect(driver.Upsert(ctx, []vector.Document{d})).To(Succeed())

			retrieved, err := driver.Get(ctx, []string{"d1:p1:c1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(retrieved).To(HaveLen(1))
			Expect(retrieved[0].Text).To(Equal("The quick brown fox"))
			Expect(retrieved[0].Meta.DocID).To(Equal("d1"))
			Expect(retrieved[0].Meta.Page).To(Equal(1))
			Expect(retrieved[0].Meta.Paragraph).To(Equal(1))
			Expect(retrieved[0].Embedding).To(Equal([]float32{0.1, 0.2, 0.3, 0.4}))
		})

		It("should overwrite an existing ID", func() {
			Expect(driver.Upsert(ctx, []vector.Document{doc("c1", []float32{1, 0, 0, 0})})).To(Succeed())

			updated := doc("c1", []float32{0, 1, 0, 0})
			updated.Text = "replacement text"
			Expect(driver.Upsert(ctx, []vector.Document{updated})).To(Succeed())

			count, err := driver.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(1))

			retrieved, err := driver.Get(ctx, []string{"c1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(retrieved[0].Text).To(Equal("replacement text"))
			Expect(retrieved[0].Embedding).To(Equal([]float32{0, 1, 0, 0}))
		})

		It("should reject a wrong-dimension vector without touching the index", func() {
			Expect(driver.Upsert(ctx, []vector.Document{doc("c1", []float32{1, 0, 0, 0})})).To(Succeed())

			err := driver.Upsert(ctx, []vector.Document{
				doc("c2", []float32{0, 1, 0, 0}),
				doc("c3", []float32{0, 1, 0}),
			})
			Expect(err).To(MatchError(vector.ErrDimensionMismatch))

			// Neither entry of the failed batch is visible
			count, err := driver.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(1))
		})

		It("should share one in-memory database across concurrent callers", func() {
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func(n int) {
					defer GinkgoRecover()
					defer wg.Done()
					d := doc(fmt.Sprintf("c%d", n), []float32{float32(n), 1, 0, 0})
					Expect(driver.Upsert(ctx, []vector.Document{d})).To(Succeed())
				}(i)
			}
			wg.Wait()

			count, err := driver.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(8))
		})
	})

	Describe("Query", func() {
		var driver *sqlitevec.SQLiteVecDriver

		BeforeEach(func() {
			driver = newDriver()
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		It("should return an empty result set on an empty index", func() {
			results, err := driver.Query(ctx, []float32{1, 0, 0, 0}, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(BeEmpty())
		})

		It("should reject a wrong-dimension query vector", func() {
			_, err := driver.Query(ctx, []float32{1, 0}, 5)
			Expect(err).To(MatchError(vector.ErrDimensionMismatch))
		})

		It("should retrieve an inserted vector with near-zero distance", func() {
			Expect(driver.Upsert(ctx, []vector.Document{
				doc("c1", []float32{0.5, 0.5, 0, 0}),
				doc("c2", []float32{0, 0, 1, 0}),
			})).To(Succeed())

			results, err := driver.Query(ctx, []float32{0.5, 0.5, 0, 0}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].ID).To(Equal("c1"))
			Expect(results[0].Distance).To(BeNumerically("~", 0, 1e-5))
			Expect(results[0].Score).To(BeNumerically("~", 1, 1e-5))
		})

		It("should return min(topK, index size) results nearest-first", func() {
			Expect(driver.Upsert(ctx, []vector.Document{
				doc("c1", []float32{1, 0, 0, 0}),
				doc("c2", []float32{0.9, 0.1, 0, 0}),
			})).To(Succeed())

			results, err := driver.Query(ctx, []float32{1, 0, 0, 0}, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].ID).To(Equal("c1"))
			Expect(results[1].ID).To(Equal("c2"))
			Expect(results[0].Distance).To(BeNumerically("<=", results[1].Distance))
		})

		It("should preserve score = 1 - distance on every result", func() {
			Expect(driver.Upsert(ctx, []vector.Document{
				doc("c1", []float32{1, 0, 0, 0}),
				doc("c2", []float32{0, 1, 0, 0}),
				doc("c3", []float32{0.7, 0.7, 0, 0}),
			})).To(Succeed())

			results, err := driver.Query(ctx, []float32{1, 0, 0, 0}, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			for _, r := range results {
				Expect(r.Score).To(Equal(1 - r.Distance))
			}
		})
	})

	Describe("Delete", func() {
		It("should remove entries and their embeddings", func() {
			driver := newDriver()
			defer driver.Close()

			Expect(driver.Upsert(ctx, []vector.Document{
				doc("c1", []float32{1, 0, 0, 0}),
				doc("c2", []float32{0, 1, 0, 0}),
			})).To(Succeed())

			Expect(driver.Delete(ctx, []string{"c1"})).To(Succeed())

			count, err := driver.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(1))

			results, err := driver.Query(ctx, []float32{1, 0, 0, 0}, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].ID).To(Equal("c2"))
		})
	})
})
