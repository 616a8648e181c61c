package jsonfile_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/quarrylabs/quarry/pkg/chunk"
	"github.com/quarrylabs/quarry/pkg/chunkstore"
	"github.com/quarrylabs/quarry/pkg/chunkstore/jsonfile"
)

func TestJSONFile(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "JSONFile ChunkStore Suite")
}

var _ = Describe("Driver", func() {
	var (
		path   string
		logger *zap.Logger
		ctx    context.Context
	)

	BeforeEach(func() {
		path = filepath.Join(GinkgoT().TempDir(), "chunks.json")
		logger = zap.NewNop()
		ctx = context.Background()
	})

	newDriver := func() *jsonfile.Driver {
		d, err := jsonfile.NewDriver(jsonfile.Config{Path: path}, logger)
		Expect(err).NotTo(HaveOccurred())
		return d
	}

	Describe("NewDriver", func() {
		It("requires a path", func() {
			_, err := jsonfile.NewDriver(jsonfile.Config{}, logger)
			Expect(err).To(HaveOccurred())
		})

		It("starts empty when no file exists", func() {
			d := newDriver()
			defer d.Close()

			count, err := d.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
		})

		It("fails with an I/O error on a corrupt file", func() {
			Expect(os.WriteFile(path, []byte("{not json"), 0o644)).To(Succeed())
			_, err := jsonfile.NewDriver(jsonfile.Config{Path: path}, logger)
			Expect(err).To(MatchError(chunkstore.ErrIO))
		})
	})

	Describe("Append", func() {
		It("ignores empty batches", func() {
			d := newDriver()
			defer d.Close()

			Expect(d.Append(ctx, nil)).To(Succeed())
			_, err := os.Stat(path)
			Expect(err).To(MatchError(os.ErrNotExist))
		})

		It("round-trips an identical ordered sequence across reloads", func() {
			batch := []chunk.Chunk{
				{DocID: "d1", Page: 1, Paragraph: 1, Text: "The quick brown fox"},
				{DocID: "d1", Page: 1, Paragraph: 2, Text: "jumps over the lazy dog"},
				{DocID: "d2", Page: 3, Paragraph: 9, Text: "unrelated"},
			}

			d := newDriver()
			Expect(d.Append(ctx, batch)).To(Succeed())
			Expect(d.Close()).To(Succeed())

			reloaded := newDriver()
			defer reloaded.Close()

			all, err := reloaded.All(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(Equal(batch))
		})

		It("preserves insertion order across multiple appends", func() {
			d := newDriver()
			defer d.Close()

			Expect(d.Append(ctx, []chunk.Chunk{{DocID: "a", Page: 1, Paragraph: 1, Text: "first"}})).To(Succeed())
			Expect(d.Append(ctx, []chunk.Chunk{{DocID: "b", Page: 1, Paragraph: 1, Text: "second"}})).To(Succeed())

			all, err := d.All(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(2))
			Expect(all[0].DocID).To(Equal("a"))
			Expect(all[1].DocID).To(Equal("b"))
		})

		It("keeps duplicate provenance as separate audit entries", func() {
			d := newDriver()
			defer d.Close()

			c := chunk.Chunk{DocID: "d1", Page: 1, Paragraph: 1, Text: "v1"}
			updated := c
			updated.Text = "v2"

			Expect(d.Append(ctx, []chunk.Chunk{c})).To(Succeed())
			Expect(d.Append(ctx, []chunk.Chunk{updated})).To(Succeed())

			all, err := d.All(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(2))
			Expect(all[0].Text).To(Equal("v1"))
			Expect(all[1].Text).To(Equal("v2"))
		})
	})

	Describe("All", func() {
		It("returns a copy callers cannot use to mutate the store", func() {
			d := newDriver()
			defer d.Close()

			Expect(d.Append(ctx, []chunk.Chunk{{DocID: "d1", Page: 1, Paragraph: 1, Text: "original"}})).To(Succeed())

			all, err := d.All(ctx)
			Expect(err).NotTo(HaveOccurred())
			all[0].Text = "mutated"

			again, err := d.All(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(again[0].Text).To(Equal("original"))
		})
	})
})
