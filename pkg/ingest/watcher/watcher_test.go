package watcher_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/quarrylabs/quarry/pkg/ingest"
	"github.com/quarrylabs/quarry/pkg/ingest/watcher"
	"github.com/quarrylabs/quarry/pkg/ingest/worker"
	testutils "github.com/quarrylabs/quarry/pkg/utils/test"
)

func TestWatcher(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Watcher Suite")
}

var _ = Describe("Watcher", func() {
	var (
		dir    string
		store  *testutils.MockChunkStore
		pool   *worker.Pool
		w      *watcher.Watcher
		cancel context.CancelFunc
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		store = testutils.NewMockChunkStore()

		pipeline, err := ingest.NewPipeline(ingest.Config{
			Store:    store,
			Embedder: testutils.NewMockEmbedder(),
			Vectors:  testutils.NewMockVectorDriver(),
			Logger:   zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())

		pool, err = worker.NewPool(&worker.Config{
			Pipeline: pipeline,
			Logger:   zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())

		w, err = watcher.NewWatcher(watcher.Config{
			Dir:    dir,
			Pool:   pool,
			Logger: zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		go w.Run(ctx)
	})

	AfterEach(func() {
		cancel()
		w.Close()
		pool.Close()
	})

	It("should require an existing directory", func() {
		_, err := watcher.NewWatcher(watcher.Config{
			Dir:    filepath.Join(dir, "missing"),
			Pool:   pool,
			Logger: zap.NewNop(),
		})
		Expect(err).To(HaveOccurred())
	})

	It("should ingest a dropped text file", func() {
		path := filepath.Join(dir, "notes.txt")
		Expect(os.WriteFile(path, []byte("fresh document text"), 0o644)).To(Succeed())

		count := func() int {
			n, _ := store.Count(context.Background())
			return n
		}
		Eventually(count, 2*time.Second, 20*time.Millisecond).Should(BeNumerically(">", 0))

		chunks, err := store.All(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(chunks[0].DocID).To(Equal("notes.txt"))
	})

	It("should ignore unsupported files", func() {
		path := filepath.Join(dir, "image.png")
		Expect(os.WriteFile(path, []byte{0x89, 0x50}, 0o644)).To(Succeed())

		Consistently(func() int {
			n, _ := store.Count(context.Background())
			return n
		}, 300*time.Millisecond, 50*time.Millisecond).Should(BeZero())
	})
})
