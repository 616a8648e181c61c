package worker_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/quarrylabs/quarry/pkg/chunk"
	"github.com/quarrylabs/quarry/pkg/ingest"
	"github.com/quarrylabs/quarry/pkg/ingest/worker"
	testutils "github.com/quarrylabs/quarry/pkg/utils/test"
)

func TestWorker(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Worker Suite")
}

var _ = Describe("Pool", func() {
	var (
		store    *testutils.MockChunkStore
		vectors  *testutils.MockVectorDriver
		pipeline *ingest.Pipeline
	)

	BeforeEach(func() {
		store = testutils.NewMockChunkStore()
		vectors = testutils.NewMockVectorDriver()

		var err error
		pipeline, err = ingest.NewPipeline(ingest.Config{
			Store:    store,
			Embedder: testutils.NewMockEmbedder(),
			Vectors:  vectors,
			Logger:   zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("should require a pipeline", func() {
		_, err := worker.NewPool(&worker.Config{Logger: zap.NewNop()})
		Expect(err).To(HaveOccurred())
	})

	It("should process queued jobs before Close returns", func() {
		pool, err := worker.NewPool(&worker.Config{
			Pipeline: pipeline,
			Logger:   zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())

		ok := pool.Enqueue(worker.Job{
			DocID: "d1",
			Chunks: []chunk.Chunk{
				{DocID: "d1", Page: 1, Paragraph: 1, Text: "hello world"},
			},
		})
		Expect(ok).To(BeTrue())

		pool.Close()

		Expect(store.Chunks).To(HaveLen(1))
		Expect(vectors.Upserted).To(HaveLen(1))
	})

	It("should drop jobs when the queue is full", func() {
		// A single slow worker with a single-slot queue.
		blocked := make(chan struct{})
		slowStore := testutils.NewMockChunkStore()
		slowPipeline, err := ingest.NewPipeline(ingest.Config{
			Store:    slowStore,
			Embedder: &blockingEmbedder{release: blocked},
			Vectors:  testutils.NewMockVectorDriver(),
			Logger:   zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())

		pool, err := worker.NewPool(&worker.Config{
			Pipeline:   slowPipeline,
			NumWorkers: 1,
			QueueSize:  1,
			Logger:     zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())

		job := worker.Job{
			DocID: "d1",
			Chunks: []chunk.Chunk{
				{DocID: "d1", Page: 1, Paragraph: 1, Text: "text"},
			},
		}

		// First job occupies the worker, second fills the queue slot.
		Expect(pool.Enqueue(job)).To(BeTrue())
		Eventually(func() bool {
			return pool.Enqueue(job)
		}, time.Second, 10*time.Millisecond).Should(BeTrue())

		// Worker busy and queue full: the next job is dropped.
		Eventually(func() bool {
			return !pool.Enqueue(job)
		}, time.Second, 10*time.Millisecond).Should(BeTrue())

		close(blocked)
		pool.Close()
	})
})

// blockingEmbedder blocks Embed calls until release is closed.
type blockingEmbedder struct {
	release chan struct{}
}

func (b *blockingEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	<-b.release
	return []float32{0.1, 0.2, 0.3}, nil
}

func (b *blockingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		emb, err := b.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		out[i] = emb
	}
	return out, nil
}

func (b *blockingEmbedder) Dimensions() uint { return 3 }

func (b *blockingEmbedder) Close() error { return nil }
