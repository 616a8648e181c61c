package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/quarrylabs/quarry/pkg/embeddings/ollama"
	"github.com/quarrylabs/quarry/pkg/vector"
)

func TestOllamaEmbedder(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Ollama Embedder Suite")
}

var _ = Describe("Embedder", func() {
	var (
		server *httptest.Server
		ctx    context.Context
	)

	AfterEach(func() {
		if server != nil {
			server.Close()
		}
	})

	BeforeEach(func() {
		ctx = context.Background()
	})

	newServer := func(handler http.HandlerFunc) *ollama.Embedder {
		server = httptest.NewServer(handler)
		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL:    server.URL,
			Model:      "all-minilm",
			Dimensions: 4,
		})
		Expect(err).NotTo(HaveOccurred())
		return e
	}

	It("embeds a single text", func() {
		e := newServer(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/api/embed"))

			var req map[string]any
			Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
			Expect(req["model"]).To(Equal("all-minilm"))
			Expect(req["input"]).To(Equal("hello"))

			json.NewEncoder(w).Encode(map[string]any{
				"embeddings": [][]float32{{0.1, 0.2, 0.3, 0.4}},
			})
		})
		defer e.Close()

		emb, err := e.Embed(ctx, "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(emb).To(Equal([]float32{0.1, 0.2, 0.3, 0.4}))
	})

	It("embeds a batch in input order", func() {
		e := newServer(func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Input []string `json:"input"`
			}
			Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
			Expect(req.Input).To(Equal([]string{"a", "b"}))

			json.NewEncoder(w).Encode(map[string]any{
				"embeddings": [][]float32{{1, 0}, {0, 1}},
			})
		})
		defer e.Close()

		vecs, err := e.EmbedBatch(ctx, []string{"a", "b"})
		Expect(err).NotTo(HaveOccurred())
		Expect(vecs).To(HaveLen(2))
		Expect(vecs[0]).To(Equal([]float32{1, 0}))
		Expect(vecs[1]).To(Equal([]float32{0, 1}))
	})

	It("returns nil for an empty batch without calling the API", func() {
		e := newServer(func(_ http.ResponseWriter, _ *http.Request) {
			Fail("unexpected API call")
		})
		defer e.Close()

		vecs, err := e.EmbedBatch(ctx, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(vecs).To(BeNil())
	})

	It("wraps non-200 responses in ErrEmbedding", func() {
		e := newServer(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		})
		defer e.Close()

		_, err := e.Embed(ctx, "hello")
		Expect(err).To(MatchError(vector.ErrEmbedding))
	})

	It("rejects a count mismatch between inputs and embeddings", func() {
		e := newServer(func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"embeddings": [][]float32{{1, 0}},
			})
		})
		defer e.Close()

		_, err := e.EmbedBatch(ctx, []string{"a", "b"})
		Expect(err).To(MatchError(vector.ErrEmbedding))
	})

	It("reports its configured dimensions", func() {
		e := newServer(func(_ http.ResponseWriter, _ *http.Request) {})
		defer e.Close()

		Expect(e.Dimensions()).To(Equal(uint(4)))
	})
})
