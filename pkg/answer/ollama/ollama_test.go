package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/quarrylabs/quarry/pkg/answer"
	"github.com/quarrylabs/quarry/pkg/answer/ollama"
	"github.com/quarrylabs/quarry/pkg/retrieval"
)

func TestOllamaGenerator(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Ollama Generator Suite")
}

var _ = Describe("OllamaGenerator", func() {
	var (
		server *httptest.Server
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
	})

	AfterEach(func() {
		if server != nil {
			server.Close()
		}
	})

	matches := []retrieval.Match{
		{Text: "The fox jumped", DocID: "d1", Page: 1, Paragraph: 1, Score: 0.9},
	}

	It("should send a prompt containing excerpts and citations", func() {
		var captured map[string]any
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/api/generate"))
			Expect(json.NewDecoder(r.Body).Decode(&captured)).To(Succeed())
			json.NewEncoder(w).Encode(map[string]any{"response": "The fox jumped [d1, page 1, para 1].", "done": true})
		}))

		g := ollama.NewOllamaGenerator(ollama.Config{URL: server.URL, Model: "llama3.2"}, zap.NewNop())
		got, err := g.Answer(ctx, "what did the fox do?", matches)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(ContainSubstring("fox jumped"))

		prompt := captured["prompt"].(string)
		Expect(prompt).To(ContainSubstring("The fox jumped"))
		Expect(prompt).To(ContainSubstring("[d1, page 1, para 1]"))
		Expect(prompt).To(ContainSubstring("what did the fox do?"))
		Expect(captured["stream"]).To(BeFalse())
	})

	It("should wrap backend failures in ErrGeneration", func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))

		g := ollama.NewOllamaGenerator(ollama.Config{URL: server.URL}, zap.NewNop())
		_, err := g.Answer(ctx, "question", matches)
		Expect(err).To(MatchError(answer.ErrGeneration))
	})
})
