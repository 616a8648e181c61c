package mcp

import (
	"context"
	"encoding/json"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/quarrylabs/quarry/pkg/logger"
	"github.com/quarrylabs/quarry/pkg/retrieval"
	testutils "github.com/quarrylabs/quarry/pkg/utils/test"
	"github.com/quarrylabs/quarry/pkg/vector"
)

var _ = Describe("Search tool", func() {
	var (
		server       *Server
		vectorDriver *testutils.MockVectorDriver
		embedder     *testutils.MockEmbedder
		ctx          context.Context
	)

	BeforeEach(func() {
		embedder = testutils.NewMockEmbedder()
		vectorDriver = testutils.NewMockVectorDriver()
		retriever := retrieval.NewRetriever(embedder, vectorDriver, logger.Nop())

		var err error
		server, err = NewServer(Config{
			Retriever: retriever,
			Logger:    logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		ctx = context.TODO()
	})

	Describe("handleSearch", func() {
		It("returns matches for a query", func() {
			vectorDriver.Results = []vector.QueryResult{
				{
					Document: vector.Document{
						ID:   "guide.pdf:p2:c1",
						Text: "Set the valve to the open position.",
						Meta: vector.Metadata{DocID: "guide.pdf", Page: 2, Paragraph: 1},
					},
					Score: 0.91,
				},
			}

			result, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "valve position"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeFalse())

			Expect(output.Query).To(Equal("valve position"))
			Expect(output.Count).To(Equal(1))
			Expect(output.Results[0].DocID).To(Equal("guide.pdf"))
			Expect(output.Results[0].Score).To(Equal(float32(0.91)))
		})

		It("serializes the output as JSON text content", func() {
			vectorDriver.Results = []vector.QueryResult{
				{
					Document: vector.Document{
						ID:   "a:p1:c1",
						Text: "hello",
						Meta: vector.Metadata{DocID: "a", Page: 1},
					},
					Score: 0.5,
				},
			}

			result, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "hello"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Content).To(HaveLen(1))

			text := result.Content[0].(*mcpsdk.TextContent).Text
			var decoded SearchOutput
			Expect(json.Unmarshal([]byte(text), &decoded)).To(Succeed())
			Expect(decoded.Count).To(Equal(1))
			Expect(decoded.Results[0].Text).To(Equal("hello"))
		})

		It("returns an empty result set when the index is empty", func() {
			result, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "anything"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeFalse())
			Expect(output.Count).To(Equal(0))
			Expect(output.Results).To(BeEmpty())
		})

		It("flags invalid queries as tool errors", func() {
			result, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "   "})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeTrue())
		})

		It("truncates results to top_k", func() {
			vectorDriver.Results = []vector.QueryResult{
				{Document: vector.Document{ID: "a:p1:c1", Meta: vector.Metadata{DocID: "a", Page: 1, Paragraph: 1}}, Score: 0.9},
				{Document: vector.Document{ID: "a:p1:c2", Meta: vector.Metadata{DocID: "a", Page: 1, Paragraph: 2}}, Score: 0.8},
				{Document: vector.Document{ID: "a:p1:c3", Meta: vector.Metadata{DocID: "a", Page: 1, Paragraph: 3}}, Score: 0.7},
			}

			_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "q", TopK: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(output.Count).To(Equal(2))
		})
	})
})
