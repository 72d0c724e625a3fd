package scanning

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"io"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/travel-receipt/internal/extraction"
)

var _ = Describe("NewGemini", func() {
	It("should require an API key", func() {
		_, err := NewGemini("", "")
		Expect(err).To(MatchError(ContainSubstring("api key is required")))
	})

	It("should configure a deterministic model", func() {
		g, err := NewGemini("test-key", "")
		Expect(err).NotTo(HaveOccurred())
		defer g.Close()

		Expect(g.model.Temperature).NotTo(BeNil())
		Expect(*g.model.Temperature).To(BeZero())
	})
})

var _ = Describe("Ollama", func() {
	var (
		server    *ghttp.Server
		ollama    *Ollama
		imageData []byte
		fragments []extraction.Fragment
		err       error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()

		var buf bytes.Buffer
		Expect(png.Encode(&buf, testImage(4, 4))).To(Succeed())
		imageData = buf.Bytes()

		ollama, err = NewOllama(server.URL()+"/", "")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		fragments, err = ollama.Recognize(context.Background(), imageData, "image/png")
	})

	When("the model transcribes the receipt", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
				ghttp.VerifyContentType("application/json"),
				func(w http.ResponseWriter, r *http.Request) {
					body, readErr := io.ReadAll(r.Body)
					Expect(readErr).NotTo(HaveOccurred())

					var req ollamaChatRequest
					Expect(json.Unmarshal(body, &req)).To(Succeed())
					Expect(req.Model).To(Equal("qwen2.5vl"))
					Expect(req.Format).To(Equal("json"))
					Expect(req.Stream).To(BeFalse())
					Expect(req.Messages).To(HaveLen(2))
					Expect(req.Messages[1].Images).To(HaveLen(1))
				},
				ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
					Message: ollamaMessage{
						Role:    "assistant",
						Content: "```json\n{\"lines\":[{\"text\":\"7-ELEVEN\",\"y\":0.95},{\"text\":\"總計: 130\",\"y\":0.2}]}\n```",
					},
					Done: true,
				}),
			))
		})

		It("should return the positioned lines", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(fragments).To(Equal([]extraction.Fragment{
				{Text: "7-ELEVEN", Y: 0.95},
				{Text: "總計: 130", Y: 0.2},
			}))
		})
	})

	When("the server fails", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "model not loaded"))
		})

		It("returns the status and body", func() {
			Expect(err).To(MatchError(ContainSubstring("status 500")))
			Expect(err).To(MatchError(ContainSubstring("model not loaded")))
		})
	})

	When("the model answers with prose", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
				Message: ollamaMessage{Role: "assistant", Content: "I cannot read this image."},
				Done:    true,
			}))
		})

		It("returns a parse error", func() {
			Expect(err).To(MatchError(ContainSubstring("parsing transcription")))
		})
	})
})
