package swagger_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/frahmantamala/teamspace/internal/transport/swagger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestSwagger(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Swagger Suite")
}

const minimalDocument = `openapi: 3.0.3
info:
  title: teamspace
  version: "1.0"
paths:
  /api/v1/ping:
    get:
      responses:
        "200":
          description: pong
`

func writeDocument(content string) string {
	path := filepath.Join(GinkgoT().TempDir(), "openapi.yml")
	Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
	return path
}

var _ = Describe("LoadDocument", func() {
	It("returns the raw document when it validates", func() {
		raw, err := swagger.LoadDocument(context.Background(), writeDocument(minimalDocument))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(raw)).To(Equal(minimalDocument))
	})

	It("rejects a document that fails validation", func() {
		_, err := swagger.LoadDocument(context.Background(), writeDocument("openapi: 3.0.3\npaths: {}\n"))
		Expect(err).To(MatchError(ContainSubstring("invalid openapi document")))
	})

	It("reports a missing file", func() {
		_, err := swagger.LoadDocument(context.Background(), filepath.Join(GinkgoT().TempDir(), "absent.yml"))
		Expect(err).To(MatchError(ContainSubstring("read openapi document")))
	})

	It("serves the loaded document as yaml", func() {
		rec := httptest.NewRecorder()
		swagger.DocumentHandler([]byte(minimalDocument)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.yml", nil))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(Equal("application/yaml"))
		body, _ := io.ReadAll(rec.Body)
		Expect(string(body)).To(Equal(minimalDocument))
	})
})
