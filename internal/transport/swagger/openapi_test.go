package swagger

import (
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestSwagger(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Swagger Suite")
}

var _ = Describe("OpenAPI document", func() {
	var doc *openapi3.T

	BeforeEach(func() {
		loader := openapi3.NewLoader()
		var err error
		doc, err = loader.LoadFromFile("../../../api/openapi.yml")
		Expect(err).NotTo(HaveOccurred())

		Expect(doc.Validate(loader.Context)).To(Succeed())
	})

	It("documents every route group the router registers", func() {
		for _, path := range []string{
			"/auth/login",
			"/auth/refresh",
			"/users",
			"/users/{id}",
			"/categories",
			"/categories/{id}",
			"/expenses",
			"/expenses/{id}",
			"/expenses/{id}/approve",
			"/expenses/{id}/reject",
			"/analytics/dashboard",
			"/analytics/reports",
			"/analytics/trends",
		} {
			Expect(doc.Paths.Find(path)).NotTo(BeNil(), "missing path %s", path)
		}
	})

	It("secures the expense endpoints with bearer auth", func() {
		item := doc.Paths.Find("/expenses")
		Expect(item).NotTo(BeNil())
		Expect(item.Post).NotTo(BeNil())
		Expect(item.Post.Security).NotTo(BeNil())
	})
})
