package nova_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/kubev2v/vsphere-inspector/internal/nova"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Resolver", func() {
	var (
		server   *httptest.Server
		resolver *nova.Resolver
		queries  []string
	)

	BeforeEach(func() {
		queries = nil
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/servers/detail"))
			Expect(r.Header.Get("X-Auth-Token")).To(Equal("token"))
			queries = append(queries, r.URL.Query().Get("name"))
			w.Header().Set("Content-Type", "application/json")

			if r.URL.Query().Get("marker") == "" {
				fmt.Fprintf(w, `{
					"servers": [
						{"id": "6d3ae8e4-51a6-4a9f-9a3c-6d1c2e4f9a11", "name": "web-1", "status": "ACTIVE"},
						{"id": "0b5b7a76-1d33-4c8e-8a53-8b8f2b2f6a22", "name": "web-10", "status": "ACTIVE"}
					],
					"servers_links": [{"rel": "next", "href": "%s/servers/detail?marker=0b5b7a76&name=%s"}]
				}`, server.URL, url.QueryEscape(r.URL.Query().Get("name")))
				return
			}
			fmt.Fprint(w, `{
				"servers": [
					{"id": "2a7c1c7e-3f2b-45d1-9a0d-2f7c7e9d3b33", "name": "db-1", "status": "SHUTOFF"},
					{"id": "9e1f6c2d-7a3b-4f8e-b1c0-3d4e5f6a7b44", "name": "db-1", "status": "ACTIVE"}
				]
			}`)
		}))
		resolver = nova.NewResolver(&gophercloud.ServiceClient{
			ProviderClient: &gophercloud.ProviderClient{TokenID: "token"},
			Endpoint:       server.URL + "/",
		})
	})

	AfterEach(func() {
		server.Close()
	})

	It("anchors the name filter", func() {
		_, _ = resolver.ServerByName(context.TODO(), "web-1")
		Expect(queries).ToNot(BeEmpty())
		Expect(queries[0]).To(Equal("^web-1$"))
	})

	It("returns the instance uuid as vm name", func() {
		vmName, err := resolver.VMName(context.TODO(), "web-1")
		Expect(err).To(BeNil())
		Expect(vmName).To(Equal("6d3ae8e4-51a6-4a9f-9a3c-6d1c2e4f9a11"))
	})

	It("follows every page", func() {
		_, _ = resolver.ServerByName(context.TODO(), "web-1")
		Expect(queries).To(HaveLen(2))
	})

	It("fails for unknown servers", func() {
		_, err := resolver.VMName(context.TODO(), "web-2")
		Expect(errors.Is(err, nova.ErrServerNotFound)).To(BeTrue())
	})

	It("refuses to guess between servers sharing a name", func() {
		_, err := resolver.ServerByName(context.TODO(), "db-1")
		Expect(errors.Is(err, nova.ErrAmbiguousServer)).To(BeTrue())
	})
})
