package matcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/studymatch/backend/internal"
	"github.com/studymatch/backend/pkg/logger"
)

func TestMatcher(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Matcher Module Suite")
}

var _ = ginkgo.Describe("Matcher Client", func() {
	var (
		server   *httptest.Server
		received *http.Request
		body     CandidateProfile
		respond  func(w http.ResponseWriter)
	)

	ginkgo.BeforeEach(func() {
		respond = func(w http.ResponseWriter) {
			json.NewEncoder(w).Encode(MatchResult{
				Eligible: true,
				Programs: json.RawMessage(`[{"id":1,"name":"MSc CS Berlin"}]`),
			})
		}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			received = r
			json.NewDecoder(r.Body).Decode(&body)
			respond(w)
		}))
	})

	ginkgo.AfterEach(func() {
		server.Close()
	})

	newClient := func(apiKey string) *Client {
		return NewClient(internal.MatcherConfig{APIURL: server.URL, APIKey: apiKey}, logger.L())
	}

	ginkgo.It("posts the profile to the match endpoint with the API key", func() {
		client := newClient("sekret")
		result, err := client.Match(context.Background(), CandidateProfile{
			TargetCountry: "Germany",
			TargetDegree:  "master",
			GPA:           3.6,
		})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(result.Eligible).To(gomega.BeTrue())
		gomega.Expect(result.Programs).NotTo(gomega.BeEmpty())

		gomega.Expect(received.Method).To(gomega.Equal(http.MethodPost))
		gomega.Expect(received.URL.Path).To(gomega.Equal("/match"))
		gomega.Expect(received.Header.Get("Authorization")).To(gomega.Equal("Bearer sekret"))
		gomega.Expect(body.TargetCountry).To(gomega.Equal("Germany"))
	})

	ginkgo.It("omits the authorization header without an API key", func() {
		client := newClient("")
		_, err := client.Match(context.Background(), CandidateProfile{TargetCountry: "Japan"})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(received.Header.Get("Authorization")).To(gomega.BeEmpty())
	})

	ginkgo.It("fails on non-200 responses", func() {
		respond = func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusBadGateway)
		}
		_, err := newClient("").Match(context.Background(), CandidateProfile{})
		gomega.Expect(err).To(gomega.MatchError(gomega.ContainSubstring("502")))
	})

	ginkgo.It("fails on malformed responses", func() {
		respond = func(w http.ResponseWriter) {
			w.Write([]byte("not json"))
		}
		_, err := newClient("").Match(context.Background(), CandidateProfile{})
		gomega.Expect(err).To(gomega.HaveOccurred())
	})
})
