package measure

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"time"

	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = ginkgo.Describe("Server", func() {
	var (
		store       *mockStore
		images      *mockImageStore
		extractor   *mockExtractor
		service     *Service
		server      *Server
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	uploadBody := func(customer, datetime, measureType string) []byte {
		body, err := json.Marshal(map[string]string{
			"image":            base64.StdEncoding.EncodeToString(jpegHeader("meter photo")),
			"customer_code":    customer,
			"measure_datetime": datetime,
			"measure_type":     measureType,
		})
		Expect(err).NotTo(HaveOccurred())
		return body
	}

	doRequest := func(method, path string, body []byte) *http.Response {
		ghttpServer.AppendHandlers(server.ServeHTTP)
		req, err := http.NewRequest(method, ghttpServer.URL()+path, bytes.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	decodeBody := func(resp *http.Response) map[string]any {
		defer resp.Body.Close()
		var decoded map[string]any
		data, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(json.Unmarshal(data, &decoded)).To(Succeed())
		return decoded
	}

	ginkgo.BeforeEach(func() {
		store = newMockStore()
		images = newMockImageStore()
		extractor = newMockExtractor()
		service = NewServiceWithDeps(store, images, extractor, &mockIDGenerator{id: "test-uuid-123"}, "http://localhost:8080")
		auth = BasicAuth{}
		server = NewServerWithMux(service, auth, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
	})

	ginkgo.AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	ginkgo.Describe("GET /", func() {
		ginkgo.It("returns the welcome message", func() {
			resp := doRequest("GET", "/", nil)
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(Equal("Welcome to the Measure API"))
		})
	})

	ginkgo.Describe("POST /upload", func() {
		ginkgo.When("the payload is valid", func() {
			ginkgo.It("returns the upload result", func() {
				resp := doRequest("POST", "/upload", uploadBody("c1", "2024-08-15T10:00:00Z", "WATER"))
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				body := decodeBody(resp)
				Expect(body["measure_value"]).To(BeEquivalentTo(42))
				Expect(body["measure_uuid"]).To(Equal("test-uuid-123"))
				Expect(body["image_url"]).To(HaveSuffix(".jpg"))
			})
		})

		ginkgo.When("the body is not JSON", func() {
			ginkgo.It("returns INVALID_DATA", func() {
				resp := doRequest("POST", "/upload", []byte("not json"))
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				body := decodeBody(resp)
				Expect(body["error_code"]).To(Equal("INVALID_DATA"))
				Expect(body["error_description"]).NotTo(BeEmpty())
			})
		})

		ginkgo.When("a field is missing", func() {
			ginkgo.It("returns INVALID_DATA with the violated rule", func() {
				body, err := json.Marshal(map[string]string{"customer_code": "c1"})
				Expect(err).NotTo(HaveOccurred())
				resp := doRequest("POST", "/upload", body)
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(decodeBody(resp)["error_description"]).To(Equal(`"image" is required`))
			})
		})

		ginkgo.When("a reading already exists for the month", func() {
			ginkgo.BeforeEach(func() {
				store.measures["existing"] = &Measure{
					MeasureUUID:     "existing",
					CustomerCode:    "c1",
					MeasureType:     TypeWater,
					MeasureDatetime: time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC),
				}
			})

			ginkgo.It("returns DOUBLE_REPORT with status 409", func() {
				resp := doRequest("POST", "/upload", uploadBody("c1", "2024-08-15T10:00:00Z", "WATER"))
				Expect(resp.StatusCode).To(Equal(http.StatusConflict))
				Expect(decodeBody(resp)["error_code"]).To(Equal("DOUBLE_REPORT"))
			})
		})

		ginkgo.When("the extractor fails", func() {
			ginkgo.BeforeEach(func() {
				extractor.extractErr = io.ErrUnexpectedEOF
			})

			ginkgo.It("returns INTERNAL_ERROR with status 500", func() {
				resp := doRequest("POST", "/upload", uploadBody("c1", "2024-08-15T10:00:00Z", "WATER"))
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
				Expect(decodeBody(resp)["error_code"]).To(Equal("INTERNAL_ERROR"))
			})
		})
	})

	ginkgo.Describe("PATCH /confirm", func() {
		ginkgo.BeforeEach(func() {
			store.measures["m1"] = &Measure{
				MeasureUUID:     "m1",
				CustomerCode:    "c1",
				MeasureType:     TypeWater,
				MeasureDatetime: time.Date(2024, 8, 15, 10, 0, 0, 0, time.UTC),
				MeasureValue:    42,
			}
		})

		confirmBody := func(uuid string, value float64) []byte {
			body, err := json.Marshal(map[string]any{"measure_uuid": uuid, "confirmed_value": value})
			Expect(err).NotTo(HaveOccurred())
			return body
		}

		ginkgo.It("confirms an unconfirmed measure", func() {
			resp := doRequest("PATCH", "/confirm", confirmBody("m1", 50))
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(decodeBody(resp)["success"]).To(Equal(true))
			Expect(store.measures["m1"].HasConfirmed).To(BeTrue())
			Expect(store.measures["m1"].MeasureValue).To(Equal(50))
		})

		ginkgo.It("returns MEASURE_NOT_FOUND for an unknown uuid", func() {
			resp := doRequest("PATCH", "/confirm", confirmBody("missing", 50))
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			Expect(decodeBody(resp)["error_code"]).To(Equal("MEASURE_NOT_FOUND"))
		})

		ginkgo.It("rejects a second confirmation", func() {
			resp := doRequest("PATCH", "/confirm", confirmBody("m1", 50))
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resp.Body.Close()

			resp = doRequest("PATCH", "/confirm", confirmBody("m1", 99))
			Expect(resp.StatusCode).To(Equal(http.StatusConflict))
			Expect(decodeBody(resp)["error_code"]).To(Equal("CONFIRMATION_DUPLICATE"))
			Expect(store.measures["m1"].MeasureValue).To(Equal(50))
		})
	})

	ginkgo.Describe("GET /{customer_code}/list", func() {
		ginkgo.BeforeEach(func() {
			store.measures["w1"] = &Measure{
				MeasureUUID:     "w1",
				CustomerCode:    "c1",
				MeasureType:     TypeWater,
				MeasureDatetime: time.Date(2024, 8, 15, 10, 0, 0, 0, time.UTC),
				MeasureValue:    42,
				ImageURL:        "http://localhost:8080/images/w1.jpg",
				HasConfirmed:    true,
			}
		})

		ginkgo.It("returns the customer's readings", func() {
			resp := doRequest("GET", "/c1/list", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body := decodeBody(resp)
			Expect(body["customer_code"]).To(Equal("c1"))
			measures := body["measures"].([]any)
			Expect(measures).To(HaveLen(1))
			first := measures[0].(map[string]any)
			Expect(first["measure_uuid"]).To(Equal("w1"))
			Expect(first["has_confirmed"]).To(Equal(true))
			Expect(first).NotTo(HaveKey("measure_value"))
		})

		ginkgo.It("accepts a lowercase type filter", func() {
			resp := doRequest("GET", "/c1/list?measure_type=water", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resp.Body.Close()
		})

		ginkgo.It("returns INVALID_TYPE for an unknown filter", func() {
			resp := doRequest("GET", "/c1/list?measure_type=ELECTRIC", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(decodeBody(resp)["error_code"]).To(Equal("INVALID_TYPE"))
		})

		ginkgo.It("returns MEASURES_NOT_FOUND for a customer with no readings", func() {
			resp := doRequest("GET", "/c2/list", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			Expect(decodeBody(resp)["error_code"]).To(Equal("MEASURES_NOT_FOUND"))
		})
	})

	ginkgo.Describe("GET /images/{file}", func() {
		ginkgo.When("the image exists", func() {
			ginkgo.BeforeEach(func() {
				images.files["m1.jpg"] = []byte("jpeg bytes")
			})

			ginkgo.It("serves the raw bytes as image/jpeg", func() {
				resp := doRequest("GET", "/images/m1.jpg", nil)
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(Equal("image/jpeg"))
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(body).To(Equal([]byte("jpeg bytes")))
			})
		})

		ginkgo.When("the image is missing", func() {
			ginkgo.It("returns 404", func() {
				resp := doRequest("GET", "/images/missing.jpg", nil)
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			})
		})
	})

	ginkgo.Describe("basic auth", func() {
		ginkgo.BeforeEach(func() {
			auth = BasicAuth{Username: "reader", Password: "secret"}
			server = NewServerWithMux(service, auth, http.NewServeMux())
		})

		ginkgo.It("rejects API requests without credentials", func() {
			resp := doRequest("GET", "/c1/list", nil)
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		ginkgo.It("accepts API requests with the configured credentials", func() {
			ghttpServer.AppendHandlers(server.ServeHTTP)
			req, err := http.NewRequest("GET", ghttpServer.URL()+"/c1/list", nil)
			Expect(err).NotTo(HaveOccurred())
			req.SetBasicAuth("reader", "secret")
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			// Authenticated but the customer has no readings
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		ginkgo.It("leaves the images route unauthenticated", func() {
			images.files["m1.jpg"] = []byte("jpeg bytes")
			resp := doRequest("GET", "/images/m1.jpg", nil)
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})
})
