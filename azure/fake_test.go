package azure

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/sirupsen/logrus"

	"github.com/azure/arm-template-backup/types"
)

type fakeCredential struct{}

func (fakeCredential) GetToken(ctx context.Context, options policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{Token: "fake-token", ExpiresOn: time.Now().Add(time.Hour)}, nil
}

type fakeRoute struct {
	Method     string
	PathSuffix string
	Status     int
	Bodies     []string
	served     int
}

// fakeTransport serves canned ARM responses by method and path suffix.
type fakeTransport struct {
	mu       sync.Mutex
	routes   []*fakeRoute
	requests []*http.Request
}

func (transport *fakeTransport) Add(method string, pathSuffix string, status int, bodies ...string) {
	transport.routes = append(transport.routes, &fakeRoute{Method: method, PathSuffix: pathSuffix, Status: status, Bodies: bodies})
}

func (transport *fakeTransport) Do(req *http.Request) (*http.Response, error) {
	transport.mu.Lock()
	defer transport.mu.Unlock()
	transport.requests = append(transport.requests, req)

	path := strings.ToLower(strings.TrimSuffix(req.URL.Path, "/"))
	for _, route := range transport.routes {
		suffix := strings.ToLower(strings.TrimSuffix(route.PathSuffix, "/"))
		if route.Method != req.Method || !strings.HasSuffix(path, suffix) {
			continue
		}
		body := route.Bodies[len(route.Bodies)-1]
		if route.served < len(route.Bodies) {
			body = route.Bodies[route.served]
		}
		route.served++
		return newResponse(req, route.Status, body), nil
	}
	return newResponse(req, http.StatusNotFound, `{"error":{"code":"NotFound","message":"no fake route"}}`), nil
}

func (transport *fakeTransport) Requests() int {
	transport.mu.Lock()
	defer transport.mu.Unlock()
	return len(transport.requests)
}

func newResponse(req *http.Request, status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}
}

func newFakeClient(transport *fakeTransport, discoveryMethod types.DiscoveryMethod) *ResourceManagerClient {
	return &ResourceManagerClient{
		Credential: fakeCredential{},
		ClientOptions: &arm.ClientOptions{
			ClientOptions: policy.ClientOptions{
				Transport: transport,
				Retry:     policy.RetryOptions{MaxRetries: -1},
			},
		},
		DiscoveryMethod: discoveryMethod,
		Logger:          logrus.New(),
	}
}
