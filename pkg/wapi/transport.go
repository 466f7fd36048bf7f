package wapi

import (
	"crypto/tls"
	"net/http"
	"time"

	"k8s.io/klog/v2"
)

const defaultRetryBackoff = 500 * time.Millisecond

// retryingRoundTripper retries requests that failed transiently: transport
// level errors and the 429/500/502/503/504 statuses. Client errors
// (400/401/403/404/409) are never retried here, the session layer owns the
// 401 re-authentication.
//
// Requests are only replayed when the body can be re-materialized
// (GetBody != nil), which holds for every request the client issues.
type retryingRoundTripper struct {
	delegate   http.RoundTripper
	maxRetries int
	backoff    time.Duration
}

func newTransport(verifySSL bool, maxRetries int) http.RoundTripper {
	delegate := http.DefaultTransport.(*http.Transport).Clone()
	if !verifySSL {
		delegate.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &retryingRoundTripper{
		delegate:   delegate,
		maxRetries: maxRetries,
		backoff:    defaultRetryBackoff,
	}
}

func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func (t *retryingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error
	for attempt := 0; ; attempt++ {
		resp, err = t.delegate.RoundTrip(req)
		if err == nil && !isRetryableStatus(resp.StatusCode) {
			return resp, nil
		}
		if attempt >= t.maxRetries {
			return resp, err
		}
		if req.GetBody == nil && req.Body != nil {
			return resp, err
		}
		if err != nil {
			klog.V(2).Infof("WAPI request %s %s failed (%v), retry %d/%d", req.Method, req.URL.Path, err, attempt+1, t.maxRetries)
		} else {
			klog.V(2).Infof("WAPI request %s %s returned %d, retry %d/%d", req.Method, req.URL.Path, resp.StatusCode, attempt+1, t.maxRetries)
			_ = resp.Body.Close()
		}
		// Linear backoff, interruptible by context cancellation.
		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(t.backoff * time.Duration(attempt+1)):
		}
		if req.GetBody != nil {
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return nil, bodyErr
			}
			req.Body = body
		}
	}
}
