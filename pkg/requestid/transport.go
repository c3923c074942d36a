package requestid

import "net/http"

// Transport sets Header on outgoing requests that do not carry one. The ID
// comes from the request context when present.
type Transport struct {
	Base http.RoundTripper
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if req.Header.Get(Header) != "" {
		return base.RoundTrip(req)
	}

	id := FromContext(req.Context())
	if !IsValid(id) {
		id = New()
	}
	req = req.Clone(req.Context())
	req.Header.Set(Header, id)
	return base.RoundTrip(req)
}
