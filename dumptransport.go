/*
 *    Copyright [2020] Sergey Kudasov
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package loadgen

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httputil"
	"strings"
	"time"
)

const (
	RequestHeader      = "========== REQUEST ==========\n%s\n"
	RequestHeaderBody  = "========== REQUEST ==========\n%s\n%s\n"
	ResponseHeaderBody = "========== RESPONSE ==========\n%s\n%s\n"
	ResponseHeader     = "========== RESPONSE ==========\n%s\n"
	HTTPBodyDelimiter  = "\r\n\r\n"
)

// DumpTransport log http request/responses, pprint bodies
type DumpTransport struct {
	r http.RoundTripper
	l *Logger
}

func (d *DumpTransport) RoundTrip(h *http.Request) (*http.Response, error) {
	dump, _ := httputil.DumpRequestOut(h, true)
	if bodyIsJson(h.Header) {
		head, body := prettyPrintJsonBody(dump)
		d.printf(RequestHeaderBody, head, body)
	} else {
		d.printf(RequestHeader, dump)
	}
	resp, err := d.r.RoundTrip(h)
	if err != nil {
		return nil, err
	}
	// DumpResponse replaces the body with an in-memory copy
	dump, _ = httputil.DumpResponse(resp, true)
	if bodyIsJson(resp.Header) {
		head, body := prettyPrintJsonBody(dump)
		d.printf(ResponseHeaderBody, head, body)
		return resp, nil
	}
	d.printf(ResponseHeader, dump)
	return resp, nil
}

func (d *DumpTransport) printf(format string, args ...interface{}) {
	if d.l != nil {
		d.l.Infof(format, args...)
	}
}

// prettyPrintJsonBody returns http head and pretty printed json body,
// the body is returned as is when it is not valid json
func prettyPrintJsonBody(b []byte) (string, string) {
	sp := strings.SplitN(string(b), HTTPBodyDelimiter, 2)
	if len(sp) != 2 {
		return sp[0], ""
	}
	var out bytes.Buffer
	if err := json.Indent(&out, []byte(sp[1]), "", "    "); err != nil {
		return sp[0], sp[1]
	}
	return sp[0], out.String()
}

// sharedTransport keeps one connection pool for all attackers
var sharedTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        1000,
	MaxIdleConnsPerHost: 1000,
	IdleConnTimeout:     90 * time.Second,
}

// NewLoggingHTTPClient creates new client, dumping requests and responses in debug mode
func NewLoggingHTTPClient(debug bool, transportTimeout int) *http.Client {
	var transport http.RoundTripper = sharedTransport
	if debug {
		transport = &DumpTransport{r: transport, l: log}
	}
	return &http.Client{
		Transport: transport,
		Timeout:   time.Duration(transportTimeout) * time.Second,
	}
}

func bodyIsJson(h http.Header) bool {
	return strings.Contains(h.Get("content-type"), "application/json")
}
