// Copyright (c) 2025 BVK Chaitanya

package cmdutil

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/bvk/makerbot/api"
	"github.com/gorilla/websocket"
)

type ClientFlags struct {
	port        int
	Host        string
	APIPath     string
	HTTPTimeout time.Duration
}

func (cf *ClientFlags) SetFlags(fset *flag.FlagSet) {
	fset.IntVar(&cf.port, "connect-port", 0, "TCP port number for the api endpoint (default=10000 or MAKERBOT_SERVER_PORT value)")
	fset.StringVar(&cf.Host, "connect-host", "127.0.0.1", "Hostname or IP address for the api endpoint")
	fset.StringVar(&cf.APIPath, "api-path", "/", "base path to the api handler")
	fset.DurationVar(&cf.HTTPTimeout, "http-timeout", 30*time.Second, "http client timeout")
}

func (cf *ClientFlags) Port() int {
	if cf.port != 0 {
		return cf.port
	}
	if v := os.Getenv("MAKERBOT_SERVER_PORT"); len(v) != 0 {
		if port, err := strconv.ParseUint(v, 10, 16); err == nil {
			return int(port)
		}
	}
	return 10000
}

func (cf *ClientFlags) AddressURL() *url.URL {
	return &url.URL{
		Scheme: "http",
		Host:   net.JoinHostPort(cf.Host, fmt.Sprintf("%d", cf.Port())),
		Path:   cf.APIPath,
	}
}

func (cf *ClientFlags) HttpClient() *http.Client {
	return &http.Client{
		Timeout: cf.HTTPTimeout,
	}
}

// Post sends the request as json to the api subpath and decodes the
// response. Unsuccessful responses are returned as *api.Error values.
func Post[RESP, REQ any](ctx context.Context, cf *ClientFlags, subpath string, req *REQ) (*RESP, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	addrURL := cf.AddressURL()
	addrURL.Path = path.Join(addrURL.Path, subpath)
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, addrURL.String(), bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	r.Header.Set("content-type", "application/json")

	client := cf.HttpClient()
	resp, err := client.Do(r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		apiErr := new(api.Error)
		if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Message == "" {
			return nil, fmt.Errorf("http status code %d: %s", resp.StatusCode, data)
		}
		return nil, apiErr
	}
	response := new(RESP)
	if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
		return nil, err
	}
	return response, nil
}

// Dial opens a websocket connection to the api subpath.
func Dial(ctx context.Context, cf *ClientFlags, subpath string, query url.Values) (*websocket.Conn, error) {
	addrURL := cf.AddressURL()
	addrURL.Scheme = "ws"
	addrURL.Path = path.Join(addrURL.Path, subpath)
	addrURL.RawQuery = query.Encode()

	dialer := &websocket.Dialer{
		HandshakeTimeout: cf.HTTPTimeout,
	}
	conn, resp, err := dialer.DialContext(ctx, addrURL.String(), nil)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			data, _ := io.ReadAll(resp.Body)
			apiErr := new(api.Error)
			if jerr := json.Unmarshal(data, apiErr); jerr == nil && apiErr.Message != "" {
				return nil, apiErr
			}
		}
		return nil, fmt.Errorf("could not connect to %s: %w", addrURL, err)
	}
	return conn, nil
}
